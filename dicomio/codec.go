package dicomio

import (
	"encoding/binary"
	"math"
)

// ByteOrder re-exports encoding/binary.ByteOrder so callers need not
// import encoding/binary just to name little/big endian.
type ByteOrder = binary.ByteOrder

// LittleEndian and BigEndian are the two orderings DICOM transfer
// syntaxes use for the dataset; the FMI group is always little endian.
var (
	LittleEndian = binary.LittleEndian
	BigEndian    = binary.BigEndian
)

// U16/I16/U32/I32/U64/I64/F32/F64 decode fixed-width values from b using
// order. Callers must ensure b has the required length; the streaming
// parser only calls these after Buffer.Take has confirmed availability.

func U16(b []byte, order ByteOrder) uint16 { return order.Uint16(b) }
func U32(b []byte, order ByteOrder) uint32 { return order.Uint32(b) }
func U64(b []byte, order ByteOrder) uint64 { return order.Uint64(b) }

func I16(b []byte, order ByteOrder) int16 { return int16(order.Uint16(b)) }
func I32(b []byte, order ByteOrder) int32 { return int32(order.Uint32(b)) }
func I64(b []byte, order ByteOrder) int64 { return int64(order.Uint64(b)) }

func F32(b []byte, order ByteOrder) float32 { return math.Float32frombits(order.Uint32(b)) }
func F64(b []byte, order ByteOrder) float64 { return math.Float64frombits(order.Uint64(b)) }

// PutU16/PutU32/PutU64/PutI16/PutI32/PutI64/PutF32/PutF64 append the
// encoded bytes of v to dst using order and return the extended slice.

func PutU16(dst []byte, order ByteOrder, v uint16) []byte {
	var buf [2]byte
	order.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func PutU32(dst []byte, order ByteOrder, v uint32) []byte {
	var buf [4]byte
	order.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func PutU64(dst []byte, order ByteOrder, v uint64) []byte {
	var buf [8]byte
	order.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func PutI16(dst []byte, order ByteOrder, v int16) []byte { return PutU16(dst, order, uint16(v)) }
func PutI32(dst []byte, order ByteOrder, v int32) []byte { return PutU32(dst, order, uint32(v)) }
func PutI64(dst []byte, order ByteOrder, v int64) []byte { return PutU64(dst, order, uint64(v)) }

func PutF32(dst []byte, order ByteOrder, v float32) []byte {
	return PutU32(dst, order, math.Float32bits(v))
}

func PutF64(dst []byte, order ByteOrder, v float64) []byte {
	return PutU64(dst, order, math.Float64bits(v))
}
