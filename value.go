package dicom

import (
	"strings"
	"unicode"

	"github.com/slicebox/dicomflow/dicomio"
)

// Value is an owned byte buffer representing a single element's raw
// value bytes. It is stateless with respect to encoding: interpreting it
// requires a VR, an endianness, and (for character-set-affected VRs) the
// active CharacterSets.
type Value struct {
	bytes []byte
}

// NewRawValue wraps b as-is, without padding. Use this for bytes read
// off the wire, where padding (if any) is already present and must be
// preserved verbatim; padding is only applied by the New*Value builders
// that construct a value from decoded components.
func NewRawValue(b []byte) Value { return Value{bytes: b} }

// Bytes returns the raw value bytes.
func (v Value) Bytes() []byte { return v.bytes }

// Len returns the number of raw value bytes.
func (v Value) Len() int { return len(v.bytes) }

func padEven(b []byte, pad byte) []byte {
	if len(b)%2 == 0 {
		return b
	}
	return append(b, pad)
}

// --- String family (CS, SH, LO, ST, LT, UT, UC, AS, DA, TM, DT, IS, DS, PN) ---

// NewStringValue builds a Value from one or more backslash-joined string
// components, padded to even length with vr's padding byte.
func NewStringValue(vr *VR, components []string) Value {
	joined := strings.Join(components, "\\")
	return Value{bytes: padEven([]byte(joined), vr.PaddingByte)}
}

// Strings decodes the raw bytes as backslash-separated text, trimming
// padding the way the VR specifies: UT/ST/LT are only trimmed on the
// right (internal leading/trailing spaces within the text are
// significant), all other string VRs are trimmed on both sides.
func (v Value) Strings(vr *VR) []string {
	if len(v.bytes) == 0 {
		return []string{}
	}
	s := string(v.bytes)
	parts := strings.Split(s, "\\")
	trimFn := isTagPadding
	rightOnly := vr == UT || vr == ST || vr == LT
	for i, p := range parts {
		if rightOnly {
			parts[i] = strings.TrimRightFunc(p, trimFn)
		} else {
			parts[i] = strings.TrimFunc(p, trimFn)
		}
	}
	return parts
}

func isTagPadding(r rune) bool { return unicode.IsSpace(r) }

// DecodedStrings decodes the raw bytes as Strings(vr) and further decodes
// each component through the active character sets for VRs affected by
// Specific Character Set.
func (v Value) DecodedStrings(vr *VR, sets CharacterSets) []string {
	raw := v.Strings(vr)
	if !vr.CharacterSetAffected() {
		return raw
	}
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = sets.Decode(vr, []byte(s))
	}
	return out
}

// --- UID family (UI) ---

// NewUIDValue builds a Value from a UID string, padded with a NUL byte.
func NewUIDValue(uid string) Value {
	return Value{bytes: padEven([]byte(uid), 0x00)}
}

// UID decodes the raw bytes as a single UID, trimmed of NUL and space
// padding.
func (v Value) UID() string {
	return strings.TrimRightFunc(string(v.bytes), func(r rune) bool {
		return r == 0x00 || r == ' '
	})
}

// --- Numeric family (US, SS, UL, SL, FL, FD) ---

func NewUint16Value(order dicomio.ByteOrder, vs []uint16) Value {
	var b []byte
	for _, x := range vs {
		b = dicomio.PutU16(b, order, x)
	}
	return Value{bytes: b}
}

func NewInt16Value(order dicomio.ByteOrder, vs []int16) Value {
	var b []byte
	for _, x := range vs {
		b = dicomio.PutI16(b, order, x)
	}
	return Value{bytes: b}
}

func NewUint32Value(order dicomio.ByteOrder, vs []uint32) Value {
	var b []byte
	for _, x := range vs {
		b = dicomio.PutU32(b, order, x)
	}
	return Value{bytes: b}
}

func NewInt32Value(order dicomio.ByteOrder, vs []int32) Value {
	var b []byte
	for _, x := range vs {
		b = dicomio.PutI32(b, order, x)
	}
	return Value{bytes: b}
}

func NewFloat32Value(order dicomio.ByteOrder, vs []float32) Value {
	var b []byte
	for _, x := range vs {
		b = dicomio.PutF32(b, order, x)
	}
	return Value{bytes: b}
}

func NewFloat64Value(order dicomio.ByteOrder, vs []float64) Value {
	var b []byte
	for _, x := range vs {
		b = dicomio.PutF64(b, order, x)
	}
	return Value{bytes: b}
}

func (v Value) Uint16s(order dicomio.ByteOrder) []uint16 {
	out := make([]uint16, len(v.bytes)/2)
	for i := range out {
		out[i] = dicomio.U16(v.bytes[i*2:], order)
	}
	return out
}

func (v Value) Int16s(order dicomio.ByteOrder) []int16 {
	out := make([]int16, len(v.bytes)/2)
	for i := range out {
		out[i] = dicomio.I16(v.bytes[i*2:], order)
	}
	return out
}

func (v Value) Uint32s(order dicomio.ByteOrder) []uint32 {
	out := make([]uint32, len(v.bytes)/4)
	for i := range out {
		out[i] = dicomio.U32(v.bytes[i*4:], order)
	}
	return out
}

func (v Value) Int32s(order dicomio.ByteOrder) []int32 {
	out := make([]int32, len(v.bytes)/4)
	for i := range out {
		out[i] = dicomio.I32(v.bytes[i*4:], order)
	}
	return out
}

func (v Value) Float32s(order dicomio.ByteOrder) []float32 {
	out := make([]float32, len(v.bytes)/4)
	for i := range out {
		out[i] = dicomio.F32(v.bytes[i*4:], order)
	}
	return out
}

func (v Value) Float64s(order dicomio.ByteOrder) []float64 {
	out := make([]float64, len(v.bytes)/8)
	for i := range out {
		out[i] = dicomio.F64(v.bytes[i*8:], order)
	}
	return out
}

// --- Tag family (AT) ---

func NewTagValue(order dicomio.ByteOrder, tags []Tag) Value {
	var b []byte
	for _, t := range tags {
		b = dicomio.PutU16(b, order, t.Group())
		b = dicomio.PutU16(b, order, t.Element())
	}
	return Value{bytes: b}
}

func (v Value) Tags(order dicomio.ByteOrder) []Tag {
	out := make([]Tag, len(v.bytes)/4)
	for i := range out {
		group := dicomio.U16(v.bytes[i*4:], order)
		elem := dicomio.U16(v.bytes[i*4+2:], order)
		out[i] = NewTag(group, elem)
	}
	return out
}

// --- Binary family (OB, OW, OD, OF, OL, UN, UR, UC, UT) ---

// NewBinaryValue builds a Value from raw bytes, padded with 0x00.
func NewBinaryValue(b []byte) Value {
	return Value{bytes: padEven(b, 0x00)}
}
