// Package dcmtest builds raw DICOM wire byte streams for feeding into a
// Parser in tests -- the encoding-side counterpart of the streaming
// parser the rest of this module builds on.
package dcmtest

import "encoding/binary"

// Builder accumulates wire bytes. Every append helper returns the
// Builder so calls chain; unless named otherwise (ImplicitElement),
// helpers write Explicit VR Little Endian.
type Builder struct {
	buf []byte
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// Bytes returns the accumulated wire bytes.
func (b *Builder) Bytes() []byte { return b.buf }

// Raw appends already-built wire bytes verbatim, for embedding one
// Builder's output (an item's nested dataset, a fragment payload) inside
// another.
func (b *Builder) Raw(v []byte) *Builder {
	b.buf = append(b.buf, v...)
	return b
}

// Preamble appends 128 zero bytes followed by the "DICM" magic.
func (b *Builder) Preamble() *Builder {
	b.buf = append(b.buf, make([]byte, 128)...)
	b.buf = append(b.buf, 'D', 'I', 'C', 'M')
	return b
}

func putU16(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

func putU32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func (b *Builder) tag(group, elem uint16) {
	b.buf = append(b.buf, putU16(group)...)
	b.buf = append(b.buf, putU16(elem)...)
}

// shortFormVRs use the 8-byte explicit-VR header (2-byte length); every
// other VR uses the 12-byte long form (2 reserved bytes, 4-byte length).
var shortFormVRs = map[string]bool{
	"AE": true, "AS": true, "AT": true, "CS": true, "DA": true, "DS": true,
	"DT": true, "FL": true, "FD": true, "IS": true, "LO": true, "LT": true,
	"PN": true, "SH": true, "SL": true, "SS": true, "ST": true, "TM": true,
	"UI": true, "UL": true, "US": true,
}

// Element appends one Explicit VR Little Endian data element.
func (b *Builder) Element(group, elem uint16, vr string, value []byte) *Builder {
	b.tag(group, elem)
	b.buf = append(b.buf, vr[0], vr[1])
	if shortFormVRs[vr] {
		b.buf = append(b.buf, putU16(uint16(len(value)))...)
	} else {
		b.buf = append(b.buf, 0, 0)
		b.buf = append(b.buf, putU32(uint32(len(value)))...)
	}
	b.buf = append(b.buf, value...)
	return b
}

// ImplicitElement appends one Implicit VR Little Endian data element:
// 4-byte tag, 4-byte length, value, with no VR on the wire.
func (b *Builder) ImplicitElement(group, elem uint16, value []byte) *Builder {
	b.tag(group, elem)
	b.buf = append(b.buf, putU32(uint32(len(value)))...)
	b.buf = append(b.buf, value...)
	return b
}

// Str pads s to even length with a space, the padding byte shared by
// the text-family VRs.
func Str(s string) []byte {
	b := []byte(s)
	if len(b)%2 == 1 {
		b = append(b, ' ')
	}
	return b
}

// UID pads s to even length with a NUL byte, UI's padding byte.
func UID(s string) []byte {
	b := []byte(s)
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

// UL32 appends a single-valued UL element.
func (b *Builder) UL32(group, elem uint16, v uint32) *Builder {
	return b.Element(group, elem, "UL", putU32(v))
}

// US16 appends a single-valued US element.
func (b *Builder) US16(group, elem uint16, v uint16) *Builder {
	return b.Element(group, elem, "US", putU16(v))
}

// Sequence opens an indeterminate-length (UndefinedLength) SQ header.
func (b *Builder) Sequence(group, elem uint16) *Builder {
	b.tag(group, elem)
	b.buf = append(b.buf, 'S', 'Q', 0, 0)
	b.buf = append(b.buf, putU32(0xFFFFFFFF)...)
	return b
}

// SequenceDetermined opens an SQ header with a declared byte length
// instead of UndefinedLength.
func (b *Builder) SequenceDetermined(group, elem uint16, length uint32) *Builder {
	b.tag(group, elem)
	b.buf = append(b.buf, 'S', 'Q', 0, 0)
	b.buf = append(b.buf, putU32(length)...)
	return b
}

// Item opens one item of a sequence or fragments train.
func (b *Builder) Item(length uint32) *Builder {
	b.tag(0xFFFE, 0xE000)
	b.buf = append(b.buf, putU32(length)...)
	return b
}

// ItemDelimitation closes an indeterminate-length item.
func (b *Builder) ItemDelimitation() *Builder {
	b.tag(0xFFFE, 0xE00D)
	b.buf = append(b.buf, putU32(0)...)
	return b
}

// SequenceDelimitation closes an indeterminate-length sequence or
// fragments train.
func (b *Builder) SequenceDelimitation() *Builder {
	b.tag(0xFFFE, 0xE0DD)
	b.buf = append(b.buf, putU32(0)...)
	return b
}

// Fragments opens an encapsulated pixel-data-style element: tag, VR (OB
// or OW), 2 reserved bytes, UndefinedLength.
func (b *Builder) Fragments(group, elem uint16, vr string) *Builder {
	b.tag(group, elem)
	b.buf = append(b.buf, vr[0], vr[1], 0, 0)
	b.buf = append(b.buf, putU32(0xFFFFFFFF)...)
	return b
}

// FMI writes a minimal File Meta Information block: a group-length
// element sized to match, followed by TransferSyntaxUID. FMI is always
// Explicit VR Little Endian regardless of the dataset's own transfer
// syntax.
func (b *Builder) FMI(transferSyntaxUID string) *Builder {
	ts := UID(transferSyntaxUID)
	tsElementLen := 8 + len(ts) // explicit short-form header + value
	b.UL32(0x0002, 0x0000, uint32(tsElementLen))
	b.Element(0x0002, 0x0010, "UI", ts)
	return b
}
