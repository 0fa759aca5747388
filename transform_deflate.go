package dicom

import (
	"bytes"

	"github.com/klauspost/compress/flate"
	"github.com/slicebox/dicomflow/dicomio"
)

// DeflateCompressor compresses every part from the first non-FMI header
// onward into DeflatedChunkPart output, the write-side counterpart of
// the inflate path stepDeflated drives when parsing a Deflated Explicit
// VR Little Endian stream. File Meta Information passes through
// unchanged, since it precedes the deflated block on the wire.
//
// Callers must call Finish once the upstream source is exhausted, to
// flush the final deflate block.
type DeflateCompressor struct {
	buf   bytes.Buffer
	zw    *flate.Writer
	inFMI bool
}

// NewDeflateCompressor returns a DeflateCompressor writing at the given
// flate compression level (flate.DefaultCompression is a reasonable
// default).
func NewDeflateCompressor(level int) (*DeflateCompressor, error) {
	c := &DeflateCompressor{inFMI: true}
	zw, err := flate.NewWriter(&c.buf, level)
	if err != nil {
		return nil, err
	}
	c.zw = zw
	return c, nil
}

func (c *DeflateCompressor) Handle(part Part) ([]Part, error) {
	switch p := part.(type) {
	case *PreamblePart:
		return []Part{part}, nil
	case *HeaderPart:
		if p.Tag.IsFMI() {
			return []Part{part}, nil
		}
		c.inFMI = false
	case *ValueChunkPart:
		if c.inFMI {
			return []Part{part}, nil
		}
	default:
		if c.inFMI {
			return []Part{part}, nil
		}
	}

	raw := part.RawBytes()
	if len(raw) == 0 {
		return nil, nil
	}
	if _, err := c.zw.Write(raw); err != nil {
		return nil, err
	}
	if err := c.zw.Flush(); err != nil {
		return nil, err
	}
	return c.drain(), nil
}

// Finish closes the deflate stream and returns any remaining compressed
// bytes as a final DeflatedChunkPart.
func (c *DeflateCompressor) Finish() ([]Part, error) {
	if err := c.zw.Close(); err != nil {
		return nil, err
	}
	return c.drain(), nil
}

func (c *DeflateCompressor) drain() []Part {
	if c.buf.Len() == 0 {
		return nil
	}
	b := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	return []Part{&DeflatedChunkPart{Bytes: b}}
}

// FMIGroupLengthRecompute buffers the File Meta Information elements
// that follow FileMetaInformationGroupLength (0002,0000), drops the
// original group-length value, and re-emits a corrected one sized to the
// FMI elements actually present -- needed whenever an upstream transform
// has added, dropped, or resized FMI elements (ExplicitVRLittleEndianNormalizer
// rewriting TransferSyntaxUID, for instance) and left the original group length
// stale.
func FMIGroupLengthRecompute() Handler {
	var buffered []Part
	var bodyLen uint32
	done := false
	droppingGroupLength := false

	return HandlerFunc(func(part Part) ([]Part, error) {
		if done {
			return []Part{part}, nil
		}

		switch p := part.(type) {
		case *PreamblePart:
			return []Part{part}, nil
		case *HeaderPart:
			if p.Tag == FileMetaInformationGroupLengthTag {
				droppingGroupLength = true
				return nil, nil
			}
			droppingGroupLength = false
			if !p.Tag.IsFMI() {
				done = true
				hdr := &HeaderPart{Tag: FileMetaInformationGroupLengthTag, VR: UL, Length: 4, ExplicitVR: true}
				val := NewUint32Value(dicomio.LittleEndian, []uint32{bodyLen})
				out := make([]Part, 0, len(buffered)+3)
				out = append(out, hdr, &ValueChunkPart{Bytes: val.Bytes(), Last: true})
				out = append(out, buffered...)
				out = append(out, part)
				buffered = nil
				return out, nil
			}
			bodyLen += uint32(len(p.Bytes))
			buffered = append(buffered, part)
			return nil, nil
		case *ValueChunkPart:
			if droppingGroupLength {
				return nil, nil
			}
			bodyLen += uint32(len(p.Bytes))
			buffered = append(buffered, part)
			return nil, nil
		}
		buffered = append(buffered, part)
		return nil, nil
	})
}
