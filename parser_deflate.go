package dicom

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// stepDeflated handles the InDeflated state. When inflate is disabled
// the compressed bytes pass through
// verbatim as DeflatedChunk parts. When enabled, the raw bytes are
// buffered until input is closed, inflated in one pass, and fed to a
// second Parser instance scoped to Explicit VR Little Endian with no
// preamble or file meta information -- the two instances are
// demultiplexed transparently by Next.
func (p *Parser) stepDeflated() (Part, error) {
	if !p.inflate {
		n := p.buf.Available()
		if n == 0 {
			if p.closed {
				p.state = stateFinished
				return nil, io.EOF
			}
			return nil, ErrNeedMoreBytes
		}
		if n > p.chunkSize {
			n = p.chunkSize
		}
		chunk := p.buf.TakeUpTo(n)
		p.chargeBytes(int64(len(chunk)))
		return &DeflatedChunkPart{Bytes: append([]byte(nil), chunk...)}, nil
	}

	if !p.deflateReady {
		if avail := p.buf.Available(); avail > 0 {
			chunk := p.buf.TakeUpTo(avail)
			p.chargeBytes(int64(len(chunk)))
			p.deflateRaw = append(p.deflateRaw, chunk...)
		}
		if !p.closed {
			return nil, ErrNeedMoreBytes
		}
		inflated, err := inflateDeflatedStream(p.deflateRaw)
		if err != nil {
			return nil, newErr(EncodingMismatch, "failed to inflate deflated transfer syntax: "+err.Error())
		}
		sub := NewParser(WithDictionary(p.dict), WithChunkSize(p.chunkSize))
		sub.state = stateInDataset
		sub.ts = ExplicitVRLittleEndian
		sub.Feed(inflated)
		sub.CloseInput()
		p.deflateParser = sub
		p.deflateReady = true
	}

	part, err := p.deflateParser.Next()
	if err == io.EOF {
		p.state = stateFinished
		return nil, io.EOF
	}
	return part, err
}

func inflateDeflatedStream(raw []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error
	if len(raw) >= 2 && raw[0] == 0x78 && raw[1] == 0x9C {
		r, err = zlib.NewReader(bytes.NewReader(raw))
	} else {
		r = flate.NewReader(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
