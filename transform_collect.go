package dicom

import "fmt"

// CollectBulkData buffers one element's ValueChunk stream back into a
// single contiguous Value, re-emitting it as a single header and a
// single final chunk once complete. Use it ahead of a sink that wants
// whole values (an Aggregator already does its own buffering; this is
// for flows, such as a pixel-data accessor, built directly on Handler
// without going through Elements). Buffering past maxBytes -- 0 means
// unbounded -- raises BufferOverflow rather than continuing to grow.
func CollectBulkData(maxBytes int) Handler {
	var hdr *HeaderPart
	var buf []byte

	return HandlerFunc(func(part Part) ([]Part, error) {
		switch p := part.(type) {
		case *HeaderPart:
			hdr = p
			buf = nil
			return nil, nil
		case *ValueChunkPart:
			if hdr == nil {
				return []Part{part}, nil
			}
			buf = append(buf, p.Bytes...)
			if maxBytes > 0 && len(buf) > maxBytes {
				h := hdr
				hdr, buf = nil, nil
				return nil, newErr(BufferOverflow, fmt.Sprintf("element %s exceeded %d buffered bytes", h.Tag, maxBytes))
			}
			if !p.Last {
				return nil, nil
			}
			out := []Part{
				&HeaderPart{Tag: hdr.Tag, VR: hdr.VR, Length: uint32(len(buf)), BigEndian: hdr.BigEndian, ExplicitVR: hdr.ExplicitVR},
				&ValueChunkPart{Bytes: buf, Last: true},
			}
			hdr, buf = nil, nil
			return out, nil
		}
		return []Part{part}, nil
	})
}
