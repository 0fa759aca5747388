package dicom

import (
	"strconv"

	"github.com/slicebox/dicomflow/dicomio"
)

// isCurveDataTag reports whether tag belongs to one of the retired Curve
// Data groups (0x5000, 0x5002, ... 0x50FE) at the CurveData element.
func isCurveDataTag(tag Tag) bool {
	return Tag(uint32(tag)&0xFF00FFFF) == (CurveDataGroupMask | 0x3000)
}

// isOverlayDataTag reports whether tag belongs to one of the Overlay
// Data repeating groups (0x6000, 0x6002, ... 0x601E) at the OverlayData
// element.
func isOverlayDataTag(tag Tag) bool {
	return Tag(uint32(tag)&uint32(OverlayDataGroupNormalize)) == (OverlayDataGroupMask | 0x3000)
}

// isBulkDataTag classifies tag as bulk data given the tag path it
// occupies (already extended to include tag itself).
func isBulkDataTag(tag Tag, path TagPath) bool {
	switch tag {
	case PixelDataTag:
		return path.Depth() == 1
	case WaveformDataTag:
		return path.Depth() == 3 &&
			path.nodes[0].kind == nodeSequence &&
			path.nodes[0].tag == WaveformSequenceTag
	case PixelDataProviderURLTag, AudioSampleDataTag, SpectroscopyDataTag,
		EncapsulatedDocumentTag, FloatPixelDataTag, DoubleFloatPixelDataTag:
		return true
	}
	return isCurveDataTag(tag) || isOverlayDataTag(tag)
}

// BulkDataFilter drops the bulk-data elements named in the bulk-data
// filter invariant: root PixelData, WaveformData nested directly under a
// root WaveformSequence, and the always-dropped legacy/overlay/
// provider-URL tags. Native (Header+ValueChunk) and encapsulated
// (Fragments+Item+...+SequenceDelimitation) forms are both handled.
func BulkDataFilter() Handler {
	tracker := TagPathTracking(nil)
	dropping := false
	skipFragments := false

	return HandlerFunc(func(part Part) ([]Part, error) {
		tracker.Update(part)

		if skipFragments {
			if _, ok := part.(*SequenceDelimitationPart); ok {
				skipFragments = false
			}
			return nil, nil
		}
		if dropping {
			if vc, ok := part.(*ValueChunkPart); ok {
				if vc.Last {
					dropping = false
				}
				return nil, nil
			}
			dropping = false
		}

		switch p := part.(type) {
		case *HeaderPart:
			if isBulkDataTag(p.Tag, tracker.Path) {
				dropping = true
				return nil, nil
			}
		case *FragmentsPart:
			if isBulkDataTag(p.Tag, tracker.Path) {
				skipFragments = true
				return nil, nil
			}
		}
		return []Part{part}, nil
	})
}

// nativeFrameMeta accumulates the image-geometry elements
// SplitNativePixelDataFrames needs in order to cut a single native
// PixelData value into per-frame pieces. DICOM requires Rows, Columns,
// SamplesPerPixel, and BitsAllocated to precede PixelData in the
// dataset, so by the time the PixelData header arrives these are
// already known.
type nativeFrameMeta struct {
	rows, columns, samplesPerPixel, bitsAllocated uint16
	haveGeometry                                  int
	numberOfFrames                                int
}

func (m *nativeFrameMeta) frameLength() int {
	return int(m.rows) * int(m.columns) * int(m.samplesPerPixel) * int(m.bitsAllocated) / 8
}

// SplitNativePixelDataFrames rewrites a native (uncompressed) multi-frame
// PixelData element into the same Fragments/Item/.../SequenceDelimitation
// shape an encapsulated element already streams as, one item per frame
// and no Basic Offset Table. This lets every downstream consumer treat
// per-frame access uniformly regardless of transfer syntax, instead of
// introducing a dedicated multi-frame part type. Apply it before any
// other pixel-data-touching transform, since it changes PixelData's
// shape out from under them.
func SplitNativePixelDataFrames() Handler {
	tracker := TagPathTracking(nil)
	meta := &nativeFrameMeta{numberOfFrames: 1}

	var captureTag Tag
	var captureBuf []byte
	var capturingGeometry bool

	var splitting bool
	var splitHeader *HeaderPart
	var splitBuf []byte

	return HandlerFunc(func(part Part) ([]Part, error) {
		tracker.Update(part)

		switch p := part.(type) {
		case *HeaderPart:
			capturingGeometry, captureTag, captureBuf = false, p.Tag, nil
			splitting, splitHeader, splitBuf = false, nil, nil

			switch p.Tag {
			case RowsTag, ColumnsTag, SamplesPerPixelTag, BitsAllocatedTag, NumberOfFramesTag:
				if tracker.Path.Depth() == 1 {
					capturingGeometry = true
				}
			case PixelDataTag:
				if tracker.Path.Depth() == 1 && !p.Indeterminate() {
					splitting = true
					np := *p
					splitHeader = &np
					return nil, nil
				}
			}
			return []Part{part}, nil

		case *ValueChunkPart:
			if splitting {
				splitBuf = append(splitBuf, p.Bytes...)
				if !p.Last {
					return nil, nil
				}
				return finishSplit(splitHeader, splitBuf, meta), nil
			}
			if capturingGeometry {
				captureBuf = append(captureBuf, p.Bytes...)
				if p.Last {
					captureGeometry(meta, captureTag, NewRawValue(captureBuf))
				}
			}
			return []Part{part}, nil
		}
		return []Part{part}, nil
	})
}

func captureGeometry(meta *nativeFrameMeta, tag Tag, v Value) {
	switch tag {
	case RowsTag:
		if vs := v.Uint16s(dicomio.LittleEndian); len(vs) > 0 {
			meta.rows = vs[0]
		}
	case ColumnsTag:
		if vs := v.Uint16s(dicomio.LittleEndian); len(vs) > 0 {
			meta.columns = vs[0]
		}
	case SamplesPerPixelTag:
		if vs := v.Uint16s(dicomio.LittleEndian); len(vs) > 0 {
			meta.samplesPerPixel = vs[0]
		}
	case BitsAllocatedTag:
		if vs := v.Uint16s(dicomio.LittleEndian); len(vs) > 0 {
			meta.bitsAllocated = vs[0]
		}
	case NumberOfFramesTag:
		if strs := v.Strings(IS); len(strs) > 0 {
			if n, err := strconv.Atoi(strs[0]); err == nil && n > 0 {
				meta.numberOfFrames = n
			}
		}
	}
}

// finishSplit emits either the split Fragments-shaped representation, or
// the original header and value unchanged when the buffered length
// doesn't divide evenly into the frames the geometry elements describe
// (e.g. missing geometry, or an encoding this transform cannot account
// for).
func finishSplit(hdr *HeaderPart, buf []byte, meta *nativeFrameMeta) []Part {
	frameLen := meta.frameLength()
	if frameLen <= 0 || meta.numberOfFrames <= 1 || frameLen*meta.numberOfFrames != len(buf) {
		return []Part{hdr, &ValueChunkPart{Bytes: buf, Last: true}}
	}

	out := make([]Part, 0, 2+3*meta.numberOfFrames)
	out = append(out, &FragmentsPart{Tag: hdr.Tag, VR: hdr.VR, BigEndian: hdr.BigEndian, ExplicitVR: hdr.ExplicitVR})
	for i := 0; i < meta.numberOfFrames; i++ {
		frame := buf[i*frameLen : (i+1)*frameLen]
		out = append(out,
			&ItemPart{Index: i + 1, Length: uint32(frameLen), BigEndian: hdr.BigEndian},
			&ValueChunkPart{Bytes: frame, Last: true},
		)
	}
	out = append(out, &SequenceDelimitationPart{BigEndian: hdr.BigEndian})
	return out
}
