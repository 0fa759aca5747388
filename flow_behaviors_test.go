package dicom

import (
	"io"
	"testing"

	"github.com/slicebox/dicomflow/internal/dcmtest"
	"github.com/stretchr/testify/require"
)

type collectHandler struct{ parts []Part }

func (c *collectHandler) Handle(part Part) ([]Part, error) {
	c.parts = append(c.parts, part)
	return []Part{part}, nil
}

func driveThrough(t *testing.T, h Handler, data []byte) []Part {
	t.Helper()
	p := NewParser()
	p.Feed(data)
	p.CloseInput()
	var out []Part
	for {
		part, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		res, herr := h.Handle(part)
		require.NoError(t, herr)
		out = append(out, res...)
	}
	return out
}

func TestGuaranteedValueEventSynthesizesForZeroLengthHeader(t *testing.T) {
	sink := &collectHandler{}
	behavior := GuaranteedValueEvent(sink)

	data := dcmtest.New().Element(0x0008, 0x0060, "CS", nil).Bytes()
	driveThrough(t, behavior, data)

	require.Len(t, sink.parts, 2)
	vc, ok := sink.parts[1].(*ValueChunkPart)
	require.True(t, ok)
	require.True(t, vc.Marker)
	require.True(t, vc.Last)
}

func TestGuaranteedValueEventStackingAvoidsDoubleMarker(t *testing.T) {
	inner := &collectHandler{}
	outer := GuaranteedValueEvent(GuaranteedValueEvent(inner))

	data := dcmtest.New().Element(0x0008, 0x0060, "CS", nil).Bytes()
	driveThrough(t, outer, data)

	markerCount := 0
	for _, p := range inner.parts {
		if vc, ok := p.(*ValueChunkPart); ok && vc.Marker {
			markerCount++
		}
	}
	require.Equal(t, 1, markerCount)
}

func TestGuaranteedDelimitationEventsFiresForDeterminateSequence(t *testing.T) {
	sink := &collectHandler{}
	behavior := GuaranteedDelimitationEvents(sink)

	item := dcmtest.New().Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3")).Bytes()
	b := dcmtest.New()
	b.SequenceDetermined(0x0008, 0x1140, uint32(8+len(item)))
	b.Item(uint32(len(item)))
	b.Raw(item)
	driveThrough(t, behavior, b.Bytes())

	var sawSeqEnd, sawItemEnd bool
	for _, p := range sink.parts {
		switch dp := p.(type) {
		case *SequenceDelimitationPart:
			sawSeqEnd = dp.Marker
		case *ItemDelimitationPart:
			sawItemEnd = dp.Marker
		}
	}
	require.True(t, sawSeqEnd)
	require.True(t, sawItemEnd)
}

func TestGuaranteedDelimitationEventsPassesThroughRealDelimitation(t *testing.T) {
	sink := &collectHandler{}
	behavior := GuaranteedDelimitationEvents(sink)

	b := dcmtest.New()
	b.Sequence(0x0008, 0x1140)
	b.Item(0xFFFFFFFF)
	b.Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3"))
	b.ItemDelimitation()
	b.SequenceDelimitation()
	driveThrough(t, behavior, b.Bytes())

	markerSeqEnds := 0
	for _, p := range sink.parts {
		if dp, ok := p.(*SequenceDelimitationPart); ok && dp.Marker {
			markerSeqEnds++
		}
	}
	require.Equal(t, 0, markerSeqEnds)
}

func TestTagPathTrackingThroughNestedSequence(t *testing.T) {
	tracker := TagPathTracking(&collectHandler{})

	item := dcmtest.New().Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3")).Bytes()
	b := dcmtest.New()
	b.Sequence(0x0008, 0x1140)
	b.Item(uint32(len(item)))
	b.Raw(item)
	b.SequenceDelimitation()

	// Wrap with guaranteed delimitation so the determinate item closes
	// and the tag path records an ItemEnd.
	guaranteed := GuaranteedDelimitationEvents(HandlerFunc(func(p Part) ([]Part, error) {
		tracker.Update(p)
		return nil, nil
	}))
	driveThrough(t, guaranteed, b.Bytes())

	require.True(t, tracker.Path.Equal(EmptyTagPath) || tracker.Path.IsLastSequenceEnd())
}
