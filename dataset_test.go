package dicom

import (
	"io"
	"testing"

	"github.com/slicebox/dicomflow/dicomio"
	"github.com/slicebox/dicomflow/internal/dcmtest"
	"github.com/stretchr/testify/require"
)

// aggregate drives data through a Parser, then GuaranteedValueEvent and
// GuaranteedDelimitationEvents (the invariants Aggregator depends on),
// into a fresh Aggregator, and returns the resulting Elements.
func aggregate(t *testing.T, data []byte) *Elements {
	t.Helper()
	agg := NewAggregator()
	chain := GuaranteedValueEvent(GuaranteedDelimitationEvents(agg))

	p := NewParser()
	p.Feed(data)
	p.CloseInput()
	for {
		part, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		_, err = chain.Handle(part)
		require.NoError(t, err)
	}
	return agg.Result()
}

func TestAggregatorFlatElements(t *testing.T) {
	data := dcmtest.New().
		Element(0x0010, 0x0010, "PN", dcmtest.Str("Doe^John")).
		Element(0x0010, 0x0020, "LO", dcmtest.Str("ID1")).
		Bytes()
	elems := aggregate(t, data)

	es := elems.Get(NewTag(0x0010, 0x0010))
	require.NotNil(t, es)
	ve, ok := es.(*ValueElement)
	require.True(t, ok)
	require.Equal(t, []string{"Doe^John"}, ve.Value.Strings(PN))
}

func TestAggregatorNestedSequenceItems(t *testing.T) {
	item := dcmtest.New().Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3")).Bytes()
	b := dcmtest.New()
	b.Sequence(0x0008, 0x1140)
	b.Item(uint32(len(item)))
	b.Raw(item)
	b.SequenceDelimitation()

	elems := aggregate(t, b.Bytes())
	es := elems.Get(NewTag(0x0008, 0x1140))
	require.NotNil(t, es)
	seq, ok := es.(*Sequence)
	require.True(t, ok)
	require.Len(t, seq.Items, 1)

	inner := seq.Items[0].Elements.Get(NewTag(0x0008, 0x1150))
	require.NotNil(t, inner)
	ve := inner.(*ValueElement)
	require.Equal(t, "1.2.3", ve.Value.UID())
}

func TestAggregatorFragmentsWithBasicOffsetTable(t *testing.T) {
	b := dcmtest.New()
	b.Fragments(0x7FE0, 0x0010, "OW")
	b.Item(4)
	b.Raw([]byte{1, 0, 0, 0})
	b.Item(2)
	b.Raw([]byte{0xAA, 0xBB})
	b.SequenceDelimitation()

	elems := aggregate(t, b.Bytes())
	es := elems.Get(PixelDataTag)
	require.NotNil(t, es)
	frags, ok := es.(*Fragments)
	require.True(t, ok)
	require.Len(t, frags.Offsets, 1)
	require.Len(t, frags.Fragments, 1)
	require.Equal(t, []byte{0xAA, 0xBB}, frags.Fragments[0].Value.Bytes())
}

func TestAggregatorFragmentsWithZeroLengthFirstItemHasNoOffsets(t *testing.T) {
	b := dcmtest.New()
	b.Fragments(0x7FE0, 0x0010, "OW")
	b.Item(0)
	b.Item(2)
	b.Raw([]byte{0x01, 0x02})
	b.SequenceDelimitation()

	elems := aggregate(t, b.Bytes())
	frags := elems.Get(PixelDataTag).(*Fragments)
	require.Empty(t, frags.Offsets)
	require.Len(t, frags.Fragments, 1)

	require.Equal(t, 1, frags.FrameCount())
	frames := frags.Frames()
	require.Len(t, frames, 1)
	require.Equal(t, []byte{0x01, 0x02}, frames[0])
}

func TestAggregatorFragmentsTwoFrameOffsetTableSplicesTwoFrames(t *testing.T) {
	frame0 := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	frame1 := []byte{8, 9, 10, 11, 12, 13, 14, 15}
	offsetTable := NewUint32Value(dicomio.LittleEndian, []uint32{0, 8})

	b := dcmtest.New()
	b.Fragments(0x7FE0, 0x0010, "OW")
	b.Item(uint32(offsetTable.Len()))
	b.Raw(offsetTable.Bytes())
	b.Item(uint32(len(frame0)))
	b.Raw(frame0)
	b.Item(uint32(len(frame1)))
	b.Raw(frame1)
	b.SequenceDelimitation()

	elems := aggregate(t, b.Bytes())
	frags := elems.Get(PixelDataTag).(*Fragments)
	require.Equal(t, []uint32{0, 8}, frags.Offsets)
	require.Len(t, frags.Fragments, 2)

	require.Equal(t, 2, frags.FrameCount())
	frames := frags.Frames()
	require.Len(t, frames, 2)
	require.Equal(t, frame0, frames[0])
	require.Equal(t, frame1, frames[1])
}

func TestFragmentsFrameCountZeroWhenNoPayload(t *testing.T) {
	frags := &Fragments{Tag: PixelDataTag}
	require.Equal(t, 0, frags.FrameCount())
	require.Nil(t, frags.Frames())
}

func TestAggregatorSpecificCharacterSetUpdatesElements(t *testing.T) {
	data := dcmtest.New().Element(0x0008, 0x0005, "CS", dcmtest.Str("ISO_IR 100")).Bytes()
	elems := aggregate(t, data)
	require.Equal(t, []string{"ISO_IR 100"}, elems.CharacterSets.Terms())
}

func TestElementsInsertReplacesDuplicateTag(t *testing.T) {
	var e Elements
	e.Insert(&ValueElement{Tag: NewTag(1, 1), Value: NewRawValue([]byte("a"))})
	e.Insert(&ValueElement{Tag: NewTag(1, 1), Value: NewRawValue([]byte("b"))})
	require.Len(t, e.All(), 1)
	ve := e.Get(NewTag(1, 1)).(*ValueElement)
	require.Equal(t, "b", string(ve.Value.Bytes()))
}

func TestElementsSortedAscendingByTag(t *testing.T) {
	var e Elements
	e.Insert(&ValueElement{Tag: NewTag(2, 0)})
	e.Insert(&ValueElement{Tag: NewTag(1, 0)})
	e.Insert(&ValueElement{Tag: NewTag(3, 0)})
	all := e.All()
	require.Len(t, all, 3)
	require.Equal(t, NewTag(1, 0), all[0].setTag())
	require.Equal(t, NewTag(2, 0), all[1].setTag())
	require.Equal(t, NewTag(3, 0), all[2].setTag())
}
