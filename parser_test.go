package dicom

import (
	"io"
	"testing"

	"github.com/slicebox/dicomflow/dicomio"
	"github.com/slicebox/dicomflow/internal/dcmtest"
	"github.com/stretchr/testify/require"
)

// parseAll drives a Parser over data to completion, returning every Part
// produced. It fails the test on any error other than io.EOF.
func parseAll(t *testing.T, data []byte, opts ...ParserOption) []Part {
	t.Helper()
	p := NewParser(opts...)
	p.Feed(data)
	p.CloseInput()

	var parts []Part
	for {
		part, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		parts = append(parts, part)
	}
	return parts
}

func TestParserImplicitVRLittleEndianElement(t *testing.T) {
	data := dcmtest.New().ImplicitElement(0x0010, 0x0010, dcmtest.Str("Doe^John")).Bytes()
	parts := parseAll(t, data)

	require.Len(t, parts, 2)
	hdr, ok := parts[0].(*HeaderPart)
	require.True(t, ok)
	require.Equal(t, NewTag(0x0010, 0x0010), hdr.Tag)
	require.Equal(t, PN, hdr.VR)
	require.False(t, hdr.ExplicitVR)

	vc, ok := parts[1].(*ValueChunkPart)
	require.True(t, ok)
	require.True(t, vc.Last)
	require.Equal(t, "Doe^John", string(vc.Bytes))
}

func TestParserExplicitVRShortAndLongForm(t *testing.T) {
	groupLen := NewUint32Value(dicomio.LittleEndian, []uint32{10})
	data := dcmtest.New().
		Element(0x0010, 0x0020, "LO", dcmtest.Str("ID1")).
		Element(0x0008, 0x0000, "UL", groupLen.Bytes()).
		Element(0x0042, 0x0011, "OB", []byte{1, 2}).
		Bytes()
	parts := parseAll(t, data)
	require.NotEmpty(t, parts)
	hdr, ok := parts[0].(*HeaderPart)
	require.True(t, ok)
	require.Equal(t, LO, hdr.VR)
	require.True(t, hdr.ExplicitVR)
	require.Len(t, hdr.Bytes, 8)

	require.Len(t, parts, 6)
	long, ok := parts[4].(*HeaderPart)
	require.True(t, ok)
	require.Equal(t, OB, long.VR)
	require.Len(t, long.Bytes, 12)
	require.Equal(t, uint32(2), long.Length)
}

func TestParserIndeterminateSequenceWithItems(t *testing.T) {
	b := dcmtest.New()
	b.Sequence(0x0008, 0x1140)
	b.Item(0xFFFFFFFF)
	b.Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3"))
	b.ItemDelimitation()
	b.SequenceDelimitation()
	parts := parseAll(t, b.Bytes())

	var kinds []string
	for _, p := range parts {
		switch p.(type) {
		case *SequencePart:
			kinds = append(kinds, "seq")
		case *ItemPart:
			kinds = append(kinds, "item")
		case *HeaderPart:
			kinds = append(kinds, "hdr")
		case *ValueChunkPart:
			kinds = append(kinds, "val")
		case *ItemDelimitationPart:
			kinds = append(kinds, "itemEnd")
		case *SequenceDelimitationPart:
			kinds = append(kinds, "seqEnd")
		}
	}
	require.Equal(t, []string{"seq", "item", "hdr", "val", "itemEnd", "seqEnd"}, kinds)
}

func TestParserDeterminateSequenceFiresNoDelimitationOnWire(t *testing.T) {
	item := dcmtest.New().Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3")).Bytes()

	b := dcmtest.New()
	b.SequenceDetermined(0x0008, 0x1140, uint32(8+len(item)))
	b.Item(uint32(len(item)))
	b.Raw(item)
	parts := parseAll(t, b.Bytes())

	for _, p := range parts {
		require.NotIsType(t, &SequenceDelimitationPart{}, p)
		require.NotIsType(t, &ItemDelimitationPart{}, p)
	}
}

func TestParserFragmentsWithBasicOffsetTable(t *testing.T) {
	b := dcmtest.New()
	b.Fragments(0x7FE0, 0x0010, "OW")
	b.Item(4)
	b.Raw([]byte{0, 0, 0, 0})
	b.Item(2)
	b.Raw([]byte{0xAA, 0xBB})
	b.SequenceDelimitation()

	parts := parseAll(t, b.Bytes())
	require.IsType(t, &FragmentsPart{}, parts[0])
	require.IsType(t, &ItemPart{}, parts[1])
}

func TestParserStopTagHaltsBeforeTag(t *testing.T) {
	b := dcmtest.New().
		ImplicitElement(0x0010, 0x0010, dcmtest.Str("A")).
		ImplicitElement(0x0010, 0x0020, dcmtest.Str("B")).
		Bytes()
	parts := parseAll(t, b, WithStopTag(NewTag(0x0010, 0x0020)))
	require.Len(t, parts, 2)
}

func TestParserFMITransitionsToExplicitDataset(t *testing.T) {
	b := dcmtest.New()
	b.Preamble()
	b.FMI(ExplicitVRLittleEndianUID)
	b.Element(0x0010, 0x0010, "PN", dcmtest.Str("Doe"))
	parts := parseAll(t, b.Bytes())

	var sawPreamble, sawPatientName bool
	for _, p := range parts {
		switch hp := p.(type) {
		case *PreamblePart:
			sawPreamble = true
		case *HeaderPart:
			if hp.Tag == NewTag(0x0010, 0x0010) {
				sawPatientName = true
				require.True(t, hp.ExplicitVR)
			}
		}
	}
	require.True(t, sawPreamble)
	require.True(t, sawPatientName)
}

func TestParserRejectsNonDicomInput(t *testing.T) {
	p := NewParser()
	p.Feed([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	p.CloseInput()
	_, err := p.Next()
	require.Error(t, err)
	require.True(t, NotDicom(err))
}

func TestParserFeedInSmallChunksYieldsSameParts(t *testing.T) {
	data := dcmtest.New().
		Element(0x0010, 0x0010, "PN", dcmtest.Str("Doe^John")).
		Element(0x0010, 0x0020, "LO", dcmtest.Str("ID1")).
		Bytes()

	whole := parseAll(t, data)

	p := NewParser()
	var chunked []Part
	for i := 0; i < len(data); i++ {
		p.Feed(data[i : i+1])
		for {
			part, err := p.Next()
			if err == ErrNeedMoreBytes {
				break
			}
			require.NoError(t, err)
			chunked = append(chunked, part)
		}
	}
	p.CloseInput()
	for {
		part, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunked = append(chunked, part)
	}

	require.Equal(t, len(whole), len(chunked))
}
