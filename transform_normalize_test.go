package dicom

import (
	"testing"

	"github.com/slicebox/dicomflow/dicomio"
	"github.com/slicebox/dicomflow/internal/dcmtest"
	"github.com/stretchr/testify/require"
)

func TestSequenceLengthNormalizerRewritesDeterminateSequence(t *testing.T) {
	item := dcmtest.New().Element(0x0008, 0x1150, "UI", dcmtest.UID("1.2.3")).Bytes()
	b := dcmtest.New()
	b.SequenceDetermined(0x0008, 0x1140, uint32(8+len(item)))
	b.Item(uint32(len(item)))
	b.Raw(item)

	sink := &collectHandler{}
	chain := GuaranteedDelimitationEvents(Chain(SequenceLengthNormalizer(), sink))
	out := driveThrough(t, chain, b.Bytes())

	var seq *SequencePart
	var sawSeqEndReal bool
	for _, p := range out {
		switch pt := p.(type) {
		case *SequencePart:
			seq = pt
		case *SequenceDelimitationPart:
			sawSeqEndReal = !pt.Marker
		}
	}
	require.NotNil(t, seq)
	require.True(t, seq.Indeterminate())
	require.True(t, sawSeqEndReal)
}

func TestUTF8NormalizerRewritesCharacterSetValue(t *testing.T) {
	data := dcmtest.New().Element(0x0008, 0x0005, "CS", dcmtest.Str("ISO_IR 100")).Bytes()
	out := driveThrough(t, GuaranteedValueEvent(UTF8Normalizer()), data)

	var hdr *HeaderPart
	var val *ValueChunkPart
	for _, p := range out {
		switch pt := p.(type) {
		case *HeaderPart:
			hdr = pt
		case *ValueChunkPart:
			val = pt
		}
	}
	require.NotNil(t, hdr)
	require.Equal(t, CS, hdr.VR)
	require.Equal(t, "ISO_IR 192", NewRawValue(val.Bytes).Strings(CS)[0])
}

func TestExplicitVRLittleEndianNormalizerRewritesTransferSyntax(t *testing.T) {
	data := dcmtest.New().Element(0x0002, 0x0010, "UI", dcmtest.UID(ExplicitVRBigEndianUID)).Bytes()
	out := driveThrough(t, ExplicitVRLittleEndianNormalizer(), data)

	var val *ValueChunkPart
	for _, p := range out {
		if vc, ok := p.(*ValueChunkPart); ok {
			val = vc
		}
	}
	require.NotNil(t, val)
	require.Equal(t, ExplicitVRLittleEndianUID, NewRawValue(val.Bytes).UID())
}

func TestExplicitVRLittleEndianNormalizerByteSwapsWordSizedVRs(t *testing.T) {
	be := NewUint16Value(dicomio.BigEndian, []uint16{0x0102})
	norm := ExplicitVRLittleEndianNormalizer()

	out1, err := norm.Handle(&HeaderPart{Tag: NewTag(0x0028, 0x0010), VR: US, Length: 2, BigEndian: true, ExplicitVR: true})
	require.NoError(t, err)
	require.Empty(t, out1)

	out2, err := norm.Handle(&ValueChunkPart{Bytes: be.Bytes(), Last: true})
	require.NoError(t, err)
	require.Len(t, out2, 2)

	hdr, ok := out2[0].(*HeaderPart)
	require.True(t, ok)
	require.False(t, hdr.BigEndian)
	require.True(t, hdr.ExplicitVR)

	vc, ok := out2[1].(*ValueChunkPart)
	require.True(t, ok)
	require.Equal(t, NewUint16Value(dicomio.LittleEndian, []uint16{0x0102}).Bytes(), vc.Bytes)
}
