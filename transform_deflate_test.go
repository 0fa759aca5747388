package dicom

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"

	"github.com/slicebox/dicomflow/dicomio"
	"github.com/stretchr/testify/require"
)

func TestDeflateCompressorPassesThroughFMIUnchanged(t *testing.T) {
	c, err := NewDeflateCompressor(flate.DefaultCompression)
	require.NoError(t, err)

	hdr := &HeaderPart{Tag: NewTag(0x0002, 0x0010), VR: UI, Length: 4}
	out, err := c.Handle(hdr)
	require.NoError(t, err)
	require.Equal(t, []Part{hdr}, out)
}

func TestDeflateCompressorProducesInflatableOutput(t *testing.T) {
	c, err := NewDeflateCompressor(flate.DefaultCompression)
	require.NoError(t, err)

	_, err = c.Handle(&HeaderPart{Tag: NewTag(0x0010, 0x0010), VR: PN, Length: 4})
	require.NoError(t, err)
	out, err := c.Handle(&ValueChunkPart{Bytes: []byte("Doe "), Last: true})
	require.NoError(t, err)
	more, err := c.Finish()
	require.NoError(t, err)
	out = append(out, more...)

	var compressed []byte
	for _, p := range out {
		dc, ok := p.(*DeflatedChunkPart)
		require.True(t, ok)
		compressed = append(compressed, dc.Bytes...)
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Contains(t, string(plain), "Doe ")
}

func TestFMIGroupLengthRecomputeFixesStaleLength(t *testing.T) {
	h := FMIGroupLengthRecompute()

	staleVal := NewUint32Value(dicomio.LittleEndian, []uint32{999})
	out, err := h.Handle(&HeaderPart{Tag: FileMetaInformationGroupLengthTag, VR: UL, Length: 4})
	require.NoError(t, err)
	require.Empty(t, out)
	out, err = h.Handle(&ValueChunkPart{Bytes: staleVal.Bytes(), Last: true})
	require.NoError(t, err)
	require.Empty(t, out)

	tsVal := NewUIDValue(ExplicitVRLittleEndianUID)
	tsHdr := &HeaderPart{Tag: TransferSyntaxUIDTag, VR: UI, Length: uint32(tsVal.Len()), Bytes: []byte("stub")}
	out, err = h.Handle(tsHdr)
	require.NoError(t, err)
	require.Empty(t, out)
	out, err = h.Handle(&ValueChunkPart{Bytes: tsVal.Bytes(), Last: true})
	require.NoError(t, err)
	require.Empty(t, out)

	patientHdr := &HeaderPart{Tag: NewTag(0x0010, 0x0010), VR: PN, Length: 4}
	out, err = h.Handle(patientHdr)
	require.NoError(t, err)
	require.Len(t, out, 5)

	glHdr := out[0].(*HeaderPart)
	require.Equal(t, FileMetaInformationGroupLengthTag, glHdr.Tag)
	glVal := out[1].(*ValueChunkPart)
	recomputed := NewRawValue(glVal.Bytes).Uint32s(dicomio.LittleEndian)[0]
	require.NotEqual(t, uint32(999), recomputed)
	require.Equal(t, uint32(len(tsHdr.Bytes)+int(tsVal.Len())), recomputed)

	require.Equal(t, tsHdr, out[2])
	require.Equal(t, patientHdr, out[4])
}
