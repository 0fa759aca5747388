package dicom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintForwardsEveryPartUnchanged(t *testing.T) {
	p := Print(0, DefaultDictionary)
	hdr := &HeaderPart{Tag: NewTag(0x0010, 0x0010), VR: PN, Length: 4}
	out, err := p.Handle(hdr)
	require.NoError(t, err)
	require.Equal(t, []Part{hdr}, out)

	vc := &ValueChunkPart{Bytes: []byte("Doe "), Last: true}
	out, err = p.Handle(vc)
	require.NoError(t, err)
	require.Equal(t, []Part{vc}, out)
}

func TestPrintHandlesNilDictionaryGracefully(t *testing.T) {
	p := Print(2, nil)
	out, err := p.Handle(&SequencePart{Tag: NewTag(0x0008, 0x1140)})
	require.NoError(t, err)
	require.Len(t, out, 1)
}
