package dicom

import (
	"testing"

	"github.com/slicebox/dicomflow/internal/dcmtest"
	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsPreambleStream(t *testing.T) {
	b := dcmtest.New()
	b.Preamble()
	b.FMI(ExplicitVRLittleEndianUID)

	v := NewValidator(nil, false)
	v.Feed(b.Bytes())
	require.True(t, v.Decided())
	valid, decided := v.Valid()
	require.True(t, decided)
	require.True(t, valid)
}

func TestValidatorAcceptsHeaderShapeWithoutPreamble(t *testing.T) {
	data := dcmtest.New().Element(0x0010, 0x0010, "PN", dcmtest.Str("Doe")).Bytes()
	v := NewValidator(nil, false)
	v.Feed(data)
	v.Close()

	valid, decided := v.Valid()
	require.True(t, decided)
	require.True(t, valid)
}

func TestValidatorRejectsGarbageAndDrainsOnFail(t *testing.T) {
	v := NewValidator(nil, true)
	v.Feed([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	v.Close()

	valid, decided := v.Valid()
	require.True(t, decided)
	require.False(t, valid)
	require.Empty(t, v.Buffered())
}

func TestValidatorKeepsBufferedBytesWithoutDrainOnFail(t *testing.T) {
	v := NewValidator(nil, false)
	v.Feed([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	v.Close()

	valid, _ := v.Valid()
	require.False(t, valid)
	require.NotEmpty(t, v.Buffered())
}

func TestValidatorIgnoresFurtherFeedAfterDecision(t *testing.T) {
	b := dcmtest.New()
	b.Preamble()
	v := NewValidator(nil, false)
	v.Feed(b.Bytes())
	require.True(t, v.Decided())
	v.Feed([]byte("more"))
	require.True(t, v.Decided())
}
