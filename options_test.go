package dicom

import (
	"testing"

	"github.com/slicebox/dicomflow/internal/dcmtest"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineConfigDefaultsDictionary(t *testing.T) {
	c, err := NewPipelineConfig()
	require.NoError(t, err)
	require.Equal(t, DefaultDictionary, c.Dictionary)
}

func TestNewPipelineConfigRejectsInvalidMaxBufferedValue(t *testing.T) {
	_, err := NewPipelineConfig(WithMaxBufferedValue(-1))
	require.Error(t, err)
}

func TestPipelineConfigBuildWiresFMIFilter(t *testing.T) {
	c, err := NewPipelineConfig(WithDropFMI())
	require.NoError(t, err)

	sink := &collectHandler{}
	pipeline := c.Build(sink)

	data := dcmtest.New().
		Element(0x0002, 0x0010, "UI", dcmtest.UID(ExplicitVRLittleEndianUID)).
		Element(0x0010, 0x0010, "PN", dcmtest.Str("Doe")).
		Bytes()
	driveThrough(t, pipeline, data)

	require.Equal(t, []Tag{NewTag(0x0010, 0x0010)}, headerTags(sink.parts))
}

func TestPipelineConfigBuildWiresNormalizers(t *testing.T) {
	c, err := NewPipelineConfig(WithNormalizeUTF8())
	require.NoError(t, err)

	sink := &collectHandler{}
	pipeline := GuaranteedValueEvent(c.Build(sink))

	data := dcmtest.New().Element(0x0008, 0x0005, "CS", dcmtest.Str("ISO_IR 100")).Bytes()
	driveThrough(t, pipeline, data)

	var hdr *HeaderPart
	for _, p := range sink.parts {
		if h, ok := p.(*HeaderPart); ok {
			hdr = h
		}
	}
	require.NotNil(t, hdr)
	require.Equal(t, CS, hdr.VR)
}
