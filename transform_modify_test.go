package dicom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModifyReplacesMatchedValue(t *testing.T) {
	m := NewModify(DefaultDictionary)
	newVal := NewStringValue(PN, []string{"Anon^Anon"})

	_, err := m.Handle(&ModificationsPart{Modifications: []Modification{
		{Matches: TagMatcher(NewTag(0x0010, 0x0010)), Value: &newVal},
	}})
	require.NoError(t, err)

	var out []Part
	res, err := m.Handle(&HeaderPart{Tag: NewTag(0x0010, 0x0010), VR: PN, Length: 3})
	require.NoError(t, err)
	out = append(out, res...)
	res, err = m.Handle(&ValueChunkPart{Bytes: []byte("Doe"), Last: true})
	require.NoError(t, err)
	out = append(out, res...)

	require.Len(t, out, 2)
	vc := out[1].(*ValueChunkPart)
	require.Equal(t, "Anon^Anon", NewRawValue(vc.Bytes).Strings(PN)[0])
}

func TestModifyLeavesUnmatchedElementsUnchanged(t *testing.T) {
	m := NewModify(DefaultDictionary)
	hdr := &HeaderPart{Tag: NewTag(0x0010, 0x0020), VR: LO, Length: 2}
	out, err := m.Handle(hdr)
	require.NoError(t, err)
	require.Equal(t, []Part{hdr}, out)
}

func TestModifyInsertsAtSortPosition(t *testing.T) {
	m := NewModify(DefaultDictionary)
	val := NewStringValue(LO, []string{"NEW"})
	_, err := m.Handle(&ModificationsPart{Insertions: []Insertion{
		{Tag: NewTag(0x0010, 0x0015), VR: LO, Value: val},
	}})
	require.NoError(t, err)

	out, err := m.Handle(&HeaderPart{Tag: NewTag(0x0010, 0x0020), VR: LO, Length: 2})
	require.NoError(t, err)
	require.Len(t, out, 3)
	ins := out[0].(*HeaderPart)
	require.Equal(t, NewTag(0x0010, 0x0015), ins.Tag)
}

func TestModifyInsertionExactMatchSkipsEmission(t *testing.T) {
	m := NewModify(DefaultDictionary)
	val := NewStringValue(LO, []string{"NEW"})
	_, err := m.Handle(&ModificationsPart{Insertions: []Insertion{
		{Tag: NewTag(0x0010, 0x0020), VR: LO, Value: val},
	}})
	require.NoError(t, err)

	hdr := &HeaderPart{Tag: NewTag(0x0010, 0x0020), VR: LO, Length: 2}
	out, err := m.Handle(hdr)
	require.NoError(t, err)
	require.Equal(t, []Part{hdr}, out)
}

func TestModifySequenceInsertionRaisesInvalidModification(t *testing.T) {
	m := NewModify(DefaultDictionary)
	_, err := m.Handle(&ModificationsPart{Insertions: []Insertion{
		{Tag: NewTag(0x0008, 0x1140), VR: SQ},
	}})
	require.NoError(t, err)

	_, err = m.Handle(&HeaderPart{Tag: NewTag(0x0010, 0x0020), VR: LO, Length: 2})
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, InvalidModification, derr.Kind)
}

func TestModifyInsertionUndeterminableVRRaisesInvalidModification(t *testing.T) {
	m := NewModify(DefaultDictionary)
	val := NewStringValue(LO, []string{"X"})
	_, err := m.Handle(&ModificationsPart{Insertions: []Insertion{
		{Tag: NewTag(0x0009, 0x9999), Value: val},
	}})
	require.NoError(t, err)

	_, err = m.Handle(&HeaderPart{Tag: NewTag(0x0010, 0x0020), VR: LO, Length: 2})
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, InvalidModification, derr.Kind)
}

func TestModifyInsertionExplicitUNVRIsAllowed(t *testing.T) {
	m := NewModify(DefaultDictionary)
	val := NewStringValue(LO, []string{"X"})
	_, err := m.Handle(&ModificationsPart{Insertions: []Insertion{
		{Tag: NewTag(0x0009, 0x9999), VR: UN, Value: val},
	}})
	require.NoError(t, err)

	out, err := m.Handle(&HeaderPart{Tag: NewTag(0x0010, 0x0020), VR: LO, Length: 2})
	require.NoError(t, err)
	require.Len(t, out, 3)
	ins := out[0].(*HeaderPart)
	require.Equal(t, UN, ins.VR)
}

func TestModifyFlushesRemainingInsertionsAtEnd(t *testing.T) {
	m := NewModify(DefaultDictionary)
	val := NewStringValue(LO, []string{"LAST"})
	_, err := m.Handle(&ModificationsPart{Insertions: []Insertion{
		{Tag: NewTag(0x7FFE, 0x0001), VR: LO, Value: val},
	}})
	require.NoError(t, err)

	out, err := m.Handle(&EndPart{})
	require.NoError(t, err)
	require.Len(t, out, 3)
}
