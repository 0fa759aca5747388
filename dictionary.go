package dicom

import "strings"

// Dictionary resolves VRs for implicit-VR decoding and keyword<->tag
// lookup for keyword-based tag-path parsing/printing and glob matching.
type Dictionary interface {
	VROf(tag Tag) *VR
	TagOf(keyword string) (Tag, bool)
	KeywordOf(tag Tag) string
}

type dictEntry struct {
	tag     Tag
	keyword string
	vr      *VR
}

// staticDictionary is a small, real (not fabricated) dictionary covering
// the tags this module names directly: the FMI tags, the bulk-data tags
// named by the bulk-data filter, the character-set/timezone tags, and a
// representative slice of the common IOD tags exercised by the test
// suite. Unknown group-length tags (gggg,0000) resolve to UL; all other
// unknown tags resolve to UN.
type staticDictionary struct {
	byTag     map[Tag]dictEntry
	byKeyword map[string]Tag
}

func newStaticDictionary(entries []dictEntry) *staticDictionary {
	d := &staticDictionary{byTag: map[Tag]dictEntry{}, byKeyword: map[string]Tag{}}
	for _, e := range entries {
		d.byTag[e.tag] = e
		d.byKeyword[e.keyword] = e.tag
	}
	return d
}

func (d *staticDictionary) VROf(tag Tag) *VR {
	if e, ok := d.byTag[tag]; ok {
		return e.vr
	}
	if tag.IsGroupLength() {
		return UL
	}
	return UN
}

func (d *staticDictionary) TagOf(keyword string) (Tag, bool) {
	t, ok := d.byKeyword[keyword]
	return t, ok
}

func (d *staticDictionary) KeywordOf(tag Tag) string {
	if e, ok := d.byTag[tag]; ok {
		return e.keyword
	}
	return ""
}

// DefaultDictionary is the Dictionary used when none is supplied to
// parser/flow/transform constructors.
var DefaultDictionary Dictionary = newStaticDictionary([]dictEntry{
	{FileMetaInformationGroupLengthTag, "FileMetaInformationGroupLength", UL},
	{0x00020001, "FileMetaInformationVersion", OB},
	{MediaStorageSOPClassUIDTag, "MediaStorageSOPClassUID", UI},
	{MediaStorageSOPInstanceUIDTag, "MediaStorageSOPInstanceUID", UI},
	{TransferSyntaxUIDTag, "TransferSyntaxUID", UI},
	{0x00020012, "ImplementationClassUID", UI},
	{0x00020013, "ImplementationVersionName", SH},

	{SpecificCharacterSetTag, "SpecificCharacterSet", CS},
	{0x00080008, "ImageType", CS},
	{0x00080016, "SOPClassUID", UI},
	{0x00080018, "SOPInstanceUID", UI},
	{0x00080020, "StudyDate", DA},
	{0x00080021, "SeriesDate", DA},
	{0x00080030, "StudyTime", TM},
	{TimezoneOffsetFromUTCTag, "TimezoneOffsetFromUTC", SH},
	{0x00080060, "Modality", CS},
	{0x00080090, "ReferringPhysicianName", PN},
	{0x00081140, "ReferencedImageSequence", SQ},
	{0x00081150, "ReferencedSOPClassUID", UI},
	{0x00089215, "DerivationCodeSequence", SQ},

	{0x00100010, "PatientName", PN},
	{0x00100020, "PatientID", LO},
	{0x00100030, "PatientBirthDate", DA},
	{0x00100040, "PatientSex", CS},

	{0x0020000D, "StudyInstanceUID", UI},
	{0x0020000E, "SeriesInstanceUID", UI},
	{0x00200013, "InstanceNumber", IS},

	{RowsTag, "Rows", US},
	{ColumnsTag, "Columns", US},
	{SamplesPerPixelTag, "SamplesPerPixel", US},
	{BitsAllocatedTag, "BitsAllocated", US},
	{0x00280101, "BitsStored", US},
	{0x00280102, "HighBit", US},
	{0x00280103, "PixelRepresentation", US},
	{NumberOfFramesTag, "NumberOfFrames", IS},
	{0x00280004, "PhotometricInterpretation", CS},

	{0x00540112, "RadiopharmaceuticalInformationSequence", SQ},
	{0x00540113, "EnergyWindowInformationSequence", SQ},
	{WaveformSequenceTag, "WaveformSequence", SQ},
	{WaveformDataTag, "WaveformData", OW},

	{0x00287FE0, "PixelDataProviderURL", UR},
	{CurveDataTag, "CurveData", OW},
	{AudioSampleDataTag, "AudioSampleData", OW},
	{0x56000110, "SpectroscopyData", OF},
	{0x60003000, "OverlayData", OW},
	{0x00420011, "EncapsulatedDocument", OB},
	{FloatPixelDataTag, "FloatPixelData", OF},
	{DoubleFloatPixelDataTag, "DoubleFloatPixelData", OD},
	{PixelDataTag, "PixelData", OW},
})

// normalizeKeyword trims surrounding whitespace from a keyword before
// TagPath keyword lookup. Matching stays case-sensitive.
func normalizeKeyword(s string) string {
	return strings.TrimSpace(s)
}
