package dicom

import "fmt"

// ValueKind groups VRs by how their value bytes must be interpreted.
type ValueKind int

const (
	// KindString covers VRs decoded as one or more backslash-separated
	// text strings (padded with a space).
	KindString ValueKind = iota
	// KindUID is UI: null-byte padded text, trimmed of NUL and space.
	KindUID
	// KindNumeric covers fixed-width binary number arrays.
	KindNumeric
	// KindTag is AT: arrays of 4-byte tags.
	KindTag
	// KindBinary covers large binary/opaque payloads (OB, OW, OD, OF,
	// OL, UN, UR, UC, UT) which may stream as fragments.
	KindBinary
	// KindSequence is SQ.
	KindSequence
)

// VR models a DICOM Value Representation.
type VR struct {
	Code         string
	HeaderLength int  // 8 (short form) or 12 (long form)
	PaddingByte  byte // ' ' for text VRs, 0x00 for binary/UID VRs
	Kind         ValueKind
	// ElementSize is the width in bytes of one numeric element, or 0 for
	// variable-width VRs.
	ElementSize int
}

// Registry of the DICOM Value Representation codes, see
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
var (
	AE = register("AE", 8, ' ', KindString, 0)
	AS = register("AS", 8, ' ', KindString, 0)
	AT = register("AT", 8, 0, KindTag, 4)
	CS = register("CS", 8, ' ', KindString, 0)
	DA = register("DA", 8, ' ', KindString, 0)
	DS = register("DS", 8, ' ', KindString, 0)
	DT = register("DT", 8, ' ', KindString, 0)
	FD = register("FD", 8, 0, KindNumeric, 8)
	FL = register("FL", 8, 0, KindNumeric, 4)
	IS = register("IS", 8, ' ', KindString, 0)
	LO = register("LO", 8, ' ', KindString, 0)
	LT = register("LT", 8, ' ', KindString, 0)
	OB = register("OB", 12, 0, KindBinary, 1)
	OD = register("OD", 12, 0, KindBinary, 8)
	OF = register("OF", 12, 0, KindBinary, 4)
	OL = register("OL", 12, 0, KindBinary, 4)
	OW = register("OW", 12, 0, KindBinary, 2)
	PN = register("PN", 8, ' ', KindString, 0)
	SH = register("SH", 8, ' ', KindString, 0)
	SL = register("SL", 8, 0, KindNumeric, 4)
	SQ = register("SQ", 12, 0, KindSequence, 0)
	SS = register("SS", 8, 0, KindNumeric, 2)
	ST = register("ST", 8, ' ', KindString, 0)
	TM = register("TM", 8, ' ', KindString, 0)
	UC = register("UC", 12, ' ', KindBinary, 0)
	UI = register("UI", 8, 0, KindUID, 0)
	UL = register("UL", 8, 0, KindNumeric, 4)
	UN = register("UN", 12, 0, KindBinary, 1)
	UR = register("UR", 12, ' ', KindBinary, 0)
	US = register("US", 8, 0, KindNumeric, 2)
	UT = register("UT", 12, ' ', KindBinary, 0)
)

var vrByCode = map[string]*VR{}

func register(code string, headerLen int, pad byte, kind ValueKind, size int) *VR {
	vr := &VR{Code: code, HeaderLength: headerLen, PaddingByte: pad, Kind: kind, ElementSize: size}
	vrByCode[code] = vr
	return vr
}

// LookupVR returns the VR registered under code, or an error if code is
// not one of the known two-letter VR codes.
func LookupVR(code string) (*VR, error) {
	vr, ok := vrByCode[code]
	if !ok {
		return nil, fmt.Errorf("dicom: unknown VR code: %q", code)
	}
	return vr, nil
}

// CharacterSetAffected reports whether values of this VR (LO, LT, PN,
// SH, ST, UT, UC) are decoded using the active Specific Character Set.
func (v *VR) CharacterSetAffected() bool {
	switch v.Code {
	case "LO", "LT", "PN", "SH", "ST", "UT", "UC":
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (v *VR) String() string { return v.Code }

// Is2ByteUnit / Is4ByteUnit / Is8ByteUnit classify VRs whose values the
// explicit-VR-little-endian normalizer must byte-swap when flipping
// endianness.
func (v *VR) Is2ByteUnit() bool {
	switch v.Code {
	case "US", "SS", "OW", "AT":
		return true
	default:
		return false
	}
}

func (v *VR) Is4ByteUnit() bool {
	switch v.Code {
	case "OF", "UL", "SL", "FL":
		return true
	default:
		return false
	}
}

func (v *VR) Is8ByteUnit() bool {
	switch v.Code {
	case "OD", "FD":
		return true
	default:
		return false
	}
}
