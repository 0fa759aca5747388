package dicom

import (
	"strings"

	"github.com/slicebox/dicomflow/charset"
	"github.com/slicebox/dicomflow/dicomlog"
)

// CharacterSets is the per-stream decoding state derived from the value
// of SpecificCharacterSet (0008,0005). It holds up to three decoders,
// mirroring the alphabetic/ideographic/phonetic component groups of the
// Person Name VR.
type CharacterSets struct {
	terms    []string
	decoders [3]*charset.Decoder
}

// DefaultCharacterSets is the repertoire assumed before any
// SpecificCharacterSet element has been seen.
var DefaultCharacterSets = CharacterSets{
	decoders: [3]*charset.Decoder{charset.Default(), charset.Default(), charset.Default()},
}

// ParseCharacterSets builds CharacterSets from the (possibly
// multi-valued) string value of a SpecificCharacterSet element.
func ParseCharacterSets(terms []string) CharacterSets {
	sets := CharacterSets{terms: terms, decoders: [3]*charset.Decoder{
		charset.Default(), charset.Default(), charset.Default(),
	}}
	if len(terms) == 0 {
		return sets
	}
	decoded := make([]*charset.Decoder, 0, len(terms))
	for _, term := range terms {
		d, err := charset.Lookup(strings.TrimSpace(term))
		if err != nil {
			dicomlog.Warnf("dicom: %v", err)
			continue
		}
		decoded = append(decoded, d)
	}
	if len(decoded) == 0 {
		return sets
	}
	switch len(decoded) {
	case 1:
		sets.decoders = [3]*charset.Decoder{decoded[0], decoded[0], decoded[0]}
	case 2:
		sets.decoders = [3]*charset.Decoder{decoded[0], decoded[1], decoded[1]}
	default:
		sets.decoders = [3]*charset.Decoder{decoded[0], decoded[1], decoded[2]}
	}
	return sets
}

// Decode converts a single backslash-delimited value component to UTF-8.
// For PN, callers should split on "=" into component groups first and
// call DecodeGroup with the corresponding index.
func (c CharacterSets) Decode(vr *VR, b []byte) string {
	return c.decoders[0].Decode(string(b))
}

// DecodeGroup decodes one "="-delimited component group of a Person Name
// value using the decoder for that group index (0=alphabetic,
// 1=ideographic, 2=phonetic).
func (c CharacterSets) DecodeGroup(groupIndex int, s string) string {
	if groupIndex < 0 || groupIndex > 2 {
		groupIndex = 0
	}
	return c.decoders[groupIndex].Decode(s)
}

// Terms returns the raw SpecificCharacterSet values these sets were
// parsed from.
func (c CharacterSets) Terms() []string { return c.terms }
