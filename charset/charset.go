// Package charset decodes DICOM Specific Character Set defined terms
// into a Go decoder, honoring ISO 2022 escape-sequence switching where
// the underlying golang.org/x/text/encoding machinery provides it.
package charset

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	netcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decoder turns value bytes encoded under one DICOM defined term into a
// Go string.
type Decoder struct {
	enc           encoding.Encoding
	canonicalName string
}

var defaultRepertoire = &Decoder{enc: charmap.Windows1252, canonicalName: "windows-1252"}

// lookupLabelByTerm maps DICOM Specific Character Set defined terms
// (http://dicom.nema.org/medical/dicom/current/output/chtml/part02/sect_D.6.2.html)
// to golang.org/x/net/html/charset labels.
var lookupLabelByTerm = map[string]string{
	"":                "us-ascii",
	"ISO 2022 IR 6":   "us-ascii",
	"ISO_IR 100":      "iso-ir-100",
	"ISO 2022 IR 100": "iso-ir-100",
	"ISO_IR 101":      "iso-ir-101",
	"ISO 2022 IR 101": "iso-ir-101",
	"ISO_IR 109":      "iso-ir-109",
	"ISO 2022 IR 109": "iso-ir-109",
	"ISO_IR 110":      "iso-ir-110",
	"ISO 2022 IR 110": "iso-ir-110",
	"ISO_IR 144":      "iso-ir-144",
	"ISO 2022 IR 144": "iso-ir-144",
	"ISO_IR 127":      "iso-ir-127",
	"ISO 2022 IR 127": "iso-ir-127",
	"ISO_IR 126":      "iso-ir-126",
	"ISO 2022 IR 126": "iso-ir-126",
	"ISO_IR 138":      "iso-ir-138",
	"ISO 2022 IR 138": "iso-ir-138",
	"ISO_IR 148":      "iso-ir-148",
	"ISO 2022 IR 148": "iso-ir-148",
	"ISO_IR 13":       "shift-jis",
	"ISO 2022 IR 13":  "shift-jis",
	"ISO_IR 166":      "tis-620",
	"ISO 2022 IR 166": "tis-620",
	"ISO_IR 192":      "utf-8",
	"GB18030":         "gb18030",
	"GBK":             "gbk",
	"ISO 2022 IR 87":  "iso-2022-jp",
	"ISO 2022 IR 159": "iso-2022-jp",
	"ISO 2022 IR 149": "euc-kr",
}

// Lookup resolves a Specific Character Set defined term to a Decoder.
func Lookup(term string) (*Decoder, error) {
	label, ok := lookupLabelByTerm[term]
	if !ok {
		logrus.Warnf("charset: unrecognized specific character set term %q, falling back to us-ascii", term)
		label = "us-ascii"
	}
	enc, canonicalName := netcharset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("charset: no decoder available for label %q", label)
	}
	return &Decoder{enc: enc, canonicalName: canonicalName}, nil
}

// Default returns the repertoire assumed when Specific Character Set is
// absent (ISO 2022 IR 6 / single-byte ASCII/Latin-1 superset).
func Default() *Decoder { return defaultRepertoire }

// Decode converts s (already isolated as one backslash-delimited
// component, or one "="-delimited PN component group) from this
// Decoder's encoding to UTF-8. On failure it returns s unchanged rather
// than aborting the caller's traversal.
func (d *Decoder) Decode(s string) string {
	out, err := d.enc.NewDecoder().String(s)
	if err != nil {
		return s
	}
	if d.canonicalName == "euc-kr" {
		// golang.org/x/text does not strip the ISO 2022 escape sequence
		// switching into the GR half of KS X 1001; remove it explicitly.
		out = strings.ReplaceAll(out, "\x1B\x24\x29\x43", "")
	}
	return out
}
