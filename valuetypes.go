package dicom

import (
	"fmt"
	"strconv"
	"strings"
)

// Date is the decoded form of a DA value: "YYYYMMDD" or "YYYY.MM.DD"
//.
type Date struct {
	Year, Month, Day int
}

// ParseDate decodes a single DA component.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		if len(parts) != 3 {
			return Date{}, fmt.Errorf("dicom: malformed DA value %q", s)
		}
		y, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		d, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return Date{}, fmt.Errorf("dicom: malformed DA value %q", s)
		}
		return Date{y, m, d}, nil
	}
	if len(s) != 8 {
		return Date{}, fmt.Errorf("dicom: malformed DA value %q", s)
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[4:6])
	d, err3 := strconv.Atoi(s[6:8])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, fmt.Errorf("dicom: malformed DA value %q", s)
	}
	return Date{y, m, d}, nil
}

// String renders Date back to the "YYYYMMDD" wire form.
func (d Date) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// Time is the decoded form of a TM value: "HH[:MM[:SS[.ffffff]]]"
//. Fraction is in microseconds, 0 if absent.
type Time struct {
	Hour, Minute, Second, Fraction int
	HasMinute, HasSecond           bool
}

// ParseTime decodes a single TM component. It accepts both the
// colon-separated canonical form and the legacy unseparated
// "HHMMSS.ffffff" form.
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Time{}, fmt.Errorf("dicom: empty TM value")
	}
	var secFrac string
	main := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		main = s[:i]
		secFrac = s[i+1:]
	}
	var t Time
	if strings.Contains(main, ":") {
		fields := strings.Split(main, ":")
		h, err := strconv.Atoi(fields[0])
		if err != nil {
			return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
		}
		t.Hour = h
		if len(fields) > 1 {
			m, err := strconv.Atoi(fields[1])
			if err != nil {
				return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
			}
			t.Minute, t.HasMinute = m, true
		}
		if len(fields) > 2 {
			sec, err := strconv.Atoi(fields[2])
			if err != nil {
				return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
			}
			t.Second, t.HasSecond = sec, true
		}
	} else {
		if len(main) < 2 {
			return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
		}
		h, err := strconv.Atoi(main[0:2])
		if err != nil {
			return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
		}
		t.Hour = h
		if len(main) >= 4 {
			m, err := strconv.Atoi(main[2:4])
			if err != nil {
				return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
			}
			t.Minute, t.HasMinute = m, true
		}
		if len(main) >= 6 {
			sec, err := strconv.Atoi(main[4:6])
			if err != nil {
				return Time{}, fmt.Errorf("dicom: malformed TM value %q", s)
			}
			t.Second, t.HasSecond = sec, true
		}
	}
	if secFrac != "" {
		frac, err := strconv.Atoi(padRight(secFrac, 6))
		if err != nil {
			return Time{}, fmt.Errorf("dicom: malformed TM fraction %q", s)
		}
		t.Fraction = frac
		t.HasSecond = true
	}
	return t, nil
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += "0"
	}
	return s[:n]
}

// DateTime is the decoded form of a DT value:
// "YYYY[MM[DD[HH[mm[ss[.ffffff]]]]]][±ZZZZ]".
type DateTime struct {
	Year                                   int
	Month, Day, Hour, Minute, Second       int
	HasMonth, HasDay, HasHour, HasMinute   bool
	HasSecond                              bool
	Fraction                               int
	ZoneOffsetMinutes                      int
	HasZone                                bool
}

// ParseDateTime decodes a single DT component.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return DateTime{}, fmt.Errorf("dicom: malformed DT value %q", s)
	}

	zone := 0
	hasZone := false
	body := s
	if i := strings.IndexAny(s, "+-"); i >= 4 {
		zoneStr := s[i:]
		body = s[:i]
		if len(zoneStr) != 5 {
			return DateTime{}, fmt.Errorf("dicom: malformed DT zone offset %q", s)
		}
		sign := 1
		if zoneStr[0] == '-' {
			sign = -1
		}
		hh, err1 := strconv.Atoi(zoneStr[1:3])
		mm, err2 := strconv.Atoi(zoneStr[3:5])
		if err1 != nil || err2 != nil {
			return DateTime{}, fmt.Errorf("dicom: malformed DT zone offset %q", s)
		}
		zone = sign * (hh*60 + mm)
		hasZone = true
	}

	var frac string
	if i := strings.IndexByte(body, '.'); i >= 0 {
		frac = body[i+1:]
		body = body[:i]
	}

	dt := DateTime{ZoneOffsetMinutes: zone, HasZone: hasZone}
	fields := []struct {
		width int
		set   func(int)
		flag  *bool
	}{
		{4, func(v int) { dt.Year = v }, nil},
		{2, func(v int) { dt.Month = v }, &dt.HasMonth},
		{2, func(v int) { dt.Day = v }, &dt.HasDay},
		{2, func(v int) { dt.Hour = v }, &dt.HasHour},
		{2, func(v int) { dt.Minute = v }, &dt.HasMinute},
		{2, func(v int) { dt.Second = v }, &dt.HasSecond},
	}
	pos := 0
	for _, f := range fields {
		if pos >= len(body) {
			break
		}
		end := pos + f.width
		if end > len(body) {
			return DateTime{}, fmt.Errorf("dicom: malformed DT value %q", s)
		}
		v, err := strconv.Atoi(body[pos:end])
		if err != nil {
			return DateTime{}, fmt.Errorf("dicom: malformed DT value %q", s)
		}
		f.set(v)
		if f.flag != nil {
			*f.flag = true
		}
		pos = end
	}
	if frac != "" {
		v, err := strconv.Atoi(padRight(frac, 6))
		if err != nil {
			return DateTime{}, fmt.Errorf("dicom: malformed DT fraction %q", s)
		}
		dt.Fraction = v
	}
	return dt, nil
}

// PersonNameComponent holds the up-to-three "="-delimited component
// group parts (alphabetic, ideographic, phonetic) of one "^"-delimited
// name component.
type PersonNameComponent struct {
	Alphabetic, Ideographic, Phonetic string
}

// PersonName is the decoded form of a PN value: up to five
// "^"-separated components (family, given, middle, prefix, suffix).
// Missing components decode to the zero PersonNameComponent.
type PersonName struct {
	Family, Given, Middle, Prefix, Suffix PersonNameComponent
}

// ParsePersonName decodes a single (already character-set decoded, or
// raw if decoding is deferred) PN component string.
func ParsePersonName(s string) PersonName {
	comps := strings.Split(s, "^")
	var pn PersonName
	targets := []*PersonNameComponent{&pn.Family, &pn.Given, &pn.Middle, &pn.Prefix, &pn.Suffix}
	for i, c := range comps {
		if i >= len(targets) {
			break
		}
		groups := strings.Split(c, "=")
		if len(groups) > 0 {
			targets[i].Alphabetic = groups[0]
		}
		if len(groups) > 1 {
			targets[i].Ideographic = groups[1]
		}
		if len(groups) > 2 {
			targets[i].Phonetic = groups[2]
		}
	}
	return pn
}

// DecodePersonName decodes a raw PN component against CharacterSets,
// applying the alphabetic/ideographic/phonetic decoder to the matching
// "="-delimited group of each "^"-delimited name component, matching the
// teacher's per-component-group decode in charactersets.go.
func DecodePersonName(raw string, sets CharacterSets) PersonName {
	comps := strings.Split(raw, "^")
	for i, c := range comps {
		groups := strings.Split(c, "=")
		for g := range groups {
			groups[g] = sets.DecodeGroup(g, groups[g])
		}
		comps[i] = strings.Join(groups, "=")
	}
	return ParsePersonName(strings.Join(comps, "^"))
}

// String renders PersonName back to DICOM PN wire form using only the
// alphabetic group of each component (the common case).
func (p PersonName) String() string {
	comps := []string{p.Family.Alphabetic, p.Given.Alphabetic, p.Middle.Alphabetic, p.Prefix.Alphabetic, p.Suffix.Alphabetic}
	for len(comps) > 0 && comps[len(comps)-1] == "" {
		comps = comps[:len(comps)-1]
	}
	return strings.Join(comps, "^")
}
