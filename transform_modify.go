package dicom

// Modification replaces the value of every element whose current tag
// path Matches reports true for. Exactly one of Value or Transform
// should be set: Value is a fixed replacement, Transform computes the
// replacement from the element's original raw value, padding included -- for
// a redaction that must preserve the source's length, for instance.
type Modification struct {
	Matches   func(TagPath) bool
	Value     *Value
	Transform func(Value) Value
}

// TagMatcher returns a Matches function that fires on the exact tag,
// regardless of where it appears in the dataset.
func TagMatcher(tag Tag) func(TagPath) bool {
	return func(p TagPath) bool {
		t, ok := p.LastTag()
		return ok && t == tag
	}
}

// Insertion adds a new root-level element at its sort position,
// provided no element with that tag is already present. VR, if nil, is
// resolved from the Modify's Dictionary. Resolving to SQ -- or failing
// to resolve at all -- raises InvalidModification, since an Insertion
// carries one flat Value and cannot synthesize a sequence's items.
type Insertion struct {
	Tag   Tag
	VR    *VR
	Value Value
}

// Modify applies a running set of Modifications and Insertions to the
// part stream, updated mid-stream by ModificationsPart meta-parts
// (Append extends the active set instead of replacing it). Both kinds
// of edit are restricted to the root dataset: while inside a sequence
// or fragments, elements pass through unexamined.
type Modify struct {
	Dict Dictionary

	mods    []Modification
	inserts []Insertion
	applied []bool

	tracker  *TagPathTrackingBehavior
	seqDepth int

	matched  *Modification
	matchHdr *HeaderPart
	matchBuf []byte
}

// NewModify returns a Modify with an empty active edit set. dict
// resolves VRs for Insertions that don't specify one explicitly; it may
// be nil, in which case every such Insertion raises InvalidModification.
func NewModify(dict Dictionary) *Modify {
	return &Modify{Dict: dict, tracker: TagPathTracking(nil)}
}

func (m *Modify) Handle(part Part) ([]Part, error) {
	if mp, ok := part.(*ModificationsPart); ok {
		if mp.Append {
			m.mods = append(m.mods, mp.Modifications...)
			m.inserts = append(m.inserts, mp.Insertions...)
			m.applied = append(m.applied, make([]bool, len(mp.Insertions))...)
		} else {
			m.mods = append([]Modification(nil), mp.Modifications...)
			m.inserts = append([]Insertion(nil), mp.Insertions...)
			m.applied = make([]bool, len(m.inserts))
		}
		return nil, nil
	}

	m.tracker.Update(part)
	switch part.(type) {
	case *SequencePart:
		m.seqDepth++
	case *SequenceDelimitationPart:
		if m.seqDepth > 0 {
			m.seqDepth--
		}
	}

	if m.matchHdr != nil {
		if vc, ok := part.(*ValueChunkPart); ok {
			m.matchBuf = append(m.matchBuf, vc.Bytes...)
			if !vc.Last {
				return nil, nil
			}
			return m.finishMatch()
		}
	}

	var pre []Part
	var err error
	switch p := part.(type) {
	case *HeaderPart:
		if m.seqDepth == 0 {
			pre, err = m.dueInsertions(p.Tag, false)
			if err != nil {
				return nil, err
			}
			for i := range m.mods {
				if m.mods[i].Matches(m.tracker.Path) {
					m.matched, m.matchHdr, m.matchBuf = &m.mods[i], p, nil
					return pre, nil
				}
			}
		}
	case *EndPart:
		pre, err = m.dueInsertions(0, true)
		if err != nil {
			return nil, err
		}
	}
	return append(pre, part), nil
}

func (m *Modify) finishMatch() ([]Part, error) {
	hdr, buf, mod := m.matchHdr, m.matchBuf, m.matched
	m.matchHdr, m.matchBuf, m.matched = nil, nil, nil

	var newVal Value
	switch {
	case mod.Value != nil:
		newVal = *mod.Value
	case mod.Transform != nil:
		newVal = mod.Transform(NewRawValue(buf))
	default:
		newVal = NewRawValue(buf)
	}
	newHdr := &HeaderPart{Tag: hdr.Tag, VR: hdr.VR, Length: uint32(newVal.Len()), BigEndian: hdr.BigEndian, ExplicitVR: hdr.ExplicitVR}
	return []Part{newHdr, &ValueChunkPart{Bytes: newVal.Bytes(), Last: true}}, nil
}

// dueInsertions returns the insertions that sort strictly before
// currentTag, marking them applied; an insertion exactly matching
// currentTag is marked applied without being emitted, since the real
// element already covers it. atEnd forces every remaining insertion due,
// for the flush at end of stream.
func (m *Modify) dueInsertions(currentTag Tag, atEnd bool) ([]Part, error) {
	var out []Part
	for i := range m.inserts {
		if m.applied[i] {
			continue
		}
		ins := m.inserts[i]
		if !atEnd {
			if ins.Tag == currentTag {
				m.applied[i] = true
				continue
			}
			if ins.Tag > currentTag {
				continue
			}
		}
		vr, resolvedFromDict := ins.VR, false
		if vr == nil && m.Dict != nil {
			vr = m.Dict.VROf(ins.Tag)
			resolvedFromDict = true
		}
		if vr == nil || vr == SQ || (resolvedFromDict && vr == UN) {
			return nil, newErr(InvalidModification, "cannot insert "+ins.Tag.String()+": sequence insertion or undeterminable VR")
		}
		m.applied[i] = true
		out = append(out,
			&HeaderPart{Tag: ins.Tag, VR: vr, Length: uint32(ins.Value.Len()), ExplicitVR: true},
			&ValueChunkPart{Bytes: ins.Value.Bytes(), Last: true},
		)
	}
	return out, nil
}
