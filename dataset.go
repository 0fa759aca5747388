package dicom

import (
	"sort"

	"github.com/slicebox/dicomflow/dicomio"
)

// ElementSet is the closed set of entries an Elements tree holds: a
// plain value, an open/closed sequence, or an encapsulated fragments
// train. Closed via an unexported marker method, like Part.
type ElementSet interface {
	setTag() Tag
	isElementSet()
}

// ValueElement is one data element's tag, VR, encoding, and value bytes.
type ValueElement struct {
	Tag        Tag
	VR         *VR
	BigEndian  bool
	ExplicitVR bool
	Value      Value
}

func (e *ValueElement) setTag() Tag   { return e.Tag }
func (*ValueElement) isElementSet()   {}

// Item is one element of a Sequence: its own declared length (may be
// UndefinedLength) and the Elements nested inside it.
type Item struct {
	Length    uint32
	BigEndian bool
	Elements  Elements
}

// Sequence is a fully closed SQ element: its declared length (may be
// UndefinedLength) and its items in source order.
type Sequence struct {
	Tag    Tag
	Length uint32
	Items  []Item
}

func (s *Sequence) setTag() Tag { return s.Tag }
func (*Sequence) isElementSet() {}

// Fragment is one item of an encapsulated (compressed) pixel-data-style
// fragments train, excluding the Basic Offset Table item.
type Fragment struct {
	Length    uint32
	BigEndian bool
	Value     Value
}

// Fragments is a fully closed encapsulated-format element: an optional
// Basic Offset Table (present only when the first item had a nonzero
// length) and the payload fragments that followed it.
type Fragments struct {
	Tag       Tag
	VR        *VR
	BigEndian bool
	Offsets   []uint32
	Fragments []Fragment
}

func (f *Fragments) setTag() Tag { return f.Tag }
func (*Fragments) isElementSet() {}

// FrameCount reports how many frames Frames splices out of the payload:
// 0 if no payload fragments followed, 1 if an offset table was absent (the
// whole payload is one frame), otherwise the number of offset entries.
func (f *Fragments) FrameCount() int {
	if len(f.Fragments) == 0 {
		return 0
	}
	if len(f.Offsets) == 0 {
		return 1
	}
	return len(f.Offsets)
}

// Frames splices the payload fragments' bytes into exact-byte-length
// frames using the Basic Offset Table. Each offset marks where a frame
// begins within the concatenated payload bytes; a frame ends at the next
// offset, or at the end of the payload for the last one. When no offset
// table was present, the entire concatenated payload is returned as the
// sole frame.
func (f *Fragments) Frames() [][]byte {
	if f.FrameCount() == 0 {
		return nil
	}
	var payload []byte
	for _, frag := range f.Fragments {
		payload = append(payload, frag.Value.Bytes()...)
	}
	if len(f.Offsets) == 0 {
		return [][]byte{payload}
	}
	frames := make([][]byte, 0, len(f.Offsets))
	for i, off := range f.Offsets {
		end := uint32(len(payload))
		if i+1 < len(f.Offsets) {
			end = f.Offsets[i+1]
		}
		frames = append(frames, payload[off:end])
	}
	return frames
}

// Elements is a sorted, tag-ascending collection of ElementSet entries,
// together with the character-set and timezone state active while it was
// built. The root Elements of a stream and every Item's nested Elements
// are the same type.
type Elements struct {
	CharacterSets CharacterSets
	ZoneOffset    string

	data []ElementSet
}

// Insert adds or replaces es in ascending tag order. A duplicate tag
// replaces the existing entry in place.
func (e *Elements) Insert(es ElementSet) {
	tag := es.setTag()
	i := sort.Search(len(e.data), func(i int) bool { return e.data[i].setTag() >= tag })
	if i < len(e.data) && e.data[i].setTag() == tag {
		e.data[i] = es
		return
	}
	e.data = append(e.data, nil)
	copy(e.data[i+1:], e.data[i:])
	e.data[i] = es
}

// Get returns the ElementSet stored under tag, or nil if absent.
func (e *Elements) Get(tag Tag) ElementSet {
	i := sort.Search(len(e.data), func(i int) bool { return e.data[i].setTag() >= tag })
	if i < len(e.data) && e.data[i].setTag() == tag {
		return e.data[i]
	}
	return nil
}

// All returns the entries in ascending tag order. The returned slice must
// not be mutated.
func (e *Elements) All() []ElementSet { return e.data }

// openSequence is a Sequence under construction: its own header fields
// plus the Items collected so far.
type openSequence struct {
	tag       Tag
	length    uint32
	items     []Item
}

// openFragments is a Fragments under construction.
type openFragments struct {
	tag         Tag
	vr          *VR
	haveOffsets bool
	offsets     []uint32
	fragments   []Fragment
	itemsSeen   int
	pendingLen  uint32
	pendingBig  bool
	pendingBuf  []byte
}

// pendingValue is a ValueElement under construction: header seen,
// ValueChunks not yet complete.
type pendingValue struct {
	tag        Tag
	vr         *VR
	length     uint32
	bigEndian  bool
	explicitVR bool
	buf        []byte
}

// Aggregator folds a Part stream into an Elements tree, per the
// algorithm in the dataset aggregator's design: a stack of builders, a
// stack of open sequences, and an optional in-progress fragments train.
// Aggregator satisfies Handler so it can terminate a flow chain; Handle
// always returns nil (it is a sink) except for propagating errors.
type Aggregator struct {
	builders  []*Elements
	seqStack  []*openSequence
	fragments *openFragments
	pending   *pendingValue
}

// NewAggregator returns an Aggregator ready to receive the part stream
// starting immediately after the Preamble (if any).
func NewAggregator() *Aggregator {
	return &Aggregator{builders: []*Elements{{}}}
}

func (a *Aggregator) top() *Elements { return a.builders[len(a.builders)-1] }

// Handle implements Handler. It never forwards parts further; callers
// drive it directly as the last stage of a chain and call Result once
// the upstream source is exhausted.
func (a *Aggregator) Handle(part Part) ([]Part, error) {
	switch p := part.(type) {
	case *PreamblePart:
		// Carries no dataset content.
	case *HeaderPart:
		a.pending = &pendingValue{tag: p.Tag, vr: p.VR, length: p.Length, bigEndian: p.BigEndian, explicitVR: p.ExplicitVR}
	case *ValueChunkPart:
		if err := a.handleValueChunk(p); err != nil {
			return nil, err
		}
	case *SequencePart:
		a.seqStack = append(a.seqStack, &openSequence{tag: p.Tag, length: p.Length})
	case *ItemPart:
		if a.fragments != nil {
			a.fragments.itemsSeen++
			a.fragments.pendingLen = p.Length
			a.fragments.pendingBig = p.BigEndian
			a.fragments.pendingBuf = nil
		} else if len(a.seqStack) > 0 {
			a.builders = append(a.builders, &Elements{})
			seq := a.seqStack[len(a.seqStack)-1]
			seq.items = append(seq.items, Item{Length: p.Length, BigEndian: p.BigEndian})
		}
	case *ItemDelimitationPart:
		if a.fragments == nil && len(a.builders) > 1 && len(a.seqStack) > 0 {
			finished := a.builders[len(a.builders)-1]
			a.builders = a.builders[:len(a.builders)-1]
			seq := a.seqStack[len(a.seqStack)-1]
			if n := len(seq.items); n > 0 {
				seq.items[n-1].Elements = *finished
			}
		}
	case *SequenceDelimitationPart:
		if a.fragments != nil {
			a.closeFragments()
		} else if len(a.seqStack) > 0 {
			seq := a.seqStack[len(a.seqStack)-1]
			a.seqStack = a.seqStack[:len(a.seqStack)-1]
			a.top().Insert(&Sequence{Tag: seq.tag, Length: seq.length, Items: seq.items})
		}
	case *FragmentsPart:
		a.fragments = &openFragments{tag: p.Tag, vr: p.VR}
	case *UnknownPart, *StartPart, *EndPart, *DeflatedChunkPart:
		// No dataset contribution.
	}
	return nil, nil
}

func (a *Aggregator) handleValueChunk(p *ValueChunkPart) error {
	if a.fragments != nil && a.fragments.itemsSeen > 0 {
		a.fragments.pendingBuf = append(a.fragments.pendingBuf, p.Bytes...)
		if p.Last {
			a.finishFragmentItem()
		}
		return nil
	}

	if a.pending == nil {
		return nil
	}
	a.pending.buf = append(a.pending.buf, p.Bytes...)
	if !p.Last {
		return nil
	}
	pending := a.pending
	a.pending = nil
	value := NewRawValue(pending.buf)
	elem := &ValueElement{Tag: pending.tag, VR: pending.vr, BigEndian: pending.bigEndian, ExplicitVR: pending.explicitVR, Value: value}
	a.top().Insert(elem)

	switch pending.tag {
	case SpecificCharacterSetTag:
		a.top().CharacterSets = ParseCharacterSets(value.Strings(CS))
	case TimezoneOffsetFromUTCTag:
		strs := value.Strings(SH)
		if len(strs) > 0 {
			a.top().ZoneOffset = strs[0]
		}
	}
	return nil
}

func (a *Aggregator) finishFragmentItem() {
	f := a.fragments
	isFirst := f.itemsSeen == 1 && !f.haveOffsets && len(f.fragments) == 0
	if isFirst {
		f.haveOffsets = true
		if f.pendingLen > 0 {
			f.offsets = NewRawValue(f.pendingBuf).Uint32s(dicomio.LittleEndian)
		}
		return
	}
	f.fragments = append(f.fragments, Fragment{Length: f.pendingLen, BigEndian: f.pendingBig, Value: NewRawValue(f.pendingBuf)})
}

func (a *Aggregator) closeFragments() {
	f := a.fragments
	a.fragments = nil
	a.top().Insert(&Fragments{Tag: f.tag, VR: f.vr, Offsets: f.offsets, Fragments: f.fragments})
}

// Result returns the completed Elements tree. Call it only after the
// driving part stream has reached EOF; an unclosed sequence or fragments
// construct at that point indicates a truncated stream and is folded in
// as best-effort (its items collected so far).
func (a *Aggregator) Result() *Elements {
	for len(a.seqStack) > 0 {
		seq := a.seqStack[len(a.seqStack)-1]
		a.seqStack = a.seqStack[:len(a.seqStack)-1]
		if len(a.builders) > 1 {
			finished := a.builders[len(a.builders)-1]
			a.builders = a.builders[:len(a.builders)-1]
			if n := len(seq.items); n > 0 {
				seq.items[n-1].Elements = *finished
			}
		}
		a.top().Insert(&Sequence{Tag: seq.tag, Length: seq.length, Items: seq.items})
	}
	if a.fragments != nil {
		a.closeFragments()
	}
	return a.builders[0]
}
