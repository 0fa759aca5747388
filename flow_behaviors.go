package dicom

// InFragmentsBehavior tracks whether the part stream is currently inside
// an encapsulated fragments construct, flipped true by Fragments and
// false by the SequenceDelimitation that closes it.
type InFragmentsBehavior struct {
	Next        Handler
	InFragments bool
}

// InFragments wraps next with fragments-membership tracking.
func InFragments(next Handler) *InFragmentsBehavior {
	return &InFragmentsBehavior{Next: next}
}

func (b *InFragmentsBehavior) Handle(part Part) ([]Part, error) {
	switch part.(type) {
	case *FragmentsPart:
		b.InFragments = true
	case *SequenceDelimitationPart:
		b.InFragments = false
	}
	return b.Next.Handle(part)
}

// InSequenceBehavior tracks sequence nesting depth, incremented by
// Sequence and decremented by SequenceDelimitation. It assumes every
// Sequence is eventually matched by a delimitation, real or synthetic,
// which for determinate-length sequences requires a
// GuaranteedDelimitationEventsBehavior upstream that wraps this one.
type InSequenceBehavior struct {
	Next  Handler
	Depth int
}

// InSequence wraps next with sequence-depth tracking.
func InSequence(next Handler) *InSequenceBehavior {
	return &InSequenceBehavior{Next: next}
}

func (b *InSequenceBehavior) Handle(part Part) ([]Part, error) {
	switch part.(type) {
	case *SequencePart:
		b.Depth++
	case *SequenceDelimitationPart:
		if b.Depth > 0 {
			b.Depth--
		}
	}
	return b.Next.Handle(part)
}

// GuaranteedValueEventBehavior ensures a ValueChunk follows every
// zero-length header, and every zero-length item inside fragments, so
// downstream consumers always see exactly one value event per element.
// When two instances are stacked, the inner one's synthetic chunk is
// detected in the returned part list and the outer one does not
// synthesize a second.
type GuaranteedValueEventBehavior struct {
	Next        Handler
	inFragments bool
}

// GuaranteedValueEvent wraps next with the guaranteed-value-event
// invariant.
func GuaranteedValueEvent(next Handler) *GuaranteedValueEventBehavior {
	return &GuaranteedValueEventBehavior{Next: next}
}

func (b *GuaranteedValueEventBehavior) Handle(part Part) ([]Part, error) {
	switch part.(type) {
	case *FragmentsPart:
		b.inFragments = true
	case *SequenceDelimitationPart:
		b.inFragments = false
	}

	out, err := b.Next.Handle(part)
	if err != nil {
		return nil, err
	}

	needsEvent := false
	switch p := part.(type) {
	case *HeaderPart:
		needsEvent = p.Length == 0
	case *ItemPart:
		needsEvent = b.inFragments && p.Length == 0
	}
	if !needsEvent {
		return out, nil
	}
	if len(out) > 0 {
		if vc, ok := out[len(out)-1].(*ValueChunkPart); ok && vc.Marker {
			return out, nil
		}
	}

	markerOut, err := b.Next.Handle(&ValueChunkPart{Last: true, Marker: true})
	if err != nil {
		return nil, err
	}
	return append(out, markerOut...), nil
}

// delimEntry tracks one open sequence or item awaiting delimitation.
type delimEntry struct {
	item        bool
	remaining   int64
	determinate bool
}

// GuaranteedDelimitationEventsBehavior ensures SequenceDelimitation and
// ItemDelimitation fire at the end of determinate-length constructs just
// as they do for indeterminate ones. It maintains a stack mirroring the
// open sequences/items and subtracts every part's raw byte length from
// every open entry; entries that reach zero fire a synthetic
// delimitation, innermost first. When stacked, an outer instance detects
// synthetic delimitations already produced by an inner one and mirrors
// its own bookkeeping without firing again.
type GuaranteedDelimitationEventsBehavior struct {
	Next  Handler
	stack []*delimEntry
}

// GuaranteedDelimitationEvents wraps next with the guaranteed-delimitation
// invariant.
func GuaranteedDelimitationEvents(next Handler) *GuaranteedDelimitationEventsBehavior {
	return &GuaranteedDelimitationEventsBehavior{Next: next}
}

func (b *GuaranteedDelimitationEventsBehavior) Handle(part Part) ([]Part, error) {
	n := int64(len(part.RawBytes()))
	for _, e := range b.stack {
		e.remaining -= n
	}

	out, err := b.Next.Handle(part)
	if err != nil {
		return nil, err
	}

	switch p := part.(type) {
	case *SequencePart:
		b.stack = append(b.stack, &delimEntry{remaining: int64(p.Length), determinate: !p.Indeterminate()})
	case *ItemPart:
		b.stack = append(b.stack, &delimEntry{item: true, remaining: int64(p.Length), determinate: !p.Indeterminate()})
	case *SequenceDelimitationPart:
		b.popMatching(false)
	case *ItemDelimitationPart:
		b.popMatching(true)
	}

	for _, produced := range out {
		switch dp := produced.(type) {
		case *SequenceDelimitationPart:
			if dp.Marker {
				b.popMatching(false)
			}
		case *ItemDelimitationPart:
			if dp.Marker {
				b.popMatching(true)
			}
		}
	}

	fired, err := b.fireDue()
	if err != nil {
		return nil, err
	}
	return append(out, fired...), nil
}

func (b *GuaranteedDelimitationEventsBehavior) popMatching(item bool) {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].item == item {
			b.stack = append(b.stack[:i], b.stack[i+1:]...)
			return
		}
	}
}

func (b *GuaranteedDelimitationEventsBehavior) fireDue() ([]Part, error) {
	var out []Part
	for len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]
		if !top.determinate || top.remaining > 0 {
			break
		}
		b.stack = b.stack[:len(b.stack)-1]

		var marker Part
		if top.item {
			marker = &ItemDelimitationPart{Marker: true}
		} else {
			marker = &SequenceDelimitationPart{Marker: true}
		}
		res, err := b.Next.Handle(marker)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// StartEndBehavior fires OnStart once before the first real part and
// OnEnd once after the last, by prepending/appending StartPart/EndPart
// sentinels that a base Flow consumes without re-emitting. The driver
// must call Finish once the upstream source is exhausted. When stacked,
// an inner layer recognizes a StartPart/EndPart forwarded by an outer
// layer and passes it straight through instead of wrapping it again.
type StartEndBehavior struct {
	Next    Handler
	started bool
}

// StartEnd wraps next with the start/end marker invariant.
func StartEnd(next Handler) *StartEndBehavior {
	return &StartEndBehavior{Next: next}
}

func (b *StartEndBehavior) Handle(part Part) ([]Part, error) {
	switch part.(type) {
	case *StartPart:
		b.started = true
		return b.Next.Handle(part)
	case *EndPart:
		return b.Next.Handle(part)
	}

	var out []Part
	if !b.started {
		b.started = true
		res, err := b.Next.Handle(&StartPart{})
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	res, err := b.Next.Handle(part)
	if err != nil {
		return nil, err
	}
	return append(out, res...), nil
}

// Finish forwards the EndPart sentinel. Call it once after the source
// part stream is exhausted.
func (b *StartEndBehavior) Finish() ([]Part, error) {
	return b.Next.Handle(&EndPart{})
}

// seqFrame anchors one open sequence: its tag, and the path depth
// immediately after its Sequence node was appended, so the tracker can
// truncate back to exactly that node when the sequence closes.
type seqFrame struct {
	tag   Tag
	depth int
}

// itemFrame anchors one open item the same way seqFrame anchors a
// sequence.
type itemFrame struct {
	tag   Tag
	index int
	depth int
}

// TagPathTrackingBehavior maintains the TagPath of the part currently
// being handled, updated per the rules in the flow framework's
// tag-path-tracking invariant. It requires GuaranteedValueEvent and
// GuaranteedDelimitationEvents upstream, wrapping it, so path updates
// stay consistent across determinate and indeterminate encodings.
type TagPathTrackingBehavior struct {
	Next        Handler
	Path        TagPath
	inFragments bool
	seqStack    []seqFrame
	itemStack   []itemFrame
}

// TagPathTracking wraps next with tag-path tracking.
func TagPathTracking(next Handler) *TagPathTrackingBehavior {
	return &TagPathTrackingBehavior{Next: next, Path: EmptyTagPath}
}

func (b *TagPathTrackingBehavior) Handle(part Part) ([]Part, error) {
	b.Update(part)
	return b.Next.Handle(part)
}

// Update applies part's effect on Path without forwarding it anywhere.
// Filters that need the path a part will occupy, before deciding whether
// to forward it at all, drive their own TagPathTrackingBehavior instance
// through Update directly instead of going through Handle/Next.
func (b *TagPathTrackingBehavior) Update(part Part) {
	switch p := part.(type) {
	case *HeaderPart:
		b.Path = b.extendTag(p.Tag)
	case *FragmentsPart:
		b.inFragments = true
		b.Path = b.extendTag(p.Tag)
	case *SequencePart:
		b.Path = b.Path.ThenSequence(p.Tag)
		b.seqStack = append(b.seqStack, seqFrame{tag: p.Tag, depth: b.Path.Depth()})
	case *SequenceDelimitationPart:
		if !b.inFragments && len(b.seqStack) > 0 {
			top := b.seqStack[len(b.seqStack)-1]
			b.seqStack = b.seqStack[:len(b.seqStack)-1]
			b.Path = b.Path.Take(top.depth - 1).ThenSequenceEnd(top.tag)
		}
		b.inFragments = false
	case *ItemPart:
		if !b.inFragments && len(b.seqStack) > 0 {
			top := b.seqStack[len(b.seqStack)-1]
			b.Path = b.Path.ThenItem(top.tag, p.Index)
			b.itemStack = append(b.itemStack, itemFrame{tag: top.tag, index: p.Index, depth: b.Path.Depth()})
		}
	case *ItemDelimitationPart:
		if len(b.itemStack) > 0 {
			top := b.itemStack[len(b.itemStack)-1]
			b.itemStack = b.itemStack[:len(b.itemStack)-1]
			b.Path = b.Path.Take(top.depth - 1).ThenItemEnd(top.tag, top.index)
		}
	}
}

// extendTag implements the header/fragments tag-path rule: extend an
// item path with ThenTag, or replace the last tag on the trunk.
func (b *TagPathTrackingBehavior) extendTag(tag Tag) TagPath {
	if b.Path.IsLastItem() {
		return b.Path.ThenTag(tag)
	}
	return b.Path.Parent().ThenTag(tag)
}
