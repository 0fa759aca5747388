package dicom

import "io"

// Handler consumes one Part of the stream and produces zero or more Parts
// to forward downstream. Behaviors and transforms are Handlers that wrap
// another Handler and delegate to it, the way a DataElementIterator wraps
// an inner reader -- except here the wrapping happens per-part on push
// rather than per-element on pull.
type Handler interface {
	Handle(part Part) ([]Part, error)
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(Part) ([]Part, error)

func (f HandlerFunc) Handle(part Part) ([]Part, error) { return f(part) }

// Sink collects parts at the end of a chain, e.g. a serializer or the
// dataset aggregator.
type Sink func(Part) error

// Drive feeds every part produced by next (calling it until it returns
// io.EOF) through h, forwarding h's output to sink in order. err is the
// first non-EOF error encountered by either next or h.
func Drive(next func() (Part, error), h Handler, sink Sink) error {
	for {
		part, err := next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		out, err := h.Handle(part)
		if err != nil {
			return err
		}
		for _, p := range out {
			if err := sink(p); err != nil {
				return err
			}
		}
	}
}

// Flow is a per-event callback table satisfying Handler. Each field is
// invoked for parts of its concrete type when set; OnPart is the
// catch-all used for any event left nil and for part types that have no
// dedicated field (ModificationsPart, for instance). The synthetic
// StartPart/EndPart markers are the exception: they reach only OnStart
// and OnEnd, and are dropped when those fields are nil.
//
// Passthrough is the zero value's behavior: a Flow with every field nil
// forwards every part unchanged except StartPart and EndPart.
type Flow struct {
	OnPreamble             func(*PreamblePart) ([]Part, error)
	OnHeader               func(*HeaderPart) ([]Part, error)
	OnValueChunk           func(*ValueChunkPart) ([]Part, error)
	OnSequence             func(*SequencePart) ([]Part, error)
	OnSequenceDelimitation func(*SequenceDelimitationPart) ([]Part, error)
	OnFragments            func(*FragmentsPart) ([]Part, error)
	OnItem                 func(*ItemPart) ([]Part, error)
	OnItemDelimitation     func(*ItemDelimitationPart) ([]Part, error)
	OnDeflatedChunk        func(*DeflatedChunkPart) ([]Part, error)
	OnUnknown              func(*UnknownPart) ([]Part, error)
	OnStart                func() ([]Part, error)
	OnEnd                  func() ([]Part, error)
	OnPart                 func(Part) ([]Part, error)
}

func (f *Flow) Handle(part Part) ([]Part, error) {
	switch p := part.(type) {
	case *PreamblePart:
		if f.OnPreamble != nil {
			return f.OnPreamble(p)
		}
	case *HeaderPart:
		if f.OnHeader != nil {
			return f.OnHeader(p)
		}
	case *ValueChunkPart:
		if f.OnValueChunk != nil {
			return f.OnValueChunk(p)
		}
	case *SequencePart:
		if f.OnSequence != nil {
			return f.OnSequence(p)
		}
	case *SequenceDelimitationPart:
		if f.OnSequenceDelimitation != nil {
			return f.OnSequenceDelimitation(p)
		}
	case *FragmentsPart:
		if f.OnFragments != nil {
			return f.OnFragments(p)
		}
	case *ItemPart:
		if f.OnItem != nil {
			return f.OnItem(p)
		}
	case *ItemDelimitationPart:
		if f.OnItemDelimitation != nil {
			return f.OnItemDelimitation(p)
		}
	case *DeflatedChunkPart:
		if f.OnDeflatedChunk != nil {
			return f.OnDeflatedChunk(p)
		}
	case *UnknownPart:
		if f.OnUnknown != nil {
			return f.OnUnknown(p)
		}
	case *StartPart:
		if f.OnStart != nil {
			return f.OnStart()
		}
		return nil, nil
	case *EndPart:
		if f.OnEnd != nil {
			return f.OnEnd()
		}
		return nil, nil
	}
	if f.OnPart != nil {
		return f.OnPart(part)
	}
	return []Part{part}, nil
}

// Chain composes handlers so that a part flows through h[0], then
// whatever h[0] emits flows through h[1], and so on. Chain(a, b, c) is
// equivalent to a(b(c(sink))) in decorator terms, but built from already
// constructed Handlers rather than constructor functions.
func Chain(handlers ...Handler) Handler {
	return HandlerFunc(func(part Part) ([]Part, error) {
		stage := []Part{part}
		for _, h := range handlers {
			var next []Part
			for _, p := range stage {
				out, err := h.Handle(p)
				if err != nil {
					return nil, err
				}
				next = append(next, out...)
			}
			stage = next
		}
		return stage, nil
	})
}
