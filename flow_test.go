package dicom

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlowDispatchesByPartType(t *testing.T) {
	var sawHeader, sawSequence bool
	f := &Flow{
		OnHeader:   func(p *HeaderPart) ([]Part, error) { sawHeader = true; return []Part{p}, nil },
		OnSequence: func(p *SequencePart) ([]Part, error) { sawSequence = true; return nil, nil },
	}

	out, err := f.Handle(&HeaderPart{Tag: RowsTag})
	require.NoError(t, err)
	require.True(t, sawHeader)
	require.Len(t, out, 1)

	out, err = f.Handle(&SequencePart{Tag: WaveformSequenceTag})
	require.NoError(t, err)
	require.True(t, sawSequence)
	require.Empty(t, out)
}

func TestFlowPassesThroughUnsetFields(t *testing.T) {
	f := &Flow{}
	part := &ValueChunkPart{Bytes: []byte("x"), Last: true}
	out, err := f.Handle(part)
	require.NoError(t, err)
	require.Equal(t, []Part{part}, out)
}

func TestFlowStartEndSuppressedWhenUnset(t *testing.T) {
	f := &Flow{}
	out, err := f.Handle(&StartPart{})
	require.NoError(t, err)
	require.Nil(t, out)
	out, err = f.Handle(&EndPart{})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestChainComposesHandlersInOrder(t *testing.T) {
	upper := HandlerFunc(func(part Part) ([]Part, error) {
		vc := part.(*ValueChunkPart)
		return []Part{&ValueChunkPart{Bytes: append(vc.Bytes, 'A'), Last: vc.Last}}, nil
	})
	double := HandlerFunc(func(part Part) ([]Part, error) {
		return []Part{part, part}, nil
	})

	chain := Chain(upper, double)
	out, err := chain.Handle(&ValueChunkPart{Bytes: []byte("x"), Last: true})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, p := range out {
		require.Equal(t, []byte("xA"), p.(*ValueChunkPart).Bytes)
	}
}

func TestDriveFeedsSinkUntilEOF(t *testing.T) {
	parts := []Part{
		&HeaderPart{Tag: RowsTag},
		&ValueChunkPart{Bytes: []byte{1, 2}, Last: true},
	}
	i := 0
	next := func() (Part, error) {
		if i >= len(parts) {
			return nil, io.EOF
		}
		p := parts[i]
		i++
		return p, nil
	}

	var collected []Part
	sink := func(p Part) error {
		collected = append(collected, p)
		return nil
	}

	err := Drive(next, HandlerFunc(func(p Part) ([]Part, error) { return []Part{p}, nil }), sink)
	require.NoError(t, err)
	require.Equal(t, parts, collected)
}
