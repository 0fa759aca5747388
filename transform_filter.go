package dicom

import "github.com/gobwas/glob"

// TagPattern is one entry of a whitelist/blacklist pattern set: either an
// exact TagTree position (optionally with AnyItem wildcards) or a
// keyword glob tested against the dictionary keyword of the path's
// current leaf tag, e.g. "Other*" matching any keyword starting with
// "Other" regardless of where it appears in the dataset.
type TagPattern struct {
	tree     TagTree
	hasTree  bool
	keyword  glob.Glob
}

// TreePattern wraps an exact TagTree position as a TagPattern.
func TreePattern(t TagTree) TagPattern { return TagPattern{tree: t, hasTree: true} }

// KeywordGlobPattern compiles a gobwas/glob pattern tested against the
// dictionary keyword of a path's leaf tag.
func KeywordGlobPattern(pattern string) (TagPattern, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return TagPattern{}, err
	}
	return TagPattern{keyword: g}, nil
}

func (p TagPattern) matches(path TagPath, dict Dictionary) bool {
	if p.hasTree {
		return p.tree.HasPrefixMatch(path)
	}
	tag, ok := path.LastTag()
	if !ok {
		return false
	}
	return p.keyword.Match(dict.KeywordOf(tag))
}

// ancestorOf reports whether path is a strict prefix of this pattern's
// own tree position, i.e. path names a container that must pass through
// unfiltered for a deeper match on this pattern to ever be reached. Glob
// patterns have no fixed depth and are not considered here: they already
// match at whatever depth the leaf tag appears.
func (p TagPattern) ancestorOf(path TagPath) bool {
	if !p.hasTree {
		return false
	}
	if len(path.nodes) > len(p.tree.nodes) {
		return false
	}
	for i, pn := range path.nodes {
		tn := p.tree.nodes[i]
		if tn.tag != pn.tag {
			return false
		}
		if tn.kind == nodeAnyItem {
			if pn.kind != nodeItem && pn.kind != nodeItemEnd {
				return false
			}
			continue
		}
		if tn.kind != pn.kind {
			return false
		}
	}
	return true
}

// PatternSet is an unordered collection of TagPatterns.
type PatternSet []TagPattern

func (s PatternSet) matchesAny(path TagPath, dict Dictionary) bool {
	for _, p := range s {
		if p.matches(path, dict) {
			return true
		}
	}
	return false
}

func (s PatternSet) ancestorOfAny(path TagPath) bool {
	for _, p := range s {
		if p.ancestorOf(path) {
			return true
		}
	}
	return false
}

// pathFilter is the shared machinery behind the whitelist and blacklist
// filters: track the current path, decide keep/drop per part, and once a
// Sequence or Fragments container is dropped, drop everything nested in
// it (including its delimitation) without re-testing each nested part.
func pathFilter(dict Dictionary, dropPreamble bool, keep func(TagPath) bool) Handler {
	tracker := TagPathTracking(nil)
	skipDepth := 0

	return HandlerFunc(func(part Part) ([]Part, error) {
		if _, ok := part.(*PreamblePart); ok {
			if dropPreamble {
				return nil, nil
			}
			return []Part{part}, nil
		}

		tracker.Update(part)

		if skipDepth > 0 {
			switch part.(type) {
			case *SequencePart, *FragmentsPart:
				skipDepth++
			case *SequenceDelimitationPart:
				skipDepth--
			}
			return nil, nil
		}

		if keep(tracker.Path) {
			return []Part{part}, nil
		}

		switch part.(type) {
		case *SequencePart, *FragmentsPart:
			skipDepth = 1
		}
		return nil, nil
	})
}

// WhitelistFilter keeps parts whose current tag path begins with any
// pattern in the whitelist, re-emitting headers and their value chunks
// as a unit, and drops the preamble. Container parts (Sequence,
// Fragments) pass through unfiltered whenever they are an ancestor of a
// deeper whitelist entry, so the entry can still be reached.
func WhitelistFilter(whitelist PatternSet, dict Dictionary) Handler {
	return pathFilter(dict, true, func(path TagPath) bool {
		return whitelist.matchesAny(path, dict) || whitelist.ancestorOfAny(path)
	})
}

// BlacklistFilter drops parts whose current tag path begins with any
// pattern in the blacklist. A blacklisted Sequence or Fragments is
// removed wholesale, including its items and delimitation.
func BlacklistFilter(blacklist PatternSet, dict Dictionary) Handler {
	return pathFilter(dict, false, func(path TagPath) bool {
		return !blacklist.matchesAny(path, dict)
	})
}

// GroupLengthFilter drops any element whose element number is 0, except
// FileMetaInformationGroupLength (0002,0000), which callers typically
// want to keep or recompute explicitly via FMIGroupLengthRecompute.
func GroupLengthFilter() Handler {
	dropping := false
	return &Flow{
		OnHeader: func(p *HeaderPart) ([]Part, error) {
			dropping = p.Tag.IsGroupLength() && p.Tag != FileMetaInformationGroupLengthTag
			if dropping {
				return nil, nil
			}
			return []Part{p}, nil
		},
		OnValueChunk: func(p *ValueChunkPart) ([]Part, error) {
			if dropping {
				if p.Last {
					dropping = false
				}
				return nil, nil
			}
			return []Part{p}, nil
		},
	}
}

// FMIFilter drops every element in group 0x0002.
func FMIFilter() Handler {
	dropping := false
	return &Flow{
		OnHeader: func(p *HeaderPart) ([]Part, error) {
			dropping = p.Tag.IsFMI()
			if dropping {
				return nil, nil
			}
			return []Part{p}, nil
		},
		OnValueChunk: func(p *ValueChunkPart) ([]Part, error) {
			if dropping {
				if p.Last {
					dropping = false
				}
				return nil, nil
			}
			return []Part{p}, nil
		},
	}
}
