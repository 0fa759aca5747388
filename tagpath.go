package dicom

import (
	"fmt"
	"strconv"
	"strings"
)

// nodeKind discriminates the position variants a TagPath/TagTree node can
// take.
type nodeKind int

const (
	nodeTag nodeKind = iota
	nodeSequence
	nodeSequenceEnd
	nodeItem
	nodeItemEnd
	nodeAnyItem // TagTree only
)

type pathNode struct {
	kind nodeKind
	tag  Tag
	item int // 1-based; unused (0) for non-item kinds
}

// TagPath is an immutable, root-to-leaf identifier of a position inside a
// nested DICOM dataset. The zero value is EmptyTagPath. Internally it is
// a small slice built bottom-up (append-only, never mutated in place),
// which keeps equality and hashing cheap compared to a heap-linked node
// chain.
type TagPath struct {
	nodes []pathNode
}

// EmptyTagPath is the sentinel root all TagPaths extend from.
var EmptyTagPath = TagPath{}

func (p TagPath) extend(n pathNode) TagPath {
	next := make([]pathNode, len(p.nodes)+1)
	copy(next, p.nodes)
	next[len(p.nodes)] = n
	return TagPath{nodes: next}
}

// ThenTag appends a leaf Tag(tag) node.
func (p TagPath) ThenTag(tag Tag) TagPath { return p.extend(pathNode{kind: nodeTag, tag: tag}) }

// ThenSequence appends a Sequence(tag) node.
func (p TagPath) ThenSequence(tag Tag) TagPath {
	return p.extend(pathNode{kind: nodeSequence, tag: tag})
}

// ThenSequenceEnd appends a SequenceEnd(tag) node.
func (p TagPath) ThenSequenceEnd(tag Tag) TagPath {
	return p.extend(pathNode{kind: nodeSequenceEnd, tag: tag})
}

// ThenItem appends an Item(tag, index) node. index is 1-based.
func (p TagPath) ThenItem(tag Tag, index int) TagPath {
	return p.extend(pathNode{kind: nodeItem, tag: tag, item: index})
}

// ThenItemEnd appends an ItemEnd(tag, index) node.
func (p TagPath) ThenItemEnd(tag Tag, index int) TagPath {
	return p.extend(pathNode{kind: nodeItemEnd, tag: tag, item: index})
}

// Parent returns the path with its leaf node removed. Parent of
// EmptyTagPath is EmptyTagPath.
func (p TagPath) Parent() TagPath {
	if len(p.nodes) == 0 {
		return p
	}
	return TagPath{nodes: p.nodes[:len(p.nodes)-1]}
}

// Depth is the number of nodes in the path; EmptyTagPath has depth 0.
func (p TagPath) Depth() int { return len(p.nodes) }

// IsEmpty reports whether p is EmptyTagPath.
func (p TagPath) IsEmpty() bool { return len(p.nodes) == 0 }

// LastTag returns the tag of the leaf node and true, or (0, false) if p
// is empty.
func (p TagPath) LastTag() (Tag, bool) {
	if len(p.nodes) == 0 {
		return 0, false
	}
	n := p.nodes[len(p.nodes)-1]
	return n.tag, true
}

// IsLastTag / IsLastSequence / IsLastItem / IsLastItemEnd / IsLastSequenceEnd
// classify the leaf node kind; used by flow behaviors that branch on the
// current path shape without reaching into unexported fields.
func (p TagPath) IsLastTag() bool          { return p.lastKind() == nodeTag }
func (p TagPath) IsLastSequence() bool     { return p.lastKind() == nodeSequence }
func (p TagPath) IsLastSequenceEnd() bool  { return p.lastKind() == nodeSequenceEnd }
func (p TagPath) IsLastItem() bool         { return p.lastKind() == nodeItem }
func (p TagPath) IsLastItemEnd() bool      { return p.lastKind() == nodeItemEnd }

func (p TagPath) lastKind() nodeKind {
	if len(p.nodes) == 0 {
		return -1
	}
	return p.nodes[len(p.nodes)-1].kind
}

// LastItemIndex returns the 1-based item index of the leaf node and true
// if the leaf is an Item or ItemEnd node.
func (p TagPath) LastItemIndex() (int, bool) {
	if len(p.nodes) == 0 {
		return 0, false
	}
	n := p.nodes[len(p.nodes)-1]
	if n.kind != nodeItem && n.kind != nodeItemEnd {
		return 0, false
	}
	return n.item, true
}

// Take returns the prefix of p consisting of its first n nodes.
// Take(Depth()) == p; Take(0) == EmptyTagPath.
func (p TagPath) Take(n int) TagPath {
	if n <= 0 {
		return EmptyTagPath
	}
	if n >= len(p.nodes) {
		return p
	}
	return TagPath{nodes: p.nodes[:n]}
}

// Drop returns p with its first n nodes removed. Drop(0) == p.
func (p TagPath) Drop(n int) TagPath {
	if n <= 0 {
		return p
	}
	if n >= len(p.nodes) {
		return EmptyTagPath
	}
	out := make([]pathNode, len(p.nodes)-n)
	copy(out, p.nodes[n:])
	return TagPath{nodes: out}
}

// Equal reports whether p and other denote the same position: same
// sequence of node kinds, tags, and item indices.
func (p TagPath) Equal(other TagPath) bool {
	if len(p.nodes) != len(other.nodes) {
		return false
	}
	for i := range p.nodes {
		if p.nodes[i] != other.nodes[i] {
			return false
		}
	}
	return true
}

// Less implements a lexicographic root-to-leaf ordering: unsigned tag
// order first, item index breaking ties, shorter prefix sorting before
// its longer extension.
func (p TagPath) Less(other TagPath) bool {
	n := len(p.nodes)
	if len(other.nodes) < n {
		n = len(other.nodes)
	}
	for i := 0; i < n; i++ {
		a, b := p.nodes[i], other.nodes[i]
		if a.tag != b.tag {
			return a.tag < b.tag
		}
		if a.item != b.item {
			return a.item < b.item
		}
		if a.kind != b.kind {
			return a.kind < b.kind
		}
	}
	return len(p.nodes) < len(other.nodes)
}

// HasPrefix reports whether prefix's nodes are a leading sub-sequence of
// p's nodes (used by the whitelist filter: "current tag path begins with
// any path in the whitelist set").
func (p TagPath) HasPrefix(prefix TagPath) bool {
	if len(prefix.nodes) > len(p.nodes) {
		return false
	}
	for i := range prefix.nodes {
		if p.nodes[i] != prefix.nodes[i] {
			return false
		}
	}
	return true
}

// HasSuffix reports whether suffix's nodes are a trailing sub-sequence of
// p's nodes.
func (p TagPath) HasSuffix(suffix TagPath) bool {
	if len(suffix.nodes) > len(p.nodes) {
		return false
	}
	offset := len(p.nodes) - len(suffix.nodes)
	for i := range suffix.nodes {
		if p.nodes[offset+i] != suffix.nodes[i] {
			return false
		}
	}
	return true
}

// String renders p in the canonical "(gggg,eeee)[n].(gggg,eeee)" form.
// Synthetic SequenceEnd/ItemEnd nodes render with a trailing "$" marker;
// they are diagnostic only and not part of the parseable grammar.
func (p TagPath) String() string {
	return p.format(false, nil)
}

// KeywordString renders p using dictionary keywords in place of numeric
// tags where the dictionary has an entry, e.g. "PatientName" or
// "DerivationCodeSequence[1].StudyDate".
func (p TagPath) KeywordString(dict Dictionary) string {
	return p.format(true, dict)
}

func (p TagPath) format(useKeyword bool, dict Dictionary) string {
	if len(p.nodes) == 0 {
		return "<empty path>"
	}
	parts := make([]string, 0, len(p.nodes))
	for _, n := range p.nodes {
		label := n.tag.String()
		if useKeyword && dict != nil {
			if kw := dict.KeywordOf(n.tag); kw != "" {
				label = kw
			}
		}
		switch n.kind {
		case nodeItem:
			label = fmt.Sprintf("%s[%d]", label, n.item)
		case nodeItemEnd:
			label = fmt.Sprintf("%s[%d]$", label, n.item)
		case nodeSequenceEnd:
			label = label + "$"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ".")
}

// ParseTagPath parses the canonical or keyword string form of a TagPath.
// Only plain-tag and item segments are accepted: a dotted segment
// becomes a Tag node, or an Item node if it carries a "[n]" suffix,
// matching how String/KeywordString print a path.
func ParseTagPath(s string, dict Dictionary) (TagPath, error) {
	if s == "<empty path>" || s == "" {
		return EmptyTagPath, nil
	}
	segments := strings.Split(s, ".")
	path := EmptyTagPath
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		itemIndex := -1
		tagPart := seg
		if idx := strings.IndexByte(seg, '['); idx >= 0 && strings.HasSuffix(seg, "]") {
			tagPart = seg[:idx]
			n, err := strconv.Atoi(seg[idx+1 : len(seg)-1])
			if err != nil {
				return TagPath{}, fmt.Errorf("dicom: invalid item index in tag path segment %q: %w", seg, err)
			}
			itemIndex = n
		}
		tag, err := parseTagOrKeyword(tagPart, dict)
		if err != nil {
			return TagPath{}, err
		}
		if itemIndex >= 0 {
			path = path.ThenItem(tag, itemIndex)
		} else {
			path = path.ThenTag(tag)
		}
	}
	return path, nil
}

func parseTagOrKeyword(s string, dict Dictionary) (Tag, error) {
	s = normalizeKeyword(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		inner := s[1 : len(s)-1]
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return 0, fmt.Errorf("dicom: malformed tag %q", s)
		}
		group, err := strconv.ParseUint(parts[0], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("dicom: malformed tag group %q: %w", s, err)
		}
		elem, err := strconv.ParseUint(parts[1], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("dicom: malformed tag element %q: %w", s, err)
		}
		return NewTag(uint16(group), uint16(elem)), nil
	}
	if dict != nil {
		if tag, ok := dict.TagOf(s); ok {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("dicom: unknown tag keyword %q", s)
}
