package dicom

import "fmt"

// TagTree is a superset of TagPath that additionally admits AnyItem(tag),
// a wildcard matching any item index. Whitelist/blacklist patterns use it
// through TreePattern; Modify's matchers are plain func(TagPath) bool.
type TagTree struct {
	nodes []pathNode
}

// EmptyTagTree is the sentinel root TagTrees extend from.
var EmptyTagTree = TagTree{}

func (t TagTree) extend(n pathNode) TagTree {
	next := make([]pathNode, len(t.nodes)+1)
	copy(next, t.nodes)
	next[len(t.nodes)] = n
	return TagTree{nodes: next}
}

func (t TagTree) ThenTag(tag Tag) TagTree { return t.extend(pathNode{kind: nodeTag, tag: tag}) }

func (t TagTree) ThenSequence(tag Tag) TagTree {
	return t.extend(pathNode{kind: nodeSequence, tag: tag})
}

func (t TagTree) ThenItem(tag Tag, index int) TagTree {
	return t.extend(pathNode{kind: nodeItem, tag: tag, item: index})
}

// ThenAnyItem appends a wildcard Item position that matches any 1-based
// index under sequence tag.
func (t TagTree) ThenAnyItem(tag Tag) TagTree {
	return t.extend(pathNode{kind: nodeAnyItem, tag: tag})
}

// FromTagPath converts an exact TagPath into an equivalent TagTree (no
// wildcards), for combining concrete paths and patterns in one set.
func FromTagPath(p TagPath) TagTree {
	nodes := make([]pathNode, len(p.nodes))
	copy(nodes, p.nodes)
	return TagTree{nodes: nodes}
}

// Depth mirrors TagPath.Depth.
func (t TagTree) Depth() int { return len(t.nodes) }

// HasPrefixMatch reports whether p begins with a position matching t,
// node by node, treating AnyItem nodes in t as matching any item index in
// p at the same position and tag.
func (t TagTree) HasPrefixMatch(p TagPath) bool {
	if len(t.nodes) > len(p.nodes) {
		return false
	}
	for i, tn := range t.nodes {
		pn := p.nodes[i]
		if tn.tag != pn.tag {
			return false
		}
		switch tn.kind {
		case nodeAnyItem:
			if pn.kind != nodeItem && pn.kind != nodeItemEnd {
				return false
			}
		default:
			if tn.kind != pn.kind {
				return false
			}
			if tn.kind == nodeItem && tn.item != pn.item {
				return false
			}
		}
	}
	return true
}

// String renders t using "*" for AnyItem positions, e.g.
// "(0054,0112)[*].(0008,0020)".
func (t TagTree) String() string {
	if len(t.nodes) == 0 {
		return "<empty path>"
	}
	out := ""
	for i, n := range t.nodes {
		if i > 0 {
			out += "."
		}
		switch n.kind {
		case nodeAnyItem:
			out += fmt.Sprintf("%s[*]", n.tag)
		case nodeItem:
			out += fmt.Sprintf("%s[%d]", n.tag, n.item)
		default:
			out += n.tag.String()
		}
	}
	return out
}

// TagTreeSet is an unordered collection of TagTree patterns. The
// whitelist/blacklist filters take a PatternSet instead.
type TagTreeSet []TagTree

// MatchesAny reports whether p begins with a position matched by any
// pattern in the set.
func (s TagTreeSet) MatchesAny(p TagPath) bool {
	for _, t := range s {
		if t.HasPrefixMatch(p) {
			return true
		}
	}
	return false
}
