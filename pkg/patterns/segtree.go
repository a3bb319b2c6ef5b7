package patterns

import "fmt"

// Segment is one element of a SegmentTree: either a literal text fragment
// (Sub == nil) or a nested optional region parsed from "[...]" syntax.
type Segment struct {
	Text string
	Sub  SegmentTree
}

// IsLiteral reports whether the segment is a literal text fragment.
func (s Segment) IsLiteral() bool { return s.Sub == nil }

// SegmentTree is the nested literal/optional structure of a raw pattern. It
// is immutable after construction and decides which portions of a formatted
// version may be omitted.
type SegmentTree []Segment

// mutable intermediate form used only while scanning
type segNode struct {
	text     string
	children []*segNode
	literal  bool
}

func (n *segNode) tree() SegmentTree {
	tree := make(SegmentTree, 0, len(n.children))
	for _, child := range n.children {
		if child.literal {
			tree = append(tree, Segment{Text: child.text})
		} else {
			sub := child.tree()
			if sub == nil {
				sub = SegmentTree{}
			}
			tree = append(tree, Segment{Sub: sub})
		}
	}
	return tree
}

// ParseSegments builds the segment tree of a raw pattern by a
// bracket-matching scan, e.g.
//
//	"aa[bb[cc]]"         => {"aa" {"bb" {"cc"}}}
//	"aa[bb[cc]dd[ee]ff]" => {"aa" {"bb" {"cc"} "dd" {"ee"} "ff"}}
//
// Brackets escaped as \[ and \] are treated as literal text. Unbalanced or
// unclosed brackets are a hard error.
func ParseSegments(rawPattern string) (SegmentTree, error) {
	// Wrapping the whole pattern in one bracket pair lets the scan treat
	// the top level like any other branch.
	wrapped := "[" + rawPattern + "]"

	internalRoot := &segNode{}
	branchStack := []*segNode{internalRoot}
	segStart := 0

	for i := 0; i < len(wrapped); i++ {
		char := wrapped[i]
		if char != '[' && char != ']' {
			continue
		}
		if i > 0 && wrapped[i-1] == '\\' {
			continue
		}

		branch := branchStack[len(branchStack)-1]
		if text := wrapped[segStart:i]; text != "" {
			branch.children = append(branch.children, &segNode{text: text, literal: true})
		}

		if char == '[' {
			child := &segNode{}
			branch.children = append(branch.children, child)
			branchStack = append(branchStack, child)
		} else {
			if len(branchStack) == 1 {
				return nil, fmt.Errorf("unbalanced brace(s) in %q", rawPattern)
			}
			branchStack = branchStack[:len(branchStack)-1]
		}
		segStart = i + 1
	}

	if len(branchStack) > 1 {
		return nil, fmt.Errorf("unclosed brace in %q", rawPattern)
	}

	return internalRoot.children[0].tree(), nil
}
