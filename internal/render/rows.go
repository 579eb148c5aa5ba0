package render

import (
	"strings"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
)

// Row is one visible line of a tree view.
type Row struct {
	Name        string
	Label       string
	Kind        catalog.Kind
	Depth       int
	HasChildren bool
	Expanded    bool
	Last        bool
	Prefix      string // box-drawing guides leading to the label

	Node *forest.Node[catalog.Catalog]
}

const (
	branchMid  = "├── "
	branchLast = "└── "
	guideOpen  = "│   "
	guideBlank = "    "
)

// Rows flattens the visible part of the forest. A nil expanded shows every
// node.
func Rows(f *forest.Forest[catalog.Catalog], expanded func(*forest.Node[catalog.Catalog]) bool) []Row {
	flat := f.Flatten(expanded)
	out := make([]Row, 0, len(flat))
	var open []bool // per depth: the ancestor at that depth has later siblings
	for _, fr := range flat {
		if fr.Depth < len(open) {
			open = open[:fr.Depth]
		}

		var prefix strings.Builder
		for d := 1; d < fr.Depth; d++ {
			if open[d] {
				prefix.WriteString(guideOpen)
			} else {
				prefix.WriteString(guideBlank)
			}
		}
		if fr.Depth > 0 {
			if fr.Last {
				prefix.WriteString(branchLast)
			} else {
				prefix.WriteString(branchMid)
			}
		}
		open = append(open, !fr.Last)

		n := fr.Node
		hasChildren := len(n.Children) > 0
		out = append(out, Row{
			Name:        n.Name,
			Label:       catalog.DisplayName(n.Record),
			Kind:        catalog.KindOf(n.Record),
			Depth:       fr.Depth,
			HasChildren: hasChildren,
			Expanded:    hasChildren && (expanded == nil || expanded(n)),
			Last:        fr.Last,
			Prefix:      prefix.String(),
			Node:        n,
		})
	}
	return out
}
