package render

import (
	"encoding/json"
	"io"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
)

// Node is the JSON form of a forest node.
type Node struct {
	Name       string `json:"name"`
	ParentName string `json:"parentName,omitempty"`
	Label      string `json:"label"`
	Kind       string `json:"kind,omitempty"`
	Type       string `json:"type,omitempty"`
	Children   []Node `json:"children,omitempty"`
}

// Tree converts nodes and their descendants into their JSON form.
func Tree(nodes []*forest.Node[catalog.Catalog]) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		jn := node(n)
		jn.Children = Tree(n.Children)
		out = append(out, jn)
	}
	return out
}

// List converts nodes into their JSON form without their children.
func List(nodes []*forest.Node[catalog.Catalog]) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, node(n))
	}
	return out
}

func node(n *forest.Node[catalog.Catalog]) Node {
	return Node{
		Name:       n.Name,
		ParentName: n.ParentName,
		Label:      catalog.DisplayName(n.Record),
		Kind:       string(catalog.KindOf(n.Record)),
		Type:       n.Record.Spec.Type,
	}
}

// JSON writes the forest as an indented JSON array of root nodes.
func JSON(w io.Writer, f *forest.Forest[catalog.Catalog]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Tree(f.Roots()))
}
