package forest

import (
	"errors"
	"fmt"
)

var (
	// SkipChildren returned from a WalkFunc skips the descendants of the
	// current node.
	SkipChildren = errors.New("skip children")
	// Stop returned from a WalkFunc ends the walk without error.
	Stop = errors.New("stop walk")
)

// WalkFunc is called for each node with its depth, roots being at depth 0.
type WalkFunc[T any] func(n *Node[T], depth int) error

// Walk visits every node depth-first, parents before children, in input order.
func (f *Forest[T]) Walk(fn WalkFunc[T]) error {
	type frame struct {
		n     *Node[T]
		depth int
	}
	stack := make([]frame, 0, len(f.roots))
	for i := len(f.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{f.roots[i], 0})
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := fn(cur.n, cur.depth)
		switch {
		case errors.Is(err, SkipChildren):
			continue
		case errors.Is(err, Stop):
			return nil
		case err != nil:
			return err
		}
		for i := len(cur.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{cur.n.Children[i], cur.depth + 1})
		}
	}
	return nil
}

// Find returns the node for name. With duplicate names it is the node of the
// last such record.
func (f *Forest[T]) Find(name string) (*Node[T], bool) {
	n, ok := f.byName[name]
	return n, ok
}

func (f *Forest[T]) mustFind(name string) (*Node[T], error) {
	n, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return n, nil
}

// Children returns the direct children of name.
func (f *Forest[T]) Children(name string) ([]*Node[T], error) {
	n, err := f.mustFind(name)
	if err != nil {
		return nil, err
	}
	return n.Children, nil
}

// Subtree returns name and all of its descendants in breadth-first order.
func (f *Forest[T]) Subtree(name string) ([]*Node[T], error) {
	root, err := f.mustFind(name)
	if err != nil {
		return nil, err
	}
	out := []*Node[T]{root}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].Children...)
	}
	return out, nil
}

// Chain returns the path from the root of name's tree down to name.
func (f *Forest[T]) Chain(name string) ([]*Node[T], error) {
	n, err := f.mustFind(name)
	if err != nil {
		return nil, err
	}
	var up []*Node[T]
	for ; n != nil; n = n.parent {
		up = append(up, n)
	}
	out := make([]*Node[T], len(up))
	for i, x := range up {
		out[len(up)-1-i] = x
	}
	return out, nil
}

// Row is one visible line of a flattened tree view.
type Row[T any] struct {
	Node  *Node[T]
	Depth int
	Last  bool // last sibling at its depth
}

// Flatten lists the nodes a tree view would show. Roots are always visible;
// the children of a visible node are visible when expanded reports true for
// it. A nil expanded shows everything.
func (f *Forest[T]) Flatten(expanded func(*Node[T]) bool) []Row[T] {
	var rows []Row[T]
	var visit func(nodes []*Node[T], depth int)
	visit = func(nodes []*Node[T], depth int) {
		for i, n := range nodes {
			rows = append(rows, Row[T]{Node: n, Depth: depth, Last: i == len(nodes)-1})
			if len(n.Children) > 0 && (expanded == nil || expanded(n)) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(f.roots, 0)
	return rows
}

// Filter returns a new forest holding the nodes whose record satisfies keep,
// together with their ancestors so that every match stays in place.
func (f *Forest[T]) Filter(keep func(T) bool) *Forest[T] {
	out := &Forest[T]{byName: make(map[string]*Node[T])}
	var prune func(n *Node[T], parent *Node[T]) *Node[T]
	prune = func(n *Node[T], parent *Node[T]) *Node[T] {
		c := &Node[T]{
			Name:       n.Name,
			ParentName: n.ParentName,
			Record:     n.Record,
			index:      n.index,
			parent:     parent,
		}
		for _, child := range n.Children {
			if kept := prune(child, c); kept != nil {
				c.Children = append(c.Children, kept)
			}
		}
		if len(c.Children) == 0 && !keep(n.Record) {
			return nil
		}
		return c
	}
	for _, r := range f.roots {
		if kept := prune(r, nil); kept != nil {
			out.roots = append(out.roots, kept)
		}
	}
	out.Walk(func(n *Node[T], _ int) error {
		out.size++
		if prev, ok := out.byName[n.Name]; !ok || prev.index < n.index {
			out.byName[n.Name] = n
		}
		return nil
	})
	return out
}
