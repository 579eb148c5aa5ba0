package forest

// Node is a single record placed in a forest.
type Node[T any] struct {
	Name       string
	ParentName string // as given by the record, before resolution
	Record     T
	Children   []*Node[T]

	index  int
	parent *Node[T]
}

// Parent returns the node this one is nested under, or nil for a root.
func (n *Node[T]) Parent() *Node[T] {
	return n.parent
}

// IsRoot reports whether the node has no resolved parent.
func (n *Node[T]) IsRoot() bool {
	return n.parent == nil
}

// Index returns the position of the node's record in the builder input.
func (n *Node[T]) Index() int {
	return n.index
}

// KeyFunc extracts the identity and the parent reference of a record.
// An empty parent means the record is a root.
type KeyFunc[T any] func(T) (name, parent string)

// Forest is the result of Build: one tree per root record.
type Forest[T any] struct {
	roots  []*Node[T]
	byName map[string]*Node[T]
	size   int
}

type options struct {
	rejectDuplicates bool
	breakCycles      bool
}

// Option configures Build.
type Option func(*options)

// RejectDuplicates makes Build fail with a *DuplicateError when two records
// share a name. Without it the last record with a given name is the target
// of parent resolution.
func RejectDuplicates() Option {
	return func(o *options) { o.rejectDuplicates = true }
}

// BreakCycles makes Build promote the first member (in input order) of each
// parent cycle to a root instead of failing with a *CycleError.
func BreakCycles() Option {
	return func(o *options) { o.breakCycles = true }
}

// Build groups records under their parents. Roots and siblings keep their
// input order. Every record appears exactly once in the result.
func Build[T any](records []T, key KeyFunc[T], opts ...Option) (*Forest[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	nodes := make([]*Node[T], len(records))
	byName := make(map[string]int, len(records))
	for i, r := range records {
		name, parent := key(r)
		if prev, ok := byName[name]; ok && o.rejectDuplicates {
			return nil, &DuplicateError{Name: name, First: prev, Second: i}
		}
		byName[name] = i
		nodes[i] = &Node[T]{Name: name, ParentName: parent, Record: r, index: i}
	}

	parentOf := make([]int, len(nodes))
	children := make([][]int, len(nodes))
	for i, n := range nodes {
		parentOf[i] = -1
		if n.ParentName == "" {
			continue
		}
		if p, ok := byName[n.ParentName]; ok {
			parentOf[i] = p
			children[p] = append(children[p], i)
		}
	}

	placed := make([]bool, len(nodes))
	for i := range nodes {
		if parentOf[i] < 0 {
			markReachable(i, children, placed)
		}
	}

	for i := range nodes {
		if placed[i] {
			continue
		}
		// Unreachable from any root: the parent chain ends in a cycle.
		cycle := findCycle(i, parentOf)
		if !o.breakCycles {
			names := make([]string, len(cycle))
			for k, idx := range cycle {
				names[k] = nodes[idx].Name
			}
			return nil, &CycleError{Names: names}
		}
		head := cycle[0]
		children[parentOf[head]] = removeIndex(children[parentOf[head]], head)
		parentOf[head] = -1
		markReachable(head, children, placed)
	}

	f := &Forest[T]{
		byName: make(map[string]*Node[T], len(byName)),
		size:   len(nodes),
	}
	for i, n := range nodes {
		p := parentOf[i]
		if p < 0 {
			f.roots = append(f.roots, n)
			continue
		}
		n.parent = nodes[p]
		nodes[p].Children = append(nodes[p].Children, n)
	}
	for name, i := range byName {
		f.byName[name] = nodes[i]
	}
	return f, nil
}

func markReachable(start int, children [][]int, placed []bool) {
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if placed[i] {
			continue
		}
		placed[i] = true
		stack = append(stack, children[i]...)
	}
}

// findCycle follows parent links from start until an ancestor repeats and
// returns the cycle members, starting with the lowest input index and
// following parent links from there.
func findCycle(start int, parentOf []int) []int {
	seen := make(map[int]int)
	var path []int
	for i := start; ; i = parentOf[i] {
		if at, ok := seen[i]; ok {
			path = path[at:]
			break
		}
		seen[i] = len(path)
		path = append(path, i)
	}

	head := 0
	for k, idx := range path {
		if idx < path[head] {
			head = k
		}
	}
	out := make([]int, 0, len(path))
	for i := path[head]; len(out) < len(path); i = parentOf[i] {
		out = append(out, i)
	}
	return out
}

func removeIndex(list []int, v int) []int {
	for k, x := range list {
		if x == v {
			return append(list[:k:k], list[k+1:]...)
		}
	}
	return list
}

// Roots returns the root nodes in input order.
func (f *Forest[T]) Roots() []*Node[T] {
	return f.roots
}

// Len returns the number of nodes across all trees.
func (f *Forest[T]) Len() int {
	return f.size
}

// Depth returns the number of levels of the deepest tree, 0 for an empty forest.
func (f *Forest[T]) Depth() int {
	deepest := 0
	f.Walk(func(_ *Node[T], depth int) error {
		deepest = max(deepest, depth+1)
		return nil
	})
	return deepest
}
