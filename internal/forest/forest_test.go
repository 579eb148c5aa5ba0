package forest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type rec struct {
	name, parent string
}

func key(r rec) (string, string) { return r.name, r.parent }

// shape renders a forest as nested name lists for comparison.
type shape struct {
	Name     string
	Children []shape
}

func shapeOf(nodes []*Node[rec]) []shape {
	var out []shape
	for _, n := range nodes {
		out = append(out, shape{Name: n.Name, Children: shapeOf(n.Children)})
	}
	return out
}

func mustBuild(t *testing.T, records []rec, opts ...Option) *Forest[rec] {
	t.Helper()
	f, err := Build(records, key, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return f
}

func TestBuild_Chain(t *testing.T) {
	f := mustBuild(t, []rec{{"a", ""}, {"b", "a"}, {"c", "b"}})

	want := []shape{{Name: "a", Children: []shape{{Name: "b", Children: []shape{{Name: "c"}}}}}}
	if diff := cmp.Diff(want, shapeOf(f.Roots())); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
	if f.Len() != 3 {
		t.Errorf("Len = %d, want 3", f.Len())
	}
	if f.Depth() != 3 {
		t.Errorf("Depth = %d, want 3", f.Depth())
	}
}

func TestBuild_UnresolvedParentIsRoot(t *testing.T) {
	f := mustBuild(t, []rec{{"a", ""}, {"b", "x"}})

	want := []shape{{Name: "a"}, {Name: "b"}}
	if diff := cmp.Diff(want, shapeOf(f.Roots())); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
	b, _ := f.Find("b")
	if !b.IsRoot() {
		t.Error("b should be a root")
	}
	if b.ParentName != "x" {
		t.Errorf("ParentName = %q, want the original reference %q", b.ParentName, "x")
	}
}

func TestBuild_ChildBeforeParent(t *testing.T) {
	f := mustBuild(t, []rec{{"c", "b"}, {"b", "a"}, {"z", ""}, {"a", ""}, {"d", "a"}})

	want := []shape{
		{Name: "z"},
		{Name: "a", Children: []shape{
			{Name: "b", Children: []shape{{Name: "c"}}},
			{Name: "d"},
		}},
	}
	if diff := cmp.Diff(want, shapeOf(f.Roots())); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RootOrderStable(t *testing.T) {
	f := mustBuild(t, []rec{{"r3", ""}, {"k", "r1"}, {"r1", ""}, {"r2", "missing"}})

	var got []string
	for _, r := range f.Roots() {
		got = append(got, r.Name)
	}
	want := []string{"r3", "r1", "r2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("root order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_EveryRecordOnce(t *testing.T) {
	records := []rec{
		{"site", ""}, {"line-1", "site"}, {"line-2", "site"},
		{"cell-1", "line-1"}, {"cell-2", "line-1"}, {"cell-3", "line-2"},
		{"orphan", "nowhere"}, {"other-site", ""}, {"cell-4", "other-site"},
	}
	f := mustBuild(t, records)

	seen := map[string]int{}
	f.Walk(func(n *Node[rec], _ int) error {
		seen[n.Name]++
		return nil
	})
	if len(seen) != len(records) {
		t.Fatalf("walked %d distinct names, want %d", len(seen), len(records))
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("%s appears %d times", name, count)
		}
	}
	if f.Len() != len(records) {
		t.Errorf("Len = %d, want %d", f.Len(), len(records))
	}
}

func TestBuild_Empty(t *testing.T) {
	f := mustBuild(t, nil)
	if len(f.Roots()) != 0 || f.Len() != 0 || f.Depth() != 0 {
		t.Errorf("empty forest: roots=%d len=%d depth=%d", len(f.Roots()), f.Len(), f.Depth())
	}
}

func TestBuild_Cycle(t *testing.T) {
	_, err := Build([]rec{{"a", "b"}, {"b", "a"}}, key)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("err = %v, want ErrCycleDetected", err)
	}
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("err is %T, want *CycleError", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ce.Names); diff != "" {
		t.Errorf("cycle names mismatch (-want +got):\n%s", diff)
	}
	if got, want := err.Error(), "parent cycle detected: a -> b -> a"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestBuild_SelfParentIsCycle(t *testing.T) {
	_, err := Build([]rec{{"root", ""}, {"a", "a"}}, key)
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CycleError", err)
	}
	if diff := cmp.Diff([]string{"a"}, ce.Names); diff != "" {
		t.Errorf("cycle names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CycleReachedFromTail(t *testing.T) {
	// tail hangs below a three-member loop; the loop is reported, not tail.
	_, err := Build([]rec{{"tail", "y"}, {"y", "z"}, {"x", "y"}, {"z", "x"}}, key)
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CycleError", err)
	}
	if diff := cmp.Diff([]string{"y", "z", "x"}, ce.Names); diff != "" {
		t.Errorf("cycle names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_BreakCycles(t *testing.T) {
	records := []rec{{"ok", ""}, {"b", "a"}, {"a", "b"}, {"c", "a"}, {"s", "s"}}
	f := mustBuild(t, records, BreakCycles())

	want := []shape{
		{Name: "ok"},
		{Name: "b", Children: []shape{{Name: "a", Children: []shape{{Name: "c"}}}}},
		{Name: "s"},
	}
	if diff := cmp.Diff(want, shapeOf(f.Roots())); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
	if f.Len() != len(records) {
		t.Errorf("Len = %d, want %d", f.Len(), len(records))
	}
}

func TestBuild_DuplicateLastWins(t *testing.T) {
	f := mustBuild(t, []rec{{"a", ""}, {"b", "a"}, {"a", ""}})

	want := []shape{{Name: "a"}, {Name: "a", Children: []shape{{Name: "b"}}}}
	if diff := cmp.Diff(want, shapeOf(f.Roots())); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
	n, _ := f.Find("a")
	if n.Index() != 2 {
		t.Errorf("Find(a) index = %d, want 2", n.Index())
	}
}

func TestBuild_RejectDuplicates(t *testing.T) {
	_, err := Build([]rec{{"a", ""}, {"b", "a"}, {"a", ""}}, key, RejectDuplicates())
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	var de *DuplicateError
	if !errors.As(err, &de) {
		t.Fatalf("err is %T, want *DuplicateError", err)
	}
	if de.Name != "a" || de.First != 0 || de.Second != 2 {
		t.Errorf("DuplicateError = %+v", de)
	}
}

func TestBuild_ParentLinks(t *testing.T) {
	f := mustBuild(t, []rec{{"a", ""}, {"b", "a"}})
	b, ok := f.Find("b")
	if !ok {
		t.Fatal("b not found")
	}
	if b.Parent() == nil || b.Parent().Name != "a" {
		t.Errorf("b.Parent() = %v, want a", b.Parent())
	}
	if _, ok := f.Find("nope"); ok {
		t.Error("Find(nope) should fail")
	}
}
