package forest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func names(nodes []*Node[rec]) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func sampleForest(t *testing.T) *Forest[rec] {
	t.Helper()
	return mustBuild(t, []rec{
		{"site", ""},
		{"line-1", "site"},
		{"line-2", "site"},
		{"cell-1", "line-1"},
		{"cell-2", "line-1"},
		{"cell-3", "line-2"},
		{"lab", ""},
	})
}

func TestWalk_PreOrderWithDepth(t *testing.T) {
	f := sampleForest(t)

	type visit struct {
		Name  string
		Depth int
	}
	var got []visit
	f.Walk(func(n *Node[rec], depth int) error {
		got = append(got, visit{n.Name, depth})
		return nil
	})
	want := []visit{
		{"site", 0}, {"line-1", 1}, {"cell-1", 2}, {"cell-2", 2},
		{"line-2", 1}, {"cell-3", 2}, {"lab", 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestWalk_SkipChildrenAndStop(t *testing.T) {
	f := sampleForest(t)

	var got []string
	err := f.Walk(func(n *Node[rec], _ int) error {
		got = append(got, n.Name)
		switch n.Name {
		case "line-1":
			return SkipChildren
		case "cell-3":
			return Stop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"site", "line-1", "line-2", "cell-3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestWalk_PropagatesError(t *testing.T) {
	f := sampleForest(t)
	boom := errors.New("boom")
	if err := f.Walk(func(*Node[rec], int) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Walk err = %v, want boom", err)
	}
}

func TestChildren(t *testing.T) {
	f := sampleForest(t)
	got, err := f.Children("line-1")
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if diff := cmp.Diff([]string{"cell-1", "cell-2"}, names(got)); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if _, err := f.Children("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Children(nope) err = %v, want ErrNotFound", err)
	}
}

func TestSubtree_BreadthFirst(t *testing.T) {
	f := sampleForest(t)
	got, err := f.Subtree("site")
	if err != nil {
		t.Fatalf("Subtree: %v", err)
	}
	want := []string{"site", "line-1", "line-2", "cell-1", "cell-2", "cell-3"}
	if diff := cmp.Diff(want, names(got)); diff != "" {
		t.Errorf("subtree mismatch (-want +got):\n%s", diff)
	}
}

func TestChain(t *testing.T) {
	f := sampleForest(t)
	got, err := f.Chain("cell-3")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if diff := cmp.Diff([]string{"site", "line-2", "cell-3"}, names(got)); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}

	got, err = f.Chain("lab")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if diff := cmp.Diff([]string{"lab"}, names(got)); diff != "" {
		t.Errorf("root chain mismatch (-want +got):\n%s", diff)
	}

	if _, err := f.Chain("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Chain(nope) err = %v, want ErrNotFound", err)
	}
}

func TestFlatten(t *testing.T) {
	f := sampleForest(t)

	type row struct {
		Name  string
		Depth int
		Last  bool
	}
	flat := func(rows []Row[rec]) []row {
		var out []row
		for _, r := range rows {
			out = append(out, row{r.Node.Name, r.Depth, r.Last})
		}
		return out
	}

	t.Run("collapsed", func(t *testing.T) {
		got := flat(f.Flatten(func(*Node[rec]) bool { return false }))
		want := []row{{"site", 0, false}, {"lab", 0, true}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("one level open", func(t *testing.T) {
		got := flat(f.Flatten(func(n *Node[rec]) bool { return n.Name == "site" }))
		want := []row{
			{"site", 0, false}, {"line-1", 1, false}, {"line-2", 1, true}, {"lab", 0, true},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all open", func(t *testing.T) {
		if got := len(f.Flatten(nil)); got != f.Len() {
			t.Errorf("rows = %d, want %d", got, f.Len())
		}
	})
}

func TestFilter_KeepsAncestors(t *testing.T) {
	f := sampleForest(t)
	got := f.Filter(func(r rec) bool { return r.name == "cell-2" })

	want := []shape{{Name: "site", Children: []shape{{Name: "line-1", Children: []shape{{Name: "cell-2"}}}}}}
	if diff := cmp.Diff(want, shapeOf(got.Roots())); diff != "" {
		t.Errorf("filtered forest mismatch (-want +got):\n%s", diff)
	}
	if got.Len() != 3 {
		t.Errorf("Len = %d, want 3", got.Len())
	}
	chain, err := got.Chain("cell-2")
	if err != nil {
		t.Fatalf("Chain on filtered forest: %v", err)
	}
	if diff := cmp.Diff([]string{"site", "line-1", "cell-2"}, names(chain)); diff != "" {
		t.Errorf("chain mismatch (-want +got):\n%s", diff)
	}
	if f.Len() != 7 {
		t.Errorf("source forest modified: Len = %d", f.Len())
	}
}

func TestFilter_NoMatch(t *testing.T) {
	f := sampleForest(t)
	got := f.Filter(func(rec) bool { return false })
	if len(got.Roots()) != 0 || got.Len() != 0 {
		t.Errorf("expected empty forest, got %d roots", len(got.Roots()))
	}
}
