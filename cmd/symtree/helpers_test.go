package main

import (
	"context"
	"testing"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
)

type staticSource struct {
	cats []catalog.Catalog
	err  error
}

func (s staticSource) Catalogs(context.Context) ([]catalog.Catalog, error) {
	return s.cats, s.err
}

func (s staticSource) String() string { return "static" }

func cat(name, parent, typ string) catalog.Catalog {
	return catalog.Catalog{
		ObjectMeta: catalog.ObjectMeta{Name: name},
		Spec:       catalog.Spec{Name: name, ParentName: parent, Type: typ},
	}
}

// sampleCatalogs is a site with two lines, a config catalog and a second root.
//
//	site
//	├── line-1
//	│   ├── cell-1
//	│   └── cell-2
//	└── line-2
//	lab
func sampleCatalogs() []catalog.Catalog {
	return []catalog.Catalog{
		cat("site", "", "asset"),
		cat("line-1", "site", "asset"),
		cat("cell-1", "line-1", "asset"),
		cat("line-2", "site", "asset"),
		cat("cell-2", "line-1", "asset"),
		cat("site-config", "", "config"),
		cat("lab", "", "asset"),
	}
}

func sampleForest(t *testing.T) *forest.Forest[catalog.Catalog] {
	t.Helper()
	f, err := catalog.BuildForest(catalog.FilterByType(sampleCatalogs(), "asset"))
	if err != nil {
		t.Fatalf("BuildForest: %v", err)
	}
	return f
}

func names(nodes []*forest.Node[catalog.Catalog]) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}
