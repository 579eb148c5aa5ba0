package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/term"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
	"github.com/lthms/symtree/internal/render"
)

// TreeCmd prints the catalog forest.
type TreeCmd struct {
	SourceFlags `embed:""`
	ForestFlags `embed:""`

	Format string `enum:"text,json" default:"text" help:"Output format (text, json)."`
	Root   string `help:"Only print the subtree rooted at this catalog."`
	Kind   bool   `default:"true" negatable:"" help:"Show the catalog kind next to each label."`
	Color  string `enum:"auto,always,never" default:"auto" help:"Colorize output (auto, always, never)."`
}

// Run loads catalogs, builds the forest and writes it to stdout.
func (cmd *TreeCmd) Run(cfg *Config) error {
	src, closeSrc, err := cmd.SourceFlags.open(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	f, err := loadForest(context.Background(), src, cmd.ForestFlags, "", cmd.Root)
	if err != nil {
		return err
	}

	if cmd.Format == "json" {
		return render.JSON(os.Stdout, f)
	}

	opts := render.Options{ShowKind: cmd.Kind}
	fd := int(os.Stdout.Fd())
	tty := term.IsTerminal(fd)
	if tty {
		if w, _, err := term.GetSize(fd); err == nil {
			opts.Width = w
		}
	}
	switch cmd.Color {
	case "always":
		opts.Color = true
	case "auto":
		opts.Color = tty
	}
	return render.Text(os.Stdout, f, opts)
}

// loadForest fetches catalogs from src and builds the forest, narrowed to
// one spec type and to the subtree under root when those are set.
func loadForest(ctx context.Context, src catalogSource, flags ForestFlags, typ, root string) (*forest.Forest[catalog.Catalog], error) {
	cats, err := src.Catalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalogs from %s: %w", src, err)
	}
	f, err := flags.build(cats, typ)
	if err != nil {
		return nil, err
	}
	if root == "" {
		return f, nil
	}
	sub, err := subtreeRecords(f, root)
	if err != nil {
		return nil, err
	}
	return catalog.BuildForest(sub, flags.options()...)
}

// subtreeRecords returns the catalogs of the subtree under name in their
// original input order. Rebuilding a forest from them leaves name as the
// only root, since its own parent is not part of the set.
func subtreeRecords(f *forest.Forest[catalog.Catalog], name string) ([]catalog.Catalog, error) {
	nodes, err := f.Subtree(name)
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index() < nodes[j].Index() })
	out := make([]catalog.Catalog, len(nodes))
	for i, n := range nodes {
		out[i] = n.Record
	}
	return out, nil
}
