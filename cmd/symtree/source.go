package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lthms/symtree/internal/catalog"
	"github.com/lthms/symtree/internal/forest"
	"github.com/lthms/symtree/internal/store"
	"github.com/lthms/symtree/internal/symphony"
)

// catalogSource produces the flat catalog list a forest is built from.
type catalogSource interface {
	Catalogs(ctx context.Context) ([]catalog.Catalog, error)
	String() string
}

// SourceFlags selects where catalogs come from. The Symphony API is the
// default.
type SourceFlags struct {
	File     []string `short:"f" type:"existingfile" help:"Read catalogs from YAML or JSON manifests instead of the API."`
	Offline  bool     `help:"Use the latest cached snapshot instead of the API."`
	Snapshot string   `help:"Use the cached snapshot with this id."`
	NoCache  bool     `name:"no-cache" help:"Do not cache catalogs fetched from the API."`
}

// ForestFlags shapes the forest built from the catalogs.
type ForestFlags struct {
	Type             string `short:"t" help:"Only include catalogs of this spec type (e.g. asset, config)."`
	BreakCycles      bool   `name:"break-cycles" help:"Promote one member of each parent cycle to a root instead of failing."`
	RejectDuplicates bool   `name:"reject-duplicates" help:"Fail when two catalogs share a name."`
}

func (f ForestFlags) options() []forest.Option {
	var opts []forest.Option
	if f.BreakCycles {
		opts = append(opts, forest.BreakCycles())
	}
	if f.RejectDuplicates {
		opts = append(opts, forest.RejectDuplicates())
	}
	return opts
}

// build filters cats by type and arranges them into a forest.
func (f ForestFlags) build(cats []catalog.Catalog, typ string) (*forest.Forest[catalog.Catalog], error) {
	if typ == "" {
		typ = f.Type
	}
	return catalog.BuildForest(catalog.FilterByType(cats, typ), f.options()...)
}

// open resolves the flags into a source. The returned closer releases the
// snapshot store, if one was opened.
func (s SourceFlags) open(cfg *Config) (catalogSource, func(), error) {
	noop := func() {}
	if len(s.File) > 0 {
		return fileSource{paths: s.File}, noop, nil
	}

	if s.Offline || s.Snapshot != "" {
		st, err := openStore(cfg)
		if err != nil {
			return nil, noop, err
		}
		return &snapshotSource{store: st, id: s.Snapshot}, func() { st.Close() }, nil
	}

	client, err := newClient(cfg)
	if err != nil {
		return nil, noop, err
	}
	src := &apiSource{client: client, namespaces: cfg.Symphony.Namespaces, keep: cfg.Cache.Keep}
	if s.NoCache {
		return src, noop, nil
	}
	st, err := openStore(cfg)
	if err != nil {
		slog.Warn("snapshot cache unavailable", "error", err)
		return src, noop, nil
	}
	src.store = st
	return src, func() { st.Close() }, nil
}

func newClient(cfg *Config) (*symphony.Client, error) {
	if cfg.Symphony.URL == "" {
		return nil, errors.New("no Symphony URL configured: set symphony.url, SYMPHONY_URL or --url")
	}
	return symphony.New(symphony.Config{
		BaseURL:  cfg.Symphony.URL,
		User:     cfg.Symphony.User,
		Password: cfg.Symphony.Password,
	})
}

func openStore(cfg *Config) (*store.Store, error) {
	path, err := cfg.cachePath()
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

type fileSource struct {
	paths []string
}

func (s fileSource) Catalogs(context.Context) ([]catalog.Catalog, error) {
	return catalog.LoadFiles(s.paths...)
}

func (s fileSource) String() string {
	return "file:" + strings.Join(s.paths, ",")
}

// apiSource lists catalogs from Symphony and, when a store is attached,
// caches every successful listing.
type apiSource struct {
	client     *symphony.Client
	namespaces []string
	store      *store.Store
	keep       int
}

func (s *apiSource) Catalogs(ctx context.Context) ([]catalog.Catalog, error) {
	cats, err := s.client.ListCatalogsIn(ctx, s.namespaces)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		s.save(ctx, cats)
	}
	return cats, nil
}

// save failures only cost the offline copy, so they are logged and dropped.
func (s *apiSource) save(ctx context.Context, cats []catalog.Catalog) {
	snap, err := s.store.Save(ctx, s.String(), cats)
	if err != nil {
		slog.Warn("failed to cache snapshot", "error", err)
		return
	}
	slog.Debug("cached snapshot", "id", snap.ID, "count", snap.Count)
	if s.keep > 0 {
		if n, err := s.store.Prune(ctx, s.keep); err != nil {
			slog.Warn("failed to prune snapshots", "error", err)
		} else if n > 0 {
			slog.Debug("pruned snapshots", "removed", n)
		}
	}
}

func (s *apiSource) String() string {
	return "api:" + strings.Join(s.namespaces, ",")
}

// snapshotSource replays a cached listing: the given id, or the newest one.
type snapshotSource struct {
	store *store.Store
	id    string
}

func (s *snapshotSource) Catalogs(ctx context.Context) ([]catalog.Catalog, error) {
	id := s.id
	if id == "" {
		snap, err := s.store.Latest(ctx, "")
		if err != nil {
			if errors.Is(err, store.ErrNoSnapshot) {
				return nil, fmt.Errorf("no cached snapshot, run 'symtree fetch' first: %w", err)
			}
			return nil, err
		}
		slog.Debug("using snapshot", "id", snap.ID, "fetched_at", snap.FetchedAt)
		id = snap.ID
	}
	return s.store.Load(ctx, id)
}

func (s *snapshotSource) String() string {
	if s.id == "" {
		return "snapshot:latest"
	}
	return "snapshot:" + s.id
}
