package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// FetchCmd fetches catalogs from Symphony and caches them as a snapshot.
type FetchCmd struct{}

// Run lists every configured namespace and stores the result.
func (cmd *FetchCmd) Run(cfg *Config) error {
	ctx := context.Background()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	src := &apiSource{client: client, namespaces: cfg.Symphony.Namespaces}
	cats, err := src.Catalogs(ctx)
	if err != nil {
		return fmt.Errorf("fetch catalogs: %w", err)
	}
	snap, err := st.Save(ctx, src.String(), cats)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := st.Prune(ctx, cfg.Cache.Keep); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	fmt.Printf("Fetched %d catalogs from %s (snapshot %s)\n", snap.Count, snap.Source, snap.ID)
	return nil
}

// SnapshotsCmd lists cached snapshots, optionally pruning old ones first.
type SnapshotsCmd struct {
	Prune int `help:"Keep only the newest N snapshots."`
	Limit int `default:"20" help:"Maximum number of snapshots to list (0 for all)."`
}

// Run prints the snapshot table.
func (cmd *SnapshotsCmd) Run(cfg *Config) error {
	ctx := context.Background()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cmd.Prune > 0 {
		n, err := st.Prune(ctx, cmd.Prune)
		if err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		fmt.Printf("Removed %d snapshots\n", n)
	}

	snaps, err := st.List(ctx, cmd.Limit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFETCHED\tCATALOGS\tSOURCE")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.FetchedAt.Local().Format(time.DateTime), s.Count, s.Source)
	}
	return tw.Flush()
}
