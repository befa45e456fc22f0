// Command placementctl inspects and maintains placement engine state: it
// prints a project's segments, forces the legacy selection migration, and
// exports snapshot artifacts to blob storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"placementcore/internal/blob"
	"placementcore/internal/docsync"
	"placementcore/internal/infra/persistence"
	"placementcore/internal/platform/config"
	"placementcore/internal/snapshot"
	"placementcore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: placementctl <show|migrate|snapshot> [-project id]")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "placementctl: %v\n", err)
		return 1
	}
	log := newLogger(stderr, cfg.LogLevel)

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	project := fs.String("project", cfg.ProjectID, "project id")
	if err := fs.Parse(rest); err != nil {
		return 2
	}
	if *project == "" {
		fmt.Fprintln(stderr, "placementctl: project id required (flag -project or PLACEMENTCORE_PROJECT_ID)")
		return 2
	}

	store, err := persistence.Open()
	if err != nil {
		fmt.Fprintf(stderr, "placementctl: open storage: %v\n", err)
		return 1
	}
	adapter := docsync.New(store, docsync.WithLogger(log))

	switch cmd {
	case "show":
		err = show(ctx, adapter, *project, stdout)
	case "migrate":
		err = migrate(ctx, adapter, *project, stdout)
	case "snapshot":
		err = export(ctx, adapter, *project, log, stdout)
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "placementctl: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func show(ctx context.Context, adapter *docsync.Adapter, projectID string, stdout io.Writer) error {
	ws, err := adapter.LoadAll(ctx, projectID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "project %s: %d cohorts\n", projectID, len(ws.Cohorts))
	for _, seg := range ws.Segments {
		fmt.Fprintf(stdout, "segment %-8s active=%d placements=%d x=%q/%q y=%q/%q\n",
			seg.Label, len(seg.ActiveIDs()), len(seg.Placements),
			seg.Labels.X[0], seg.Labels.X[1], seg.Labels.Y[0], seg.Labels.Y[1])
	}
	winners, err := adapter.LoadWinners(ctx, projectID)
	if err != nil {
		return err
	}
	for _, slot := range domain.WinnerSlots {
		if id := winners.Get(slot); id != nil {
			fmt.Fprintf(stdout, "winner %-9s %s\n", slot, *id)
		}
	}
	return nil
}

// migrate forces the legacy selection migration on every segment by loading
// each one; segments already on the current schema are untouched.
func migrate(ctx context.Context, adapter *docsync.Adapter, projectID string, stdout io.Writer) error {
	for _, label := range domain.DefaultSegmentLabels {
		sel, err := adapter.LoadSegmentSelection(ctx, projectID, label)
		if err != nil {
			if domain.IsNotFound(err) {
				fmt.Fprintf(stdout, "segment %s: no document\n", label)
				continue
			}
			return fmt.Errorf("segment %s: %w", label, err)
		}
		state := "current"
		if sel.Migrated {
			state = "migrated"
		}
		fmt.Fprintf(stdout, "segment %s: %s (%d active)\n", label, state, len(sel.ActiveIDs))
	}
	return nil
}

func export(ctx context.Context, adapter *docsync.Adapter, projectID string, log *slog.Logger, stdout io.Writer) error {
	blobs, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	exp := snapshot.NewExporter(adapter, blobs, snapshot.WithLogger(log))
	info, err := exp.Export(ctx, projectID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %s (%d bytes)\n", info.Key, info.Size)
	return nil
}
