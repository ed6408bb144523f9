package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zjrosen/gerritnav/internal/history"
	"github.com/zjrosen/gerritnav/internal/presentation"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit int
		view  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent navigations",
		Long: `List recent navigations, newest first.

Examples:
  gerritnav history --limit 5
  gerritnav history --view diff -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				limit = a.cfg.History.Limit
			}
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return a.withHistory(cmd, func(ctx context.Context, repo *history.Repository) error {
				var entries []*history.Entry
				var err error
				if view != "" {
					v, perr := viewstate.ParseView(view)
					if perr != nil {
						return perr
					}
					entries, err = repo.RecentForView(ctx, string(v), limit)
				} else {
					entries, err = repo.Recent(ctx, limit)
				}
				if err != nil {
					return err
				}
				return f.FormatHistory(presentation.FromHistoryEntries(entries))
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (default: history.limit)")
	cmd.Flags().StringVar(&view, "view", "", "only entries that resolved to this view")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all recorded navigations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withHistory(cmd, func(ctx context.Context, repo *history.Repository) error {
					n, err := repo.Clear(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
					return err
				})
			},
		},
		newHistoryShowCmd(a),
		newHistoryPruneCmd(a),
	)
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded navigation with its published state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid navigation id %q: %w", args[0], err)
			}
			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}
			return a.withHistory(cmd, func(ctx context.Context, repo *history.Repository) error {
				e, err := repo.Find(ctx, id)
				if err != nil {
					return err
				}
				return f.Format(presentation.FromHistoryEntry(e))
			})
		},
	}
}

func newHistoryPruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete navigations older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return a.withHistory(cmd, func(ctx context.Context, repo *history.Repository) error {
				n, err := repo.Prune(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the newest entry to delete")
	return cmd
}

// withHistory opens the history database for the duration of fn.
func (a *app) withHistory(cmd *cobra.Command, fn func(context.Context, *history.Repository) error) error {
	if !a.cfg.History.Enabled {
		return fmt.Errorf("history is disabled (history.enabled: false)")
	}
	db, err := history.NewDB(a.cfg.History.Path)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, db.Repository())
}
