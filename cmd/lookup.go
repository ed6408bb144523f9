package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zjrosen/gerritnav/internal/lookup"
)

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <change>",
		Short: "Print the repository of a change",
		Long: `Print the repository of a change number using pinned entries first,
then the configured Gerrit server (through the lookup cache).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changeNum, err := parseChangeArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			_, resolver, closers, err := buildResolver(ctx, a.cfg.Lookup)
			if err != nil {
				return err
			}
			defer func() {
				for _, c := range closers {
					_ = c()
				}
			}()

			project, err := resolver.ProjectFor(ctx, changeNum)
			if lookup.IsNotFound(err) {
				return fmt.Errorf("change %d not found", changeNum)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), project)
			return err
		},
	}
}

func parseChangeArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("change number must be a positive integer, got %q", s)
	}
	return n, nil
}
