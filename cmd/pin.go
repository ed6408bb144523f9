package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/gerritnav/internal/config"
)

func newPinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <change> <repo>",
		Short: "Pin the repository of a change in the config file",
		Long: `Record that a change belongs to a repository. Pinned entries are
consulted before the Gerrit server when a URL omits the repository. The
entry is written to lookup.projects; the rest of the file is left as is.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changeNum, err := parseChangeArg(args[0])
			if err != nil {
				return err
			}
			projects, err := config.PinProject(a.configPath, a.cfg.Lookup.Projects, changeNum, args[1])
			if err != nil {
				return err
			}
			a.cfg.Lookup.Projects = projects
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pinned change %d to %s in %s\n", changeNum, args[1], a.configPath)
			return err
		},
	}
}
