package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/gerritnav/internal/presentation"
	"github.com/zjrosen/gerritnav/internal/router"
	"github.com/zjrosen/gerritnav/internal/urlenc"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

func newParseCmd(a *app) *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "parse <url>...",
		Short: "Resolve URLs to view states without following redirects",
		Long: `Resolve each URL against the route table and print the result.

A result is one of: resolved (with the view state), redirect (with the URL
the UI would navigate to), needs-lookup (a change URL without its
repository) or not-found. Redirects and lookups are not followed; use
'gerritnav follow' for that.

Examples:
  gerritnav parse /c/platform/build/+/42/3..5
  gerritnav parse --view diff '/c/test/+/42/12/a.go#b10'
  gerritnav parse -o yaml /q/status:open,25`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only viewstate.View
			if view != "" {
				v, err := viewstate.ParseView(view)
				if err != nil {
					return err
				}
				only = v
			}

			f, err := a.formatter(cmd)
			if err != nil {
				return err
			}

			r := newRouter(a.cfg)
			dtos := make([]presentation.ResultDTO, 0, len(args))
			for _, raw := range args {
				dtos = append(dtos, presentation.FromRouterResult(raw, resolve(r, only, raw)))
			}
			return f.FormatResults(dtos)
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "only try the routes of one view (change, diff, edit, search, dashboard)")
	return cmd
}

func resolve(r *router.Router, only viewstate.View, raw string) router.Result {
	if only == "" {
		return r.ResolveURL(raw)
	}
	return r.ResolveView(only, urlenc.ParseLocation(raw))
}
