package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/gerritnav/internal/patchset"
	"github.com/zjrosen/gerritnav/internal/urlgen"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// urlFlags holds the union of the per-view state fields.
type urlFlags struct {
	view    string
	change  int
	repo    string
	base    string
	patch   string
	path    string
	line    int
	left    bool
	comment string

	edit        bool
	tab         string
	filter      string
	selected    string
	attempt     int
	forceReload bool
	replyDialog bool
	messageHash string

	query    string
	offset   int
	owner    string
	branch   string
	topic    string
	hashtag  string
	statuses []string

	user      string
	dashboard string
	title     string
	sections  []string
}

func newURLCmd(a *app) *cobra.Command {
	var f urlFlags

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Build the canonical URL of a view state",
		Long: `Build a URL from a view state described by flags.

Examples:
  gerritnav url --view change --change 42 --repo platform/build --patch 3
  gerritnav url --view diff --change 42 --repo test --base 6 --patch 12 --path a.go --line 10 --left
  gerritnav url --view edit --change 42 --repo test --patch edit --path README.md
  gerritnav url --view search --owner self --status open
  gerritnav url --view dashboard --title Mine --section 'Open=is:open owner:self'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := f.state()
			if err != nil {
				return err
			}
			u, err := urlgen.New(a.cfg.BasePath).URLFor(state)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.view, "view", "", "view to build: change, diff, edit, search or dashboard")
	fl.IntVar(&f.change, "change", 0, "change number")
	fl.StringVar(&f.repo, "repo", "", "repository of the change, or of a repository dashboard")
	fl.StringVar(&f.base, "base", "", "base patch set (number, PARENT or -N for a merge parent)")
	fl.StringVar(&f.patch, "patch", "", "patch set (number or edit)")
	fl.StringVar(&f.path, "path", "", "file path for diff and edit views")
	fl.IntVar(&f.line, "line", 0, "cursor line")
	fl.BoolVar(&f.left, "left", false, "put the cursor line on the base side")
	fl.StringVar(&f.comment, "comment", "", "comment id: a diff comment link, or a thread on the comments tab")
	fl.BoolVar(&f.edit, "edit", false, "open the change in edit mode")
	fl.StringVar(&f.tab, "tab", "", "change page tab")
	fl.StringVar(&f.filter, "filter", "", "checks filter")
	fl.StringVar(&f.selected, "select", "", "checks selection")
	fl.IntVar(&f.attempt, "attempt", 0, "checks attempt")
	fl.BoolVar(&f.forceReload, "force-reload", false, "force a reload of the change")
	fl.BoolVar(&f.replyDialog, "reply", false, "open the reply dialog")
	fl.StringVar(&f.messageHash, "message", "", "change message anchor")
	fl.StringVar(&f.query, "query", "", "free-form search query")
	fl.IntVar(&f.offset, "offset", 0, "search result offset")
	fl.StringVar(&f.owner, "owner", "", "search owner")
	fl.StringVar(&f.branch, "branch", "", "search branch")
	fl.StringVar(&f.topic, "topic", "", "search topic")
	fl.StringVar(&f.hashtag, "hashtag", "", "search hashtag")
	fl.StringArrayVar(&f.statuses, "status", nil, "search status (repeatable)")
	fl.StringVar(&f.user, "user", "", "user dashboard owner")
	fl.StringVar(&f.dashboard, "dashboard", "", "repository dashboard id")
	fl.StringVar(&f.title, "title", "", "custom dashboard title")
	fl.StringArrayVar(&f.sections, "section", nil, "custom dashboard section as name=query (repeatable)")
	_ = cmd.MarkFlagRequired("view")
	return cmd
}

func (f urlFlags) state() (viewstate.State, error) {
	view, err := viewstate.ParseView(f.view)
	if err != nil {
		return nil, err
	}

	base, err := parseNumFlag("base", f.base)
	if err != nil {
		return nil, err
	}
	patch, err := parseNumFlag("patch", f.patch)
	if err != nil {
		return nil, err
	}

	switch view {
	case viewstate.Change:
		return viewstate.ChangeState{
			ChangeNum:       f.change,
			Project:         f.repo,
			BasePatchNum:    base,
			PatchNum:        patch,
			Edit:            f.edit,
			ForceReload:     f.forceReload,
			OpenReplyDialog: f.replyDialog,
			Tab:             f.tab,
			Filter:          f.filter,
			Select:          f.selected,
			Attempt:         f.attempt,
			MessageHash:     f.messageHash,
			CommentID:       f.comment,
		}, nil
	case viewstate.Diff:
		return viewstate.DiffState{
			ChangeNum:    f.change,
			Project:      f.repo,
			BasePatchNum: base,
			PatchNum:     patch,
			Path:         f.path,
			LineNum:      f.line,
			LeftSide:     f.left,
			CommentID:    f.comment,
			CommentLink:  f.comment != "",
		}, nil
	case viewstate.Edit:
		return viewstate.EditState{
			ChangeNum: f.change,
			Project:   f.repo,
			PatchNum:  patch,
			Path:      f.path,
			LineNum:   f.line,
		}, nil
	case viewstate.Search:
		return viewstate.SearchState{
			Query:    f.query,
			Offset:   f.offset,
			Owner:    f.owner,
			Project:  f.repo,
			Branch:   f.branch,
			Topic:    f.topic,
			Hashtag:  f.hashtag,
			Statuses: f.statuses,
		}, nil
	case viewstate.Dashboard:
		sections, err := parseSections(f.sections)
		if err != nil {
			return nil, err
		}
		return viewstate.DashboardState{
			User:      f.user,
			Project:   f.repo,
			Dashboard: f.dashboard,
			Title:     f.title,
			Sections:  sections,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported view %q", view)
	}
}

func parseNumFlag(name, raw string) (patchset.Num, error) {
	if raw == "" {
		return patchset.Num{}, nil
	}
	n, err := patchset.ParseAny(raw)
	if err != nil {
		return patchset.Num{}, fmt.Errorf("--%s: %w", name, err)
	}
	return n, nil
}

func parseSections(raw []string) ([]viewstate.Section, error) {
	sections := make([]viewstate.Section, 0, len(raw))
	for _, r := range raw {
		name, query, ok := strings.Cut(r, "=")
		if !ok || name == "" || query == "" {
			return nil, fmt.Errorf("--section must be name=query, got %q", r)
		}
		sections = append(sections, viewstate.Section{Name: name, Query: query})
	}
	return sections, nil
}
