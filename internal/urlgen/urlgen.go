// Package urlgen builds canonical URLs from view states.
package urlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zjrosen/gerritnav/internal/patchset"
	"github.com/zjrosen/gerritnav/internal/urlenc"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// Query parameters understood on change URLs, in the order they are written.
const (
	ParamAttempt         = "attempt"
	ParamFilter          = "filter"
	ParamForceReload     = "forceReload"
	ParamOpenReplyDialog = "openReplyDialog"
	ParamSelect          = "select"
	ParamTab             = "tab"
)

// Generator builds URLs under a fixed base path. The zero value builds
// URLs for an application served at the root.
type Generator struct {
	// BasePath is prepended to every URL, e.g. "/gerrit". No trailing slash.
	BasePath string
}

// New returns a Generator for basePath, trimming any trailing slash.
func New(basePath string) Generator {
	return Generator{BasePath: strings.TrimRight(basePath, "/")}
}

// URLFor builds the canonical URL of s. It returns an error wrapping
// viewstate.ErrInvalidState when s cannot be represented.
func (g Generator) URLFor(s viewstate.State) (string, error) {
	switch v := s.(type) {
	case viewstate.ChangeState:
		return g.ChangeURL(v)
	case *viewstate.ChangeState:
		return g.ChangeURL(*v)
	case viewstate.DiffState:
		return g.DiffURL(v)
	case *viewstate.DiffState:
		return g.DiffURL(*v)
	case viewstate.EditState:
		return g.EditURL(v)
	case *viewstate.EditState:
		return g.EditURL(*v)
	case viewstate.SearchState:
		return g.SearchURL(v)
	case *viewstate.SearchState:
		return g.SearchURL(*v)
	case viewstate.DashboardState:
		return g.DashboardURL(v)
	case *viewstate.DashboardState:
		return g.DashboardURL(*v)
	default:
		return "", fmt.Errorf("%w: no URL for %T", viewstate.ErrInvalidState, s)
	}
}

// MustURLFor is like URLFor but panics on an invalid state.
func (g Generator) MustURLFor(s viewstate.State) string {
	u, err := g.URLFor(s)
	if err != nil {
		panic(err)
	}
	return u
}

// ChangePath returns "/c/<repo>/+/<n>", or "/c/<n>" without a repository.
func ChangePath(project string, changeNum int) string {
	if project == "" {
		return "/c/" + strconv.Itoa(changeNum)
	}
	return "/c/" + urlenc.EncodeComponent(project, true) + "/+/" + strconv.Itoa(changeNum)
}

// ChangeURL builds /c/<repo>/+/<n>[/<range>][,edit][/comments/<id>][?params][#hash].
func (g Generator) ChangeURL(s viewstate.ChangeState) (string, error) {
	s, _, err := s.Normalize()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(g.BasePath)
	b.WriteString(ChangePath(s.Project, s.ChangeNum))
	if expr := s.Range().String(); expr != "" {
		b.WriteString("/" + expr)
	}
	if s.Edit {
		b.WriteString(",edit")
	}
	if s.CommentID != "" {
		b.WriteString("/comments/" + s.CommentID)
	}
	if q := changeQuery(s); q.Len() > 0 {
		b.WriteString("?" + q.Encode())
	}
	if s.MessageHash != "" {
		b.WriteString("#" + s.MessageHash)
	}
	return b.String(), nil
}

func changeQuery(s viewstate.ChangeState) urlenc.Query {
	var q urlenc.Query
	if s.Attempt > 0 {
		q = q.With(ParamAttempt, strconv.Itoa(s.Attempt))
	}
	if s.Filter != "" {
		q = q.With(ParamFilter, s.Filter)
	}
	if s.ForceReload {
		q = q.With(ParamForceReload, "true")
	}
	if s.OpenReplyDialog {
		q = q.With(ParamOpenReplyDialog, "true")
	}
	if s.Select != "" {
		q = q.With(ParamSelect, s.Select)
	}
	if s.Tab != "" {
		q = q.With(ParamTab, s.Tab)
	}
	return q
}

// DiffURL builds /c/<repo>/+/<n>/<range>/<path>[#[b]<line>] for files and
// /c/<repo>/+/<n>/comment/<id> for comment links.
func (g Generator) DiffURL(s viewstate.DiffState) (string, error) {
	s, _, err := s.Normalize()
	if err != nil {
		return "", err
	}

	prefix := g.BasePath + ChangePath(s.Project, s.ChangeNum)
	if s.CommentID != "" {
		return prefix + "/comment/" + s.CommentID, nil
	}
	u := prefix + "/" + s.Range().String() + "/" + urlenc.EncodeComponent(s.Path, true)
	if s.LineNum > 0 {
		u += "#"
		if s.LeftSide {
			u += "b"
		}
		u += strconv.Itoa(s.LineNum)
	}
	return u, nil
}

// EditURL builds /c/<repo>/+/<n>/<patch>/<path>,edit[#<line>].
func (g Generator) EditURL(s viewstate.EditState) (string, error) {
	s, err := s.Normalize()
	if err != nil {
		return "", err
	}

	expr, err := patchset.EncodeRange(patchset.Range{Patch: s.PatchNum})
	if err != nil {
		return "", fmt.Errorf("%w: %w", viewstate.ErrInvalidState, err)
	}
	u := g.BasePath + ChangePath(s.Project, s.ChangeNum) +
		"/" + expr + "/" + urlenc.EncodeComponent(s.Path, true) + ",edit"
	if s.LineNum > 0 {
		u += "#" + strconv.Itoa(s.LineNum)
	}
	return u, nil
}

// SearchURL builds /q/<query>[,<offset>]. Without a query the operator
// fields are encoded one by one and joined with '+'.
func (g Generator) SearchURL(s viewstate.SearchState) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	var expr string
	if s.Query != "" {
		expr = urlenc.EncodeComponent(s.Query, true)
	} else {
		expr = strings.Join(s.Operators(func(v string) string {
			return urlenc.EncodeComponent(v, false)
		}), "+")
	}
	u := g.BasePath + "/q/" + expr
	if s.Offset > 0 {
		u += "," + strconv.Itoa(s.Offset)
	}
	return u, nil
}

// DashboardURL builds one of
//
//	/dashboard/[<user>]?<name>=<query>...[&title=<title>]  custom sections
//	/p/<repo>/+/dashboard/<id>                              repository dashboard
//	/dashboard/<user>                                       user dashboard
//
// The user segment of a custom dashboard is left out for self.
func (g Generator) DashboardURL(s viewstate.DashboardState) (string, error) {
	s, err := s.Normalize()
	if err != nil {
		return "", err
	}

	switch {
	case s.IsCustom():
		var q urlenc.Query
		for _, sec := range s.Sections {
			q = q.With(sec.Name, sec.Query)
		}
		if s.Title != viewstate.DefaultDashboardTitle {
			q = q.With(viewstate.TitleParam, s.Title)
		}
		user := ""
		if s.User != viewstate.Self {
			user = urlenc.EncodeComponent(s.User, false)
		}
		return g.BasePath + "/dashboard/" + user + "?" + q.Encode(), nil
	case s.Project != "":
		return g.BasePath + "/p/" + urlenc.EncodeComponent(s.Project, true) +
			"/+/dashboard/" + urlenc.EncodeComponent(s.Dashboard, true), nil
	default:
		return g.BasePath + "/dashboard/" + urlenc.EncodeComponent(s.User, false), nil
	}
}
