package router

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zjrosen/gerritnav/internal/patchset"
	"github.com/zjrosen/gerritnav/internal/urlenc"
	"github.com/zjrosen/gerritnav/internal/urlgen"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// Route names.
const (
	RouteTrackingParam         = "TRACKING_PARAM"
	RouteRoot                  = "ROOT"
	RouteDashboard             = "DASHBOARD"
	RouteCustomDashboard       = "CUSTOM_DASHBOARD"
	RouteRepoDashboard         = "PROJECT_DASHBOARD"
	RouteLegacyRepoDashboard   = "LEGACY_PROJECT_DASHBOARD"
	RouteQueryLegacySuffix     = "QUERY_LEGACY_SUFFIX"
	RouteQuery                 = "QUERY"
	RouteChangeIDQuery         = "CHANGE_ID_QUERY"
	RouteDiffLegacyLineNum     = "DIFF_LEGACY_LINENUM"
	RouteChangeNumberLegacy    = "CHANGE_NUMBER_LEGACY"
	RouteDiffEdit              = "DIFF_EDIT"
	RouteChangeEdit            = "CHANGE_EDIT"
	RouteComment               = "COMMENT"
	RouteCommentsTab           = "COMMENTS_TAB"
	RouteDiff                  = "DIFF"
	RouteChange                = "CHANGE"
	RouteChangeLegacy          = "CHANGE_LEGACY"
	RouteImproperlyEncodedPlus = "IMPROPERLY_ENCODED_PLUS"
)

// rangeExpr matches "p", "b..p" and "b.." patch range expressions.
const rangeExpr = `(?:-?\d+|edit)(?:\.\.(?:\d+|edit)?)?`

const (
	// Signed-out landing page.
	defaultSearch     = "/q/status:open+-is:wip"
	legacyQuerySuffix = ",n,z"
)

var lineAddress = regexp.MustCompile(`^([ab]?)(\d+)$`)

func defaultRoutes() []Route {
	return []Route{
		{Name: RouteRoot, Pattern: regexp.MustCompile(`^/$`), Parse: parseRoot},

		{Name: RouteDashboard, View: viewstate.Dashboard, Pattern: regexp.MustCompile(`^/dashboard/(.+)$`), Parse: parseUserDashboard},
		{Name: RouteCustomDashboard, View: viewstate.Dashboard, Pattern: regexp.MustCompile(`^/dashboard/?$`), Parse: parseCustomDashboard},
		{Name: RouteRepoDashboard, View: viewstate.Dashboard, Pattern: regexp.MustCompile(`^/p/(.+)/\+/dashboard/(.+)`), Parse: parseRepoDashboard},
		{Name: RouteLegacyRepoDashboard, View: viewstate.Dashboard, Pattern: regexp.MustCompile(`^/projects/(.+),dashboards/(.+)`), Parse: parseLegacyRepoDashboard},

		{Name: RouteQueryLegacySuffix, View: viewstate.Search, Pattern: regexp.MustCompile(`^/q/.+,n,z$`), Parse: parseQueryLegacySuffix},
		{Name: RouteQuery, View: viewstate.Search, Pattern: regexp.MustCompile(`^/q/([^,]+)(?:,(\d+))?$`), Parse: parseQuery},
		{Name: RouteChangeIDQuery, View: viewstate.Search, Pattern: regexp.MustCompile(`^/id/(I[0-9a-f]{40})$`), Parse: parseChangeIDQuery},

		{Name: RouteDiffLegacyLineNum, View: viewstate.Diff, Pattern: regexp.MustCompile(`^/c/((.+)/\+/)?(\d+)(/?((-?\d+|edit)(\.\.(\d+|edit))?/(.+))?)@[ab]?\d+$`), Parse: parseDiffLegacyLineNum},
		{Name: RouteChangeNumberLegacy, View: viewstate.Change, Pattern: regexp.MustCompile(`^/(\d+)/?`), Parse: parseChangeNumberLegacy},

		{Name: RouteDiffEdit, View: viewstate.Edit, Pattern: regexp.MustCompile(`^/c/(.+)/\+/(\d+)/(\d+|edit)/(.+),edit$`), Parse: parseDiffEdit},
		{Name: RouteChangeEdit, View: viewstate.Change, Pattern: regexp.MustCompile(`^/c/(.+)/\+/(\d+)(?:/(\d+))?,edit/?$`), Parse: parseChangeEdit},
		{Name: RouteComment, View: viewstate.Diff, Pattern: regexp.MustCompile(`^/c/(.+)/\+/(\d+)/comment/(\w+)/?$`), Parse: parseComment},
		{Name: RouteCommentsTab, View: viewstate.Change, Pattern: regexp.MustCompile(`^/c/(.+)/\+/(\d+)/comments(?:/)?(\w+)?/?$`), Parse: parseCommentsTab},
		{Name: RouteDiff, View: viewstate.Diff, Pattern: regexp.MustCompile(`^/c/(.+)/\+/(\d+)/(` + rangeExpr + `)/(.+)$`), Parse: parseDiff},
		{Name: RouteChange, View: viewstate.Change, Pattern: regexp.MustCompile(`^/c/(.+)/\+/(\d+)(?:/(` + rangeExpr + `))?/?$`), Parse: parseChange},
		{Name: RouteChangeLegacy, View: viewstate.Change, Pattern: regexp.MustCompile(`^/c/(\d+)/?(.*)$`), Parse: parseChangeLegacy},

		{Name: RouteImproperlyEncodedPlus, View: viewstate.Change, Pattern: regexp.MustCompile(`^/c/(.+)/(?: |%20)/(.+)$`), Parse: parseImproperlyEncodedPlus},
	}
}

func parseRoot(r *Router, _ []string, loc urlenc.Location) (Result, bool) {
	if loc.Hash != "" {
		// Old GWT links kept the whole route in the fragment.
		hash := loc.Hash
		if !strings.HasPrefix(hash, "/") {
			hash = "/" + hash
		}
		hash = strings.Replace(hash, "/ /", "/+/", 1)
		hash = strings.Replace(hash, "/%20/", "/+/", 1)
		if strings.HasPrefix(hash, "/VE/") {
			hash = "/settings" + hash
		}
		return Result{Kind: Redirect, RedirectURL: r.opts.BasePath + hash}, true
	}
	if r.opts.LoggedIn {
		return r.redirect(urlenc.Location{Path: "/dashboard/" + viewstate.Self}), true
	}
	return r.redirect(urlenc.Location{Path: defaultSearch}), true
}

func parseUserDashboard(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	user, ok := decode(m[1])
	if !ok {
		return Result{}, false
	}
	if title, sections := customSections(loc.Query); len(sections) > 0 {
		return r.finish(viewstate.DashboardState{User: user, Title: title, Sections: sections})
	}
	if !r.opts.LoggedIn {
		if strings.EqualFold(user, viewstate.Self) {
			return r.redirect(urlenc.Location{Path: "/login/" + urlenc.Escape(loc.String())}), true
		}
		return r.redirect(urlenc.Location{Path: "/q/owner:" + urlenc.EncodeComponent(user, false)}), true
	}
	return r.finish(viewstate.DashboardState{User: user})
}

func parseCustomDashboard(r *Router, _ []string, loc urlenc.Location) (Result, bool) {
	title, sections := customSections(loc.Query)
	if len(sections) == 0 {
		return r.redirect(urlenc.Location{Path: "/dashboard/" + viewstate.Self}), true
	}
	return r.finish(viewstate.DashboardState{User: viewstate.Self, Title: title, Sections: sections})
}

// customSections reads dashboard sections from query parameters. The
// first title and foreach parameters (any case) are taken; foreach is
// prefixed to every section query. Pairs with an empty side are ignored.
func customSections(q urlenc.Query) (title string, sections []viewstate.Section) {
	var forEach string
	var haveTitle, haveForEach bool
	for _, p := range q.Pairs() {
		switch strings.ToLower(p.Name) {
		case viewstate.TitleParam:
			if !haveTitle {
				title, haveTitle = p.Value, true
			}
		case viewstate.ForEachParam:
			if !haveForEach {
				forEach, haveForEach = p.Value, true
			}
		}
	}
	for _, p := range q.Pairs() {
		if p.Name == "" || p.Value == "" || viewstate.IsReservedSectionName(p.Name) {
			continue
		}
		query := p.Value
		if forEach != "" {
			query = forEach + " " + query
		}
		sections = append(sections, viewstate.Section{Name: p.Name, Query: query})
	}
	return title, sections
}

func parseRepoDashboard(r *Router, m []string, _ urlenc.Location) (Result, bool) {
	project, ok := decode(m[1])
	if !ok {
		return Result{}, false
	}
	dashboard, ok := decode(m[2])
	if !ok {
		return Result{}, false
	}
	return r.finish(viewstate.DashboardState{Project: project, Dashboard: dashboard})
}

func parseLegacyRepoDashboard(r *Router, m []string, _ urlenc.Location) (Result, bool) {
	return r.redirect(urlenc.Location{Path: "/p/" + m[1] + "/+/dashboard/" + m[2]}), true
}

func parseQueryLegacySuffix(r *Router, _ []string, loc urlenc.Location) (Result, bool) {
	loc.Path = strings.TrimSuffix(loc.Path, legacyQuerySuffix)
	return r.redirect(loc), true
}

func parseQuery(r *Router, m []string, _ urlenc.Location) (Result, bool) {
	query, ok := decode(m[1])
	if !ok {
		return Result{}, false
	}
	s := viewstate.SearchState{Query: query}
	if m[2] != "" {
		offset, err := strconv.Atoi(m[2])
		if err != nil {
			return Result{}, false
		}
		s.Offset = offset
	}
	return r.finish(s)
}

func parseChangeIDQuery(r *Router, m []string, _ urlenc.Location) (Result, bool) {
	return r.finish(viewstate.SearchState{Query: m[1]})
}

// parseDiffLegacyLineNum moves a trailing "@[ab]N" into the fragment.
func parseDiffLegacyLineNum(r *Router, _ []string, loc urlenc.Location) (Result, bool) {
	at := strings.LastIndexByte(loc.Path, '@')
	return r.redirect(urlenc.Location{Path: loc.Path[:at], Query: loc.Query, Hash: loc.Path[at+1:]}), true
}

func parseChangeNumberLegacy(r *Router, m []string, _ urlenc.Location) (Result, bool) {
	return r.redirect(urlenc.Location{Path: "/c/" + m[1]}), true
}

func parseDiffEdit(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	project, changeNum, ok := changeCaptures(m[1], m[2])
	if !ok {
		return Result{}, false
	}
	patch, err := patchset.ParseNum(m[3])
	if err != nil {
		return Result{}, false
	}
	path, ok := decode(m[4])
	if !ok {
		return Result{}, false
	}
	s := viewstate.EditState{ChangeNum: changeNum, Project: project, PatchNum: patch, Path: path}
	if isDigits(loc.Hash) {
		if n, err := strconv.Atoi(loc.Hash); err == nil {
			s.LineNum = n
		}
	}
	return r.finish(s)
}

func parseChangeEdit(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	project, changeNum, ok := changeCaptures(m[1], m[2])
	if !ok {
		return Result{}, false
	}
	s := viewstate.ChangeState{ChangeNum: changeNum, Project: project, Edit: true}
	if m[3] != "" {
		patch, err := patchset.ParseNum(m[3])
		if err != nil {
			return Result{}, false
		}
		s.PatchNum = patch
	}
	return r.finish(withChangeExtras(s, loc))
}

func parseComment(r *Router, m []string, _ urlenc.Location) (Result, bool) {
	project, changeNum, ok := changeCaptures(m[1], m[2])
	if !ok {
		return Result{}, false
	}
	return r.finish(viewstate.DiffState{ChangeNum: changeNum, Project: project, CommentID: m[3], CommentLink: true})
}

func parseCommentsTab(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	project, changeNum, ok := changeCaptures(m[1], m[2])
	if !ok {
		return Result{}, false
	}
	s := viewstate.ChangeState{ChangeNum: changeNum, Project: project, CommentID: m[3]}
	return r.finish(withChangeExtras(s, loc))
}

func parseDiff(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	project, changeNum, ok := changeCaptures(m[1], m[2])
	if !ok {
		return Result{}, false
	}
	rng, err := patchset.DecodeRange(m[3])
	if err != nil {
		return Result{}, false
	}
	path, ok := decode(m[4])
	if !ok {
		return Result{}, false
	}
	s := viewstate.DiffState{ChangeNum: changeNum, Project: project, Path: path}.WithRange(rng)
	if sm := lineAddress.FindStringSubmatch(loc.Hash); sm != nil {
		if n, err := strconv.Atoi(sm[2]); err == nil {
			s.LeftSide = sm[1] != ""
			s.LineNum = n
		}
	}
	return r.finish(s)
}

func parseChange(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	project, changeNum, ok := changeCaptures(m[1], m[2])
	if !ok {
		return Result{}, false
	}
	rng, err := patchset.DecodeRange(m[3])
	if err != nil {
		return Result{}, false
	}
	s := viewstate.ChangeState{ChangeNum: changeNum, Project: project}.WithRange(rng)
	return r.finish(withChangeExtras(s, loc))
}

func parseChangeLegacy(_ *Router, m []string, loc urlenc.Location) (Result, bool) {
	changeNum, err := strconv.Atoi(m[1])
	if err != nil || changeNum < 1 {
		return Result{Kind: NotFound}, true
	}
	return Result{Kind: NeedsLookup, Lookup: LookupRequest{
		ChangeNum: changeNum,
		Rest:      m[2],
		Query:     loc.Query,
		Hash:      loc.Hash,
	}}, true
}

func parseImproperlyEncodedPlus(r *Router, m []string, loc urlenc.Location) (Result, bool) {
	return r.redirect(urlenc.Location{Path: "/c/" + m[1] + "/+/" + m[2], Query: loc.Query, Hash: loc.Hash}), true
}

// withChangeExtras copies the change page query parameters and the
// message fragment into s.
func withChangeExtras(s viewstate.ChangeState, loc urlenc.Location) viewstate.ChangeState {
	q := loc.Query
	if q.Has(urlgen.ParamForceReload) {
		s.ForceReload = true
	}
	if q.Has(urlgen.ParamOpenReplyDialog) {
		s.OpenReplyDialog = true
	}
	if v, _ := q.Get(urlgen.ParamTab); v != "" {
		s.Tab = v
	}
	if v, _ := q.Get(urlgen.ParamFilter); v != "" {
		s.Filter = v
	}
	if v, _ := q.Get(urlgen.ParamSelect); v != "" {
		s.Select = v
	}
	if v, ok := q.Get(urlgen.ParamAttempt); ok {
		if n, ok := parseIntPrefix(v); ok && n > 0 {
			s.Attempt = n
		}
	}
	s.MessageHash = loc.Hash
	return s
}

func changeCaptures(rawProject, rawNum string) (project string, changeNum int, ok bool) {
	project, ok = decode(rawProject)
	if !ok {
		return "", 0, false
	}
	changeNum, err := strconv.Atoi(rawNum)
	if err != nil || changeNum < 1 {
		return "", 0, false
	}
	return project, changeNum, true
}

func decode(raw string) (string, bool) {
	s, err := urlenc.DecodeComponent(raw)
	return s, err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseIntPrefix reads an optionally signed decimal integer from the start
// of s, after leading whitespace, ignoring anything that follows it.
func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
