package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gerritnav/internal/patchset"
	"github.com/zjrosen/gerritnav/internal/urlenc"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

func newTestRouter() *Router {
	return New(Options{LoggedIn: true})
}

func resolved(t *testing.T, r *Router, raw string) viewstate.State {
	t.Helper()
	res := r.ResolveURL(raw)
	require.Equal(t, Resolved, res.Kind, "route %s for %q", res.Route, raw)
	return res.State
}

func TestResolve_Change(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		url  string
		want viewstate.ChangeState
	}{
		{"/c/test/+/42", viewstate.ChangeState{ChangeNum: 42, Project: "test"}},
		{"/c/test/+/42/", viewstate.ChangeState{ChangeNum: 42, Project: "test"}},
		{"/c/test/+/42/3", viewstate.ChangeState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(3)}},
		{"/c/test/+/42/1..3", viewstate.ChangeState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Numbered(1), PatchNum: patchset.Numbered(3)}},
		{"/c/test/+/42/-1..3", viewstate.ChangeState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.MergeParent(1), PatchNum: patchset.Numbered(3)}},
		{"/c/test/+/42/5..", viewstate.ChangeState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(5)}},
		{"/c/test/+/42/3..edit", viewstate.ChangeState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Numbered(3), PatchNum: patchset.Edit()}},
		{"/c/x%252B/y/+/1234", viewstate.ChangeState{ChangeNum: 1234, Project: "x+/y"}},
		{"/c/test/+/42,edit", viewstate.ChangeState{ChangeNum: 42, Project: "test", Edit: true}},
		{"/c/test/+/42/7,edit", viewstate.ChangeState{ChangeNum: 42, Project: "test", Edit: true, BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(7)}},
		{"/c/test/+/42/comments/abc", viewstate.ChangeState{ChangeNum: 42, Project: "test", CommentID: "abc"}},
		{"/c/test/+/42#message-1", viewstate.ChangeState{ChangeNum: 42, Project: "test", MessageHash: "message-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, resolved(t, r, tt.url))
		})
	}
}

func TestResolve_ChangeQueryParams(t *testing.T) {
	r := newTestRouter()

	got := resolved(t, r, "/c/test/+/42?forceReload=true&tab=checks&filter=a+b&select=x&attempt=3z&openReplyDialog")
	assert.Equal(t, viewstate.ChangeState{
		ChangeNum:       42,
		Project:         "test",
		ForceReload:     true,
		OpenReplyDialog: true,
		Tab:             "checks",
		Filter:          "a b",
		Select:          "x",
		Attempt:         3,
	}, got)

	for _, attempt := range []string{"0", "-2", "abc", ""} {
		got := resolved(t, r, "/c/test/+/42?attempt="+attempt).(viewstate.ChangeState)
		assert.Zero(t, got.Attempt, "attempt=%q", attempt)
	}
}

func TestResolve_EqualRangeRedirects(t *testing.T) {
	res := newTestRouter().ResolveURL("/c/proj/+/42/5..5")
	require.Equal(t, Redirect, res.Kind)
	require.Equal(t, RouteChange, res.Route)
	require.Equal(t, "/c/proj/+/42/5", res.RedirectURL)
	require.Equal(t, viewstate.ChangeState{
		ChangeNum: 42, Project: "proj", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(5),
	}, res.State)
}

func TestResolve_InvalidRangeFallsThrough(t *testing.T) {
	r := newTestRouter()
	for _, u := range []string{"/c/p/+/42/0", "/c/p/+/42/-1", "/c/p/+/0", "/c/p/+/42/1..-2"} {
		res := r.ResolveURL(u)
		assert.Equal(t, NotFound, res.Kind, u)
	}
}

func TestResolve_Diff(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		url  string
		want viewstate.DiffState
	}{
		{"/c/test/+/42/12/x%252By/path.cpp", viewstate.DiffState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(12), Path: "x+y/path.cpp"}},
		{"/c/test/+/42/6..12/a.go#b123", viewstate.DiffState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Numbered(6), PatchNum: patchset.Numbered(12), Path: "a.go", LineNum: 123, LeftSide: true}},
		{"/c/test/+/42/12/a.go#a7", viewstate.DiffState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(12), Path: "a.go", LineNum: 7, LeftSide: true}},
		{"/c/test/+/42/12/a.go#7", viewstate.DiffState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(12), Path: "a.go", LineNum: 7}},
		{"/c/test/+/42/12/a.go#c7", viewstate.DiffState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(12), Path: "a.go"}},
		{"/c/test/+/42/12/dir/", viewstate.DiffState{ChangeNum: 42, Project: "test", BasePatchNum: patchset.Parent(), PatchNum: patchset.Numbered(12), Path: "dir/"}},
		{"/c/test/+/42/comment/abc123", viewstate.DiffState{ChangeNum: 42, Project: "test", CommentID: "abc123", CommentLink: true}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, resolved(t, r, tt.url))
		})
	}
}

func TestResolve_Edit(t *testing.T) {
	r := newTestRouter()

	got := resolved(t, r, "/c/test/+/42/edit/x%252By/path.cpp,edit")
	assert.Equal(t, viewstate.EditState{ChangeNum: 42, Project: "test", PatchNum: patchset.Edit(), Path: "x+y/path.cpp"}, got)

	got = resolved(t, r, "/c/test/+/42/3/a.go,edit#15")
	assert.Equal(t, viewstate.EditState{ChangeNum: 42, Project: "test", PatchNum: patchset.Numbered(3), Path: "a.go", LineNum: 15}, got)

	got = resolved(t, r, "/c/test/+/42/3/a.go,edit#b15")
	assert.Equal(t, viewstate.EditState{ChangeNum: 42, Project: "test", PatchNum: patchset.Numbered(3), Path: "a.go"}, got)
}

func TestResolve_Search(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		url  string
		want viewstate.SearchState
	}{
		{"/q/status:open+-is:wip", viewstate.SearchState{Query: "status:open -is:wip"}},
		{"/q/foo%2524bar,100", viewstate.SearchState{Query: "foo$bar", Offset: 100}},
		{"/q/owner:a%2525b+project:c%2525d", viewstate.SearchState{Query: "owner:a%b project:c%d"}},
		{"/q/(status:a OR status:b)", viewstate.SearchState{Query: "(status:a OR status:b)"}},
		{"/id/I0123456789abcdef0123456789abcdef01234567", viewstate.SearchState{Query: "I0123456789abcdef0123456789abcdef01234567"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, resolved(t, r, tt.url))
		})
	}
}

func TestResolve_Dashboard(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, viewstate.DashboardState{User: "self"}, resolved(t, r, "/dashboard/self"))
	assert.Equal(t, viewstate.DashboardState{User: "foo"}, resolved(t, r, "/dashboard/foo"))
	assert.Equal(t, viewstate.DashboardState{Project: "gerrit/repo", Dashboard: "default:main"},
		resolved(t, r, "/p/gerrit/repo/+/dashboard/default:main"))

	assert.Equal(t, viewstate.DashboardState{
		User:     "self",
		Title:    viewstate.DefaultDashboardTitle,
		Sections: []viewstate.Section{{Name: "a", Query: "b"}, {Name: "d", Query: "e"}},
	}, resolved(t, r, "/dashboard/?a=b&c&d=e"))

	assert.Equal(t, viewstate.DashboardState{
		User:     "self",
		Title:    "t",
		Sections: []viewstate.Section{{Name: "a", Query: "b"}},
	}, resolved(t, r, "/dashboard/?a=b&c&d=&=e&title=t"))

	assert.Equal(t, viewstate.DashboardState{
		User:     "self",
		Title:    viewstate.DefaultDashboardTitle,
		Sections: []viewstate.Section{{Name: "a", Query: "is:open b"}, {Name: "c", Query: "is:open d"}},
	}, resolved(t, r, "/dashboard/?a=b&foreach=is:open&c=d"))

	assert.Equal(t, viewstate.DashboardState{
		User:     "user",
		Title:    "custom dashboard",
		Sections: []viewstate.Section{{Name: "name", Query: "query"}},
	}, resolved(t, r, "/dashboard/user?name=query&title=custom%20dashboard"))
}

func TestResolve_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		loggedIn bool
		url      string
		route    string
		want     string
	}{
		{"root signed in", true, "/", RouteRoot, "/dashboard/self"},
		{"root signed out", false, "/", RouteRoot, "/q/status:open+-is:wip"},
		{"gwt hash", true, "/#/c/42", RouteRoot, "/c/42"},
		{"gwt hash without slash", true, "/#q/is:open", RouteRoot, "/q/is:open"},
		{"gwt hash plus", true, "/#/c/p/ /42", RouteRoot, "/c/p/+/42"},
		{"gwt settings", true, "/#/VE/abc", RouteRoot, "/settings/VE/abc"},
		{"custom dashboard empty", true, "/dashboard/", RouteCustomDashboard, "/dashboard/self"},
		{"own dashboard signed out", false, "/dashboard/seLF", RouteDashboard, "/login/%2Fdashboard%2FseLF"},
		{"other dashboard signed out", false, "/dashboard/foo", RouteDashboard, "/q/owner:foo"},
		{"legacy repo dashboard", true, "/projects/gerrit,dashboards/default:main", RouteLegacyRepoDashboard, "/p/gerrit/+/dashboard/default:main"},
		{"legacy query suffix", true, "/q/foo+bar,n,z", RouteQueryLegacySuffix, "/q/foo+bar"},
		{"legacy line number", true, "/c/test/+/42/3/a.go@b12", RouteDiffLegacyLineNum, "/c/test/+/42/3/a.go#b12"},
		{"legacy line number without repo", true, "/c/42/3/a.go@12", RouteDiffLegacyLineNum, "/c/42/3/a.go#12"},
		{"legacy change number", true, "/42", RouteChangeNumberLegacy, "/c/42"},
		{"legacy change number slash", true, "/42/", RouteChangeNumberLegacy, "/c/42"},
		{"improperly encoded plus", true, "/c/test/%20/42#3", RouteImproperlyEncodedPlus, "/c/test/+/42#3"},
		{"tracking param", true, "/c/test/+/42?usp=email&tab=x#m", RouteTrackingParam, "/c/test/+/42?tab=x#m"},
		{"tracking param only", true, "/q/is:open?usp=search", RouteTrackingParam, "/q/is:open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(Options{LoggedIn: tt.loggedIn}).ResolveURL(tt.url)
			require.Equal(t, Redirect, res.Kind)
			assert.Equal(t, tt.route, res.Route)
			assert.Equal(t, tt.want, res.RedirectURL)
		})
	}
}

func TestResolve_LegacyChangeNeedsLookup(t *testing.T) {
	r := newTestRouter()

	res := r.ResolveURL("/c/42/12/x%252By/path.cpp?tab=a#b5")
	require.Equal(t, NeedsLookup, res.Kind)
	require.Equal(t, RouteChangeLegacy, res.Route)
	require.Equal(t, 42, res.Lookup.ChangeNum)
	require.Equal(t, "12/x%252By/path.cpp", res.Lookup.Rest)

	got := r.LookupRedirect(res.Lookup, "my/repo")
	require.Equal(t, "/c/my/repo/+/42/12/x%252By/path.cpp?tab=a#b5", got)

	res = r.ResolveURL("/c/0")
	require.Equal(t, NotFound, res.Kind)
	require.Equal(t, RouteChangeLegacy, res.Route)
}

func TestResolve_NotFound(t *testing.T) {
	r := newTestRouter()
	for _, u := range []string{"/admin/repos", "/q/", "/c/", "/p/foo", "/c/p/+/x"} {
		assert.Equal(t, NotFound, r.ResolveURL(u).Kind, u)
	}
}

func TestResolve_RouteSpecificity(t *testing.T) {
	r := newTestRouter()

	res := r.ResolveURL("/c/proj/+/42,edit")
	require.Equal(t, RouteChangeEdit, res.Route)
	require.Equal(t, viewstate.ChangeState{ChangeNum: 42, Project: "proj", Edit: true}, res.State)

	res = r.ResolveURL("/c/proj/+/42/comment/abc")
	require.Equal(t, RouteComment, res.Route)

	res = r.ResolveURL("/c/proj/+/42/1/comment/abc")
	require.Equal(t, RouteDiff, res.Route)
	require.Equal(t, "comment/abc", res.State.(viewstate.DiffState).Path)
}

func TestResolve_BasePath(t *testing.T) {
	r := New(Options{BasePath: "/gerrit/", LoggedIn: true})

	res := r.ResolveURL("/gerrit/c/p/+/1")
	require.Equal(t, Resolved, res.Kind)
	require.Equal(t, viewstate.ChangeState{ChangeNum: 1, Project: "p"}, res.State)

	res = r.ResolveURL("/gerrit")
	require.Equal(t, Redirect, res.Kind)
	require.Equal(t, "/gerrit/dashboard/self", res.RedirectURL)

	res = r.ResolveURL("/gerrit/c/p/+/1/2..2")
	require.Equal(t, "/gerrit/c/p/+/1/2", res.RedirectURL)

	require.Equal(t, NotFound, r.ResolveURL("/c/p/+/1").Kind)
	require.Equal(t, NotFound, r.ResolveURL("/gerritx/c/p/+/1").Kind)
}

func TestResolveView(t *testing.T) {
	r := newTestRouter()
	loc := urlenc.ParseLocation("/c/test/+/42/1/a.go")

	res := r.ResolveView(viewstate.Change, loc)
	assert.Equal(t, NotFound, res.Kind, "diff URL is not a change URL")

	res = r.ResolveView(viewstate.Diff, loc)
	require.Equal(t, Resolved, res.Kind)
	assert.Equal(t, viewstate.Diff, res.State.View())
}

func TestRoutes_TaggedAndOrdered(t *testing.T) {
	routes := newTestRouter().Routes()
	require.NotEmpty(t, routes)
	require.Equal(t, RouteRoot, routes[0].Name)

	index := map[string]int{}
	for i, rt := range routes {
		index[rt.Name] = i
		if rt.Name != RouteRoot {
			require.NotEmpty(t, rt.View, rt.Name)
		}
	}
	require.Less(t, index[RouteDiffEdit], index[RouteChangeEdit])
	require.Less(t, index[RouteChangeEdit], index[RouteComment])
	require.Less(t, index[RouteComment], index[RouteDiff])
	require.Less(t, index[RouteDiff], index[RouteChange])
	require.Less(t, index[RouteChange], index[RouteChangeLegacy])
}

func TestParseIntPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3", 3, true},
		{"  42abc", 42, true},
		{"-7", -7, true},
		{"+2", 2, true},
		{"x1", 0, false},
		{"", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseIntPrefix(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
