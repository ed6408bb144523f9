// Package router maps incoming URLs to view states.
//
// Routes are tried in declaration order against the raw (still encoded)
// pathname; the first route whose pattern matches and whose captures
// validate wins. Captured repository names, file paths and search
// expressions are decoded twice, undoing urlenc.EncodeComponent.
package router

import (
	"regexp"
	"strings"

	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/urlenc"
	"github.com/zjrosen/gerritnav/internal/urlgen"
	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// Kind is the kind of a routing result.
type Kind int

const (
	// NotFound means no route accepted the URL.
	NotFound Kind = iota
	// Resolved carries a view state.
	Resolved
	// Redirect carries the URL the caller should navigate to instead.
	Redirect
	// NeedsLookup means the URL names a change without its repository.
	NeedsLookup
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not-found"
	case Resolved:
		return "resolved"
	case Redirect:
		return "redirect"
	case NeedsLookup:
		return "needs-lookup"
	default:
		return "unknown"
	}
}

// LookupRequest describes a change URL that lacks a repository. The rest
// of the URL is kept raw so it can be replayed after the lookup.
type LookupRequest struct {
	ChangeNum int
	Rest      string
	Query     urlenc.Query
	Hash      string
}

// Result is the outcome of routing one URL.
type Result struct {
	Kind Kind
	// Route is the name of the route that produced the result.
	Route string
	// State is set for Resolved, and for Redirect when the redirect only
	// canonicalizes a state that was understood.
	State viewstate.State
	// RedirectURL is set for Redirect. It includes the base path.
	RedirectURL string
	// Lookup is set for NeedsLookup.
	Lookup LookupRequest
}

// Options configure a Router.
type Options struct {
	// BasePath is the prefix the application is served under, e.g. "/gerrit".
	BasePath string
	// LoggedIn selects the signed-in variants of the root and user
	// dashboard routes.
	LoggedIn bool
}

// Route is one entry of the routing table.
type Route struct {
	Name string
	// View is the view the route leads to. Empty for routes that only
	// redirect somewhere view-independent.
	View    viewstate.View
	Pattern *regexp.Regexp
	// Parse turns a match into a result. ok is false when the captures do
	// not validate; the next route is tried then.
	Parse func(r *Router, m []string, loc urlenc.Location) (res Result, ok bool)
}

// Router resolves URLs against an ordered route table.
type Router struct {
	opts   Options
	gen    urlgen.Generator
	routes []Route
}

// New returns a Router with the standard route table.
func New(opts Options) *Router {
	opts.BasePath = strings.TrimRight(opts.BasePath, "/")
	return &Router{
		opts:   opts,
		gen:    urlgen.New(opts.BasePath),
		routes: defaultRoutes(),
	}
}

// Options returns the options the router was built with.
func (r *Router) Options() Options { return r.opts }

// Generator returns the URL generator sharing the router's base path.
func (r *Router) Generator() urlgen.Generator { return r.gen }

// Routes returns a copy of the routing table in match order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// ResolveURL parses raw (path, query and fragment) and resolves it.
func (r *Router) ResolveURL(raw string) Result {
	return r.Resolve(urlenc.ParseLocation(raw))
}

// Resolve returns the result of the first route that accepts loc.
func (r *Router) Resolve(loc urlenc.Location) Result {
	return r.resolve(loc, "")
}

// ResolveView is Resolve restricted to the routes tagged with view.
func (r *Router) ResolveView(view viewstate.View, loc urlenc.Location) Result {
	return r.resolve(loc, view)
}

func (r *Router) resolve(loc urlenc.Location, view viewstate.View) Result {
	loc, ok := r.stripBase(loc)
	if !ok {
		log.Debug(log.CatRouter, "outside base path", "path", loc.Path, "base", r.opts.BasePath)
		return Result{Kind: NotFound}
	}

	if loc.Query.Has(viewstate.TrackingParam) {
		clean := loc
		clean.Query = loc.Query.Without(viewstate.TrackingParam)
		return Result{Kind: Redirect, Route: RouteTrackingParam, RedirectURL: r.opts.BasePath + clean.String()}
	}

	for i := range r.routes {
		rt := &r.routes[i]
		if view != "" && rt.View != view {
			continue
		}
		m := rt.Pattern.FindStringSubmatch(loc.Path)
		if m == nil {
			continue
		}
		res, ok := rt.Parse(r, m, loc)
		if !ok {
			log.Debug(log.CatRouter, "route rejected captures", "route", rt.Name, "path", loc.Path)
			continue
		}
		res.Route = rt.Name
		log.Debug(log.CatRouter, "route matched", "route", rt.Name, "kind", res.Kind, "path", loc.Path)
		return res
	}
	return Result{Kind: NotFound}
}

// stripBase removes the base path from loc.Path. A path equal to the base
// path is the root.
func (r *Router) stripBase(loc urlenc.Location) (urlenc.Location, bool) {
	base := r.opts.BasePath
	if base == "" {
		return loc, true
	}
	switch {
	case loc.Path == base:
		loc.Path = "/"
	case strings.HasPrefix(loc.Path, base+"/"):
		loc.Path = loc.Path[len(base):]
	default:
		return loc, false
	}
	return loc, true
}

// LookupRedirect returns the URL a lookup request resolves to once the
// repository of its change is known.
func (r *Router) LookupRedirect(req LookupRequest, project string) string {
	loc := urlenc.Location{
		Path:  urlgen.ChangePath(project, req.ChangeNum) + "/" + req.Rest,
		Query: req.Query,
		Hash:  req.Hash,
	}
	return r.opts.BasePath + loc.String()
}

// redirect builds a base-path-prefixed redirect result.
func (r *Router) redirect(loc urlenc.Location) Result {
	return Result{Kind: Redirect, RedirectURL: r.opts.BasePath + loc.String()}
}

// finish normalizes a parsed state. A state whose URL was not canonical
// becomes a redirect to the canonical URL.
func (r *Router) finish(s viewstate.State) (Result, bool) {
	n, redirect, err := viewstate.Normalize(s)
	if err != nil {
		return Result{}, false
	}
	if !redirect {
		return Result{Kind: Resolved, State: n}, true
	}
	u, err := r.gen.URLFor(n)
	if err != nil {
		return Result{}, false
	}
	return Result{Kind: Redirect, State: n, RedirectURL: u}, true
}
