package testutil

import (
	"strconv"
	"time"
)

// WithStandardNavigations adds one navigation per outcome, an hour apart
// with the newest last:
//
//	/c/platform/build/+/42        resolved change
//	/c/platform/build/+/42/1..2/a.go  resolved diff
//	/q/status:open                resolved search
//	/nope                         not found
//	/c/5                          failed lookup
func (b *Builder) WithStandardNavigations() *Builder {
	now := time.Now()
	hoursAgo := func(n int) EntryOption { return At(now.Add(-time.Duration(n) * time.Hour)) }

	return b.
		WithNavigation("/c/platform/build/+/42",
			View("change"), Route("CHANGE"), hoursAgo(4),
			State(map[string]any{"view": "change", "changeNum": 42, "project": "platform/build"})).
		WithNavigation("/c/platform/build/+/42/1..2/a.go",
			View("diff"), Route("DIFF"), hoursAgo(3),
			State(map[string]any{"view": "diff", "changeNum": 42, "path": "a.go"})).
		WithNavigation("/q/status:open",
			View("search"), Route("QUERY"), hoursAgo(2),
			State(map[string]any{"view": "search", "query": "status:open"})).
		WithNavigation("/nope", NotFound(), hoursAgo(1)).
		WithNavigation("/c/5", Failed(), Route("CHANGE_LEGACY"), At(now))
}

// WithAgedNavigations adds count resolved change navigations, one day apart
// starting a day ago.
func (b *Builder) WithAgedNavigations(count int) *Builder {
	for i := 1; i <= count; i++ {
		b.WithNavigation("/c/test/+/"+strconv.Itoa(i), View("change"), Ago(time.Duration(i)*24*time.Hour))
	}
	return b
}
