package viewstate

import (
	"regexp"
	"slices"
	"strings"
)

// SearchState is the state of the change search page.
//
// Query is the search expression. The operator fields are an alternative
// way of describing a search when building a URL; Normalize folds them
// into Query, so states parsed from URLs only ever carry Query.
type SearchState struct {
	Query  string `json:"query,omitempty" yaml:"query,omitempty"`
	Offset int    `json:"offset,omitempty" yaml:"offset,omitempty"`

	Owner    string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Project  string   `json:"project,omitempty" yaml:"project,omitempty"`
	Branch   string   `json:"branch,omitempty" yaml:"branch,omitempty"`
	Topic    string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Hashtag  string   `json:"hashtag,omitempty" yaml:"hashtag,omitempty"`
	Statuses []string `json:"statuses,omitempty" yaml:"statuses,omitempty"`
}

// View implements State.
func (s SearchState) View() View { return Search }

// Clone returns a deep copy of s.
func (s SearchState) Clone() SearchState {
	s.Statuses = slices.Clone(s.Statuses)
	return s
}

// HasOperators reports whether any operator field is set.
func (s SearchState) HasOperators() bool {
	return s.Owner != "" || s.Project != "" || s.Branch != "" ||
		s.Topic != "" || s.Hashtag != "" || len(s.Statuses) > 0
}

// needsQuotes matches operator values that must be quoted.
var needsQuotes = regexp.MustCompile(`[\s:]`)

// QuoteWhen wraps s in double quotes when cond holds.
func QuoteWhen(s string, cond bool) string {
	if cond {
		return `"` + s + `"`
	}
	return s
}

// NeedsQuotes reports whether an operator value must be quoted.
func NeedsQuotes(s string) bool {
	return needsQuotes.MatchString(s)
}

// Operators renders each operator field as a query term. Every value is
// passed through enc first; quoting is decided on the raw value. Hashtags
// are lowercased and several statuses become an OR group.
func (s SearchState) Operators(enc func(string) string) []string {
	var ops []string
	if s.Owner != "" {
		ops = append(ops, "owner:"+enc(s.Owner))
	}
	if s.Project != "" {
		ops = append(ops, "project:"+enc(s.Project))
	}
	if s.Branch != "" {
		ops = append(ops, "branch:"+enc(s.Branch))
	}
	if s.Topic != "" {
		ops = append(ops, "topic:"+QuoteWhen(enc(s.Topic), NeedsQuotes(s.Topic)))
	}
	if s.Hashtag != "" {
		ops = append(ops, "hashtag:"+QuoteWhen(enc(strings.ToLower(s.Hashtag)), NeedsQuotes(s.Hashtag)))
	}
	switch len(s.Statuses) {
	case 0:
	case 1:
		ops = append(ops, "status:"+enc(s.Statuses[0]))
	default:
		group := make([]string, len(s.Statuses))
		for i, st := range s.Statuses {
			group[i] = "status:" + enc(st)
		}
		ops = append(ops, "("+strings.Join(group, " OR ")+")")
	}
	return ops
}

// OperatorQuery joins the unencoded operator terms into one expression.
func (s SearchState) OperatorQuery() string {
	return strings.Join(s.Operators(func(v string) string { return v }), " ")
}

// Normalize folds operator fields into Query when Query is empty and
// drops them otherwise.
func (s SearchState) Normalize() (SearchState, error) {
	out := SearchState{Query: s.Query, Offset: s.Offset}
	if out.Query == "" {
		out.Query = s.OperatorQuery()
	}
	if err := out.Validate(); err != nil {
		return SearchState{}, err
	}
	return out, nil
}

// Validate implements State.
func (s SearchState) Validate() error {
	if s.Offset < 0 {
		return invalid("search offset must not be negative, got %d", s.Offset)
	}
	if s.Query == "" && !s.HasOperators() {
		return invalid("search has no query")
	}
	return nil
}
