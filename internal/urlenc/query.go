package urlenc

import "strings"

// Param is a single decoded query parameter.
type Param struct {
	Name  string
	Value string
}

// Query is an ordered list of query parameters. Order is kept because
// custom dashboards use parameter order as section order.
type Query struct {
	params []Param
}

// ParseQuery decodes an application/x-www-form-urlencoded string. Leading
// '?' characters are ignored. Pairs that fail to decode are skipped.
func ParseQuery(qs string) Query {
	qs = strings.TrimLeft(qs, "?")
	if qs == "" {
		return Query{}
	}

	var q Query
	for _, part := range strings.Split(qs, "&") {
		if part == "" {
			continue
		}
		rawName, rawValue, _ := strings.Cut(part, "=")
		name, err := DecodeComponentOnce(rawName)
		if err != nil {
			continue
		}
		value, err := DecodeComponentOnce(rawValue)
		if err != nil {
			continue
		}
		q.params = append(q.params, Param{Name: name, Value: value})
	}
	return q
}

// Len returns the number of parameters.
func (q Query) Len() int {
	return len(q.params)
}

// Get returns the value of the first parameter called name.
func (q Query) Get(name string) (string, bool) {
	for _, p := range q.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether a parameter called name is present, with or without a value.
func (q Query) Has(name string) bool {
	_, ok := q.Get(name)
	return ok
}

// Pairs returns a copy of the parameters in their original order.
func (q Query) Pairs() []Param {
	out := make([]Param, len(q.params))
	copy(out, q.params)
	return out
}

// With returns a copy of q with name=value appended.
func (q Query) With(name, value string) Query {
	params := make([]Param, len(q.params), len(q.params)+1)
	copy(params, q.params)
	return Query{params: append(params, Param{Name: name, Value: value})}
}

// Without returns a copy of q with every parameter called one of names removed.
func (q Query) Without(names ...string) Query {
	var out Query
	for _, p := range q.params {
		drop := false
		for _, n := range names {
			if p.Name == n {
				drop = true
				break
			}
		}
		if !drop {
			out.params = append(out.params, p)
		}
	}
	return out
}

// Encode renders q as name=value pairs joined by '&', each side encoded
// with Escape. Parameters with an empty value render as a bare name.
func (q Query) Encode() string {
	parts := make([]string, 0, len(q.params))
	for _, p := range q.params {
		if p.Value == "" {
			parts = append(parts, Escape(p.Name))
			continue
		}
		parts = append(parts, Escape(p.Name)+"="+Escape(p.Value))
	}
	return strings.Join(parts, "&")
}

// SplitPathQuery splits s at the first '?' into a pathname and its parsed
// query. Without a '?' the query is empty.
func SplitPathQuery(s string) (string, Query) {
	path, qs, found := strings.Cut(s, "?")
	if !found {
		return path, Query{}
	}
	return path, ParseQuery(qs)
}

// Location is an incoming navigation split into its parts. Hash excludes
// the leading '#' and keeps any inner '#' characters.
type Location struct {
	Path  string
	Query Query
	Hash  string
}

// ParseLocation splits a path-plus-query-plus-fragment string. The fragment
// starts at the first '#'.
func ParseLocation(raw string) Location {
	rest, hash, _ := strings.Cut(raw, "#")
	path, query := SplitPathQuery(rest)
	return Location{Path: path, Query: query, Hash: hash}
}

// String reassembles the location.
func (l Location) String() string {
	s := l.Path
	if l.Query.Len() > 0 {
		s += "?" + l.Query.Encode()
	}
	if l.Hash != "" {
		s += "#" + l.Hash
	}
	return s
}
