// Package viewstate defines the typed state of each top-level view.
//
// A State is produced by parsing a URL and consumed by the URL builders.
// Values are immutable by convention: stores replace them wholesale and
// callers that need to change one start from Clone.
package viewstate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// View names a top-level page.
type View string

const (
	Change    View = "change"
	Diff      View = "diff"
	Edit      View = "edit"
	Search    View = "search"
	Dashboard View = "dashboard"
)

// Views lists every view in a stable order.
func Views() []View {
	return []View{Change, Diff, Edit, Search, Dashboard}
}

// ParseView maps a view name to its View.
func ParseView(s string) (View, error) {
	for _, v := range Views() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// ErrInvalidState is returned when a state cannot be turned into a URL,
// for example a change state without a change number.
var ErrInvalidState = errors.New("invalid view state")

// State is implemented by every per-view state struct.
type State interface {
	View() View
	// Validate reports whether the state, once normalized, can be
	// rendered as a URL.
	Validate() error
}

// commentIDPattern is the shape of comment ids accepted in URLs.
var commentIDPattern = regexp.MustCompile(`^\w+$`)

// checkSegments rejects names with a path segment that is a single space.
// Such a segment encodes to "/+/", the separator between a repository and
// a change number, and the URL would no longer parse back.
func checkSegments(field, s string) error {
	for _, seg := range strings.Split(s, "/") {
		if seg == " " {
			return invalid("%s %q has a segment that is a single space", field, s)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Normalize returns the canonical form of s. redirect is true when a URL
// that parsed to s should be replaced by the canonical one.
func Normalize(s State) (out State, redirect bool, err error) {
	switch v := s.(type) {
	case ChangeState:
		return v.Normalize()
	case *ChangeState:
		return v.Normalize()
	case DiffState:
		return v.Normalize()
	case *DiffState:
		return v.Normalize()
	case EditState:
		n, err := v.Normalize()
		return n, false, err
	case *EditState:
		n, err := v.Normalize()
		return n, false, err
	case SearchState:
		n, err := v.Normalize()
		return n, false, err
	case *SearchState:
		n, err := v.Normalize()
		return n, false, err
	case DashboardState:
		n, err := v.Normalize()
		return n, false, err
	case *DashboardState:
		n, err := v.Normalize()
		return n, false, err
	case nil:
		return nil, false, invalid("nil state")
	default:
		return nil, false, invalid("unsupported state type %T", s)
	}
}
