package patchset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is returned for range expressions or pairs that cannot
// name a comparison.
var ErrInvalidRange = errors.New("invalid patch range")

const rangeSep = ".."

// Range is the pair compared by a change or diff view.
type Range struct {
	Base  Num `json:"basePatchNum,omitzero" yaml:"basePatchNum,omitempty"`
	Patch Num `json:"patchNum,omitzero" yaml:"patchNum,omitempty"`
}

// IsZero reports whether neither side is set.
func (r Range) IsZero() bool {
	return r.Base.IsZero() && r.Patch.IsZero()
}

// String renders r without normalizing it first. An unset or PARENT base
// is omitted; a base without a patch renders as "base..".
func (r Range) String() string {
	s := ""
	if !r.Patch.IsZero() && !r.Patch.IsParent() {
		s = r.Patch.String()
	}
	if !r.Base.IsZero() && !r.Base.IsParent() {
		s = r.Base.String() + rangeSep + s
	}
	return s
}

// Normalize applies the range invariants:
//   - a PARENT patch is treated as unset,
//   - a lone base that is not PARENT becomes the patch, with a PARENT base,
//   - a set patch with an unset base gets a PARENT base,
//   - equal base and patch collapse to a PARENT base.
//
// collapsed is true only for the last case, where the incoming URL was not
// canonical and callers should redirect. A merge parent on the patch side
// is an error.
func Normalize(r Range) (out Range, collapsed bool, err error) {
	if r.Patch.IsParent() {
		r.Patch = Num{}
	}
	if r.Patch.Kind() == KindMergeParent {
		return Range{}, false, fmt.Errorf("%w: merge parent %s cannot be the patch side", ErrInvalidRange, r.Patch)
	}

	if r.Patch.IsZero() {
		switch r.Base.Kind() {
		case KindUnset, KindParent:
			return Range{}, false, nil
		case KindMergeParent:
			return Range{}, false, fmt.Errorf("%w: lone merge parent %s", ErrInvalidRange, r.Base)
		default:
			return Range{Base: Parent(), Patch: r.Base}, false, nil
		}
	}

	if r.Base.IsZero() {
		r.Base = Parent()
		return r, false, nil
	}
	if r.Base == r.Patch {
		r.Base = Parent()
		return r, true, nil
	}
	return r, false, nil
}

// EncodeRange normalizes r and renders the minimal URL segment for it:
// "" when nothing is set, "patch" against PARENT, "base..patch" otherwise.
func EncodeRange(r Range) (string, error) {
	n, _, err := Normalize(r)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// DecodeRange parses "patch", "base..patch" or "base.." and returns the
// normalized range. The empty string is the empty range.
func DecodeRange(expr string) (Range, error) {
	if expr == "" {
		return Range{}, nil
	}

	left, right, hasSep := strings.Cut(expr, rangeSep)
	base, err := ParseNum(left)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, expr, err)
	}

	r := Range{Base: base}
	if hasSep && right != "" {
		patch, err := ParseNum(right)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, expr, err)
		}
		r.Patch = patch
	}

	n, _, err := Normalize(r)
	if err != nil {
		return Range{}, err
	}
	return n, nil
}
