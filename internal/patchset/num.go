// Package patchset models patch-set identifiers and the "base..patch" range
// expressions used in change and diff URLs.
package patchset

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind discriminates the variants of Num.
type Kind int

const (
	// KindUnset is the zero value: no patch set was given.
	KindUnset Kind = iota
	// KindNumbered is a real uploaded patch set, numbered from 1.
	KindNumbered
	// KindParent is the parent commit of a patch set, used as a diff base.
	KindParent
	// KindEdit is the user's in-progress change edit.
	KindEdit
	// KindMergeParent selects the Nth parent of a merge commit. Base only.
	KindMergeParent
)

func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindNumbered:
		return "numbered"
	case KindParent:
		return "parent"
	case KindEdit:
		return "edit"
	case KindMergeParent:
		return "merge-parent"
	default:
		return "unknown"
	}
}

// Tokens used in URLs and in the REST API.
const (
	EditToken   = "edit"
	ParentToken = "PARENT"
)

// ErrInvalidNum is returned when a string is not a patch-set value.
var ErrInvalidNum = errors.New("invalid patch set")

// Num is a patch-set identifier. The zero value means "unset".
type Num struct {
	kind Kind
	n    int
}

// Numbered returns patch set n. It panics if n < 1.
func Numbered(n int) Num {
	if n < 1 {
		panic(fmt.Sprintf("patchset: numbered patch set must be positive, got %d", n))
	}
	return Num{kind: KindNumbered, n: n}
}

// MergeParent returns the nth parent of a merge commit. It panics if n < 1.
func MergeParent(n int) Num {
	if n < 1 {
		panic(fmt.Sprintf("patchset: merge parent index must be positive, got %d", n))
	}
	return Num{kind: KindMergeParent, n: n}
}

// Parent is the PARENT sentinel.
func Parent() Num { return Num{kind: KindParent} }

// Edit is the EDIT sentinel.
func Edit() Num { return Num{kind: KindEdit} }

// Kind returns the variant.
func (p Num) Kind() Kind { return p.kind }

// IsZero reports whether p is unset.
func (p Num) IsZero() bool { return p.kind == KindUnset }

// IsParent reports whether p is the PARENT sentinel.
func (p Num) IsParent() bool { return p.kind == KindParent }

// IsEdit reports whether p is the EDIT sentinel.
func (p Num) IsEdit() bool { return p.kind == KindEdit }

// Number returns the patch-set number for numbered values, or the parent
// index for merge parents. ok is false for every other kind.
func (p Num) Number() (n int, ok bool) {
	if p.kind == KindNumbered || p.kind == KindMergeParent {
		return p.n, true
	}
	return 0, false
}

// String renders p the way it appears in URLs: digits, "edit", "-N".
// PARENT renders as "PARENT" and unset as the empty string; neither is
// ever written into a range expression.
func (p Num) String() string {
	switch p.kind {
	case KindNumbered:
		return strconv.Itoa(p.n)
	case KindMergeParent:
		return "-" + strconv.Itoa(p.n)
	case KindEdit:
		return EditToken
	case KindParent:
		return ParentToken
	default:
		return ""
	}
}

// ParseNum parses a single URL patch value: a positive integer, the token
// "edit", or a negative integer (merge parent). Everything else, including
// "0" and "PARENT", is rejected.
func ParseNum(s string) (Num, error) {
	if s == EditToken {
		return Edit(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || s == "" || s[0] == '+' {
		return Num{}, fmt.Errorf("%w: %q", ErrInvalidNum, s)
	}
	switch {
	case n > 0:
		return Numbered(n), nil
	case n < 0:
		return MergeParent(-n), nil
	default:
		return Num{}, fmt.Errorf("%w: %q", ErrInvalidNum, s)
	}
}

// ParseAny accepts everything ParseNum does plus the PARENT sentinel,
// spelled "PARENT" or "parent". It is meant for flags and config, not URLs.
func ParseAny(s string) (Num, error) {
	if s == ParentToken || s == "parent" {
		return Parent(), nil
	}
	return ParseNum(s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Num) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text is unset.
func (p *Num) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Num{}
		return nil
	}
	v, err := ParseAny(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
