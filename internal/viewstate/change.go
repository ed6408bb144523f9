package viewstate

import (
	"errors"

	"github.com/zjrosen/gerritnav/internal/patchset"
)

// ChangeState is the state of the change page.
type ChangeState struct {
	ChangeNum    int          `json:"changeNum" yaml:"changeNum"`
	Project      string       `json:"project,omitempty" yaml:"project,omitempty"`
	BasePatchNum patchset.Num `json:"basePatchNum,omitzero" yaml:"basePatchNum,omitempty"`
	PatchNum     patchset.Num `json:"patchNum,omitzero" yaml:"patchNum,omitempty"`

	// Edit shows the change in edit mode.
	Edit bool `json:"edit,omitempty" yaml:"edit,omitempty"`
	// CommentID opens the comments tab scrolled to one thread.
	CommentID string `json:"commentId,omitempty" yaml:"commentId,omitempty"`

	ForceReload     bool   `json:"forceReload,omitempty" yaml:"forceReload,omitempty"`
	OpenReplyDialog bool   `json:"openReplyDialog,omitempty" yaml:"openReplyDialog,omitempty"`
	Tab             string `json:"tab,omitempty" yaml:"tab,omitempty"`
	Filter          string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Select          string `json:"select,omitempty" yaml:"select,omitempty"`
	Attempt         int    `json:"attempt,omitempty" yaml:"attempt,omitempty"`

	// MessageHash is the fragment naming a change message, without '#'.
	MessageHash string `json:"messageHash,omitempty" yaml:"messageHash,omitempty"`
}

// View implements State.
func (s ChangeState) View() View { return Change }

// Range returns the patch range of the state.
func (s ChangeState) Range() patchset.Range {
	return patchset.Range{Base: s.BasePatchNum, Patch: s.PatchNum}
}

// WithRange returns a copy of s showing r.
func (s ChangeState) WithRange(r patchset.Range) ChangeState {
	s.BasePatchNum, s.PatchNum = r.Base, r.Patch
	return s
}

// Clone returns a copy of s.
func (s ChangeState) Clone() ChangeState { return s }

// Normalize applies the patch range rules and validates the result.
func (s ChangeState) Normalize() (ChangeState, bool, error) {
	r, collapsed, err := patchset.Normalize(s.Range())
	if err != nil {
		return ChangeState{}, false, rangeError(err)
	}
	out := s.WithRange(r)
	if err := out.Validate(); err != nil {
		return ChangeState{}, false, err
	}
	return out, collapsed, nil
}

// Validate implements State.
func (s ChangeState) Validate() error {
	if s.ChangeNum < 1 {
		return invalid("change number must be positive, got %d", s.ChangeNum)
	}
	if err := checkSegments("project", s.Project); err != nil {
		return err
	}
	if s.Attempt < 0 {
		return invalid("attempt must not be negative, got %d", s.Attempt)
	}
	r, _, err := patchset.Normalize(s.Range())
	if err != nil {
		return rangeError(err)
	}

	if s.CommentID != "" {
		if !commentIDPattern.MatchString(s.CommentID) {
			return invalid("comment id %q", s.CommentID)
		}
		if !r.IsZero() || s.Edit {
			return invalid("comment link on change %d cannot carry a patch range or edit mode", s.ChangeNum)
		}
	}

	if s.Edit {
		if !r.Base.IsParent() && !r.Base.IsZero() {
			return invalid("edit mode cannot compare against base %s", r.Base)
		}
		if r.Patch.Kind() != patchset.KindNumbered && !r.Patch.IsZero() {
			return invalid("edit mode needs a numbered patch set, got %s", r.Patch)
		}
	}
	return nil
}

func rangeError(err error) error {
	if errors.Is(err, ErrInvalidState) {
		return err
	}
	return invalid("%v", err)
}
