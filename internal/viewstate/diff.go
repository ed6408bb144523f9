package viewstate

import (
	"github.com/zjrosen/gerritnav/internal/patchset"
)

// DiffState is the state of the single-file diff page, or of a comment
// deep link that the diff page resolves to a file.
type DiffState struct {
	ChangeNum    int          `json:"changeNum" yaml:"changeNum"`
	Project      string       `json:"project,omitempty" yaml:"project,omitempty"`
	BasePatchNum patchset.Num `json:"basePatchNum,omitzero" yaml:"basePatchNum,omitempty"`
	PatchNum     patchset.Num `json:"patchNum,omitzero" yaml:"patchNum,omitempty"`
	Path         string       `json:"path,omitempty" yaml:"path,omitempty"`

	// LineNum is the cursor line; 0 means no cursor. LeftSide puts it
	// on the base side.
	LineNum  int  `json:"lineNum,omitempty" yaml:"lineNum,omitempty"`
	LeftSide bool `json:"leftSide,omitempty" yaml:"leftSide,omitempty"`

	CommentID   string `json:"commentId,omitempty" yaml:"commentId,omitempty"`
	CommentLink bool   `json:"commentLink,omitempty" yaml:"commentLink,omitempty"`
}

// View implements State.
func (s DiffState) View() View { return Diff }

// Range returns the patch range of the state.
func (s DiffState) Range() patchset.Range {
	return patchset.Range{Base: s.BasePatchNum, Patch: s.PatchNum}
}

// WithRange returns a copy of s showing r.
func (s DiffState) WithRange(r patchset.Range) DiffState {
	s.BasePatchNum, s.PatchNum = r.Base, r.Patch
	return s
}

// Clone returns a copy of s.
func (s DiffState) Clone() DiffState { return s }

// Normalize applies the patch range rules, derives CommentLink from
// CommentID, and validates the result.
func (s DiffState) Normalize() (DiffState, bool, error) {
	r, collapsed, err := patchset.Normalize(s.Range())
	if err != nil {
		return DiffState{}, false, rangeError(err)
	}
	out := s.WithRange(r)
	out.CommentLink = out.CommentID != ""
	if out.LineNum == 0 {
		out.LeftSide = false
	}
	if err := out.Validate(); err != nil {
		return DiffState{}, false, err
	}
	return out, collapsed, nil
}

// Validate implements State.
func (s DiffState) Validate() error {
	if s.ChangeNum < 1 {
		return invalid("change number must be positive, got %d", s.ChangeNum)
	}
	if err := checkSegments("project", s.Project); err != nil {
		return err
	}
	if err := checkSegments("path", s.Path); err != nil {
		return err
	}
	if s.LineNum < 0 {
		return invalid("line number must not be negative, got %d", s.LineNum)
	}
	r, _, err := patchset.Normalize(s.Range())
	if err != nil {
		return rangeError(err)
	}

	switch {
	case s.CommentID != "" && s.Path != "":
		return invalid("diff has both path %q and comment %q", s.Path, s.CommentID)
	case s.CommentID != "":
		if !commentIDPattern.MatchString(s.CommentID) {
			return invalid("comment id %q", s.CommentID)
		}
		if !r.IsZero() || s.LineNum != 0 {
			return invalid("comment link %q cannot carry a patch range or line", s.CommentID)
		}
	case s.Path == "":
		return invalid("diff of change %d has no path", s.ChangeNum)
	case r.Patch.IsZero():
		return invalid("diff of %q has no patch set", s.Path)
	}
	return nil
}
