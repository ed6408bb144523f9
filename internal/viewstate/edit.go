package viewstate

import (
	"github.com/zjrosen/gerritnav/internal/patchset"
)

// EditState is the state of the file editor.
type EditState struct {
	ChangeNum int          `json:"changeNum" yaml:"changeNum"`
	Project   string       `json:"project,omitempty" yaml:"project,omitempty"`
	PatchNum  patchset.Num `json:"patchNum,omitzero" yaml:"patchNum,omitempty"`
	Path      string       `json:"path" yaml:"path"`
	LineNum   int          `json:"lineNum,omitempty" yaml:"lineNum,omitempty"`
}

// View implements State.
func (s EditState) View() View { return Edit }

// Clone returns a copy of s.
func (s EditState) Clone() EditState { return s }

// Normalize defaults the patch set to the change edit and validates.
func (s EditState) Normalize() (EditState, error) {
	if s.PatchNum.IsZero() {
		s.PatchNum = patchset.Edit()
	}
	if err := s.Validate(); err != nil {
		return EditState{}, err
	}
	return s, nil
}

// Validate implements State.
func (s EditState) Validate() error {
	if s.ChangeNum < 1 {
		return invalid("change number must be positive, got %d", s.ChangeNum)
	}
	if err := checkSegments("project", s.Project); err != nil {
		return err
	}
	if err := checkSegments("path", s.Path); err != nil {
		return err
	}
	if s.Path == "" {
		return invalid("edit of change %d has no path", s.ChangeNum)
	}
	if s.LineNum < 0 {
		return invalid("line number must not be negative, got %d", s.LineNum)
	}
	switch s.PatchNum.Kind() {
	case patchset.KindUnset, patchset.KindNumbered, patchset.KindEdit:
		return nil
	default:
		return invalid("cannot edit patch set %s", s.PatchNum)
	}
}
