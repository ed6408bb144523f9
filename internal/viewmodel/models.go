package viewmodel

import (
	"fmt"

	"github.com/zjrosen/gerritnav/internal/viewstate"
)

// Models bundles one store per top-level view.
type Models struct {
	Change    *Store[viewstate.ChangeState]
	Diff      *Store[viewstate.DiffState]
	Edit      *Store[viewstate.EditState]
	Search    *Store[viewstate.SearchState]
	Dashboard *Store[viewstate.DashboardState]
}

// NewModels creates empty stores for every view.
func NewModels() *Models {
	return &Models{
		Change:    NewStore[viewstate.ChangeState](string(viewstate.Change)),
		Diff:      NewStore[viewstate.DiffState](string(viewstate.Diff)),
		Edit:      NewStore[viewstate.EditState](string(viewstate.Edit)),
		Search:    NewStore[viewstate.SearchState](string(viewstate.Search)),
		Dashboard: NewStore[viewstate.DashboardState](string(viewstate.Dashboard)),
	}
}

// Publish sets s on the store of its view.
func (m *Models) Publish(s viewstate.State) error {
	switch v := s.(type) {
	case viewstate.ChangeState:
		m.Change.SetState(v)
	case *viewstate.ChangeState:
		m.Change.SetState(*v)
	case viewstate.DiffState:
		m.Diff.SetState(v)
	case *viewstate.DiffState:
		m.Diff.SetState(*v)
	case viewstate.EditState:
		m.Edit.SetState(v)
	case *viewstate.EditState:
		m.Edit.SetState(*v)
	case viewstate.SearchState:
		m.Search.SetState(v)
	case *viewstate.SearchState:
		m.Search.SetState(*v)
	case viewstate.DashboardState:
		m.Dashboard.SetState(v)
	case *viewstate.DashboardState:
		m.Dashboard.SetState(*v)
	default:
		return fmt.Errorf("%w: no store for %T", viewstate.ErrInvalidState, s)
	}
	return nil
}

// Current returns the state held by the store of view.
func (m *Models) Current(view viewstate.View) (viewstate.State, bool) {
	switch view {
	case viewstate.Change:
		return current(m.Change)
	case viewstate.Diff:
		return current(m.Diff)
	case viewstate.Edit:
		return current(m.Edit)
	case viewstate.Search:
		return current(m.Search)
	case viewstate.Dashboard:
		return current(m.Dashboard)
	}
	return nil, false
}

func current[S interface {
	viewstate.State
	Cloner[S]
}](store *Store[S]) (viewstate.State, bool) {
	s, ok := store.State()
	if !ok {
		return nil, false
	}
	return s, true
}

// Reset clears every store.
func (m *Models) Reset() {
	m.Change.Reset()
	m.Diff.Reset()
	m.Edit.Reset()
	m.Search.Reset()
	m.Dashboard.Reset()
}

// Close closes the watch channels of every store.
func (m *Models) Close() {
	m.Change.Close()
	m.Diff.Close()
	m.Edit.Close()
	m.Search.Close()
	m.Dashboard.Close()
}
