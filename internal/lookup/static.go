package lookup

import (
	"context"
	"maps"
	"sync"

	"github.com/zjrosen/gerritnav/internal/log"
)

// Static resolves changes from an in-memory table, typically filled from
// the config file's pinned projects.
type Static struct {
	mu       sync.RWMutex
	projects map[int]string
}

// NewStatic copies projects into a new table.
func NewStatic(projects map[int]string) *Static {
	s := &Static{projects: make(map[int]string, len(projects))}
	maps.Copy(s.projects, projects)
	return s
}

// ProjectFor implements Resolver.
func (s *Static) ProjectFor(_ context.Context, changeNum int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[changeNum]; ok {
		return p, nil
	}
	return "", &NotFoundError{ChangeNum: changeNum}
}

// Set records the repository of a change. Replacing a different known
// repository is logged, since one of the two must be wrong.
func (s *Static) Set(changeNum int, project string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.projects[changeNum]; ok && old != project {
		log.Warn(log.CatLookup, "change seen with two repositories", "change", changeNum, "old", old, "new", project)
	}
	s.projects[changeNum] = project
}

// Snapshot returns a copy of the table.
func (s *Static) Snapshot() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.projects)
}
