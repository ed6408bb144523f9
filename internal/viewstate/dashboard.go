package viewstate

import (
	"regexp"
	"slices"
	"strings"
)

// Self is the user name that stands for the signed-in user.
const Self = "self"

// DefaultDashboardTitle is the title of a custom dashboard without one.
const DefaultDashboardTitle = "Custom Dashboard"

// Reserved query parameter names that cannot name a section.
const (
	TitleParam    = "title"
	ForEachParam  = "foreach"
	TrackingParam = "usp"
)

// Section is one titled query of a dashboard.
type Section struct {
	Name  string `json:"name" yaml:"name"`
	Query string `json:"query" yaml:"query"`
}

// DashboardState is the state of the dashboard page. Exactly one shape is
// meaningful at a time: custom (Sections set), repository (Project and
// Dashboard set) or user (User set).
type DashboardState struct {
	User      string    `json:"user,omitempty" yaml:"user,omitempty"`
	Project   string    `json:"project,omitempty" yaml:"project,omitempty"`
	Dashboard string    `json:"dashboard,omitempty" yaml:"dashboard,omitempty"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Sections  []Section `json:"sections,omitempty" yaml:"sections,omitempty"`
}

// View implements State.
func (s DashboardState) View() View { return Dashboard }

// Clone returns a deep copy of s.
func (s DashboardState) Clone() DashboardState {
	s.Sections = slices.Clone(s.Sections)
	return s
}

// IsCustom reports whether s lists its own sections.
func (s DashboardState) IsCustom() bool { return len(s.Sections) > 0 }

var repoToken = regexp.MustCompile(`\$\{(project|repo)\}`)

// SubstituteRepo replaces ${repo} and ${project} tokens in query.
func SubstituteRepo(query, repo string) string {
	if repo == "" {
		return query
	}
	return repoToken.ReplaceAllLiteralString(query, repo)
}

// IsReservedSectionName reports whether name collides with a dashboard
// or tracking query parameter.
func IsReservedSectionName(name string) bool {
	switch strings.ToLower(name) {
	case TitleParam, ForEachParam, TrackingParam:
		return true
	}
	return false
}

// Normalize puts s in the shape a parsed URL produces. Custom dashboards
// always have a title and have the repository substituted into their
// queries. The user of custom and user dashboards defaults to self.
func (s DashboardState) Normalize() (DashboardState, error) {
	var out DashboardState
	switch {
	case s.IsCustom():
		out = DashboardState{User: s.User, Title: s.Title}
		if out.User == "" {
			out.User = Self
		}
		if out.Title == "" {
			out.Title = DefaultDashboardTitle
		}
		out.Sections = make([]Section, len(s.Sections))
		for i, sec := range s.Sections {
			out.Sections[i] = Section{Name: sec.Name, Query: SubstituteRepo(sec.Query, s.Project)}
		}
	case s.Project != "":
		out = DashboardState{Project: s.Project, Dashboard: s.Dashboard}
	default:
		out = DashboardState{User: s.User}
		if out.User == "" {
			out.User = Self
		}
	}
	if err := out.Validate(); err != nil {
		return DashboardState{}, err
	}
	return out, nil
}

// Validate implements State.
func (s DashboardState) Validate() error {
	if s.IsCustom() {
		for _, sec := range s.Sections {
			if sec.Name == "" || sec.Query == "" {
				return invalid("dashboard section %q needs a name and a query", sec.Name)
			}
			if IsReservedSectionName(sec.Name) {
				return invalid("dashboard section name %q is reserved", sec.Name)
			}
		}
		return nil
	}
	if err := checkSegments("project", s.Project); err != nil {
		return err
	}
	if err := checkSegments("dashboard", s.Dashboard); err != nil {
		return err
	}
	if s.Project != "" && s.Dashboard == "" {
		return invalid("repository dashboard for %q has no dashboard id", s.Project)
	}
	return nil
}
