package viewstate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/gerritnav/internal/patchset"
)

func TestParseView(t *testing.T) {
	for _, v := range Views() {
		got, err := ParseView(string(v))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
	_, err := ParseView("admin")
	require.Error(t, err)
}

func TestChangeState_Normalize(t *testing.T) {
	t.Run("equal range collapses and asks for redirect", func(t *testing.T) {
		s := ChangeState{ChangeNum: 1, BasePatchNum: patchset.Numbered(5), PatchNum: patchset.Numbered(5)}
		got, redirect, err := s.Normalize()
		require.NoError(t, err)
		require.True(t, redirect)
		require.Equal(t, patchset.Parent(), got.BasePatchNum)
		require.Equal(t, patchset.Numbered(5), got.PatchNum)
	})

	t.Run("lone base moves to patch", func(t *testing.T) {
		s := ChangeState{ChangeNum: 1, BasePatchNum: patchset.Numbered(5)}
		got, redirect, err := s.Normalize()
		require.NoError(t, err)
		require.False(t, redirect)
		require.Equal(t, patchset.Parent(), got.BasePatchNum)
		require.Equal(t, patchset.Numbered(5), got.PatchNum)
	})

	t.Run("lone merge parent rejected", func(t *testing.T) {
		s := ChangeState{ChangeNum: 1, BasePatchNum: patchset.MergeParent(1)}
		_, _, err := s.Normalize()
		require.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestChangeState_Validate(t *testing.T) {
	tests := []struct {
		name  string
		state ChangeState
		ok    bool
	}{
		{"plain", ChangeState{ChangeNum: 1}, true},
		{"missing change number", ChangeState{}, false},
		{"negative attempt", ChangeState{ChangeNum: 1, Attempt: -1}, false},
		{"comment", ChangeState{ChangeNum: 1, CommentID: "abc_1"}, true},
		{"comment with range", ChangeState{ChangeNum: 1, CommentID: "abc", PatchNum: patchset.Numbered(2)}, false},
		{"comment with edit", ChangeState{ChangeNum: 1, CommentID: "abc", Edit: true}, false},
		{"comment id with slash", ChangeState{ChangeNum: 1, CommentID: "a/b"}, false},
		{"edit on patch", ChangeState{ChangeNum: 1, Edit: true, PatchNum: patchset.Numbered(3)}, true},
		{"edit with base", ChangeState{ChangeNum: 1, Edit: true, BasePatchNum: patchset.Numbered(1), PatchNum: patchset.Numbered(3)}, false},
		{"edit on edit", ChangeState{ChangeNum: 1, Edit: true, PatchNum: patchset.Edit()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidState)
			}
		})
	}
}

func TestDiffState_Normalize(t *testing.T) {
	t.Run("comment link derived", func(t *testing.T) {
		got, _, err := DiffState{ChangeNum: 3, CommentID: "c1"}.Normalize()
		require.NoError(t, err)
		require.True(t, got.CommentLink)
	})

	t.Run("left side without line is dropped", func(t *testing.T) {
		got, _, err := DiffState{ChangeNum: 3, PatchNum: patchset.Numbered(1), Path: "a", LeftSide: true}.Normalize()
		require.NoError(t, err)
		require.False(t, got.LeftSide)
	})

	t.Run("path and comment are exclusive", func(t *testing.T) {
		_, _, err := DiffState{ChangeNum: 3, PatchNum: patchset.Numbered(1), Path: "a", CommentID: "c"}.Normalize()
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("path needs a patch set", func(t *testing.T) {
		_, _, err := DiffState{ChangeNum: 3, Path: "a"}.Normalize()
		require.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestEditState_DefaultsToEditPatch(t *testing.T) {
	got, err := EditState{ChangeNum: 9, Path: "f"}.Normalize()
	require.NoError(t, err)
	require.True(t, got.PatchNum.IsEdit())

	_, err = EditState{ChangeNum: 9}.Normalize()
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = EditState{ChangeNum: 9, Path: "f", PatchNum: patchset.Parent()}.Normalize()
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSearchState_OperatorQuery(t *testing.T) {
	s := SearchState{
		Owner:    "a%b",
		Project:  "c",
		Topic:    "test test",
		Hashtag:  "FooBar",
		Statuses: []string{"open", "merged"},
	}
	require.Equal(t, `owner:a%b project:c topic:"test test" hashtag:foobar (status:open OR status:merged)`, s.OperatorQuery())

	got, err := s.Normalize()
	require.NoError(t, err)
	require.Equal(t, SearchState{Query: s.OperatorQuery()}, got)
}

func TestSearchState_QueryWins(t *testing.T) {
	got, err := SearchState{Query: "is:open", Owner: "x", Offset: 25}.Normalize()
	require.NoError(t, err)
	require.Equal(t, SearchState{Query: "is:open", Offset: 25}, got)

	_, err = SearchState{}.Normalize()
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDashboardState_Normalize(t *testing.T) {
	t.Run("user defaults to self", func(t *testing.T) {
		got, err := DashboardState{}.Normalize()
		require.NoError(t, err)
		require.Equal(t, DashboardState{User: Self}, got)
	})

	t.Run("custom substitutes repo", func(t *testing.T) {
		got, err := DashboardState{
			Project:  "gerrit",
			Sections: []Section{{Name: "mine", Query: "project:${repo} is:open"}, {Name: "old", Query: "project:${project}"}},
		}.Normalize()
		require.NoError(t, err)
		require.Equal(t, DashboardState{
			User:     Self,
			Title:    DefaultDashboardTitle,
			Sections: []Section{{Name: "mine", Query: "project:gerrit is:open"}, {Name: "old", Query: "project:gerrit"}},
		}, got)
	})

	t.Run("reserved section name", func(t *testing.T) {
		_, err := DashboardState{Sections: []Section{{Name: "Title", Query: "q"}}}.Normalize()
		require.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("repo dashboard needs id", func(t *testing.T) {
		_, err := DashboardState{Project: "p"}.Normalize()
		require.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestClone_IsDeep(t *testing.T) {
	d := DashboardState{Sections: []Section{{Name: "a", Query: "b"}}}
	c := d.Clone()
	c.Sections[0].Name = "z"
	require.Equal(t, "a", d.Sections[0].Name)

	s := SearchState{Statuses: []string{"open"}}
	sc := s.Clone()
	sc.Statuses[0] = "merged"
	require.Equal(t, "open", s.Statuses[0])
}

func TestNormalize_Dispatch(t *testing.T) {
	out, redirect, err := Normalize(&ChangeState{ChangeNum: 2, BasePatchNum: patchset.Numbered(1), PatchNum: patchset.Numbered(1)})
	require.NoError(t, err)
	require.True(t, redirect)
	require.IsType(t, ChangeState{}, out)

	_, _, err = Normalize(nil)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestChangeState_JSONOmitsUnset(t *testing.T) {
	data, err := json.Marshal(ChangeState{ChangeNum: 7, PatchNum: patchset.Numbered(2), BasePatchNum: patchset.Parent()})
	require.NoError(t, err)
	require.JSONEq(t, `{"changeNum":7,"basePatchNum":"PARENT","patchNum":"2"}`, string(data))
}
