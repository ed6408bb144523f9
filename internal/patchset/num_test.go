package patchset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNum(t *testing.T) {
	tests := []struct {
		input string
		want  Num
	}{
		{"1", Numbered(1)},
		{"12", Numbered(12)},
		{"edit", Edit()},
		{"-1", MergeParent(1)},
		{"-3", MergeParent(3)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNum(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseNum_Rejects(t *testing.T) {
	for _, input := range []string{"", "0", "-0", "+3", "PARENT", "Edit", "abc", "1.5", "1..2"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseNum(input)
			require.ErrorIs(t, err, ErrInvalidNum)
		})
	}
}

func TestParseAny_AcceptsParent(t *testing.T) {
	got, err := ParseAny("PARENT")
	require.NoError(t, err)
	require.True(t, got.IsParent())

	got, err = ParseAny("parent")
	require.NoError(t, err)
	require.True(t, got.IsParent())
}

func TestNum_ZeroValueIsUnset(t *testing.T) {
	var n Num
	require.True(t, n.IsZero())
	require.Equal(t, KindUnset, n.Kind())
	require.Equal(t, "", n.String())
	_, ok := n.Number()
	require.False(t, ok)
}

func TestNum_SentinelsDistinctFromNumbers(t *testing.T) {
	require.NotEqual(t, MergeParent(1), Numbered(1))
	require.NotEqual(t, Parent(), Num{})
	require.NotEqual(t, Edit(), Parent())
}

func TestNumbered_PanicsOnNonPositive(t *testing.T) {
	require.Panics(t, func() { Numbered(0) })
	require.Panics(t, func() { MergeParent(-1) })
}

func TestNum_JSON(t *testing.T) {
	type wrapper struct {
		P Num `json:"p,omitzero"`
	}

	data, err := json.Marshal(wrapper{P: Edit()})
	require.NoError(t, err)
	require.JSONEq(t, `{"p":"edit"}`, string(data))

	data, err = json.Marshal(wrapper{})
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"p":"PARENT"}`), &w))
	require.True(t, w.P.IsParent())
}
