package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	names := []string{"JUMP", "JUMP_IF_EQUAL", "JUMP_IF_NOT_EQUAL", "LOAD", "LOAD_IMM", "MOV", "EXIT"}
	tests := []struct {
		target string
		want   []string
	}{
		{"JUMPP", []string{"JUMP"}},
		{"load_im", []string{"LOAD_IMM", "LOAD"}},
		{"jump_if_equl", []string{"JUMP_IF_EQUAL"}},
		{"MOVE", []string{"MOV"}},
		{"EXIT", []string{}},
		{"frobnicate", []string{}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got := Suggest(tt.target, names)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestLimit(t *testing.T) {
	got := Suggest("ab", []string{"aa", "ac", "ad", "ae", "bb"})
	require.Equal(t, []string{"aa", "ac", "ad"}, got)
}

func TestHint(t *testing.T) {
	require.Equal(t, ` (did you mean "sonic"?)`, Hint("sonik", []string{"solana", "sonic", "eclipse", "soon"}))
	require.Equal(t, ` (did you mean one of "aa", "ab"?)`, Hint("a", []string{"ab", "aa"}))
	require.Equal(t, "", Hint("ethereum", []string{"solana", "sonic"}))
}

func TestEditDistance(t *testing.T) {
	require.Equal(t, 0, editDistance("mov", "mov"))
	require.Equal(t, 3, editDistance("", "mov"))
	require.Equal(t, 1, editDistance("mov", "mod"))
	require.Equal(t, 3, editDistance("kitten", "sitting"))
}
