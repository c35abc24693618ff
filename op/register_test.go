package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterValid(t *testing.T) {
	for r := R0; r <= R10; r++ {
		require.True(t, r.Valid(), r.String())
	}
	require.False(t, Register(11).Valid())
	require.Equal(t, "r10", FramePointer.String())
}

func TestRegisterRole(t *testing.T) {
	require.Equal(t, "return value", R0.Role())
	require.Equal(t, "input buffer", R1.Role())
	require.Equal(t, "argument", R4.Role())
	require.Equal(t, "general purpose", R9.Role())
	require.Equal(t, "frame pointer", R10.Role())
	require.Equal(t, "invalid", Register(12).Role())
}

func TestParseRegister(t *testing.T) {
	tests := []struct {
		input string
		want  Register
		err   bool
	}{
		{"R0", R0, false},
		{"r7", R7, false},
		{" R10 ", R10, false},
		{"R11", Register(11), false},
		{"X1", 0, true},
		{"R", 0, true},
		{"Rx", 0, true},
		{"R999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRegister(tt.input)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
