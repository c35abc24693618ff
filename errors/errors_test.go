package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembleErrorMessage(t *testing.T) {
	err := Assemblef(E1002, 3, "ADD", "invalid source register %s", "r11")
	require.Equal(t, "instruction 3 (ADD): invalid source register r11", err.Error())

	err = Assemblef(E1001, 0, "", "unknown opcode %d", 99)
	require.Equal(t, "instruction 0: unknown opcode 99", err.Error())

	err = Assemblef(E1006, NoIndex, "", "program has no instructions")
	require.Equal(t, "program has no instructions", err.Error())
}

func TestIssueMessage(t *testing.T) {
	issue := Issuef(E2003, SeverityError, 4, "jump target %d out of range", 9)
	require.Equal(t, "word 4: jump target 9 out of range", issue.String())
	require.Equal(t, issue.String(), issue.Error())

	issue = Issuef(E2001, SeverityError, NoIndex, "bad length")
	require.Equal(t, "bad length", issue.String())
}

func TestErrorCodeCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category string
		desc     string
	}{
		{E1001, "assemble", "unknown opcode"},
		{E1005, "assemble", "jump target out of bounds"},
		{E2001, "validate", "invalid length"},
		{E2009, "validate", "missing text section"},
		{E3002, "lint", "division by zero"},
		{E3006, "lint", "uninitialized register"},
		{ErrorCode("E9"), "unknown", "unknown error"},
		{ErrorCode(""), "unknown", "unknown error"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			require.Equal(t, tt.category, tt.code.Category())
			require.Equal(t, tt.desc, tt.code.Description())
		})
	}
}

func TestSeverityString(t *testing.T) {
	require.Equal(t, "error", SeverityError.String())
	require.Equal(t, "warning", SeverityWarning.String())
	require.Equal(t, "info", SeverityInfo.String())
}
