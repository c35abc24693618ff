// Package errors defines the error and issue types reported by the
// assembler, the bytecode validator and the linter.
package errors

import (
	"fmt"
)

// NoIndex marks an error that is not tied to a single instruction.
const NoIndex = -1

// AssembleError is a structural error found while assembling an instruction
// sequence.
type AssembleError struct {
	Code    ErrorCode
	Index   int // instruction index, or NoIndex
	Opcode  string
	Message string
}

// Error implements the error interface.
func (e *AssembleError) Error() string {
	if e.Index == NoIndex {
		return e.Message
	}
	if e.Opcode != "" {
		return fmt.Sprintf("instruction %d (%s): %s", e.Index, e.Opcode, e.Message)
	}
	return fmt.Sprintf("instruction %d: %s", e.Index, e.Message)
}

// Assemblef creates an AssembleError for the instruction at index.
func Assemblef(code ErrorCode, index int, opcode string, format string, args ...any) *AssembleError {
	return &AssembleError{
		Code:    code,
		Index:   index,
		Opcode:  opcode,
		Message: fmt.Sprintf(format, args...),
	}
}

// Severity ranks an Issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Issue is a finding produced by validation or lint. Word is the index of the
// instruction or bytecode word involved, or NoIndex.
type Issue struct {
	Code     ErrorCode
	Severity Severity
	Word     int
	Message  string
}

// Error implements the error interface so issues can be accumulated with
// other errors.
func (i *Issue) Error() string {
	return i.String()
}

// String returns the message prefixed with its location when known.
func (i *Issue) String() string {
	if i.Word == NoIndex {
		return i.Message
	}
	return fmt.Sprintf("word %d: %s", i.Word, i.Message)
}

// Issuef creates an Issue.
func Issuef(code ErrorCode, severity Severity, word int, format string, args ...any) *Issue {
	return &Issue{
		Code:     code,
		Severity: severity,
		Word:     word,
		Message:  fmt.Sprintf(format, args...),
	}
}
