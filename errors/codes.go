package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Assembler (structural encoding) errors
//   - E2xxx: Bytecode validation issues
//   - E3xxx: Source lint findings
type ErrorCode string

const (
	// Assembler errors (E1xxx)
	E1001 ErrorCode = "E1001" // Unknown opcode
	E1002 ErrorCode = "E1002" // Invalid register
	E1003 ErrorCode = "E1003" // Missing operand
	E1004 ErrorCode = "E1004" // Immediate out of range
	E1005 ErrorCode = "E1005" // Jump target out of bounds
	E1006 ErrorCode = "E1006" // Empty program

	// Validation issues (E2xxx)
	E2001 ErrorCode = "E2001" // Length not a multiple of the word size
	E2002 ErrorCode = "E2002" // Missing terminal exit
	E2003 ErrorCode = "E2003" // Jump target out of bounds
	E2004 ErrorCode = "E2004" // Unknown opcode byte
	E2005 ErrorCode = "E2005" // Invalid register nibble
	E2006 ErrorCode = "E2006" // Empty bytecode
	E2007 ErrorCode = "E2007" // Program too large
	E2008 ErrorCode = "E2008" // Malformed ELF object
	E2009 ErrorCode = "E2009" // Missing text section
	E2010 ErrorCode = "E2010" // Missing program headers
	E2011 ErrorCode = "E2011" // Missing entry point symbol

	// Lint findings (E3xxx)
	E3001 ErrorCode = "E3001" // Unreachable code
	E3002 ErrorCode = "E3002" // Division by zero
	E3003 ErrorCode = "E3003" // Frame pointer write
	E3004 ErrorCode = "E3004" // Large frame offset
	E3005 ErrorCode = "E3005" // Missing exit
	E3006 ErrorCode = "E3006" // Uninitialized register read
	E3007 ErrorCode = "E3007" // Three-operand ALU
	E3008 ErrorCode = "E3008" // Possible overflow
	E3009 ErrorCode = "E3009" // Unchecked divisor
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E1001: "unknown opcode",
	E1002: "invalid register",
	E1003: "missing operand",
	E1004: "immediate out of range",
	E1005: "jump target out of bounds",
	E1006: "empty program",

	E2001: "invalid length",
	E2002: "missing exit",
	E2003: "jump target out of bounds",
	E2004: "unknown opcode",
	E2005: "invalid register",
	E2006: "empty bytecode",
	E2007: "program too large",
	E2008: "malformed ELF",
	E2009: "missing text section",
	E2010: "missing program headers",
	E2011: "missing entry point",

	E3001: "unreachable code",
	E3002: "division by zero",
	E3003: "frame pointer write",
	E3004: "large frame offset",
	E3005: "missing exit",
	E3006: "uninitialized register",
	E3007: "nonstandard encoding",
	E3008: "possible overflow",
	E3009: "unchecked divisor",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "assemble"
	case '2':
		return "validate"
	case '3':
		return "lint"
	default:
		return "unknown"
	}
}
