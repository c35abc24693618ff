package op

import (
	"fmt"
	"strconv"
	"strings"
)

// Register names one of the eleven VM registers.
//
//	R0       exit/return code; also receives syscall results
//	R1       pointer to the program input buffer; first syscall argument
//	R2..R5   syscall arguments, otherwise general purpose
//	R6..R9   general purpose, preserved across syscalls
//	R10      frame pointer, read-only by convention
//
// The convention is not enforced by the assembler.
type Register uint8

const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
)

// FramePointer is the register that addresses the current stack frame.
const FramePointer = R10

// RegisterCount is the number of addressable registers.
const RegisterCount = 11

// Valid reports whether r is one of R0..R10.
func (r Register) Valid() bool {
	return r <= R10
}

// String returns the listing form of the register, for example "r3".
func (r Register) String() string {
	return "r" + strconv.Itoa(int(r))
}

// Role describes the calling-convention role of the register.
func (r Register) Role() string {
	switch {
	case r == R0:
		return "return value"
	case r == R1:
		return "input buffer"
	case r >= R2 && r <= R5:
		return "argument"
	case r >= R6 && r <= R9:
		return "general purpose"
	case r == R10:
		return "frame pointer"
	default:
		return "invalid"
	}
}

// ParseRegister parses "R3" or "r3". Numbers outside R0..R10 parse
// successfully so that the assembler can report them with the instruction
// they belong to; only malformed names are rejected here.
func ParseRegister(s string) (Register, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 || (trimmed[0] != 'r' && trimmed[0] != 'R') {
		return 0, fmt.Errorf("malformed register name %q", s)
	}
	n, err := strconv.ParseUint(trimmed[1:], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("malformed register name %q", s)
	}
	return Register(n), nil
}
