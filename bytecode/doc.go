// Package bytecode provides the instruction value type and the fixed-width
// binary word format of the BPF-style virtual machine.
//
// # Key Types
//
//   - [Instruction]: An immutable, structured instruction as supplied by
//     callers (opcode, optional registers, immediate, offset, comment)
//   - [Word]: One decoded 8-byte bytecode word
//   - [WordIter]: Iterates the words of a bytecode image
//   - [Stats]: Summary counts for a bytecode image
//
// # Word Layout
//
// Every instruction encodes to exactly one little-endian word:
//
//	byte 0     opcode
//	byte 1     dst register (low nibble) | src register (high nibble)
//	bytes 2-3  signed 16-bit offset
//	bytes 4-7  signed 32-bit immediate
//
// A program of n instructions is therefore n*WordSize bytes long.
//
// # Immutability
//
// Instruction has only value-receiver methods. The With* methods return a
// modified copy, so an Instruction held by one builder can never be changed
// through another:
//
//	add := bytecode.New(op.Add).WithDst(op.R1).WithSrc(op.R2)
//	commented := add.WithComment("accumulate") // add is unchanged
package bytecode
