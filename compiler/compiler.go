// Package compiler assembles an ordered sequence of structured instructions
// into a human-readable listing and a bytecode image.
//
// # Single Pass Assembly
//
// Instructions are assembled strictly in program order. Each instruction
// becomes exactly one bytecode word, so the index of an instruction is also
// its word index and a jump's target is known without a separate layout
// pass:
//
//	target = index + 1 + offset
//
// # Error Collection
//
// Malformed input never aborts assembly. Every structural error found in the
// sequence (unknown opcode, invalid register, missing operand, immediate out
// of range, jump target outside the program) is collected in instruction
// order and reported together in the Result. A Result with errors never
// carries bytecode.
//
// Warnings describe programs that encode correctly but are probably wrong
// (no terminal EXIT, unreachable code, very large frame offsets). They never
// affect success.
package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/op"
)

// DefaultMaxFrameOffset is the absolute memory offset above which a warning
// is produced.
const DefaultMaxFrameOffset = 512

// Compiler assembles instruction sequences. A Compiler holds no state
// between calls and may be reused.
type Compiler struct {
	log            zerolog.Logger
	maxFrameOffset int
}

// Config holds compiler configuration options.
type Config struct {
	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger

	// MaxFrameOffset overrides DefaultMaxFrameOffset when positive.
	MaxFrameOffset int
}

// Compile assembles the given instructions. Pass nil for cfg to use default
// settings.
func Compile(instructions []bytecode.Instruction, cfg *Config) *Result {
	return New(cfg).Compile(instructions)
}

// New creates and returns a new Compiler. Pass nil for cfg to use defaults.
func New(cfg *Config) *Compiler {
	c := &Compiler{
		log:            zerolog.Nop(),
		maxFrameOffset: DefaultMaxFrameOffset,
	}
	if cfg != nil {
		if cfg.Logger != nil {
			c.log = *cfg.Logger
		}
		if cfg.MaxFrameOffset > 0 {
			c.maxFrameOffset = cfg.MaxFrameOffset
		}
	}
	return c
}

// Compile assembles the given instructions into a listing and, when no
// structural errors are found, a bytecode image.
func (c *Compiler) Compile(instructions []bytecode.Instruction) *Result {
	n := len(instructions)
	var failures *multierror.Error
	if n == 0 {
		failures = multierror.Append(failures,
			errors.Assemblef(errors.E1006, errors.NoIndex, "", "program has no instructions"))
	}

	image := make([]byte, 0, n*bytecode.WordSize)
	lines := make([]string, 0, n)
	for i, in := range instructions {
		lines = append(lines, listingLine(i, in))
		word, errs := c.encode(i, in, n)
		if len(errs) > 0 {
			failures = multierror.Append(failures, errs...)
			continue
		}
		image = word.AppendTo(image)
	}

	result := &Result{
		Assembly:         strings.Join(lines, "\n"),
		InstructionCount: n,
		Warnings:         c.warnings(instructions),
	}
	if err := failures.ErrorOrNil(); err != nil {
		result.err = failures
		for _, e := range failures.Errors {
			result.Errors = append(result.Errors, e.Error())
		}
		c.log.Debug().
			Int("instructions", n).
			Int("errors", len(result.Errors)).
			Msg("assembly failed")
		return result
	}
	result.Success = true
	result.Bytecode = image
	c.log.Debug().
		Int("instructions", n).
		Int("bytes", len(image)).
		Int("warnings", len(result.Warnings)).
		Msg("assembled program")
	return result
}

// encode validates the operands of one instruction and packs them into a
// word. All problems with the instruction are returned, not just the first.
func (c *Compiler) encode(index int, in bytecode.Instruction, count int) (bytecode.Word, []error) {
	code := in.Opcode()
	if !code.Valid() {
		return bytecode.Word{}, []error{
			errors.Assemblef(errors.E1001, index, "", "unknown opcode %d", uint8(code)),
		}
	}
	info := op.GetInfo(code)
	name := info.Name
	operands := info.Operands
	word := bytecode.Word{Opcode: info.Opcode}
	var errs []error

	register := func(r op.Register, present bool, role string) op.Register {
		if !present {
			errs = append(errs, errors.Assemblef(errors.E1003, index, name, "missing %s register", role))
			return 0
		}
		if !r.Valid() {
			errs = append(errs, errors.Assemblef(errors.E1002, index, name, "invalid %s register %s", role, r))
			return 0
		}
		return r
	}
	immediate := func(v int64) int32 {
		if v < math.MinInt32 || v > math.MaxInt32 {
			errs = append(errs, errors.Assemblef(errors.E1004, index, name,
				"immediate %d does not fit in 32 bits", v))
			return 0
		}
		return int32(v)
	}

	if operands.Has(op.NeedDst) {
		r, ok := in.Dst()
		word.Dst = register(r, ok, "destination")
	}
	if operands.Has(op.NeedSrc) {
		r, ok := in.Src()
		word.Src = register(r, ok, "source")
	}
	if operands.Has(op.SrcOrImm) {
		src, hasSrc := in.Src()
		imm, hasImm := in.Imm()
		switch {
		case hasSrc:
			word.Opcode |= op.SourceReg
			word.Src = register(src, true, "source")
			if src2, ok := in.Src2(); ok && operands.Has(op.AllowSrc2) {
				word.Imm = bytecode.Src2Flag | int32(register(src2, true, "second source"))
			}
		case hasImm:
			word.Imm = immediate(imm)
		default:
			errs = append(errs, errors.Assemblef(errors.E1003, index, name,
				"missing source register or immediate"))
		}
	}
	if operands.Has(op.NeedImm) {
		if imm, ok := in.Imm(); ok {
			word.Imm = immediate(imm)
		} else {
			errs = append(errs, errors.Assemblef(errors.E1003, index, name, "missing immediate"))
		}
	}
	if operands.Has(op.NeedOffset) || operands.Has(op.AllowOffset) {
		off, ok := in.Offset()
		if !ok && operands.Has(op.NeedOffset) {
			errs = append(errs, errors.Assemblef(errors.E1003, index, name, "missing offset"))
		}
		word.Offset = off
		if ok && info.IsJump() {
			target := index + 1 + int(off)
			if target < 0 || target >= count {
				errs = append(errs, errors.Assemblef(errors.E1005, index, name,
					"jump target %d is outside the program (0..%d)", target, count-1))
			}
		}
	}
	return word, errs
}

// warnings returns non-fatal findings for the sequence, in instruction order.
func (c *Compiler) warnings(instructions []bytecode.Instruction) []string {
	n := len(instructions)
	if n == 0 {
		return nil
	}
	targets := map[int]bool{}
	for i, in := range instructions {
		if !op.GetInfo(in.Opcode()).IsJump() {
			continue
		}
		if off, ok := in.Offset(); ok {
			targets[i+1+int(off)] = true
		}
	}
	var warnings []string
	for i, in := range instructions {
		info := op.GetInfo(in.Opcode())
		if info.Class == op.ClassExit && i < n-1 && !targets[i+1] {
			warnings = append(warnings, fmt.Sprintf("instruction %d is unreachable after EXIT at %d", i+1, i))
		}
		if info.Class == op.ClassMemory {
			if off, ok := in.Offset(); ok && abs(int(off)) > c.maxFrameOffset {
				warnings = append(warnings, fmt.Sprintf("instruction %d: memory offset %d exceeds %d bytes",
					i, off, c.maxFrameOffset))
			}
		}
	}
	if instructions[n-1].Opcode() != op.Exit {
		warnings = append(warnings, "program does not end with EXIT")
	}
	return warnings
}

func listingLine(index int, in bytecode.Instruction) string {
	line := fmt.Sprintf("%04d: %s", index, in.String())
	if comment := in.Comment(); comment != "" {
		line += " ; " + comment
	}
	return line
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
