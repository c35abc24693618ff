// Package validator checks compiled bytecode for structural soundness and
// lints structured instruction sequences before they are compiled.
//
// Validate works on the binary image alone. It never needs the instructions
// the image was compiled from, so it can check bytecode obtained from any
// source, including images that were truncated or corrupted in transit.
// ValidateELF applies the same checks to the text of a deployed ELF object.
// Every issue found is reported, not just the first.
package validator

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/elfimage"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/memory"
	"github.com/svmpay/bpfasm/op"
)

// MaxProgramSize is the largest accepted bytecode image, in bytes.
const MaxProgramSize = 1 << 20

// Result is the outcome of validating a bytecode image. Valid is true
// exactly when Issues is empty.
type Result struct {
	Valid  bool
	Issues []string

	err *multierror.Error
}

// Err returns the accumulated issues as a single error, or nil.
func (r *Result) Err() error {
	return r.err.ErrorOrNil()
}

// Findings returns the issues with their codes and word indices.
func (r *Result) Findings() []*errors.Issue {
	if r.err == nil {
		return nil
	}
	out := make([]*errors.Issue, 0, len(r.err.Errors))
	for _, err := range r.err.Errors {
		if issue, ok := err.(*errors.Issue); ok {
			out = append(out, issue)
		}
	}
	return out
}

// Config holds validator configuration options.
type Config struct {
	// MaxProgramSize overrides the default size limit when positive.
	MaxProgramSize int

	// StackSize is the stack Lint checks frame offsets against. Defaults
	// to memory.DefaultStackSize.
	StackSize int

	// Hints enables informational lint findings: possible overflow and
	// divisions by a register.
	Hints bool

	// Logger receives debug output. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Validator checks bytecode images.
type Validator struct {
	maxSize   int
	stackSize int
	hints     bool
	log       zerolog.Logger
}

// New returns a validator. Pass nil for cfg to use defaults.
func New(cfg *Config) *Validator {
	v := &Validator{maxSize: MaxProgramSize, stackSize: memory.DefaultStackSize, log: zerolog.Nop()}
	if cfg != nil {
		if cfg.MaxProgramSize > 0 {
			v.maxSize = cfg.MaxProgramSize
		}
		if cfg.StackSize > 0 {
			v.stackSize = cfg.StackSize
		}
		v.hints = cfg.Hints
		if cfg.Logger != nil {
			v.log = *cfg.Logger
		}
	}
	return v
}

// Validate checks image with the default configuration.
func Validate(image []byte) *Result {
	return New(nil).Validate(image)
}

// ValidateELF checks an ELF object with the default configuration.
func ValidateELF(data []byte) *Result {
	return New(nil).ValidateELF(data)
}

// Validate checks that image is non-empty, within the size limit, an exact
// number of words, that every word has a known opcode and in-range
// registers, that every jump lands inside the program, and that the last
// word is EXIT.
func (v *Validator) Validate(image []byte) *Result {
	var issues *multierror.Error
	v.check(image, func(code errors.ErrorCode, word int, format string, args ...any) {
		issues = multierror.Append(issues, errors.Issuef(code, errors.SeverityError, word, format, args...))
	})
	return v.result(image, issues)
}

// ValidateELF checks an ELF object: it must parse, carry a .text (or .bpf)
// section and at least one program header, and define an entry point
// symbol when it has a symbol table. The program text is then checked as
// Validate does, with word indices relative to the start of the section.
func (v *Validator) ValidateELF(data []byte) *Result {
	var issues *multierror.Error
	report := func(code errors.ErrorCode, word int, format string, args ...any) {
		issues = multierror.Append(issues, errors.Issuef(code, errors.SeverityError, word, format, args...))
	}
	img, err := elfimage.Parse(data)
	if err != nil {
		report(errors.E2008, errors.NoIndex, "%v", err)
		return v.result(data, issues)
	}
	if img.TextSection == "" {
		report(errors.E2009, errors.NoIndex, "missing required section .text")
	}
	if img.ProgramHeaders == 0 {
		report(errors.E2010, errors.NoIndex, "no program headers found")
	}
	if img.Symbols != nil && !img.HasEntrySymbol() {
		report(errors.E2011, errors.NoIndex, "no entry point symbol (one of %s)",
			strings.Join(elfimage.EntrySymbols, ", "))
	}
	if img.TextSection != "" {
		v.check(img.Text, report)
	}
	return v.result(data, issues)
}

func (v *Validator) check(image []byte, report func(errors.ErrorCode, int, string, ...any)) {
	if len(image) == 0 {
		report(errors.E2006, errors.NoIndex, "bytecode is empty")
		return
	}
	if len(image) > v.maxSize {
		report(errors.E2007, errors.NoIndex, "bytecode is %d bytes, exceeding the %d byte limit",
			len(image), v.maxSize)
	}
	iter := bytecode.NewWordIter(image)
	if rem := iter.Remainder(); rem != 0 {
		report(errors.E2001, errors.NoIndex,
			"bytecode length %d is not a multiple of the %d byte word size (%d trailing bytes)",
			len(image), bytecode.WordSize, rem)
	}

	count := iter.Count()
	var last bytecode.Word
	for {
		index, w, ok := iter.Next()
		if !ok {
			break
		}
		last = w
		code, _, known := w.Kind()
		if !known {
			report(errors.E2004, index, "unknown opcode 0x%02x", w.Opcode)
			continue
		}
		if !w.Dst.Valid() {
			report(errors.E2005, index, "invalid destination register %s", w.Dst)
		}
		if !w.Src.Valid() {
			report(errors.E2005, index, "invalid source register %s", w.Src)
		}
		if src2, ok := w.Src2(); ok && !src2.Valid() {
			report(errors.E2005, index, "invalid second source register %s", src2)
		}
		if target, ok := w.JumpTarget(index); ok && (target < 0 || target >= count) {
			report(errors.E2003, index, "%s jump target %d is outside the program (0..%d)",
				code, target, count-1)
		}
	}
	if count == 0 {
		report(errors.E2002, errors.NoIndex, "bytecode has no complete instruction")
	} else if code, _, ok := last.Kind(); !ok || code != op.Exit {
		report(errors.E2002, count-1, "last instruction is not EXIT")
	}
}

func (v *Validator) result(image []byte, issues *multierror.Error) *Result {
	r := &Result{Valid: issues.ErrorOrNil() == nil, err: issues}
	if issues != nil {
		for _, err := range issues.Errors {
			r.Issues = append(r.Issues, err.Error())
		}
	}
	v.log.Debug().
		Int("bytes", len(image)).
		Bool("valid", r.Valid).
		Int("issues", len(r.Issues)).
		Msg("validated bytecode")
	return r
}
