// Package bpfasm assembles structured instruction sequences into bytecode
// for BPF-style register VMs used by SVM-family networks.
//
// The SDK type ties the individual packages together:
//
//	sdk := bpfasm.New(bpfasm.WithNetwork(syscalls.Sonic))
//	b := sdk.NewProgram(program.Metadata{Name: "fee-check"})
//	b.AddInstructions(sdk.Syscalls().Log("checking fee")...)
//	b.AddInstructions(sdk.Syscalls().ExitWith(0)...)
//	bundle, err := sdk.Build(b)
//
// Each package can also be used on its own.
package bpfasm

import (
	"fmt"

	"github.com/svmpay/bpfasm/artifact"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/compiler"
	"github.com/svmpay/bpfasm/cost"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/memory"
	"github.com/svmpay/bpfasm/program"
	"github.com/svmpay/bpfasm/syscalls"
	"github.com/svmpay/bpfasm/validator"
)

// BudgetError is returned by Build when a program's estimated cost exceeds
// the configured compute budget.
type BudgetError struct {
	Units int
	Limit int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("estimated %d compute units exceeds the budget of %d", e.Units, e.Limit)
}

// SDK bundles a configured compiler, validator, estimator and syscall table.
// An SDK is safe for concurrent use; the builders and planners it returns
// are not.
type SDK struct {
	opts      *options
	compiler  *compiler.Compiler
	validator *validator.Validator
}

// New returns an SDK configured by opts.
func New(opts ...Option) *SDK {
	o := collectOptions(opts...)
	return &SDK{
		opts:      o,
		compiler:  compiler.New(o.compilerConfig()),
		validator: validator.New(o.validatorConfig()),
	}
}

// Network returns the configured network.
func (s *SDK) Network() syscalls.Network {
	return s.opts.network
}

// Estimator returns the compute-unit estimator.
func (s *SDK) Estimator() *cost.Estimator {
	return s.opts.estimator
}

// NewProgram returns an empty builder whose compilations use the SDK's
// compiler settings. If meta names no networks, the SDK network is used.
func (s *SDK) NewProgram(meta program.Metadata) *program.Builder {
	if len(meta.Networks) == 0 {
		meta.Networks = []syscalls.Network{s.opts.network}
	}
	return program.NewBuilder(meta, program.WithCompilerConfig(s.opts.compilerConfig()))
}

// Compile assembles instrs.
func (s *SDK) Compile(instrs []bytecode.Instruction) *compiler.Result {
	return s.compiler.Compile(instrs)
}

// Validate checks a bytecode image.
func (s *SDK) Validate(image []byte) *validator.Result {
	return s.validator.Validate(image)
}

// ValidateELF checks a deployed ELF object and the program text it carries.
func (s *SDK) ValidateELF(data []byte) *validator.Result {
	return s.validator.ValidateELF(data)
}

// Lint reports likely mistakes in an instruction sequence. Frame offsets
// are checked against the stack size of the configured layout.
func (s *SDK) Lint(instrs []bytecode.Instruction) []*errors.Issue {
	return s.validator.Lint(instrs)
}

// Estimate returns the compute-unit cost of instrs.
func (s *SDK) Estimate(instrs []bytecode.Instruction) int {
	return s.opts.estimator.Estimate(instrs)
}

// Planner returns a new memory planner using the configured layout.
func (s *SDK) Planner() *memory.Planner {
	return memory.NewPlanner(s.opts.layout)
}

// Syscalls returns a syscall helper for the configured network.
func (s *SDK) Syscalls() *syscalls.Helper {
	return syscalls.NewHelper(s.opts.network)
}

// Build compiles the builder's program, validates the resulting bytecode,
// checks the estimated cost against the compute budget and returns a
// bundle ready to be published.
func (s *SDK) Build(b *program.Builder) (*artifact.Bundle, error) {
	meta := b.Metadata()
	log := s.opts.logger.With().Str("program", meta.Name).Logger()

	result := b.Compile()
	if err := result.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(result.Bytecode).Err(); err != nil {
		return nil, err
	}
	units := s.opts.estimator.Estimate(b.Instructions())
	if limit := s.opts.maxComputeUnits; limit > 0 && units > limit {
		return nil, &BudgetError{Units: units, Limit: limit}
	}
	bundle, err := artifact.New(meta, result, units)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("id", bundle.ID).
		Int("instructions", result.InstructionCount).
		Int("compute_units", units).
		Msg("built program")
	return bundle, nil
}
