package bpfasm

import (
	"github.com/rs/zerolog"
	"github.com/svmpay/bpfasm/compiler"
	"github.com/svmpay/bpfasm/cost"
	"github.com/svmpay/bpfasm/memory"
	"github.com/svmpay/bpfasm/syscalls"
	"github.com/svmpay/bpfasm/validator"
)

// Option configures an SDK.
type Option func(*options)

type options struct {
	network         syscalls.Network
	logger          zerolog.Logger
	layout          *memory.Layout
	maxComputeUnits int
	estimator       *cost.Estimator
	maxFrameOffset  int
	maxProgramSize  int
	lintHints       bool
}

func collectOptions(opts ...Option) *options {
	o := &options{
		network:         syscalls.Solana,
		logger:          zerolog.Nop(),
		maxComputeUnits: cost.DefaultBudget,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.estimator == nil {
		o.estimator = cost.NewEstimator()
	}
	return o
}

func (o *options) compilerConfig() *compiler.Config {
	return &compiler.Config{
		Logger:         &o.logger,
		MaxFrameOffset: o.maxFrameOffset,
	}
}

func (o *options) validatorConfig() *validator.Config {
	cfg := &validator.Config{
		Logger:         &o.logger,
		MaxProgramSize: o.maxProgramSize,
		Hints:          o.lintHints,
	}
	if o.layout != nil {
		cfg.StackSize = o.layout.StackSize
	}
	return cfg
}

// WithNetwork selects the network whose syscall numbers are used by the
// Syscalls helper and which is recorded on programs that name no network.
// The default is Solana.
func WithNetwork(network syscalls.Network) Option {
	return func(o *options) {
		o.network = network
	}
}

// WithLogger sets the logger passed to the compiler and validator.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLayout overrides the memory layout used by planners returned from
// Planner. Zero fields keep their defaults.
func WithLayout(layout memory.Layout) Option {
	return func(o *options) {
		o.layout = &layout
	}
}

// WithMaxComputeUnits sets the compute budget enforced by Build. A value of
// zero or less disables the check.
func WithMaxComputeUnits(units int) Option {
	return func(o *options) {
		o.maxComputeUnits = units
	}
}

// WithEstimator replaces the default compute-unit estimator.
func WithEstimator(e *cost.Estimator) Option {
	return func(o *options) {
		o.estimator = e
	}
}

// WithMaxFrameOffset sets the memory offset above which the compiler warns.
func WithMaxFrameOffset(offset int) Option {
	return func(o *options) {
		o.maxFrameOffset = offset
	}
}

// WithMaxProgramSize sets the largest bytecode image, in bytes, accepted by
// Validate.
func WithMaxProgramSize(size int) Option {
	return func(o *options) {
		o.maxProgramSize = size
	}
}

// WithLintHints enables informational lint findings such as possible
// overflow and unchecked divisors.
func WithLintHints(enabled bool) Option {
	return func(o *options) {
		o.lintHints = enabled
	}
}
