// Package cost estimates the compute units an instruction sequence consumes.
//
// The estimate is a static sum over the instructions. It depends only on the
// opcode of each instruction, never on register or immediate values, so it
// is deterministic and never decreases when instructions are appended.
package cost

import (
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/op"
)

// Default per-opcode costs.
const (
	CallUnits     = 100
	DivModUnits   = 10
	MemoryUnits   = 2
	BaseUnits     = 1
	UnknownUnits  = 0
	DefaultBudget = 200_000
)

// Option configures an Estimator.
type Option func(*Estimator)

// WithCost overrides the cost of one opcode. Negative units are treated as
// zero.
func WithCost(code op.Code, units int) Option {
	return func(e *Estimator) {
		if !code.Valid() {
			return
		}
		e.table[code] = max(units, 0)
	}
}

// Estimator assigns a cost to every opcode.
type Estimator struct {
	table [256]int
}

// NewEstimator returns an estimator using the default table with the given
// overrides applied.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{}
	for _, code := range op.All() {
		e.table[code] = defaultCost(code)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultCost(code op.Code) int {
	switch code {
	case op.Call:
		return CallUnits
	case op.Div, op.Mod:
		return DivModUnits
	case op.Load, op.Store:
		return MemoryUnits
	default:
		return BaseUnits
	}
}

var defaultEstimator = NewEstimator()

// Estimate returns the compute units of instrs using the default table.
func Estimate(instrs []bytecode.Instruction) int {
	return defaultEstimator.Estimate(instrs)
}

// Cost returns the units charged for one instruction with the given opcode.
// Opcodes outside the opcode set cost nothing.
func (e *Estimator) Cost(code op.Code) int {
	if !code.Valid() {
		return UnknownUnits
	}
	return e.table[code]
}

// Estimate returns the total compute units of instrs.
func (e *Estimator) Estimate(instrs []bytecode.Instruction) int {
	total := 0
	for _, in := range instrs {
		total += e.Cost(in.Opcode())
	}
	return total
}

// Breakdown returns the total compute units per opcode class.
func (e *Estimator) Breakdown(instrs []bytecode.Instruction) map[op.Class]int {
	out := map[op.Class]int{}
	for _, in := range instrs {
		code := in.Opcode()
		if !code.Valid() {
			continue
		}
		out[op.GetInfo(code).Class] += e.Cost(code)
	}
	return out
}

// EstimateImage returns the total compute units of a bytecode image,
// decoding each complete word. Unknown opcode bytes cost nothing.
func (e *Estimator) EstimateImage(image []byte) int {
	total := 0
	iter := bytecode.NewWordIter(image)
	for {
		_, w, ok := iter.Next()
		if !ok {
			return total
		}
		if code, _, known := w.Kind(); known {
			total += e.Cost(code)
		}
	}
}
