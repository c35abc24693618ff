package cost

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/op"
)

func sample() []bytecode.Instruction {
	return []bytecode.Instruction{
		bytecode.Load(op.R2, op.R1, 0),
		bytecode.ALUImm(op.Div, op.R2, 10),
		bytecode.ALU(op.Mod, op.R2, op.R3),
		bytecode.JumpIfImm(op.JumpIfEqual, op.R2, 0, 1),
		bytecode.Call(1),
		bytecode.Store(op.R10, op.R2, -8),
		bytecode.LoadImm(op.R0, 0),
		bytecode.Exit(),
	}
}

func TestEstimateDefaultTable(t *testing.T) {
	// LOAD 2 + DIV 10 + MOD 10 + JEQ 1 + CALL 100 + STORE 2 + LOAD_IMM 1 + EXIT 1
	require.Equal(t, 127, Estimate(sample()))
	require.Equal(t, 0, Estimate(nil))
}

func TestEstimateIgnoresOperandValues(t *testing.T) {
	a := []bytecode.Instruction{bytecode.LoadImm(op.R0, 1), bytecode.ALUImm(op.Add, op.R1, 5)}
	b := []bytecode.Instruction{bytecode.LoadImm(op.R9, 1<<30), bytecode.ALU(op.Add, op.R3, op.R4)}
	require.Equal(t, Estimate(a), Estimate(b))
}

func TestEstimateIsMonotonic(t *testing.T) {
	var seq []bytecode.Instruction
	prev := Estimate(seq)
	for _, code := range op.All() {
		seq = append(seq, bytecode.New(code))
		next := Estimate(seq)
		require.GreaterOrEqual(t, next, prev, code.String())
		prev = next
	}
	seq = append(seq, bytecode.New(op.Invalid))
	require.Equal(t, prev, Estimate(seq))
}

func TestWithCost(t *testing.T) {
	e := NewEstimator(WithCost(op.Call, 500), WithCost(op.Exit, -3), WithCost(op.Invalid, 9))
	require.Equal(t, 500, e.Cost(op.Call))
	require.Equal(t, 0, e.Cost(op.Exit))
	require.Equal(t, 0, e.Cost(op.Invalid))
	require.Equal(t, 2, e.Cost(op.Load))
	// The default estimator is untouched.
	require.Equal(t, CallUnits, NewEstimator().Cost(op.Call))
}

func TestBreakdown(t *testing.T) {
	got := NewEstimator().Breakdown(sample())
	require.Equal(t, map[op.Class]int{
		op.ClassMemory:          5,
		op.ClassALU:             20,
		op.ClassConditionalJump: 1,
		op.ClassCall:            100,
		op.ClassExit:            1,
	}, got)
}

func TestEstimateImageMatchesInstructions(t *testing.T) {
	var image []byte
	for _, w := range []bytecode.Word{
		{Opcode: 0x79, Dst: op.R2, Src: op.R1},
		{Opcode: 0x3f, Dst: op.R2, Src: op.R3},
		{Opcode: 0x85, Imm: 1},
		{Opcode: 0xee},
		{Opcode: 0x95},
	} {
		image = w.AppendTo(image)
	}
	require.Equal(t, 2+10+100+1, NewEstimator().EstimateImage(image))
}
