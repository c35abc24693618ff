package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/op"
)

func TestInstructionPresence(t *testing.T) {
	in := New(op.Add)
	_, ok := in.Dst()
	require.False(t, ok)
	_, ok = in.Imm()
	require.False(t, ok)

	in = in.WithDst(op.R0).WithImm(0)
	dst, ok := in.Dst()
	require.True(t, ok)
	require.Equal(t, op.R0, dst)
	imm, ok := in.Imm()
	require.True(t, ok)
	require.Equal(t, int64(0), imm)
	_, ok = in.Src()
	require.False(t, ok)
}

func TestInstructionImmutability(t *testing.T) {
	base := ALU(op.Add, op.R1, op.R2)
	commented := base.WithComment("sum").WithDst(op.R3)

	dst, _ := base.Dst()
	require.Equal(t, op.R1, dst)
	require.Equal(t, "", base.Comment())

	dst, _ = commented.Dst()
	require.Equal(t, op.R3, dst)
	require.Equal(t, "sum", commented.Comment())
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want string
	}{
		{"load imm", LoadImm(op.R0, 42), "LOAD_IMM r0, 42"},
		{"load", Load(op.R6, op.R1, 8), "LOAD r6, [r1+8]"},
		{"store", Store(op.R10, op.R8, -16), "STORE [r10-16], r8"},
		{"mov", Mov(op.R2, op.R3), "MOV r2, r3"},
		{"alu reg", ALU(op.Sub, op.R1, op.R2), "SUB r1, r2"},
		{"alu imm", ALUImm(op.Add, op.R6, 24), "ADD r6, 24"},
		{"alu three operand", ALU3(op.Mul, op.R1, op.R2, op.R3), "MUL r1, r2, r3"},
		{"neg", Neg(op.R4), "NEG r4"},
		{"jump", Jump(3), "JUMP +3"},
		{"jump back", Jump(-2), "JUMP -2"},
		{"jeq reg", JumpIf(op.JumpIfEqual, op.R1, op.R2, 1), "JUMP_IF_EQUAL r1, r2, +1"},
		{"jge imm", JumpIfImm(op.JumpIfGreaterEqual, op.R3, 100, 0), "JUMP_IF_GREATER_EQUAL r3, 100, +0"},
		{"call", Call(6), "CALL 6"},
		{"exit", Exit(), "EXIT"},
		{"missing operands", New(op.Load), "LOAD ?, [?+0]"},
		{"missing offset", New(op.JumpIfEqual).WithDst(op.R1).WithImm(0), "JUMP_IF_EQUAL r1, 0, ?"},
		{"invalid", New(op.Invalid), "INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.in.String())
		})
	}
}

func TestCopyInstructions(t *testing.T) {
	require.Nil(t, CopyInstructions(nil))
	src := []Instruction{Exit()}
	dst := CopyInstructions(src)
	src[0] = LoadImm(op.R0, 1)
	require.Equal(t, op.Exit, dst[0].Opcode())
}
