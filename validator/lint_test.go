package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/op"
)

func messages(issues []*errors.Issue) []string {
	var out []string
	for _, issue := range issues {
		out = append(out, issue.Severity.String()+": "+issue.String())
	}
	return out
}

func TestLintCleanProgram(t *testing.T) {
	issues := Lint([]bytecode.Instruction{
		bytecode.ALUImm(op.Sub, op.R10, 16),
		bytecode.Load(op.R2, op.R1, 0),
		bytecode.Store(op.R10, op.R2, -8),
		bytecode.ALUImm(op.Div, op.R2, 2),
		bytecode.LoadImm(op.R0, 0),
		bytecode.ALUImm(op.Add, op.R10, 16),
		bytecode.Exit(),
	})
	require.Empty(t, issues)
}

func TestLintEmpty(t *testing.T) {
	issues := Lint(nil)
	require.Equal(t, []string{"error: program has no instructions"}, messages(issues))
	require.Equal(t, errors.E3005, issues[0].Code)
}

func TestLintFindings(t *testing.T) {
	issues := Lint([]bytecode.Instruction{
		bytecode.ALUImm(op.Mod, op.R3, 0),
		bytecode.Mov(op.R10, op.R1),
		bytecode.Load(op.R2, op.R10, -5000),
		bytecode.Store(op.R10, op.R2, 8),
		bytecode.JumpIfImm(op.JumpIfEqual, op.R2, 0, 9),
		bytecode.ALU(op.Add, op.Register(11), op.R1),
		bytecode.Exit(),
		bytecode.LoadImm(op.R0, 1),
	})
	require.Equal(t, []string{
		"error: word 0: MOD by immediate zero",
		"warning: word 1: MOV writes to the frame pointer",
		"error: word 2: stack access at offset -5000 is beyond the 4096 byte stack",
		"warning: word 3: positive frame offset 8 addresses memory above the frame",
		"error: word 4: jump target 14 is outside the program (0..7)",
		"error: word 5: invalid destination register r11",
		"warning: word 7: unreachable after EXIT at instruction 6",
		"error: word 7: program does not end with EXIT",
	}, messages(issues))
}

func TestLintDivisionByRegisterIsFine(t *testing.T) {
	issues := Lint([]bytecode.Instruction{
		bytecode.LoadImm(op.R2, 4),
		bytecode.ALU(op.Div, op.R1, op.R2),
		bytecode.Exit(),
	})
	require.Empty(t, issues)
}

func TestLintUninitializedRead(t *testing.T) {
	issues := Lint([]bytecode.Instruction{
		bytecode.Mov(op.R6, op.R1),
		bytecode.Load(op.R2, op.R3, 0),
		bytecode.JumpIf(op.JumpIfEqual, op.R2, op.R9, 1),
		bytecode.Call(1),
		bytecode.Mov(op.R7, op.R0),
		bytecode.Store(op.R10, op.R4, -8),
		bytecode.Exit(),
	})
	require.Equal(t, []string{
		"warning: word 1: LOAD reads r3 (argument) before it is written",
		"warning: word 2: JUMP_IF_EQUAL reads r9 (general purpose) before it is written",
		"warning: word 5: STORE reads r4 (argument) before it is written",
	}, messages(issues))
	require.Equal(t, errors.E3006, issues[0].Code)
}

func TestLintThreeOperandALU(t *testing.T) {
	issues := Lint([]bytecode.Instruction{
		bytecode.LoadImm(op.R2, 1),
		bytecode.LoadImm(op.R3, 2),
		bytecode.ALU3(op.Add, op.R1, op.R2, op.R3),
		bytecode.Exit(),
	})
	require.Equal(t, []string{
		"warning: word 2: ADD with second source r3 is encoded for this toolkit only; standard BPF VMs ignore it",
	}, messages(issues))
	require.Equal(t, errors.E3007, issues[0].Code)
}

func TestLintHints(t *testing.T) {
	program := []bytecode.Instruction{
		bytecode.LoadImm(op.R2, 3),
		bytecode.ALU(op.Mod, op.R1, op.R2),
		bytecode.ALUImm(op.Mul, op.R1, 10),
		bytecode.ALU(op.Add, op.R1, op.R2),
		bytecode.ALUImm(op.Add, op.R1, 8),
		bytecode.ALUImm(op.Div, op.R1, 2),
		bytecode.Exit(),
	}
	require.Empty(t, Lint(program))

	issues := New(&Config{Hints: true}).Lint(program)
	require.Equal(t, []string{
		"info: word 1: MOD by a register: check the divisor for zero first",
		"info: word 2: MUL may overflow 64 bits",
		"info: word 3: ADD may overflow 64 bits",
	}, messages(issues))
	require.Equal(t, errors.E3009, issues[0].Code)
	require.Equal(t, errors.E3008, issues[1].Code)
}

func TestLintStackSize(t *testing.T) {
	program := []bytecode.Instruction{
		bytecode.LoadImm(op.R2, 0),
		bytecode.Store(op.R10, op.R2, -2048),
		bytecode.Exit(),
	}
	require.Empty(t, Lint(program))

	issues := New(&Config{StackSize: 1024}).Lint(program)
	require.Equal(t, []string{
		"error: word 1: stack access at offset -2048 is beyond the 1024 byte stack",
	}, messages(issues))
}

func TestLintJumpTargetAfterExit(t *testing.T) {
	issues := Lint([]bytecode.Instruction{
		bytecode.JumpIfImm(op.JumpIfNotEqual, op.R1, 0, 1),
		bytecode.Exit(),
		bytecode.LoadImm(op.R0, 1),
		bytecode.Exit(),
	})
	require.Empty(t, issues)
}

func TestLintUnknownOpcode(t *testing.T) {
	issues := Lint([]bytecode.Instruction{bytecode.New(op.Invalid), bytecode.Exit()})
	require.Len(t, issues, 1)
	require.Equal(t, errors.E1001, issues[0].Code)
}
