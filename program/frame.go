package program

import (
	"fmt"

	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/op"
)

// Registers loaded by Prologue.
const (
	AccountRegister = op.R6
	DataRegister    = op.R7
)

// Prologue reads the first two pointers of the input buffer in R1: the
// first account into R6 and the instruction data into R7.
func Prologue() []bytecode.Instruction {
	return []bytecode.Instruction{
		bytecode.Load(AccountRegister, op.R1, 0).WithComment("Load first account"),
		bytecode.Load(DataRegister, op.R1, 8).WithComment("Load instruction data"),
	}
}

// Epilogue sets the return code in R0 and exits.
func Epilogue(code int64) []bytecode.Instruction {
	return []bytecode.Instruction{
		bytecode.LoadImm(op.R0, code).WithComment(fmt.Sprintf("Return %d", code)),
		bytecode.Exit().WithComment("Exit program"),
	}
}
