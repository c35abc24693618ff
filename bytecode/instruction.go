package bytecode

import (
	"fmt"
	"strings"

	"github.com/svmpay/bpfasm/op"
)

type field uint8

const (
	hasDst field = 1 << iota
	hasSrc
	hasSrc2
	hasImm
	hasOff
)

// Instruction is a single structured instruction. The zero value has the
// Invalid opcode and no operands.
type Instruction struct {
	opcode  op.Code
	dst     op.Register
	src     op.Register
	src2    op.Register
	imm     int64
	off     int16
	comment string
	set     field
}

// New returns an instruction with the given opcode and no operands.
func New(code op.Code) Instruction {
	return Instruction{opcode: code}
}

// WithDst returns a copy with the destination register set.
func (i Instruction) WithDst(r op.Register) Instruction {
	i.dst = r
	i.set |= hasDst
	return i
}

// WithSrc returns a copy with the source register set.
func (i Instruction) WithSrc(r op.Register) Instruction {
	i.src = r
	i.set |= hasSrc
	return i
}

// WithSrc2 returns a copy with the second source register set.
func (i Instruction) WithSrc2(r op.Register) Instruction {
	i.src2 = r
	i.set |= hasSrc2
	return i
}

// WithImm returns a copy with the immediate set.
func (i Instruction) WithImm(v int64) Instruction {
	i.imm = v
	i.set |= hasImm
	return i
}

// WithOffset returns a copy with the offset set.
func (i Instruction) WithOffset(off int16) Instruction {
	i.off = off
	i.set |= hasOff
	return i
}

// WithComment returns a copy with the listing comment set.
func (i Instruction) WithComment(comment string) Instruction {
	i.comment = comment
	return i
}

// Opcode returns the instruction's opcode.
func (i Instruction) Opcode() op.Code {
	return i.opcode
}

// Dst returns the destination register and whether it was supplied.
func (i Instruction) Dst() (op.Register, bool) {
	return i.dst, i.set&hasDst != 0
}

// Src returns the source register and whether it was supplied.
func (i Instruction) Src() (op.Register, bool) {
	return i.src, i.set&hasSrc != 0
}

// Src2 returns the second source register and whether it was supplied.
func (i Instruction) Src2() (op.Register, bool) {
	return i.src2, i.set&hasSrc2 != 0
}

// Imm returns the immediate and whether it was supplied.
func (i Instruction) Imm() (int64, bool) {
	return i.imm, i.set&hasImm != 0
}

// Offset returns the offset and whether it was supplied.
func (i Instruction) Offset() (int16, bool) {
	return i.off, i.set&hasOff != 0
}

// Comment returns the listing comment.
func (i Instruction) Comment() string {
	return i.comment
}

// String returns the instruction in listing form without its comment, for
// example "LOAD r1, [r2+8]" or "JUMP_IF_EQUAL r1, 0, +3".
func (i Instruction) String() string {
	info := op.GetInfo(i.opcode)
	name := i.opcode.String()
	var operands []string
	switch info.Class {
	case op.ClassMemory:
		switch i.opcode {
		case op.Load:
			operands = append(operands, i.fmtReg(i.dst, hasDst), i.fmtMem(i.src, hasSrc))
		case op.Store:
			operands = append(operands, i.fmtMem(i.dst, hasDst), i.fmtReg(i.src, hasSrc))
		default:
			operands = append(operands, i.fmtReg(i.dst, hasDst), i.fmtImm())
		}
	case op.ClassALU:
		operands = append(operands, i.fmtReg(i.dst, hasDst))
		if i.opcode == op.Neg {
			break
		}
		if i.set&hasSrc != 0 || !info.HasRegisterMode() {
			operands = append(operands, i.fmtReg(i.src, hasSrc))
			if i.set&hasSrc2 != 0 {
				operands = append(operands, i.src2.String())
			}
		} else {
			operands = append(operands, i.fmtImm())
		}
	case op.ClassJump:
		operands = append(operands, i.fmtOff())
	case op.ClassConditionalJump:
		operands = append(operands, i.fmtReg(i.dst, hasDst))
		if i.set&hasSrc != 0 {
			operands = append(operands, i.src.String())
		} else {
			operands = append(operands, i.fmtImm())
		}
		operands = append(operands, i.fmtOff())
	case op.ClassCall:
		operands = append(operands, i.fmtImm())
	}
	if len(operands) == 0 {
		return name
	}
	return name + " " + strings.Join(operands, ", ")
}

func (i Instruction) fmtReg(r op.Register, f field) string {
	if i.set&f == 0 {
		return "?"
	}
	return r.String()
}

func (i Instruction) fmtImm() string {
	if i.set&hasImm == 0 {
		return "?"
	}
	return fmt.Sprintf("%d", i.imm)
}

func (i Instruction) fmtOff() string {
	if i.set&hasOff == 0 {
		return "?"
	}
	return fmt.Sprintf("%+d", i.off)
}

func (i Instruction) fmtMem(base op.Register, f field) string {
	return fmt.Sprintf("[%s%+d]", i.fmtReg(base, f), i.off)
}

// LoadImm returns LOAD_IMM dst, imm.
func LoadImm(dst op.Register, imm int64) Instruction {
	return New(op.LoadImm).WithDst(dst).WithImm(imm)
}

// Load returns LOAD dst, [src+off].
func Load(dst, src op.Register, off int16) Instruction {
	return New(op.Load).WithDst(dst).WithSrc(src).WithOffset(off)
}

// Store returns STORE [dst+off], src.
func Store(dst, src op.Register, off int16) Instruction {
	return New(op.Store).WithDst(dst).WithSrc(src).WithOffset(off)
}

// Mov returns MOV dst, src.
func Mov(dst, src op.Register) Instruction {
	return New(op.Mov).WithDst(dst).WithSrc(src)
}

// ALU returns the two-operand register form dst = dst <code> src.
func ALU(code op.Code, dst, src op.Register) Instruction {
	return New(code).WithDst(dst).WithSrc(src)
}

// ALUImm returns the immediate form dst = dst <code> imm.
func ALUImm(code op.Code, dst op.Register, imm int64) Instruction {
	return New(code).WithDst(dst).WithImm(imm)
}

// ALU3 returns the three-operand form dst = src <code> src2.
func ALU3(code op.Code, dst, src, src2 op.Register) Instruction {
	return New(code).WithDst(dst).WithSrc(src).WithSrc2(src2)
}

// Neg returns NEG dst.
func Neg(dst op.Register) Instruction {
	return New(op.Neg).WithDst(dst)
}

// Jump returns an unconditional jump skipping off instructions.
func Jump(off int16) Instruction {
	return New(op.Jump).WithOffset(off)
}

// JumpIf returns a conditional jump comparing dst with src.
func JumpIf(code op.Code, dst, src op.Register, off int16) Instruction {
	return New(code).WithDst(dst).WithSrc(src).WithOffset(off)
}

// JumpIfImm returns a conditional jump comparing dst with imm.
func JumpIfImm(code op.Code, dst op.Register, imm int64, off int16) Instruction {
	return New(code).WithDst(dst).WithImm(imm).WithOffset(off)
}

// Call returns CALL id.
func Call(id int64) Instruction {
	return New(op.Call).WithImm(id)
}

// Exit returns EXIT. The return code must already be in R0.
func Exit() Instruction {
	return New(op.Exit)
}
