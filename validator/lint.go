package validator

import (
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/op"
)

// Lint inspects an instruction sequence with the default configuration.
func Lint(instrs []bytecode.Instruction) []*errors.Issue {
	return New(nil).Lint(instrs)
}

type linter struct {
	issues []*errors.Issue
}

func (l *linter) add(code errors.ErrorCode, sev errors.Severity, word int, format string, args ...any) {
	l.issues = append(l.issues, errors.Issuef(code, sev, word, format, args...))
}

// Lint inspects an instruction sequence before compilation and returns its
// findings in instruction order. Unlike the compiler it also reports
// likely mistakes that encode fine, such as a division by an immediate zero,
// a write to the frame pointer or a read of a register nothing has set.
//
// Register reads are tracked in instruction order without following jumps,
// so a register written on only one path counts as set.
func (v *Validator) Lint(instrs []bytecode.Instruction) []*errors.Issue {
	l := &linter{}
	n := len(instrs)
	if n == 0 {
		l.add(errors.E3005, errors.SeverityError, errors.NoIndex, "program has no instructions")
		return l.issues
	}

	targets := map[int]bool{}
	for i, in := range instrs {
		if off, ok := in.Offset(); ok && op.GetInfo(in.Opcode()).IsJump() {
			targets[i+1+int(off)] = true
		}
	}

	var written [op.RegisterCount]bool
	written[op.R1] = true
	written[op.FramePointer] = true

	for i, in := range instrs {
		code := in.Opcode()
		if !code.Valid() {
			l.add(errors.E1001, errors.SeverityError, i, "unknown opcode %d", uint8(code))
			continue
		}
		info := op.GetInfo(code)
		dst, hasDst := in.Dst()
		src, hasSrc := in.Src()

		if hasDst && !dst.Valid() {
			l.add(errors.E1002, errors.SeverityError, i, "invalid destination register %s", dst)
		}
		if hasSrc && !src.Valid() {
			l.add(errors.E1002, errors.SeverityError, i, "invalid source register %s", src)
		}
		for _, r := range sources(in) {
			if r.Valid() && !written[r] {
				l.add(errors.E3006, errors.SeverityWarning, i, "%s reads %s (%s) before it is written",
					code, r, r.Role())
			}
		}

		switch info.Class {
		case op.ClassJump, op.ClassConditionalJump:
			if off, ok := in.Offset(); ok {
				if target := i + 1 + int(off); target < 0 || target >= n {
					l.add(errors.E1005, errors.SeverityError, i,
						"jump target %d is outside the program (0..%d)", target, n-1)
				}
			}
		case op.ClassALU:
			v.lintALU(l, in, i)
		case op.ClassMemory:
			v.lintFrameAccess(l, in, i)
		case op.ClassCall:
			written[op.R0] = true
		case op.ClassExit:
			if i < n-1 && !targets[i+1] {
				l.add(errors.E3001, errors.SeverityWarning, i+1, "unreachable after EXIT at instruction %d", i)
			}
		}

		if hasDst && dst == op.FramePointer && writesDst(in) {
			l.add(errors.E3003, errors.SeverityWarning, i, "%s writes to the frame pointer", code)
		}
		if hasDst && dst.Valid() && code != op.Store && (info.Class == op.ClassALU || info.Class == op.ClassMemory) {
			written[dst] = true
		}
	}

	if instrs[n-1].Opcode() != op.Exit {
		l.add(errors.E3005, errors.SeverityError, n-1, "program does not end with EXIT")
	}
	return l.issues
}

// sources returns the source registers an instruction reads. The
// destination of a read-modify-write ALU instruction is not included.
func sources(in bytecode.Instruction) []op.Register {
	var regs []op.Register
	if r, ok := in.Src(); ok {
		regs = append(regs, r)
	}
	if r, ok := in.Src2(); ok {
		regs = append(regs, r)
	}
	return regs
}

func (v *Validator) lintALU(l *linter, in bytecode.Instruction, index int) {
	code := in.Opcode()
	_, hasSrc := in.Src()
	if src2, ok := in.Src2(); ok {
		l.add(errors.E3007, errors.SeverityWarning, index,
			"%s with second source %s is encoded for this toolkit only; standard BPF VMs ignore it",
			code, src2)
	}
	switch code {
	case op.Div, op.Mod:
		if !hasSrc {
			if imm, ok := in.Imm(); ok && imm == 0 {
				l.add(errors.E3002, errors.SeverityError, index, "%s by immediate zero", code)
			}
		} else if v.hints {
			l.add(errors.E3009, errors.SeverityInfo, index, "%s by a register: check the divisor for zero first", code)
		}
	case op.Add, op.Mul:
		// ADD of an immediate is the usual pointer bump and is not flagged.
		if v.hints && (code == op.Mul || hasSrc) {
			l.add(errors.E3008, errors.SeverityInfo, index, "%s may overflow 64 bits", code)
		}
	}
}

// writesDst reports whether the instruction overwrites its destination
// register in a way that is not a stack adjustment.
func writesDst(in bytecode.Instruction) bool {
	switch in.Opcode() {
	case op.Store:
		return false
	case op.Add, op.Sub:
		_, hasSrc := in.Src()
		_, hasImm := in.Imm()
		return hasSrc || !hasImm
	}
	info := op.GetInfo(in.Opcode())
	return info.Class == op.ClassMemory || info.Class == op.ClassALU
}

// lintFrameAccess checks LOAD and STORE addressing relative to R10.
func (v *Validator) lintFrameAccess(l *linter, in bytecode.Instruction, index int) {
	var base op.Register
	var ok bool
	switch in.Opcode() {
	case op.Load:
		base, ok = in.Src()
	case op.Store:
		base, ok = in.Dst()
	}
	if !ok || base != op.FramePointer {
		return
	}
	off, _ := in.Offset()
	switch {
	case int(off) < -v.stackSize:
		l.add(errors.E3004, errors.SeverityError, index,
			"stack access at offset %d is beyond the %d byte stack", off, v.stackSize)
	case off > 0:
		l.add(errors.E3004, errors.SeverityWarning, index,
			"positive frame offset %d addresses memory above the frame", off)
	}
}
