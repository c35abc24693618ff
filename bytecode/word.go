package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/svmpay/bpfasm/op"
)

// WordSize is the size in bytes of one encoded instruction.
const WordSize = 8

// Src2Flag marks a three-operand ALU word. Such words use register mode and
// carry Src2Flag|src2 in the immediate field.
const Src2Flag = 0x100

// Word is one decoded bytecode word.
type Word struct {
	Opcode byte
	Dst    op.Register
	Src    op.Register
	Offset int16
	Imm    int32
}

// Encode returns the little-endian encoding of the word. Register values
// are truncated to four bits.
func (w Word) Encode() [WordSize]byte {
	var b [WordSize]byte
	b[0] = w.Opcode
	b[1] = byte(w.Dst&0x0f) | byte(w.Src&0x0f)<<4
	binary.LittleEndian.PutUint16(b[2:4], uint16(w.Offset))
	binary.LittleEndian.PutUint32(b[4:8], uint32(w.Imm))
	return b
}

// AppendTo appends the encoded word to dst and returns the extended slice.
func (w Word) AppendTo(dst []byte) []byte {
	b := w.Encode()
	return append(dst, b[:]...)
}

// DecodeWord decodes the first WordSize bytes of b.
func DecodeWord(b []byte) (Word, error) {
	if len(b) < WordSize {
		return Word{}, fmt.Errorf("short word: %d bytes", len(b))
	}
	return Word{
		Opcode: b[0],
		Dst:    op.Register(b[1] & 0x0f),
		Src:    op.Register(b[1] >> 4),
		Offset: int16(binary.LittleEndian.Uint16(b[2:4])),
		Imm:    int32(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// Kind returns the opcode the word encodes and whether it uses register
// mode. ok is false for bytes outside the opcode set.
func (w Word) Kind() (code op.Code, regMode bool, ok bool) {
	return op.Decode(w.Opcode)
}

// Src2 returns the second source register of a three-operand ALU word.
func (w Word) Src2() (op.Register, bool) {
	code, regMode, ok := w.Kind()
	if !ok || !regMode || op.GetInfo(code).Class != op.ClassALU {
		return 0, false
	}
	if w.Imm&Src2Flag == 0 {
		return 0, false
	}
	return op.Register(w.Imm & 0xff), true
}

// JumpTarget returns the index of the instruction a jump word at index
// transfers to. ok is false when the word is not a jump.
func (w Word) JumpTarget(index int) (target int, ok bool) {
	code, _, known := w.Kind()
	if !known || !op.GetInfo(code).IsJump() {
		return 0, false
	}
	return index + 1 + int(w.Offset), true
}

// Instruction converts the word back into a structured instruction. Words
// outside the opcode set yield an instruction with the Invalid opcode.
func (w Word) Instruction() Instruction {
	code, regMode, ok := w.Kind()
	if !ok {
		return New(op.Invalid)
	}
	info := op.GetInfo(code)
	in := New(code)
	switch info.Class {
	case op.ClassMemory:
		switch code {
		case op.Load, op.Store:
			in = in.WithDst(w.Dst).WithSrc(w.Src).WithOffset(w.Offset)
		default:
			in = in.WithDst(w.Dst).WithImm(int64(w.Imm))
		}
	case op.ClassALU:
		in = in.WithDst(w.Dst)
		switch {
		case code == op.Neg:
		case code == op.Mov:
			in = in.WithSrc(w.Src)
		case regMode:
			in = in.WithSrc(w.Src)
			if src2, ok := w.Src2(); ok {
				in = in.WithSrc2(src2)
			}
		default:
			in = in.WithImm(int64(w.Imm))
		}
	case op.ClassJump:
		in = in.WithOffset(w.Offset)
	case op.ClassConditionalJump:
		in = in.WithDst(w.Dst).WithOffset(w.Offset)
		if regMode {
			in = in.WithSrc(w.Src)
		} else {
			in = in.WithImm(int64(w.Imm))
		}
	case op.ClassCall:
		in = in.WithImm(int64(w.Imm))
	}
	return in
}
