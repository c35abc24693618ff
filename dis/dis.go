// Package dis supports analysis of bytecode images by disassembling them.
// This works with the opcodes defined in the `op` package and uses the
// WordIter type from the `bytecode` package.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/internal/table"
	"github.com/svmpay/bpfasm/op"
	"github.com/svmpay/bpfasm/syscalls"
)

// Instruction represents a single decoded bytecode word.
type Instruction struct {
	Offset     int
	Index      int
	Name       string
	Opcode     op.Code
	Known      bool
	Word       bytecode.Word
	Operands   string
	Annotation string
}

// Option configures Disassemble.
type Option func(*options)

type options struct {
	syscalls syscalls.Table
}

// WithNetwork annotates CALL words with syscall names from the network's
// syscall table.
func WithNetwork(network syscalls.Network) Option {
	return func(o *options) {
		o.syscalls = syscalls.For(network)
	}
}

// Disassemble returns a parsed representation of the given bytecode image.
// Trailing bytes that do not form a full word are an error.
func Disassemble(image []byte, opts ...Option) ([]Instruction, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	iter := bytecode.NewWordIter(image)
	if rem := iter.Remainder(); rem != 0 {
		return nil, fmt.Errorf("bytecode length %d is not a multiple of %d (%d trailing bytes)",
			len(image), bytecode.WordSize, rem)
	}
	var names map[int64]syscalls.Syscall
	if o.syscalls != nil {
		names = make(map[int64]syscalls.Syscall, len(o.syscalls))
		for name, n := range o.syscalls {
			names[n] = name
		}
	}

	var instructions []Instruction
	for {
		index, w, ok := iter.Next()
		if !ok {
			break
		}
		instr := Instruction{
			Offset: index * bytecode.WordSize,
			Index:  index,
			Word:   w,
		}
		code, _, known := w.Kind()
		if !known {
			instr.Name = "UNKNOWN"
			instr.Annotation = fmt.Sprintf("opcode 0x%02x", w.Opcode)
			instructions = append(instructions, instr)
			continue
		}
		info := op.GetInfo(code)
		instr.Known = true
		instr.Opcode = code
		instr.Name = info.Name
		instr.Operands = strings.TrimPrefix(strings.TrimPrefix(w.Instruction().String(), info.Name), " ")
		switch {
		case info.IsJump():
			target, _ := w.JumpTarget(index)
			instr.Annotation = fmt.Sprintf("-> %d", target)
		case info.Class == op.ClassCall:
			if name, ok := names[int64(w.Imm)]; ok {
				instr.Annotation = string(name)
			}
		default:
			instr.Annotation = info.Mnemonic
		}
		instructions = append(instructions, instr)
	}
	return instructions, nil
}

// Instructions converts disassembled words back into structured
// instructions. Unknown words become instructions with the Invalid opcode.
func Instructions(instrs []Instruction) []bytecode.Instruction {
	out := make([]bytecode.Instruction, 0, len(instrs))
	for _, instr := range instrs {
		out = append(out, instr.Word.Instruction())
	}
	return out
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgHiCyan).SprintFunc()
	magenta = color.New(color.FgMagenta).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
)

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for _, instr := range instructions {
		var values []string
		values = append(values, fmt.Sprintf("%d", instr.Offset))
		if !instr.Known {
			values = append(values, red(instr.Name), "", red(instr.Annotation))
			lines = append(lines, values)
			continue
		}
		values = append(values, bold(instr.Name), instr.Operands)
		info := op.GetInfo(instr.Opcode)
		switch {
		case instr.Annotation == "":
			values = append(values, "")
		case info.IsJump():
			values = append(values, yellow(instr.Annotation))
		case info.Class == op.ClassCall:
			values = append(values, magenta(instr.Annotation))
		default:
			values = append(values, cyan(instr.Annotation))
		}
		lines = append(lines, values)
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}
