// Package manifest handles bpfasm.toml program descriptions.
//
// A manifest is structured data, not assembly source: it carries the program
// metadata and one record of named fields per instruction.
//
//	[program]
//	name = "fee-check"
//	type = "validator"
//	networks = ["solana"]
//	prologue = true    # load the account and data pointers into r6 and r7
//	exit-code = 0      # append "LOAD_IMM r0, 0; EXIT"
//
//	[[instruction]]
//	op = "LOAD"
//	dst = "r2"
//	src = "r1"
//	offset = 0
//
//	[[instruction]]
//	op = "EXIT"
package manifest

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/memory"
	"github.com/svmpay/bpfasm/op"
	"github.com/svmpay/bpfasm/program"
	"github.com/svmpay/bpfasm/syscalls"
)

// FileName is the conventional manifest file name.
const FileName = "bpfasm.toml"

// Manifest represents a bpfasm.toml program description.
type Manifest struct {
	Program      Program       `toml:"program"`
	Layout       *Layout       `toml:"layout,omitempty"`
	Instructions []Instruction `toml:"instruction"`
}

// Program contains program metadata.
type Program struct {
	Name     string   `toml:"name"`
	Version  string   `toml:"version,omitempty"`
	Type     string   `toml:"type,omitempty"`
	Networks []string `toml:"networks,omitempty"`
	Prologue bool     `toml:"prologue,omitempty"`
	ExitCode *int64   `toml:"exit-code,omitempty"`
}

// Layout overrides the memory planner configuration.
type Layout struct {
	StackSize int `toml:"stack-size,omitempty"`
	HeapSize  int `toml:"heap-size,omitempty"`
}

// Instruction is one instruction record. Absent fields are nil so that a
// missing operand can be told apart from r0 or 0.
type Instruction struct {
	Op      string  `toml:"op"`
	Dst     *string `toml:"dst,omitempty"`
	Src     *string `toml:"src,omitempty"`
	Src2    *string `toml:"src2,omitempty"`
	Imm     *int64  `toml:"imm,omitempty"`
	Offset  *int64  `toml:"offset,omitempty"`
	Comment string  `toml:"comment,omitempty"`
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return &m, nil
}

// Load parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Metadata converts the [program] table.
func (m *Manifest) Metadata() (program.Metadata, error) {
	meta := program.Metadata{Name: m.Program.Name, Version: m.Program.Version}
	if m.Program.Name == "" {
		return meta, fmt.Errorf("program name is required")
	}
	if m.Program.Type != "" {
		typ, err := program.ParseType(m.Program.Type)
		if err != nil {
			return meta, err
		}
		meta.Type = typ
	}
	for _, name := range m.Program.Networks {
		n, err := syscalls.ParseNetwork(name)
		if err != nil {
			return meta, err
		}
		meta.Networks = append(meta.Networks, n)
	}
	return meta, nil
}

// MemoryLayout returns the planner configuration with the manifest's
// overrides applied to the defaults.
func (m *Manifest) MemoryLayout() memory.Layout {
	layout := memory.DefaultLayout()
	if m.Layout != nil {
		p := memory.NewPlanner(&memory.Layout{StackSize: m.Layout.StackSize, HeapSize: m.Layout.HeapSize})
		layout = p.Layout()
	}
	return layout
}

// Decode converts the instruction records, framed by the prologue and
// epilogue when the [program] table asks for them. Every malformed record
// is reported. Operand checks that depend on the opcode are left to the
// compiler.
func (m *Manifest) Decode() ([]bytecode.Instruction, error) {
	var errs *multierror.Error
	out := make([]bytecode.Instruction, 0, len(m.Instructions)+4)
	if m.Program.Prologue {
		out = append(out, program.Prologue()...)
	}
	for i, rec := range m.Instructions {
		in, err := rec.decode()
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("instruction %d: %w", i, err))
			continue
		}
		out = append(out, in)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if m.Program.ExitCode != nil {
		out = append(out, program.Epilogue(*m.Program.ExitCode)...)
	}
	return out, nil
}

// Builder returns a program builder holding the manifest's metadata and
// instructions.
func (m *Manifest) Builder(opts ...program.Option) (*program.Builder, error) {
	meta, err := m.Metadata()
	if err != nil {
		return nil, err
	}
	instrs, err := m.Decode()
	if err != nil {
		return nil, err
	}
	return program.NewBuilder(meta, opts...).AddInstructions(instrs...), nil
}

func opNames() []string {
	var names []string
	for _, code := range op.All() {
		names = append(names, code.String())
	}
	return names
}

func (rec Instruction) decode() (bytecode.Instruction, error) {
	code, ok := op.Lookup(strings.ToUpper(strings.TrimSpace(rec.Op)))
	if !ok {
		return bytecode.Instruction{}, fmt.Errorf("unknown opcode %q%s", rec.Op, errors.Hint(rec.Op, opNames()))
	}
	in := bytecode.New(code).WithComment(rec.Comment)
	var err error
	reg := func(s *string, with func(op.Register) bytecode.Instruction) {
		if s == nil || err != nil {
			return
		}
		var r op.Register
		if r, err = op.ParseRegister(*s); err == nil {
			in = with(r)
		}
	}
	reg(rec.Dst, func(r op.Register) bytecode.Instruction { return in.WithDst(r) })
	reg(rec.Src, func(r op.Register) bytecode.Instruction { return in.WithSrc(r) })
	reg(rec.Src2, func(r op.Register) bytecode.Instruction { return in.WithSrc2(r) })
	if err != nil {
		return bytecode.Instruction{}, err
	}
	if rec.Imm != nil {
		in = in.WithImm(*rec.Imm)
	}
	if rec.Offset != nil {
		off := *rec.Offset
		if off < math.MinInt16 || off > math.MaxInt16 {
			return bytecode.Instruction{}, fmt.Errorf("offset %d does not fit in 16 bits", off)
		}
		in = in.WithOffset(int16(off))
	}
	return in, nil
}

// FromProgram builds a manifest describing meta and instrs.
func FromProgram(meta program.Metadata, instrs []bytecode.Instruction) *Manifest {
	m := &Manifest{Program: Program{
		Name:    meta.Name,
		Version: meta.Version,
		Type:    string(meta.Type),
	}}
	for _, n := range meta.Networks {
		m.Program.Networks = append(m.Program.Networks, string(n))
	}
	for _, in := range instrs {
		m.Instructions = append(m.Instructions, encode(in))
	}
	return m
}

func encode(in bytecode.Instruction) Instruction {
	rec := Instruction{Op: in.Opcode().String(), Comment: in.Comment()}
	str := func(r op.Register) *string {
		s := r.String()
		return &s
	}
	if r, ok := in.Dst(); ok {
		rec.Dst = str(r)
	}
	if r, ok := in.Src(); ok {
		rec.Src = str(r)
	}
	if r, ok := in.Src2(); ok {
		rec.Src2 = str(r)
	}
	if v, ok := in.Imm(); ok {
		rec.Imm = &v
	}
	if off, ok := in.Offset(); ok {
		v := int64(off)
		rec.Offset = &v
	}
	return rec
}

// Encode writes the manifest as TOML.
func (m *Manifest) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(m)
}
