// Package memory plans frame-relative stack layouts and emits the
// instruction fragments that realize them.
//
// All addressing is relative to the frame pointer R10. A structure of total
// size T occupies [R10-T, R10); the field at cumulative offset o lives at
// R10-(T-o). Offsets are plain sums of the preceding field sizes. No
// alignment padding is inserted.
//
// Fragments use R8 as the value register. Planner configuration is owned by
// the Planner instance; updating it never changes fragments that were
// already returned.
package memory

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/op"
)

// Default memory regions of the target VM.
const (
	DefaultStackStart       uint64 = 0x100000000
	DefaultStackSize               = 4096
	DefaultHeapStart        uint64 = 0x200000000
	DefaultHeapSize                = 65536
	DefaultProgramDataStart uint64 = 0x300000000
)

// ValueRegister holds constants on their way to memory.
const ValueRegister = op.R8

// Layout describes the memory regions the planner works against.
type Layout struct {
	StackStart       uint64
	StackSize        int
	HeapStart        uint64
	HeapSize         int
	ProgramDataStart uint64
}

// DefaultLayout returns the default memory regions.
func DefaultLayout() Layout {
	return Layout{
		StackStart:       DefaultStackStart,
		StackSize:        DefaultStackSize,
		HeapStart:        DefaultHeapStart,
		HeapSize:         DefaultHeapSize,
		ProgramDataStart: DefaultProgramDataStart,
	}
}

// merge returns l with every non-zero field of update applied.
func (l Layout) merge(update Layout) Layout {
	if update.StackStart != 0 {
		l.StackStart = update.StackStart
	}
	if update.StackSize != 0 {
		l.StackSize = update.StackSize
	}
	if update.HeapStart != 0 {
		l.HeapStart = update.HeapStart
	}
	if update.HeapSize != 0 {
		l.HeapSize = update.HeapSize
	}
	if update.ProgramDataStart != 0 {
		l.ProgramDataStart = update.ProgramDataStart
	}
	return l
}

// Field is one named member of a stack structure. Fields with a nil Value
// take up space but are not initialized.
type Field struct {
	Name  string
	Size  int
	Value *int64
}

// Value returns a pointer to v, for use as Field.Value.
func Value(v int64) *int64 {
	return &v
}

// Planner produces stack layouts and instruction fragments.
type Planner struct {
	layout Layout
}

// NewPlanner returns a planner. Non-zero fields of layout override the
// defaults; pass nil to use DefaultLayout.
func NewPlanner(layout *Layout) *Planner {
	p := &Planner{layout: DefaultLayout()}
	if layout != nil {
		p.layout = p.layout.merge(*layout)
	}
	return p
}

// Layout returns a copy of the current configuration.
func (p *Planner) Layout() Layout {
	return p.layout
}

// UpdateLayout applies the non-zero fields of update. Only fragments
// produced after the call see the new configuration.
func (p *Planner) UpdateLayout(update Layout) {
	p.layout = p.layout.merge(update)
}

// FitsStack reports whether size bytes fit in the configured stack.
func (p *Planner) FitsStack(size int) bool {
	return size >= 0 && size <= p.layout.StackSize
}

// CalculateStackSpace returns the sum of the field sizes.
func (p *Planner) CalculateStackSpace(fields []Field) int {
	total := 0
	for _, f := range fields {
		total += f.Size
	}
	return total
}

// CreateStructureLayout emits, for each field with a Value and in field
// order, the instructions that load the value into R8 and store it at the
// field's frame-relative address. Stores are always 8 bytes wide, so a
// field with a Value must be exactly 8 bytes.
func (p *Planner) CreateStructureLayout(fields []Field) ([]bytecode.Instruction, error) {
	for _, f := range fields {
		if f.Size < 0 {
			return nil, fmt.Errorf("field %q has negative size %d", f.Name, f.Size)
		}
		if f.Value != nil && f.Size != bytecode.WordSize {
			return nil, fmt.Errorf("field %q: initialized fields must be %d bytes, not %d",
				f.Name, bytecode.WordSize, f.Size)
		}
	}
	total := p.CalculateStackSpace(fields)
	var out []bytecode.Instruction
	offset := 0
	for _, f := range fields {
		if f.Value != nil {
			addr, err := frameOffset(-(total - offset))
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			load := materialize(ValueRegister, *f.Value)
			load[0] = load[0].WithComment("Initialize field: " + f.Name)
			out = append(out, load...)
			out = append(out, p.StoreMemory(ValueRegister, addr))
		}
		offset += f.Size
	}
	return out, nil
}

// AllocateStack reserves size bytes by moving the frame pointer down. Sizes
// larger than an immediate can hold are split into several adjustments.
func (p *Planner) AllocateStack(size int) []bytecode.Instruction {
	return adjustFrame(op.Sub, size, "Allocate %d bytes on stack")
}

// DeallocateStack releases size bytes reserved by AllocateStack.
func (p *Planner) DeallocateStack(size int) []bytecode.Instruction {
	return adjustFrame(op.Add, size, "Deallocate %d bytes from stack")
}

func adjustFrame(code op.Code, size int, comment string) []bytecode.Instruction {
	var out []bytecode.Instruction
	for remaining := size; remaining > 0; {
		chunk := min(remaining, math.MaxInt32)
		out = append(out, bytecode.ALUImm(code, op.FramePointer, int64(chunk)).
			WithComment(fmt.Sprintf(comment, chunk)))
		remaining -= chunk
	}
	return out
}

// StoreMemory stores reg at R10+offset.
func (p *Planner) StoreMemory(reg op.Register, offset int16) bytecode.Instruction {
	return bytecode.Store(op.FramePointer, reg, offset).
		WithComment(fmt.Sprintf("Store 8 bytes at offset %d", offset))
}

// LoadMemory loads the value at R10+offset into reg.
func (p *Planner) LoadMemory(reg op.Register, offset int16) bytecode.Instruction {
	return bytecode.Load(reg, op.FramePointer, offset).
		WithComment(fmt.Sprintf("Load 8 bytes from offset %d", offset))
}

// ZeroMemory clears size bytes starting at R10+offset, rounded up to whole
// 8-byte words.
func (p *Planner) ZeroMemory(offset, size int) ([]bytecode.Instruction, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	out := []bytecode.Instruction{bytecode.LoadImm(ValueRegister, 0).WithComment("Load zero")}
	for i := 0; i < size; i += bytecode.WordSize {
		addr, err := frameOffset(offset + i)
		if err != nil {
			return nil, err
		}
		out = append(out, p.StoreMemory(ValueRegister, addr))
	}
	return out, nil
}

// CopyMemory copies size bytes from R10+src to R10+dst through R8, one
// 8-byte word at a time.
func (p *Planner) CopyMemory(src, dst, size int) ([]bytecode.Instruction, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	var out []bytecode.Instruction
	for i := 0; i < size; i += bytecode.WordSize {
		from, err := frameOffset(src + i)
		if err != nil {
			return nil, err
		}
		to, err := frameOffset(dst + i)
		if err != nil {
			return nil, err
		}
		out = append(out, p.LoadMemory(ValueRegister, from), p.StoreMemory(ValueRegister, to))
	}
	return out, nil
}

// StoreString writes the bytes of s to R10+offset as little-endian 8-byte
// chunks. The last chunk is zero padded.
func (p *Planner) StoreString(s string, offset int) ([]bytecode.Instruction, error) {
	var out []bytecode.Instruction
	for i := 0; i < len(s); i += bytecode.WordSize {
		end := min(i+bytecode.WordSize, len(s))
		var chunk [8]byte
		copy(chunk[:], s[i:end])
		addr, err := frameOffset(offset + i)
		if err != nil {
			return nil, err
		}
		load := materialize(ValueRegister, int64(binary.LittleEndian.Uint64(chunk[:])))
		load[0] = load[0].WithComment(fmt.Sprintf("String chunk: %q", s[i:end]))
		out = append(out, load...)
		out = append(out, p.StoreMemory(ValueRegister, addr))
	}
	return out, nil
}

// materialize loads a 64-bit constant into reg. Values that fit in 32 bits
// take a single LOAD_IMM. Wider values are built from the high word and
// two 16-bit halves of the low word, since LOAD_IMM sign-extends.
func materialize(reg op.Register, v int64) []bytecode.Instruction {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return []bytecode.Instruction{bytecode.LoadImm(reg, v)}
	}
	lo := uint32(v)
	return []bytecode.Instruction{
		bytecode.LoadImm(reg, v>>32),
		bytecode.ALUImm(op.Lsh, reg, 16),
		bytecode.ALUImm(op.Or, reg, int64(lo>>16)),
		bytecode.ALUImm(op.Lsh, reg, 16),
		bytecode.ALUImm(op.Or, reg, int64(lo&0xffff)),
	}
}

func frameOffset(off int) (int16, error) {
	if off < math.MinInt16 || off > math.MaxInt16 {
		return 0, fmt.Errorf("frame offset %d does not fit in 16 bits", off)
	}
	return int16(off), nil
}

// BufferRegister receives the address of a buffer from AllocateBuffer.
const BufferRegister = op.R7

// AllocateBuffer zeroes size bytes directly below the frame pointer,
// rounded up to whole words, and leaves the buffer's lowest address in R7.
func (p *Planner) AllocateBuffer(size int) ([]bytecode.Instruction, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	rounded := (size + bytecode.WordSize - 1) / bytecode.WordSize * bytecode.WordSize
	if !p.FitsStack(rounded) {
		return nil, fmt.Errorf("buffer of %d bytes does not fit the %d byte stack", rounded, p.layout.StackSize)
	}
	out, err := p.ZeroMemory(-rounded, rounded)
	if err != nil {
		return nil, err
	}
	return append(out,
		bytecode.Mov(BufferRegister, op.FramePointer).WithComment("Buffer pointer in r7"),
		bytecode.ALUImm(op.Sub, BufferRegister, int64(rounded)).WithComment(fmt.Sprintf("Buffer of %d bytes", rounded)),
	), nil
}

// LoadAccountData follows the account's data pointer, stored at offset 0
// of the account record addressed by account, and loads the 8 bytes at
// dataOffset into R5. R6 is left holding the address that was read.
func (p *Planner) LoadAccountData(account op.Register, dataOffset int32) []bytecode.Instruction {
	return []bytecode.Instruction{
		bytecode.Load(op.R6, account, 0).WithComment("Load account data pointer"),
		bytecode.ALUImm(op.Add, op.R6, int64(dataOffset)).WithComment(fmt.Sprintf("Add data offset: %d", dataOffset)),
		bytecode.Load(op.R5, op.R6, 0).WithComment("Load account data"),
	}
}

// BoundsCheck branches when reg is outside [lo, hi]. fail is the jump
// offset of the failure path counted from the instruction that follows the
// check, as for any jump placed there.
func (p *Planner) BoundsCheck(reg op.Register, lo, hi int64, fail int16) ([]bytecode.Instruction, error) {
	if lo > hi {
		return nil, fmt.Errorf("empty bounds [%d, %d]", lo, hi)
	}
	if fail == math.MaxInt16 {
		return nil, fmt.Errorf("failure offset %d does not fit in 16 bits", int(fail)+1)
	}
	return []bytecode.Instruction{
		bytecode.JumpIfImm(op.JumpIfLess, reg, lo, fail+1).WithComment(fmt.Sprintf("Check %s < %d", reg, lo)),
		bytecode.JumpIfImm(op.JumpIfGreater, reg, hi, fail).WithComment(fmt.Sprintf("Check %s > %d", reg, hi)),
	}, nil
}
