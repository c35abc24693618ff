// Package elfimage reads and writes the ELF objects that carry deployed
// programs. Parsing locates the program text so it can be validated or
// disassembled like a raw bytecode image; Wrap produces a minimal
// loadable object around compiled bytecode.
package elfimage

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// TextSections are the section names searched for program text, in order.
var TextSections = []string{".text", ".bpf"}

// EntrySymbols are the symbol names accepted as a program entry point.
var EntrySymbols = []string{"entrypoint", "_start", "main"}

// DefaultEntrySymbol is the symbol Wrap exports when none is given.
const DefaultEntrySymbol = "entrypoint"

// MachineBPF is the ELF machine number of BPF objects.
const MachineBPF = elf.EM_BPF

// Image is a parsed ELF object.
type Image struct {
	Class          elf.Class
	Machine        elf.Machine
	Entry          uint64
	Sections       []string
	ProgramHeaders int

	// Symbols lists the static and dynamic symbol names. It is nil when
	// the object carries no symbol table.
	Symbols []string

	// TextSection is the name of the section Text was read from, or empty
	// when no text section exists.
	TextSection string
	Text        []byte
}

// IsELF reports whether data starts with the ELF magic number.
func IsELF(data []byte) bool {
	return bytes.HasPrefix(data, []byte(elf.ELFMAG))
}

// Parse decodes an ELF object and extracts its program text.
func Parse(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid ELF object: %w", err)
	}
	defer f.Close()

	img := &Image{
		Class:          f.Class,
		Machine:        f.Machine,
		Entry:          f.Entry,
		ProgramHeaders: len(f.Progs),
	}
	for _, s := range f.Sections {
		if s.Name != "" {
			img.Sections = append(img.Sections, s.Name)
		}
	}

	haveSymbols := false
	for _, read := range []func() ([]elf.Symbol, error){f.Symbols, f.DynamicSymbols} {
		syms, err := read()
		if errors.Is(err, elf.ErrNoSymbols) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("invalid ELF symbol table: %w", err)
		}
		haveSymbols = true
		for _, sym := range syms {
			if sym.Name != "" {
				img.Symbols = append(img.Symbols, sym.Name)
			}
		}
	}
	if haveSymbols && img.Symbols == nil {
		img.Symbols = []string{}
	}

	for _, name := range TextSections {
		s := f.Section(name)
		if s == nil {
			continue
		}
		text, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("read %s section: %w", name, err)
		}
		img.TextSection = name
		img.Text = text
		break
	}
	return img, nil
}

// HasEntrySymbol reports whether one of EntrySymbols is defined.
func (img *Image) HasEntrySymbol() bool {
	for _, name := range img.Symbols {
		if slices.Contains(EntrySymbols, name) {
			return true
		}
	}
	return false
}

const (
	headerSize  = 64
	progSize    = 56
	sectionSize = 64
	symbolSize  = 24
)

// Wrap returns a little-endian ELF64 shared object holding text in a
// .text section, one PT_LOAD segment mapping it, and a global function
// symbol at its start. symbol defaults to DefaultEntrySymbol.
func Wrap(text []byte, symbol string) []byte {
	if symbol == "" {
		symbol = DefaultEntrySymbol
	}
	strtab := append(append([]byte{0}, symbol...), 0)
	shstrtab := []byte("\x00.text\x00.symtab\x00.strtab\x00.shstrtab\x00")
	name := func(s string) uint32 {
		return uint32(bytes.Index(shstrtab, []byte(s+"\x00")))
	}

	textOff := uint64(headerSize + progSize)
	symOff := align(textOff + uint64(len(text)))
	strOff := symOff + 2*symbolSize
	shstrOff := strOff + uint64(len(strtab))
	shOff := align(shstrOff + uint64(len(shstrtab)))

	var buf bytes.Buffer
	write := func(v any) {
		// Writes to a bytes.Buffer do not fail.
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	pad := func(to uint64) {
		buf.Write(make([]byte, to-uint64(buf.Len())))
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	write(elf.Header64{
		Ident:     ident,
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(MachineBPF),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     textOff,
		Phoff:     headerSize,
		Shoff:     shOff,
		Ehsize:    headerSize,
		Phentsize: progSize,
		Phnum:     1,
		Shentsize: sectionSize,
		Shnum:     5,
		Shstrndx:  4,
	})
	write(elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    textOff,
		Vaddr:  textOff,
		Paddr:  textOff,
		Filesz: uint64(len(text)),
		Memsz:  uint64(len(text)),
		Align:  8,
	})
	buf.Write(text)
	pad(symOff)
	write(elf.Sym64{})
	write(elf.Sym64{
		Name:  1,
		Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
		Shndx: 1,
		Value: textOff,
		Size:  uint64(len(text)),
	})
	buf.Write(strtab)
	buf.Write(shstrtab)
	pad(shOff)

	write(elf.Section64{})
	write(elf.Section64{
		Name:      name(".text"),
		Type:      uint32(elf.SHT_PROGBITS),
		Flags:     uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR),
		Addr:      textOff,
		Off:       textOff,
		Size:      uint64(len(text)),
		Addralign: 8,
	})
	write(elf.Section64{
		Name:      name(".symtab"),
		Type:      uint32(elf.SHT_SYMTAB),
		Off:       symOff,
		Size:      2 * symbolSize,
		Link:      3,
		Info:      1,
		Addralign: 8,
		Entsize:   symbolSize,
	})
	write(elf.Section64{
		Name:      name(".strtab"),
		Type:      uint32(elf.SHT_STRTAB),
		Off:       strOff,
		Size:      uint64(len(strtab)),
		Addralign: 1,
	})
	write(elf.Section64{
		Name:      name(".shstrtab"),
		Type:      uint32(elf.SHT_STRTAB),
		Off:       shstrOff,
		Size:      uint64(len(shstrtab)),
		Addralign: 1,
	})
	return buf.Bytes()
}

func align(n uint64) uint64 {
	return (n + 7) &^ 7
}
