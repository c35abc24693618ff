// Package op defines the instruction vocabulary of the BPF-style virtual
// machine: opcode kinds, their classes, the operands each one requires, and
// the opcode byte each one encodes to.
package op

// Code identifies the kind of an instruction. The set is closed; every
// switch over Code in this module is expected to handle all of them.
type Code uint8

const (
	Invalid Code = 0

	// Load/Store
	Load    Code = 1
	LoadImm Code = 2
	Store   Code = 3
	Mov     Code = 4

	// 64-bit ALU
	Add  Code = 10
	Sub  Code = 11
	Mul  Code = 12
	Div  Code = 13
	Or   Code = 14
	And  Code = 15
	Lsh  Code = 16
	Rsh  Code = 17
	Neg  Code = 18
	Mod  Code = 19
	Xor  Code = 20
	Arsh Code = 21

	// Jump
	Jump                     Code = 30
	JumpIfEqual              Code = 31
	JumpIfNotEqual           Code = 32
	JumpIfGreater            Code = 33
	JumpIfGreaterEqual       Code = 34
	JumpIfLess               Code = 35
	JumpIfLessEqual          Code = 36
	JumpIfSet                Code = 37
	JumpIfSignedGreater      Code = 38
	JumpIfSignedGreaterEqual Code = 39
	JumpIfSignedLess         Code = 40
	JumpIfSignedLessEqual    Code = 41

	// Execution
	Call Code = 50
	Exit Code = 51
)

// Class groups opcodes that share encoding and cost characteristics.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassMemory
	ClassALU
	ClassJump
	ClassConditionalJump
	ClassCall
	ClassExit
)

// String returns the lowercase name of the class.
func (c Class) String() string {
	switch c {
	case ClassMemory:
		return "memory"
	case ClassALU:
		return "alu"
	case ClassJump:
		return "jump"
	case ClassConditionalJump:
		return "conditional-jump"
	case ClassCall:
		return "call"
	case ClassExit:
		return "exit"
	default:
		return "invalid"
	}
}

// Operands is a bit set describing which instruction fields an opcode reads.
type Operands uint8

const (
	// NeedDst marks a required destination register.
	NeedDst Operands = 1 << iota
	// NeedSrc marks a required source register.
	NeedSrc
	// NeedImm marks a required immediate.
	NeedImm
	// NeedOffset marks a required offset.
	NeedOffset
	// SrcOrImm marks an operand that may be given as a source register
	// (register mode) or as an immediate (immediate mode).
	SrcOrImm
	// AllowSrc2 permits the three-operand form dst = src <op> src2.
	AllowSrc2
	// AllowOffset marks an optional offset that defaults to zero.
	AllowOffset
)

// Has reports whether all bits in o2 are set in o.
func (o Operands) Has(o2 Operands) bool {
	return o&o2 == o2
}

// SourceReg is the opcode bit that selects register mode for opcodes that
// accept either a source register or an immediate.
const SourceReg byte = 0x08

// Info contains information about an opcode.
type Info struct {
	Code     Code
	Name     string
	Mnemonic string
	Class    Class
	// Opcode is the encoded byte in immediate mode, or the only encoding
	// for opcodes without a register mode.
	Opcode   byte
	Operands Operands
}

// HasRegisterMode reports whether the opcode has a distinct register-mode
// encoding (Opcode | SourceReg).
func (i Info) HasRegisterMode() bool {
	return i.Operands.Has(SrcOrImm)
}

// IsJump reports whether the opcode transfers control by a relative offset.
func (i Info) IsJump() bool {
	return i.Class == ClassJump || i.Class == ClassConditionalJump
}

type decoded struct {
	code    Code
	regMode bool
	ok      bool
}

var (
	infos   = make([]Info, 256)
	byName  = map[string]Code{}
	byByte  [256]decoded
	ordered []Code
)

func init() {
	type opInfo struct {
		op       Code
		name     string
		mnemonic string
		class    Class
		opcode   byte
		operands Operands
	}
	alu := NeedDst | SrcOrImm | AllowSrc2
	cond := NeedDst | SrcOrImm | NeedOffset
	ops := []opInfo{
		{Load, "LOAD", "ldxdw", ClassMemory, 0x79, NeedDst | NeedSrc | AllowOffset},
		{LoadImm, "LOAD_IMM", "mov64", ClassMemory, 0xb7, NeedDst | NeedImm},
		{Store, "STORE", "stxdw", ClassMemory, 0x7b, NeedDst | NeedSrc | AllowOffset},
		{Mov, "MOV", "mov64", ClassALU, 0xbf, NeedDst | NeedSrc},
		{Add, "ADD", "add64", ClassALU, 0x07, alu},
		{Sub, "SUB", "sub64", ClassALU, 0x17, alu},
		{Mul, "MUL", "mul64", ClassALU, 0x27, alu},
		{Div, "DIV", "div64", ClassALU, 0x37, alu},
		{Or, "OR", "or64", ClassALU, 0x47, alu},
		{And, "AND", "and64", ClassALU, 0x57, alu},
		{Lsh, "LSH", "lsh64", ClassALU, 0x67, alu},
		{Rsh, "RSH", "rsh64", ClassALU, 0x77, alu},
		{Neg, "NEG", "neg64", ClassALU, 0x87, NeedDst},
		{Mod, "MOD", "mod64", ClassALU, 0x97, alu},
		{Xor, "XOR", "xor64", ClassALU, 0xa7, alu},
		{Arsh, "ARSH", "arsh64", ClassALU, 0xc7, alu},
		{Jump, "JUMP", "ja", ClassJump, 0x05, NeedOffset},
		{JumpIfEqual, "JUMP_IF_EQUAL", "jeq", ClassConditionalJump, 0x15, cond},
		{JumpIfGreater, "JUMP_IF_GREATER", "jgt", ClassConditionalJump, 0x25, cond},
		{JumpIfGreaterEqual, "JUMP_IF_GREATER_EQUAL", "jge", ClassConditionalJump, 0x35, cond},
		{JumpIfSet, "JUMP_IF_SET", "jset", ClassConditionalJump, 0x45, cond},
		{JumpIfNotEqual, "JUMP_IF_NOT_EQUAL", "jne", ClassConditionalJump, 0x55, cond},
		{JumpIfSignedGreater, "JUMP_IF_SIGNED_GREATER", "jsgt", ClassConditionalJump, 0x65, cond},
		{JumpIfSignedGreaterEqual, "JUMP_IF_SIGNED_GREATER_EQUAL", "jsge", ClassConditionalJump, 0x75, cond},
		{JumpIfLess, "JUMP_IF_LESS", "jlt", ClassConditionalJump, 0xa5, cond},
		{JumpIfLessEqual, "JUMP_IF_LESS_EQUAL", "jle", ClassConditionalJump, 0xb5, cond},
		{JumpIfSignedLess, "JUMP_IF_SIGNED_LESS", "jslt", ClassConditionalJump, 0xc5, cond},
		{JumpIfSignedLessEqual, "JUMP_IF_SIGNED_LESS_EQUAL", "jsle", ClassConditionalJump, 0xd5, cond},
		{Call, "CALL", "call", ClassCall, 0x85, NeedImm},
		{Exit, "EXIT", "exit", ClassExit, 0x95, 0},
	}
	for _, o := range ops {
		info := Info{
			Code:     o.op,
			Name:     o.name,
			Mnemonic: o.mnemonic,
			Class:    o.class,
			Opcode:   o.opcode,
			Operands: o.operands,
		}
		infos[o.op] = info
		byName[o.name] = o.op
		ordered = append(ordered, o.op)
		byByte[o.opcode] = decoded{code: o.op, ok: true}
		if info.HasRegisterMode() {
			byByte[o.opcode|SourceReg] = decoded{code: o.op, regMode: true, ok: true}
		}
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes
// return an Info whose Class is ClassInvalid.
func GetInfo(op Code) Info {
	return infos[op]
}

// Valid reports whether c is a member of the opcode set.
func (c Code) Valid() bool {
	return infos[c].Class != ClassInvalid
}

// String returns the opcode name, for example "LOAD_IMM".
func (c Code) String() string {
	if !c.Valid() {
		return "INVALID"
	}
	return infos[c].Name
}

// Lookup returns the opcode with the given name, for example "JUMP_IF_EQUAL".
func Lookup(name string) (Code, bool) {
	c, ok := byName[name]
	return c, ok
}

// Decode maps an encoded opcode byte back to its opcode. The regMode result
// reports whether the byte selects the register-source form.
func Decode(b byte) (code Code, regMode bool, ok bool) {
	d := byByte[b]
	return d.code, d.regMode, d.ok
}

// All returns every opcode in table order.
func All() []Code {
	out := make([]Code, len(ordered))
	copy(out, ordered)
	return out
}
