// Package program accumulates an instruction sequence together with the
// metadata of the program it describes, and compiles it on demand.
package program

import (
	"fmt"
	"strings"

	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/compiler"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/syscalls"
)

// Type classifies a program. It has no effect on encoding.
type Type string

const (
	Validator        Type = "validator"
	Middleware       Type = "middleware"
	PaymentProcessor Type = "payment_processor"
	TokenTransfer    Type = "token_transfer"
	CrossChainBridge Type = "cross_chain_bridge"
)

// Types returns every program type.
func Types() []Type {
	return []Type{Validator, Middleware, PaymentProcessor, TokenTransfer, CrossChainBridge}
}

// ParseType returns the program type with the given name.
func ParseType(name string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	var names []string
	for _, known := range Types() {
		names = append(names, string(known))
	}
	return "", fmt.Errorf("unknown program type %q%s", name, errors.Hint(name, names))
}

// Metadata describes a program for deployment collaborators.
type Metadata struct {
	Name     string
	Version  string
	Type     Type
	Networks []syscalls.Network
}

// Option configures a Builder.
type Option func(*Builder)

// WithCompilerConfig sets the configuration used by Compile.
func WithCompilerConfig(cfg *compiler.Config) Option {
	return func(b *Builder) {
		b.compiler = compiler.New(cfg)
	}
}

// Builder accumulates instructions in the order they are added. A Builder
// is not safe for concurrent use; callers sharing one must serialize
// AddInstructions with respect to Compile.
type Builder struct {
	meta         Metadata
	instructions []bytecode.Instruction
	compiler     *compiler.Compiler
}

// NewBuilder returns an empty builder for a program described by meta.
func NewBuilder(meta Metadata, opts ...Option) *Builder {
	meta.Networks = append([]syscalls.Network(nil), meta.Networks...)
	b := &Builder{meta: meta}
	for _, opt := range opts {
		opt(b)
	}
	if b.compiler == nil {
		b.compiler = compiler.New(nil)
	}
	return b
}

// AddInstructions appends instrs after any previously added instructions.
func (b *Builder) AddInstructions(instrs ...bytecode.Instruction) *Builder {
	b.instructions = append(b.instructions, instrs...)
	return b
}

// Instructions returns a snapshot of the accumulated instructions. Later
// calls to AddInstructions do not affect the returned slice and changes to
// it do not affect the builder.
func (b *Builder) Instructions() []bytecode.Instruction {
	return bytecode.CopyInstructions(b.instructions)
}

// Len returns the number of accumulated instructions.
func (b *Builder) Len() int {
	return len(b.instructions)
}

// Metadata returns the program metadata.
func (b *Builder) Metadata() Metadata {
	meta := b.meta
	meta.Networks = append([]syscalls.Network(nil), b.meta.Networks...)
	return meta
}

// Compile assembles the full instruction sequence. Each call recompiles
// from scratch, so two calls without intervening additions return
// identical results.
func (b *Builder) Compile() *compiler.Result {
	if b == nil {
		panic("program: Compile called on a nil Builder")
	}
	return b.compiler.Compile(b.Instructions())
}
