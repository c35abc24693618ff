package program

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/compiler"
	"github.com/svmpay/bpfasm/op"
	"github.com/svmpay/bpfasm/syscalls"
)

func newTestBuilder() *Builder {
	return NewBuilder(Metadata{
		Name:     "fee-check",
		Version:  "0.1.0",
		Type:     Validator,
		Networks: []syscalls.Network{syscalls.Solana, syscalls.Sonic},
	})
}

func TestAddInstructionsPreservesOrder(t *testing.T) {
	b := newTestBuilder()
	b.AddInstructions(
		bytecode.Load(op.R2, op.R1, 0).WithComment("first"),
		bytecode.LoadImm(op.R0, 0).WithComment("second"),
	).AddInstructions(
		bytecode.Exit().WithComment("third"),
	)
	require.Equal(t, 3, b.Len())

	result := b.Compile()
	require.True(t, result.Success)
	lines := strings.Split(result.Assembly, "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasSuffix(lines[0], "; first"))
	require.True(t, strings.HasSuffix(lines[1], "; second"))
	require.True(t, strings.HasSuffix(lines[2], "; third"))
}

func TestAddInstructionsKeepsDuplicates(t *testing.T) {
	b := newTestBuilder()
	exit := bytecode.Exit()
	b.AddInstructions(exit, exit)
	require.Equal(t, 2, b.Len())
}

func TestInstructionsSnapshot(t *testing.T) {
	b := newTestBuilder()
	b.AddInstructions(bytecode.LoadImm(op.R0, 0))
	snapshot := b.Instructions()
	snapshot[0] = bytecode.Exit()
	b.AddInstructions(bytecode.Exit())

	require.Len(t, snapshot, 1)
	require.Equal(t, op.LoadImm, b.Instructions()[0].Opcode())
	require.Len(t, b.Instructions(), 2)
}

func TestCompileIsIdempotent(t *testing.T) {
	b := newTestBuilder()
	b.AddInstructions(
		bytecode.Load(op.R2, op.R1, 8),
		bytecode.JumpIfImm(op.JumpIfGreater, op.R2, 1000, 2),
		bytecode.LoadImm(op.R0, 0),
		bytecode.Exit(),
		bytecode.LoadImm(op.R0, 1),
		bytecode.Exit(),
	)
	first := b.Compile()
	second := b.Compile()
	require.True(t, first.Success)
	require.Equal(t, first.Assembly, second.Assembly)
	require.Equal(t, first.Bytecode, second.Bytecode)
}

func TestCompileRecompilesEverything(t *testing.T) {
	b := newTestBuilder()
	b.AddInstructions(bytecode.LoadImm(op.R0, 0))
	first := b.Compile()
	require.True(t, first.Success)
	require.Len(t, first.Bytecode, bytecode.WordSize)

	b.AddInstructions(bytecode.Exit())
	second := b.Compile()
	require.True(t, second.Success)
	require.Len(t, second.Bytecode, 2*bytecode.WordSize)
	require.Equal(t, first.Bytecode, second.Bytecode[:bytecode.WordSize])
	require.Empty(t, second.Warnings)
}

func TestCompileEmptyBuilder(t *testing.T) {
	result := newTestBuilder().Compile()
	require.False(t, result.Success)
	require.Nil(t, result.Bytecode)
	require.NotEmpty(t, result.Errors)
}

func TestCompileNilBuilderPanics(t *testing.T) {
	var b *Builder
	require.Panics(t, func() { b.Compile() })
}

func TestMetadataIsCopied(t *testing.T) {
	networks := []syscalls.Network{syscalls.Eclipse}
	b := NewBuilder(Metadata{Name: "bridge", Type: CrossChainBridge, Networks: networks})
	networks[0] = syscalls.Soon
	meta := b.Metadata()
	require.Equal(t, []syscalls.Network{syscalls.Eclipse}, meta.Networks)
	meta.Networks[0] = syscalls.Sonic
	require.Equal(t, syscalls.Eclipse, b.Metadata().Networks[0])
}

func TestWithCompilerConfig(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBuilder(Metadata{Name: "x"}, WithCompilerConfig(&compiler.Config{
		Logger:         &logger,
		MaxFrameOffset: 4096,
	}))
	b.AddInstructions(bytecode.Store(op.R10, op.R1, -2048), bytecode.Exit())
	result := b.Compile()
	require.True(t, result.Success)
	require.Empty(t, result.Warnings)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Payment_Processor")
	require.NoError(t, err)
	require.Equal(t, PaymentProcessor, typ)
	_, err = ParseType("oracle")
	require.Error(t, err)
}
