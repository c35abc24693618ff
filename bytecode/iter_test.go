package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/op"
)

func image(words ...Word) []byte {
	var out []byte
	for _, w := range words {
		out = w.AppendTo(out)
	}
	return out
}

func TestWordIter(t *testing.T) {
	img := image(
		Word{Opcode: 0xb7, Dst: op.R0, Imm: 0},
		Word{Opcode: 0x15, Dst: op.R1, Offset: 1},
		Word{Opcode: 0x85, Imm: 6},
		Word{Opcode: 0x95},
	)
	iter := NewWordIter(img)
	require.Equal(t, 4, iter.Count())
	require.Equal(t, 0, iter.Remainder())

	index, w, ok := iter.Next()
	require.True(t, ok)
	require.Equal(t, 0, index)
	require.Equal(t, byte(0xb7), w.Opcode)

	rest := iter.All()
	require.Len(t, rest, 3)
	require.Equal(t, byte(0x95), rest[2].Opcode)

	_, _, ok = iter.Next()
	require.False(t, ok)
}

func TestWordIterSkipsPartialWord(t *testing.T) {
	img := image(Word{Opcode: 0x95}, Word{Opcode: 0x95})
	img = img[:len(img)-1]
	iter := NewWordIter(img)
	require.Equal(t, 1, iter.Count())
	require.Equal(t, 7, iter.Remainder())
	require.Len(t, iter.All(), 1)
}

func TestComputeStats(t *testing.T) {
	img := image(
		Word{Opcode: 0xb7, Dst: op.R0},
		Word{Opcode: 0x05, Offset: 1},
		Word{Opcode: 0x1d, Dst: op.R1, Src: op.R2},
		Word{Opcode: 0x85, Imm: 6},
		Word{Opcode: 0xff},
		Word{Opcode: 0x95},
	)
	stats := ComputeStats(append(img, 0x00))
	require.Equal(t, Stats{
		SizeBytes:        6*WordSize + 1,
		InstructionCount: 6,
		JumpCount:        2,
		CallCount:        1,
		UnknownCount:     1,
	}, stats)
}
