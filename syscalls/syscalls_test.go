package syscalls

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/svmpay/bpfasm/op"
)

func TestTables(t *testing.T) {
	tests := []struct {
		network Network
		log     int64
		logData int64
	}{
		{Solana, 1, 2},
		{Sonic, 101, 102},
		{Eclipse, 201, 202},
		{Soon, 301, 302},
	}
	for _, tt := range tests {
		t.Run(string(tt.network), func(t *testing.T) {
			table := For(tt.network)
			require.Equal(t, tt.log, table[Log])
			require.Equal(t, tt.logData, table[LogData])
			require.Equal(t, int64(6), table[InvokeSigned])
			require.Len(t, table, 9)
		})
	}
}

func TestTablesAreIndependent(t *testing.T) {
	a := For(Solana)
	a[Log] = 999
	require.Equal(t, int64(1), For(Solana)[Log])
}

func TestNames(t *testing.T) {
	names := For(Solana).Names()
	require.Equal(t, Log, names[0])
	require.Equal(t, GetReturnData, names[len(names)-1])
}

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork(" Eclipse ")
	require.NoError(t, err)
	require.Equal(t, Eclipse, n)

	_, err = ParseNetwork("ethereum")
	require.EqualError(t, err, `unknown network "ethereum"`)
}

func TestLogTemplate(t *testing.T) {
	h := NewHelper(Sonic)
	instrs := h.Log("hello")
	require.Len(t, instrs, 2)
	require.Equal(t, "LOAD_IMM r2, 5", instrs[0].String())
	require.Equal(t, op.Call, instrs[1].Opcode())
	id, _ := instrs[1].Imm()
	require.Equal(t, int64(101), id)
	require.Equal(t, "Log: hello", instrs[1].Comment())
}

func TestCallUnknownPanics(t *testing.T) {
	h := NewHelper(Solana)
	require.Panics(t, func() { h.Call(Syscall("sol_nope"), "") })
	n, ok := h.Number(GetAccountInfo)
	require.True(t, ok)
	require.Equal(t, int64(7), n)
}

func TestExitWith(t *testing.T) {
	instrs := NewHelper(Solana).ExitWith(3)
	require.Equal(t, "LOAD_IMM r0, 3", instrs[0].String())
	require.Equal(t, op.Exit, instrs[1].Opcode())
}

func TestParseNetworkHint(t *testing.T) {
	_, err := ParseNetwork("sonik")
	require.EqualError(t, err, `unknown network "sonik" (did you mean "sonic"?)`)
}
