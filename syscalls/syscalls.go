// Package syscalls maps the runtime's syscalls to their call numbers on each
// supported network and builds the instruction templates that invoke them.
package syscalls

import (
	"fmt"
	"sort"
	"strings"

	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/op"
)

// Network identifies a target network.
type Network string

const (
	Solana  Network = "solana"
	Sonic   Network = "sonic"
	Eclipse Network = "eclipse"
	Soon    Network = "soon"
)

// Networks returns every supported network.
func Networks() []Network {
	return []Network{Solana, Sonic, Eclipse, Soon}
}

// ParseNetwork returns the network with the given case-insensitive name.
func ParseNetwork(name string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Networks() {
		if n == known {
			return n, nil
		}
	}
	var names []string
	for _, known := range Networks() {
		names = append(names, string(known))
	}
	return "", fmt.Errorf("unknown network %q%s", name, errors.Hint(name, names))
}

// Syscall names a runtime service.
type Syscall string

const (
	Log                   Syscall = "sol_log"
	LogData               Syscall = "sol_log_data"
	GetClockSysvar        Syscall = "sol_get_clock_sysvar"
	CreateProgramAddress  Syscall = "sol_create_program_address"
	TryFindProgramAddress Syscall = "sol_try_find_program_address"
	InvokeSigned          Syscall = "sol_invoke_signed"
	GetAccountInfo        Syscall = "sol_get_account_info"
	SetReturnData         Syscall = "sol_set_return_data"
	GetReturnData         Syscall = "sol_get_return_data"
)

// Table maps syscalls to call numbers for one network.
type Table map[Syscall]int64

var base = Table{
	Log:                   1,
	LogData:               2,
	GetClockSysvar:        3,
	CreateProgramAddress:  4,
	TryFindProgramAddress: 5,
	InvokeSigned:          6,
	GetAccountInfo:        7,
	SetReturnData:         8,
	GetReturnData:         9,
}

// logging syscalls are renumbered per network
var logNumbers = map[Network][2]int64{
	Sonic:   {101, 102},
	Eclipse: {201, 202},
	Soon:    {301, 302},
}

// For returns the syscall table of network. Unknown networks use the
// Solana numbering.
func For(network Network) Table {
	t := make(Table, len(base))
	for k, v := range base {
		t[k] = v
	}
	if nums, ok := logNumbers[network]; ok {
		t[Log] = nums[0]
		t[LogData] = nums[1]
	}
	return t
}

// Names returns the syscalls in the table sorted by call number.
func (t Table) Names() []Syscall {
	names := make([]Syscall, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return t[names[i]] < t[names[j]] })
	return names
}

// Helper emits syscall instruction templates for one network.
type Helper struct {
	network Network
	table   Table
}

// NewHelper returns a helper for network.
func NewHelper(network Network) *Helper {
	return &Helper{network: network, table: For(network)}
}

// Network returns the helper's network.
func (h *Helper) Network() Network {
	return h.network
}

// Number returns the call number of s.
func (h *Helper) Number(s Syscall) (int64, bool) {
	n, ok := h.table[s]
	return n, ok
}

// Call returns CALL for s. It panics if s is not in the table.
func (h *Helper) Call(s Syscall, comment string) bytecode.Instruction {
	n, ok := h.table[s]
	if !ok {
		panic(fmt.Sprintf("syscalls: unknown syscall %q", s))
	}
	return bytecode.Call(n).WithComment(comment)
}

// Log expands the log pseudo-op: the message length goes into R2 and
// sol_log is called. The message pointer is expected in R1.
func (h *Helper) Log(message string) []bytecode.Instruction {
	return []bytecode.Instruction{
		bytecode.LoadImm(op.R2, int64(len(message))).WithComment("Log length"),
		h.Call(Log, "Log: "+message),
	}
}

// ExitWith sets the return code and exits.
func (h *Helper) ExitWith(code int64) []bytecode.Instruction {
	return []bytecode.Instruction{
		bytecode.LoadImm(op.R0, code).WithComment(fmt.Sprintf("Set exit code: %d", code)),
		bytecode.Exit(),
	}
}
