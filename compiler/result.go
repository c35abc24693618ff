package compiler

import (
	stderrors "errors"

	"github.com/hashicorp/go-multierror"
	"github.com/svmpay/bpfasm/errors"
)

// Result is the outcome of assembling an instruction sequence. Success is
// true exactly when Bytecode is non-nil, and Errors is non-empty exactly
// when Success is false.
type Result struct {
	Success          bool
	Assembly         string
	Bytecode         []byte
	Errors           []string
	Warnings         []string
	InstructionCount int

	err *multierror.Error
}

// Err returns the accumulated structural errors, or nil on success.
func (r *Result) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err.ErrorOrNil()
}

// AssembleErrors returns the structural errors with their codes and
// instruction indices.
func (r *Result) AssembleErrors() []*errors.AssembleError {
	if r.err == nil {
		return nil
	}
	var out []*errors.AssembleError
	for _, err := range r.err.Errors {
		var ae *errors.AssembleError
		if stderrors.As(err, &ae) {
			out = append(out, ae)
		}
	}
	return out
}
