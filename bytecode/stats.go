package bytecode

import "github.com/svmpay/bpfasm/op"

// Stats contains statistics about a bytecode image.
// This is useful for auditing programs before deployment.
type Stats struct {
	// SizeBytes is the length of the image in bytes.
	SizeBytes int `json:"size_bytes"`

	// InstructionCount is the number of complete words.
	InstructionCount int `json:"instructions"`

	// JumpCount is the number of jump words, conditional or not.
	JumpCount int `json:"jumps"`

	// CallCount is the number of syscall words.
	CallCount int `json:"calls"`

	// UnknownCount is the number of words whose opcode byte is not recognized.
	UnknownCount int `json:"unknown"`
}

// ComputeStats scans the image and returns its statistics.
func ComputeStats(image []byte) Stats {
	stats := Stats{SizeBytes: len(image)}
	iter := NewWordIter(image)
	for {
		_, w, ok := iter.Next()
		if !ok {
			break
		}
		stats.InstructionCount++
		code, _, known := w.Kind()
		if !known {
			stats.UnknownCount++
			continue
		}
		info := op.GetInfo(code)
		switch {
		case info.IsJump():
			stats.JumpCount++
		case info.Class == op.ClassCall:
			stats.CallCount++
		}
	}
	return stats
}
