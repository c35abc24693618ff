package bytecode

// CopyInstructions returns a copy of the given instruction slice.
func CopyInstructions(src []Instruction) []Instruction {
	if src == nil {
		return nil
	}
	dst := make([]Instruction, len(src))
	copy(dst, src)
	return dst
}
