package cfg

import "fmt"

// VerifyError describes a structural defect in a function.
type VerifyError struct {
	Block   string
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify error in block %q: %s", e.Block, e.Message)
}

// Verify checks the structural rules every generated function must obey:
//  1. Every block ends in exactly one terminator
//  2. Terminators never appear in a block body
//  3. Branch targets belong to the function
//  4. Allocas appear only in the entry block
//  5. Loads and stores use slots declared by the function
func Verify(fn *Function) []VerifyError {
	var errors []VerifyError
	report := func(b *Block, format string, args ...interface{}) {
		errors = append(errors, VerifyError{Block: b.Name, Message: fmt.Sprintf(format, args...)})
	}

	if len(fn.Blocks) == 0 {
		return append(errors, VerifyError{Message: "function has no blocks"})
	}

	owned := make(map[*Block]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		owned[b] = true
	}
	slots := make(map[*Slot]bool, len(fn.Slots))
	for _, s := range fn.Slots {
		slots[s] = true
	}

	for i, b := range fn.Blocks {
		if b.Term == nil {
			report(b, "missing terminator")
		} else if !b.Term.Op.IsTerminator() {
			report(b, "terminator slot holds %s", b.Term.Op)
		} else {
			for _, t := range b.Term.Targets {
				if !owned[t] {
					report(b, "branch to foreign block %q", t.Name)
				}
			}
		}

		for _, in := range b.Instrs {
			switch {
			case in.Op.IsTerminator():
				report(b, "%s in block body", in.Op)
			case in.Op == OpAlloca && i != 0:
				report(b, "alloca %s outside entry block", in.Slot)
			case (in.Op == OpLoad || in.Op == OpStore) && !slots[in.Slot]:
				report(b, "%s of undeclared slot %s", in.Op, in.Slot)
			}
		}
	}
	return errors
}
