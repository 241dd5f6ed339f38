package vm

import (
	"luavm/internal/bytecode"
	"luavm/internal/errors"
)

func init() {
	register(bytecode.OP_MOVE, move)
	register(bytecode.OP_JMP, jmp)
}

// move implements R(A) := R(B).
func move(s *State, i bytecode.Instruction) error {
	a, b, _ := i.ABC()
	return s.Copy(b+1, a+1)
}

// jmp implements an unconditional relative jump by sBx instructions. A is
// always 0 for the opcodes this core implements (it is only nonzero when
// closing upvalues for a loop body, which requires CLOSURE support this
// core does not have).
func jmp(s *State, i bytecode.Instruction) error {
	a, sbx := i.AsBx()
	if a != 0 {
		return s.err(errors.UnimplementedOpcode, "JMP with non-zero A (upvalue closing) is not supported")
	}
	s.AddPC(sbx)
	return nil
}
