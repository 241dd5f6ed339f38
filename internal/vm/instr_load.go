package vm

import (
	"luavm/internal/bytecode"
)

func init() {
	register(bytecode.OP_LOADK, loadK)
	register(bytecode.OP_LOADKX, loadKX)
	register(bytecode.OP_LOADBOOL, loadBool)
	register(bytecode.OP_LOADNIL, loadNil)
}

// loadK implements R(A) := Kst(Bx).
func loadK(s *State, i bytecode.Instruction) error {
	a, bx := i.ABx()
	if err := s.GetConst(bx); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// loadKX implements R(A) := Kst(extra arg), where the real constant index
// is encoded in the EXTRAARG instruction immediately following.
func loadKX(s *State, i bytecode.Instruction) error {
	a, _ := i.ABx()
	extra, err := s.Fetch()
	if err != nil {
		return err
	}
	if err := s.GetConst(extra.Ax()); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// loadBool implements R(A) := (bool)B; if C then pc++.
func loadBool(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if err := s.PushBool(b != 0); err != nil {
		return err
	}
	if err := s.Replace(a + 1); err != nil {
		return err
	}
	if c != 0 {
		s.AddPC(1)
	}
	return nil
}

// loadNil implements R(A), R(A+1), ..., R(A+B) := nil.
func loadNil(s *State, i bytecode.Instruction) error {
	a, b, _ := i.ABC()
	if err := s.PushNil(); err != nil {
		return err
	}
	for idx := a; idx <= a+b; idx++ {
		if err := s.Copy(-1, idx+1); err != nil {
			return err
		}
	}
	return s.Pop(1)
}
