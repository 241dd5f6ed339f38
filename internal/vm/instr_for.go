package vm

import (
	"luavm/internal/bytecode"
	"luavm/internal/errors"
	"luavm/internal/value"
)

func init() {
	register(bytecode.OP_FORPREP, forPrep)
	register(bytecode.OP_FORLOOP, forLoop)
}

// coerceNumber rewrites a string-valued register to its numeric value in
// place, leaving numbers untouched; a non-numeric string is a fatal error,
// the same way the reference VM's FORPREP fails on a malformed loop bound.
func coerceNumber(s *State, reg int) error {
	v := s.stack.Get(reg)
	if v.IsNumber() {
		return nil
	}
	f, ok := v.ToFloat()
	if !ok {
		return s.err(errors.ArithmeticKindError, "'for' initial value, limit, or step must be a number")
	}
	return s.stack.Set(reg, value.Float(f))
}

// forPrep implements the numeric for-loop's initialization: coerce the
// initial value, limit, and step to numbers, subtract the step from the
// initial value (so the first FORLOOP adds it back before the first
// iteration body), then jump to the loop test.
func forPrep(s *State, i bytecode.Instruction) error {
	a, sbx := i.AsBx()
	for _, reg := range []int{a + 1, a + 2, a + 3} {
		if err := coerceNumber(s, reg); err != nil {
			return err
		}
	}
	if err := s.PushValue(a + 1); err != nil {
		return err
	}
	if err := s.PushValue(a + 3); err != nil {
		return err
	}
	if err := s.Arith(OpSub); err != nil {
		return err
	}
	if err := s.Replace(a + 1); err != nil {
		return err
	}
	s.AddPC(sbx)
	return nil
}

// forLoop implements the numeric for-loop's test-and-advance: add the step
// to the counter, and if it has not yet crossed the limit (direction
// depending on the step's sign; a zero step counts as forward, matching the
// reference VM's `>= 0` check), jump back to the loop body and publish the
// counter into the loop variable's register.
func forLoop(s *State, i bytecode.Instruction) error {
	a, sbx := i.AsBx()
	if err := s.PushValue(a + 1); err != nil {
		return err
	}
	if err := s.PushValue(a + 3); err != nil {
		return err
	}
	if err := s.Arith(OpAdd); err != nil {
		return err
	}
	if err := s.Replace(a + 1); err != nil {
		return err
	}

	step, _ := s.stack.Get(a + 3).ToFloat()
	positiveStep := step >= 0

	var continues bool
	var err error
	if positiveStep {
		continues, err = s.Compare(a+1, a+2, CompareLE)
	} else {
		continues, err = s.Compare(a+2, a+1, CompareLE)
	}
	if err != nil {
		return err
	}
	if continues {
		s.AddPC(sbx)
		return s.Copy(a+1, a+4)
	}
	return nil
}
