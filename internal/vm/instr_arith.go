package vm

import "luavm/internal/bytecode"

func init() {
	binary := map[bytecode.OpCode]ArithOp{
		bytecode.OP_ADD:  OpAdd,
		bytecode.OP_SUB:  OpSub,
		bytecode.OP_MUL:  OpMul,
		bytecode.OP_MOD:  OpMod,
		bytecode.OP_POW:  OpPow,
		bytecode.OP_DIV:  OpDiv,
		bytecode.OP_IDIV: OpIDiv,
		bytecode.OP_BAND: OpBAnd,
		bytecode.OP_BOR:  OpBOr,
		bytecode.OP_BXOR: OpBXor,
		bytecode.OP_SHL:  OpShl,
		bytecode.OP_SHR:  OpShr,
	}
	for op, arith := range binary {
		register(op, binaryArith(arith))
	}
	register(bytecode.OP_UNM, unaryArith(OpUnm))
	register(bytecode.OP_BNOT, unaryArith(OpBNot))
	register(bytecode.OP_NOT, notOp)
	register(bytecode.OP_LEN, lenOp)
	register(bytecode.OP_CONCAT, concatOp)
	register(bytecode.OP_EQ, compareJump(CompareEQ))
	register(bytecode.OP_LT, compareJump(CompareLT))
	register(bytecode.OP_LE, compareJump(CompareLE))
	register(bytecode.OP_TEST, testOp)
	register(bytecode.OP_TESTSET, testSetOp)
}

// binaryArith implements R(A) := RK(B) <op> RK(C) for the two-operand
// arithmetic and bitwise opcodes.
func binaryArith(op ArithOp) Handler {
	return func(s *State, i bytecode.Instruction) error {
		a, b, c := i.ABC()
		if err := s.GetRK(b); err != nil {
			return err
		}
		if err := s.GetRK(c); err != nil {
			return err
		}
		if err := s.Arith(op); err != nil {
			return err
		}
		return s.Replace(a + 1)
	}
}

// unaryArith implements R(A) := <op> R(B) for UNM and BNOT.
func unaryArith(op ArithOp) Handler {
	return func(s *State, i bytecode.Instruction) error {
		a, b, _ := i.ABC()
		if err := s.PushValue(b + 1); err != nil {
			return err
		}
		if err := s.Arith(op); err != nil {
			return err
		}
		return s.Replace(a + 1)
	}
}

// notOp implements R(A) := not R(B).
func notOp(s *State, i bytecode.Instruction) error {
	a, b, _ := i.ABC()
	if err := s.PushBool(!s.ToBool(b + 1)); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// lenOp implements R(A) := length of R(B).
func lenOp(s *State, i bytecode.Instruction) error {
	a, b, _ := i.ABC()
	if err := s.Len(b + 1); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// concatOp implements R(A) := R(B) .. ... .. R(C). It reserves room for the
// operand copies up front, the way the reference's concats calls
// check_state(n) before pushing them: a long concat chain's span can exceed
// the frame's fixed scratch margin even though it is ordinary valid bytecode.
func concatOp(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if err := s.CheckStack(c - b + 1); err != nil {
		return err
	}
	for idx := b; idx <= c; idx++ {
		if err := s.PushValue(idx + 1); err != nil {
			return err
		}
	}
	if err := s.Concat(c - b + 1); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// compareJump implements EQ/LT/LE: if (RK(B) <op> RK(C)) != A then skip the
// next instruction (always a JMP emitted by the compiler for this purpose).
func compareJump(op CompareOp) Handler {
	return func(s *State, i bytecode.Instruction) error {
		a, b, c := i.ABC()
		if err := s.GetRK(b); err != nil {
			return err
		}
		if err := s.GetRK(c); err != nil {
			return err
		}
		result, err := s.Compare(-2, -1, op)
		if err != nil {
			return err
		}
		if result != (a != 0) {
			s.AddPC(1)
		}
		return s.Pop(2)
	}
}

// testOp implements: if bool(R(A)) != bool(C) then skip the next
// instruction.
func testOp(s *State, i bytecode.Instruction) error {
	a, _, c := i.ABC()
	if s.ToBool(a+1) != (c != 0) {
		s.AddPC(1)
	}
	return nil
}

// testSetOp implements: if bool(R(B)) == bool(C) then R(A) := R(B), else
// skip the next instruction.
func testSetOp(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if s.ToBool(b+1) == (c != 0) {
		return s.Copy(b+1, a+1)
	}
	s.AddPC(1)
	return nil
}
