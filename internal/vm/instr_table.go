package vm

import "luavm/internal/bytecode"

// fieldsPerFlush is how many array elements one SETLIST batch covers
// before its block index advances, matching the reference VM's constant.
const fieldsPerFlush = 50

func init() {
	register(bytecode.OP_NEWTABLE, newTable)
	register(bytecode.OP_GETTABLE, getTable)
	register(bytecode.OP_SETTABLE, setTable)
	register(bytecode.OP_SETLIST, setList)
}

// fb2int decodes a "floating byte" size hint: values under 8 are exact,
// larger values are a mantissa-and-exponent pair packed into one byte,
// giving a coarse size estimate without needing a full integer field.
func fb2int(x int) int {
	if x < 8 {
		return x
	}
	return ((x & 7) + 8) << (uint(x>>3) - 1)
}

// int2fb encodes an integer as the floating-byte format fb2int decodes.
func int2fb(x int) int {
	e := 0
	if x < 8 {
		return x
	}
	for x >= 16 {
		x = (x + 1) >> 1
		e++
	}
	return ((e + 1) << 3) | (x - 8)
}

// newTable implements R(A) := {} sized by the array/hash hints in B and C.
func newTable(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if err := s.CreateTable(fb2int(b), fb2int(c)); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// getTable implements R(A) := R(B)[RK(C)].
func getTable(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if err := s.GetRK(c); err != nil {
		return err
	}
	if err := s.GetTableImpl(b + 1); err != nil {
		return err
	}
	return s.Replace(a + 1)
}

// setTable implements R(A)[RK(B)] := RK(C).
func setTable(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if err := s.GetRK(b); err != nil {
		return err
	}
	if err := s.GetRK(c); err != nil {
		return err
	}
	return s.SetTableImpl(a + 1)
}

// setList implements R(A)[(C-1)*FPF+i] := R(A+i), 1<=i<=B, batch-assigning
// a run of array elements built up in consecutive registers. A C of 0
// means the real block index was too large to fit the instruction's C
// field and follows as a standalone EXTRAARG word.
func setList(s *State, i bytecode.Instruction) error {
	a, b, c := i.ABC()
	if c == 0 {
		extra, err := s.Fetch()
		if err != nil {
			return err
		}
		c = extra.Ax()
	}
	base := (c - 1) * fieldsPerFlush
	for j := 1; j <= b; j++ {
		if err := s.PushValue(a + j + 1); err != nil {
			return err
		}
		if err := s.SetI(a+1, int64(base+j)); err != nil {
			return err
		}
	}
	return nil
}
