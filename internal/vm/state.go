package vm

import (
	"luavm/internal/bytecode"
	"luavm/internal/errors"
	"luavm/internal/value"
)

// State combines a register stack with the currently executing Prototype
// and program counter, exposing the operations the opcode handlers are
// built from.
type State struct {
	stack *Stack
	proto *bytecode.Prototype
	pc    int
}

// NewState builds a State with enough register slots for the prototype's
// declared frame size plus a small scratch margin above it, used by
// handlers as working space for RK operands and arithmetic results.
func NewState(proto *bytecode.Prototype) *State {
	s := &State{
		stack: NewStack(int(proto.MaxStackSize) + 8),
		proto: proto,
	}
	s.SetTop(int(proto.MaxStackSize))
	return s
}

func (s *State) PC() int      { return s.pc }
func (s *State) AddPC(n int)  { s.pc += n }
func (s *State) Source() string { return s.proto.Source }

// Fetch reads the instruction at pc and advances pc, matching the
// reference VM's fetch-decode-execute step.
func (s *State) Fetch() (bytecode.Instruction, error) {
	if s.pc < 0 || s.pc >= len(s.proto.Code) {
		return 0, errors.New(errors.ChunkCorrupted, "program counter %d out of range", s.pc).WithLocation(s.proto.Source, s.pc)
	}
	i := s.proto.Code[s.pc]
	s.pc++
	return i, nil
}

func (s *State) err(kind errors.Kind, format string, args ...interface{}) error {
	return errors.New(kind, format, args...).WithLocation(s.proto.Source, s.pc)
}

func constantToValue(c bytecode.Constant) value.Value {
	switch c.Tag {
	case bytecode.TagNil:
		return value.Nil
	case bytecode.TagBoolean:
		return value.Bool(c.Bool)
	case bytecode.TagInteger:
		return value.Int(c.Int)
	case bytecode.TagNumber:
		return value.Float(c.Float)
	case bytecode.TagShortStr, bytecode.TagLongStr:
		return value.Str(c.Str)
	default:
		return value.Nil
	}
}

// GetConst pushes constant pool entry idx onto the stack.
func (s *State) GetConst(idx int) error {
	if idx < 0 || idx >= len(s.proto.Constants) {
		return s.err(errors.ChunkCorrupted, "constant index %d out of range", idx)
	}
	return s.Push(constantToValue(s.proto.Constants[idx]))
}

// GetRK pushes either constant rk&0xFF (if rk's high bit is set) or
// register rk+1 (otherwise), implementing the RK operand convention shared
// by most binary-operator opcodes.
func (s *State) GetRK(rk int) error {
	if idx, isConst := bytecode.IsRK(rk); isConst {
		return s.GetConst(idx)
	}
	return s.PushValue(rk + 1)
}

func (s *State) GetTop() int          { return s.stack.Size() }
func (s *State) AbsIndex(idx int) int { return s.stack.AbsIndex(idx) }

func (s *State) Pop(n int) error {
	for i := 0; i < n; i++ {
		if _, err := s.stack.Pop(); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) Copy(from, to int) error {
	return s.stack.Set(to, s.stack.Get(from))
}

func (s *State) PushValue(idx int) error {
	return s.Push(s.stack.Get(idx))
}

func (s *State) Push(v value.Value) error { return s.stack.Push(v) }

// CheckStack ensures n more values can be pushed without overflowing,
// growing the underlying stack if needed. Handlers that push a
// variable-sized batch of operands (e.g. CONCAT's operand copies) call this
// before the batch instead of relying on the frame's fixed scratch margin.
func (s *State) CheckStack(n int) error { return s.stack.Reserve(n) }

func (s *State) PushNil() error         { return s.Push(value.Nil) }
func (s *State) PushBool(b bool) error  { return s.Push(value.Bool(b)) }
func (s *State) PushInt(i int64) error  { return s.Push(value.Int(i)) }
func (s *State) PushFloat(f float64) error { return s.Push(value.Float(f)) }
func (s *State) PushString(str string) error { return s.Push(value.Str(str)) }

// Replace pops the top value and stores it at idx.
func (s *State) Replace(idx int) error {
	v, err := s.stack.Pop()
	if err != nil {
		return err
	}
	return s.stack.Set(idx, v)
}

func (s *State) Insert(idx int) error { return s.Rotate(idx, 1) }

func (s *State) Remove(idx int) error {
	if err := s.Rotate(idx, -1); err != nil {
		return err
	}
	return s.Pop(1)
}

// Rotate rotates the stack segment [idx, top] by n positions via triple
// reversal: reverse the two halves independently, then reverse the whole
// segment, matching the source's in-place rotate algorithm exactly.
func (s *State) Rotate(idx, n int) error {
	t := s.stack.Size() - 1
	p := s.stack.AbsIndex(idx) - 1
	if p < 0 || p > t {
		return errors.New(errors.InvalidIndex, "invalid rotate index %d", idx)
	}
	var m int
	if n >= 0 {
		m = t - n
	} else {
		m = p - n - 1
	}
	s.stack.Reverse(p, m)
	s.stack.Reverse(m+1, t)
	s.stack.Reverse(p, t)
	return nil
}

// SetTop grows or shrinks the stack to reach the absolute index idx,
// pushing nils to grow or popping to shrink.
func (s *State) SetTop(idx int) error {
	newTop := s.stack.AbsIndex(idx)
	if newTop < 0 {
		return errors.New(errors.InvalidIndex, "invalid new top %d", idx)
	}
	n := newTop - s.stack.Size()
	if n >= 0 {
		for i := 0; i < n; i++ {
			if err := s.PushNil(); err != nil {
				return err
			}
		}
		return nil
	}
	return s.Pop(-n)
}

func (s *State) Type(idx int) value.Kind {
	if !s.stack.IsValid(idx) {
		return value.KindNil
	}
	return s.stack.Get(idx).Kind
}

func (s *State) IsNone(idx int) bool   { return !s.stack.IsValid(idx) }
func (s *State) IsNil(idx int) bool    { return s.stack.Get(idx).IsNil() }
func (s *State) IsNoneOrNil(idx int) bool { return s.IsNone(idx) || s.IsNil(idx) }
func (s *State) IsBool(idx int) bool   { return s.stack.Get(idx).IsBool() }
func (s *State) IsTable(idx int) bool  { return s.stack.Get(idx).IsTable() }
func (s *State) IsNumber(idx int) bool { return s.stack.Get(idx).IsNumber() }

// IsString also reports true for numbers, matching the source's
// is_string: numbers always coerce to strings in string-expecting contexts.
func (s *State) IsString(idx int) bool {
	v := s.stack.Get(idx)
	return v.IsString() || v.IsNumber()
}

func (s *State) ToBool(idx int) bool { return s.stack.Get(idx).Truthy() }

func (s *State) ToNumberX(idx int) (float64, bool) { return s.stack.Get(idx).ToFloat() }
func (s *State) ToNumber(idx int) float64 {
	f, _ := s.ToNumberX(idx)
	return f
}

func (s *State) ToIntegerX(idx int) (int64, bool) { return s.stack.Get(idx).ToInteger() }
func (s *State) ToInteger(idx int) int64 {
	i, _ := s.ToIntegerX(idx)
	return i
}

// ToStringX coerces the slot at idx to a string, mutating the slot in place
// on success (so a second coercion sees the already-converted string), the
// way the reference state's to_string does.
func (s *State) ToStringX(idx int) (string, bool) {
	v := s.stack.Get(idx)
	str, ok := v.ToDisplayString()
	if !ok {
		return "", false
	}
	if !v.IsString() {
		s.stack.Set(idx, value.Str(str))
	}
	return str, true
}

func (s *State) ToString(idx int) string {
	str, _ := s.ToStringX(idx)
	return str
}

// CreateTable pushes a fresh table with the given array/hash size hints.
func (s *State) CreateTable(narr, nrec int) error {
	return s.Push(value.FromTable(value.NewTable(narr, nrec)))
}

// NewTable pushes a fresh table with no size hints, a thin wrapper over
// CreateTable the way the original's new_table wraps create_table.
func (s *State) NewTable() error { return s.CreateTable(0, 0) }
