package vm

import (
	"testing"

	"luavm/internal/bytecode"
)

func constInt(i int64) bytecode.Constant { return bytecode.Constant{Tag: bytecode.TagInteger, Int: i} }
func constFloat(f float64) bytecode.Constant { return bytecode.Constant{Tag: bytecode.TagNumber, Float: f} }
func constStr(s string) bytecode.Constant  { return bytecode.Constant{Tag: bytecode.TagShortStr, Str: s} }

func runProto(t *testing.T, proto *bytecode.Prototype) *State {
	t.Helper()
	s := NewState(proto)
	if err := Run(s); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return s
}

func TestArithmeticIntPlusInt(t *testing.T) {
	proto := &bytecode.Prototype{
		MaxStackSize: 3,
		Constants:    []bytecode.Constant{constInt(5), constInt(7)},
		Code: []bytecode.Instruction{
			bytecode.EncodeABx(bytecode.OP_LOADK, 0, 0),
			bytecode.EncodeABx(bytecode.OP_LOADK, 1, 1),
			bytecode.Encode(bytecode.OP_ADD, 2, 0, 1),
			bytecode.Encode(bytecode.OP_RETURN, 0, 1, 0),
		},
	}
	s := runProto(t, proto)
	got := s.stack.Get(3)
	if !got.IsInt() || got.AsInt() != 12 {
		t.Fatalf("R2 = %v, want integer 12", got)
	}
}

func TestArithmeticIntPlusFloatPromotesToFloat(t *testing.T) {
	proto := &bytecode.Prototype{
		MaxStackSize: 3,
		Constants:    []bytecode.Constant{constInt(5), constFloat(2.5)},
		Code: []bytecode.Instruction{
			bytecode.EncodeABx(bytecode.OP_LOADK, 0, 0),
			bytecode.EncodeABx(bytecode.OP_LOADK, 1, 1),
			bytecode.Encode(bytecode.OP_ADD, 2, 0, 1),
			bytecode.Encode(bytecode.OP_RETURN, 0, 1, 0),
		},
	}
	s := runProto(t, proto)
	got := s.stack.Get(3)
	if !got.IsFloat() || got.AsFloat() != 7.5 {
		t.Fatalf("R2 = %v, want float 7.5", got)
	}
}

func TestConcatStringsAndNumbers(t *testing.T) {
	proto := &bytecode.Prototype{
		MaxStackSize: 3,
		Constants:    []bytecode.Constant{constStr("n="), constInt(42)},
		Code: []bytecode.Instruction{
			bytecode.EncodeABx(bytecode.OP_LOADK, 0, 0),
			bytecode.EncodeABx(bytecode.OP_LOADK, 1, 1),
			bytecode.Encode(bytecode.OP_CONCAT, 2, 0, 1),
			bytecode.Encode(bytecode.OP_RETURN, 0, 1, 0),
		},
	}
	s := runProto(t, proto)
	got := s.stack.Get(3)
	if !got.IsString() || got.AsString() != "n=42" {
		t.Fatalf("R2 = %v, want string \"n=42\"", got)
	}
}

func TestTableSetGetRoundTrip(t *testing.T) {
	// R0 := {}; R1 := "x"; R2 := 99; R0[R1] := R2; R3 := R0[R1]; RETURN
	proto := &bytecode.Prototype{
		MaxStackSize: 4,
		Constants:    []bytecode.Constant{constStr("x"), constInt(99)},
		Code: []bytecode.Instruction{
			bytecode.Encode(bytecode.OP_NEWTABLE, 0, 0, 0),
			bytecode.EncodeABx(bytecode.OP_LOADK, 1, 0),
			bytecode.EncodeABx(bytecode.OP_LOADK, 2, 1),
			bytecode.Encode(bytecode.OP_SETTABLE, 0, 1, 2),
			bytecode.Encode(bytecode.OP_GETTABLE, 3, 0, 1),
			bytecode.Encode(bytecode.OP_RETURN, 0, 1, 0),
		},
	}
	s := runProto(t, proto)
	got := s.stack.Get(4)
	if !got.IsInt() || got.AsInt() != 99 {
		t.Fatalf("R3 = %v, want integer 99", got)
	}
}

func TestNumericForLoopSums1To3(t *testing.T) {
	// R0=1 (init), R1=3 (limit), R2=1 (step), R3=loop var, R4=accumulator
	// for R3 = 1, 3, 1 do R4 = R4 + R3 end
	proto := &bytecode.Prototype{
		MaxStackSize: 5,
		Constants:    []bytecode.Constant{constInt(1), constInt(3), constInt(1), constInt(0)},
		Code: []bytecode.Instruction{
			bytecode.EncodeABx(bytecode.OP_LOADK, 0, 0), // R0 = 1
			bytecode.EncodeABx(bytecode.OP_LOADK, 1, 1), // R1 = 3
			bytecode.EncodeABx(bytecode.OP_LOADK, 2, 2), // R2 = 1
			bytecode.EncodeABx(bytecode.OP_LOADK, 4, 3), // R4 = 0 (accumulator)
			bytecode.EncodeAsBx(bytecode.OP_FORPREP, 0, 1), // -> pc 4+1+1 = 6, the FORLOOP
			bytecode.Encode(bytecode.OP_ADD, 4, 4, 3),      // R4 = R4 + R3
			bytecode.EncodeAsBx(bytecode.OP_FORLOOP, 0, -2),
			bytecode.Encode(bytecode.OP_RETURN, 0, 1, 0),
		},
	}
	s := runProto(t, proto)
	got := s.stack.Get(5)
	if !got.IsInt() || got.AsInt() != 6 {
		t.Fatalf("R4 (accumulator) = %v, want integer 6 (1+2+3)", got)
	}
}

func TestUnimplementedOpcodeFailsCleanly(t *testing.T) {
	proto := &bytecode.Prototype{
		MaxStackSize: 2,
		Code: []bytecode.Instruction{
			bytecode.Encode(bytecode.OP_CALL, 0, 1, 1),
		},
	}
	s := NewState(proto)
	err := Run(s)
	if err == nil {
		t.Fatalf("expected CALL to report an error")
	}
}

func TestDivideByZeroIsReportedForIntegerModulo(t *testing.T) {
	proto := &bytecode.Prototype{
		MaxStackSize: 3,
		Constants:    []bytecode.Constant{constInt(5), constInt(0)},
		Code: []bytecode.Instruction{
			bytecode.EncodeABx(bytecode.OP_LOADK, 0, 0),
			bytecode.EncodeABx(bytecode.OP_LOADK, 1, 1),
			bytecode.Encode(bytecode.OP_MOD, 2, 0, 1),
			bytecode.Encode(bytecode.OP_RETURN, 0, 1, 0),
		},
	}
	s := NewState(proto)
	if err := Run(s); err == nil {
		t.Fatalf("expected a divide-by-zero error")
	}
}
