package value

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"nil is false", Nil, false},
		{"false is false", Bool(false), false},
		{"true is true", Bool(true), true},
		{"zero int is true", Int(0), true},
		{"empty string is true", Str(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Truthy(); got != tt.want {
				t.Errorf("Truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEqualCrossKind(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int equals float", Int(3), Float(3.0), true},
		{"int differs from float", Int(3), Float(3.5), false},
		{"string not equal to number", Str("3"), Int(3), false},
		{"nil equals nil", Nil, Nil, true},
		{"bool not equal int", Bool(true), Int(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLessOrdering(t *testing.T) {
	if lt, ok := Less(Int(1), Float(2.0)); !ok || !lt {
		t.Errorf("expected 1 < 2.0")
	}
	if _, ok := Less(Str("a"), Int(1)); ok {
		t.Errorf("expected string/number ordering to be incompatible")
	}
	if lt, ok := Less(Str("abc"), Str("abd")); !ok || !lt {
		t.Errorf("expected lexicographic string ordering")
	}
}

func TestToIntegerExactness(t *testing.T) {
	if i, ok := Float(3.0).ToInteger(); !ok || i != 3 {
		t.Errorf("Float(3.0).ToInteger() = %v, %v, want 3, true", i, ok)
	}
	if _, ok := Float(3.5).ToInteger(); ok {
		t.Errorf("Float(3.5).ToInteger() should fail: no exact integer representation")
	}
	if i, ok := Str("42").ToInteger(); !ok || i != 42 {
		t.Errorf("Str(\"42\").ToInteger() = %v, %v, want 42, true", i, ok)
	}
}

func TestHashStableAcrossEqualValues(t *testing.T) {
	if Str("key").Hash() != Str("key").Hash() {
		t.Errorf("equal strings must hash identically")
	}
	if Int(7).Hash() != Int(7).Hash() {
		t.Errorf("equal ints must hash identically")
	}
}
