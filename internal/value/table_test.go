package value

import "testing"

func TestTableArrayAppendAndGet(t *testing.T) {
	tbl := NewTable(0, 0)
	for i := int64(1); i <= 3; i++ {
		if err := tbl.Put(Int(i), Str("v")); err != nil {
			t.Fatalf("Put(%d) error: %v", i, err)
		}
	}
	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}
	if got := tbl.Get(Int(2)); got.AsString() != "v" {
		t.Fatalf("Get(2) = %v, want v", got)
	}
}

func TestTableTrimOnTailDelete(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.Put(Int(1), Str("a"))
	tbl.Put(Int(2), Str("b"))
	tbl.Put(Int(3), Str("c"))
	if err := tbl.Put(Int(3), Nil); err != nil {
		t.Fatalf("Put(3, nil) error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() after trimming tail = %d, want 2", tbl.Len())
	}
}

func TestTableExpandFromHashOnAppend(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.Put(Int(1), Str("a"))
	// Key 3 is sparse relative to the array (length 1), so it lands in the
	// hash part until key 2 is written and the run becomes contiguous.
	tbl.Put(Int(3), Str("c"))
	if tbl.Len() != 1 {
		t.Fatalf("Len() before contiguous run = %d, want 1", tbl.Len())
	}
	tbl.Put(Int(2), Str("b"))
	if tbl.Len() != 3 {
		t.Fatalf("Len() after key 2 closes the gap = %d, want 3 (array should absorb key 3 from the hash part)", tbl.Len())
	}
	if got := tbl.Get(Int(3)); got.AsString() != "c" {
		t.Fatalf("Get(3) = %v, want c", got)
	}
}

func TestTableNilAndNaNKeysRejected(t *testing.T) {
	tbl := NewTable(0, 0)
	if err := tbl.Put(Nil, Str("x")); err == nil {
		t.Fatalf("expected error for nil key")
	}
	if err := tbl.Put(Float(nan()), Str("x")); err == nil {
		t.Fatalf("expected error for NaN key")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestTableStringAndBoolKeys(t *testing.T) {
	tbl := NewTable(0, 0)
	tbl.Put(Str("name"), Str("lua"))
	tbl.Put(Bool(true), Int(1))
	if got := tbl.Get(Str("name")); got.AsString() != "lua" {
		t.Fatalf("Get(\"name\") = %v, want lua", got)
	}
	if got := tbl.Get(Bool(true)); got.AsInt() != 1 {
		t.Fatalf("Get(true) = %v, want 1", got)
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (no array-part keys written)", tbl.Len())
	}
}
