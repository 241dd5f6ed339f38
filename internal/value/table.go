package value

import (
	"math"

	vmerrors "luavm/internal/errors"
)

// hashEntry is one slot in a Table's hash-part bucket chain.
type hashEntry struct {
	key Value
	val Value
}

// Table is the hybrid array/hash container every [KindTable] Value wraps.
// Keys 1..len(arr) that are contiguously populated live in the dense array
// part; everything else (non-positive-integer keys, sparse integer keys,
// strings, booleans, floats) lives in the hash part, bucketed by Value.Hash.
type Table struct {
	arr     []Value
	buckets map[uint64][]hashEntry
}

// NewTable preallocates narr array slots and nrec hash buckets, mirroring
// the source's create_table(narr, nrec) size hints.
func NewTable(narr, nrec int) *Table {
	t := &Table{}
	if narr > 0 {
		t.arr = make([]Value, 0, narr)
	}
	if nrec > 0 {
		t.buckets = make(map[uint64][]hashEntry, nrec)
	} else {
		t.buckets = make(map[uint64][]hashEntry)
	}
	return t
}

// arrayIndex reports the 1-based array slot a key denotes, if the key
// converts cleanly to a positive integer (an exact int, or a float with no
// fractional part).
func arrayIndex(key Value) (int64, bool) {
	i, ok := key.ToIntegerExact()
	if !ok || i <= 0 {
		return 0, false
	}
	return i, true
}

// ToIntegerExact mirrors try_convert_to_integer: only int and exact-float
// keys qualify for array-part addressing; strings do not.
func (v Value) ToIntegerExact() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return floatToInteger(v.f)
	default:
		return 0, false
	}
}

func (t *Table) hashGet(key Value) Value {
	if t.buckets == nil {
		return Nil
	}
	h := key.Hash()
	for _, e := range t.buckets[h] {
		if Equal(e.key, key) {
			return e.val
		}
	}
	return Nil
}

func (t *Table) hashSet(key, val Value) {
	if t.buckets == nil {
		t.buckets = make(map[uint64][]hashEntry)
	}
	h := key.Hash()
	bucket := t.buckets[h]
	for i, e := range bucket {
		if Equal(e.key, key) {
			if val.IsNil() {
				t.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			} else {
				bucket[i].val = val
			}
			return
		}
	}
	if val.IsNil() {
		return
	}
	t.buckets[h] = append(bucket, hashEntry{key: key, val: val})
}

func (t *Table) hashDelete(key Value) {
	if t.buckets == nil {
		return
	}
	h := key.Hash()
	bucket := t.buckets[h]
	for i, e := range bucket {
		if Equal(e.key, key) {
			t.buckets[h] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Get implements table[key] read access: a key that addresses a populated
// array slot reads from the array, everything else falls through to the
// hash part. Missing keys of any kind yield nil rather than an error.
func (t *Table) Get(key Value) Value {
	if idx, ok := arrayIndex(key); ok && idx >= 1 && int(idx) <= len(t.arr) {
		return t.arr[idx-1]
	}
	return t.hashGet(key)
}

// Put implements table[key] = val, applying the array/hash migration laws:
// writing within the array keeps it there (and trims a trailing nil off the
// tail); writing exactly one past the end appends and then pulls in any
// hash-part keys that now continue the array contiguously; anything else
// goes to (or is deleted from) the hash part.
func (t *Table) Put(key, val Value) error {
	if key.IsNil() {
		return vmerrors.New(vmerrors.TableKeyInvalid, "table index is nil")
	}
	if key.Kind == KindFloat && math.IsNaN(key.f) {
		return vmerrors.New(vmerrors.TableKeyInvalid, "table index is NaN")
	}

	idx, isArrKey := arrayIndex(key)
	n := int64(len(t.arr))

	switch {
	case isArrKey && idx >= 1 && idx <= n:
		t.arr[idx-1] = val
		if idx == n && val.IsNil() {
			t.shrinkArray()
		}
	case isArrKey && idx == n+1:
		t.hashDelete(key)
		if !val.IsNil() {
			t.arr = append(t.arr, val)
			t.expandArray()
		}
	default:
		if val.IsNil() {
			t.hashDelete(key)
		} else {
			t.hashSet(key, val)
		}
	}
	return nil
}

// shrinkArray trims trailing nils off the array part after a deletion,
// matching the source's shrink_array: find the last non-nil from the back
// and cut everything after it.
func (t *Table) shrinkArray() {
	n := len(t.arr)
	for n > 0 && t.arr[n-1].IsNil() {
		n--
	}
	t.arr = t.arr[:n]
}

// expandArray pulls any hash-part entries that now continue the array
// contiguously into the array part, matching the source's expand_array.
func (t *Table) expandArray() {
	for {
		next := Int(int64(len(t.arr)) + 1)
		v, ok := t.lookupExact(next)
		if !ok {
			return
		}
		t.hashDelete(next)
		t.arr = append(t.arr, v)
	}
}

func (t *Table) lookupExact(key Value) (Value, bool) {
	if t.buckets == nil {
		return Nil, false
	}
	h := key.Hash()
	for _, e := range t.buckets[h] {
		if Equal(e.key, key) {
			return e.val, true
		}
	}
	return Nil, false
}

// Len reports the table's border, here simply the array part's length,
// matching the source's len() which never inspects the hash part.
func (t *Table) Len() int64 { return int64(len(t.arr)) }
