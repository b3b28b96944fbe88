package variant

import "testing"

// Table-driven style grounded on the teacher's internal/vm/vm_test.go.
func TestEqualityAndEmpty(t *testing.T) {
	tests := []struct {
		name string
		a, b Variant
		want bool
	}{
		{"void equals void", Void(), Void(), true},
		{"empty vec equals null vec", NewVec(), Variant{kind: KindVec}, true},
		{"ord equal", NewOrd(3), NewOrd(3), true},
		{"ord not equal", NewOrd(3), NewOrd(4), false},
		{"str equal", NewStr([]byte("ab")), NewStr([]byte("ab")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCowVecMutationDoesNotAliasCopy(t *testing.T) {
	a := NewVec()
	a.VecAppend(NewOrd(1))
	a.VecAppend(NewOrd(2))

	b := a.Copy()
	b.vec.refs = 1 // simulate the refcount bump a real copy would perform
	a.vec.refs = 2
	b.VecSet(0, NewOrd(99))

	if a.VecGet(0).Ord() != 1 {
		t.Fatalf("mutating the copy mutated the original: a[0] = %d", a.VecGet(0).Ord())
	}
	if b.VecGet(0).Ord() != 99 {
		t.Fatalf("copy was not mutated: b[0] = %d", b.VecGet(0).Ord())
	}
}

func TestSizeEmptyLaw(t *testing.T) {
	containers := []Variant{NewVec(), NewSet(), NewOrdSet(), NewDict(), NewByteDict(), NewStr(nil)}
	for _, c := range containers {
		if (c.Size() == 0) != c.Empty() {
			t.Errorf("%s: size()==0 (%v) does not match Empty() (%v)", c.Kind(), c.Size() == 0, c.Empty())
		}
	}
}

func TestStrConcatScenario(t *testing.T) {
	// spec.md §8 scenario 1: 'ab' | 'cd' | 'ef' -> "abcdef"
	s := StrConcat(StrConcat(NewStr([]byte("ab")), NewStr([]byte("cd"))), NewStr([]byte("ef")))
	if s.ToString() != "abcdef" {
		t.Fatalf("got %q, want abcdef", s.ToString())
	}
}

func TestRangeMembership(t *testing.T) {
	// spec.md §8 scenario 3: 10..20; 15 in r, 25 in r
	r := NewRange(10, 20, "int")
	if !InRange(15, r.Range()) {
		t.Fatal("expected 15 in 10..20")
	}
	if InRange(25, r.Range()) {
		t.Fatal("expected 25 not in 10..20")
	}
}

func TestDictSortedOrder(t *testing.T) {
	d := NewDict()
	d.DictSet(NewOrd(3), NewStr([]byte("c")))
	d.DictSet(NewOrd(1), NewStr([]byte("a")))
	d.DictSet(NewOrd(2), NewStr([]byte("b")))
	keys, _ := DictItems(d)
	for i := 1; i < len(keys); i++ {
		if Compare(keys[i-1], keys[i]) >= 0 {
			t.Fatalf("dict keys not strictly ascending at %d", i)
		}
	}
}

func TestByteDictSparseAccess(t *testing.T) {
	var d Variant = NewByteDict()
	d.ByteDictSet(NewOrd(200), NewStr([]byte("c")))
	d.ByteDictSet(NewOrd(5), NewStr([]byte("a")))
	d.ByteDictSet(NewOrd(60), NewStr([]byte("b")))

	if d.Size() != 3 {
		t.Fatalf("expected size 3, got %d", d.Size())
	}
	if _, ok := d.ByteDictTryGet(NewOrd(100)); ok {
		t.Fatal("expected key 100 to be absent")
	}
	v := d.ByteDictGet(NewOrd(60))
	if string(v.Bytes()) != "b" {
		t.Fatalf("got %q, want b", v.Bytes())
	}

	keys, _ := ByteDictItems(d)
	for i := 1; i < len(keys); i++ {
		if Compare(keys[i-1], keys[i]) >= 0 {
			t.Fatalf("byte-dict keys not strictly ascending at %d", i)
		}
	}

	d.ByteDictDelete(NewOrd(60))
	if d.Size() != 2 {
		t.Fatalf("expected size 2 after delete, got %d", d.Size())
	}
}

func TestByteDictGetAbsentKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected ByteDictGet to panic on an absent key")
		}
	}()
	var d Variant = NewByteDict()
	d.ByteDictGet(NewOrd(1))
}

func TestOrdSetRangeInsert(t *testing.T) {
	var s Variant = NewOrdSet()
	s.OrdSetInsertRange(10, 20)
	if !s.OrdSetContains(15) {
		t.Fatal("expected 15 in ordset after range insert")
	}
	if s.OrdSetContains(25) {
		t.Fatal("expected 25 not in ordset")
	}
}
