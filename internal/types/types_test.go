package types

import "testing"

func TestIdenticalToIsEquivalence(t *testing.T) {
	a, _ := NewSubrange(Int, 0, 10)
	b, _ := NewSubrange(Int, 0, 10)
	c, _ := NewSubrange(Int, 0, 11)

	if !IdenticalTo(a, a) {
		t.Fatal("not reflexive")
	}
	if !IdenticalTo(a, b) {
		t.Fatal("equal bounds should be identical")
	}
	if IdenticalTo(a, c) {
		t.Fatal("different bounds should not be identical")
	}
}

func TestCanAssignToReflexiveAndWidens(t *testing.T) {
	sub, _ := NewSubrange(Int, 0, 10)
	if !CanAssignTo(sub, sub) {
		t.Fatal("not reflexive")
	}
	if !CanAssignTo(sub, Int) {
		t.Fatal("subrange should widen to its base ordinal kind")
	}
	if CanAssignTo(sub, Bool) {
		t.Fatal("int subrange should not assign to bool")
	}
}

func TestDeriveVecRoundTrip(t *testing.T) {
	v := DeriveVec(nil, Char)
	if !IdenticalTo(v.Elem, Char) {
		t.Fatal("deriveVec(T).elem should be identicalTo T")
	}
}

func TestDeriveContainerRoundTrip(t *testing.T) {
	d := DeriveContainer(nil, Int, Char)
	if !IdenticalTo(d.Index, Int) || !IdenticalTo(d.Elem, Char) {
		t.Fatal("deriveContainer(I,E).index/elem should be identicalTo I/E")
	}
}

func TestContainerKindForTable(t *testing.T) {
	tests := []struct {
		name        string
		index, elem *Type
		want        Kind
	}{
		{"both void", nil, nil, KindNullCont},
		{"void index char elem -> str-as-vec", nil, Char, KindVec},
		{"void index int elem -> vec", nil, Int, KindVec},
		{"byte index void elem -> ordset-as-set", Char, nil, KindSet},
		{"non-byte index void elem -> set", Int, nil, KindSet},
		{"byte index present elem -> byte dict", Char, Int, KindDict},
		{"non-byte index present elem -> dict", Int, Int, KindDict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainerKindFor(tt.index, tt.elem); got != tt.want {
				t.Errorf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestIsByteDict(t *testing.T) {
	bd := DeriveContainer(nil, Char, Int)
	if !IsByteDict(bd) {
		t.Fatal("dict indexed by char should be a byte-dict")
	}
	d := DeriveContainer(nil, Int, Int)
	if IsByteDict(d) {
		t.Fatal("dict indexed by int should not be a byte-dict")
	}
}

func TestEnumAssignableAcrossSubrange(t *testing.T) {
	e := NewEnum("Color", []string{"red", "green", "blue"})
	sub, _ := NewSubrange(e, 0, 1)
	if !CanAssignTo(sub, e) {
		t.Fatal("enum subrange should assign to its base enum")
	}
}
