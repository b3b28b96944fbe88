package variant

import "fmt"

// KeyError fires on out-of-range container access (spec.md §4.1).
type KeyError struct {
	Msg string
}

func (e *KeyError) Error() string { return e.Msg }

// Size returns a container's element count; 0 for void.
func (v Variant) Size() int {
	switch v.kind {
	case KindStr:
		if v.str == nil {
			return 0
		}
		return v.str.size
	case KindVec:
		if v.vec == nil {
			return 0
		}
		return v.vec.size
	case KindSet:
		return v.set.size()
	case KindOrdSet:
		if v.oset == nil {
			return 0
		}
		return v.oset.count()
	case KindDict:
		return v.dict.size()
	case KindByteDict:
		return v.bdict.size()
	default:
		return 0
	}
}

// --- vec element access ---------------------------------------------

// VecGet reads the element at index i, raising KeyError out of range.
func (v Variant) VecGet(i int) Variant {
	if v.kind != KindVec {
		panic(&KindMismatch{Want: KindVec, Got: v.kind})
	}
	if v.vec == nil || i < 0 || i >= v.vec.size {
		panic(&KeyError{Msg: fmt.Sprintf("vector index %d out of range", i)})
	}
	return v.vec.items[i]
}

// VecSet writes the element at index i, uniquifying the backing buffer
// first (spec.md §4.1's make_unique discipline).
func (v *Variant) VecSet(i int, val Variant) {
	if v.kind != KindVec {
		panic(&KindMismatch{Want: KindVec, Got: v.kind})
	}
	if v.vec == nil || i < 0 || i >= v.vec.size {
		panic(&KeyError{Msg: fmt.Sprintf("vector index %d out of range", i)})
	}
	v.vec = v.vec.makeUnique()
	v.vec.items[i] = val
}

// VecAppend appends val, growing/uniquifying as needed.
func (v *Variant) VecAppend(val Variant) {
	if v.kind != KindVec {
		panic(&KindMismatch{Want: KindVec, Got: v.kind})
	}
	if v.vec == nil {
		v.vec = newVecBuf(0)
	}
	v.vec = v.vec.makeUnique()
	oldSize := v.vec.size
	v.vec.resize(oldSize + 1)
	v.vec.items[oldSize] = val
}

// VecConcat returns a new vec containing a's elements followed by b's.
func VecConcat(a, b Variant) Variant {
	if a.kind != KindVec || b.kind != KindVec {
		panic(&KindMismatch{Want: KindVec, Got: a.kind})
	}
	out := newVecBuf(0)
	ai, bi := vecItems(a.vec), vecItems(b.vec)
	out.resize(len(ai) + len(bi))
	copy(out.items, ai)
	copy(out.items[len(ai):], bi)
	return Variant{kind: KindVec, vec: out}
}

// SubVec slices [from, to) ("to" < 0 meaning "to end", per spec.md §4.1).
func SubVec(v Variant, from, to int) Variant {
	if v.kind != KindVec {
		panic(&KindMismatch{Want: KindVec, Got: v.kind})
	}
	items := vecItems(v.vec)
	if to < 0 || to > len(items) {
		to = len(items)
	}
	if from < 0 || from > to {
		panic(&KeyError{Msg: "subvec bounds out of range"})
	}
	out := newVecBuf(to - from)
	copy(out.items, items[from:to])
	return Variant{kind: KindVec, vec: out}
}

// --- str element access -----------------------------------------------

// StrGet reads the byte at index i as a char ord variant.
func (v Variant) StrGet(i int) Variant {
	if v.kind != KindStr {
		panic(&KindMismatch{Want: KindStr, Got: v.kind})
	}
	if v.str == nil || i < 0 || i >= v.str.size {
		panic(&KeyError{Msg: fmt.Sprintf("string index %d out of range", i)})
	}
	return NewChar(v.str.data[i])
}

// StrSet writes the byte at index i.
func (v *Variant) StrSet(i int, c byte) {
	if v.kind != KindStr {
		panic(&KindMismatch{Want: KindStr, Got: v.kind})
	}
	if v.str == nil || i < 0 || i >= v.str.size {
		panic(&KeyError{Msg: fmt.Sprintf("string index %d out of range", i)})
	}
	v.str = v.str.makeUnique()
	v.str.data[i] = c
}

// StrConcat concatenates two str variants (the `|` operator in spec.md §8's
// scenario 1: `'ab' | 'cd' | 'ef'`).
func StrConcat(a, b Variant) Variant {
	if a.kind != KindStr || b.kind != KindStr {
		panic(&KindMismatch{Want: KindStr, Got: a.kind})
	}
	ab, bb := a.Bytes(), b.Bytes()
	out := newStrBuf(len(ab) + len(bb))
	copy(out.data, ab)
	copy(out.data[len(ab):], bb)
	return Variant{kind: KindStr, str: out}
}

// SubStr slices a str [from, to).
func SubStr(v Variant, from, to int) Variant {
	if v.kind != KindStr {
		panic(&KindMismatch{Want: KindStr, Got: v.kind})
	}
	b := v.Bytes()
	if to < 0 || to > len(b) {
		to = len(b)
	}
	if from < 0 || from > to {
		panic(&KeyError{Msg: "substr bounds out of range"})
	}
	return NewStr(b[from:to])
}

// --- set operations ------------------------------------------------------

// SetInsert inserts val into a set, uniquifying first.
func (v *Variant) SetInsert(val Variant) {
	if v.kind != KindSet {
		panic(&KindMismatch{Want: KindSet, Got: v.kind})
	}
	if v.set == nil {
		v.set = newSetBuf()
	}
	v.set = v.set.makeUnique()
	v.set.insert(val)
}

// SetContains reports set membership.
func (v Variant) SetContains(val Variant) bool {
	if v.kind != KindSet {
		panic(&KindMismatch{Want: KindSet, Got: v.kind})
	}
	if v.set == nil {
		return false
	}
	return v.set.contains(val)
}

// SetErase removes val from a set.
func (v *Variant) SetErase(val Variant) {
	if v.kind != KindSet {
		panic(&KindMismatch{Want: KindSet, Got: v.kind})
	}
	if v.set == nil {
		return
	}
	v.set = v.set.makeUnique()
	v.set.erase(val)
}

// SetItems returns a set's sorted element slice (read-only view).
func SetItems(v Variant) []Variant {
	if v.kind != KindSet {
		panic(&KindMismatch{Want: KindSet, Got: v.kind})
	}
	return setItems(v.set)
}

// --- ordset operations ----------------------------------------------------

// OrdSetInsert sets bit b.
func (v *Variant) OrdSetInsert(b byte) {
	if v.kind != KindOrdSet {
		panic(&KindMismatch{Want: KindOrdSet, Got: v.kind})
	}
	if v.oset == nil {
		v.oset = newOrdsetBuf()
	}
	v.oset = v.oset.makeUnique()
	v.oset.set(b)
}

// OrdSetInsertRange sets bits [lo, hi].
func (v *Variant) OrdSetInsertRange(lo, hi byte) {
	if v.kind != KindOrdSet {
		panic(&KindMismatch{Want: KindOrdSet, Got: v.kind})
	}
	if v.oset == nil {
		v.oset = newOrdsetBuf()
	}
	v.oset = v.oset.makeUnique()
	v.oset.setRange(lo, hi)
}

// OrdSetContains reports membership of b.
func (v Variant) OrdSetContains(b byte) bool {
	if v.kind != KindOrdSet {
		panic(&KindMismatch{Want: KindOrdSet, Got: v.kind})
	}
	if v.oset == nil {
		return false
	}
	return v.oset.has(b)
}

// --- dict operations -------------------------------------------------------

// DictGet looks up key, raising KeyError if absent.
func (v Variant) DictGet(key Variant) Variant {
	if v.kind != KindDict {
		panic(&KindMismatch{Want: KindDict, Got: v.kind})
	}
	if v.dict == nil {
		panic(&KeyError{Msg: "key not found"})
	}
	val, ok := v.dict.get(key)
	if !ok {
		panic(&KeyError{Msg: "key not found"})
	}
	return val
}

// DictTryGet looks up key without raising.
func (v Variant) DictTryGet(key Variant) (Variant, bool) {
	if v.kind != KindDict {
		panic(&KindMismatch{Want: KindDict, Got: v.kind})
	}
	if v.dict == nil {
		return Variant{}, false
	}
	return v.dict.get(key)
}

// DictSet inserts or updates key -> val.
func (v *Variant) DictSet(key, val Variant) {
	if v.kind != KindDict {
		panic(&KindMismatch{Want: KindDict, Got: v.kind})
	}
	if v.dict == nil {
		v.dict = newDictBuf()
	}
	v.dict = v.dict.makeUnique()
	v.dict.set(key, val)
}

// DictDelete removes key.
func (v *Variant) DictDelete(key Variant) {
	if v.kind != KindDict {
		panic(&KindMismatch{Want: KindDict, Got: v.kind})
	}
	if v.dict == nil {
		return
	}
	v.dict = v.dict.makeUnique()
	v.dict.del(key)
}

// DictItems returns a dict's sorted (keys, values) slices.
func DictItems(v Variant) ([]Variant, []Variant) {
	if v.kind != KindDict {
		panic(&KindMismatch{Want: KindDict, Got: v.kind})
	}
	return dictItems(v.dict)
}

// --- byte-dict operations (sparse array keyed 0..255, spec.md §4.2) -------

// ByteDictGet looks up key, raising KeyError if absent.
func (v Variant) ByteDictGet(key Variant) Variant {
	if v.kind != KindByteDict {
		panic(&KindMismatch{Want: KindByteDict, Got: v.kind})
	}
	if v.bdict == nil {
		panic(&KeyError{Msg: "key not found"})
	}
	val, ok := v.bdict.get(byte(key.Ord()))
	if !ok {
		panic(&KeyError{Msg: "key not found"})
	}
	return val
}

// ByteDictTryGet looks up key without raising.
func (v Variant) ByteDictTryGet(key Variant) (Variant, bool) {
	if v.kind != KindByteDict {
		panic(&KindMismatch{Want: KindByteDict, Got: v.kind})
	}
	if v.bdict == nil {
		return Variant{}, false
	}
	return v.bdict.get(byte(key.Ord()))
}

// ByteDictSet inserts or updates key -> val.
func (v *Variant) ByteDictSet(key, val Variant) {
	if v.kind != KindByteDict {
		panic(&KindMismatch{Want: KindByteDict, Got: v.kind})
	}
	if v.bdict == nil {
		v.bdict = newBdictBuf()
	}
	v.bdict = v.bdict.makeUnique()
	v.bdict.set(byte(key.Ord()), val)
}

// ByteDictDelete removes key.
func (v *Variant) ByteDictDelete(key Variant) {
	if v.kind != KindByteDict {
		panic(&KindMismatch{Want: KindByteDict, Got: v.kind})
	}
	if v.bdict == nil {
		return
	}
	v.bdict = v.bdict.makeUnique()
	v.bdict.del(byte(key.Ord()))
}

// ByteDictItems returns a byte-dict's ordinal-sorted (keys, values) slices.
func ByteDictItems(v Variant) ([]Variant, []Variant) {
	if v.kind != KindByteDict {
		panic(&KindMismatch{Want: KindByteDict, Got: v.kind})
	}
	return bdictItems(v.bdict)
}

// InRange reports whether an ordinal value lies within [left,right].
func InRange(val int64, r *RangeVal) bool {
	return val >= r.Left && val <= r.Right
}
