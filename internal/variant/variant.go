// Package variant implements Shannon's tagged value model: a single
// Variant type with a closed set of kinds, reference-counted copy-on-write
// containers, and structural equality/ordering.
package variant

import (
	"fmt"
	"sort"
)

// Kind is the tag of a Variant.
type Kind byte

const (
	KindVoid Kind = iota
	KindOrd       // signed integer; also used for bool, char, enum values
	KindReal      // reserved, unimplemented (spec.md Non-goals)
	KindVarPtr    // reserved raw pointer
	KindStr
	KindVec
	KindSet
	KindOrdSet
	KindDict
	KindByteDict // dict specialized for a byte-ranged (0..255) index, see types.IsByteDict
	KindRange
	KindRef
	KindRtObj
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindOrd:
		return "ord"
	case KindReal:
		return "real"
	case KindVarPtr:
		return "varptr"
	case KindStr:
		return "str"
	case KindVec:
		return "vec"
	case KindSet:
		return "set"
	case KindOrdSet:
		return "ordset"
	case KindDict:
		return "dict"
	case KindByteDict:
		return "bytedict"
	case KindRange:
		return "range"
	case KindRef:
		return "ref"
	case KindRtObj:
		return "rtobj"
	default:
		return "?"
	}
}

// KindMismatch is raised when an accessor observes a Variant as the wrong kind.
type KindMismatch struct {
	Want, Got Kind
}

func (e *KindMismatch) Error() string {
	return fmt.Sprintf("variant kind mismatch: want %s, got %s", e.Want, e.Got)
}

// RangeVal is the payload of a KindRange variant: a pair of ordinals plus
// the ordinal type they were drawn from (identified by name; the type
// system proper lives in package types and is attached at the call site to
// avoid an import cycle between variant and types).
type RangeVal struct {
	Left, Right int64
	OrdTypeName string
}

// RtObj is the payload of a KindRtObj variant: an opaque runtime object,
// principally type descriptors and state instances. Concrete packages
// (types, interp) implement this by embedding a marker or by satisfying it
// directly.
type RtObj interface {
	RtObjKind() string
}

// Ref is the payload of a KindRef variant: a mutable reference to a
// variant cell owned elsewhere.
type Ref struct {
	Cell *Variant
}

// Variant is Shannon's tagged value. The zero Variant is void.
type Variant struct {
	kind  Kind
	ord   int64
	str   *strBuf
	vec   *vecBuf
	set   *setBuf
	oset  *ordsetBuf
	dict  *dictBuf
	bdict *bdictBuf
	rng   *RangeVal
	ref   *Ref
	obj   RtObj
}

// Void returns the void variant.
func Void() Variant { return Variant{kind: KindVoid} }

// NewOrd constructs an ord (integer/bool/char/enum) variant.
func NewOrd(v int64) Variant { return Variant{kind: KindOrd, ord: v} }

// NewBool constructs an ord variant carrying a boolean (0 or 1).
func NewBool(b bool) Variant {
	if b {
		return NewOrd(1)
	}
	return NewOrd(0)
}

// NewChar constructs an ord variant carrying a byte-sized character code.
func NewChar(c byte) Variant { return NewOrd(int64(c)) }

// NewStr constructs a str (byte vector) variant by copying b.
func NewStr(b []byte) Variant {
	sb := newStrBuf(len(b))
	copy(sb.data, b)
	return Variant{kind: KindStr, str: sb}
}

// NewVec constructs an empty vec variant.
func NewVec() Variant { return Variant{kind: KindVec, vec: newVecBuf(0)} }

// NewSet constructs an empty set variant.
func NewSet() Variant { return Variant{kind: KindSet, set: newSetBuf()} }

// NewOrdSet constructs an empty fixed-256-bit ordset variant.
func NewOrdSet() Variant { return Variant{kind: KindOrdSet, oset: newOrdsetBuf()} }

// NewDict constructs an empty dict variant.
func NewDict() Variant { return Variant{kind: KindDict, dict: newDictBuf()} }

// NewByteDict constructs an empty byte-dict variant (a dict specialized
// for a byte-ranged 0..255 index, spec.md §4.2).
func NewByteDict() Variant { return Variant{kind: KindByteDict, bdict: newBdictBuf()} }

// NewRange constructs a range variant.
func NewRange(left, right int64, ordType string) Variant {
	return Variant{kind: KindRange, rng: &RangeVal{Left: left, Right: right, OrdTypeName: ordType}}
}

// NewRef constructs a reference variant pointing at cell.
func NewRef(cell *Variant) Variant { return Variant{kind: KindRef, ref: &Ref{Cell: cell}} }

// NewRtObj constructs an rtobj variant wrapping obj.
func NewRtObj(obj RtObj) Variant { return Variant{kind: KindRtObj, obj: obj} }

// Kind returns the variant's tag.
func (v Variant) Kind() Kind { return v.kind }

// Empty reports whether the variant is the kind-appropriate empty/null
// value: void is empty, ord zero is NOT considered empty (only containers
// and void participate in this predicate per spec.md §3.1/§3.2).
func (v Variant) Empty() bool {
	switch v.kind {
	case KindVoid:
		return true
	case KindStr:
		return v.str == nil || v.str.size == 0
	case KindVec:
		return v.vec == nil || v.vec.size == 0
	case KindSet:
		return v.set == nil || v.set.size() == 0
	case KindOrdSet:
		return v.oset == nil || v.oset.count() == 0
	case KindDict:
		return v.dict == nil || v.dict.size() == 0
	case KindByteDict:
		return v.bdict == nil || v.bdict.size() == 0
	default:
		return false
	}
}

// Ord returns the ordinal payload, panicking with KindMismatch on a wrong kind.
func (v Variant) Ord() int64 {
	if v.kind != KindOrd {
		panic(&KindMismatch{Want: KindOrd, Got: v.kind})
	}
	return v.ord
}

// Bool reads the ordinal payload as a boolean.
func (v Variant) Bool() bool { return v.Ord() != 0 }

// Bytes returns the str payload's bytes (shared, read-only view).
func (v Variant) Bytes() []byte {
	if v.kind != KindStr {
		panic(&KindMismatch{Want: KindStr, Got: v.kind})
	}
	if v.str == nil {
		return nil
	}
	return v.str.data[:v.str.size]
}

// Range returns the range payload.
func (v Variant) Range() *RangeVal {
	if v.kind != KindRange {
		panic(&KindMismatch{Want: KindRange, Got: v.kind})
	}
	return v.rng
}

// RefCell returns the ref payload.
func (v Variant) RefCell() *Ref {
	if v.kind != KindRef {
		panic(&KindMismatch{Want: KindRef, Got: v.kind})
	}
	return v.ref
}

// Obj returns the rtobj payload.
func (v Variant) Obj() RtObj {
	if v.kind != KindRtObj {
		panic(&KindMismatch{Want: KindRtObj, Got: v.kind})
	}
	return v.obj
}

// Copy returns a shallow copy that shares container payloads by reference
// (CoW: mutation will clone on first write). This is the "copy" operation
// from spec.md §4.1: it bumps the shared buffer's refcount so a later
// makeUnique on either side of the copy clones instead of mutating in place.
func (v Variant) Copy() Variant {
	switch v.kind {
	case KindStr:
		if v.str != nil {
			v.str.refs++
		}
	case KindVec:
		if v.vec != nil {
			v.vec.refs++
		}
	case KindSet:
		if v.set != nil {
			v.set.refs++
		}
	case KindOrdSet:
		if v.oset != nil {
			v.oset.refs++
		}
	case KindDict:
		if v.dict != nil {
			v.dict.refs++
		}
	case KindByteDict:
		if v.bdict != nil {
			v.bdict.refs++
		}
	}
	return v
}

// --- structural equality / ordering -----------------------------------

// Equal implements structural equality; a null container and an empty
// container compare equal (spec.md §3.1).
func Equal(a, b Variant) bool { return Compare(a, b) == 0 }

// Compare implements structural ordering; ordering on dissimilar kinds
// falls back to kind-tag ordering (spec.md §3.1).
func Compare(a, b Variant) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindVoid:
		return 0
	case KindOrd:
		return cmpInt64(a.ord, b.ord)
	case KindStr:
		return compareBytes(a.Bytes(), b.Bytes())
	case KindVec:
		return compareVec(a.vec, b.vec)
	case KindSet:
		return compareSet(a.set, b.set)
	case KindOrdSet:
		return compareOrdset(a.oset, b.oset)
	case KindDict:
		return compareDict(a.dict, b.dict)
	case KindByteDict:
		return compareBdict(a.bdict, b.bdict)
	case KindRange:
		if d := cmpInt64(a.rng.Left, b.rng.Left); d != 0 {
			return d
		}
		return cmpInt64(a.rng.Right, b.rng.Right)
	case KindRef:
		return compareBytes([]byte(fmt.Sprintf("%p", a.ref.Cell)), []byte(fmt.Sprintf("%p", b.ref.Cell)))
	case KindRtObj:
		return compareBytes([]byte(fmt.Sprintf("%p", a.obj)), []byte(fmt.Sprintf("%p", b.obj)))
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmpInt64(int64(len(a)), int64(len(b)))
}

func compareVec(a, b *vecBuf) int {
	as, bs := vecItems(a), vecItems(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if d := Compare(as[i], bs[i]); d != 0 {
			return d
		}
	}
	return cmpInt64(int64(len(as)), int64(len(bs)))
}

func compareSet(a, b *setBuf) int {
	as, bs := setItems(a), setItems(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if d := Compare(as[i], bs[i]); d != 0 {
			return d
		}
	}
	return cmpInt64(int64(len(as)), int64(len(bs)))
}

func compareOrdset(a, b *ordsetBuf) int {
	var ab, bb [32]byte
	if a != nil {
		ab = a.bits
	}
	if b != nil {
		bb = b.bits
	}
	for i := range ab {
		if ab[i] != bb[i] {
			if ab[i] < bb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func compareDict(a, b *dictBuf) int {
	ak, av := dictItems(a)
	bk, bv := dictItems(b)
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if d := Compare(ak[i], bk[i]); d != 0 {
			return d
		}
		if d := Compare(av[i], bv[i]); d != 0 {
			return d
		}
	}
	return cmpInt64(int64(len(ak)), int64(len(bk)))
}

func compareBdict(a, b *bdictBuf) int {
	ak, av := bdictItems(a)
	bk, bv := bdictItems(b)
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if d := Compare(ak[i], bk[i]); d != 0 {
			return d
		}
		if d := Compare(av[i], bv[i]); d != 0 {
			return d
		}
	}
	return cmpInt64(int64(len(ak)), int64(len(bk)))
}

// ToString renders a variant for `echo`/string-concatenation purposes.
func (v Variant) ToString() string {
	switch v.kind {
	case KindVoid:
		return "void"
	case KindOrd:
		return fmt.Sprintf("%d", v.ord)
	case KindStr:
		return string(v.Bytes())
	case KindVec:
		items := vecItems(v.vec)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.ToString()
		}
		return "[" + joinComma(parts) + "]"
	case KindSet:
		items := setItems(v.set)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.ToString()
		}
		return "{" + joinComma(parts) + "}"
	case KindOrdSet:
		parts := []string{}
		if v.oset != nil {
			for i := 0; i < 256; i++ {
				if v.oset.has(byte(i)) {
					parts = append(parts, fmt.Sprintf("%d", i))
				}
			}
		}
		return "{" + joinComma(parts) + "}"
	case KindDict:
		keys, vals := dictItems(v.dict)
		parts := make([]string, len(keys))
		for i := range keys {
			parts[i] = keys[i].ToString() + ": " + vals[i].ToString()
		}
		return "{" + joinComma(parts) + "}"
	case KindByteDict:
		keys, vals := bdictItems(v.bdict)
		parts := make([]string, len(keys))
		for i := range keys {
			parts[i] = keys[i].ToString() + ": " + vals[i].ToString()
		}
		return "{" + joinComma(parts) + "}"
	case KindRange:
		return fmt.Sprintf("%d..%d", v.rng.Left, v.rng.Right)
	case KindRef:
		return "<ref>"
	case KindRtObj:
		return fmt.Sprintf("<%v>", v.obj)
	default:
		return "?"
	}
}

func joinComma(parts []string) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += ", "
		}
		s += p
	}
	return s
}

// sortKeys is used by dict/set insertion to keep sorted order (spec.md §3.2).
func sortKeys(items []Variant) {
	sort.Slice(items, func(i, j int) bool { return Compare(items[i], items[j]) < 0 })
}
