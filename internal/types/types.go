// Package types implements Shannon's reified type descriptors: ordinal,
// enum, range, container, fifo, reference, state, and module kinds, plus
// the identity and assignment-compatibility relations the code generator
// relies on (spec.md §3.3, §4.2).
package types

import "fmt"

// Kind is the tag of a Type descriptor.
type Kind byte

const (
	KindTypeRef Kind = iota
	KindVoid
	KindVariant
	KindRef
	KindBool
	KindChar
	KindInt
	KindEnum
	KindNullCont
	KindVec
	KindSet
	KindDict
	KindFifo
	KindPrototype
	KindState
	KindModule
)

func (k Kind) String() string {
	names := [...]string{"typeref", "void", "variant", "ref", "bool", "char",
		"int", "enum", "nullcont", "vec", "set", "dict", "fifo", "prototype",
		"state", "module"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Type is a runtime object whose own type is the singleton Typeref
// (spec.md §3.3). Ordinal types carry (Left,Right) bounds; container types
// carry (Index,Elem) where either may be Void/NullCont ("unused
// dimension"); enum types carry Names; state/module types carry the
// symbol-table/members described in spec.md §3.3 but those live in
// package symbols to avoid an import cycle — Type only keeps a back
// pointer (Owner, as an opaque identity token) plus what the type system
// itself needs to reason about assignability.
type Type struct {
	Kind Kind
	Name string

	// Ordinal bounds (Int, Char, Enum, subranges thereof).
	Left, Right int64

	// Container dimensions (Vec, Set, Dict, Fifo). Index is KindNullCont
	// for Vec/Set/Fifo (single-dimension containers).
	Index, Elem *Type

	// Enum value names, ordinal-indexed.
	EnumNames []string

	// Reference target type (KindRef).
	Target *Type

	// Prototype: formal argument types + return type (KindPrototype).
	Params []*Type
	Result *Type

	// State/module identity. Owner is a caller-supplied opaque pointer
	// (the owning *symbols.Scope, or a *StateDesc the interp defines) used
	// only for identity comparisons, never dereferenced by this package.
	Owner  interface{}
	Parent *Type
}

// Singleton base descriptors, analogous to spec.md's queenBee-registered
// built-in types.
var (
	Typeref  = &Type{Kind: KindTypeRef, Name: "typeref"}
	VoidType = &Type{Kind: KindVoid, Name: "void"}
	Variant  = &Type{Kind: KindVariant, Name: "variant"}
	Bool     = &Type{Kind: KindBool, Name: "bool", Left: 0, Right: 1}
	Char     = &Type{Kind: KindChar, Name: "char", Left: 0, Right: 255}
	Int      = &Type{Kind: KindInt, Name: "int", Left: minInt64, Right: maxInt64}
	NullCont = &Type{Kind: KindNullCont, Name: "nullcont"}
)

const (
	minInt64 = -(1 << 62)
	maxInt64 = (1 << 62) - 1
)

// NewSubrange creates an ordinal subrange type sharing its parent's Kind
// (createSubrange(left,right), spec.md §4.2). Bounds must lie within
// parent's own bounds.
func NewSubrange(parent *Type, left, right int64) (*Type, error) {
	if !IsAnyOrd(parent) {
		return nil, fmt.Errorf("cannot subrange non-ordinal type %s", parent.Name)
	}
	if left > right || left < parent.Left || right > parent.Right {
		return nil, fmt.Errorf("subrange [%d,%d] out of bounds of %s [%d,%d]", left, right, parent.Name, parent.Left, parent.Right)
	}
	return &Type{Kind: parent.Kind, Name: fmt.Sprintf("%s(%d..%d)", parent.Name, left, right), Left: left, Right: right, Parent: parent, EnumNames: parent.EnumNames}, nil
}

// NewEnum creates an enumeration type over names, bounded 0..len(names)-1.
func NewEnum(name string, names []string) *Type {
	return &Type{Kind: KindEnum, Name: name, Left: 0, Right: int64(len(names) - 1), EnumNames: names}
}

// --- predicates (spec.md §4.2) ------------------------------------------

func IsBool(t *Type) bool    { return t.Kind == KindBool }
func IsChar(t *Type) bool    { return t.Kind == KindChar }
func IsInt(t *Type) bool     { return t.Kind == KindInt }
func IsEnum(t *Type) bool    { return t.Kind == KindEnum }
func IsAnyOrd(t *Type) bool  { return IsBool(t) || IsChar(t) || IsInt(t) || IsEnum(t) }
func IsByteVec(t *Type) bool { return t.Kind == KindVec && t.Index == nil && t.Elem != nil && IsChar(t.Elem) }
func IsAnyVec(t *Type) bool  { return t.Kind == KindVec }
func IsAnySet(t *Type) bool  { return t.Kind == KindSet }
func IsByteSet(t *Type) bool { return t.Kind == KindSet && t.Index != nil && isByteIndex(t.Index) }
func IsAnyDict(t *Type) bool { return t.Kind == KindDict }
func IsByteDict(t *Type) bool {
	return t.Kind == KindDict && t.Index != nil && isByteIndex(t.Index)
}
func IsAnyCont(t *Type) bool {
	return IsAnyVec(t) || IsAnySet(t) || IsAnyDict(t) || t.Kind == KindNullCont
}
func IsNullCont(t *Type) bool  { return t.Kind == KindNullCont }
func IsAnyState(t *Type) bool  { return t.Kind == KindState || t.Kind == KindModule }
func IsModule(t *Type) bool    { return t.Kind == KindModule }
func IsReference(t *Type) bool { return t.Kind == KindRef }
func IsVariant(t *Type) bool   { return t.Kind == KindVariant }
func IsTypeRef(t *Type) bool   { return t.Kind == KindTypeRef }

// IsDerefable is true for every kind except void and ref (spec.md §4.2).
func IsDerefable(t *Type) bool { return t.Kind != KindVoid && t.Kind != KindRef }

// IsPod is true for ordinals, byte-vecs, and typerefs (spec.md §4.2).
func IsPod(t *Type) bool { return IsAnyOrd(t) || IsByteVec(t) || IsTypeRef(t) }

func isByteIndex(t *Type) bool { return IsAnyOrd(t) && t.Left >= 0 && t.Right <= 255 }

// --- identity & assignability --------------------------------------------

// IdenticalTo is structural equality: an ordinal equals another only if
// kind and bounds match (spec.md §4.2, §8).
func IdenticalTo(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool, KindChar, KindInt:
		return a.Left == b.Left && a.Right == b.Right
	case KindEnum:
		return a.Left == b.Left && a.Right == b.Right && sameEnum(a, b)
	case KindVec, KindSet, KindFifo:
		return identicalDim(a.Index, b.Index) && identicalDim(a.Elem, b.Elem)
	case KindDict:
		return identicalDim(a.Index, b.Index) && identicalDim(a.Elem, b.Elem)
	case KindRef:
		return IdenticalTo(a.Target, b.Target)
	case KindState, KindModule:
		return a.Owner != nil && a.Owner == b.Owner
	default:
		return true
	}
}

func identicalDim(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return IdenticalTo(a, b)
}

func sameEnum(a, b *Type) bool {
	if len(a.EnumNames) != len(b.EnumNames) {
		return false
	}
	for i := range a.EnumNames {
		if a.EnumNames[i] != b.EnumNames[i] {
			return false
		}
	}
	return true
}

// CanAssignTo is reflexive; it includes subtype widening for ordinals
// (same kind, any bounds), enum values of the same enumeration regardless
// of subrange, and covariant reference targets (spec.md §4.2, §8).
func CanAssignTo(from, to *Type) bool {
	if IdenticalTo(from, to) {
		return true
	}
	if from == nil || to == nil {
		return false
	}
	switch {
	case from.Kind == to.Kind && (IsBool(from) || IsChar(from) || IsInt(from)):
		return true
	case IsEnum(from) && IsEnum(to):
		return sameEnum(from, to)
	case IsReference(from) && IsReference(to):
		return CanAssignTo(from.Target, to.Target)
	default:
		return false
	}
}

// --- derivation operators (spec.md §4.2) ---------------------------------

// DeriveVec returns a uniqued vec(elem) descriptor. Owner identifies the
// owning state for lifetime purposes (spec.md §3.3's ownership rule);
// callers are expected to memoize by (kind,index,elem) themselves if they
// want true "uniqued" behavior across repeated derivations — this
// function just builds the descriptor.
func DeriveVec(owner interface{}, elem *Type) *Type {
	return &Type{Kind: KindVec, Elem: elem, Owner: owner, Name: "vec(" + elem.Name + ")"}
}

func DeriveSet(owner interface{}, elem *Type) *Type {
	return &Type{Kind: KindSet, Elem: elem, Owner: owner, Name: "set(" + elem.Name + ")"}
}

// DeriveContainer builds the correct container kind for (index, elem)
// per the construction table in spec.md §4.2.
func DeriveContainer(owner interface{}, index, elem *Type) *Type {
	kind := ContainerKindFor(index, elem)
	if kind == KindNullCont {
		return NullCont
	}
	name := fmt.Sprintf("%s(%v,%v)", kind, dimName(index), dimName(elem))
	return &Type{Kind: kind, Index: nonNull(index), Elem: nonNull(elem), Owner: owner, Name: name}
}

func dimName(t *Type) string {
	if t == nil {
		return "void"
	}
	return t.Name
}

func nonNull(t *Type) *Type {
	if t == nil || t.Kind == KindNullCont {
		return nil
	}
	return t
}

// ContainerKindFor implements spec.md §4.2's construction rule table:
// both void -> nullcont; index void & elem char -> str (modeled as Vec
// with Elem=Char and Index=nil, see IsByteVec); index void & elem else ->
// vec; elem void & index fits 0..255 -> ordset (modeled as Set with
// byte-range Index, see IsByteSet); elem void & else -> set; both present
// & index fits 0..255 -> byte-dict (modeled as Dict with byte-range
// Index, see IsByteDict); otherwise -> dict. Byte-dict/ordset reuse their
// un-specialized Kind the same way a subrange reuses KindInt: the Index
// bounds on the Type, not a separate Kind value, is what IsByteDict/
// IsByteSet key on to pick the specialized runtime representation.
func ContainerKindFor(index, elem *Type) Kind {
	indexVoid := index == nil || index.Kind == KindNullCont
	elemVoid := elem == nil || elem.Kind == KindNullCont
	switch {
	case indexVoid && elemVoid:
		return KindNullCont
	case indexVoid && !elemVoid:
		return KindVec
	case elemVoid && isByteIndex(index):
		return KindSet
	case elemVoid:
		return KindSet
	case !elemVoid && isByteIndex(index):
		return KindDict
	default:
		return KindDict
	}
}

func DeriveFifo(owner interface{}, elem *Type) *Type {
	return &Type{Kind: KindFifo, Elem: elem, Owner: owner, Name: "fifo(" + elem.Name + ")"}
}

// DeriveRange builds the range-of type for an ordinal type (ordinals
// only, spec.md §4.2).
func DeriveRange(owner interface{}, ord *Type) (*Type, error) {
	if !IsAnyOrd(ord) {
		return nil, fmt.Errorf("deriveRange: %s is not ordinal", ord.Name)
	}
	return &Type{Kind: KindVec, Index: nil, Elem: ord, Owner: owner, Name: "range(" + ord.Name + ")"}, nil
}

// CreateSubrange is the exported wrapper matching spec.md §4.2's naming.
func CreateSubrange(parent *Type, left, right int64) (*Type, error) {
	return NewSubrange(parent, left, right)
}

// DeriveReference builds a reference-to type (spec.md §4.2's "ref").
func DeriveReference(owner interface{}, target *Type) *Type {
	return &Type{Kind: KindRef, Target: target, Owner: owner, Name: "ref(" + target.Name + ")"}
}
