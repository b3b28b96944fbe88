// Package interp implements Shannon's bytecode interpreter (spec.md
// §4.6): a single reentrant procedure dispatching over a flat value
// stack with base-pointer-relative addressing, the three call variants,
// references, and exception unwinding back to bp-1.
//
// Grounded on the teacher's internal/vm/vm.go EnhancedVM: the flat
// preallocated stack with a stack-pointer (stackTop)/push/pop/peek and
// readByte/readShort inline-operand reads are kept; the frame's
// closure-captured globals are replaced with spec.md §4.6's bp-relative
// self/local/arg addressing and the childCall/siblingCall/methodCall
// variants of spec.md §4.6.1. Unlike the teacher's single long-lived VM
// object, calls here recurse through Go's own call stack (run() calls
// itself for childCall/siblingCall/methodCall/enterCtor), which is what
// spec.md §9 means by "the interpreter must be fully reentrant" for
// constant folding.
package interp

import (
	"fmt"

	"shannon/internal/bytecode"
	"shannon/internal/errors"
	"shannon/internal/types"
	"shannon/internal/variant"
)

// selfInstanceSlot mirrors codegen.SelfInstanceSlot: the sentinel self-var
// slot loadThis emits to push the enclosing instance itself rather than
// one of its members.
const selfInstanceSlot = 0xFF

// Callable is the runtime descriptor for a state's code: its segment and
// calling-convention shape. The code generator interns these into a
// segment's constant pool for childCall/siblingCall/enterCtor opcodes;
// methodCall instead interns a method name, resolved dynamically against
// the object's Methods table (spec.md §4.6.1).
type Callable struct {
	Seg          *bytecode.Segment
	Name         string
	ParamCount   int
	SelfVarCount int
	IsCtor       bool

	// SelfLayout maps a state's member names to self-variable slots, for
	// loadMember/storeMember to resolve against an instance built from
	// this descriptor.
	SelfLayout map[string]int

	// Methods maps a state's method names to their callables, for
	// methodCall's dynamic dispatch.
	Methods map[string]*Callable

	// Native, when set, is a Go function body standing in for Seg: the
	// call dispatches straight to it instead of recursing through run().
	// This is how internal/stdlib's queenBee/db/net native functions are
	// reached through the same childCall/methodCall opcodes as ordinary
	// Shannon functions (spec.md's "native extension surface").
	Native func(args []variant.Variant) (variant.Variant, error)
}

// Instance is the runtime object a state or module instantiation
// produces: a flat array of self-variable cells (spec.md §3.4) plus the
// member/method layout needed to resolve loadMember and methodCall
// against it.
type Instance struct {
	Self      []variant.Variant
	StateName string
	Layout    map[string]int
	Methods   map[string]*Callable
}

func (o *Instance) RtObjKind() string { return "instance:" + o.StateName }

// NewInstance allocates a fresh, void-initialized instance from a state's
// callable descriptor.
func NewInstance(callee *Callable) *Instance {
	self := make([]variant.Variant, callee.SelfVarCount)
	for i := range self {
		self[i] = variant.Void()
	}
	return &Instance{Self: self, StateName: callee.Name, Layout: callee.SelfLayout, Methods: callee.Methods}
}

// Collapse clears every self-variable cell, breaking any reference
// cycles the instance participates in (spec.md §3.5, §9).
func (o *Instance) Collapse() {
	for i := range o.Self {
		o.Self[i] = variant.Void()
	}
}

// Frame is one call's addressing context: Seg/IP is the running code,
// BP is the base pointer (locals live at Stack[BP+k], k>=0; args/result
// at Stack[BP+k], k<0), Self is the enclosing state instance's variables,
// and Outer is the self-vars of the state one lexical level up (used by
// siblingCall).
type Frame struct {
	Seg   *bytecode.Segment
	IP    int
	BP    int
	Self  []variant.Variant
	Outer []variant.Variant
}

// leaKind distinguishes the storage a lea op addressed, so the compound
// storer that follows knows how to write the mutated container back.
type leaKind int

const (
	leaSelfSlot leaKind = iota
	leaStackSlot
	leaCellSlot
	leaOpaque // a nested container-element lea: write-back does not propagate further (see DESIGN.md's LEA side-stack known limitation)
)

type leaTarget struct {
	kind leaKind
	self []variant.Variant
	slot int
	idx  int
	cell *variant.Variant
}

func (t leaTarget) writeBack(in *Interp, v variant.Variant) {
	switch t.kind {
	case leaSelfSlot:
		t.self[t.slot] = v
	case leaStackSlot:
		in.Stack[t.idx] = v
	case leaCellSlot:
		*t.cell = v
	case leaOpaque:
		// intentionally dropped
	}
}

// Interp is a single reentrant interpreter: one value stack shared by
// every nested call made through it.
type Interp struct {
	Stack []variant.Variant
	sp    int
	lea   []leaTarget
}

// New returns an interpreter with a preallocated stack of the given
// capacity (typically a segment's recorded MaxStack, spec.md §4.4).
func New(capacity int) *Interp {
	if capacity < 16 {
		capacity = 16
	}
	return &Interp{Stack: make([]variant.Variant, capacity)}
}

func (in *Interp) push(v variant.Variant) {
	if in.sp == len(in.Stack) {
		in.Stack = append(in.Stack, v)
	} else {
		in.Stack[in.sp] = v
	}
	in.sp++
}

func (in *Interp) pop() variant.Variant {
	in.sp--
	v := in.Stack[in.sp]
	in.Stack[in.sp] = variant.Void()
	return v
}

func (in *Interp) peek(offset int) variant.Variant { return in.Stack[in.sp-1-offset] }

func (in *Interp) pushLea(t leaTarget) { in.lea = append(in.lea, t) }

func (in *Interp) popLea() leaTarget {
	t := in.lea[len(in.lea)-1]
	in.lea = in.lea[:len(in.lea)-1]
	return t
}

// SP returns the current stack-top index (tests and the context package
// use this to assert unwinding lands exactly on bp-1, spec.md §8).
func (in *Interp) SP() int { return in.sp }

func runtimeErr(f *Frame, msg string) error {
	return errors.New(errors.RuntimeError, msg, errors.Location{Line: f.Seg.LineAt(f.IP)})
}

// Run executes f's segment from its current IP until opEnd, opExit, or
// an error. It is the entry point for a module's top-level code and for
// constant-expression mini-runs; ordinary calls recurse into run()
// directly.
func (in *Interp) Run(f *Frame) error {
	return in.run(f)
}

// run dispatches f's code. Container accessors in package variant raise
// *variant.KeyError/*variant.KindMismatch by panicking (spec.md §4.1);
// the recover here turns those into ordinary runtime errors so a single
// bad index never crashes the process, and so the bp-1 unwind invariant
// (spec.md §8) is enforced uniformly whether a call fails normally or
// panics.
func (in *Interp) run(f *Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *variant.KeyError:
				err = runtimeErr(f, e.Error())
			case *variant.KindMismatch:
				err = runtimeErr(f, e.Error())
			case error:
				err = runtimeErr(f, e.Error())
			default:
				err = runtimeErr(f, fmt.Sprintf("%v", r))
			}
		}
	}()

	for {
		op := bytecode.OpCode(f.Seg.Code[f.IP])
		f.IP++

		switch op {
		case bytecode.OpEnd:
			return nil
		case bytecode.OpNop:
		case bytecode.OpExit:
			code := in.pop()
			return &errors.Exit{Code: int(code.Ord())}

		// --- const loaders ---------------------------------------------
		case bytecode.OpLoadTypeRef:
			idx := in.readU16(f)
			in.push(variant.NewRtObj(typeRefObj{f.Seg.Constants[idx].(*types.Type)}))
		case bytecode.OpLoadNull:
			in.push(variant.Void())
		case bytecode.OpLoad0:
			in.push(variant.NewOrd(0))
		case bytecode.OpLoad1:
			in.push(variant.NewOrd(1))
		case bytecode.OpLoadByte:
			b := f.Seg.Code[f.IP]
			f.IP++
			in.push(variant.NewOrd(int64(b)))
		case bytecode.OpLoadOrd:
			idx := in.readU16(f)
			in.push(variant.NewOrd(f.Seg.Constants[idx].(int64)))
		case bytecode.OpLoadStr:
			idx := in.readU16(f)
			in.push(variant.NewStr(f.Seg.Constants[idx].([]byte)))
		case bytecode.OpLoadEmptyVar:
			kind := types.Kind(f.Seg.Code[f.IP])
			f.IP++
			in.push(emptyValueFor(kind))
		case bytecode.OpLoadEmptyByteDict:
			in.push(variant.NewByteDict())
		case bytecode.OpLoadConst:
			idx := in.readU16(f)
			in.push(toVariant(f.Seg.Constants[idx]))

		// --- designator loaders ------------------------------------------
		case bytecode.OpLoadSelfVar:
			slot := f.Seg.Code[f.IP]
			f.IP++
			if slot == selfInstanceSlot {
				in.push(variant.NewRtObj(&Instance{Self: f.Self}))
			} else {
				in.push(f.Self[slot].Copy())
			}
		case bytecode.OpLoadStkVar:
			off := int(int8(f.Seg.Code[f.IP]))
			f.IP++
			in.push(in.Stack[f.BP+off].Copy())
		case bytecode.OpLoadOuter:
			levels := f.Seg.Code[f.IP]
			slot := f.Seg.Code[f.IP+1]
			f.IP += 2
			self := f.Self
			for i := byte(0); i < levels; i++ {
				self = f.Outer
			}
			in.push(self[slot].Copy())
		case bytecode.OpLoadMember:
			idx := in.readU16(f)
			name := f.Seg.Constants[idx].(string)
			inst, err := in.instanceOf(f, in.pop())
			if err != nil {
				return err
			}
			slot, ok := inst.Layout[name]
			if !ok {
				return runtimeErr(f, fmt.Sprintf("unknown member %s", name))
			}
			in.push(inst.Self[slot].Copy())
		case bytecode.OpDeref:
			ref := in.pop()
			in.push(ref.RefCell().Cell.Copy())
		case bytecode.OpStrElem:
			index := in.pop()
			str := in.pop()
			in.push(str.StrGet(int(index.Ord())))
		case bytecode.OpVecElem:
			index := in.pop()
			vec := in.pop()
			in.push(vec.VecGet(int(index.Ord())))
		case bytecode.OpDictElem:
			key := in.pop()
			dict := in.pop()
			in.push(dict.DictGet(key))
		case bytecode.OpByteDictElem:
			key := in.pop()
			dict := in.pop()
			in.push(dict.ByteDictGet(key))

		// --- storers -------------------------------------------------------
		case bytecode.OpInitSelfVar, bytecode.OpStoreSelfVar:
			slot := f.Seg.Code[f.IP]
			f.IP++
			f.Self[slot] = in.pop()
		case bytecode.OpInitStkVar, bytecode.OpStoreStkVar:
			off := int(int8(f.Seg.Code[f.IP]))
			f.IP++
			slot := f.BP + off
			in.Stack[slot] = in.pop()
			if slot >= in.sp {
				// a freshly initialized local keeps its slot reserved
				in.sp = slot + 1
			}
		case bytecode.OpStoreMember:
			idx := in.readU16(f)
			name := f.Seg.Constants[idx].(string)
			val := in.pop()
			inst, err := in.instanceOf(f, in.pop())
			if err != nil {
				return err
			}
			slot, ok := inst.Layout[name]
			if !ok {
				return runtimeErr(f, fmt.Sprintf("unknown member %s", name))
			}
			inst.Self[slot] = val
		case bytecode.OpStoreRef:
			val := in.pop()
			ref := in.pop()
			*ref.RefCell().Cell = val
		case bytecode.OpStoreStrElem:
			val, idxVar, obj := in.pop(), in.pop(), in.pop()
			obj.StrSet(int(idxVar.Ord()), byte(val.Ord()))
			in.popLea().writeBack(in, obj)
		case bytecode.OpStoreVecElem:
			val, idxVar, obj := in.pop(), in.pop(), in.pop()
			obj.VecSet(int(idxVar.Ord()), val)
			in.popLea().writeBack(in, obj)
		case bytecode.OpStoreDictElem:
			val, key, obj := in.pop(), in.pop(), in.pop()
			obj.DictSet(key, val)
			in.popLea().writeBack(in, obj)
		case bytecode.OpStoreByteDictElem:
			val, key, obj := in.pop(), in.pop(), in.pop()
			obj.ByteDictSet(key, val)
			in.popLea().writeBack(in, obj)

		// --- LEA (spec.md §4.5.1): push the addressed value plus a
		// write-back target for the compound storer that follows --------
		case bytecode.OpLeaSelfVar:
			slot := f.Seg.Code[f.IP]
			f.IP++
			in.push(f.Self[slot])
			in.pushLea(leaTarget{kind: leaSelfSlot, self: f.Self, slot: int(slot)})
		case bytecode.OpLeaStkVar:
			off := int(int8(f.Seg.Code[f.IP]))
			f.IP++
			idx := f.BP + off
			in.push(in.Stack[idx])
			in.pushLea(leaTarget{kind: leaStackSlot, idx: idx})
		case bytecode.OpLeaMember:
			idx := in.readU16(f)
			name := f.Seg.Constants[idx].(string)
			inst, err := in.instanceOf(f, in.pop())
			if err != nil {
				return err
			}
			slot, ok := inst.Layout[name]
			if !ok {
				return runtimeErr(f, fmt.Sprintf("unknown member %s", name))
			}
			in.push(inst.Self[slot])
			in.pushLea(leaTarget{kind: leaSelfSlot, self: inst.Self, slot: slot})
		case bytecode.OpLeaDeref:
			ref := in.pop()
			in.push(*ref.RefCell().Cell)
			in.pushLea(leaTarget{kind: leaCellSlot, cell: ref.RefCell().Cell})
		case bytecode.OpLeaVecElem:
			index, vec := in.pop(), in.pop()
			in.push(vec.VecGet(int(index.Ord())))
			in.pushLea(leaTarget{kind: leaOpaque})
		case bytecode.OpLeaDictElem:
			key, dict := in.pop(), in.pop()
			in.push(dict.DictGet(key))
			in.pushLea(leaTarget{kind: leaOpaque})
		case bytecode.OpLeaByteDictElem:
			key, dict := in.pop(), in.pop()
			in.push(dict.ByteDictGet(key))
			in.pushLea(leaTarget{kind: leaOpaque})
		case bytecode.OpMkRef:
			in.pop() // the loaded copy; the reference targets the lea'd cell
			lt := in.popLea()
			var cell *variant.Variant
			switch lt.kind {
			case leaSelfSlot:
				cell = &lt.self[lt.slot]
			case leaStackSlot:
				cell = &in.Stack[lt.idx]
			case leaCellSlot:
				cell = lt.cell
			default:
				return runtimeErr(f, "cannot take a reference to this designator")
			}
			in.push(variant.NewRef(cell))

		// --- construction & concatenation ------------------------------------
		case bytecode.OpNewVec:
			n := int(in.readU16(f))
			v := variant.NewVec()
			elems := make([]variant.Variant, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = in.pop()
			}
			for _, e := range elems {
				v.VecAppend(e)
			}
			in.push(v)
		case bytecode.OpNewStr:
			n := int(in.readU16(f))
			b := make([]byte, n)
			for i := n - 1; i >= 0; i-- {
				b[i] = byte(in.pop().Ord())
			}
			in.push(variant.NewStr(b))
		case bytecode.OpConcatStr:
			b, a := in.pop(), in.pop()
			in.push(variant.StrConcat(a, b))
		case bytecode.OpConcatVec:
			b, a := in.pop(), in.pop()
			in.push(variant.VecConcat(a, b))
		case bytecode.OpElemToVec:
			e := in.pop()
			v := variant.NewVec()
			v.VecAppend(e)
			in.push(v)
		case bytecode.OpElemToStr:
			e := in.pop()
			in.push(variant.NewStr([]byte{byte(e.Ord())}))
		case bytecode.OpSubvec:
			to, from, obj := in.pop(), in.pop(), in.pop()
			var sv variant.Variant
			switch obj.Kind() {
			case variant.KindStr:
				sv = variant.SubStr(obj, int(from.Ord()), int(to.Ord()))
			case variant.KindVec:
				sv = variant.SubVec(obj, int(from.Ord()), int(to.Ord()))
			default:
				return runtimeErr(f, "subvec requires a str or vec")
			}
			in.push(sv)

		// --- sets / ordsets --------------------------------------------------
		case bytecode.OpNewSet:
			n := int(in.readU16(f))
			s := variant.NewSet()
			elems := make([]variant.Variant, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = in.pop()
			}
			for _, e := range elems {
				s.SetInsert(e)
			}
			in.push(s)
		case bytecode.OpElemToSet:
			e := in.pop()
			s := variant.NewSet()
			s.SetInsert(e)
			in.push(s)
		case bytecode.OpRangeToSet:
			r := in.pop()
			s := variant.NewSet()
			rg := r.Range()
			for v := rg.Left; v <= rg.Right; v++ {
				s.SetInsert(variant.NewOrd(v))
			}
			in.push(s)
		case bytecode.OpSetAddElem:
			e, s := in.pop(), in.pop()
			s.SetInsert(e)
			in.push(s)
		case bytecode.OpSetAddRange:
			r, s := in.pop(), in.pop()
			rg := r.Range()
			for v := rg.Left; v <= rg.Right; v++ {
				s.SetInsert(variant.NewOrd(v))
			}
			in.push(s)
		case bytecode.OpInCont:
			c, e := in.pop(), in.pop()
			in.push(variant.NewBool(containsElem(c, e)))
		case bytecode.OpInRange:
			rng, ord := in.pop(), in.pop()
			in.push(variant.NewBool(variant.InRange(ord.Ord(), rng.Range())))
		case bytecode.OpInBounds:
			idx, c := in.pop(), in.pop()
			i := idx.Ord()
			in.push(variant.NewBool(i >= 0 && i < int64(c.Size())))

		// --- dicts -----------------------------------------------------------
		case bytecode.OpNewDict:
			n := int(in.readU16(f))
			d := variant.NewDict()
			keys := make([]variant.Variant, n)
			vals := make([]variant.Variant, n)
			for i := n - 1; i >= 0; i-- {
				vals[i] = in.pop()
				keys[i] = in.pop()
			}
			for i := range keys {
				d.DictSet(keys[i], vals[i])
			}
			in.push(d)
		case bytecode.OpPairToDict:
			val, key := in.pop(), in.pop()
			d := variant.NewDict()
			d.DictSet(key, val)
			in.push(d)
		case bytecode.OpDictAddPair:
			val, key, d := in.pop(), in.pop(), in.pop()
			d.DictSet(key, val)
			in.push(d)
		case bytecode.OpDictDelete:
			key, d := in.pop(), in.pop()
			d.DictDelete(key)
			in.push(d)
		case bytecode.OpNewByteDict:
			n := int(in.readU16(f))
			d := variant.NewByteDict()
			keys := make([]variant.Variant, n)
			vals := make([]variant.Variant, n)
			for i := n - 1; i >= 0; i-- {
				vals[i] = in.pop()
				keys[i] = in.pop()
			}
			for i := range keys {
				d.ByteDictSet(keys[i], vals[i])
			}
			in.push(d)
		case bytecode.OpPairToByteDict:
			val, key := in.pop(), in.pop()
			d := variant.NewByteDict()
			d.ByteDictSet(key, val)
			in.push(d)
		case bytecode.OpByteDictAddPair:
			val, key, d := in.pop(), in.pop(), in.pop()
			d.ByteDictSet(key, val)
			in.push(d)
		case bytecode.OpByteDictDelete:
			key, d := in.pop(), in.pop()
			d.ByteDictDelete(key)
			in.push(d)

		// --- arithmetic --------------------------------------------------------
		case bytecode.OpAdd:
			b, a := in.pop(), in.pop()
			in.push(variant.NewOrd(a.Ord() + b.Ord()))
		case bytecode.OpSub:
			b, a := in.pop(), in.pop()
			in.push(variant.NewOrd(a.Ord() - b.Ord()))
		case bytecode.OpMul:
			b, a := in.pop(), in.pop()
			in.push(variant.NewOrd(a.Ord() * b.Ord()))
		case bytecode.OpDiv:
			b, a := in.pop(), in.pop()
			if b.Ord() == 0 {
				return runtimeErr(f, "division by zero")
			}
			in.push(variant.NewOrd(a.Ord() / b.Ord()))
		case bytecode.OpMod:
			b, a := in.pop(), in.pop()
			if b.Ord() == 0 {
				return runtimeErr(f, "division by zero")
			}
			in.push(variant.NewOrd(a.Ord() % b.Ord()))
		case bytecode.OpNeg:
			a := in.pop()
			in.push(variant.NewOrd(-a.Ord()))
		case bytecode.OpAddL, bytecode.OpSubL, bytecode.OpMulL, bytecode.OpDivL:
			rhs := in.pop()
			cur := in.pop()
			var result variant.Variant
			switch op {
			case bytecode.OpAddL:
				result = variant.NewOrd(cur.Ord() + rhs.Ord())
			case bytecode.OpSubL:
				result = variant.NewOrd(cur.Ord() - rhs.Ord())
			case bytecode.OpMulL:
				result = variant.NewOrd(cur.Ord() * rhs.Ord())
			case bytecode.OpDivL:
				if rhs.Ord() == 0 {
					return runtimeErr(f, "division by zero")
				}
				result = variant.NewOrd(cur.Ord() / rhs.Ord())
			}
			in.push(result)
			in.popLea().writeBack(in, result)

		// --- comparison --------------------------------------------------------
		case bytecode.OpCmpOrd, bytecode.OpCmpStr:
			b, a := in.pop(), in.pop()
			in.push(variant.NewOrd(int64(variant.Compare(a, b))))
		case bytecode.OpCmpVar:
			b, a := in.pop(), in.pop()
			in.push(variant.NewBool(variant.Equal(a, b)))
		case bytecode.OpEqual:
			c := in.pop()
			in.push(variant.NewBool(c.Ord() == 0))
		case bytecode.OpNotEq:
			c := in.pop()
			in.push(variant.NewBool(c.Ord() != 0))
		case bytecode.OpLessThan:
			c := in.pop()
			in.push(variant.NewBool(c.Ord() < 0))
		case bytecode.OpLessEq:
			c := in.pop()
			in.push(variant.NewBool(c.Ord() <= 0))
		case bytecode.OpGreaterThan:
			c := in.pop()
			in.push(variant.NewBool(c.Ord() > 0))
		case bytecode.OpGreaterEq:
			c := in.pop()
			in.push(variant.NewBool(c.Ord() >= 0))

		// --- jumps & calls -------------------------------------------------
		case bytecode.OpJump:
			delta := in.readS16(f)
			f.IP += delta
		case bytecode.OpJumpIfFalse:
			delta := in.readS16(f)
			if !in.pop().Bool() {
				f.IP += delta
			}
		case bytecode.OpJumpAnd:
			delta := in.readS16(f)
			if !in.peek(0).Bool() {
				f.IP += delta
			} else {
				in.pop()
			}
		case bytecode.OpJumpOr:
			delta := in.readS16(f)
			if in.peek(0).Bool() {
				f.IP += delta
			} else {
				in.pop()
			}
		case bytecode.OpNot:
			a := in.pop()
			in.push(variant.NewBool(!a.Bool()))
		case bytecode.OpChildCall:
			if err := in.doCall(f, f.Self, f.Outer); err != nil {
				return err
			}
		case bytecode.OpSiblingCall:
			if err := in.doCall(f, f.Outer, nil); err != nil {
				return err
			}
		case bytecode.OpMethodCall:
			if err := in.doMethodCall(f); err != nil {
				return err
			}
		case bytecode.OpEnterCtor:
			if err := in.doCtor(f); err != nil {
				return err
			}
		case bytecode.OpCast:
			idx := in.readU16(f)
			target := f.Seg.Constants[idx].(*types.Type)
			v := in.pop()
			if !kindMatches(v, target) {
				return runtimeErr(f, fmt.Sprintf("cast: value is not a %s", target.Name))
			}
			in.push(v)
		case bytecode.OpIsType:
			idx := in.readU16(f)
			target := f.Seg.Constants[idx].(*types.Type)
			v := in.pop()
			in.push(variant.NewBool(kindMatches(v, target)))

		// --- diagnostics ------------------------------------------------------
		case bytecode.OpLineNum:
			in.readU16(f) // the segment already records per-offset line numbers
		case bytecode.OpAssert:
			idx := in.readU16(f)
			cond := in.pop()
			if !cond.Bool() {
				return runtimeErr(f, fmt.Sprintf("assertion failed: %s", f.Seg.Constants[idx].(string)))
			}
		case bytecode.OpDump:
			idx := in.readU16(f)
			f.IP++ // kind byte, informational only
			v := in.pop()
			fmt.Printf("%s = %s\n", f.Seg.Constants[idx].(string), v.ToString())

		// --- misc --------------------------------------------------------------
		case bytecode.OpPop:
			in.pop()
		case bytecode.OpDup:
			in.push(in.peek(0).Copy())
		case bytecode.OpLength:
			c := in.pop()
			in.push(variant.NewOrd(int64(c.Size())))

		default:
			return errors.New(errors.InternalError, fmt.Sprintf("unhandled opcode %s", op), errors.Location{})
		}
	}
}

func (in *Interp) instanceOf(f *Frame, v variant.Variant) (*Instance, error) {
	if v.Kind() != variant.KindRtObj {
		return nil, runtimeErr(f, "expected a state or module instance")
	}
	inst, ok := v.Obj().(*Instance)
	if !ok {
		return nil, runtimeErr(f, "expected a state or module instance")
	}
	return inst, nil
}

func (in *Interp) readU16(f *Frame) uint16 {
	v := f.Seg.Atw(f.IP)
	f.IP += 2
	return v
}

func (in *Interp) readS16(f *Frame) int {
	return int(int16(in.readU16(f)))
}

// typeRefObj wraps a *types.Type as an RtObj payload for loadTypeRef/is
// (spec.md §3.3: type descriptors are themselves runtime values).
type typeRefObj struct{ T *types.Type }

func (t typeRefObj) RtObjKind() string { return "typeref:" + t.T.Name }

func emptyValueFor(kind types.Kind) variant.Variant {
	switch kind {
	case types.KindVec:
		return variant.NewVec()
	case types.KindSet:
		return variant.NewSet()
	case types.KindDict:
		return variant.NewDict()
	default:
		return variant.Void()
	}
}

func toVariant(val interface{}) variant.Variant {
	switch x := val.(type) {
	case variant.Variant:
		return x
	case int64:
		return variant.NewOrd(x)
	case int:
		return variant.NewOrd(int64(x))
	case bool:
		return variant.NewBool(x)
	case []byte:
		return variant.NewStr(x)
	case string:
		return variant.NewStr([]byte(x))
	default:
		return variant.Void()
	}
}

func containsElem(c, e variant.Variant) bool {
	switch c.Kind() {
	case variant.KindStr:
		for _, b := range c.Bytes() {
			if int64(b) == e.Ord() {
				return true
			}
		}
		return false
	case variant.KindVec:
		for i := 0; i < c.Size(); i++ {
			if variant.Equal(c.VecGet(i), e) {
				return true
			}
		}
		return false
	case variant.KindSet:
		return c.SetContains(e)
	case variant.KindOrdSet:
		return c.OrdSetContains(byte(e.Ord()))
	case variant.KindDict:
		_, ok := c.DictTryGet(e)
		return ok
	case variant.KindByteDict:
		_, ok := c.ByteDictTryGet(e)
		return ok
	default:
		return false
	}
}

// kindMatches checks a runtime value's kind tag against a static type
// descriptor (spec.md §4.6.1's cast/isType opcodes). Variant payloads
// carry only a coarse Kind tag, not the full type (no enum identity, no
// subrange bounds beyond what Ord carries), so this is a structural
// check, not a nominal one — adequate for spec.md's cast/is semantics,
// which never distinguish same-kind ordinal subtypes at runtime.
func kindMatches(v variant.Variant, t *types.Type) bool {
	switch {
	case types.IsVariant(t):
		return true
	case types.IsAnyOrd(t):
		return v.Kind() == variant.KindOrd && v.Ord() >= t.Left && v.Ord() <= t.Right
	case types.IsByteVec(t):
		return v.Kind() == variant.KindStr
	case types.IsAnyVec(t):
		return v.Kind() == variant.KindVec
	case types.IsByteSet(t):
		return v.Kind() == variant.KindOrdSet
	case types.IsAnySet(t):
		return v.Kind() == variant.KindSet
	case types.IsByteDict(t):
		return v.Kind() == variant.KindByteDict
	case types.IsAnyDict(t):
		return v.Kind() == variant.KindDict
	case types.IsReference(t):
		return v.Kind() == variant.KindRef
	case types.IsNullCont(t):
		return v.Empty()
	case types.IsAnyState(t):
		return v.Kind() == variant.KindRtObj
	case types.IsTypeRef(t):
		if v.Kind() != variant.KindRtObj {
			return false
		}
		_, ok := v.Obj().(typeRefObj)
		return ok
	default:
		return v.Kind() == variant.KindVoid
	}
}

// --- calls (spec.md §4.6.1) -------------------------------------------------

// doCall runs a statically-known callee (childCall/siblingCall) sharing
// self/outer with the caller as the call kind dictates.
func (in *Interp) doCall(f *Frame, self, outer []variant.Variant) error {
	idx := in.readU16(f)
	argc := int(f.Seg.Code[f.IP])
	f.IP++
	callee := f.Seg.Constants[idx].(*Callable)
	resultSlot := in.sp - argc - 1

	if callee.Native != nil {
		return in.doNativeCall(f, callee, resultSlot, argc)
	}

	newFrame := &Frame{Seg: callee.Seg, IP: 0, BP: in.sp, Self: self, Outer: outer}
	if err := in.run(newFrame); err != nil {
		in.sp = resultSlot
		return err
	}
	// The callee stores its return value through storeStkVar at its own
	// negative "result" offset, which resolves to exactly resultSlot.
	in.sp = resultSlot + 1
	return nil
}

// doNativeCall invokes a Go-native Callable in place of recursing through
// run(), passing the already-pushed arguments and replacing them (plus the
// reserved result slot) with the function's single return value.
func (in *Interp) doNativeCall(f *Frame, callee *Callable, resultSlot, argc int) error {
	args := append([]variant.Variant(nil), in.Stack[resultSlot+1:in.sp]...)
	result, err := callee.Native(args)
	if err != nil {
		return runtimeErr(f, err.Error())
	}
	in.sp = resultSlot
	in.push(result)
	return nil
}

// doMethodCall resolves the method dynamically against the callee object
// sitting below the arguments, then compacts the object's stack slot
// away so the post-call layout matches childCall/siblingCall's.
func (in *Interp) doMethodCall(f *Frame) error {
	idx := in.readU16(f)
	argc := int(f.Seg.Code[f.IP])
	f.IP++
	name := f.Seg.Constants[idx].(string)

	objSlot := in.sp - argc - 1
	inst, err := in.instanceOf(f, in.Stack[objSlot])
	if err != nil {
		return err
	}
	callee, ok := inst.Methods[name]
	if !ok {
		return runtimeErr(f, fmt.Sprintf("unknown method %s", name))
	}

	if callee.Native != nil {
		args := append([]variant.Variant(nil), in.Stack[objSlot+1:in.sp]...)
		result, err := callee.Native(args)
		if err != nil {
			return runtimeErr(f, err.Error())
		}
		in.sp = objSlot
		in.push(result)
		return nil
	}

	// Absorb the object's slot by shifting the args down one position.
	copy(in.Stack[objSlot:in.sp-1], in.Stack[objSlot+1:in.sp])
	in.sp--
	resultSlot := objSlot - 1

	newFrame := &Frame{Seg: callee.Seg, IP: 0, BP: in.sp, Self: inst.Self, Outer: nil}
	if err := in.run(newFrame); err != nil {
		in.sp = resultSlot
		return err
	}
	in.sp = resultSlot + 1
	return nil
}

// doCtor constructs a fresh state instance and runs its constructor code,
// replacing the reserved result slot with the new instance on success.
func (in *Interp) doCtor(f *Frame) error {
	idx := in.readU16(f)
	argc := int(f.Seg.Code[f.IP])
	f.IP++
	callee := f.Seg.Constants[idx].(*Callable)

	inst := NewInstance(callee)
	resultSlot := in.sp - argc - 1
	newFrame := &Frame{Seg: callee.Seg, IP: 0, BP: in.sp, Self: inst.Self, Outer: nil}
	if err := in.run(newFrame); err != nil {
		in.sp = resultSlot
		return err
	}
	in.sp = resultSlot + 1
	in.Stack[resultSlot] = variant.NewRtObj(inst)
	return nil
}
