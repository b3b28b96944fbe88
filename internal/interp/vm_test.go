package interp

import (
	"testing"

	"shannon/internal/bytecode"
	"shannon/internal/variant"
)

// Grounded on the teacher's internal/vm/vm_test.go: hand-assemble a chunk
// and assert on the resulting stack/self-variable values rather than
// going through a lexer/parser.

func runSegment(t *testing.T, seg *bytecode.Segment, self []variant.Variant) (*Interp, *Frame) {
	t.Helper()
	in := New(seg.MaxStack + 8)
	f := &Frame{Seg: seg, Self: self}
	if err := in.Run(f); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return in, f
}

// spec.md §8 scenario: `'ab'|'cd'|'ef'` concatenation.
func TestStrConcatScenario(t *testing.T) {
	seg := bytecode.NewSegment()
	ab := seg.AddConstant([]byte("ab"))
	cd := seg.AddConstant([]byte("cd"))
	ef := seg.AddConstant([]byte("ef"))
	seg.EmitOp(bytecode.OpLoadStr)
	seg.EmitU16(uint16(ab))
	seg.EmitOp(bytecode.OpLoadStr)
	seg.EmitU16(uint16(cd))
	seg.EmitOp(bytecode.OpConcatStr)
	seg.EmitOp(bytecode.OpLoadStr)
	seg.EmitU16(uint16(ef))
	seg.EmitOp(bytecode.OpConcatStr)
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = 2

	in, _ := runSegment(t, seg, nil)
	if got := string(in.Stack[in.SP()-1].Bytes()); got != "abcdef" {
		t.Fatalf("got %q, want %q", got, "abcdef")
	}
}

// Vector element assignment through the lea/compound-storer path.
func TestVecElemAssignment(t *testing.T) {
	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpLoad1)
	seg.EmitOp(bytecode.OpElemToVec) // self[0] = [1]
	seg.EmitOp(bytecode.OpInitSelfVar)
	seg.Emit8(0)

	seg.EmitOp(bytecode.OpLeaSelfVar)
	seg.Emit8(0)
	seg.EmitOp(bytecode.OpLoad0) // index
	seg.EmitOp(bytecode.OpLoadByte)
	seg.Emit8(42) // value
	seg.EmitOp(bytecode.OpStoreVecElem)
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = 4

	self := []variant.Variant{variant.Void()}
	_, f := runSegment(t, seg, self)

	if got := f.Self[0].VecGet(0).Ord(); got != 42 {
		t.Fatalf("self[0][0] = %d, want 42", got)
	}
}

// Byte-dict element assignment through the lea/compound-storer path,
// mirroring TestVecElemAssignment for the byte-ranged-index dict
// specialization (spec.md §4.2).
func TestByteDictElemAssignment(t *testing.T) {
	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpLoadEmptyByteDict) // self[0] = {}
	seg.EmitOp(bytecode.OpInitSelfVar)
	seg.Emit8(0)

	seg.EmitOp(bytecode.OpLeaSelfVar)
	seg.Emit8(0)
	seg.EmitOp(bytecode.OpLoadByte) // key
	seg.Emit8(7)
	seg.EmitOp(bytecode.OpLoadByte) // value
	seg.Emit8(42)
	seg.EmitOp(bytecode.OpStoreByteDictElem)
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = 4

	self := []variant.Variant{variant.Void()}
	_, f := runSegment(t, seg, self)

	if got := f.Self[0].ByteDictGet(variant.NewOrd(7)).Ord(); got != 42 {
		t.Fatalf("self[0][7] = %d, want 42", got)
	}
	if f.Self[0].Size() != 1 {
		t.Fatalf("expected size 1, got %d", f.Self[0].Size())
	}
}

// spec.md §8 scenario: range membership (`15 in r, 25 in r`), with the
// operands in the order the parser emits them: the ordinal, then the range.
func TestRangeMembership(t *testing.T) {
	seg := bytecode.NewSegment()
	idx := seg.AddConstant(variant.NewRange(10, 20, "int"))

	seg.EmitOp(bytecode.OpLoadByte)
	seg.Emit8(15)
	seg.EmitOp(bytecode.OpLoadConst)
	seg.EmitU16(uint16(idx))
	seg.EmitOp(bytecode.OpInRange)
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = 2

	in, _ := runSegment(t, seg, nil)
	if !in.Stack[in.SP()-1].Bool() {
		t.Fatal("expected 15 in [10,20] to be true")
	}

	seg2 := bytecode.NewSegment()
	idx2 := seg2.AddConstant(variant.NewRange(10, 20, "int"))
	seg2.EmitOp(bytecode.OpLoadByte)
	seg2.Emit8(25)
	seg2.EmitOp(bytecode.OpLoadConst)
	seg2.EmitU16(uint16(idx2))
	seg2.EmitOp(bytecode.OpInRange)
	seg2.EmitOp(bytecode.OpEnd)
	seg2.MaxStack = 2

	in2, _ := runSegment(t, seg2, nil)
	if in2.Stack[in2.SP()-1].Bool() {
		t.Fatal("expected 25 in [10,20] to be false")
	}
}

// Short-circuit `and`: the rhs must never execute once the lhs is false.
func TestShortCircuitAnd(t *testing.T) {
	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpLoad0) // falsy lhs
	jumpAt := seg.EmitOp(bytecode.OpJumpAnd)
	seg.EmitS16(0) // placeholder, patched below
	// rhs: if ever reached, leaves a distinguishable truthy value behind
	seg.EmitOp(bytecode.OpLoadByte)
	seg.Emit8(9)
	end := seg.Len()
	seg.PatchU16(jumpAt+1, uint16(int16(end-(jumpAt+3))))
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = 2

	in, _ := runSegment(t, seg, nil)
	if got := in.Stack[in.SP()-1].Ord(); got != 0 {
		t.Fatalf("expected short-circuited and to leave the falsy lhs (0) on the stack, got %d", got)
	}
}

// Function-call arithmetic through the childCall convention, and the
// bp-1 stack-unwind-on-error invariant (spec.md §8) when the callee
// fails.
func TestChildCallArithmetic(t *testing.T) {
	callee := bytecode.NewSegment()
	callee.EmitOp(bytecode.OpLoadStkVar)
	callee.Emit8(0xFE) // arg0 (offset -2)
	callee.EmitOp(bytecode.OpLoadStkVar)
	callee.Emit8(0xFF) // arg1 (offset -1)
	callee.EmitOp(bytecode.OpAdd)
	callee.EmitOp(bytecode.OpStoreStkVar)
	callee.Emit8(0xFD) // result slot (offset -3)
	callee.EmitOp(bytecode.OpEnd)
	callee.MaxStack = 3

	fn := &Callable{Seg: callee, Name: "add", ParamCount: 2}

	caller := bytecode.NewSegment()
	idx := caller.AddConstant(fn)
	caller.EmitOp(bytecode.OpLoadNull) // reserved result slot
	caller.EmitOp(bytecode.OpLoadByte)
	caller.Emit8(3)
	caller.EmitOp(bytecode.OpLoadByte)
	caller.Emit8(4)
	caller.EmitOp(bytecode.OpChildCall)
	caller.EmitU16(uint16(idx))
	caller.Emit8(2)
	caller.EmitOp(bytecode.OpEnd)
	caller.MaxStack = 4

	in, _ := runSegment(t, caller, nil)
	if in.SP() != 1 {
		t.Fatalf("expected exactly one result value left on the stack, sp=%d", in.SP())
	}
	if got := in.Stack[0].Ord(); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestChildCallErrorUnwindsToResultSlot(t *testing.T) {
	callee := bytecode.NewSegment()
	callee.EmitOp(bytecode.OpLoad1)
	callee.EmitOp(bytecode.OpLoad0)
	callee.EmitOp(bytecode.OpDiv)
	callee.EmitOp(bytecode.OpEnd)
	callee.MaxStack = 2

	fn := &Callable{Seg: callee, Name: "boom"}

	caller := bytecode.NewSegment()
	idx := caller.AddConstant(fn)
	caller.EmitOp(bytecode.OpLoadNull) // reserved result slot
	caller.EmitOp(bytecode.OpChildCall)
	caller.EmitU16(uint16(idx))
	caller.Emit8(0)
	caller.EmitOp(bytecode.OpEnd)
	caller.MaxStack = 2

	in := New(8)
	f := &Frame{Seg: caller}
	if err := in.Run(f); err == nil {
		t.Fatal("expected division-by-zero error to propagate")
	}
	if in.SP() != 0 {
		t.Fatalf("expected sp to unwind to the pre-call result slot (0), got %d", in.SP())
	}
}

// Enum-style comparison: cmpOrd followed by equal.
func TestOrdEquality(t *testing.T) {
	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpLoadByte)
	seg.Emit8(9)
	seg.EmitOp(bytecode.OpLoadByte)
	seg.Emit8(9)
	seg.EmitOp(bytecode.OpCmpOrd)
	seg.EmitOp(bytecode.OpEqual)
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = 2

	in, _ := runSegment(t, seg, nil)
	if !in.Stack[in.SP()-1].Bool() {
		t.Fatal("expected 9 == 9 to be true")
	}
}
