package bytecode

import "testing"

func TestEmitAndReadBack(t *testing.T) {
	s := NewSegment()
	off := s.EmitOp(OpLoadStkVar)
	s.Emit8(3)

	if s.At(off) != byte(OpLoadStkVar) {
		t.Fatalf("wrong opcode byte at offset")
	}
	if s.At(off+1) != 3 {
		t.Fatalf("wrong operand byte")
	}
	if s.Len() != OpLen(OpLoadStkVar) {
		t.Fatalf("got len %d want %d", s.Len(), OpLen(OpLoadStkVar))
	}
}

func TestRewriteOpSameLength(t *testing.T) {
	s := NewSegment()
	off := s.EmitOp(OpLoadSelfVar)
	s.Emit8(5)

	if err := s.RewriteOp(off, OpStoreSelfVar); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if OpCode(s.At(off)) != OpStoreSelfVar {
		t.Fatalf("rewrite did not take effect")
	}
	if s.At(off+1) != 5 {
		t.Fatalf("operand byte should be untouched by rewrite")
	}
}

func TestRewriteOpRejectsLengthMismatch(t *testing.T) {
	s := NewSegment()
	off := s.EmitOp(OpLoad0) // zero operands

	if err := s.RewriteOp(off, OpLoadOrd); err == nil {
		t.Fatal("expected error rewriting into a longer opcode")
	}
}

func TestCutToDiscardsTrailingCode(t *testing.T) {
	s := NewSegment()
	mark := s.Len()
	s.EmitOp(OpAdd)
	s.EmitOp(OpSub)
	s.CutTo(mark)

	if s.Len() != mark {
		t.Fatalf("CutTo did not truncate: len=%d mark=%d", s.Len(), mark)
	}
}

func TestEraseRemovesTrailingInstructionOnly(t *testing.T) {
	s := NewSegment()
	off := s.EmitOp(OpLoadOrd)
	s.EmitU16(7)

	s.Erase(off, OpLoadOrd)
	if s.Len() != off {
		t.Fatalf("Erase left %d bytes, want %d", s.Len(), off)
	}
}

func TestPatchU16RoundTrips(t *testing.T) {
	s := NewSegment()
	s.EmitOp(OpJump)
	patchAt := s.Len()
	s.EmitS16(0)

	s.PatchU16(patchAt, 1234)
	if got := s.Atw(patchAt); got != 1234 {
		t.Fatalf("got %d want 1234", got)
	}
}

func TestLeaAndStorerPairsMatchLoaderLength(t *testing.T) {
	pairs := []struct{ loader, other OpCode }{
		{OpLoadSelfVar, OpStoreSelfVar}, {OpLoadSelfVar, OpLeaSelfVar},
		{OpLoadStkVar, OpStoreStkVar}, {OpLoadStkVar, OpLeaStkVar},
		{OpLoadMember, OpStoreMember}, {OpLoadMember, OpLeaMember},
		{OpDeref, OpStoreRef}, {OpDeref, OpLeaDeref},
		{OpVecElem, OpLeaVecElem}, {OpDictElem, OpLeaDictElem},
	}
	for _, p := range pairs {
		if OpLen(p.loader) != OpLen(p.other) {
			t.Errorf("%s (%d) and %s (%d) must be rewrite-compatible", p.loader, OpLen(p.loader), p.other, OpLen(p.other))
		}
	}
}

func TestMaxStackHighWaterMark(t *testing.T) {
	s := NewSegment()
	s.NoteStackDepth(2)
	s.NoteStackDepth(5)
	s.NoteStackDepth(3)
	if s.MaxStack != 5 {
		t.Fatalf("got %d want 5", s.MaxStack)
	}
}
