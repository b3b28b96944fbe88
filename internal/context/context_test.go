package context

import (
	"testing"

	"shannon/internal/bytecode"
	"shannon/internal/interp"
	"shannon/internal/variant"
)

// Grounded on the teacher's internal/vm/vm_test.go: hand-build a chunk
// (here, a Module with a hand-assembled Segment) and assert on the
// resulting stack/self-variable value, rather than going through a
// lexer/parser.

func segmentOf(ops ...bytecode.OpCode) *bytecode.Segment {
	seg := bytecode.NewSegment()
	for _, op := range ops {
		seg.EmitOp(op)
	}
	return seg
}

func TestQueenBeeRegisteredAtIndexZero(t *testing.T) {
	ctx := NewContext(nil)
	if len(ctx.modules) != 1 || ctx.modules[0].Name != "queenBee" {
		t.Fatalf("expected queenBee to be the sole registered module, got %v", ctx.modules)
	}
}

func TestExecuteRunsRegisteredModulesInOrder(t *testing.T) {
	ctx := NewContext(nil)

	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpLoad1)
	seg.Emit8(byte(bytecode.OpInitSelfVar))
	seg.Emit8(0)
	seg.EmitOp(bytecode.OpEnd)

	mod := &Module{
		Name:    "main",
		Path:    "main",
		Entry:   &interp.Callable{Seg: seg, Name: "main", SelfVarCount: 1},
		Imports: map[string]int{},
	}
	ctx.register(mod)

	result, err := ctx.Execute("main")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Kind() != variant.KindVoid {
		t.Fatalf("queenBee's untouched result var should stay void, got %s", result.Kind())
	}

	if len(ctx.instances) != 2 {
		t.Fatalf("expected 2 instances (queenBee + main), got %d", len(ctx.instances))
	}
	mainInst := ctx.instances[1]
	if mainInst.Self[0].Ord() != 1 {
		t.Fatalf("main's self var 0 = %d, want 1", mainInst.Self[0].Ord())
	}
}

func TestExecuteFinalizesOnError(t *testing.T) {
	ctx := NewContext(nil)

	okSeg := bytecode.NewSegment()
	okSeg.EmitOp(bytecode.OpLoad1)
	okSeg.Emit8(byte(bytecode.OpInitSelfVar))
	okSeg.Emit8(0)
	okSeg.EmitOp(bytecode.OpEnd)
	ok := &Module{
		Name:    "ok",
		Path:    "ok",
		Entry:   &interp.Callable{Seg: okSeg, Name: "ok", SelfVarCount: 1},
		Imports: map[string]int{},
	}
	ctx.register(ok)

	failSeg := bytecode.NewSegment()
	failSeg.EmitOp(bytecode.OpLoad1)
	failSeg.EmitOp(bytecode.OpLoad0)
	failSeg.EmitOp(bytecode.OpDiv)
	failSeg.EmitOp(bytecode.OpEnd)
	fail := &Module{
		Name:    "fail",
		Path:    "fail",
		Entry:   &interp.Callable{Seg: failSeg, Name: "fail", SelfVarCount: 0},
		Imports: map[string]int{},
	}
	ctx.register(fail)

	_, err := ctx.Execute("fail")
	if err == nil {
		t.Fatal("expected a division-by-zero runtime error")
	}

	// ok ran and initialized its self var before fail's division raised;
	// finalize must have collapsed it back to void (spec.md §9).
	okInst := ctx.instances[1]
	if okInst.Self[0].Kind() != variant.KindVoid {
		t.Fatalf("expected ok's self var collapsed to void after fail, got %s", okInst.Self[0].ToString())
	}
}
