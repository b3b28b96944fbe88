package codegen

import (
	"testing"

	"shannon/internal/bytecode"
	"shannon/internal/symbols"
	"shannon/internal/types"
	"shannon/internal/variant"
)

func TestEndConstExprFoldsArithmetic(t *testing.T) {
	g := New(symbols.NewScope("root", nil), "t.shannon")

	mark, was := g.BeginConstExpr()
	g.LoadOrd(2, types.Int)
	g.LoadOrd(3, types.Int)
	if err := g.ArithmBinary(OpAddTok); err != nil {
		t.Fatalf("ArithmBinary: %v", err)
	}
	if err := g.EndConstExpr(mark, was, types.Int); err != nil {
		t.Fatalf("EndConstExpr: %v", err)
	}

	if g.SimDepth() != 1 {
		t.Fatalf("expected one folded value on the sim stack, got depth %d", g.SimDepth())
	}
	top, err := g.peek()
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if top.LoaderOp != bytecode.OpLoadConst {
		t.Fatalf("expected the folded result to be a single OpLoadConst, got %v", top.LoaderOp)
	}
	if len(g.Seg.Constants) != 1 {
		t.Fatalf("expected exactly one folded constant, got %d", len(g.Seg.Constants))
	}
	if v, ok := g.Seg.Constants[0].(variant.Variant); !ok || v.Kind() != variant.KindOrd || v.Ord() != 5 {
		t.Fatalf("expected folded constant 5, got %#v", g.Seg.Constants[0])
	}
}

func TestLoadVariableRejectedDuringConstExpr(t *testing.T) {
	scope := symbols.NewScope("root", nil)
	sym := &symbols.Symbol{Name: "x", Kind: symbols.SymVariable, VarKind: symbols.VarSelf, VarType: types.Int}
	if err := scope.Define(sym); err != nil {
		t.Fatalf("Define: %v", err)
	}
	g := New(scope, "t.shannon")

	mark, was := g.BeginConstExpr()
	if err := g.LoadVariable(sym); err == nil {
		t.Fatal("expected LoadVariable to reject a runtime variable in const-expr mode")
	}
	g.ConstExpr = was
	g.Seg.CutTo(mark)
}

func TestBeginConstExprNestsCleanly(t *testing.T) {
	g := New(symbols.NewScope("root", nil), "t.shannon")

	outerMark, outerWas := g.BeginConstExpr()
	g.LoadOrd(1, types.Int)

	innerMark, innerWas := g.BeginConstExpr()
	g.LoadOrd(4, types.Int)
	g.LoadOrd(5, types.Int)
	if err := g.ArithmBinary(OpMulTok); err != nil {
		t.Fatalf("ArithmBinary: %v", err)
	}
	if err := g.EndConstExpr(innerMark, innerWas, types.Int); err != nil {
		t.Fatalf("inner EndConstExpr: %v", err)
	}
	if !g.ConstExpr {
		t.Fatal("expected ConstExpr to remain true after closing the inner fold (outer is still open)")
	}

	if err := g.ArithmBinary(OpAddTok); err != nil {
		t.Fatalf("ArithmBinary: %v", err)
	}
	if err := g.EndConstExpr(outerMark, outerWas, types.Int); err != nil {
		t.Fatalf("outer EndConstExpr: %v", err)
	}
	if g.ConstExpr {
		t.Fatal("expected ConstExpr to clear once the outer fold closes")
	}
	if v, ok := g.Seg.Constants[len(g.Seg.Constants)-1].(variant.Variant); !ok || v.Kind() != variant.KindOrd || v.Ord() != 21 {
		t.Fatalf("expected folded constant 21 (1 + 4*5), got %#v", g.Seg.Constants[len(g.Seg.Constants)-1])
	}
}
