package parser

import (
	"testing"

	"shannon/internal/context"
	"shannon/internal/interp"
	"shannon/internal/symbols"
	"shannon/internal/variant"
)

// Grounded on the teacher's internal/parser/parser_test.go style of
// compiling a small source string and asserting on the resulting
// program's behavior rather than on intermediate parse trees (this
// parser has none — it drives codegen directly).
//
// Regression coverage for a real bug found and fixed this pass:
// methodDecl used to record a method's funcDef only in stateDef.methods,
// a plain map tryMethodCall never consults — every method call on every
// state silently failed to be recognized as one. This exercises the
// fixed path end to end: construct a state, call a method on it, confirm
// the method's mutation of its own field and its return value both take
// effect.

func selfLayoutOf(scope *symbols.Scope) map[string]int {
	layout := make(map[string]int)
	for _, sym := range scope.Variables() {
		if sym.VarKind == symbols.VarSelf {
			layout[sym.Name] = sym.VarID
		}
	}
	return layout
}

func compileAndRun(t *testing.T, src string) variant.Variant {
	t.Helper()
	p, err := New(src, "test.sn", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gen, scope, err := p.ParseModule("test")
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}

	ctx := context.NewContext(nil)
	mod := &context.Module{
		Name: "test",
		Path: "test.sn",
		Entry: &interp.Callable{
			Seg:          gen.Seg,
			Name:         "test",
			SelfVarCount: len(scope.Variables()),
			SelfLayout:   selfLayoutOf(scope),
		},
		Imports: p.Imports(),
	}
	ctx.RegisterModule(mod)

	result, err := ctx.Execute("test")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return result
}

func TestMethodCallOnConstructedState(t *testing.T) {
	result := compileAndRun(t, `
state Counter {
	var n: int;
	ctor(start: int) {
		n = start;
	}
	method bump(amount: int): int {
		n = n + amount;
		return n;
	}
};

let c: Counter = Counter(5);
queenBee.result = c.bump(3);
`)
	if result.Kind() != variant.KindOrd || result.Ord() != 8 {
		t.Fatalf("expected result ord 8, got %v %v", result.Kind(), result.Ord())
	}
}

func TestMethodCallMutatesFieldAcrossCalls(t *testing.T) {
	result := compileAndRun(t, `
state Counter {
	var n: int;
	ctor(start: int) {
		n = start;
	}
	method bump(amount: int): int {
		n = n + amount;
		return n;
	}
};

let c: Counter = Counter(0);
let first: int = c.bump(2);
let second: int = c.bump(2);
queenBee.result = first + second;
`)
	if result.Kind() != variant.KindOrd || result.Ord() != 6 {
		t.Fatalf("expected result ord 6 (2 + 4), got %v %v", result.Kind(), result.Ord())
	}
}

func TestPlainFunctionCall(t *testing.T) {
	result := compileAndRun(t, `
fn square(x: int): int {
	return x * x;
}
queenBee.result = square(6);
`)
	if result.Kind() != variant.KindOrd || result.Ord() != 36 {
		t.Fatalf("expected result ord 36, got %v %v", result.Kind(), result.Ord())
	}
}
