package parser

import (
	"shannon/internal/symbols"
	"shannon/internal/types"
)

// queenBeeScope/queenBeeType describe the well-known "queenBee" instance
// every module is wired to at runtime (context.go's newQueenBee): a
// single Variant self-var named "result" holding the program's
// conventional output (spec.md §6's programExit/queenBee.result
// scenario). Every module gets an implicit self-var slot 0 bound to it,
// without an explicit `import` statement — `queenBee.result = expr;` is
// compile-checked exactly like any other member store because
// queenBeeType.Owner is a real scope LoadMember can resolve against.
var queenBeeScope = func() *symbols.Scope {
	s := symbols.NewScope("queenBee", nil)
	s.IsState = true
	s.IsModule = true
	s.Define(&symbols.Symbol{
		Name: "result", Kind: symbols.SymVariable, VarKind: symbols.VarSelf,
		VarID: 0, VarType: types.Variant, Host: s,
	})
	return s
}()

var queenBeeType = &types.Type{Kind: types.KindModule, Name: "queenBee", Owner: queenBeeScope}

// Imports returns the alias-name -> self-var-slot map compile.go needs to
// build a context.Module's Imports field: "queenBee" at slot 0 and the
// implicit "db" and "net" native-module slots ParseModule defines; an
// explicit `import` adds no entry (see importDecl's doc comment).
func (p *Parser) Imports() map[string]int {
	out := make(map[string]int, len(p.imports))
	for k, v := range p.imports {
		out[k] = v
	}
	return out
}
