package parser

import (
	"fmt"

	"shannon/internal/lexer"
	"shannon/internal/types"
)

// typeExpr parses a type reference: a builtin/enum/state name, or one of
// the container type constructors `vec(T)`, `set(T)`, `dict(K,V)`
// (spec.md §4.2's derivation operators, exposed at the source level).
func (p *Parser) typeExpr() *types.Type {
	name := p.consume(lexer.TokIdent, "expected a type name").Text
	switch name {
	case "vec":
		p.consume(lexer.TokLParen, "expected '(' after vec")
		elem := p.typeExpr()
		p.consume(lexer.TokRParen, "expected ')'")
		return types.DeriveVec(nil, elem)
	case "set":
		p.consume(lexer.TokLParen, "expected '(' after set")
		elem := p.typeExpr()
		p.consume(lexer.TokRParen, "expected ')'")
		return types.DeriveSet(nil, elem)
	case "dict":
		p.consume(lexer.TokLParen, "expected '(' after dict")
		key := p.typeExpr()
		p.consume(lexer.TokComma, "expected ',' between dict key and value types")
		val := p.typeExpr()
		p.consume(lexer.TokRParen, "expected ')'")
		return types.DeriveContainer(nil, key, val)
	case "ref":
		p.consume(lexer.TokLParen, "expected '(' after ref")
		target := p.typeExpr()
		p.consume(lexer.TokRParen, "expected ')'")
		return types.DeriveReference(nil, target)
	}
	t, ok := p.types[name]
	if !ok {
		panic(p.fail(fmt.Sprintf("unknown type %q", name)))
	}
	return t
}
