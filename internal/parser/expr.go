package parser

import (
	"fmt"
	"strconv"
	"strings"

	"shannon/internal/bytecode"
	"shannon/internal/codegen"
	"shannon/internal/lexer"
	"shannon/internal/symbols"
	"shannon/internal/types"
	"shannon/internal/variant"
)

// expr parses a full expression at the lowest precedence (or), pushing
// exactly one value onto the active Generator's simulation stack.
func (p *Parser) expr() {
	p.orExpr()
}

func (p *Parser) orExpr() {
	p.andExpr()
	for p.check(lexer.TokOr) {
		p.advance()
		patch, err := p.cur.gen.BoolJumpForward(bytecode.OpJumpOr)
		if err != nil {
			panic(p.fail(err.Error()))
		}
		p.andExpr()
		if err := p.cur.gen.ResolveJump(patch); err != nil {
			panic(p.fail(err.Error()))
		}
	}
}

func (p *Parser) andExpr() {
	p.notExpr()
	for p.check(lexer.TokAnd) {
		p.advance()
		patch, err := p.cur.gen.BoolJumpForward(bytecode.OpJumpAnd)
		if err != nil {
			panic(p.fail(err.Error()))
		}
		p.notExpr()
		if err := p.cur.gen.ResolveJump(patch); err != nil {
			panic(p.fail(err.Error()))
		}
	}
}

func (p *Parser) notExpr() {
	if p.match(lexer.TokNot) {
		p.notExpr()
		if err := p.cur.gen.Not(); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}
	p.compareExpr()
}

// compareExpr handles the non-chaining relational/in/is tier: at most one
// of (==,!=,<,<=,>,>=), `in`, or `is` may follow the left operand.
func (p *Parser) compareExpr() {
	p.additiveExpr()
	switch {
	case p.match(lexer.TokEq):
		p.additiveExpr()
		p.emitCmp(codegen.CmpEq)
	case p.match(lexer.TokNe):
		p.additiveExpr()
		p.emitCmp(codegen.CmpNe)
	case p.match(lexer.TokLt):
		p.additiveExpr()
		p.emitCmp(codegen.CmpLt)
	case p.match(lexer.TokLe):
		p.additiveExpr()
		p.emitCmp(codegen.CmpLe)
	case p.match(lexer.TokGt):
		p.additiveExpr()
		p.emitCmp(codegen.CmpGt)
	case p.match(lexer.TokGe):
		p.additiveExpr()
		p.emitCmp(codegen.CmpGe)
	case p.match(lexer.TokIn):
		p.additiveExpr()
		t, err := p.cur.gen.PeekType()
		if err != nil {
			panic(p.fail(err.Error()))
		}
		if strings.HasPrefix(t.Name, "range(") {
			err = p.cur.gen.InRange()
		} else {
			err = p.cur.gen.InCont()
		}
		if err != nil {
			panic(p.fail(err.Error()))
		}
	case p.match(lexer.TokIs):
		t := p.typeExpr()
		if err := p.cur.gen.IsType(t); err != nil {
			panic(p.fail(err.Error()))
		}
	}
}

func (p *Parser) emitCmp(tok codegen.CmpTok) {
	if err := p.cur.gen.Cmp(tok); err != nil {
		panic(p.fail(err.Error()))
	}
}

func (p *Parser) additiveExpr() {
	p.multiplicativeExpr()
	for {
		switch {
		case p.match(lexer.TokPlus):
			p.multiplicativeExpr()
			if err := p.cur.gen.ArithmBinary(codegen.OpAddTok); err != nil {
				panic(p.fail(err.Error()))
			}
		case p.match(lexer.TokMinus):
			p.multiplicativeExpr()
			if err := p.cur.gen.ArithmBinary(codegen.OpSubTok); err != nil {
				panic(p.fail(err.Error()))
			}
		case p.match(lexer.TokPipe):
			p.multiplicativeExpr()
			if err := p.cur.gen.Cat(); err != nil {
				panic(p.fail(err.Error()))
			}
		default:
			return
		}
	}
}

func (p *Parser) multiplicativeExpr() {
	p.asExpr()
	for {
		switch {
		case p.match(lexer.TokStar):
			p.asExpr()
			if err := p.cur.gen.ArithmBinary(codegen.OpMulTok); err != nil {
				panic(p.fail(err.Error()))
			}
		case p.match(lexer.TokSlash):
			p.asExpr()
			if err := p.cur.gen.ArithmBinary(codegen.OpDivTok); err != nil {
				panic(p.fail(err.Error()))
			}
		case p.match(lexer.TokPercent):
			p.asExpr()
			if err := p.cur.gen.ArithmBinary(codegen.OpModTok); err != nil {
				panic(p.fail(err.Error()))
			}
		default:
			return
		}
	}
}

func (p *Parser) asExpr() {
	p.unaryExpr()
	for p.match(lexer.TokAs) {
		t := p.typeExpr()
		if err := p.cur.gen.ExplicitCast(t); err != nil {
			panic(p.fail(err.Error()))
		}
	}
}

func (p *Parser) unaryExpr() {
	if p.match(lexer.TokMinus) {
		p.unaryExpr()
		if err := p.cur.gen.ArithmUnary(); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}
	if p.match(lexer.TokAmp) {
		p.unaryExpr()
		if err := p.cur.gen.MkRef(); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}
	p.postfixExpr()
}

// postfixExpr parses a primary expression followed by any chain of
// `.member`, `[index]`, and `[from..to]` suffixes. A method call
// (`.name(args)`) is recognized by lookahead before the receiver is
// loaded at all: see tryMethodCall for why its receiver is restricted to
// a bare local/self variable or `self`.
func (p *Parser) postfixExpr() {
	if !p.tryMethodCall() {
		p.primary()
	}
	for {
		switch {
		case p.match(lexer.TokDot):
			name := p.consume(lexer.TokIdent, "expected a member name after '.'").Text
			if err := p.cur.gen.LoadMember(name); err != nil {
				panic(p.fail(err.Error()))
			}
			if p.check(lexer.TokLParen) {
				panic(p.fail("method calls are only supported on a bare local/self variable or self, not a derived member chain"))
			}
		case p.match(lexer.TokLBracket):
			p.indexOrSliceTail()
		default:
			return
		}
	}
}

// tryMethodCall recognizes `self.name(` or `ident.name(` where ident
// resolves to a variable, and — if matched — compiles the whole call
// without ever loading the receiver through the general expression path.
// The call convention needs [resultSlot][receiver][args...] on the
// stack (spec.md §4.6.1), but the receiver is the second thing pushed;
// by the time the parser would normally recognize "this is a call" (the
// '(' after '.name'), the receiver's bytecode is already emitted and
// can't be relocated after a reserved slot without a relocatable-byte
// trick. Restricting receivers to a single zero-precondition load (a
// plain variable or self) sidesteps that entirely: the lookahead below
// confirms the shape before anything is emitted, so reserve-then-load
// runs in the right order from the start.
func (p *Parser) tryMethodCall() bool {
	i := p.pos
	if i >= len(p.tokens) {
		return false
	}
	base := p.tokens[i]
	if base.Type != lexer.TokSelf && base.Type != lexer.TokIdent {
		return false
	}
	if i+1 >= len(p.tokens) || p.tokens[i+1].Type != lexer.TokDot {
		return false
	}
	if i+2 >= len(p.tokens) || p.tokens[i+2].Type != lexer.TokIdent {
		return false
	}
	if i+3 >= len(p.tokens) || p.tokens[i+3].Type != lexer.TokLParen {
		return false
	}

	var stateType *types.Type
	var sym *symbols.Symbol
	if base.Type == lexer.TokSelf {
		if p.cur.stateType == nil {
			return false
		}
		stateType = p.cur.stateType
	} else {
		s, err := p.cur.scope.DeepFind(base.Text)
		if err != nil || s.Kind != symbols.SymVariable {
			return false
		}
		t, _ := s.VarType.(*types.Type)
		if t == nil || !types.IsAnyState(t) {
			return false
		}
		stateType, sym = t, s
	}

	scope, _ := stateType.Owner.(*symbols.Scope)
	if scope == nil {
		return false
	}
	methodName := p.tokens[i+2].Text
	msym, ok := scope.Lookup(methodName)
	if !ok {
		return false
	}
	fd, ok := msym.DefValue.(*funcDef)
	if !ok {
		return false
	}

	// Shape confirmed: consume the tokens and emit in the correct order.
	p.advance() // base
	p.advance() // '.'
	p.advance() // method name
	p.cur.gen.ReserveResultSlot()
	if base.Type == lexer.TokSelf {
		p.cur.gen.LoadThis(stateType)
	} else if err := p.cur.gen.LoadVariable(sym); err != nil {
		panic(p.fail(err.Error()))
	}
	argc := p.callArgs(fd.paramTypes)
	if err := p.cur.gen.Call(codegen.MethodCall, fd.callable, methodName, fd.resultType, argc); err != nil {
		panic(p.fail(err.Error()))
	}
	return true
}

// indexOrSliceTail parses the part after `[` in `cont[i]` or
// `cont[from..to]`, given the container already loaded on the sim stack.
func (p *Parser) indexOrSliceTail() {
	p.expr()
	if p.match(lexer.TokDotDot) {
		if p.check(lexer.TokRBracket) {
			p.cur.gen.LoadNull()
		} else {
			p.expr()
		}
		p.consume(lexer.TokRBracket, "expected ']' to close a slice")
		if err := p.cur.gen.LoadSubvec(); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}
	p.consume(lexer.TokRBracket, "expected ']' to close an index")
	if err := p.cur.gen.LoadContainerElem(); err != nil {
		panic(p.fail(err.Error()))
	}
}

// callArgs parses `(expr, expr, ...)` implicit-casting each to the
// corresponding paramType (if non-nil), returning the arg count.
func (p *Parser) callArgs(paramTypes []*types.Type) int {
	p.consume(lexer.TokLParen, "expected '(' to begin an argument list")
	argc := 0
	for !p.check(lexer.TokRParen) {
		p.expr()
		if argc < len(paramTypes) {
			if err := p.cur.gen.TryImplicitCast(paramTypes[argc]); err != nil {
				panic(p.fail(err.Error()))
			}
		}
		argc++
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.consume(lexer.TokRParen, "expected ')' to close an argument list")
	return argc
}

// primary parses the innermost expression forms: literals, parenthesized
// expressions, container literals, `self`, and identifiers (variables,
// constants, function calls, and constructor calls).
func (p *Parser) primary() {
	switch {
	case p.check(lexer.TokInt):
		p.intOrRangeLiteral()
	case p.match(lexer.TokChar):
		v := variant.NewChar(p.previous().Text[0])
		p.cur.gen.LoadOrd(v.Ord(), types.Char)
	case p.match(lexer.TokStr):
		p.cur.gen.LoadStr([]byte(p.previous().Text))
	case p.match(lexer.TokTrue):
		p.cur.gen.LoadOrd(1, types.Bool)
	case p.match(lexer.TokFalse):
		p.cur.gen.LoadOrd(0, types.Bool)
	case p.match(lexer.TokNull):
		p.cur.gen.LoadNull()
	case p.match(lexer.TokSelf):
		if p.cur.stateType == nil {
			panic(p.fail("'self' is only valid inside a ctor or method"))
		}
		p.cur.gen.LoadThis(p.cur.stateType)
	case p.match(lexer.TokLParen):
		p.expr()
		p.consume(lexer.TokRParen, "expected ')'")
	case p.match(lexer.TokLBracket):
		p.vecLiteral()
	case p.match(lexer.TokLBrace):
		p.setOrDictLiteral()
	case p.check(lexer.TokIdent):
		p.identifierPrimary()
	default:
		panic(p.errorAtCurrent("expected an expression"))
	}
}

// intOrRangeLiteral parses an integer literal and, if followed by `..`,
// folds both bounds into a compile-time range constant (spec.md §8
// scenario 3). Ranges have no runtime constructor, so both ends must be
// literal integers.
func (p *Parser) intOrRangeLiteral() {
	mark := p.cur.gen.Mark()
	p.consumeIntLiteral()
	if !p.match(lexer.TokDotDot) {
		return
	}
	leftVal, _, err := p.cur.gen.FoldConstValue(mark, p.cur.gen.ConstExpr, nil)
	if err != nil {
		panic(p.fail(err.Error()))
	}
	mark2 := p.cur.gen.Mark()
	p.consumeIntLiteral()
	rightVal, _, err := p.cur.gen.FoldConstValue(mark2, p.cur.gen.ConstExpr, nil)
	if err != nil {
		panic(p.fail(err.Error()))
	}
	r := variant.NewRange(leftVal.Ord(), rightVal.Ord(), "int")
	if err := p.cur.gen.LoadRangeConst(r, types.Int); err != nil {
		panic(p.fail(err.Error()))
	}
}

func (p *Parser) consumeIntLiteral() {
	tok := p.consume(lexer.TokInt, "expected an integer literal")
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		panic(p.fail(fmt.Sprintf("invalid integer literal %q", tok.Text)))
	}
	p.cur.gen.LoadOrd(n, types.Int)
}

// vecLiteral parses `[e1, e2, ...]` (already past `[`), using
// elemToVec/elemCat so no bulk-construction opcode is needed.
func (p *Parser) vecLiteral() {
	if p.match(lexer.TokRBracket) {
		p.cur.gen.LoadNull()
		return
	}
	p.expr()
	if err := p.cur.gen.ElemToVec(); err != nil {
		panic(p.fail(err.Error()))
	}
	for p.match(lexer.TokComma) {
		p.expr()
		if err := p.cur.gen.ElemCat(); err != nil {
			panic(p.fail(err.Error()))
		}
	}
	p.consume(lexer.TokRBracket, "expected ']' to close a vec literal")
}

// setOrDictLiteral parses `{e1, e2, ...}` or `{k1: v1, k2: v2, ...}`
// (already past `{`); a colon after the first element decides which.
func (p *Parser) setOrDictLiteral() {
	if p.match(lexer.TokRBrace) {
		p.cur.gen.LoadNull()
		return
	}
	p.expr()
	if p.match(lexer.TokColon) {
		keyType, err := p.cur.gen.PeekType()
		if err != nil {
			panic(p.fail(err.Error()))
		}
		p.expr()
		valType, err := p.cur.gen.PeekType()
		if err != nil {
			panic(p.fail(err.Error()))
		}
		if err := p.cur.gen.PairToDict(keyType, valType); err != nil {
			panic(p.fail(err.Error()))
		}
		for p.match(lexer.TokComma) {
			p.expr()
			p.consume(lexer.TokColon, "expected ':' in dict literal")
			p.expr()
			if err := p.cur.gen.DictAddPair(); err != nil {
				panic(p.fail(err.Error()))
			}
		}
		p.consume(lexer.TokRBrace, "expected '}' to close a dict literal")
		return
	}
	if err := p.cur.gen.ElemToSet(); err != nil {
		panic(p.fail(err.Error()))
	}
	for p.match(lexer.TokComma) {
		p.expr()
		if err := p.cur.gen.SetAddElem(); err != nil {
			panic(p.fail(err.Error()))
		}
	}
	p.consume(lexer.TokRBrace, "expected '}' to close a set literal")
}

// identifierPrimary resolves a bare identifier as a variable/constant
// load, a function call, or a constructor call, based on what its symbol
// carries (spec.md §4.3's DefValue is opaque outside the resolving
// package, so the parser — not codegen — is the one place that knows
// funcDef/stateDef).
func (p *Parser) identifierPrimary() {
	name := p.advance().Text
	sym, err := p.cur.scope.DeepFind(name)
	if err != nil {
		panic(p.fail(err.Error()))
	}
	if sym.Kind == symbols.SymDefinition {
		switch def := sym.DefValue.(type) {
		case *funcDef:
			p.cur.gen.ReserveResultSlot()
			argc := p.callArgs(def.paramTypes)
			if err := p.cur.gen.Call(codegen.ChildCall, def.callable, "", def.resultType, argc); err != nil {
				panic(p.fail(err.Error()))
			}
			return
		case *stateDef:
			p.cur.gen.ReserveResultSlot()
			argc := p.callArgs(def.ctorParams)
			if err := p.cur.gen.EnterCtor(def.ctor, def.typ, argc); err != nil {
				panic(p.fail(err.Error()))
			}
			return
		default:
			if err := p.cur.gen.LoadConst(sym); err != nil {
				panic(p.fail(err.Error()))
			}
			return
		}
	}
	if sym.Kind == symbols.SymVariable {
		if err := p.cur.gen.LoadVariable(sym); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}
	panic(p.fail(fmt.Sprintf("%s cannot be used as a value", name)))
}
