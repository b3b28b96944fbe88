package parser

import (
	"strings"

	"shannon/internal/codegen"
	"shannon/internal/lexer"
	"shannon/internal/symbols"
	"shannon/internal/types"
)

// block parses `{ statement* }`. Shannon has no block-scoped shadowing
// (spec.md §4.3's scope model backs a single flat scope per function/
// method/ctor/module): nested `{ }` only groups statements for if/while,
// it does not open a child symbols.Scope.
func (p *Parser) block() {
	p.consume(lexer.TokLBrace, "expected '{' to begin a block")
	for !p.check(lexer.TokRBrace) && !p.isAtEnd() {
		p.statement()
	}
	p.consume(lexer.TokRBrace, "expected '}' to close a block")
}

func (p *Parser) statement() {
	switch {
	case p.match(lexer.TokLet):
		p.varDecl()
	case p.match(lexer.TokVar):
		p.varDecl()
	case p.match(lexer.TokIf):
		p.ifStmt()
	case p.match(lexer.TokWhile):
		p.whileStmt()
	case p.match(lexer.TokAssert):
		p.assertStmt()
	case p.match(lexer.TokDump):
		p.dumpStmt()
	case p.match(lexer.TokExit):
		p.exitStmt()
	case p.match(lexer.TokReturn):
		p.returnStmt()
	case p.check(lexer.TokLBrace):
		p.block()
	default:
		p.exprOrAssignStmt()
	}
}

// varDecl parses `(let|var) name [: type] = expr;`. An initializer is
// always required: Shannon has no notion of a type's default zero value
// at the parser level, so there is nothing to emit in its absence. At
// true module top level (funcCtx.selfScope) this declares a self-var
// (a module-instance field); everywhere else it declares a bp-relative
// local. `let` and `var` differ only in spelling — Shannon (this
// implementation) does not enforce immutability for `let`, matching
// the original's treatment of it as a declaration-site hint only.
func (p *Parser) varDecl() {
	name := p.consume(lexer.TokIdent, "expected a variable name").Text
	var declType *types.Type
	if p.match(lexer.TokColon) {
		declType = p.typeExpr()
	}
	p.consume(lexer.TokAssign, "expected '=' in variable declaration")
	p.expr()
	if declType != nil {
		if err := p.cur.gen.TryImplicitCast(declType); err != nil {
			panic(p.fail(err.Error()))
		}
	}
	p.consume(lexer.TokSemicolon, "expected ';' after variable declaration")

	varType := declType
	if varType == nil {
		t, err := p.cur.gen.PeekType()
		if err != nil {
			panic(p.fail(err.Error()))
		}
		varType = t
	}

	if p.cur.selfScope {
		slot := p.cur.scope.NextSelfID()
		sym := &symbols.Symbol{Name: name, Kind: symbols.SymVariable, VarKind: symbols.VarSelf, VarID: slot, VarType: varType, Host: p.cur.scope}
		if err := p.cur.scope.Define(sym); err != nil {
			panic(p.fail(err.Error()))
		}
		if err := p.cur.gen.InitSelfVar(sym); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}

	slot := p.cur.scope.NextLocalID()
	sym := &symbols.Symbol{Name: name, Kind: symbols.SymVariable, VarKind: symbols.VarLocal, VarID: slot, VarType: varType, Host: p.cur.scope}
	if err := p.cur.scope.Define(sym); err != nil {
		panic(p.fail(err.Error()))
	}
	if err := p.cur.gen.InitLocalVar(sym); err != nil {
		panic(p.fail(err.Error()))
	}
}

// ifStmt parses `if cond { ... } [else (if ... | { ... })]`.
func (p *Parser) ifStmt() {
	p.expr()
	thenPatch, err := p.cur.gen.JumpIfFalse()
	if err != nil {
		panic(p.fail(err.Error()))
	}
	p.block()
	if !p.match(lexer.TokElse) {
		if err := p.cur.gen.ResolveJump(thenPatch); err != nil {
			panic(p.fail(err.Error()))
		}
		return
	}
	elsePatch := p.cur.gen.Jump()
	if err := p.cur.gen.ResolveJump(thenPatch); err != nil {
		panic(p.fail(err.Error()))
	}
	if p.match(lexer.TokIf) {
		p.ifStmt()
	} else {
		p.block()
	}
	if err := p.cur.gen.ResolveJump(elsePatch); err != nil {
		panic(p.fail(err.Error()))
	}
}

// whileStmt parses `while cond { ... }`.
func (p *Parser) whileStmt() {
	top := p.cur.gen.Mark()
	p.expr()
	patch, err := p.cur.gen.JumpIfFalse()
	if err != nil {
		panic(p.fail(err.Error()))
	}
	p.cur.loopDepth++
	p.block()
	p.cur.loopDepth--
	if err := p.cur.gen.JumpBack(top); err != nil {
		panic(p.fail(err.Error()))
	}
	if err := p.cur.gen.ResolveJump(patch); err != nil {
		panic(p.fail(err.Error()))
	}
}

// assertStmt parses `assert cond;`.
func (p *Parser) assertStmt() {
	start := p.pos
	p.expr()
	src := p.sourceSlice(start, p.pos)
	p.consume(lexer.TokSemicolon, "expected ';' after assert")
	if err := p.cur.gen.Assertion(src); err != nil {
		panic(p.fail(err.Error()))
	}
}

// dumpStmt parses `dump expr;`.
func (p *Parser) dumpStmt() {
	start := p.pos
	p.expr()
	src := p.sourceSlice(start, p.pos)
	p.consume(lexer.TokSemicolon, "expected ';' after dump")
	if err := p.cur.gen.DumpVar(src); err != nil {
		panic(p.fail(err.Error()))
	}
}

// exitStmt parses `exit code;`.
func (p *Parser) exitStmt() {
	p.expr()
	p.consume(lexer.TokSemicolon, "expected ';' after exit")
	if err := p.cur.gen.ProgramExit(); err != nil {
		panic(p.fail(err.Error()))
	}
}

// returnStmt parses `return [expr];`, emitting the function's end opcode
// directly so a return in the middle of a body actually stops execution
// there (the trailing gen.End() decl.go emits after the whole body covers
// the fallthrough path where no return fired).
func (p *Parser) returnStmt() {
	if p.cur.resultSym != nil {
		p.expr()
		if err := p.cur.gen.TryImplicitCast(p.cur.resultType); err != nil {
			panic(p.fail(err.Error()))
		}
		if err := p.cur.gen.InitLocalVar(p.cur.resultSym); err != nil {
			panic(p.fail(err.Error()))
		}
	} else if !p.check(lexer.TokSemicolon) {
		panic(p.fail("this function returns void; 'return' takes no value"))
	}
	p.consume(lexer.TokSemicolon, "expected ';' after return")
	p.cur.gen.End()
}

// exprOrAssignStmt parses a bare expression statement or an assignment,
// disambiguated by scanning ahead for a top-level assignment operator
// before the statement's terminating ';' (assignment targets are never
// followed by one at the same nesting depth in an ordinary expression).
func (p *Parser) exprOrAssignStmt() {
	if op, ok := p.lookaheadAssignOp(); ok {
		p.assignStmt(op)
		return
	}
	p.expr()
	t, err := p.cur.gen.PeekType()
	if err != nil {
		panic(p.fail(err.Error()))
	}
	if t.Kind != types.KindVoid {
		if err := p.cur.gen.Discard(); err != nil {
			panic(p.fail(err.Error()))
		}
	}
	p.consume(lexer.TokSemicolon, "expected ';' after expression statement")
}

func (p *Parser) lookaheadAssignOp() (lexer.TokenType, bool) {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.TokLParen, lexer.TokLBracket, lexer.TokLBrace:
			depth++
		case lexer.TokRParen, lexer.TokRBracket, lexer.TokRBrace:
			depth--
		case lexer.TokSemicolon:
			if depth <= 0 {
				return 0, false
			}
		case lexer.TokAssign, lexer.TokPlusAssign, lexer.TokMinusAssign, lexer.TokStarAssign, lexer.TokSlashAssign:
			if depth == 0 {
				return p.tokens[i].Type, true
			}
		}
	}
	return 0, false
}

// assignStmt compiles `designator = expr;` or `designator op= expr;`.
// Plain assignment evaluates the designator only to locate it (CutStorer
// throws its loader bytes away and rebuilds them as a storer after the
// RHS). Compound assignment needs the designator's current value too, so
// it is parsed twice — once to load the value for the arithmetic, and
// (after the intervening arithmetic op) once more, replaying the same
// token range, purely to produce a fresh grounded loader for CutStorer to
// rewrite; that second load's bytes are never meant to execute and are
// exactly what CutStorer cuts away. This only works for grounded
// designators (a plain variable, member, or deref) since a derived one
// (a container element) has no replay-safe shape once the element index
// has already been consumed by the first read.
func (p *Parser) assignStmt(op lexer.TokenType) {
	if op == lexer.TokAssign {
		p.postfixExpr()
		cut, lvalType, err := p.cur.gen.CutStorer()
		if err != nil {
			panic(p.fail(err.Error()))
		}
		p.advance() // '='
		if err := p.cur.gen.Assign(cut, lvalType, func() error {
			p.expr()
			return nil
		}); err != nil {
			panic(p.fail(err.Error()))
		}
		p.consume(lexer.TokSemicolon, "expected ';' after assignment")
		return
	}

	markStart := p.pos
	p.postfixExpr()
	grounded, err := p.cur.gen.PeekIsGroundedDesignator()
	if err != nil {
		panic(p.fail(err.Error()))
	}
	if !grounded {
		panic(p.fail("compound assignment is only supported on a simple variable, not a container element"))
	}
	p.advance() // '+=' / '-=' / '*=' / '/='
	p.expr()

	var arithOp codegen.ArithmOp
	switch op {
	case lexer.TokPlusAssign:
		arithOp = codegen.OpAddTok
	case lexer.TokMinusAssign:
		arithOp = codegen.OpSubTok
	case lexer.TokStarAssign:
		arithOp = codegen.OpMulTok
	case lexer.TokSlashAssign:
		arithOp = codegen.OpDivTok
	}
	if err := p.cur.gen.ArithmBinary(arithOp); err != nil {
		panic(p.fail(err.Error()))
	}

	savedPos := p.pos
	p.pos = markStart
	p.postfixExpr()
	p.pos = savedPos

	cut, lvalType, err := p.cur.gen.CutStorer()
	if err != nil {
		panic(p.fail(err.Error()))
	}
	if err := p.cur.gen.Assign(cut, lvalType, func() error { return nil }); err != nil {
		panic(p.fail(err.Error()))
	}
	p.consume(lexer.TokSemicolon, "expected ';' after assignment")
}

func (p *Parser) sourceSlice(from, to int) string {
	var b strings.Builder
	for i := from; i < to && i < len(p.tokens); i++ {
		if i > from {
			b.WriteByte(' ')
		}
		b.WriteString(p.tokens[i].Text)
	}
	return b.String()
}
