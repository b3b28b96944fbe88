package parser

import (
	"fmt"

	"shannon/internal/interp"
	"shannon/internal/lexer"
	"shannon/internal/symbols"
	"shannon/internal/types"
	"shannon/internal/variant"
)

// importDecl parses `import "path" [as alias];`. The imported scope's
// function and constant names are merged into the current module's
// lookup chain (symbols.Scope.Imports, consulted last by DeepFind); a
// module's own variables stay private to it — only queenBee.result
// crosses a module boundary (see ParseModule's automatic queenBee
// wiring).
func (p *Parser) importDecl() {
	pathTok := p.consume(lexer.TokStr, "expected an import path string")
	alias := defaultAlias(pathTok.Text)
	if p.match(lexer.TokAs) {
		alias = p.consume(lexer.TokIdent, "expected an alias name after 'as'").Text
	}
	p.consume(lexer.TokSemicolon, "expected ';' after import")

	if p.importer == nil {
		panic(p.fail("imports are not available in this compilation"))
	}
	name, scope, _, err := p.importer.Import(pathTok.Text)
	if err != nil {
		panic(p.fail(fmt.Sprintf("import %q: %s", pathTok.Text, err.Error())))
	}
	p.moduleScope.Imports = append(p.moduleScope.Imports, scope)

	aliasSym := &symbols.Symbol{Name: alias, Kind: symbols.SymAlias, AliasTarget: scope}
	if err := p.moduleScope.Define(aliasSym); err != nil {
		panic(p.fail(err.Error()))
	}
	_ = name
}

func defaultAlias(path string) string {
	start := 0
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			start = i + 1
			break
		}
	}
	name := path[start:]
	for i, c := range name {
		if c == '.' {
			return name[:i]
		}
	}
	return name
}

// constDecl parses `const NAME = expr;` (expr folded at compile time,
// spec.md §4.5.4). The declared symbol carries the folded Go value
// directly: every later reference compiles to a fresh LoadConst.
func (p *Parser) constDecl() {
	name := p.consume(lexer.TokIdent, "expected a constant name").Text
	p.consume(lexer.TokAssign, "expected '=' in const declaration")

	mark, was := p.cur.gen.BeginConstExpr()
	p.expr()
	val, typ, err := p.cur.gen.FoldConstValue(mark, was, nil)
	if err != nil {
		panic(p.fail(err.Error()))
	}
	p.consume(lexer.TokSemicolon, "expected ';' after const declaration")

	sym := &symbols.Symbol{Name: name, Kind: symbols.SymDefinition, DefValue: val, VarType: typ}
	if err := p.cur.scope.Define(sym); err != nil {
		panic(p.fail(err.Error()))
	}
}

// enumDecl parses `enum Name { A, B, C };`, a Pascal-style ordinal type
// (spec.md's types.NewEnum). Each value becomes a module-level constant
// of the enum type holding its ordinal.
func (p *Parser) enumDecl() {
	name := p.consume(lexer.TokIdent, "expected an enum type name").Text
	p.consume(lexer.TokLBrace, "expected '{' after enum name")

	var names []string
	for !p.check(lexer.TokRBrace) {
		names = append(names, p.consume(lexer.TokIdent, "expected an enum value name").Text)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.consume(lexer.TokRBrace, "expected '}' to close enum")
	p.consume(lexer.TokSemicolon, "expected ';' after enum declaration")

	enumType := types.NewEnum(name, names)
	p.types[name] = enumType

	for i, valName := range names {
		sym := &symbols.Symbol{
			Name:     valName,
			Kind:     symbols.SymDefinition,
			DefValue: variant.NewOrd(int64(i)),
			VarType:  enumType,
		}
		if err := p.cur.scope.Define(sym); err != nil {
			panic(p.fail(err.Error()))
		}
	}
}

// stateDecl parses `state Name { var fields...; ctor(...) {...} method
// name(...) [: type] {...} ... };`. Field declarations (`var`) must come
// textually before ctor/method bodies (spec.md §2's single-pass
// constraint: a method referencing a field must already have seen its
// declaration).
func (p *Parser) stateDecl() {
	name := p.consume(lexer.TokIdent, "expected a state name").Text
	p.consume(lexer.TokLBrace, "expected '{' after state name")

	stateScope := symbols.NewScope(name, p.cur.scope)
	stateScope.IsState = true
	stateType := &types.Type{Kind: types.KindState, Name: name, Owner: stateScope}
	def := &stateDef{typ: stateType, scope: stateScope, methods: map[string]*funcDef{}, fields: map[string]*types.Type{}}

	// Field declarations.
	for p.match(lexer.TokVar) || p.match(lexer.TokLet) {
		fname := p.consume(lexer.TokIdent, "expected a field name").Text
		p.consume(lexer.TokColon, "expected ':' and a field type")
		ftype := p.typeExpr()
		p.consume(lexer.TokSemicolon, "expected ';' after field declaration")

		slot := stateScope.NextSelfID()
		sym := &symbols.Symbol{Name: fname, Kind: symbols.SymVariable, VarKind: symbols.VarSelf, VarID: slot, VarType: ftype, Host: stateScope}
		if err := stateScope.Define(sym); err != nil {
			panic(p.fail(err.Error()))
		}
		def.fields[fname] = ftype
	}

	var ctorParams []*types.Type
	var ctorCallable *interp.Callable
	haveCtor := false

	for !p.check(lexer.TokRBrace) {
		switch {
		case p.match(lexer.TokCtor):
			if haveCtor {
				panic(p.fail("a state may declare only one ctor"))
			}
			ctorCallable, ctorParams = p.ctorDecl(def)
			haveCtor = true
		case p.match(lexer.TokMethod):
			p.methodDecl(def)
		default:
			panic(p.fail("expected 'ctor' or 'method' in state body"))
		}
	}
	p.consume(lexer.TokRBrace, "expected '}' to close state")
	p.consume(lexer.TokSemicolon, "expected ';' after state declaration")

	if !haveCtor {
		// A state with no explicit ctor gets a trivial no-arg one that
		// leaves every field at its zero value.
		gen := p.cur.gen.NewNested(stateScope)
		gen.End()
		ctorCallable = &interp.Callable{Seg: gen.Seg, Name: name + ".ctor", IsCtor: true, SelfVarCount: len(stateScope.Variables())}
	}
	def.ctor = ctorCallable
	def.ctorParams = ctorParams
	ctorCallable.SelfLayout = selfLayout(stateScope)
	ctorCallable.Methods = def.methodCallables()

	p.types[name] = stateType
	valueSym := &symbols.Symbol{Name: name, Kind: symbols.SymDefinition, DefValue: def, VarType: stateType}
	if err := p.cur.scope.Define(valueSym); err != nil {
		panic(p.fail(err.Error()))
	}
}

func (d *stateDef) methodCallables() map[string]*interp.Callable {
	out := make(map[string]*interp.Callable, len(d.methods))
	for name, fd := range d.methods {
		out[name] = fd.callable
	}
	return out
}

func selfLayout(scope *symbols.Scope) map[string]int {
	layout := make(map[string]int)
	for _, sym := range scope.Variables() {
		if sym.VarKind == symbols.VarSelf {
			layout[sym.Name] = sym.VarID
		}
	}
	return layout
}

// ctorDecl parses a constructor's parameter list and body, returning its
// Callable and parameter types.
func (p *Parser) ctorDecl(def *stateDef) (*interp.Callable, []*types.Type) {
	params := p.paramList()
	gen := p.cur.gen.NewNested(def.scope)
	fc := &funcCtx{gen: gen, scope: def.scope, resultType: types.VoidType, stateType: def.typ}
	prevCur := p.cur
	p.cur = fc

	bindParams(def.scope, params)

	p.block()
	gen.End()
	p.cur = prevCur

	callable := &interp.Callable{Seg: gen.Seg, Name: def.typ.Name + ".ctor", IsCtor: true, SelfVarCount: len(def.scope.Variables())}
	var types_ []*types.Type
	for _, pr := range params {
		types_ = append(types_, pr.typ)
	}
	return callable, types_
}

// methodDecl parses `method name(params) [: resultType] { body }`.
func (p *Parser) methodDecl(def *stateDef) {
	name := p.consume(lexer.TokIdent, "expected a method name").Text
	params := p.paramList()
	resultType := types.VoidType
	if p.match(lexer.TokColon) {
		resultType = p.typeExpr()
	}

	methodScope := symbols.NewScope(def.typ.Name+"."+name, def.scope)
	methodScope.IsState = true
	gen := p.cur.gen.NewNested(methodScope)
	fc := &funcCtx{gen: gen, scope: methodScope, resultType: resultType, stateType: def.typ}
	if resultType.Kind != types.KindVoid {
		fc.resultSym = &symbols.Symbol{Name: "result", Kind: symbols.SymVariable, VarKind: symbols.VarResult, VarID: -(len(params) + 1), VarType: resultType, Host: methodScope}
	}
	prevCur := p.cur
	p.cur = fc

	bindParams(methodScope, params)
	if fc.resultSym != nil {
		if err := methodScope.Define(fc.resultSym); err != nil {
			panic(p.fail(err.Error()))
		}
	}
	// self is reached via LoadThis(stateType), not a named symbol.

	p.block()
	gen.End()
	p.cur = prevCur

	callable := &interp.Callable{Seg: gen.Seg, Name: def.typ.Name + "." + name}
	var paramTypes []*types.Type
	for _, pr := range params {
		paramTypes = append(paramTypes, pr.typ)
	}
	fd := &funcDef{callable: callable, paramTypes: paramTypes, resultType: resultType}
	def.methods[name] = fd
	// tryMethodCall resolves a call's method by looking the name up in the
	// state's own scope (stateType.Owner), not in def.methods — the scope
	// is what's reachable from a *types.Type at the call site.
	if err := def.scope.Define(&symbols.Symbol{Name: name, Kind: symbols.SymDefinition, DefValue: fd, VarType: resultType}); err != nil {
		panic(p.fail(err.Error()))
	}
}

// fnDecl parses a module-level function: `fn name(params) [: resultType]
// { body }`. Functions are registered in enclosing (declare-before-use,
// no forward references — an explicit single-pass simplification).
func (p *Parser) fnDecl(enclosing *symbols.Scope, stateCtx *stateDef) {
	name := p.consume(lexer.TokIdent, "expected a function name").Text
	params := p.paramList()
	resultType := types.VoidType
	if p.match(lexer.TokColon) {
		resultType = p.typeExpr()
	}

	fnScope := symbols.NewScope(name, enclosing)
	fnScope.IsState = true
	gen := p.cur.gen.NewNested(fnScope)
	fc := &funcCtx{gen: gen, scope: fnScope, resultType: resultType, stateType: p.moduleType}
	if resultType.Kind != types.KindVoid {
		fc.resultSym = &symbols.Symbol{Name: "result", Kind: symbols.SymVariable, VarKind: symbols.VarResult, VarID: -(len(params) + 1), VarType: resultType, Host: fnScope}
	}
	prevCur := p.cur
	p.cur = fc

	bindParams(fnScope, params)
	if fc.resultSym != nil {
		if err := fnScope.Define(fc.resultSym); err != nil {
			panic(p.fail(err.Error()))
		}
	}

	p.block()
	gen.End()
	p.cur = prevCur

	callable := &interp.Callable{Seg: gen.Seg, Name: name}
	var paramTypes []*types.Type
	for _, pr := range params {
		paramTypes = append(paramTypes, pr.typ)
	}
	fd := &funcDef{callable: callable, paramTypes: paramTypes, resultType: resultType}
	sym := &symbols.Symbol{Name: name, Kind: symbols.SymDefinition, DefValue: fd, VarType: resultType}
	if err := enclosing.Define(sym); err != nil {
		panic(p.fail(err.Error()))
	}
}

type param struct {
	name string
	typ  *types.Type
}

// paramList parses `(name: type, name: type, ...)`.
func (p *Parser) paramList() []param {
	p.consume(lexer.TokLParen, "expected '(' to begin parameter list")
	var params []param
	for !p.check(lexer.TokRParen) {
		pname := p.consume(lexer.TokIdent, "expected a parameter name").Text
		p.consume(lexer.TokColon, "expected ':' and a parameter type")
		ptype := p.typeExpr()
		params = append(params, param{name: pname, typ: ptype})
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.consume(lexer.TokRParen, "expected ')' to close parameter list")
	return params
}

// bindParams defines each parameter as a bp-relative local symbol: the
// first-pushed argument sits deepest (offset -n) and the last-pushed sits
// at -1 (spec.md §4.6's calling convention).
func bindParams(scope *symbols.Scope, params []param) {
	n := len(params)
	for i, pr := range params {
		offset := -(n - i)
		sym := &symbols.Symbol{Name: pr.name, Kind: symbols.SymVariable, VarKind: symbols.VarArg, VarID: offset, VarType: pr.typ, Host: scope}
		scope.Define(sym)
	}
}
