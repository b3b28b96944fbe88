// Package parser implements Shannon's single-pass recursive-descent
// front end (spec.md §2, §4.5): it drives internal/codegen.Generator
// directly while it parses, rather than building an intermediate AST.
//
// Grounded on the teacher's internal/parser/parser.go: the same
// save-position/match/consume/check/advance token-cursor mechanics and
// panic-based error signaling (caught at Parse's boundary) are kept. The
// teacher's AST+visitor shape (ast.go/stmt.go) is not: spec.md §2
// describes the generator as "single-pass, driven by parser", so this
// parser calls Generator methods as it recognizes constructs instead of
// building nodes to walk afterward.
package parser

import (
	"fmt"

	"shannon/internal/codegen"
	"shannon/internal/errors"
	"shannon/internal/interp"
	"shannon/internal/lexer"
	"shannon/internal/symbols"
	"shannon/internal/types"
)

// funcDef is a callable module-level function's compile-time signature,
// stored as the DefValue of its symbol (spec.md §4.3: Symbol.DefValue is
// opaque to package symbols).
type funcDef struct {
	callable   *interp.Callable
	paramTypes []*types.Type
	resultType *types.Type
}

// stateDef is a declared state's compile-time signature: the type used
// for variables of that state, and the constructor callable/params used
// to compile a construction expression.
type stateDef struct {
	typ        *types.Type
	scope      *symbols.Scope
	ctor       *interp.Callable
	ctorParams []*types.Type
	methods    map[string]*funcDef
	fields     map[string]*types.Type
}

// funcCtx is one function-body's compilation context: its generator,
// scope, and the bookkeeping needed to compile `return`, `self`, and
// local/self variable declarations.
type funcCtx struct {
	gen        *codegen.Generator
	scope      *symbols.Scope
	resultType *types.Type
	resultSym  *symbols.Symbol // nil if resultType is void
	stateType  *types.Type     // non-nil inside a ctor/method body, or the module
	selfScope  bool            // true only at true module top level: var/let declares a self-var
	loopDepth  int
}

// Importer resolves an import path to the scope/symbols a module exposes,
// letting the parser wire `import` without depending on package context
// directly (avoids an import cycle: context depends on nothing parser-ish,
// and compile.go is where the two are tied together). The returned name
// is the module's canonical registered name (context.Module.Name), used
// as the key context.Context wires at runtime — distinct from the
// source-level alias the import statement binds.
type Importer interface {
	Import(path string) (name string, scope *symbols.Scope, typ *types.Type, err error)
}

// Parser recognizes one source file's worth of Shannon and drives a
// module-level Generator (plus one nested Generator per function/
// method/ctor body) to completion.
type Parser struct {
	tokens []lexer.Token
	pos    int
	file   string
	src    string

	importer Importer

	moduleScope *symbols.Scope
	moduleType  *types.Type
	cur         *funcCtx

	types map[string]*types.Type // type-expression namespace

	imports map[string]int // alias/name -> module self-var slot, for context.Module.Imports

	errs []error
}

// New buffers every token src produces (mirroring the teacher's
// ScanTokens) so the parser can look ahead freely.
func New(src, file string, importer Importer) (*Parser, error) {
	l := lexer.New(src, file)
	var toks []lexer.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == lexer.TokEOF {
			break
		}
	}

	p := &Parser{
		tokens:   toks,
		file:     file,
		src:      src,
		importer: importer,
		types:    builtinTypes(),
	}
	return p, nil
}

func builtinTypes() map[string]*types.Type {
	return map[string]*types.Type{
		"void":    types.VoidType,
		"bool":    types.Bool,
		"char":    types.Char,
		"int":     types.Int,
		"variant": types.Variant,
	}
}

// --- token cursor --------------------------------------------------------

func (p *Parser) peek() lexer.Token  { return p.tokens[p.pos] }
func (p *Parser) isAtEnd() bool      { return p.peek().Type == lexer.TokEOF }
func (p *Parser) previous() lexer.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

// checkIdent reports whether the current token is an identifier with the
// given text — used for Shannon's contextual keywords (`enum`) that the
// lexer doesn't reserve.
func (p *Parser) checkIdent(text string) bool {
	return p.check(lexer.TokIdent) && p.peek().Text == text
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	panic(p.errorAtCurrent(msg))
}

func (p *Parser) errorAtCurrent(msg string) *errors.ShannonError {
	tok := p.peek()
	return errors.New(errors.ParseError, fmt.Sprintf("%s (got %q)", msg, tok.Text), errors.Location{File: p.file, Line: tok.Line, Column: tok.Column})
}

func (p *Parser) fail(msg string) *errors.ShannonError {
	return p.errorAtCurrent(msg)
}

// --- entry point -----------------------------------------------------------

// ParseModule compiles the whole token stream as one module named
// moduleName, returning its top-level Generator and scope. Errors raised
// by consume/recognize panics are recovered here and returned normally,
// mirroring the teacher's Parse() catching *errors.SyntaxError.
func (p *Parser) ParseModule(moduleName string) (gen *codegen.Generator, scope *symbols.Scope, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*errors.ShannonError); ok {
				err = se
				return
			}
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	p.moduleScope = symbols.NewScope(moduleName, nil)
	p.moduleScope.IsState = true
	p.moduleScope.IsModule = true
	p.moduleType = &types.Type{Kind: types.KindModule, Name: moduleName, Owner: p.moduleScope}

	moduleGen := codegen.New(p.moduleScope, p.file)
	p.cur = &funcCtx{gen: moduleGen, scope: p.moduleScope, stateType: p.moduleType, selfScope: true}

	qbSlot := p.moduleScope.NextSelfID()
	p.moduleScope.Define(&symbols.Symbol{
		Name: "queenBee", Kind: symbols.SymVariable, VarKind: symbols.VarSelf,
		VarID: qbSlot, VarType: queenBeeType, Host: p.moduleScope,
	})
	p.imports = map[string]int{"queenBee": qbSlot}

	// db/net are native modules (internal/stdlib), wired in as implicit
	// self-vars the same way queenBee is: no `import` needed, since
	// tryMethodCall only recognizes a bare-variable receiver and a derived
	// member chain (queenBee.db) isn't one (see expr.go's postfixExpr).
	dbSlot := p.moduleScope.NextSelfID()
	p.moduleScope.Define(&symbols.Symbol{
		Name: "db", Kind: symbols.SymVariable, VarKind: symbols.VarSelf,
		VarID: dbSlot, VarType: dbType, Host: p.moduleScope,
	})
	p.imports["db"] = dbSlot

	netSlot := p.moduleScope.NextSelfID()
	p.moduleScope.Define(&symbols.Symbol{
		Name: "net", Kind: symbols.SymVariable, VarKind: symbols.VarSelf,
		VarID: netSlot, VarType: netType, Host: p.moduleScope,
	})
	p.imports["net"] = netSlot

	for !p.isAtEnd() {
		p.topLevelDecl()
	}

	moduleGen.End()
	return moduleGen, p.moduleScope, nil
}

func (p *Parser) topLevelDecl() {
	switch {
	case p.match(lexer.TokImport):
		p.importDecl()
	case p.match(lexer.TokConst):
		p.constDecl()
	case p.checkIdent("enum"):
		p.advance()
		p.enumDecl()
	case p.match(lexer.TokState):
		p.stateDecl()
	case p.match(lexer.TokFn):
		p.fnDecl(p.moduleScope, nil)
	default:
		p.statement()
	}
}
