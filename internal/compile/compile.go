// Package compile ties internal/lexer, internal/parser, and
// internal/codegen together behind the two interfaces internal/context
// and internal/parser each depend on but deliberately don't implement
// themselves (their own doc comments: context.Loader's "cmd/shannon wires
// a concrete Loader together at startup", parser.Importer's "avoids an
// import cycle"). Grounded on the teacher's internal/vm/module_loader.go
// ModuleLoader: the same cache-by-resolved-path plus in-progress guard for
// circular imports, reading source files off a search-path list.
package compile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shannon/internal/context"
	"shannon/internal/errors"
	"shannon/internal/interp"
	"shannon/internal/parser"
	"shannon/internal/symbols"
	"shannon/internal/types"
)

// sourceExt is the file extension Shannon source modules carry; import
// paths are resolved against it the way the teacher's ModuleLoader
// appends ".sn" (generalized here from the teacher's own scripting
// extension to this language's name).
const sourceExt = ".sn"

// compiled is one module's cached front-end output: the symbol scope/type
// an importer needs plus the runtime Module descriptor a context.Loader
// needs, so a module imported from two different files compiles exactly
// once.
type compiled struct {
	name  string
	scope *symbols.Scope
	typ   *types.Type
	mod   *context.Module
}

// Compiler implements both context.Loader and parser.Importer against one
// shared path-keyed cache, with a circular-import guard (spec.md never
// describes mutually-recursive modules as supported).
type Compiler struct {
	searchPaths []string
	cache       map[string]*compiled
	inProgress  map[string]bool

	// ctx, once attached, receives every module this Compiler compiles —
	// not just the entry module context.Context.LoadModule registers
	// directly, but every transitive import parser.Importer resolves
	// along the way. Without this a nested import would compile
	// correctly but never appear in the context's module table, leaving
	// its importer's self-var slot unwired (context.Context.wireImports
	// silently skips a name it can't find).
	ctx *context.Context
}

// New constructs a Compiler resolving relative import paths against
// searchPaths in order (mirroring context.Context.SearchPaths' own
// default of the current directory).
func New(searchPaths []string) *Compiler {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	return &Compiler{
		searchPaths: searchPaths,
		cache:       make(map[string]*compiled),
		inProgress:  make(map[string]bool),
	}
}

// AttachContext lets the Compiler register every module it compiles (not
// just the one returned from the top-level Load call) into ctx, closing
// the loop between parser.Importer-resolved nested imports and
// context.Context's module table. Call once, right after
// context.NewContext(compiler).
func (c *Compiler) AttachContext(ctx *context.Context) { c.ctx = ctx }

// Import implements parser.Importer: resolve path to a module, returning
// its registered name, top-level scope, and module type.
func (c *Compiler) Import(path string) (string, *symbols.Scope, *types.Type, error) {
	cm, err := c.compile(path)
	if err != nil {
		return "", nil, nil, err
	}
	return cm.name, cm.scope, cm.typ, nil
}

// Load implements context.Loader: resolve path to a module, returning its
// runtime descriptor.
func (c *Compiler) Load(path string) (*context.Module, error) {
	cm, err := c.compile(path)
	if err != nil {
		return nil, err
	}
	return cm.mod, nil
}

// compile resolves path to a source file, parses it (recursing through
// Import for any `import` statement the parser encounters), and caches
// the result keyed by the resolved absolute path so a module imported
// under two different relative spellings still compiles once.
func (c *Compiler) compile(path string) (*compiled, error) {
	resolved, src, err := c.readSource(path)
	if err != nil {
		return nil, err
	}
	if cm, ok := c.cache[resolved]; ok {
		return cm, nil
	}
	if c.inProgress[resolved] {
		return nil, fmt.Errorf("circular import: %s", path)
	}
	c.inProgress[resolved] = true
	defer delete(c.inProgress, resolved)

	name := moduleName(resolved)
	p, err := parser.New(src, resolved, c)
	if err != nil {
		return nil, err
	}
	gen, scope, err := p.ParseModule(name)
	if err != nil {
		return nil, err
	}

	entry := &interp.Callable{
		Seg:          gen.Seg,
		Name:         name,
		SelfVarCount: len(scope.Variables()),
		SelfLayout:   selfLayout(scope),
	}
	mod := &context.Module{
		Name:    name,
		Path:    resolved,
		Entry:   entry,
		Imports: p.Imports(),
	}
	moduleType := &types.Type{Kind: types.KindModule, Name: name, Owner: scope}

	cm := &compiled{name: name, scope: scope, typ: moduleType, mod: mod}
	c.cache[resolved] = cm
	if c.ctx != nil {
		c.ctx.RegisterModule(cm.mod)
	}
	return cm, nil
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

// moduleName derives a module's registered name from its resolved file
// path: the base file name without extension, matching defaultAlias's
// treatment of an import path's last segment in decl.go.
func moduleName(resolved string) string {
	base := filepath.Base(resolved)
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// readSource finds path on disk, trying it verbatim and then joined
// against each search path in turn, appending sourceExt if the candidate
// doesn't already carry it (spec.md's import statements name a module,
// not necessarily a file).
func (c *Compiler) readSource(path string) (string, string, error) {
	candidates := c.candidatePaths(path)
	var lastErr error
	for _, cand := range candidates {
		b, err := os.ReadFile(cand)
		if err != nil {
			lastErr = err
			continue
		}
		abs, err := filepath.Abs(cand)
		if err != nil {
			abs = cand
		}
		return abs, string(b), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no search paths configured")
	}
	return "", "", errors.New(errors.CompileError, fmt.Sprintf("cannot find module %q: %s", path, lastErr.Error()), errors.Location{})
}

func (c *Compiler) candidatePaths(path string) []string {
	withExt := path
	if !strings.HasSuffix(path, sourceExt) {
		withExt = path + sourceExt
	}

	var out []string
	if filepath.IsAbs(path) {
		return []string{path, withExt}
	}
	for _, root := range c.searchPaths {
		out = append(out, filepath.Join(root, path), filepath.Join(root, withExt))
	}
	return out
}
