// Package context implements Shannon's execution context (spec.md §3.4,
// §4.7): the set of module instances, their initialization/finalization
// order, and the module-lookup surface `import` resolves against.
//
// Grounded on the teacher's internal/vm/module_loader.go ModuleLoader: the
// same cache-by-resolved-path plus circular-dependency guard, generalized
// from "compile and run a module VM eagerly on first import" to spec.md's
// two-phase load-then-instantiate-then-run so that a module graph can be
// fully resolved before anything's self-variables are allocated.
package context

import (
	"shannon/internal/bytecode"
	"shannon/internal/errors"
	"shannon/internal/interp"
	"shannon/internal/variant"
)

// resultVarSlot is queenBee's well-known self-variable slot for the
// program's conventional result (spec.md §4.7, §6 CLI surface).
const resultVarSlot = 0

// Module is a compiled unit's descriptor: its top-level code plus the
// slots in its own self-variable array where imported modules' instances
// are to be stored before it runs (spec.md §4.7's "assigns its
// imported-module slots by reading the context's module-to-data map").
type Module struct {
	Name    string
	Path    string
	Entry   *interp.Callable
	Imports map[string]int // imported module name -> self-var slot in this module
}

// ModuleInstance is a module's allocated self-variable array plus a
// back-pointer to its descriptor (spec.md §3.4).
type ModuleInstance struct {
	*interp.Instance
	Module *Module
}

// Loader resolves an import path or module name into a compiled Module,
// the role the teacher's ModuleLoader plays by invoking its own
// lexer/parser/compiler pipeline. Kept as an interface here so package
// context never imports internal/lexer or internal/parser directly —
// cmd/shannon wires a concrete Loader together at startup.
type Loader interface {
	Load(path string) (*Module, error)
}

// Context owns every module instance for one program run (spec.md §3.4,
// §4.7). The built-in queenBee module is always present at index 0.
type Context struct {
	loader      Loader
	searchPaths []string

	modules  []*Module          // registration order
	byName   map[string]*Module
	instances []*ModuleInstance // parallel to modules once instantiated
	dataSegs map[*Module][]variant.Variant

	vm *interp.Interp

	queenBee *Module
}

// NewContext constructs a context with queenBee pre-registered at index 0.
// loader may be nil until SetLoader is called (tests can exercise a
// context with only queenBee and hand-built modules).
func NewContext(loader Loader) *Context {
	ctx := &Context{
		loader:      loader,
		searchPaths: []string{"."},
		byName:      make(map[string]*Module),
		dataSegs:    make(map[*Module][]variant.Variant),
		vm:          interp.New(64),
	}
	ctx.queenBee = newQueenBee()
	ctx.register(ctx.queenBee)
	return ctx
}

// newQueenBee builds the built-in system module: one self-variable
// holding the program's conventional result (spec.md §6, §3.5's
// "QueenBee" glossary entry).
func newQueenBee() *Module {
	seg := emptySegment()
	return &Module{
		Name:    "queenBee",
		Path:    "<queenBee>",
		Entry:   &interp.Callable{Seg: seg, Name: "queenBee", SelfVarCount: 1, SelfLayout: map[string]int{"result": resultVarSlot}},
		Imports: map[string]int{},
	}
}

// SetLoader attaches the collaborator that resolves import paths to
// compiled modules (normally cmd/shannon wiring internal/lexer +
// internal/parser + internal/codegen together).
func (c *Context) SetLoader(l Loader) { c.loader = l }

// AddSearchPath appends a directory to the roots `import` resolves
// relative paths against (mirrors the teacher's ModuleLoader.searchPaths).
func (c *Context) AddSearchPath(path string) { c.searchPaths = append(c.searchPaths, path) }

// SearchPaths returns the current list of import search roots.
func (c *Context) SearchPaths() []string { return append([]string(nil), c.searchPaths...) }

// RegisterModule registers a pre-built module descriptor (e.g. one of
// internal/stdlib's native modules) before Execute runs, the way queenBee
// is registered internally. Unlike LoadModule this never invokes the
// Loader: the caller already has the compiled (or, for a native module,
// hand-built) descriptor in hand.
func (c *Context) RegisterModule(mod *Module) { c.register(mod) }

// register appends mod to the registration order if it isn't already
// known, keyed by name.
func (c *Context) register(mod *Module) {
	if _, exists := c.byName[mod.Name]; exists {
		return
	}
	c.modules = append(c.modules, mod)
	c.byName[mod.Name] = mod
}

// GetModule returns an already-loaded module, or triggers loading via the
// attached Loader (spec.md §4.7's getModule).
func (c *Context) GetModule(name string) (*Module, error) {
	if mod, ok := c.byName[name]; ok {
		return mod, nil
	}
	return c.LoadModule(name)
}

// LoadModule compiles a single file via the attached Loader, registers
// the resulting module, and returns its descriptor (spec.md §4.7's
// loadModule). Import resolution for the loaded module's own imports is
// the Loader's responsibility: compile.Compiler resolves and compiles
// them itself and registers each one through RegisterModule (see
// Compiler.AttachContext), without calling back into GetModule/LoadModule.
func (c *Context) LoadModule(path string) (*Module, error) {
	if mod, ok := c.byName[path]; ok {
		return mod, nil
	}
	if c.loader == nil {
		return nil, errors.New(errors.InternalError, "context: no loader attached", errors.Location{})
	}
	mod, err := c.loader.Load(path)
	if err != nil {
		return nil, err
	}
	c.register(mod)
	return mod, nil
}

// InstantiateModules allocates a fresh self-variable array for every
// registered module that doesn't have one yet, in registration order,
// and records it in the descriptor-to-data-segment map (spec.md §4.7).
func (c *Context) InstantiateModules() {
	for _, mod := range c.modules {
		if _, done := c.dataSegs[mod]; done {
			continue
		}
		inst := interp.NewInstance(mod.Entry)
		c.dataSegs[mod] = inst.Self
		c.instances = append(c.instances, &ModuleInstance{Instance: inst, Module: mod})
	}
}

// Execute loads the named entry module, instantiates every module it
// transitively imports, runs each instance's top-level code in
// registration order, and on success returns queenBee's conventional
// result variable (spec.md §4.7, §6). On any error every already-run
// instance is finalized (collapsed) in reverse order before the error is
// returned, per spec.md §9's module init/fini invariant.
func (c *Context) Execute(entryPath string) (variant.Variant, error) {
	if _, err := c.LoadModule(entryPath); err != nil {
		return variant.Void(), err
	}
	c.InstantiateModules()

	ran := 0
	for _, inst := range c.instances {
		c.wireImports(inst)
		frame := &interp.Frame{Seg: inst.Module.Entry.Seg, Self: inst.Self, Outer: nil}
		if err := c.vm.Run(frame); err != nil {
			c.finalize(ran)
			return variant.Void(), err
		}
		ran++
	}

	return c.instances[0].Self[resultVarSlot], nil
}

// wireImports assigns each of inst's imported-module slots to the
// already-instantiated data segment of that import, reading the
// descriptor-to-data map the way spec.md §4.7 describes.
func (c *Context) wireImports(inst *ModuleInstance) {
	for name, slot := range inst.Module.Imports {
		imported, ok := c.byName[name]
		if !ok {
			continue
		}
		data, ok := c.dataSegs[imported]
		if !ok {
			continue
		}
		inst.Self[slot] = variant.NewRtObj(&interp.Instance{
			Self:      data,
			StateName: imported.Name,
			Layout:    imported.Entry.SelfLayout,
			Methods:   imported.Entry.Methods,
		})
	}
}

// finalize collapses the first n instances (the ones that actually ran)
// in reverse creation order, swallowing nothing but also raising nothing
// — collapse itself cannot fail (spec.md §9).
func (c *Context) finalize(n int) {
	for i := n - 1; i >= 0; i-- {
		c.instances[i].Collapse()
	}
}

// emptySegment returns a code segment containing a single `end`
// instruction — queenBee has no top-level statements of its own, only
// the self-variable slots native functions and the CLI populate.
func emptySegment() *bytecode.Segment {
	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpEnd)
	return seg
}
