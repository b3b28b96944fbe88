// Package symbols implements Shannon's symbol tables and lexical scope
// chain (spec.md §4.3): definition/variable/alias symbols, deep_find
// lookup along the scope chain (and, for modules, into imports last), and
// the Duplicate/UnknownIdent errors raised at definition and use sites.
//
// Grounded on the teacher's linear-scan locals tracking in
// internal/compiler/stmt_compiler.go (`locals []string`), generalized
// into scope objects carrying typed Symbol entries per spec.md §4.3.
package symbols

import "fmt"

// VarKind is one of the four variable storage classes from spec.md §4.3.
type VarKind byte

const (
	VarSelf VarKind = iota
	VarLocal
	VarArg
	VarResult
)

func (k VarKind) String() string {
	switch k {
	case VarSelf:
		return "self"
	case VarLocal:
		return "local"
	case VarArg:
		return "arg"
	case VarResult:
		return "result"
	default:
		return "?"
	}
}

// SymbolKind distinguishes definitions (types/constants), variables, and
// aliases (import bindings) within a scope.
type SymbolKind byte

const (
	SymDefinition SymbolKind = iota
	SymVariable
	SymAlias
)

// Symbol is an entry in a Scope's name table. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Symbol struct {
	Name string
	Kind SymbolKind

	// SymVariable payload.
	VarKind VarKind
	VarID   int // local: frame-relative slot; self: instance slot;
	// arg/result: negative bp-relative offset (spec.md §4.6)
	VarType interface{} // *types.Type, kept as interface{} to avoid an import cycle
	Host    *Scope      // the scope (state) that owns this variable

	// SymDefinition payload: a constant value or a *types.Type, opaque here.
	DefValue interface{}

	// SymAlias payload: the module/scope this name was imported from.
	AliasTarget *Scope
}

// Duplicate is raised when a name is inserted twice into the same scope.
type Duplicate struct{ Name string }

func (e *Duplicate) Error() string { return fmt.Sprintf("duplicate identifier: %s", e.Name) }

// UnknownIdent is raised when deep_find fails at a use site.
type UnknownIdent struct{ Name string }

func (e *UnknownIdent) Error() string { return fmt.Sprintf("unknown identifier: %s", e.Name) }

// Scope is one link in the lexical chain: a block, function body, state,
// or module. Modules additionally consult Imports last in DeepFind
// (spec.md §4.3).
type Scope struct {
	Name    string
	Outer   *Scope
	IsState bool // true for function/state/module scopes (call-frame boundary)
	IsModule bool

	names       map[string]*Symbol
	definitions []*Symbol // ordered, for lifecycle/finalization purposes
	variables   []*Symbol

	Imports []*Scope // modules imported by this (module) scope
}

// NewScope creates a scope nested inside outer (nil for the root/module scope).
func NewScope(name string, outer *Scope) *Scope {
	return &Scope{Name: name, Outer: outer, names: make(map[string]*Symbol)}
}

// Define inserts sym into the scope, raising Duplicate on a repeat name.
func (s *Scope) Define(sym *Symbol) error {
	if _, exists := s.names[sym.Name]; exists {
		return &Duplicate{Name: sym.Name}
	}
	s.names[sym.Name] = sym
	switch sym.Kind {
	case SymDefinition, SymAlias:
		s.definitions = append(s.definitions, sym)
	case SymVariable:
		s.variables = append(s.variables, sym)
	}
	return nil
}

// Lookup finds a name defined directly in this scope, without walking outward.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	sym, ok := s.names[name]
	return sym, ok
}

// DeepFind walks outward along the lexical chain; a module scope
// additionally consults its imports last (spec.md §4.3).
func (s *Scope) DeepFind(name string) (*Symbol, error) {
	for sc := s; sc != nil; sc = sc.Outer {
		if sym, ok := sc.Lookup(name); ok {
			return sym, nil
		}
		if sc.IsModule {
			for _, imp := range sc.Imports {
				if sym, ok := imp.Lookup(name); ok {
					return sym, nil
				}
			}
		}
	}
	return nil, &UnknownIdent{Name: name}
}

// Definitions returns the scope's owned definitions/aliases in insertion order.
func (s *Scope) Definitions() []*Symbol { return s.definitions }

// Variables returns the scope's owned variables in insertion order.
func (s *Scope) Variables() []*Symbol { return s.variables }

// NextSelfID returns the slot a new self-variable in this (state) scope
// would occupy.
func (s *Scope) NextSelfID() int {
	n := 0
	for _, v := range s.variables {
		if v.VarKind == VarSelf {
			n++
		}
	}
	return n
}

// NextLocalID returns the slot a new local variable would occupy within
// the current call-frame scope (spec.md §4.3: "index into the call frame
// above the base pointer").
func (s *Scope) NextLocalID() int {
	n := 0
	for _, v := range s.variables {
		if v.VarKind == VarLocal {
			n++
		}
	}
	return n
}
