// Package stdlib implements Shannon's native extension surface (spec.md's
// queenBee native functions plus the opt-in db/net native modules): Go
// functions reachable from Shannon source through the ordinary
// childCall/methodCall opcodes (interp.Callable.Native), the same role
// the teacher's ModuleLoader.createMathModule/createStringModule play for
// looking up a stdlib function by name.
//
// Grounded on the teacher's internal/database and internal/network
// packages, trimmed from a security-scanning surface to a plain
// connect/query/send/receive surface matching spec.md's framing of
// built-ins as external collaborators that may block the caller but never
// the interpreter itself.
package stdlib

import (
	"shannon/internal/bytecode"
	"shannon/internal/context"
	"shannon/internal/interp"
)

// emptySegment returns a code segment containing a single `end`
// instruction: a native module's Entry is never actually run (its
// self-variable array holds no state of its own), only used as the
// descriptor InstantiateModules allocates a (zero-length) data segment
// from, mirroring context.go's own emptySegment for queenBee.
func emptySegment() *bytecode.Segment {
	seg := bytecode.NewSegment()
	seg.EmitOp(bytecode.OpEnd)
	return seg
}

// nativeModule builds a context.Module descriptor whose Entry.Methods
// dispatches to methods, keyed by name, the way a compiled state's
// Entry.Methods does for an ordinary methodCall (spec.md §4.6.1) — except
// each Callable here carries a Native function instead of a Seg.
func nativeModule(name string, methods map[string]*interp.Callable) *context.Module {
	return &context.Module{
		Name: name,
		Path: "<native:" + name + ">",
		Entry: &interp.Callable{
			Seg:        emptySegment(),
			Name:       name,
			SelfLayout: map[string]int{},
			Methods:    methods,
		},
		Imports: map[string]int{},
	}
}
