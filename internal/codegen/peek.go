package codegen

import (
	"shannon/internal/bytecode"
	"shannon/internal/types"
)

// PeekType returns the static type of the current top-of-stack value
// without consuming it, letting the parser choose between opcode
// families that share a source-level operator (e.g. `in` against a
// range vs. a container).
func (g *Generator) PeekType() (*types.Type, error) {
	top, err := g.peek()
	if err != nil {
		return nil, err
	}
	return top.Type, nil
}

// PeekIsGroundedDesignator reports whether the current top-of-stack value
// was produced by a grounded loader (a plain variable, member, or deref —
// spec.md §4.5.1) rather than a derived one (a container element) or a
// computed value. Compound assignment (+=, -=, *=, /=) only supports
// grounded designators: see the parser's assignStmt doc comment for why a
// derived designator can't be safely re-emitted after an intervening
// arithmetic op.
func (g *Generator) PeekIsGroundedDesignator() (bool, error) {
	top, err := g.peek()
	if err != nil {
		return false, err
	}
	return bytecode.IsGroundedLoader(top.LoaderOp), nil
}
