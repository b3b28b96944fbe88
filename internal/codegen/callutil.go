package codegen

import "shannon/internal/bytecode"

// ReserveResultSlot emits the bare stack placeholder a call convention
// needs beneath its arguments (spec.md §4.6.1, and Call's own doc
// comment: "caller must have pushed a null result slot first"). Unlike
// every other loader this carries no simulated type: it isn't an
// expression value the parser is tracking, just the slot the callee's
// own result store will land in, so it is deliberately not pushed onto
// the simulation stack — Call/EnterCtor's pop count only accounts for
// the arguments (and, for methodCall, the callee object) that follow it.
func (g *Generator) ReserveResultSlot() {
	g.Seg.EmitOp(bytecode.OpLoadNull)
}
