package codegen

import (
	"shannon/internal/bytecode"
	"shannon/internal/errors"
	"shannon/internal/types"
)

// JumpIfFalse pops a bool condition and emits a conditional forward jump
// (if/while guards), returning the patch offset for ResolveJump.
func (g *Generator) JumpIfFalse() (int, error) {
	top, err := g.pop()
	if err != nil {
		return 0, err
	}
	if !types.IsBool(top.Type) {
		return 0, g.errorAt(errors.CompileError, "condition must be bool")
	}
	return g.JumpForward(bytecode.OpJumpIfFalse), nil
}

// Jump emits an unconditional forward jump (the else branch of an if, or
// a loop's back edge via JumpBack).
func (g *Generator) Jump() int {
	return g.JumpForward(bytecode.OpJump)
}

// JumpBack emits an unconditional jump to a previously recorded offset
// (a while loop's condition re-check), patched immediately since the
// target is already known.
func (g *Generator) JumpBack(target int) error {
	g.Seg.EmitOp(bytecode.OpJump)
	patchAt := g.Seg.Len()
	delta := target - (patchAt + 2)
	if delta < -32768 || delta > 32767 {
		return g.errorAt(errors.CompileError, "jump target out of 16-bit range")
	}
	g.Seg.EmitS16(int16(delta))
	return nil
}

// Mark returns the current emit offset, for a loop condition's re-check target.
func (g *Generator) Mark() int { return g.Seg.Len() }
