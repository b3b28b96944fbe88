package codegen

import (
	"shannon/internal/bytecode"
	"shannon/internal/types"
	"shannon/internal/variant"
)

// LoadRangeConst pushes a range value built by the parser from two
// already-folded ordinal bounds (spec.md §8 scenario `const r = 10..20`).
// Ranges have no constructor opcode of their own — the parser folds both
// bounds via BeginConstExpr/FoldConstValue and hands the resulting
// variant.Range straight to the constant pool, exactly like any other
// compile-time-only literal.
func (g *Generator) LoadRangeConst(v variant.Variant, ord *types.Type) error {
	t, err := types.DeriveRange(nil, ord)
	if err != nil {
		return err
	}
	idx := g.Seg.AddConstant(v)
	off := g.Seg.EmitOp(bytecode.OpLoadConst)
	g.Seg.EmitU16(uint16(idx))
	g.push(t, off, bytecode.OpLoadConst)
	return nil
}
