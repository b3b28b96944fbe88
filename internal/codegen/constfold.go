// Constant folding (spec.md §4.5.4): the parser may ask a Generator to
// evaluate an already-emitted tail of bytecode as a compile-time constant
// instead of leaving it in the segment to run at every execution.
//
// Grounded on original_source/src/compexpr.cpp's constant-expression
// evaluator, which scans a parsed expression with a miniature interpreter
// rather than a second recursive-descent evaluator. Here the mini
// interpreter is literal: the real interp.Interp, pointed at a throwaway
// copy of the bytecode the Generator already emitted for the expression.
package codegen

import (
	"shannon/internal/bytecode"
	"shannon/internal/errors"
	"shannon/internal/interp"
	"shannon/internal/types"
	"shannon/internal/variant"
)

// BeginConstExpr marks the current emit offset as the start of a
// constant-expression subexpression and switches the generator into
// compile-time mode, where LoadVariable rejects any runtime variable
// (spec.md §4.5.4). Pair with EndConstExpr once the parser has driven the
// expression's codegen to completion.
//
// Nested constant expressions (a const definition's initializer
// referencing an earlier const) are fine: ConstExpr stays true and
// BeginConstExpr/EndConstExpr simply nest around a narrower offset range,
// since LoadConst itself never consults ConstExpr.
func (g *Generator) BeginConstExpr() (mark int, wasConstExpr bool) {
	mark = g.Seg.Len()
	wasConstExpr = g.ConstExpr
	g.ConstExpr = true
	return mark, wasConstExpr
}

// EndConstExpr closes the subexpression opened at mark, evaluates it with
// a throwaway interpreter, discards its bytecode from the real segment,
// and returns the folded value as a new constant load of expectType (or
// the expression's own type if expectType is nil).
//
// This is runConstExpr from spec.md's compile-time collaborators list:
// "closes a throwaway code segment, instantiates a single-use interpreter
// stack sized to the segment's peak, runs it, and pops one variant as the
// result."
func (g *Generator) EndConstExpr(mark int, wasConstExpr bool, expectType *types.Type) error {
	g.ConstExpr = wasConstExpr

	top, err := g.pop()
	if err != nil {
		return err
	}

	resultType := top.Type
	if expectType != nil {
		if !types.CanAssignTo(top.Type, expectType) {
			return g.errorAt(errors.ConstExprError, "constant expression type does not match its declared type")
		}
		resultType = expectType
	}

	val, err := g.runConstExpr(mark)
	if err != nil {
		return err
	}

	// Discard the subexpression's bytecode; it's replaced below by a
	// single constant load of the folded value.
	g.Seg.CutTo(mark)

	idx := g.Seg.AddConstant(val)
	off := g.Seg.EmitOp(bytecode.OpLoadConst)
	g.Seg.EmitU16(uint16(idx))
	g.push(resultType, off, bytecode.OpLoadConst)
	return nil
}

// FoldConstValue closes the subexpression opened at mark like EndConstExpr,
// but returns the raw folded value instead of reloading it into the
// segment — for a `const` declaration, which needs the value itself for
// the symbol table and emits nothing at its own site (every later use
// loads it fresh via LoadConst).
func (g *Generator) FoldConstValue(mark int, wasConstExpr bool, expectType *types.Type) (variant.Variant, *types.Type, error) {
	g.ConstExpr = wasConstExpr

	top, err := g.pop()
	if err != nil {
		return variant.Void(), nil, err
	}

	resultType := top.Type
	if expectType != nil {
		if !types.CanAssignTo(top.Type, expectType) {
			return variant.Void(), nil, g.errorAt(errors.ConstExprError, "constant expression type does not match its declared type")
		}
		resultType = expectType
	}

	val, err := g.runConstExpr(mark)
	if err != nil {
		return variant.Void(), nil, err
	}
	g.Seg.CutTo(mark)
	return val, resultType, nil
}

// runConstExpr builds a standalone segment from the code emitted since
// mark, runs it on a fresh single-use interpreter, and returns the one
// value it leaves behind. The throwaway segment shares the real
// segment's constant pool (by reference) since constants are never
// rewritten once added, so any OpLoadConst inside the folded range still
// resolves correctly.
func (g *Generator) runConstExpr(mark int) (variant.Variant, error) {
	tail := make([]byte, g.Seg.Len()-mark)
	copy(tail, g.Seg.Code[mark:])

	seg := &bytecode.Segment{Code: tail, Constants: g.Seg.Constants}
	seg.EmitOp(bytecode.OpEnd)
	seg.MaxStack = g.Seg.MaxStack

	vm := interp.New(seg.MaxStack)
	frame := &interp.Frame{Seg: seg}
	if err := vm.Run(frame); err != nil {
		return variant.Void(), err
	}
	if vm.SP() == 0 {
		return variant.Void(), g.errorAt(errors.InternalError, "constant expression left no value on the stack")
	}
	return vm.Stack[vm.SP()-1], nil
}
