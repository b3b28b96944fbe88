package codegen

import (
	"shannon/internal/bytecode"
	"shannon/internal/errors"
	"shannon/internal/types"
)

// CutStorer implements spec.md §4.5.1's l-value rewrite protocol: it
// rewrites the designator chain that produced the current sim-stack top
// into its storer form, cuts those bytes out of the segment, and returns
// them so the caller can compile the RHS expression and then re-append
// the cut bytes — making assignment lexically right-to-left at runtime.
//
// No teacher equivalent exists: the teacher's VisitAssignExpr always
// compiles value-then-store against a flat global/local name, never
// rewriting an already-emitted loader. This is grounded directly on
// spec.md §4.5.1 and original_source/src/vmcodegen.cpp's
// CodeGen::lvalue()/assignment() pair.
func (g *Generator) CutStorer() ([]byte, *types.Type, error) {
	top, err := g.pop()
	if err != nil {
		return nil, nil, err
	}

	if bytecode.IsGroundedLoader(top.LoaderOp) {
		storer, ok := bytecode.StorerFor(top.LoaderOp)
		if !ok {
			return nil, nil, g.errorAt(errors.InternalError, "grounded loader has no storer form")
		}
		if err := g.Seg.RewriteOp(top.LoaderOffset, storer); err != nil {
			return nil, nil, g.errorAt(errors.InternalError, err.Error())
		}
		cut := cloneTail(g.Seg.Code, top.LoaderOffset)
		g.Seg.CutTo(top.LoaderOffset)
		return cut, top.Type, nil
	}

	// Derived designator (container-element access): rewrite the
	// previous loader into its LEA form, and the last op into its
	// compound storer. Only the storer is cut: the LEA and the index
	// stay ahead of the RHS, so the storer pops (object, index, value).
	if top.PrevOp == 0 && top.PrevOffset == 0 {
		return nil, nil, g.errorAt(errors.CompileError, "not a valid assignment target")
	}
	lea, ok := bytecode.LeaFor(top.PrevOp)
	if !ok {
		return nil, nil, g.errorAt(errors.CompileError, "not a valid assignment target")
	}
	if err := g.Seg.RewriteOp(top.PrevOffset, lea); err != nil {
		return nil, nil, g.errorAt(errors.InternalError, err.Error())
	}
	compoundStorer, ok := compoundStorerFor(top.LoaderOp)
	if !ok {
		return nil, nil, g.errorAt(errors.CompileError, "container element is not assignable")
	}
	if err := g.Seg.RewriteOp(top.LoaderOffset, compoundStorer); err != nil {
		return nil, nil, g.errorAt(errors.InternalError, err.Error())
	}
	cut := cloneTail(g.Seg.Code, top.LoaderOffset)
	g.Seg.CutTo(top.LoaderOffset)
	return cut, top.Type, nil
}

// Assign compiles an assignment: rhs is a callback that emits the RHS
// expression (and must leave exactly one value of a type implicitly
// castable to lvalType on the sim stack); cutBytes are the storer bytes
// previously returned by CutStorer.
func (g *Generator) Assign(cutBytes []byte, lvalType *types.Type, rhs func() error) error {
	if err := rhs(); err != nil {
		return err
	}
	if err := g.TryImplicitCast(lvalType); err != nil {
		return err
	}
	if _, err := g.pop(); err != nil {
		return err
	}
	g.Seg.Code = append(g.Seg.Code, cutBytes...)
	return nil
}

func cloneTail(code []byte, from int) []byte {
	out := make([]byte, len(code)-from)
	copy(out, code[from:])
	return out
}

func compoundStorerFor(derivedLoader bytecode.OpCode) (bytecode.OpCode, bool) {
	switch derivedLoader {
	case bytecode.OpStrElem:
		return bytecode.OpStoreStrElem, true
	case bytecode.OpVecElem:
		return bytecode.OpStoreVecElem, true
	case bytecode.OpDictElem:
		return bytecode.OpStoreDictElem, true
	case bytecode.OpByteDictElem:
		return bytecode.OpStoreByteDictElem, true
	default:
		return 0, false
	}
}
