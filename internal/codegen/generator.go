// Package codegen implements Shannon's single-pass, parser-driven code
// generator (spec.md §4.5): the simulation stack of (type, loader-offset)
// items, implicit/explicit casts, short-circuit jumps, designator
// rewriting for assignment, and constant folding via mini interpreter
// runs.
//
// Grounded on the teacher's internal/compiler/compiler.go and
// stmt_compiler.go: the manual jump-patch style (record
// len(chunk.Code), write a zero placeholder, patch it once the target is
// known) is kept verbatim as JumpForward/ResolveJump; the per-function
// sub-compiler-with-parent pattern (stmt_compiler.go's subCompiler.parent
// = c inside VisitLambdaExpr) is generalized into nested Generators over
// symbols.Scope chains with an Outer pointer for closures over self.
package codegen

import (
	"fmt"

	"shannon/internal/bytecode"
	"shannon/internal/errors"
	"shannon/internal/interp"
	"shannon/internal/symbols"
	"shannon/internal/types"
)

// simItem is one entry of the simulation stack: the static type the
// interpreter's value stack will hold at this point, plus the emit
// offset of the primary loader that produced it (spec.md §4.5).
type simItem struct {
	Type         *types.Type
	LoaderOffset int
	LoaderOp     bytecode.OpCode

	// PrevOffset/PrevOp record the *previous* loader in a derived
	// designator chain (spec.md §9: "preserve the emit-offset of the
	// most recent primary loader per sim-stack item — not only the
	// top"), used to rewrite it into its LEA form at assignment time.
	// Zero value (PrevOp == OpEnd) means this item is not part of a
	// derived chain.
	PrevOffset int
	PrevOp     bytecode.OpCode
}

// Generator emits bytecode into a single code segment on behalf of one
// state's body. Nested states (functions, lambdas) get their own
// Generator with Outer pointing at the enclosing one, mirroring the
// teacher's subCompiler.parent chain.
type Generator struct {
	Seg   *bytecode.Segment
	Scope *symbols.Scope
	Outer *Generator

	sim []simItem

	// ConstExpr is true while generating a constant-expression segment
	// (spec.md §4.5.4): runtime variable loads are rejected.
	ConstExpr bool

	curLine int
	file    string
}

// New returns a Generator emitting into a fresh segment for the given
// scope.
func New(scope *symbols.Scope, file string) *Generator {
	return &Generator{Seg: bytecode.NewSegment(), Scope: scope, file: file}
}

// NewNested returns a Generator for a nested state/function, sharing the
// file name and chaining Outer for self-var lookups across closures.
func (g *Generator) NewNested(scope *symbols.Scope) *Generator {
	return &Generator{Seg: bytecode.NewSegment(), Scope: scope, Outer: g, file: g.file}
}

func (g *Generator) errorAt(kind errors.Kind, msg string) error {
	return errors.New(kind, msg, errors.Location{File: g.file, Line: g.curLine})
}

// SetLine records the active source line, emitting an OpLineNum whenever
// it changes so runtime errors and `dump` can report it.
func (g *Generator) SetLine(line int) {
	if line == g.curLine {
		return
	}
	g.curLine = line
	off := g.Seg.EmitOp(bytecode.OpLineNum)
	g.Seg.EmitU16(uint16(line))
	g.Seg.SetLine(off, line)
}

// --- simulation stack bookkeeping ---------------------------------------

func (g *Generator) push(t *types.Type, loaderOffset int, op bytecode.OpCode) {
	g.sim = append(g.sim, simItem{Type: t, LoaderOffset: loaderOffset, LoaderOp: op})
	g.Seg.NoteStackDepth(len(g.sim))
}

func (g *Generator) pop() (simItem, error) {
	if len(g.sim) == 0 {
		return simItem{}, g.errorAt(errors.InternalError, "simulation stack underflow")
	}
	top := g.sim[len(g.sim)-1]
	g.sim = g.sim[:len(g.sim)-1]
	return top, nil
}

func (g *Generator) peek() (*simItem, error) {
	if len(g.sim) == 0 {
		return nil, g.errorAt(errors.InternalError, "simulation stack is empty")
	}
	return &g.sim[len(g.sim)-1], nil
}

// SimDepth returns the current simulation stack depth, used by statement
// boundaries to assert it equals the declared-locals count (spec.md §8).
func (g *Generator) SimDepth() int { return len(g.sim) }

// UndoLastLoad truncates the segment back to the top sim item's loader
// offset and pops it, restoring both to their state before that load
// (spec.md §9's undoLastLoad, used by constant folding and by discarding
// an unused designator chain).
func (g *Generator) UndoLastLoad() error {
	top, err := g.pop()
	if err != nil {
		return err
	}
	g.Seg.CutTo(top.LoaderOffset)
	return nil
}

// --- group 2: const loaders ----------------------------------------------

// LoadConst pushes a compile-time constant definition's value.
func (g *Generator) LoadConst(sym *symbols.Symbol) error {
	if sym.Kind != symbols.SymDefinition {
		return g.errorAt(errors.CompileError, fmt.Sprintf("%s is not a constant", sym.Name))
	}
	idx := g.Seg.AddConstant(sym.DefValue)
	off := g.Seg.EmitOp(bytecode.OpLoadConst)
	g.Seg.EmitU16(uint16(idx))
	t, _ := sym.VarType.(*types.Type)
	g.push(t, off, bytecode.OpLoadConst)
	return nil
}

// LoadOrd pushes an integer ordinal literal, using the fast-path opcodes
// for the common small values.
func (g *Generator) LoadOrd(v int64, t *types.Type) {
	var off int
	switch v {
	case 0:
		off = g.Seg.EmitOp(bytecode.OpLoad0)
	case 1:
		off = g.Seg.EmitOp(bytecode.OpLoad1)
	default:
		if v >= 0 && v <= 255 {
			off = g.Seg.EmitOp(bytecode.OpLoadByte)
			g.Seg.Emit8(byte(v))
		} else {
			idx := g.Seg.AddConstant(v)
			off = g.Seg.EmitOp(bytecode.OpLoadOrd)
			g.Seg.EmitU16(uint16(idx))
		}
	}
	g.push(t, off, bytecode.OpLoadOrd)
}

// LoadStr pushes a string literal.
func (g *Generator) LoadStr(b []byte) {
	idx := g.Seg.AddConstant(b)
	off := g.Seg.EmitOp(bytecode.OpLoadStr)
	g.Seg.EmitU16(uint16(idx))
	g.push(derivedStrType, off, bytecode.OpLoadStr)
}

// LoadNull pushes the nullcont variant.
func (g *Generator) LoadNull() {
	off := g.Seg.EmitOp(bytecode.OpLoadNull)
	g.push(types.NullCont, off, bytecode.OpLoadNull)
}

var derivedStrType = types.DeriveContainer(nil, nil, types.Char)

// --- group 3/1: symbol & designator loaders -------------------------------

// LoadSymbol resolves name via deep_find and loads it (variable or
// constant). Modules consult their imports last (spec.md §4.3).
func (g *Generator) LoadSymbol(name string) error {
	sym, err := g.Scope.DeepFind(name)
	if err != nil {
		return g.errorAt(errors.CompileError, err.Error())
	}
	switch sym.Kind {
	case symbols.SymDefinition:
		return g.LoadConst(sym)
	case symbols.SymVariable:
		return g.LoadVariable(sym)
	default:
		return g.errorAt(errors.CompileError, fmt.Sprintf("%s cannot be loaded directly", name))
	}
}

// LoadVariable emits the grounded loader for an already-resolved variable
// symbol (spec.md §4.6 group 3).
func (g *Generator) LoadVariable(sym *symbols.Symbol) error {
	if g.ConstExpr {
		return g.errorAt(errors.ConstExprError, fmt.Sprintf("%s is not a compile-time constant", sym.Name))
	}
	t, _ := sym.VarType.(*types.Type)
	var off int
	var op bytecode.OpCode
	switch sym.VarKind {
	case symbols.VarSelf:
		op = bytecode.OpLoadSelfVar
		off = g.Seg.EmitOp(op)
		g.Seg.Emit8(byte(sym.VarID))
	default: // local, arg, result: all bp-relative
		op = bytecode.OpLoadStkVar
		off = g.Seg.EmitOp(op)
		g.Seg.Emit8(byte(int8(sym.VarID)))
	}
	g.push(t, off, op)
	return nil
}

// LoadThis pushes the enclosing state instance itself, for method calls
// and member chains rooted at `self`. Modeled as loadSelfVar with the
// reserved "whole instance" slot the interpreter recognizes.
const SelfInstanceSlot = 0xFF

func (g *Generator) LoadThis(stateType *types.Type) {
	off := g.Seg.EmitOp(bytecode.OpLoadSelfVar)
	g.Seg.Emit8(SelfInstanceSlot)
	g.push(stateType, off, bytecode.OpLoadSelfVar)
}

// LoadMember pops an object (state/module instance) and pushes one of
// its members by name.
func (g *Generator) LoadMember(name string) error {
	obj, err := g.pop()
	if err != nil {
		return err
	}
	if !types.IsAnyState(obj.Type) {
		return g.errorAt(errors.CompileError, fmt.Sprintf("%s is not a state or module", name))
	}
	scope, _ := obj.Type.Owner.(*symbols.Scope)
	if scope == nil {
		return g.errorAt(errors.InternalError, "state type has no owning scope")
	}
	sym, ok := scope.Lookup(name)
	if !ok {
		return g.errorAt(errors.CompileError, fmt.Sprintf("unknown member %s", name))
	}
	idx := g.Seg.AddConstant(name)
	off := g.Seg.EmitOp(bytecode.OpLoadMember)
	g.Seg.EmitU16(uint16(idx))
	t, _ := sym.VarType.(*types.Type)
	g.push(t, off, bytecode.OpLoadMember)
	return nil
}

// LoadContainerElem pops a container and an index, pushing the element
// (spec.md §4.6 group 3's container-element loaders).
func (g *Generator) LoadContainerElem() error {
	_, err := g.pop() // index
	if err != nil {
		return err
	}
	cont, err := g.pop()
	if err != nil {
		return err
	}
	var op bytecode.OpCode
	var elemType *types.Type
	switch {
	case types.IsByteVec(cont.Type):
		op = bytecode.OpStrElem
		elemType = types.Char
	case types.IsAnyVec(cont.Type):
		op = bytecode.OpVecElem
		elemType = cont.Type.Elem
	case types.IsByteDict(cont.Type):
		op = bytecode.OpByteDictElem
		elemType = cont.Type.Elem
	case types.IsAnyDict(cont.Type):
		op = bytecode.OpDictElem
		elemType = cont.Type.Elem
	default:
		return g.errorAt(errors.CompileError, "indexed type is not a container")
	}
	off := g.Seg.EmitOp(op)
	g.sim = append(g.sim, simItem{
		Type: elemType, LoaderOffset: off, LoaderOp: op,
		PrevOffset: cont.LoaderOffset, PrevOp: cont.LoaderOp,
	})
	g.Seg.NoteStackDepth(len(g.sim))
	return nil
}

// LoadSubvec pops container, from, to and pushes a sliced container of
// the same type (void `to` meaning "to end" is the parser's job to
// substitute with NullCont before calling this).
func (g *Generator) LoadSubvec() error {
	if _, err := g.pop(); err != nil { // to
		return err
	}
	if _, err := g.pop(); err != nil { // from
		return err
	}
	cont, err := g.pop()
	if err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpSubvec)
	g.push(cont.Type, off, bytecode.OpSubvec)
	return nil
}

// Length pops a container and pushes its size as an int.
func (g *Generator) Length() error {
	if _, err := g.pop(); err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpLength)
	g.push(types.Int, off, bytecode.OpLength)
	return nil
}

// Discard discards the current top-of-sim-stack value (an expression used as
// a statement).
func (g *Generator) Discard() error {
	if _, err := g.pop(); err != nil {
		return err
	}
	g.Seg.EmitOp(bytecode.OpPop)
	return nil
}

// Dup duplicates the top value, used where the parser needs to re-derive
// an already-loaded designator's storer form.
func (g *Generator) Dup() error {
	top, err := g.peek()
	if err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpDup)
	g.push(top.Type, off, bytecode.OpDup)
	return nil
}

// --- construction & concatenation (group 6/7/8) ---------------------------

// ElemToVec pops a single element and pushes a one-element vec
// (spec.md §4.5.2's auto-wrap).
func (g *Generator) ElemToVec() error {
	el, err := g.pop()
	if err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpElemToVec)
	g.push(types.DeriveVec(nil, el.Type), off, bytecode.OpElemToVec)
	return nil
}

// ElemToStr pops a char and pushes a one-char string (chr_to_str).
func (g *Generator) ElemToStr() error {
	if _, err := g.pop(); err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpElemToStr)
	g.push(derivedStrType, off, bytecode.OpElemToStr)
	return nil
}

// ElemCat pops a container and an element, pushing the container with the
// element appended (vec/str append).
func (g *Generator) ElemCat() error {
	if _, err := g.pop(); err != nil { // elem
		return err
	}
	cont, err := g.pop()
	if err != nil {
		return err
	}
	// Wrap the element into a one-element container, then concatenate.
	var wrap, op bytecode.OpCode
	if types.IsByteVec(cont.Type) {
		wrap, op = bytecode.OpElemToStr, bytecode.OpConcatStr
	} else {
		wrap, op = bytecode.OpElemToVec, bytecode.OpConcatVec
	}
	g.Seg.EmitOp(wrap)
	off := g.Seg.EmitOp(op)
	g.push(cont.Type, off, op)
	return nil
}

// Cat concatenates two containers of the same kind (spec.md §8 scenario
// 1: `'ab' | 'cd' | 'ef'`).
func (g *Generator) Cat() error {
	rhs, err := g.pop()
	if err != nil {
		return err
	}
	lhs, err := g.pop()
	if err != nil {
		return err
	}
	var op bytecode.OpCode
	if types.IsByteVec(lhs.Type) {
		op = bytecode.OpConcatStr
	} else if types.IsAnyVec(lhs.Type) {
		op = bytecode.OpConcatVec
	} else {
		return g.errorAt(errors.CompileError, "cat requires str or vec operands")
	}
	if !types.IdenticalTo(lhs.Type, rhs.Type) {
		return g.errorAt(errors.CompileError, "cat operands must be the same container type")
	}
	off := g.Seg.EmitOp(op)
	g.push(lhs.Type, off, op)
	return nil
}

// ElemToSet pops an element and pushes a singleton set.
func (g *Generator) ElemToSet() error {
	el, err := g.pop()
	if err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpElemToSet)
	g.push(types.DeriveSet(nil, el.Type), off, bytecode.OpElemToSet)
	return nil
}

// RangeToSet pops a range value and pushes a set of all its members.
func (g *Generator) RangeToSet(elemType *types.Type) error {
	if _, err := g.pop(); err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpRangeToSet)
	g.push(types.DeriveSet(nil, elemType), off, bytecode.OpRangeToSet)
	return nil
}

// SetAddElem pops a set and an element, pushing the set with it inserted.
func (g *Generator) SetAddElem() error {
	if _, err := g.pop(); err != nil { // elem
		return err
	}
	set, err := g.pop()
	if err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpSetAddElem)
	g.push(set.Type, off, bytecode.OpSetAddElem)
	return nil
}

// SetAddRange pops a set and a range, pushing the set with the range's
// members inserted.
func (g *Generator) SetAddRange() error {
	if _, err := g.pop(); err != nil { // range
		return err
	}
	set, err := g.pop()
	if err != nil {
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpSetAddRange)
	g.push(set.Type, off, bytecode.OpSetAddRange)
	return nil
}

// PairToDict pops a key and value, pushing a single-pair dict (byte-dict
// when the derived container type's index fits 0..255, spec.md §4.2).
func (g *Generator) PairToDict(keyType, valType *types.Type) error {
	if _, err := g.pop(); err != nil { // value
		return err
	}
	if _, err := g.pop(); err != nil { // key
		return err
	}
	derived := types.DeriveContainer(nil, keyType, valType)
	op := bytecode.OpPairToDict
	if types.IsByteDict(derived) {
		op = bytecode.OpPairToByteDict
	}
	off := g.Seg.EmitOp(op)
	g.push(derived, off, op)
	return nil
}

// DictAddPair pops a dict, key, and value, pushing the dict with the pair
// inserted.
func (g *Generator) DictAddPair() error {
	if _, err := g.pop(); err != nil { // value
		return err
	}
	if _, err := g.pop(); err != nil { // key
		return err
	}
	d, err := g.pop()
	if err != nil {
		return err
	}
	op := bytecode.OpDictAddPair
	if types.IsByteDict(d.Type) {
		op = bytecode.OpByteDictAddPair
	}
	off := g.Seg.EmitOp(op)
	g.push(d.Type, off, op)
	return nil
}

// --- membership & bounds (group 7) ---------------------------------------

// InCont pops a container (top) and the element beneath it, pushing a
// bool.
func (g *Generator) InCont() error {
	if _, err := g.pop(); err != nil { // container
		return err
	}
	if _, err := g.pop(); err != nil { // elem
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpInCont)
	g.push(types.Bool, off, bytecode.OpInCont)
	return nil
}

// InRange pops a range (top) and the ordinal beneath it, pushing a bool
// (spec.md §8 scenario 3: `15 in r, 25 in r`).
func (g *Generator) InRange() error {
	if _, err := g.pop(); err != nil { // range
		return err
	}
	if _, err := g.pop(); err != nil { // ord
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpInRange)
	g.push(types.Bool, off, bytecode.OpInRange)
	return nil
}

// InBounds pops a container and an index, pushing a bool.
func (g *Generator) InBounds() error {
	if _, err := g.pop(); err != nil { // index
		return err
	}
	if _, err := g.pop(); err != nil { // container
		return err
	}
	off := g.Seg.EmitOp(bytecode.OpInBounds)
	g.push(types.Bool, off, bytecode.OpInBounds)
	return nil
}

// --- arithmetic & comparison (group 9/10) ---------------------------------

// ArithmOp names the source-level operator tokens arithmBinary/Unary
// accept.
type ArithmOp byte

const (
	OpAddTok ArithmOp = iota
	OpSubTok
	OpMulTok
	OpDivTok
	OpModTok
)

// ArithmBinary requires both operands to be integer; result is the
// common type if identical, else the default int (spec.md §4.5.3).
func (g *Generator) ArithmBinary(tok ArithmOp) error {
	rhs, err := g.pop()
	if err != nil {
		return err
	}
	lhs, err := g.pop()
	if err != nil {
		return err
	}
	if !types.IsInt(lhs.Type) || !types.IsInt(rhs.Type) {
		return g.errorAt(errors.CompileError, "arithmetic requires integer operands")
	}
	var op bytecode.OpCode
	switch tok {
	case OpAddTok:
		op = bytecode.OpAdd
	case OpSubTok:
		op = bytecode.OpSub
	case OpMulTok:
		op = bytecode.OpMul
	case OpDivTok:
		op = bytecode.OpDiv
	case OpModTok:
		op = bytecode.OpMod
	}
	resultType := types.Int
	if types.IdenticalTo(lhs.Type, rhs.Type) {
		resultType = lhs.Type
	}
	off := g.Seg.EmitOp(op)
	g.push(resultType, off, op)
	return nil
}

// ArithmUnary negates the top integer value in place.
func (g *Generator) ArithmUnary() error {
	v, err := g.pop()
	if err != nil {
		return err
	}
	if !types.IsInt(v.Type) {
		return g.errorAt(errors.CompileError, "unary minus requires an integer operand")
	}
	off := g.Seg.EmitOp(bytecode.OpNeg)
	g.push(v.Type, off, bytecode.OpNeg)
	return nil
}

// CmpTok is a source-level relational operator.
type CmpTok byte

const (
	CmpEq CmpTok = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Cmp chooses opCmpOrd/opCmpStr/opCmpVar based on operand kinds, then
// emits the comparison-family op that consumes its {-1,0,1} (or {0,1})
// result and leaves a bool (spec.md §4.6 group 10).
func (g *Generator) Cmp(tok CmpTok) error {
	rhs, err := g.pop()
	if err != nil {
		return err
	}
	lhs, err := g.pop()
	if err != nil {
		return err
	}
	var cmpOp bytecode.OpCode
	switch {
	case types.IsAnyOrd(lhs.Type) && types.IsAnyOrd(rhs.Type):
		cmpOp = bytecode.OpCmpOrd
	case types.IsByteVec(lhs.Type) && types.IsByteVec(rhs.Type):
		cmpOp = bytecode.OpCmpStr
	default:
		if tok != CmpEq && tok != CmpNe {
			return g.errorAt(errors.CompileError, "only == and != are permitted for variant-compared values")
		}
		cmpOp = bytecode.OpCmpVar
	}
	g.Seg.EmitOp(cmpOp)
	var famOp bytecode.OpCode
	switch tok {
	case CmpEq:
		famOp = bytecode.OpEqual
	case CmpNe:
		famOp = bytecode.OpNotEq
	case CmpLt:
		famOp = bytecode.OpLessThan
	case CmpLe:
		famOp = bytecode.OpLessEq
	case CmpGt:
		famOp = bytecode.OpGreaterThan
	case CmpGe:
		famOp = bytecode.OpGreaterEq
	}
	off := g.Seg.EmitOp(famOp)
	g.push(types.Bool, off, famOp)
	return nil
}

// CaseCmp compares the switch subject against a case-label value for
// equality, consuming both and pushing a bool (the switch subject is
// re-loaded by the parser for each arm).
func (g *Generator) CaseCmp() error {
	return g.Cmp(CmpEq)
}

// Not negates a bool in place.
func (g *Generator) Not() error {
	v, err := g.pop()
	if err != nil {
		return err
	}
	if !types.IsBool(v.Type) {
		return g.errorAt(errors.CompileError, "not requires a bool operand")
	}
	off := g.Seg.EmitOp(bytecode.OpNot)
	g.push(types.Bool, off, bytecode.OpNot)
	return nil
}

// --- jumps (group 11, spec.md §4.5.5) -------------------------------------

// JumpForward emits op plus a two-byte placeholder and returns its
// offset, grounded on the teacher's manual jump-patch style
// (stmt_compiler.go: `len(c.Chunk.Code)` recorded, zero bytes written,
// patched later).
func (g *Generator) JumpForward(op bytecode.OpCode) int {
	g.Seg.EmitOp(op)
	patchAt := g.Seg.Len()
	g.Seg.EmitS16(0)
	return patchAt
}

// BoolJumpForward is JumpForward for opJumpAnd/opJumpOr, which peek
// (rather than pop) the condition: they leave it on the sim stack, same
// type, since the generator must still see a bool on top after the jump
// either way.
func (g *Generator) BoolJumpForward(op bytecode.OpCode) (int, error) {
	top, err := g.peek()
	if err != nil {
		return 0, err
	}
	if !types.IsBool(top.Type) {
		return 0, g.errorAt(errors.CompileError, "and/or require bool operands")
	}
	return g.JumpForward(op), nil
}

// ResolveJump patches the placeholder at patchAt with the signed offset
// from end-of-instruction to the current cursor; a 16-bit overflow is a
// compile error (spec.md §4.5.5).
func (g *Generator) ResolveJump(patchAt int) error {
	target := g.Seg.Len()
	delta := target - (patchAt + 2)
	if delta < -32768 || delta > 32767 {
		return g.errorAt(errors.CompileError, "jump target out of 16-bit range")
	}
	g.Seg.PatchU16(patchAt, uint16(int16(delta)))
	return nil
}

// --- references (group 2/4/5, spec.md §4.6.2) -----------------------------

// MkRef consumes a variant on the stack and replaces it with a reference
// to the exact stack cell. Per spec.md §9's open question, Shannon
// forbids mkRef on a designator whose storage may be popped before the
// reference is used, unless the referent is a self-variable or a heap
// object reached through a grounded member/deref chain — those outlive
// the current call frame. Container elements (vec/dict/str) are
// excluded: referencing one would need the same LEA rewrite the
// assignment protocol performs, and Shannon does not special-case that
// for the rare mkRef-of-an-element combination.
func (g *Generator) MkRef() error {
	top, err := g.peek()
	if err != nil {
		return err
	}
	switch top.LoaderOp {
	case bytecode.OpLoadSelfVar, bytecode.OpLoadMember, bytecode.OpDeref:
		// grounded in storage that outlives this frame: safe to reference.
	default:
		return g.errorAt(errors.CompileError, "cannot take a reference to a temporary, local stack value, or container element")
	}
	v, err := g.pop()
	if err != nil {
		return err
	}
	// Rewrite the designator's own loader into its LEA form, exactly as
	// an assignment would, so the interpreter has an address to build the
	// reference from rather than just the loaded copy (spec.md §4.5.1).
	lea, ok := bytecode.LeaFor(v.LoaderOp)
	if !ok {
		return g.errorAt(errors.InternalError, "grounded loader has no LEA form")
	}
	if err := g.Seg.RewriteOp(v.LoaderOffset, lea); err != nil {
		return g.errorAt(errors.InternalError, err.Error())
	}
	off := g.Seg.EmitOp(bytecode.OpMkRef)
	g.push(types.DeriveReference(nil, v.Type), off, bytecode.OpMkRef)
	return nil
}

// Deref copies the referent back onto the stack.
func (g *Generator) Deref() error {
	ref, err := g.pop()
	if err != nil {
		return err
	}
	if !types.IsReference(ref.Type) {
		return g.errorAt(errors.CompileError, "deref requires a reference")
	}
	off := g.Seg.EmitOp(bytecode.OpDeref)
	g.push(ref.Type.Target, off, bytecode.OpDeref)
	return nil
}

// --- casts (spec.md §4.5.2) ------------------------------------------------

// TryImplicitCast attempts to make the top-of-stack value assignable to
// `to`, rewriting or emitting opcodes as needed; it returns an error if
// no implicit conversion exists.
func (g *Generator) TryImplicitCast(to *types.Type) error {
	top, err := g.peek()
	if err != nil {
		return err
	}
	switch {
	case types.IdenticalTo(top.Type, to):
		return nil
	case types.IsVariant(to):
		top.Type = to
		return nil
	case types.CanAssignTo(top.Type, to):
		top.Type = to
		return nil
	case types.IsAnyVec(to) && to.Elem != nil && types.IdenticalTo(top.Type, to.Elem):
		return g.ElemToVec()
	case types.IsNullCont(top.Type) && types.IsByteDict(to):
		// types.KindDict is shared between dict and byte-dict, so the
		// single-byte kind operand OpLoadEmptyVar reads can't tell them
		// apart -- use the dedicated no-operand opcode instead.
		if err := g.UndoLastLoad(); err != nil {
			return err
		}
		off := g.Seg.EmitOp(bytecode.OpLoadEmptyByteDict)
		g.push(to, off, bytecode.OpLoadEmptyByteDict)
		return nil
	case types.IsNullCont(top.Type) && types.IsAnyCont(to):
		if err := g.UndoLastLoad(); err != nil {
			return err
		}
		off := g.Seg.EmitOp(bytecode.OpLoadEmptyVar)
		g.Seg.Emit8(byte(to.Kind))
		g.push(to, off, bytecode.OpLoadEmptyVar)
		return nil
	default:
		return g.errorAt(errors.CompileError, fmt.Sprintf("type mismatch: cannot convert %s to %s", top.Type.Name, to.Name))
	}
}

// ExplicitCast additionally allows ordinal-to-ordinal retag and
// variant-to-concrete conversion checked at runtime via opCast.
func (g *Generator) ExplicitCast(to *types.Type) error {
	top, err := g.peek()
	if err != nil {
		return err
	}
	if types.IsAnyOrd(top.Type) && types.IsAnyOrd(to) {
		top.Type = to
		return nil
	}
	if types.IsVariant(top.Type) {
		v, err := g.pop()
		if err != nil {
			return err
		}
		_ = v
		idx := g.Seg.AddConstant(to)
		off := g.Seg.EmitOp(bytecode.OpCast)
		g.Seg.EmitU16(uint16(idx))
		g.push(to, off, bytecode.OpCast)
		return nil
	}
	return g.TryImplicitCast(to)
}

// IsType pops a value and pushes whether it matches typ (the runtime
// `is`/reflection check, spec.md SPEC_FULL supplement from
// original_source/).
func (g *Generator) IsType(typ *types.Type) error {
	if _, err := g.pop(); err != nil {
		return err
	}
	idx := g.Seg.AddConstant(typ)
	off := g.Seg.EmitOp(bytecode.OpIsType)
	g.Seg.EmitU16(uint16(idx))
	g.push(types.Bool, off, bytecode.OpIsType)
	return nil
}

// --- variable lifecycle (group 4) -----------------------------------------

// InitLocalVar pops the initializer value and stores it into a freshly
// declared local's stack slot.
func (g *Generator) InitLocalVar(sym *symbols.Symbol) error {
	if _, err := g.pop(); err != nil {
		return err
	}
	g.Seg.EmitOp(bytecode.OpInitStkVar)
	g.Seg.Emit8(byte(int8(sym.VarID)))
	return nil
}

// InitSelfVar pops the initializer value and stores it into a
// self-variable slot (constructor use).
func (g *Generator) InitSelfVar(sym *symbols.Symbol) error {
	if _, err := g.pop(); err != nil {
		return err
	}
	g.Seg.EmitOp(bytecode.OpInitSelfVar)
	g.Seg.Emit8(byte(sym.VarID))
	return nil
}

// DeinitLocalVar marks the end of a local's scope; Shannon's containers
// are reference-counted so no opcode is emitted here (the value was
// already consumed or will be popped by the enclosing block's cleanup) —
// kept as a named operation to mirror the parser's call sequence from
// spec.md §6 and as the hook a future arena allocator would use.
func (g *Generator) DeinitLocalVar(sym *symbols.Symbol) {}

// --- calls (spec.md §4.6.1) ------------------------------------------------

// CallKind selects which of the three call conventions to emit.
type CallKind byte

const (
	ChildCall CallKind = iota
	SiblingCall
	MethodCall
)

// Call emits the call opcode matching kind, with argc arguments already
// pushed left-to-right (caller must have pushed a null result slot
// first, and for methodCall, the callee object right after it). For
// childCall/siblingCall the callee's code is statically known, so callee
// is interned directly; for methodCall the actual method is resolved
// dynamically against the runtime object, so methodName is interned
// instead and callee is ignored (spec.md §4.6.1). resultType is the
// callee's declared result type for the sim stack (void if none).
func (g *Generator) Call(kind CallKind, callee *interp.Callable, methodName string, resultType *types.Type, argc int) error {
	var idx int
	if kind == MethodCall {
		idx = g.Seg.AddConstant(methodName)
	} else {
		idx = g.Seg.AddConstant(callee)
	}
	var op bytecode.OpCode
	switch kind {
	case ChildCall:
		op = bytecode.OpChildCall
	case SiblingCall:
		op = bytecode.OpSiblingCall
	case MethodCall:
		op = bytecode.OpMethodCall
	}
	// Pop the argc argument sim entries (and the callee object for
	// methodCall) before pushing the result.
	for i := 0; i < argc; i++ {
		if _, err := g.pop(); err != nil {
			return err
		}
	}
	if kind == MethodCall {
		if _, err := g.pop(); err != nil {
			return err
		}
	}
	off := g.Seg.EmitOp(op)
	g.Seg.EmitU16(uint16(idx))
	g.Seg.Emit8(byte(argc))
	if resultType == nil {
		resultType = types.VoidType
	}
	g.push(resultType, off, op)
	return nil
}

// EnterCtor constructs a state instance: a call variant whose return slot
// is the new instance, pre-allocated by the caller. stateType is the
// instance's static type for member-access checks; callee carries the
// constructor's actual code and self-variable layout.
func (g *Generator) EnterCtor(callee *interp.Callable, stateType *types.Type, argc int) error {
	idx := g.Seg.AddConstant(callee)
	for i := 0; i < argc; i++ {
		if _, err := g.pop(); err != nil {
			return err
		}
	}
	off := g.Seg.EmitOp(bytecode.OpEnterCtor)
	g.Seg.EmitU16(uint16(idx))
	g.Seg.Emit8(byte(argc))
	g.push(stateType, off, bytecode.OpEnterCtor)
	return nil
}

// --- diagnostics (group 12) ------------------------------------------------

// Assertion pops a bool and emits an assert opcode carrying the source
// text of the condition for error reporting.
func (g *Generator) Assertion(condSource string) error {
	if _, err := g.pop(); err != nil {
		return err
	}
	idx := g.Seg.AddConstant(condSource)
	g.Seg.EmitOp(bytecode.OpAssert)
	g.Seg.EmitU16(uint16(idx))
	return nil
}

// DumpVar pops a value and emits a dump opcode that renders
// "<exprSource> = <value>" to the host's standard output.
func (g *Generator) DumpVar(exprSource string) error {
	v, err := g.pop()
	if err != nil {
		return err
	}
	idx := g.Seg.AddConstant(exprSource)
	g.Seg.EmitOp(bytecode.OpDump)
	g.Seg.EmitU16(uint16(idx))
	g.Seg.Emit8(byte(v.Type.Kind))
	return nil
}

// ProgramExit pops the ordinal exit code and emits opExit.
func (g *Generator) ProgramExit() error {
	if _, err := g.pop(); err != nil {
		return err
	}
	g.Seg.EmitOp(bytecode.OpExit)
	return nil
}

// End closes the segment with a return opcode.
func (g *Generator) End() {
	g.Seg.EmitOp(bytecode.OpEnd)
}
