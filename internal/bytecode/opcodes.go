// Package bytecode defines Shannon's opcode table and the append-only
// code segment the code generator emits into and the interpreter reads
// from (spec.md §4.4, §4.6).
//
// Grounded on (and directly extending) the teacher's
// internal/bytecode/opcodes.go: the same idea of grouping related
// opcodes into contiguous iota ranges is kept, generalized to the twelve
// groups spec.md §4.6 calls for.
package bytecode

// OpCode is a single bytecode instruction tag.
type OpCode byte

const (
	// --- group 1: control ------------------------------------------------
	OpEnd  OpCode = iota // return from the current call frame
	OpNop                // no operation
	OpExit               // raise errors.Exit with the top-of-stack ordinal code

	// --- group 2: const loaders -------------------------------------------
	OpLoadTypeRef  // [u16 const idx] push a typeref constant
	OpLoadNull     // push the nullcont variant
	OpLoad0        // push ord 0 (fast path for a common literal)
	OpLoad1        // push ord 1
	OpLoadByte     // [u8]  push ord(operand)
	OpLoadOrd      // [u16 const idx] push ord constant
	OpLoadStr           // [u16 const idx] push str constant
	OpLoadEmptyVar      // [u8 kind] push the empty value of a container kind
	OpLoadEmptyByteDict // push the empty byte-dict variant (kind byte can't carry the Index range OpLoadEmptyVar needs)
	OpLoadConst         // [u16 const idx] push a named compile-time constant (queenBee & module consts)

	// --- group 3: designator loaders ---------------------------------------
	OpLoadSelfVar // [u8 slot]
	OpLoadStkVar  // [s8 bp-relative offset] local/arg/result
	OpLoadOuter   // [u8 levels][u8 slot] self-var of an enclosing state (closure over self)
	OpLoadMember   // [u16 const idx name] object already on stack
	OpDeref        // pops a ref, pushes the referent by copy
	OpStrElem      // pops str,index -> pushes char
	OpVecElem      // pops vec,index -> pushes element
	OpDictElem     // pops dict,key -> pushes value (KeyError if absent)
	OpByteDictElem // pops byte-dict,key -> pushes value (KeyError if absent)

	// --- group 4: storers --------------------------------------------------
	OpInitSelfVar       // [u8 slot] pops value, initializes self var (ctor use)
	OpInitStkVar        // [s8 offset] pops value, initializes local/arg
	OpStoreSelfVar      // [u8 slot] pops value, stores into self var
	OpStoreStkVar       // [s8 offset] pops value, stores into local/arg/result
	OpStoreMember       // [u16 const idx] pops object,value
	OpStoreRef          // pops ref,value -> stores through the reference
	OpStoreStrElem      // pops (obj,index) LEA pair + value -> mutates str element
	OpStoreVecElem      // pops (obj,index) LEA pair + value -> mutates vec element
	OpStoreDictElem     // pops (obj,key) LEA pair + value -> mutates dict element
	OpStoreByteDictElem // pops (obj,key) LEA pair + value -> mutates byte-dict element

	// --- group 5: LEA (push object + locator, for compound storers) --------
	OpLeaSelfVar      // [u8 slot] push (selfvars, slot)
	OpLeaStkVar       // [s8 offset] push (frame, offset)
	OpLeaMember       // [u16 const idx] pops object; pushes the member, locator (instance, slot)
	OpLeaDeref        // pops a ref; pushes the referent, locator (cellptr)
	OpLeaVecElem      // pops vec,index; pushes the element (nested designators; locator does not write back)
	OpLeaDictElem     // pops dict,key; pushes the value (locator does not write back)
	OpLeaByteDictElem // pops byte-dict,key; pushes the value (locator does not write back)

	// --- group 6: string/vector construction & concatenation ---------------
	OpNewVec    // [u16 n] pop n values, push vec
	OpNewStr    // [u16 n] pop n char ordinals, push str
	OpConcatStr // pop str,str -> push str
	OpConcatVec // pop vec,vec -> push vec
	OpElemToVec // pop elem -> push single-element vec (auto-wrap)
	OpElemToStr // pop char -> push single-char str (auto-wrap, chr_to_str)
	OpSubvec    // pop container,from,to -> push sliced container (str or vec)

	// --- group 7: sets / ordsets ---------------------------------------------
	OpNewSet      // [u16 n] pop n values, push set
	OpElemToSet   // pop elem -> push single-element set
	OpRangeToSet  // pop range -> push set containing all its members
	OpSetAddElem  // pop set,elem -> push set with elem inserted
	OpSetAddRange // pop set,range -> push set with range inserted
	OpInCont      // pop elem,container -> push bool membership
	OpInRange     // pop ord,range -> push bool
	OpInBounds    // pop container,index -> push bool index-in-range

	// --- group 8: dicts --------------------------------------------------
	OpNewDict     // [u16 n] pop n (key,value) pairs, push dict
	OpPairToDict  // pop key,value -> push single-pair dict
	OpDictAddPair // pop dict,key,value -> push dict with pair inserted
	OpDictDelete  // pop dict,key -> push dict with key removed

	OpNewByteDict     // [u16 n] pop n (key,value) pairs, push byte-dict
	OpPairToByteDict  // pop key,value -> push single-pair byte-dict
	OpByteDictAddPair // pop byte-dict,key,value -> push byte-dict with pair inserted
	OpByteDictDelete  // pop byte-dict,key -> push byte-dict with key removed

	// --- group 9: arithmetic -------------------------------------------------
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpAddL // in-place: pop (lea-pair), rhs -> add into the referenced cell
	OpSubL
	OpMulL
	OpDivL

	// --- group 10: comparison ------------------------------------------------
	OpCmpOrd // pop ord,ord -> push {-1,0,1}
	OpCmpStr // pop str,str -> push {-1,0,1}
	OpCmpVar // pop variant,variant -> push {0,1} (equality only)
	OpEqual
	OpNotEq
	OpLessThan
	OpLessEq
	OpGreaterThan
	OpGreaterEq

	// --- group 11: jumps and calls -------------------------------------------
	OpJump        // [s16] unconditional
	OpJumpIfFalse // [s16] pop bool, jump if false
	OpJumpAnd     // [s16] peek bool; if false, jump (leaves it); else pop
	OpJumpOr      // [s16] peek bool; if true, jump (leaves it); else pop
	OpNot         // pop bool -> push !bool
	OpChildCall   // [u16 state idx][u8 argc] callee is a child of current state
	OpSiblingCall // [u16 state idx][u8 argc] callee shares current state's parent
	OpMethodCall  // [u16 name idx][u8 argc] callee reached through stack object
	OpEnterCtor   // [u16 state idx][u8 argc] construct a state instance
	OpMkRef       // pop value cell -> push ref to it
	OpCast        // [u16 type idx] explicit cast of top-of-stack
	OpIsType      // [u16 type idx] pop value -> push bool

	// --- group 12: diagnostics ------------------------------------------------
	OpLineNum // [u16 line] no stack effect, updates current source line
	OpAssert  // [u16 const idx cond-str] pop bool -> raise AssertionFailed if false
	OpDump    // [u16 const idx expr-str][u8 kind] pop value -> print "expr = value"

	// --- misc stack/container helpers not tied to a single spec group ------
	OpPop    // discard the top value (expression-statement result)
	OpDup    // duplicate the top value
	OpLength // pop container -> push its size as an ord

	opCodeCount
)

// immArgSize is the byte length of each opcode's inline operand block
// (spec.md §4.4's oplen table: "1 + sizeof(immediates)").
var immArgSize = [opCodeCount]int{
	OpEnd: 0, OpNop: 0, OpExit: 0,

	OpLoadTypeRef: 2, OpLoadNull: 0, OpLoad0: 0, OpLoad1: 0,
	OpLoadByte: 1, OpLoadOrd: 2, OpLoadStr: 2, OpLoadEmptyVar: 1, OpLoadEmptyByteDict: 0, OpLoadConst: 2,

	OpLoadSelfVar: 1, OpLoadStkVar: 1, OpLoadOuter: 2, OpLoadMember: 2,
	OpDeref: 0, OpStrElem: 0, OpVecElem: 0, OpDictElem: 0, OpByteDictElem: 0,

	OpInitSelfVar: 1, OpInitStkVar: 1, OpStoreSelfVar: 1, OpStoreStkVar: 1,
	OpStoreMember: 2, OpStoreRef: 0, OpStoreStrElem: 0, OpStoreVecElem: 0, OpStoreDictElem: 0,
	OpStoreByteDictElem: 0,

	OpLeaSelfVar: 1, OpLeaStkVar: 1, OpLeaMember: 2, OpLeaDeref: 0,
	OpLeaVecElem: 0, OpLeaDictElem: 0, OpLeaByteDictElem: 0,

	OpNewVec: 2, OpNewStr: 2, OpConcatStr: 0, OpConcatVec: 0,
	OpElemToVec: 0, OpElemToStr: 0, OpSubvec: 0,

	OpNewSet: 2, OpElemToSet: 0, OpRangeToSet: 0, OpSetAddElem: 0,
	OpSetAddRange: 0, OpInCont: 0, OpInRange: 0, OpInBounds: 0,

	OpNewDict: 2, OpPairToDict: 0, OpDictAddPair: 0, OpDictDelete: 0,

	OpNewByteDict: 2, OpPairToByteDict: 0, OpByteDictAddPair: 0, OpByteDictDelete: 0,

	OpAdd: 0, OpSub: 0, OpMul: 0, OpDiv: 0, OpMod: 0, OpNeg: 0,
	OpAddL: 0, OpSubL: 0, OpMulL: 0, OpDivL: 0,

	OpCmpOrd: 0, OpCmpStr: 0, OpCmpVar: 0, OpEqual: 0, OpNotEq: 0,
	OpLessThan: 0, OpLessEq: 0, OpGreaterThan: 0, OpGreaterEq: 0,

	OpJump: 2, OpJumpIfFalse: 2, OpJumpAnd: 2, OpJumpOr: 2, OpNot: 0,
	OpChildCall: 3, OpSiblingCall: 3, OpMethodCall: 3, OpEnterCtor: 3,
	OpMkRef: 0, OpCast: 2, OpIsType: 2,

	OpLineNum: 2, OpAssert: 2, OpDump: 3,

	OpPop: 0, OpDup: 0, OpLength: 0,
}

// OpLen returns 1 (the opcode byte) plus the size of its inline operands.
func OpLen(op OpCode) int {
	if int(op) >= len(immArgSize) {
		return 1
	}
	return 1 + immArgSize[op]
}

var opNames = [opCodeCount]string{
	OpEnd: "end", OpNop: "nop", OpExit: "exit",
	OpLoadTypeRef: "loadTypeRef", OpLoadNull: "loadNull", OpLoad0: "load0", OpLoad1: "load1",
	OpLoadByte: "loadByte", OpLoadOrd: "loadOrd", OpLoadStr: "loadStr",
	OpLoadEmptyVar: "loadEmptyVar", OpLoadEmptyByteDict: "loadEmptyByteDict", OpLoadConst: "loadConst",
	OpLoadSelfVar: "loadSelfVar", OpLoadStkVar: "loadStkVar", OpLoadOuter: "loadOuter",
	OpLoadMember: "loadMember", OpDeref: "deref", OpStrElem: "strElem",
	OpVecElem: "vecElem", OpDictElem: "dictElem", OpByteDictElem: "byteDictElem",
	OpInitSelfVar: "initSelfVar", OpInitStkVar: "initStkVar",
	OpStoreSelfVar: "storeSelfVar", OpStoreStkVar: "storeStkVar", OpStoreMember: "storeMember",
	OpStoreRef: "storeRef", OpStoreStrElem: "storeStrElem", OpStoreVecElem: "storeVecElem",
	OpStoreDictElem: "storeDictElem", OpStoreByteDictElem: "storeByteDictElem",
	OpLeaSelfVar: "leaSelfVar", OpLeaStkVar: "leaStkVar", OpLeaMember: "leaMember",
	OpLeaDeref: "leaDeref", OpLeaVecElem: "leaVecElem", OpLeaDictElem: "leaDictElem",
	OpLeaByteDictElem: "leaByteDictElem",
	OpNewVec: "newVec", OpNewStr: "newStr", OpConcatStr: "concatStr", OpConcatVec: "concatVec",
	OpElemToVec: "elemToVec", OpElemToStr: "elemToStr", OpSubvec: "subvec",
	OpNewSet: "newSet", OpElemToSet: "elemToSet", OpRangeToSet: "rangeToSet",
	OpSetAddElem: "setAddElem", OpSetAddRange: "setAddRange", OpInCont: "inCont",
	OpInRange: "inRange", OpInBounds: "inBounds",
	OpNewDict: "newDict", OpPairToDict: "pairToDict", OpDictAddPair: "dictAddPair",
	OpDictDelete: "dictDelete",
	OpNewByteDict: "newByteDict", OpPairToByteDict: "pairToByteDict",
	OpByteDictAddPair: "byteDictAddPair", OpByteDictDelete: "byteDictDelete",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod", OpNeg: "neg",
	OpAddL: "addL", OpSubL: "subL", OpMulL: "mulL", OpDivL: "divL",
	OpCmpOrd: "cmpOrd", OpCmpStr: "cmpStr", OpCmpVar: "cmpVar",
	OpEqual: "equal", OpNotEq: "notEq", OpLessThan: "lessThan", OpLessEq: "lessEq",
	OpGreaterThan: "greaterThan", OpGreaterEq: "greaterEq",
	OpJump: "jump", OpJumpIfFalse: "jumpIfFalse", OpJumpAnd: "jumpAnd", OpJumpOr: "jumpOr",
	OpNot: "not", OpChildCall: "childCall", OpSiblingCall: "siblingCall",
	OpMethodCall: "methodCall", OpEnterCtor: "enterCtor", OpMkRef: "mkRef",
	OpCast: "cast", OpIsType: "isType",
	OpLineNum: "lineNum", OpAssert: "assert", OpDump: "dump",
	OpPop: "pop", OpDup: "dup", OpLength: "length",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "op?"
}

// IsPrimaryLoader reports whether op pushes exactly one fresh value
// without consuming any (spec.md's "primary loader" / GLOSSARY). These
// are the opcodes whose emit offset the generator must remember per
// simulation-stack item for later rewriting into a storer.
func IsPrimaryLoader(op OpCode) bool {
	switch op {
	case OpLoadTypeRef, OpLoadNull, OpLoad0, OpLoad1, OpLoadByte, OpLoadOrd,
		OpLoadStr, OpLoadEmptyVar, OpLoadEmptyByteDict, OpLoadConst,
		OpLoadSelfVar, OpLoadStkVar, OpLoadOuter:
		return true
	default:
		return false
	}
}

// IsGroundedLoader reports whether op addresses a directly-indexed
// storage location amenable to in-place rewriting into its storer
// variant (spec.md §4.5.1).
func IsGroundedLoader(op OpCode) bool {
	switch op {
	case OpLoadSelfVar, OpLoadStkVar, OpLoadMember, OpDeref:
		return true
	default:
		return false
	}
}

// StorerFor returns the storer opcode a grounded loader rewrites into at
// assignment time (spec.md §4.5.1 rule 1).
func StorerFor(loader OpCode) (OpCode, bool) {
	switch loader {
	case OpLoadSelfVar:
		return OpStoreSelfVar, true
	case OpLoadStkVar:
		return OpStoreStkVar, true
	case OpLoadMember:
		return OpStoreMember, true
	case OpDeref:
		return OpStoreRef, true
	default:
		return 0, false
	}
}

// LeaFor returns the LEA opcode a grounded loader rewrites into when it is
// the previous loader in a derived designator chain (spec.md §4.5.1 rule 2).
func LeaFor(loader OpCode) (OpCode, bool) {
	switch loader {
	case OpLoadSelfVar:
		return OpLeaSelfVar, true
	case OpLoadStkVar:
		return OpLeaStkVar, true
	case OpLoadMember:
		return OpLeaMember, true
	case OpDeref:
		return OpLeaDeref, true
	case OpVecElem:
		return OpLeaVecElem, true
	case OpDictElem:
		return OpLeaDictElem, true
	case OpByteDictElem:
		return OpLeaByteDictElem, true
	default:
		return 0, false
	}
}
