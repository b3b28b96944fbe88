package bytecode

import "fmt"

// Segment is the append-only code buffer a state's code generator writes
// into (spec.md §4.4). Bytes are only ever appended or, for designator
// rewriting, overwritten in place at a recorded offset — the code
// generator never inserts or deletes bytes in the middle of already-
// emitted code, so jump targets recorded earlier stay valid.
//
// Grounded on the teacher's internal/bytecode/Chunk (WriteOp/WriteByte/
// AddConstant), extended with Erase/CutTo/RewriteOp/At/Atw per spec.md
// §4.4's cut/erase/rewrite support for l-value rewriting.
type Segment struct {
	Code      []byte
	Constants []interface{}
	lines     []int // lines[offset] is the source line active at that offset, 0 if unset

	// MaxStack is the peak simulated stack depth reached while generating
	// this segment (spec.md §4.4/§4.5: the interpreter preallocates the
	// call frame's value stack region to this size).
	MaxStack int
}

// NewSegment returns an empty code segment.
func NewSegment() *Segment {
	return &Segment{Code: []byte{}, Constants: []interface{}{}, lines: []int{}}
}

// Len returns the current length of the emitted code.
func (s *Segment) Len() int { return len(s.Code) }

func (s *Segment) growLines(n int) {
	for len(s.lines) < n {
		s.lines = append(s.lines, 0)
	}
}

// Emit8 appends a single byte and returns its offset.
func (s *Segment) Emit8(b byte) int {
	off := len(s.Code)
	s.Code = append(s.Code, b)
	s.growLines(len(s.Code))
	return off
}

// EmitOp appends an opcode (with no operands yet) and returns its offset.
func (s *Segment) EmitOp(op OpCode) int { return s.Emit8(byte(op)) }

// EmitU16 appends a big-endian uint16 operand.
func (s *Segment) EmitU16(v uint16) {
	s.Emit8(byte(v >> 8))
	s.Emit8(byte(v))
}

// EmitS16 appends a big-endian two's-complement int16 operand (jump deltas).
func (s *Segment) EmitS16(v int16) { s.EmitU16(uint16(v)) }

// EmitU24 appends a 3-byte big-endian operand (call argument counts packed
// with a 16-bit index, spec.md §4.6 group 11).
func (s *Segment) EmitU24(v uint32) {
	s.Emit8(byte(v >> 16))
	s.Emit8(byte(v >> 8))
	s.Emit8(byte(v))
}

// AddConstant interns val into the constant pool and returns its index.
// Unlike Code, the constant pool is never rewritten.
func (s *Segment) AddConstant(val interface{}) int {
	s.Constants = append(s.Constants, val)
	return len(s.Constants) - 1
}

// At returns the byte at offset.
func (s *Segment) At(offset int) byte { return s.Code[offset] }

// Atw returns the big-endian uint16 at offset.
func (s *Segment) Atw(offset int) uint16 {
	return uint16(s.Code[offset])<<8 | uint16(s.Code[offset+1])
}

// PatchU16 overwrites the uint16 at offset, used to back-patch a forward
// jump once its target is known (spec.md §4.5.5).
func (s *Segment) PatchU16(offset int, v uint16) {
	s.Code[offset] = byte(v >> 8)
	s.Code[offset+1] = byte(v)
}

// RewriteOp overwrites the opcode byte at offset with newOp, used when the
// code generator discovers a previously-emitted loader must become a
// storer or LEA form (spec.md §4.5.1). newOp must have the same inline
// operand size as the opcode currently at offset, since no bytes are
// inserted or removed.
func (s *Segment) RewriteOp(offset int, newOp OpCode) error {
	old := OpCode(s.Code[offset])
	if OpLen(old) != OpLen(newOp) {
		return fmt.Errorf("bytecode: cannot rewrite %s (len %d) to %s (len %d) in place", old, OpLen(old), newOp, OpLen(newOp))
	}
	s.Code[offset] = byte(newOp)
	return nil
}

// CutTo truncates the segment back to offset, discarding everything
// emitted after it. Used when the generator must discard a just-emitted
// subexpression wholesale — e.g. replacing it with a folded constant
// (spec.md §4.5.4) or abandoning a designator load that turned out to be
// unused.
func (s *Segment) CutTo(offset int) {
	s.Code = s.Code[:offset]
	if offset < len(s.lines) {
		s.lines = s.lines[:offset]
	}
}

// Erase removes the instruction at offset, which must be the last
// instruction currently in the segment (only trailing erasure is
// supported — interior erasure would invalidate already-recorded jump
// targets). op is the opcode expected there, used only to size the cut.
func (s *Segment) Erase(offset int, op OpCode) {
	end := offset + OpLen(op)
	if end != len(s.Code) {
		panic("bytecode: Erase only supports removing the trailing instruction")
	}
	s.CutTo(offset)
}

// SetLine records the active source line at offset, emitted as an
// OpLineNum by the generator whenever the line changes (spec.md §4.6
// group 12), and also recorded here for fast debug lookups without
// re-scanning the stream.
func (s *Segment) SetLine(offset, line int) {
	s.growLines(offset + 1)
	s.lines[offset] = line
}

// LineAt returns the most recent line recorded at or before offset.
func (s *Segment) LineAt(offset int) int {
	for i := offset; i >= 0 && i < len(s.lines); i-- {
		if s.lines[i] != 0 {
			return s.lines[i]
		}
	}
	return 0
}

// NoteStackDepth updates MaxStack if depth is a new high-water mark.
func (s *Segment) NoteStackDepth(depth int) {
	if depth > s.MaxStack {
		s.MaxStack = depth
	}
}
