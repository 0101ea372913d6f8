// Package asm is a small chunk-builder: a fluent wrapper over
// *chunk.Chunk that emits one instruction at a time with its operands,
// standing in for the bytecode compiler, which is an external
// collaborator this module doesn't implement. Tests, the internal/demo
// programs the CLI runs, and anything else in this module that needs a runnable
// *object.Function builds one through Builder instead of parsing and
// compiling real Lox source.
package asm

import (
	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/object"
	"github.com/loxlang/loxvm/internal/value"
)

// Builder accumulates instructions into a Chunk for one function body.
type Builder struct {
	chunk *chunk.Chunk
	line  int
}

// New returns a Builder over a fresh Chunk. Instructions are recorded
// against source line 1 until changed with Line.
func New() *Builder {
	return &Builder{chunk: chunk.New(), line: 1}
}

// Line sets the source line subsequent instructions are attributed to.
func (b *Builder) Line(line int) *Builder {
	b.line = line
	return b
}

// Chunk returns the Chunk built so far.
func (b *Builder) Chunk() *chunk.Chunk { return b.chunk }

// Op emits a bare opcode with no operand (POP, ADD, RETURN, and so on).
func (b *Builder) Op(op chunk.OpCode) *Builder {
	b.chunk.WriteOp(op, b.line)
	return b
}

// Byte emits a raw operand byte following the most recently emitted
// opcode — used for 1-byte operands (locals, upvalue indices, arg
// counts).
func (b *Builder) Byte(v byte) *Builder {
	b.chunk.Write(v, b.line)
	return b
}

// Uint16 emits a big-endian 2-byte operand (jump/loop offsets).
func (b *Builder) Uint16(v uint16) *Builder {
	b.chunk.WriteUint16(v, b.line)
	return b
}

// Constant appends v to the constant pool and emits OP_CONSTANT with its
// index.
func (b *Builder) Constant(v value.Value) *Builder {
	idx := b.chunk.AddConstant(v)
	return b.Op(chunk.OpConstant).Byte(byte(idx))
}

// ConstantIndex appends v to the constant pool without emitting any
// instruction, returning its index — for opcodes whose name/constant
// operand isn't OP_CONSTANT itself (OP_GET_GLOBAL, OP_CLASS, OP_METHOD,
// and so on all take a raw constant-pool index byte).
func (b *Builder) ConstantIndex(v value.Value) byte {
	return byte(b.chunk.AddConstant(v))
}

// Jump emits op (OP_JUMP or OP_JUMP_IF_FALSE) with a placeholder offset
// and returns the code-stream index of the first offset byte, to be
// patched later with PatchJump once the jump target is known.
func (b *Builder) Jump(op chunk.OpCode) int {
	b.Op(op)
	patchAt := len(b.chunk.Code)
	b.Uint16(0xFFFF)
	return patchAt
}

// PatchJump backfills the 2-byte offset at patchAt so the jump lands at
// the Chunk's current end — the standard "patch after the fact" idiom
// for forward jumps, since the target address isn't known until the
// jumped-over code has been emitted.
func (b *Builder) PatchJump(patchAt int) {
	offset := len(b.chunk.Code) - (patchAt + 2)
	b.chunk.Code[patchAt] = byte(uint16(offset) >> 8)
	b.chunk.Code[patchAt+1] = byte(uint16(offset))
}

// Loop emits OP_LOOP with the backward offset to loopStart (the code
// index OP_LOOP should jump back to), computed relative to the position
// immediately after this instruction's own 2-byte operand.
func (b *Builder) Loop(loopStart int) *Builder {
	b.Op(chunk.OpLoop)
	offset := len(b.chunk.Code) + 2 - loopStart
	return b.Uint16(uint16(offset))
}

// Here returns the current code-stream length, useful as a loop target
// for Loop or as a manual jump-patch reference point.
func (b *Builder) Here() int { return len(b.chunk.Code) }

// Function finishes the builder and wraps its Chunk into a callable
// *object.Function. name may be nil for the top-level script.
func (b *Builder) Function(name *object.String, arity, upvalueCount int) *object.Function {
	return &object.Function{
		Arity:        arity,
		UpvalueCount: upvalueCount,
		Name:         name,
		Chunk:        b.chunk,
	}
}
