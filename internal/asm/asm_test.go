package asm

import (
	"testing"

	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/value"
)

func TestConstantEmitsIndexByte(t *testing.T) {
	b := New()
	b.Constant(value.NumberVal(7))
	fn := b.Function(nil, 0, 0)
	if len(fn.Chunk.Code) != 2 {
		t.Fatalf("code len = %d, want 2", len(fn.Chunk.Code))
	}
	if chunk.OpCode(fn.Chunk.Code[0]) != chunk.OpConstant {
		t.Errorf("first byte = %v, want OP_CONSTANT", chunk.OpCode(fn.Chunk.Code[0]))
	}
	if fn.Chunk.Code[1] != 0 {
		t.Errorf("constant index = %d, want 0", fn.Chunk.Code[1])
	}
	if fn.Chunk.Constants[0].AsNumber() != 7 {
		t.Errorf("constant value = %v, want 7", fn.Chunk.Constants[0])
	}
}

func TestJumpPatchLandsAtCurrentEnd(t *testing.T) {
	b := New()
	patch := b.Jump(chunk.OpJumpIfFalse)
	b.Op(chunk.OpPop)
	b.Op(chunk.OpPop)
	b.PatchJump(patch)

	c := b.Chunk()
	offset := uint16(c.Code[patch])<<8 | uint16(c.Code[patch+1])
	if int(offset) != 2 {
		t.Errorf("patched offset = %d, want 2", offset)
	}
}

func TestLoopOffsetPointsBackward(t *testing.T) {
	b := New()
	start := b.Here()
	b.Op(chunk.OpNil)
	b.Loop(start)

	c := b.Chunk()
	// OP_LOOP is the second byte written (after OP_NIL), its 2-byte
	// operand follows at index 2.
	offset := uint16(c.Code[2])<<8 | uint16(c.Code[3])
	if int(offset) != 4 {
		t.Errorf("loop offset = %d, want 4", offset)
	}
}
