package disasm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/loxlang/loxvm/internal/asm"
	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/value"
)

func TestChunkListsConstantAndReturn(t *testing.T) {
	b := asm.New()
	b.Constant(value.NumberVal(7))
	b.Op(chunk.OpReturn)

	var out bytes.Buffer
	Chunk(&out, b.Chunk(), "test")

	listing := out.String()
	if !strings.Contains(listing, "== test ==") {
		t.Errorf("listing missing header: %q", listing)
	}
	if !strings.Contains(listing, "OP_CONSTANT") || !strings.Contains(listing, "7") {
		t.Errorf("listing missing OP_CONSTANT line: %q", listing)
	}
	if !strings.Contains(listing, "OP_RETURN") {
		t.Errorf("listing missing OP_RETURN line: %q", listing)
	}
}

func TestJumpTargetIsResolved(t *testing.T) {
	b := asm.New()
	patch := b.Jump(chunk.OpJumpIfFalse)
	b.Op(chunk.OpPop)
	b.PatchJump(patch)
	b.Op(chunk.OpReturn)

	var out bytes.Buffer
	Chunk(&out, b.Chunk(), "test")

	if !strings.Contains(out.String(), "-> 4") {
		t.Errorf("expected jump target 4 in listing: %q", out.String())
	}
}
