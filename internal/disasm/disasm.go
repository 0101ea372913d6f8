// Package disasm prints a human-readable listing of a Chunk's
// instructions. It lives in its own package (rather than internal/chunk)
// because decoding OP_CLOSURE's trailing is-local/index byte pairs needs
// the referenced function's upvalue count, and internal/object already
// depends on internal/chunk — putting the disassembler in internal/chunk
// would require the reverse dependency and create an import cycle.
//
// One line per instruction, operand decoded according to the opcode.
// The exact textual format is not a contract anything in internal/vm
// depends on — this is a debugging aid only.
package disasm

import (
	"fmt"
	"io"

	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/object"
)

// Chunk writes a listing of every instruction in c to w, labeled name.
func Chunk(w io.Writer, c *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = instruction(w, c, offset)
	}
}

func instruction(w io.Writer, c *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := chunk.OpCode(c.Code[offset])

	switch op {
	case chunk.OpConstant, chunk.OpGetGlobal, chunk.OpDefineGlobal, chunk.OpSetGlobal,
		chunk.OpGetProperty, chunk.OpSetProperty, chunk.OpGetSuper, chunk.OpClass, chunk.OpMethod:
		idx := c.Code[offset+1]
		fmt.Fprintf(w, "%-18s %4d '%s'\n", op, idx, c.Constants[idx])
		return offset + 2

	case chunk.OpGetLocal, chunk.OpSetLocal, chunk.OpGetUpvalue, chunk.OpSetUpvalue, chunk.OpCall:
		slot := c.Code[offset+1]
		fmt.Fprintf(w, "%-18s %4d\n", op, slot)
		return offset + 2

	case chunk.OpInvoke, chunk.OpSuperInvoke:
		idx := c.Code[offset+1]
		argCount := c.Code[offset+2]
		fmt.Fprintf(w, "%-18s (%d args) %4d '%s'\n", op, argCount, idx, c.Constants[idx])
		return offset + 3

	case chunk.OpJump, chunk.OpJumpIfFalse:
		jump := uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2])
		fmt.Fprintf(w, "%-18s %4d -> %d\n", op, offset, offset+3+int(jump))
		return offset + 3

	case chunk.OpLoop:
		jump := uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2])
		fmt.Fprintf(w, "%-18s %4d -> %d\n", op, offset, offset+3-int(jump))
		return offset + 3

	case chunk.OpClosure:
		idx := c.Code[offset+1]
		fmt.Fprintf(w, "%-18s %4d %s\n", op, idx, c.Constants[idx])
		next := offset + 2
		if fn, ok := c.Constants[idx].AsObj().(*object.Function); ok {
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := c.Code[next]
				index := c.Code[next+1]
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				fmt.Fprintf(w, "%04d      |                     %s %d\n", next, kind, index)
				next += 2
			}
		}
		return next

	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}
