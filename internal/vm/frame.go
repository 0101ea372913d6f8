package vm

import (
	"github.com/loxlang/loxvm/internal/object"
	"github.com/loxlang/loxvm/internal/value"
)

// CallFrame is one activation record: the closure being executed, an
// instruction pointer into its chunk, and slotsBase — the index into
// vm.stack of this frame's local-slot-0, which is also the callee Value
// (or, for method invocations, the receiver the caller rewrote before
// the call).
//
// run() holds a *CallFrame pointing directly into vm.frames and mutates
// ip through it on every instruction; there is no separate cache to
// write back. The pointer itself is only re-pointed — at &vm.frames[...]
// for the new top frame — after an opcode that pushes or pops a frame.
type CallFrame struct {
	closure   *object.Closure
	ip        int
	slotsBase int
}

func (f *CallFrame) function() *object.Function {
	return f.closure.Function
}

// readByte reads the byte at ip and advances past it — the primitive
// every other operand read builds on.
func (f *CallFrame) readByte() byte {
	b := f.function().Chunk.Code[f.ip]
	f.ip++
	return b
}

// readUint16 reads a big-endian 16-bit operand (the JUMP/LOOP offset
// encoding) and advances ip past both bytes.
func (f *CallFrame) readUint16() uint16 {
	hi := f.readByte()
	lo := f.readByte()
	return uint16(hi)<<8 | uint16(lo)
}

// readConstant reads a 1-byte constant-pool index and returns the Value
// stored there.
func (f *CallFrame) readConstant() value.Value {
	idx := f.readByte()
	return f.function().Chunk.Constants[idx]
}

// readString reads a constant known to be an interned string (every
// name operand — globals, properties, methods).
func (f *CallFrame) readString() *object.String {
	return f.readConstant().AsObj().(*object.String)
}
