package chunk

import "github.com/loxlang/loxvm/internal/value"

// Chunk is compiled code for one function body: a flat byte stream of
// opcodes and operand bytes, a constant pool, and a line table parallel
// to the byte stream (one source line per code byte, for error reporting).
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// New returns an empty Chunk ready for Write/AddConstant calls.
func New() *Chunk {
	return &Chunk{}
}

// Write appends one byte to the code stream, recording the source line it
// came from in the parallel Lines slice.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// WriteUint16 appends a big-endian 16-bit operand, as JUMP/JUMP_IF_FALSE/
// LOOP offsets require.
func (c *Chunk) WriteUint16(v uint16, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// AddConstant appends a Value to the constant pool and returns its index.
// The compiler (out of scope here) is responsible for deduplicating
// constants if it chooses to; this method always appends.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of bytes of code currently written.
func (c *Chunk) Len() int {
	return len(c.Code)
}
