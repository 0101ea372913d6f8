package vm

import (
	"unsafe"

	"github.com/loxlang/loxvm/internal/value"
)

// ptrOffset returns the element distance from base to p within the same
// backing array, used to recover an open upvalue's logical stack index
// from its Location pointer without threading index bookkeeping through a
// register-style stack.
func ptrOffset(base, p *value.Value) uintptr {
	const size = unsafe.Sizeof(value.Value{})
	return (uintptr(unsafe.Pointer(p)) - uintptr(unsafe.Pointer(base))) / size
}
