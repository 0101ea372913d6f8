// Package object implements the heap object graph: the tagged variants
// String, Function, Native, Closure, Upvalue, Class, Instance, and
// BoundMethod, each sharing a common header used by the GC sweep (Marked
// bit, intrusive Next link through every live object).
//
// String interning also lives here: copyString/takeString and the
// VM-wide string table that backs them.
package object

import (
	"fmt"

	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/table"
	"github.com/loxlang/loxvm/internal/value"
)

// Header is embedded by every object variant. It is the GC's bookkeeping:
// Marked is cleared between collections and Next threads every heap
// object onto the VM's single object list so the sweep phase can walk and
// free unreachable ones without a separate registry.
type Header struct {
	Marked bool
	Next   value.Object
}

// GetNext and SetNext thread the object onto the VM's intrusive
// all-objects list; IsMarked/SetMarked back the mark bit the sweep phase
// tests and clears. These are promoted onto every concrete type that
// embeds Header, giving the GC a uniform way to walk and mark the heap
// without a type switch.
func (h *Header) GetNext() value.Object { return h.Next }
func (h *Header) SetNext(n value.Object) { h.Next = n }
func (h *Header) IsMarked() bool         { return h.Marked }
func (h *Header) SetMarked(m bool)       { h.Marked = m }

// Linkable is implemented by every heap object variant (via the embedded
// Header) and is the interface the GC's sweep and mark phases use.
type Linkable interface {
	value.Object
	GetNext() value.Object
	SetNext(value.Object)
	IsMarked() bool
	SetMarked(bool)
}

// String is an immutable byte string. Strings interned through
// Strings.CopyString/TakeString or the VM's internString are unique per
// content, so two of them with identical content are the same pointer. A
// String built directly as a struct literal is not interned.
type String struct {
	Header
	Chars string
	Hash  uint32
}

func (s *String) ObjType() string   { return "string" }
func (s *String) String() string    { return s.Chars }
func (s *String) Bytes() string     { return s.Chars }
func (s *String) HashCode() uint32  { return s.Hash }
func (s *String) Len() int          { return len(s.Chars) }

var _ table.Key = (*String)(nil)
var _ value.Object = (*String)(nil)

// fnv1aHash hashes bytes with FNV-1a, the same algorithm clox uses.
func fnv1aHash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// Function is a compiled function body: its arity, the number of
// upvalues its closures must allocate, an optional name (nil for the
// top-level script), and the Chunk of bytecode implementing it.
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Name         *String
	Chunk        *chunk.Chunk
}

func (f *Function) ObjType() string { return "function" }
func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

// NativeFn is the host-implemented function ABI: it receives the call's
// arguments and returns a Value or an error. Natives may not themselves
// trigger the interpreter — they run outside any frame.
type NativeFn func(args []value.Value) (value.Value, error)

// Native wraps a host function so it can be called like any other Lox
// callable via OP_CALL.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

func (n *Native) ObjType() string { return "native" }
func (n *Native) String() string  { return "<native fn>" }

// Upvalue is the indirection cell a closure uses to reference a variable
// of an enclosing frame. While Location points into the live value stack
// the upvalue is "open"; closeUpvalues (internal/vm) retargets Location to
// &Closed and the upvalue becomes "closed". NextOpen links every
// currently-open upvalue in stack-descending order — distinct from
// Header.Next, which is the GC's all-objects list.
type Upvalue struct {
	Header
	Location *value.Value
	Closed   value.Value
	NextOpen *Upvalue
}

func (u *Upvalue) ObjType() string { return "upvalue" }
func (u *Upvalue) String() string  { return "<upvalue>" }

// IsOpen reports whether this upvalue still aliases a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.Location != &u.Closed }

// NewOpenUpvalue creates an upvalue pointing at a live stack slot.
func NewOpenUpvalue(slot *value.Value) *Upvalue {
	return &Upvalue{Location: slot}
}

// Close hoists the current value out of the stack slot into the upvalue's
// own Closed field and retargets Location to point at it.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Closure pairs a Function with the upvalue references its body captures.
// len(Upvalues) always equals Function.UpvalueCount.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) ObjType() string { return "closure" }
func (c *Closure) String() string  { return c.Function.String() }

// Class is a class object: its name and its own method table (name ->
// *Closure, boxed as a Value). OP_INHERIT copies a superclass's method
// table into a subclass at class-definition time (a snapshot — later
// changes to the superclass do not propagate).
type Class struct {
	Header
	Name    *String
	Methods *table.Table
}

func NewClass(name *String) *Class {
	return &Class{Name: name, Methods: table.New()}
}

func (c *Class) ObjType() string { return "class" }
func (c *Class) String() string  { return c.Name.Chars }

// Instance is an instance of a Class, with its own field table (name ->
// Value). Fields are looked up before methods on property access.
type Instance struct {
	Header
	Class  *Class
	Fields *table.Table
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: table.New()}
}

func (i *Instance) ObjType() string { return "instance" }
func (i *Instance) String() string  { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }

// BoundMethod is produced when a method is accessed (not called) via `.`:
// a Closure paired with the receiver Value it was bound to. Calling it
// overwrites the callee-slot with Receiver and calls Method, exactly as
// calling the unbound Closure would, but with `this` already resolved.
type BoundMethod struct {
	Header
	Receiver value.Value
	Method   *Closure
}

func (b *BoundMethod) ObjType() string { return "bound method" }
func (b *BoundMethod) String() string  { return b.Method.String() }
