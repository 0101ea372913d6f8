// Package vm implements the stack-based bytecode interpreter, its garbage
// collector, and the native call interface. It is the one package that
// depends on every other internal package, tying the value model, object
// graph, hash table, and chunk format together into a running
// interpreter.
package vm

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/internal/object"
	"github.com/loxlang/loxvm/internal/table"
	"github.com/loxlang/loxvm/internal/value"
)

// InterpretResult is the outcome of a top-level Interpret call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is one interpreter instance. Nothing here is a package-level
// singleton — every field needed to run a program lives on this struct,
// and multiple VMs may coexist in one process without sharing anything
// but their Go runtime.
type VM struct {
	stack      []value.Value
	stackTop   int
	frames     []CallFrame
	frameCount int

	openUpvalues *object.Upvalue

	globals *table.Table
	strings *object.Strings
	objects value.Object // head of the intrusive all-objects list

	initString *object.String

	bytesAllocated  int
	nextGC          int
	gcGrowthFactor  float64
	grayStack       []value.Object

	out       io.Writer
	log       *slog.Logger
	startedAt time.Time
}

// New constructs a VM using config.Default(). Use NewWithConfig to
// override frame depth, stack size, or GC tuning.
func New() *VM {
	return NewWithConfig(config.Default())
}

// NewWithConfig constructs a VM with the given tunables, writing PRINT
// output to os.Stdout and logging host-level diagnostics
// (not Lox-visible output) through log/slog, the ambient logger every
// component in this module uses.
func NewWithConfig(cfg config.VM) *VM {
	vm := &VM{
		stack:          make([]value.Value, cfg.FramesMax*cfg.StackSlotsPerFrame),
		frames:         make([]CallFrame, cfg.FramesMax),
		globals:        table.New(),
		strings:        object.NewStrings(),
		nextGC:         cfg.InitialNextGC,
		gcGrowthFactor: cfg.GCGrowthFactor,
		out:            os.Stdout,
		log:            slog.Default(),
		startedAt:      time.Now(),
	}
	vm.initString = vm.internString("init")
	vm.defineNatives()
	return vm
}

// Close is the teardown counterpart of New: it unlinks the whole
// all-objects list and drops the stacks, globals and string table, so the
// VM no longer references any object it allocated.
func (vm *VM) Close() {
	vm.resetStacks()
	vm.objects = nil
	vm.bytesAllocated = 0
	vm.globals = table.New()
	vm.strings = object.NewStrings()
	vm.initString = nil
	vm.grayStack = nil
}

// SetOutput redirects PRINT output; tests use this to capture output
// instead of writing to os.Stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// SetLogger overrides the ambient host-diagnostics logger.
func (vm *VM) SetLogger(l *slog.Logger) { vm.log = l }

// Global looks up a global variable by name, for embedding code and
// tests that want to inspect VM state after an Interpret call.
func (vm *VM) Global(name string) (value.Value, bool) {
	key := vm.internString(name)
	return vm.globals.Get(key)
}

// internString interns s against this VM's string table, constructing a
// new *String (and tracking it as a GC root-eligible heap object) only if
// an equal string isn't already interned. The watermark check runs
// before construction — see gc.go's package comment for why that
// ordering matters.
func (vm *VM) internString(s string) *object.String {
	hash := object.HashString(s)
	if found, ok := vm.strings.Find(s, hash); ok {
		return found
	}
	vm.maybeCollect(sizeString + len(s))
	obj := &object.String{Chars: s, Hash: hash}
	vm.strings.Insert(obj)
	vm.track(obj, sizeString+len(s))
	return obj
}

func (vm *VM) push(v value.Value) error {
	if vm.stackTop >= len(vm.stack) {
		return vm.runtimeErrorf("Stack overflow.")
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
	return nil
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStacks() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// runtimeErrorf builds a RuntimeError carrying the current Lox call
// stack (innermost frame first), resets the VM back to an empty, reusable
// state, and returns the wrapped error.
func (vm *VM) runtimeErrorf(format string, args ...interface{}) error {
	message := fmt.Sprintf(format, args...)
	trace := make([]StackFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.function()
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[f.ip-1]
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		trace = append(trace, StackFrame{FunctionName: name, Line: line})
	}
	vm.log.Error("runtime fault", "message", message)
	vm.resetStacks()
	return newRuntimeError(message, trace)
}

// Interpret runs a compiled top-level function (the entry point an
// external compiler hands a *object.Function to). It wraps fn in a
// Closure with zero upvalues and executes it as frame 0.
func (vm *VM) Interpret(fn *object.Function) (InterpretResult, error) {
	if err := vm.push(value.ObjVal(fn)); err != nil {
		return InterpretRuntimeError, err
	}
	vm.maybeCollect(sizeClosure)
	closure := &object.Closure{Function: fn, Upvalues: make([]*object.Upvalue, fn.UpvalueCount)}
	vm.track(closure, sizeClosure)
	vm.pop()
	if err := vm.push(value.ObjVal(closure)); err != nil {
		return InterpretRuntimeError, err
	}
	if err := vm.call(closure, 0); err != nil {
		return InterpretRuntimeError, err
	}
	return vm.run()
}

func asInstance(v value.Value) (*object.Instance, bool) {
	if !v.IsObj() {
		return nil, false
	}
	inst, ok := v.AsObj().(*object.Instance)
	return inst, ok
}

func isString(v value.Value) bool {
	if !v.IsObj() {
		return false
	}
	_, ok := v.AsObj().(*object.String)
	return ok
}

// run is the dispatch loop (C7's heart). frame caches the currently
// executing CallFrame's address; it is refreshed after any opcode that
// changes vm.frameCount (CALL/INVOKE/SUPER_INVOKE/RETURN) so the next
// iteration reads from the right activation record.
func (vm *VM) run() (InterpretResult, error) {
	frame := &vm.frames[vm.frameCount-1]

	for {
		op := chunk.OpCode(frame.readByte())

		switch op {
		case chunk.OpConstant:
			if err := vm.push(frame.readConstant()); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpNil:
			if err := vm.push(value.NilValue); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpTrue:
			if err := vm.push(value.True); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpFalse:
			if err := vm.push(value.False); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := frame.readByte()
			if err := vm.push(vm.stack[frame.slotsBase+int(slot)]); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpSetLocal:
			slot := frame.readByte()
			vm.stack[frame.slotsBase+int(slot)] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := frame.readString()
			val, ok := vm.globals.Get(name)
			if !ok {
				return InterpretRuntimeError, vm.runtimeErrorf("Undefined variable '%s'.", name.Chars)
			}
			if err := vm.push(val); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpDefineGlobal:
			name := frame.readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := frame.readString()
			isNew := vm.globals.Set(name, vm.peek(0))
			if isNew {
				vm.globals.Delete(name)
				return InterpretRuntimeError, vm.runtimeErrorf("Undefined variable '%s'.", name.Chars)
			}

		case chunk.OpGetUpvalue:
			idx := frame.readByte()
			if err := vm.push(*frame.closure.Upvalues[idx].Location); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpSetUpvalue:
			idx := frame.readByte()
			*frame.closure.Upvalues[idx].Location = vm.peek(0)

		case chunk.OpGetProperty:
			name := frame.readString()
			instance, ok := asInstance(vm.peek(0))
			if !ok {
				return InterpretRuntimeError, vm.runtimeErrorf("Only instances have properties.")
			}
			if fieldVal, ok := instance.Fields.Get(name); ok {
				vm.pop()
				if err := vm.push(fieldVal); err != nil {
					return InterpretRuntimeError, err
				}
				break
			}
			bound, err := vm.bindMethod(instance.Class, name)
			if err != nil {
				return InterpretRuntimeError, err
			}
			vm.pop()
			if err := vm.push(value.ObjVal(bound)); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpSetProperty:
			name := frame.readString()
			instance, ok := asInstance(vm.peek(1))
			if !ok {
				return InterpretRuntimeError, vm.runtimeErrorf("Only instances have fields.")
			}
			instance.Fields.Set(name, vm.peek(0))
			val := vm.pop()
			vm.pop()
			if err := vm.push(val); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpGetSuper:
			name := frame.readString()
			superclassVal := vm.pop()
			superclass, ok := superclassVal.AsObj().(*object.Class)
			if !ok {
				return InterpretRuntimeError, vm.runtimeErrorf("Superclass must be a class.")
			}
			receiver := vm.stack[frame.slotsBase]
			bound, err := vm.bindMethodFor(superclass, name, receiver)
			if err != nil {
				return InterpretRuntimeError, err
			}
			if err := vm.push(value.ObjVal(bound)); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			if err := vm.push(value.BoolVal(value.Equals(a, b))); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpGreater:
			if err := vm.binaryCompare(func(a, b float64) bool { return a > b }); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpLess:
			if err := vm.binaryCompare(func(a, b float64) bool { return a < b }); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpSubtract:
			if err := vm.binaryNumeric(func(a, b float64) float64 { return a - b }); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpMultiply:
			if err := vm.binaryNumeric(func(a, b float64) float64 { return a * b }); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpDivide:
			if err := vm.binaryNumeric(func(a, b float64) float64 { return a / b }); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpNot:
			v := vm.pop()
			if err := vm.push(value.BoolVal(v.IsFalsey())); err != nil {
				return InterpretRuntimeError, err
			}
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return InterpretRuntimeError, vm.runtimeErrorf("Operand must be a number.")
			}
			n := vm.pop().AsNumber()
			if err := vm.push(value.NumberVal(-n)); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpPrint:
			v := vm.pop()
			fmt.Fprintln(vm.out, v.String())

		case chunk.OpJump:
			offset := frame.readUint16()
			frame.ip += int(offset)
		case chunk.OpJumpIfFalse:
			offset := frame.readUint16()
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case chunk.OpLoop:
			offset := frame.readUint16()
			frame.ip -= int(offset)

		case chunk.OpCall:
			argCount := int(frame.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpInvoke:
			name := frame.readString()
			argCount := int(frame.readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpSuperInvoke:
			name := frame.readString()
			argCount := int(frame.readByte())
			superclassVal := vm.pop()
			superclass, ok := superclassVal.AsObj().(*object.Class)
			if !ok {
				return InterpretRuntimeError, vm.runtimeErrorf("Superclass must be a class.")
			}
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpClosure:
			fn := frame.readConstant().AsObj().(*object.Function)
			vm.maybeCollect(sizeClosure)
			closure := &object.Closure{Function: fn, Upvalues: make([]*object.Upvalue, fn.UpvalueCount)}
			vm.track(closure, sizeClosure)
			if err := vm.push(value.ObjVal(closure)); err != nil {
				return InterpretRuntimeError, err
			}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := frame.readByte()
				index := int(frame.readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.slotsBase])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK, nil
			}
			vm.stackTop = frame.slotsBase
			if err := vm.push(result); err != nil {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case chunk.OpClass:
			name := frame.readString()
			vm.maybeCollect(sizeClass)
			cls := object.NewClass(name)
			vm.track(cls, sizeClass)
			if err := vm.push(value.ObjVal(cls)); err != nil {
				return InterpretRuntimeError, err
			}

		case chunk.OpInherit:
			superclassVal := vm.peek(1)
			superclass, ok := superclassVal.AsObj().(*object.Class)
			if !ok {
				return InterpretRuntimeError, vm.runtimeErrorf("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObj().(*object.Class)
			table.AddAll(superclass.Methods, subclass.Methods)
			vm.pop()

		case chunk.OpMethod:
			name := frame.readString()
			method := vm.peek(0)
			class := vm.peek(1).AsObj().(*object.Class)
			class.Methods.Set(name, method)
			vm.pop()

		default:
			return InterpretRuntimeError, vm.runtimeErrorf("Unknown opcode %d.", byte(op))
		}
	}
}

// add implements OP_ADD's polymorphism: number+number and string+string,
// nothing else.
func (vm *VM) add() error {
	if isString(vm.peek(0)) && isString(vm.peek(1)) {
		b := vm.pop().AsObj().(*object.String)
		a := vm.pop().AsObj().(*object.String)
		result := vm.internString(a.Chars + b.Chars)
		return vm.push(value.ObjVal(result))
	}
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		return vm.push(value.NumberVal(a + b))
	}
	return vm.runtimeErrorf("Operands must be two numbers or two strings.")
}

func (vm *VM) binaryNumeric(op func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	return vm.push(value.NumberVal(op(a, b)))
}

func (vm *VM) binaryCompare(op func(a, b float64) bool) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeErrorf("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	return vm.push(value.BoolVal(op(a, b)))
}

// callValue dispatches OP_CALL's callee: closures call normally, bound
// methods rewrite the callee slot to their receiver first, classes
// construct an Instance and invoke "init" if present, natives run inline
// without entering the interpreter, and anything else is a runtime fault.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeErrorf("Can only call functions and classes.")
	}
	switch o := callee.AsObj().(type) {
	case *object.Closure:
		return vm.call(o, argCount)
	case *object.BoundMethod:
		vm.stack[vm.stackTop-argCount-1] = o.Receiver
		return vm.call(o.Method, argCount)
	case *object.Class:
		vm.maybeCollect(sizeInstance)
		instance := object.NewInstance(o)
		vm.track(instance, sizeInstance)
		vm.stack[vm.stackTop-argCount-1] = value.ObjVal(instance)
		if init, ok := o.Methods.Get(vm.initString); ok {
			return vm.call(init.AsObj().(*object.Closure), argCount)
		}
		if argCount != 0 {
			return vm.runtimeErrorf("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *object.Native:
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, err := o.Fn(args)
		if err != nil {
			return vm.runtimeErrorf("%s", err.Error())
		}
		vm.stackTop -= argCount + 1
		return vm.push(result)
	default:
		return vm.runtimeErrorf("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *object.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeErrorf("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == len(vm.frames) {
		return vm.runtimeErrorf("Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	frame.closure = closure
	frame.ip = 0
	frame.slotsBase = vm.stackTop - argCount - 1
	vm.frameCount++
	return nil
}

// invoke implements OP_INVOKE's fast path: field access and method
// dispatch fused into one opcode, avoiding an intermediate BoundMethod
// allocation for the overwhelmingly common `receiver.method(args)` shape.
func (vm *VM) invoke(name *object.String, argCount int) error {
	receiverVal := vm.peek(argCount)
	instance, ok := asInstance(receiverVal)
	if !ok {
		return vm.runtimeErrorf("Only instances have methods.")
	}
	if fieldVal, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = fieldVal
		return vm.callValue(fieldVal, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
	}
	return vm.call(method.AsObj().(*object.Closure), argCount)
}

// bindMethod resolves name on class against the current receiver
// (peek(0), per the non-invoking `.` access stack convention). Used by
// OP_GET_PROPERTY.
func (vm *VM) bindMethod(class *object.Class, name *object.String) (*object.BoundMethod, error) {
	return vm.bindMethodFor(class, name, vm.peek(0))
}

// bindMethodFor resolves name on class with an explicit receiver. Used
// directly by OP_GET_SUPER, whose receiver is always the current frame's
// "this" (slot 0) rather than something sitting at the top of the stack.
func (vm *VM) bindMethodFor(class *object.Class, name *object.String, receiver value.Value) (*object.BoundMethod, error) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return nil, vm.runtimeErrorf("Undefined property '%s'.", name.Chars)
	}
	vm.maybeCollect(sizeBoundMethod)
	bound := &object.BoundMethod{Receiver: receiver, Method: method.AsObj().(*object.Closure)}
	vm.track(bound, sizeBoundMethod)
	return bound, nil
}

// captureUpvalue returns the open upvalue for the stack slot at
// absolute index slotIndex, creating one if none exists yet. The open
// list is kept sorted stack-descending so that two closures capturing
// the same enclosing local end up sharing one upvalue.
func (vm *VM) captureUpvalue(slotIndex int) *object.Upvalue {
	slot := &vm.stack[slotIndex]

	var previous *object.Upvalue
	current := vm.openUpvalues
	for current != nil && stackIndexOf(vm, current.Location) > slotIndex {
		previous = current
		current = current.NextOpen
	}
	if current != nil && stackIndexOf(vm, current.Location) == slotIndex {
		return current
	}

	vm.maybeCollect(sizeUpvalue)
	created := object.NewOpenUpvalue(slot)
	vm.track(created, sizeUpvalue)
	created.NextOpen = current
	if previous == nil {
		vm.openUpvalues = created
	} else {
		previous.NextOpen = created
	}
	return created
}

// closeUpvalues hoists every open upvalue at or above lastSlot's absolute
// stack index out of the stack and into its own Closed field (Invariant
// 3), used when a scope or frame whose locals are captured goes out of
// scope (OP_CLOSE_UPVALUE) or returns (OP_RETURN).
func (vm *VM) closeUpvalues(lastSlot *value.Value) {
	lastIndex := stackIndexOf(vm, lastSlot)
	for vm.openUpvalues != nil && stackIndexOf(vm, vm.openUpvalues.Location) >= lastIndex {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}

// stackIndexOf recovers the logical stack index a live (still-open)
// upvalue's Location pointer refers to. vm.stack is allocated once at
// fixed capacity and never reallocated, so pointer arithmetic against its
// base address is stable for the VM's entire lifetime.
func stackIndexOf(vm *VM, p *value.Value) int {
	return int(ptrOffset(&vm.stack[0], p))
}
