package vm

import (
	"github.com/loxlang/loxvm/internal/object"
	"github.com/loxlang/loxvm/internal/table"
	"github.com/loxlang/loxvm/internal/value"
)

// Mark-sweep, stop-the-world garbage collection, triggered by a
// byte-allocation watermark. Every allocating call in this package goes
// through maybeCollect *before* constructing the new object: triggering
// the sweep before the object exists sidesteps the rooting hazard
// entirely, since there is nothing new yet that could be incorrectly
// reclaimed.
//
// Object sizes are estimates, not exact Go allocator byte counts — the
// exact byte count backing nextGC's watermark is an implementation
// choice. What actually matters is monotonic, GC-correlated behavior
// (gcHeapSize strictly decreases across a collection whenever something
// unreachable existed), which holds for any consistent size accounting.
const (
	sizeString      = 32
	sizeFunction    = 64
	sizeNative      = 32
	sizeClosure     = 48
	sizeUpvalue     = 32
	sizeClass       = 48
	sizeInstance    = 48
	sizeBoundMethod = 32
)

// maybeCollect triggers a collection if the pending allocation of
// extraBytes would push bytesAllocated past nextGC.
func (vm *VM) maybeCollect(extraBytes int) {
	if vm.bytesAllocated+extraBytes > vm.nextGC {
		vm.collectGarbage()
	}
}

// track links a freshly constructed object onto the VM's intrusive
// all-objects list and accounts for its size.
func (vm *VM) track(obj object.Linkable, size int) {
	obj.SetNext(vm.objects)
	vm.objects = obj.(value.Object)
	vm.bytesAllocated += size
}

// collectGarbage runs one full mark-sweep cycle: mark every root
// reachable object, trace outward from there, prune the string table of
// any interned string that turned out to have no other root (interned
// strings are weak roots), then sweep the object list, freeing anything
// left unmarked and clearing the mark bit on anything that survives.
func (vm *VM) collectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.pruneStringTable()
	vm.sweep()
	vm.nextGC = int(float64(vm.bytesAllocated) * vm.gcGrowthFactor)
	if vm.nextGC < 1 {
		vm.nextGC = 1
	}
}

// markRoots enumerates every GC root: the used portion of the value
// stack, every frame's closure, every open upvalue, the globals table,
// and the canonical "init" string (a root held directly by the VM, not
// just reachable through the globals table).
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.markTable(vm.globals)
	if vm.initString != nil {
		vm.markObject(vm.initString)
	}
}

func (vm *VM) markValue(v value.Value) {
	if v.IsObj() {
		vm.markObject(v.AsObj())
	}
}

func (vm *VM) markObject(o value.Object) {
	if o == nil {
		return
	}
	linkable, ok := o.(object.Linkable)
	if !ok || linkable.IsMarked() {
		return
	}
	linkable.SetMarked(true)
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *VM) markTable(t *table.Table) {
	t.Each(func(key table.Key, val value.Value) {
		if obj, ok := key.(value.Object); ok {
			vm.markObject(obj)
		}
		vm.markValue(val)
	})
}

// traceReferences drains the gray worklist, blackening each object by
// marking everything it directly references, until nothing gray remains.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		obj := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blacken(obj)
	}
}

func (vm *VM) blacken(o value.Object) {
	switch obj := o.(type) {
	case *object.String, *object.Native:
		// No outgoing references.
	case *object.Upvalue:
		vm.markValue(obj.Closed)
	case *object.Function:
		if obj.Name != nil { // nil for the top-level script
			vm.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
	case *object.Closure:
		vm.markObject(obj.Function)
		for _, uv := range obj.Upvalues {
			vm.markObject(uv)
		}
	case *object.Class:
		vm.markObject(obj.Name)
		vm.markTable(obj.Methods)
	case *object.Instance:
		vm.markObject(obj.Class)
		vm.markTable(obj.Fields)
	case *object.BoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	}
}

// pruneStringTable removes every interned string that the mark phase did
// not reach from any other root. This is what makes the string table's
// ownership of its entries "weak": an interned string survives a
// collection only if something besides the intern table itself still
// references it.
func (vm *VM) pruneStringTable() {
	var dead []*object.String
	vm.strings.Each(func(s *object.String) {
		if !s.IsMarked() {
			dead = append(dead, s)
		}
	})
	for _, s := range dead {
		vm.strings.Remove(s)
	}
}

// sweep walks the intrusive all-objects list, freeing every object that
// was not marked reachable and clearing the mark bit on every survivor so
// it starts the next cycle unmarked.
func (vm *VM) sweep() {
	var previous value.Object
	current := vm.objects
	for current != nil {
		linkable := current.(object.Linkable)
		next := linkable.GetNext()
		if linkable.IsMarked() {
			linkable.SetMarked(false)
			previous = current
		} else {
			if previous != nil {
				previous.(object.Linkable).SetNext(next)
			} else {
				vm.objects = next
			}
			vm.bytesAllocated -= sizeOf(current)
		}
		current = next
	}
}

func sizeOf(o value.Object) int {
	switch v := o.(type) {
	case *object.String:
		return sizeString + len(v.Chars)
	case *object.Function:
		return sizeFunction
	case *object.Native:
		return sizeNative
	case *object.Closure:
		return sizeClosure
	case *object.Upvalue:
		return sizeUpvalue
	case *object.Class:
		return sizeClass
	case *object.Instance:
		return sizeInstance
	case *object.BoundMethod:
		return sizeBoundMethod
	default:
		return 0
	}
}

// GCHeapSize returns the VM's self-tracked allocated byte count — the
// backing implementation of the gcHeapSize() native.
func (vm *VM) GCHeapSize() int {
	return vm.bytesAllocated
}

// CollectGarbage forces a collection and returns the number of bytes
// reclaimed (before - after), matching the gc() native's documented sign
// convention: positive means bytes were freed.
func (vm *VM) CollectGarbage() int {
	before := vm.bytesAllocated
	vm.collectGarbage()
	return before - vm.bytesAllocated
}
