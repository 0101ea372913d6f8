package vm

import (
	"os"
	"time"

	"github.com/loxlang/loxvm/internal/object"
	"github.com/loxlang/loxvm/internal/value"
)

// defineNative registers a host function under name in the globals table,
// the only way a native function enters Lox-visible scope.
// The name string is pushed onto the value stack while the native is
// allocated, so a collection triggered by that allocation cannot reclaim it.
func (vm *VM) defineNative(name string, fn object.NativeFn) {
	nameObj := vm.internString(name)
	_ = vm.push(value.ObjVal(nameObj))
	vm.maybeCollect(sizeNative)
	native := &object.Native{Name: name, Fn: fn}
	vm.track(native, sizeNative)
	vm.globals.Set(nameObj, value.ObjVal(native))
	vm.pop()
}

// defineNatives installs the full native surface: clock, exit, gc, and
// gcHeapSize. No others.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock(vm))
	vm.defineNative("exit", nativeExit)
	vm.defineNative("gc", nativeGC(vm))
	vm.defineNative("gcHeapSize", nativeGCHeapSize(vm))
}

// nativeClock returns elapsed wall-clock seconds since the VM was
// constructed, monotonic within a single process run — a portable stand-in
// for process CPU time, since Go's standard library has no portable
// CPU-time clock.
func nativeClock(vm *VM) object.NativeFn {
	return func(args []value.Value) (value.Value, error) {
		return value.NumberVal(time.Since(vm.startedAt).Seconds()), nil
	}
}

// nativeExit terminates the host process immediately, with the numeric
// argument (if any) as the exit code. It never returns.
func nativeExit(args []value.Value) (value.Value, error) {
	code := 0
	if len(args) > 0 && args[0].IsNumber() {
		code = int(args[0].AsNumber())
	}
	os.Exit(code)
	return value.NilValue, nil
}

// nativeGC forces a collection and returns the number of bytes it
// reclaimed (before - after).
func nativeGC(vm *VM) object.NativeFn {
	return func(args []value.Value) (value.Value, error) {
		return value.NumberVal(float64(vm.CollectGarbage())), nil
	}
}

// nativeGCHeapSize reports the VM's current self-tracked allocated bytes.
func nativeGCHeapSize(vm *VM) object.NativeFn {
	return func(args []value.Value) (value.Value, error) {
		return value.NumberVal(float64(vm.GCHeapSize())), nil
	}
}
