package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// StackFrame is one entry of the Lox-level call-stack trace printed on a
// runtime fault.
type StackFrame struct {
	FunctionName string // "script", or the function's name followed by "()"
	Line         int    // chunk.Lines[ip-1]
}

// RuntimeError is a runtime fault: a message plus the Lox call stack at
// the moment it was detected. It is always constructed via
// vm.runtimeErrorf, whose newRuntimeError call wraps it with
// github.com/pkg/errors so a
// "%+v" format gives the *host's* Go-level stack trace in addition to the
// Lox-level one — the two are independent and serve different audiences.
type RuntimeError struct {
	Message string
	Trace   []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Trace {
		if f.Line > 0 {
			b.WriteString(fmt.Sprintf("\n[line %d] in %s", f.Line, f.FunctionName))
		} else {
			b.WriteString(fmt.Sprintf("\nin %s", f.FunctionName))
		}
	}
	return b.String()
}

// newRuntimeError builds a RuntimeError and wraps it with a Go stack trace
// via pkg/errors, so a %+v format carries both the Lox-level call stack
// and a Go-level one for host-side debugging.
func newRuntimeError(message string, trace []StackFrame) error {
	return errors.WithStack(&RuntimeError{Message: message, Trace: trace})
}

// CompileError signals that compilation failed before any bytecode ran;
// the VM's state is unchanged beyond interned strings and constant pool
// objects already created during the (external) compile attempt.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }
