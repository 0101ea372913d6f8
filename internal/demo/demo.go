// Package demo hand-assembles a handful of small, runnable programs via
// internal/asm. There is no source-to-Chunk pipeline in this module for
// the CLI to drive, so the CLI's run/disasm subcommands operate on these
// canned programs instead of parsing Lox source files.
package demo

import (
	"sort"

	"github.com/loxlang/loxvm/internal/asm"
	"github.com/loxlang/loxvm/internal/chunk"
	"github.com/loxlang/loxvm/internal/object"
	"github.com/loxlang/loxvm/internal/value"
)

// Program is a named, runnable demo and a one-line description, which the
// REPL's list command prints.
type Program struct {
	Name        string
	Description string
	Build       func() *object.Function
}

var registry = map[string]Program{}

func register(p Program) { registry[p.Name] = p }

// Names returns every registered demo program name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named program, or false if no such demo exists.
func Lookup(name string) (Program, bool) {
	p, ok := registry[name]
	return p, ok
}

func init() {
	register(Program{
		Name:        "arithmetic",
		Description: `print 1 + 2 * 3; (operator precedence baked into emission order)`,
		Build: func() *object.Function {
			b := asm.New()
			b.Constant(value.NumberVal(1))
			b.Constant(value.NumberVal(2))
			b.Constant(value.NumberVal(3))
			b.Op(chunk.OpMultiply)
			b.Op(chunk.OpAdd)
			b.Op(chunk.OpPrint)
			b.Op(chunk.OpNil)
			b.Op(chunk.OpReturn)
			return b.Function(nil, 0, 0)
		},
	})

	register(Program{
		Name:        "strings",
		Description: `print "foo" + "bar"; (OP_ADD's string-concatenation path)`,
		Build: func() *object.Function {
			b := asm.New()
			b.Constant(value.ObjVal(&object.String{Chars: "foo", Hash: object.HashString("foo")}))
			b.Constant(value.ObjVal(&object.String{Chars: "bar", Hash: object.HashString("bar")}))
			b.Op(chunk.OpAdd)
			b.Op(chunk.OpPrint)
			b.Op(chunk.OpNil)
			b.Op(chunk.OpReturn)
			return b.Function(nil, 0, 0)
		},
	})

	register(Program{
		Name:        "counter",
		Description: `var c = 0; while (c < 5) { print c; c = c + 1; } (OP_LOOP/OP_JUMP_IF_FALSE)`,
		Build: func() *object.Function {
			b := asm.New()
			b.Constant(value.NumberVal(0)) // local slot 1: c (slot 0 is the script closure)

			loopStart := b.Here()
			b.Op(chunk.OpGetLocal).Byte(1)
			b.Constant(value.NumberVal(5))
			b.Op(chunk.OpLess)
			exitJump := b.Jump(chunk.OpJumpIfFalse)
			b.Op(chunk.OpPop) // discard the comparison result

			b.Op(chunk.OpGetLocal).Byte(1)
			b.Op(chunk.OpPrint)

			b.Op(chunk.OpGetLocal).Byte(1)
			b.Constant(value.NumberVal(1))
			b.Op(chunk.OpAdd)
			b.Op(chunk.OpSetLocal).Byte(1)
			b.Op(chunk.OpPop)

			b.Loop(loopStart)
			b.PatchJump(exitJump)
			b.Op(chunk.OpPop) // discard the comparison result on exit
			b.Op(chunk.OpPop) // discard local c
			b.Op(chunk.OpNil)
			b.Op(chunk.OpReturn)
			return b.Function(nil, 0, 0)
		},
	})

	register(Program{
		Name:        "closure",
		Description: `fun makeCounter() { var n = 0; fun inc() { n = n + 1; return n; } return inc; } (upvalue capture)`,
		Build: func() *object.Function {
			inc := asm.New()
			inc.Op(chunk.OpGetUpvalue).Byte(0)
			inc.Constant(value.NumberVal(1))
			inc.Op(chunk.OpAdd)
			inc.Op(chunk.OpSetUpvalue).Byte(0)
			inc.Op(chunk.OpGetUpvalue).Byte(0)
			inc.Op(chunk.OpReturn)
			incFn := inc.Function(&object.String{Chars: "inc", Hash: object.HashString("inc")}, 0, 1)

			maker := asm.New()
			maker.Constant(value.NumberVal(0)) // local slot 1: n (slot 0 is the callee itself)
			incIdx := maker.ConstantIndex(value.ObjVal(incFn))
			maker.Op(chunk.OpClosure).Byte(incIdx)
			maker.Byte(1).Byte(1) // one upvalue, captured from local slot 1 (isLocal=1)
			maker.Op(chunk.OpReturn)
			makerFn := maker.Function(&object.String{Chars: "makeCounter", Hash: object.HashString("makeCounter")}, 0, 0)

			top := asm.New()
			makerIdx := top.ConstantIndex(value.ObjVal(makerFn))
			top.Op(chunk.OpClosure).Byte(makerIdx)
			top.Op(chunk.OpCall).Byte(0)
			top.Op(chunk.OpCall).Byte(0)
			top.Op(chunk.OpPrint)
			top.Op(chunk.OpNil)
			top.Op(chunk.OpReturn)
			return top.Function(nil, 0, 0)
		},
	})
}
