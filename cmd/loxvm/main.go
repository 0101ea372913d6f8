// Command loxvm drives the execution core over the canned demo programs in
// internal/demo, since this module has no bytecode compiler of its own.
// It dispatches via urfave/cli.v1 subcommands, peterh/liner for REPL
// line-editing, and fatih/color for disassembly/error highlighting.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/loxlang/loxvm/internal/config"
	"github.com/loxlang/loxvm/internal/demo"
	"github.com/loxlang/loxvm/internal/disasm"
	"github.com/loxlang/loxvm/internal/vm"
)

func main() {
	app := cli.NewApp()
	app.Name = "loxvm"
	app.Usage = "run and inspect the Lox bytecode execution core"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		runCommand,
		disasmCommand,
		gcStatsCommand,
		replCommand,
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func programNames() string {
	return strings.Join(demo.Names(), ", ")
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "run a named demo program",
	ArgsUsage: "<program>",
	Action: func(c *cli.Context) error {
		prog, err := resolveProgram(c, "run")
		if err != nil {
			return err
		}
		v := vm.New()
		res, err := v.Interpret(prog.Build())
		if err != nil {
			color.Red("runtime error: %v", err)
			os.Exit(1)
		}
		if res != vm.InterpretOK {
			return fmt.Errorf("interpreter returned %v", res)
		}
		return nil
	},
}

var disasmCommand = cli.Command{
	Name:      "disasm",
	Usage:     "disassemble a named demo program",
	ArgsUsage: "<program>",
	Action: func(c *cli.Context) error {
		prog, err := resolveProgram(c, "disasm")
		if err != nil {
			return err
		}
		fn := prog.Build()
		color.Cyan("== %s ==", prog.Name)
		disasm.Chunk(os.Stdout, fn.Chunk, prog.Name)
		return nil
	},
}

var gcStatsCommand = cli.Command{
	Name:      "gc-stats",
	Usage:     "run a named demo program and report GC heap size before/after a forced collection",
	ArgsUsage: "<program>",
	Action: func(c *cli.Context) error {
		prog, err := resolveProgram(c, "gc-stats")
		if err != nil {
			return err
		}
		v := vm.New()
		if res, err := v.Interpret(prog.Build()); err != nil || res != vm.InterpretOK {
			return fmt.Errorf("program did not run cleanly: res=%v err=%v", res, err)
		}
		before := v.GCHeapSize()
		freed := v.CollectGarbage()
		fmt.Printf("heap before collection: %d bytes\n", before)
		fmt.Printf("bytes freed:            %d\n", freed)
		fmt.Printf("heap after collection:  %d bytes\n", v.GCHeapSize())
		return nil
	},
}

var replCommand = cli.Command{
	Name:  "repl",
	Usage: "interactively run demo programs against one persistent VM",
	Action: func(c *cli.Context) error {
		return runREPL()
	},
}

func resolveProgram(c *cli.Context, subcommand string) (demo.Program, error) {
	name := c.Args().First()
	if name == "" {
		return demo.Program{}, fmt.Errorf("usage: loxvm %s <program>\navailable programs: %s", subcommand, programNames())
	}
	prog, ok := demo.Lookup(name)
	if !ok {
		return demo.Program{}, fmt.Errorf("no such demo program %q; available: %s", name, programNames())
	}
	return prog, nil
}

// runREPL is an immediate-mode shell over the demo registry: since there is
// no Lox source compiler in this module, the REPL's "input" is a demo
// program name or one of the REPL's own commands (list, gc, :help, :quit)
// rather than Lox source text. The loop
// dispatches by name against one persistent VM, so globals and other
// session state still persist across inputs the way a real source REPL's
// would.
func runREPL() error {
	fmt.Println("loxvm repl — type a demo program name to run it, 'list' to see them, ':quit' to exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	v := vm.New()
	cfg := config.Default()
	fmt.Printf("(frames_max=%d, stack_slots_per_frame=%d)\n", cfg.FramesMax, cfg.StackSlotsPerFrame)

	for {
		input, err := line.Prompt("loxvm> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case ":quit", ":exit":
			return nil
		case ":help":
			printREPLHelp()
			continue
		case "list":
			for _, name := range demo.Names() {
				prog, _ := demo.Lookup(name)
				fmt.Printf("  %-12s %s\n", prog.Name, prog.Description)
			}
			continue
		case "gc":
			freed := v.CollectGarbage()
			fmt.Printf("freed %d bytes; heap now %d bytes\n", freed, v.GCHeapSize())
			continue
		}

		prog, ok := demo.Lookup(input)
		if !ok {
			color.Yellow("unknown program or command %q (try 'list' or ':help')", input)
			continue
		}
		res, err := v.Interpret(prog.Build())
		if err != nil {
			color.Red("runtime error: %v", err)
			continue
		}
		if res != vm.InterpretOK {
			color.Red("interpreter returned %v", res)
		}
	}
}

func printREPLHelp() {
	fmt.Println("Commands:")
	fmt.Println("  list        show available demo programs")
	fmt.Println("  gc          force a collection and report bytes freed")
	fmt.Println("  :help       show this help")
	fmt.Println("  :quit       exit")
	fmt.Println()
	fmt.Println("Anything else is looked up as a demo program name and run")
	fmt.Println("against this session's persistent VM (globals carry over).")
}
