// Command microvm loads and runs a compiled microphp bytecode
// container, or opens an interactive line-editing shell with -i.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/wudi/microphp/compiler"
	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/parser"
	"github.com/wudi/microphp/runtime"
	"github.com/wudi/microphp/version"
	"github.com/wudi/microphp/vm"
)

func main() {
	app := &cli.Command{
		Name:  "microvm",
		Usage: "run a microphp bytecode file, or -i for an interactive shell",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "open a line-editing REPL instead of running a file",
			},
			&cli.BoolFlag{
				Name:  "version",
				Usage: "print the VM version and exit",
				Action: func(_ context.Context, _ *cli.Command, _ bool) error {
					fmt.Println(version.Version())
					os.Exit(0)
					return nil
				},
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Bool("interactive") {
				return runREPL()
			}
			input := cmd.Args().First()
			if input == "" {
				return cli.Exit("microvm: missing <bytecode-file>", 1)
			}
			return runFile(input)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "microvm: %v\n", err)
		os.Exit(1)
	}
}

func runFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	reg := runtime.NewRegistry(runtime.NewSystemClock(), os.Stdout)
	ctx := vm.NewContext(reg)
	if err := ctx.Load(data); err != nil {
		return err
	}
	defer ctx.Destroy()
	return ctx.Run()
}

// runREPL compiles and runs each line as a standalone program against
// one persistent VM context: globals live on the Context itself and
// survive a Load (which only swaps the module's functions/constants),
// while a shared compiler.Compiler keeps successive lines' global
// names mapped to the same slots.
func runREPL() error {
	rl, err := readline.New("microphp> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	reg := runtime.NewRegistry(runtime.NewSystemClock(), os.Stdout)
	ctx := vm.NewContext(reg)
	defer ctx.Destroy()
	comp := compiler.New()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		runLine(ctx, comp, line)
	}
}

func runLine(ctx *vm.Context, comp *compiler.Compiler, line string) {
	prog, err := parser.Parse(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	mod, err := comp.CompileProgram(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if err := ctx.Load(bytecode.Encode(mod)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if err := ctx.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
