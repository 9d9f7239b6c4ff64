// Command microphpc compiles a microphp source file into a bytecode
// container: `microphpc <input> -o <output> [-v]`.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wudi/microphp/compiler"
	"github.com/wudi/microphp/internal/bytecode"
	"github.com/wudi/microphp/lexer"
	"github.com/wudi/microphp/parser"
	"github.com/wudi/microphp/version"
)

func main() {
	app := &cli.Command{
		Name:  "microphpc",
		Usage: "compile a microphp source file into a bytecode container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output bytecode file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print a phase marker (with a count) for lexing, parsing, lowering and emitting",
			},
			&cli.BoolFlag{
				Name:  "version",
				Usage: "print the compiler version and exit",
				Action: func(_ context.Context, _ *cli.Command, _ bool) error {
					fmt.Println(version.Version())
					os.Exit(0)
					return nil
				},
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			input := cmd.Args().First()
			if input == "" {
				return cli.Exit("microphpc: missing <input> file", 1)
			}
			output := cmd.String("output")
			if output == "" {
				output = input + ".mbc"
			}
			return compile(input, output, cmd.Bool("verbose"))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "microphpc: %v\n", err)
		os.Exit(1)
	}
}

func compile(input, output string, verbose bool) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Printf("lexing %s\n", input)
	}
	tokenCount, err := countTokens(string(src))
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("  %d tokens\n", tokenCount)
	}

	if verbose {
		fmt.Println("parsing")
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("  %d top-level statements\n", len(prog.Statements))
	}

	if verbose {
		fmt.Println("lowering")
	}
	mod, err := compiler.Compile(prog)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("  %d functions, %d constants\n", len(mod.Functions), len(mod.Constants))
	}

	if verbose {
		fmt.Println("emitting")
	}
	data := bytecode.Encode(mod)
	if verbose {
		fmt.Printf("  %d bytes -> %s\n", len(data), output)
	}

	return os.WriteFile(output, data, 0o644)
}

// countTokens re-lexes the source purely to report the `-v` token
// count; Parse already performs its own lexing pass internally.
func countTokens(src string) (int, error) {
	l := lexer.New(src)
	n := 0
	for {
		tok, err := l.Next()
		if err != nil {
			return 0, err
		}
		n++
		if tok.Type == lexer.EOF {
			return n, nil
		}
	}
}
