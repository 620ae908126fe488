// Command splc compiles SPL source to x86-64 NASM assembly text.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/compiler"
	"github.com/gmofishsauce/splc/internal/diag"
	"github.com/gmofishsauce/splc/internal/symtab"
	"github.com/gmofishsauce/splc/internal/token"
)

var log zerolog.Logger

var command = &cobra.Command{
	Use:   "splc [source]",
	Short: "compile SPL source to x86-64 NASM assembly",
	Args:  cobra.MaximumNArgs(1),
	Run:   run,
}

func init() {
	command.PersistentFlags().StringP("output", "o", "", "output path (default stdout)")
	command.PersistentFlags().Bool("trace-phases", false, "log phase counts and timings at debug level")
	command.PersistentFlags().Bool("dump-tokens", false, "after a successful compile, print the token stream to stderr")
	command.PersistentFlags().Bool("dump-ast", false, "after a successful compile, print the declaration list to stderr")
	command.PersistentFlags().Bool("dump-symbols", false, "after a successful compile, print the symbol arena to stderr")

	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	traceFlag, _ := cmd.Flags().GetBool("trace-phases")
	dumpTokens, _ := cmd.Flags().GetBool("dump-tokens")
	dumpAST, _ := cmd.Flags().GetBool("dump-ast")
	dumpSymbols, _ := cmd.Flags().GetBool("dump-symbols")
	outputPath, _ := cmd.Flags().GetString("output")

	if traceFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	in := os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	trace := func(phase, detail string) {
		log.Debug().Str("phase", phase).Msg(detail)
	}

	result, err := compiler.Compile(in, out, trace)
	if err != nil {
		fmt.Fprintf(out, "%s %s\n", diag.Prefix(err), err)
		os.Exit(1)
	}

	if dumpTokens {
		dumpTokenStream(result.Tokens)
	}
	if dumpAST {
		dumpDecls(result.Program)
	}
	if dumpSymbols {
		dumpArena(result.Arena)
	}
}

func dumpTokenStream(toks []token.Token) {
	for _, t := range toks {
		fmt.Fprintf(os.Stderr, "%4d: %s\n", t.Line, t)
	}
}

func dumpDecls(prog *ast.Program) {
	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.TypeDecl:
			fmt.Fprintf(os.Stderr, "type %s (line %d)\n", decl.Name, decl.LineNo)
		case *ast.ProcDecl:
			fmt.Fprintf(os.Stderr, "proc %s/%d (line %d)\n", decl.Name, len(decl.Params), decl.LineNo)
		}
	}
}

func dumpArena(arena *symtab.Arena) {
	for i, e := range arena.Entries {
		fmt.Fprintf(os.Stderr, "%4d: kind=%d name=%q\n", i, e.Kind, e.Name)
	}
}
