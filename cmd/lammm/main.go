// Command lammm runs and interactively evaluates programs of the Core
// 𝜆𝜇𝜇̃ calculus.
//
// Usage:
//
//	lammm run [flags] [file]    Run a program from a file or standard input.
//	lammm repl [flags]          Start the interactive REPL.
//	lammm version               Print the version.
//
// Diagnostics go to standard error as "<ErrorName>: <message>"; trace
// output and results go to standard output. Exit codes: 0 success, 1 parse
// error, 2 type error, 3 runtime error.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	lammm "github.com/kjmnn/lammm"
)

const (
	appName     = "lammm"
	historyFile = ".lammm_history"
	promptMain  = "==> "
	promptCont  = "... "
)

var banner = fmt.Sprintf("lammm %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", lammm.Version)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(lammm.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`lammm %s

Usage:
  %s run [flags] [file]    Run a program from a file (default: standard input).
  %s repl [flags]          Start the REPL.
  %s version               Print the version.

Run flags:
  -trace                Enable all trace output.
  -print-definitions    Print definitions before running.
  -print-start          Print each statement before executing it.
  -print-intermediate   Print intermediate statements.
  -print-info           Print reduction and focusing rules as they fire.
  -print-types          Print inferred types where available.
  -no-results           Do not print final results.
`, lammm.Version, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "enable all trace output")
	printDefinitions := fs.Bool("print-definitions", false, "print definitions before running")
	printStart := fs.Bool("print-start", false, "print each statement before executing it")
	printIntermediate := fs.Bool("print-intermediate", false, "print intermediate statements")
	printInfo := fs.Bool("print-info", false, "print reduction and focusing rules")
	printTypes := fs.Bool("print-types", false, "print inferred types")
	noResults := fs.Bool("no-results", false, "do not print final results")
	_ = fs.Parse(args)

	options := lammm.InterpreterOptions{
		PrintDefinitions:  *trace || *printDefinitions,
		PrintStart:        *trace || *printStart,
		PrintIntermediate: *trace || *printIntermediate,
		PrintResults:      !*noResults,
		PrintInfo:         *trace || *printInfo,
		PrintTypes:        *printTypes,
	}

	var src []byte
	var err error
	if fs.NArg() > 0 {
		src, err = os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, fs.Arg(0), err)
			return 1
		}
	} else {
		src, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read standard input: %v\n", appName, err)
			return 1
		}
	}

	if _, err := lammm.Run(string(src), options, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, lammm.WrapErrorWithSource(err, string(src)).Error())
		return exitCode(err)
	}
	return 0
}

// exitCode maps an error to the documented exit code of its pipeline
// stage.
func exitCode(err error) int {
	var lerr lammm.Error
	if !errors.As(err, &lerr) {
		return 1
	}
	switch lerr.Name() {
	case "Type error", "Unification error":
		return 2
	case "Interpreter error":
		return 3
	default:
		return 1
	}
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	trace := fs.Bool("trace", false, "enable trace output")
	_ = fs.Parse(args)

	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	options := lammm.InterpreterOptions{
		PrintResults:      true,
		PrintIntermediate: *trace,
		PrintInfo:         *trace,
	}

	// The typing context, parser state and definitions persist for the
	// whole session; each submitted statement runs in a fresh single-shot
	// interpreter.
	ctx := lammm.DefaultTypingContext()
	parser := lammm.NewParser(ctx)
	var definitions []lammm.Definition

	for {
		code, ok := readBalanced(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		program, err := parser.ParseProgram(strings.NewReader(code))
		if err != nil {
			fmt.Fprintln(os.Stderr, lammm.WrapErrorWithSource(err, code).Error())
			continue
		}
		definitions = append(definitions, program.Definitions...)

		typer := lammm.NewTyper(ctx, definitions)
		typeErr := false
		for i := len(definitions) - len(program.Definitions); i < len(definitions); i++ {
			if err := typer.CheckDefinition(&definitions[i]); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				typeErr = true
			}
		}
		for _, statement := range program.Statements {
			if err := typer.CheckStatement(statement); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				typeErr = true
			}
		}
		if typeErr || len(program.Statements) == 0 {
			ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
			continue
		}

		run := lammm.Program{Definitions: definitions, Statements: program.Statements}
		interpreter := lammm.NewInterpreter(parser.NVars(), parser.NCovars(), run, options, os.Stdout, ctx)
		if _, err := interpreter.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readBalanced reads lines until the parentheses and brackets balance,
// using the continuation prompt for follow-up lines. The second result is
// false on EOF.
func readBalanced(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if balance(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

// balance counts unclosed parentheses and brackets. The surface syntax has
// no strings or comments, so a raw count is accurate.
func balance(src string) int {
	depth := 0
	for _, ch := range src {
		switch ch {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
	}
	return depth
}
