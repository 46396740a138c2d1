// run.go — the parse → typecheck → interpret pipeline in one call.
package lammm

import (
	"io"
	"strings"
)

// Run parses a whole program from src, typechecks it under a fresh default
// typing context and interprets it, writing trace output and results to
// out. It returns the final producer of each statement.
//
// The returned error reports the first failing stage: a parse error halts
// before typing, a *MultipleTypingError halts before interpreting, and an
// interpreter error aborts the remaining statements.
func Run(src string, options InterpreterOptions, out io.Writer) ([]Producer, error) {
	ctx := DefaultTypingContext()
	parser := NewParser(ctx)
	program, err := parser.ParseProgram(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	if err := TypeProgram(&program, ctx); err != nil {
		return nil, err
	}
	interpreter := NewInterpreter(parser.NVars(), parser.NCovars(), program, options, out, ctx)
	return interpreter.Run()
}
