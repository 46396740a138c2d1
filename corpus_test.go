package lammm

import (
	"io"
	"strings"
	"testing"
)

// --- sample program corpus ---------------------------------------------------

// Simple statement to test arithmetic, ifz and mu' abstractions.
const stmtIfzSimple = "(- 2 2 (mu' x (ifz x [123 <END>] [x <END>])))\n"

// A silly definition to showcase namespace separation.
const defSilly = "(def foo (foo) (foo) [foo foo])"

// Map f over xs and feed the result into then.
const defListMap = `(def ListMap (f xs) (then)
  [xs
   (case ((Nil         [(Nil) then])
          (Cons (x xs) [(Cons ((mu xThen [f (Ap (x) (xThen))])
                               (mu xsThen (ListMap (f xs) (xsThen)))))
                        then])))])
`

// Sum the elements of p and feed the result into then.
const defPairSum = `(def PairSum (p) (then)
  [p (case ((Pair (a b) (+ a b then))))])
`

// Combine ListMap and PairSum to sum the elements of a list of pairs.
const stmtMapSumPair = `(ListMap ((cocase ((Ap (p) (then) (PairSum (p) (then)))))
          (Cons ((Pair (1 2)) (Cons ((Pair (3 4)) (Nil))))))
         (<END>))
`

// Ill-typed statement: a heterogeneous list.
const stmtPolyListBad = "[(Cons (1 (Cons ((Nil) (Nil))))) <END>]"

// Ill-typed definition: polymorphic recursion.
const defPolyRecursionBad = "(def PolyRec (x) () \n   (PolyRec ((Pair (x x))) ()))"

// --- shared helpers ----------------------------------------------------------

func mustParseProgram(t *testing.T, src string) (Program, *Parser, *TypingContext) {
	t.Helper()
	ctx := DefaultTypingContext()
	parser := NewParser(ctx)
	program, err := parser.ParseProgram(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseProgram error: %v\nsource:\n%s", err, src)
	}
	return program, parser, ctx
}

func mustTypecheck(t *testing.T, src string) (Program, *Parser, *TypingContext) {
	t.Helper()
	program, parser, ctx := mustParseProgram(t, src)
	if err := TypeProgram(&program, ctx); err != nil {
		t.Fatalf("TypeProgram error: %v\nsource:\n%s", err, src)
	}
	return program, parser, ctx
}

// mustRun runs a program through the whole pipeline without trace output
// and returns the statement results.
func mustRun(t *testing.T, src string) []Producer {
	t.Helper()
	results, err := Run(src, InterpreterOptions{}, io.Discard)
	if err != nil {
		t.Fatalf("Run error: %v\nsource:\n%s", err, src)
	}
	return results
}

// resultStrings prints each result in the default ASCII form.
func resultStrings(results []Producer) []string {
	out := make([]string, len(results))
	for i, result := range results {
		out[i] = PrintString(result, PrintOptions{}, nil)
	}
	return out
}

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", sub, s)
	}
}
