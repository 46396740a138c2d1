package lammm

import (
	"errors"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

// --- roundtrips --------------------------------------------------------------

// Parsing a printed program must yield an AST that prints identically.
func Test_Parser_PrintParseRoundtrip(t *testing.T) {
	programs := []string{
		stmtIfzSimple,
		defSilly,
		defListMap,
		defPairSum,
		defListMap + defPairSum + stmtMapSumPair,
		stmtPolyListBad,
		defPolyRecursionBad,
	}
	for _, src := range programs {
		first, _, _ := mustParseProgram(t, src)
		printed := PrintString(&first, PrintOptions{}, nil)
		second, _, _ := mustParseProgram(t, printed)
		reprinted := PrintString(&second, PrintOptions{}, nil)
		if printed != reprinted {
			t.Log(src)
			pretty.Ldiff(t, printed, reprinted)
			t.Fail()
		}
	}
}

// The Unicode spellings parse to the same AST as the ASCII ones.
func Test_Parser_UnicodeMu(t *testing.T) {
	ascii, _, _ := mustParseProgram(t, "[(mu a [1 a]) (mu' x [x <END>])]")
	unicode, _, _ := mustParseProgram(t, "[(μ a [1 a]) (μ' x [x <END>])]")
	want := PrintString(&ascii, PrintOptions{}, nil)
	got := PrintString(&unicode, PrintOptions{}, nil)
	if want != got {
		pretty.Ldiff(t, want, got)
		t.Fail()
	}
}

// --- scoping -----------------------------------------------------------------

func Test_Parser_UnknownVariable(t *testing.T) {
	_, err := parseProgramErr("[x <END>]")
	var unknown *UnknownNameError
	if !errors.As(err, &unknown) {
		t.Fatalf("want *UnknownNameError, got %#v", err)
	}
	if unknown.SyntaxKind != "variable" || unknown.Ident != "x" {
		t.Fatalf("unexpected error contents: %#v", unknown)
	}
}

func Test_Parser_UnknownDefinition(t *testing.T) {
	_, err := parseProgramErr("(Frobnicate () ())")
	var unknown *UnknownNameError
	if !errors.As(err, &unknown) {
		t.Fatalf("want *UnknownNameError, got %#v", err)
	}
	if unknown.SyntaxKind != "definition" {
		t.Fatalf("unexpected syntax kind %q", unknown.SyntaxKind)
	}
}

// A binder goes out of scope when its construct ends.
func Test_Parser_ScopePopping(t *testing.T) {
	// The covariable a is bound only inside the mu body.
	_, err := parseProgramErr("[(mu a [1 a]) (mu' x [x a])]")
	var unknown *UnknownNameError
	if !errors.As(err, &unknown) {
		t.Fatalf("want *UnknownNameError, got %#v", err)
	}
	if unknown.SyntaxKind != "covariable" || unknown.Ident != "a" {
		t.Fatalf("unexpected error contents: %#v", unknown)
	}
}

// Shadowing resolves to the innermost binder, and pops back out.
func Test_Parser_Shadowing(t *testing.T) {
	program, _, _ := mustParseProgram(t, "[(mu a (+ 1 2 (mu' x [(mu a [x a]) a]))) <END>]")
	cut := program.Statements[0].(*Cut)
	outer := cut.Producer.(*Mu)
	arith := outer.Body.(*Arithmetic)
	muTilde := arith.After.(*MuTilde)
	innerCut := muTilde.Body.(*Cut)
	inner := innerCut.Producer.(*Mu)
	innerUse := inner.Body.(*Cut).Consumer.(*Covariable)
	outerUse := innerCut.Consumer.(*Covariable)
	if innerUse.ID != inner.CoargID {
		t.Fatalf("inner a resolved to %d, want %d", innerUse.ID, inner.CoargID)
	}
	if outerUse.ID != outer.CoargID {
		t.Fatalf("outer a resolved to %d, want %d", outerUse.ID, outer.CoargID)
	}
}

// Variables, covariables and definitions live in separate namespaces.
func Test_Parser_NamespaceSeparation(t *testing.T) {
	program, _, _ := mustParseProgram(t, defSilly+"\n(foo (5) (<END>))")
	if len(program.Definitions) != 1 || len(program.Statements) != 1 {
		t.Fatalf("unexpected program shape: %d definitions, %d statements",
			len(program.Definitions), len(program.Statements))
	}
	def := program.Definitions[0]
	cut := def.Body.(*Cut)
	if cut.Producer.(*Variable).ID != def.ArgIDs[0] {
		t.Fatalf("body variable does not resolve to the parameter")
	}
	if cut.Consumer.(*Covariable).ID != def.CoargIDs[0] {
		t.Fatalf("body covariable does not resolve to the coparameter")
	}
	call := program.Statements[0].(*Call)
	if call.DefinitionID != 0 {
		t.Fatalf("call does not resolve to the definition table")
	}
}

// --- arity and totality ------------------------------------------------------

func Test_Parser_ConstructorArityMismatch(t *testing.T) {
	_, err := parseProgramErr("[(Cons (1)) <END>]")
	var mismatch *ArityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want *ArityMismatchError, got %#v", err)
	}
	if mismatch.Expected != 2 || mismatch.Actual != 1 || mismatch.Polarity != PolarityProducer {
		t.Fatalf("unexpected error contents: %#v", mismatch)
	}
}

func Test_Parser_CallCoarityMismatch(t *testing.T) {
	_, err := parseProgramErr(defSilly + "\n(foo (5) ())")
	var mismatch *ArityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want *ArityMismatchError, got %#v", err)
	}
	if mismatch.Polarity != PolarityConsumer {
		t.Fatalf("want coarity mismatch, got %#v", mismatch)
	}
	mustContain(t, err.Error(), "coarity mismatch")
}

func Test_Parser_IncompleteClauseList(t *testing.T) {
	_, err := parseProgramErr("[(Nil) (case ((Nil [1 <END>])))]")
	mustParseError(t, err, "incomplete clause list")
}

func Test_Parser_DuplicateClause(t *testing.T) {
	_, err := parseProgramErr("[(Nil) (case ((Nil [1 <END>]) (Nil [2 <END>])))]")
	mustParseError(t, err, "Duplicate or mismatched structor: Nil")
}

func Test_Parser_CrossTypeClauses(t *testing.T) {
	_, err := parseProgramErr("[(Nil) (case ((Nil [1 <END>]) (Cons (x xs) [x <END>]) (Pair (a b) [a <END>])))]")
	mustParseError(t, err, "Duplicate or mismatched structor: Pair")
}

func Test_Parser_EmptyClauseList(t *testing.T) {
	_, err := parseProgramErr("[(Nil) (case ())]")
	mustParseError(t, err, "empty clause list")
}

// --- definitions -------------------------------------------------------------

func Test_Parser_DuplicateDefinition(t *testing.T) {
	_, err := parseProgramErr(defSilly + "\n" + defSilly)
	mustParseError(t, err, "Repeated definition of foo")
}

func Test_Parser_ReservedName(t *testing.T) {
	_, err := parseProgramErr("(def ifz (x) () [x <END>])")
	mustParseError(t, err, "ifz is a reserved name")
}

// Definitions may call themselves; the name is registered before the body
// is parsed.
func Test_Parser_RecursiveDefinition(t *testing.T) {
	mustParseProgram(t, "(def Loop (x) () (Loop (x) ()))")
}

// --- literals and words ------------------------------------------------------

func Test_Parser_NegativeLiteral(t *testing.T) {
	program, _, _ := mustParseProgram(t, "[-42 <END>]")
	literal := program.Statements[0].(*Cut).Producer.(*Literal)
	if literal.Value != -42 {
		t.Fatalf("want -42, got %d", literal.Value)
	}
}

func Test_Parser_InvalidLiteral(t *testing.T) {
	_, err := parseProgramErr("[-4x2 <END>]")
	mustParseError(t, err, "invalid integer literal: -4x2")
}

func Test_Parser_UnexpectedEOF(t *testing.T) {
	_, err := parseProgramErr("[(Nil) ")
	var unexpected *UnexpectedCharError
	if !errors.As(err, &unexpected) {
		t.Fatalf("want *UnexpectedCharError, got %#v", err)
	}
	mustContain(t, err.Error(), "unexpected end of input")
}

// Errors report both the failing line and the enclosing construct's line.
func Test_Parser_ErrorLines(t *testing.T) {
	_, err := parseProgramErr("[(mu a\n   [1 a])\n x]")
	var unknown *UnknownNameError
	if !errors.As(err, &unknown) {
		t.Fatalf("want *UnknownNameError, got %#v", err)
	}
	if unknown.CauseLine() != 3 {
		t.Fatalf("want cause line 3, got %d", unknown.CauseLine())
	}
	mustContain(t, err.Error(), "On line 3")
}

// --- helpers -----------------------------------------------------------------

func parseProgramErr(src string) (Program, error) {
	ctx := DefaultTypingContext()
	parser := NewParser(ctx)
	return parser.ParseProgram(strings.NewReader(src))
}

func mustParseError(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected a parse error containing %q, got nil", substr)
	}
	var perr Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected a package error, got %#v", err)
	}
	if perr.Name() != "Parse error" {
		t.Fatalf("expected a parse error, got %q", perr.Name())
	}
	mustContain(t, err.Error(), substr)
}
