package lammm

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// --- end-to-end scenarios ----------------------------------------------------

func Test_Interpreter_IfzSimple(t *testing.T) {
	results := resultStrings(mustRun(t, stmtIfzSimple))
	if len(results) != 1 || results[0] != "123" {
		t.Fatalf("want [123], got %v", results)
	}
}

func Test_Interpreter_MapSumPair(t *testing.T) {
	results := resultStrings(mustRun(t, defListMap+defPairSum+stmtMapSumPair))
	if len(results) != 1 || results[0] != "(Cons (3 (Cons (7 (Nil)))))" {
		t.Fatalf("want [(Cons (3 (Cons (7 (Nil)))))], got %v", results)
	}
}

// Variable foo shadows definition foo inside the body, but the call
// resolves against the definition table.
func Test_Interpreter_NamespaceSeparation(t *testing.T) {
	results := resultStrings(mustRun(t, defSilly+"\n(foo (5) (<END>))"))
	if len(results) != 1 || results[0] != "5" {
		t.Fatalf("want [5], got %v", results)
	}
}

// --- arithmetic --------------------------------------------------------------

func Test_Interpreter_Arithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"(+ 2 3 <END>)", "5"},
		{"(- 2 3 <END>)", "-1"},
		{"(* 4 -3 <END>)", "-12"},
		{"(/ 7 2 <END>)", "3"},
		{"(/ -7 2 <END>)", "-3"},
		{"(% 7 2 <END>)", "1"},
		{"(% -7 2 <END>)", "-1"},
		// Division by zero yields 1, modulo by zero the dividend.
		{"(/ 7 0 <END>)", "1"},
		{"(% 7 0 <END>)", "7"},
		{"(% -7 0 <END>)", "-7"},
		// Overflow wraps.
		{"(+ 9223372036854775807 1 <END>)", "-9223372036854775808"},
		{"(* -9223372036854775808 -1 <END>)", "-9223372036854775808"},
	}
	for _, c := range cases {
		results := resultStrings(mustRun(t, c.src))
		if len(results) != 1 || results[0] != c.want {
			t.Fatalf("%s: want %s, got %v", c.src, c.want, results)
		}
	}
}

// Non-value operands get focused before the operation fires.
func Test_Interpreter_ArithmeticFocusing(t *testing.T) {
	results := resultStrings(mustRun(t, "(+ (mu a (+ 1 2 a)) (mu b (* 2 3 b)) <END>)"))
	if len(results) != 1 || results[0] != "9" {
		t.Fatalf("want [9], got %v", results)
	}
}

func Test_Interpreter_IfzBranches(t *testing.T) {
	results := resultStrings(mustRun(t, "(ifz 0 [1 <END>] [2 <END>])\n(ifz 7 [1 <END>] [2 <END>])"))
	if len(results) != 2 || results[0] != "1" || results[1] != "2" {
		t.Fatalf("want [1 2], got %v", results)
	}
}

// --- reduction order ---------------------------------------------------------

// A mu abstraction on the left of a cut wins even against a mu' on the
// right: mu captures the current continuation.
func Test_Interpreter_MuBeatsMuTilde(t *testing.T) {
	results := resultStrings(mustRun(t, "[(mu a [1 a]) (mu' x [2 <END>])]"))
	if len(results) != 1 || results[0] != "2" {
		t.Fatalf("want [2], got %v", results)
	}
}

// Constructor arguments evaluate left to right under call-by-value.
func Test_Interpreter_ConstructorFocusing(t *testing.T) {
	results := resultStrings(mustRun(t,
		"[(Cons ((mu a (+ 1 1 a)) (Cons ((mu b (* 2 2 b)) (Nil))))) <END>]"))
	if len(results) != 1 || results[0] != "(Cons (2 (Cons (4 (Nil)))))" {
		t.Fatalf("unexpected results %v", results)
	}
}

func Test_Interpreter_CaseDispatch(t *testing.T) {
	results := resultStrings(mustRun(t,
		"[(Cons (1 (Nil))) (case ((Nil [0 <END>]) (Cons (x xs) [x <END>])))]"))
	if len(results) != 1 || results[0] != "1" {
		t.Fatalf("want [1], got %v", results)
	}
}

func Test_Interpreter_CocaseDispatch(t *testing.T) {
	results := resultStrings(mustRun(t, "[(cocase ((Ap (x) (k) (+ x 1 k)))) (Ap (41) (<END>))]"))
	if len(results) != 1 || results[0] != "42" {
		t.Fatalf("want [42], got %v", results)
	}
}

// Destructor arguments are focused before the cocase clause fires.
func Test_Interpreter_DestructorFocusing(t *testing.T) {
	results := resultStrings(mustRun(t,
		"[(cocase ((Ap (x) (k) (+ x 1 k)))) (Ap ((mu a (* 6 7 a))) (<END>))]"))
	if len(results) != 1 || results[0] != "43" {
		t.Fatalf("want [43], got %v", results)
	}
}

func Test_Interpreter_StreamHead(t *testing.T) {
	results := resultStrings(mustRun(t, `(def Ones () (s)
  [(cocase ((Head (k) [1 k])
            (Tail (k) (Ones () (k))))) s])
(Ones () ((Head (<END>))))
`))
	if len(results) != 1 || results[0] != "1" {
		t.Fatalf("want [1], got %v", results)
	}
}

// --- substitution ------------------------------------------------------------

// Replacing a binder's variable inside its own body is a no-op; a free
// variable is replaced everywhere.
func Test_Interpreter_SubstitutionShadowing(t *testing.T) {
	free := &Variable{ID: 0, Name: "x"}
	shadowed := &MuTilde{ArgID: 0, ArgName: "x", Body: &Cut{
		Producer: &Variable{ID: 0, Name: "x"},
		Consumer: &End{},
	}}
	stmt := &Cut{Producer: free, Consumer: shadowed}
	replaced := replaceStatement(stmt, varMap{0: &Literal{Value: 7}}, nil).(*Cut)
	if _, ok := replaced.Producer.(*Literal); !ok {
		t.Fatalf("free occurrence not replaced: %#v", replaced.Producer)
	}
	inner := replaced.Consumer.(*MuTilde).Body.(*Cut).Producer
	if _, ok := inner.(*Variable); !ok {
		t.Fatalf("shadowed occurrence replaced: %#v", inner)
	}
}

func Test_Interpreter_SubstitutionCopies(t *testing.T) {
	replacement := &Literal{Value: 1}
	stmt := &Cut{
		Producer: &Constructor{
			AbstractionID: AbsPair,
			Name:          structorNamePair,
			Args:          []Producer{&Variable{ID: 0, Name: "x"}, &Variable{ID: 0, Name: "x"}},
		},
		Consumer: &End{},
	}
	replaced := replaceStatement(stmt, varMap{0: replacement}, nil).(*Cut)
	args := replaced.Producer.(*Constructor).Args
	if args[0] == Producer(replacement) || args[1] == Producer(replacement) || args[0] == args[1] {
		t.Fatalf("substitution must insert fresh copies")
	}
}

// A constructor's value memo must be invalidated when substitution can
// turn it into a value.
func Test_Interpreter_ValueMemoInvalidation(t *testing.T) {
	ctor := &Constructor{
		AbstractionID: AbsCons,
		Name:          structorNameCons,
		Args: []Producer{
			&Variable{ID: 0, Name: "x"},
			&Constructor{AbstractionID: AbsNil, Name: structorNameNil},
		},
	}
	if isValue(ctor) {
		t.Fatalf("a constructor with a variable argument is not a value")
	}
	replaced := replaceProducer(ctor, varMap{0: &Literal{Value: 1}}, nil)
	if !isValue(replaced) {
		t.Fatalf("the memo was not invalidated by substitution")
	}
}

// --- error paths -------------------------------------------------------------

func Test_Interpreter_AlreadyRun(t *testing.T) {
	program, parser, ctx := mustTypecheck(t, "[1 <END>]")
	interpreter := NewInterpreter(parser.NVars(), parser.NCovars(), program,
		InterpreterOptions{}, io.Discard, ctx)
	if _, err := interpreter.Run(); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	_, err := interpreter.Run()
	var already *AlreadyRunError
	if !errors.As(err, &already) {
		t.Fatalf("want *AlreadyRunError, got %#v", err)
	}
}

// A statement the typer never saw can get stuck; a cut on a bare variable
// has no applicable rule.
func Test_Interpreter_StuckComputation(t *testing.T) {
	program := Program{Statements: []Statement{
		&Cut{Producer: &Variable{ID: 0, Name: "x"}, Consumer: &End{}},
	}}
	interpreter := NewInterpreter(1, 0, program, InterpreterOptions{}, io.Discard, nil)
	_, err := interpreter.Run()
	var stuck *StuckComputationError
	if !errors.As(err, &stuck) {
		t.Fatalf("want *StuckComputationError, got %#v", err)
	}
	mustContain(t, err.Error(), "No reduction or focusing rule found")
}

// Programs accepted by the typer never get stuck.
func Test_Interpreter_TypedProgramsDoNotGetStuck(t *testing.T) {
	programs := []string{
		stmtIfzSimple,
		defListMap + defPairSum + stmtMapSumPair,
		defSilly + "\n(foo (5) (<END>))",
		"[(cocase ((Fst (k) [1 k]) (Snd (k) [2 k]))) (Snd (<END>))]",
	}
	for _, src := range programs {
		mustRun(t, src)
	}
}

// --- tracing -----------------------------------------------------------------

func Test_Interpreter_TraceBanners(t *testing.T) {
	program, parser, ctx := mustTypecheck(t, stmtIfzSimple)
	var out strings.Builder
	interpreter := NewInterpreter(parser.NVars(), parser.NCovars(), program,
		InterpreterOptions{PrintStart: true, PrintInfo: true, PrintResults: true}, &out, ctx)
	if _, err := interpreter.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	trace := out.String()
	mustContain(t, trace, "-- Evaluating next statement --")
	mustContain(t, trace, "-- Reduce: Arithmetic --")
	mustContain(t, trace, "-- Reduce: Mu' --")
	mustContain(t, trace, "-- Reduce: If-zero (zero) --")
	mustContain(t, trace, "-- Finished! --")
	mustContain(t, trace, "123")
}

// Focusing binds fresh variables with readable names.
func Test_Interpreter_FocusVariableNames(t *testing.T) {
	program, parser, ctx := mustTypecheck(t, "(+ (mu a (+ 1 2 a)) 4 <END>)")
	var out strings.Builder
	interpreter := NewInterpreter(parser.NVars(), parser.NCovars(), program,
		InterpreterOptions{PrintIntermediate: true, PrintInfo: true}, &out, ctx)
	if _, err := interpreter.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	trace := out.String()
	mustContain(t, trace, "-- Focus: Arithmetic (left) --")
	mustContain(t, trace, "_ar_l")
}
