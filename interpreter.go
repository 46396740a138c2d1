// interpreter.go — the small-step reduction engine.
//
// OVERVIEW
// --------
// The interpreter reduces statements under call-by-value with three
// primitive mechanisms:
//
//   - β-reduction at cuts: a mu abstraction on the left captures the
//     consumer, a mu' abstraction on the right captures the producer (once
//     the producer is a value), and constructor/case and cocase/destructor
//     pairs dispatch to the matching clause.
//   - arithmetic and if-zero reduction on integer literals.
//   - focusing: when a statement needs a subterm to be a value and it is
//     not one, the subterm is lifted out and bound to a fresh variable so
//     it gets evaluated first. No evaluation context is ever built; the
//     rewritten statement is simply wrapped inside a fresh mu'
//     abstraction, which keeps everything tree-shaped.
//
// Substitution copies each replacement and respects shadowing by stripping
// the shadowed binders from the substitution maps before descending.
//
// The numeric semantics are total on purpose: 64-bit operations wrap,
// division by zero yields 1 and modulo by zero yields the dividend, so an
// ill-reduced program can never raise a host-language exception.
//
// An interpreter instance mutates its own state while running and can
// therefore run only once; a second Run is rejected.
package lammm

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// InterpreterOptions selects what the interpreter prints while running.
type InterpreterOptions struct {
	// PrintDefinitions prints the definitions before running.
	PrintDefinitions bool
	// PrintStart prints each statement before executing it.
	PrintStart bool
	// PrintIntermediate prints every intermediate statement.
	PrintIntermediate bool
	// PrintResults prints the final producer of each statement.
	PrintResults bool
	// PrintInfo prints extra information, e.g. which rule fired.
	PrintInfo bool
	// PrintTypes prints types when printing definitions and initial
	// statements.
	PrintTypes bool
}

// Reduction and focusing banners.
const (
	infoDefinitions      = "-- Definitions --"
	infoStart            = "-- Evaluating next statement --"
	infoArithmetic       = "-- Reduce: Arithmetic --"
	infoArithmeticFocusL = "-- Focus: Arithmetic (left) --"
	infoArithmeticFocusR = "-- Focus: Arithmetic (right) --"
	infoIfzFocus         = "-- Focus: If-zero --"
	infoIfzZero          = "-- Reduce: If-zero (zero) --"
	infoIfzOther         = "-- Reduce: If-zero (other) --"
	infoMuP              = "-- Reduce: Mu --"
	infoConstructorFocus = "-- Focus: Constructor %s (%d) --"
	infoMuC              = "-- Reduce: Mu' --"
	infoCase             = "-- Reduce: Case %s --"
	infoDestructorFocus  = "-- Focus: Destructor %s (%d) --"
	infoCocase           = "-- Reduce: Cocase %s --"
	infoFinished         = "-- Finished! --"
	infoCallFocus        = "-- Focus: Call %s (%d) --"
	infoCall             = "-- Reduce: Call %s --"
)

// Focusing variable names.
const (
	focusVarTemplate = "_%s_%d"
	focusVarArithL   = "_ar_l"
	focusVarArithR   = "_ar_r"
	focusVarIfz      = "_ifz"
)

// Interpreter runs a program's statements to completion. It continues the
// parser's variable and covariable numbering when focusing mints fresh
// ids, so ids stay unique program-wide.
type Interpreter struct {
	options InterpreterOptions
	// Typing context, for display purposes only.
	ctx *TypingContext
	// Set when Run starts; a second Run is rejected.
	finished bool
	out      io.Writer

	nVars       uint64
	nCovars     uint64
	definitions []Definition
	statements  []Statement
}

// NewInterpreter returns an interpreter for the given program. nVars and
// nCovars are the parser's final counts; out receives trace output and
// results. ctx may be nil if options.PrintTypes is unset.
func NewInterpreter(nVars, nCovars uint64, program Program, options InterpreterOptions,
	out io.Writer, ctx *TypingContext) *Interpreter {
	return &Interpreter{
		options:     options,
		ctx:         ctx,
		out:         out,
		nVars:       nVars,
		nCovars:     nCovars,
		definitions: program.Definitions,
		statements:  program.Statements,
	}
}

// Run reduces every statement in order and returns their results, the
// producers that reached the top-level <END> continuation. Reduction of a
// well-typed program either terminates with a result or diverges; a
// *StuckComputationError can only arise on programs that bypassed the
// typer.
func (ip *Interpreter) Run() ([]Producer, error) {
	if ip.finished {
		return nil, &AlreadyRunError{}
	}
	ip.finished = true
	var results []Producer
	if ip.options.PrintDefinitions {
		ip.printInfo(infoDefinitions)
		for i := range ip.definitions {
			PrintTo(ip.out, &ip.definitions[i], PrintOptions{PrintTypes: ip.options.PrintTypes}, ip.ctx)
			fmt.Fprintln(ip.out)
		}
	}
	for _, stmt := range ip.statements {
		if ip.options.PrintStart {
			ip.printInfo(infoStart)
			PrintTo(ip.out, stmt, PrintOptions{PrintTypes: ip.options.PrintTypes}, ip.ctx)
			fmt.Fprintln(ip.out)
		}
		steps := 0
		current := stmt
		var result Producer
		for result == nil {
			if ip.options.PrintIntermediate && steps > 0 {
				PrintTo(ip.out, current, PrintOptions{}, nil)
				fmt.Fprintln(ip.out)
			}
			steps++
			var err error
			current, result, err = ip.step(current)
			if err != nil {
				return nil, err
			}
		}
		if ip.options.PrintResults {
			PrintTo(ip.out, result, PrintOptions{}, nil)
			fmt.Fprintln(ip.out)
		}
		results = append(results, result)
	}
	return results, nil
}

// step performs one reduction step. Exactly one of the returned statement
// and producer is non-nil; a producer means the statement reached
// [value <END>] and the producer is its result.
func (ip *Interpreter) step(stmt Statement) (Statement, Producer, error) {
	switch stmt := stmt.(type) {
	case *Arithmetic:
		return ip.stepArithmetic(stmt)
	case *Ifz:
		return ip.stepIfz(stmt)
	case *Cut:
		return ip.stepCut(stmt)
	case *Call:
		return ip.stepCall(stmt)
	}
	panic(fmt.Sprintf("lammm: unknown statement %T", stmt))
}

func (ip *Interpreter) stepArithmetic(stmt *Arithmetic) (Statement, Producer, error) {
	if !isValue(stmt.Left) {
		ip.printInfo(infoArithmeticFocusL)
		return ip.focusStatement(stmt, &stmt.Left, focusVarArithL), nil, nil
	}
	if !isValue(stmt.Right) {
		ip.printInfo(infoArithmeticFocusR)
		return ip.focusStatement(stmt, &stmt.Right, focusVarArithR), nil, nil
	}
	left, okL := stmt.Left.(*Literal)
	right, okR := stmt.Right.(*Literal)
	if !okL || !okR {
		// Ill-typed operands, we are stuck.
		return nil, nil, &StuckComputationError{Statement: stmt}
	}
	ip.printInfo(infoArithmetic)
	return &Cut{
		Producer: &Literal{Value: doArithmetic(stmt.Op, left.Value, right.Value)},
		Consumer: stmt.After,
	}, nil, nil
}

func (ip *Interpreter) stepIfz(stmt *Ifz) (Statement, Producer, error) {
	if !isValue(stmt.Condition) {
		ip.printInfo(infoIfzFocus)
		return ip.focusStatement(stmt, &stmt.Condition, focusVarIfz), nil, nil
	}
	condition, ok := stmt.Condition.(*Literal)
	if !ok {
		// Ill-typed condition, we are stuck.
		return nil, nil, &StuckComputationError{Statement: stmt}
	}
	if condition.Value == 0 {
		ip.printInfo(infoIfzZero)
		return stmt.IfZero, nil, nil
	}
	ip.printInfo(infoIfzOther)
	return stmt.IfOther, nil, nil
}

func (ip *Interpreter) stepCut(stmt *Cut) (Statement, Producer, error) {
	if mu, ok := stmt.Producer.(*Mu); ok {
		// A mu abstraction captures the consumer; this has the highest
		// priority.
		body := replaceStatement(mu.Body, nil, covarMap{mu.CoargID: stmt.Consumer})
		ip.printInfo(infoMuP)
		return body, nil, nil
	}
	if !isValue(stmt.Producer) {
		// The producer is not a mu abstraction, so the only focusable
		// option left is a non-value constructor.
		constructor, ok := stmt.Producer.(*Constructor)
		if !ok {
			// [variable _]: stuck, a variable is not a value.
			return nil, nil, &StuckComputationError{Statement: stmt}
		}
		nonValue := findNonValue(constructor.Args)
		ip.printInfo(fmt.Sprintf(infoConstructorFocus, constructor.Name, nonValue))
		stmt.Producer = ip.focusConstructor(constructor, nonValue)
		return stmt, nil, nil
	}
	if muTilde, ok := stmt.Consumer.(*MuTilde); ok {
		// The producer is a value, so the mu' abstraction may capture it.
		body := replaceStatement(muTilde.Body, varMap{muTilde.ArgID: stmt.Producer}, nil)
		ip.printInfo(infoMuC)
		return body, nil, nil
	}
	switch consumer := stmt.Consumer.(type) {
	case *Case:
		constructor, ok := stmt.Producer.(*Constructor)
		if !ok {
			return nil, nil, &StuckComputationError{Statement: stmt}
		}
		body, err := evalClauses(constructor.AbstractionID, constructor.Args,
			constructor.Coargs, consumer.Clauses, stmt)
		if err != nil {
			return nil, nil, err
		}
		ip.printInfo(fmt.Sprintf(infoCase, constructor.Name))
		return body, nil, nil
	case *Destructor:
		cocase, ok := stmt.Producer.(*Cocase)
		if !ok {
			return nil, nil, &StuckComputationError{Statement: stmt}
		}
		if nonValue := findNonValue(consumer.Args); nonValue >= 0 {
			ip.printInfo(fmt.Sprintf(infoDestructorFocus, consumer.Name, nonValue))
			stmt.Consumer = ip.focusDestructor(consumer, nonValue)
			return stmt, nil, nil
		}
		body, err := evalClauses(consumer.AbstractionID, consumer.Args,
			consumer.Coargs, cocase.Clauses, stmt)
		if err != nil {
			return nil, nil, err
		}
		ip.printInfo(fmt.Sprintf(infoCocase, consumer.Name))
		return body, nil, nil
	case *End:
		// The cut producer is a value hitting <END>; computation is done.
		ip.printInfo(infoFinished)
		return nil, stmt.Producer, nil
	}
	// Mismatched cut, we are stuck.
	return nil, nil, &StuckComputationError{Statement: stmt}
}

func (ip *Interpreter) stepCall(stmt *Call) (Statement, Producer, error) {
	if nonValue := findNonValue(stmt.Args); nonValue >= 0 {
		ip.printInfo(fmt.Sprintf(infoCallFocus, stmt.Name, nonValue))
		return ip.focusStatement(stmt, &stmt.Args[nonValue],
			fmt.Sprintf(focusVarTemplate, stmt.Name, nonValue)), nil, nil
	}
	definition := &ip.definitions[stmt.DefinitionID]
	vars := make(varMap, len(stmt.Args))
	for i, arg := range stmt.Args {
		vars[definition.ArgIDs[i]] = arg
	}
	covars := make(covarMap, len(stmt.Coargs))
	for i, coarg := range stmt.Coargs {
		covars[definition.CoargIDs[i]] = coarg
	}
	// The definition may be called again; substitute into a fresh copy of
	// its body.
	body := replaceStatement(definition.Body.Clone(), vars, covars)
	ip.printInfo(fmt.Sprintf(infoCall, definition.Name))
	return body, nil, nil
}

// doArithmetic computes an integer operation. Overflow wraps; division by
// zero returns 1 and modulo by zero returns the dividend, keeping the
// semantics total.
func doArithmetic(op ArithmeticOp, left, right int64) int64 {
	switch op {
	case OpAdd:
		return left + right
	case OpSub:
		return left - right
	case OpMul:
		return left * right
	case OpDiv:
		if right == 0 {
			return 1
		}
		return left / right
	case OpMod:
		if right == 0 {
			return left
		}
		return left % right
	}
	panic(fmt.Sprintf("lammm: unknown arithmetic operator %d", op))
}

// evalClauses selects the clause matching a structor and returns its body
// with the structor's (co)arguments substituted for the clause's bound
// (co)variables.
func evalClauses(abstractionID AbstractionID, args []Producer, coargs []Consumer,
	clauses []Clause, context *Cut) (Statement, error) {
	matching := slices.IndexFunc(clauses, func(clause Clause) bool {
		return clause.AbstractionID == abstractionID
	})
	if matching < 0 {
		// No matching clause; unreachable on well-typed programs.
		return nil, &StuckComputationError{Statement: context}
	}
	clause := &clauses[matching]
	vars := make(varMap, len(args))
	for i, arg := range args {
		vars[clause.ArgIDs[i]] = arg
	}
	covars := make(covarMap, len(coargs))
	for i, coarg := range coargs {
		covars[clause.CoargIDs[i]] = coarg
	}
	return replaceStatement(clause.Body, vars, covars), nil
}

// --- focusing ---

// focusConstructor lifts the first non-value argument out of a constructor
// so it can be evaluated, rebuilding the constructor under a fresh mu
// abstraction:
//
//	C(...e...)  becomes  mu α. [e (mu' x. [C(...x...) α])]
func (ip *Interpreter) focusConstructor(prod *Constructor, argIndex int) *Mu {
	newCovarID := ip.freshCovarID()
	newCovarName := fmt.Sprintf(focusVarTemplate, prod.Name, argIndex)
	innerCut := &Cut{
		Producer: prod,
		Consumer: &Covariable{ID: newCovarID, Name: newCovarName},
	}
	outerCut := ip.focusStatement(innerCut, &prod.Args[argIndex],
		fmt.Sprintf(focusVarTemplate, prod.Name, argIndex))
	return &Mu{CoargID: newCovarID, CoargName: newCovarName, Body: outerCut}
}

// focusDestructor is the dual of focusConstructor:
//
//	D(...e...)  becomes  mu' v. [e (mu' x. [v D(...x...)])]
func (ip *Interpreter) focusDestructor(cons *Destructor, argIndex int) *MuTilde {
	newVarID := ip.freshVarID()
	newVarName := fmt.Sprintf(focusVarTemplate, cons.Name, argIndex)
	innerCut := &Cut{
		Producer: &Variable{ID: newVarID, Name: newVarName},
		Consumer: cons,
	}
	outerCut := ip.focusStatement(innerCut, &cons.Args[argIndex],
		fmt.Sprintf(focusVarTemplate, cons.Name, argIndex))
	return &MuTilde{ArgID: newVarID, ArgName: newVarName, Body: outerCut}
}

// focusStatement replaces the producer at *slot with a fresh variable and
// returns a cut that evaluates the extracted producer first, feeding it to
// the rewritten statement through a mu' abstraction.
func (ip *Interpreter) focusStatement(stmt Statement, slot *Producer, newVarName string) *Cut {
	extracted := *slot
	newVarID := ip.freshVarID()
	*slot = &Variable{ID: newVarID, Name: newVarName}
	return &Cut{
		Producer: extracted,
		Consumer: &MuTilde{ArgID: newVarID, ArgName: newVarName, Body: stmt},
	}
}

// findNonValue returns the index of the first non-value in args, or -1 if
// they are all values.
func findNonValue(args []Producer) int {
	return slices.IndexFunc(args, func(arg Producer) bool {
		return !isValue(arg)
	})
}

// isValue reports whether a producer is a value: a literal, a cocase, or a
// constructor all of whose arguments are values. The result is memoised on
// constructor nodes because substitution can turn a non-value constructor
// into a value; the memo is invalidated accordingly.
func isValue(prod Producer) bool {
	switch prod := prod.(type) {
	case *Literal:
		return true
	case *Cocase:
		return true
	case *Constructor:
		if !prod.valueKnown {
			prod.valueMemo = lo.EveryBy(prod.Args, isValue)
			prod.valueKnown = true
		}
		return prod.valueMemo
	default:
		return false
	}
}

// --- substitution ---

type varMap map[VarID]Producer
type covarMap map[CovarID]Consumer

// replaceProducer substitutes (co)variables in a producer, copying each
// replacement. Binders strip their own ids from the maps before the
// traversal descends, so substitution respects shadowing.
func replaceProducer(prod Producer, vars varMap, covars covarMap) Producer {
	switch prod := prod.(type) {
	case *Variable:
		if replacement, ok := vars[prod.ID]; ok {
			return replacement.Clone()
		}
		return prod
	case *Literal:
		return prod
	case *Mu:
		prod.Body = replaceStatement(prod.Body, vars, withoutCovars(covars, prod.CoargID))
		return prod
	case *Constructor:
		if prod.valueKnown && !prod.valueMemo {
			// Variables might get replaced by values, turning the
			// constructor expression into a value.
			prod.valueKnown = false
		}
		for i, arg := range prod.Args {
			prod.Args[i] = replaceProducer(arg, vars, covars)
		}
		for i, coarg := range prod.Coargs {
			prod.Coargs[i] = replaceConsumer(coarg, vars, covars)
		}
		return prod
	case *Cocase:
		for i := range prod.Clauses {
			replaceClause(&prod.Clauses[i], vars, covars)
		}
		return prod
	}
	panic(fmt.Sprintf("lammm: unknown producer %T", prod))
}

func replaceConsumer(cons Consumer, vars varMap, covars covarMap) Consumer {
	switch cons := cons.(type) {
	case *Covariable:
		if replacement, ok := covars[cons.ID]; ok {
			return replacement.Clone()
		}
		return cons
	case *MuTilde:
		cons.Body = replaceStatement(cons.Body, withoutVars(vars, cons.ArgID), covars)
		return cons
	case *Destructor:
		for i, arg := range cons.Args {
			cons.Args[i] = replaceProducer(arg, vars, covars)
		}
		for i, coarg := range cons.Coargs {
			cons.Coargs[i] = replaceConsumer(coarg, vars, covars)
		}
		return cons
	case *Case:
		for i := range cons.Clauses {
			replaceClause(&cons.Clauses[i], vars, covars)
		}
		return cons
	case *End:
		return cons
	}
	panic(fmt.Sprintf("lammm: unknown consumer %T", cons))
}

func replaceStatement(stmt Statement, vars varMap, covars covarMap) Statement {
	switch stmt := stmt.(type) {
	case *Arithmetic:
		stmt.Left = replaceProducer(stmt.Left, vars, covars)
		stmt.Right = replaceProducer(stmt.Right, vars, covars)
		stmt.After = replaceConsumer(stmt.After, vars, covars)
		return stmt
	case *Ifz:
		stmt.Condition = replaceProducer(stmt.Condition, vars, covars)
		stmt.IfZero = replaceStatement(stmt.IfZero, vars, covars)
		stmt.IfOther = replaceStatement(stmt.IfOther, vars, covars)
		return stmt
	case *Cut:
		stmt.Producer = replaceProducer(stmt.Producer, vars, covars)
		stmt.Consumer = replaceConsumer(stmt.Consumer, vars, covars)
		return stmt
	case *Call:
		for i, arg := range stmt.Args {
			stmt.Args[i] = replaceProducer(arg, vars, covars)
		}
		for i, coarg := range stmt.Coargs {
			stmt.Coargs[i] = replaceConsumer(coarg, vars, covars)
		}
		return stmt
	}
	panic(fmt.Sprintf("lammm: unknown statement %T", stmt))
}

// replaceClause substitutes inside a clause body, stripping the clause's
// own binders first.
func replaceClause(clause *Clause, vars varMap, covars covarMap) {
	for _, arg := range clause.ArgIDs {
		vars = withoutVars(vars, arg)
	}
	for _, coarg := range clause.CoargIDs {
		covars = withoutCovars(covars, coarg)
	}
	clause.Body = replaceStatement(clause.Body, vars, covars)
}

// withoutVars returns the map minus the given key, copying only when the
// key is actually present.
func withoutVars(m varMap, id VarID) varMap {
	if _, ok := m[id]; !ok {
		return m
	}
	m = maps.Clone(m)
	delete(m, id)
	return m
}

func withoutCovars(m covarMap, id CovarID) covarMap {
	if _, ok := m[id]; !ok {
		return m
	}
	m = maps.Clone(m)
	delete(m, id)
	return m
}

func (ip *Interpreter) freshVarID() VarID {
	id := VarID(ip.nVars)
	ip.nVars++
	return id
}

func (ip *Interpreter) freshCovarID() CovarID {
	id := CovarID(ip.nCovars)
	ip.nCovars++
	return id
}

func (ip *Interpreter) printInfo(info string) {
	if ip.options.PrintInfo {
		fmt.Fprintln(ip.out, info)
	}
}

// --- interpreter errors ---

// AlreadyRunError reports a second Run on the same interpreter.
type AlreadyRunError struct{}

// Name implements Error.
func (e *AlreadyRunError) Name() string {
	return "Interpreter error"
}

// Message implements Error.
func (e *AlreadyRunError) Message() string {
	return "Interpreter has already run"
}

func (e *AlreadyRunError) Error() string {
	return e.Name() + ": " + e.Message()
}

// StuckComputationError reports a statement with no applicable reduction
// or focusing rule. It cannot arise when interpreting a typechecked
// program.
type StuckComputationError struct {
	Statement Statement
}

// Name implements Error.
func (e *StuckComputationError) Name() string {
	return "Interpreter error"
}

// Message implements Error.
func (e *StuckComputationError) Message() string {
	return "No reduction or focusing rule found for statement:\n" +
		PrintString(e.Statement, PrintOptions{}, nil)
}

func (e *StuckComputationError) Error() string {
	return e.Name() + ": " + e.Message()
}
