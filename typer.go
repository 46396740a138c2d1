// typer.go — typechecking against the typing context.
//
// The typer checks every node against an expected type, unifying as it
// goes. Each definition's parameters, coparameters and body share the
// definition's mutable prototype signature, so inference directly
// constrains the signature's variables; those become the generalised type
// that later call sites instantiate. A recursive call inside the
// definition's own body uses the un-cloned prototype instead, which keeps
// recursion monomorphic (polymorphic recursion is undecidable in this kind
// of inference).
package lammm

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Typer typechecks producers, consumers, statements and definitions under
// a single typing context. It records the inferred type on each node it
// visits.
type Typer struct {
	ctx         *TypingContext
	definitions []Definition
	intType     TypeHandle
	varTypes    map[VarID]TypeHandle
	covarTypes  map[CovarID]TypeHandle
	// Abstraction id of the definition currently being checked, if any.
	// Recursive calls to it are typed against the prototype signature.
	currentDefinition *AbstractionID
}

// NewTyper returns a typer for the given context and definition list. The
// context should be the same one used for parsing.
func NewTyper(ctx *TypingContext, definitions []Definition) *Typer {
	return &Typer{
		ctx:         ctx,
		definitions: definitions,
		intType:     ctx.GetPrimitivePrototype(TypeInteger),
		varTypes:    make(map[VarID]TypeHandle),
		covarTypes:  make(map[CovarID]TypeHandle),
	}
}

// TypeProgram typechecks a program under a fresh typer, definitions first,
// then statements, accumulating one error per failing top-level item. The
// returned error is a *MultipleTypingError, or nil if everything checks.
func TypeProgram(program *Program, ctx *TypingContext) error {
	typer := NewTyper(ctx, program.Definitions)
	var errs []*SingleTypingError
	for i := range program.Definitions {
		if err := typer.CheckDefinition(&program.Definitions[i]); err != nil {
			errs = append(errs, err.(*SingleTypingError))
		}
	}
	for _, statement := range program.Statements {
		if err := typer.CheckStatement(statement); err != nil {
			errs = append(errs, err.(*SingleTypingError))
		}
	}
	if len(errs) > 0 {
		return &MultipleTypingError{Errors: errs}
	}
	return nil
}

// CheckProducer checks a producer against an expected type.
func (t *Typer) CheckProducer(prod Producer, expected TypeHandle) error {
	switch prod := prod.(type) {
	case *Variable:
		// All occurrences of a variable must have the same type.
		varType := t.varType(prod.ID)
		if err := t.tryUnify(expected, varType, prod); err != nil {
			return err
		}
		prod.Type = &varType
		return nil
	case *Literal:
		// Literals are integers.
		if err := t.tryUnify(expected, t.intType, prod); err != nil {
			return err
		}
		intType := t.intType
		prod.Type = &intType
		return nil
	case *Mu:
		// The bound covariable carries the abstraction's type.
		t.freshCovar(prod.CoargID)
		coargType := t.covarTypes[prod.CoargID]
		// Cannot fail, the covariable's type is fresh.
		if err := t.tryUnify(expected, coargType, prod); err != nil {
			return err
		}
		if err := t.CheckStatement(prod.Body); err != nil {
			return err
		}
		prod.Type = &coargType
		return nil
	case *Constructor:
		result, err := t.checkAbstraction(prod.AbstractionID, prod.Args, prod.Coargs, prod, &expected)
		if err != nil {
			return err
		}
		prod.Type = result
		return nil
	case *Cocase:
		for i := range prod.Clauses {
			if err := t.CheckClause(&prod.Clauses[i], expected); err != nil {
				return err
			}
		}
		prod.Type = &expected
		return nil
	}
	panic(fmt.Sprintf("lammm: unknown producer %T", prod))
}

// CheckConsumer checks a consumer against an expected type.
func (t *Typer) CheckConsumer(cons Consumer, expected TypeHandle) error {
	switch cons := cons.(type) {
	case *Covariable:
		covarType := t.covarType(cons.ID)
		if err := t.tryUnify(expected, covarType, cons); err != nil {
			return err
		}
		cons.Type = &covarType
		return nil
	case *MuTilde:
		t.freshVar(cons.ArgID)
		argType := t.varTypes[cons.ArgID]
		// Cannot fail, the variable's type is fresh.
		if err := t.tryUnify(expected, argType, cons); err != nil {
			return err
		}
		if err := t.CheckStatement(cons.Body); err != nil {
			return err
		}
		cons.Type = &argType
		return nil
	case *Destructor:
		result, err := t.checkAbstraction(cons.AbstractionID, cons.Args, cons.Coargs, cons, &expected)
		if err != nil {
			return err
		}
		cons.Type = result
		return nil
	case *Case:
		for i := range cons.Clauses {
			if err := t.CheckClause(&cons.Clauses[i], expected); err != nil {
				return err
			}
		}
		cons.Type = &expected
		return nil
	case *End:
		// End accepts any type.
		cons.Type = &expected
		return nil
	}
	panic(fmt.Sprintf("lammm: unknown consumer %T", cons))
}

// CheckStatement typechecks a statement.
func (t *Typer) CheckStatement(stmt Statement) error {
	switch stmt := stmt.(type) {
	case *Arithmetic:
		// Both operands and the consumer must accept integers.
		if err := t.CheckProducer(stmt.Left, t.intType); err != nil {
			return err
		}
		if err := t.CheckProducer(stmt.Right, t.intType); err != nil {
			return err
		}
		return t.CheckConsumer(stmt.After, t.intType)
	case *Ifz:
		if err := t.CheckProducer(stmt.Condition, t.intType); err != nil {
			return err
		}
		if err := t.CheckStatement(stmt.IfZero); err != nil {
			return err
		}
		return t.CheckStatement(stmt.IfOther)
	case *Cut:
		// The producer and consumer types must match.
		cutType := t.ctx.FreshTypeVariable()
		if err := t.CheckProducer(stmt.Producer, cutType); err != nil {
			return err
		}
		return t.CheckConsumer(stmt.Consumer, cutType)
	case *Call:
		_, err := t.checkAbstraction(t.definitions[stmt.DefinitionID].AbstractionID,
			stmt.Args, stmt.Coargs, stmt, nil)
		return err
	}
	panic(fmt.Sprintf("lammm: unknown statement %T", stmt))
}

// CheckClause checks a clause against the expected type of its enclosing
// case or cocase. The structor's instantiated result type is unified with
// the expected type, and the instantiated (co)argument types with the
// fresh (co)variables the clause binds; variables bound in a pattern thus
// get existential-style scope.
func (t *Typer) CheckClause(clause *Clause, expected TypeHandle) error {
	for _, arg := range clause.ArgIDs {
		t.freshVar(arg)
	}
	for _, coarg := range clause.CoargIDs {
		t.freshCovar(coarg)
	}
	instance := t.ctx.Instantiate(clause.AbstractionID)
	// Totality and matching are checked in the parser, but complete clause
	// types can still differ through their type parameters.
	if err := t.tryUnify(expected, *instance.Type, clause); err != nil {
		return err
	}
	for i, instArg := range instance.Args {
		// Cannot fail, the argument variables are fresh.
		if err := t.tryUnify(t.varTypes[clause.ArgIDs[i]], instArg, clause); err != nil {
			return err
		}
	}
	for i, instCoarg := range instance.Coargs {
		if err := t.tryUnify(t.covarTypes[clause.CoargIDs[i]], instCoarg, clause); err != nil {
			return err
		}
	}
	return t.CheckStatement(clause.Body)
}

// CheckDefinition typechecks a definition. The definition's parameters and
// body are typed against its prototype signature in the context, so the
// inferred constraints become the signature later call sites instantiate.
func (t *Typer) CheckDefinition(definition *Definition) error {
	for _, arg := range definition.ArgIDs {
		t.freshVar(arg)
	}
	for _, coarg := range definition.CoargIDs {
		t.freshCovar(coarg)
	}
	abstraction := t.ctx.GetAbstraction(definition.AbstractionID)
	// Note the current definition so recursive calls are typed against the
	// prototype rather than a fresh instance.
	current := definition.AbstractionID
	t.currentDefinition = &current
	defer func() { t.currentDefinition = nil }()
	for i, argType := range abstraction.Args {
		// Cannot fail, the parameter variables are fresh.
		if err := t.tryUnify(t.varTypes[definition.ArgIDs[i]], argType, definition); err != nil {
			return err
		}
	}
	for i, coargType := range abstraction.Coargs {
		if err := t.tryUnify(t.covarTypes[definition.CoargIDs[i]], coargType, definition); err != nil {
			return err
		}
	}
	// The body has to be checked last, the definition might be recursive.
	return t.CheckStatement(definition.Body)
}

// checkAbstraction checks a structor application or definition call:
// arguments against the signature's argument types, coarguments against
// its coargument types, and the expected type (if any) against the
// signature's result type (if any). The two are present together:
// structors have result types and expectations, definition calls have
// neither.
func (t *Typer) checkAbstraction(id AbstractionID, args []Producer, coargs []Consumer,
	context any, expected *TypeHandle) (*TypeHandle, error) {
	var instance Abstraction
	if t.currentDefinition != nil && *t.currentDefinition == id {
		// A recursive call; the definition's type cannot be generalised
		// while it is still being inferred.
		instance = t.ctx.GetAbstractionPrototype(id)
	} else {
		instance = t.ctx.Instantiate(id)
	}
	// Any arity mismatch would have been caught in the parser.
	for i, arg := range args {
		if err := t.CheckProducer(arg, instance.Args[i]); err != nil {
			return nil, err
		}
	}
	for i, coarg := range coargs {
		if err := t.CheckConsumer(coarg, instance.Coargs[i]); err != nil {
			return nil, err
		}
	}
	if expected != nil && instance.Type != nil {
		if err := t.tryUnify(*expected, *instance.Type, context); err != nil {
			return nil, err
		}
	}
	return instance.Type, nil
}

// varType returns the recorded type of a variable, which exists because
// the binder was visited first.
func (t *Typer) varType(id VarID) TypeHandle {
	varType, ok := t.varTypes[id]
	if !ok {
		panic(fmt.Sprintf("lammm: variable %d used before its binder was typed", id))
	}
	return varType
}

func (t *Typer) covarType(id CovarID) TypeHandle {
	covarType, ok := t.covarTypes[id]
	if !ok {
		panic(fmt.Sprintf("lammm: covariable %d used before its binder was typed", id))
	}
	return covarType
}

// freshVar allocates a fresh type variable for a variable binder. Each
// binder is typed at most once.
func (t *Typer) freshVar(id VarID) {
	if _, ok := t.varTypes[id]; ok {
		panic(fmt.Sprintf("lammm: variable %d bound twice", id))
	}
	t.varTypes[id] = t.ctx.FreshTypeVariable()
}

func (t *Typer) freshCovar(id CovarID) {
	if _, ok := t.covarTypes[id]; ok {
		panic(fmt.Sprintf("lammm: covariable %d bound twice", id))
	}
	t.covarTypes[id] = t.ctx.FreshTypeVariable()
}

// tryUnify unifies two types, wrapping a failure with the syntax element
// being typed.
func (t *Typer) tryUnify(a, b TypeHandle, context any) error {
	err := t.ctx.Unify(a, b)
	if err == nil {
		return nil
	}
	return &SingleTypingError{
		Cause:   err.(*UnificationError),
		Context: PrintString(context, PrintOptions{}, nil),
	}
}

// --- typing errors ---

// SingleTypingError wraps a unification failure with the syntax element
// that was being typed.
type SingleTypingError struct {
	Cause *UnificationError
	// Context is the printed form of the offending syntax element.
	Context string
}

// Name implements Error.
func (e *SingleTypingError) Name() string {
	return "Type error"
}

// Message implements Error.
func (e *SingleTypingError) Message() string {
	return fmt.Sprintf("While typing %s: %s", e.Context, e.Cause.Message())
}

func (e *SingleTypingError) Error() string {
	return e.Name() + ": " + e.Message()
}

func (e *SingleTypingError) Unwrap() error {
	return e.Cause
}

// MultipleTypingError aggregates one typing error per failing top-level
// item.
type MultipleTypingError struct {
	Errors []*SingleTypingError
}

// Name implements Error.
func (e *MultipleTypingError) Name() string {
	return "Type error"
}

// Message implements Error. A single error reads like a SingleTypingError;
// multiple errors each get their own line.
func (e *MultipleTypingError) Message() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Message()
	}
	messages := lo.Map(e.Errors, func(err *SingleTypingError, _ int) string {
		return err.Message()
	})
	return "\n" + strings.Join(messages, "\n")
}

func (e *MultipleTypingError) Error() string {
	return e.Name() + ": " + e.Message()
}
