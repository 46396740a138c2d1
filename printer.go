// printer.go — a simple recursive printer for AST elements and types.
//
// The printed form of any parsed program is itself parseable, and
// reparsing it prints identically. Types print through the typing context;
// without one, type handles render as placeholders.
package lammm

import (
	"fmt"
	"io"
	"strings"
)

// PrintOptions configures printing.
type PrintOptions struct {
	// Unicode prints μ and μ' instead of the ASCII spellings mu and mu'.
	Unicode bool
	// PrintTypes prints the types of all typed syntax elements.
	PrintTypes bool
}

// Printer prints AST elements and types to a stream.
type Printer struct {
	options PrintOptions
	w       io.Writer
	// Typing context for resolving type handles; may be nil.
	ctx *TypingContext
}

// NewPrinter returns a printer writing to w. ctx may be nil if no types
// will be printed.
func NewPrinter(options PrintOptions, w io.Writer, ctx *TypingContext) *Printer {
	return &Printer{options: options, w: w, ctx: ctx}
}

// PrintTo prints a syntax element or type handle to w.
func PrintTo(w io.Writer, printable any, options PrintOptions, ctx *TypingContext) {
	NewPrinter(options, w, ctx).Print(printable)
}

// PrintString prints a syntax element or type handle to a string.
func PrintString(printable any, options PrintOptions, ctx *TypingContext) string {
	var sb strings.Builder
	PrintTo(&sb, printable, options, ctx)
	return sb.String()
}

// Print dispatches on the element's kind. Unknown elements print as a
// placeholder rather than failing.
func (pr *Printer) Print(printable any) {
	switch printable := printable.(type) {
	case Producer:
		pr.producer(printable)
	case Consumer:
		pr.consumer(printable)
	case Statement:
		pr.statement(printable)
	case *Clause:
		pr.clause(printable)
	case Clause:
		pr.clause(&printable)
	case *Definition:
		pr.definition(printable)
	case Definition:
		pr.definition(&printable)
	case *Program:
		pr.program(printable)
	case TypeHandle:
		pr.typeHandle(printable)
	default:
		fmt.Fprint(pr.w, "<UNKNOWN ELEMENT>")
	}
}

func (pr *Printer) program(program *Program) {
	for i := range program.Definitions {
		pr.definition(&program.Definitions[i])
		fmt.Fprintln(pr.w)
	}
	for _, statement := range program.Statements {
		pr.statement(statement)
		fmt.Fprintln(pr.w)
	}
}

func (pr *Printer) definition(definition *Definition) {
	fmt.Fprintf(pr.w, "(%s %s ", kwDef, definition.Name)
	pr.nameList(definition.ArgNames)
	fmt.Fprint(pr.w, " ")
	pr.nameList(definition.CoargNames)
	fmt.Fprint(pr.w, " ")
	pr.statement(definition.Body)
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) clause(clause *Clause) {
	fmt.Fprintf(pr.w, "(%s", clause.StructorName)
	if len(clause.ArgNames) > 0 {
		fmt.Fprint(pr.w, " ")
		pr.nameList(clause.ArgNames)
	}
	if len(clause.CoargNames) > 0 {
		fmt.Fprint(pr.w, " ")
		pr.nameList(clause.CoargNames)
	}
	fmt.Fprint(pr.w, " ")
	pr.statement(clause.Body)
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) producer(prod Producer) {
	switch prod := prod.(type) {
	case *Variable:
		fmt.Fprint(pr.w, prod.Name)
		pr.typeMaybe(prod.Type)
	case *Literal:
		fmt.Fprint(pr.w, prod.Value)
		pr.typeMaybe(prod.Type)
	case *Mu:
		fmt.Fprintf(pr.w, "(%s %s ", pr.muP(), prod.CoargName)
		pr.statement(prod.Body)
		fmt.Fprint(pr.w, ")")
		pr.typeMaybe(prod.Type)
	case *Constructor:
		pr.structor(prod.Name, prod.Args, prod.Coargs)
		pr.typeMaybe(prod.Type)
	case *Cocase:
		fmt.Fprintf(pr.w, "(%s ", kwCocase)
		pr.clauseList(prod.Clauses)
		fmt.Fprint(pr.w, ")")
		pr.typeMaybe(prod.Type)
	default:
		fmt.Fprint(pr.w, "<UNKNOWN ELEMENT>")
	}
}

func (pr *Printer) consumer(cons Consumer) {
	switch cons := cons.(type) {
	case *Covariable:
		fmt.Fprint(pr.w, cons.Name)
		pr.typeMaybe(cons.Type)
	case *MuTilde:
		fmt.Fprintf(pr.w, "(%s %s ", pr.muC(), cons.ArgName)
		pr.statement(cons.Body)
		fmt.Fprint(pr.w, ")")
		pr.typeMaybe(cons.Type)
	case *Destructor:
		pr.structor(cons.Name, cons.Args, cons.Coargs)
		pr.typeMaybe(cons.Type)
	case *Case:
		fmt.Fprintf(pr.w, "(%s ", kwCase)
		pr.clauseList(cons.Clauses)
		fmt.Fprint(pr.w, ")")
		pr.typeMaybe(cons.Type)
	case *End:
		fmt.Fprint(pr.w, kwEnd)
		pr.typeMaybe(cons.Type)
	default:
		fmt.Fprint(pr.w, "<UNKNOWN ELEMENT>")
	}
}

func (pr *Printer) statement(stmt Statement) {
	switch stmt := stmt.(type) {
	case *Arithmetic:
		fmt.Fprintf(pr.w, "(%c ", opSymbol(stmt.Op))
		pr.producer(stmt.Left)
		fmt.Fprint(pr.w, " ")
		pr.producer(stmt.Right)
		fmt.Fprint(pr.w, " ")
		pr.consumer(stmt.After)
		fmt.Fprint(pr.w, ")")
	case *Ifz:
		fmt.Fprintf(pr.w, "(%s ", kwIfz)
		pr.producer(stmt.Condition)
		fmt.Fprint(pr.w, " ")
		pr.statement(stmt.IfZero)
		fmt.Fprint(pr.w, " ")
		pr.statement(stmt.IfOther)
		fmt.Fprint(pr.w, ")")
	case *Cut:
		fmt.Fprint(pr.w, "[")
		pr.producer(stmt.Producer)
		fmt.Fprint(pr.w, " ")
		pr.consumer(stmt.Consumer)
		fmt.Fprint(pr.w, "]")
	case *Call:
		fmt.Fprintf(pr.w, "(%s ", stmt.Name)
		pr.producerList(stmt.Args)
		fmt.Fprint(pr.w, " ")
		pr.consumerList(stmt.Coargs)
		fmt.Fprint(pr.w, ")")
	default:
		fmt.Fprint(pr.w, "<UNKNOWN ELEMENT>")
	}
}

// structor prints a constructor or destructor application. Empty argument
// and coargument lists are omitted, matching the grammar's optional lists.
func (pr *Printer) structor(name string, args []Producer, coargs []Consumer) {
	fmt.Fprintf(pr.w, "(%s", name)
	if len(args) > 0 {
		fmt.Fprint(pr.w, " ")
		pr.producerList(args)
	}
	if len(coargs) > 0 {
		fmt.Fprint(pr.w, " ")
		pr.consumerList(coargs)
	}
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) typeHandle(h TypeHandle) {
	if pr.ctx == nil {
		fmt.Fprintf(pr.w, "<UNKNOWN TYPE: %d>", h.id)
		return
	}
	switch instance := pr.ctx.GetTypeInstance(h).(type) {
	case TypeVar:
		fmt.Fprintf(pr.w, "%c%d", symQuestion, instance.ID)
	case ConcreteType:
		if len(instance.Params) > 0 {
			fmt.Fprint(pr.w, "(")
		}
		fmt.Fprint(pr.w, pr.ctx.GetTypeName(instance.TypeID))
		for _, param := range instance.Params {
			fmt.Fprint(pr.w, " ")
			pr.typeHandle(param)
		}
		if len(instance.Params) > 0 {
			fmt.Fprint(pr.w, ")")
		}
	}
}

// typeMaybe prints ": <type>" if the handle is set and PrintTypes is on.
func (pr *Printer) typeMaybe(t *TypeHandle) {
	if pr.options.PrintTypes && t != nil {
		fmt.Fprintf(pr.w, "%c ", symColon)
		pr.typeHandle(*t)
	}
}

func (pr *Printer) nameList(names []string) {
	fmt.Fprint(pr.w, "(")
	fmt.Fprint(pr.w, strings.Join(names, " "))
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) producerList(prods []Producer) {
	fmt.Fprint(pr.w, "(")
	for i, prod := range prods {
		if i > 0 {
			fmt.Fprint(pr.w, " ")
		}
		pr.producer(prod)
	}
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) consumerList(cons []Consumer) {
	fmt.Fprint(pr.w, "(")
	for i, c := range cons {
		if i > 0 {
			fmt.Fprint(pr.w, " ")
		}
		pr.consumer(c)
	}
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) clauseList(clauses []Clause) {
	fmt.Fprint(pr.w, "(")
	for i := range clauses {
		if i > 0 {
			fmt.Fprint(pr.w, " ")
		}
		pr.clause(&clauses[i])
	}
	fmt.Fprint(pr.w, ")")
}

func (pr *Printer) muP() string {
	if pr.options.Unicode {
		return kwMuPUni
	}
	return kwMuPASCII
}

func (pr *Printer) muC() string {
	if pr.options.Unicode {
		return kwMuCUni
	}
	return kwMuCASCII
}

func opSymbol(op ArithmeticOp) rune {
	switch op {
	case OpAdd:
		return symPlus
	case OpSub:
		return symMinus
	case OpMul:
		return symStar
	case OpDiv:
		return symSlash
	case OpMod:
		return symModulo
	}
	return symQuestion
}
