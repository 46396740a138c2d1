// ast.go — the syntax tree of the Core 𝜆𝜇𝜇̃ calculus.
//
// The AST is organised as three mutually recursive sums: producers (things
// that evaluate to values), consumers (continuations) and statements (which
// link the two). Each sum is a Go interface with a marker method; the
// concrete nodes are pointer types so the typer can fill type handles in
// place and the interpreter can rewrite subtrees.
//
// Substitution needs value-copy semantics, so every node implements a deep
// Clone. Nodes are owned by their parent; the tree contains no sharing and
// no cycles, and Clone preserves that.
package lammm

// VarID identifies a variable binder. IDs are minted monotonically by the
// parser and later by the interpreter (during focusing) and are unique
// across the whole program.
type VarID uint64

// CovarID identifies a covariable binder, in a space disjoint from VarID.
type CovarID uint64

// DefinitionID indexes Program.Definitions.
type DefinitionID uint64

// Producer is a syntax category corresponding to things that evaluate to
// values.
type Producer interface {
	isProducer()
	// Clone returns a deep copy.
	Clone() Producer
}

// Consumer is a syntax category corresponding to continuations.
type Consumer interface {
	isConsumer()
	// Clone returns a deep copy.
	Clone() Consumer
}

// Statement links producers and consumers, with potential extra effects.
type Statement interface {
	isStatement()
	// Clone returns a deep copy.
	Clone() Statement
}

// --- producers ---

// Variable references a variable bound by an enclosing mu' abstraction,
// clause or definition parameter.
type Variable struct {
	ID   VarID
	Name string
	Type *TypeHandle
}

// Literal is an integer literal.
type Literal struct {
	Value int64
	Type  *TypeHandle
}

// Mu is a mu abstraction, a general value-producing expression. It binds
// the covariable CoargID in Body.
type Mu struct {
	CoargID   CovarID
	CoargName string
	Body      Statement
	Type      *TypeHandle
}

// Constructor produces data.
type Constructor struct {
	AbstractionID AbstractionID
	Name          string
	Args          []Producer
	Coargs        []Consumer
	Type          *TypeHandle

	// Memoised value status; valid only while valueKnown is set. The memo
	// is invalidated when substitution may change an argument.
	valueKnown bool
	valueMemo  bool
}

// Cocase produces codata by pattern-matching on the destructor applied
// to it.
type Cocase struct {
	Clauses []Clause
	Type    *TypeHandle
}

// --- consumers ---

// Covariable references a covariable bound by an enclosing mu abstraction,
// clause or definition coparameter.
type Covariable struct {
	ID   CovarID
	Name string
	Type *TypeHandle
}

// MuTilde is a mu' abstraction, essentially a general continuation. It
// binds the variable ArgID in Body.
type MuTilde struct {
	ArgID   VarID
	ArgName string
	Body    Statement
	Type    *TypeHandle
}

// Destructor consumes codata.
type Destructor struct {
	AbstractionID AbstractionID
	Name          string
	Args          []Producer
	Coargs        []Consumer
	Type          *TypeHandle
}

// Case consumes data by pattern-matching on the constructor cut against it.
type Case struct {
	Clauses []Clause
	Type    *TypeHandle
}

// End is the top-level "return" continuation; cutting a value against it
// ends the computation.
type End struct {
	Type *TypeHandle
}

// --- statements ---

// ArithmeticOp enumerates the integer operators.
type ArithmeticOp int

const (
	OpAdd ArithmeticOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Arithmetic applies an integer operator to two producers and feeds the
// result into a consumer.
type Arithmetic struct {
	Op    ArithmeticOp
	Left  Producer
	Right Producer
	After Consumer
}

// Ifz branches on whether its condition reduces to zero.
type Ifz struct {
	Condition Producer
	IfZero    Statement
	IfOther   Statement
}

// Cut is the primitive redex combining a producer and a consumer.
type Cut struct {
	Producer Producer
	Consumer Consumer
}

// Call invokes a top-level definition.
type Call struct {
	DefinitionID DefinitionID
	Name         string
	Args         []Producer
	Coargs       []Consumer
}

// Clause is one arm of a Case or Cocase. ArgIDs bind variables and
// CoargIDs bind covariables in Body.
type Clause struct {
	AbstractionID AbstractionID
	StructorName  string
	ArgNames      []string
	CoargNames    []string
	ArgIDs        []VarID
	CoargIDs      []CovarID
	Body          Statement
}

// Definition is a named top-level abstraction.
type Definition struct {
	// AbstractionID indexes the definition's signature in the typing
	// context.
	AbstractionID AbstractionID
	Name          string
	ArgNames      []string
	CoargNames    []string
	ArgIDs        []VarID
	CoargIDs      []CovarID
	Body          Statement
}

// Program is an ordered list of definitions followed by an ordered list of
// statements.
type Program struct {
	Definitions []Definition
	Statements  []Statement
}

func (*Variable) isProducer()    {}
func (*Literal) isProducer()     {}
func (*Mu) isProducer()          {}
func (*Constructor) isProducer() {}
func (*Cocase) isProducer()      {}

func (*Covariable) isConsumer() {}
func (*MuTilde) isConsumer()    {}
func (*Destructor) isConsumer() {}
func (*Case) isConsumer()       {}
func (*End) isConsumer()        {}

func (*Arithmetic) isStatement() {}
func (*Ifz) isStatement()        {}
func (*Cut) isStatement()        {}
func (*Call) isStatement()       {}

// --- deep copies ---

func (p *Variable) Clone() Producer {
	c := *p
	return &c
}

func (p *Literal) Clone() Producer {
	c := *p
	return &c
}

func (p *Mu) Clone() Producer {
	c := *p
	c.Body = p.Body.Clone()
	return &c
}

func (p *Constructor) Clone() Producer {
	c := *p
	c.Args = cloneProducers(p.Args)
	c.Coargs = cloneConsumers(p.Coargs)
	return &c
}

func (p *Cocase) Clone() Producer {
	c := *p
	c.Clauses = cloneClauses(p.Clauses)
	return &c
}

func (c *Covariable) Clone() Consumer {
	cc := *c
	return &cc
}

func (c *MuTilde) Clone() Consumer {
	cc := *c
	cc.Body = c.Body.Clone()
	return &cc
}

func (c *Destructor) Clone() Consumer {
	cc := *c
	cc.Args = cloneProducers(c.Args)
	cc.Coargs = cloneConsumers(c.Coargs)
	return &cc
}

func (c *Case) Clone() Consumer {
	cc := *c
	cc.Clauses = cloneClauses(c.Clauses)
	return &cc
}

func (c *End) Clone() Consumer {
	cc := *c
	return &cc
}

func (s *Arithmetic) Clone() Statement {
	c := *s
	c.Left = s.Left.Clone()
	c.Right = s.Right.Clone()
	c.After = s.After.Clone()
	return &c
}

func (s *Ifz) Clone() Statement {
	c := *s
	c.Condition = s.Condition.Clone()
	c.IfZero = s.IfZero.Clone()
	c.IfOther = s.IfOther.Clone()
	return &c
}

func (s *Cut) Clone() Statement {
	c := *s
	c.Producer = s.Producer.Clone()
	c.Consumer = s.Consumer.Clone()
	return &c
}

func (s *Call) Clone() Statement {
	c := *s
	c.Args = cloneProducers(s.Args)
	c.Coargs = cloneConsumers(s.Coargs)
	return &c
}

// Clone returns a deep copy of the clause. Name and ID slices are copied as
// well so the copy shares nothing with the original.
func (cl Clause) Clone() Clause {
	c := cl
	c.ArgNames = append([]string(nil), cl.ArgNames...)
	c.CoargNames = append([]string(nil), cl.CoargNames...)
	c.ArgIDs = append([]VarID(nil), cl.ArgIDs...)
	c.CoargIDs = append([]CovarID(nil), cl.CoargIDs...)
	c.Body = cl.Body.Clone()
	return c
}

func cloneProducers(ps []Producer) []Producer {
	if ps == nil {
		return nil
	}
	out := make([]Producer, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

func cloneConsumers(cs []Consumer) []Consumer {
	if cs == nil {
		return nil
	}
	out := make([]Consumer, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

func cloneClauses(cls []Clause) []Clause {
	if cls == nil {
		return nil
	}
	out := make([]Clause, len(cls))
	for i, cl := range cls {
		out[i] = cl.Clone()
	}
	return out
}
