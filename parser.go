// parser.go — recursive-descent parser for the S-expression surface syntax.
//
// OVERVIEW
// --------
// The parser works directly on a rune stream with a single-rune lookahead
// and a bounded word-peek; there is no separate token stream. Whitespace
// (including newlines) is skipped everywhere and there are no comments. It
// tracks the current line for diagnostics: every parse error carries both
// the line of the failing input and the line where the enclosing construct
// began.
//
// Scoping is resolved during parsing. The parser keeps per-name stacks of
// active variable and covariable ids: binders push, exiting the binding
// construct pops, and a free occurrence resolves to the top of the stack
// for its name. Ids are minted monotonically and are unique across the
// whole program, so no renaming is ever needed later.
//
// Structor applications and clauses are checked against the arities
// declared in the typing context, and every case/cocase clause list is
// checked for totality: the clause set must equal the full structor set of
// exactly one type, with no duplicates and no cross-type mixing.
//
// Definitions enter the global definition table before their body is
// parsed, so recursive calls resolve. Both ASCII (mu, mu') and Unicode
// (μ, μ') spellings of the abstraction keywords are accepted.
package lammm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"unicode"
)

// SyntaxPolarity distinguishes the producer and consumer sides of dual
// syntax elements (arguments vs coarguments, constructors vs destructors).
type SyntaxPolarity int

const (
	PolarityProducer SyntaxPolarity = iota
	PolarityConsumer
	PolarityNone
)

// ArityInfo records the (co)arity of a structor or definition.
type ArityInfo struct {
	Arity   int
	Coarity int
}

// Parser is a relatively straightforward recursive descent parser. All
// parse methods handle leading whitespace.
//
// The exported Parse* methods each bind the parser to the given input; the
// scope tables, id counters and definition registry persist across calls,
// which is what an interactive driver needs to feed the parser one
// top-level item at a time.
type Parser struct {
	ctx *TypingContext
	r   *reader

	nVars   uint64
	nCovars uint64
	nDefs   uint64

	// Per-name stacks of active ids, for textual shadowing.
	varCtx   map[string][]VarID
	covarCtx map[string][]CovarID
	// Flat global tables.
	defIDs         map[string]DefinitionID
	constructorIDs map[string]AbstractionID
	destructorIDs  map[string]AbstractionID
	structorArity  map[AbstractionID]ArityInfo
	defArity       map[DefinitionID]ArityInfo
}

type builtinParserStructor struct {
	name     string
	id       AbstractionID
	arity    ArityInfo
	polarity SyntaxPolarity
}

var builtinParserStructors = []builtinParserStructor{
	{structorNameNil, AbsNil, ArityInfo{0, 0}, PolarityProducer},
	{structorNameCons, AbsCons, ArityInfo{2, 0}, PolarityProducer},
	{structorNamePair, AbsPair, ArityInfo{2, 0}, PolarityProducer},
	{structorNameHead, AbsHead, ArityInfo{0, 1}, PolarityConsumer},
	{structorNameTail, AbsTail, ArityInfo{0, 1}, PolarityConsumer},
	{structorNameFst, AbsFst, ArityInfo{0, 1}, PolarityConsumer},
	{structorNameSnd, AbsSnd, ArityInfo{0, 1}, PolarityConsumer},
	{structorNameAp, AbsAp, ArityInfo{1, 1}, PolarityConsumer},
}

// NewParser returns a parser bound to the given typing context, with the
// builtin structors registered.
func NewParser(ctx *TypingContext) *Parser {
	p := &Parser{
		ctx:            ctx,
		varCtx:         make(map[string][]VarID),
		covarCtx:       make(map[string][]CovarID),
		defIDs:         make(map[string]DefinitionID),
		constructorIDs: make(map[string]AbstractionID),
		destructorIDs:  make(map[string]AbstractionID),
		structorArity:  make(map[AbstractionID]ArityInfo),
		defArity:       make(map[DefinitionID]ArityInfo),
	}
	for _, s := range builtinParserStructors {
		p.structorArity[s.id] = s.arity
		switch s.polarity {
		case PolarityProducer:
			p.constructorIDs[s.name] = s.id
		case PolarityConsumer:
			p.destructorIDs[s.name] = s.id
		}
	}
	return p
}

// NVars returns the number of variables encountered so far, which is also
// the next fresh VarID.
func (p *Parser) NVars() uint64 {
	return p.nVars
}

// NCovars returns the number of covariables encountered so far.
func (p *Parser) NCovars() uint64 {
	return p.nCovars
}

// ParseProgram parses a whole program: definitions and statements in any
// order, until end of input.
func (p *Parser) ParseProgram(input io.Reader) (Program, error) {
	p.bind(input)
	return p.parseProgram()
}

// ParseDefinition parses a single definition.
func (p *Parser) ParseDefinition(input io.Reader) (Definition, error) {
	p.bind(input)
	return p.parseDefinition()
}

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement(input io.Reader) (Statement, error) {
	p.bind(input)
	return p.parseStatement()
}

// ParseProducer parses a single producer.
func (p *Parser) ParseProducer(input io.Reader) (Producer, error) {
	p.bind(input)
	return p.parseProducer()
}

// ParseConsumer parses a single consumer.
func (p *Parser) ParseConsumer(input io.Reader) (Consumer, error) {
	p.bind(input)
	return p.parseConsumer()
}

func (p *Parser) bind(input io.Reader) {
	line := 1
	if p.r != nil {
		// Keep counting lines across calls so diagnostics in interactive
		// sessions stay monotonic.
		line = p.r.line
	}
	p.r = &reader{rd: bufio.NewReader(input), line: line}
}

// --- top level ---

func (p *Parser) parseProgram() (Program, error) {
	var program Program
	p.r.skipWhitespace()
	for p.r.peek() != eof {
		if p.r.peek() == symOpenSquare {
			stmt, err := p.parseCut()
			if err != nil {
				return Program{}, err
			}
			program.Statements = append(program.Statements, stmt)
			p.r.skipWhitespace()
			continue
		}
		if err := p.expect(symOpenParen, kindDefOrStmt, p.r.line); err != nil {
			return Program{}, err
		}
		word := p.peekWord(3)
		p.r.unread(symOpenParen)
		if word == kwDef {
			def, err := p.parseDefinition()
			if err != nil {
				return Program{}, err
			}
			program.Definitions = append(program.Definitions, def)
		} else {
			stmt, err := p.parseStatement()
			if err != nil {
				return Program{}, err
			}
			program.Statements = append(program.Statements, stmt)
		}
		p.r.skipWhitespace()
	}
	return program, nil
}

func (p *Parser) parseDefinition() (Definition, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindDefinition, startLine); err != nil {
		return Definition{}, err
	}
	keyword := p.readWord()
	if keyword != kwDef {
		return Definition{}, p.unexpectedWord(startLine, kindDefinition, keyword)
	}
	name := p.readWord()
	if name == "" {
		return Definition{}, p.unexpectedChar(startLine, kindDefinition, p.r.peek())
	}
	if _, ok := p.defIDs[name]; ok {
		return Definition{}, p.parseErr(startLine, kindDefinition, fmt.Sprintf("Repeated definition of %s", name))
	}
	if name == kwIfz {
		// The only possible conflict, ifz is the only statement keyword.
		return Definition{}, p.parseErr(startLine, kindDefinition, fmt.Sprintf("%s is a reserved name", kwIfz))
	}
	defID := DefinitionID(p.nDefs)
	p.nDefs++
	p.defIDs[name] = defID
	argNames, err := p.parseNameList(kindParameter)
	if err != nil {
		return Definition{}, err
	}
	coargNames, err := p.parseNameList(kindCoparameter)
	if err != nil {
		return Definition{}, err
	}
	argIDs := p.pushVars(argNames)
	coargIDs := p.pushCovars(coargNames)
	p.defArity[defID] = ArityInfo{Arity: len(argIDs), Coarity: len(coargIDs)}
	abstractionID := p.ctx.AddDefinition(name, len(argIDs), len(coargIDs))
	body, err := p.parseStatement()
	p.popVars(argNames)
	p.popCovars(coargNames)
	if err != nil {
		return Definition{}, err
	}
	if err := p.expect(symCloseParen, kindDefinition, startLine); err != nil {
		return Definition{}, err
	}
	return Definition{
		AbstractionID: abstractionID,
		Name:          name,
		ArgNames:      argNames,
		CoargNames:    coargNames,
		ArgIDs:        argIDs,
		CoargIDs:      coargIDs,
		Body:          body,
	}, nil
}

// --- producers ---

func (p *Parser) parseProducer() (Producer, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	next := p.r.peek()
	if unicode.IsLetter(next) {
		return p.parseVariable()
	}
	if unicode.IsDigit(next) || next == symMinus {
		return p.parseValue()
	}
	if err := p.expect(symOpenParen, kindProducer, startLine); err != nil {
		return nil, err
	}
	word := p.peekWord(6)
	p.r.unread(symOpenParen)
	switch word {
	case kwMuPASCII, kwMuPUni:
		return p.parseMuP()
	case kwCocase:
		return p.parseCocase()
	default:
		return p.parseConstructor()
	}
}

func (p *Parser) parseVariable() (*Variable, error) {
	name := p.readWord()
	if name == "" {
		return nil, p.unexpectedChar(p.r.line, kindVariable, p.r.peek())
	}
	stack := p.varCtx[name]
	if len(stack) == 0 {
		return nil, p.unknownName(p.r.line, kindVariable, kindVariable, name)
	}
	return &Variable{ID: stack[len(stack)-1], Name: name}, nil
}

func (p *Parser) parseValue() (*Literal, error) {
	literal := p.readWord()
	if literal == "" {
		return nil, p.unexpectedChar(p.r.line, kindValue, p.r.peek())
	}
	value, err := strconv.ParseInt(literal, 10, 64)
	if err != nil {
		return nil, p.parseErr(p.r.line, kindValue, fmt.Sprintf("invalid integer literal: %s", literal))
	}
	return &Literal{Value: value}, nil
}

func (p *Parser) parseMuP() (*Mu, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindMuP, startLine); err != nil {
		return nil, err
	}
	keyword := p.readWord()
	if keyword != kwMuPASCII && keyword != kwMuPUni {
		return nil, p.unexpectedWord(startLine, kindMuP, keyword)
	}
	coargName := p.readWord()
	if coargName == "" {
		return nil, p.unexpectedChar(startLine, kindMuP, p.r.peek())
	}
	coargID := CovarID(p.nCovars)
	p.nCovars++
	p.covarCtx[coargName] = append(p.covarCtx[coargName], coargID)
	body, err := p.parseStatement()
	p.popCovars([]string{coargName})
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseParen, kindMuP, startLine); err != nil {
		return nil, err
	}
	return &Mu{CoargID: coargID, CoargName: coargName, Body: body}, nil
}

func (p *Parser) parseConstructor() (*Constructor, error) {
	id, name, args, coargs, err := p.parseStructor(PolarityProducer)
	if err != nil {
		return nil, err
	}
	return &Constructor{AbstractionID: id, Name: name, Args: args, Coargs: coargs}, nil
}

func (p *Parser) parseCocase() (*Cocase, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindCocase, startLine); err != nil {
		return nil, err
	}
	keyword := p.readWord()
	if keyword != kwCocase {
		return nil, p.unexpectedWord(startLine, kindCocase, keyword)
	}
	clauses, err := p.parseClauses(PolarityProducer, startLine)
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseParen, kindCocase, startLine); err != nil {
		return nil, err
	}
	return &Cocase{Clauses: clauses}, nil
}

// --- consumers ---

func (p *Parser) parseConsumer() (Consumer, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	next := p.r.peek()
	if next == '<' {
		return p.parseEnd()
	}
	if unicode.IsLetter(next) {
		return p.parseCovariable()
	}
	if err := p.expect(symOpenParen, kindConsumer, startLine); err != nil {
		return nil, err
	}
	word := p.peekWord(5)
	p.r.unread(symOpenParen)
	switch word {
	case kwMuCASCII, kwMuCUni:
		return p.parseMuC()
	case kwCase:
		return p.parseCase()
	default:
		return p.parseDestructor()
	}
}

func (p *Parser) parseCovariable() (*Covariable, error) {
	name := p.readWord()
	if name == "" {
		return nil, p.unexpectedChar(p.r.line, kindCovariable, p.r.peek())
	}
	stack := p.covarCtx[name]
	if len(stack) == 0 {
		return nil, p.unknownName(p.r.line, kindCovariable, kindCovariable, name)
	}
	return &Covariable{ID: stack[len(stack)-1], Name: name}, nil
}

func (p *Parser) parseMuC() (*MuTilde, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindMuC, startLine); err != nil {
		return nil, err
	}
	keyword := p.readWord()
	if keyword != kwMuCASCII && keyword != kwMuCUni {
		return nil, p.unexpectedWord(startLine, kindMuC, keyword)
	}
	argName := p.readWord()
	if argName == "" {
		return nil, p.unexpectedChar(startLine, kindMuC, p.r.peek())
	}
	argID := VarID(p.nVars)
	p.nVars++
	p.varCtx[argName] = append(p.varCtx[argName], argID)
	body, err := p.parseStatement()
	p.popVars([]string{argName})
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseParen, kindMuC, startLine); err != nil {
		return nil, err
	}
	return &MuTilde{ArgID: argID, ArgName: argName, Body: body}, nil
}

func (p *Parser) parseDestructor() (*Destructor, error) {
	id, name, args, coargs, err := p.parseStructor(PolarityConsumer)
	if err != nil {
		return nil, err
	}
	return &Destructor{AbstractionID: id, Name: name, Args: args, Coargs: coargs}, nil
}

func (p *Parser) parseCase() (*Case, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindCase, startLine); err != nil {
		return nil, err
	}
	keyword := p.readWord()
	if keyword != kwCase {
		return nil, p.unexpectedWord(startLine, kindCase, keyword)
	}
	clauses, err := p.parseClauses(PolarityConsumer, startLine)
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseParen, kindCase, startLine); err != nil {
		return nil, err
	}
	return &Case{Clauses: clauses}, nil
}

func (p *Parser) parseEnd() (*End, error) {
	p.r.skipWhitespace()
	keyword := p.readWord()
	if keyword != kwEnd {
		return nil, p.unexpectedWord(p.r.line, kindEnd, keyword)
	}
	return &End{}, nil
}

// --- statements ---

func (p *Parser) parseStatement() (Statement, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if p.r.peek() == symOpenSquare {
		return p.parseCut()
	}
	if err := p.expect(symOpenParen, kindStatement, startLine); err != nil {
		return nil, err
	}
	p.r.skipWhitespace()
	next := p.r.peek()
	switch next {
	case symPlus, symMinus, symStar, symSlash, symModulo:
		p.r.unread(symOpenParen)
		return p.parseArithmetic()
	default:
		if unicode.IsLetter(next) {
			word := p.peekWord(3)
			p.r.unread(symOpenParen)
			if word == kwIfz {
				return p.parseIfz()
			}
			return p.parseCall()
		}
		return nil, p.unexpectedChar(startLine, kindStatement, next)
	}
}

func (p *Parser) parseArithmetic() (*Arithmetic, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindArithmetic, startLine); err != nil {
		return nil, err
	}
	var op ArithmeticOp
	switch opSymbol := p.r.next(); opSymbol {
	case symPlus:
		op = OpAdd
	case symMinus:
		op = OpSub
	case symStar:
		op = OpMul
	case symSlash:
		op = OpDiv
	case symModulo:
		op = OpMod
	default:
		return nil, p.unexpectedChar(startLine, kindArithmetic, opSymbol)
	}
	left, err := p.parseProducer()
	if err != nil {
		return nil, err
	}
	right, err := p.parseProducer()
	if err != nil {
		return nil, err
	}
	after, err := p.parseConsumer()
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseParen, kindArithmetic, startLine); err != nil {
		return nil, err
	}
	return &Arithmetic{Op: op, Left: left, Right: right, After: after}, nil
}

func (p *Parser) parseIfz() (*Ifz, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindIfz, startLine); err != nil {
		return nil, err
	}
	keyword := p.readWord()
	if keyword != kwIfz {
		return nil, p.unexpectedWord(startLine, kindIfz, keyword)
	}
	condition, err := p.parseProducer()
	if err != nil {
		return nil, err
	}
	ifZero, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	ifOther, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseParen, kindIfz, startLine); err != nil {
		return nil, err
	}
	return &Ifz{Condition: condition, IfZero: ifZero, IfOther: ifOther}, nil
}

func (p *Parser) parseCut() (*Cut, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenSquare, kindCut, startLine); err != nil {
		return nil, err
	}
	producer, err := p.parseProducer()
	if err != nil {
		return nil, err
	}
	consumer, err := p.parseConsumer()
	if err != nil {
		return nil, err
	}
	if err := p.expect(symCloseSquare, kindCut, startLine); err != nil {
		return nil, err
	}
	return &Cut{Producer: producer, Consumer: consumer}, nil
}

func (p *Parser) parseCall() (*Call, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, kindCall, startLine); err != nil {
		return nil, err
	}
	name := p.readWord()
	if name == "" {
		return nil, p.unexpectedChar(startLine, kindCall, p.r.peek())
	}
	defID, ok := p.defIDs[name]
	if !ok {
		return nil, p.unknownName(startLine, kindCall, kindDefinition, name)
	}
	info := p.defArity[defID]
	args, err := p.parseProducerList(kindProducer)
	if err != nil {
		return nil, err
	}
	coargs, err := p.parseConsumerList(kindConsumer)
	if err != nil {
		return nil, err
	}
	if len(args) != info.Arity {
		return nil, p.arityMismatch(startLine, kindCall, name, PolarityProducer, info.Arity, len(args))
	}
	if len(coargs) != info.Coarity {
		return nil, p.arityMismatch(startLine, kindCall, name, PolarityConsumer, info.Coarity, len(coargs))
	}
	if err := p.expect(symCloseParen, kindCall, startLine); err != nil {
		return nil, err
	}
	return &Call{DefinitionID: defID, Name: name, Args: args, Coargs: coargs}, nil
}

// --- structors and clauses ---

// parseStructor parses a constructor (producer polarity) or destructor
// (consumer polarity) application: name, argument list if the structor has
// arguments, coargument list if it has coarguments.
func (p *Parser) parseStructor(polarity SyntaxPolarity) (AbstractionID, string, []Producer, []Consumer, error) {
	structorKind := kindConstructor
	structorIDs := p.constructorIDs
	if polarity == PolarityConsumer {
		structorKind = kindDestructor
		structorIDs = p.destructorIDs
	}
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, structorKind, startLine); err != nil {
		return 0, "", nil, nil, err
	}
	name := p.readWord()
	if name == "" {
		return 0, "", nil, nil, p.unexpectedChar(startLine, structorKind, p.r.peek())
	}
	id, ok := structorIDs[name]
	if !ok {
		return 0, "", nil, nil, p.unknownName(startLine, structorKind, structorKind, name)
	}
	info := p.structorArity[id]
	var args []Producer
	var err error
	if info.Arity > 0 {
		args, err = p.parseProducerList(kindArgument)
		if err != nil {
			return 0, "", nil, nil, err
		}
	}
	if len(args) != info.Arity {
		return 0, "", nil, nil, p.arityMismatch(startLine, structorKind, name, PolarityProducer, info.Arity, len(args))
	}
	var coargs []Consumer
	if info.Coarity > 0 {
		coargs, err = p.parseConsumerList(kindCoargument)
		if err != nil {
			return 0, "", nil, nil, err
		}
	}
	if len(coargs) != info.Coarity {
		return 0, "", nil, nil, p.arityMismatch(startLine, structorKind, name, PolarityConsumer, info.Coarity, len(coargs))
	}
	if err := p.expect(symCloseParen, structorKind, startLine); err != nil {
		return 0, "", nil, nil, err
	}
	return id, name, args, coargs, nil
}

// parseClause parses one case clause (consumer polarity, matching
// constructors) or cocase clause (producer polarity, matching
// destructors).
func (p *Parser) parseClause(polarity SyntaxPolarity) (Clause, error) {
	clauseKind := kindCaseClause
	structorKind := kindConstructor
	structorIDs := p.constructorIDs
	if polarity == PolarityProducer {
		clauseKind = kindCocaseClause
		structorKind = kindDestructor
		structorIDs = p.destructorIDs
	}
	p.r.skipWhitespace()
	startLine := p.r.line
	if err := p.expect(symOpenParen, clauseKind, startLine); err != nil {
		return Clause{}, err
	}
	structorName := p.readWord()
	if structorName == "" {
		return Clause{}, p.unexpectedChar(startLine, clauseKind, p.r.peek())
	}
	id, ok := structorIDs[structorName]
	if !ok {
		return Clause{}, p.unknownName(startLine, clauseKind, structorKind, structorName)
	}
	info := p.structorArity[id]
	var argNames []string
	var err error
	if info.Arity > 0 {
		argNames, err = p.parseNameList(kindParameter)
		if err != nil {
			return Clause{}, err
		}
	}
	if len(argNames) != info.Arity {
		return Clause{}, p.arityMismatch(startLine, clauseKind, structorName, PolarityProducer, info.Arity, len(argNames))
	}
	var coargNames []string
	if info.Coarity > 0 {
		coargNames, err = p.parseNameList(kindCoparameter)
		if err != nil {
			return Clause{}, err
		}
	}
	if len(coargNames) != info.Coarity {
		return Clause{}, p.arityMismatch(startLine, clauseKind, structorName, PolarityConsumer, info.Coarity, len(coargNames))
	}
	argIDs := p.pushVars(argNames)
	coargIDs := p.pushCovars(coargNames)
	body, err := p.parseStatement()
	p.popVars(argNames)
	p.popCovars(coargNames)
	if err != nil {
		return Clause{}, err
	}
	if err := p.expect(symCloseParen, kindClause, startLine); err != nil {
		return Clause{}, err
	}
	return Clause{
		AbstractionID: id,
		StructorName:  structorName,
		ArgNames:      argNames,
		CoargNames:    coargNames,
		ArgIDs:        argIDs,
		CoargIDs:      coargIDs,
		Body:          body,
	}, nil
}

// parseClauses parses a clause list and checks that the clauses all belong
// to one type and cover its structor set exactly.
func (p *Parser) parseClauses(polarity SyntaxPolarity, startLine int) ([]Clause, error) {
	clauseKind := kindCaseClause
	expressionKind := kindCase
	if polarity == PolarityProducer {
		clauseKind = kindCocaseClause
		expressionKind = kindCocase
	}
	clauses, err := parseList(p, clauseKind, func() (Clause, error) {
		return p.parseClause(polarity)
	})
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, p.parseErr(startLine, expressionKind, fmt.Sprintf("empty %s list", kindClause))
	}
	expected := make(map[AbstractionID]struct{})
	for _, id := range p.ctx.StructorsLike(clauses[0].AbstractionID) {
		expected[id] = struct{}{}
	}
	for _, clause := range clauses {
		if _, ok := expected[clause.AbstractionID]; !ok {
			return nil, p.parseErr(startLine, expressionKind,
				fmt.Sprintf("Duplicate or mismatched structor: %s", clause.StructorName))
		}
		delete(expected, clause.AbstractionID)
	}
	if len(expected) > 0 {
		return nil, p.parseErr(startLine, expressionKind, "incomplete clause list")
	}
	return clauses, nil
}

// --- lists ---

// parseList parses a parenthesised, whitespace-separated list of elements.
func parseList[T any](p *Parser, syntaxKind string, parseElem func() (T, error)) ([]T, error) {
	p.r.skipWhitespace()
	startLine := p.r.line
	if ch := p.r.next(); ch != symOpenParen {
		return nil, p.unexpectedChar(startLine, syntaxKind+" list", ch)
	}
	var result []T
	for {
		p.r.skipWhitespace()
		if p.r.peek() == symCloseParen {
			p.r.next()
			return result, nil
		}
		if p.r.peek() == eof {
			return nil, p.unexpectedChar(startLine, syntaxKind+" list", eof)
		}
		elem, err := parseElem()
		if err != nil {
			return nil, err
		}
		result = append(result, elem)
	}
}

func (p *Parser) parseProducerList(syntaxKind string) ([]Producer, error) {
	return parseList(p, syntaxKind, p.parseProducer)
}

func (p *Parser) parseConsumerList(syntaxKind string) ([]Consumer, error) {
	return parseList(p, syntaxKind, p.parseConsumer)
}

func (p *Parser) parseNameList(syntaxKind string) ([]string, error) {
	return parseList(p, syntaxKind, func() (string, error) {
		word := p.readWord()
		if word == "" {
			return "", p.unexpectedChar(p.r.line, syntaxKind, p.r.peek())
		}
		return word, nil
	})
}

// --- scope bookkeeping ---

func (p *Parser) pushVars(names []string) []VarID {
	ids := make([]VarID, 0, len(names))
	for _, name := range names {
		id := VarID(p.nVars)
		p.nVars++
		p.varCtx[name] = append(p.varCtx[name], id)
		ids = append(ids, id)
	}
	return ids
}

func (p *Parser) popVars(names []string) {
	for _, name := range names {
		stack := p.varCtx[name]
		p.varCtx[name] = stack[:len(stack)-1]
	}
}

func (p *Parser) pushCovars(names []string) []CovarID {
	ids := make([]CovarID, 0, len(names))
	for _, name := range names {
		id := CovarID(p.nCovars)
		p.nCovars++
		p.covarCtx[name] = append(p.covarCtx[name], id)
		ids = append(ids, id)
	}
	return ids
}

func (p *Parser) popCovars(names []string) {
	for _, name := range names {
		stack := p.covarCtx[name]
		p.covarCtx[name] = stack[:len(stack)-1]
	}
}

// --- character layer ---

const eof = rune(-1)

// reader is a rune stream with pushback and line tracking. Only
// skipWhitespace consumes newlines, so it is the only place the line
// counter advances.
type reader struct {
	rd      *bufio.Reader
	pending []rune
	line    int
}

func (r *reader) next() rune {
	if n := len(r.pending); n > 0 {
		ch := r.pending[n-1]
		r.pending = r.pending[:n-1]
		return ch
	}
	ch, _, err := r.rd.ReadRune()
	if err != nil {
		return eof
	}
	return ch
}

func (r *reader) peek() rune {
	ch := r.next()
	if ch != eof {
		r.unread(ch)
	}
	return ch
}

func (r *reader) unread(ch rune) {
	r.pending = append(r.pending, ch)
}

func (r *reader) skipWhitespace() {
	for {
		ch := r.next()
		if ch == eof {
			return
		}
		if !unicode.IsSpace(ch) {
			r.unread(ch)
			return
		}
		if ch == '\n' {
			r.line++
		}
	}
}

// readWord skips whitespace and reads a maximal run of non-whitespace,
// non-delimiter runes. Delimiters are ( ) [ ].
func (p *Parser) readWord() string {
	return p.readWordMax(-1)
}

func (p *Parser) readWordMax(maxLen int) string {
	p.r.skipWhitespace()
	var word []rune
	for maxLen < 0 || len(word) < maxLen {
		ch := p.r.peek()
		switch ch {
		case symOpenParen, symCloseParen, symOpenSquare, symCloseSquare, eof:
			return string(word)
		}
		if unicode.IsSpace(ch) {
			return string(word)
		}
		word = append(word, p.r.next())
	}
	return string(word)
}

// peekWord reads a word of at most maxLen runes and puts it back.
func (p *Parser) peekWord(maxLen int) string {
	word := p.readWordMax(maxLen)
	runes := []rune(word)
	for i := len(runes) - 1; i >= 0; i-- {
		p.r.unread(runes[i])
	}
	return word
}

// expect skips whitespace and consumes the next rune, which must equal
// expected.
func (p *Parser) expect(expected rune, context string, startLine int) error {
	p.r.skipWhitespace()
	if ch := p.r.next(); ch != expected {
		return p.unexpectedChar(startLine, context, ch)
	}
	return nil
}

// --- parse errors ---

// ParseError is the base parse error; it is also used directly for one-off
// structural problems (duplicate definitions, non-total clause sets,
// reserved names).
type ParseError struct {
	causeLine   int
	contextLine int
	context     string
	explanation string
}

// Name implements Error.
func (e *ParseError) Name() string {
	return "Parse error"
}

// Message implements Error.
func (e *ParseError) Message() string {
	return fmt.Sprintf("On line %d, while parsing a %s (starting on line %d): %s",
		e.causeLine, e.context, e.contextLine, e.explanation)
}

func (e *ParseError) Error() string {
	return e.Name() + ": " + e.Message()
}

// CauseLine returns the 1-based line of the failing input.
func (e *ParseError) CauseLine() int {
	return e.causeLine
}

// ContextLine returns the 1-based line where the enclosing construct
// began.
func (e *ParseError) ContextLine() int {
	return e.contextLine
}

// UnexpectedCharError reports an unexpected character or end of input.
type UnexpectedCharError struct {
	ParseError
	// Char is the offending rune; it equals the package's eof sentinel
	// (-1) at end of input.
	Char rune
}

// UnknownNameError reports an undefined (co)variable, structor or
// definition.
type UnknownNameError struct {
	ParseError
	SyntaxKind string
	Ident      string
}

// ArityMismatchError reports a structor application or call with the wrong
// number of arguments (producer polarity) or coarguments (consumer
// polarity).
type ArityMismatchError struct {
	ParseError
	SyntaxName string
	Polarity   SyntaxPolarity
	Expected   int
	Actual     int
}

func (p *Parser) parseErr(contextLine int, context, explanation string) error {
	return &ParseError{
		causeLine:   p.r.line,
		contextLine: contextLine,
		context:     context,
		explanation: explanation,
	}
}

func (p *Parser) unexpectedChar(contextLine int, context string, ch rune) error {
	explanation := "unexpected end of input"
	if ch != eof {
		explanation = fmt.Sprintf("unexpected %q", ch)
	}
	return &UnexpectedCharError{
		ParseError: ParseError{
			causeLine:   p.r.line,
			contextLine: contextLine,
			context:     context,
			explanation: explanation,
		},
		Char: ch,
	}
}

// unexpectedWord reports an unexpected keyword, blaming its first rune, or
// the next rune in the input if the word is empty.
func (p *Parser) unexpectedWord(contextLine int, context, word string) error {
	cause := p.r.peek()
	if word != "" {
		cause = []rune(word)[0]
	}
	return p.unexpectedChar(contextLine, context, cause)
}

func (p *Parser) unknownName(contextLine int, context, syntaxKind, name string) error {
	return &UnknownNameError{
		ParseError: ParseError{
			causeLine:   p.r.line,
			contextLine: contextLine,
			context:     context,
			explanation: fmt.Sprintf("unknown %s: %s", syntaxKind, name),
		},
		SyntaxKind: syntaxKind,
		Ident:      name,
	}
}

func (p *Parser) arityMismatch(contextLine int, context, name string, polarity SyntaxPolarity, expected, actual int) error {
	which := miscArity
	if polarity == PolarityConsumer {
		which = miscCoarity
	}
	return &ArityMismatchError{
		ParseError: ParseError{
			causeLine:   p.r.line,
			contextLine: contextLine,
			context:     context,
			explanation: fmt.Sprintf("%s mismatch: %s expects %d, got %d", which, name, expected, actual),
		},
		SyntaxName: name,
		Polarity:   polarity,
		Expected:   expected,
		Actual:     actual,
	}
}
