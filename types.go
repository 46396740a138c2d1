// types.go — the typing context: a union-find arena over type terms plus
// the registries of type prototypes and abstraction signatures.
//
// All types live in a single append-only arena. A cell is either a type
// variable, a concrete constructor application, or a forward pointer to
// another cell (installed by unification). Handles index the arena and
// never dangle; dereference chases forward pointers with path compression.
//
// Abstractions (constructors, destructors and top-level definitions) record
// their signatures here. Instantiate clones a signature with fresh
// variables, which is what gives top-level definitions let-polymorphism at
// their call sites.
package lammm

import "fmt"

// TypeID identifies a type constructor (e.g. Integer or List).
type TypeID int

// AbstractionID identifies a structor or top-level definition inside the
// typing context.
type AbstractionID int

// TypeHandle is a reference to a type term in the context's arena.
type TypeHandle struct {
	id int
}

// TypeInstance is a view of a type cell: either a TypeVar or a
// ConcreteType. Forward cells are resolved before they are handed out.
type TypeInstance interface {
	isTypeInstance()
}

// TypeVar is a type variable, a hole that can be unified with any type.
// The ID is for display purposes only.
type TypeVar struct {
	ID int
}

// ConcreteType is a type constructor application.
type ConcreteType struct {
	TypeID TypeID
	Params []TypeHandle
}

// forward is a reference to another cell, installed when a variable gets
// unified with a type.
type forward struct {
	to TypeHandle
}

func (TypeVar) isTypeInstance()      {}
func (ConcreteType) isTypeInstance() {}
func (forward) isTypeInstance()      {}

// TypeTemplate describes how a structor's (co)argument types relate to the
// parameters of its result type. Build templates with TVar and TCon.
type TypeTemplate interface {
	isTypeTemplate()
}

type templateVar struct {
	index int
}

type templateCon struct {
	typeID TypeID
	params []TypeTemplate
}

func (templateVar) isTypeTemplate() {}
func (templateCon) isTypeTemplate() {}

// TVar is a template reference to the result type's index-th parameter.
func TVar(index int) TypeTemplate {
	return templateVar{index: index}
}

// TCon is a template application of a type constructor.
func TCon(id TypeID, params ...TypeTemplate) TypeTemplate {
	return templateCon{typeID: id, params: params}
}

// Abstraction is the type signature of a constructor, destructor or
// definition. Type is the result type; it is nil for definitions, whose
// instances are statements rather than producers or consumers.
type Abstraction struct {
	Type   *TypeHandle
	Name   string
	Args   []TypeHandle
	Coargs []TypeHandle
}

// Arity returns the number of arguments.
func (a *Abstraction) Arity() int {
	return len(a.Args)
}

// Coarity returns the number of coarguments.
func (a *Abstraction) Coarity() int {
	return len(a.Coargs)
}

// TypingContext encapsulates most things related to typing. It is
// monotonic: cells are appended and variables become bound to other terms,
// but nothing is ever removed.
type TypingContext struct {
	// Handles of free instances of types, to be cloned before use.
	typePrototypes []TypeHandle
	// Type names, for printing types.
	typeNames []string
	// Type structors, for checking (co)case totality. Registration order,
	// which is also id order.
	typeStructors map[TypeHandle][]AbstractionID
	// Constructors, destructors & definitions.
	abstractions []Abstraction
	// Type cells: prototypes as well as types of actual producers,
	// consumers & statements.
	types []TypeInstance
}

// NewTypingContext returns an empty typing context. Most callers want
// DefaultTypingContext instead.
func NewTypingContext() *TypingContext {
	return &TypingContext{typeStructors: make(map[TypeHandle][]AbstractionID)}
}

// AddTypePrototype registers a new concrete type with nParams fresh
// variable parameters and returns its id.
func (c *TypingContext) AddTypePrototype(name string, nParams int) TypeID {
	id := TypeID(len(c.typePrototypes))
	h := TypeHandle{id: len(c.types)}
	c.types = append(c.types, ConcreteType{TypeID: id})
	params := make([]TypeHandle, 0, nParams)
	for i := 0; i < nParams; i++ {
		params = append(params, c.FreshTypeVariable())
	}
	cell := c.types[h.id].(ConcreteType)
	cell.Params = params
	c.types[h.id] = cell
	c.typePrototypes = append(c.typePrototypes, h)
	c.typeNames = append(c.typeNames, name)
	return id
}

// AddStructor registers a new constructor or destructor of the type
// typeID. The argument and coargument templates are instantiated against
// the result type prototype's parameter handles, so a structor's signature
// shares variables with its type's prototype.
func (c *TypingContext) AddStructor(name string, typeID TypeID, args, coargs []TypeTemplate) AbstractionID {
	proto := c.typePrototypes[typeID]
	params := c.types[proto.id].(ConcreteType).Params
	argHandles := make([]TypeHandle, 0, len(args))
	for _, arg := range args {
		argHandles = append(argHandles, c.instantiateTemplate(arg, params))
	}
	coargHandles := make([]TypeHandle, 0, len(coargs))
	for _, coarg := range coargs {
		coargHandles = append(coargHandles, c.instantiateTemplate(coarg, params))
	}
	result := proto
	id := AbstractionID(len(c.abstractions))
	c.abstractions = append(c.abstractions, Abstraction{
		Type:   &result,
		Name:   name,
		Args:   argHandles,
		Coargs: coargHandles,
	})
	c.typeStructors[proto] = append(c.typeStructors[proto], id)
	return id
}

// AddDefinition registers a definition signature whose argument and
// coargument types are fresh variables and whose result type is absent.
func (c *TypingContext) AddDefinition(name string, arity, coarity int) AbstractionID {
	args := make([]TypeHandle, 0, arity)
	for i := 0; i < arity; i++ {
		args = append(args, c.FreshTypeVariable())
	}
	coargs := make([]TypeHandle, 0, coarity)
	for i := 0; i < coarity; i++ {
		coargs = append(coargs, c.FreshTypeVariable())
	}
	id := AbstractionID(len(c.abstractions))
	c.abstractions = append(c.abstractions, Abstraction{Name: name, Args: args, Coargs: coargs})
	return id
}

// GetTypeInstance resolves a handle to its cell, chasing forward pointers.
// The returned instance is never a forward cell.
func (c *TypingContext) GetTypeInstance(h TypeHandle) TypeInstance {
	return c.types[c.dereference(h).id]
}

// GetTypePrototype returns the handle of a type's prototype.
func (c *TypingContext) GetTypePrototype(id TypeID) TypeHandle {
	return c.typePrototypes[id]
}

// GetPrimitivePrototype returns the prototype handle of a primitive type,
// one with no parameters. Primitive prototypes have no variables to mangle,
// so they can be unified against directly without cloning.
func (c *TypingContext) GetPrimitivePrototype(id TypeID) TypeHandle {
	proto := c.typePrototypes[id]
	if len(c.types[proto.id].(ConcreteType).Params) > 0 {
		panic(fmt.Sprintf("lammm: type %s is not primitive", c.typeNames[id]))
	}
	return proto
}

// GetAbstraction returns the abstraction with the given id.
func (c *TypingContext) GetAbstraction(id AbstractionID) *Abstraction {
	return &c.abstractions[id]
}

// GetAbstractionPrototype returns an instance linked directly to the
// abstraction's prototype signature, without cloning. Unifying against it
// constrains the signature itself, which is exactly what typing a
// definition's own body (including recursive calls) needs.
func (c *TypingContext) GetAbstractionPrototype(id AbstractionID) Abstraction {
	a := &c.abstractions[id]
	return Abstraction{
		Type:   a.Type,
		Name:   a.Name,
		Args:   append([]TypeHandle(nil), a.Args...),
		Coargs: append([]TypeHandle(nil), a.Coargs...),
	}
}

// GetTypeName returns the name of a type (e.g. "Integer" or "List").
func (c *TypingContext) GetTypeName(id TypeID) string {
	return c.typeNames[id]
}

// StructorsLike returns the ids of all structors sharing the given
// structor's result type, in id order. Used for totality checks.
func (c *TypingContext) StructorsLike(id AbstractionID) []AbstractionID {
	t := c.abstractions[id].Type
	return append([]AbstractionID(nil), c.typeStructors[*t]...)
}

// Instantiate clones an abstraction's signature, transitively cloning all
// relevant types. Variables shared within the signature remain shared in
// the clone but are independent across distinct clones.
func (c *TypingContext) Instantiate(id AbstractionID) Abstraction {
	a := &c.abstractions[id]
	toClone := make([]TypeHandle, 0, a.Arity()+a.Coarity()+1)
	toClone = append(toClone, a.Args...)
	toClone = append(toClone, a.Coargs...)
	if a.Type != nil {
		toClone = append(toClone, *a.Type)
	}
	fresh := c.cloneTypes(toClone)
	instance := Abstraction{Name: a.Name}
	if a.Type != nil {
		result := fresh[len(fresh)-1]
		instance.Type = &result
	}
	instance.Args = fresh[:a.Arity()]
	instance.Coargs = fresh[a.Arity() : a.Arity()+a.Coarity()]
	return instance
}

// FreshTypeVariable appends a new variable cell and returns its handle.
func (c *TypingContext) FreshTypeVariable() TypeHandle {
	h := TypeHandle{id: len(c.types)}
	c.types = append(c.types, TypeVar{ID: h.id})
	return h
}

// Unify unifies two types in place. On success the types have become the
// same type; on failure it returns a *UnificationError and leaves the
// context partially unified.
func (c *TypingContext) Unify(a, b TypeHandle) error {
	return c.unifyRec(a, b)
}

func (c *TypingContext) unifyRec(a, b TypeHandle) error {
	a = c.dereference(a)
	b = c.dereference(b)
	if a == b {
		return nil
	}
	// Eliminate the (concrete, var) case.
	if _, ok := c.types[b.id].(TypeVar); ok {
		a, b = b, a
	}
	if _, ok := c.types[a.id].(TypeVar); ok {
		if c.occurs(a, b) {
			return &UnificationError{Kind: UnifyOccurs, ctx: c, A: a, B: b}
		}
		c.types[a.id] = forward{to: b}
		return nil
	}
	// Both concrete.
	aCell := c.types[a.id].(ConcreteType)
	bCell := c.types[b.id].(ConcreteType)
	if aCell.TypeID != bCell.TypeID {
		return &UnificationError{Kind: UnifyMismatch, ctx: c, A: a, B: b}
	}
	// Parameter counts are equal by construction.
	for i := range aCell.Params {
		if err := c.unifyRec(aCell.Params[i], bCell.Params[i]); err != nil {
			return err
		}
	}
	return nil
}

// occurs reports whether the variable a occurs in b.
func (c *TypingContext) occurs(a, b TypeHandle) bool {
	b = c.dereference(b)
	switch cell := c.types[b.id].(type) {
	case TypeVar:
		return a == b
	case ConcreteType:
		for _, param := range cell.Params {
			if param == a || c.occurs(a, param) {
				return true
			}
		}
		return false
	}
	panic("lammm: dereference returned a forward cell")
}

// cloneTypes clones the given types and the types they depend on,
// transitively, sharing a single memo so that variable sharing is
// preserved within one call.
func (c *TypingContext) cloneTypes(handles []TypeHandle) []TypeHandle {
	memo := make(map[int]TypeHandle)
	out := make([]TypeHandle, len(handles))
	for i, h := range handles {
		out[i] = c.cloneTypeRec(h, memo)
	}
	return out
}

func (c *TypingContext) cloneTypeRec(h TypeHandle, memo map[int]TypeHandle) TypeHandle {
	h = c.dereference(h)
	if fresh, ok := memo[h.id]; ok {
		return fresh
	}
	switch cell := c.types[h.id].(type) {
	case TypeVar:
		fresh := c.FreshTypeVariable()
		memo[h.id] = fresh
		return fresh
	case ConcreteType:
		fresh := TypeHandle{id: len(c.types)}
		c.types = append(c.types, ConcreteType{TypeID: cell.TypeID})
		memo[h.id] = fresh
		params := make([]TypeHandle, 0, len(cell.Params))
		for _, param := range cell.Params {
			params = append(params, c.cloneTypeRec(param, memo))
		}
		newCell := c.types[fresh.id].(ConcreteType)
		newCell.Params = params
		c.types[fresh.id] = newCell
		return fresh
	}
	panic("lammm: dereference returned a forward cell")
}

// instantiateTemplate instantiates a type template, replacing template
// variables with the given parameter handles.
func (c *TypingContext) instantiateTemplate(t TypeTemplate, params []TypeHandle) TypeHandle {
	switch t := t.(type) {
	case templateVar:
		return params[t.index]
	case templateCon:
		newParams := make([]TypeHandle, 0, len(t.params))
		for _, param := range t.params {
			newParams = append(newParams, c.instantiateTemplate(param, params))
		}
		h := TypeHandle{id: len(c.types)}
		c.types = append(c.types, ConcreteType{TypeID: t.typeID, Params: newParams})
		return h
	}
	panic("lammm: unknown type template")
}

// dereference chases forward pointers and compresses the chain so later
// lookups are direct.
func (c *TypingContext) dereference(h TypeHandle) TypeHandle {
	if _, ok := c.types[h.id].(forward); !ok {
		return h
	}
	var chain []TypeHandle
	for {
		fwd, ok := c.types[h.id].(forward)
		if !ok {
			break
		}
		chain = append(chain, h)
		h = fwd.to
	}
	// The last link already points directly at the target.
	for _, link := range chain[:len(chain)-1] {
		c.types[link.id] = forward{to: h}
	}
	return h
}

// --- unification errors ---

// UnificationKind distinguishes the two ways unification can fail.
type UnificationKind int

const (
	// UnifyOccurs: a variable occurs in the type it would be bound to.
	UnifyOccurs UnificationKind = iota
	// UnifyMismatch: two concrete types have different constructors.
	UnifyMismatch
)

// UnificationError reports a failed unification. It keeps a reference to
// the typing context so the offending types can be printed.
type UnificationError struct {
	Kind UnificationKind
	ctx  *TypingContext
	A    TypeHandle
	B    TypeHandle
}

// Name implements Error.
func (e *UnificationError) Name() string {
	return "Unification error"
}

// Message implements Error.
func (e *UnificationError) Message() string {
	a := PrintString(e.A, PrintOptions{}, e.ctx)
	b := PrintString(e.B, PrintOptions{}, e.ctx)
	if e.Kind == UnifyOccurs {
		return fmt.Sprintf("type %s occurs in %s", a, b)
	}
	return fmt.Sprintf("%s and %s have different type constructors", a, b)
}

func (e *UnificationError) Error() string {
	return e.Name() + ": " + e.Message()
}

// --- builtin registry ---

// Builtin type ids, in registration order.
const (
	TypeInteger TypeID = iota
	TypeList
	TypePair
	TypeStream
	TypeLazyPair
	TypeLambda
)

// Builtin structor ids, in registration order.
const (
	AbsNil AbstractionID = iota
	AbsCons
	AbsPair
	AbsHead
	AbsTail
	AbsFst
	AbsSnd
	AbsAp
)

type builtinTypeSpec struct {
	name    string
	nParams int
	id      TypeID
}

var builtinTypes = []builtinTypeSpec{
	{typeNameInteger, 0, TypeInteger},
	{typeNameList, 1, TypeList},
	{typeNamePair, 2, TypePair},
	{typeNameStream, 1, TypeStream},
	{typeNameLazyPair, 2, TypeLazyPair},
	{typeNameLambda, 2, TypeLambda},
}

type builtinStructorSpec struct {
	name   string
	typeID TypeID
	args   []TypeTemplate
	coargs []TypeTemplate
	id     AbstractionID
}

var builtinStructors = []builtinStructorSpec{
	{structorNameNil, TypeList, nil, nil, AbsNil},
	{structorNameCons, TypeList, []TypeTemplate{TVar(0), TCon(TypeList, TVar(0))}, nil, AbsCons},
	{structorNamePair, TypePair, []TypeTemplate{TVar(0), TVar(1)}, nil, AbsPair},
	{structorNameHead, TypeStream, nil, []TypeTemplate{TVar(0)}, AbsHead},
	{structorNameTail, TypeStream, nil, []TypeTemplate{TCon(TypeStream, TVar(0))}, AbsTail},
	{structorNameFst, TypeLazyPair, nil, []TypeTemplate{TVar(0)}, AbsFst},
	{structorNameSnd, TypeLazyPair, nil, []TypeTemplate{TVar(1)}, AbsSnd},
	{structorNameAp, TypeLambda, []TypeTemplate{TVar(0)}, []TypeTemplate{TVar(1)}, AbsAp},
}

// DefaultTypingContext returns a new typing context seeded with all builtin
// types and structors.
func DefaultTypingContext() *TypingContext {
	ctx := NewTypingContext()
	for _, t := range builtinTypes {
		if got := ctx.AddTypePrototype(t.name, t.nParams); got != t.id {
			panic("lammm: builtin type registered under the wrong id")
		}
	}
	for _, s := range builtinStructors {
		if got := ctx.AddStructor(s.name, s.typeID, s.args, s.coargs); got != s.id {
			panic("lammm: builtin structor registered under the wrong id")
		}
	}
	return ctx
}
