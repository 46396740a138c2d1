package lammm

import (
	"errors"
	"testing"
)

// --- small helpers ----------------------------------------------------------

func concreteOf(t *testing.T, ctx *TypingContext, h TypeHandle) ConcreteType {
	t.Helper()
	instance, ok := ctx.GetTypeInstance(h).(ConcreteType)
	if !ok {
		t.Fatalf("want a concrete type, got %#v", ctx.GetTypeInstance(h))
	}
	return instance
}

func mustUnify(t *testing.T, ctx *TypingContext, a, b TypeHandle) {
	t.Helper()
	if err := ctx.Unify(a, b); err != nil {
		t.Fatalf("Unify error: %v", err)
	}
}

func unifyKind(t *testing.T, ctx *TypingContext, a, b TypeHandle, want UnificationKind) *UnificationError {
	t.Helper()
	err := ctx.Unify(a, b)
	if err == nil {
		t.Fatalf("expected unification to fail")
	}
	var uerr *UnificationError
	if !errors.As(err, &uerr) {
		t.Fatalf("want *UnificationError, got %#v", err)
	}
	if uerr.Kind != want {
		t.Fatalf("want kind %d, got %d (%s)", want, uerr.Kind, uerr.Message())
	}
	return uerr
}

// --- union-find basics -------------------------------------------------------

func Test_Types_UnifyVarWithConcrete(t *testing.T) {
	ctx := DefaultTypingContext()
	v := ctx.FreshTypeVariable()
	intType := ctx.GetPrimitivePrototype(TypeInteger)
	mustUnify(t, ctx, v, intType)
	if got := concreteOf(t, ctx, v).TypeID; got != TypeInteger {
		t.Fatalf("want Integer, got type id %d", got)
	}
}

func Test_Types_UnifyChain(t *testing.T) {
	ctx := DefaultTypingContext()
	a := ctx.FreshTypeVariable()
	b := ctx.FreshTypeVariable()
	c := ctx.FreshTypeVariable()
	mustUnify(t, ctx, a, b)
	mustUnify(t, ctx, b, c)
	mustUnify(t, ctx, c, ctx.GetPrimitivePrototype(TypeInteger))
	for _, h := range []TypeHandle{a, b, c} {
		if got := concreteOf(t, ctx, h).TypeID; got != TypeInteger {
			t.Fatalf("want Integer through the chain, got type id %d", got)
		}
	}
}

func Test_Types_UnifyMismatch(t *testing.T) {
	ctx := DefaultTypingContext()
	nilInstance := ctx.Instantiate(AbsNil)
	intType := ctx.GetPrimitivePrototype(TypeInteger)
	uerr := unifyKind(t, ctx, *nilInstance.Type, intType, UnifyMismatch)
	mustContain(t, uerr.Message(), "different type constructors")
}

func Test_Types_OccursCheck(t *testing.T) {
	ctx := DefaultTypingContext()
	nilInstance := ctx.Instantiate(AbsNil)
	list := *nilInstance.Type
	element := concreteOf(t, ctx, list).Params[0]
	uerr := unifyKind(t, ctx, element, list, UnifyOccurs)
	mustContain(t, uerr.Message(), "occurs in")
}

// Unifying parameters recurses structurally.
func Test_Types_UnifyConcreteParams(t *testing.T) {
	ctx := DefaultTypingContext()
	first := ctx.Instantiate(AbsNil)
	second := ctx.Instantiate(AbsNil)
	mustUnify(t, ctx, concreteOf(t, ctx, *first.Type).Params[0], ctx.GetPrimitivePrototype(TypeInteger))
	mustUnify(t, ctx, *first.Type, *second.Type)
	got := concreteOf(t, ctx, concreteOf(t, ctx, *second.Type).Params[0])
	if got.TypeID != TypeInteger {
		t.Fatalf("want parameter unified to Integer, got type id %d", got.TypeID)
	}
}

// --- instantiation -----------------------------------------------------------

// Variables shared inside a signature stay shared in one clone but are
// independent across clones.
func Test_Types_InstantiateSharing(t *testing.T) {
	ctx := DefaultTypingContext()
	cons := ctx.Instantiate(AbsCons)
	// Cons(a, List a) : List a — binding the first argument's type must
	// show up in the result's parameter.
	mustUnify(t, ctx, cons.Args[0], ctx.GetPrimitivePrototype(TypeInteger))
	resultParam := concreteOf(t, ctx, *cons.Type).Params[0]
	if got := concreteOf(t, ctx, resultParam).TypeID; got != TypeInteger {
		t.Fatalf("sharing broken: want Integer, got type id %d", got)
	}
	// A second instance is unconstrained.
	other := ctx.Instantiate(AbsCons)
	if _, stillVar := ctx.GetTypeInstance(other.Args[0]).(TypeVar); !stillVar {
		t.Fatalf("instances are not independent")
	}
}

// Instantiating must not mutate the prototype signature.
func Test_Types_InstantiateLeavesPrototypeFree(t *testing.T) {
	ctx := DefaultTypingContext()
	instance := ctx.Instantiate(AbsCons)
	mustUnify(t, ctx, instance.Args[0], ctx.GetPrimitivePrototype(TypeInteger))
	prototype := ctx.GetAbstraction(AbsCons)
	if _, stillVar := ctx.GetTypeInstance(prototype.Args[0]).(TypeVar); !stillVar {
		t.Fatalf("prototype was constrained by instantiation")
	}
}

func Test_Types_StructorsLike(t *testing.T) {
	ctx := DefaultTypingContext()
	list := ctx.StructorsLike(AbsCons)
	if len(list) != 2 || list[0] != AbsNil || list[1] != AbsCons {
		t.Fatalf("unexpected List structors: %v", list)
	}
	stream := ctx.StructorsLike(AbsHead)
	if len(stream) != 2 || stream[0] != AbsHead || stream[1] != AbsTail {
		t.Fatalf("unexpected Stream structors: %v", stream)
	}
}

// Definition signatures have fresh variable parameters and no result type.
func Test_Types_AddDefinition(t *testing.T) {
	ctx := DefaultTypingContext()
	id := ctx.AddDefinition("Frob", 2, 1)
	abstraction := ctx.GetAbstraction(id)
	if abstraction.Type != nil {
		t.Fatalf("definitions have no result type")
	}
	if abstraction.Arity() != 2 || abstraction.Coarity() != 1 {
		t.Fatalf("unexpected signature shape: %d/%d", abstraction.Arity(), abstraction.Coarity())
	}
	for _, arg := range abstraction.Args {
		if _, isVar := ctx.GetTypeInstance(arg).(TypeVar); !isVar {
			t.Fatalf("definition parameters must start as variables")
		}
	}
}

// The prototype accessor returns the un-cloned signature: constraining it
// constrains future instances.
func Test_Types_PrototypeIsShared(t *testing.T) {
	ctx := DefaultTypingContext()
	id := ctx.AddDefinition("Frob", 1, 0)
	prototype := ctx.GetAbstractionPrototype(id)
	mustUnify(t, ctx, prototype.Args[0], ctx.GetPrimitivePrototype(TypeInteger))
	instance := ctx.Instantiate(id)
	if got := concreteOf(t, ctx, instance.Args[0]).TypeID; got != TypeInteger {
		t.Fatalf("prototype constraint not visible in instance")
	}
}
