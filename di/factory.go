package di

import (
	"reflect"
	"strings"
)

// Factory builds new instances of T or of types assignable to T. Declaring a
// Factory[T] field or parameter injects one bound to the resolver.
//
//	type Importer struct {
//	  Parsers di.Factory[Parser] `inject:""`
//	}
//
//	p, err := di.Make[*CSVParser](imp.Parsers)
//
// Built instances never come from or go into the singleton store, whatever
// the scope of their type. The zero Factory fails every call.
type Factory[T any] struct{ src *source }

// New builds a new instance of sub, which must be assignable to T. A nil sub
// builds T itself.
func (f Factory[T]) New(sub reflect.Type) (T, error) {
	var zero T
	v, err := f.src.call(reflect.TypeFor[T](), sub, true)
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// Make builds a new instance of C through f.
func Make[C, T any](f Factory[T]) (C, error) {
	var zero C
	v, err := f.src.call(reflect.TypeFor[T](), reflect.TypeFor[C](), true)
	if err != nil {
		return zero, err
	}
	return as[C](v)
}

// SingletonStore gives access to the singletons of T and of the types
// assignable to T. Declaring a SingletonStore[T] field or parameter injects
// one bound to the resolver. The zero SingletonStore fails every call.
type SingletonStore[T any] struct{ src *source }

// Get returns the singleton of sub, building it when it does not exist yet.
// sub must be assignable to T; a nil sub means T itself.
func (s SingletonStore[T]) Get(sub reflect.Type) (T, error) {
	var zero T
	v, err := s.src.call(reflect.TypeFor[T](), sub, false)
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// All returns the singletons stored so far whose type is assignable to T,
// ordered by type name. Nothing is built.
func (s SingletonStore[T]) All() []T {
	if s.src == nil {
		return nil
	}
	vs := s.src.ctx.Resolver().store.assignable(reflect.TypeFor[T]())
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// SingletonOf returns the singleton of C through s.
func SingletonOf[C, T any](s SingletonStore[T]) (C, error) {
	var zero C
	v, err := s.src.call(reflect.TypeFor[T](), reflect.TypeFor[C](), false)
	if err != nil {
		return zero, err
	}
	return as[C](v)
}

// source ties an injected Factory or SingletonStore to the context of its
// injection point.
type source struct {
	ctx *ResolutionContext
}

func (s *source) call(base, sub reflect.Type, fresh bool) (any, error) {
	if s == nil {
		return nil, configErr(base, "not injected by a resolver")
	}
	if sub == nil {
		sub = base
	}
	if !sub.AssignableTo(base) {
		return nil, configErr(base, sub.String()+" is not assignable")
	}
	if err := s.ctx.Resolver().validatePackage(sub); err != nil {
		return nil, err
	}
	return resolveBelow(s.ctx, NewIdentifier(sub), fresh)
}

// sourced is implemented by every instantiation of Factory and SingletonStore.
type sourced interface {
	typeArg() reflect.Type
	withSource(*source) any
}

func (Factory[T]) typeArg() reflect.Type           { return reflect.TypeFor[T]() }
func (Factory[T]) withSource(s *source) any        { return Factory[T]{src: s} }
func (SingletonStore[T]) typeArg() reflect.Type    { return reflect.TypeFor[T]() }
func (SingletonStore[T]) withSource(s *source) any { return SingletonStore[T]{src: s} }

// FactoryDependencyHandler injects Factory[T] values.
type FactoryDependencyHandler struct{}

// ResolveDependency implements DependencyHandler.
func (FactoryDependencyHandler) ResolveDependency(ctx *ResolutionContext) (Instantiation, error) {
	return bindSource(ctx, "Factory")
}

// SingletonStoreDependencyHandler injects SingletonStore[T] values.
type SingletonStoreDependencyHandler struct{}

// ResolveDependency implements DependencyHandler.
func (SingletonStoreDependencyHandler) ResolveDependency(ctx *ResolutionContext) (Instantiation, error) {
	return bindSource(ctx, "SingletonStore")
}

// bindSource serves identifiers of the generic type named kind. The type
// argument must be concrete and pass the resolver's package validation.
func bindSource(ctx *ResolutionContext, kind string) (Instantiation, error) {
	t := ctx.Identifier().Type
	if t.PkgPath() != providerPkgPath || !strings.HasPrefix(t.Name(), kind+"[") {
		return nil, nil
	}
	b, ok := reflect.Zero(t).Interface().(sourced)
	if !ok {
		return nil, nil
	}
	arg := b.typeArg()
	if arg.Kind() == reflect.Interface && arg.NumMethod() == 0 {
		return nil, configErr(t, "injection of a "+kind+" was requested but no concrete type argument was given")
	}
	if err := ctx.Resolver().validatePackage(arg); err != nil {
		return nil, err
	}
	return Resolved(b.withSource(&source{ctx: ctx})), nil
}
