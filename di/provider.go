package di

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Provider defers resolution of T. Declaring a Provider[T] field or parameter
// injects a function that resolves T anew on every call; singleton-scoped
// types still come from the singleton store.
//
//	type Handler struct {
//	  Sessions di.Provider[*Session] `inject:""`
//	}
//
// A Provider breaks construction cycles: it is injected without resolving T.
type Provider[T any] func() (T, error)

var providerPkgPath = reflect.TypeFor[Provider[int]]().PkgPath()

// isProviderType reports whether t is an instantiation of Provider.
func isProviderType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Func && t.PkgPath() == providerPkgPath && strings.HasPrefix(t.Name(), "Provider[")
}

// ProviderHandler is the provider strategy. It injects Provider[T] values and
// serves types that have a registered provider. Registrations are write-once.
type ProviderHandler struct {
	mu       sync.RWMutex
	registry map[reflect.Type]Instantiation
}

// NewProviderHandler returns a handler with no registrations.
func NewProviderHandler() *ProviderHandler {
	return &ProviderHandler{registry: make(map[reflect.Type]Instantiation)}
}

// RegisterProvider registers provider for target. provider is either a value
// (a func() T, a func() (T, error), or a value with such a Get method) or a
// reflect.Type of a provider type with such a Get method. A provider type is
// resolved like any other dependency before its Get is called.
func (h *ProviderHandler) RegisterProvider(target reflect.Type, provider any) error {
	if target == nil {
		return configErr(nil, "provider target may not be nil")
	}
	if provider == nil {
		return configErr(target, "provider may not be nil")
	}

	var inst Instantiation
	if pt, ok := provider.(reflect.Type); ok {
		if err := getterShape(pt); err != nil {
			return err
		}
		inst = &providerTypeInstantiation{target: target, provider: pt}
	} else {
		fn, err := providerFunc(reflect.ValueOf(provider))
		if err != nil {
			return err
		}
		inst = &providerValueInstantiation{target: target, call: fn}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.registry[target]; exists {
		return &AlreadyRegisteredError{Kind: "provider", Key: target.String()}
	}
	h.registry[target] = inst
	return nil
}

// ResolveDependency implements DependencyHandler.
func (h *ProviderHandler) ResolveDependency(ctx *ResolutionContext) (Instantiation, error) {
	id := ctx.Identifier()
	if isProviderType(id.Type) {
		return lazyProvider(ctx, id)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry[id.Type], nil
}

// lazyProvider builds the Provider[T] value for id. The annotations of id
// apply to T. While the instance the provider is injected into is still
// being built, calls resolve T below that instance, so a call from its
// constructor or hook that leads back to it fails as a cycle.
func lazyProvider(ctx *ResolutionContext, id Identifier) (Instantiation, error) {
	t := id.Type.Out(0)
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return nil, configErr(id.Type, "injection of a provider was requested but no concrete type argument was given")
	}
	target := NewIdentifier(t, id.Annotations...)
	fn := reflect.MakeFunc(id.Type, func([]reflect.Value) []reflect.Value {
		v, err := resolveBelow(ctx, target, false)
		out := reflect.Zero(t)
		if err == nil && v != nil {
			out = reflect.ValueOf(v)
		}
		errOut := reflect.Zero(errorType)
		if err != nil {
			errOut = reflect.ValueOf(err)
		}
		return []reflect.Value{out, errOut}
	})
	return Resolved(fn.Interface()), nil
}

// resolveBelow resolves target on behalf of the instance ctx was created for.
// While that instance or one of its ancestors is still being built, target is
// resolved below the unfinished ones, so a call leading back to them fails as
// a cycle instead of recursing or waiting on itself.
func resolveBelow(ctx *ResolutionContext, target Identifier, fresh bool) (any, error) {
	r := ctx.Resolver()
	owner := ctx.unfinished(target)
	if owner == nil {
		if fresh {
			return r.NewInstance(target.Type)
		}
		return r.Resolve(target)
	}
	if err := checkCycle(owner.ancestors, target); err != nil {
		return nil, err
	}
	owner.fresh = fresh
	return r.resolve(owner)
}

type providerValueInstantiation struct {
	target reflect.Type
	call   reflect.Value
}

func (p *providerValueInstantiation) Dependencies() []Identifier { return nil }

func (p *providerValueInstantiation) Instantiate(values ...any) (any, error) {
	if len(values) != 0 {
		return nil, configErr(p.target, "provider takes no dependencies")
	}
	return callProvider(p.target, p.call)
}

type providerTypeInstantiation struct {
	target   reflect.Type
	provider reflect.Type
}

func (p *providerTypeInstantiation) Dependencies() []Identifier {
	return []Identifier{NewIdentifier(p.provider)}
}

func (p *providerTypeInstantiation) Instantiate(values ...any) (any, error) {
	if len(values) != 1 {
		return nil, configErr(p.target, "provider type instantiation expects exactly one value")
	}
	v, err := assignable(values[0], p.provider)
	if err != nil {
		return nil, &ConfigurationError{Type: p.target, Reason: "invalid argument for provider " + p.provider.String(), Err: err}
	}
	fn, err := providerFunc(v)
	if err != nil {
		return nil, err
	}
	return callProvider(p.target, fn)
}

// providerFunc returns v itself when it is a provider function, else its Get
// method.
func providerFunc(v reflect.Value) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, configErr(nil, "provider may not be nil")
	}
	if v.Kind() == reflect.Func {
		if v.IsNil() || !providerSignature(v.Type()) {
			return reflect.Value{}, configErr(v.Type(), "provider function must have the signature func() T or func() (T, error)")
		}
		return v, nil
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, configErr(v.Type(), "provider may not be nil")
		}
	}
	m := v.MethodByName("Get")
	if !m.IsValid() || !providerSignature(m.Type()) {
		return reflect.Value{}, configErr(v.Type(), "provider must have a method Get() T or Get() (T, error)")
	}
	return m, nil
}

// getterShape checks that values of pt have a suitable Get method.
func getterShape(pt reflect.Type) error {
	m, ok := pt.MethodByName("Get")
	if !ok {
		return configErr(pt, "provider type must have a method Get() T or Get() (T, error)")
	}
	ft := m.Type
	if pt.Kind() != reflect.Interface {
		// drop the receiver
		in := make([]reflect.Type, 0, ft.NumIn()-1)
		for i := 1; i < ft.NumIn(); i++ {
			in = append(in, ft.In(i))
		}
		out := make([]reflect.Type, ft.NumOut())
		for i := range out {
			out[i] = ft.Out(i)
		}
		ft = reflect.FuncOf(in, out, ft.IsVariadic())
	}
	if !providerSignature(ft) {
		return configErr(pt, "provider type must have a method Get() T or Get() (T, error)")
	}
	return nil
}

func providerSignature(ft reflect.Type) bool {
	if ft.NumIn() != 0 || ft.IsVariadic() {
		return false
	}
	switch ft.NumOut() {
	case 1:
		return true
	case 2:
		return ft.Out(1) == errorType
	}
	return false
}

func callProvider(target reflect.Type, fn reflect.Value) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ConfigurationError{Type: target, Reason: "provider panicked", Err: fmt.Errorf("%v", rec)}
		}
	}()
	results := fn.Call(nil)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, &ConfigurationError{Type: target, Reason: "provider failed", Err: results[1].Interface().(error)}
	}
	out := results[0].Interface()
	if out == nil {
		return nil, configErr(target, "provider returned nil")
	}
	if !reflect.TypeOf(out).AssignableTo(target) {
		return nil, configErr(target, "provider returned "+reflect.TypeOf(out).String()+", which is not assignable")
	}
	return out, nil
}
