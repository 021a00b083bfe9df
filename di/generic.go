package di

import (
	"reflect"
)

// Get resolves T with the given annotations.
//
// Example:
//
//	svc, err := di.Get[*app.Service](r)
func Get[T any](r *Resolver, annotations ...Annotation) (T, error) {
	var zero T
	v, err := r.Resolve(IdentifierOf[T](annotations...))
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// MustGet is Get that panics on error. Meant for composition roots and tests.
func MustGet[T any](r *Resolver, annotations ...Annotation) T {
	v, err := Get[T](r, annotations...)
	if err != nil {
		panic(err)
	}
	return v
}

// NewOf builds a new instance of T, bypassing the singleton store for T itself.
func NewOf[T any](r *Resolver) (T, error) {
	var zero T
	v, err := r.NewInstance(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// Register stores instance as the singleton of T.
func Register[T any](r *Resolver, instance T) error {
	return r.Register(reflect.TypeFor[T](), instance)
}

// RegisterProvider registers provider for T. See Resolver.RegisterProvider.
func RegisterProvider[T any](r *Resolver, provider any) error {
	return r.RegisterProvider(reflect.TypeFor[T](), provider)
}

// RegisterProviderType registers the provider type P for T. P is resolved
// like any other type and its Get method supplies T.
func RegisterProviderType[T, P any](r *Resolver) error {
	return r.RegisterProvider(reflect.TypeFor[T](), reflect.TypeFor[P]())
}

// Bind maps the abstract type A to the concrete type C.
func Bind[A, C any](r *Resolver) error {
	return r.Bind(reflect.TypeFor[A](), reflect.TypeFor[C]())
}

func as[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, configErr(reflect.TypeFor[T](), "resolved "+reflect.TypeOf(v).String()+", which is not assignable")
	}
	return t, nil
}
