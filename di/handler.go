package di

import (
	"reflect"
	"slices"
)

// PreConstructHandler runs before any attempt to resolve an identifier. It
// may veto the request by returning an error or replace the identifier via
// ResolutionContext.SetIdentifier.
type PreConstructHandler interface {
	PreConstruct(ctx *ResolutionContext) error
}

// AnnotationValueHandler resolves identifiers carrying annotations to values
// registered for those annotations.
type AnnotationValueHandler interface {
	ProvideAnnotation(a Annotation, value any) error
	ResolveAnnotation(ctx *ResolutionContext) (Instantiation, error)
}

// DependencyHandler resolves an identifier to an already available value or
// to an instantiation. It returns (nil, nil) when it does not apply.
type DependencyHandler interface {
	ResolveDependency(ctx *ResolutionContext) (Instantiation, error)
}

// InstantiationProvider decides how a type is built. It returns (nil, nil)
// when it cannot build the type.
type InstantiationProvider interface {
	Instantiation(ctx *ResolutionContext) (Instantiation, error)
}

// PostConstructHandler runs on every newly built instance.
type PostConstructHandler interface {
	PostConstruct(ctx *ResolutionContext, instance any) error
}

// ProviderRegistrar accepts provider registrations. It is not a chain of its
// own: the resolver forwards RegisterProvider to every enrolled handler that
// implements it.
type ProviderRegistrar interface {
	RegisterProvider(target reflect.Type, provider any) error
}

// Binder accepts abstract-to-concrete bindings. Like ProviderRegistrar it is
// looked up on the enrolled pre-construct handlers.
type Binder interface {
	Bind(abstract, concrete reflect.Type) error
}

// Chains holds the handlers of every category, in configured order.
type Chains struct {
	PreConstruct    []PreConstructHandler
	AnnotationValue []AnnotationValueHandler
	Dependency      []DependencyHandler
	Instantiation   []InstantiationProvider
	PostConstruct   []PostConstructHandler
}

// Clone returns a copy whose slices do not share storage with c.
func (c Chains) Clone() Chains {
	return Chains{
		PreConstruct:    slices.Clone(c.PreConstruct),
		AnnotationValue: slices.Clone(c.AnnotationValue),
		Dependency:      slices.Clone(c.Dependency),
		Instantiation:   slices.Clone(c.Instantiation),
		PostConstruct:   slices.Clone(c.PostConstruct),
	}
}

type capability func(c *Chains, h any) bool

// capabilities is tested against every handler; a handler is enrolled in
// each chain whose capability it has.
var capabilities = []capability{
	func(c *Chains, h any) bool {
		v, ok := h.(PreConstructHandler)
		if ok {
			c.PreConstruct = append(c.PreConstruct, v)
		}
		return ok
	},
	func(c *Chains, h any) bool {
		v, ok := h.(AnnotationValueHandler)
		if ok {
			c.AnnotationValue = append(c.AnnotationValue, v)
		}
		return ok
	},
	func(c *Chains, h any) bool {
		v, ok := h.(DependencyHandler)
		if ok {
			c.Dependency = append(c.Dependency, v)
		}
		return ok
	},
	func(c *Chains, h any) bool {
		v, ok := h.(InstantiationProvider)
		if ok {
			c.Instantiation = append(c.Instantiation, v)
		}
		return ok
	},
	func(c *Chains, h any) bool {
		v, ok := h.(PostConstructHandler)
		if ok {
			c.PostConstruct = append(c.PostConstruct, v)
		}
		return ok
	},
}

// Classify sorts handlers into chains, keeping their relative order. It fails
// on nil handlers and on handlers that have none of the known capabilities.
func Classify(handlers ...any) (Chains, error) {
	var chains Chains
	for _, h := range handlers {
		if h == nil {
			return Chains{}, configErr(nil, "handler may not be nil")
		}
		matched := false
		for _, c := range capabilities {
			if c(&chains, h) {
				matched = true
			}
		}
		if !matched {
			return Chains{}, configErr(reflect.TypeOf(h), "handler must implement a known handler capability")
		}
	}
	return chains, nil
}
