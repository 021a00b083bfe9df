package di

import (
	"reflect"
	"strings"
	"sync"
)

// PackageValidator rejects types declared outside the configured root
// packages. Builtin and unnamed types, the types of this package and
// annotated identifiers are exempt. With no roots every type passes.
type PackageValidator struct {
	roots []string
}

// NewPackageValidator returns a validator admitting the given root packages
// and their sub-packages.
func NewPackageValidator(roots ...string) *PackageValidator {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if r = strings.TrimSuffix(strings.TrimSpace(r), "/"); r != "" {
			clean = append(clean, r)
		}
	}
	return &PackageValidator{roots: clean}
}

// PreConstruct implements PreConstructHandler.
func (v *PackageValidator) PreConstruct(ctx *ResolutionContext) error {
	id := ctx.Identifier()
	if len(id.Annotations) > 0 {
		return nil
	}
	return v.Validate(id.Type)
}

// Validate reports a ValidationError when t is declared outside the roots.
func (v *PackageValidator) Validate(t reflect.Type) error {
	if len(v.roots) == 0 {
		return nil
	}
	pkg := packageOf(t)
	if pkg == "" || pkg == providerPkgPath || v.Allowed(pkg) {
		return nil
	}
	return &ValidationError{Type: t, Reason: "is outside of the allowed packages"}
}

// Allowed reports whether pkg is one of the roots or below one.
func (v *PackageValidator) Allowed(pkg string) bool {
	if len(v.roots) == 0 {
		return true
	}
	for _, r := range v.roots {
		if pkg == r || strings.HasPrefix(pkg, r+"/") {
			return true
		}
	}
	return false
}

// packageOf returns the import path declaring t, looking through pointers.
func packageOf(t reflect.Type) string {
	for t != nil && t.Name() == "" && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.PkgPath()
}

// ImplementationHandler maps abstract types, usually interfaces, to the
// concrete types that are built in their place. Mappings are followed until a
// type without a mapping is reached.
type ImplementationHandler struct {
	mu       sync.RWMutex
	bindings map[reflect.Type]reflect.Type
}

// NewImplementationHandler returns a handler with no bindings.
func NewImplementationHandler() *ImplementationHandler {
	return &ImplementationHandler{bindings: make(map[reflect.Type]reflect.Type)}
}

// Bind maps abstract to concrete. concrete must be assignable to abstract and
// each abstract type may be bound once.
func (h *ImplementationHandler) Bind(abstract, concrete reflect.Type) error {
	if abstract == nil || concrete == nil {
		return configErr(abstract, "binding types may not be nil")
	}
	if abstract == concrete {
		return configErr(abstract, "type may not be bound to itself")
	}
	if !concrete.AssignableTo(abstract) {
		return configErr(abstract, concrete.String()+" is not assignable")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bindings[abstract]; exists {
		return &AlreadyRegisteredError{Kind: "binding", Key: abstract.String()}
	}
	h.bindings[abstract] = concrete
	return nil
}

// Implementation returns the type t is finally mapped to, or t itself.
func (h *ImplementationHandler) Implementation(t reflect.Type) reflect.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for range len(h.bindings) {
		next, ok := h.bindings[t]
		if !ok {
			break
		}
		t = next
	}
	return t
}

// PreConstruct implements PreConstructHandler.
func (h *ImplementationHandler) PreConstruct(ctx *ResolutionContext) error {
	id := ctx.Identifier()
	if impl := h.Implementation(id.Type); impl != id.Type {
		ctx.SetIdentifier(NewIdentifier(impl, id.Annotations...))
	}
	return nil
}
