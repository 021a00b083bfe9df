package di

import (
	"reflect"
	"strconv"
	"sync"
)

// SavedAnnotationsHandler resolves annotated injection points to values
// provided up front.
//
// Expected usage:
//
//	h := di.NewSavedAnnotationsHandler()
//	_ = h.ProvideAnnotation("HttpPort", 8080)
//
// after which a Port field tagged inject:"HttpPort" receives 8080. Values are
// write-once and are injected as they are: they are never post-constructed
// nor cached as singletons.
type SavedAnnotationsHandler struct {
	mu    sync.RWMutex
	items map[Annotation]any
}

// NewSavedAnnotationsHandler returns a handler with no values.
func NewSavedAnnotationsHandler() *SavedAnnotationsHandler {
	return &SavedAnnotationsHandler{items: map[Annotation]any{}}
}

// ProvideAnnotation implements AnnotationValueHandler.
func (h *SavedAnnotationsHandler) ProvideAnnotation(a Annotation, value any) error {
	if a == "" {
		return configErr(nil, "annotation may not be empty")
	}
	if value == nil {
		return configErr(nil, "value for annotation "+strconv.Quote(string(a))+" may not be nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.items[a]; exists {
		return &AlreadyRegisteredError{Kind: "annotation value", Key: string(a)}
	}
	h.items[a] = value
	return nil
}

// Value returns the value provided for a, if any.
func (h *SavedAnnotationsHandler) Value(a Annotation) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.items[a]
	return v, ok
}

// ResolveAnnotation implements AnnotationValueHandler. An identifier whose
// annotations carry no value is left to the other handlers; more than one
// value is ambiguous.
func (h *SavedAnnotationsHandler) ResolveAnnotation(ctx *ResolutionContext) (Instantiation, error) {
	id := ctx.Identifier()
	var (
		found Annotation
		value any
	)
	for _, a := range id.Annotations {
		v, ok := h.Value(a)
		if !ok {
			continue
		}
		if value != nil {
			return nil, configErr(id.Type, "annotations "+strconv.Quote(string(found))+" and "+strconv.Quote(string(a))+" both provide a value")
		}
		found, value = a, v
	}
	if value == nil {
		return nil, nil
	}
	if !reflect.TypeOf(value).AssignableTo(id.Type) {
		return nil, configErr(id.Type, "value of annotation "+strconv.Quote(string(found))+" has type "+reflect.TypeOf(value).String()+", which is not assignable")
	}
	return Resolved(value), nil
}
