package di

import (
	"reflect"
	"slices"
	"strings"
)

// Annotation is a marker attached to an injection point. Struct fields declare
// annotations in their inject tag:
//
//	type Server struct {
//	  Port int `inject:"HttpPort"`
//	}
//
// Annotation values are supplied through Resolver.ProvideAnnotation.
type Annotation string

// Identifier is the lookup key of a dependency: the requested type plus the
// annotations of the injection point. Two identifiers are equal when their
// types are identical and they carry the same set of annotations.
type Identifier struct {
	Type        reflect.Type
	Annotations []Annotation
}

// NewIdentifier returns an identifier for t. Annotations are copied, sorted and
// de-duplicated so the identifier is immutable and order independent.
func NewIdentifier(t reflect.Type, annotations ...Annotation) Identifier {
	var anns []Annotation
	if len(annotations) > 0 {
		anns = slices.Clone(annotations)
		slices.Sort(anns)
		anns = slices.Compact(anns)
	}
	return Identifier{Type: t, Annotations: anns}
}

// IdentifierOf returns the identifier of T with the given annotations.
func IdentifierOf[T any](annotations ...Annotation) Identifier {
	return NewIdentifier(reflect.TypeFor[T](), annotations...)
}

// Has reports whether the identifier carries the annotation a.
func (id Identifier) Has(a Annotation) bool {
	_, found := slices.BinarySearch(id.Annotations, a)
	return found
}

// Equal reports whether both identifiers denote the same injection key.
func (id Identifier) Equal(other Identifier) bool {
	return id.Type == other.Type && slices.Equal(id.Annotations, other.Annotations)
}

// String renders the identifier as "*app.Service" or "int@Port,@Size".
func (id Identifier) String() string {
	name := "<nil>"
	if id.Type != nil {
		name = id.Type.String()
	}
	if len(id.Annotations) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for i, a := range id.Annotations {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('@')
		b.WriteString(string(a))
	}
	return b.String()
}

func parseAnnotations(tag string) []Annotation {
	var out []Annotation
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "@")
		if part != "" {
			out = append(out, Annotation(part))
		}
	}
	return out
}
