package manifest

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/sghaida/odinject/di"
)

// Describer overlays a manifest on a base describer. Types without an entry
// are described by the base alone.
type Describer struct {
	base     di.Describer
	manifest *Manifest

	mu    sync.Mutex
	cache map[reflect.Type]*di.Description
}

// NewDescriber returns a describer applying m on top of base. A nil base
// means a fresh di.Catalog.
func NewDescriber(base di.Describer, m *Manifest) *Describer {
	if base == nil {
		base = di.NewCatalog()
	}
	if m == nil {
		m = &Manifest{}
	}
	return &Describer{base: base, manifest: m, cache: make(map[reflect.Type]*di.Description)}
}

// Describe implements di.Describer.
func (d *Describer) Describe(t reflect.Type) (*di.Description, error) {
	if t == nil {
		return nil, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc, ok := d.cache[t]; ok {
		return desc, nil
	}

	base, err := d.base.Describe(t)
	if err != nil {
		return nil, err
	}
	entry, ok := d.manifest.Entry(t.String(), packageOf(t))
	if !ok {
		return base, nil
	}
	desc, err := overlay(t, base, entry)
	if err != nil {
		return nil, err
	}
	d.cache[t] = desc
	return desc, nil
}

func overlay(t reflect.Type, base *di.Description, e TypeEntry) (*di.Description, error) {
	var desc di.Description
	if base != nil {
		desc = *base
		desc.Constructors = slices.Clone(base.Constructors)
		desc.Factories = slices.Clone(base.Factories)
		desc.Fields = slices.Clone(base.Fields)
		desc.PostConstruct = slices.Clone(base.PostConstruct)
	}
	desc.Type = t

	if e.Scope != "" {
		scope, ok := di.ParseScope(e.Scope)
		if !ok {
			return nil, &di.ConfigurationError{Type: t, Reason: "unknown scope " + strconv.Quote(e.Scope)}
		}
		desc.Scope = scope
	}

	if err := applyConstructor(t, &desc, e); err != nil {
		return nil, err
	}
	if err := applyFields(t, &desc, e.Fields); err != nil {
		return nil, err
	}

	if len(e.PostConstruct) > 0 {
		desc.PostConstruct = desc.PostConstruct[:0]
		for _, name := range e.PostConstruct {
			h, err := di.MethodHook(t, name)
			if err != nil {
				return nil, err
			}
			desc.PostConstruct = append(desc.PostConstruct, h)
		}
	}
	return &desc, nil
}

// applyConstructor marks the named constructor or factory and annotates the
// parameters of the members it applies to.
func applyConstructor(t reflect.Type, desc *di.Description, e TypeEntry) error {
	members := [][]di.Member{desc.Constructors, desc.Factories}
	found := e.Constructor == ""
	for _, list := range members {
		for i := range list {
			m := &list[i]
			if e.Constructor != "" {
				if !memberNamed(m.Name, e.Constructor) {
					continue
				}
				m.Marked = true
				found = true
			}
			m.Params = slices.Clone(m.Params)
			for _, p := range e.Params {
				if p.Index < 0 || p.Index >= len(m.Params) {
					return &di.ConfigurationError{Type: t, Reason: m.Name + " has no parameter " + strconv.Itoa(p.Index)}
				}
				id := m.Params[p.Index]
				if p.Type != "" && id.Type.String() != p.Type {
					return &di.ConfigurationError{Type: t, Reason: "parameter " + strconv.Itoa(p.Index) + " of " + m.Name + " is " + id.Type.String() + ", not " + p.Type}
				}
				m.Params[p.Index] = di.NewIdentifier(id.Type, slices.Concat(id.Annotations, annotations(p.Annotations))...)
			}
		}
	}
	if !found {
		return &di.ConfigurationError{Type: t, Reason: "no constructor or factory named " + e.Constructor}
	}
	return nil
}

func applyFields(t reflect.Type, desc *di.Description, fields []FieldEntry) error {
	if len(fields) == 0 {
		return nil
	}
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return &di.ConfigurationError{Type: t, Reason: "fields declared for a type that is not a pointer to struct"}
	}
	for _, fe := range fields {
		sf, ok := t.Elem().FieldByName(fe.Name)
		if !ok {
			return &di.ConfigurationError{Type: t, Reason: "no field " + fe.Name}
		}
		if fe.Type != "" && sf.Type.String() != fe.Type {
			return &di.ConfigurationError{Type: t, Reason: "field " + fe.Name + " is " + sf.Type.String() + ", not " + fe.Type}
		}
		f := di.Field{
			Name:       sf.Name,
			Index:      sf.Index,
			Identifier: di.NewIdentifier(sf.Type, annotations(fe.Annotations)...),
			Static:     fe.Static,
		}
		i := slices.IndexFunc(desc.Fields, func(x di.Field) bool { return x.Name == sf.Name })
		if i >= 0 {
			desc.Fields[i] = f
		} else {
			desc.Fields = append(desc.Fields, f)
		}
	}
	return nil
}

// memberNamed matches "pkg.NewService" against "NewService" or the full name.
func memberNamed(name, want string) bool {
	return name == want || strings.HasSuffix(name, "."+want)
}

func annotations(in []string) []di.Annotation {
	out := make([]di.Annotation, 0, len(in))
	for _, a := range in {
		if a = strings.TrimPrefix(strings.TrimSpace(a), "@"); a != "" {
			out = append(out, di.Annotation(a))
		}
	}
	return out
}

func packageOf(t reflect.Type) string {
	for t.Name() == "" && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath()
}
