package di

import (
	"go/token"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// Scope decides whether a resolved type is cached.
type Scope int

const (
	// ScopeSingleton is the default: one instance per Resolver.
	ScopeSingleton Scope = iota

	// ScopePrototype builds a new instance on every request.
	ScopePrototype
)

// String returns the human-readable name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopePrototype:
		return "prototype"
	default:
		return "unknown"
	}
}

// ParseScope parses "singleton" or "prototype". The empty string is singleton.
func ParseScope(s string) (Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "singleton":
		return ScopeSingleton, true
	case "prototype":
		return ScopePrototype, true
	}
	return ScopeSingleton, false
}

// Describer reports the injection points of a type. It is the only way the
// pipeline learns how a type is built; it returns (nil, nil) for types it
// knows nothing about.
type Describer interface {
	Describe(t reflect.Type) (*Description, error)
}

// Description lists everything needed to build a type.
type Description struct {
	Type          reflect.Type
	Scope         Scope
	Constructors  []Member
	Factories     []Member
	Fields        []Field
	PostConstruct []Hook
}

// Member is a constructor or factory function.
type Member struct {
	Name     string
	Func     reflect.Value
	Params   []Identifier
	Exported bool
	Marked   bool
}

// Field is an injected struct field.
type Field struct {
	Name       string
	Index      []int
	Identifier Identifier
	Static     bool
}

// Hook is a post-construct method.
type Hook struct {
	Name   string
	Method reflect.Method
	Static bool
}

// MemberOption configures a constructor or factory registered in a Catalog.
type MemberOption func(*Member)

// Marked flags the member as explicitly chosen for injection.
func Marked() MemberOption {
	return func(m *Member) { m.Marked = true }
}

// Annotate attaches annotations to the parameter at index param.
func Annotate(param int, annotations ...Annotation) MemberOption {
	return func(m *Member) {
		if param >= 0 && param < len(m.Params) {
			id := m.Params[param]
			m.Params[param] = NewIdentifier(id.Type, slices.Concat(id.Annotations, annotations)...)
		}
	}
}

// Catalog is the default Describer. It combines registered constructor and
// factory functions with struct tags:
//
//	type Service struct {
//	  _     struct{} `scope:"prototype" postconstruct:"Init"`
//	  Repo  *Repository `inject:""`
//	  Limit int         `inject:"MaxItems"`
//	}
//
// Pointer-to-struct types without a registered constructor get an implicit
// zero-value constructor, which is eligible only for exported struct types.
// A method named PostConstruct is a post-construct hook by convention.
type Catalog struct {
	mu           sync.RWMutex
	constructors map[reflect.Type][]Member
	factories    map[reflect.Type][]Member
	cache        map[reflect.Type]*Description
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		constructors: make(map[reflect.Type][]Member),
		factories:    make(map[reflect.Type][]Member),
		cache:        make(map[reflect.Type]*Description),
	}
}

// Constructor registers fn as a constructor of its first result type. fn must
// have the signature func(deps...) T or func(deps...) (T, error) where T is a
// pointer to a struct.
func (c *Catalog) Constructor(fn any, opts ...MemberOption) error {
	m, out, err := newMember(fn, opts)
	if err != nil {
		return err
	}
	if out.Kind() != reflect.Pointer || out.Elem().Kind() != reflect.Struct {
		return configErr(out, "constructor must return a pointer to struct")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constructors[out] = append(c.constructors[out], m)
	delete(c.cache, out)
	return nil
}

// Factory registers fn as a factory of its first result type, which may be an
// interface.
func (c *Catalog) Factory(fn any, opts ...MemberOption) error {
	m, out, err := newMember(fn, opts)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[out] = append(c.factories[out], m)
	delete(c.cache, out)
	return nil
}

// MustConstructor is Constructor that panics on error.
func (c *Catalog) MustConstructor(fn any, opts ...MemberOption) *Catalog {
	if err := c.Constructor(fn, opts...); err != nil {
		panic(err)
	}
	return c
}

// MustFactory is Factory that panics on error.
func (c *Catalog) MustFactory(fn any, opts ...MemberOption) *Catalog {
	if err := c.Factory(fn, opts...); err != nil {
		panic(err)
	}
	return c
}

// Describe implements Describer.
func (c *Catalog) Describe(t reflect.Type) (*Description, error) {
	if t == nil {
		return nil, nil
	}
	c.mu.RLock()
	d, ok := c.cache[t]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.describe(t)
	if err != nil {
		return nil, err
	}
	c.cache[t] = d
	return d, nil
}

func (c *Catalog) describe(t reflect.Type) (*Description, error) {
	isStructPtr := t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
	ctors := c.constructors[t]
	facts := c.factories[t]
	if !isStructPtr && len(facts) == 0 {
		return nil, nil
	}

	d := &Description{
		Type:         t,
		Constructors: cloneMembers(ctors),
		Factories:    cloneMembers(facts),
	}
	if !isStructPtr {
		return d, nil
	}

	st := t.Elem()
	if len(d.Constructors) == 0 {
		d.Constructors = []Member{zeroConstructor(t)}
	}

	hookNames := map[string]bool{}
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.Name == "_" {
			if s, ok := sf.Tag.Lookup("scope"); ok {
				scope, valid := ParseScope(s)
				if !valid {
					return nil, configErr(t, "unknown scope "+s)
				}
				d.Scope = scope
			}
			for _, name := range strings.Split(sf.Tag.Get("postconstruct"), ",") {
				if name = strings.TrimSpace(name); name != "" && !hookNames[name] {
					hookNames[name] = true
					hook, err := methodHook(t, name)
					if err != nil {
						return nil, err
					}
					d.PostConstruct = append(d.PostConstruct, hook)
				}
			}
			continue
		}
		tag, ok := sf.Tag.Lookup("inject")
		if !ok {
			continue
		}
		d.Fields = append(d.Fields, Field{
			Name:       sf.Name,
			Index:      sf.Index,
			Identifier: NewIdentifier(sf.Type, parseAnnotations(tag)...),
		})
	}

	if m, ok := t.MethodByName("PostConstruct"); ok && !hookNames[m.Name] {
		d.PostConstruct = append(d.PostConstruct, Hook{Name: m.Name, Method: m})
	}
	return d, nil
}

// MethodHook looks up the exported method name of t as a post-construct hook.
func MethodHook(t reflect.Type, name string) (Hook, error) {
	return methodHook(t, name)
}

func methodHook(t reflect.Type, name string) (Hook, error) {
	m, ok := t.MethodByName(name)
	if !ok {
		return Hook{}, &PostConstructError{Type: t, Method: name, Reason: "post-construct method not found"}
	}
	return Hook{Name: name, Method: m}, nil
}

func zeroConstructor(t reflect.Type) Member {
	elem := t.Elem()
	fn := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{t}, false), func([]reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.New(elem)}
	})
	return Member{
		Name:     "new(" + elem.String() + ")",
		Func:     fn,
		Exported: token.IsExported(elem.Name()),
	}
}

func newMember(fn any, opts []MemberOption) (Member, reflect.Type, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return Member{}, nil, configErr(reflect.TypeOf(fn), "member must be a non-nil function")
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return Member{}, nil, configErr(ft, "member may not be variadic")
	}
	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return Member{}, nil, configErr(ft, "second return value must be error")
		}
	default:
		return Member{}, nil, configErr(ft, "member must return (T) or (T, error)")
	}

	name := funcName(v)
	m := Member{
		Name:     name,
		Func:     v,
		Params:   make([]Identifier, ft.NumIn()),
		Exported: exportedFunc(name),
	}
	for i := range m.Params {
		m.Params[i] = NewIdentifier(ft.In(i))
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m, ft.Out(0), nil
}

// funcName returns "pkg.Func" for named functions and "pkg.Outer.func1" for closures.
func funcName(v reflect.Value) string {
	full := "func"
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		full = f.Name()
	}
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	return full
}

// exportedFunc reports whether a function name denotes an exported function.
// Function literals count as exported: registering one is a deliberate choice.
func exportedFunc(name string) bool {
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	// nested literals are named "pkg.Outer.func2.1"
	for {
		i := strings.LastIndex(name, ".")
		if i < 0 || !isDigits(name[i+1:]) {
			break
		}
		name = name[:i]
	}
	last := name[strings.LastIndex(name, ".")+1:]
	if strings.HasPrefix(last, "func") && (len(last) == len("func") || isDigits(last[len("func"):])) {
		return true
	}
	return token.IsExported(last)
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

func cloneMembers(in []Member) []Member {
	if len(in) == 0 {
		return nil
	}
	out := make([]Member, len(in))
	copy(out, in)
	return out
}
