package di

import (
	"reflect"
	"strconv"
	"unsafe"
)

// Instantiation is a recipe for producing a value. It declares the identifiers
// it depends on and builds the value once the resolver has resolved them, in
// the same order. An Instantiation holds no instance and may be reused.
type Instantiation interface {
	Dependencies() []Identifier
	Instantiate(values ...any) (any, error)
}

// Resolved wraps a value that is already available. The resolver returns such
// values as they are: they are neither post-constructed nor stored as singletons.
func Resolved(value any) Instantiation { return &resolvedValue{value: value} }

type resolvedValue struct{ value any }

func (r *resolvedValue) Dependencies() []Identifier { return nil }

func (r *resolvedValue) Instantiate(values ...any) (any, error) {
	if len(values) != 0 {
		return nil, configErr(reflect.TypeOf(r.value), "resolved value takes no dependencies")
	}
	return r.value, nil
}

var errorType = reflect.TypeFor[error]()

// memberInstantiation calls a constructor or factory and then sets the
// injected fields of the result, one after the other.
type memberInstantiation struct {
	target reflect.Type
	member Member
	fields []Field
	deps   []Identifier
}

func newMemberInstantiation(target reflect.Type, m Member, fields []Field) *memberInstantiation {
	deps := make([]Identifier, 0, len(m.Params)+len(fields))
	deps = append(deps, m.Params...)
	for _, f := range fields {
		deps = append(deps, f.Identifier)
	}
	return &memberInstantiation{target: target, member: m, fields: fields, deps: deps}
}

func (mi *memberInstantiation) Dependencies() []Identifier { return mi.deps }

func (mi *memberInstantiation) Instantiate(values ...any) (any, error) {
	if len(values) != len(mi.deps) {
		return nil, configErr(mi.target, "expected "+strconv.Itoa(len(mi.deps))+" dependency values, got "+strconv.Itoa(len(values)))
	}

	fnType := mi.member.Func.Type()
	args := make([]reflect.Value, len(mi.member.Params))
	for i := range args {
		arg, err := assignable(values[i], fnType.In(i))
		if err != nil {
			return nil, &ConfigurationError{Type: mi.target, Reason: "invalid argument " + strconv.Itoa(i) + " for " + mi.member.Name, Err: err}
		}
		args[i] = arg
	}

	results := mi.member.Func.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, &ConfigurationError{Type: mi.target, Reason: "could not instantiate via " + mi.member.Name, Err: results[1].Interface().(error)}
	}
	out := results[0]

	if len(mi.fields) > 0 {
		if out.Kind() != reflect.Pointer || out.IsNil() || out.Elem().Kind() != reflect.Struct {
			return nil, configErr(mi.target, "field injection requires a non-nil pointer to struct from "+mi.member.Name)
		}
		elem := out.Elem()
		for i, f := range mi.fields {
			if err := setField(elem, f, values[len(mi.member.Params)+i]); err != nil {
				return nil, &ConfigurationError{Type: mi.target, Reason: "could not inject field " + f.Name, Err: err}
			}
		}
	}
	return out.Interface(), nil
}

// setField assigns v to the field, writing unexported fields through their address.
func setField(structValue reflect.Value, f Field, v any) error {
	fv := structValue.FieldByIndex(f.Index)
	val, err := assignable(v, fv.Type())
	if err != nil {
		return err
	}
	if !fv.CanSet() {
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
	}
	fv.Set(val)
	return nil
}

// assignable converts v into a value of type t. A nil v yields the zero value
// of nilable types.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, &ConfigurationError{Type: t, Reason: "nil is not assignable"}
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, &ConfigurationError{Type: t, Reason: rv.Type().String() + " is not assignable"}
	}
	return rv, nil
}
