package di

import (
	"fmt"
	"reflect"
)

// PostConstructInvoker calls the post-construct hook of every newly built
// instance. The hook is taken from the description of the instance's runtime
// type. A type may declare at most one hook; it takes no parameters and
// returns nothing or an error.
type PostConstructInvoker struct{}

// PostConstruct implements PostConstructHandler.
func (PostConstructInvoker) PostConstruct(ctx *ResolutionContext, instance any) error {
	if instance == nil {
		return nil
	}
	t := reflect.TypeOf(instance)
	d, err := ctx.Resolver().Describer().Describe(t)
	if err != nil {
		return err
	}
	if d == nil || len(d.PostConstruct) == 0 {
		return nil
	}
	if len(d.PostConstruct) > 1 {
		return &PostConstructError{Type: t, Reason: "multiple post-construct methods"}
	}
	return invokeHook(t, reflect.ValueOf(instance), d.PostConstruct[0])
}

func invokeHook(t reflect.Type, v reflect.Value, h Hook) (err error) {
	mt := h.Method.Type
	// method expressions take the receiver as first parameter
	if h.Static || mt == nil || mt.NumIn() != 1 || mt.IsVariadic() {
		return &PostConstructError{Type: t, Method: h.Name, Reason: "post-construct method may not be static or have any parameters"}
	}
	switch {
	case mt.NumOut() == 0:
	case mt.NumOut() == 1 && mt.Out(0) == errorType:
	default:
		return &PostConstructError{Type: t, Method: h.Name, Reason: "post-construct method must return nothing or error"}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &PostConstructError{Type: t, Method: h.Name, Reason: "could not invoke post-construct method", Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	out := h.Method.Func.Call([]reflect.Value{v})
	if len(out) == 1 && !out[0].IsNil() {
		return &PostConstructError{Type: t, Method: h.Name, Reason: "could not invoke post-construct method", Err: out[0].Interface().(error)}
	}
	return nil
}
