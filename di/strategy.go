package di

import "reflect"

// ConstructorProvider builds pointer-to-struct types through their
// constructor: the one marked for injection, else the only exported one.
// Constructor parameters are resolved first, then the injected fields, which
// are set after construction.
type ConstructorProvider struct{}

// Instantiation implements InstantiationProvider.
func (ConstructorProvider) Instantiation(ctx *ResolutionContext) (Instantiation, error) {
	t := ctx.Identifier().Type
	d, err := ctx.Resolver().Describer().Describe(t)
	if err != nil || d == nil || len(d.Constructors) == 0 {
		return nil, err
	}
	for _, f := range d.Fields {
		if f.Static {
			return nil, configErr(t, "static field "+f.Name+" may not be injected")
		}
	}
	m, err := selectMember(t, d.Constructors, "constructor", "constructors")
	if err != nil {
		return nil, err
	}
	return newMemberInstantiation(t, m, d.Fields), nil
}

// FactoryProvider builds types through a factory function, chosen by the same
// rules as constructors. The result type of a factory may be an interface.
type FactoryProvider struct{}

// Instantiation implements InstantiationProvider.
func (FactoryProvider) Instantiation(ctx *ResolutionContext) (Instantiation, error) {
	t := ctx.Identifier().Type
	d, err := ctx.Resolver().Describer().Describe(t)
	if err != nil || d == nil || len(d.Factories) == 0 {
		return nil, err
	}
	m, err := selectMember(t, d.Factories, "factory", "factories")
	if err != nil {
		return nil, err
	}
	var fields []Field
	for _, f := range d.Fields {
		if !f.Static {
			fields = append(fields, f)
		}
	}
	return newMemberInstantiation(t, m, fields), nil
}

// selectMember picks the marked member, or the single exported one.
func selectMember(t reflect.Type, members []Member, kind, kinds string) (Member, error) {
	var marked, exported []Member
	for _, m := range members {
		if m.Marked {
			marked = append(marked, m)
		}
		if m.Exported {
			exported = append(exported, m)
		}
	}
	switch {
	case len(marked) > 1:
		return Member{}, configErr(t, "multiple "+kinds+" marked for injection")
	case len(marked) == 1:
		return marked[0], nil
	case len(exported) > 1:
		return Member{}, configErr(t, "ambiguous "+kinds+": mark one for injection")
	case len(exported) == 1:
		return exported[0], nil
	}
	return Member{}, configErr(t, "no eligible "+kind)
}
