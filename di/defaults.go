package di

// SingletonStoreHandler serves instances already held in the resolver's
// singleton store. The resolver checks the store for the requested type
// before any handler runs; this handler repeats the check for the type a
// pre-construct handler may have substituted. Requests for a new instance
// are never served from the store.
type SingletonStoreHandler struct{}

// ResolveDependency implements DependencyHandler.
func (SingletonStoreHandler) ResolveDependency(ctx *ResolutionContext) (Instantiation, error) {
	if ctx.RequestsNewInstance() {
		return nil, nil
	}
	if v, ok := ctx.Resolver().Singleton(ctx.Identifier().Type); ok {
		return Resolved(v), nil
	}
	return nil, nil
}

// DefaultHandlers returns a fresh set of the built-in handlers in their
// standard order. The package validator is included only when rootPackage
// is not empty.
func DefaultHandlers(rootPackage string) []any {
	var hs []any
	if rootPackage != "" {
		hs = append(hs, NewPackageValidator(rootPackage))
	}
	hs = append(hs,
		NewImplementationHandler(),
		NewSavedAnnotationsHandler(),
		SingletonStoreHandler{},
		FactoryDependencyHandler{},
		SingletonStoreDependencyHandler{},
	)
	hs = append(hs, InstantiationProviders()...)
	return append(hs, PostConstructInvoker{})
}

// InstantiationProviders returns the instantiation strategies in precedence
// order: registered providers, factories, constructors.
func InstantiationProviders() []any {
	return []any{
		NewProviderHandler(),
		FactoryProvider{},
		ConstructorProvider{},
	}
}
