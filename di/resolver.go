package di

import (
	"errors"
	"reflect"

	"go.uber.org/zap"
)

// Resolver builds object graphs. It runs every request through the handler
// chains it was created with: pre-construct, annotation-value, dependency,
// instantiation and post-construct. Singleton-scoped results are cached for
// the lifetime of the Resolver.
//
// A Resolver is safe for concurrent use. Handler chains are fixed at
// construction and read without locking.
type Resolver struct {
	chains    Chains
	describer Describer
	store     *singletonStore
	log       *zap.Logger
}

// Option configures a Resolver.
type Option func(*config)

type config struct {
	handlers  []any
	describer Describer
	logger    *zap.Logger
}

// WithHandlers appends handlers. Order matters: within each category the
// handlers run in the order they were added.
func WithHandlers(handlers ...any) Option {
	return func(c *config) { c.handlers = append(c.handlers, handlers...) }
}

// WithDefaultHandlers appends DefaultHandlers(rootPackage).
func WithDefaultHandlers(rootPackage string) Option {
	return func(c *config) { c.handlers = append(c.handlers, DefaultHandlers(rootPackage)...) }
}

// WithDescriber sets the source of injection points. The default is an
// empty Catalog.
func WithDescriber(d Describer) Option {
	return func(c *config) { c.describer = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New creates a Resolver. It fails with a ConfigurationError when a handler
// has no known capability.
//
//	cat := di.NewCatalog().MustConstructor(NewService)
//	r, err := di.New(di.WithDescriber(cat), di.WithDefaultHandlers("github.com/acme/app"))
func New(opts ...Option) (*Resolver, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	chains, err := Classify(cfg.handlers...)
	if err != nil {
		return nil, err
	}
	if cfg.describer == nil {
		cfg.describer = NewCatalog()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &Resolver{
		chains:    chains,
		describer: cfg.describer,
		store:     newSingletonStore(),
		log:       cfg.logger,
	}, nil
}

// Chains returns a copy of the configured handler chains.
func (r *Resolver) Chains() Chains { return r.chains.Clone() }

// Describer returns the source of injection points.
func (r *Resolver) Describer() Describer { return r.describer }

// Singleton returns the cached instance of t, if any.
func (r *Resolver) Singleton(t reflect.Type) (any, bool) { return r.store.get(t) }

// Register stores instance as the singleton of t. It fails if t already has
// a singleton or if instance is not assignable to t.
func (r *Resolver) Register(t reflect.Type, instance any) error {
	if t == nil {
		return configErr(nil, "type may not be nil")
	}
	if instance == nil {
		return configErr(t, "instance may not be nil")
	}
	if !reflect.TypeOf(instance).AssignableTo(t) {
		return configErr(t, reflect.TypeOf(instance).String()+" is not assignable")
	}
	if err := r.store.put(t, instance); err != nil {
		return err
	}
	r.log.Debug("singleton registered", zap.Stringer("type", t))
	return nil
}

// RegisterProvider registers a provider for target. provider is either a
// provider value (a func() T, func() (T, error), or a value with such a Get
// method) or a reflect.Type naming a provider type that is itself resolved.
func (r *Resolver) RegisterProvider(target reflect.Type, provider any) error {
	registered := false
	for _, h := range r.chains.Dependency {
		if reg, ok := h.(ProviderRegistrar); ok {
			if err := reg.RegisterProvider(target, provider); err != nil {
				return err
			}
			registered = true
		}
	}
	if !registered {
		return configErr(target, "no handler accepts provider registrations")
	}
	r.log.Debug("provider registered", zap.Stringer("type", target))
	return nil
}

// Bind maps abstract to concrete with every pre-construct handler that
// accepts bindings.
func (r *Resolver) Bind(abstract, concrete reflect.Type) error {
	bound := false
	for _, h := range r.chains.PreConstruct {
		if b, ok := h.(Binder); ok {
			if err := b.Bind(abstract, concrete); err != nil {
				return err
			}
			bound = true
		}
	}
	if !bound {
		return configErr(abstract, "no handler accepts bindings")
	}
	r.log.Debug("binding registered", zap.Stringer("abstract", abstract), zap.Stringer("concrete", concrete))
	return nil
}

// ProvideAnnotation registers value for annotation a with every
// annotation-value handler.
func (r *Resolver) ProvideAnnotation(a Annotation, value any) error {
	if len(r.chains.AnnotationValue) == 0 {
		return configErr(nil, "no annotation-value handler configured")
	}
	for _, h := range r.chains.AnnotationValue {
		if err := h.ProvideAnnotation(a, value); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the instance for id, building it and its dependencies if
// needed.
func (r *Resolver) Resolve(id Identifier) (any, error) {
	if id.Type == nil {
		return nil, configErr(nil, "identifier has no type")
	}
	return r.resolve(newContext(r, id, false))
}

// NewInstance builds a new instance of t even if t is singleton-scoped. The
// result is not cached; its dependencies are resolved as usual.
func (r *Resolver) NewInstance(t reflect.Type) (any, error) {
	if t == nil {
		return nil, configErr(nil, "type may not be nil")
	}
	return r.resolve(newContext(r, NewIdentifier(t), true))
}

func (r *Resolver) resolve(ctx *ResolutionContext) (any, error) {
	defer ctx.current.done.Store(true)
	v, err := r.run(ctx)
	if err != nil {
		r.log.Debug("resolution failed",
			zap.Stringer("identifier", ctx.OriginalIdentifier()),
			zap.Int("depth", len(ctx.ancestors)),
			zap.Error(err))
	}
	return v, err
}

func (r *Resolver) run(ctx *ResolutionContext) (any, error) {
	if !ctx.fresh && len(ctx.identifier.Annotations) == 0 {
		if v, ok := r.store.get(ctx.identifier.Type); ok {
			return v, nil
		}
	}
	r.log.Debug("resolving", zap.Stringer("identifier", ctx.identifier), zap.Int("depth", len(ctx.ancestors)))

	for _, h := range r.chains.PreConstruct {
		if err := h.PreConstruct(ctx); err != nil {
			return nil, err
		}
	}
	if !ctx.identifier.Equal(ctx.original) {
		if ctx.identifier.Type == nil {
			return nil, configErr(ctx.original.Type, "pre-construct handler cleared the identifier")
		}
		if err := checkCycle(ctx.ancestors, ctx.identifier); err != nil {
			return nil, err
		}
	}

	inst, err := r.instantiation(ctx)
	if err != nil {
		return nil, err
	}
	if rv, ok := inst.(*resolvedValue); ok {
		return rv.value, nil
	}

	// dependencies, construction and post-construct run inside the flight:
	// concurrent callers of one singleton share a single pass
	produce := func() (any, error) {
		values, err := r.dependencies(ctx, inst)
		if err != nil {
			return nil, err
		}
		return r.build(ctx, inst, values)
	}

	t := ctx.identifier.Type
	if ctx.fresh {
		return produce()
	}
	scope, err := r.scopeOf(t)
	if err != nil {
		return nil, err
	}
	if scope == ScopePrototype {
		return produce()
	}

	v, created, err := r.store.getOrCreate(ctx.caller, t, produce)
	if err != nil {
		return nil, err
	}
	if created {
		r.log.Debug("singleton stored", zap.Stringer("type", t), zap.Int("singletons", r.store.len()))
	}
	return v, nil
}

// instantiation asks annotation-value handlers, dependency handlers and
// instantiation providers, in that order, and returns the first match.
func (r *Resolver) instantiation(ctx *ResolutionContext) (Instantiation, error) {
	for _, h := range r.chains.AnnotationValue {
		inst, err := h.ResolveAnnotation(ctx)
		if err != nil || inst != nil {
			return inst, err
		}
	}
	for _, h := range r.chains.Dependency {
		inst, err := h.ResolveDependency(ctx)
		if err != nil || inst != nil {
			return inst, err
		}
	}
	for _, h := range r.chains.Instantiation {
		inst, err := h.Instantiation(ctx)
		if err != nil || inst != nil {
			return inst, err
		}
	}
	return nil, configErr(ctx.identifier.Type, "no instantiation method available for "+ctx.identifier.String())
}

// dependencies resolves every dependency of inst, leaves first.
func (r *Resolver) dependencies(ctx *ResolutionContext, inst Instantiation) ([]any, error) {
	deps := inst.Dependencies()
	values := make([]any, len(deps))
	for i, dep := range deps {
		child, err := ctx.descend(dep)
		if err != nil {
			return nil, err
		}
		v, err := r.resolve(child)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// build instantiates and runs every post-construct handler on the result.
func (r *Resolver) build(ctx *ResolutionContext, inst Instantiation, values []any) (any, error) {
	v, err := inst.Instantiate(values...)
	if err != nil {
		return nil, err
	}
	for _, h := range r.chains.PostConstruct {
		if err := h.PostConstruct(ctx, v); err != nil {
			var pce *PostConstructError
			if errors.As(err, &pce) {
				return nil, err
			}
			return nil, &PostConstructError{Type: reflect.TypeOf(v), Reason: "post-construct handler failed", Err: err}
		}
	}
	return v, nil
}

// validatePackage runs t past every PackageValidator of the pre-construct
// chain.
func (r *Resolver) validatePackage(t reflect.Type) error {
	for _, h := range r.chains.PreConstruct {
		if v, ok := h.(*PackageValidator); ok {
			if err := v.Validate(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) scopeOf(t reflect.Type) (Scope, error) {
	d, err := r.describer.Describe(t)
	if err != nil {
		return ScopeSingleton, err
	}
	if d == nil {
		return ScopeSingleton, nil
	}
	return d.Scope, nil
}
