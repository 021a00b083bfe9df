// Package di resolves object graphs from type metadata.
//
// A Resolver takes a requested type, finds out how to build it, resolves every
// dependency recursively, builds leaves first, caches singletons and runs
// post-construct hooks. Every step is delegated to handlers, grouped in five
// ordered chains:
//
//   - pre-construct: veto or transform a request (PackageValidator, ImplementationHandler)
//   - annotation-value: values bound to annotations (SavedAnnotationsHandler)
//   - dependency: already available values (SingletonStoreHandler, FactoryDependencyHandler,
//     SingletonStoreDependencyHandler, ProviderHandler)
//   - instantiation: how to build a type (FactoryProvider, ConstructorProvider)
//   - post-construct: initialization of new instances (PostConstructInvoker)
//
// A handler joins every chain whose interface it implements. DefaultHandlers
// returns the built-in set in its standard order.
//
// Injection points come from a Describer. The default Catalog reads struct tags
// and registered constructor or factory functions:
//
//	type Service struct {
//	  _     struct{}    `postconstruct:"Init"`
//	  Repo  *Repository `inject:""`
//	  Limit int         `inject:"MaxItems"`
//	}
//
//	cat := di.NewCatalog().MustConstructor(NewRepository)
//	r, err := di.New(di.WithDescriber(cat), di.WithDefaultHandlers("github.com/acme/app"))
//	if err != nil { ... }
//	_ = r.ProvideAnnotation("MaxItems", 50)
//	svc, err := di.Get[*Service](r)
//
// Types are singletons unless their blank field carries scope:"prototype".
// Provider[T] injects a function resolving T on demand, which also breaks
// construction cycles. Factory[T] builds new instances of T or its subtypes
// and SingletonStore[T] reaches the singletons assignable to T. Failures are
// typed errors matching the Err* sentinels through errors.Is.
//
// Import
//
//	"github.com/sghaida/odinject/di"
package di
