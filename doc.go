// Package odinject is a reflection-based dependency injection toolkit.
//
// The repository is laid out as:
//
//   - di: the resolver, its handler chains and the built-in handlers
//     (package validation, interface bindings, annotation values, providers,
//     factories, constructors, post-construct hooks)
//   - manifest: YAML manifests that declare injection points without struct
//     tags, plus validation and construction ordering
//   - cmd/dilint: a linter for manifests, suitable for go:generate
//   - examples/app: a small application wired end to end
//
// Start with package di; its documentation walks through a resolution.
package odinject
