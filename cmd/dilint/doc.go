// Command dilint checks an injection manifest before it reaches a resolver.
//
// It loads a manifest (see package manifest), reports every structural problem
// and prints the order in which the declared types would be constructed,
// leaves first.
//
// Usage
//
//	dilint -manifest inject.yaml [-root github.com/acme/app] [-env .env] [-out order.txt] [-no-color]
//
// Flags fall back to the environment:
//
//   - DILINT_MANIFEST       path to the manifest when -manifest is not given
//   - DILINT_ROOT_PACKAGE   allowed root package when -root is not given
//
// Both may also come from a dotenv file (-env, ".env" by default). Variables
// already set in the environment win over the file. A missing default file is
// ignored; a missing file named explicitly is an error.
//
// When neither -root nor DILINT_ROOT_PACKAGE is set, the manifest's
// rootPackage is used, and failing that the module path of the nearest go.mod
// above the manifest.
//
// Exit codes
//
//   - 0  the manifest is valid; the construction order is printed
//   - 1  validation problems or a dependency cycle were found
//   - 2  usage error, unreadable manifest or dotenv file
//
// Typical use is a go:generate directive next to the manifest:
//
//	//go:generate go run github.com/sghaida/odinject/cmd/dilint -manifest inject.yaml
package main
