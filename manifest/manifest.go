// Package manifest declares injection points in YAML instead of struct tags.
//
// A manifest lists types by their Go spelling and states their scope, the
// constructor to use, parameter and field annotations and the post-construct
// hook:
//
//	rootPackage: github.com/acme/app
//	types:
//	  - type: "*app.Service"
//	    package: github.com/acme/app
//	    scope: singleton
//	    constructor: NewService
//	    params:
//	      - index: 0
//	        type: "*app.Repository"
//	    fields:
//	      - name: Limit
//	        type: int
//	        annotations: [MaxItems]
//	    postConstruct: [Init]
//
// NewDescriber overlays a manifest on another di.Describer. Validate and Order
// work on the manifest alone and back the dilint command.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/sghaida/odinject/di"
	"gopkg.in/yaml.v3"
)

// ErrInvalid matches every Problem via errors.Is.
var ErrInvalid = errors.New("manifest: invalid")

// Manifest is the root document.
type Manifest struct {
	RootPackage string      `yaml:"rootPackage"`
	Types       []TypeEntry `yaml:"types"`
}

// TypeEntry describes one type.
type TypeEntry struct {
	// Type is the type as printed by reflect, e.g. "*app.Service".
	Type string `yaml:"type"`

	// Package is the import path declaring the type. Optional, but needed to
	// tell apart types printed the same.
	Package string `yaml:"package"`

	Scope         string       `yaml:"scope"`
	Constructor   string       `yaml:"constructor"`
	Params        []ParamEntry `yaml:"params"`
	Fields        []FieldEntry `yaml:"fields"`
	PostConstruct []string     `yaml:"postConstruct"`
}

// ParamEntry annotates a constructor parameter.
type ParamEntry struct {
	Index       int      `yaml:"index"`
	Type        string   `yaml:"type"`
	Annotations []string `yaml:"annotations"`
}

// FieldEntry declares an injected field.
type FieldEntry struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Annotations []string `yaml:"annotations"`
	Static      bool     `yaml:"static"`
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(data)
}

// Entry returns the entry declared for the type spelled typ in pkg. An entry
// without package matches any package.
func (m *Manifest) Entry(typ, pkg string) (TypeEntry, bool) {
	for _, e := range m.Types {
		if e.Type == typ && (e.Package == "" || pkg == "" || e.Package == pkg) {
			return e, true
		}
	}
	return TypeEntry{}, false
}

// Problem is one validation finding.
type Problem struct {
	Type    string
	Message string
}

// Error implements the error interface.
func (p *Problem) Error() string {
	// Example: manifest: *app.Service: unknown scope "session"
	if p.Type == "" {
		return "manifest: " + p.Message
	}
	return "manifest: " + p.Type + ": " + p.Message
}

// Is reports whether target is ErrInvalid.
func (p *Problem) Is(target error) bool { return target == ErrInvalid }

// Validate reports every structural problem of the manifest joined into one
// error, or nil. rootPackage overrides the manifest's own root when set.
func (m *Manifest) Validate(rootPackage string) error {
	if rootPackage == "" {
		rootPackage = m.RootPackage
	}
	validator := di.NewPackageValidator(rootPackage)

	var problems []error
	add := func(typ, msg string) { problems = append(problems, &Problem{Type: typ, Message: msg}) }

	seen := make(map[string]bool, len(m.Types))
	for _, e := range m.Types {
		if strings.TrimSpace(e.Type) == "" {
			add("", "type entry without type")
			continue
		}
		key := e.Package + " " + e.Type
		if seen[key] {
			add(e.Type, "declared more than once")
		}
		seen[key] = true

		if e.Package != "" && !validator.Allowed(e.Package) {
			add(e.Type, "package "+e.Package+" is outside of the allowed packages")
		}
		if _, ok := di.ParseScope(e.Scope); !ok {
			add(e.Type, "unknown scope "+strconv.Quote(e.Scope))
		}
		if len(e.PostConstruct) > 1 {
			add(e.Type, "multiple post-construct methods")
		}
		for _, h := range e.PostConstruct {
			if strings.TrimSpace(h) == "" {
				add(e.Type, "empty post-construct method name")
			}
		}

		params := map[int]bool{}
		for _, p := range e.Params {
			if p.Index < 0 {
				add(e.Type, "negative parameter index")
			}
			if params[p.Index] {
				add(e.Type, "parameter "+strconv.Itoa(p.Index)+" declared more than once")
			}
			params[p.Index] = true
		}

		fields := map[string]bool{}
		for _, f := range e.Fields {
			switch {
			case strings.TrimSpace(f.Name) == "":
				add(e.Type, "field without name")
			case fields[f.Name]:
				add(e.Type, "field "+f.Name+" declared more than once")
			case f.Static:
				add(e.Type, "static field "+f.Name+" may not be injected")
			}
			fields[f.Name] = true
		}
	}
	return errors.Join(problems...)
}

// Dependencies returns the type spellings e depends on, parameters first, in
// declaration order and without duplicates. Annotated injection points are
// resolved by value and are left out.
func (e TypeEntry) Dependencies() []string {
	var deps []string
	params := slices.Clone(e.Params)
	slices.SortStableFunc(params, func(a, b ParamEntry) int { return a.Index - b.Index })
	for _, p := range params {
		if p.Type != "" && len(p.Annotations) == 0 && !slices.Contains(deps, p.Type) {
			deps = append(deps, p.Type)
		}
	}
	for _, f := range e.Fields {
		if f.Type != "" && len(f.Annotations) == 0 && !slices.Contains(deps, f.Type) {
			deps = append(deps, f.Type)
		}
	}
	return deps
}

// CycleError reports a dependency cycle among manifest entries.
type CycleError struct {
	Chain []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	// Example: manifest: cyclic dependency: *app.A -> *app.B -> *app.A
	return "manifest: cyclic dependency: " + strings.Join(e.Chain, " -> ")
}

// Is reports whether target is di.ErrCyclicDependency.
func (e *CycleError) Is(target error) bool { return target == di.ErrCyclicDependency }

// Order returns the declared types leaves first: every type comes after the
// declared types it depends on. Dependencies that are not declared are
// ignored. Ties keep declaration order.
func (m *Manifest) Order() ([]string, error) {
	entries := make(map[string]TypeEntry, len(m.Types))
	for _, e := range m.Types {
		if _, dup := entries[e.Type]; !dup {
			entries[e.Type] = e
		}
	}

	const (
		visiting = iota + 1
		done
	)
	state := make(map[string]int, len(entries))
	var (
		order []string
		stack []string
	)

	var visit func(string) error
	visit = func(typ string) error {
		switch state[typ] {
		case done:
			return nil
		case visiting:
			i := slices.Index(stack, typ)
			return &CycleError{Chain: append(slices.Clone(stack[i:]), typ)}
		}
		state[typ] = visiting
		stack = append(stack, typ)
		for _, dep := range entries[typ].Dependencies() {
			if _, declared := entries[dep]; !declared {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[typ] = done
		order = append(order, typ)
		return nil
	}

	for _, e := range m.Types {
		if e.Type == "" {
			continue
		}
		if err := visit(e.Type); err != nil {
			return nil, err
		}
	}
	return order, nil
}
