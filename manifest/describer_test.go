package manifest_test

import (
	"reflect"
	"testing"

	"github.com/sghaida/odinject/di"
	"github.com/sghaida/odinject/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, m *manifest.Manifest) *di.Resolver {
	t.Helper()

	cat := di.NewCatalog().MustConstructor(NewCache).MustConstructor(NewEmptyCache)
	r, err := di.New(
		di.WithDescriber(manifest.NewDescriber(cat, m)),
		di.WithDefaultHandlers(root),
	)
	require.NoError(t, err)
	return r
}

func TestDescriber_ResolvesFromManifest(t *testing.T) {
	t.Parallel()

	r := newResolver(t, loadApp(t))
	primary := &Store{Name: "primary"}
	require.NoError(t, r.ProvideAnnotation("Primary", primary))
	require.NoError(t, r.ProvideAnnotation("CacheSize", 64))

	c1 := di.MustGet[*Cache](r)
	assert.Same(t, primary, c1.Store)
	assert.Equal(t, 64, c1.Size)
	assert.True(t, c1.Warmed)

	c2 := di.MustGet[*Cache](r)
	assert.NotSame(t, c1, c2, "the manifest makes Cache a prototype")

	idx := di.MustGet[*Index](r)
	require.NotNil(t, idx.Cache)
	assert.Same(t, primary, idx.Cache.Store)
}

func TestDescriber_Overlay(t *testing.T) {
	t.Parallel()

	cat := di.NewCatalog().MustConstructor(NewCache).MustConstructor(NewEmptyCache)
	d := manifest.NewDescriber(cat, loadApp(t))

	desc, err := d.Describe(reflect.TypeFor[*Cache]())
	require.NoError(t, err)
	assert.Equal(t, di.ScopePrototype, desc.Scope)

	require.Len(t, desc.Constructors, 2)
	var marked []di.Member
	for _, m := range desc.Constructors {
		if m.Marked {
			marked = append(marked, m)
		}
	}
	require.Len(t, marked, 1)
	assert.Equal(t, "manifest_test.NewCache", marked[0].Name)
	assert.Equal(t, []di.Identifier{di.IdentifierOf[*Store]("Primary")}, marked[0].Params)

	require.Len(t, desc.Fields, 1)
	assert.Equal(t, di.IdentifierOf[int]("CacheSize"), desc.Fields[0].Identifier)
	require.Len(t, desc.PostConstruct, 1)
	assert.Equal(t, "Warm", desc.PostConstruct[0].Name)

	// the base description is left untouched
	base, err := cat.Describe(reflect.TypeFor[*Cache]())
	require.NoError(t, err)
	assert.Equal(t, di.ScopeSingleton, base.Scope)
	assert.Empty(t, base.Fields)
	for _, m := range base.Constructors {
		assert.False(t, m.Marked)
		for _, p := range m.Params {
			assert.Empty(t, p.Annotations)
		}
	}

	again, err := d.Describe(reflect.TypeFor[*Cache]())
	require.NoError(t, err)
	assert.Same(t, desc, again)

	// types without an entry fall through to the base
	plain, err := d.Describe(reflect.TypeFor[*Store]())
	require.NoError(t, err)
	assert.NotNil(t, plain)
	unknown, err := d.Describe(reflect.TypeFor[int]())
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestDescriber_Errors(t *testing.T) {
	t.Parallel()

	cacheEntry := func(mut func(*manifest.TypeEntry)) *manifest.Manifest {
		e := manifest.TypeEntry{Type: "*manifest_test.Cache", Constructor: "NewCache"}
		mut(&e)
		return &manifest.Manifest{Types: []manifest.TypeEntry{e}}
	}

	cases := []struct {
		name    string
		m       *manifest.Manifest
		wantIs  error
		wantMsg string
	}{
		{
			name:    "unknown constructor",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.Constructor = "NewHotCache" }),
			wantIs:  di.ErrConfiguration,
			wantMsg: "no constructor or factory named NewHotCache",
		},
		{
			name:    "parameter out of range",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.Params = []manifest.ParamEntry{{Index: 3}} }),
			wantIs:  di.ErrConfiguration,
			wantMsg: "has no parameter 3",
		},
		{
			name:    "parameter type mismatch",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.Params = []manifest.ParamEntry{{Index: 0, Type: "*app.Store"}} }),
			wantIs:  di.ErrConfiguration,
			wantMsg: "is *manifest_test.Store, not *app.Store",
		},
		{
			name:    "unknown field",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.Fields = []manifest.FieldEntry{{Name: "Missing"}} }),
			wantIs:  di.ErrConfiguration,
			wantMsg: "no field Missing",
		},
		{
			name:    "field type mismatch",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.Fields = []manifest.FieldEntry{{Name: "Size", Type: "string"}} }),
			wantIs:  di.ErrConfiguration,
			wantMsg: "field Size is int, not string",
		},
		{
			name:    "unknown scope",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.Scope = "request" }),
			wantIs:  di.ErrConfiguration,
			wantMsg: `unknown scope "request"`,
		},
		{
			name:    "unknown hook",
			m:       cacheEntry(func(e *manifest.TypeEntry) { e.PostConstruct = []string{"Cool"} }),
			wantIs:  di.ErrPostConstruct,
			wantMsg: "post-construct method not found",
		},
		{
			name: "static field",
			m: cacheEntry(func(e *manifest.TypeEntry) {
				e.Fields = []manifest.FieldEntry{{Name: "Store", Static: true}}
			}),
			wantIs:  di.ErrConfiguration,
			wantMsg: "static field Store may not be injected",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := di.Get[*Cache](newResolver(t, tc.m))
			require.ErrorIs(t, err, tc.wantIs)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestDescriber_NilArguments(t *testing.T) {
	t.Parallel()

	d := manifest.NewDescriber(nil, nil)
	desc, err := d.Describe(reflect.TypeFor[*Store]())
	require.NoError(t, err)
	require.NotNil(t, desc)

	desc, err = d.Describe(nil)
	require.NoError(t, err)
	assert.Nil(t, desc)
}
