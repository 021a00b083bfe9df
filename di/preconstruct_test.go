package di_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/sghaida/odinject/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageValidator_Allowed(t *testing.T) {
	t.Parallel()

	v := di.NewPackageValidator("github.com/acme/app/", "  ")

	cases := []struct {
		pkg  string
		want bool
	}{
		{pkg: "github.com/acme/app", want: true},
		{pkg: "github.com/acme/app/store", want: true},
		{pkg: "github.com/acme/application", want: false},
		{pkg: "github.com/other/app", want: false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, v.Allowed(tc.pkg), tc.pkg)
	}

	assert.True(t, di.NewPackageValidator().Allowed("anything"))
}

func TestPackageValidator_RejectsForeignTypes(t *testing.T) {
	t.Parallel()

	r := newResolver(t, nil)

	_, err := di.Get[*bytes.Buffer](r)
	require.ErrorIs(t, err, di.ErrValidation)
	assert.Equal(t, "di: class *bytes.Buffer is outside of the allowed packages", err.Error())

	var ve *di.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, reflect.TypeFor[*bytes.Buffer](), ve.Type)
}

func TestPackageValidator_Exemptions(t *testing.T) {
	t.Parallel()

	r := newResolver(t, nil)
	require.NoError(t, r.ProvideAnnotation("Buffer", bytes.NewBufferString("x")))

	// annotated identifiers are resolved by value
	buf, err := di.Get[*bytes.Buffer](r, "Buffer")
	require.NoError(t, err)
	assert.Equal(t, "x", buf.String())

	// builtin types pass validation and then fail for lack of a way to build them
	_, err = di.Get[string](r)
	require.ErrorIs(t, err, di.ErrConfiguration)
	require.NotErrorIs(t, err, di.ErrValidation)

	// provider types of this package pass
	_, err = di.Get[di.Provider[*Repository]](r)
	require.NoError(t, err)
}

func TestPackageValidator_VetoStopsPipeline(t *testing.T) {
	t.Parallel()

	later := &countingDependency{}
	r, err := di.New(di.WithHandlers(di.NewPackageValidator("example.com/none"), later), di.WithHandlers(di.InstantiationProviders()...))
	require.NoError(t, err)

	_, err = di.Get[*Repository](r)
	require.ErrorIs(t, err, di.ErrValidation)
	assert.EqualValues(t, 0, later.calls.Load())
}

func TestImplementationHandler(t *testing.T) {
	t.Parallel()

	r := newResolver(t, nil)
	require.NoError(t, di.Bind[Greeter, *English](r))

	g := di.MustGet[Greeter](r)
	assert.Equal(t, "hello", g.Greet())
	assert.Same(t, g, di.MustGet[Greeter](r))
	assert.Same(t, g, di.MustGet[*English](r))

	err := di.Bind[Greeter, *English](r)
	require.ErrorIs(t, err, di.ErrAlreadyRegistered)
	assert.Equal(t, `di: binding already registered for "di_test.Greeter"`, err.Error())

	err = r.Bind(reflect.TypeFor[Vehicle](), reflect.TypeFor[*Repository]())
	require.ErrorIs(t, err, di.ErrConfiguration)
}

func TestImplementationHandler_Transitive(t *testing.T) {
	t.Parallel()

	type Speaker interface{ Greet() string }

	h := di.NewImplementationHandler()
	require.NoError(t, h.Bind(reflect.TypeFor[Speaker](), reflect.TypeFor[Greeter]()))
	require.NoError(t, h.Bind(reflect.TypeFor[Greeter](), reflect.TypeFor[*English]()))

	assert.Equal(t, reflect.TypeFor[*English](), h.Implementation(reflect.TypeFor[Speaker]()))
	assert.Equal(t, reflect.TypeFor[*Widget](), h.Implementation(reflect.TypeFor[*Widget]()))

	require.ErrorIs(t, h.Bind(reflect.TypeFor[Greeter](), reflect.TypeFor[Greeter]()), di.ErrConfiguration)
	require.ErrorIs(t, h.Bind(nil, reflect.TypeFor[Greeter]()), di.ErrConfiguration)
}

func TestImplementationHandler_CycleDetectedAfterTransform(t *testing.T) {
	t.Parallel()

	r := newResolver(t, nil)
	require.NoError(t, di.Bind[Looper, *LoopImpl](r))

	_, err := di.Get[Looper](r)
	require.ErrorIs(t, err, di.ErrCyclicDependency)
}

type Looper interface{ Loop() }

// LoopImpl asks for its own abstraction.
type LoopImpl struct {
	Self Looper `inject:""`
}

func (*LoopImpl) Loop() {}
