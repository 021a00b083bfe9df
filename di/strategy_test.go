package di_test

import (
	"testing"

	"github.com/sghaida/odinject/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Engine struct {
	Kind string
}

type Car struct {
	Engine *Engine
	Wheels int
}

func NewCar(e *Engine) *Car       { return &Car{Engine: e, Wheels: 4} }
func NewTruck(e *Engine) *Car     { return &Car{Engine: e, Wheels: 6} }
func newBicycle() *Car            { return &Car{Wheels: 2} }
func NewBrokenCar() (*Car, error) { return nil, errBoom }

type Vehicle interface {
	WheelCount() int
}

func (c *Car) WheelCount() int { return c.Wheels }

func NewVehicle(c *Car) Vehicle { return c }

func TestConstructorSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		register   func(*di.Catalog)
		wantWheels int
		wantErr    string
	}{
		{
			name:       "single exported",
			register:   func(c *di.Catalog) { c.MustConstructor(NewCar) },
			wantWheels: 4,
		},
		{
			name: "marked wins over exported",
			register: func(c *di.Catalog) {
				c.MustConstructor(NewCar).MustConstructor(NewTruck, di.Marked())
			},
			wantWheels: 6,
		},
		{
			name: "marked unexported is eligible",
			register: func(c *di.Catalog) {
				c.MustConstructor(NewCar).MustConstructor(newBicycle, di.Marked())
			},
			wantWheels: 2,
		},
		{
			name: "unexported ignored without mark",
			register: func(c *di.Catalog) {
				c.MustConstructor(NewCar).MustConstructor(newBicycle)
			},
			wantWheels: 4,
		},
		{
			name: "two exported are ambiguous",
			register: func(c *di.Catalog) {
				c.MustConstructor(NewCar).MustConstructor(NewTruck)
			},
			wantErr: "ambiguous constructors",
		},
		{
			name: "two marked",
			register: func(c *di.Catalog) {
				c.MustConstructor(NewCar, di.Marked()).MustConstructor(NewTruck, di.Marked())
			},
			wantErr: "multiple constructors marked for injection",
		},
		{
			name:     "only unexported",
			register: func(c *di.Catalog) { c.MustConstructor(newBicycle) },
			wantErr:  "no eligible constructor",
		},
		{
			name:     "constructor error",
			register: func(c *di.Catalog) { c.MustConstructor(NewBrokenCar) },
			wantErr:  "could not instantiate via di_test.NewBrokenCar",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cat := di.NewCatalog()
			tc.register(cat)
			r := newResolver(t, cat)

			car, err := di.Get[*Car](r)
			if tc.wantErr != "" {
				require.ErrorIs(t, err, di.ErrConfiguration)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantWheels, car.Wheels)
		})
	}
}

func TestConstructor_ParametersThenFields(t *testing.T) {
	t.Parallel()

	type Garage struct {
		Car   *Car
		Owner string `inject:"Owner"`
	}

	var sawOwner string
	cat := di.NewCatalog().
		MustConstructor(NewCar).
		MustConstructor(func(c *Car) *Garage {
			g := &Garage{Car: c}
			sawOwner = g.Owner
			return g
		})
	r := newResolver(t, cat)
	require.NoError(t, r.ProvideAnnotation("Owner", "ada"))

	g := di.MustGet[*Garage](r)
	assert.Empty(t, sawOwner, "fields are set after the constructor returns")
	assert.Equal(t, "ada", g.Owner)
	assert.Same(t, di.MustGet[*Car](r), g.Car)
}

func TestConstructor_AnnotatedParameter(t *testing.T) {
	t.Parallel()

	cat := di.NewCatalog().MustConstructor(func(kind string) *Engine {
		return &Engine{Kind: kind}
	}, di.Annotate(0, "EngineKind"))
	r := newResolver(t, cat)
	require.NoError(t, r.ProvideAnnotation("EngineKind", "diesel"))

	assert.Equal(t, "diesel", di.MustGet[*Engine](r).Kind)
}

func TestFactory(t *testing.T) {
	t.Parallel()

	t.Run("interface result", func(t *testing.T) {
		t.Parallel()

		cat := di.NewCatalog().MustConstructor(NewCar).MustFactory(NewVehicle)
		r := newResolver(t, cat)

		v := di.MustGet[Vehicle](r)
		assert.Equal(t, 4, v.WheelCount())
		assert.Same(t, v, di.MustGet[Vehicle](r))
	})

	t.Run("factory before constructor", func(t *testing.T) {
		t.Parallel()

		cat := di.NewCatalog().
			MustConstructor(NewCar).
			MustFactory(func() *Car { return &Car{Wheels: 3} })
		r := newResolver(t, cat)

		assert.Equal(t, 3, di.MustGet[*Car](r).Wheels)
	})

	t.Run("ambiguous", func(t *testing.T) {
		t.Parallel()

		cat := di.NewCatalog().
			MustConstructor(NewCar).
			MustFactory(NewVehicle).
			MustFactory(func(c *Car) Vehicle { return c })
		_, err := di.Get[Vehicle](newResolver(t, cat))
		require.ErrorIs(t, err, di.ErrConfiguration)
		assert.Contains(t, err.Error(), "ambiguous factories")
	})
}

func TestCatalog_RejectsInvalidMembers(t *testing.T) {
	t.Parallel()

	cat := di.NewCatalog()
	cases := []struct {
		name string
		fn   any
		ctor bool
	}{
		{name: "not a function", fn: 3, ctor: true},
		{name: "nil", fn: nil, ctor: true},
		{name: "variadic", fn: func(...int) *Car { return nil }, ctor: true},
		{name: "no result", fn: func() {}, ctor: false},
		{name: "second result not error", fn: func() (*Car, int) { return nil, 0 }, ctor: false},
		{name: "constructor of non struct", fn: func() Vehicle { return nil }, ctor: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var err error
			if tc.ctor {
				err = cat.Constructor(tc.fn)
			} else {
				err = cat.Factory(tc.fn)
			}
			require.ErrorIs(t, err, di.ErrConfiguration)
		})
	}

	require.Panics(t, func() { cat.MustFactory(42) })
}
