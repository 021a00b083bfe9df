package di_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sghaida/odinject/di"
	"github.com/stretchr/testify/require"
)

const testRoot = "github.com/sghaida/odinject"

type Repository struct {
	ID int
}

type Service struct {
	_       struct{} `postconstruct:"Init"`
	Repo    *Repository
	Limit   int `inject:"MaxItems"`
	repoSet bool
}

func (s *Service) Init() { s.repoSet = s.Repo != nil }

func NewService(r *Repository) *Service {
	return &Service{Repo: r}
}

// counting returns a Repository and a Service constructor counting their calls.
func counting() (repos, services *atomic.Int64, newRepo func() *Repository, newService func(*Repository) *Service) {
	repos, services = new(atomic.Int64), new(atomic.Int64)
	newRepo = func() *Repository { return &Repository{ID: int(repos.Add(1))} }
	newService = func(r *Repository) *Service {
		services.Add(1)
		return NewService(r)
	}
	return repos, services, newRepo, newService
}

// A and B depend on each other through their fields.
type A struct {
	B *B `inject:""`
}

type B struct {
	A *A `inject:""`
}

type Prototype struct {
	_ struct{} `scope:"prototype"`
	N int
}

type Greeter interface {
	Greet() string
}

type English struct{}

func (*English) Greet() string { return "hello" }

type Widget struct {
	Name string
}

// WidgetProvider is a provider type: it is resolved itself and its Get supplies widgets.
type WidgetProvider struct {
	Prefix string `inject:"WidgetPrefix"`
}

func (p *WidgetProvider) Get() (*Widget, error) { return &Widget{Name: p.Prefix + "-widget"}, nil }

type Lazy struct {
	Widgets di.Provider[*Widget] `inject:""`
}

type RawLazy struct {
	Anything di.Provider[any] `inject:""`
}

type Failing struct{}

var errBoom = errors.New("boom")

func (*Failing) PostConstruct() error { return errBoom }

type NeedsFailing struct {
	F *Failing `inject:""`
}

type unexportedFields struct {
	repo *Repository `inject:""`
}

func newResolver(t *testing.T, cat *di.Catalog, extra ...any) *di.Resolver {
	t.Helper()

	if cat == nil {
		cat = di.NewCatalog()
	}
	r, err := di.New(
		di.WithDescriber(cat),
		di.WithHandlers(extra...),
		di.WithDefaultHandlers(testRoot),
	)
	require.NoError(t, err)
	return r
}
