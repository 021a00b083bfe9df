package di

import (
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// singletonStore maps a type to its single instance. Entries are never
// replaced or removed. Construction of a missing entry goes through a
// singleflight group so concurrent callers share one build.
//
// Builds nest: a flight resolves the dependencies of its type, which may
// start or join other flights. owners and waiting record who runs and who
// waits on each flight, so that two callers racing through a cycle get a
// CyclicDependencyError instead of waiting on each other forever.
type singletonStore struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
	flight singleflight.Group

	waitMu  sync.Mutex
	owners  map[string]flightOwner
	waiting map[*caller]flightWait
}

type flightOwner struct {
	caller *caller
	typ    reflect.Type
}

type flightWait struct {
	key string
	typ reflect.Type
}

func newSingletonStore() *singletonStore {
	return &singletonStore{
		values:  make(map[reflect.Type]any),
		owners:  make(map[string]flightOwner),
		waiting: make(map[*caller]flightWait),
	}
}

func (s *singletonStore) get(t reflect.Type) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[t]
	return v, ok
}

// put stores v under t. It fails if t already has a value.
func (s *singletonStore) put(t reflect.Type, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[t]; exists {
		return &AlreadyRegisteredError{Kind: "singleton", Key: t.String()}
	}
	s.values[t] = v
	return nil
}

// putIfAbsent stores v under t unless a value exists, and returns the value
// that ends up stored.
func (s *singletonStore) putIfAbsent(t reflect.Type, v any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, exists := s.values[t]; exists {
		return existing, false
	}
	s.values[t] = v
	return v, true
}

// getOrCreate returns the value of t, calling create at most once across
// concurrent callers when it is missing. A failed create stores nothing.
// c identifies the resolution asking; a nil c skips deadlock detection.
func (s *singletonStore) getOrCreate(c *caller, t reflect.Type, create func() (any, error)) (v any, created bool, err error) {
	key := flightKey(t)
	if err := s.wait(c, key, t); err != nil {
		return nil, false, err
	}
	defer s.stopWaiting(c)

	res, err, _ := s.flight.Do(key, func() (any, error) {
		if v, ok := s.get(t); ok {
			return storeResult{value: v}, nil
		}
		s.own(c, key, t)
		defer s.disown(key)

		v, err := create()
		if err != nil {
			return nil, err
		}
		stored, fresh := s.putIfAbsent(t, v)
		return storeResult{value: stored, created: fresh}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(storeResult)
	return r.value, r.created, nil
}

// wait registers c as waiting on key. It fails when the owner of key is,
// through the flights it waits on, waiting on c.
func (s *singletonStore) wait(c *caller, key string, t reflect.Type) error {
	if c == nil {
		return nil
	}
	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	chain := []Identifier{NewIdentifier(t)}
	next := key
	for range len(s.owners) + 1 {
		o, ok := s.owners[next]
		if !ok {
			break
		}
		if o.caller == c {
			return &CyclicDependencyError{Chain: append(chain, NewIdentifier(t))}
		}
		w, ok := s.waiting[o.caller]
		if !ok {
			break
		}
		chain = append(chain, NewIdentifier(w.typ))
		next = w.key
	}
	s.waiting[c] = flightWait{key: key, typ: t}
	return nil
}

func (s *singletonStore) stopWaiting(c *caller) {
	if c == nil {
		return
	}
	s.waitMu.Lock()
	delete(s.waiting, c)
	s.waitMu.Unlock()
}

func (s *singletonStore) own(c *caller, key string, t reflect.Type) {
	if c == nil {
		return
	}
	s.waitMu.Lock()
	s.owners[key] = flightOwner{caller: c, typ: t}
	delete(s.waiting, c)
	s.waitMu.Unlock()
}

func (s *singletonStore) disown(key string) {
	s.waitMu.Lock()
	delete(s.owners, key)
	s.waitMu.Unlock()
}

// assignable returns the stored values whose type is assignable to t,
// ordered by type name.
func (s *singletonStore) assignable(t reflect.Type) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]reflect.Type, 0, len(s.values))
	for typ := range s.values {
		if typ.AssignableTo(t) {
			types = append(types, typ)
		}
	}
	slices.SortFunc(types, func(a, b reflect.Type) int { return strings.Compare(a.String(), b.String()) })
	out := make([]any, len(types))
	for i, typ := range types {
		out[i] = s.values[typ]
	}
	return out
}

func (s *singletonStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

type storeResult struct {
	value   any
	created bool
}

// flightKey is unique per type: type names alone may collide across packages.
func flightKey(t reflect.Type) string {
	return t.String() + "#" + strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16)
}
