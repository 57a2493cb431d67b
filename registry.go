package swappable

import (
	"fmt"
	"sort"
	"sync"
)

type registryEntry struct {
	holder any
	status func() Status
}

// Registry stores process-wide singletons by name.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

// DefaultRegistry is the process-wide registry used by code that does not
// pass its own.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]registryEntry),
	}
}

// Register constructs a singleton from def and stores it under name.
// The default instance is only built when the name is free.
func Register[Opt any, T Reloadable](r *Registry, name string, def Definition[Opt, T], opts ...Option) (*Singleton[Opt, T], error) {
	if r == nil {
		return nil, fmt.Errorf("register singleton: registry is nil")
	}
	if name == "" {
		return nil, fmt.Errorf("register singleton: name is empty")
	}

	r.mu.RLock()
	_, exists := r.entries[name]
	r.mu.RUnlock()
	if exists {
		return nil, DuplicateError{Name: name}
	}

	withName := make([]Option, 0, len(opts)+1)
	withName = append(withName, opts...)
	withName = append(withName, WithName(name))
	s, err := New(def, withName...)
	if err != nil {
		return nil, fmt.Errorf("register singleton %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		s.retire()
		return nil, DuplicateError{Name: name}
	}
	r.entries[name] = registryEntry{
		holder: s,
		status: s.Status,
	}
	return s, nil
}

// MustRegister panics on registration error; intended for bootstrap code paths.
func MustRegister[Opt any, T Reloadable](r *Registry, name string, def Definition[Opt, T], opts ...Option) *Singleton[Opt, T] {
	s, err := Register(r, name, def, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the singleton registered under name with its concrete type.
func Lookup[Opt any, T Reloadable](r *Registry, name string) (*Singleton[Opt, T], error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, NotRegisteredError{Name: name}
	}

	s, ok := entry.holder.(*Singleton[Opt, T])
	if !ok {
		return nil, TypeMismatchError{
			Name:     name,
			Expected: fmt.Sprintf("%T", (*Singleton[Opt, T])(nil)),
			Actual:   fmt.Sprintf("%T", entry.holder),
		}
	}
	return s, nil
}

// Get is a typed shortcut for Lookup followed by Singleton.Get.
func Get[Opt any, T Reloadable](r *Registry, name string) (T, error) {
	s, err := Lookup[Opt, T](r, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.Get(), nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Status returns a status snapshot of every registered singleton, sorted by name.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	out := make([]Status, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.status())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
