package module

import (
	"fmt"
	"sort"
	"sync"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
	"github.com/gxo-labs/goap/pkg/goap/v1/plugin"
)

// StaticRegistry implements plugin.Registry with an in-memory map of action
// kinds. It is the registry used by the scenario builder unless another one
// is supplied.
type StaticRegistry struct {
	factories map[string]plugin.ActionFactory
	mu        sync.RWMutex
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		factories: make(map[string]plugin.ActionFactory),
	}
}

// Register associates an action kind with its factory. Empty names, nil
// factories and duplicate names are rejected.
func (r *StaticRegistry) Register(kind string, factory plugin.ActionFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == "" {
		return goaperrors.NewConfigError("action kind registration error: name cannot be empty", nil)
	}
	if factory == nil {
		return goaperrors.NewConfigError(fmt.Sprintf("action kind registration error for '%s': factory cannot be nil", kind), nil)
	}
	if _, exists := r.factories[kind]; exists {
		return goaperrors.NewConfigError(fmt.Sprintf("action kind registration error: duplicate kind '%s'", kind), nil)
	}
	r.factories[kind] = factory
	return nil
}

// Get returns the factory for kind, or an ActionKindNotFoundError.
func (r *StaticRegistry) Get(kind string) (plugin.ActionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[kind]
	if !exists {
		return nil, goaperrors.NewActionKindNotFoundError(kind)
	}
	return factory, nil
}

// List returns the registered kinds, sorted for stable CLI output.
func (r *StaticRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// --- Default global registry, filled by action packages' init() ---

var (
	globalRegistry                 = NewStaticRegistry()
	_              plugin.Registry = (*StaticRegistry)(nil)
)

// Register adds an action kind to the global registry. It is meant for init()
// functions and panics on error, since a bad registration is a build-time
// mistake.
func Register(kind string, factory plugin.ActionFactory) {
	if err := globalRegistry.Register(kind, factory); err != nil {
		panic(fmt.Errorf("failed to register action kind '%s' globally: %w", kind, err))
	}
}

// DefaultStaticRegistryGetter exposes the global registry holding every
// action kind registered at init time.
var DefaultStaticRegistryGetter plugin.Registry = globalRegistry
