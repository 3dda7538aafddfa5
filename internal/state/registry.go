package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// AdapterFactory builds the transport adapter for one workspace id.
type AdapterFactory func(workspaceID string) Adapter

// Registry hands out reference-counted Managers keyed by workspace id.
// The first Acquire for an id constructs and starts the manager; the last
// Release destroys it synchronously. It replaces the module-level singleton
// map the pattern usually degenerates into, so the composition root owns
// the lifecycle explicitly.
type Registry struct {
	adapters AdapterFactory
	refs     RefGenerator
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	mgr   *Manager
	count int

	// Start runs outside the registry lock so slow joins on one workspace
	// do not stall acquires on others; once holds the result for every
	// concurrent first-acquirer.
	once     sync.Once
	startErr error
}

// RegistryConfig carries the collaborators for NewRegistry.
type RegistryConfig struct {
	Adapters AdapterFactory
	Refs     RefGenerator // defaults to UUIDv7Generator
	Logger   *slog.Logger // defaults to discard
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Refs == nil {
		cfg.Refs = UUIDv7Generator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		adapters: cfg.Adapters,
		refs:     cfg.Refs,
		logger:   cfg.Logger,
		entries:  make(map[string]*registryEntry),
	}
}

// Acquire returns the manager for id, constructing and starting it on first
// use. Every successful Acquire must be paired with exactly one Release.
func (r *Registry) Acquire(ctx context.Context, id string) (*Manager, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		e = &registryEntry{
			mgr: NewManager(ManagerConfig{
				ID:      id,
				Adapter: r.adapters(id),
				Refs:    r.refs,
				Logger:  r.logger,
			}),
		}
		r.entries[id] = e
	}
	e.count++
	r.mu.Unlock()

	e.once.Do(func() {
		e.startErr = e.mgr.Start(ctx)
	})
	if e.startErr != nil {
		r.Release(id)
		return nil, fmt.Errorf("acquire %s: %w", id, e.startErr)
	}
	return e.mgr, nil
}

// Release drops one reference. The last release removes the entry and
// destroys the manager synchronously; adapter calls already in flight are
// ignored when they resolve.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.count--
	last := e.count <= 0
	if last {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if last {
		if err := e.mgr.Destroy(); err != nil {
			r.logger.Warn("destroying manager failed", "workspace", id, "error", err)
		}
	}
}

// Active returns the number of live managers. Used by tests and status
// output.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
