// Package testutil provides scripted collaborators for exercising the sync
// engine without a wire transport or a remote API: a scripted transport
// adapter and a scripted remote delivery endpoint.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/foldersync/internal/state"
	"github.com/roach88/foldersync/internal/tree"
)

// ScriptedAdapter implements state.Adapter entirely in memory. Tests push
// server updates through Push and script resync answers through ResyncFunc.
//
// The zero value is usable: Init and EnsureConnected succeed, and resync
// returns an empty workspace at version 0.
type ScriptedAdapter struct {
	mu sync.Mutex

	// InitErr, if set, is returned by Init.
	InitErr error

	// FailConnects makes the first N EnsureConnected calls fail with
	// ConnectErr, simulating a channel that refuses joins for a while.
	FailConnects int
	ConnectErr   error

	// ResyncFunc scripts the authoritative resync answer. Nil means an
	// empty workspace at version 0 with no in-flight refs.
	ResyncFunc func(last state.Version) (state.ResyncResponse, error)

	subs        []func(state.Push)
	inits       int
	connects    int
	resyncCalls []state.Version
	destroyed   bool
}

func (a *ScriptedAdapter) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inits++
	return a.InitErr
}

func (a *ScriptedAdapter) EnsureConnected(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects++
	if a.connects <= a.FailConnects {
		return a.ConnectErr
	}
	return nil
}

func (a *ScriptedAdapter) Subscribe(fn func(state.Push)) (cancel func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := len(a.subs)
	a.subs = append(a.subs, fn)
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.subs[i] = nil
	}
}

func (a *ScriptedAdapter) Resync(ctx context.Context, last state.Version) (state.ResyncResponse, error) {
	a.mu.Lock()
	a.resyncCalls = append(a.resyncCalls, last)
	fn := a.ResyncFunc
	a.mu.Unlock()

	if fn != nil {
		return fn(last)
	}
	return state.ResyncResponse{State: tree.New().Snapshot(), Version: 0}, nil
}

func (a *ScriptedAdapter) Destroy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyed = true
	return nil
}

// Push delivers a server update to every live subscriber, synchronously.
func (a *ScriptedAdapter) Push(p state.Push) {
	a.mu.Lock()
	subs := make([]func(state.Push), len(a.subs))
	copy(subs, a.subs)
	a.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(p)
		}
	}
}

// Destroyed reports whether Destroy has been called.
func (a *ScriptedAdapter) Destroyed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.destroyed
}

// Connects returns how many times EnsureConnected has been called.
func (a *ScriptedAdapter) Connects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects
}

// ResyncCalls returns the last-known versions passed to Resync, in order.
func (a *ScriptedAdapter) ResyncCalls() []state.Version {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]state.Version, len(a.resyncCalls))
	copy(out, a.resyncCalls)
	return out
}
