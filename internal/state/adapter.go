package state

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/tree"
)

// Version is a monotonic counter over server-confirmed workspace states.
// Version N+1 is the immediate successor of N; anything further ahead means
// pushes were missed and the holder must resync.
type Version int64

// Succeeds reports whether v is the immediate successor of prev.
func (v Version) Succeeds(prev Version) bool {
	return v == prev+1
}

// Push is a server-originated update: the delta that produced the new
// confirmed version, plus the ChangeRef of the local optimistic update it
// acknowledges, if any (empty for changes made by other clients).
type Push struct {
	Version   Version
	Delta     []change.Change
	ChangeRef string
}

// ResyncResponse is the authoritative answer to a resync request: the full
// confirmed state, its version, and the refs of this client's mutations the
// server has received but not yet confirmed through a push.
type ResyncResponse struct {
	State        tree.Snapshot
	Version      Version
	InFlightRefs []string
}

// Adapter is the transport contract between a Manager and the remote
// authority for one workspace. Implementations own the wire protocol; the
// Manager owns all reconciliation logic.
type Adapter interface {
	// Init performs one-time setup. Called exactly once, before any other
	// method.
	Init(ctx context.Context) error

	// EnsureConnected joins the remote channel if not already joined or
	// joining. Idempotent; concurrent calls must coalesce.
	EnsureConnected(ctx context.Context) error

	// Subscribe registers a callback for server pushes and returns a
	// cancel function. Callbacks are invoked sequentially.
	Subscribe(fn func(Push)) (cancel func())

	// Resync requests the authoritative full state given the last version
	// this client confirmed.
	Resync(ctx context.Context, last Version) (ResyncResponse, error)

	// Destroy releases transport resources. No methods may be called after.
	Destroy() error
}

// ReconnectPolicy bounds the exponential backoff applied to channel joins.
type ReconnectPolicy struct {
	// InitialInterval is the first retry delay. Zero means 500ms.
	InitialInterval time.Duration

	// MaxInterval caps the delay between attempts. Zero means 30s.
	MaxInterval time.Duration

	// MaxElapsedTime bounds the whole join attempt. Zero means give up
	// after 5 minutes; the caller retries on the next connectivity event.
	MaxElapsedTime time.Duration
}

func (p ReconnectPolicy) withDefaults() ReconnectPolicy {
	if p.InitialInterval == 0 {
		p.InitialInterval = 500 * time.Millisecond
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = 30 * time.Second
	}
	if p.MaxElapsedTime == 0 {
		p.MaxElapsedTime = 5 * time.Minute
	}
	return p
}

// WithReconnect wraps an adapter so EnsureConnected retries with capped
// exponential backoff instead of failing on the first refused join. All
// other methods pass through.
func WithReconnect(a Adapter, policy ReconnectPolicy) Adapter {
	return &reconnectingAdapter{Adapter: a, policy: policy.withDefaults()}
}

type reconnectingAdapter struct {
	Adapter
	policy ReconnectPolicy
}

func (r *reconnectingAdapter) EnsureConnected(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.MaxElapsedTime = r.policy.MaxElapsedTime

	return backoff.Retry(func() error {
		return r.Adapter.EnsureConnected(ctx)
	}, backoff.WithContext(b, ctx))
}
