package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/foldersync/internal/change"
	"github.com/roach88/foldersync/internal/oplog"
)

// Processor sweeps the operation log and delivers unprocessed operations to
// the remote authority, coalescing triggers into at most one running plus
// one queued sweep.
type Processor struct {
	log    *oplog.Store
	remote Remote
	logger *slog.Logger
	now    func() time.Time

	online atomic.Bool
	sweeps atomic.Int64

	mu      sync.Mutex
	cond    *sync.Cond // signals running -> idle
	running bool
	queued  bool
}

// Config carries the collaborators for New.
type Config struct {
	Log    *oplog.Store
	Remote Remote
	Logger *slog.Logger // defaults to discard
}

// New creates a processor. It starts offline; the owner flips connectivity
// through SetOnline as it learns about it.
func New(cfg Config) *Processor {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	p := &Processor{
		log:    cfg.Log,
		remote: cfg.Remote,
		logger: cfg.Logger,
		now:    time.Now,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetOnline records a connectivity change. Every offline-to-online
// transition triggers a sweep; going offline stops the current sweep at the
// next operation boundary.
func (p *Processor) SetOnline(online bool) {
	was := p.online.Swap(online)
	if online && !was {
		p.logger.Info("connectivity restored, sweeping")
		p.Notify()
	}
}

// Online reports the last known connectivity state.
func (p *Processor) Online() bool {
	return p.online.Load()
}

// Notify requests a sweep. If one is already running, exactly one more is
// queued behind it no matter how many times Notify is called meanwhile.
// Never blocks.
func (p *Processor) Notify() {
	p.mu.Lock()
	if p.running {
		p.queued = true
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.run(context.Background())
}

// RunOnce performs a sweep synchronously. If a sweep is already running it
// queues a follow-up and waits for the processor to go idle.
func (p *Processor) RunOnce(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.queued = true
		p.mu.Unlock()
		p.Wait()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	p.run(ctx)
	return nil
}

// Wait blocks until no sweep is running or queued. Test and CLI helper.
func (p *Processor) Wait() {
	p.mu.Lock()
	for p.running {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Sweeps returns the number of sweeps executed. Exposed for status output.
func (p *Processor) Sweeps() int64 {
	return p.sweeps.Load()
}

// run executes sweeps until the queued flag stays clear. Caller has already
// claimed the running slot.
func (p *Processor) run(ctx context.Context) {
	for {
		p.sweepOnce(ctx)

		p.mu.Lock()
		if p.queued {
			p.queued = false
			p.mu.Unlock()
			continue
		}
		p.running = false
		p.cond.Broadcast()
		p.mu.Unlock()
		return
	}
}

// sweepOnce walks the unprocessed tail of the log in creation order. It
// stops at the first operation that cannot be completed - going out of
// order would let a later mutation race ahead of the one it depends on.
func (p *Processor) sweepOnce(ctx context.Context) {
	p.sweeps.Add(1)

	if !p.online.Load() {
		return
	}

	ops, err := p.log.ListUnprocessed(ctx)
	if err != nil {
		p.logger.Warn("listing unprocessed operations failed", "error", err)
		return
	}

	for _, op := range ops {
		if !p.online.Load() {
			p.logger.Debug("connectivity lost mid-sweep, stopping")
			return
		}

		err := p.deliver(ctx, op)
		switch {
		case err == nil:
			p.markProcessed(ctx, op.ID)
		case errors.Is(err, ErrGone):
			// The target is already gone remotely; the operation's
			// intent is satisfied.
			p.logger.Debug("operation vacuously complete",
				"operation", op.ID, "kind", op.Change.Kind)
			p.markProcessed(ctx, op.ID)
		default:
			p.logger.Debug("delivery failed, will retry",
				"operation", op.ID, "kind", op.Change.Kind, "error", err)
			return
		}
	}
}

func (p *Processor) markProcessed(ctx context.Context, id string) {
	if _, err := p.log.MarkProcessed(ctx, id, p.now()); err != nil {
		p.logger.Warn("marking operation processed failed", "operation", id, "error", err)
	}
}

// deliver dispatches one operation to its per-tag remote call. The switch
// is exhaustive over the change union; the default arm panicking is the
// loud failure demanded when the log was written by a schema this build
// does not know.
func (p *Processor) deliver(ctx context.Context, op oplog.Operation) error {
	c := op.Change
	switch c.Kind {
	case change.KindCreateFolder:
		return p.remote.CreateFolder(ctx, op.Workspace, c.ID, c.Name, c.Parent)
	case change.KindCreateRunbook:
		return p.remote.CreateRunbook(ctx, op.Workspace, c.ID, c.Parent)
	case change.KindImportRunbooks:
		return p.remote.ImportRunbooks(ctx, op.Workspace, c.IDs, c.Parent)
	case change.KindRenameFolder:
		return p.remote.RenameFolder(ctx, op.Workspace, c.ID, c.Name)
	case change.KindDeleteFolder:
		return p.remote.DeleteFolder(ctx, op.Workspace, c.ID)
	case change.KindDeleteRunbook:
		return p.remote.DeleteRunbook(ctx, op.Workspace, c.ID)
	case change.KindMoveItems:
		return p.remote.MoveItems(ctx, op.Workspace, c.IDs, c.Parent, c.Index)
	default:
		panic(fmt.Sprintf("processor: unhandled operation kind %q", c.Kind))
	}
}
