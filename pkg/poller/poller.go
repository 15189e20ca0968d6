package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Func is one poll cycle. The context is cancelled when the poller stops;
// implementations must treat a cancelled context as "discard your result".
type Func func(ctx context.Context) error

// ErrorHandler receives errors returned by poll cycles.
type ErrorHandler func(err error)

// Poller runs a function on a fixed interval. A tick that fires while the
// previous cycle has not returned is skipped, never queued, so a slow
// upstream cannot pile up concurrent cycles.
type Poller struct {
	name     string
	interval time.Duration
	fn       Func
	onError  ErrorHandler

	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	started bool
}

// New creates a poller. onError may be nil.
func New(name string, interval time.Duration, fn Func, onError ErrorHandler) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		onError:  onError,
	}
}

// Start begins polling. The first cycle runs immediately, then on every
// interval tick. Start is a no-op if the poller is already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(runCtx)
}

// Stop cancels the poller and waits for an in-flight cycle to return.
// Stop is idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Name returns the poller name used in logs and metrics.
func (p *Poller) Name() string {
	return p.name
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	// a tick buffered before Stop cancelled the context must not fire
	if ctx.Err() != nil {
		return
	}

	// skip overlapping fires
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	err := p.fn(ctx)
	if err == nil {
		return
	}

	// a cycle that lost to cancellation is not an error worth reporting
	if ctx.Err() != nil {
		return
	}
	if p.onError != nil {
		p.onError(err)
	}
}
