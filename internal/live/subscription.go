package live

import (
	"context"
	"log/slog"

	"ildang/internal/storage"
)

// Query reads a value inside a read-only transaction.
type Query[T any] func(ctx context.Context, tx storage.Tx) (T, error)

// Result is one delivery. Version is the store version the value is at least as
// fresh as; it never decreases within a subscription.
type Result[T any] struct {
	Value   T
	Version uint64
	Err     error
}

// Subscription streams query results on C until cancelled. C is closed once the
// subscription has stopped.
type Subscription[T any] struct {
	C <-chan Result[T]

	out   chan Result[T]
	dirty chan struct{}
	done  chan struct{}

	hub    *Hub
	dep    Deps
	query  Query[T]
	ctx    context.Context
	cancel context.CancelFunc
}

// Subscribe runs query now and again after every commit matching deps.
// Rapid commits may be coalesced into one run that reflects all of them.
func Subscribe[T any](ctx context.Context, hub *Hub, deps Deps, query Query[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		out:    make(chan Result[T]),
		dirty:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		hub:    hub,
		dep:    deps,
		query:  query,
		ctx:    ctx,
		cancel: cancel,
	}
	s.C = s.out

	if !hub.register(s) {
		cancel()
		close(s.out)
		close(s.done)
		return s
	}
	s.markDirty()
	go s.run()
	return s
}

func (s *Subscription[T]) deps() Deps { return s.dep }

func (s *Subscription[T]) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) stop() { s.Cancel() }

// Cancel stops the subscription and waits for its worker to exit. Nothing is
// delivered on C after Cancel returns. It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once the subscription has stopped.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

func (s *Subscription[T]) run() {
	defer close(s.done)
	defer close(s.out)
	defer s.hub.unregister(s)

	store := s.hub.Store()
	var last uint64
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.dirty:
		}

		// Read the version first: the view that follows sees at least this commit.
		version := store.Version()
		var (
			value T
			qerr  error
		)
		err := store.View(s.ctx, func(tx storage.Tx) error {
			value, qerr = s.query(s.ctx, tx)
			return qerr
		})
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.WarnContext(s.ctx, "Live query failed", "error", err, "version", version)
		}
		if version < last {
			version = last
		}
		last = version

		select {
		case s.out <- Result[T]{Value: value, Version: version, Err: err}:
		case <-s.ctx.Done():
			return
		}
	}
}

// Collect reads results until fn returns false, the subscription ends or ctx is done.
func Collect[T any](ctx context.Context, s *Subscription[T], fn func(Result[T]) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-s.C:
			if !ok || !fn(r) {
				return
			}
		}
	}
}

var _ subscriber = (*Subscription[int])(nil)
