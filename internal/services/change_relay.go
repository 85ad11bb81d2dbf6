package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ildang/internal/amqp"
	"ildang/internal/log"
	"ildang/internal/storage"
)

// ChangePublisher forwards change notifications to the export worker.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// ChangeRelayConfig holds configuration for the change relay
type ChangeRelayConfig struct {
	// RetryInterval is how often an unpublished change is retried (default: 30s)
	RetryInterval time.Duration
}

// DefaultChangeRelayConfig returns sensible defaults
func DefaultChangeRelayConfig() ChangeRelayConfig {
	return ChangeRelayConfig{RetryInterval: 30 * time.Second}
}

// pendingChange merges change sets that have not been published yet.
type pendingChange struct {
	version  uint64
	months   map[string]bool
	all      bool
	settings bool
}

func (p *pendingChange) merge(cs storage.ChangeSet) {
	if cs.Version > p.version {
		p.version = cs.Version
	}
	if cs.AllLogs {
		p.all = true
	}
	if cs.Settings {
		p.settings = true
	}
	for _, m := range cs.Months() {
		if p.months == nil {
			p.months = make(map[string]bool)
		}
		p.months[m] = true
	}
}

func (p *pendingChange) message() *amqp.ChangeMessage {
	months := make([]string, 0, len(p.months))
	for m := range p.months {
		months = append(months, m)
	}
	sort.Strings(months)
	return amqp.NewChangeMessage(p.version, months, p.all, p.settings)
}

// ChangeRelay observes store commits and publishes them on its own goroutine.
// Commits that arrive while a publish is in flight are merged into one message.
type ChangeRelay struct {
	store     *storage.Store
	publisher ChangePublisher
	config    ChangeRelayConfig
	logger    *log.Logger

	pmu     sync.Mutex
	pending *pendingChange
	kick    chan struct{}

	// Lifecycle management
	mu        sync.Mutex
	running   bool
	unobserve func()
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewChangeRelay creates a relay; it does nothing until Start.
func NewChangeRelay(store *storage.Store, publisher ChangePublisher, config ChangeRelayConfig) *ChangeRelay {
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultChangeRelayConfig().RetryInterval
	}
	return &ChangeRelay{
		store:     store,
		publisher: publisher,
		config:    config,
		logger:    log.Default(log.ComponentRelay),
		kick:      make(chan struct{}, 1),
	}
}

// Start registers the store observer and begins publishing. Returns an error if
// already running.
func (r *ChangeRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("change relay is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.unobserve = r.store.Observe(r.observe)

	go r.runLoop(ctx, r.stopCh, r.doneCh)

	r.logger.InfoContext(ctx, "Change relay started", "retry_interval", r.config.RetryInterval)
	return nil
}

// Stop unregisters the observer, makes one last publish attempt for pending
// changes and waits for the publish loop to exit. After a timeout the relay
// stays running and Stop may be called again to keep waiting.
func (r *ChangeRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	if r.stopCh != nil {
		r.unobserve()
		close(r.stopCh)
		r.stopCh = nil
	}
	done := r.doneCh
	r.mu.Unlock()

	select {
	case <-done:
		r.logger.InfoContext(ctx, "Change relay stopped gracefully")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Change relay stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning returns whether the relay is currently running
func (r *ChangeRelay) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// observe runs under the store's writer lock and must not block.
func (r *ChangeRelay) observe(cs storage.ChangeSet) {
	r.pmu.Lock()
	if r.pending == nil {
		r.pending = &pendingChange{}
	}
	r.pending.merge(cs)
	r.pmu.Unlock()

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

func (r *ChangeRelay) take() *pendingChange {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	p := r.pending
	r.pending = nil
	return p
}

// putBack re-queues p after a failed publish, merged under newer changes.
func (r *ChangeRelay) putBack(p *pendingChange) {
	r.pmu.Lock()
	defer r.pmu.Unlock()
	if r.pending == nil {
		r.pending = p
		return
	}
	if p.version > r.pending.version {
		r.pending.version = p.version
	}
	r.pending.all = r.pending.all || p.all
	r.pending.settings = r.pending.settings || p.settings
	for m := range p.months {
		if r.pending.months == nil {
			r.pending.months = make(map[string]bool)
		}
		r.pending.months[m] = true
	}
}

func (r *ChangeRelay) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	retry := time.NewTicker(r.config.RetryInterval)
	defer retry.Stop()

	for {
		select {
		case <-stop:
			// Drain what was committed before Stop.
			r.flush(ctx)
			return
		case <-ctx.Done():
			return
		case <-r.kick:
			r.flush(ctx)
		case <-retry.C:
			r.flush(ctx)
		}
	}
}

func (r *ChangeRelay) flush(ctx context.Context) {
	p := r.take()
	if p == nil {
		return
	}
	msg := p.message()
	if err := r.publisher.PublishChange(ctx, msg); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish change, will retry",
			log.FieldVersion, msg.Version,
			log.FieldMonths, msg.Months,
			log.FieldError, err)
		r.putBack(p)
		return
	}
	r.logger.DebugContext(ctx, "Published change",
		log.FieldVersion, msg.Version,
		log.FieldMonths, msg.Months)
}
