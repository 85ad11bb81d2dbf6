package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ildang/internal/core"
)

// Observer receives every committed change set, in commit order. It runs while the
// writer lock is held, so it must not block or write to the store.
type Observer func(ChangeSet)

// Store is the single entry point to the record store.
type Store struct {
	backend Backend

	// mu serializes writers and observer notification.
	mu      sync.Mutex
	version atomic.Uint64

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int

	now           func() time.Time
	lastCreatedAt int64
	clockSeeded   bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore wraps backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		observers: make(map[int]Observer),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Close closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// Version returns the number of committed write transactions since the store was opened.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Observe registers fn for post-commit notifications and returns its cancel func.
func (s *Store) Observe(fn Observer) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, id)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) notify(cs ChangeSet) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	for _, fn := range s.observers {
		fn(cs)
	}
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(Tx) error) error {
	return s.backend.View(ctx, func(tx Tx) error {
		return fn(ReadOnly(tx))
	})
}

// Update runs fn in a write transaction. Either every write in fn commits or none
// does. Observers are notified once, after commit, when anything was written.
func (s *Store) Update(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *recordingTx
	err := s.backend.Update(ctx, func(tx Tx) error {
		rec = &recordingTx{Tx: tx, store: s}
		return fn(rec)
	})
	if err != nil {
		return err
	}
	if rec == nil || rec.changes.empty() {
		return nil
	}

	cs := rec.changes.build(s.version.Add(1))
	s.notify(cs)
	return nil
}

// nextCreatedAt returns a strictly increasing millisecond timestamp.
func (s *Store) nextCreatedAt(ctx context.Context, tx Tx) int64 {
	s.seedClock(ctx, tx)
	ts := s.now().UnixMilli()
	if ts <= s.lastCreatedAt {
		ts = s.lastCreatedAt + 1
	}
	s.lastCreatedAt = ts
	return ts
}

func (s *Store) observeCreatedAt(ctx context.Context, tx Tx, ts int64) {
	s.seedClock(ctx, tx)
	if ts > s.lastCreatedAt {
		s.lastCreatedAt = ts
	}
}

func (s *Store) seedClock(ctx context.Context, tx Tx) {
	if s.clockSeeded {
		return
	}
	if latest, ok, err := tx.LatestLog(ctx); err == nil {
		if ok {
			s.lastCreatedAt = latest.CreatedAt
		}
		s.clockSeeded = true
	}
}

// InitSettings inserts one blank settings row when the collection is empty.
// It is safe to call on every startup.
func (s *Store) InitSettings(ctx context.Context) error {
	return s.Update(ctx, func(tx Tx) error {
		return ensureSettings(ctx, tx)
	})
}

func ensureSettings(ctx context.Context, tx Tx) error {
	n, err := tx.CountSettings(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := tx.AddSettings(ctx, core.Settings{}); err != nil {
		return fmt.Errorf("initialize settings: %w", err)
	}
	return nil
}

// Settings returns the settings singleton, creating it first if it is missing.
func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	var (
		settings core.Settings
		found    bool
	)
	err := s.View(ctx, func(tx Tx) error {
		var err error
		settings, found, err = tx.FirstSettings(ctx)
		return err
	})
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if found {
		return settings, nil
	}

	err = s.Update(ctx, func(tx Tx) error {
		if err := ensureSettings(ctx, tx); err != nil {
			return err
		}
		settings, _, err = tx.FirstSettings(ctx)
		return err
	})
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return settings, nil
}

// SaveSettings applies patch to the singleton and returns the result.
func (s *Store) SaveSettings(ctx context.Context, patch SettingsPatch) (core.Settings, error) {
	var saved core.Settings
	err := s.Update(ctx, func(tx Tx) error {
		if err := ensureSettings(ctx, tx); err != nil {
			return err
		}
		current, _, err := tx.FirstSettings(ctx)
		if err != nil {
			return err
		}
		if err := tx.UpdateSettings(ctx, current.ID, patch); err != nil {
			return err
		}
		saved = patch.Apply(current)
		return nil
	})
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return saved, nil
}

// ClearAll removes every record and recreates a blank settings singleton.
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.ClearLogs(ctx); err != nil {
			return err
		}
		if err := tx.ClearSettings(ctx); err != nil {
			return err
		}
		_, err := tx.AddSettings(ctx, core.Settings{})
		return err
	})
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

// AddLog validates and inserts w, returning the stored record.
func (s *Store) AddLog(ctx context.Context, w core.WorkLog) (core.WorkLog, error) {
	var stored core.WorkLog
	err := s.Update(ctx, func(tx Tx) error {
		id, err := tx.AddLog(ctx, w)
		if err != nil {
			return err
		}
		stored, err = tx.GetLog(ctx, id)
		return err
	})
	if err != nil {
		return core.WorkLog{}, fmt.Errorf("add log: %w", err)
	}
	return stored, nil
}

// GetLog returns the record with id.
func (s *Store) GetLog(ctx context.Context, id int64) (core.WorkLog, error) {
	var w core.WorkLog
	err := s.View(ctx, func(tx Tx) error {
		var err error
		w, err = tx.GetLog(ctx, id)
		return err
	})
	return w, err
}

// UpdateLog applies patch to the record with id and returns the stored result.
func (s *Store) UpdateLog(ctx context.Context, id int64, patch LogPatch) (core.WorkLog, error) {
	var stored core.WorkLog
	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.UpdateLog(ctx, id, patch); err != nil {
			return err
		}
		var err error
		stored, err = tx.GetLog(ctx, id)
		return err
	})
	if err != nil {
		return core.WorkLog{}, fmt.Errorf("update log %d: %w", id, err)
	}
	return stored, nil
}

// DeleteLog removes the record with id.
func (s *Store) DeleteLog(ctx context.Context, id int64) error {
	err := s.Update(ctx, func(tx Tx) error {
		return tx.DeleteLog(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete log %d: %w", id, err)
	}
	return nil
}

// QueryLogs runs a range query.
func (s *Store) QueryLogs(ctx context.Context, r Range) ([]core.WorkLog, error) {
	var out []core.WorkLog
	err := s.View(ctx, func(tx Tx) error {
		var err error
		out, err = tx.QueryLogs(ctx, r)
		return err
	})
	return out, err
}

// LogsBetween returns records dated within [start, end] ordered by date.
// start after end yields no records.
func (s *Store) LogsBetween(ctx context.Context, start, end core.Date) ([]core.WorkLog, error) {
	return s.QueryLogs(ctx, DateRange(start, end))
}

// AllLogs returns every record ordered by date.
func (s *Store) AllLogs(ctx context.Context) ([]core.WorkLog, error) {
	return s.QueryLogs(ctx, AllByDate())
}

// CountLogs returns the number of stored records.
func (s *Store) CountLogs(ctx context.Context) (int, error) {
	var n int
	err := s.View(ctx, func(tx Tx) error {
		var err error
		n, err = tx.CountLogs(ctx)
		return err
	})
	return n, err
}

// LatestLog returns the most recently created record.
func (s *Store) LatestLog(ctx context.Context) (core.WorkLog, bool, error) {
	var (
		w     core.WorkLog
		found bool
	)
	err := s.View(ctx, func(tx Tx) error {
		var err error
		w, found, err = tx.LatestLog(ctx)
		return err
	})
	return w, found, err
}

// BulkAddLogs inserts logs in one transaction.
func (s *Store) BulkAddLogs(ctx context.Context, logs []core.WorkLog) ([]int64, error) {
	var ids []int64
	err := s.Update(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.BulkAddLogs(ctx, logs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bulk add logs: %w", err)
	}
	return ids, nil
}
