// Package memory is an in-process storage.Backend. Every Update works on a private
// copy of the state that replaces the shared one only on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"ildang/internal/core"
	"ildang/internal/storage"
)

type state struct {
	logs           map[int64]core.WorkLog
	settings       map[int64]core.Settings
	nextLogID      int64
	nextSettingsID int64
}

func newState() *state {
	return &state{
		logs:           make(map[int64]core.WorkLog),
		settings:       make(map[int64]core.Settings),
		nextLogID:      1,
		nextSettingsID: 1,
	}
}

func (s *state) clone() *state {
	c := &state{
		logs:           make(map[int64]core.WorkLog, len(s.logs)),
		settings:       make(map[int64]core.Settings, len(s.settings)),
		nextLogID:      s.nextLogID,
		nextSettingsID: s.nextSettingsID,
	}
	for id, w := range s.logs {
		c.logs[id] = w
	}
	for id, v := range s.settings {
		c.settings[id] = v
	}
	return c
}

type Store struct {
	mu     sync.RWMutex
	state  *state
	closed bool
}

var _ storage.Backend = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return fn(storage.ReadOnly(&tx{st: s.state}))
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type tx struct {
	st *state
}

func (t *tx) GetLog(_ context.Context, id int64) (core.WorkLog, error) {
	w, ok := t.st.logs[id]
	if !ok {
		return core.WorkLog{}, &storage.NotFoundError{Collection: storage.CollectionLogs, ID: id}
	}
	return w, nil
}

func (t *tx) AddLog(_ context.Context, w core.WorkLog) (int64, error) {
	w.ID = t.st.nextLogID
	t.st.nextLogID++
	t.st.logs[w.ID] = w
	return w.ID, nil
}

func (t *tx) UpdateLog(_ context.Context, id int64, patch storage.LogPatch) error {
	w, ok := t.st.logs[id]
	if !ok {
		return &storage.NotFoundError{Collection: storage.CollectionLogs, ID: id}
	}
	t.st.logs[id] = patch.Apply(w)
	return nil
}

func (t *tx) DeleteLog(_ context.Context, id int64) error {
	if _, ok := t.st.logs[id]; !ok {
		return &storage.NotFoundError{Collection: storage.CollectionLogs, ID: id}
	}
	delete(t.st.logs, id)
	return nil
}

func (t *tx) QueryLogs(ctx context.Context, r storage.Range) ([]core.WorkLog, error) {
	lo, hi, err := r.Bounds()
	if err != nil {
		return nil, err
	}
	var out []core.WorkLog
	for _, w := range t.st.logs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.Matches(w, lo, hi) {
			out = append(out, w)
		}
	}
	return r.Sort(out), nil
}

func (t *tx) CountLogs(context.Context) (int, error) {
	return len(t.st.logs), nil
}

func (t *tx) LatestLog(context.Context) (core.WorkLog, bool, error) {
	var (
		latest core.WorkLog
		found  bool
	)
	for _, w := range t.st.logs {
		if !found || w.CreatedAt > latest.CreatedAt || (w.CreatedAt == latest.CreatedAt && w.ID > latest.ID) {
			latest, found = w, true
		}
	}
	return latest, found, nil
}

func (t *tx) ClearLogs(context.Context) error {
	t.st.logs = make(map[int64]core.WorkLog)
	return nil
}

func (t *tx) BulkAddLogs(ctx context.Context, logs []core.WorkLog) ([]int64, error) {
	ids := make([]int64, 0, len(logs))
	for _, w := range logs {
		if w.ID == 0 {
			id, _ := t.AddLog(ctx, w)
			ids = append(ids, id)
			continue
		}
		if _, taken := t.st.logs[w.ID]; taken {
			return nil, &storage.ConflictError{Collection: storage.CollectionLogs, ID: w.ID}
		}
		t.st.logs[w.ID] = w
		if w.ID >= t.st.nextLogID {
			t.st.nextLogID = w.ID + 1
		}
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func (t *tx) GetSettings(_ context.Context, id int64) (core.Settings, error) {
	s, ok := t.st.settings[id]
	if !ok {
		return core.Settings{}, &storage.NotFoundError{Collection: storage.CollectionSettings, ID: id}
	}
	return s, nil
}

func (t *tx) FirstSettings(context.Context) (core.Settings, bool, error) {
	if len(t.st.settings) == 0 {
		return core.Settings{}, false, nil
	}
	ids := make([]int64, 0, len(t.st.settings))
	for id := range t.st.settings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return t.st.settings[ids[0]], true, nil
}

func (t *tx) AddSettings(_ context.Context, s core.Settings) (int64, error) {
	s.ID = t.st.nextSettingsID
	t.st.nextSettingsID++
	t.st.settings[s.ID] = s
	return s.ID, nil
}

func (t *tx) UpdateSettings(_ context.Context, id int64, patch storage.SettingsPatch) error {
	s, ok := t.st.settings[id]
	if !ok {
		return &storage.NotFoundError{Collection: storage.CollectionSettings, ID: id}
	}
	t.st.settings[id] = patch.Apply(s)
	return nil
}

func (t *tx) ClearSettings(context.Context) error {
	t.st.settings = make(map[int64]core.Settings)
	return nil
}

func (t *tx) CountSettings(context.Context) (int, error) {
	return len(t.st.settings), nil
}
