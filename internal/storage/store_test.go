package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/core"
	"ildang/internal/storage"
	"ildang/internal/storage/memory"
)

type recorder struct {
	mu   sync.Mutex
	sets []storage.ChangeSet
}

func (r *recorder) observe(cs storage.ChangeSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = append(r.sets, cs)
}

func (r *recorder) all() []storage.ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.ChangeSet(nil), r.sets...)
}

func frozenClock() func() time.Time {
	fixed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return fixed }
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s := storage.NewStore(memory.New(), storage.WithClock(frozenClock()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func work(date, location string, amount int64) core.WorkLog {
	return core.WorkLog{Date: core.MustParseDate(date), Location: location, Amount: amount}
}

func TestInitSettingsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.InitSettings(ctx))
	}
	err := s.View(ctx, func(tx storage.Tx) error {
		n, err := tx.CountSettings(ctx)
		assert.Equal(t, 1, n)
		return err
	})
	require.NoError(t, err)

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.Blank())
	assert.NotZero(t, settings.ID)
}

func TestSettingsCreatesMissingSingleton(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.NotZero(t, settings.ID)

	name := "홍길동"
	saved, err := s.SaveSettings(ctx, storage.SettingsPatch{UserName: &name})
	require.NoError(t, err)
	assert.Equal(t, settings.ID, saved.ID)
	assert.Equal(t, "홍길동", saved.UserName)

	again, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, again)
}

func TestClearAllRecreatesBlankSettings(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	name := "홍길동"
	_, err := s.SaveSettings(ctx, storage.SettingsPatch{UserName: &name})
	require.NoError(t, err)
	_, err = s.AddLog(ctx, work("2024-06-01", "A", 150000))
	require.NoError(t, err)

	rec := &recorder{}
	s.Observe(rec.observe)
	require.NoError(t, s.ClearAll(ctx))

	n, err := s.CountLogs(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.Blank())

	sets := rec.all()
	require.Len(t, sets, 1)
	assert.True(t, sets[0].AllLogs)
	assert.True(t, sets[0].Settings)
}

func TestAddLogAssignsIncreasingCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var last int64
	for i := 0; i < 5; i++ {
		w, err := s.AddLog(ctx, work("2024-06-01", "A", 1000))
		require.NoError(t, err)
		assert.Greater(t, w.CreatedAt, last)
		last = w.CreatedAt
	}

	latest, found, err := s.LatestLog(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, last, latest.CreatedAt)
}

func TestCreatedAtStaysAboveRestoredRecords(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

	restored := work("2024-06-01", "A", 1000)
	restored.CreatedAt = future
	_, err := s.BulkAddLogs(ctx, []core.WorkLog{restored})
	require.NoError(t, err)

	w, err := s.AddLog(ctx, work("2024-06-02", "B", 1000))
	require.NoError(t, err)
	assert.Greater(t, w.CreatedAt, future)
}

func TestValidationFailureDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	rec := &recorder{}
	s.Observe(rec.observe)

	_, err := s.AddLog(ctx, work("2024-06-01", "  ", 1000))
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "location", ve.Field)

	n, err := s.CountLogs(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.all())
	assert.Zero(t, s.Version())
}

func TestUpdateLogToDayOffNormalizes(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w, err := s.AddLog(ctx, work("2024-06-01", "A", 150000))
	require.NoError(t, err)

	dayOff := true
	updated, err := s.UpdateLog(ctx, w.ID, storage.LogPatch{IsDayOff: &dayOff})
	require.NoError(t, err)
	assert.True(t, updated.IsDayOff)
	assert.Equal(t, core.DayOffLocation, updated.Location)
	assert.Zero(t, updated.Amount)
	assert.Equal(t, w.CreatedAt, updated.CreatedAt)

	back := false
	_, err = s.UpdateLog(ctx, w.ID, storage.LogPatch{IsDayOff: &back})
	assert.ErrorIs(t, err, core.ErrReservedDayOff)
}

func TestUpdateLogTrimsText(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w, err := s.AddLog(ctx, work("2024-06-01", "B", 100))
	require.NoError(t, err)

	location, task, memo := " B ", "  철근 ", " 비 옴\n"
	updated, err := s.UpdateLog(ctx, w.ID, storage.LogPatch{Location: &location, Task: &task, Memo: &memo})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Location)
	assert.Equal(t, "철근", updated.Task)
	assert.Equal(t, "비 옴", updated.Memo)

	stored, err := s.GetLog(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestUpdateMissingLogReturnsNotFound(t *testing.T) {
	s := newStore(t)
	paid := true
	_, err := s.UpdateLog(context.Background(), 99, storage.LogPatch{IsPaid: &paid})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteLog(context.Background(), 99), storage.ErrNotFound)
}

func TestObserversSeeOneChangeSetPerCommit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	rec := &recorder{}
	cancel := s.Observe(rec.observe)

	w, err := s.AddLog(ctx, work("2024-06-01", "A", 150000))
	require.NoError(t, err)

	moved := core.MustParseDate("2024-07-02")
	_, err = s.UpdateLog(ctx, w.ID, storage.LogPatch{Date: &moved})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx storage.Tx) error {
		if _, err := tx.AddLog(ctx, work("2024-06-10", "B", 1)); err != nil {
			return err
		}
		_, err := tx.AddLog(ctx, work("2024-06-11", "B", 1))
		return err
	})
	require.NoError(t, err)

	// Read-only work inside Update publishes nothing.
	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.CountLogs(ctx)
		return err
	}))

	sets := rec.all()
	require.Len(t, sets, 3)
	assert.Equal(t, uint64(1), sets[0].Version)
	assert.Equal(t, uint64(3), sets[2].Version)
	assert.Equal(t, []string{"2024-06", "2024-07"}, sets[1].Months())
	assert.Len(t, sets[2].Dates, 2)
	assert.True(t, sets[1].TouchesDates(core.MustParseDate("2024-06-01"), core.MustParseDate("2024-06-01")))
	assert.False(t, sets[2].TouchesDates(core.MustParseDate("2024-07-01"), core.MustParseDate("2024-07-31")))
	assert.False(t, sets[2].Touches(storage.CollectionSettings))
	assert.Equal(t, uint64(3), s.Version())

	cancel()
	_, err = s.AddLog(ctx, work("2024-06-12", "C", 1))
	require.NoError(t, err)
	assert.Len(t, rec.all(), 3)
}

func TestFailedUpdateDoesNotNotify(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.AddLog(ctx, work("2024-06-01", "A", 1))
	require.NoError(t, err)

	rec := &recorder{}
	s.Observe(rec.observe)
	boom := errors.New("boom")
	err = s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.ClearLogs(ctx); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, rec.all())

	logs, err := s.AllLogs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestLogsBetweenWithInvertedRangeIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, err := s.AddLog(ctx, work("2024-06-15", "A", 1))
	require.NoError(t, err)

	logs, err := s.LogsBetween(ctx, core.MustParseDate("2024-06-30"), core.MustParseDate("2024-06-01"))
	require.NoError(t, err)
	assert.Empty(t, logs)

	logs, err = s.LogsBetween(ctx, core.MustParseDate("2024-06-15"), core.MustParseDate("2024-06-15"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestLogsBetweenWithOpenBound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, d := range []string{"2024-05-31", "2024-06-15", "2024-07-01"} {
		_, err := s.AddLog(ctx, work(d, "A", 1))
		require.NoError(t, err)
	}

	from, err := s.LogsBetween(ctx, core.MustParseDate("2024-06-01"), core.Date{})
	require.NoError(t, err)
	require.Len(t, from, 2)
	assert.Equal(t, "2024-06-15", from[0].Date.String())

	until, err := s.LogsBetween(ctx, core.Date{}, core.MustParseDate("2024-06-15"))
	require.NoError(t, err)
	require.Len(t, until, 2)
	assert.Equal(t, "2024-05-31", until[0].Date.String())

	all, err := s.LogsBetween(ctx, core.Date{}, core.Date{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStoreViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	err := s.View(ctx, func(tx storage.Tx) error {
		return tx.ClearSettings(ctx)
	})
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}
