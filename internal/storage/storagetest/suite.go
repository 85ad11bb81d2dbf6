// Package storagetest holds the behaviour every storage.Backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/core"
	"ildang/internal/storage"
)

// Factory returns a fresh, empty backend. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Backend

// Run exercises a backend against the shared contract.
func Run(t *testing.T, newBackend Factory) {
	t.Run("crud", func(t *testing.T) { testCRUD(t, newBackend(t)) })
	t.Run("not found", func(t *testing.T) { testNotFound(t, newBackend(t)) })
	t.Run("range queries", func(t *testing.T) { testRanges(t, newBackend(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, newBackend(t)) })
	t.Run("bulk add conflict", func(t *testing.T) { testBulkConflict(t, newBackend(t)) })
	t.Run("keys are not reused", func(t *testing.T) { testKeysNotReused(t, newBackend(t)) })
	t.Run("settings", func(t *testing.T) { testSettings(t, newBackend(t)) })
	t.Run("view is read-only", func(t *testing.T) { testReadOnly(t, newBackend(t)) })
	t.Run("latest log", func(t *testing.T) { testLatest(t, newBackend(t)) })
}

func workLog(date, location string, amount int64, createdAt int64) core.WorkLog {
	return core.WorkLog{
		Date:      core.MustParseDate(date),
		Location:  location,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

func seed(t *testing.T, b storage.Backend, logs ...core.WorkLog) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, b.Update(context.Background(), func(tx storage.Tx) error {
		for _, w := range logs {
			id, err := tx.AddLog(context.Background(), w)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	}))
	return ids
}

func query(t *testing.T, b storage.Backend, r storage.Range) []core.WorkLog {
	t.Helper()
	var out []core.WorkLog
	require.NoError(t, b.View(context.Background(), func(tx storage.Tx) error {
		var err error
		out, err = tx.QueryLogs(context.Background(), r)
		return err
	}))
	return out
}

func ids(logs []core.WorkLog) []int64 {
	out := make([]int64, 0, len(logs))
	for _, w := range logs {
		out = append(out, w.ID)
	}
	return out
}

func testCRUD(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	in := workLog("2024-06-01", "A", 150000, 100)
	in.Task = "형틀"
	in.Memo = "야간"
	id := seed(t, b, in)[0]
	assert.NotZero(t, id)

	var got core.WorkLog
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		var err error
		got, err = tx.GetLog(ctx, id)
		return err
	}))
	in.ID = id
	assert.Equal(t, in, got)

	paid := true
	amount := int64(160000)
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateLog(ctx, id, storage.LogPatch{IsPaid: &paid, Amount: &amount})
	}))
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		var err error
		got, err = tx.GetLog(ctx, id)
		return err
	}))
	assert.True(t, got.IsPaid)
	assert.Equal(t, int64(160000), got.Amount)
	assert.Equal(t, "A", got.Location)
	assert.Equal(t, int64(100), got.CreatedAt)

	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		return tx.DeleteLog(ctx, id)
	}))
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		n, err := tx.CountLogs(ctx)
		assert.Zero(t, n)
		return err
	}))
}

func testNotFound(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	paid := true

	err := b.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateLog(ctx, 42, storage.LogPatch{IsPaid: &paid})
	})
	var nf *storage.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(42), nf.ID)
	assert.Equal(t, storage.CollectionLogs, nf.Collection)

	err = b.Update(ctx, func(tx storage.Tx) error { return tx.DeleteLog(ctx, 42) })
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = b.View(ctx, func(tx storage.Tx) error {
		_, err := tx.GetLog(ctx, 42)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = b.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateSettings(ctx, 42, storage.SettingsPatch{})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testRanges(t *testing.T, b storage.Backend) {
	all := seed(t, b,
		workLog("2024-06-03", "B", 100, 1),
		workLog("2024-06-01", "A", 100, 2),
		workLog("2024-06-02", "A", 100, 3),
		workLog("2024-06-02", "C", 100, 4),
		workLog("2024-07-01", "A", 100, 5),
	)

	byDate := query(t, b, storage.AllByDate())
	assert.Equal(t, []int64{all[1], all[2], all[3], all[0], all[4]}, ids(byDate))

	june := query(t, b, storage.DateRange(core.MustParseDate("2024-06-02"), core.MustParseDate("2024-06-03")))
	assert.Equal(t, []int64{all[2], all[3], all[0]}, ids(june))

	exclusive := query(t, b, storage.Range{
		Field: storage.FieldDate, Lower: "2024-06-01", Upper: "2024-06-03",
		ExcludeLower: true, ExcludeUpper: true,
	})
	assert.Equal(t, []int64{all[2], all[3]}, ids(exclusive))

	reversed := query(t, b, storage.Range{Field: storage.FieldDate, Reverse: true, Limit: 2})
	assert.Equal(t, []int64{all[4], all[0]}, ids(reversed))

	from := query(t, b, storage.DateRange(core.MustParseDate("2024-06-03"), core.Date{}))
	assert.Equal(t, []int64{all[0], all[4]}, ids(from))

	until := query(t, b, storage.DateRange(core.Date{}, core.MustParseDate("2024-06-01")))
	assert.Equal(t, []int64{all[1]}, ids(until))

	inverted := query(t, b, storage.DateRange(core.MustParseDate("2024-06-30"), core.MustParseDate("2024-06-01")))
	assert.Empty(t, inverted)

	atA := query(t, b, storage.Equal(storage.FieldLocation, "A"))
	assert.Equal(t, []int64{all[1], all[2], all[4]}, ids(atA))

	recent := query(t, b, storage.Range{Field: storage.FieldCreatedAt, Lower: int64(4)})
	assert.Equal(t, []int64{all[3], all[4]}, ids(recent))

	unpaid := query(t, b, storage.Equal(storage.FieldIsPaid, false))
	assert.Len(t, unpaid, 5)

	err := b.View(context.Background(), func(tx storage.Tx) error {
		_, err := tx.QueryLogs(context.Background(), storage.Range{Field: "amount"})
		return err
	})
	assert.ErrorIs(t, err, storage.ErrInvalidRange)

	err = b.View(context.Background(), func(tx storage.Tx) error {
		_, err := tx.QueryLogs(context.Background(), storage.Range{Field: storage.FieldDate, Lower: 3})
		return err
	})
	assert.ErrorIs(t, err, storage.ErrInvalidRange)
}

func testRollback(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	seed(t, b, workLog("2024-06-01", "A", 100, 1))

	boom := errors.New("boom")
	err := b.Update(ctx, func(tx storage.Tx) error {
		if err := tx.ClearLogs(ctx); err != nil {
			return err
		}
		if _, err := tx.AddSettings(ctx, core.Settings{UserName: "x"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Len(t, query(t, b, storage.AllByDate()), 1)
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		n, err := tx.CountSettings(ctx)
		assert.Zero(t, n)
		return err
	}))
}

func testBulkConflict(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	existing := seed(t, b, workLog("2024-06-01", "A", 100, 1))[0]

	dup := workLog("2024-06-02", "B", 100, 2)
	dup.ID = existing
	err := b.Update(ctx, func(tx storage.Tx) error {
		_, err := tx.BulkAddLogs(ctx, []core.WorkLog{workLog("2024-06-03", "C", 100, 3), dup})
		return err
	})
	var conflict *storage.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, existing, conflict.ID)
	assert.Len(t, query(t, b, storage.AllByDate()), 1)

	explicit := workLog("2024-06-04", "D", 100, 4)
	explicit.ID = 100
	var got []int64
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		var err error
		got, err = tx.BulkAddLogs(ctx, []core.WorkLog{explicit, workLog("2024-06-05", "E", 100, 5)})
		return err
	}))
	require.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0])
	assert.Greater(t, got[1], int64(100))
}

func testKeysNotReused(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	first := seed(t, b, workLog("2024-06-01", "A", 100, 1), workLog("2024-06-02", "A", 100, 2))
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error { return tx.ClearLogs(ctx) }))
	next := seed(t, b, workLog("2024-06-03", "A", 100, 3))
	assert.Greater(t, next[0], first[1])
}

func testSettings(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		_, found, err := tx.FirstSettings(ctx)
		assert.False(t, found)
		return err
	}))

	var id int64
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		var err error
		id, err = tx.AddSettings(ctx, core.Settings{UserName: "홍길동"})
		return err
	}))

	bank := "농협"
	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error {
		return tx.UpdateSettings(ctx, id, storage.SettingsPatch{BankName: &bank})
	}))

	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		s, found, err := tx.FirstSettings(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, core.Settings{ID: id, UserName: "홍길동", BankName: "농협"}, s)
		n, err := tx.CountSettings(ctx)
		assert.Equal(t, 1, n)
		return err
	}))

	require.NoError(t, b.Update(ctx, func(tx storage.Tx) error { return tx.ClearSettings(ctx) }))
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		n, err := tx.CountSettings(ctx)
		assert.Zero(t, n)
		return err
	}))
}

func testReadOnly(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	err := b.View(ctx, func(tx storage.Tx) error {
		_, err := tx.AddLog(ctx, workLog("2024-06-01", "A", 1, 1))
		return err
	})
	assert.ErrorIs(t, err, storage.ErrReadOnly)
	assert.Empty(t, query(t, b, storage.AllByDate()))
}

func testLatest(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		_, found, err := tx.LatestLog(ctx)
		assert.False(t, found)
		return err
	}))

	seed(t, b,
		workLog("2024-06-05", "A", 100, 10),
		workLog("2024-06-01", "B", 200, 30),
		workLog("2024-06-09", "C", 300, 20),
	)
	require.NoError(t, b.View(ctx, func(tx storage.Tx) error {
		w, found, err := tx.LatestLog(ctx)
		assert.True(t, found)
		assert.Equal(t, "B", w.Location)
		return err
	}))
}
