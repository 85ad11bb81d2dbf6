package backup

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/core"
	"ildang/internal/storage"
	"ildang/internal/storage/memory"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s := storage.NewStore(memory.New())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *storage.Store) {
	t.Helper()
	ctx := context.Background()
	for _, w := range []core.WorkLog{
		{Date: core.MustParseDate("2024-06-01"), Location: "A", Task: "철근", Amount: 150000, IsPaid: true},
		{Date: core.MustParseDate("2024-06-02"), Location: "B", Amount: 120000, Memo: "야간"},
		core.NewDayOff(core.MustParseDate("2024-06-03"), "비"),
	} {
		_, err := s.AddLog(ctx, w)
		require.NoError(t, err)
	}
	name, bank, account := "홍길동", "농협", "123-45"
	_, err := s.SaveSettings(ctx, storage.SettingsPatch{UserName: &name, BankName: &bank, BankAccount: &account})
	require.NoError(t, err)
}

// content drops store-assigned keys so states can be compared across stores.
func content(t *testing.T, s *storage.Store) ([]core.WorkLog, core.Settings) {
	t.Helper()
	logs, err := s.AllLogs(context.Background())
	require.NoError(t, err)
	for i := range logs {
		logs[i].ID = 0
	}
	settings, err := s.Settings(context.Background())
	require.NoError(t, err)
	settings.ID = 0
	return logs, settings
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	seed(t, src)

	snap, err := Take(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, snap.Version)
	assert.Len(t, snap.Logs, 3)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	dst := newStore(t)
	_, err = dst.AddLog(ctx, core.WorkLog{Date: core.MustParseDate("2023-01-01"), Location: "old", Amount: 1})
	require.NoError(t, err)

	n, err := Restore(ctx, dst, decoded, RestoreOptions{ChunkSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	wantLogs, wantSettings := content(t, src)
	gotLogs, gotSettings := content(t, dst)
	assert.Equal(t, wantLogs, gotLogs)
	assert.Equal(t, wantSettings, gotSettings)
}

func TestRoundTripAfterEdit(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	seed(t, src)

	logs, err := src.AllLogs(ctx)
	require.NoError(t, err)
	location, memo := " A ", " 오후만 "
	_, err = src.UpdateLog(ctx, logs[1].ID, storage.LogPatch{Location: &location, Memo: &memo})
	require.NoError(t, err)

	snap, err := Take(ctx, src)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	dst := newStore(t)
	_, err = Restore(ctx, dst, decoded, RestoreOptions{})
	require.NoError(t, err)

	wantLogs, wantSettings := content(t, src)
	gotLogs, gotSettings := content(t, dst)
	assert.Equal(t, wantLogs, gotLogs)
	assert.Equal(t, wantSettings, gotSettings)
	assert.Equal(t, "A", gotLogs[1].Location)
}

func TestRestoreAssignsFreshKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	existing, err := s.AddLog(ctx, core.WorkLog{Date: core.MustParseDate("2024-06-01"), Location: "A", Amount: 1})
	require.NoError(t, err)

	snap := Snapshot{
		Version: FormatVersion,
		Logs: []core.WorkLog{
			{ID: existing.ID, Date: core.MustParseDate("2024-06-05"), Location: "B", Amount: 2, CreatedAt: 10},
		},
		Settings: core.Settings{ID: 99, UserName: "x"},
	}
	_, err = Restore(ctx, s, snap, RestoreOptions{})
	require.NoError(t, err)

	logs, err := s.AllLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Greater(t, logs[0].ID, existing.ID)
	assert.Equal(t, int64(10), logs[0].CreatedAt)

	settings, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, int64(99), settings.ID)
	assert.Equal(t, "x", settings.UserName)
}

func TestRestoreIsOneCommit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seed(t, s)
	snap, err := Take(ctx, s)
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		sets []storage.ChangeSet
	)
	s.Observe(func(cs storage.ChangeSet) {
		mu.Lock()
		defer mu.Unlock()
		sets = append(sets, cs)
	})

	_, err = Restore(ctx, s, snap, RestoreOptions{ChunkSize: 1})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sets, 1)
	assert.True(t, sets[0].AllLogs)
	assert.True(t, sets[0].Settings)
}

func TestRestoreCancelledLeavesStoreUnchanged(t *testing.T) {
	s := newStore(t)
	seed(t, s)
	before, beforeSettings := content(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := Snapshot{Version: FormatVersion, Logs: []core.WorkLog{}, Settings: core.Settings{}}
	_, err := Restore(ctx, s, snap, RestoreOptions{})
	require.Error(t, err)

	after, afterSettings := content(t, s)
	assert.Equal(t, before, after)
	assert.Equal(t, beforeSettings, afterSettings)
}

func TestRestoreRejectsInvalidLogsBeforeClearing(t *testing.T) {
	s := newStore(t)
	seed(t, s)

	snap := Snapshot{
		Version:  FormatVersion,
		Logs:     []core.WorkLog{{Date: core.MustParseDate("2024-06-01"), Location: "A", Amount: -5}},
		Settings: core.Settings{},
	}
	_, err := Restore(context.Background(), s, snap, RestoreOptions{})
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.ErrorIs(t, err, core.ErrNegativeAmount)

	n, err := s.CountLogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"version":1,`},
		{"missing version", `{"logs":[],"settings":{}}`},
		{"unknown version", `{"version":2,"logs":[],"settings":{}}`},
		{"missing logs", `{"version":1,"settings":{}}`},
		{"null logs", `{"version":1,"logs":null,"settings":{}}`},
		{"missing settings", `{"version":1,"logs":[]}`},
		{"bad date", `{"version":1,"logs":[{"date":"2024-13-01","location":"A","amount":1}],"settings":{}}`},
		{"blank location", `{"version":1,"logs":[{"date":"2024-06-01","location":"","amount":1}],"settings":{}}`},
		{"bad timestamp", `{"version":1,"timestamp":"yesterday","logs":[],"settings":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body))
			var fe *InvalidFormatError
			require.ErrorAs(t, err, &fe)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestDecodeOriginalFile(t *testing.T) {
	body := `{
  "version": 1,
  "timestamp": "2024-06-30T09:15:00.000Z",
  "logs": [
    {"id": 3, "date": "2024-06-01", "location": "A", "task": "", "amount": 150000, "isPaid": false, "createdAt": 1717200000000},
    {"id": 4, "date": "2024-06-02", "location": "휴무", "task": "", "amount": 0, "isPaid": false, "isDayOff": true, "memo": "비", "createdAt": 1717200000001},
    {"id": 5, "date": "2024-06-03", "location": "휴무", "amount": 0, "isPaid": false, "createdAt": 1717200000002},
    {"id": 6, "date": "2024-06-04", "location": "B", "amount": 120000, "isPaid": true, "memo": "` + strings.Repeat("메", 600) + `", "createdAt": 1717200000003}
  ],
  "settings": {"id": 1, "userName": "홍길동", "bankName": "", "bankAccount": "", "accountHolder": ""}
}`
	snap, err := Decode(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 9, 15, 0, 0, time.UTC), snap.Timestamp.UTC())
	require.Len(t, snap.Logs, 4)
	assert.True(t, snap.Logs[1].IsDayOff)
	assert.Equal(t, "홍길동", snap.Settings.UserName)

	s := newStore(t)
	n, err := Restore(context.Background(), s, snap, RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	logs, _ := content(t, s)
	require.Len(t, logs, 4)
	assert.True(t, logs[2].IsDayOff, "unflagged day off at 휴무 becomes a day off")
	assert.Equal(t, 600, len([]rune(logs[3].Memo)))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "일당노트_백업_2024-06-30.json", FileName(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)))
}
