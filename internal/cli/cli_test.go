package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/config"
	"ildang/internal/core"
	"ildang/internal/export"
	"ildang/internal/log"
	"ildang/internal/report"
	"ildang/internal/services"
	"ildang/internal/storage"
	"ildang/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

func newTestApp(t *testing.T) *App {
	t.Helper()
	store := storage.NewStore(memory.New())
	require.NoError(t, store.InitSettings(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return &App{
		Config:  config.Load(),
		Logger:  log.New(log.Config{Format: "text", Output: io.Discard}),
		Service: services.NewWorkLogService(store),
	}
}

func newTestEnv(app *App, prompts PromptKit) env {
	return env{
		open:    func(context.Context, bool) (*App, error) { return app, nil },
		prompts: prompts,
		now:     func() time.Time { return fixedNow },
	}
}

func execute(t *testing.T, e env, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(e)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return ansiEscape.ReplaceAllString(buf.String(), ""), err
}

func allLogs(t *testing.T, app *App) []core.WorkLog {
	t.Helper()
	logs, err := app.Service.Logs(context.Background(), core.Date{}, core.Date{})
	require.NoError(t, err)
	return logs
}

func TestAdd_FillsBlankFieldsFromLastLog(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})

	out, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--task", "철근", "--amount", "15만")
	require.NoError(t, err)
	assert.Contains(t, out, "150,000원")

	_, err = execute(t, e, "add", "--memo", "비 옴")
	require.NoError(t, err)

	logs := allLogs(t, app)
	require.Len(t, logs, 2)
	second := logs[1]
	assert.Equal(t, "2024-06-15", second.Date.String())
	assert.Equal(t, "현장A", second.Location)
	assert.Equal(t, "철근", second.Task)
	assert.Equal(t, int64(150000), second.Amount)
	assert.Equal(t, "비 옴", second.Memo)
}

func TestAdd_PromptsForMissingLocation(t *testing.T) {
	app := newTestApp(t)
	var asked string
	e := newTestEnv(app, PromptKit{
		Prompt: func(p string) (string, error) {
			asked = p
			return "현장B", nil
		},
		Confirm: AlwaysYes(),
	})

	_, err := execute(t, e, "add", "--amount", "120,000원")
	require.NoError(t, err)
	assert.NotEmpty(t, asked)

	logs := allLogs(t, app)
	require.Len(t, logs, 1)
	assert.Equal(t, "현장B", logs[0].Location)
	assert.Equal(t, int64(120000), logs[0].Amount)
}

func TestAdd_RejectsMissingLocationWithoutPrompt(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: refuse})

	_, err := execute(t, e, "add", "--amount", "100000")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "location", ve.Field)
	assert.Empty(t, allLogs(t, app))
}

func TestAdd_RejectsBadAmount(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})

	_, err := execute(t, e, "add", "--location", "현장A", "--amount", "십만")
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)
}

func TestDayOffAndList(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000", "--paid")
	require.NoError(t, err)
	_, err = execute(t, e, "add", "--date", "2024-06-04", "--location", "현장B", "--amount", "100000")
	require.NoError(t, err)
	_, err = execute(t, e, "dayoff", "--date", "2024-06-05")
	require.NoError(t, err)
	_, err = execute(t, e, "add", "--date", "2024-07-01", "--location", "현장C", "--amount", "90000")
	require.NoError(t, err)

	logs := allLogs(t, app)
	require.Len(t, logs, 4)
	assert.True(t, logs[2].IsDayOff)
	assert.Equal(t, core.DayOffLocation, logs[2].Location)

	out, err := execute(t, e, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "현장A")
	assert.Contains(t, out, "현장B")
	assert.Contains(t, out, core.DayOffLocation)
	assert.NotContains(t, out, "현장C")
	assert.Contains(t, out, "250,000원")
	assert.Contains(t, out, "미지급 100,000원")

	out, err = execute(t, e, "list", "--start", "2024-07-01")
	require.NoError(t, err)
	assert.Contains(t, out, "현장C")
	assert.NotContains(t, out, "현장A")

	out, err = execute(t, e, "list", "--month", "2023-01")
	require.NoError(t, err)
	assert.Contains(t, out, "기록이 없습니다.")
}

func TestEditAndPaid(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)
	id := allLogs(t, app)[0].ID

	_, err = execute(t, e, "edit", "#1", "--amount", "20만", "--task", "타설")
	require.NoError(t, err)
	w, err := app.Service.GetLog(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), w.Amount)
	assert.Equal(t, "타설", w.Task)
	assert.Equal(t, "현장A", w.Location)
	assert.False(t, w.IsPaid)

	_, err = execute(t, e, "edit", "1")
	assert.Error(t, err)

	out, err := execute(t, e, "paid", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "지급")
	w, err = app.Service.GetLog(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, w.IsPaid)

	_, err = execute(t, e, "paid", "99")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = execute(t, e, "paid", "x")
	assert.Error(t, err)
}

func TestRemove_Confirmation(t *testing.T) {
	app := newTestApp(t)
	declined := newTestEnv(app, PromptKit{Confirm: func(string) (bool, error) { return false, nil }})

	_, err := execute(t, declined, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)

	out, err := execute(t, declined, "remove", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "취소되었습니다.")
	assert.Len(t, allLogs(t, app), 1)

	_, err = execute(t, declined, "remove", "1", "--yes")
	require.NoError(t, err)
	assert.Empty(t, allLogs(t, app))
}

func TestClear_RequiresTerminalOrYes(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: refuse})

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)

	_, err = execute(t, e, "clear")
	assert.ErrorIs(t, err, ErrNotInteractive)
	assert.Len(t, allLogs(t, app), 1)

	_, err = execute(t, e, "clear", "--yes")
	require.NoError(t, err)
	assert.Empty(t, allLogs(t, app))
}

func TestSettings(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})

	out, err := execute(t, e, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "(없음)")

	_, err = execute(t, e, "settings", "set", "--name", "홍길동", "--bank", "국민은행")
	require.NoError(t, err)
	_, err = execute(t, e, "settings", "set", "--account", "123-45")
	require.NoError(t, err)

	s, err := app.Service.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "홍길동", s.UserName)
	assert.Equal(t, "국민은행", s.BankName)
	assert.Equal(t, "123-45", s.BankAccount)

	_, err = execute(t, e, "settings", "set")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})
	dir := t.TempDir()

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)

	out, err := execute(t, e, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "노임 청구서")
	assert.Contains(t, out, "현장A : 1일 / 150,000원")

	out, err = execute(t, e, "report", "--no-amount", "--no-details")
	require.NoError(t, err)
	assert.NotContains(t, out, "150,000원")

	path := filepath.Join(dir, "claim.xlsx")
	out, err = execute(t, e, "report", "--format", "xlsx", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = execute(t, e, "report", "--format", "pdf", "--out", filepath.Join(dir, "claim.pdf"))
	assert.ErrorIs(t, err, export.ErrNoRenderer)

	_, err = execute(t, e, "report", "--month", "2023-01", "--format", "xlsx", "--out", filepath.Join(dir, "empty.xlsx"))
	assert.ErrorIs(t, err, export.ErrEmptyReport)

	_, err = execute(t, e, "report", "--format", "png")
	assert.Error(t, err)
}

func TestReport_RendererOutput(t *testing.T) {
	app := newTestApp(t)
	app.Renderer = export.RendererFunc(func(context.Context, report.ReportView) ([]byte, error) {
		return []byte("%PDF-1.4"), nil
	})
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "claim.pdf")
	_, err = execute(t, e, "report", "--format", "pdf", "--out", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestBackupRestore(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})
	path := filepath.Join(t.TempDir(), "backup.json")

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)
	_, err = execute(t, e, "add", "--date", "2024-06-04", "--location", "현장B", "--amount", "100000")
	require.NoError(t, err)
	_, err = execute(t, e, "settings", "set", "--name", "홍길동")
	require.NoError(t, err)

	_, err = execute(t, e, "backup", "--out", path)
	require.NoError(t, err)

	_, err = execute(t, e, "clear", "--yes")
	require.NoError(t, err)
	require.Empty(t, allLogs(t, app))

	out, err := execute(t, e, "restore", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2건")

	logs := allLogs(t, app)
	require.Len(t, logs, 2)
	assert.Equal(t, "현장A", logs[0].Location)
	s, err := app.Service.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "홍길동", s.UserName)
}

func TestRestore_InvalidFileLeavesRecords(t *testing.T) {
	app := newTestApp(t)
	e := newTestEnv(app, PromptKit{Confirm: AlwaysYes()})
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"logs": "nope"}`), 0o644))

	_, err := execute(t, e, "add", "--date", "2024-06-03", "--location", "현장A", "--amount", "150000")
	require.NoError(t, err)

	_, err = execute(t, e, "restore", path)
	assert.Error(t, err)
	assert.Len(t, allLogs(t, app), 1)

	_, err = execute(t, e, "restore", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	today := core.MustParseDate("2024-06-15")
	tests := []struct {
		name               string
		month, start, end  string
		wantStart, wantEnd string
		wantErr            bool
	}{
		{name: "default month", wantStart: "2024-06-01", wantEnd: "2024-06-30"},
		{name: "month", month: "2024-02", wantStart: "2024-02-01", wantEnd: "2024-02-29"},
		{name: "start only", start: "2024-05-10", wantStart: "2024-05-10"},
		{name: "both", start: "2024-05-10", end: "2024-05-20", wantStart: "2024-05-10", wantEnd: "2024-05-20"},
		{name: "bad month", month: "2024-13", wantErr: true},
		{name: "bad end", end: "20.05.2024", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(tt.month, tt.start, tt.end, today)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, dateString(start))
			assert.Equal(t, tt.wantEnd, dateString(end))
		})
	}
}

func dateString(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2024-06-30")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute(t, newTestEnv(nil, PromptKit{}), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "abc123")
}

func TestOpenError(t *testing.T) {
	e := env{
		open:    func(context.Context, bool) (*App, error) { return nil, errors.New("boom") },
		prompts: PromptKit{},
		now:     func() time.Time { return fixedNow },
	}
	_, err := execute(t, e, "list")
	assert.EqualError(t, err, "boom")
}

func TestOpenApp_MemoryBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", RestoreChunkSize: 10}
	logger := log.New(log.Config{Format: "text", Output: io.Discard})

	app, err := OpenApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, app.Renderer)
	assert.Nil(t, app.relay)

	_, err = app.Service.AddLog(context.Background(), core.WorkLog{
		Date: core.MustParseDate("2024-06-03"), Location: "현장A", Amount: 150000,
	})
	require.NoError(t, err)
	require.NoError(t, app.Close(context.Background()))
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, app, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
