package services

import (
	"context"
	"errors"
	"fmt"

	"ildang/internal/aggregate"
	"ildang/internal/backup"
	"ildang/internal/core"
	"ildang/internal/log"
	"ildang/internal/report"
	"ildang/internal/storage"
)

// StickyDefaults pre-fill the add form from the most recently created log.
type StickyDefaults struct {
	Location string `json:"location"`
	Task     string `json:"task"`
	Amount   int64  `json:"amount"`
}

// MonthOverview is the home screen of one month.
type MonthOverview struct {
	Month    string                `json:"month"`
	Logs     []core.WorkLog        `json:"logs"`
	Status   aggregate.PaidStatus  `json:"status"`
	Summary  aggregate.MonthlyData `json:"summary"`
	Calendar aggregate.Calendar    `json:"calendar"`
}

// WorkLogService runs the add, edit, toggle, delete, settings and clear flows.
// Every input is validated before anything is written.
type WorkLogService struct {
	store     *storage.Store
	logger    *log.Logger
	chunkSize int
}

// Option configures a WorkLogService.
type Option func(*WorkLogService)

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(s *WorkLogService) { s.logger = l.WithComponent(log.ComponentWorkLog) }
}

// WithRestoreChunkSize bounds bulk inserts during restore.
func WithRestoreChunkSize(n int) Option {
	return func(s *WorkLogService) { s.chunkSize = n }
}

func NewWorkLogService(store *storage.Store, opts ...Option) *WorkLogService {
	s := &WorkLogService{
		store:     store,
		logger:    log.Default(log.ComponentWorkLog),
		chunkSize: backup.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *WorkLogService) Store() *storage.Store { return s.store }

// fail logs store-contract violations at error level and returns err unchanged.
func (s *WorkLogService) fail(ctx context.Context, op string, err error, fields log.LogFields) error {
	if err == nil {
		return nil
	}
	if fields == nil {
		fields = log.NewFields()
	}
	fields = fields.WithOperation(op).WithError(err)

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		s.logger.DebugContext(ctx, "Rejected invalid work log", fields.ToSlice()...)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrConflict):
		s.logger.ErrorContext(ctx, "Store contract violation", fields.ToSlice()...)
	case errors.Is(err, context.Canceled):
	default:
		s.logger.ErrorContext(ctx, "Work log operation failed", fields.ToSlice()...)
	}
	return err
}

// AddLog validates and stores a work entry.
func (s *WorkLogService) AddLog(ctx context.Context, w core.WorkLog) (core.WorkLog, error) {
	w.ID = 0
	w.CreatedAt = 0
	w = w.Normalize()
	if err := w.Validate(); err != nil {
		return core.WorkLog{}, s.fail(ctx, log.OpCreate, err, log.NewFields().WithWorkLog(w))
	}
	stored, err := s.store.AddLog(ctx, w)
	if err != nil {
		return core.WorkLog{}, s.fail(ctx, log.OpCreate, fmt.Errorf("add log: %w", err), log.NewFields().WithWorkLog(w))
	}
	s.logger.InfoContext(ctx, "Work log added", log.NewFields().WithWorkLog(stored).ToSlice()...)
	return stored, nil
}

// AddDayOff stores a day-off entry for date.
func (s *WorkLogService) AddDayOff(ctx context.Context, date core.Date, memo string) (core.WorkLog, error) {
	return s.AddLog(ctx, core.NewDayOff(date, memo))
}

// EditLog applies patch to log id.
func (s *WorkLogService) EditLog(ctx context.Context, id int64, patch storage.LogPatch) (core.WorkLog, error) {
	if patch.Empty() {
		w, err := s.store.GetLog(ctx, id)
		return w, s.fail(ctx, log.OpUpdate, err, log.NewFields())
	}
	updated, err := s.store.UpdateLog(ctx, id, patch)
	if err != nil {
		return core.WorkLog{}, s.fail(ctx, log.OpUpdate, fmt.Errorf("edit log %d: %w", id, err), nil)
	}
	s.logger.InfoContext(ctx, "Work log updated", log.NewFields().WithWorkLog(updated).ToSlice()...)
	return updated, nil
}

// TogglePaid flips the paid flag of log id in a single transaction.
func (s *WorkLogService) TogglePaid(ctx context.Context, id int64) (core.WorkLog, error) {
	var out core.WorkLog
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		w, err := tx.GetLog(ctx, id)
		if err != nil {
			return err
		}
		paid := !w.IsPaid
		if err := tx.UpdateLog(ctx, id, storage.LogPatch{IsPaid: &paid}); err != nil {
			return err
		}
		out, err = tx.GetLog(ctx, id)
		return err
	})
	if err != nil {
		return core.WorkLog{}, s.fail(ctx, log.OpTogglePaid, fmt.Errorf("toggle paid %d: %w", id, err), nil)
	}
	return out, nil
}

// DeleteLog removes log id.
func (s *WorkLogService) DeleteLog(ctx context.Context, id int64) error {
	if err := s.store.DeleteLog(ctx, id); err != nil {
		return s.fail(ctx, log.OpDelete, fmt.Errorf("delete log %d: %w", id, err), nil)
	}
	s.logger.InfoContext(ctx, "Work log deleted", log.FieldLogID, id)
	return nil
}

// GetLog returns log id.
func (s *WorkLogService) GetLog(ctx context.Context, id int64) (core.WorkLog, error) {
	w, err := s.store.GetLog(ctx, id)
	if err != nil {
		return core.WorkLog{}, fmt.Errorf("get log %d: %w", id, err)
	}
	return w, nil
}

// Logs lists logs dated within [start, end]. Zero bounds are open.
func (s *WorkLogService) Logs(ctx context.Context, start, end core.Date) ([]core.WorkLog, error) {
	r := storage.AllByDate()
	if !start.IsZero() || !end.IsZero() {
		r = storage.DateRange(start, end)
	}
	logs, err := s.store.QueryLogs(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return logs, nil
}

// StickyDefaults returns the location, task and amount of the last created log.
// The boolean is false when there are no logs yet.
func (s *WorkLogService) StickyDefaults(ctx context.Context) (StickyDefaults, bool, error) {
	var (
		latest core.WorkLog
		found  bool
	)
	err := s.store.View(ctx, func(tx storage.Tx) error {
		r := storage.Range{Field: storage.FieldCreatedAt, Reverse: true}
		logs, err := tx.QueryLogs(ctx, r)
		if err != nil {
			return err
		}
		for _, w := range logs {
			if !w.IsDayOff {
				latest, found = w, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return StickyDefaults{}, false, fmt.Errorf("sticky defaults: %w", err)
	}
	if !found {
		return StickyDefaults{}, false, nil
	}
	return StickyDefaults{Location: latest.Location, Task: latest.Task, Amount: latest.Amount}, true, nil
}

// Settings returns the settings singleton.
func (s *WorkLogService) Settings(ctx context.Context) (core.Settings, error) {
	return s.store.Settings(ctx)
}

// SaveSettings updates the payee profile.
func (s *WorkLogService) SaveSettings(ctx context.Context, patch storage.SettingsPatch) (core.Settings, error) {
	saved, err := s.store.SaveSettings(ctx, patch)
	if err != nil {
		return core.Settings{}, s.fail(ctx, log.OpUpdate, err, nil)
	}
	s.logger.InfoContext(ctx, "Settings saved")
	return saved, nil
}

// ClearAll deletes every log and resets settings.
func (s *WorkLogService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return s.fail(ctx, log.OpClear, err, nil)
	}
	s.logger.WarnContext(ctx, "All records cleared")
	return nil
}

// Report builds the claim for [start, end] from one consistent read.
func (s *WorkLogService) Report(ctx context.Context, start, end core.Date) (report.ReportView, error) {
	var (
		logs     []core.WorkLog
		settings core.Settings
	)
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		r := storage.AllByDate()
		if !start.IsZero() || !end.IsZero() {
			r = storage.DateRange(start, end)
		}
		if logs, err = tx.QueryLogs(ctx, r); err != nil {
			return err
		}
		settings, _, err = tx.FirstSettings(ctx)
		return err
	})
	if err != nil {
		return report.ReportView{}, s.fail(ctx, log.OpExport, fmt.Errorf("read report data: %w", err), log.NewFields().WithRange(start, end))
	}
	return report.FromLogs(start, end, logs, settings)
}

// MonthOverview returns the logs, paid status and calendar of month (YYYY-MM).
func (s *WorkLogService) MonthOverview(ctx context.Context, month string) (MonthOverview, error) {
	first, last, err := core.MonthBounds(month)
	if err != nil {
		return MonthOverview{}, &core.ValidationError{Field: "month", Err: err}
	}
	logs, err := s.store.LogsBetween(ctx, first, last)
	if err != nil {
		return MonthOverview{}, fmt.Errorf("month overview: %w", err)
	}
	month = first.MonthKey()
	cal, err := aggregate.BuildCalendar(month, logs)
	if err != nil {
		return MonthOverview{}, err
	}
	return MonthOverview{
		Month:    month,
		Logs:     logs,
		Status:   aggregate.PaymentStatus(logs),
		Summary:  aggregate.Summarize(month, logs),
		Calendar: cal,
	}, nil
}

// Backup takes a snapshot of every record.
func (s *WorkLogService) Backup(ctx context.Context) (backup.Snapshot, error) {
	snap, err := backup.Take(ctx, s.store)
	if err != nil {
		return backup.Snapshot{}, s.fail(ctx, log.OpBackup, err, nil)
	}
	s.logger.InfoContext(ctx, "Backup taken", log.FieldCount, len(snap.Logs))
	return snap, nil
}

// Restore replaces every record with snap.
func (s *WorkLogService) Restore(ctx context.Context, snap backup.Snapshot) (int, error) {
	n, err := backup.Restore(ctx, s.store, snap, backup.RestoreOptions{ChunkSize: s.chunkSize})
	if err != nil {
		if errors.Is(err, backup.ErrInvalidFormat) {
			s.logger.WarnContext(ctx, "Rejected backup", log.FieldError, err)
			return 0, err
		}
		return 0, s.fail(ctx, log.OpRestore, err, nil)
	}
	s.logger.InfoContext(ctx, "Backup restored", log.FieldCount, n)
	return n, nil
}
