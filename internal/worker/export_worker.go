package worker

import (
	"context"
	"fmt"
	"strings"

	"ildang/internal/aggregate"
	"ildang/internal/amqp"
	"ildang/internal/core"
	"ildang/internal/log"
	"ildang/internal/sheets"
	"ildang/internal/storage"
)

// ExportWorker mirrors monthly claim summaries from the store into a spreadsheet.
type ExportWorker struct {
	store  *storage.Store
	sheets sheets.ReportWriter
	logger *log.Logger
}

func NewExportWorker(store *storage.Store, writer sheets.ReportWriter) *ExportWorker {
	return &ExportWorker{
		store:  store,
		sheets: writer,
		logger: log.Default(log.ComponentWorker),
	}
}

// HandleChangeMessage re-exports the months named in msg. Clears and settings
// changes re-export everything, since the payee appears on every tab.
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		"id", msg.ID,
		log.FieldVersion, msg.Version,
		log.FieldMonths, msg.Months,
		"all_months", msg.AllMonths,
		"settings", msg.Settings)

	if msg.AllMonths || msg.Settings {
		return w.ExportAll(ctx)
	}
	if len(msg.Months) == 0 {
		return nil
	}
	return w.ExportMonths(ctx, msg.Months)
}

// ExportMonths rewrites the tabs of months from one consistent read. Months that
// no longer hold any log lose their tab.
func (w *ExportWorker) ExportMonths(ctx context.Context, months []string) error {
	var (
		payee string
		data  = make(map[string][]core.WorkLog, len(months))
	)
	err := w.store.View(ctx, func(tx storage.Tx) error {
		settings, _, err := tx.FirstSettings(ctx)
		if err != nil {
			return err
		}
		payee = strings.TrimSpace(settings.UserName)
		for _, m := range months {
			first, last, err := core.MonthBounds(m)
			if err != nil {
				return err
			}
			logs, err := tx.QueryLogs(ctx, storage.DateRange(first, last))
			if err != nil {
				return err
			}
			data[m] = logs
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read months: %w", err)
	}

	for _, m := range months {
		if err := w.exportMonth(ctx, payee, m, data[m]); err != nil {
			return err
		}
	}
	return nil
}

// ExportAll rewrites every month tab and drops tabs of months without logs.
// It is the fallback for lost change messages.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	var (
		logs     []core.WorkLog
		settings core.Settings
	)
	err := w.store.View(ctx, func(tx storage.Tx) error {
		var err error
		if logs, err = tx.QueryLogs(ctx, storage.AllByDate()); err != nil {
			return err
		}
		settings, _, err = tx.FirstSettings(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("read all logs: %w", err)
	}
	payee := strings.TrimSpace(settings.UserName)

	months := aggregate.GroupByMonth(logs)
	keep := make(map[string]bool, len(months))
	for _, m := range months {
		keep[m.Month] = true
		if _, err := w.sheets.WriteMonth(ctx, payee, m); err != nil {
			return fmt.Errorf("export month %s: %w", m.Month, err)
		}
	}

	existing, err := w.sheets.Months(ctx)
	if err != nil {
		return fmt.Errorf("list month tabs: %w", err)
	}
	removed := 0
	for _, m := range existing {
		if keep[m] {
			continue
		}
		if err := w.sheets.DeleteMonth(ctx, m); err != nil {
			return fmt.Errorf("delete month %s: %w", m, err)
		}
		removed++
	}

	w.logger.InfoContext(ctx, "Full export completed",
		log.FieldCount, len(months),
		"removed", removed)
	return nil
}

func (w *ExportWorker) exportMonth(ctx context.Context, payee, month string, logs []core.WorkLog) error {
	if len(logs) == 0 {
		if err := w.sheets.DeleteMonth(ctx, month); err != nil {
			return fmt.Errorf("delete month %s: %w", month, err)
		}
		w.logger.InfoContext(ctx, "Removed empty month", log.FieldMonths, month)
		return nil
	}
	ref, err := w.sheets.WriteMonth(ctx, payee, aggregate.Summarize(month, logs))
	if err != nil {
		return fmt.Errorf("export month %s: %w", month, err)
	}
	w.logger.InfoContext(ctx, "Exported month",
		log.FieldMonths, month,
		"sheets_ref", ref,
		log.FieldCount, len(logs))
	return nil
}
