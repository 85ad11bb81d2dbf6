package live

import (
	"context"
	"fmt"

	"ildang/internal/core"
	"ildang/internal/report"
	"ildang/internal/storage"
)

// QueryByDateRange streams the logs dated within [start, end], ordered by date.
// An inverted range yields an empty list.
func QueryByDateRange(ctx context.Context, hub *Hub, start, end core.Date) *Subscription[[]core.WorkLog] {
	return Subscribe(ctx, hub, LogsIn(start, end), func(ctx context.Context, tx storage.Tx) ([]core.WorkLog, error) {
		return tx.QueryLogs(ctx, storage.DateRange(start, end))
	})
}

// QueryAll streams every log ordered by date.
func QueryAll(ctx context.Context, hub *Hub) *Subscription[[]core.WorkLog] {
	return Subscribe(ctx, hub, On(storage.CollectionLogs), func(ctx context.Context, tx storage.Tx) ([]core.WorkLog, error) {
		return tx.QueryLogs(ctx, storage.AllByDate())
	})
}

// WatchSettings streams the settings singleton. Before initialization the value
// is the zero Settings.
func WatchSettings(ctx context.Context, hub *Hub) *Subscription[core.Settings] {
	return Subscribe(ctx, hub, On(storage.CollectionSettings), func(ctx context.Context, tx storage.Tx) (core.Settings, error) {
		s, _, err := tx.FirstSettings(ctx)
		return s, err
	})
}

// WatchReport streams the claim for [start, end]. Logs and settings are read in
// the same transaction.
func WatchReport(ctx context.Context, hub *Hub, start, end core.Date) *Subscription[report.ReportView] {
	deps := LogsIn(start, end)
	deps.Collections = append(deps.Collections, storage.CollectionSettings)

	return Subscribe(ctx, hub, deps, func(ctx context.Context, tx storage.Tx) (report.ReportView, error) {
		logs, err := tx.QueryLogs(ctx, storage.DateRange(start, end))
		if err != nil {
			return report.ReportView{}, fmt.Errorf("query logs: %w", err)
		}
		settings, _, err := tx.FirstSettings(ctx)
		if err != nil {
			return report.ReportView{}, fmt.Errorf("get settings: %w", err)
		}
		return report.FromLogs(start, end, logs, settings)
	})
}
