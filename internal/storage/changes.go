package storage

import (
	"context"
	"sort"

	"ildang/internal/core"
)

// ChangeSet describes one committed write transaction.
type ChangeSet struct {
	// Version is the store version produced by this commit.
	Version uint64
	// Logs is set when any work log was written.
	Logs bool
	// AllLogs is set when the log collection was cleared, so every date is affected.
	AllLogs bool
	// Dates lists the distinct log dates touched, ascending. Updates that move a
	// record list both the old and the new date.
	Dates    []core.Date
	Settings bool
}

// Touches reports whether the commit wrote to collection c.
func (c ChangeSet) Touches(coll Collection) bool {
	switch coll {
	case CollectionLogs:
		return c.Logs
	case CollectionSettings:
		return c.Settings
	}
	return false
}

// TouchesDates reports whether the commit wrote a log dated within [start, end].
// A zero start or end leaves that side unbounded.
func (c ChangeSet) TouchesDates(start, end core.Date) bool {
	if !c.Logs {
		return false
	}
	if c.AllLogs {
		return true
	}
	for _, d := range c.Dates {
		if !start.IsZero() && d.Compare(start) < 0 {
			continue
		}
		if !end.IsZero() && d.Compare(end) > 0 {
			continue
		}
		return true
	}
	return false
}

// Months lists the distinct YYYY-MM keys of the touched dates.
func (c ChangeSet) Months() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range c.Dates {
		k := d.MonthKey()
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

type changeRecorder struct {
	logs     bool
	allLogs  bool
	settings bool
	dates    map[string]core.Date
}

func (r *changeRecorder) touchDate(d core.Date) {
	r.logs = true
	if r.dates == nil {
		r.dates = make(map[string]core.Date)
	}
	r.dates[d.String()] = d
}

func (r *changeRecorder) empty() bool {
	return !r.logs && !r.settings
}

func (r *changeRecorder) build(version uint64) ChangeSet {
	cs := ChangeSet{
		Version:  version,
		Logs:     r.logs,
		AllLogs:  r.allLogs,
		Settings: r.settings,
	}
	for _, d := range r.dates {
		cs.Dates = append(cs.Dates, d)
	}
	sort.Slice(cs.Dates, func(i, j int) bool { return cs.Dates[i].Compare(cs.Dates[j]) < 0 })
	return cs
}

// recordingTx enforces record invariants on writes and remembers what they touched.
type recordingTx struct {
	Tx
	store   *Store
	changes changeRecorder
}

func (t *recordingTx) AddLog(ctx context.Context, w core.WorkLog) (int64, error) {
	w = w.Normalize()
	if err := w.Validate(); err != nil {
		return 0, err
	}
	w.CreatedAt = t.store.nextCreatedAt(ctx, t.Tx)
	id, err := t.Tx.AddLog(ctx, w)
	if err != nil {
		return 0, err
	}
	t.changes.touchDate(w.Date)
	return id, nil
}

func (t *recordingTx) UpdateLog(ctx context.Context, id int64, patch LogPatch) error {
	current, err := t.Tx.GetLog(ctx, id)
	if err != nil {
		return err
	}
	next := patch.Apply(current).Normalize()
	patch.Location, patch.Task, patch.Memo, patch.Amount = &next.Location, &next.Task, &next.Memo, &next.Amount
	if err := next.Validate(); err != nil {
		return err
	}
	if err := t.Tx.UpdateLog(ctx, id, patch); err != nil {
		return err
	}
	t.changes.touchDate(current.Date)
	t.changes.touchDate(next.Date)
	return nil
}

func (t *recordingTx) DeleteLog(ctx context.Context, id int64) error {
	current, err := t.Tx.GetLog(ctx, id)
	if err != nil {
		return err
	}
	if err := t.Tx.DeleteLog(ctx, id); err != nil {
		return err
	}
	t.changes.touchDate(current.Date)
	return nil
}

func (t *recordingTx) ClearLogs(ctx context.Context) error {
	if err := t.Tx.ClearLogs(ctx); err != nil {
		return err
	}
	t.changes.logs = true
	t.changes.allLogs = true
	return nil
}

func (t *recordingTx) BulkAddLogs(ctx context.Context, logs []core.WorkLog) ([]int64, error) {
	prepared := make([]core.WorkLog, len(logs))
	for i, w := range logs {
		w = w.Normalize()
		if err := w.ValidateRecord(); err != nil {
			return nil, err
		}
		if w.CreatedAt == 0 {
			w.CreatedAt = t.store.nextCreatedAt(ctx, t.Tx)
		} else {
			t.store.observeCreatedAt(ctx, t.Tx, w.CreatedAt)
		}
		prepared[i] = w
	}
	ids, err := t.Tx.BulkAddLogs(ctx, prepared)
	if err != nil {
		return nil, err
	}
	for _, w := range prepared {
		t.changes.touchDate(w.Date)
	}
	return ids, nil
}

func (t *recordingTx) AddSettings(ctx context.Context, s core.Settings) (int64, error) {
	id, err := t.Tx.AddSettings(ctx, s)
	if err != nil {
		return 0, err
	}
	t.changes.settings = true
	return id, nil
}

func (t *recordingTx) UpdateSettings(ctx context.Context, id int64, patch SettingsPatch) error {
	if err := t.Tx.UpdateSettings(ctx, id, patch); err != nil {
		return err
	}
	t.changes.settings = true
	return nil
}

func (t *recordingTx) ClearSettings(ctx context.Context) error {
	if err := t.Tx.ClearSettings(ctx); err != nil {
		return err
	}
	t.changes.settings = true
	return nil
}
