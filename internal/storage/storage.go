// Package storage is the local record store for work logs and the settings singleton.
//
// A Backend runs scoped transactions over the two collections. Store wraps a Backend,
// serializes writers, keeps the settings singleton invariant and notifies observers
// after every committed write.
package storage

import (
	"context"
	"errors"
	"fmt"

	"ildang/internal/core"
)

// Collection names a persisted collection.
type Collection string

const (
	CollectionLogs     Collection = "logs"
	CollectionSettings Collection = "settings"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrReadOnly     = errors.New("write attempted in read-only transaction")
	ErrInvalidRange = errors.New("invalid range")
	ErrClosed       = errors.New("store closed")
)

// NotFoundError is returned when a write or lookup targets a missing id.
type NotFoundError struct {
	Collection Collection
	ID         int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Collection, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError is returned when a bulk insert carries an id that is already taken.
type ConflictError struct {
	Collection Collection
	ID         int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Collection, e.ID, ErrConflict)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// LogPatch holds the fields to change on a work log. Nil fields are left untouched.
type LogPatch struct {
	Date     *core.Date
	Location *string
	Task     *string
	Amount   *int64
	IsPaid   *bool
	IsDayOff *bool
	Memo     *string
}

// Empty reports whether the patch changes nothing.
func (p LogPatch) Empty() bool {
	return p.Date == nil && p.Location == nil && p.Task == nil && p.Amount == nil &&
		p.IsPaid == nil && p.IsDayOff == nil && p.Memo == nil
}

// Apply returns w with the patch applied. ID and CreatedAt never change.
func (p LogPatch) Apply(w core.WorkLog) core.WorkLog {
	if p.Date != nil {
		w.Date = *p.Date
	}
	if p.Location != nil {
		w.Location = *p.Location
	}
	if p.Task != nil {
		w.Task = *p.Task
	}
	if p.Amount != nil {
		w.Amount = *p.Amount
	}
	if p.IsPaid != nil {
		w.IsPaid = *p.IsPaid
	}
	if p.IsDayOff != nil {
		w.IsDayOff = *p.IsDayOff
	}
	if p.Memo != nil {
		w.Memo = *p.Memo
	}
	return w
}

// SettingsPatch holds the settings fields to change. Nil fields are left untouched.
type SettingsPatch struct {
	UserName      *string
	BankName      *string
	BankAccount   *string
	AccountHolder *string
}

func (p SettingsPatch) Apply(s core.Settings) core.Settings {
	if p.UserName != nil {
		s.UserName = *p.UserName
	}
	if p.BankName != nil {
		s.BankName = *p.BankName
	}
	if p.BankAccount != nil {
		s.BankAccount = *p.BankAccount
	}
	if p.AccountHolder != nil {
		s.AccountHolder = *p.AccountHolder
	}
	return s
}

// Tx is one unit of work against both collections.
//
// Backends store records as given: they assign ids, but CreatedAt and validation
// are the Store's business.
type Tx interface {
	GetLog(ctx context.Context, id int64) (core.WorkLog, error)
	// AddLog inserts a record and returns its new id. Any id on the input is ignored.
	AddLog(ctx context.Context, w core.WorkLog) (int64, error)
	UpdateLog(ctx context.Context, id int64, patch LogPatch) error
	DeleteLog(ctx context.Context, id int64) error
	QueryLogs(ctx context.Context, r Range) ([]core.WorkLog, error)
	CountLogs(ctx context.Context) (int, error)
	// LatestLog returns the most recently created record, if any.
	LatestLog(ctx context.Context) (core.WorkLog, bool, error)
	ClearLogs(ctx context.Context) error
	// BulkAddLogs inserts records in order. A zero id is assigned; a non-zero id is
	// kept and fails with ConflictError when already taken.
	BulkAddLogs(ctx context.Context, logs []core.WorkLog) ([]int64, error)

	GetSettings(ctx context.Context, id int64) (core.Settings, error)
	FirstSettings(ctx context.Context) (core.Settings, bool, error)
	AddSettings(ctx context.Context, s core.Settings) (int64, error)
	UpdateSettings(ctx context.Context, id int64, patch SettingsPatch) error
	ClearSettings(ctx context.Context) error
	CountSettings(ctx context.Context) (int, error)
}

// Backend runs transactions. Update commits when fn returns nil and rolls back
// otherwise, including when fn panics.
type Backend interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// ReadOnly wraps tx so that every write fails with ErrReadOnly.
func ReadOnly(tx Tx) Tx {
	if ro, ok := tx.(readOnlyTx); ok {
		return ro
	}
	return readOnlyTx{Tx: tx}
}

type readOnlyTx struct {
	Tx
}

func (readOnlyTx) AddLog(context.Context, core.WorkLog) (int64, error) { return 0, ErrReadOnly }
func (readOnlyTx) UpdateLog(context.Context, int64, LogPatch) error    { return ErrReadOnly }
func (readOnlyTx) DeleteLog(context.Context, int64) error              { return ErrReadOnly }
func (readOnlyTx) ClearLogs(context.Context) error                     { return ErrReadOnly }
func (readOnlyTx) BulkAddLogs(context.Context, []core.WorkLog) ([]int64, error) {
	return nil, ErrReadOnly
}
func (readOnlyTx) AddSettings(context.Context, core.Settings) (int64, error) { return 0, ErrReadOnly }
func (readOnlyTx) UpdateSettings(context.Context, int64, SettingsPatch) error {
	return ErrReadOnly
}
func (readOnlyTx) ClearSettings(context.Context) error { return ErrReadOnly }
