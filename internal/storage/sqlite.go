package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ildang/internal/core"

	_ "modernc.org/sqlite"
)

const logColumns = "id, date, location, task, amount, is_paid, is_day_off, memo, created_at"

// SQLiteBackend persists both collections in a single SQLite file.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (creating if needed) the database at dbPath and migrates it.
func OpenSQLite(dbPath string) (*SQLiteBackend, error) {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") {
		return nil, fmt.Errorf("sqlite backend needs a file path, got %q", dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps every transaction strictly serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteBackend{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string { return b.path }

// Ping checks the connection.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *SQLiteBackend) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(ReadOnly(&sqliteTx{tx: tx}))
}

func (b *SQLiteBackend) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (core.WorkLog, error) {
	var (
		w       core.WorkLog
		date    string
		paid    int64
		dayOff  int64
		created int64
	)
	if err := row.Scan(&w.ID, &date, &w.Location, &w.Task, &w.Amount, &paid, &dayOff, &w.Memo, &created); err != nil {
		return core.WorkLog{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.WorkLog{}, fmt.Errorf("decode log %d: %w", w.ID, err)
	}
	w.Date = d
	w.IsPaid = paid != 0
	w.IsDayOff = dayOff != 0
	w.CreatedAt = created
	return w, nil
}

func (t *sqliteTx) GetLog(ctx context.Context, id int64) (core.WorkLog, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+logColumns+" FROM work_logs WHERE id = ?", id)
	w, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkLog{}, &NotFoundError{Collection: CollectionLogs, ID: id}
	}
	if err != nil {
		return core.WorkLog{}, fmt.Errorf("get log %d: %w", id, err)
	}
	return w, nil
}

func (t *sqliteTx) AddLog(ctx context.Context, w core.WorkLog) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO work_logs (date, location, task, amount, is_paid, is_day_off, memo, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.Date.String(), w.Location, w.Task, w.Amount, boolKey(w.IsPaid), boolKey(w.IsDayOff), w.Memo, w.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read log id: %w", err)
	}
	return id, nil
}

func (t *sqliteTx) UpdateLog(ctx context.Context, id int64, patch LogPatch) error {
	current, err := t.GetLog(ctx, id)
	if err != nil {
		return err
	}
	w := patch.Apply(current)
	_, err = t.tx.ExecContext(ctx,
		`UPDATE work_logs SET date = ?, location = ?, task = ?, amount = ?, is_paid = ?, is_day_off = ?, memo = ?
		 WHERE id = ?`,
		w.Date.String(), w.Location, w.Task, w.Amount, boolKey(w.IsPaid), boolKey(w.IsDayOff), w.Memo, id)
	if err != nil {
		return fmt.Errorf("update log %d: %w", id, err)
	}
	return nil
}

func (t *sqliteTx) DeleteLog(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM work_logs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete log %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete log %d: %w", id, err)
	}
	if n == 0 {
		return &NotFoundError{Collection: CollectionLogs, ID: id}
	}
	return nil
}

func (t *sqliteTx) QueryLogs(ctx context.Context, r Range) ([]core.WorkLog, error) {
	col, err := r.Column()
	if err != nil {
		return nil, err
	}
	lo, hi, err := r.Bounds()
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if lo != nil {
		op := ">="
		if r.ExcludeLower {
			op = ">"
		}
		where = append(where, col+" "+op+" ?")
		args = append(args, lo)
	}
	if hi != nil {
		op := "<="
		if r.ExcludeUpper {
			op = "<"
		}
		where = append(where, col+" "+op+" ?")
		args = append(args, hi)
	}

	q := "SELECT " + logColumns + " FROM work_logs"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	dir := "ASC"
	if r.Reverse {
		dir = "DESC"
	}
	q += fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
	if r.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, r.Limit)
	}

	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []core.WorkLog
	for rows.Next() {
		w, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return out, nil
}

func (t *sqliteTx) CountLogs(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_logs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}

func (t *sqliteTx) LatestLog(ctx context.Context) (core.WorkLog, bool, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+logColumns+" FROM work_logs ORDER BY created_at DESC, id DESC LIMIT 1")
	w, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkLog{}, false, nil
	}
	if err != nil {
		return core.WorkLog{}, false, fmt.Errorf("latest log: %w", err)
	}
	return w, true, nil
}

func (t *sqliteTx) ClearLogs(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM work_logs"); err != nil {
		return fmt.Errorf("clear logs: %w", err)
	}
	return nil
}

func (t *sqliteTx) BulkAddLogs(ctx context.Context, logs []core.WorkLog) ([]int64, error) {
	ids := make([]int64, 0, len(logs))
	for _, w := range logs {
		if w.ID == 0 {
			id, err := t.AddLog(ctx, w)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
			continue
		}

		var exists int
		err := t.tx.QueryRowContext(ctx, "SELECT 1 FROM work_logs WHERE id = ?", w.ID).Scan(&exists)
		if err == nil {
			return nil, &ConflictError{Collection: CollectionLogs, ID: w.ID}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("check log %d: %w", w.ID, err)
		}
		_, err = t.tx.ExecContext(ctx,
			`INSERT INTO work_logs (id, date, location, task, amount, is_paid, is_day_off, memo, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.Date.String(), w.Location, w.Task, w.Amount, boolKey(w.IsPaid), boolKey(w.IsDayOff), w.Memo, w.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert log %d: %w", w.ID, err)
		}
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func scanSettings(row rowScanner) (core.Settings, error) {
	var s core.Settings
	err := row.Scan(&s.ID, &s.UserName, &s.BankName, &s.BankAccount, &s.AccountHolder)
	return s, err
}

func (t *sqliteTx) GetSettings(ctx context.Context, id int64) (core.Settings, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT id, user_name, bank_name, bank_account, account_holder FROM settings WHERE id = ?", id)
	s, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, &NotFoundError{Collection: CollectionSettings, ID: id}
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings %d: %w", id, err)
	}
	return s, nil
}

func (t *sqliteTx) FirstSettings(ctx context.Context) (core.Settings, bool, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT id, user_name, bank_name, bank_account, account_holder FROM settings ORDER BY id LIMIT 1")
	s, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, false, nil
	}
	if err != nil {
		return core.Settings{}, false, fmt.Errorf("first settings: %w", err)
	}
	return s, true, nil
}

func (t *sqliteTx) AddSettings(ctx context.Context, s core.Settings) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO settings (user_name, bank_name, bank_account, account_holder) VALUES (?, ?, ?, ?)",
		s.UserName, s.BankName, s.BankAccount, s.AccountHolder)
	if err != nil {
		return 0, fmt.Errorf("insert settings: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read settings id: %w", err)
	}
	return id, nil
}

func (t *sqliteTx) UpdateSettings(ctx context.Context, id int64, patch SettingsPatch) error {
	current, err := t.GetSettings(ctx, id)
	if err != nil {
		return err
	}
	s := patch.Apply(current)
	_, err = t.tx.ExecContext(ctx,
		"UPDATE settings SET user_name = ?, bank_name = ?, bank_account = ?, account_holder = ? WHERE id = ?",
		s.UserName, s.BankName, s.BankAccount, s.AccountHolder, id)
	if err != nil {
		return fmt.Errorf("update settings %d: %w", id, err)
	}
	return nil
}

func (t *sqliteTx) ClearSettings(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM settings"); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	return nil
}

func (t *sqliteTx) CountSettings(ctx context.Context) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings").Scan(&n); err != nil {
		return 0, fmt.Errorf("count settings: %w", err)
	}
	return n, nil
}
