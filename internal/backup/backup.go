// Package backup takes and restores versioned JSON snapshots of the whole store.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"ildang/internal/core"
	"ildang/internal/storage"
)

// FormatVersion is the only snapshot version this reader understands.
const FormatVersion = 1

// DefaultChunkSize bounds how many logs one bulk insert carries during restore.
const DefaultChunkSize = 500

// FilePrefix names downloaded backup files.
const FilePrefix = "일당노트_백업"

// Snapshot is the full export of persisted records.
type Snapshot struct {
	Version   int            `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Logs      []core.WorkLog `json:"logs"`
	Settings  core.Settings  `json:"settings"`
}

// ErrInvalidFormat matches every *InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid backup format")

// InvalidFormatError reports a snapshot that cannot be restored.
type InvalidFormatError struct {
	Reason string
	Err    error
}

func (e *InvalidFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup format: %s: %v", e.Reason, e.Err)
	}
	return "invalid backup format: " + e.Reason
}

func (e *InvalidFormatError) Is(target error) bool { return target == ErrInvalidFormat }

func (e *InvalidFormatError) Unwrap() error { return e.Err }

func invalidFormat(reason string, err error) error {
	return &InvalidFormatError{Reason: reason, Err: err}
}

// FileName returns the download name for a backup taken at at.
func FileName(at time.Time) string {
	return fmt.Sprintf("%s_%s.json", FilePrefix, at.Format("2006-01-02"))
}

// Take reads every log and the settings singleton in one consistent view.
func Take(ctx context.Context, store *storage.Store) (Snapshot, error) {
	snap := Snapshot{Version: FormatVersion, Timestamp: time.Now().UTC()}
	err := store.View(ctx, func(tx storage.Tx) error {
		logs, err := tx.QueryLogs(ctx, storage.AllByDate())
		if err != nil {
			return fmt.Errorf("query logs: %w", err)
		}
		settings, _, err := tx.FirstSettings(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		snap.Logs = logs
		snap.Settings = settings
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("take snapshot: %w", err)
	}
	if snap.Logs == nil {
		snap.Logs = []core.WorkLog{}
	}
	return snap, nil
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

type rawSnapshot struct {
	Version   *int            `json:"version"`
	Timestamp string          `json:"timestamp"`
	Logs      json.RawMessage `json:"logs"`
	Settings  json.RawMessage `json:"settings"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Decode parses and validates a snapshot. Every failure is an *InvalidFormatError.
func Decode(r io.Reader) (Snapshot, error) {
	var raw rawSnapshot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, invalidFormat("malformed JSON", err)
	}
	if raw.Version == nil {
		return Snapshot{}, invalidFormat("missing version", nil)
	}
	if *raw.Version != FormatVersion {
		return Snapshot{}, invalidFormat(fmt.Sprintf("unsupported version %d", *raw.Version), nil)
	}
	if !present(raw.Logs) {
		return Snapshot{}, invalidFormat("missing logs", nil)
	}
	if !present(raw.Settings) {
		return Snapshot{}, invalidFormat("missing settings", nil)
	}

	snap := Snapshot{Version: *raw.Version}
	if raw.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			return Snapshot{}, invalidFormat("bad timestamp", err)
		}
		snap.Timestamp = ts
	}
	if err := json.Unmarshal(raw.Logs, &snap.Logs); err != nil {
		return Snapshot{}, invalidFormat("bad logs", err)
	}
	if err := json.Unmarshal(raw.Settings, &snap.Settings); err != nil {
		return Snapshot{}, invalidFormat("bad settings", err)
	}
	if err := Validate(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Validate checks that every log in snap is a well-formed record. Entry-time
// rules such as text length caps do not apply to restored data.
func Validate(snap Snapshot) error {
	if snap.Version != FormatVersion {
		return invalidFormat(fmt.Sprintf("unsupported version %d", snap.Version), nil)
	}
	if snap.Logs == nil {
		return invalidFormat("missing logs", nil)
	}
	for i, w := range snap.Logs {
		if err := w.WithLegacyDayOff().Normalize().ValidateRecord(); err != nil {
			return invalidFormat(fmt.Sprintf("log %d", i), err)
		}
	}
	return nil
}

// RestoreOptions tunes Restore.
type RestoreOptions struct {
	// ChunkSize is the number of logs per bulk insert. Zero means DefaultChunkSize.
	ChunkSize int
}

// Restore replaces the whole store with snap in a single transaction. Snapshot
// keys are discarded and the store assigns fresh ones. Validation happens before
// anything is cleared; any later failure rolls everything back.
func Restore(ctx context.Context, store *storage.Store, snap Snapshot, opts RestoreOptions) (int, error) {
	if err := Validate(snap); err != nil {
		return 0, err
	}
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	logs := make([]core.WorkLog, len(snap.Logs))
	for i, w := range snap.Logs {
		w.ID = 0
		logs[i] = w.WithLegacyDayOff()
	}
	settings := snap.Settings
	settings.ID = 0

	err := store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.ClearLogs(ctx); err != nil {
			return fmt.Errorf("clear logs: %w", err)
		}
		if err := tx.ClearSettings(ctx); err != nil {
			return fmt.Errorf("clear settings: %w", err)
		}
		for start := 0; start < len(logs); start += size {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := min(start+size, len(logs))
			if _, err := tx.BulkAddLogs(ctx, logs[start:end]); err != nil {
				return fmt.Errorf("insert logs %d-%d: %w", start, end, err)
			}
			runtime.Gosched()
		}
		if _, err := tx.AddSettings(ctx, settings); err != nil {
			return fmt.Errorf("insert settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("restore snapshot: %w", err)
	}
	return len(logs), nil
}
