package log

import (
	"net/http"
	"sort"
	"time"

	"ildang/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldBytes      = "bytes"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldMonths     = "months"
	FieldLogID      = "log_id"
	FieldDate       = "date"
	FieldLocation   = "location"
	FieldAmount     = "amount"
	FieldDayOff     = "day_off"
	FieldRangeStart = "range_start"
	FieldRangeEnd   = "range_end"
	FieldVersion    = "version"
	FieldCount      = "count"
	FieldFormat     = "format"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentWorkLog  = "worklog"
	ComponentStorage  = "storage"
	ComponentLive     = "live"
	ComponentBackup   = "backup"
	ComponentExport   = "export"
	ComponentRelay    = "relay"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
	ComponentCLI      = "cli"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpTogglePaid = "toggle_paid"
	OpClear      = "clear"
	OpBackup     = "backup"
	OpRestore    = "restore"
	OpExport     = "export"
	OpPublish    = "publish"
	OpSync       = "sync"
	OpValidate   = "validate"
	OpRender     = "render"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeFormat        = "format_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithWorkLog adds the identifying fields of a work log.
func (f LogFields) WithWorkLog(w core.WorkLog) LogFields {
	if w.ID != 0 {
		f[FieldLogID] = w.ID
	}
	f[FieldDate] = w.Date.String()
	f[FieldLocation] = w.Location
	f[FieldAmount] = w.Amount
	if w.IsDayOff {
		f[FieldDayOff] = true
	}
	return f
}

// WithRange adds a date range.
func (f LogFields) WithRange(start, end core.Date) LogFields {
	f[FieldRangeStart] = start.String()
	f[FieldRangeEnd] = end.String()
	return f
}

// WithRequest adds the method, path and query of r.
func (f LogFields) WithRequest(r *http.Request) LogFields {
	f[FieldMethod] = r.Method
	f[FieldPath] = r.URL.Path
	if r.URL.RawQuery != "" {
		f[FieldQuery] = r.URL.RawQuery
	}
	return f
}

// WithResponse adds the outcome of a served request.
func (f LogFields) WithResponse(statusCode int, elapsed time.Duration, bytes int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = elapsed.Milliseconds()
	f[FieldBytes] = bytes
	return f
}

// ToSlice converts LogFields to a key-sorted slice for slog
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
