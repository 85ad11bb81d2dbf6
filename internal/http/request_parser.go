// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path ids, date ranges from the query string and size-bounded JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ildang/internal/core"
)

// maxBodyBytes bounds JSON request bodies other than restores.
const maxBodyBytes = 64 << 10

// maxRestoreBytes bounds uploaded backup files.
const maxRestoreBytes = 32 << 20

// errBadRequest marks malformed input that never reached validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// RangeParams is the date range selected by a query string. Zero bounds are open.
type RangeParams struct {
	Start core.Date
	End   core.Date
}

// Open reports whether neither bound was given.
func (p RangeParams) Open() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// ParseRangeParams reads month=YYYY-MM, or start and end as YYYY-MM-DD. A month
// takes precedence over explicit bounds.
func ParseRangeParams(query url.Values) (RangeParams, error) {
	if month := strings.TrimSpace(query.Get("month")); month != "" {
		first, last, err := core.MonthBounds(month)
		if err != nil {
			return RangeParams{}, &core.ValidationError{Field: "month", Err: err}
		}
		return RangeParams{Start: first, End: last}, nil
	}

	var p RangeParams
	for _, f := range []struct {
		name string
		dst  *core.Date
	}{{"start", &p.Start}, {"end", &p.End}} {
		v := strings.TrimSpace(query.Get(f.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return RangeParams{}, &core.ValidationError{Field: f.name, Err: err}
		}
		*f.dst = d
	}
	return p, nil
}

// ParseID reads the {id} path value.
func ParseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// ParseBool reads a query flag; missing means def.
func ParseBool(query url.Values, key string, def bool) bool {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// DecodeJSON decodes a single JSON value from the body into dst. Unknown fields
// and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest("body larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return badRequest("empty body")
		}
		return badRequest("decode body: %v", err)
	}
	if dec.More() {
		return badRequest("unexpected data after JSON body")
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines and trims
// surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
