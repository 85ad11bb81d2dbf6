package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ildang/internal/core"
)

func TestParseRangeParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{"empty", "", "", "", false},
		{"month", "month=2024-02", "2024-02-01", "2024-02-29", false},
		{"month wins", "month=2024-06&start=2024-01-01", "2024-06-01", "2024-06-30", false},
		{"bounds", "start=2024-06-03&end=2024-06-09", "2024-06-03", "2024-06-09", false},
		{"open end", "start=2024-06-03", "2024-06-03", "", false},
		{"bad month", "month=2024-13", "", "", true},
		{"bad date", "end=2024/06/09", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			p, err := ParseRangeParams(q)
			if tt.wantErr {
				var ve *core.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := dateString(p.Start); got != tt.wantStart {
				t.Errorf("start = %q, want %q", got, tt.wantStart)
			}
			if got := dateString(p.End); got != tt.wantEnd {
				t.Errorf("end = %q, want %q", got, tt.wantEnd)
			}
		})
	}
}

func dateString(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func TestParseID(t *testing.T) {
	for raw, want := range map[string]int64{"7": 7, "0": 0, "-1": 0, "x": 0} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetPathValue("id", raw)
		id, err := ParseID(req)
		if want == 0 {
			if !errors.Is(err, errBadRequest) {
				t.Errorf("ParseID(%q) err = %v, want bad request", raw, err)
			}
			continue
		}
		if err != nil || id != want {
			t.Errorf("ParseID(%q) = %d, %v", raw, id, err)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Memo string `json:"memo"`
	}
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"memo":"비"}`, false},
		{`{"memo":"비"} {}`, true},
		{`{"other":1}`, true},
		{``, true},
		{`{"memo":"` + strings.Repeat("x", maxBodyBytes) + `"}`, true},
	}
	for i, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
		err := DecodeJSON(httptest.NewRecorder(), req, &dst)
		if (err != nil) != tt.wantErr {
			t.Errorf("case %d: err = %v, wantErr %v", i, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errBadRequest) {
			t.Errorf("case %d: err = %v, want bad request", i, err)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  현장\x00A\t "); got != "현장A" {
		t.Errorf("sanitizeInput = %q", got)
	}
}
