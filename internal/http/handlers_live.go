package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ildang/internal/core"
	"ildang/internal/live"
	"ildang/internal/log"
)

// Event names sent on the live streams.
const (
	EventLogs     = "logs"
	EventSettings = "settings"
	EventReport   = "report"
	EventError    = "error"
)

// handleLiveLogs streams the logs of the selected range; without a range every
// log is streamed.
func (s *Server) handleLiveLogs(w http.ResponseWriter, r *http.Request) {
	p, err := ParseRangeParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var sub *live.Subscription[[]core.WorkLog]
	if p.Open() {
		sub = live.QueryAll(r.Context(), s.hub)
	} else {
		sub = live.QueryByDateRange(r.Context(), s.hub, p.Start, p.End)
	}
	streamEvents(w, r, sub, EventLogs, s.heartbeat)
}

func (s *Server) handleLiveSettings(w http.ResponseWriter, r *http.Request) {
	streamEvents(w, r, live.WatchSettings(r.Context(), s.hub), EventSettings, s.heartbeat)
}

// handleLiveReport streams the claim of the selected range, the current month
// by default.
func (s *Server) handleLiveReport(w http.ResponseWriter, r *http.Request) {
	p, err := ParseRangeParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.Open() {
		p.Start, p.End, _ = core.MonthBounds(core.Today().MonthKey())
	}
	streamEvents(w, r, live.WatchReport(r.Context(), s.hub, p.Start, p.End), EventReport, s.heartbeat)
}

// streamEvents writes every result of sub as a server-sent event until the
// client goes away. The event id is the store version the value reflects.
func streamEvents[T any](w http.ResponseWriter, r *http.Request, sub *live.Subscription[T], event string, heartbeat time.Duration) {
	defer sub.Cancel()
	ctx := r.Context()
	logger := log.FromContext(ctx)

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.WarnContext(ctx, "Streaming not supported", log.FieldError, err)
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case res, ok := <-sub.C:
			if !ok {
				return
			}
			name, payload := event, any(res.Value)
			if res.Err != nil {
				name, payload = EventError, ErrorBody{Error: "live query failed"}
				logger.WarnContext(ctx, "Live query failed", log.FieldError, res.Err)
			}
			data, err := json.Marshal(payload)
			if err != nil {
				logger.ErrorContext(ctx, "Encode live event", log.FieldError, err)
				return
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", res.Version, name, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
