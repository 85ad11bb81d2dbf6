package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"ildang/internal/cache"
	"ildang/internal/export"
	"ildang/internal/live"
	"ildang/internal/log"
	"ildang/internal/middleware/ratelimit"
	"ildang/internal/middleware/security"
	"ildang/internal/middleware/trace"
	"ildang/internal/services"
)

// pinger is implemented by backends that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the work log API and its live event streams.
type Server struct {
	http.Server

	svc      *services.WorkLogService
	hub      *live.Hub
	renderer export.Renderer
	logger   *log.Logger

	artifacts *cache.LRUCache[[]byte]
	caches    *cache.Manager
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware

	heartbeat time.Duration

	// baseCancel ends every request context, live streams included, on shutdown.
	baseCancel   context.CancelFunc
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithRenderer sets the PDF renderer. Without one, PDF downloads answer 501.
func WithRenderer(r export.Renderer) Option {
	return func(s *Server) { s.renderer = r }
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit overrides the write rate limit.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// WithHeartbeat sets how often idle event streams send a comment line.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.WorkLogService, hub *live.Hub, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:       svc,
		hub:       hub,
		logger:    log.Default(log.ComponentHTTP),
		artifacts: cache.NewBytesCache(64, 32<<20, 10*time.Minute),
		caches:    cache.NewManager(),
		detector:  security.NewDetector(),
		heartbeat: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	baseCtx, cancel := context.WithCancel(context.Background())
	s.baseCancel = cancel
	s.BaseContext = func(net.Listener) context.Context { return baseCtx }

	s.caches.Register(s.artifacts)
	s.caches.StartCleanup(5 * time.Minute)

	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		NewResponse().Status(http.StatusTooManyRequests).
			JSON(ErrorBody{Error: "rate limit exceeded, try again later"}).Write(w)
	})(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	s.Handler = h

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/logs", s.handleListLogs)
	mux.HandleFunc("POST /api/logs", s.handleCreateLog)
	mux.HandleFunc("POST /api/logs/dayoff", s.handleCreateDayOff)
	mux.HandleFunc("GET /api/logs/sticky", s.handleStickyDefaults)
	mux.HandleFunc("GET /api/logs/{id}", s.handleGetLog)
	mux.HandleFunc("PATCH /api/logs/{id}", s.handleEditLog)
	mux.HandleFunc("DELETE /api/logs/{id}", s.handleDeleteLog)
	mux.HandleFunc("POST /api/logs/{id}/toggle-paid", s.handleTogglePaid)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleSaveSettings)

	mux.HandleFunc("GET /api/overview", s.handleMonthOverview)
	mux.HandleFunc("GET /api/report", s.handleReport)

	mux.Handle("GET /api/backup", security.NoStore(http.HandlerFunc(s.handleBackup)))
	mux.HandleFunc("POST /api/restore", s.handleRestore)
	mux.HandleFunc("POST /api/clear", s.handleClear)

	mux.HandleFunc("GET /api/live/logs", s.handleLiveLogs)
	mux.HandleFunc("GET /api/live/settings", s.handleLiveSettings)
	mux.HandleFunc("GET /api/live/report", s.handleLiveReport)
}

// Shutdown ends live streams, stops background work and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.baseCancel()
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	store := s.svc.Store()
	if p, ok := store.Backend().(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	if _, err := store.CountLogs(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
