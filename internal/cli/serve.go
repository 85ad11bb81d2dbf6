package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "ildang/internal/http"
	"ildang/internal/live"
	"ildang/internal/log"
)

// shutdownTimeout bounds draining in-flight requests after a shutdown signal.
const shutdownTimeout = 30 * time.Second

func newServeCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "serve",
		Short: "Run the HTTP API and live event streams",
		StrFlags: []StringFlag{
			{Name: "port", Short: "p", Usage: "listen port (default PORT)"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			port, _ := cmd.Flags().GetString("port")
			// The server always logs at the configured level.
			return e.run(cmd, true, func(ctx context.Context, app *App) error {
				if port == "" {
					port = app.Config.Port
				}
				return runServe(ctx, app, ":"+port)
			})
		},
	}.Build()
}

// runServe serves until ctx is cancelled, then shuts the server down.
func runServe(ctx context.Context, app *App, addr string) error {
	logger := app.Logger.WithComponent(log.ComponentHTTP)
	hub := live.NewHub(app.Service.Store())
	defer hub.Close()

	srv := apphttp.NewServer(addr, app.Service, hub,
		apphttp.WithRenderer(app.Renderer),
		apphttp.WithLogger(logger))
	srv.ReadTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 20

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
