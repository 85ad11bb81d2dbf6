package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ildang/internal/core"
)

// closeTimeout bounds draining the change relay when a command finishes.
const closeTimeout = 10 * time.Second

// env carries the injectable dependencies of every command.
type env struct {
	open    Opener
	prompts PromptKit
	now     func() time.Time
}

func defaultEnv() env {
	return env{
		open:    defaultOpener,
		prompts: NewPromptKit(),
		now:     time.Now,
	}
}

func (e env) today() core.Date {
	return core.DateOf(e.now())
}

// withApp opens the app, runs fn and closes the app again.
func (e env) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return e.run(cmd, verbose, fn)
}

func (e env) run(cmd *cobra.Command, verbose bool, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := e.open(ctx, verbose)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := app.Close(closeCtx); err != nil && runErr == nil {
		return fmt.Errorf("close: %w", err)
	}
	return runErr
}

func newRootCmd(e env) *cobra.Command {
	root := &cobra.Command{
		Use:           "ildang",
		Short:         "일당노트: 일용직 작업 기록과 노임 청구서",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "log at the configured level to stderr")

	root.AddCommand(
		newAddCmd(e),
		newDayOffCmd(e),
		newListCmd(e),
		newEditCmd(e),
		newPaidCmd(e),
		newRemoveCmd(e),
		newReportCmd(e),
		newSettingsCmd(e),
		newBackupCmd(e),
		newRestoreCmd(e),
		newClearCmd(e),
		newServeCmd(e),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command until it finishes or a shutdown signal arrives.
func Execute() error {
	ctx, stop := SignalContext(context.Background())
	defer stop()
	return newRootCmd(defaultEnv()).ExecuteContext(ctx)
}
