package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ildang/internal/backup"
)

func newBackupCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "backup",
		Short: "Write every log and the settings to a JSON file",
		StrFlags: []StringFlag{
			{Name: "out", Short: "o", Usage: "output file (default 일당노트_백업_<date>.json)"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("out")
			if path == "" {
				path = backup.FileName(e.now())
			}
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				snap, err := app.Service.Backup(ctx)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := backup.Encode(&buf, snap); err != nil {
					return err
				}
				return writeFile(cmd.OutOrStdout(), path, buf.Bytes())
			})
		},
	}.Build()
}

func newRestoreCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "restore <file>",
		Short: "Replace every record with a backup file",
		Args:  cobra.ExactArgs(1),
		BoolFlags: []BoolFlag{
			{Name: "yes", Usage: "skip confirmation prompt"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				return runRestore(ctx, cmd.OutOrStdout(), app, f, e.prompts.confirmer(yes))
			})
		},
	}.Build()
}

// runRestore decodes the whole file before asking, so a broken backup never
// gets as far as the prompt.
func runRestore(ctx context.Context, out io.Writer, app *App, r io.Reader, confirm ConfirmFunc) error {
	snap, err := backup.Decode(r)
	if err != nil {
		return err
	}
	ok, err := confirm(fmt.Sprintf("기존 기록을 모두 지우고 %d건을 복원할까요?", len(snap.Logs)))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, Silent("취소되었습니다."))
		return nil
	}
	n, err := app.Service.Restore(ctx, snap)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %d건\n", Success("복원됨"), n)
	return nil
}

func newClearCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "clear",
		Short: "Delete every log and the settings",
		BoolFlags: []BoolFlag{
			{Name: "yes", Usage: "skip confirmation prompt"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				return runClear(ctx, cmd.OutOrStdout(), app, e.prompts.confirmer(yes))
			})
		},
	}.Build()
}

func runClear(ctx context.Context, out io.Writer, app *App, confirm ConfirmFunc) error {
	ok, err := confirm("모든 기록과 설정을 삭제할까요? 되돌릴 수 없습니다.")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, Silent("취소되었습니다."))
		return nil
	}
	if err := app.Service.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, Success("모두 삭제되었습니다."))
	return nil
}
