package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ildang/internal/core"
	"ildang/internal/storage"
)

func newSettingsCmd(e env) *cobra.Command {
	return GroupCommand{
		Use:   "settings",
		Short: "Show or change the payee profile",
		Subcommands: []*cobra.Command{
			newSettingsShowCmd(e),
			newSettingsSetCmd(e),
		},
	}.Build()
}

func newSettingsShowCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "show",
		Short: "Print the payee profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				s, err := app.Service.Settings(ctx)
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}.Build()
}

func newSettingsSetCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "set",
		Short: "Change fields of the payee profile",
		StrFlags: []StringFlag{
			{Name: "name", Usage: "worker name printed on the claim"},
			{Name: "bank", Usage: "bank name"},
			{Name: "account", Usage: "bank account number"},
			{Name: "holder", Usage: "account holder"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch storage.SettingsPatch
			fields := map[string]**string{
				"name":    &patch.UserName,
				"bank":    &patch.BankName,
				"account": &patch.BankAccount,
				"holder":  &patch.AccountHolder,
			}
			changed := false
			for name, dst := range fields {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					*dst = &v
					changed = true
				}
			}
			if !changed {
				return fmt.Errorf("nothing to change: pass --name, --bank, --account or --holder")
			}
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				s, err := app.Service.SaveSettings(ctx, patch)
				if err != nil {
					return err
				}
				printSettings(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}.Build()
}

func printSettings(out io.Writer, s core.Settings) {
	rows := [][2]string{
		{"이름", s.UserName},
		{"은행", s.BankName},
		{"계좌", s.BankAccount},
		{"예금주", s.AccountHolder},
	}
	for _, r := range rows {
		v := r[1]
		if v == "" {
			v = Silent("(없음)")
		}
		fmt.Fprintf(out, "%s %s\n", padRight(Header(r[0]), 8), v)
	}
}
