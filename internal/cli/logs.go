package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ildang/internal/aggregate"
	"ildang/internal/core"
	"ildang/internal/storage"
)

// addInput holds the add command flags. Empty strings mean "not given".
type addInput struct {
	date     string
	location string
	task     string
	amount   string
	memo     string
	paid     bool
}

func newAddCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "add",
		Short: "Record a day of work",
		StrFlags: []StringFlag{
			{Name: "date", Short: "d", Usage: "work date (YYYY-MM-DD, default today)"},
			{Name: "location", Short: "l", Usage: "work site"},
			{Name: "task", Short: "t", Usage: "work performed"},
			{Name: "amount", Short: "a", Usage: "day wage, e.g. 150000, 150,000원 or 15만"},
			{Name: "memo", Usage: "free-form note"},
		},
		BoolFlags: []BoolFlag{
			{Name: "paid", Usage: "mark the wage as already paid"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in := addInput{}
			in.date, _ = cmd.Flags().GetString("date")
			in.location, _ = cmd.Flags().GetString("location")
			in.task, _ = cmd.Flags().GetString("task")
			in.amount, _ = cmd.Flags().GetString("amount")
			in.memo, _ = cmd.Flags().GetString("memo")
			in.paid, _ = cmd.Flags().GetBool("paid")
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				return runAdd(ctx, cmd.OutOrStdout(), app, in, e.today(), e.prompts.Prompt)
			})
		},
	}.Build()
}

// runAdd fills blank fields from the most recent log, asks for a missing
// location when a prompt is available, and stores the entry.
func runAdd(ctx context.Context, out io.Writer, app *App, in addInput, today core.Date, prompt PromptFunc) error {
	date := today
	if strings.TrimSpace(in.date) != "" {
		d, err := core.ParseDate(in.date)
		if err != nil {
			return err
		}
		date = d
	}

	w := core.WorkLog{Date: date, Location: in.location, Task: in.task, Memo: in.memo, IsPaid: in.paid}
	if in.amount != "" {
		amount, err := core.ParseAmount(in.amount)
		if err != nil {
			return &core.ValidationError{Field: "amount", Err: err}
		}
		w.Amount = amount
	}

	sticky, found, err := app.Service.StickyDefaults(ctx)
	if err != nil {
		return err
	}
	if found {
		if strings.TrimSpace(w.Location) == "" {
			w.Location = sticky.Location
		}
		if strings.TrimSpace(w.Task) == "" {
			w.Task = sticky.Task
		}
		if in.amount == "" {
			w.Amount = sticky.Amount
		}
	}
	if strings.TrimSpace(w.Location) == "" && prompt != nil {
		loc, err := prompt("현장 이름")
		if err != nil {
			return err
		}
		w.Location = loc
	}

	stored, err := app.Service.AddLog(ctx, w)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s #%d %s %s %s\n", Success("저장됨"), stored.ID, stored.Date, stored.Location, core.FormatWon(stored.Amount))
	return nil
}

func newDayOffCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "dayoff",
		Short: "Record a day off",
		StrFlags: []StringFlag{
			{Name: "date", Short: "d", Usage: "day off (YYYY-MM-DD, default today)"},
			{Name: "memo", Usage: "free-form note"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dateStr, _ := cmd.Flags().GetString("date")
			memo, _ := cmd.Flags().GetString("memo")
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				date := e.today()
				if dateStr != "" {
					d, err := core.ParseDate(dateStr)
					if err != nil {
						return err
					}
					date = d
				}
				w, err := app.Service.AddDayOff(ctx, date, memo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s %s\n", Success("저장됨"), w.ID, w.Date, w.Location)
				return nil
			})
		},
	}.Build()
}

// selectRange reads --month or --start/--end. Without any, the month of today
// is selected.
func selectRange(cmd *cobra.Command, today core.Date) (core.Date, core.Date, error) {
	month, _ := cmd.Flags().GetString("month")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	return parseRange(month, startStr, endStr, today)
}

func parseRange(month, startStr, endStr string, today core.Date) (core.Date, core.Date, error) {
	month = strings.TrimSpace(month)
	if month == "" && strings.TrimSpace(startStr) == "" && strings.TrimSpace(endStr) == "" {
		month = today.MonthKey()
	}
	if month != "" {
		return core.MonthBounds(month)
	}
	var start, end core.Date
	if strings.TrimSpace(startStr) != "" {
		d, err := core.ParseDate(startStr)
		if err != nil {
			return start, end, &core.ValidationError{Field: "start", Err: err}
		}
		start = d
	}
	if strings.TrimSpace(endStr) != "" {
		d, err := core.ParseDate(endStr)
		if err != nil {
			return start, end, &core.ValidationError{Field: "end", Err: err}
		}
		end = d
	}
	return start, end, nil
}

func newListCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:      "list",
		Short:    "List work logs of a month or date range",
		StrFlags: rangeFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := selectRange(cmd, e.today())
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				logs, err := app.Service.Logs(ctx, start, end)
				if err != nil {
					return err
				}
				printLogs(cmd.OutOrStdout(), logs)
				return nil
			})
		},
	}.Build()
}

// printLogs writes logs as an aligned table followed by the paid totals.
func printLogs(out io.Writer, logs []core.WorkLog) {
	if len(logs) == 0 {
		fmt.Fprintln(out, Silent("기록이 없습니다."))
		return
	}

	header := []string{"ID", "날짜", "현장", "작업", "금액", "지급"}
	rows := make([][]string, 0, len(logs))
	for _, w := range logs {
		paid := Warning("미지급")
		switch {
		case w.IsDayOff:
			paid = Silent("-")
		case w.IsPaid:
			paid = Success("지급")
		}
		rows = append(rows, []string{
			strconv.FormatInt(w.ID, 10),
			w.Date.String() + " (" + aggregate.Weekday(w.Date) + ")",
			w.Location,
			w.Task,
			core.FormatWon(w.Amount),
			paid,
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = cellWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], cellWidth(c))
		}
	}

	printRow := func(cells []string, style func(string) string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == 0 || i == 4 {
				parts[i] = padLeft(style(c), widths[i])
			} else {
				parts[i] = padRight(style(c), widths[i])
			}
		}
		fmt.Fprintln(out, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	printRow(header, Header)
	for _, row := range rows {
		printRow(row, func(s string) string { return s })
	}

	status := aggregate.PaymentStatus(logs)
	fmt.Fprintf(out, "\n%s %s  %s %s  %s %s\n",
		Header("합계"), core.FormatWon(status.Total()),
		Success("지급"), core.FormatWon(status.Paid),
		Warning("미지급"), core.FormatWon(status.Unpaid))
}

func newEditCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "edit <id>",
		Short: "Change fields of a work log",
		Args:  cobra.ExactArgs(1),
		StrFlags: []StringFlag{
			{Name: "date", Short: "d", Usage: "work date (YYYY-MM-DD)"},
			{Name: "location", Short: "l", Usage: "work site"},
			{Name: "task", Short: "t", Usage: "work performed"},
			{Name: "amount", Short: "a", Usage: "day wage"},
			{Name: "memo", Usage: "free-form note"},
		},
		BoolFlags: []BoolFlag{
			{Name: "paid", Usage: "whether the wage was paid"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := patchFromFlags(cmd)
			if err != nil {
				return err
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change: pass at least one field flag")
			}
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				w, err := app.Service.EditLog(ctx, id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s %s %s\n", Success("수정됨"), w.ID, w.Date, w.Location, core.FormatWon(w.Amount))
				return nil
			})
		},
	}.Build()
}

// patchFromFlags builds a patch from the flags the user actually set.
func patchFromFlags(cmd *cobra.Command) (storage.LogPatch, error) {
	var patch storage.LogPatch
	flags := cmd.Flags()
	if flags.Changed("date") {
		s, _ := flags.GetString("date")
		d, err := core.ParseDate(s)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	if flags.Changed("location") {
		s, _ := flags.GetString("location")
		patch.Location = &s
	}
	if flags.Changed("task") {
		s, _ := flags.GetString("task")
		patch.Task = &s
	}
	if flags.Changed("amount") {
		s, _ := flags.GetString("amount")
		amount, err := core.ParseAmount(s)
		if err != nil {
			return patch, &core.ValidationError{Field: "amount", Err: err}
		}
		patch.Amount = &amount
	}
	if flags.Changed("memo") {
		s, _ := flags.GetString("memo")
		patch.Memo = &s
	}
	if flags.Changed("paid") {
		b, _ := flags.GetBool("paid")
		patch.IsPaid = &b
	}
	return patch, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid log id %q", s)
	}
	return id, nil
}

func newPaidCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "paid <id>",
		Short: "Toggle the paid flag of a work log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				w, err := app.Service.TogglePaid(ctx, id)
				if err != nil {
					return err
				}
				state := Warning("미지급")
				if w.IsPaid {
					state = Success("지급")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s\n", w.ID, w.Date, state)
				return nil
			})
		},
	}.Build()
}

func newRemoveCmd(e env) *cobra.Command {
	return LeafCommand{
		Use:   "remove <id>",
		Short: "Delete a work log",
		Args:  cobra.ExactArgs(1),
		BoolFlags: []BoolFlag{
			{Name: "yes", Usage: "skip confirmation prompt"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			return e.withApp(cmd, func(ctx context.Context, app *App) error {
				return runRemove(ctx, cmd.OutOrStdout(), app, id, e.prompts.confirmer(yes))
			})
		},
	}.Build()
}

func runRemove(ctx context.Context, out io.Writer, app *App, id int64, confirm ConfirmFunc) error {
	w, err := app.Service.GetLog(ctx, id)
	if err != nil {
		return err
	}
	ok, err := confirm(fmt.Sprintf("#%d %s %s 기록을 삭제할까요?", w.ID, w.Date, w.Location))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, Silent("취소되었습니다."))
		return nil
	}
	if err := app.Service.DeleteLog(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s #%d\n", Success("삭제됨"), id)
	return nil
}
