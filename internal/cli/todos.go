package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/format"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newListCmd(app *App) *cobra.Command {
	var group bool
	var outFormat string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List todos",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !format.Valid(outFormat) {
				return usagef("ls: unknown format %q (want text, json or yaml)", outFormat)
			}
			if err := app.loadTodos(cmd); err != nil {
				return err
			}
			shown := app.store.Displayed()
			if format.Machine(outFormat) {
				return format.Write(cmd.OutOrStdout(), shown, outFormat, pretty)
			}
			active, done := app.store.Counts()
			renderList(cmd.OutOrStdout(), shown, app.store.Filter(), active, done, group)
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "group output by active/done")
	cmd.Flags().StringVar(&outFormat, "format", format.Text, "output format (text|json|yaml)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print JSON output")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <body...>",
		Short: "Add a new todo (body can be multiple words)",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadTodos(cmd); err != nil {
				return err
			}
			_, op, err := app.store.Create(strings.Join(args, " "))
			if err != nil {
				return usagef("add: %v", err)
			}
			if err := app.store.Sync(cmd.Context(), op); err != nil {
				return fmt.Errorf("add: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), "added")
			return nil
		},
	}
}

func newDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle done for the todo at a 1-based index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			op, err := app.store.ToggleStatus(it.ID)
			if err != nil {
				return err
			}
			if err := app.store.Sync(cmd.Context(), op); err != nil {
				return fmt.Errorf("done: %w", err)
			}
			if it.Status.Toggle() == model.StatusDone {
				ui.OK(cmd.OutOrStdout(), "marked done")
			} else {
				ui.OK(cmd.OutOrStdout(), "marked active")
			}
			return nil
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <body...>",
		Short: "Replace the body of the todo at a 1-based index",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			op, err := app.store.Edit(it.ID, strings.Join(args[1:], " "))
			if err != nil {
				return usagef("edit: %v", err)
			}
			if err := app.store.Sync(cmd.Context(), op); err != nil {
				return fmt.Errorf("edit: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), "edited")
			return nil
		},
	}
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the todo at a 1-based index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			op, err := app.store.Delete(it.ID)
			if err != nil {
				return err
			}
			if err := app.store.Sync(cmd.Context(), op); err != nil {
				return fmt.Errorf("rm: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), "removed")
			return nil
		},
	}
}

// pick loads the todos and returns the one at the 1-based index arg, counted
// over the displayed (filtered) order.
func (a *App) pick(cmd *cobra.Command, arg string) (model.Todo, error) {
	n, err := parseIndex(cmd, arg)
	if err != nil {
		return model.Todo{}, err
	}
	if err := a.loadTodos(cmd); err != nil {
		return model.Todo{}, err
	}
	shown := a.store.Displayed()
	if n < 1 || n > len(shown) {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Dim("Hint: run `tada ls` to see valid indexes"))
		return model.Todo{}, usagef("index out of range: have %d, got %d", len(shown), n)
	}
	return shown[n-1], nil
}

// -------------- rendering helpers --------------

func renderList(w io.Writer, items []model.Todo, f model.Filter, active, done int, group bool) {
	t := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), done,
		ui.C(t.Pending, t.SymActive), active,
		ui.C(t.Accent, "Total"), active+done,
	)
	if f != model.FilterAll {
		header += "  " + ui.C(t.Muted, "filter: "+f.String())
	}

	var lines []string
	lines = append(lines, header)
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(done, active+done, 28)))
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items, 1)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "Tip: add with `tada add \"Buy milk\"`"))
	ui.Panel(w, lines)
}

// flatLines numbers items from first, matching the indexes done/edit/rm take.
func flatLines(items []model.Todo, first int) []string {
	t := ui.Current()
	if len(items) == 0 {
		return []string{ui.C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		idx := fmt.Sprintf("%2d.", first+i)
		box := ui.C(t.Muted, t.BoxUnchecked)
		body := ui.Truncate(it.Body, 80)
		if it.Done() {
			box = ui.C(t.Success, t.BoxChecked)
			body = ui.Struck(body)
		}
		out = append(out, fmt.Sprintf("%s %s %s", ui.Dim(idx), box, body))
	}
	return out
}

// groupLines splits items into Active and Done sections. Indexes stay those
// of the flat listing.
func groupLines(items []model.Todo) []string {
	t := ui.Current()
	var lines []string
	for _, st := range []model.Status{model.StatusActive, model.StatusDone} {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, ui.C(t.Accent, string(st)))
		n := 0
		for i, it := range items {
			if filter.Match(it, model.Filter(st)) {
				lines = append(lines, flatLines([]model.Todo{it}, i+1)...)
				n++
			}
		}
		if n == 0 {
			lines = append(lines, ui.C(t.Muted, "(none)"))
		}
	}
	return lines
}
