package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the displayed todos to a JSON file (default ./todos.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fileArg(args)
			if err := app.loadTodos(cmd); err != nil {
				return err
			}
			shown := app.store.Displayed()
			if err := jsonstore.Save(path, shown); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("exported %d todo(s) to %s", len(shown), path))
			return nil
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Add every todo of a JSON file (default ./todos.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fileArg(args)
			items, err := jsonstore.Load(path)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			if err := app.loadTodos(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()
			for _, it := range items {
				created, op, err := app.store.Create(it.Body)
				if err != nil {
					return fmt.Errorf("import %q: %w", it.Body, err)
				}
				if err := app.store.Sync(ctx, op); err != nil {
					return fmt.Errorf("import %q: %w", it.Body, err)
				}
				if it.Status != model.StatusDone {
					continue
				}
				all := app.store.All()
				i := slices.IndexFunc(all, func(t model.Todo) bool { return t.Key == created.Key })
				if i < 0 {
					continue
				}
				op, err = app.store.ToggleStatus(all[i].ID)
				if err != nil {
					return fmt.Errorf("import %q: %w", it.Body, err)
				}
				if err := app.store.Sync(ctx, op); err != nil {
					return fmt.Errorf("import %q: %w", it.Body, err)
				}
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("imported %d todo(s) from %s", len(items), path))
			return nil
		},
	}
}

func fileArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return jsonstore.FileName
}
