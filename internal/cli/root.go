// Package cli is the tada command line: the interactive app by default,
// plus scriptable todo, auth and server commands.
package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

// App carries root flag values and the lazily opened backend.
type App struct {
	ConfigPath string
	Filter     string

	cfg *config.Config
	conn
}

func NewRootCmd() *cobra.Command { return newRootCmd(&App{}) }

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tada",
		Short:         "A todo list with an email/password account",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive app
  tada

  # Scriptable commands
  tada auth login
  tada add "Buy milk"
  tada ls --filter active
  tada done 2
  tada rm 3
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString(config.FlagConfig)
		if err != nil {
			return err
		}
		app.ConfigPath = path
		cfg, err := config.Load(path, cmd.Flags())
		if err != nil {
			return err
		}
		app.cfg = cfg
		ui.SetTheme(cfg.UI.Theme)
		return nil
	}

	config.RegisterFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&app.Filter, "filter", "", "show only all, active or done todos (default from ui.filter)")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newServeCmd(app))
	return cmd
}

// Execute runs the root command and returns the process exit code: 0 ok,
// 1 error, 2 usage.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	app := &App{}
	defer func() { _ = app.close() }()

	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		ui.Fail(errOut, err.Error())
		var ue usageError
		if errors.As(err, &ue) || isCobraUsage(err) {
			return 2
		}
		return 1
	}
	return 0
}

// isCobraUsage matches the errors cobra raises for unknown commands.
func isCobraUsage(err error) bool {
	return strings.HasPrefix(err.Error(), "unknown command") ||
		strings.HasPrefix(err.Error(), "unknown shorthand flag") ||
		strings.HasPrefix(err.Error(), "unknown flag")
}
