package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/backend/sqlite"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var addr, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend used by --backend remote",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// The server always logs to stderr.
			logger, closer, err := logging.New(logging.Options{Level: app.cfg.Log.Level, Prefix: "serve"}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			if dbPath == "" {
				dbPath = filepath.Join(app.cfg.Backend.DataDir, "server", sqlite.FileName)
			}
			db, err := sqlite.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if app.cfg.Backend.APIKey == "" {
				logger.Warn("no api key configured, X-Api-Key is not checked")
			}
			logger.Info("database", "path", dbPath)
			return server.New(db, logger, app.cfg.Backend.APIKey).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "database file (default <data_dir>/server/tada.sqlite)")
	return cmd
}
