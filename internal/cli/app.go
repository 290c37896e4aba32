package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/local"
	"github.com/Makepad-fr/tada/internal/backend/remote"
	"github.com/Makepad-fr/tada/internal/backend/sqlite"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/credentials"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/tui"
)

var errNotSignedIn = errors.New("not signed in. Run: tada auth login")

// conn is everything opened on behalf of a command. Zero until connect.
type conn struct {
	log       *log.Logger
	logCloser io.Closer
	backend   backend.Backend
	session   *session.Manager
	store     *store.Store
}

// tokens is the credentials file for the configured backend kind. Local and
// remote sessions are kept apart so switching backends does not discard
// either token.
func (a *App) tokens() credentials.File {
	return credentials.File{Dir: filepath.Join(a.cfg.Backend.DataDir, a.cfg.Backend.Kind)}
}

// connect opens the logger, backend, session manager and store. Commands
// log to errOut unless a log file is configured.
func (a *App) connect(ctx context.Context, errOut io.Writer) error {
	return a.open(ctx, a.cfg.Log.File, errOut)
}

func (a *App) open(ctx context.Context, logFile string, errOut io.Writer) error {
	if a.backend != nil {
		return nil
	}
	logger, closer, err := logging.New(logging.Options{File: logFile, Level: a.cfg.Log.Level}, errOut)
	if err != nil {
		return err
	}
	a.log, a.logCloser = logger, closer

	b, err := openBackend(ctx, a.cfg, a.tokens())
	if err != nil {
		return err
	}
	a.backend = b
	a.session = session.New(b, logger, session.Options{AutoProvision: a.cfg.Auth.AutoProvision})
	a.store = store.New(b, logger)
	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, tokens credentials.File) (backend.Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendRemote:
		c, err := remote.New(ctx, remote.Options{BaseURL: cfg.Backend.DatabaseURL, APIKey: cfg.Backend.APIKey}, tokens)
		if err != nil {
			return nil, fmt.Errorf("remote backend: %w", err)
		}
		return c, nil
	default:
		c, err := local.Open(ctx, filepath.Join(cfg.Backend.DataDir, sqlite.FileName), tokens)
		if err != nil {
			return nil, fmt.Errorf("local backend: %w", err)
		}
		return c, nil
	}
}

// resolveSession applies the backend's current auth state.
func (a *App) resolveSession() {
	ch, cancel := a.session.Watch()
	defer cancel()
	_, _ = a.session.Apply(session.Changed(<-ch))
}

// loadTodos connects, requires a session and loads the user's todos under
// the effective filter.
func (a *App) loadTodos(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := a.connect(ctx, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.resolveSession()
	if a.session.State() != session.SignedIn {
		return errNotSignedIn
	}
	f, err := a.filter()
	if err != nil {
		return err
	}
	a.store.SetFilter(f)
	if err := a.store.Sync(ctx, a.store.Load(a.session.Session().UID)); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

// filter is --filter when given, else ui.filter from the config.
func (a *App) filter() (model.Filter, error) {
	if a.Filter == "" {
		return a.cfg.InitialFilter(), nil
	}
	f, err := model.ParseFilter(a.Filter)
	if err != nil {
		return f, usageError{err}
	}
	return f, nil
}

func (a *App) close() error {
	var errs []error
	if a.backend != nil {
		errs = append(errs, a.backend.Close())
		a.backend = nil
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
		a.logCloser = nil
	}
	return errors.Join(errs...)
}

func runTUI(cmd *cobra.Command, a *App) error {
	ctx := cmd.Context()
	if err := a.open(ctx, a.cfg.TUILogFile(), io.Discard); err != nil {
		return err
	}
	f, err := a.filter()
	if err != nil {
		return err
	}
	a.store.SetFilter(f)
	return tui.Run(ctx, tui.New(ctx, a.session, a.store, a.log))
}
