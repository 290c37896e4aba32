package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/credentials"
	"github.com/Makepad-fr/tada/internal/format"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the signed-in session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: tada auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))
	cmd.AddCommand(newAuthWhoAmICmd(app))
	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password (creates the account if needed)",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.connect(ctx, cmd.ErrOrStderr()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				fmt.Fprint(out, "Email: ")
				line, err := readLine(in)
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = line
			}
			fmt.Fprint(out, "Password: ")
			password, err := readPassword(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			op, err := app.session.SignIn(email, password)
			if err != nil {
				return usagef("login: %v", err)
			}
			r := op(ctx)
			if _, err := app.session.Apply(r); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if r.Provisioned {
				ui.OK(out, "created account "+app.session.Session().Email)
			}
			ui.OK(out, "signed in as "+app.session.Session().Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when empty)")
	return cmd
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session token",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ti, err := app.tokens().Info()
			if err != nil {
				return err
			}
			if ti != nil && ti.Source == credentials.SourceEnv {
				ui.OK(out, "token is provided by "+credentials.EnvToken+" env var (nothing to delete)")
				return nil
			}

			if err := app.connect(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			app.resolveSession()
			if app.session.State() != session.SignedIn {
				ui.OK(out, "already signed out")
				return nil
			}
			if _, err := app.session.Sync(cmd.Context(), app.session.SignOut()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK(out, "signed out")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the session comes from",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := app.connect(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			app.resolveSession()

			fmt.Fprintf(out, "backend: %s\n", app.cfg.Backend.Kind)
			if app.cfg.Path != "" {
				fmt.Fprintf(out, "config: %s\n", app.cfg.Path)
			}
			if app.session.State() != session.SignedIn {
				fmt.Fprintln(out, ui.Dim("not signed in"))
				fmt.Fprintln(out, "Run: tada auth login")
				return nil
			}
			fmt.Fprintf(out, "signed in: %s\n", app.session.Session().Email)

			ti, err := app.tokens().Info()
			if err != nil {
				return err
			}
			if ti != nil {
				fmt.Fprintf(out, "source: %s\n", ti.Source)
				if !ti.CreatedAt.IsZero() {
					fmt.Fprintf(out, "since: %s\n", ti.CreatedAt.UTC().Format(time.RFC3339))
				}
			}
			fmt.Fprintln(out, "env override: "+credentials.EnvToken)
			return nil
		},
	}
}

func newAuthWhoAmICmd(app *App) *cobra.Command {
	var outFormat string
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !format.Valid(outFormat) {
				return usagef("whoami: unknown format %q (want text, json or yaml)", outFormat)
			}
			if err := app.connect(cmd.Context(), cmd.ErrOrStderr()); err != nil {
				return err
			}
			app.resolveSession()
			if app.session.State() != session.SignedIn {
				return errNotSignedIn
			}
			s := app.session.Session()
			if format.Machine(outFormat) {
				return format.Write(cmd.OutOrStdout(), s, outFormat, true)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", s.Email, s.UID)
			return nil
		},
	}
	cmd.Flags().StringVar(&outFormat, "format", format.Text, "output format (text|json|yaml)")
	return cmd
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(raw io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(f.Fd()) {
		b, err := term.ReadPassword(f.Fd())
		return string(b), err
	}
	return readLine(buffered)
}
