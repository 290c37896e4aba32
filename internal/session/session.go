// Package session tracks who is signed in against the backend auth
// provider.
//
// Like store.Store, a Manager is owned by one goroutine: operations return
// an Op to run elsewhere and the Result goes back through Apply.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

var ErrMissingCredentials = errors.New("email and password are required")

type State int

const (
	Unknown State = iota
	SignedOut
	SignedIn
)

func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case SignedIn:
		return "signed in"
	}
	return "loading"
}

type Kind int

const (
	AuthChanged Kind = iota + 1
	SignInDone
	SignOutDone
)

type Result struct {
	Kind Kind
	User *backend.User
	// Provisioned is set when sign-in failed and a new account was created.
	Provisioned bool
	Err         error
}

type Op func(ctx context.Context) Result

// Change tells the caller what to do with the todo store.
type Change int

const (
	NoChange Change = iota
	// BecameSignedIn: load the user's todos.
	BecameSignedIn
	// BecameSignedOut: clear the todos.
	BecameSignedOut
)

type Options struct {
	// AutoProvision treats any sign-in failure as "no such account" and
	// retries as a sign-up with the same credentials. A mistyped password
	// for an existing email then fails at sign-up with ErrUserExists.
	AutoProvision bool
}

type Manager struct {
	auth backend.Auth
	log  *log.Logger
	opts Options

	state   State
	session model.Session
}

func New(auth backend.Auth, logger *log.Logger, opts Options) *Manager {
	return &Manager{auth: auth, log: logger, opts: opts}
}

func (m *Manager) State() State            { return m.state }
func (m *Manager) Session() model.Session { return m.session }

// Watch subscribes to the auth-state stream. Feed each delivery to Apply
// via Changed.
func (m *Manager) Watch() (<-chan *backend.User, func()) {
	return m.auth.Subscribe()
}

// Changed wraps an auth-state delivery as a Result.
func Changed(u *backend.User) Result {
	return Result{Kind: AuthChanged, User: u}
}

// SignIn returns the sign-in attempt, falling back to account creation when
// AutoProvision is on.
func (m *Manager) SignIn(email, password string) (Op, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	auth, logger, provision := m.auth, m.log, m.opts.AutoProvision
	return func(ctx context.Context) Result {
		u, err := auth.SignIn(ctx, email, password)
		if err == nil {
			return Result{Kind: SignInDone, User: &u}
		}
		if !provision {
			return Result{Kind: SignInDone, Err: err}
		}
		logger.Info("Account not found, creating a new one!", "email", email, "err", err)
		u, err = auth.SignUp(ctx, email, password)
		if err != nil {
			return Result{Kind: SignInDone, Err: fmt.Errorf("create account: %w", err)}
		}
		return Result{Kind: SignInDone, User: &u, Provisioned: true}
	}, nil
}

func (m *Manager) SignOut() Op {
	auth := m.auth
	return func(ctx context.Context) Result {
		return Result{Kind: SignOutDone, Err: auth.SignOut(ctx)}
	}
}

// Apply folds a Result into the session state. Failures are logged and
// returned without changing state.
func (m *Manager) Apply(r Result) (Change, error) {
	switch r.Kind {
	case AuthChanged, SignInDone:
		if r.Err != nil {
			m.log.Error("Failed to sign in", "err", r.Err)
			if m.state == Unknown {
				m.state = SignedOut
			}
			return NoChange, r.Err
		}
		if r.User == nil {
			return m.signedOut(), nil
		}
		return m.signedIn(*r.User), nil

	case SignOutDone:
		if r.Err != nil {
			m.log.Error("Sign Out Error", "err", r.Err)
			return NoChange, r.Err
		}
		m.log.Info("Signed Out")
		m.state = SignedOut
		m.session = model.Session{}
		return BecameSignedOut, nil
	}
	return NoChange, nil
}

// Sync runs op inline and applies its Result.
func (m *Manager) Sync(ctx context.Context, op Op) (Change, error) {
	return m.Apply(op(ctx))
}

func (m *Manager) signedIn(u backend.User) Change {
	same := m.state == SignedIn && m.session.UID == u.UID
	m.state = SignedIn
	m.session = model.Session{UID: u.UID, Email: u.Email}
	if same {
		return NoChange
	}
	return BecameSignedIn
}

func (m *Manager) signedOut() Change {
	m.state = SignedOut
	m.session = model.Session{}
	return BecameSignedOut
}
