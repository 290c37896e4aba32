// Package backend defines the document store and auth provider the app
// talks to. Implementations live in the subpackages.
package backend

import (
	"context"
	"errors"

	"github.com/Makepad-fr/tada/internal/model"
)

// Collection is the document collection holding todos.
const Collection = "todos"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthenticated    = errors.New("not signed in")
	ErrNotFound           = errors.New("document not found")
	ErrForbidden          = errors.New("document belongs to another user")
	ErrInvalidDocument    = errors.New("invalid document")
)

// User is what the auth provider knows about the signed-in account.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Documents is the todo collection of the backend.
type Documents interface {
	// Query returns the todos owned by uid, oldest first.
	Query(ctx context.Context, uid string) ([]model.Todo, error)
	// Add inserts a new document and returns its generated id.
	Add(ctx context.Context, t model.Todo) (string, error)
	// Set writes the whole document keyed by t.ID, creating it if needed.
	Set(ctx context.Context, t model.Todo) error
	Delete(ctx context.Context, id string) error
}

// Auth is the email/password auth provider.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	SignUp(ctx context.Context, email, password string) (User, error)
	SignOut(ctx context.Context) error
	// Subscribe delivers the current user first and then every change. A
	// nil user means signed out. The returned func cancels the subscription.
	Subscribe() (<-chan *User, func())
}

// Backend bundles both halves; local and remote clients implement it.
type Backend interface {
	Documents
	Auth
	Close() error
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error
}
