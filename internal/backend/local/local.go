// Package local is the embedded backend: a single signed-in session over
// the SQLite document database, rehydrated from a persisted token.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/sqlite"
	"github.com/Makepad-fr/tada/internal/model"
)

type Client struct {
	db     *sqlite.DB
	ownsDB bool
	tokens backend.TokenStore
	notify *backend.Notifier

	mu    sync.Mutex
	user  *backend.User
	token string
}

var _ backend.Backend = (*Client)(nil)

// Open opens the database at path and returns a client owning it.
func Open(ctx context.Context, path string, tokens backend.TokenStore) (*Client, error) {
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	c, err := New(ctx, db, tokens)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.ownsDB = true
	return c, nil
}

// New wraps an open database. A stored token that still resolves to a user
// signs the client in; a stale one is discarded.
func New(ctx context.Context, db *sqlite.DB, tokens backend.TokenStore) (*Client, error) {
	c := &Client{db: db, tokens: tokens, notify: backend.NewNotifier()}

	tok, err := tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if tok == "" {
		return c, nil
	}
	u, err := db.UserByToken(ctx, tok)
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		if err := tokens.DeleteToken(); err != nil {
			return nil, fmt.Errorf("drop stale token: %w", err)
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	c.setSession(&u, tok)
	return c, nil
}

func (c *Client) Close() error {
	c.notify.Close()
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (backend.User, error) {
	u, err := c.db.VerifyUser(ctx, email, password)
	if err != nil {
		return backend.User{}, err
	}
	return c.startSession(ctx, u)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (backend.User, error) {
	u, err := c.db.CreateUser(ctx, email, password)
	if err != nil {
		return backend.User{}, err
	}
	return c.startSession(ctx, u)
}

func (c *Client) startSession(ctx context.Context, u backend.User) (backend.User, error) {
	tok, err := c.db.IssueToken(ctx, u.UID)
	if err != nil {
		return backend.User{}, err
	}
	if err := c.tokens.SetToken(tok); err != nil {
		return backend.User{}, fmt.Errorf("save token: %w", err)
	}
	c.setSession(&u, tok)
	return u, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()

	if tok != "" {
		if err := c.db.RevokeToken(ctx, tok); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if err := c.tokens.DeleteToken(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	c.setSession(nil, "")
	return nil
}

func (c *Client) Subscribe() (<-chan *backend.User, func()) {
	return c.notify.Subscribe()
}

func (c *Client) setSession(u *backend.User, tok string) {
	c.mu.Lock()
	c.user, c.token = u, tok
	c.mu.Unlock()
	c.notify.Publish(u)
}

func (c *Client) uid() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return "", backend.ErrUnauthenticated
	}
	return c.user.UID, nil
}

func (c *Client) Query(ctx context.Context, uid string) ([]model.Todo, error) {
	cur, err := c.uid()
	if err != nil {
		return nil, err
	}
	if uid != cur {
		return nil, backend.ErrForbidden
	}
	return c.db.QueryTodos(ctx, uid)
}

func (c *Client) Add(ctx context.Context, t model.Todo) (string, error) {
	cur, err := c.uid()
	if err != nil {
		return "", err
	}
	if t.UID != cur {
		return "", backend.ErrForbidden
	}
	return c.db.AddTodo(ctx, t)
}

func (c *Client) Set(ctx context.Context, t model.Todo) error {
	cur, err := c.uid()
	if err != nil {
		return err
	}
	return c.db.SetTodo(ctx, cur, t)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	cur, err := c.uid()
	if err != nil {
		return err
	}
	return c.db.DeleteTodo(ctx, cur, id)
}
