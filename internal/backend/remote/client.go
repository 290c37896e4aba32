// Package remote talks to a `tada serve` backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/server"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  backend.TokenStore
	notify  *backend.Notifier

	mu    sync.Mutex
	user  *backend.User
	token string
}

var _ backend.Backend = (*Client)(nil)

// Options configures New. HTTPClient defaults to http.DefaultClient.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a client for the API at opts.BaseURL. A stored token is
// checked against the server; a rejected one is discarded.
func New(ctx context.Context, opts Options, tokens backend.TokenStore) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q: must be an absolute http(s) url", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		apiKey:  opts.APIKey,
		http:    hc,
		tokens:  tokens,
		notify:  backend.NewNotifier(),
	}

	tok, err := tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if tok == "" {
		return c, nil
	}
	var me backend.User
	err = c.do(ctx, http.MethodGet, "/v1/auth/me", tok, nil, &me)
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		if err := tokens.DeleteToken(); err != nil {
			return nil, fmt.Errorf("drop stale token: %w", err)
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	c.setSession(&me, tok)
	return c, nil
}

func (c *Client) Close() error {
	c.notify.Close()
	return nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (backend.User, error) {
	return c.startSession(ctx, "/v1/auth/signin", email, password)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (backend.User, error) {
	return c.startSession(ctx, "/v1/auth/signup", email, password)
}

func (c *Client) startSession(ctx context.Context, path, email, password string) (backend.User, error) {
	var resp server.SessionResponse
	req := server.CredentialsRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, path, "", req, &resp); err != nil {
		return backend.User{}, err
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return backend.User{}, fmt.Errorf("save token: %w", err)
	}
	c.setSession(&resp.User, resp.Token)
	return resp.User, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	tok := c.currentToken()
	if tok != "" {
		err := c.do(ctx, http.MethodPost, "/v1/auth/signout", tok, nil, nil)
		if err != nil && !errors.Is(err, backend.ErrUnauthenticated) {
			return err
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

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) authedToken() (string, error) {
	tok := c.currentToken()
	if tok == "" {
		return "", backend.ErrUnauthenticated
	}
	return tok, nil
}

// Query asks the server for the signed-in user's todos. The server scopes
// by token, so a uid other than the session's is refused locally.
func (c *Client) Query(ctx context.Context, uid string) ([]model.Todo, error) {
	tok, err := c.authedToken()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	cur := c.user
	c.mu.Unlock()
	if cur == nil || cur.UID != uid {
		return nil, backend.ErrForbidden
	}
	var items []model.Todo
	if err := c.do(ctx, http.MethodGet, "/v1/todos", tok, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Todo{}
	}
	return items, nil
}

func (c *Client) Add(ctx context.Context, t model.Todo) (string, error) {
	tok, err := c.authedToken()
	if err != nil {
		return "", err
	}
	var resp server.AddResponse
	if err := c.do(ctx, http.MethodPost, "/v1/todos", tok, t, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) Set(ctx context.Context, t model.Todo) error {
	tok, err := c.authedToken()
	if err != nil {
		return err
	}
	if t.ID == "" {
		return fmt.Errorf("set todo: %w", backend.ErrNotFound)
	}
	return c.do(ctx, http.MethodPut, "/v1/todos/"+url.PathEscape(t.ID), tok, t, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	tok, err := c.authedToken()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/v1/todos/"+url.PathEscape(id), tok, nil, nil)
}

// do sends body as JSON and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(server.APIKeyHeader, c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e server.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return errorFor(resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorFor maps an API error back to the backend sentinel errors.
func errorFor(status int, msg string) error {
	var sentinel error
	switch status {
	case http.StatusUnauthorized:
		sentinel = backend.ErrUnauthenticated
		if msg == backend.ErrInvalidCredentials.Error() {
			sentinel = backend.ErrInvalidCredentials
		}
	case http.StatusForbidden:
		sentinel = backend.ErrForbidden
	case http.StatusNotFound:
		sentinel = backend.ErrNotFound
	case http.StatusConflict:
		sentinel = backend.ErrUserExists
	case http.StatusBadRequest:
		sentinel = backend.ErrInvalidDocument
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fmt.Errorf("backend: %d %s", status, msg)
	}
	if msg == "" || msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
