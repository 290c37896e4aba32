package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/backend/sqlite"
	"github.com/Makepad-fr/tada/internal/credentials"
	"github.com/Makepad-fr/tada/internal/model"
)

func setup(t *testing.T) (*sqlite.DB, credentials.File) {
	t.Helper()
	t.Setenv(credentials.EnvToken, "")
	dir := t.TempDir()
	db, err := sqlite.Open(context.Background(), filepath.Join(dir, sqlite.FileName))
	require.NoError(t, err)
	db.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { _ = db.Close() })
	return db, credentials.File{Dir: filepath.Join(dir, "creds")}
}

func TestClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	db, tokens := setup(t)

	c, err := New(ctx, db, tokens)
	require.NoError(t, err)
	defer c.Close()

	ch, cancel := c.Subscribe()
	defer cancel()
	require.Nil(t, <-ch, "fresh client starts signed out")

	_, err = c.SignIn(ctx, "ada@example.com", "pw")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)

	u, err := c.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	got := <-ch
	require.NotNil(t, got)
	assert.Equal(t, u.UID, got.UID)

	tok, err := tokens.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	// A second client over the same token rehydrates the session.
	c2, err := New(ctx, db, tokens)
	require.NoError(t, err)
	ch2, cancel2 := c2.Subscribe()
	defer cancel2()
	again := <-ch2
	require.NotNil(t, again)
	assert.Equal(t, u.UID, again.UID)
	require.NoError(t, c2.Close())

	require.NoError(t, c.SignOut(ctx))
	assert.Nil(t, <-ch)
	left, err := tokens.Token()
	require.NoError(t, err)
	assert.Empty(t, left)

	// The revoked token no longer works even if someone kept a copy.
	_, err = db.UserByToken(ctx, tok)
	assert.ErrorIs(t, err, backend.ErrUnauthenticated)
}

func TestClient_StaleTokenIsDropped(t *testing.T) {
	ctx := context.Background()
	db, tokens := setup(t)
	require.NoError(t, tokens.SetToken("not-a-session"))

	c, err := New(ctx, db, tokens)
	require.NoError(t, err)
	defer c.Close()

	tok, err := tokens.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestClient_DocumentsScopedToSession(t *testing.T) {
	ctx := context.Background()
	db, tokens := setup(t)

	c, err := New(ctx, db, tokens)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Query(ctx, "u1")
	assert.ErrorIs(t, err, backend.ErrUnauthenticated)

	ada, err := c.SignUp(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	id, err := c.Add(ctx, model.Todo{Body: "Buy milk", Status: model.StatusActive, UID: ada.UID, CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = c.Add(ctx, model.Todo{Body: "x", Status: model.StatusActive, UID: "someone-else", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, backend.ErrForbidden)

	require.NoError(t, c.SignOut(ctx))
	bob, err := c.SignUp(ctx, "bob@example.com", "pw")
	require.NoError(t, err)

	_, err = c.Query(ctx, ada.UID)
	assert.ErrorIs(t, err, backend.ErrForbidden)
	assert.ErrorIs(t, c.Delete(ctx, id), backend.ErrForbidden)

	items, err := c.Query(ctx, bob.UID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
