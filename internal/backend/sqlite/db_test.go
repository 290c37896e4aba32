package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", FileName))
	require.NoError(t, err)
	db.BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	u, err := db.CreateUser(ctx, " Ada@Example.com ", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, u.UID)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = db.CreateUser(ctx, "ada@example.com", "other")
	assert.ErrorIs(t, err, backend.ErrUserExists)

	got, err := db.VerifyUser(ctx, "ADA@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = db.VerifyUser(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)

	_, err = db.VerifyUser(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	u, err := db.CreateUser(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	tok, err := db.IssueToken(ctx, u.UID)
	require.NoError(t, err)

	got, err := db.UserByToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	require.NoError(t, db.RevokeToken(ctx, tok))
	_, err = db.UserByToken(ctx, tok)
	assert.ErrorIs(t, err, backend.ErrUnauthenticated)

	_, err = db.UserByToken(ctx, "")
	assert.ErrorIs(t, err, backend.ErrUnauthenticated)
}

func TestTodos_QueryOrderAndOwnership(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of order; Query sorts by creation time.
	idLate, err := db.AddTodo(ctx, model.Todo{Body: "late", Status: model.StatusActive, UID: "u1", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	idEarly, err := db.AddTodo(ctx, model.Todo{Body: "early", Status: model.StatusDone, UID: "u1", CreatedAt: base})
	require.NoError(t, err)
	_, err = db.AddTodo(ctx, model.Todo{Body: "other", Status: model.StatusActive, UID: "u2", CreatedAt: base})
	require.NoError(t, err)

	items, err := db.QueryTodos(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, idEarly, items[0].ID)
	assert.Equal(t, idLate, items[1].ID)
	assert.Equal(t, base, items[0].CreatedAt)
	assert.Equal(t, model.StatusDone, items[0].Status)

	// u2 cannot touch u1's documents.
	upd := items[0]
	upd.UID = "u2"
	assert.ErrorIs(t, db.SetTodo(ctx, "u2", upd), backend.ErrForbidden)
	assert.ErrorIs(t, db.SetTodo(ctx, "u2", items[0]), backend.ErrForbidden)
	assert.ErrorIs(t, db.DeleteTodo(ctx, "u2", idEarly), backend.ErrForbidden)

	upd = items[0]
	upd.Body = "early, edited"
	upd.Status = model.StatusActive
	require.NoError(t, db.SetTodo(ctx, "u1", upd))

	require.NoError(t, db.DeleteTodo(ctx, "u1", idLate))
	assert.ErrorIs(t, db.DeleteTodo(ctx, "u1", idLate), backend.ErrNotFound)

	items, err = db.QueryTodos(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "early, edited", items[0].Body)
	assert.Equal(t, model.StatusActive, items[0].Status)
}

func TestTodos_SetCreatesMissingDocument(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	td := model.Todo{ID: "fixed-id", Body: "b", Status: model.StatusActive, UID: "u1", CreatedAt: time.Now()}
	require.NoError(t, db.SetTodo(ctx, "u1", td))

	items, err := db.QueryTodos(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fixed-id", items[0].ID)
}

func TestTodos_Validation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.AddTodo(ctx, model.Todo{Body: "x", Status: model.StatusActive})
	assert.ErrorIs(t, err, backend.ErrUnauthenticated)

	_, err = db.AddTodo(ctx, model.Todo{Body: "x", Status: "Later", UID: "u1"})
	assert.ErrorIs(t, err, backend.ErrInvalidDocument)

	items, err := db.QueryTodos(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, items)
}
