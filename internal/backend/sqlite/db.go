// Package sqlite is the document database behind both the embedded backend
// and `tada serve`: users, session tokens and the todos collection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/Makepad-fr/tada/internal/backend"
	"github.com/Makepad-fr/tada/internal/model"
)

const FileName = "tada.sqlite"

// DB is safe for concurrent use.
type DB struct {
	sql *sql.DB

	// BcryptCost is used for new password hashes.
	BcryptCost int
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{sql: db, BcryptCost: bcrypt.DefaultCost}, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tokens (
			token TEXT PRIMARY KEY,
			uid TEXT NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			uid TEXT NOT NULL,
			body TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS todos_uid_created ON todos(uid, created_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new account. It fails with backend.ErrUserExists
// when the email is taken.
func (d *DB) CreateUser(ctx context.Context, email, password string) (backend.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return backend.User{}, backend.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.BcryptCost)
	if err != nil {
		return backend.User{}, fmt.Errorf("hash password: %w", err)
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return backend.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT uid FROM users WHERE email = ?`, email).Scan(&existing)
	switch {
	case err == nil:
		return backend.User{}, backend.ErrUserExists
	case !errors.Is(err, sql.ErrNoRows):
		return backend.User{}, err
	}

	u := backend.User{UID: uuid.NewString(), Email: email}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users(uid, email, password_hash, created_at_unixms) VALUES(?, ?, ?, ?)`,
		u.UID, u.Email, string(hash), time.Now().UTC().UnixMilli()); err != nil {
		return backend.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return backend.User{}, err
	}
	return u, nil
}

// VerifyUser checks an email/password pair. Unknown emails and wrong
// passwords both yield backend.ErrInvalidCredentials.
func (d *DB) VerifyUser(ctx context.Context, email, password string) (backend.User, error) {
	email = normalizeEmail(email)
	var u backend.User
	var hash string
	err := d.sql.QueryRowContext(ctx, `SELECT uid, email, password_hash FROM users WHERE email = ?`, email).
		Scan(&u.UID, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.User{}, backend.ErrInvalidCredentials
	}
	if err != nil {
		return backend.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return backend.User{}, backend.ErrInvalidCredentials
	}
	return u, nil
}

// IssueToken starts a session for uid.
func (d *DB) IssueToken(ctx context.Context, uid string) (string, error) {
	token := uuid.NewString()
	if _, err := d.sql.ExecContext(ctx,
		`INSERT INTO tokens(token, uid, created_at_unixms) VALUES(?, ?, ?)`,
		token, uid, time.Now().UTC().UnixMilli()); err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

// UserByToken resolves a session token. Unknown tokens yield
// backend.ErrUnauthenticated.
func (d *DB) UserByToken(ctx context.Context, token string) (backend.User, error) {
	if token == "" {
		return backend.User{}, backend.ErrUnauthenticated
	}
	var u backend.User
	err := d.sql.QueryRowContext(ctx,
		`SELECT u.uid, u.email FROM tokens t JOIN users u ON u.uid = t.uid WHERE t.token = ?`, token).
		Scan(&u.UID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.User{}, backend.ErrUnauthenticated
	}
	if err != nil {
		return backend.User{}, err
	}
	return u, nil
}

// RevokeToken ends a session. Revoking an unknown token is not an error.
func (d *DB) RevokeToken(ctx context.Context, token string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, token)
	return err
}

// QueryTodos returns the todos owned by uid ordered by creation time.
func (d *DB) QueryTodos(ctx context.Context, uid string) ([]model.Todo, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, uid, body, status, created_at_unixms FROM todos WHERE uid = ? ORDER BY created_at_unixms ASC, rowid ASC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		var status string
		var createdMs int64
		if err := rows.Scan(&t.ID, &t.UID, &t.Body, &status, &createdMs); err != nil {
			return nil, err
		}
		t.Status = model.Status(status)
		t.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTodo inserts t under a fresh id, ignoring t.ID.
func (d *DB) AddTodo(ctx context.Context, t model.Todo) (string, error) {
	if err := validate(t); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := d.sql.ExecContext(ctx,
		`INSERT INTO todos(id, uid, body, status, created_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		id, t.UID, t.Body, string(t.Status), t.CreatedAt.UTC().UnixMilli()); err != nil {
		return "", fmt.Errorf("insert todo: %w", err)
	}
	return id, nil
}

// SetTodo upserts t on behalf of uid. Documents owned by someone else, or
// a t.UID other than uid, yield backend.ErrForbidden.
func (d *DB) SetTodo(ctx context.Context, uid string, t model.Todo) error {
	if t.ID == "" {
		return fmt.Errorf("set todo: %w", backend.ErrNotFound)
	}
	if t.UID != uid {
		return backend.ErrForbidden
	}
	if err := validate(t); err != nil {
		return err
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkOwner(ctx, tx, t.ID, uid, true); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO todos(id, uid, body, status, created_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		t.ID, t.UID, t.Body, string(t.Status), t.CreatedAt.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("upsert todo: %w", err)
	}
	return tx.Commit()
}

// DeleteTodo removes a todo owned by uid.
func (d *DB) DeleteTodo(ctx context.Context, uid, id string) error {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkOwner(ctx, tx, id, uid, false); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return tx.Commit()
}

// checkOwner fails unless id belongs to uid. A missing row passes only
// when allowMissing is set.
func checkOwner(ctx context.Context, tx *sql.Tx, id, uid string, allowMissing bool) error {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT uid FROM todos WHERE id = ?`, id).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if allowMissing {
			return nil
		}
		return backend.ErrNotFound
	case err != nil:
		return err
	case owner != uid:
		return backend.ErrForbidden
	}
	return nil
}

func validate(t model.Todo) error {
	if t.UID == "" {
		return backend.ErrUnauthenticated
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status %q", backend.ErrInvalidDocument, t.Status)
	}
	return nil
}
