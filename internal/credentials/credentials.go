// Package credentials keeps the backend session token between runs so the
// app can rehydrate a signed-in session on start.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	FileName = "credentials.json"
	EnvToken = "TADA_TOKEN"

	SourceEnv  = "env"
	SourceFile = "file"
)

type TokenInfo struct {
	Token     string    `json:"token"`
	Source    string    `json:"source"`     // SourceEnv | SourceFile
	CreatedAt time.Time `json:"created_at"` // when we saved to file
}

// File stores the token as JSON in Dir. The TADA_TOKEN env var, when set,
// takes precedence and is never written or deleted.
type File struct {
	Dir string
}

// DefaultDir is ~/.tada.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

func (f File) path() string { return filepath.Join(f.Dir, FileName) }

// Info returns the stored token, or nil when not logged in.
func (f File) Info() (*TokenInfo, error) {
	// 1) env override
	if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
		return &TokenInfo{Token: stripBearer(env), Source: SourceEnv}, nil
	}

	// 2) file
	b, err := os.ReadFile(f.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	return &ti, nil
}

// Token implements backend.TokenStore. It returns "" when not logged in.
func (f File) Token() (string, error) {
	ti, err := f.Info()
	if err != nil || ti == nil {
		return "", err
	}
	return ti.Token, nil
}

// SetToken implements backend.TokenStore.
func (f File) SetToken(token string) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	// ensure the dir exists with 0700
	if err := os.MkdirAll(f.Dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	ti := TokenInfo{
		Token:     token,
		Source:    SourceFile,
		CreatedAt: time.Now(),
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	// write with 0600 (owner-only)
	if err := os.WriteFile(f.path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// DeleteToken implements backend.TokenStore.
func (f File) DeleteToken() error {
	if err := os.Remove(f.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
