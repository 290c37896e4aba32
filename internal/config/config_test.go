package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/Makepad-fr/tada/internal/model"
)

// isolate points HOME at a temp dir and clears every TADA_* override.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"BACKEND", "PROJECT_ID", "API_KEY", "APP_ID", "AUTH_DOMAIN", "DATABASE_URL",
		"MESSAGING_SENDER_ID", "DATA_DIR", "THEME", "FILTER", "LOG_FILE", "LOG_LEVEL",
		"AUTO_PROVISION",
	} {
		t.Setenv(envPrefix+name, "")
	}
	return home
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := filepath.Join(home, ".tada")
	if cfg.Backend.Kind != BackendLocal {
		t.Errorf("Kind: got %q, want %q", cfg.Backend.Kind, BackendLocal)
	}
	if cfg.Backend.DataDir != dir {
		t.Errorf("DataDir: got %q, want %q", cfg.Backend.DataDir, dir)
	}
	if !cfg.Auth.AutoProvision {
		t.Error("AutoProvision: got false, want true")
	}
	if cfg.Log.File != "" {
		t.Errorf("Log.File: got %q, want empty", cfg.Log.File)
	}
	if got := cfg.TUILogFile(); got != filepath.Join(dir, DefaultLogFile) {
		t.Errorf("TUILogFile: got %q", got)
	}
	if cfg.Path != "" {
		t.Errorf("Path: got %q, want empty", cfg.Path)
	}
	if cfg.InitialFilter() != model.FilterAll {
		t.Errorf("InitialFilter: got %v", cfg.InitialFilter())
	}
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, filepath.Join(home, ".tada"), `
[backend]
kind = "remote"
database_url = "http://file.example"
project_id = "demo-project"

[auth]
auto_provision = false

[ui]
theme = "neon"
filter = "done"

[log]
level = "warn"
`)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("file only: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path: got %q, want %q", cfg.Path, path)
	}
	if cfg.Backend.DatabaseURL != "http://file.example" || cfg.UI.Theme != "neon" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Backend.ProjectID != "demo-project" {
		t.Errorf("ProjectID: got %q", cfg.Backend.ProjectID)
	}
	if cfg.Auth.AutoProvision {
		t.Error("AutoProvision: file should turn it off")
	}
	if cfg.InitialFilter() != model.FilterDone {
		t.Errorf("InitialFilter: got %v", cfg.InitialFilter())
	}

	t.Setenv("TADA_DATABASE_URL", "http://env.example")
	t.Setenv("TADA_THEME", "mono")
	t.Setenv("TADA_AUTO_PROVISION", "yes")

	fs := pflag.NewFlagSet("tada", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--database-url", "http://flag.example"}); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load("", fs)
	if err != nil {
		t.Fatalf("layered: %v", err)
	}
	if got := cfg.Backend.DatabaseURL; got != "http://flag.example" {
		t.Errorf("DatabaseURL: got %q, want flag value", got)
	}
	if got := cfg.UI.Theme; got != "mono" {
		t.Errorf("Theme: got %q, want env value", got)
	}
	if got := cfg.Log.Level; got != "warn" {
		t.Errorf("Level: got %q, want file value", got)
	}
	if !cfg.Auth.AutoProvision {
		t.Error("AutoProvision: env should turn it back on")
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown kind", "[backend]\nkind = \"cloud\"\n"},
		{"remote without url", "[backend]\nkind = \"remote\"\n"},
		{"bad filter", "[ui]\nfilter = \"someday\"\n"},
		{"bad level", "[log]\nlevel = \"loud\"\n"},
		{"unknown key", "[ui]\ncolour = \"red\"\n"},
		{"not toml", "backend = [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := writeConfig(t, t.TempDir(), tt.body)
			if _, err := Load(path, nil); err == nil {
				t.Errorf("Load accepted %q", tt.body)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)
	if got, want := expandPath("~/data"), filepath.Join(home, "data"); got != want {
		t.Errorf("expandPath: got %q, want %q", got, want)
	}
	if got := expandPath("/abs"); got != "/abs" {
		t.Errorf("expandPath: got %q", got)
	}
}
