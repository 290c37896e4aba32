// Package config loads tada settings from, in increasing priority:
// defaults, the TOML config file, TADA_* environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/Makepad-fr/tada/internal/credentials"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
)

const (
	FileName = "config.toml"

	BackendLocal  = "local"
	BackendRemote = "remote"

	DefaultTheme    = "classic"
	DefaultLogLevel = "info"
	DefaultLogFile  = "tada.log"
)

type Config struct {
	Backend Backend `toml:"backend"`
	Auth    Auth    `toml:"auth"`
	UI      UI      `toml:"ui"`
	Log     Log     `toml:"log"`

	// Path is the config file that was read, empty when none was found.
	Path string `toml:"-"`
}

// Backend holds the project identity of the backend. Only Kind,
// DatabaseURL, APIKey and DataDir are interpreted; the rest are passed
// through untouched.
type Backend struct {
	Kind              string `toml:"kind"`
	ProjectID         string `toml:"project_id"`
	APIKey            string `toml:"api_key"`
	AppID             string `toml:"app_id"`
	AuthDomain        string `toml:"auth_domain"`
	DatabaseURL       string `toml:"database_url"`
	MessagingSenderID string `toml:"messaging_sender_id"`
	DataDir           string `toml:"data_dir"`
}

type Auth struct {
	AutoProvision bool `toml:"auto_provision"`
}

type UI struct {
	Theme  string `toml:"theme"`
	Filter string `toml:"filter"`
}

type Log struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Default returns the built-in settings rooted at dir (normally ~/.tada).
// Log.File stays empty so commands log to stderr; see TUILogFile.
func Default(dir string) *Config {
	return &Config{
		Backend: Backend{Kind: BackendLocal, DataDir: dir},
		Auth:    Auth{AutoProvision: true},
		UI:      UI{Theme: DefaultTheme},
		Log:     Log{Level: DefaultLogLevel},
	}
}

// TUILogFile is where the interactive UI logs: Log.File when set, else
// <data_dir>/tada.log, since the UI owns the terminal.
func (c *Config) TUILogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Backend.DataDir, DefaultLogFile)
}

// DefaultPath is ~/.tada/config.toml.
func DefaultPath() (string, error) {
	dir, err := credentials.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load builds the effective config. An empty path means DefaultPath, which
// may be absent; an explicit path must exist. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	dir, err := credentials.DefaultDir()
	if err != nil {
		return nil, err
	}
	cfg := Default(dir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, FileName)
	}
	if err := loadFile(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else {
		cfg.Path = path
	}

	loadFromEnv(cfg)

	if fs != nil {
		if err := loadFromFlags(cfg, fs); err != nil {
			return nil, fmt.Errorf("parsing flags: %w", err)
		}
	}

	if err := finalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func finalize(cfg *Config) error {
	cfg.Backend.Kind = strings.ToLower(strings.TrimSpace(cfg.Backend.Kind))
	switch cfg.Backend.Kind {
	case BackendLocal:
	case BackendRemote:
		if strings.TrimSpace(cfg.Backend.DatabaseURL) == "" {
			return errors.New("backend.database_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("backend.kind %q: want %s or %s", cfg.Backend.Kind, BackendLocal, BackendRemote)
	}

	if _, err := model.ParseFilter(cfg.UI.Filter); err != nil {
		return fmt.Errorf("ui.filter: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}

	cfg.Backend.DataDir = expandPath(cfg.Backend.DataDir)
	cfg.Log.File = expandPath(cfg.Log.File)
	return nil
}

// InitialFilter is the parsed ui.filter. Load has already validated it.
func (c *Config) InitialFilter() model.Filter {
	f, _ := model.ParseFilter(c.UI.Filter)
	return f
}

func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
