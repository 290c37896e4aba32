package config

import "github.com/spf13/pflag"

// Flag names registered by RegisterFlags.
const (
	FlagConfig      = "config"
	FlagBackend     = "backend"
	FlagDataDir     = "data-dir"
	FlagDatabaseURL = "database-url"
	FlagTheme       = "theme"
	FlagLogFile     = "log-file"
	FlagLogLevel    = "log-level"
)

// RegisterFlags adds the config overrides to fs. Defaults are left empty so
// only flags the user actually set take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "config file (default ~/.tada/config.toml)")
	fs.String(FlagBackend, "", "backend kind: local or remote")
	fs.String(FlagDataDir, "", "directory of the local database")
	fs.String(FlagDatabaseURL, "", "base url of the remote backend")
	fs.String(FlagTheme, "", "color theme: classic, neon or mono")
	fs.String(FlagLogFile, "", "log file")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn or error")
}

func loadFromFlags(cfg *Config, fs *pflag.FlagSet) error {
	for name, dst := range map[string]*string{
		FlagBackend:     &cfg.Backend.Kind,
		FlagDataDir:     &cfg.Backend.DataDir,
		FlagDatabaseURL: &cfg.Backend.DatabaseURL,
		FlagTheme:       &cfg.UI.Theme,
		FlagLogFile:     &cfg.Log.File,
		FlagLogLevel:    &cfg.Log.Level,
	} {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
