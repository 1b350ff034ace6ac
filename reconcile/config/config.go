// Package config loads the settings of the reconcile tool from a TOML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml"
)

const dirName = "ledger-reconcile"

// Config represents the tool configuration.
type Config struct {
	// LedgerFile is the ledger to reconcile.
	LedgerFile string
	// LedgerBin is the ledger executable used to query the file.
	LedgerBin string
	// Editor is the command opening the file at a posting, with {file} and
	// {line} placeholders.
	Editor string
	// FZF enables the fzf account picker when fzf is installed.
	FZF bool

	PendingColor string
	ClearedColor string

	// Settle is how long a file event must be quiet before the file is
	// looked at.
	Settle time.Duration
	// ReloadInterval is the minimum time between two reloads triggered by
	// external changes.
	ReloadInterval  time.Duration
	AccountCacheTTL time.Duration

	LogFile string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LedgerBin:       "ledger",
		Editor:          "code -g {file}:{line}",
		FZF:             true,
		PendingColor:    "#3b82f6",
		ClearedColor:    "#22c55e",
		Settle:          100 * time.Millisecond,
		ReloadInterval:  500 * time.Millisecond,
		AccountCacheTTL: 5 * time.Minute,
	}
}

// DefaultPath returns the configuration file looked for when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, dirName, "config.toml")
}

// Load builds the configuration. path names the TOML file; when empty the
// file at DefaultPath is read if it exists. A .env file in the working
// directory is loaded into the environment first, without overriding
// variables already set.
func Load(path string) (*Config, error) {
	// Try to load .env from current directory (ignore error if not found)
	_ = godotenv.Load()

	c := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		err := c.loadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return nil, err
		}
	}

	c.LedgerFile = getEnvOrDefault("LEDGER_FILE", c.LedgerFile)
	c.LedgerBin = getEnvOrDefault("LEDGER_RECONCILE_BIN", c.LedgerBin)
	c.Editor = getEnvOrDefault("LEDGER_RECONCILE_EDITOR", c.Editor)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	tree, err := toml.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	texts := map[string]*string{
		"file":          &c.LedgerFile,
		"ledger_bin":    &c.LedgerBin,
		"editor":        &c.Editor,
		"pending_color": &c.PendingColor,
		"cleared_color": &c.ClearedColor,
		"log_file":      &c.LogFile,
	}
	for key, dst := range texts {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(string)
		if !ok {
			return fmt.Errorf("%s: %s must be a string", path, key)
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"settle":            &c.Settle,
		"reload_interval":   &c.ReloadInterval,
		"account_cache_ttl": &c.AccountCacheTTL,
	}
	for key, dst := range durations {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(string)
		if !ok {
			return fmt.Errorf("%s: %s must be a duration string", path, key)
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid %s: %w", path, key, err)
		}
		*dst = d
	}

	if tree.Has("fzf") {
		v, ok := tree.Get("fzf").(bool)
		if !ok {
			return fmt.Errorf("%s: fzf must be a boolean", path)
		}
		c.FZF = v
	}
	return nil
}

// Validate checks the colors and durations.
func (c *Config) Validate() error {
	if _, err := colorful.Hex(c.PendingColor); err != nil {
		return fmt.Errorf("invalid pending_color %q: %w", c.PendingColor, err)
	}
	if _, err := colorful.Hex(c.ClearedColor); err != nil {
		return fmt.Errorf("invalid cleared_color %q: %w", c.ClearedColor, err)
	}
	if c.Settle < 0 || c.ReloadInterval < 0 || c.AccountCacheTTL < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Colors returns the row colors for pending and cleared postings.
func (c *Config) Colors() (pending, cleared colorful.Color) {
	pending, _ = colorful.Hex(c.PendingColor)
	cleared, _ = colorful.Hex(c.ClearedColor)
	return pending, cleared
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
