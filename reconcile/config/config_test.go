package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LEDGER_FILE", "LEDGER_RECONCILE_BIN", "LEDGER_RECONCILE_EDITOR"} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
file = "/tmp/books.ledger"
ledger_bin = "/opt/ledger/bin/ledger"
editor = "vim +{line} {file}"
fzf = false
pending_color = "#ff0000"
settle = "250ms"
account_cache_ttl = "1m"
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/books.ledger", c.LedgerFile)
	assert.Equal(t, "/opt/ledger/bin/ledger", c.LedgerBin)
	assert.Equal(t, "vim +{line} {file}", c.Editor)
	assert.False(t, c.FZF)
	assert.Equal(t, 250*time.Millisecond, c.Settle)
	assert.Equal(t, time.Minute, c.AccountCacheTTL)
	assert.Equal(t, Default().ReloadInterval, c.ReloadInterval)

	pending, _ := c.Colors()
	assert.Equal(t, "#ff0000", pending.Hex())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `file = "/tmp/books.ledger"`)
	t.Setenv("LEDGER_FILE", "/home/me/main.ledger")
	t.Setenv("LEDGER_RECONCILE_EDITOR", "nano +{line} {file}")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/home/me/main.ledger", c.LedgerFile)
	assert.Equal(t, "nano +{line} {file}", c.Editor)
}

func TestLoadDefaultPath(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`ledger_bin = "hledger-compat"`), 0o644))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "hledger-compat", c.LedgerBin)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `file = `},
		{"wrong type", `fzf = "yes"`},
		{"bad duration", `settle = "soon"`},
		{"bad color", `cleared_color = "green"`},
		{"negative duration", `reload_interval = "-1s"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err, "explicit config file must exist")
}
