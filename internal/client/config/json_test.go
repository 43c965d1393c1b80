package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON(t *testing.T) {
	dir := t.TempDir()

	t.Run("all fields", func(t *testing.T) {
		path := writeTempJSON(t, dir, "full.json", map[string]any{
			"identity_endpoint_addr": "www.example:9000",
			"online_check_interval":  "10s",
			"bootstrap_email":        "root@school.org",
			"resend_cooldown":        int64(30 * time.Second),
			"database_path":          "/var/lib/lmsgate.db",
			"log_level":              "warn",
		})

		cfg := &Config{}
		require.NoError(t, parseJSON(cfg, path))

		want := &Config{
			IdentityEndpointAddr:  "www.example:9000",
			OnlineCheckInterval:   10 * time.Second,
			BootstrapEmail:        "root@school.org",
			DefaultResendCooldown: 30 * time.Second,
			DatabasePath:          "/var/lib/lmsgate.db",
			LogLevel:              "warn",
		}
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("partial file keeps earlier values", func(t *testing.T) {
		path := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "debug"})

		cfg := &Config{IdentityEndpointAddr: "defaults:1234", OnlineCheckInterval: 42 * time.Second}
		require.NoError(t, parseJSON(cfg, path))

		assert.Equal(t, "defaults:1234", cfg.IdentityEndpointAddr)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("no path is a no-op", func(t *testing.T) {
		cfg := &Config{IdentityEndpointAddr: "defaults:1234"}
		require.NoError(t, parseJSON(cfg, ""))
		assert.Equal(t, "defaults:1234", cfg.IdentityEndpointAddr)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Error(t, parseJSON(&Config{}, bad))
	})
}
