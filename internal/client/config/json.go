package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/lmsgate/internal/timex"
)

// fileConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// keep the values of earlier layers.
type fileConfig struct {
	IdentityEndpointAddr  *string         `json:"identity_endpoint_addr"`
	OnlineCheckInterval   *timex.Duration `json:"online_check_interval"`
	BootstrapEmail        *string         `json:"bootstrap_email"`
	DefaultResendCooldown *timex.Duration `json:"resend_cooldown"`
	DatabasePath          *string         `json:"database_path"`
	LogLevel              *string         `json:"log_level"`
}

// parseJSON overlays cfg with the file at path. An empty path is a no-op.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.IdentityEndpointAddr != nil {
		cfg.IdentityEndpointAddr = *fc.IdentityEndpointAddr
	}
	if fc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.BootstrapEmail != nil {
		cfg.BootstrapEmail = *fc.BootstrapEmail
	}
	if fc.DefaultResendCooldown != nil {
		cfg.DefaultResendCooldown = fc.DefaultResendCooldown.Duration
	}
	if fc.DatabasePath != nil {
		cfg.DatabasePath = *fc.DatabasePath
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	return nil
}
