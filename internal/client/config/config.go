package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lmsgate/internal/flagx"
)

// Config holds runtime settings for the lmsgate CLI.
//
// Fields:
//   - IdentityEndpointAddr: host:port of the identity service gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes service reachability.
//   - BootstrapEmail: the provisioning identity that may self-register and
//     use rescue mode. Empty disables both.
//   - DefaultResendCooldown: resend cooldown used when the service does not
//     publish one.
//   - DatabasePath: location of the local SQLite file.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	IdentityEndpointAddr  string        `env:"IDENTITY_ADDR"`
	OnlineCheckInterval   time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	BootstrapEmail        string        `env:"BOOTSTRAP_EMAIL"`
	DefaultResendCooldown time.Duration `env:"RESEND_COOLDOWN"`
	DatabasePath          string        `env:"DB_PATH"`
	LogLevel              string        `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.IdentityEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.BootstrapEmail = ""
	c.DefaultResendCooldown = 60 * time.Second
	c.DatabasePath = "lmsgate.db"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config from defaults, the environment (and a
// .env file), an optional JSON file and the command-line flags in args.
// Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.IdentityEndpointAddr == "" {
		return nil, errors.New("identity endpoint address is required")
	}
	if cfg.OnlineCheckInterval <= 0 {
		return nil, fmt.Errorf("online check interval must be positive, got %s", cfg.OnlineCheckInterval)
	}
	if cfg.DefaultResendCooldown < 0 {
		return nil, fmt.Errorf("resend cooldown must not be negative, got %s", cfg.DefaultResendCooldown)
	}
	return cfg, nil
}
