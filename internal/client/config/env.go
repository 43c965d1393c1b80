package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "LMSGATE_"

// parseEnv overlays cfg with LMSGATE_* variables. A dotenv file at
// dotenvPath is loaded first if it exists; variables already present in the
// process environment win over the file.
func parseEnv(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return fmt.Errorf("load %s: %w", dotenvPath, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
