package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/lmsgate/internal/flagx"
)

var knownFlags = []string{"-a", "-i", "-b", "-r", "-d", "-l"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   address and port of the identity service
//	-i int      online check interval (seconds)
//	-b string   bootstrap email
//	-r int      default resend cooldown (seconds)
//	-d string   path of the local database
//	-l string   log level
//
// args is filtered with flagx.FilterArgs so flags owned by other layers
// (such as -c) do not fail the parse.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("lmsgate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.IdentityEndpointAddr, "a", cfg.IdentityEndpointAddr, "address and port of the identity service")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.BootstrapEmail, "b", cfg.BootstrapEmail, "bootstrap email allowed to self-provision")
	cooldown := fs.Int("r", int(cfg.DefaultResendCooldown.Seconds()), "default code resend cooldown (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	// Durations from earlier layers may be finer than a second; only
	// flags that were given replace them.
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			if *interval <= 0 {
				err = fmt.Errorf("online check interval must be positive, got %d", *interval)
				return
			}
			cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
		case "r":
			if *cooldown < 0 {
				err = fmt.Errorf("resend cooldown must not be negative, got %d", *cooldown)
				return
			}
			cfg.DefaultResendCooldown = time.Duration(*cooldown) * time.Second
		}
	})
	if err != nil {
		return err
	}
	return nil
}
