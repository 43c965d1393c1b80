// Package config loads runtime configuration for the lmsgate CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables with the LMSGATE_ prefix, after loading a .env
//     file from the working directory if one exists.
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the identity service gRPC endpoint
//	-i int      online status check interval (seconds)
//	-b string   bootstrap email
//	-r int      default code resend cooldown (seconds)
//	-d string   path of the local SQLite database
//	-l string   log level (debug, info, warn, error)
//
// Environment
//
//	LMSGATE_IDENTITY_ADDR, LMSGATE_ONLINE_CHECK_INTERVAL (e.g. "5s"),
//	LMSGATE_BOOTSTRAP_EMAIL, LMSGATE_RESEND_COOLDOWN, LMSGATE_DB_PATH,
//	LMSGATE_LOG_LEVEL
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds. Every key is optional:
//
//	{
//	  "identity_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "bootstrap_email": "root@school.org",
//	  "resend_cooldown": "60s",
//	  "database_path": "lmsgate.db",
//	  "log_level": "info"
//	}
package config
