// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package config loads zyric settings from defaults, a YAML file and
// command-line flags, in that order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/notify"
	"github.com/zyric/identity/internal/store"
	"github.com/zyric/identity/internal/xdg"
)

// DatabaseURLEnv is consulted when no DSN is configured.
const DatabaseURLEnv = "DATABASE_URL"

// Notifier kinds for ResetConfig.Notifier.
const (
	NotifierConsole = "console"
	NotifierLog     = "log"
	NotifierSMTP    = "smtp"
)

// Config is the full zyric configuration.
type Config struct {
	Database      DatabaseConfig      `koanf:"database" json:"database,omitempty"`
	Reset         ResetConfig         `koanf:"reset" json:"reset,omitempty"`
	Audit         AuditConfig         `koanf:"audit" json:"audit,omitempty"`
	SMTP          SMTPConfig          `koanf:"smtp" json:"smtp,omitempty"`
	Argon2        Argon2Config        `koanf:"argon2" json:"argon2,omitempty"`
	Log           LogConfig           `koanf:"log" json:"log,omitempty"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability,omitempty"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	DSN              string        `koanf:"dsn" json:"dsn,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	MaxConns         int32         `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=1"`
	ConnectTimeout   time.Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty"`
	StatementTimeout time.Duration `koanf:"statement_timeout" json:"statement_timeout,omitempty"`
	ConnectAttempts  uint64        `koanf:"connect_attempts" json:"connect_attempts,omitempty" jsonschema:"minimum=1"`
}

// ResetConfig configures password reset tokens.
type ResetConfig struct {
	TTL               time.Duration `koanf:"ttl" json:"ttl,omitempty"`
	RevokePriorTokens bool          `koanf:"revoke_prior_tokens" json:"revoke_prior_tokens,omitempty"`
	PurgeInterval     time.Duration `koanf:"purge_interval" json:"purge_interval,omitempty"`
	ConsumeTimeout    time.Duration `koanf:"consume_timeout" json:"consume_timeout,omitempty"`
	DeliveryTimeout   time.Duration `koanf:"delivery_timeout" json:"delivery_timeout,omitempty" jsonschema:"description=Bound on issuing and sending one reset token"`
	BaseURL           string        `koanf:"base_url" json:"base_url,omitempty" jsonschema:"description=Page that accepts ?token= for resets"`
	Notifier          string        `koanf:"notifier" json:"notifier,omitempty" jsonschema:"enum=console,enum=log,enum=smtp"`
}

// AuditConfig configures the login audit recorder.
type AuditConfig struct {
	BufferSize    int           `koanf:"buffer_size" json:"buffer_size,omitempty" jsonschema:"minimum=1"`
	BatchSize     int           `koanf:"batch_size" json:"batch_size,omitempty" jsonschema:"minimum=1"`
	FlushInterval time.Duration `koanf:"flush_interval" json:"flush_interval,omitempty"`
	WriteTimeout  time.Duration `koanf:"write_timeout" json:"write_timeout,omitempty"`
	MaxRetries    uint64        `koanf:"max_retries" json:"max_retries,omitempty"`
	WALPath       string        `koanf:"wal_path" json:"wal_path,omitempty"`
}

// SMTPConfig configures email delivery of reset links.
type SMTPConfig struct {
	Host      string `koanf:"host" json:"host,omitempty"`
	Port      int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username  string `koanf:"username" json:"username,omitempty"`
	Password  string `koanf:"password" json:"password,omitempty"`
	TLSMode   string `koanf:"tls_mode" json:"tls_mode,omitempty" jsonschema:"enum=starttls,enum=tls,enum=none"`
	FromName  string `koanf:"from_name" json:"from_name,omitempty"`
	FromEmail string `koanf:"from_email" json:"from_email,omitempty"`
	Subject   string `koanf:"subject" json:"subject,omitempty"`
}

// Argon2Config sets the password hashing cost.
type Argon2Config struct {
	Time    uint32 `koanf:"time" json:"time,omitempty" jsonschema:"minimum=1"`
	Memory  uint32 `koanf:"memory" json:"memory,omitempty" jsonschema:"minimum=1,description=Memory cost in KiB"`
	Threads uint8  `koanf:"threads" json:"threads,omitempty" jsonschema:"minimum=1"`
	SaltLen uint32 `koanf:"salt_len" json:"salt_len,omitempty" jsonschema:"minimum=8"`
	KeyLen  uint32 `koanf:"key_len" json:"key_len,omitempty" jsonschema:"minimum=16"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// ObservabilityConfig configures the metrics and health server.
type ObservabilityConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Listen address; empty disables the server"`
}

// Default returns the built-in configuration.
func Default() Config {
	pool := store.DefaultPoolOptions()
	auditCfg := audit.DefaultConfig()
	argon := auth.DefaultArgon2Params()
	return Config{
		Database: DatabaseConfig{
			MaxConns:         pool.MaxConns,
			ConnectTimeout:   pool.ConnectTimeout,
			StatementTimeout: pool.StatementTimeout,
			ConnectAttempts:  pool.ConnectAttempts,
		},
		Reset: ResetConfig{
			TTL:               auth.DefaultResetTTL,
			RevokePriorTokens: true,
			PurgeInterval:     auth.DefaultPurgeInterval,
			ConsumeTimeout:    auth.DefaultConsumeTimeout,
			DeliveryTimeout:   auth.DefaultDeliveryTimeout,
			Notifier:          NotifierConsole,
		},
		Audit: AuditConfig{
			BufferSize:    auditCfg.BufferSize,
			BatchSize:     auditCfg.BatchSize,
			FlushInterval: auditCfg.FlushInterval,
			WriteTimeout:  auditCfg.WriteTimeout,
			MaxRetries:    auditCfg.MaxRetries,
		},
		SMTP: SMTPConfig{
			Port:    587,
			TLSMode: notify.TLSModeStartTLS,
		},
		Argon2: Argon2Config{
			Time:    argon.Time,
			Memory:  argon.Memory,
			Threads: argon.Threads,
			SaltLen: argon.SaltLen,
			KeyLen:  argon.KeyLen,
		},
		Log: LogConfig{Format: "json", Level: "info"},
		Observability: ObservabilityConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/zyric/config.yaml.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"database-url":   "database.dsn",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"metrics-addr":   "observability.addr",
	"reset-ttl":      "reset.ttl",
	"reset-base-url": "reset.base_url",
	"notifier":       "reset.notifier",
}

// BindFlags registers the flags Load understands on flags. Flags override
// the file only when set explicitly.
func BindFlags(flags *pflag.FlagSet) {
	def := Default()
	flags.String("config", "", "config file (default $XDG_CONFIG_HOME/zyric/config.yaml)")
	flags.String("database-url", "", "PostgreSQL connection URL (env "+DatabaseURLEnv+")")
	flags.String("log-format", def.Log.Format, "log format (json or text)")
	flags.String("log-level", def.Log.Level, "log level (debug, info, warn, error)")
	flags.String("metrics-addr", def.Observability.Addr, "metrics and health listen address")
	flags.Duration("reset-ttl", def.Reset.TTL, "password reset token lifetime")
	flags.String("reset-base-url", "", "reset page URL that accepts ?token=")
	flags.String("notifier", def.Reset.Notifier, "reset delivery (console, log or smtp)")
}

// Load builds the configuration. The file named by --config must exist; the
// default path is optional. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, explicit := configPath(flags)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
			}
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv(DatabaseURLEnv)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(flags *pflag.FlagSet) (path string, explicit bool) {
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String(), true
		}
	}
	path, err := DefaultPath()
	if err != nil {
		// No home directory: defaults and flags only.
		return "", false
	}
	return path, false
}
