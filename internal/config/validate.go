// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/notify"
	"github.com/zyric/identity/internal/store"
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.Database.MaxConns < 1 {
		errs = append(errs, errors.New("database.max_conns must be at least 1"))
	}
	if c.Database.ConnectAttempts < 1 {
		errs = append(errs, errors.New("database.connect_attempts must be at least 1"))
	}
	positive("database.connect_timeout", c.Database.ConnectTimeout)
	positive("database.statement_timeout", c.Database.StatementTimeout)

	positive("reset.ttl", c.Reset.TTL)
	positive("reset.purge_interval", c.Reset.PurgeInterval)
	positive("reset.consume_timeout", c.Reset.ConsumeTimeout)
	positive("reset.delivery_timeout", c.Reset.DeliveryTimeout)
	if !slices.Contains([]string{NotifierConsole, NotifierLog, NotifierSMTP}, c.Reset.Notifier) {
		errs = append(errs, fmt.Errorf("reset.notifier %q is not one of console, log, smtp", c.Reset.Notifier))
	}
	if c.Reset.BaseURL != "" {
		if _, err := notify.ResetLink(c.Reset.BaseURL, "x"); err != nil {
			errs = append(errs, errors.New("reset.base_url must be an absolute URL"))
		}
	}
	if c.Reset.Notifier == NotifierSMTP {
		if c.SMTP.Host == "" || c.SMTP.FromEmail == "" {
			errs = append(errs, errors.New("smtp.host and smtp.from_email are required for the smtp notifier"))
		}
	}

	if c.Audit.BufferSize < 1 || c.Audit.BatchSize < 1 {
		errs = append(errs, errors.New("audit.buffer_size and audit.batch_size must be at least 1"))
	}
	positive("audit.flush_interval", c.Audit.FlushInterval)
	positive("audit.write_timeout", c.Audit.WriteTimeout)

	if _, err := auth.NewArgon2idHasherWithParams(c.Argon2Params()); err != nil {
		errs = append(errs, fmt.Errorf("argon2: %w", err))
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", c.Log.Format))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is not a slog level", c.Log.Level))
	}

	if len(errs) > 0 {
		return oops.Code("CONFIG_INVALID").Wrap(errors.Join(errs...))
	}
	return nil
}

// PoolOptions converts the database section for store.Connect.
func (c *Config) PoolOptions() store.PoolOptions {
	return store.PoolOptions{
		MaxConns:         c.Database.MaxConns,
		ConnectTimeout:   c.Database.ConnectTimeout,
		StatementTimeout: c.Database.StatementTimeout,
		ConnectAttempts:  c.Database.ConnectAttempts,
	}
}

// AuditConfig converts the audit section for audit.NewRecorder.
func (c *Config) AuditConfig() audit.Config {
	return audit.Config{
		BufferSize:    c.Audit.BufferSize,
		BatchSize:     c.Audit.BatchSize,
		FlushInterval: c.Audit.FlushInterval,
		WriteTimeout:  c.Audit.WriteTimeout,
		MaxRetries:    c.Audit.MaxRetries,
		WALPath:       c.Audit.WALPath,
	}
}

// Argon2Params converts the argon2 section.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		Time:    c.Argon2.Time,
		Memory:  c.Argon2.Memory,
		Threads: c.Argon2.Threads,
		SaltLen: c.Argon2.SaltLen,
		KeyLen:  c.Argon2.KeyLen,
	}
}

// SMTPConfig converts the smtp section, adding the reset base URL.
func (c *Config) SMTPConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:      c.SMTP.Host,
		Port:      c.SMTP.Port,
		Username:  c.SMTP.Username,
		Password:  c.SMTP.Password,
		TLSMode:   c.SMTP.TLSMode,
		FromName:  c.SMTP.FromName,
		FromEmail: c.SMTP.FromEmail,
		Subject:   c.SMTP.Subject,
		ResetURL:  c.Reset.BaseURL,
	}
}

// AuthOptions returns the service options derived from the reset section.
func (c *Config) AuthOptions(logger *slog.Logger) []auth.Option {
	return []auth.Option{
		auth.WithLogger(logger),
		auth.WithResetTTL(c.Reset.TTL),
		auth.WithRevokePriorTokens(c.Reset.RevokePriorTokens),
		auth.WithConsumeTimeout(c.Reset.ConsumeTimeout),
		auth.WithDeliveryTimeout(c.Reset.DeliveryTimeout),
	}
}
