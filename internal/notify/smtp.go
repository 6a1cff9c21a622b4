// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package notify

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// TLS modes for SMTPConfig.TLSMode.
const (
	TLSModeStartTLS = "starttls"
	TLSModeTLS      = "tls"
	TLSModeNone     = "none"
)

// DefaultSMTPTimeout bounds a whole delivery when ctx has no deadline.
const DefaultSMTPTimeout = 30 * time.Second

// SMTPConfig configures SMTPNotifier.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string
	FromName  string
	FromEmail string
	Subject   string
	// ResetURL is the page that accepts ?token=. Empty sends the bare token.
	ResetURL string
}

// SMTPNotifier sends reset links by email.
type SMTPNotifier struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPNotifier validates cfg and creates an SMTPNotifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, oops.Code("NOTIFY_INVALID_CONFIG").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, oops.Code("NOTIFY_INVALID_CONFIG").With("port", cfg.Port).Errorf("smtp port out of range")
	}
	if cfg.FromEmail == "" {
		return nil, oops.Code("NOTIFY_INVALID_CONFIG").Errorf("smtp from address is required")
	}
	switch cfg.TLSMode {
	case "":
		cfg.TLSMode = TLSModeStartTLS
	case TLSModeStartTLS, TLSModeTLS, TLSModeNone:
	default:
		return nil, oops.Code("NOTIFY_INVALID_CONFIG").With("tls_mode", cfg.TLSMode).Errorf("unknown smtp tls mode")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Reset your password"
	}
	if _, err := ResetLink(cfg.ResetURL, "x"); err != nil {
		return nil, err
	}
	return &SMTPNotifier{cfg: cfg, now: time.Now}, nil
}

// SendPasswordReset emails the reset link to to.
func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, to, token string, expiresAt time.Time) error {
	if strings.ContainsAny(to, "\r\n") {
		return oops.Code("NOTIFY_INVALID_RECIPIENT").Errorf("recipient contains a line break")
	}
	link, err := ResetLink(n.cfg.ResetURL, token)
	if err != nil {
		return err
	}
	msg := buildMessage(n.from(), to, n.cfg.Subject, n.now(), resetBody(link, expiresAt))
	if err := n.send(ctx, to, msg); err != nil {
		return oops.Code("NOTIFY_SMTP_FAILED").
			With("host", n.cfg.Host).
			With("port", n.cfg.Port).
			Wrap(err)
	}
	return nil
}

func (n *SMTPNotifier) from() string {
	if n.cfg.FromName == "" {
		return n.cfg.FromEmail
	}
	return n.cfg.FromName + " <" + n.cfg.FromEmail + ">"
}

func (n *SMTPNotifier) send(ctx context.Context, to, msg string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSMTPTimeout)
		defer cancel()
	}

	client, err := n.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck // Quit already reported

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return oops.With("step", "auth").Wrap(err)
		}
	}
	if err := client.Mail(n.cfg.FromEmail); err != nil {
		return oops.With("step", "mail from").Wrap(err)
	}
	if err := client.Rcpt(to); err != nil {
		return oops.With("step", "rcpt to").Wrap(err)
	}
	w, err := client.Data()
	if err != nil {
		return oops.With("step", "data").Wrap(err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return oops.With("step", "write").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return oops.With("step", "close data").Wrap(err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return oops.With("step", "quit").Wrap(err)
	}
	return nil
}

func (n *SMTPNotifier) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	tlsConfig := &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		conn net.Conn
		err  error
	)
	if n.cfg.TLSMode == TLSModeTLS {
		d := tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, oops.With("step", "dial").With("addr", addr).Wrap(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, oops.With("step", "greeting").Wrap(err)
	}
	if n.cfg.TLSMode == TLSModeStartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, oops.With("step", "starttls").Wrap(err)
		}
	}
	return client, nil
}

func buildMessage(from, to, subject string, date time.Time, body string) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + date.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		strings.ReplaceAll(body, "\n", "\r\n"),
	}
	return strings.Join(lines, "\r\n")
}
