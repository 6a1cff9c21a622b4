// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/zyric/identity/internal/store"
	"github.com/zyric/identity/internal/xdg"
	"github.com/zyric/identity/pkg/errutil"
)

// Config tunes the Recorder.
type Config struct {
	// BufferSize is the queue capacity. Attempts beyond it are dropped.
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// WriteTimeout bounds a single batch write including retries.
	WriteTimeout time.Duration
	MaxRetries   uint64
	// WALPath defaults to $XDG_STATE_HOME/zyric/login-audit-wal.jsonl.
	WALPath string
}

// DefaultConfig returns the settings used when configuration is silent.
func DefaultConfig() Config {
	return Config{
		BufferSize:    1024,
		BatchSize:     100,
		FlushInterval: time.Second,
		WriteTimeout:  5 * time.Second,
		MaxRetries:    3,
	}
}

// DefaultWALPath returns the write-ahead log location in the XDG state dir.
func DefaultWALPath() (string, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "login-audit-wal.jsonl"), nil
}

// Recorder appends login attempts asynchronously. Record never blocks and
// never fails; problems are logged and counted instead.
type Recorder struct {
	writer Writer
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time

	queue chan LoginAttempt
	stop  chan struct{}
	wg    sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool

	// walMu serializes WAL access inside the process; lockWAL does the same
	// across processes.
	walMu sync.Mutex
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces time.Now for stamping attempts.
func WithClock(clock func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewRecorder creates a Recorder and starts its background writer. Zero
// fields in cfg take their DefaultConfig values.
func NewRecorder(writer Writer, cfg Config, opts ...RecorderOption) (*Recorder, error) {
	if writer == nil {
		return nil, oops.Errorf("audit writer is required")
	}
	cfg = withDefaults(cfg)
	if cfg.WALPath == "" {
		path, err := DefaultWALPath()
		if err != nil {
			return nil, oops.Code("AUDIT_WAL_PATH_FAILED").Wrap(err)
		}
		cfg.WALPath = path
	}
	if err := xdg.EnsureDir(filepath.Dir(cfg.WALPath)); err != nil {
		return nil, oops.Code("AUDIT_WAL_PATH_FAILED").Wrap(err)
	}

	r := &Recorder{
		writer: writer,
		cfg:    cfg,
		logger: slog.Default(),
		clock:  time.Now,
		queue:  make(chan LoginAttempt, cfg.BufferSize),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.consume()
	return r, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return cfg
}

// WALPath returns the write-ahead log location.
func (r *Recorder) WALPath() string {
	return r.cfg.WALPath
}

// Record queues attempt for writing.
func (r *Recorder) Record(ctx context.Context, attempt LoginAttempt) {
	attempt.normalize(r.clock())

	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		Dropped.Inc()
		r.logger.WarnContext(ctx, "login attempt dropped: recorder closed", "attempt_id", attempt.ID.String())
		return
	}

	select {
	case r.queue <- attempt:
	default:
		Dropped.Inc()
		r.logger.WarnContext(ctx, "login attempt dropped: queue full", "attempt_id", attempt.ID.String())
	}
}

func (r *Recorder) consume() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]LoginAttempt, 0, r.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		r.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case a := <-r.queue:
			batch = append(batch, a)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.stop:
			for {
				select {
				case a := <-r.queue:
					batch = append(batch, a)
					if len(batch) >= r.cfg.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// flush writes batch, retrying transient storage errors, and falls back to
// the WAL when the write still fails.
func (r *Recorder) flush(batch []LoginAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	err := r.writeWithRetry(ctx, batch)
	if err == nil {
		return
	}

	Failures.WithLabelValues(ReasonBatchWrite).Inc()
	errutil.LogError(r.logger, "login audit batch write failed, falling back to WAL",
		oops.With("count", len(batch)).Wrap(err))

	if walErr := r.appendWAL(batch); walErr != nil {
		Failures.WithLabelValues(ReasonWALWrite).Inc()
		errutil.LogError(r.logger, "login audit WAL write failed, attempts lost",
			oops.With("count", len(batch)).Wrap(walErr))
	}
}

func (r *Recorder) writeWithRetry(ctx context.Context, batch []LoginAttempt) error {
	backoff := retry.WithMaxRetries(r.cfg.MaxRetries, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.writer.WriteBatch(ctx, batch)
		if err != nil && store.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// appendWAL opens the WAL for every batch. A replay in another process may
// have renamed a fresh file into place, so a cached descriptor could point at
// an unlinked file.
func (r *Recorder) appendWAL(batch []LoginAttempt) error {
	r.walMu.Lock()
	defer r.walMu.Unlock()

	unlock, err := lockWAL(r.cfg.WALPath)
	if err != nil {
		return err
	}
	defer unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch {
		if err := enc.Encode(&batch[i]); err != nil {
			return oops.With("attempt_id", batch[i].ID.String()).Wrap(err)
		}
	}
	f, err := os.OpenFile(r.cfg.WALPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY|os.O_SYNC, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return oops.With("path", r.cfg.WALPath).Wrap(err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return oops.With("path", r.cfg.WALPath).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.With("path", r.cfg.WALPath).Wrap(err)
	}
	WALEntries.Add(float64(len(batch)))
	return nil
}

// ReplayWAL writes the attempts saved in the WAL and returns how many were
// stored. Attempts that still cannot be written stay in the WAL; lines that
// cannot be decoded are logged and discarded. The WAL stays locked for the
// whole replay, so appends from other processes wait until it is rewritten.
func (r *Recorder) ReplayWAL(ctx context.Context) (int, error) {
	r.walMu.Lock()
	defer r.walMu.Unlock()

	unlock, err := lockWAL(r.cfg.WALPath)
	if err != nil {
		return 0, err
	}
	defer unlock()

	pending, err := readWAL(r.cfg.WALPath, r.logger)
	if err != nil || len(pending) == 0 {
		return 0, err
	}

	var (
		remaining []LoginAttempt
		written   int
		lastErr   error
	)
	for start := 0; start < len(pending); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(pending))
		chunk := pending[start:end]
		if err := r.writeWithRetry(ctx, chunk); err != nil {
			Failures.WithLabelValues(ReasonWALReplayWrite).Inc()
			remaining = append(remaining, chunk...)
			lastErr = err
			continue
		}
		written += len(chunk)
	}

	if err := r.rewriteWAL(remaining); err != nil {
		return written, err
	}
	WALEntries.Set(float64(len(remaining)))
	r.logger.InfoContext(ctx, "replayed login audit WAL", "written", written, "remaining", len(remaining))

	if lastErr != nil {
		return written, oops.Code("AUDIT_WAL_REPLAY_INCOMPLETE").
			With("remaining", len(remaining)).
			Wrap(lastErr)
	}
	return written, nil
}

func readWAL(path string, logger *slog.Logger) ([]LoginAttempt, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("AUDIT_WAL_READ_FAILED").With("path", path).Wrap(err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var out []LoginAttempt
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var a LoginAttempt
		if err := json.Unmarshal(line, &a); err != nil {
			Failures.WithLabelValues(ReasonWALUnmarshal).Inc()
			logger.Error("discarding unreadable WAL line", "error", err)
			continue
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, oops.Code("AUDIT_WAL_READ_FAILED").With("path", path).Wrap(err)
	}
	return out, nil
}

// rewriteWAL atomically replaces the WAL with remaining. Callers hold walMu
// and the WAL lock.
func (r *Recorder) rewriteWAL(remaining []LoginAttempt) error {
	tmp := r.cfg.WALPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // path comes from configuration
	if err != nil {
		return oops.Code("AUDIT_WAL_REWRITE_FAILED").With("path", tmp).Wrap(err)
	}
	enc := json.NewEncoder(f)
	for i := range remaining {
		if err := enc.Encode(&remaining[i]); err != nil {
			_ = f.Close() //nolint:errcheck // encode error takes precedence
			return oops.Code("AUDIT_WAL_REWRITE_FAILED").Wrap(err)
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close() //nolint:errcheck // sync error takes precedence
		return oops.Code("AUDIT_WAL_REWRITE_FAILED").Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code("AUDIT_WAL_REWRITE_FAILED").Wrap(err)
	}
	if err := os.Rename(tmp, r.cfg.WALPath); err != nil {
		return oops.Code("AUDIT_WAL_REWRITE_FAILED").With("path", r.cfg.WALPath).Wrap(err)
	}
	return nil
}

// Close stops accepting attempts and writes everything still queued. It is
// safe to call more than once.
func (r *Recorder) Close() error {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return nil
	}
	r.closed = true
	close(r.stop)
	r.closeMu.Unlock()

	r.wg.Wait()
	return nil
}
