package backend

import (
	"log/slog"
	"time"
)

type options struct {
	maxConns    int
	maxIdle     int
	idleTimeout time.Duration
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		maxConns:    10,
		maxIdle:     2,
		idleTimeout: 5 * time.Minute,
	}
}

// Option configures a DB at Open time.
type Option func(*options)

// WithMaxConns sets the maximum number of open connections
// (0 = unlimited).
func WithMaxConns(n int) Option {
	return func(o *options) { o.maxConns = n }
}

// WithMaxIdle sets the maximum number of idle connections to retain.
func WithMaxIdle(n int) Option {
	return func(o *options) { o.maxIdle = n }
}

// WithIdleTimeout sets how long idle connections are kept
// (0 = forever).
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

// WithLogger attaches a logger; executed statements are traced at
// debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
