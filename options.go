package swappable

import (
	"log/slog"
	"time"
)

// Option configures a Singleton.
type Option func(*options)

type options struct {
	name    string
	logger  *slog.Logger
	release bool
	now     func() time.Time
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
}

// WithName names the singleton in logs, errors and status output.
// Register sets it to the registration name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used for publish and reload events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRelease closes retired and discarded instances once no lease holds them.
//
// Plain Get readers do not hold leases, so enable this only when every reader
// that outlives a swap goes through Acquire.
func WithRelease() Option {
	return func(o *options) {
		o.release = true
	}
}

// WithClock overrides the publication timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
