package reload

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/chenyanchen/swappable"
)

// Target is the reloadable side of a swappable.Singleton.
type Target[T any] interface {
	Name() string
	Reload(hook swappable.Hook[T]) (swappable.Outcome, error)
	Status() swappable.Status
}

// Result describes one reload attempt.
type Result struct {
	Attempt    string            `json:"attempt"`
	Key        string            `json:"key"`
	Outcome    swappable.Outcome `json:"outcome"`
	Generation uint64            `json:"generation"` // Generation current after the attempt.
	Shared     bool              `json:"shared"`     // Result was coalesced from a concurrent fire.
}

// Option configures a Trigger.
type Option func(*triggerOptions)

type triggerOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for reload attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(o *triggerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Trigger is the single writer for one target.
//
// Semantics:
// 1. attempts run one at a time, in the order they acquire the trigger
// 2. concurrent fires with the same key share one attempt and its result
// 3. attempts are never cancelled; ctx only bounds how long a caller waits
type Trigger[T any] struct {
	target Target[T]
	logger *slog.Logger

	mu sync.Mutex
	sf singleflight.Group
}

func NewTrigger[T any](target Target[T], opts ...Option) *Trigger[T] {
	o := triggerOptions{logger: slog.New(slog.DiscardHandler)}
	for _, apply := range opts {
		apply(&o)
	}
	return &Trigger[T]{
		target: target,
		logger: o.logger.With(slog.String("singleton", target.Name())),
	}
}

// Target returns the target this trigger reloads.
func (t *Trigger[T]) Target() Target[T] {
	return t.target
}

// Fire reloads the target with hook.
//
// Fires that share key while an attempt is pending join that attempt: they
// receive its result and their own hook is not run. Use distinct keys for
// hooks that must each be applied.
//
// ctx only guards the caller's wait. A caller whose ctx ends returns
// ctx.Err() at once; the attempt itself is never cancelled and still
// completes for the other callers sharing it.
func (t *Trigger[T]) Fire(ctx context.Context, key string, hook swappable.Hook[T]) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return Result{Key: key}, err
	}

	ch := t.sf.DoChan(key, func() (any, error) {
		return t.attempt(key, hook)
	})

	select {
	case <-ctx.Done():
		return Result{Key: key}, ctx.Err()
	case res := <-ch:
		result, _ := res.Val.(Result)
		result.Shared = res.Shared
		return result, res.Err
	}
}

func (t *Trigger[T]) attempt(key string, hook swappable.Hook[T]) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempt := uuid.NewString()
	logger := t.logger.With(slog.String("attempt", attempt), slog.String("key", key))
	logger.Debug("reload attempt started")

	outcome, err := t.target.Reload(hook)
	result := Result{
		Attempt:    attempt,
		Key:        key,
		Outcome:    outcome,
		Generation: t.target.Status().Generation,
	}
	if err != nil {
		logger.Warn("reload attempt failed", slog.Any("error", err))
		return result, err
	}
	logger.Info("reload attempt finished",
		slog.String("outcome", outcome.String()),
		slog.Uint64("generation", result.Generation))
	return result, nil
}
