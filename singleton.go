package swappable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"
)

type slot[T any] struct {
	value       T
	generation  uint64
	publishedAt time.Time

	// refs counts the holder's own reference while the slot is current plus
	// every outstanding lease. Once it reaches zero it never rises again.
	refs   atomic.Int64
	onZero func(T)
}

func (sl *slot[T]) retain() bool {
	for {
		n := sl.refs.Load()
		if n <= 0 {
			return false
		}
		if sl.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (sl *slot[T]) drop() {
	if sl.refs.Add(-1) == 0 && sl.onZero != nil {
		sl.onZero(sl.value)
	}
}

// Singleton holds one current instance of T and replaces it wholesale.
//
// Readers load the current instance with a single atomic load and never
// block. Writers build and validate a candidate off to the side, then
// publish it with a single compare-and-swap. Concurrent publishers are not
// ordered: the last publish wins, and generations follow publish order.
type Singleton[Opt any, T Reloadable] struct {
	name    string
	def     Definition[Opt, T]
	logger  *slog.Logger
	release bool
	now     func() time.Time

	current atomic.Pointer[slot[T]]
}

// New validates def, default-constructs the first instance and publishes it,
// so Get never observes an empty holder.
func New[Opt any, T Reloadable](def Definition[Opt, T], opts ...Option) (*Singleton[Opt, T], error) {
	if def.New == nil {
		return nil, fmt.Errorf("new singleton: new func is nil")
	}
	if def.Decode == nil {
		def.Decode = defaultDecode[Opt]
	}

	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if o.name == "" {
		o.name = typeName[T]()
	}

	s := &Singleton[Opt, T]{
		name:    o.name,
		def:     def,
		logger:  o.logger.With(slog.String("singleton", o.name)),
		release: o.release,
		now:     o.now,
	}

	instance, err := def.New()
	if err != nil {
		return nil, ConstructionError{Name: s.name, Op: "new", Err: err}
	}
	s.publish(instance)
	return s, nil
}

// MustNew panics on error; intended for package-level variables and bootstrap code.
func MustNew[Opt any, T Reloadable](def Definition[Opt, T], opts ...Option) *Singleton[Opt, T] {
	s, err := New(def, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the singleton name used in logs and errors.
func (s *Singleton[Opt, T]) Name() string {
	return s.name
}

// Get returns the current instance.
func (s *Singleton[Opt, T]) Get() T {
	return s.current.Load().value
}

// Snapshot returns the current instance with its publication metadata.
func (s *Singleton[Opt, T]) Snapshot() Snapshot[T] {
	cur := s.current.Load()
	return Snapshot[T]{
		Value:       cur.value,
		Generation:  cur.generation,
		PublishedAt: cur.publishedAt,
	}
}

// Generation returns the generation of the current instance.
func (s *Singleton[Opt, T]) Generation() uint64 {
	return s.current.Load().generation
}

// Init builds an instance from opt and publishes it unconditionally.
// DoReload is not called. On error the current instance is untouched.
func (s *Singleton[Opt, T]) Init(ctx context.Context, opt Opt) error {
	if s.def.Build == nil {
		return fmt.Errorf("init %q: build func is nil", s.name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	instance, err := s.def.Build(ctx, opt)
	if err != nil {
		s.logger.Warn("singleton init failed", slog.Any("error", err))
		return ConstructionError{Name: s.name, Op: "init", Err: err}
	}
	s.publish(instance)
	return nil
}

// InitRaw decodes raw options with the definition's Decode and calls Init.
func (s *Singleton[Opt, T]) InitRaw(ctx context.Context, raw json.RawMessage) error {
	opt, err := s.def.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode options for %q: %w", s.name, err)
	}
	return s.Init(ctx, opt)
}

// InitDefault default-constructs an instance and publishes it unconditionally.
func (s *Singleton[Opt, T]) InitDefault() error {
	instance, err := s.def.New()
	if err != nil {
		s.logger.Warn("singleton init failed", slog.Any("error", err))
		return ConstructionError{Name: s.name, Op: "init", Err: err}
	}
	s.publish(instance)
	return nil
}

// Reload default-constructs a candidate, lets hook configure it, validates it
// with DoReload and publishes it when both approve.
//
// A nil hook skips the configuration step. Rejections are reported through
// the Outcome, not as errors; only construction failures return an error.
// The current instance is untouched unless the outcome is Published.
func (s *Singleton[Opt, T]) Reload(hook Hook[T]) (Outcome, error) {
	candidate, err := s.def.New()
	if err != nil {
		s.logger.Warn("singleton reload failed", slog.Any("error", err))
		return Failed, ConstructionError{Name: s.name, Op: "reload", Err: err}
	}

	if hook != nil && !hook(candidate) {
		s.discard(candidate)
		s.logger.Info("singleton reload rejected", slog.String("outcome", HookRejected.String()))
		return HookRejected, nil
	}
	if !candidate.DoReload() {
		s.discard(candidate)
		s.logger.Info("singleton reload rejected", slog.String("outcome", ValidationRejected.String()))
		return ValidationRejected, nil
	}

	s.publish(candidate)
	return Published, nil
}

// publish installs value as the current instance. The generation is derived
// from the slot being replaced, so it only ever grows as observed by readers.
func (s *Singleton[Opt, T]) publish(value T) {
	next := &slot[T]{
		value:       value,
		publishedAt: s.now(),
	}
	next.refs.Store(1)
	if s.release {
		next.onZero = s.closeInstance
	}

	for {
		prev := s.current.Load()
		next.generation = 1
		if prev != nil {
			next.generation = prev.generation + 1
		}
		if s.current.CompareAndSwap(prev, next) {
			if prev != nil {
				prev.drop()
			}
			break
		}
	}
	s.logger.Debug("singleton published", slog.Uint64("generation", next.generation))
}

// retire drops the holder's reference on the current instance of a holder
// that will never be used, releasing it once no lease remains.
func (s *Singleton[Opt, T]) retire() {
	s.current.Load().drop()
}

func (s *Singleton[Opt, T]) discard(candidate T) {
	if s.release {
		s.closeInstance(candidate)
	}
}

func (s *Singleton[Opt, T]) closeInstance(instance T) {
	var err error
	if s.def.Close != nil {
		err = s.def.Close(instance)
	} else if closer, ok := any(instance).(io.Closer); ok {
		err = closer.Close()
	}
	if err != nil {
		s.logger.Error("singleton close failed", slog.Any("error", err))
	}
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func defaultDecode[Opt any](raw json.RawMessage) (Opt, error) {
	var opt Opt
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return opt, nil
	}
	if err := json.Unmarshal(raw, &opt); err != nil {
		return opt, err
	}
	return opt, nil
}
