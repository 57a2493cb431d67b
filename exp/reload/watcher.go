package reload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chenyanchen/swappable"
)

const defaultDebounce = 100 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce collapses bursts of events into one reload. Defaults to 100ms.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher fires a trigger whenever the watched file changes content.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	fire     func(ctx context.Context) (swappable.Outcome, error)

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	timer    *time.Timer
	closed   bool
	flushMu  sync.Mutex
	lastHash string

	closeOnce sync.Once
	closeErr  error
}

// Watch reloads through trigger with hook whenever path is written or replaced.
//
// The parent directory is watched so editors that save by rename are seen.
// A change whose content hash equals the last published content is skipped.
func Watch[T any](ctx context.Context, trigger *Trigger[T], path string, hook swappable.Hook[T], opts WatchOptions) (*Watcher, error) {
	if trigger == nil {
		return nil, fmt.Errorf("watch %q: trigger is nil", path)
	}
	if path == "" {
		return nil, fmt.Errorf("watch: path is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = trigger.logger
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:     abs,
		debounce: debounce,
		logger:   logger.With(slog.String("path", abs)),
		fire: func(ctx context.Context) (swappable.Outcome, error) {
			res, err := trigger.Fire(ctx, "watch:"+abs, hook)
			return res.Outcome, err
		},
		fsw:    fsw,
		ctx:    watchCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops watching. A reload already running completes first.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.fsw.Close()
		<-w.done

		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		// Wait for an in-flight flush.
		w.flushMu.Lock()
		w.flushMu.Unlock()
	})
	return w.closeErr
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
		return
	}
	w.timer.Reset(w.debounce)
}

func (w *Watcher) flush() {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed || w.ctx.Err() != nil {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("read watched file", slog.Any("error", err))
		return
	}
	hash := hashContent(data)
	if hash == w.lastHash {
		w.logger.Debug("watched file unchanged; reload skipped")
		return
	}

	outcome, err := w.fire(w.ctx)
	if err != nil {
		return
	}
	if outcome == swappable.Published {
		w.lastHash = hash
	}
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
