package reload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chenyanchen/swappable"
)

// Config declares what fires reloads for one singleton.
//
//	path: /etc/app/rules.yaml
//	debounce: 250ms
//	schedule: "@every 10m"
type Config struct {
	Path     string        `yaml:"path"`
	Debounce time.Duration `yaml:"debounce"`
	Schedule string        `yaml:"schedule"`
}

// LoadConfig reads a YAML Config from path.
func LoadConfig(path string) (Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(payload)
}

// ParseConfig decodes and validates a YAML Config.
func ParseConfig(payload []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse reload config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the config names at least one reload source.
func (c Config) Validate() error {
	if c.Path == "" && c.Schedule == "" {
		return fmt.Errorf("reload config: neither path nor schedule is set")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("reload config: debounce is negative")
	}
	return nil
}

// Runner owns the watcher and scheduler started from a Config.
type Runner struct {
	watcher   *Watcher
	scheduler *Scheduler
}

// Start wires a watcher and a scheduler for cfg around trigger.
func Start[T any](ctx context.Context, trigger *Trigger[T], cfg Config, hook swappable.Hook[T]) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{}
	if cfg.Path != "" {
		w, err := Watch(ctx, trigger, cfg.Path, hook, WatchOptions{Debounce: cfg.Debounce})
		if err != nil {
			return nil, err
		}
		r.watcher = w
	}
	if cfg.Schedule != "" {
		s, err := Schedule(trigger, cfg.Schedule, hook)
		if err != nil {
			if r.watcher != nil {
				_ = r.watcher.Close()
			}
			return nil, err
		}
		s.Start()
		r.scheduler = s
	}
	return r, nil
}

// Watcher returns the file watcher, or nil when no path was configured.
func (r *Runner) Watcher() *Watcher {
	return r.watcher
}

// Scheduler returns the scheduler, or nil when no schedule was configured.
func (r *Runner) Scheduler() *Scheduler {
	return r.scheduler
}

// Close stops both sources.
func (r *Runner) Close(ctx context.Context) error {
	var errs []error
	if r.scheduler != nil {
		if err := r.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if r.watcher != nil {
		if err := r.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}
	return errors.Join(errs...)
}
