package reload

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/chenyanchen/swappable"
)

// Scheduler fires a trigger on a cron schedule.
type Scheduler struct {
	spec string
	cron *cron.Cron
}

// Schedule prepares periodic reloads. spec uses the standard five-field cron
// syntax or a descriptor such as "@every 5m". Call Start to begin.
func Schedule[T any](trigger *Trigger[T], spec string, hook swappable.Hook[T]) (*Scheduler, error) {
	if trigger == nil {
		return nil, fmt.Errorf("schedule %q: trigger is nil", spec)
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		_, _ = trigger.Fire(context.Background(), "schedule:"+spec, hook)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, cron: c}, nil
}

// Spec returns the cron spec this scheduler runs on.
func (s *Scheduler) Spec() string {
	return s.spec
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running reload until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
