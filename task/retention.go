package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var retentionCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// parseRetentionSchedule parses a UTC-only five-field cron expression.
func parseRetentionSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, errors.New("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, errors.New("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := retentionCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// SweeperConfig configures the retention sweeper.
type SweeperConfig struct {
	Manager *Manager
	// Schedule is a five-field cron expression evaluated in UTC.
	Schedule string
	// MaxAge is how long terminal tasks are retained after their last
	// transition.
	MaxAge time.Duration
	Logger *slog.Logger
}

// Sweeper periodically prunes terminal tasks older than the retention age.
// In-flight tasks and task ids are unaffected: ids come from a counter that
// never resets, so pruning cannot cause reuse.
type Sweeper struct {
	manager  *Manager
	schedule cron.Schedule
	maxAge   time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper validates the configuration and creates a stopped sweeper.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	if cfg.Manager == nil {
		return nil, errors.New("task: sweeper requires a manager")
	}
	if cfg.MaxAge <= 0 {
		return nil, errors.New("task: sweeper retention age must be positive")
	}
	schedule, err := parseRetentionSchedule(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("task: sweeper schedule: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		manager:  cfg.Manager,
		schedule: schedule,
		maxAge:   cfg.MaxAge,
		logger:   logger,
	}, nil
}

// Start launches the sweep loop. Calling Start on a running sweeper is an
// error.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("task: sweeper already started")
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.loop(loopCtx, done)
	return nil
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		next := s.schedule.Next(time.Now().UTC())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if removed := s.manager.Prune(s.maxAge); removed > 0 {
				s.logger.Info("pruned terminal tasks",
					"removed", removed,
					"retained", s.manager.Len(),
				)
			}
		}
	}
}
