package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/log"
)

// RolloverConfig holds configuration for the month rollover worker
type RolloverConfig struct {
	// Interval is how often the current month is ensured (default: 1h)
	Interval time.Duration

	// RecalculateInterval is how often recurring expenses of every month are
	// recomputed from their transactions (default: 24h, 0 disables)
	RecalculateInterval time.Duration
}

// DefaultRolloverConfig returns sensible defaults
func DefaultRolloverConfig() RolloverConfig {
	return RolloverConfig{
		Interval:            time.Hour,
		RecalculateInterval: 24 * time.Hour,
	}
}

// MonthRollover keeps the month containing "now" in existence. Creating it
// materializes the recurring templates.
type MonthRollover struct {
	months *MonthService
	config RolloverConfig
	logger *log.Logger
	now    func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMonthRollover(months *MonthService, config RolloverConfig, logger *log.Logger, opts ...Option) *MonthRollover {
	if logger == nil {
		logger = log.Nop()
	}
	s := applyOptions(opts)
	return &MonthRollover{
		months: months,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    s.now,
	}
}

// Run ensures the month containing now exists. created reports whether this
// call created it.
func (r *MonthRollover) Run(ctx context.Context, now time.Time) (core.Month, bool, error) {
	m, created, err := r.months.EnsureMonth(ctx, int(now.Month()), now.Year())
	if err != nil {
		return core.Month{}, false, fmt.Errorf("ensure month %04d-%02d: %w", now.Year(), int(now.Month()), err)
	}
	if created {
		r.logger.Info("Rolled over to new month", log.FieldMonthID, m.ID, log.FieldMonth, m.Month, log.FieldYear, m.Year)
	}
	return m, created, nil
}

// Start begins the rollover loop. Returns an error if already running.
func (r *MonthRollover) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("month rollover is already running")
	}
	r.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	r.stopCh, r.doneCh = stopCh, doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	r.logger.Info("Month rollover started",
		"interval", r.config.Interval.String(),
		"recalculate_interval", r.config.RecalculateInterval.String())

	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (r *MonthRollover) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.stopCh = nil
	r.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}

	select {
	case <-doneCh:
		r.logger.Info("Month rollover stopped gracefully")
	case <-ctx.Done():
		r.logger.Warn("Month rollover stop timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the rollover loop is currently running
func (r *MonthRollover) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// runLoop clears running before signalling done, whether it exits through
// Stop or through ctx.
func (r *MonthRollover) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	var recalc <-chan time.Time
	if r.config.RecalculateInterval > 0 {
		recalcTicker := time.NewTicker(r.config.RecalculateInterval)
		defer recalcTicker.Stop()
		recalc = recalcTicker.C
	}

	// Run immediately on startup
	r.tick(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		case <-recalc:
			if err := r.months.RecalculateRecurringExpenses(ctx, nil); err != nil {
				r.logger.Error("Recurring expense recalculation failed", log.FieldError, err)
			}
		}
	}
}

func (r *MonthRollover) tick(ctx context.Context) {
	if _, _, err := r.Run(ctx, r.now()); err != nil {
		r.logger.Error("Month rollover failed", log.FieldError, err)
	}
}
