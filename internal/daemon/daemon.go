package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Config holds daemon configuration.
type Config struct {
	PolicyInterval       time.Duration // Safety-net re-evaluation (default 60s)
	CalendarSyncInterval time.Duration // How often to pull meetings (default 5m)
	ShutdownTimeout      time.Duration // Budget for stopping servers
}

// DefaultConfig returns default daemon configuration.
func DefaultConfig() Config {
	return Config{
		PolicyInterval:       60 * time.Second,
		CalendarSyncInterval: 5 * time.Minute,
		ShutdownTimeout:      5 * time.Second,
	}
}

// Engine is the part of usecase.FocusEngine the daemon drives.
type Engine interface {
	Evaluate() domain.BlockingDecision
	Close()
}

// Service is a long-running listener (block page, control API).
type Service interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

// Daemon owns every timer and listener of a running focus session.
type Daemon struct {
	config    Config
	engine    Engine
	monitor   *Monitor
	scheduler *Scheduler
	calendar  *CalendarSync
	services  []Service
	logger    *zap.Logger
}

// New creates a daemon. calendar may be nil.
func New(
	config Config,
	engine Engine,
	monitor *Monitor,
	scheduler *Scheduler,
	calendar *CalendarSync,
	services []Service,
	logger *zap.Logger,
) *Daemon {
	return &Daemon{
		config:    config,
		engine:    engine,
		monitor:   monitor,
		scheduler: scheduler,
		calendar:  calendar,
		services:  services,
		logger:    logger,
	}
}

// Run starts all services and timers and blocks until ctx is cancelled.
// Shutdown cancels every timer and releases every listener before returning.
func (d *Daemon) Run(ctx context.Context) error {
	started := make([]Service, 0, len(d.services))
	for _, s := range d.services {
		if err := s.Start(); err != nil {
			d.stopServices(started)
			return fmt.Errorf("start %s: %w", s.Name(), err)
		}
		started = append(started, s)
	}

	decision := d.engine.Evaluate()
	d.logger.Info("daemon started",
		zap.Bool("is_blocking", decision.IsBlocking),
		zap.Int("rules", len(decision.AllowedRules)))

	d.scheduler.Repeat(d.config.PolicyInterval, func() {
		d.engine.Evaluate()
	})

	if d.calendar != nil {
		_ = d.calendar.Sync(ctx)
		d.scheduler.Repeat(d.config.CalendarSyncInterval, func() {
			_ = d.calendar.Sync(ctx)
		})
	}

	d.monitor.Start(ctx)

	<-ctx.Done()
	d.logger.Info("daemon stopping")

	d.monitor.Stop()
	d.engine.Close()
	d.scheduler.Close()
	d.stopServices(started)

	return ctx.Err()
}

func (d *Daemon) stopServices(services []Service) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil {
			d.logger.Warn("failed to stop service",
				zap.String("service", services[i].Name()),
				zap.Error(err))
		}
	}
}
