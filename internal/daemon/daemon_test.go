package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/matcher"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
)

// countingEngine implements Engine and DecisionSource for testing
type countingEngine struct {
	fakeEngine
	evaluations atomic.Int32
	closed      atomic.Bool
}

func (e *countingEngine) Evaluate() domain.BlockingDecision {
	e.evaluations.Add(1)
	return e.Decision()
}

func (e *countingEngine) Close() { e.closed.Store(true) }

// fakeService implements Service for testing
type fakeService struct {
	name     string
	startErr error
	mu       sync.Mutex
	started  bool
	stopped  bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeService) state() (started, stopped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started, s.stopped
}

func newTestDaemon(engine *countingEngine, services ...Service) (*Daemon, *Scheduler, *fakeBridge) {
	sched := NewScheduler()
	bridge := newFakeBridge(chrome, "https://youtube.com")

	monCfg := DefaultMonitorConfig()
	monCfg.Interval = 2 * time.Millisecond
	monitor := NewMonitor(monCfg, engine, bridge, policy.NewRegistry(), matcher.Default,
		sched, domain.SystemClock{}, nil, zap.NewNop())

	cfg := DefaultConfig()
	cfg.PolicyInterval = 2 * time.Millisecond
	return New(cfg, engine, monitor, sched, nil, services, zap.NewNop()), sched, bridge
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 60*time.Second, config.PolicyInterval)
	assert.Equal(t, 5*time.Minute, config.CalendarSyncInterval)
	assert.NotZero(t, config.ShutdownTimeout)
}

func TestDefaultMonitorConfig(t *testing.T) {
	config := DefaultMonitorConfig()

	assert.Equal(t, time.Second, config.Interval)
	assert.Equal(t, 3*time.Second, config.RedirectThrottle)
	assert.Equal(t, "http://localhost:10000", config.BlockPageURL)
}

func TestDaemon_RunAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &countingEngine{}
	engine.decision = domain.BlockingDecision{IsBlocking: true}
	svc := &fakeService{name: "block-page"}
	d, sched, bridge := newTestDaemon(engine, svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return engine.evaluations.Load() >= 3 && bridge.redirectCount() >= 1
	}, time.Second, time.Millisecond)

	started, _ := svc.state()
	assert.True(t, started)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}

	_, stopped := svc.state()
	assert.True(t, stopped, "listeners released")
	assert.True(t, engine.closed.Load())
	assert.Equal(t, 0, sched.Len(), "all timers cancelled")
	assert.False(t, d.monitor.Running())
}

func TestDaemon_ServiceStartFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := &fakeService{name: "block-page"}
	second := &fakeService{name: "control", startErr: errors.New("address already in use")}
	d, sched, _ := newTestDaemon(&countingEngine{}, first, second)
	defer sched.Close()

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "control")

	_, stopped := first.state()
	assert.True(t, stopped, "already started services are stopped")
	assert.Equal(t, 0, sched.Len())
}
