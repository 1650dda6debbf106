package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// EventSink receives calendar events. Implementation: usecase.FocusEngine.
type EventSink interface {
	SetExternalEvents(events []domain.ExternalEvent)
	CalendarEnabled() bool
}

// CalendarMetrics records sync results. Implementation: metrics.Metrics.
type CalendarMetrics interface {
	CalendarSynced(result string)
}

// CalendarSync pulls meetings from a calendar feed into the engine.
// Syncs are serialized so an on-demand sync never races the periodic one.
type CalendarSync struct {
	mu        sync.Mutex
	feed      domain.CalendarFeed
	sink      EventSink
	clock     domain.Clock
	lookahead time.Duration
	metrics   CalendarMetrics
	logger    *zap.Logger
}

// NewCalendarSync creates a calendar sync job.
func NewCalendarSync(feed domain.CalendarFeed, sink EventSink, clock domain.Clock, lookahead time.Duration, logger *zap.Logger) *CalendarSync {
	return &CalendarSync{
		feed:      feed,
		sink:      sink,
		clock:     clock,
		lookahead: lookahead,
		logger:    logger,
	}
}

// WithMetrics sets the metrics sink and returns c.
func (c *CalendarSync) WithMetrics(m CalendarMetrics) *CalendarSync {
	c.metrics = m
	return c
}

// Sync fetches events overlapping [now, now+lookahead). A failed fetch
// keeps the previously known events.
func (c *CalendarSync) Sync(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sink.CalendarEnabled() {
		return nil
	}
	if !c.feed.Authorized() {
		c.logger.Debug("calendar feed not authorized, skipping sync")
		c.record("skipped")
		return nil
	}

	now := c.clock.Now()
	events, err := c.feed.Events(ctx, now, now.Add(c.lookahead))
	if err != nil {
		c.logger.Warn("calendar sync failed", zap.Error(err))
		c.record("error")
		return err
	}

	c.sink.SetExternalEvents(events)
	c.logger.Debug("calendar synced", zap.Int("events", len(events)))
	c.record("ok")
	return nil
}

func (c *CalendarSync) record(result string) {
	if c.metrics != nil {
		c.metrics.CalendarSynced(result)
	}
}
