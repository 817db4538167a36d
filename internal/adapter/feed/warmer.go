package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher repopulates cached headlines for a feed.
type Refresher interface {
	Refresh(ctx context.Context, feedURL string, limit int) int
}

// Warmer refreshes the headline cache on a cron schedule so requests rarely
// wait on the upstream feed.
type Warmer struct {
	cron      *cron.Cron
	refresher Refresher
	feedURL   string
	limit     int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewWarmer parses schedule (standard five-field cron or descriptors such as
// "@every 10m") and registers the refresh job.
func NewWarmer(schedule string, refresher Refresher, feedURL string, limit int, timeout time.Duration, logger *slog.Logger) (*Warmer, error) {
	w := &Warmer{
		cron:      cron.New(),
		refresher: refresher,
		feedURL:   feedURL,
		limit:     limit,
		timeout:   timeout,
		logger:    logger,
	}
	if _, err := w.cron.AddFunc(schedule, w.refresh); err != nil {
		return nil, fmt.Errorf("add refresh schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start runs one refresh immediately and then follows the schedule.
func (w *Warmer) Start() {
	go w.refresh()
	w.cron.Start()
	w.logger.Info("headline warmer started", "feed_url", w.feedURL)
}

// Stop waits for a running refresh to finish or ctx to expire.
func (w *Warmer) Stop(ctx context.Context) error {
	stopCtx := w.cron.Stop()

	select {
	case <-stopCtx.Done():
		w.logger.Info("headline warmer stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("headline warmer stop timeout")
		return ctx.Err()
	}
}

func (w *Warmer) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	n := w.refresher.Refresh(ctx, w.feedURL, w.limit)
	w.logger.Debug("headline cache refreshed", "feed_url", w.feedURL, "headlines", n)
}
