package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
)

// BatchLoader writes multiple assessments to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, assessments []domain.Assessment) error
}

// DroppedError reports assessments a BatchLoader discarded because they can
// never be written, such as ones that fail to serialize. The rest of the batch
// was written, so the Publisher does not retry.
type DroppedError struct {
	Dropped int
	Err     error
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("dropped %d unpublishable assessments: %v", e.Dropped, e.Err)
}

func (e *DroppedError) Unwrap() error { return e.Err }

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// shutdownFlushTimeout bounds the final write of pending assessments
	// after the run context is cancelled.
	shutdownFlushTimeout = 5 * time.Second
)

// Publisher batches queued assessments and hands them to a BatchLoader. A
// batch is written when it reaches batchSize or when flushInterval elapses,
// whichever comes first.
type Publisher struct {
	loader        BatchLoader
	queue         chan domain.Assessment
	logger        *slog.Logger
	metrics       *observability.Metrics
	batchSize     int
	flushInterval time.Duration
}

// NewPublisher creates a Publisher with a queue of queueSize assessments.
func NewPublisher(l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration, queueSize int) *Publisher {
	return &Publisher{
		loader:        l,
		queue:         make(chan domain.Assessment, queueSize),
		logger:        logger,
		metrics:       metrics,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Enqueue queues an assessment without blocking. When the queue is full the
// assessment is dropped and counted.
func (p *Publisher) Enqueue(a domain.Assessment) bool {
	select {
	case p.queue <- a:
		return true
	default:
		p.metrics.AssessmentsDropped.Inc()
		p.logger.Warn("publish queue full, dropping assessment", "assessment_id", a.ID, "session_id", a.SessionID)
		return false
	}
}

// Run executes the batch publish loop until the context is cancelled, then
// makes one last attempt to write whatever is still pending.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publisher started", "batch_size", p.batchSize, "flush_interval", p.flushInterval)
	p.metrics.PublisherRunning.Set(1)
	defer p.metrics.PublisherRunning.Set(0)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	backoff := initialBackoff
	batch := make([]domain.Assessment, 0, p.batchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("publisher stopping", "reason", ctx.Err())
			p.flushOnShutdown(ctx, p.drain(batch))
			return nil
		case a := <-p.queue:
			batch = append(batch, a)
			if len(batch) < p.batchSize {
				continue
			}
		case <-ticker.C:
			if len(batch) == 0 {
				continue
			}
		}

		if !p.publish(ctx, batch, &backoff) {
			p.flushOnShutdown(ctx, p.drain(batch))
			return nil
		}
		batch = make([]domain.Assessment, 0, p.batchSize)
	}
}

// publish writes one batch, retrying with exponential backoff until it
// succeeds or the loader reports a DroppedError. Returns false if the context
// was cancelled first.
func (p *Publisher) publish(ctx context.Context, batch []domain.Assessment, backoff *time.Duration) bool {
	for {
		start := time.Now()
		err := p.loader.LoadBatch(ctx, batch)
		if dropped, ok := p.recordDropped(err, batch); err == nil || ok {
			p.recordPublished(len(batch)-dropped, start)
			*backoff = initialBackoff
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish batch failed", "error", err, "batch_size", len(batch), "retry_in", *backoff)
		if !retry.SleepWithContext(ctx, *backoff) {
			return false
		}
		*backoff = retry.NextBackoff(*backoff, maxBackoff)
	}
}

// recordDropped reports whether err is a DroppedError and, if so, counts the
// discarded assessments.
func (p *Publisher) recordDropped(err error, batch []domain.Assessment) (int, bool) {
	var dropped *DroppedError
	if !errors.As(err, &dropped) {
		return 0, false
	}
	p.metrics.PublishErrors.Inc()
	p.metrics.AssessmentsDropped.Add(float64(dropped.Dropped))
	p.logger.Error("assessments dropped, not retrying", "error", err, "dropped", dropped.Dropped, "batch_size", len(batch))
	return dropped.Dropped, true
}

func (p *Publisher) recordPublished(n int, start time.Time) {
	p.metrics.AssessmentsPublished.Add(float64(n))
	p.metrics.PublishBatchSize.Observe(float64(n))
	p.metrics.PublishDuration.Observe(time.Since(start).Seconds())
}

// drain moves everything currently queued onto batch.
func (p *Publisher) drain(batch []domain.Assessment) []domain.Assessment {
	for {
		select {
		case a := <-p.queue:
			batch = append(batch, a)
		default:
			return batch
		}
	}
}

func (p *Publisher) flushOnShutdown(ctx context.Context, batch []domain.Assessment) {
	if len(batch) == 0 {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()

	start := time.Now()
	err := p.loader.LoadBatch(flushCtx, batch)
	dropped, ok := p.recordDropped(err, batch)
	if err != nil && !ok {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("final publish failed, assessments lost", "error", err, "batch_size", len(batch))
		return
	}
	p.recordPublished(len(batch)-dropped, start)
}
