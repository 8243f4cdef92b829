package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/rs/zerolog/log"
)

// ErrDispatcherRunning is returned when Start is called twice.
var ErrDispatcherRunning = errors.New("event dispatcher already running")

type DispatcherConfig struct {
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:  256,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// MetricsCollector receives publish outcomes
type MetricsCollector interface {
	RecordEventPublished(eventType string, success bool, duration time.Duration)
	RecordEventDropped(eventType string)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordEventPublished(eventType string, success bool, duration time.Duration) {}
func (NoOpMetricsCollector) RecordEventDropped(eventType string)                                        {}

// Dispatcher queues transition batches from a session and publishes them in the background,
// so the session never waits on the broker.
type Dispatcher struct {
	publisher Publisher
	clock     clockwork.Clock
	config    DispatcherConfig
	metrics   MetricsCollector

	queue chan Event

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

var _ session.TransitionPublisher = (*Dispatcher)(nil)

func NewDispatcher(publisher Publisher, clock clockwork.Clock, cfg DispatcherConfig, metrics MetricsCollector) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDispatcherConfig().QueueSize
	}
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Dispatcher{
		publisher: publisher,
		clock:     clock,
		config:    cfg,
		metrics:   metrics,
		queue:     make(chan Event, cfg.QueueSize),
	}
}

// PublishTransitions converts batch to events and queues them. A full queue drops events.
func (d *Dispatcher) PublishTransitions(ctx context.Context, batch session.TransitionBatch) {
	evts, err := FromBatch(batch, d.clock.Now().UTC())
	if err != nil {
		log.Error().Err(err).Uint64("seq", batch.Seq).Msg("failed to build events")
		return
	}

	for _, evt := range evts {
		select {
		case d.queue <- evt:
		default:
			d.metrics.RecordEventDropped(evt.EventType)
			log.Warn().
				Str("event_type", evt.EventType).
				Str("event_id", evt.ID.String()).
				Msg("event queue full; dropping event")
		}
	}
}

// Start runs the publishing loop until ctx is cancelled. Queued events are flushed on the way out.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDispatcherRunning
	}
	d.running = true

	d.wg.Add(1)
	go d.run(ctx)

	log.Info().Int("queue_size", d.config.QueueSize).Msg("event dispatcher started")
	return nil
}

// Wait blocks until the loop started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain()
			log.Info().Msg("event dispatcher stopped")
			return
		case evt := <-d.queue:
			d.publishWithRetry(ctx, evt)
		}
	}
}

// drain publishes whatever is still queued, once, with a fresh deadline.
func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case evt := <-d.queue:
			d.publishOnce(ctx, evt)
		default:
			return
		}
	}
}

func (d *Dispatcher) publishWithRetry(ctx context.Context, evt Event) {
	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-d.clock.After(d.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := d.publishOnce(ctx, evt); err == nil {
			return
		}
	}

	log.Error().
		Str("event_id", evt.ID.String()).
		Str("event_type", evt.EventType).
		Int("attempts", d.config.MaxRetries+1).
		Msg("giving up on event")
}

func (d *Dispatcher) publishOnce(ctx context.Context, evt Event) error {
	start := d.clock.Now()
	err := d.publisher.Publish(ctx, evt)
	d.metrics.RecordEventPublished(evt.EventType, err == nil, d.clock.Since(start))
	if err != nil {
		log.Warn().
			Err(err).
			Str("event_id", evt.ID.String()).
			Str("event_type", evt.EventType).
			Msg("failed to publish event")
	}
	return err
}
