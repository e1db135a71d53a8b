package telemetry

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/edgekit-ai/edgekit/internal/eventbus"
	"github.com/edgekit-ai/edgekit/internal/sanitize"
)

// Defaults for queue behaviour.
const (
	DefaultFlushThreshold = 50
	DefaultFlushInterval  = 30 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBackoffUnit    = time.Second
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("telemetry: queue closed")

// Options configures the analytics queue.
type Options struct {
	Sink     Sink
	Spool    Spool // optional best-effort local persistence
	Bus      *eventbus.Bus
	Metadata MetadataProvider
	Logger   *log.Logger

	FlushThreshold int           // events that trigger a flush (default 50)
	FlushInterval  time.Duration // timer flush interval (default 30s)
	BatchSize      int           // max events per batch (default FlushThreshold)
	MaxAttempts    int           // send attempts per batch (default 3)
	BackoffUnit    time.Duration // backoff = 2^attempt * unit (default 1s)
}

// Queue buffers analytics events and flushes them in batches. The buffer
// is owned by a single goroutine; all access goes through channels, so no
// caller ever touches the buffer directly.
type Queue struct {
	sink     Sink
	spool    Spool
	bus      *eventbus.Bus
	metadata MetadataProvider
	logger   *log.Logger

	threshold   int
	interval    time.Duration
	batchSize   int
	maxAttempts int
	backoffUnit time.Duration

	events   chan Event
	flushReq chan chan struct{}
	quit     chan struct{}
	done     chan struct{}

	depth atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// NewQueue starts the queue's owner goroutine.
func NewQueue(opts Options) *Queue {
	q := &Queue{
		sink:        opts.Sink,
		spool:       opts.Spool,
		bus:         opts.Bus,
		metadata:    opts.Metadata,
		logger:      opts.Logger,
		threshold:   opts.FlushThreshold,
		interval:    opts.FlushInterval,
		batchSize:   opts.BatchSize,
		maxAttempts: opts.MaxAttempts,
		backoffUnit: opts.BackoffUnit,
		events:      make(chan Event, 256),
		flushReq:    make(chan chan struct{}),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	if q.sink == nil {
		q.sink = NopSink{}
	}
	if q.metadata == nil {
		q.metadata = DeviceMetadata{}
	}
	if q.logger == nil {
		q.logger = log.Default()
	}
	if q.threshold <= 0 {
		q.threshold = DefaultFlushThreshold
	}
	if q.interval <= 0 {
		q.interval = DefaultFlushInterval
	}
	if q.batchSize <= 0 {
		q.batchSize = q.threshold
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = DefaultMaxAttempts
	}
	if q.backoffUnit <= 0 {
		q.backoffUnit = DefaultBackoffUnit
	}

	go q.run()
	return q
}

// Enqueue appends one event to the buffer. A flush is triggered once the
// buffer reaches the threshold or the flush interval elapses, whichever
// comes first.
func (q *Queue) Enqueue(name string, properties map[string]any) error {
	ev := NewEvent(sanitize.EventName(name), properties)
	select {
	case q.events <- ev:
		q.depth.Add(1)
		return nil
	case <-q.quit:
		return ErrClosed
	}
}

// Depth returns the number of events waiting to be flushed.
func (q *Queue) Depth() int {
	return int(q.depth.Load())
}

// Flush forces delivery of everything currently buffered and waits for it.
func (q *Queue) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case q.flushReq <- ack:
	case <-q.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes the remaining buffer, stops the owner goroutine, and closes
// the sink and spool.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.quit)
		<-q.done

		var errs []error
		if err := q.sink.Close(); err != nil {
			errs = append(errs, err)
		}
		if q.spool != nil {
			if err := q.spool.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		q.closeErr = errors.Join(errs...)
	})
	return q.closeErr
}

// run is the single owner of the event buffer.
func (q *Queue) run() {
	defer close(q.done)

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	var buffer []Event
	for {
		select {
		case ev := <-q.events:
			buffer = append(buffer, ev)
			if len(buffer) >= q.threshold {
				buffer = q.flush(buffer)
				ticker.Reset(q.interval)
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				buffer = q.flush(buffer)
			}
		case ack := <-q.flushReq:
			for len(buffer) > 0 {
				buffer = q.flush(buffer)
			}
			close(ack)
		case <-q.quit:
			// Drain whatever was enqueued before the close, then flush.
			for {
				select {
				case ev := <-q.events:
					buffer = append(buffer, ev)
					continue
				default:
				}
				break
			}
			for len(buffer) > 0 {
				buffer = q.flush(buffer)
			}
			return
		}
	}
}

// flush delivers the oldest batchSize events and returns the remainder.
// The batch is dropped unconditionally after the attempts are exhausted;
// nothing is requeued.
func (q *Queue) flush(buffer []Event) []Event {
	n := len(buffer)
	if n > q.batchSize {
		n = q.batchSize
	}
	meta := sanitize.NewMetadataAccumulator(q.metadata.Metadata(), sanitize.DefaultMetadataLimits())
	batch := Batch{
		ID:       uuid.NewString(),
		Events:   buffer[:n:n],
		Metadata: meta.Result(),
		SentAt:   time.Now().UTC(),
	}
	remainder := buffer[n:]
	q.depth.Add(int64(-n))

	ctx := context.Background()

	if q.spool != nil {
		if err := q.spool.SaveBatch(ctx, batch); err != nil {
			q.logger.Printf("[telemetry] spool batch %s: %v", batch.ID, err)
		}
	}

	var sendErr error
	attempts := 0
	for attempt := 0; attempt < q.maxAttempts; attempt++ {
		attempts = attempt + 1
		sendErr = q.sink.Send(ctx, batch)
		if sendErr == nil {
			break
		}
		q.logger.Printf("[telemetry] send batch %s attempt %d/%d: %v",
			batch.ID, attempts, q.maxAttempts, sendErr)
		if attempt < q.maxAttempts-1 && !q.backoff(attempt) {
			break
		}
	}

	if q.spool != nil {
		if err := q.spool.DeleteBatch(ctx, batch.ID); err != nil {
			q.logger.Printf("[telemetry] purge spool batch %s: %v", batch.ID, err)
		}
	}

	if sendErr == nil {
		eventbus.Publish(ctx, q.bus, eventbus.TelemetryFlushed, eventbus.SourceTelemetry,
			eventbus.TelemetryFlushedEvent{BatchID: batch.ID, Count: len(batch.Events)},
			eventbus.WithCorrelationID(batch.ID))
	} else {
		q.logger.Printf("[telemetry] dropping batch %s (%d events) after %d attempts",
			batch.ID, len(batch.Events), attempts)
		eventbus.Publish(ctx, q.bus, eventbus.TelemetryDropped, eventbus.SourceTelemetry,
			eventbus.TelemetryDroppedEvent{BatchID: batch.ID, Count: len(batch.Events), Attempts: attempts},
			eventbus.WithCorrelationID(batch.ID))
	}

	return remainder
}

// backoff waits 2^attempt units before the next retry. Returns false when
// the queue is closed during the wait.
func (q *Queue) backoff(attempt int) bool {
	wait := time.Duration(1<<uint(attempt)) * q.backoffUnit
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-q.quit:
		return false
	}
}
