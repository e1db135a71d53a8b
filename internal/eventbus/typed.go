package eventbus

import (
	"context"
	"sync"
	"time"
)

// TopicDef binds a Topic string to a payload type T at compile time.
// Use with Publish and SubscribeTo for type-safe messaging.
type TopicDef[T any] struct{ topic Topic }

// NewTopicDef creates a typed topic descriptor for the given topic string.
func NewTopicDef[T any](topic Topic) TopicDef[T] { return TopicDef[T]{topic: topic} }

// Topic returns the underlying topic string.
func (d TopicDef[T]) Topic() Topic { return d.topic }

// Typed topic descriptors for every standard topic. The compiler enforces
// that a payload published through a descriptor matches the topic's type.
var (
	ComponentWillLoad     = NewTopicDef[ComponentWillLoadEvent](TopicComponentWillLoad)
	ComponentLoadProgress = NewTopicDef[ComponentLoadProgressEvent](TopicComponentLoadProgress)
	ComponentDidLoad      = NewTopicDef[ComponentDidLoadEvent](TopicComponentDidLoad)
	ComponentLoadFailed   = NewTopicDef[ComponentLoadFailedEvent](TopicComponentLoadFailed)
	ComponentWillUnload   = NewTopicDef[ComponentWillUnloadEvent](TopicComponentWillUnload)
	ComponentDidUnload    = NewTopicDef[ComponentDidUnloadEvent](TopicComponentDidUnload)

	BatchStarted   = NewTopicDef[BatchStartedEvent](TopicBatchStarted)
	BatchCompleted = NewTopicDef[BatchCompletedEvent](TopicBatchCompleted)

	MemoryPressure     = NewTopicDef[MemoryPressureEvent](TopicMemoryPressure)
	MemoryUsageUpdated = NewTopicDef[MemoryUsageEvent](TopicMemoryUsageUpdated)

	SpeechVADDetected       = NewTopicDef[VADDetectedEvent](TopicSpeechVADDetected)
	SpeechTranscriptPartial = NewTopicDef[TranscriptEvent](TopicSpeechTranscriptPartial)
	SpeechTranscriptFinal   = NewTopicDef[TranscriptEvent](TopicSpeechTranscriptFinal)

	VoiceAgentResponse = NewTopicDef[ResponseEvent](TopicVoiceAgentResponse)
	VoiceAgentAudio    = NewTopicDef[AudioGeneratedEvent](TopicVoiceAgentAudio)
	VoiceAgentTurn     = NewTopicDef[TurnCompletedEvent](TopicVoiceAgentTurn)

	TelemetryFlushed = NewTopicDef[TelemetryFlushedEvent](TopicTelemetryFlushed)
	TelemetryDropped = NewTopicDef[TelemetryDroppedEvent](TopicTelemetryDropped)
)

// PublishOption customises the Envelope built by typed publishing.
type PublishOption func(*Envelope)

// WithCorrelationID sets the envelope correlation ID.
func WithCorrelationID(id string) PublishOption {
	return func(env *Envelope) {
		env.CorrelationID = id
	}
}

// WithTimestamp overrides the envelope timestamp (default is time.Now().UTC()).
func WithTimestamp(ts time.Time) PublishOption {
	return func(env *Envelope) {
		env.Timestamp = ts
	}
}

// Publish sends a typed payload on the bus using the topic descriptor.
// If bus is nil the call is a no-op.
func Publish[T any](ctx context.Context, bus *Bus, td TopicDef[T], source Source, payload T, opts ...PublishOption) {
	if bus == nil {
		return
	}
	env := Envelope{
		Topic:   td.topic,
		Source:  source,
		Payload: payload,
	}
	for _, opt := range opts {
		opt(&env)
	}
	bus.Publish(ctx, env)
}

// PublishAsync is the detached variant of Publish; the fan-out runs in its
// own goroutine so slow subscribers never block the caller.
func PublishAsync[T any](ctx context.Context, bus *Bus, td TopicDef[T], source Source, payload T, opts ...PublishOption) {
	if bus == nil {
		return
	}
	env := Envelope{
		Topic:   td.topic,
		Source:  source,
		Payload: payload,
	}
	for _, opt := range opts {
		opt(&env)
	}
	bus.PublishAsync(ctx, env)
}

// TypedEnvelope is a generic wrapper around Envelope with a typed payload.
type TypedEnvelope[T any] struct {
	Topic         Topic
	Timestamp     time.Time
	Source        Source
	CorrelationID string
	Payload       T
}

// TypedSubscription wraps a raw Subscription and delivers only payloads
// that match the type parameter T. Mismatched payloads are silently skipped.
type TypedSubscription[T any] struct {
	raw       *Subscription
	ch        chan TypedEnvelope[T]
	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

// SubscribeTo creates a typed subscription using a topic descriptor.
func SubscribeTo[T any](bus *Bus, td TopicDef[T], opts ...SubscriptionOption) *TypedSubscription[T] {
	return SubscribeTyped[T](bus, td.topic, opts...)
}

// SubscribeTyped creates a typed subscription on the given bus and topic.
// A bridge goroutine reads from the underlying Subscription, performs a
// type assertion on each Envelope.Payload, and forwards matching events
// to the typed channel.
//
// If bus is nil the returned subscription's channel is immediately closed
// and Close is a no-op, symmetric with Publish's nil-bus handling.
func SubscribeTyped[T any](bus *Bus, topic Topic, opts ...SubscriptionOption) *TypedSubscription[T] {
	if bus == nil {
		ch := make(chan TypedEnvelope[T])
		done := make(chan struct{})
		close(ch)
		close(done)
		return &TypedSubscription[T]{
			ch:   ch,
			done: done,
			quit: make(chan struct{}),
		}
	}

	raw := bus.Subscribe(topic, opts...)

	ts := &TypedSubscription[T]{
		raw:  raw,
		ch:   make(chan TypedEnvelope[T]),
		done: make(chan struct{}),
		quit: make(chan struct{}),
	}

	go ts.bridge()
	return ts
}

// C returns the typed event channel.
func (ts *TypedSubscription[T]) C() <-chan TypedEnvelope[T] {
	return ts.ch
}

// Close stops the bridge goroutine and closes the underlying subscription.
// It is safe to call Close multiple times.
func (ts *TypedSubscription[T]) Close() {
	ts.closeOnce.Do(func() {
		close(ts.quit)
		if ts.raw != nil {
			ts.raw.Close()
		}
		<-ts.done
	})
}

func (ts *TypedSubscription[T]) bridge() {
	defer close(ts.done)
	defer close(ts.ch)

	for env := range ts.raw.C() {
		payload, ok := env.Payload.(T)
		if !ok {
			continue
		}
		typed := TypedEnvelope[T]{
			Topic:         env.Topic,
			Timestamp:     env.Timestamp,
			Source:        env.Source,
			CorrelationID: env.CorrelationID,
			Payload:       payload,
		}
		select {
		case ts.ch <- typed:
		case <-ts.quit:
			return
		}
	}
}
