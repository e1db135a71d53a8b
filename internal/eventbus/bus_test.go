package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

func TestBusPublishDeliver(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.TopicComponentDidLoad)
	defer sub.Close()

	payload := eventbus.ComponentDidLoadEvent{
		Kind:       "llm",
		ResourceID: "llama-3b",
		Duration:   1500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	bus.Publish(ctx, eventbus.Envelope{
		Topic:   eventbus.TopicComponentDidLoad,
		Source:  eventbus.SourceComponent,
		Payload: payload,
	})

	select {
	case env := <-sub.C():
		msg, ok := env.Payload.(eventbus.ComponentDidLoadEvent)
		if !ok {
			t.Fatalf("expected ComponentDidLoadEvent payload, got %T", env.Payload)
		}
		if msg.Kind != "llm" {
			t.Fatalf("expected kind llm, got %q", msg.Kind)
		}
		if msg.ResourceID != "llama-3b" {
			t.Fatalf("unexpected resource id %q", msg.ResourceID)
		}
		if env.Timestamp.IsZero() {
			t.Fatal("expected envelope timestamp to be set")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	if got := bus.Metrics().PublishTotal; got != 1 {
		t.Fatalf("expected PublishTotal 1, got %d", got)
	}
}

func TestBusLateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := eventbus.New()
	ctx := context.Background()

	bus.Publish(ctx, eventbus.Envelope{
		Topic:   eventbus.TopicComponentDidLoad,
		Source:  eventbus.SourceComponent,
		Payload: eventbus.ComponentDidLoadEvent{Kind: "stt"},
	})

	sub := bus.Subscribe(eventbus.TopicComponentDidLoad)
	defer sub.Close()

	select {
	case env := <-sub.C():
		t.Fatalf("late subscriber should not receive earlier event, got %v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusCatchAllTopic(t *testing.T) {
	bus := eventbus.New()
	all := bus.Subscribe(eventbus.TopicAll)
	defer all.Close()

	ctx := context.Background()
	bus.Publish(ctx, eventbus.Envelope{
		Topic:   eventbus.TopicSpeechTranscriptFinal,
		Source:  eventbus.SourceVoiceAgent,
		Payload: eventbus.TranscriptEvent{Text: "hello", Final: true},
	})

	select {
	case env := <-all.C():
		if env.Topic != eventbus.TopicSpeechTranscriptFinal {
			t.Fatalf("expected original topic on catch-all envelope, got %s", env.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("catch-all subscriber did not receive event")
	}
}

func TestBusDropOldest(t *testing.T) {
	bus := eventbus.New(eventbus.WithTopicBuffer(eventbus.TopicSpeechVADDetected, 1))
	sub := bus.Subscribe(eventbus.TopicSpeechVADDetected, eventbus.WithSubscriptionBuffer(1))
	defer sub.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		bus.Publish(ctx, eventbus.Envelope{
			Topic:   eventbus.TopicSpeechVADDetected,
			Source:  eventbus.SourceVoiceAgent,
			Payload: eventbus.VADDetectedEvent{SpeechDetected: true, Energy: float64(i)},
		})
	}

	select {
	case env := <-sub.C():
		msg := env.Payload.(eventbus.VADDetectedEvent)
		if msg.Energy != 2 {
			t.Fatalf("expected newest sample to survive, got energy %v", msg.Energy)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	if sub.Dropped() == 0 {
		t.Fatal("expected drops to be recorded")
	}
}

func TestBusPublishOrderPerSubscriber(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(eventbus.TopicComponentLoadProgress, eventbus.WithSubscriptionBuffer(16))
	defer sub.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		bus.Publish(ctx, eventbus.Envelope{
			Topic:   eventbus.TopicComponentLoadProgress,
			Source:  eventbus.SourceComponent,
			Payload: eventbus.ComponentLoadProgressEvent{Kind: "tts", Progress: float64(i) / 4},
		})
	}

	for i := 0; i < 5; i++ {
		select {
		case env := <-sub.C():
			msg := env.Payload.(eventbus.ComponentLoadProgressEvent)
			want := float64(i) / 4
			if msg.Progress != want {
				t.Fatalf("event %d out of order: got progress %v, want %v", i, msg.Progress, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBusPublishAsyncDoesNotBlock(t *testing.T) {
	bus := eventbus.New(eventbus.WithTopicPolicy(eventbus.TopicVoiceAgentTurn, eventbus.DeliveryPolicy{Strategy: eventbus.StrategyDropNewest}))
	// Subscriber that never reads.
	sub := bus.Subscribe(eventbus.TopicVoiceAgentTurn, eventbus.WithSubscriptionBuffer(1))
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx := context.Background()
		for i := 0; i < 100; i++ {
			bus.PublishAsync(ctx, eventbus.Envelope{
				Topic:   eventbus.TopicVoiceAgentTurn,
				Source:  eventbus.SourceVoiceAgent,
				Payload: eventbus.TurnCompletedEvent{SpeechDetected: true},
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async publisher blocked on slow subscriber")
	}
}

func TestNilBusIsNoop(t *testing.T) {
	var bus *eventbus.Bus

	bus.Publish(context.Background(), eventbus.Envelope{Topic: eventbus.TopicComponentDidLoad})

	sub := bus.Subscribe(eventbus.TopicComponentDidLoad)
	if _, ok := <-sub.C(); ok {
		t.Fatal("nil bus subscription channel should be closed")
	}
	sub.Close()
	bus.Shutdown()
}
