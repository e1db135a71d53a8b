package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

func TestTypedPublishSubscribe(t *testing.T) {
	bus := eventbus.New()
	sub := eventbus.SubscribeTo(bus, eventbus.SpeechTranscriptFinal)
	defer sub.Close()

	ctx := context.Background()
	eventbus.Publish(ctx, bus, eventbus.SpeechTranscriptFinal, eventbus.SourceVoiceAgent,
		eventbus.TranscriptEvent{Text: "turn it off", Final: true},
		eventbus.WithCorrelationID("turn-42"))

	select {
	case env := <-sub.C():
		if env.Payload.Text != "turn it off" {
			t.Fatalf("unexpected transcript %q", env.Payload.Text)
		}
		if !env.Payload.Final {
			t.Fatal("expected final transcript")
		}
		if env.CorrelationID != "turn-42" {
			t.Fatalf("unexpected correlation id %q", env.CorrelationID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for typed event")
	}
}

func TestTypedSubscriptionSkipsMismatchedPayloads(t *testing.T) {
	bus := eventbus.New()
	sub := eventbus.SubscribeTyped[eventbus.TranscriptEvent](bus, eventbus.TopicSpeechTranscriptFinal)
	defer sub.Close()

	ctx := context.Background()
	// Wrong payload type on the same topic must be dropped by the bridge.
	bus.Publish(ctx, eventbus.Envelope{
		Topic:   eventbus.TopicSpeechTranscriptFinal,
		Source:  eventbus.SourceVoiceAgent,
		Payload: 17,
	})
	eventbus.Publish(ctx, bus, eventbus.SpeechTranscriptFinal, eventbus.SourceVoiceAgent,
		eventbus.TranscriptEvent{Text: "ok", Final: true})

	select {
	case env := <-sub.C():
		if env.Payload.Text != "ok" {
			t.Fatalf("expected the typed payload, got %+v", env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for typed event")
	}
}

func TestConsumeStopsOnContextCancel(t *testing.T) {
	bus := eventbus.New()
	sub := eventbus.SubscribeTo(bus, eventbus.VoiceAgentResponse)
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	var got []string
	var mu sync.Mutex

	wg.Add(1)
	go eventbus.Consume(ctx, sub, &wg, func(ev eventbus.ResponseEvent) {
		mu.Lock()
		got = append(got, ev.Text)
		mu.Unlock()
	})

	eventbus.Publish(context.Background(), bus, eventbus.VoiceAgentResponse, eventbus.SourceVoiceAgent,
		eventbus.ResponseEvent{Text: "hi"})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("consumer never received event")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after context cancel")
	}
}

func TestSubscriptionGroupCloseAll(t *testing.T) {
	bus := eventbus.New()
	var group eventbus.SubscriptionGroup

	s1 := bus.Subscribe(eventbus.TopicComponentDidLoad)
	s2 := eventbus.SubscribeTo(bus, eventbus.VoiceAgentTurn)
	group.Add(s1, s2, nil)

	group.CloseAll()

	if _, ok := <-s1.C(); ok {
		t.Fatal("expected raw subscription channel closed")
	}
	if _, ok := <-s2.C(); ok {
		t.Fatal("expected typed subscription channel closed")
	}
}
