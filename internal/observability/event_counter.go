// Package observability taps the event bus for per-topic counters and
// publishes periodic memory usage samples.
package observability

import (
	"sync"
	"sync/atomic"

	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

// EventCounter counts published events grouped by topic. It watches the
// bus through a catch-all subscription.
type EventCounter struct {
	counts sync.Map // map[eventbus.Topic]*atomic.Uint64

	sub  *eventbus.Subscription
	done chan struct{}
	once sync.Once
}

// NewEventCounter subscribes to every topic on the bus and starts counting.
func NewEventCounter(bus *eventbus.Bus) *EventCounter {
	c := &EventCounter{done: make(chan struct{})}
	c.sub = bus.Subscribe(eventbus.TopicAll,
		eventbus.WithSubscriptionName("observability.counter"),
		eventbus.WithSubscriptionBuffer(256))
	go c.watch()
	return c
}

func (c *EventCounter) watch() {
	defer close(c.done)
	for env := range c.sub.C() {
		if env.Topic == "" {
			continue
		}
		c.counterFor(env.Topic).Add(1)
	}
}

// Close stops the catch-all subscription and waits for the counter loop.
func (c *EventCounter) Close() {
	c.once.Do(func() {
		c.sub.Close()
		<-c.done
	})
}

// Snapshot exposes a stable copy of the current counts.
func (c *EventCounter) Snapshot() map[eventbus.Topic]uint64 {
	out := make(map[eventbus.Topic]uint64)
	c.counts.Range(func(key, value any) bool {
		topic, ok := key.(eventbus.Topic)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Uint64)
		if !ok || counter == nil {
			return true
		}
		out[topic] = counter.Load()
		return true
	})
	return out
}

// Count returns the number of observed events for one topic.
func (c *EventCounter) Count(topic eventbus.Topic) uint64 {
	if counter, ok := c.counts.Load(topic); ok {
		if typed, ok := counter.(*atomic.Uint64); ok && typed != nil {
			return typed.Load()
		}
	}
	return 0
}

func (c *EventCounter) counterFor(topic eventbus.Topic) *atomic.Uint64 {
	if counter, ok := c.counts.Load(topic); ok {
		if typed, ok := counter.(*atomic.Uint64); ok && typed != nil {
			return typed
		}
	}
	newCounter := &atomic.Uint64{}
	actual, _ := c.counts.LoadOrStore(topic, newCounter)
	if typed, ok := actual.(*atomic.Uint64); ok && typed != nil {
		return typed
	}
	return newCounter
}
