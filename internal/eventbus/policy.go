package eventbus

// DeliveryStrategy determines behaviour when a subscriber's channel is full.
type DeliveryStrategy string

const (
	// StrategyDropOldest removes the oldest buffered event and enqueues the new one.
	StrategyDropOldest DeliveryStrategy = "drop-oldest"
	// StrategyDropNewest discards the incoming event when the channel is full.
	StrategyDropNewest DeliveryStrategy = "drop-newest"
)

// DeliveryPolicy controls how a topic handles subscriber backpressure.
type DeliveryPolicy struct {
	Strategy DeliveryStrategy
}

var defaultPolicy = DeliveryPolicy{Strategy: StrategyDropOldest}

// defaultPolicies maps known topics to their delivery policies.
var defaultPolicies = map[Topic]DeliveryPolicy{
	// High-volume streams where stale samples are worthless.
	TopicSpeechVADDetected:       {Strategy: StrategyDropOldest},
	TopicSpeechTranscriptPartial: {Strategy: StrategyDropOldest},
	TopicComponentLoadProgress:   {Strategy: StrategyDropOldest},
	TopicMemoryUsageUpdated:      {Strategy: StrategyDropOldest},

	// Informational taps; a saturated tap should not churn its buffer.
	TopicAll:              {Strategy: StrategyDropNewest},
	TopicTelemetryFlushed: {Strategy: StrategyDropNewest},
	TopicTelemetryDropped: {Strategy: StrategyDropNewest},
}

// policyFor returns the delivery policy for a topic, falling back to defaultPolicy.
func policyFor(topic Topic, overrides map[Topic]DeliveryPolicy) DeliveryPolicy {
	if overrides != nil {
		if p, ok := overrides[topic]; ok {
			return p
		}
	}
	if p, ok := defaultPolicies[topic]; ok {
		return p
	}
	return defaultPolicy
}
