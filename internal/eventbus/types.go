package eventbus

import (
	"time"
)

// Topic identifies a logical channel on the bus.
type Topic string

// Standard topics published by the SDK.
const (
	// TopicAll receives a copy of every envelope published on the bus,
	// regardless of topic. Intended for telemetry and debugging taps.
	TopicAll Topic = "*"

	TopicComponentWillLoad     Topic = "component.will_load"
	TopicComponentLoadProgress Topic = "component.load_progress"
	TopicComponentDidLoad      Topic = "component.did_load"
	TopicComponentLoadFailed   Topic = "component.load_failed"
	TopicComponentWillUnload   Topic = "component.will_unload"
	TopicComponentDidUnload    Topic = "component.did_unload"

	TopicBatchStarted   Topic = "lifecycle.batch_started"
	TopicBatchCompleted Topic = "lifecycle.batch_completed"

	TopicMemoryPressure     Topic = "memory.pressure"
	TopicMemoryUsageUpdated Topic = "memory.usage_updated"

	TopicSpeechVADDetected       Topic = "speech.vad.detected"
	TopicSpeechTranscriptPartial Topic = "speech.transcript.partial"
	TopicSpeechTranscriptFinal   Topic = "speech.transcript.final"

	TopicVoiceAgentResponse Topic = "voiceagent.response"
	TopicVoiceAgentAudio    Topic = "voiceagent.audio"
	TopicVoiceAgentTurn     Topic = "voiceagent.turn"

	TopicTelemetryFlushed Topic = "telemetry.flushed"
	TopicTelemetryDropped Topic = "telemetry.dropped"
)

// Source describes which component produced an event.
type Source string

const (
	SourceLifecycle     Source = "lifecycle_manager"
	SourceComponent     Source = "component"
	SourceRegistry      Source = "capability_registry"
	SourceHandleManager Source = "handle_manager"
	SourceVoiceAgent    Source = "voice_agent"
	SourceTelemetry     Source = "telemetry"
	SourceObservability Source = "observability"
	SourceUnknown       Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic         Topic
	Timestamp     time.Time
	Source        Source
	CorrelationID string
	Payload       any
}

// ComponentWillLoadEvent announces that a component is about to initialize.
type ComponentWillLoadEvent struct {
	Kind       string
	ResourceID string
}

// ComponentLoadProgressEvent reports initialization progress for a component.
type ComponentLoadProgressEvent struct {
	Kind     string
	Stage    string
	Progress float64 // 0.0 .. 1.0
}

// ComponentDidLoadEvent announces a component reached the ready state.
type ComponentDidLoadEvent struct {
	Kind       string
	ResourceID string
	Duration   time.Duration
}

// ComponentLoadFailedEvent announces a failed initialization attempt.
type ComponentLoadFailedEvent struct {
	Kind       string
	ResourceID string
	Reason     string
}

// ComponentWillUnloadEvent announces that a component is about to clean up.
type ComponentWillUnloadEvent struct {
	Kind string
}

// ComponentDidUnloadEvent announces a component returned to not-initialized.
type ComponentDidUnloadEvent struct {
	Kind string
}

// BatchStartedEvent is published before a lifecycle batch begins.
type BatchStartedEvent struct {
	Kinds []string
}

// BatchCompletedEvent summarises a finished lifecycle batch.
type BatchCompletedEvent struct {
	Successful []string
	Failed     []string
	Duration   time.Duration
}

// MemoryPressureLevel classifies memory pressure notifications.
type MemoryPressureLevel string

const (
	MemoryPressureWarning  MemoryPressureLevel = "warning"
	MemoryPressureCritical MemoryPressureLevel = "critical"
)

// MemoryPressureEvent reports host memory pressure to loaded components.
type MemoryPressureEvent struct {
	Level MemoryPressureLevel
}

// MemoryUsageEvent carries a periodic memory usage sample.
type MemoryUsageEvent struct {
	UsedBytes uint64
	PeakBytes uint64
}

// VADDetectedEvent reports a voice-activity decision for one audio chunk.
type VADDetectedEvent struct {
	SpeechDetected bool
	Energy         float64
}

// TranscriptEvent carries a partial or final STT transcript.
type TranscriptEvent struct {
	Text  string
	Final bool
}

// ResponseEvent carries a generated LLM response inside a voice turn.
type ResponseEvent struct {
	Text string
}

// AudioGeneratedEvent carries synthesized speech produced by TTS.
type AudioGeneratedEvent struct {
	Audio      []byte
	SampleRate int
}

// TurnCompletedEvent summarises one full voice-agent turn.
type TurnCompletedEvent struct {
	SpeechDetected bool
	Transcript     string
	Response       string
	AudioBytes     int
}

// TelemetryFlushedEvent reports a successfully delivered analytics batch.
type TelemetryFlushedEvent struct {
	BatchID string
	Count   int
}

// TelemetryDroppedEvent reports an analytics batch abandoned after retries.
type TelemetryDroppedEvent struct {
	BatchID  string
	Count    int
	Attempts int
}
