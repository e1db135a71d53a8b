package component

import "context"

// Service is a running inference instance owned by exactly one component.
// Implementations live outside this package, typically behind a backend
// adapter bound to the native engine.
type Service interface {
	// Initialize binds the service to its configured resource. It is called
	// exactly once by the owning component before the component turns ready.
	Initialize(ctx context.Context) error
	// Release frees the service's resources. After Release returns the
	// service must not be used again.
	Release(ctx context.Context) error
}

// VADResult is the outcome of a voice-activity check on one audio chunk.
type VADResult struct {
	SpeechDetected bool
	Energy         float64
}

// VADService detects speech activity in raw audio.
type VADService interface {
	Service
	DetectSpeech(ctx context.Context, chunk []byte) (VADResult, error)
}

// Transcript is a recognized utterance.
type Transcript struct {
	Text       string
	Confidence float64
}

// STTService transcribes audio into text.
type STTService interface {
	Service
	Transcribe(ctx context.Context, audio []byte) (Transcript, error)
}

// LLMService generates text completions.
type LLMService interface {
	Service
	Generate(ctx context.Context, prompt string) (string, error)
}

// SynthesizedAudio is the output of speech synthesis.
type SynthesizedAudio struct {
	Data       []byte
	SampleRate int
}

// TTSService synthesizes speech from text.
type TTSService interface {
	Service
	Synthesize(ctx context.Context, text string) (SynthesizedAudio, error)
}

// ServiceFactory constructs services for a component. Backend adapters
// registered in the capability registry satisfy this contract.
type ServiceFactory interface {
	CreateService(ctx context.Context, cfg Config) (Service, error)
}

// ServiceReleaser is an optional factory extension for adapter-specific
// teardown beyond the service's own Release.
type ServiceReleaser interface {
	ReleaseService(ctx context.Context, svc Service) error
}
