package component

import (
	"fmt"
	"strings"
)

// DefaultPriority is applied when a config leaves its priority unset.
const DefaultPriority = 100

// Config describes the parameters used to initialize a component of one kind.
// Two configs are considered equal for re-initialization purposes when their
// dynamic type and resource ID match.
type Config interface {
	Kind() Kind
	ResourceID() string
	Priority() int
	Validate() error
}

// Equal reports whether two configs describe the same initialization:
// same dynamic type and same bound resource.
func Equal(a, b Config) bool {
	if a == nil || b == nil {
		return a == b
	}
	if fmt.Sprintf("%T", a) != fmt.Sprintf("%T", b) {
		return false
	}
	return a.Kind() == b.Kind() && a.ResourceID() == b.ResourceID()
}

// Base carries the fields shared by every config kind.
type Base struct {
	Model        string // resource identifier (model or voice)
	LoadPriority int
}

// ResourceID returns the configured model identifier.
func (b Base) ResourceID() string { return b.Model }

// Priority returns the load priority, defaulting when unset.
func (b Base) Priority() int {
	if b.LoadPriority == 0 {
		return DefaultPriority
	}
	return b.LoadPriority
}

// LLMConfig configures a language-model component.
type LLMConfig struct {
	Base
	ContextLength int
	MaxTokens     int
	Temperature   float64
}

func (LLMConfig) Kind() Kind { return KindLLM }

// Validate checks generation parameters.
func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return &ConfigError{Kind: KindLLM, Reason: "model identifier is required"}
	}
	if c.ContextLength < 0 {
		return &ConfigError{Kind: KindLLM, Reason: "context length must not be negative"}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return &ConfigError{Kind: KindLLM, Reason: "temperature must be within [0, 2]"}
	}
	return nil
}

// STTConfig configures a speech-to-text component.
type STTConfig struct {
	Base
	Language string
}

func (STTConfig) Kind() Kind { return KindSTT }

func (c STTConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return &ConfigError{Kind: KindSTT, Reason: "model identifier is required"}
	}
	return nil
}

// TTSConfig configures a text-to-speech component.
type TTSConfig struct {
	Base
	Voice      string
	SampleRate int
}

func (TTSConfig) Kind() Kind { return KindTTS }

func (c TTSConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" && strings.TrimSpace(c.Voice) == "" {
		return &ConfigError{Kind: KindTTS, Reason: "a voice or model identifier is required"}
	}
	if c.SampleRate < 0 {
		return &ConfigError{Kind: KindTTS, Reason: "sample rate must not be negative"}
	}
	return nil
}

// ResourceID prefers the voice identifier when no model is configured.
func (c TTSConfig) ResourceID() string {
	if c.Model != "" {
		return c.Model
	}
	return c.Voice
}

// VADConfig configures a voice-activity-detection component.
type VADConfig struct {
	Base
	Threshold  float64
	SampleRate int
}

func (VADConfig) Kind() Kind { return KindVAD }

func (c VADConfig) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return &ConfigError{Kind: KindVAD, Reason: "threshold must be within [0, 1]"}
	}
	return nil
}

// SpeakerDiarizationConfig configures a speaker-diarization component.
type SpeakerDiarizationConfig struct {
	Base
	MaxSpeakers int
}

func (SpeakerDiarizationConfig) Kind() Kind { return KindSpeakerDiarization }

func (c SpeakerDiarizationConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return &ConfigError{Kind: KindSpeakerDiarization, Reason: "model identifier is required"}
	}
	if c.MaxSpeakers < 0 {
		return &ConfigError{Kind: KindSpeakerDiarization, Reason: "max speakers must not be negative"}
	}
	return nil
}

// VoiceAgentConfig configures the composite voice-agent component. All four
// sub-configs are mandatory at setup time.
type VoiceAgentConfig struct {
	Base
	VAD VADConfig
	STT STTConfig
	LLM LLMConfig
	TTS TTSConfig
}

func (VoiceAgentConfig) Kind() Kind { return KindVoiceAgent }

func (c VoiceAgentConfig) Validate() error {
	if err := c.VAD.Validate(); err != nil {
		return err
	}
	if err := c.STT.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.TTS.Validate(); err != nil {
		return err
	}
	return nil
}

// ResourceID derives a composite identifier from the sub-configurations.
func (c VoiceAgentConfig) ResourceID() string {
	if c.Model != "" {
		return c.Model
	}
	return strings.Join([]string{c.VAD.ResourceID(), c.STT.ResourceID(), c.LLM.ResourceID(), c.TTS.ResourceID()}, "+")
}
