package component

import "fmt"

// Kind identifies an AI capability modality. At most one active component
// exists per kind at a time.
type Kind string

const (
	KindLLM                Kind = "llm"
	KindSTT                Kind = "stt"
	KindTTS                Kind = "tts"
	KindVAD                Kind = "vad"
	KindSpeakerDiarization Kind = "speaker_diarization"
	KindVoiceAgent         Kind = "voice_agent"
)

// Kinds lists every known component kind.
var Kinds = []Kind{KindLLM, KindSTT, KindTTS, KindVAD, KindSpeakerDiarization, KindVoiceAgent}

// ParseKind converts a string into a Kind, rejecting unknown values.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("component: unknown kind %q", s)
}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// MemoryHeavy reports whether components of this kind must never initialize
// concurrently with other memory-heavy kinds. Language models map multi-GB
// weights during load; the voice agent embeds one.
func (k Kind) MemoryHeavy() bool {
	switch k {
	case KindLLM, KindVoiceAgent:
		return true
	default:
		return false
	}
}
