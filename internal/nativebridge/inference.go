package nativebridge

import (
	"context"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// Inference capabilities an Engine may additionally implement. The handle
// manager probes for them at call time; an engine without the capability
// yields a not-implemented bridge error.

// GenerationEngine generates text completions on an llm instance.
type GenerationEngine interface {
	Generate(ctx context.Context, instance uint64, prompt string) (string, Code)
}

// TranscriptionEngine transcribes audio on an stt instance.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, instance uint64, audio []byte) (text string, confidence float64, code Code)
}

// SynthesisEngine synthesizes speech on a tts instance.
type SynthesisEngine interface {
	Synthesize(ctx context.Context, instance uint64, text string) (audio []byte, sampleRate int, code Code)
}

// DetectionEngine runs voice-activity detection on a vad instance.
type DetectionEngine interface {
	DetectSpeech(ctx context.Context, instance uint64, chunk []byte) (speech bool, energy float64, code Code)
}

// instanceFor revalidates the handle against the live table before any
// inference call touches the engine.
func (m *Manager) instanceFor(h Handle) (uint64, error) {
	if !m.Valid(h) {
		return 0, errorFromCode(h.Modality, "infer", CodeInvalidHandle)
	}
	return h.instance, nil
}

// Generate runs a text completion through the handle's llm instance.
func (m *Manager) Generate(ctx context.Context, h Handle, prompt string) (string, error) {
	engine, ok := m.engine.(GenerationEngine)
	if !ok {
		return "", errorFromCode(component.KindLLM, "generate", CodeNotImplemented)
	}
	instance, err := m.instanceFor(h)
	if err != nil {
		return "", err
	}
	text, code := engine.Generate(ctx, instance, prompt)
	if err := errorFromCode(h.Modality, "generate", code); err != nil {
		return "", err
	}
	return text, nil
}

// Transcribe runs speech recognition through the handle's stt instance.
func (m *Manager) Transcribe(ctx context.Context, h Handle, audio []byte) (component.Transcript, error) {
	engine, ok := m.engine.(TranscriptionEngine)
	if !ok {
		return component.Transcript{}, errorFromCode(component.KindSTT, "transcribe", CodeNotImplemented)
	}
	instance, err := m.instanceFor(h)
	if err != nil {
		return component.Transcript{}, err
	}
	text, confidence, code := engine.Transcribe(ctx, instance, audio)
	if err := errorFromCode(h.Modality, "transcribe", code); err != nil {
		return component.Transcript{}, err
	}
	return component.Transcript{Text: text, Confidence: confidence}, nil
}

// Synthesize runs speech synthesis through the handle's tts instance.
func (m *Manager) Synthesize(ctx context.Context, h Handle, text string) (component.SynthesizedAudio, error) {
	engine, ok := m.engine.(SynthesisEngine)
	if !ok {
		return component.SynthesizedAudio{}, errorFromCode(component.KindTTS, "synthesize", CodeNotImplemented)
	}
	instance, err := m.instanceFor(h)
	if err != nil {
		return component.SynthesizedAudio{}, err
	}
	audio, sampleRate, code := engine.Synthesize(ctx, instance, text)
	if err := errorFromCode(h.Modality, "synthesize", code); err != nil {
		return component.SynthesizedAudio{}, err
	}
	return component.SynthesizedAudio{Data: audio, SampleRate: sampleRate}, nil
}

// DetectSpeech runs voice-activity detection through the handle's vad
// instance.
func (m *Manager) DetectSpeech(ctx context.Context, h Handle, chunk []byte) (component.VADResult, error) {
	engine, ok := m.engine.(DetectionEngine)
	if !ok {
		return component.VADResult{}, errorFromCode(component.KindVAD, "detect", CodeNotImplemented)
	}
	instance, err := m.instanceFor(h)
	if err != nil {
		return component.VADResult{}, err
	}
	speech, energy, code := engine.DetectSpeech(ctx, instance, chunk)
	if err := errorFromCode(h.Modality, "detect", code); err != nil {
		return component.VADResult{}, err
	}
	return component.VADResult{SpeechDetected: speech, Energy: energy}, nil
}
