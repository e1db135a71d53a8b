// Package voiceagent composes four ready capability components into a
// sequential VAD -> STT -> LLM -> TTS voice pipeline.
package voiceagent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

// DefaultGenerationTimeout bounds a single LLM generation inside a turn.
const DefaultGenerationTimeout = 60 * time.Second

// ErrGenerationTimeout is returned when the language model does not produce
// a response within the generation timeout.
var ErrGenerationTimeout = errors.New("voiceagent: generation timed out")

// NotReadyError indicates a sub-component required at setup time is missing
// or has not reached the ready state.
type NotReadyError struct {
	Kind component.Kind
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("voiceagent: %s component is not ready", e.Kind)
}

func (e *NotReadyError) ErrorCode() string { return "component_not_ready" }

// TurnResult is the outcome of processing one audio chunk through the
// pipeline. When no speech is detected all other fields stay empty.
type TurnResult struct {
	SpeechDetected bool
	Transcript     string
	Response       string
	Audio          component.SynthesizedAudio
}

// TurnEvent pairs a turn result with the error that ended it, for the
// streaming variant.
type TurnEvent struct {
	Result TurnResult
	Err    error
}

// Options configures the agent.
type Options struct {
	Bus               *eventbus.Bus
	Logger            *log.Logger
	GenerationTimeout time.Duration // defaults to DefaultGenerationTimeout
}

// Agent runs the voice pipeline over four components owned by the lifecycle
// manager. All four are mandatory at construction time; at run time a stage
// whose service has gone away leaves its output empty instead of failing
// the turn.
type Agent struct {
	vad *component.Component
	stt *component.Component
	llm *component.Component
	tts *component.Component

	bus        *eventbus.Bus
	logger     *log.Logger
	genTimeout time.Duration
}

// New builds an agent from four ready components. It fails if any component
// is missing, not ready, or of the wrong kind.
func New(vad, stt, llm, tts *component.Component, opts Options) (*Agent, error) {
	for _, check := range []struct {
		kind component.Kind
		comp *component.Component
	}{
		{component.KindVAD, vad},
		{component.KindSTT, stt},
		{component.KindLLM, llm},
		{component.KindTTS, tts},
	} {
		if check.comp == nil || !check.comp.IsReady() {
			return nil, &NotReadyError{Kind: check.kind}
		}
		if check.comp.Kind() != check.kind {
			return nil, fmt.Errorf("voiceagent: expected %s component, got %s", check.kind, check.comp.Kind())
		}
	}

	a := &Agent{
		vad:        vad,
		stt:        stt,
		llm:        llm,
		tts:        tts,
		bus:        opts.Bus,
		logger:     opts.Logger,
		genTimeout: opts.GenerationTimeout,
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	if a.genTimeout <= 0 {
		a.genTimeout = DefaultGenerationTimeout
	}
	return a, nil
}

// ProcessAudio runs one audio chunk through the pipeline. No detected speech
// short-circuits the turn: STT, LLM, and TTS are skipped entirely.
func (a *Agent) ProcessAudio(ctx context.Context, chunk []byte) (TurnResult, error) {
	turnID := uuid.NewString()
	var res TurnResult

	vadSvc, vadOK := a.vad.Service().(component.VADService)
	if vadOK {
		detection, err := vadSvc.DetectSpeech(ctx, chunk)
		if err != nil {
			return res, fmt.Errorf("voiceagent: vad: %w", err)
		}
		eventbus.Publish(ctx, a.bus, eventbus.SpeechVADDetected, eventbus.SourceVoiceAgent,
			eventbus.VADDetectedEvent{SpeechDetected: detection.SpeechDetected, Energy: detection.Energy},
			eventbus.WithCorrelationID(turnID))
		if !detection.SpeechDetected {
			a.publishTurn(ctx, turnID, res)
			return res, nil
		}
		res.SpeechDetected = true
	} else {
		// Without a VAD service there is nothing to gate on; the turn
		// proceeds as if speech had been detected.
		res.SpeechDetected = true
	}

	if sttSvc, ok := a.stt.Service().(component.STTService); ok {
		transcript, err := sttSvc.Transcribe(ctx, chunk)
		if err != nil {
			return res, fmt.Errorf("voiceagent: stt: %w", err)
		}
		res.Transcript = transcript.Text
		eventbus.Publish(ctx, a.bus, eventbus.SpeechTranscriptPartial, eventbus.SourceVoiceAgent,
			eventbus.TranscriptEvent{Text: transcript.Text},
			eventbus.WithCorrelationID(turnID))
		eventbus.Publish(ctx, a.bus, eventbus.SpeechTranscriptFinal, eventbus.SourceVoiceAgent,
			eventbus.TranscriptEvent{Text: transcript.Text, Final: true},
			eventbus.WithCorrelationID(turnID))
	}

	if res.Transcript != "" {
		if llmSvc, ok := a.llm.Service().(component.LLMService); ok {
			reply, err := a.generate(ctx, llmSvc, res.Transcript)
			if err != nil {
				return res, err
			}
			res.Response = reply
			eventbus.Publish(ctx, a.bus, eventbus.VoiceAgentResponse, eventbus.SourceVoiceAgent,
				eventbus.ResponseEvent{Text: reply},
				eventbus.WithCorrelationID(turnID))
		}
	}

	if res.Response != "" {
		if ttsSvc, ok := a.tts.Service().(component.TTSService); ok {
			audio, err := ttsSvc.Synthesize(ctx, res.Response)
			if err != nil {
				return res, fmt.Errorf("voiceagent: tts: %w", err)
			}
			res.Audio = audio
			eventbus.Publish(ctx, a.bus, eventbus.VoiceAgentAudio, eventbus.SourceVoiceAgent,
				eventbus.AudioGeneratedEvent{Audio: audio.Data, SampleRate: audio.SampleRate},
				eventbus.WithCorrelationID(turnID))
		}
	}

	a.publishTurn(ctx, turnID, res)
	return res, nil
}

// generate races the LLM call against the generation timeout. The losing
// native call is abandoned, not interrupted.
func (a *Agent) generate(ctx context.Context, svc component.LLMService, prompt string) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, a.genTimeout)
	defer cancel()

	reply, err := svc.Generate(genCtx, prompt)
	if err != nil {
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", ErrGenerationTimeout
		}
		return "", fmt.Errorf("voiceagent: llm: %w", err)
	}
	return reply, nil
}

func (a *Agent) publishTurn(ctx context.Context, turnID string, res TurnResult) {
	eventbus.Publish(ctx, a.bus, eventbus.VoiceAgentTurn, eventbus.SourceVoiceAgent,
		eventbus.TurnCompletedEvent{
			SpeechDetected: res.SpeechDetected,
			Transcript:     res.Transcript,
			Response:       res.Response,
			AudioBytes:     len(res.Audio.Data),
		},
		eventbus.WithCorrelationID(turnID))
}

// ProcessStream consumes audio chunks until the input channel closes,
// emitting one TurnEvent per chunk. Each chunk is processed to completion;
// context cancellation takes effect between chunks, not inside one.
func (a *Agent) ProcessStream(ctx context.Context, chunks <-chan []byte) <-chan TurnEvent {
	out := make(chan TurnEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-chunks:
				if !ok {
					return
				}
				res, err := a.ProcessAudio(ctx, chunk)
				select {
				case out <- TurnEvent{Result: res, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Transcribe runs the STT stage directly, outside a full turn.
func (a *Agent) Transcribe(ctx context.Context, audio []byte) (component.Transcript, error) {
	svc, ok := a.stt.Service().(component.STTService)
	if !ok {
		return component.Transcript{}, &NotReadyError{Kind: component.KindSTT}
	}
	transcript, err := svc.Transcribe(ctx, audio)
	if err != nil {
		return component.Transcript{}, fmt.Errorf("voiceagent: stt: %w", err)
	}
	return transcript, nil
}

// GenerateResponse runs the LLM stage directly with the generation timeout.
func (a *Agent) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	svc, ok := a.llm.Service().(component.LLMService)
	if !ok {
		return "", &NotReadyError{Kind: component.KindLLM}
	}
	return a.generate(ctx, svc, prompt)
}

// SynthesizeSpeech runs the TTS stage directly.
func (a *Agent) SynthesizeSpeech(ctx context.Context, text string) (component.SynthesizedAudio, error) {
	svc, ok := a.tts.Service().(component.TTSService)
	if !ok {
		return component.SynthesizedAudio{}, &NotReadyError{Kind: component.KindTTS}
	}
	audio, err := svc.Synthesize(ctx, text)
	if err != nil {
		return component.SynthesizedAudio{}, fmt.Errorf("voiceagent: tts: %w", err)
	}
	return audio, nil
}
