package voiceagent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/eventbus"
	"github.com/edgekit-ai/edgekit/internal/voiceagent"
)

func readyComponent(t *testing.T, kind component.Kind, svc component.Service, bus *eventbus.Bus) *component.Component {
	t.Helper()

	var factory component.ServiceFactory
	if mock, ok := svc.(*component.MockService); ok {
		factory = &component.MockFactory{Service: mock}
	} else {
		factory = serviceFactory{svc: svc}
	}
	comp := component.New(kind, factory, bus)

	var cfg component.Config
	switch kind {
	case component.KindVAD:
		cfg = component.VADConfig{Threshold: 0.5}
	case component.KindSTT:
		cfg = component.STTConfig{Base: component.Base{Model: "whisper-tiny"}}
	case component.KindLLM:
		cfg = component.LLMConfig{Base: component.Base{Model: "llama-3b"}}
	case component.KindTTS:
		cfg = component.TTSConfig{Voice: "af-heart"}
	default:
		t.Fatalf("unsupported kind %s", kind)
	}
	if err := comp.Initialize(context.Background(), cfg); err != nil {
		t.Fatalf("initialize %s: %v", kind, err)
	}
	return comp
}

type serviceFactory struct {
	svc component.Service
}

func (f serviceFactory) CreateService(ctx context.Context, cfg component.Config) (component.Service, error) {
	return f.svc, nil
}

// bareService satisfies only the base Service contract, no modality
// interface. Stands in for a backend whose capability has gone away.
type bareService struct{}

func (bareService) Initialize(ctx context.Context) error { return nil }
func (bareService) Release(ctx context.Context) error    { return nil }

func newAgent(t *testing.T, vad, stt, llm, tts *component.Component, opts voiceagent.Options) *voiceagent.Agent {
	t.Helper()
	agent, err := voiceagent.New(vad, stt, llm, tts, opts)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return agent
}

func TestNewRequiresFourReadyComponents(t *testing.T) {
	bus := eventbus.New()
	vad := readyComponent(t, component.KindVAD, &component.MockService{}, bus)
	stt := readyComponent(t, component.KindSTT, &component.MockService{}, bus)
	llm := readyComponent(t, component.KindLLM, &component.MockService{}, bus)

	_, err := voiceagent.New(vad, stt, llm, nil, voiceagent.Options{Bus: bus})
	var notReady *voiceagent.NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	if notReady.Kind != component.KindTTS {
		t.Fatalf("expected tts reported missing, got %s", notReady.Kind)
	}

	notInitialized := component.New(component.KindTTS, &component.MockFactory{}, bus)
	_, err = voiceagent.New(vad, stt, llm, notInitialized, voiceagent.Options{Bus: bus})
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError for not-initialized tts, got %v", err)
	}
}

func TestProcessAudioNoSpeechSkipsDownstream(t *testing.T) {
	bus := eventbus.New()
	vadSvc := &component.MockService{VAD: component.VADResult{SpeechDetected: false}}
	sttSvc := &component.MockService{Text: "never used"}
	llmSvc := &component.MockService{Reply: "never used"}
	ttsSvc := &component.MockService{}

	agent := newAgent(t,
		readyComponent(t, component.KindVAD, vadSvc, bus),
		readyComponent(t, component.KindSTT, sttSvc, bus),
		readyComponent(t, component.KindLLM, llmSvc, bus),
		readyComponent(t, component.KindTTS, ttsSvc, bus),
		voiceagent.Options{Bus: bus})

	res, err := agent.ProcessAudio(context.Background(), []byte("silence"))
	if err != nil {
		t.Fatalf("process audio: %v", err)
	}
	if res.SpeechDetected || res.Transcript != "" || res.Response != "" || len(res.Audio.Data) != 0 {
		t.Fatalf("expected empty short-circuit result, got %+v", res)
	}
	if sttSvc.STTCalls.Load() != 0 || llmSvc.GenCalls.Load() != 0 || ttsSvc.SynthCalls.Load() != 0 {
		t.Fatal("downstream stages must not run when no speech is detected")
	}
}

func TestProcessAudioFullTurn(t *testing.T) {
	bus := eventbus.New()
	turnSub := eventbus.SubscribeTo(bus, eventbus.VoiceAgentTurn)
	defer turnSub.Close()
	finalSub := eventbus.SubscribeTo(bus, eventbus.SpeechTranscriptFinal)
	defer finalSub.Close()

	vadSvc := &component.MockService{VAD: component.VADResult{SpeechDetected: true, Energy: 0.8}}
	sttSvc := &component.MockService{Text: "what is the weather"}
	llmSvc := &component.MockService{Reply: "it is sunny"}
	ttsSvc := &component.MockService{Audio: component.SynthesizedAudio{Data: []byte{1, 2, 3}, SampleRate: 24000}}

	agent := newAgent(t,
		readyComponent(t, component.KindVAD, vadSvc, bus),
		readyComponent(t, component.KindSTT, sttSvc, bus),
		readyComponent(t, component.KindLLM, llmSvc, bus),
		readyComponent(t, component.KindTTS, ttsSvc, bus),
		voiceagent.Options{Bus: bus})

	res, err := agent.ProcessAudio(context.Background(), []byte("speech"))
	if err != nil {
		t.Fatalf("process audio: %v", err)
	}
	if !res.SpeechDetected {
		t.Fatal("speech must be detected")
	}
	if res.Transcript != "what is the weather" {
		t.Fatalf("unexpected transcript %q", res.Transcript)
	}
	if res.Response != "it is sunny" {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if len(res.Audio.Data) != 3 || res.Audio.SampleRate != 24000 {
		t.Fatalf("unexpected audio %+v", res.Audio)
	}

	var turnCorrelation string
	select {
	case env := <-turnSub.C():
		if env.Payload.Transcript != "what is the weather" || env.Payload.AudioBytes != 3 {
			t.Fatalf("unexpected turn payload %+v", env.Payload)
		}
		turnCorrelation = env.CorrelationID
	case <-time.After(time.Second):
		t.Fatal("turn event not published")
	}
	select {
	case env := <-finalSub.C():
		if !env.Payload.Final {
			t.Fatal("final transcript event must be marked final")
		}
		if env.CorrelationID == "" || env.CorrelationID != turnCorrelation {
			t.Fatal("turn events must share one correlation ID")
		}
	case <-time.After(time.Second):
		t.Fatal("final transcript event not published")
	}
}

func TestProcessAudioDegradesWhenStageUnavailable(t *testing.T) {
	bus := eventbus.New()
	vadSvc := &component.MockService{VAD: component.VADResult{SpeechDetected: true}}
	sttSvc := &component.MockService{Text: "hello"}
	llmSvc := &component.MockService{Reply: "hi there"}

	agent := newAgent(t,
		readyComponent(t, component.KindVAD, vadSvc, bus),
		readyComponent(t, component.KindSTT, sttSvc, bus),
		readyComponent(t, component.KindLLM, llmSvc, bus),
		readyComponent(t, component.KindTTS, bareService{}, bus),
		voiceagent.Options{Bus: bus})

	res, err := agent.ProcessAudio(context.Background(), []byte("speech"))
	if err != nil {
		t.Fatalf("turn must not fail on an unavailable stage: %v", err)
	}
	if res.Response != "hi there" {
		t.Fatalf("upstream stages must still run, got %+v", res)
	}
	if len(res.Audio.Data) != 0 {
		t.Fatal("unavailable tts stage must leave audio empty")
	}
}

func TestProcessAudioGenerationTimeout(t *testing.T) {
	bus := eventbus.New()
	vadSvc := &component.MockService{VAD: component.VADResult{SpeechDetected: true}}
	sttSvc := &component.MockService{Text: "long question"}
	llmSvc := &component.MockService{Reply: "too late", GenDelay: 200 * time.Millisecond}
	ttsSvc := &component.MockService{}

	agent := newAgent(t,
		readyComponent(t, component.KindVAD, vadSvc, bus),
		readyComponent(t, component.KindSTT, sttSvc, bus),
		readyComponent(t, component.KindLLM, llmSvc, bus),
		readyComponent(t, component.KindTTS, ttsSvc, bus),
		voiceagent.Options{Bus: bus, GenerationTimeout: 20 * time.Millisecond})

	res, err := agent.ProcessAudio(context.Background(), []byte("speech"))
	if !errors.Is(err, voiceagent.ErrGenerationTimeout) {
		t.Fatalf("expected generation timeout, got %v", err)
	}
	if res.Transcript != "long question" {
		t.Fatal("transcript gathered before the timeout must be preserved")
	}
	if ttsSvc.SynthCalls.Load() != 0 {
		t.Fatal("tts must not run after a failed generation")
	}
}

func TestProcessAudioSTTErrorFailsTurn(t *testing.T) {
	bus := eventbus.New()
	agent := newAgent(t,
		readyComponent(t, component.KindVAD, &component.MockService{VAD: component.VADResult{SpeechDetected: true}}, bus),
		readyComponent(t, component.KindSTT, &component.MockService{STTErr: errors.New("decode failed")}, bus),
		readyComponent(t, component.KindLLM, &component.MockService{}, bus),
		readyComponent(t, component.KindTTS, &component.MockService{}, bus),
		voiceagent.Options{Bus: bus})

	res, err := agent.ProcessAudio(context.Background(), []byte("speech"))
	if err == nil {
		t.Fatal("expected stt error to fail the turn")
	}
	if !res.SpeechDetected {
		t.Fatal("speech detection result must survive the stt failure")
	}
}

func TestProcessStreamOneEventPerChunk(t *testing.T) {
	bus := eventbus.New()
	agent := newAgent(t,
		readyComponent(t, component.KindVAD, &component.MockService{VAD: component.VADResult{SpeechDetected: true}}, bus),
		readyComponent(t, component.KindSTT, &component.MockService{Text: "chunk"}, bus),
		readyComponent(t, component.KindLLM, &component.MockService{Reply: "reply"}, bus),
		readyComponent(t, component.KindTTS, &component.MockService{Audio: component.SynthesizedAudio{Data: []byte{9}}}, bus),
		voiceagent.Options{Bus: bus})

	chunks := make(chan []byte, 3)
	chunks <- []byte("a")
	chunks <- []byte("b")
	chunks <- []byte("c")
	close(chunks)

	out := agent.ProcessStream(context.Background(), chunks)

	count := 0
	for ev := range out {
		if ev.Err != nil {
			t.Fatalf("chunk %d failed: %v", count, ev.Err)
		}
		if ev.Result.Response != "reply" {
			t.Fatalf("unexpected result %+v", ev.Result)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected one event per chunk, got %d", count)
	}
}

func TestProcessStreamStopsOnCancel(t *testing.T) {
	bus := eventbus.New()
	agent := newAgent(t,
		readyComponent(t, component.KindVAD, &component.MockService{}, bus),
		readyComponent(t, component.KindSTT, &component.MockService{}, bus),
		readyComponent(t, component.KindLLM, &component.MockService{}, bus),
		readyComponent(t, component.KindTTS, &component.MockService{}, bus),
		voiceagent.Options{Bus: bus})

	ctx, cancel := context.WithCancel(context.Background())
	chunks := make(chan []byte)
	out := agent.ProcessStream(ctx, chunks)

	cancel()
	select {
	case _, open := <-out:
		if open {
			t.Fatal("expected closed output after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestDirectStageOperations(t *testing.T) {
	bus := eventbus.New()
	agent := newAgent(t,
		readyComponent(t, component.KindVAD, &component.MockService{}, bus),
		readyComponent(t, component.KindSTT, &component.MockService{Text: "dictation"}, bus),
		readyComponent(t, component.KindLLM, &component.MockService{Reply: "completion"}, bus),
		readyComponent(t, component.KindTTS, &component.MockService{Audio: component.SynthesizedAudio{Data: []byte{7}, SampleRate: 16000}}, bus),
		voiceagent.Options{Bus: bus})

	ctx := context.Background()

	transcript, err := agent.Transcribe(ctx, []byte("audio"))
	if err != nil || transcript.Text != "dictation" {
		t.Fatalf("transcribe: %q, %v", transcript.Text, err)
	}

	reply, err := agent.GenerateResponse(ctx, "prompt")
	if err != nil || reply != "completion" {
		t.Fatalf("generate: %q, %v", reply, err)
	}

	audio, err := agent.SynthesizeSpeech(ctx, "text")
	if err != nil || audio.SampleRate != 16000 {
		t.Fatalf("synthesize: %+v, %v", audio, err)
	}
}
