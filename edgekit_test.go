package edgekit_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/edgekit-ai/edgekit"
	"github.com/edgekit-ai/edgekit/internal/audioio"
	"github.com/edgekit-ai/edgekit/internal/nativebridge"
	"github.com/edgekit-ai/edgekit/internal/telemetry"
)

type recordingSink struct {
	mu      sync.Mutex
	batches []telemetry.Batch
}

func (s *recordingSink) Send(ctx context.Context, batch telemetry.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) events() []telemetry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []telemetry.Event
	for _, b := range s.batches {
		out = append(out, b.Events...)
	}
	return out
}

func newSDK(t *testing.T, engine *nativebridge.MockEngine) *edgekit.SDK {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	sdk, err := edgekit.New(edgekit.Options{Engine: engine, DisableTelemetry: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := sdk.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return sdk
}

func voiceConfigs() []edgekit.Config {
	return []edgekit.Config{
		edgekit.VADConfig{Base: edgekit.Base{Model: "vad-base"}},
		edgekit.STTConfig{Base: edgekit.Base{Model: "whisper-tiny"}},
		edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-3b"}},
		edgekit.TTSConfig{Voice: "en-US-1"},
	}
}

func TestNewRequiresEngine(t *testing.T) {
	if _, err := edgekit.New(edgekit.Options{}); err == nil {
		t.Fatal("expected error when no engine is supplied")
	}
}

func TestInitializeThroughBuiltinAdapter(t *testing.T) {
	sdk := newSDK(t, &nativebridge.MockEngine{})

	result := sdk.Initialize(context.Background(), []edgekit.Config{
		edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-3b"}},
		edgekit.VADConfig{Base: edgekit.Base{Model: "vad-base"}},
	})
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}
	if !sdk.AllReady(edgekit.KindLLM, edgekit.KindVAD) {
		t.Fatalf("components not ready: %v", sdk.GetAllStatuses())
	}
	if got := len(sdk.GetAllStatuses()); got != 2 {
		t.Fatalf("expected 2 active components, got %d", got)
	}
}

func TestVoiceAgentRequiresReadyComponents(t *testing.T) {
	sdk := newSDK(t, &nativebridge.MockEngine{})

	sdk.Initialize(context.Background(), []edgekit.Config{
		edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-3b"}},
	})

	if _, err := sdk.VoiceAgent(); err == nil {
		t.Fatal("expected error with only the LLM initialized")
	}
}

func TestProcessAudioEndToEnd(t *testing.T) {
	engine := &nativebridge.MockEngine{
		DetectSpeechResult: true,
		TranscribeText:     "turn on the lights",
		GenerateReply:      "done",
		SynthesizeAudio:    []byte{1, 2, 3},
	}
	sdk := newSDK(t, engine)

	result := sdk.Initialize(context.Background(), voiceConfigs())
	if len(result.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failed)
	}

	turn, err := sdk.ProcessAudio(context.Background(), []byte("pcm"))
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if !turn.SpeechDetected {
		t.Fatal("expected speech to be detected")
	}
	if turn.Transcript != "turn on the lights" {
		t.Fatalf("unexpected transcript %q", turn.Transcript)
	}
	if turn.Response != "done" {
		t.Fatalf("unexpected response %q", turn.Response)
	}
	if len(turn.Audio.Data) != 3 {
		t.Fatalf("unexpected audio %v", turn.Audio)
	}
}

func TestSynthesizeSpeechWAV(t *testing.T) {
	engine := &nativebridge.MockEngine{
		SynthesizeAudio: []byte{1, 2, 3, 4},
		SynthesizeRate:  22050,
	}
	sdk := newSDK(t, engine)
	sdk.Initialize(context.Background(), voiceConfigs())

	wav, err := sdk.SynthesizeSpeechWAV(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SynthesizeSpeechWAV: %v", err)
	}

	pcm, format, err := audioio.Decode(wav)
	if err != nil {
		t.Fatalf("decode WAV: %v", err)
	}
	if len(pcm) != 4 {
		t.Fatalf("unexpected payload %v", pcm)
	}
	if format.SampleRate != 22050 {
		t.Fatalf("unexpected sample rate %d", format.SampleRate)
	}
}

func TestVoiceAgentInvalidatedByReinitialize(t *testing.T) {
	sdk := newSDK(t, &nativebridge.MockEngine{DetectSpeechResult: true})

	sdk.Initialize(context.Background(), voiceConfigs())
	first, err := sdk.VoiceAgent()
	if err != nil {
		t.Fatalf("VoiceAgent: %v", err)
	}

	configs := voiceConfigs()
	configs[2] = edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-8b"}}
	sdk.Initialize(context.Background(), configs)

	second, err := sdk.VoiceAgent()
	if err != nil {
		t.Fatalf("VoiceAgent after reinitialize: %v", err)
	}
	if first == second {
		t.Fatal("expected a rebuilt voice agent after reinitialization")
	}
}

func TestTrackDeliversOnClose(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	sink := &recordingSink{}
	sdk, err := edgekit.New(edgekit.Options{
		Engine:        &nativebridge.MockEngine{},
		TelemetrySink: sink,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sdk.Track("app_opened", map[string]any{"screen": "home"})

	if err := sdk.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := sink.events()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	if events[0].Name != "app_opened" {
		t.Fatalf("unexpected event name %q", events[0].Name)
	}
}

func TestInitializationEventsBecomeAnalytics(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	sink := &recordingSink{}
	sdk, err := edgekit.New(edgekit.Options{
		Engine:        &nativebridge.MockEngine{},
		TelemetrySink: sink,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sdk.Initialize(context.Background(), []edgekit.Config{
		edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-3b"}},
	})

	if err := sdk.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var found bool
	for _, ev := range sink.events() {
		if ev.Name == "component_loaded" {
			found = true
			if ev.Properties["kind"] != "llm" {
				t.Fatalf("unexpected kind %v", ev.Properties["kind"])
			}
		}
	}
	if !found {
		t.Fatal("expected a component_loaded analytics event")
	}
}

func TestMetricsIncludeComponentStates(t *testing.T) {
	sdk := newSDK(t, &nativebridge.MockEngine{})

	sdk.Initialize(context.Background(), []edgekit.Config{
		edgekit.LLMConfig{Base: edgekit.Base{Model: "llama-3b"}},
	})

	metrics := string(sdk.Metrics())
	if !strings.Contains(metrics, `edgekit_component_ready{kind="llm"} 1`) {
		t.Fatalf("missing ready gauge in:\n%s", metrics)
	}
}
