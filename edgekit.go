package edgekit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/edgekit-ai/edgekit/internal/adapters/native"
	"github.com/edgekit-ai/edgekit/internal/audioio"
	"github.com/edgekit-ai/edgekit/internal/bootstrap"
	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/config"
	"github.com/edgekit-ai/edgekit/internal/eventbus"
	"github.com/edgekit-ai/edgekit/internal/lifecycle"
	"github.com/edgekit-ai/edgekit/internal/nativebridge"
	"github.com/edgekit-ai/edgekit/internal/observability"
	"github.com/edgekit-ai/edgekit/internal/registry"
	"github.com/edgekit-ai/edgekit/internal/telemetry"
	"github.com/edgekit-ai/edgekit/internal/voiceagent"
)

// Re-exported configuration types. Host applications build these and hand
// them to Initialize.
type (
	Config                   = component.Config
	Base                     = component.Base
	LLMConfig                = component.LLMConfig
	STTConfig                = component.STTConfig
	TTSConfig                = component.TTSConfig
	VADConfig                = component.VADConfig
	SpeakerDiarizationConfig = component.SpeakerDiarizationConfig
	VoiceAgentConfig         = component.VoiceAgentConfig
	Kind                     = component.Kind
	State                    = component.State
	InitializationResult     = lifecycle.InitializationResult
	TurnResult               = voiceagent.TurnResult
	TurnEvent                = voiceagent.TurnEvent
)

// Re-exported kind constants.
const (
	KindLLM                = component.KindLLM
	KindSTT                = component.KindSTT
	KindTTS                = component.KindTTS
	KindVAD                = component.KindVAD
	KindSpeakerDiarization = component.KindSpeakerDiarization
	KindVoiceAgent         = component.KindVoiceAgent
)

// Options configures SDK construction.
type Options struct {
	// Engine is the native inference bridge. Required.
	Engine nativebridge.Engine
	// Adapters are registered ahead of the built-in native adapter.
	Adapters []registry.Adapter
	// Resolver maps resource IDs to model descriptors. Optional.
	Resolver lifecycle.ModelResolver
	// ModelsDir overrides the default model directory (~/.edgekit/models).
	ModelsDir string
	// TelemetrySink overrides the sink chosen from the bootstrap file.
	TelemetrySink telemetry.Sink
	// DisableTelemetry skips analytics entirely.
	DisableTelemetry bool
	Logger           *log.Logger
}

// SDK is the public entry point composing the capability registry, the
// lifecycle manager, the native handle manager, the voice agent, and the
// telemetry pipeline.
type SDK struct {
	logger   *log.Logger
	bus      *eventbus.Bus
	registry *registry.Registry
	handles  *nativebridge.Manager
	manager  *lifecycle.Manager
	queue    *telemetry.Queue
	counter  *observability.EventCounter
	sampler  *observability.MemorySampler
	exporter *observability.PrometheusExporter

	svc eventbus.ServiceLifecycle

	mu    sync.Mutex
	agent *voiceagent.Agent

	closeOnce sync.Once
	closeErr  error
}

// New wires the SDK together. The built-in native adapter is registered
// last so explicitly supplied adapters win at equal priority, and doubles
// as the fallback when no registered adapter can handle a model.
func New(opts Options) (*SDK, error) {
	if opts.Engine == nil {
		return nil, errors.New("edgekit: native engine is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	paths := config.GetPaths()
	modelsDir := opts.ModelsDir
	if modelsDir == "" {
		modelsDir = paths.Models
	}

	bus := eventbus.New(eventbus.WithLogger(logger))
	handles := nativebridge.NewManager(opts.Engine, nativebridge.WithLogger(logger))
	fallback := native.New(handles, modelsDir)

	reg := registry.New(registry.WithLogger(logger))
	for _, adapter := range opts.Adapters {
		reg.Register(adapter)
	}
	reg.Register(fallback)

	manager := lifecycle.NewManager(lifecycle.Options{
		Registry: reg,
		Bus:      bus,
		Resolver: opts.Resolver,
		Fallback: fallback,
		Logger:   logger,
	})

	sdk := &SDK{
		logger:   logger,
		bus:      bus,
		registry: reg,
		handles:  handles,
		manager:  manager,
		counter:  observability.NewEventCounter(bus),
		sampler:  observability.NewMemorySampler(observability.MemorySamplerOptions{Bus: bus, Logger: logger}),
	}

	if !opts.DisableTelemetry {
		sdk.queue = telemetry.NewQueue(telemetry.Options{
			Sink:   sdk.telemetrySink(opts),
			Spool:  sdk.telemetrySpool(paths),
			Bus:    bus,
			Logger: logger,
		})
	}

	sdk.exporter = observability.NewPrometheusExporter(bus, sdk.counter)
	sdk.exporter.WithComponentStatuses(manager)
	if sdk.queue != nil {
		sdk.exporter.WithQueueDepth(sdk.queue)
	}

	sdk.startTracking()
	return sdk, nil
}

// telemetrySink picks the configured sink: an explicit override, the
// collector from the bootstrap file, or a no-op.
func (s *SDK) telemetrySink(opts Options) telemetry.Sink {
	if opts.TelemetrySink != nil {
		return opts.TelemetrySink
	}
	cfg, err := bootstrap.Load()
	if err != nil {
		s.logger.Printf("[edgekit] read bootstrap config: %v", err)
		return telemetry.NopSink{}
	}
	if cfg == nil || !cfg.Telemetry || cfg.CollectorURL == "" {
		return telemetry.NopSink{}
	}
	return telemetry.NewWSSink(cfg.CollectorURL, cfg.APIKey)
}

func (s *SDK) telemetrySpool(paths config.Paths) telemetry.Spool {
	if _, err := config.EnsureDirs(); err != nil {
		s.logger.Printf("[edgekit] ensure directories: %v", err)
		return nil
	}
	spool, err := telemetry.OpenSpool(paths.Spool)
	if err != nil {
		// Telemetry stays functional without the spool.
		s.logger.Printf("[edgekit] open telemetry spool: %v", err)
		return nil
	}
	return spool
}

// startTracking converts lifecycle and voice events into analytics events.
func (s *SDK) startTracking() {
	if s.queue == nil {
		return
	}
	s.svc.Start(context.Background())

	loaded := eventbus.SubscribeTo(s.bus, eventbus.ComponentDidLoad)
	failed := eventbus.SubscribeTo(s.bus, eventbus.ComponentLoadFailed)
	turns := eventbus.SubscribeTo(s.bus, eventbus.VoiceAgentTurn)
	s.svc.AddSubscriptions(loaded, failed, turns)

	// Workers consume with a background context so buffered events are
	// drained before shutdown; closing the subscriptions ends each loop.
	s.svc.Go(func(context.Context) {
		eventbus.Consume(context.Background(), loaded, nil, func(ev eventbus.ComponentDidLoadEvent) {
			s.Track("component_loaded", map[string]any{
				"kind":        ev.Kind,
				"resource_id": ev.ResourceID,
				"duration_ms": ev.Duration.Milliseconds(),
			})
		})
	})
	s.svc.Go(func(context.Context) {
		eventbus.Consume(context.Background(), failed, nil, func(ev eventbus.ComponentLoadFailedEvent) {
			s.Track("component_load_failed", map[string]any{
				"kind":   ev.Kind,
				"reason": ev.Reason,
			})
		})
	})
	s.svc.Go(func(context.Context) {
		eventbus.Consume(context.Background(), turns, nil, func(ev eventbus.TurnCompletedEvent) {
			s.Track("voice_turn_completed", map[string]any{
				"speech_detected": ev.SpeechDetected,
				"audio_bytes":     ev.AudioBytes,
			})
		})
	})
}

// Initialize creates and initializes components for the given configs.
// Partial failure never aborts the batch; inspect the result per kind.
func (s *SDK) Initialize(ctx context.Context, configs []Config) InitializationResult {
	result := s.manager.Initialize(ctx, configs)

	// A changed component set invalidates any cached voice agent.
	s.mu.Lock()
	s.agent = nil
	s.mu.Unlock()

	return result
}

// GetStatus returns the lifecycle state for one kind.
func (s *SDK) GetStatus(kind Kind) (State, bool) { return s.manager.GetStatus(kind) }

// GetAllStatuses returns the lifecycle state of every active component.
func (s *SDK) GetAllStatuses() map[Kind]State { return s.manager.GetAllStatuses() }

// IsReady reports whether the kind's component is ready.
func (s *SDK) IsReady(kind Kind) bool { return s.manager.IsReady(kind) }

// AllReady reports whether every listed kind is ready.
func (s *SDK) AllReady(kinds ...Kind) bool { return s.manager.AllReady(kinds...) }

// VoiceAgent returns the voice pipeline over the four ready components,
// building it on first use. All four must be ready.
func (s *SDK) VoiceAgent() (*voiceagent.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent != nil {
		return s.agent, nil
	}

	vad, _ := s.manager.Component(KindVAD)
	stt, _ := s.manager.Component(KindSTT)
	llm, _ := s.manager.Component(KindLLM)
	tts, _ := s.manager.Component(KindTTS)

	agent, err := voiceagent.New(vad, stt, llm, tts, voiceagent.Options{
		Bus:    s.bus,
		Logger: s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.agent = agent
	return agent, nil
}

// ProcessAudio runs one audio chunk through the voice pipeline.
func (s *SDK) ProcessAudio(ctx context.Context, chunk []byte) (TurnResult, error) {
	agent, err := s.VoiceAgent()
	if err != nil {
		return TurnResult{}, err
	}
	return agent.ProcessAudio(ctx, chunk)
}

// ProcessStream runs the streaming voice pipeline over an audio source.
func (s *SDK) ProcessStream(ctx context.Context, chunks <-chan []byte) (<-chan TurnEvent, error) {
	agent, err := s.VoiceAgent()
	if err != nil {
		return nil, err
	}
	return agent.ProcessStream(ctx, chunks), nil
}

// SynthesizeSpeechWAV synthesizes speech and wraps it in a WAV container
// for direct playback or file export.
func (s *SDK) SynthesizeSpeechWAV(ctx context.Context, text string) ([]byte, error) {
	agent, err := s.VoiceAgent()
	if err != nil {
		return nil, err
	}
	audio, err := agent.SynthesizeSpeech(ctx, text)
	if err != nil {
		return nil, err
	}
	return audioio.Encode(audio)
}

// Track enqueues one analytics event. A no-op when telemetry is disabled.
func (s *SDK) Track(name string, properties map[string]any) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(name, properties); err != nil {
		s.logger.Printf("[edgekit] track %s: %v", name, err)
	}
}

// EventBus exposes the SDK event bus for host subscriptions.
func (s *SDK) EventBus() *eventbus.Bus { return s.bus }

// Registry exposes the capability registry for adapter registration.
func (s *SDK) Registry() *registry.Registry { return s.registry }

// Metrics renders current SDK metrics in Prometheus text format.
func (s *SDK) Metrics() []byte { return s.exporter.Export() }

// Close tears the SDK down: components first, then native handles with the
// composite destroyed before its parts, then telemetry and observers.
// Errors are aggregated; teardown never stops early.
func (s *SDK) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error

		if err := s.manager.Cleanup(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.handles.DestroyAll(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := s.svc.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("edgekit: stop trackers: %w", err))
		}
		if s.queue != nil {
			if err := s.queue.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.sampler.Close()
		s.counter.Close()
		s.bus.Shutdown()

		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
