// Package native provides the built-in backend adapter that drives the
// native engine through the handle manager. It is the default adapter the
// SDK falls back to when no other adapter claims a model.
package native

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/nativebridge"
	"github.com/edgekit-ai/edgekit/internal/registry"
)

// Framework is the framework identifier the adapter reports.
const Framework = "native"

// Adapter builds component services backed by native engine handles.
type Adapter struct {
	handles   *nativebridge.Manager
	modelsDir string
}

// New constructs the adapter over an existing handle manager. Relative
// resource IDs resolve against modelsDir.
func New(handles *nativebridge.Manager, modelsDir string) *Adapter {
	return &Adapter{handles: handles, modelsDir: modelsDir}
}

func (a *Adapter) Name() string { return "native-builtin" }

func (a *Adapter) Framework() string { return Framework }

func (a *Adapter) Modalities() []component.Kind {
	return []component.Kind{
		component.KindLLM,
		component.KindSTT,
		component.KindTTS,
		component.KindVAD,
		component.KindVoiceAgent,
	}
}

// CanHandle accepts any model; the built-in adapter is the fallback of last
// resort and lets the engine reject unsupported formats at load time.
func (a *Adapter) CanHandle(model registry.ModelDescriptor) bool { return true }

// CreateService builds the service for the config's kind. The returned
// service binds its resource during Initialize, not here.
func (a *Adapter) CreateService(ctx context.Context, cfg component.Config) (component.Service, error) {
	switch c := cfg.(type) {
	case component.LLMConfig:
		return &llmService{base: a.baseService(component.KindLLM, c.ResourceID())}, nil
	case component.STTConfig:
		return &sttService{base: a.baseService(component.KindSTT, c.ResourceID())}, nil
	case component.TTSConfig:
		return &ttsService{base: a.baseService(component.KindTTS, c.ResourceID())}, nil
	case component.VADConfig:
		return &vadService{base: a.baseService(component.KindVAD, c.ResourceID())}, nil
	case component.VoiceAgentConfig:
		return &voiceAgentService{adapter: a, cfg: c}, nil
	default:
		return nil, fmt.Errorf("native: unsupported config type %T", cfg)
	}
}

func (a *Adapter) baseService(modality component.Kind, resourceID string) *baseService {
	return &baseService{
		handles:    a.handles,
		modality:   modality,
		resourceID: resourceID,
		path:       a.resourcePath(resourceID),
	}
}

func (a *Adapter) resourcePath(resourceID string) string {
	if resourceID == "" || filepath.IsAbs(resourceID) {
		return resourceID
	}
	return filepath.Join(a.modelsDir, resourceID)
}

// baseService implements the shared handle lifecycle for one modality.
type baseService struct {
	handles    *nativebridge.Manager
	modality   component.Kind
	resourceID string
	path       string

	handle nativebridge.Handle
}

func (s *baseService) Initialize(ctx context.Context) error {
	handle, err := s.handles.GetOrCreateHandle(ctx, s.modality)
	if err != nil {
		return err
	}
	s.handle = handle

	if s.resourceID == "" {
		return nil
	}
	if bound, ok := s.handles.CurrentResourceID(s.modality); ok && bound == s.resourceID {
		return nil
	}
	return s.handles.LoadResource(ctx, s.modality, s.path, s.resourceID)
}

// Release unbinds the resource but keeps the handle alive for reuse; the
// handle itself is destroyed by the SDK's final teardown.
func (s *baseService) Release(ctx context.Context) error {
	if s.resourceID == "" {
		return nil
	}
	if _, ok := s.handles.CurrentResourceID(s.modality); !ok {
		return nil
	}
	return s.handles.Unload(ctx, s.modality)
}

type llmService struct{ base *baseService }

func (s *llmService) Initialize(ctx context.Context) error { return s.base.Initialize(ctx) }
func (s *llmService) Release(ctx context.Context) error    { return s.base.Release(ctx) }

func (s *llmService) Generate(ctx context.Context, prompt string) (string, error) {
	return s.base.handles.Generate(ctx, s.base.handle, prompt)
}

type sttService struct{ base *baseService }

func (s *sttService) Initialize(ctx context.Context) error { return s.base.Initialize(ctx) }
func (s *sttService) Release(ctx context.Context) error    { return s.base.Release(ctx) }

func (s *sttService) Transcribe(ctx context.Context, audio []byte) (component.Transcript, error) {
	return s.base.handles.Transcribe(ctx, s.base.handle, audio)
}

type ttsService struct{ base *baseService }

func (s *ttsService) Initialize(ctx context.Context) error { return s.base.Initialize(ctx) }
func (s *ttsService) Release(ctx context.Context) error    { return s.base.Release(ctx) }

func (s *ttsService) Synthesize(ctx context.Context, text string) (component.SynthesizedAudio, error) {
	return s.base.handles.Synthesize(ctx, s.base.handle, text)
}

type vadService struct{ base *baseService }

func (s *vadService) Initialize(ctx context.Context) error { return s.base.Initialize(ctx) }
func (s *vadService) Release(ctx context.Context) error    { return s.base.Release(ctx) }

func (s *vadService) DetectSpeech(ctx context.Context, chunk []byte) (component.VADResult, error) {
	return s.base.handles.DetectSpeech(ctx, s.base.handle, chunk)
}

// voiceAgentService binds all four sub-resources, then builds the composite
// handle on top of them.
type voiceAgentService struct {
	adapter *Adapter
	cfg     component.VoiceAgentConfig
}

func (s *voiceAgentService) Initialize(ctx context.Context) error {
	parts := []struct {
		modality   component.Kind
		resourceID string
	}{
		{component.KindVAD, s.cfg.VAD.ResourceID()},
		{component.KindSTT, s.cfg.STT.ResourceID()},
		{component.KindLLM, s.cfg.LLM.ResourceID()},
		{component.KindTTS, s.cfg.TTS.ResourceID()},
	}
	for _, part := range parts {
		if part.resourceID == "" {
			continue
		}
		if bound, ok := s.adapter.handles.CurrentResourceID(part.modality); ok && bound == part.resourceID {
			continue
		}
		if err := s.adapter.handles.LoadResource(ctx, part.modality,
			s.adapter.resourcePath(part.resourceID), part.resourceID); err != nil {
			return err
		}
	}
	_, err := s.adapter.handles.GetOrCreateVoiceAgentHandle(ctx)
	return err
}

// Release destroys only the composite handle; the four modality handles and
// their resources stay available to their own components.
func (s *voiceAgentService) Release(ctx context.Context) error {
	return s.adapter.handles.DestroyVoiceAgentHandle(ctx)
}
