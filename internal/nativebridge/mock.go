package nativebridge

import (
	"context"
	"sync"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// MockEngine is an Engine test double recording the order of native calls.
type MockEngine struct {
	CreateCode    Code
	LoadCode      Code
	UnloadCode    Code
	DestroyCode   Code
	CompositeCode Code

	GenerateCode       Code
	GenerateReply      string
	TranscribeCode     Code
	TranscribeText     string
	SynthesizeCode     Code
	SynthesizeAudio    []byte
	SynthesizeRate     int
	DetectCode         Code
	DetectSpeechResult bool
	DetectEnergy       float64

	mu     sync.Mutex
	nextID uint64
	live   map[uint64]bool
	calls  []string
}

func (e *MockEngine) record(call string) {
	e.calls = append(e.calls, call)
}

// Calls returns the recorded native calls in order.
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *MockEngine) CreateInstance(ctx context.Context, modality component.Kind) (uint64, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("create:" + modality.String())
	if !e.CreateCode.OK() {
		return 0, e.CreateCode
	}
	e.nextID++
	if e.live == nil {
		e.live = make(map[uint64]bool)
	}
	e.live[e.nextID] = true
	return e.nextID, CodeSuccess
}

func (e *MockEngine) LoadResource(ctx context.Context, instance uint64, path, resourceID string) Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("load:" + resourceID)
	if !e.live[instance] {
		return CodeInvalidHandle
	}
	return e.LoadCode
}

func (e *MockEngine) UnloadResource(ctx context.Context, instance uint64) Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("unload")
	if !e.live[instance] {
		return CodeInvalidHandle
	}
	return e.UnloadCode
}

func (e *MockEngine) IsLoaded(ctx context.Context, instance uint64) (bool, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.live[instance] {
		return false, CodeInvalidHandle
	}
	return true, CodeSuccess
}

func (e *MockEngine) DestroyInstance(ctx context.Context, instance uint64) Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("destroy")
	if !e.DestroyCode.OK() {
		return e.DestroyCode
	}
	delete(e.live, instance)
	return CodeSuccess
}

func (e *MockEngine) CreateComposite(ctx context.Context, parts map[component.Kind]uint64) (uint64, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("create:voice_agent_composite")
	if !e.CompositeCode.OK() {
		return 0, e.CompositeCode
	}
	for _, instance := range parts {
		if !e.live[instance] {
			return 0, CodeInvalidHandle
		}
	}
	e.nextID++
	if e.live == nil {
		e.live = make(map[uint64]bool)
	}
	e.live[e.nextID] = true
	return e.nextID, CodeSuccess
}

func (e *MockEngine) DestroyComposite(ctx context.Context, instance uint64) Code {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("destroy:voice_agent_composite")
	delete(e.live, instance)
	return CodeSuccess
}

// Inference capability doubles. MockEngine implements every optional
// engine interface; tests exercising the not-implemented path wrap it in a
// plain Engine.

func (e *MockEngine) Generate(ctx context.Context, instance uint64, prompt string) (string, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("generate")
	if !e.live[instance] {
		return "", CodeInvalidHandle
	}
	if !e.GenerateCode.OK() {
		return "", e.GenerateCode
	}
	return e.GenerateReply, CodeSuccess
}

func (e *MockEngine) Transcribe(ctx context.Context, instance uint64, audio []byte) (string, float64, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("transcribe")
	if !e.live[instance] {
		return "", 0, CodeInvalidHandle
	}
	if !e.TranscribeCode.OK() {
		return "", 0, e.TranscribeCode
	}
	return e.TranscribeText, 0.9, CodeSuccess
}

func (e *MockEngine) Synthesize(ctx context.Context, instance uint64, text string) ([]byte, int, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("synthesize")
	if !e.live[instance] {
		return nil, 0, CodeInvalidHandle
	}
	if !e.SynthesizeCode.OK() {
		return nil, 0, e.SynthesizeCode
	}
	return e.SynthesizeAudio, e.SynthesizeRate, CodeSuccess
}

func (e *MockEngine) DetectSpeech(ctx context.Context, instance uint64, chunk []byte) (bool, float64, Code) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("detect")
	if !e.live[instance] {
		return false, 0, CodeInvalidHandle
	}
	if !e.DetectCode.OK() {
		return false, 0, e.DetectCode
	}
	return e.DetectSpeechResult, e.DetectEnergy, CodeSuccess
}
