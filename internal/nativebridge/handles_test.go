package nativebridge_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/nativebridge"
)

func TestGetOrCreateHandleIsMemoized(t *testing.T) {
	engine := &nativebridge.MockEngine{}
	m := nativebridge.NewManager(engine)
	ctx := context.Background()

	first, err := m.GetOrCreateHandle(ctx, component.KindLLM)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := m.GetOrCreateHandle(ctx, component.KindLLM)
	if err != nil {
		t.Fatalf("repeat create: %v", err)
	}
	if first != second {
		t.Fatal("repeated GetOrCreateHandle must return the same handle")
	}

	creates := 0
	for _, call := range engine.Calls() {
		if call == "create:llm" {
			creates++
		}
	}
	if creates != 1 {
		t.Fatalf("expected one native create, got %d", creates)
	}
}

func TestHandleGenerationDetectsUseAfterDestroy(t *testing.T) {
	engine := &nativebridge.MockEngine{}
	m := nativebridge.NewManager(engine)
	ctx := context.Background()

	h, err := m.GetOrCreateHandle(ctx, component.KindSTT)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !m.Valid(h) {
		t.Fatal("fresh handle must validate")
	}

	if err := m.Destroy(ctx, component.KindSTT); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if m.Valid(h) {
		t.Fatal("destroyed handle must not validate")
	}

	recreated, err := m.GetOrCreateHandle(ctx, component.KindSTT)
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if m.Valid(h) {
		t.Fatal("stale handle must not validate against the recreated slot")
	}
	if !m.Valid(recreated) {
		t.Fatal("recreated handle must validate")
	}
}

func TestLoadResourceBindsAndUnloadKeepsHandle(t *testing.T) {
	engine := &nativebridge.MockEngine{}
	m := nativebridge.NewManager(engine)
	ctx := context.Background()

	if err := m.LoadResource(ctx, component.KindTTS, "/models/kokoro.onnx", "kokoro-82m"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if id, ok := m.CurrentResourceID(component.KindTTS); !ok || id != "kokoro-82m" {
		t.Fatalf("expected bound resource kokoro-82m, got %q (%v)", id, ok)
	}

	h, err := m.GetOrCreateHandle(ctx, component.KindTTS)
	if err != nil {
		t.Fatalf("get handle: %v", err)
	}
	if err := m.Unload(ctx, component.KindTTS); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if _, ok := m.CurrentResourceID(component.KindTTS); ok {
		t.Fatal("unload must clear the bound resource")
	}
	if !m.Valid(h) {
		t.Fatal("unload must keep the handle alive")
	}
}

func TestLoadResourceFailureCarriesModalityAndCode(t *testing.T) {
	engine := &nativebridge.MockEngine{LoadCode: nativebridge.CodeModelLoadFailed}
	m := nativebridge.NewManager(engine)

	err := m.LoadResource(context.Background(), component.KindLLM, "/models/llama.gguf", "llama-3b")
	if err == nil {
		t.Fatal("expected load error")
	}
	var bridgeErr *nativebridge.BridgeError
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("expected BridgeError, got %T", err)
	}
	if bridgeErr.Modality != component.KindLLM {
		t.Fatalf("expected llm modality, got %s", bridgeErr.Modality)
	}
	if code, ok := nativebridge.CodeOf(err); !ok || code != nativebridge.CodeModelLoadFailed {
		t.Fatalf("expected model_load_failed code, got %v (%v)", code, ok)
	}
}

func TestVoiceAgentHandleEnsuresParts(t *testing.T) {
	engine := &nativebridge.MockEngine{}
	m := nativebridge.NewManager(engine)
	ctx := context.Background()

	h, err := m.GetOrCreateVoiceAgentHandle(ctx)
	if err != nil {
		t.Fatalf("create composite: %v", err)
	}
	if h.Modality != component.KindVoiceAgent {
		t.Fatalf("unexpected modality %s", h.Modality)
	}

	calls := engine.Calls()
	for _, want := range []string{"create:llm", "create:stt", "create:tts", "create:vad"} {
		found := false
		for _, call := range calls {
			if call == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("composite creation must ensure %s first, calls: %v", want, calls)
		}
	}
	if calls[len(calls)-1] != "create:voice_agent_composite" {
		t.Fatalf("composite must be created after its parts, calls: %v", calls)
	}

	again, err := m.GetOrCreateVoiceAgentHandle(ctx)
	if err != nil {
		t.Fatalf("repeat composite: %v", err)
	}
	if again != h {
		t.Fatal("composite handle must be memoized")
	}
}

func TestDestroyAllOrdersCompositeFirst(t *testing.T) {
	engine := &nativebridge.MockEngine{}
	m := nativebridge.NewManager(engine)
	ctx := context.Background()

	if _, err := m.GetOrCreateVoiceAgentHandle(ctx); err != nil {
		t.Fatalf("create composite: %v", err)
	}
	if err := m.DestroyAll(ctx); err != nil {
		t.Fatalf("destroy all: %v", err)
	}

	var destroys []string
	for _, call := range engine.Calls() {
		if strings.HasPrefix(call, "destroy") {
			destroys = append(destroys, call)
		}
	}
	if len(destroys) != 5 {
		t.Fatalf("expected five destroys, got %v", destroys)
	}
	if destroys[0] != "destroy:voice_agent_composite" {
		t.Fatalf("composite must be destroyed first, got %v", destroys)
	}
}

func TestDestroyAllAggregatesErrors(t *testing.T) {
	engine := &nativebridge.MockEngine{DestroyCode: nativebridge.CodeProcessingFailed}
	m := nativebridge.NewManager(engine)
	ctx := context.Background()

	if _, err := m.GetOrCreateHandle(ctx, component.KindLLM); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.GetOrCreateHandle(ctx, component.KindSTT); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := m.DestroyAll(ctx)
	if err == nil {
		t.Fatal("expected aggregated destroy errors")
	}
	// Both failing destroys must be attempted and reported.
	destroys := 0
	for _, call := range engine.Calls() {
		if call == "destroy" {
			destroys++
		}
	}
	if destroys != 2 {
		t.Fatalf("teardown must not stop at the first failure, got %d destroys", destroys)
	}
}
