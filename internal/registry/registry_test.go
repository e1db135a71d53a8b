package registry_test

import (
	"testing"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/registry"
)

func sttAdapter(name, framework string) *registry.MockAdapter {
	return &registry.MockAdapter{
		AdapterName: name,
		FW:          framework,
		Kinds:       []component.Kind{component.KindSTT},
	}
}

func TestFindBestAdapterHighestPriorityWins(t *testing.T) {
	r := registry.New()
	low := sttAdapter("whisper-cpp", "whispercpp")
	high := sttAdapter("whisper-kit", "whisperkit")
	r.Register(low, registry.WithPriority(50))
	r.Register(high, registry.WithPriority(100))

	got, ok := r.FindBestAdapter(registry.ModelDescriptor{ID: "whisper-base"}, component.KindSTT)
	if !ok {
		t.Fatal("expected an adapter")
	}
	if got.Name() != "whisper-kit" {
		t.Fatalf("expected priority-100 adapter, got %q", got.Name())
	}
}

func TestFindBestAdapterPreferredFrameworkBeatsPriority(t *testing.T) {
	r := registry.New()
	r.Register(sttAdapter("whisper-cpp", "whispercpp"), registry.WithPriority(50))
	r.Register(sttAdapter("whisper-kit", "whisperkit"), registry.WithPriority(100))

	model := registry.ModelDescriptor{ID: "whisper-base", PreferredFramework: "whispercpp"}
	got, ok := r.FindBestAdapter(model, component.KindSTT)
	if !ok {
		t.Fatal("expected an adapter")
	}
	if got.Name() != "whisper-cpp" {
		t.Fatalf("preferred framework must win over priority, got %q", got.Name())
	}
}

func TestFindBestAdapterCompatibleFrameworkOrder(t *testing.T) {
	r := registry.New()
	r.Register(sttAdapter("onnx", "onnxruntime"), registry.WithPriority(100))
	r.Register(sttAdapter("coreml", "coreml"), registry.WithPriority(100))

	model := registry.ModelDescriptor{
		ID:                   "parakeet",
		CompatibleFrameworks: []string{"coreml", "onnxruntime"},
	}
	got, ok := r.FindBestAdapter(model, component.KindSTT)
	if !ok {
		t.Fatal("expected an adapter")
	}
	if got.Name() != "coreml" {
		t.Fatalf("expected first compatible framework match, got %q", got.Name())
	}
}

func TestFindBestAdapterNoneCapable(t *testing.T) {
	r := registry.New()
	picky := sttAdapter("picky", "onnxruntime")
	picky.Handles = func(model registry.ModelDescriptor) bool { return false }
	r.Register(picky)

	if _, ok := r.FindBestAdapter(registry.ModelDescriptor{ID: "anything"}, component.KindSTT); ok {
		t.Fatal("expected no adapter when none can handle the model")
	}
	if got := r.FindAdapters(registry.ModelDescriptor{ID: "anything"}, component.KindSTT); len(got) != 0 {
		t.Fatalf("FindAdapters must filter incapable adapters, got %d", len(got))
	}
}

func TestRegisterReplacesSameName(t *testing.T) {
	r := registry.New()
	r.Register(sttAdapter("whisper-cpp", "whispercpp"), registry.WithPriority(50))
	r.Register(sttAdapter("whisper-cpp", "whispercpp"), registry.WithPriority(200))

	adapters := r.Adapters(component.KindSTT)
	if len(adapters) != 1 {
		t.Fatalf("re-registration must replace, got %d entries", len(adapters))
	}
}

func TestPriorityTieResolvesToEarliestRegistration(t *testing.T) {
	r := registry.New()
	r.Register(sttAdapter("first", "fw-a"), registry.WithPriority(100))
	r.Register(sttAdapter("second", "fw-b"), registry.WithPriority(100))

	got, ok := r.FindBestAdapter(registry.ModelDescriptor{ID: "m"}, component.KindSTT)
	if !ok {
		t.Fatal("expected an adapter")
	}
	if got.Name() != "first" {
		t.Fatalf("tie must resolve to earliest registration, got %q", got.Name())
	}
}

func TestMultiModalityAdapterRegisteredPerKind(t *testing.T) {
	r := registry.New()
	multi := &registry.MockAdapter{
		AdapterName: "onnx-suite",
		FW:          "onnxruntime",
		Kinds:       []component.Kind{component.KindSTT, component.KindTTS, component.KindVAD},
	}
	r.Register(multi)

	for _, kind := range multi.Kinds {
		if _, ok := r.FindBestAdapter(registry.ModelDescriptor{ID: "m"}, kind); !ok {
			t.Fatalf("adapter missing for modality %s", kind)
		}
	}
	if _, ok := r.FindBestAdapter(registry.ModelDescriptor{ID: "m"}, component.KindLLM); ok {
		t.Fatal("adapter must not serve unsupported modality")
	}
}
