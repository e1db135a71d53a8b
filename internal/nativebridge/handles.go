package nativebridge

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// Modalities lists the per-modality handles the manager owns, in creation
// order. The composite voice-agent handle is tracked separately.
var Modalities = []component.Kind{component.KindLLM, component.KindSTT, component.KindTTS, component.KindVAD}

// Handle references a live native engine instance. The generation counter
// detects use-after-destroy: a handle from a previous liveness window never
// validates against the current table entry.
type Handle struct {
	Modality component.Kind
	instance uint64
	gen      uint64
}

type slot struct {
	instance   uint64
	gen        uint64
	alive      bool
	resourceID string
}

// Manager is the sole owner of native handles, one per modality plus the
// composite voice-agent handle. All access is serialized behind a mutex so
// callers never touch the table directly.
type Manager struct {
	engine Engine
	logger *log.Logger

	mu        sync.Mutex
	slots     map[component.Kind]*slot
	composite *slot
	nextGen   uint64
}

// Option customises manager construction.
type Option func(*Manager)

// WithLogger overrides the manager logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager constructs a handle manager over the given engine bridge.
func NewManager(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine: engine,
		logger: log.Default(),
		slots:  make(map[component.Kind]*slot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreateHandle returns the modality's handle, creating it lazily on
// first use. Repeated calls return the same handle until Destroy.
func (m *Manager) GetOrCreateHandle(ctx context.Context, modality component.Kind) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(ctx, modality)
}

func (m *Manager) getOrCreateLocked(ctx context.Context, modality component.Kind) (Handle, error) {
	if s, ok := m.slots[modality]; ok && s.alive {
		return Handle{Modality: modality, instance: s.instance, gen: s.gen}, nil
	}

	instance, code := m.engine.CreateInstance(ctx, modality)
	if err := errorFromCode(modality, "create", code); err != nil {
		return Handle{}, err
	}

	m.nextGen++
	s := &slot{instance: instance, gen: m.nextGen, alive: true}
	m.slots[modality] = s
	m.logger.Printf("[nativebridge] created %s handle (gen %d)", modality, s.gen)
	return Handle{Modality: modality, instance: s.instance, gen: s.gen}, nil
}

// Valid reports whether h still references the live handle for its modality.
func (m *Manager) Valid(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[h.Modality]
	return ok && s.alive && s.gen == h.gen
}

// LoadResource binds a model or voice file into the modality's handle,
// creating the handle first if needed. A non-success native result becomes
// a typed load-failure error carrying the modality and raw code.
func (m *Manager) LoadResource(ctx context.Context, modality component.Kind, path, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.getOrCreateLocked(ctx, modality); err != nil {
		return err
	}
	s := m.slots[modality]

	code := m.engine.LoadResource(ctx, s.instance, path, resourceID)
	if err := errorFromCode(modality, "load", code); err != nil {
		return err
	}
	s.resourceID = resourceID
	return nil
}

// Unload releases the bound resource but keeps the handle alive for reuse.
func (m *Manager) Unload(ctx context.Context, modality component.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[modality]
	if !ok || !s.alive {
		return errorFromCode(modality, "unload", CodeInvalidHandle)
	}
	if code := m.engine.UnloadResource(ctx, s.instance); !code.OK() {
		return errorFromCode(modality, "unload", code)
	}
	s.resourceID = ""
	return nil
}

// Destroy releases the modality's handle instance and forgets its resource
// ID. A later GetOrCreateHandle creates a fresh handle with a new generation.
func (m *Manager) Destroy(ctx context.Context, modality component.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyLocked(ctx, modality)
}

func (m *Manager) destroyLocked(ctx context.Context, modality component.Kind) error {
	s, ok := m.slots[modality]
	if !ok || !s.alive {
		return nil
	}
	if code := m.engine.DestroyInstance(ctx, s.instance); !code.OK() {
		return errorFromCode(modality, "destroy", code)
	}
	s.alive = false
	s.resourceID = ""
	m.logger.Printf("[nativebridge] destroyed %s handle (gen %d)", modality, s.gen)
	return nil
}

// CurrentResourceID returns the resource currently bound to the modality's
// handle, if any.
func (m *Manager) CurrentResourceID(modality component.Kind) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[modality]
	if !ok || !s.alive || s.resourceID == "" {
		return "", false
	}
	return s.resourceID, true
}

// GetOrCreateVoiceAgentHandle builds the composite voice-agent handle,
// first ensuring all four modality handles exist, then combining them.
// Memoized like the per-modality handles.
func (m *Manager) GetOrCreateVoiceAgentHandle(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.composite != nil && m.composite.alive {
		return Handle{Modality: component.KindVoiceAgent, instance: m.composite.instance, gen: m.composite.gen}, nil
	}

	parts := make(map[component.Kind]uint64, len(Modalities))
	for _, modality := range Modalities {
		if _, err := m.getOrCreateLocked(ctx, modality); err != nil {
			return Handle{}, err
		}
		parts[modality] = m.slots[modality].instance
	}

	instance, code := m.engine.CreateComposite(ctx, parts)
	if err := errorFromCode(component.KindVoiceAgent, "create", code); err != nil {
		return Handle{}, err
	}

	m.nextGen++
	m.composite = &slot{instance: instance, gen: m.nextGen, alive: true}
	m.logger.Printf("[nativebridge] created voice-agent composite handle (gen %d)", m.composite.gen)
	return Handle{Modality: component.KindVoiceAgent, instance: instance, gen: m.composite.gen}, nil
}

// DestroyVoiceAgentHandle releases the composite handle. The four
// underlying modality handles stay alive.
func (m *Manager) DestroyVoiceAgentHandle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyCompositeLocked(ctx)
}

func (m *Manager) destroyCompositeLocked(ctx context.Context) error {
	if m.composite == nil || !m.composite.alive {
		return nil
	}
	if code := m.engine.DestroyComposite(ctx, m.composite.instance); !code.OK() {
		return errorFromCode(component.KindVoiceAgent, "destroy", code)
	}
	m.composite.alive = false
	return nil
}

// DestroyAll tears down every live handle. The composite voice-agent handle
// is always destroyed before the four modality handles it was built from.
// Errors are aggregated; teardown never stops at the first failure.
func (m *Manager) DestroyAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if err := m.destroyCompositeLocked(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, modality := range Modalities {
		if err := m.destroyLocked(ctx, modality); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
