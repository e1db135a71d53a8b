// Package lifecycle orchestrates creation, ordered initialization, status
// tracking, and cleanup of an arbitrary set of capability components.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/edgekit-ai/edgekit/internal/component"
	"github.com/edgekit-ai/edgekit/internal/eventbus"
	"github.com/edgekit-ai/edgekit/internal/registry"
)

// ModelResolver resolves a resource identifier into a model descriptor.
// Download-on-demand lives behind this interface, outside the manager.
type ModelResolver interface {
	Resolve(ctx context.Context, resourceID string, modality component.Kind) (registry.ModelDescriptor, error)
}

// NoAdapterError indicates no registered adapter could handle the model.
type NoAdapterError struct {
	Kind  component.Kind
	Model string
}

func (e *NoAdapterError) Error() string {
	return fmt.Sprintf("lifecycle: no capable adapter for %s model %q", e.Kind, e.Model)
}

func (e *NoAdapterError) ErrorCode() string { return "no_adapter" }

// Options configures the lifecycle manager.
type Options struct {
	Registry *registry.Registry
	Bus      *eventbus.Bus
	Resolver ModelResolver    // optional; nil builds descriptors from the resource ID
	Fallback registry.Adapter // optional default adapter when the registry has no match
	Logger   *log.Logger
}

// Manager owns the active-component table. The table is written only by the
// coordinating goroutine after gathering each worker's result, never by the
// workers themselves.
type Manager struct {
	reg      *registry.Registry
	bus      *eventbus.Bus
	resolver ModelResolver
	fallback registry.Adapter
	logger   *log.Logger

	mu     sync.RWMutex
	active map[component.Kind]*component.Component
}

// NewManager constructs a lifecycle manager with the supplied dependencies.
func NewManager(opts Options) *Manager {
	m := &Manager{
		reg:      opts.Registry,
		bus:      opts.Bus,
		resolver: opts.Resolver,
		fallback: opts.Fallback,
		logger:   opts.Logger,
		active:   make(map[component.Kind]*component.Component),
	}
	if m.reg == nil {
		m.reg = registry.New()
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	return m
}

type outcome struct {
	kind component.Kind
	comp *component.Component
	err  error
}

// Initialize processes an unordered list of component configs: stable-sorts
// by priority descending, runs non-memory-heavy kinds concurrently, then
// memory-heavy kinds one at a time in sorted order. A single failure never
// aborts the batch; every kind is attempted and reported exactly once.
func (m *Manager) Initialize(ctx context.Context, configs []component.Config) InitializationResult {
	started := time.Now()
	result := InitializationResult{Timestamp: started.UTC()}

	ordered := dedupeSorted(configs)
	kinds := make([]string, 0, len(ordered))
	for _, cfg := range ordered {
		kinds = append(kinds, cfg.Kind().String())
	}
	eventbus.Publish(ctx, m.bus, eventbus.BatchStarted, eventbus.SourceLifecycle,
		eventbus.BatchStartedEvent{Kinds: kinds})

	var parallel, serial []component.Config
	for _, cfg := range ordered {
		if cfg.Kind().MemoryHeavy() {
			serial = append(serial, cfg)
		} else {
			parallel = append(parallel, cfg)
		}
	}

	outcomes := make([]outcome, 0, len(ordered))

	// Fan-out the parallel group; workers never touch the active table.
	if len(parallel) > 0 {
		ch := make(chan outcome, len(parallel))
		for _, cfg := range parallel {
			comp := m.componentFor(ctx, cfg)
			go func(cfg component.Config, comp *component.Component, err error) {
				if err != nil {
					ch <- outcome{kind: cfg.Kind(), err: err}
					return
				}
				ch <- outcome{kind: cfg.Kind(), comp: comp, err: comp.Initialize(ctx, cfg)}
			}(cfg, comp.comp, comp.err)
		}
		for range parallel {
			outcomes = append(outcomes, <-ch)
		}
	}

	// Serial group: strictly one at a time, in priority order. Memory-heavy
	// kinds are never in the initializing state simultaneously.
	for _, cfg := range serial {
		prep := m.componentFor(ctx, cfg)
		if prep.err != nil {
			outcomes = append(outcomes, outcome{kind: cfg.Kind(), err: prep.err})
			continue
		}
		outcomes = append(outcomes, outcome{kind: cfg.Kind(), comp: prep.comp, err: prep.comp.Initialize(ctx, cfg)})
	}

	// Only the coordinator writes the active table.
	m.mu.Lock()
	for _, out := range outcomes {
		if out.comp != nil {
			m.active[out.kind] = out.comp
		}
	}
	m.mu.Unlock()

	for _, out := range outcomes {
		if out.err != nil {
			result.Failed = append(result.Failed, FailedKind{Kind: out.kind, Err: out.err})
			m.logger.Printf("[lifecycle] %s initialization failed: %v", out.kind, out.err)
		} else {
			result.Successful = append(result.Successful, out.kind)
		}
	}
	result.Duration = time.Since(started)

	summary := eventbus.BatchCompletedEvent{Duration: result.Duration}
	for _, kind := range result.Successful {
		summary.Successful = append(summary.Successful, kind.String())
	}
	for _, f := range result.Failed {
		summary.Failed = append(summary.Failed, f.Kind.String())
	}
	eventbus.Publish(ctx, m.bus, eventbus.BatchCompleted, eventbus.SourceLifecycle, summary)

	return result
}

type prepared struct {
	comp *component.Component
	err  error
}

// componentFor reuses the active component for the config's kind when one
// exists, otherwise selects an adapter and creates a fresh component. Runs
// on the coordinator; only reads the active table.
func (m *Manager) componentFor(ctx context.Context, cfg component.Config) prepared {
	if cfg == nil {
		return prepared{err: &component.ConfigError{Reason: "configuration is nil"}}
	}
	if err := cfg.Validate(); err != nil {
		return prepared{err: err}
	}

	kind := cfg.Kind()

	m.mu.RLock()
	existing := m.active[kind]
	m.mu.RUnlock()
	if existing != nil {
		return prepared{comp: existing}
	}

	adapter, err := m.selectAdapter(ctx, cfg)
	if err != nil {
		return prepared{err: err}
	}
	return prepared{comp: component.New(kind, adapter, m.bus)}
}

func (m *Manager) selectAdapter(ctx context.Context, cfg component.Config) (registry.Adapter, error) {
	kind := cfg.Kind()

	desc := registry.ModelDescriptor{ID: cfg.ResourceID()}
	if m.resolver != nil && cfg.ResourceID() != "" {
		resolved, err := m.resolver.Resolve(ctx, cfg.ResourceID(), kind)
		if err != nil {
			return nil, fmt.Errorf("lifecycle: resolve model %q: %w", cfg.ResourceID(), err)
		}
		desc = resolved
	}

	if adapter, ok := m.reg.FindBestAdapter(desc, kind); ok {
		return adapter, nil
	}
	if m.fallback != nil {
		m.logger.Printf("[lifecycle] no registered adapter for %s model %q, using fallback %q",
			kind, desc.ID, m.fallback.Name())
		return m.fallback, nil
	}
	return nil, &NoAdapterError{Kind: kind, Model: desc.ID}
}

// GetStatus returns the lifecycle state of the active component for a kind.
func (m *Manager) GetStatus(kind component.Kind) (component.State, bool) {
	m.mu.RLock()
	comp := m.active[kind]
	m.mu.RUnlock()
	if comp == nil {
		return component.StateNotInitialized, false
	}
	return comp.State(), true
}

// GetAllStatuses returns the state of every active component.
func (m *Manager) GetAllStatuses() map[component.Kind]component.State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[component.Kind]component.State, len(m.active))
	for kind, comp := range m.active {
		out[kind] = comp.State()
	}
	return out
}

// IsReady reports whether the kind's active component is ready.
func (m *Manager) IsReady(kind component.Kind) bool {
	m.mu.RLock()
	comp := m.active[kind]
	m.mu.RUnlock()
	return comp != nil && comp.IsReady()
}

// AllReady reports whether every listed kind is ready (logical AND).
func (m *Manager) AllReady(kinds ...component.Kind) bool {
	for _, kind := range kinds {
		if !m.IsReady(kind) {
			return false
		}
	}
	return true
}

// Component returns the active component for a kind, if any.
func (m *Manager) Component(kind component.Kind) (*component.Component, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comp, ok := m.active[kind]
	return comp, ok
}

// Cleanup tears down every active component, aggregating failures without
// stopping, then clears the table.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	active := m.active
	m.active = make(map[component.Kind]*component.Component)
	m.mu.Unlock()

	var errs []error
	for kind, comp := range active {
		if comp.State() == component.StateNotInitialized {
			continue
		}
		if err := comp.Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("lifecycle: cleanup %s: %w", kind, err))
		}
	}
	return errors.Join(errs...)
}

// dedupeSorted stable-sorts configs by priority descending and keeps the
// first config per kind so every requested kind is attempted exactly once.
func dedupeSorted(configs []component.Config) []component.Config {
	ordered := make([]component.Config, 0, len(configs))
	for _, cfg := range configs {
		if cfg != nil {
			ordered = append(ordered, cfg)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() > ordered[j].Priority()
	})

	seen := make(map[component.Kind]struct{}, len(ordered))
	out := ordered[:0]
	for _, cfg := range ordered {
		if _, dup := seen[cfg.Kind()]; dup {
			continue
		}
		seen[cfg.Kind()] = struct{}{}
		out = append(out, cfg)
	}
	return out
}
