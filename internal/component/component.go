// Package component implements the per-modality lifecycle state machine.
// A component owns at most one service instance; the service exists exactly
// while the component is in the ready state.
package component

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edgekit-ai/edgekit/internal/eventbus"
)

// Component is a per-modality entity created through a backend adapter.
// All state transitions are serialized behind a mutex, so a component's
// transitions are never observed interleaved.
type Component struct {
	kind    Kind
	factory ServiceFactory
	bus     *eventbus.Bus

	mu      sync.Mutex
	state   State
	service Service
	params  Config
}

// New constructs a component in the not-initialized state.
func New(kind Kind, factory ServiceFactory, bus *eventbus.Bus) *Component {
	return &Component{
		kind:    kind,
		factory: factory,
		bus:     bus,
		state:   StateNotInitialized,
	}
}

// Kind returns the component's modality.
func (c *Component) Kind() Kind { return c.kind }

// State returns the current lifecycle state.
func (c *Component) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsReady reports whether the component holds a live service.
func (c *Component) IsReady() bool {
	return c.State() == StateReady
}

// Parameters returns the config the component was last initialized with.
// Used for equality checks when a re-initialization is requested.
func (c *Component) Parameters() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Service returns the owned service instance, non-nil iff the component is
// ready.
func (c *Component) Service() Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.service
}

// Initialize creates and initializes the component's service from cfg.
// Legal only from the not-initialized or failed states. Calling it while
// ready with parameters equal to the current ones is a no-op; with different
// parameters the current service is torn down and creation runs again
// exactly once.
//
// Once started, the underlying native work is not preemptively cancellable;
// cancelling ctx abandons the wait but not the work.
func (c *Component) Initialize(ctx context.Context, cfg Config) error {
	if cfg == nil {
		return &ConfigError{Kind: c.kind, Reason: "configuration is nil"}
	}
	if cfg.Kind() != c.kind {
		return &ConfigError{Kind: c.kind, Reason: "configuration is for kind " + cfg.Kind().String()}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateReady {
		if Equal(c.params, cfg) {
			return nil
		}
		// Different parameters: tear down the current service, then run
		// creation and initialization again exactly once.
		_ = c.releaseLocked(ctx)
	}
	if !canTransition(c.state, StateInitializing) {
		return &StateError{Kind: c.kind, From: c.state, Op: "initialize"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.state = StateInitializing
	eventbus.Publish(ctx, c.bus, eventbus.ComponentWillLoad, eventbus.SourceComponent,
		eventbus.ComponentWillLoadEvent{Kind: c.kind.String(), ResourceID: cfg.ResourceID()})

	started := time.Now()
	svc, err := c.createAndInit(ctx, cfg)
	if err != nil {
		c.state = StateFailed
		c.service = nil
		c.params = cfg
		eventbus.Publish(ctx, c.bus, eventbus.ComponentLoadFailed, eventbus.SourceComponent,
			eventbus.ComponentLoadFailedEvent{
				Kind:       c.kind.String(),
				ResourceID: cfg.ResourceID(),
				Reason:     err.Error(),
			})
		return err
	}

	c.state = StateReady
	c.service = svc
	c.params = cfg
	eventbus.Publish(ctx, c.bus, eventbus.ComponentDidLoad, eventbus.SourceComponent,
		eventbus.ComponentDidLoadEvent{
			Kind:       c.kind.String(),
			ResourceID: cfg.ResourceID(),
			Duration:   time.Since(started),
		})
	return nil
}

func (c *Component) createAndInit(ctx context.Context, cfg Config) (Service, error) {
	if c.factory == nil {
		return nil, &CreationError{Kind: c.kind, Err: errors.New("no service factory configured")}
	}

	eventbus.Publish(ctx, c.bus, eventbus.ComponentLoadProgress, eventbus.SourceComponent,
		eventbus.ComponentLoadProgressEvent{Kind: c.kind.String(), Stage: "creating", Progress: 0.1})

	svc, err := c.factory.CreateService(ctx, cfg)
	if err != nil {
		return nil, &CreationError{Kind: c.kind, Err: err}
	}

	eventbus.Publish(ctx, c.bus, eventbus.ComponentLoadProgress, eventbus.SourceComponent,
		eventbus.ComponentLoadProgressEvent{Kind: c.kind.String(), Stage: "initializing", Progress: 0.5})

	if err := svc.Initialize(ctx); err != nil {
		// Best effort: do not leak a half-built service.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Release(releaseCtx)
		return nil, err
	}

	return svc, nil
}

// Cleanup releases the owned service and returns the component to the
// not-initialized state. Legal only from the ready or failed states.
// Errors are reported to the caller but the component still ends up
// not-initialized; cleanup never corrupts state.
func (c *Component) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !canTransition(c.state, StateCleaningUp) {
		return &StateError{Kind: c.kind, From: c.state, Op: "cleanup"}
	}
	return c.releaseLocked(ctx)
}

// releaseLocked walks ready/failed -> cleaningUp -> notInitialized while
// holding the component mutex.
func (c *Component) releaseLocked(ctx context.Context) error {
	c.state = StateCleaningUp
	eventbus.Publish(ctx, c.bus, eventbus.ComponentWillUnload, eventbus.SourceComponent,
		eventbus.ComponentWillUnloadEvent{Kind: c.kind.String()})

	var errs []error
	if c.service != nil {
		if err := c.service.Release(ctx); err != nil {
			errs = append(errs, err)
		}
		if releaser, ok := c.factory.(ServiceReleaser); ok {
			if err := releaser.ReleaseService(ctx, c.service); err != nil {
				errs = append(errs, err)
			}
		}
	}

	c.service = nil
	c.params = nil
	c.state = StateNotInitialized
	eventbus.Publish(ctx, c.bus, eventbus.ComponentDidUnload, eventbus.SourceComponent,
		eventbus.ComponentDidUnloadEvent{Kind: c.kind.String()})

	return errors.Join(errs...)
}
