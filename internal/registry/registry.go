// Package registry stores pluggable backend adapters per modality and
// selects the best adapter for a given model descriptor.
package registry

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// ModelDescriptor identifies a model and its framework compatibility.
type ModelDescriptor struct {
	ID                   string
	Name                 string
	PreferredFramework   string
	CompatibleFrameworks []string // ordered by preference
	SizeBytes            int64
}

// Adapter is a pluggable backend factory for one or more modalities.
// Implementations are supplied by backend packages outside this core.
type Adapter interface {
	component.ServiceFactory

	// Name uniquely identifies the adapter within a modality.
	Name() string
	// Framework names the inference framework the adapter drives.
	Framework() string
	// Modalities lists the component kinds the adapter can build services for.
	Modalities() []component.Kind
	// CanHandle reports whether the adapter can serve the given model.
	CanHandle(model ModelDescriptor) bool
}

// DefaultPriority is assigned to adapters registered without an explicit one.
const DefaultPriority = 100

type entry struct {
	adapter      Adapter
	priority     int
	registeredAt time.Time
}

// Registry keeps adapters sorted per modality by (priority desc,
// registration time asc); ties resolve to the earliest registration.
type Registry struct {
	logger *log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[component.Kind][]entry
}

// Option customises registry construction.
type Option func(*Registry)

// WithLogger overrides the registry logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:  log.Default(),
		now:     time.Now,
		entries: make(map[component.Kind][]entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterOption customises a single registration.
type RegisterOption func(*int)

// WithPriority sets the adapter priority (default 100, higher wins).
func WithPriority(priority int) RegisterOption {
	return func(p *int) {
		*p = priority
	}
}

// Register inserts the adapter into every modality it supports, replacing a
// previous registration with the same adapter name, then re-sorts.
func (r *Registry) Register(adapter Adapter, opts ...RegisterOption) {
	if adapter == nil {
		return
	}
	priority := DefaultPriority
	for _, opt := range opts {
		opt(&priority)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	registeredAt := r.now()
	for _, kind := range adapter.Modalities() {
		list := r.entries[kind]
		replaced := false
		for i := range list {
			if list[i].adapter.Name() == adapter.Name() {
				list[i] = entry{adapter: adapter, priority: priority, registeredAt: registeredAt}
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, entry{adapter: adapter, priority: priority, registeredAt: registeredAt})
		}
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].priority != list[j].priority {
				return list[i].priority > list[j].priority
			}
			return list[i].registeredAt.Before(list[j].registeredAt)
		})
		r.entries[kind] = list
		r.logger.Printf("[registry] registered %s adapter %q (framework %s, priority %d)",
			kind, adapter.Name(), adapter.Framework(), priority)
	}
}

// FindAdapters returns all adapters for the modality that report they can
// handle the model, in priority order.
func (r *Registry) FindAdapters(model ModelDescriptor, modality component.Kind) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Adapter
	for _, e := range r.entries[modality] {
		if e.adapter.CanHandle(model) {
			out = append(out, e.adapter)
		}
	}
	return out
}

// FindBestAdapter resolves the single best adapter for the model:
//  1. a capable adapter matching the model's preferred framework,
//  2. the first capable match in the model's ordered compatible frameworks,
//  3. the highest-priority capable adapter.
//
// The second return is false when no registered adapter can handle the
// model; callers decide their own fallback.
func (r *Registry) FindBestAdapter(model ModelDescriptor, modality component.Kind) (Adapter, bool) {
	capable := r.FindAdapters(model, modality)
	if len(capable) == 0 {
		return nil, false
	}

	if model.PreferredFramework != "" {
		for _, a := range capable {
			if a.Framework() == model.PreferredFramework {
				return a, true
			}
		}
	}

	for _, framework := range model.CompatibleFrameworks {
		for _, a := range capable {
			if a.Framework() == framework {
				return a, true
			}
		}
	}

	return capable[0], true
}

// Adapters returns the registered adapters for a modality in priority order,
// regardless of model compatibility.
func (r *Registry) Adapters(modality component.Kind) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.entries[modality]))
	for _, e := range r.entries[modality] {
		out = append(out, e.adapter)
	}
	return out
}
