package nativebridge

import (
	"context"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// Engine is the native inference engine bridge, implemented outside this
// core (typically over cgo). Each call returns a result code; the handle
// manager translates every non-success code into a typed error.
//
// Instance identifiers are opaque to the SDK. Once an engine call has
// started it is not preemptively cancellable; ctx covers only the waiting
// side.
type Engine interface {
	// CreateInstance creates a native engine instance for the modality.
	CreateInstance(ctx context.Context, modality component.Kind) (uint64, Code)
	// LoadResource binds a model or voice file into an existing instance.
	LoadResource(ctx context.Context, instance uint64, path, resourceID string) Code
	// UnloadResource releases the bound resource, keeping the instance alive.
	UnloadResource(ctx context.Context, instance uint64) Code
	// IsLoaded reports whether the instance currently has a bound resource.
	IsLoaded(ctx context.Context, instance uint64) (bool, Code)
	// DestroyInstance releases the instance itself.
	DestroyInstance(ctx context.Context, instance uint64) Code

	// CreateComposite combines existing per-modality instances into a
	// voice-agent instance. The parts remain owned by the caller.
	CreateComposite(ctx context.Context, parts map[component.Kind]uint64) (uint64, Code)
	// DestroyComposite releases a composite instance without touching the
	// underlying parts.
	DestroyComposite(ctx context.Context, instance uint64) Code
}
