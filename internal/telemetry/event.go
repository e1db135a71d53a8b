// Package telemetry buffers analytics events and ships them to a remote
// sink in batches, with best-effort local spooling and bounded retries.
package telemetry

import (
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/edgekit-ai/edgekit/internal/version"
)

// Event is one analytics record. IDs are assigned at enqueue time.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NewEvent builds an event with a fresh UUID and the current time.
func NewEvent(name string, properties map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		Timestamp:  time.Now().UTC(),
		Properties: properties,
	}
}

// Batch is the unit of delivery to a sink: the oldest buffered events
// enriched with device metadata.
type Batch struct {
	ID       string            `json:"id"`
	Events   []Event           `json:"events"`
	Metadata map[string]string `json:"metadata,omitempty"`
	SentAt   time.Time         `json:"sentAt"`
}

// MetadataProvider supplies device metadata attached to every batch.
type MetadataProvider interface {
	Metadata() map[string]string
}

// DeviceMetadata is the default provider: platform and SDK version.
type DeviceMetadata struct{}

func (DeviceMetadata) Metadata() map[string]string {
	return map[string]string{
		"platform":    runtime.GOOS,
		"arch":        runtime.GOARCH,
		"sdk_version": version.String(),
	}
}
