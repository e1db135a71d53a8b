package registry

import (
	"context"

	"github.com/edgekit-ai/edgekit/internal/component"
)

// MockAdapter is a configurable Adapter test double.
type MockAdapter struct {
	AdapterName string
	FW          string
	Kinds       []component.Kind
	Handles     func(model ModelDescriptor) bool
	Factory     component.ServiceFactory
}

func (m *MockAdapter) Name() string { return m.AdapterName }

func (m *MockAdapter) Framework() string { return m.FW }

func (m *MockAdapter) Modalities() []component.Kind { return m.Kinds }

func (m *MockAdapter) CanHandle(model ModelDescriptor) bool {
	if m.Handles == nil {
		return true
	}
	return m.Handles(model)
}

func (m *MockAdapter) CreateService(ctx context.Context, cfg component.Config) (component.Service, error) {
	if m.Factory != nil {
		return m.Factory.CreateService(ctx, cfg)
	}
	return &component.MockService{}, nil
}
