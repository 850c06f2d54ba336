package ports

import (
	"context"

	"github.com/aretw0/flowgen/pkg/domain"
)

// FlowStore defines the interface for persisting compiled flow definitions
// under a name, so they can be served or inspected later.
type FlowStore interface {
	// Save persists the flow under name, replacing any previous version.
	Save(ctx context.Context, name string, flow *domain.FlowDefinition) error

	// Load retrieves the flow stored under name.
	// Returns domain.ErrFlowNotFound if it does not exist.
	Load(ctx context.Context, name string) (*domain.FlowDefinition, error)

	// Delete removes the flow stored under name.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored flows, sorted.
	List(ctx context.Context) ([]string, error)
}
