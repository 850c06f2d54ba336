package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/naming"
)

// Store implements ports.FlowStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.FlowDefinition
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.FlowDefinition),
	}
}

// Save persists a deep copy of the flow.
func (s *Store) Save(ctx context.Context, name string, flow *domain.FlowDefinition) error {
	if err := naming.ValidateFlowName(name); err != nil {
		return err
	}
	copied := flow.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = copied
	return nil
}

// Load returns a copy so the caller can't mutate the stored flow.
func (s *Store) Load(ctx context.Context, name string) (*domain.FlowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.data[name]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return flow.Clone(), nil
}

// Delete removes the flow.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored flow names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
