package ports_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
)

// MockStore is an in-memory implementation of FlowStore that serializes
// flows, like a durable backend would.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string][]byte)}
}

func (m *MockStore) Save(ctx context.Context, name string, flow *domain.FlowDefinition) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = data
	return nil
}

func (m *MockStore) Load(ctx context.Context, name string) (*domain.FlowDefinition, error) {
	m.mu.Lock()
	data, ok := m.data[name]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	var flow domain.FlowDefinition
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (m *MockStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.data))
	for k := range m.data {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func TestMockStore_Contract(t *testing.T) {
	ports.RunFlowStoreContract(t, NewMockStore())
}
