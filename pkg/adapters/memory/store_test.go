package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/flowgen/pkg/adapters/memory"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunFlowStoreContract(t, store)
}

func TestMemoryStore_RejectsBadNames(t *testing.T) {
	err := memory.NewStore().Save(context.Background(), "../x", domain.NewFlowDefinition(""))
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}
