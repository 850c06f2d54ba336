package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractFlow(comment string) *domain.FlowDefinition {
	flow := domain.NewFlowDefinition(comment)
	flow.StartAt = "Second"
	flow.AddState("Second", domain.NewState().Set(domain.FieldType, "Pass").Set(domain.FieldNext, "First"))
	flow.AddState("First", domain.NewState().
		Set(domain.FieldType, "Pass").
		Set(domain.FieldWaitTime, 300).
		Set(domain.FieldEnd, true))
	return flow
}

// RunFlowStoreContract runs a suite of tests to verify that a FlowStore implementation
// adheres to the defined interface contract.
func RunFlowStoreContract(t *testing.T, store FlowStore) {
	ctx := context.Background()
	name := "contract-flow-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		flow := contractFlow("contract")
		require.NoError(t, store.Save(ctx, name, flow), "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "contract", loaded.Comment)
		assert.Equal(t, "Second", loaded.StartAt)
		// State order must survive persistence.
		assert.Equal(t, []string{"Second", "First"}, loaded.Names())
		assert.Equal(t, "First", loaded.State("Second").Next())
		assert.True(t, loaded.State("First").End())
		// Numbers may come back as float64 after JSON persistence.
		v, ok := loaded.State("First").Get(domain.FieldWaitTime)
		require.True(t, ok)
		assert.EqualValues(t, 300, v)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractFlow("v1")))
		require.NoError(t, store.Save(ctx, name, contractFlow("v2")))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, "v2", loaded.Comment)
	})

	t.Run("Load Isolated From Caller", func(t *testing.T) {
		flow := contractFlow("isolated")
		require.NoError(t, store.Save(ctx, name, flow))
		flow.State("First").Set(domain.FieldComment, "mutated")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Empty(t, loaded.State("First").Comment())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, contractFlow("")))

		require.NoError(t, store.Delete(ctx, name), "Delete should not return error")

		_, err := store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound, "Load after Delete should return ErrFlowNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		require.NoError(t, store.Save(ctx, id2, contractFlow("")))
		require.NoError(t, store.Save(ctx, id1, contractFlow("")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
		assert.IsNonDecreasing(t, names)
	})
}
