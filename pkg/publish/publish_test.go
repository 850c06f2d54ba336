package publish_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flowgen/pkg/adapters/memory"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/aretw0/flowgen/pkg/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Load(ctx context.Context, name string) (*domain.FlowDefinition, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, name)
}

func flowWithWait(wait int) *domain.FlowDefinition {
	flow := domain.NewFlowDefinition("demo")
	flow.StartAt = "Step"
	flow.AddState("Step", domain.NewState().Set("Type", "Pass").Set("WaitTime", wait).Set("End", true))
	return flow
}

func TestManager_Publish(t *testing.T) {
	mgr := publish.NewManager(memory.NewStore())
	ctx := context.Background()

	diff, err := mgr.Publish(ctx, "demo", flowWithWait(300))
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, []string{"Step"}, diff.Added)

	diff, err = mgr.Publish(ctx, "demo", flowWithWait(300))
	require.NoError(t, err)
	assert.Nil(t, diff)

	diff, err = mgr.Publish(ctx, "demo", flowWithWait(600))
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, map[string]any{"WaitTime": 600}, diff.Changed["Step"])

	loaded, err := mgr.Load(ctx, "demo")
	require.NoError(t, err)
	wait, _ := loaded.State("Step").Get("WaitTime")
	assert.Equal(t, 600, wait)

	_, err = mgr.Publish(ctx, "../escape", flowWithWait(1))
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

// Every concurrent publisher must see a distinct previous version, so
// exactly one of them reports the state as added.
func TestManager_ConcurrentPublish(t *testing.T) {
	mgr := publish.NewManager(SlowStore{memory.NewStore()})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			diff, err := mgr.Publish(ctx, "shared", flowWithWait(i))
			assert.NoError(t, err)
			if diff != nil && len(diff.Added) > 0 {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, added)
}

type recordingLocker struct {
	mu     sync.Mutex
	keys   []string
	fail   bool
	unlock int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return nil, errors.New("busy")
	}
	l.keys = append(l.keys, fmt.Sprintf("%s/%s", key, ttl))
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlock++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	mgr := publish.NewManager(memory.NewStore(), publish.WithLocker(locker), publish.WithLockTTL(time.Second))
	ctx := context.Background()

	_, err := mgr.Publish(ctx, "demo", flowWithWait(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/1s"}, locker.keys)
	assert.Equal(t, 1, locker.unlock)

	locker.fail = true
	_, err = mgr.Publish(ctx, "demo", flowWithWait(2))
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
