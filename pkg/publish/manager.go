package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/aretw0/flowgen/pkg/naming"
	"github.com/aretw0/flowgen/pkg/ports"
)

// defaultLockTTL bounds how long a crashed replica can block a name.
const defaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to stored flows, ensuring safe concurrent updates.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.FlowStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given flow store.
func NewManager(store ports.FlowStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(name) after unlocking.
func (m *Manager) acquire(name string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		entry = &lockEntry{}
		m.locks[name] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[name]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, name)
	}
}

// Publish stores flow under name and returns its delta to the version it
// replaced (every state is added for a new name). A nil diff means the
// stored flow was already equivalent.
func (m *Manager) Publish(ctx context.Context, name string, flow *domain.FlowDefinition) (*domain.FlowDiff, error) {
	if err := naming.ValidateFlowName(name); err != nil {
		return nil, err
	}

	var diff *domain.FlowDiff
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		prev, err := m.store.Load(ctx, name)
		if err != nil && !errors.Is(err, domain.ErrFlowNotFound) {
			return fmt.Errorf("failed to load previous version: %w", err)
		}
		if err := m.store.Save(ctx, name, flow); err != nil {
			return err
		}
		diff = domain.Diff(prev, flow)
		return nil
	})
	return diff, err
}

// Load retrieves a stored flow.
func (m *Manager) Load(ctx context.Context, name string) (*domain.FlowDefinition, error) {
	var flow *domain.FlowDefinition
	err := m.WithLock(ctx, name, func(ctx context.Context) error {
		var err error
		flow, err = m.store.Load(ctx, name)
		return err
	})
	return flow, err
}

// Delete removes a stored flow.
func (m *Manager) Delete(ctx context.Context, name string) error {
	return m.WithLock(ctx, name, func(ctx context.Context) error {
		return m.store.Delete(ctx, name)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying flow store.
func (m *Manager) Store() ports.FlowStore {
	return m.store
}

// WithLock executes a function while holding the lock for the name.
func (m *Manager) WithLock(ctx context.Context, name string, fn func(context.Context) error) error {
	entry := m.acquire(name)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(name)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, name, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"flow", name,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
