package cart

import (
	"context"
	"hash/fnv"
	"sync"
)

// DefaultKeyPrefix is the document name used when no prefix is configured.
const DefaultKeyPrefix = "cart"

const lockStripes = 64

// Manager hands out stores for individual carts sharing one backend.
//
// Stores returned for the same key share a lock, so operations on one cart
// from a single process apply in call order. Writers in different processes
// are not coordinated: the last full-document write wins.
type Manager struct {
	backend Backend
	prefix  string
	tel     *telemetry
	locks   [lockStripes]sync.Mutex
}

// NewManager creates a Manager. A nil backend yields stores that behave as if
// storage were unavailable.
func NewManager(backend Backend, opts ...Option) *Manager {
	o := newOptions(opts)
	return &Manager{
		backend: backend,
		prefix:  o.keyPrefix,
		tel:     newTelemetry(o),
	}
}

// Key returns the document key for a cart session.
func (m *Manager) Key(session string) string {
	return m.prefix + ":" + session
}

// Store returns the store for a cart session.
func (m *Manager) Store(session string) *Store {
	key := m.Key(session)
	return &Store{
		key:     key,
		backend: m.backend,
		mu:      m.lockFor(key),
		tel:     m.tel,
	}
}

// Ping reports whether the backend is usable.
func (m *Manager) Ping(ctx context.Context) error {
	if m.backend == nil {
		return ErrUnavailable
	}
	if p, ok := m.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (m *Manager) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.locks[h.Sum32()%lockStripes]
}
