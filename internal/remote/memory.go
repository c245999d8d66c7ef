package remote

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/talkincode/smartstock/internal/domain"
)

// MemoryStore is an in-process Store used by tests and local development.
// Failures can be injected per operation to exercise the sync error paths.
type MemoryStore struct {
	mu        sync.Mutex
	docs      map[string]domain.Document
	listeners map[int]ChangeFunc
	nextID    int

	// failure injection: when set, the matching operation fails
	FailPut     map[string]error // keyed by record id
	FailAllPuts error
	FailDel     map[string]error
	FailFetch   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		listeners: make(map[int]ChangeFunc),
		FailPut:   make(map[string]error),
		FailDel:   make(map[string]error),
	}
}

func (m *MemoryStore) Put(ctx context.Context, id string, doc domain.Document) error {
	m.mu.Lock()
	if err := m.FailAllPuts; err != nil {
		m.mu.Unlock()
		return errors.Wrapf(err, "put document %s", id)
	}
	if err := m.FailPut[id]; err != nil {
		m.mu.Unlock()
		return errors.Wrapf(err, "put document %s", id)
	}
	m.docs[id] = doc
	m.mu.Unlock()
	m.broadcast()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if err := m.FailDel[id]; err != nil {
		m.mu.Unlock()
		return errors.Wrapf(err, "delete document %s", id)
	}
	delete(m.docs, id)
	m.mu.Unlock()
	m.broadcast()
	return nil
}

func (m *MemoryStore) FetchAll(ctx context.Context) (map[string]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFetch != nil {
		return nil, m.FailFetch
	}
	return m.snapshotLocked(), nil
}

func (m *MemoryStore) SubscribeChanges(ctx context.Context, fn ChangeFunc) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}, nil
}

// Seed loads documents without notifying listeners, for test arrangement.
func (m *MemoryStore) Seed(docs map[string]domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, doc := range docs {
		m.docs[id] = doc
	}
}

// Docs returns a copy of the current document set.
func (m *MemoryStore) Docs() map[string]domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *MemoryStore) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func (m *MemoryStore) snapshotLocked() map[string]domain.Document {
	out := make(map[string]domain.Document, len(m.docs))
	for id, doc := range m.docs {
		out[id] = doc
	}
	return out
}

func (m *MemoryStore) broadcast() {
	m.mu.Lock()
	snapshot := m.snapshotLocked()
	fns := make([]ChangeFunc, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}
