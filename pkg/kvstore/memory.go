package kvstore

import (
	"context"
	"maps"
	"strconv"
	"sync"
)

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store using in-memory maps guarded by a single mutex.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]string
	zsets   map[string]map[string]float64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]map[string]string),
		zsets:   make(map[string]map[string]float64),
	}
}

func (m *MemoryStore) GetObjectField(_ context.Context, key, field string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.objects[key][field]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) GetObject(_ context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.objects[key]))
	maps.Copy(result, m.objects[key])
	return result, nil
}

func (m *MemoryStore) SetObjectField(_ context.Context, key, field, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.object(key)[field] = value
	return nil
}

func (m *MemoryStore) SetObject(_ context.Context, key string, fields map[string]string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if len(fields) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.object(key), fields)
	return nil
}

func (m *MemoryStore) DeleteObjectField(_ context.Context, key, field string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteField(key, field)
	return nil
}

func (m *MemoryStore) PopObjectField(_ context.Context, key, field string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.objects[key][field]
	if !ok {
		return "", ErrNotFound
	}
	m.deleteField(key, field)
	return value, nil
}

func (m *MemoryStore) IncrObjectField(_ context.Context, key, field string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obj := m.object(key)
	var current int64
	if raw, ok := obj[field]; ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		current = n
	}
	current++
	obj[field] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *MemoryStore) SortedSetAdd(_ context.Context, set string, score float64, member string) error {
	if set == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	z, ok := m.zsets[set]
	if !ok {
		z = make(map[string]float64)
		m.zsets[set] = z
	}
	z[member] = score
	return nil
}

func (m *MemoryStore) SortedSetRemove(_ context.Context, set, member string) error {
	if set == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if z, ok := m.zsets[set]; ok {
		delete(z, member)
		if len(z) == 0 {
			delete(m.zsets, set)
		}
	}
	return nil
}

func (m *MemoryStore) IsSortedSetMember(_ context.Context, set, member string) (bool, error) {
	if set == "" {
		return false, ErrEmptyKey
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.zsets[set][member]
	return ok, nil
}

// Healthcheck always succeeds for the in-memory store.
func (m *MemoryStore) Healthcheck(context.Context) error {
	return nil
}

// object returns the field map for key, creating it if needed. Caller holds the write lock.
func (m *MemoryStore) object(key string) map[string]string {
	obj, ok := m.objects[key]
	if !ok {
		obj = make(map[string]string)
		m.objects[key] = obj
	}
	return obj
}

// deleteField drops a field and the object once it is empty. Caller holds the write lock.
func (m *MemoryStore) deleteField(key, field string) {
	obj, ok := m.objects[key]
	if !ok {
		return
	}
	delete(obj, field)
	if len(obj) == 0 {
		delete(m.objects, key)
	}
}
