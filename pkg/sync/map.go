package sync

import (
	"sync"

	"golang.org/x/exp/maps"
)

// Map is like a Go map[K]V but is safe for concurrent use by multiple goroutines.
//
// Methods that mutate the map hold the write lock for the whole check-and-modify
// step, so LoadOrStore and LoadAndDelete are atomic.
type Map[K comparable, V any] struct {
	mutex sync.RWMutex
	data  map[K]V
}

// NewMap creates map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		data: make(map[K]V),
	}
}

// Store sets the value for a key.
func (m *Map[K, V]) Store(key K, value V) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data[key] = value
}

// LoadOrStore returns the existing value for the key if present.
// Otherwise, it stores and returns the given value. The loaded result is true if the value was loaded, false if stored.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	return m.LoadOrStoreWithFunc(key, func() V { return value })
}

// LoadOrStoreWithFunc is like LoadOrStore but creates the value only when the key is absent.
// createFunc is called under the write lock and must not access the map.
func (m *Map[K, V]) LoadOrStoreWithFunc(key K, createFunc func() V) (actual V, loaded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if v, ok := m.data[key]; ok {
		return v, true
	}
	v := createFunc()
	m.data[key] = v
	return v, false
}

// LoadAndDelete deletes the value for a key, returning the previous value if any.
// Of concurrent callers at most one observes loaded == true for the same stored value.
func (m *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	value, loaded = m.data[key]
	if loaded {
		delete(m.data, key)
	}
	return value, loaded
}

// Delete deletes the value for a key.
func (m *Map[K, V]) Delete(key K) (deleted bool) {
	_, deleted = m.LoadAndDelete(key)
	return deleted
}

// Range calls f sequentially for each key and value present in a snapshot of the map.
// If f returns false, range stops the iteration. f may modify the map.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	for key, value := range m.CopyData() {
		if !f(key, value) {
			return
		}
	}
}

// CopyData returns a shallow copy of the stored data.
func (m *Map[K, V]) CopyData() map[K]V {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return maps.Clone(m.data)
}

// LoadAndDeleteAll extracts internal map data and replaces it with an empty map.
func (m *Map[K, V]) LoadAndDeleteAll() map[K]V {
	m.mutex.Lock()
	data := m.data
	m.data = make(map[K]V)
	m.mutex.Unlock()
	return data
}

// Length returns number of stored values.
func (m *Map[K, V]) Length() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}
