package state

import (
	"maps"
	"sync"

	goapstate "github.com/gxo-labs/goap/pkg/goap/v1/state"
)

// MemoryStateStore is the default plan value store: a map guarded by an
// RWMutex. Reads return copies of nested maps and lists, so callers can never
// mutate stored values through a returned reference.
type MemoryStateStore struct {
	data map[string]interface{}
	mu   sync.RWMutex
}

// NewMemoryStateStore creates an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		data: make(map[string]interface{}),
	}
}

// Get returns a copy of the value stored under key.
func (s *MemoryStateStore) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, exists := s.data[key]
	if !exists {
		return nil, false
	}
	return copyValue(val), true
}

// GetAll returns a deep copy of every stored value.
func (s *MemoryStateStore) GetAll() map[string]interface{} {
	s.mu.RLock()
	snapshot := maps.Clone(s.data)
	s.mu.RUnlock()

	out := make(map[string]interface{}, len(snapshot))
	for k, v := range snapshot {
		out[k] = copyValue(v)
	}
	return out
}

// Set stores value under key. Nested maps and lists are stored by
// reference and copied on read.
func (s *MemoryStateStore) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Delete removes key, or returns ErrKeyNotFound.
func (s *MemoryStateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists {
		return goapstate.ErrKeyNotFound
	}
	delete(s.data, key)
	return nil
}

// Load replaces the content with a shallow copy of data.
func (s *MemoryStateStore) Load(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = maps.Clone(data)
	if s.data == nil {
		s.data = make(map[string]interface{})
	}
	return nil
}

// Close is a no-op.
func (s *MemoryStateStore) Close() error {
	return nil
}

// copyValue deep-copies the container types produced by yaml.v3 and by
// actions storing plan values. Scalars are returned as is.
func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

var _ goapstate.Store = (*MemoryStateStore)(nil)
