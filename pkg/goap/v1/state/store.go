package state

import (
	"errors"
)

// ErrKeyNotFound indicates that a requested key does not exist in the store.
var ErrKeyNotFound = errors.New("key not found in plan value store")

// StoreReader is the read side of an agent's plan value scratch space.
// Implementations must be safe for concurrent use.
type StoreReader interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (interface{}, bool)
	// GetAll returns a copy of all stored values.
	GetAll() map[string]interface{}
}

// Store holds "plan values": data that actions compute during planning
// (e.g. a chosen target) and read back when the plan is executed. Every agent
// owns one. Implementations must be safe for concurrent use because planning
// and execution may run on different goroutines.
type Store interface {
	StoreReader

	// Set stores value under key, overwriting any previous value.
	Set(key string, value interface{}) error
	// Delete removes key. It returns ErrKeyNotFound if the key is absent.
	Delete(key string) error
	// Load replaces the whole content with data.
	Load(data map[string]interface{}) error
	// Close releases any resources held by the store.
	Close() error
}
