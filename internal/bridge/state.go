package bridge

import (
	"sync"

	"github.com/nerrad567/brager-bridge/internal/bragerone"
)

// Store is the in-memory raw parameter state, keyed by device id and
// canonical "pool.chanidx" address. The prime snapshot seeds it and the
// event stream keeps it current.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	mu     sync.RWMutex
	values map[string]map[string]any
}

// NewStore creates an empty parameter store.
func NewStore() *Store {
	return &Store{values: make(map[string]map[string]any)}
}

// IngestSnapshot loads a prime snapshot into the store. Existing values
// for the same addresses are overwritten.
func (s *Store) IngestSnapshot(snapshot bragerone.PrimeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for devID, pools := range snapshot {
		device := s.values[devID]
		if device == nil {
			device = make(map[string]any)
			s.values[devID] = device
		}
		for pool, params := range pools {
			for parameter, value := range params {
				device[pool+"."+parameter] = value
			}
		}
	}
}

// Apply stores one live update and reports whether the value changed.
func (s *Store) Apply(update bragerone.ParamUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	device := s.values[update.DevID]
	if device == nil {
		device = make(map[string]any)
		s.values[update.DevID] = device
	}
	key := update.AddressKey()
	previous, existed := device[key]
	device[key] = update.Value
	return !existed || !scalarEqual(previous, update.Value)
}

// scalarEqual compares two raw values without panicking on the odd
// non-comparable payload a decoder might produce.
func scalarEqual(a, b any) bool {
	switch a.(type) {
	case nil, bool, string, float64, int, int64:
		return a == b
	}
	return false
}

// Value returns the raw value at a device address, if known.
func (s *Store) Value(devID, addressKey string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.values[devID]
	if !ok {
		return nil, false
	}
	value, ok := device[addressKey]
	return value, ok
}

// Len returns the number of known parameter values across all devices.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, device := range s.values {
		total += len(device)
	}
	return total
}
