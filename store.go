package weave

import (
	"reflect"
	"sync"
)

// instanceStore provides thread-safe storage for strongly held instances.
// It remembers insertion order so singletons can be disposed in reverse.
type instanceStore struct {
	instances map[Key]any
	order     []Key
	mu        sync.RWMutex
}

// newInstanceStore creates a new instance store
func newInstanceStore() *instanceStore {
	return &instanceStore{
		instances: make(map[Key]any),
	}
}

// get retrieves an instance from the store
func (s *instanceStore) get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.instances[key]
	return instance, ok
}

// setIfAbsent stores instance unless the key is already populated. It returns
// the instance held under key afterwards and whether instance was stored.
func (s *instanceStore) setIfAbsent(key Key, instance any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, exists := s.instances[key]; exists {
		return existing, false
	}
	s.instances[key] = instance
	s.order = append(s.order, key)
	return instance, true
}

// clear removes all instances and returns how many were dropped
func (s *instanceStore) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.instances)
	s.instances = make(map[Key]any)
	s.order = nil
	return n
}

// len returns the number of stored instances
func (s *instanceStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// reversed returns the stored instances, most recently inserted first.
func (s *instanceStore) reversed() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]any, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.instances[s.order[i]])
	}
	return out
}

// sameInstance reports whether a and b denote the same object. Reference
// kinds compare by address; other values compare with == when comparable.
func sameInstance(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.UnsafePointer() == vb.UnsafePointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}

	// Comparable types may still hold incomparable dynamic values.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()

	return va.Type().Comparable() && a == b
}
