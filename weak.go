package weave

import (
	"reflect"
	"sync"
	"unsafe"
	"weak"
)

// weakRef is a weak reference to a pointer instance of any type. The pointer
// type is remembered so Value can rebuild a correctly typed pointer.
type weakRef struct {
	ptr weak.Pointer[byte]
	typ reflect.Type
}

// newWeakRef creates a weak reference to instance, which must be a non-nil
// pointer to a value with a non-zero size. Zero-sized values share a single
// address and are never collected, so they cannot be weakly held.
func newWeakRef(key Key, instance any) (weakRef, error) {
	v := reflect.ValueOf(instance)
	if !v.IsValid() || v.Kind() != reflect.Pointer {
		return weakRef{}, WeakReferenceError{Key: key, Type: reflect.TypeOf(instance), Reason: "instance must be a pointer"}
	}
	if v.IsNil() {
		return weakRef{}, WeakReferenceError{Key: key, Type: v.Type(), Reason: "instance must not be nil"}
	}
	if v.Type().Elem().Size() == 0 {
		return weakRef{}, WeakReferenceError{Key: key, Type: v.Type(), Reason: "zero-sized values cannot be weakly referenced"}
	}

	return weakRef{
		ptr: weak.Make((*byte)(v.UnsafePointer())),
		typ: v.Type(),
	}, nil
}

// value returns the referenced instance if it is still alive.
func (r weakRef) value() (any, bool) {
	p := r.ptr.Value()
	if p == nil {
		return nil, false
	}
	return reflect.NewAt(r.typ.Elem(), unsafe.Pointer(p)).Interface(), true
}

// weakStore holds weak singletons. Entries whose referent was collected are
// dropped lazily on lookup.
type weakStore struct {
	refs map[Key]weakRef
	mu   sync.RWMutex
}

// newWeakStore creates a new weak store
func newWeakStore() *weakStore {
	return &weakStore{
		refs: make(map[Key]weakRef),
	}
}

// get returns the live instance stored under key.
func (s *weakStore) get(key Key) (any, bool) {
	s.mu.RLock()
	ref, ok := s.refs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	instance, alive := ref.value()
	if !alive {
		s.mu.Lock()
		if current, ok := s.refs[key]; ok && current == ref {
			delete(s.refs, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return instance, true
}

// set stores or refreshes the weak reference for key.
func (s *weakStore) set(key Key, ref weakRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[key] = ref
}

// clear drops every weak reference and returns how many were dropped
func (s *weakStore) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.refs)
	s.refs = make(map[Key]weakRef)
	return n
}

// len returns the number of stored references, dead ones included
func (s *weakStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// live returns the number of references whose referent is still alive
func (s *weakStore) live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ref := range s.refs {
		if _, ok := ref.value(); ok {
			n++
		}
	}
	return n
}
