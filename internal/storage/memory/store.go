// Package memory stores objects in-memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/ltd-dasher/internal/storage"
)

// Store keeps uploaded objects keyed by bucket/key, in upload order.
type Store struct {
	mu      sync.RWMutex
	objects map[string]storage.Object
	order   []string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]storage.Object)}
}

// Upload stores a copy of the object.
func (s *Store) Upload(_ context.Context, obj storage.Object) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	obj.Body = append([]byte(nil), obj.Body...)
	if obj.Metadata != nil {
		md := make(map[string]string, len(obj.Metadata))
		for k, v := range obj.Metadata {
			md[k] = v
		}
		obj.Metadata = md
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := obj.Bucket + "/" + obj.Key
	if _, exists := s.objects[id]; !exists {
		s.order = append(s.order, id)
	}
	s.objects[id] = obj
	return nil
}

// Get returns the stored object for bucket/key.
func (s *Store) Get(bucket, key string) (storage.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[bucket+"/"+key]
	return obj, ok
}

// Keys lists bucket/key identifiers in first-upload order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
