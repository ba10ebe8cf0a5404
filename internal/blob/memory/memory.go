// Package memory is an in-process blob gateway. It backs tests and dry runs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/agentstation/speakerpool/pkg/blob"
	"github.com/agentstation/speakerpool/pkg/errors"
)

// Store keeps objects in a map. It implements blob.Gateway and blob.AssetGateway;
// both addressing schemes reach the same objects.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	puts    []string
	failGet map[string]error
	failPut map[string]error
}

var (
	_ blob.Gateway      = (*Store)(nil)
	_ blob.AssetGateway = (*Store)(nil)
)

// New creates a store seeded with objects.
func New(seed map[string][]byte) *Store {
	s := &Store{
		objects: make(map[string][]byte, len(seed)),
		failGet: make(map[string]error),
		failPut: make(map[string]error),
	}
	for k, v := range seed {
		s.objects[k] = slices.Clone(v)
	}
	return s
}

// Get returns a copy of the object.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failGet[key]; err != nil {
		return nil, err
	}
	v, ok := s.objects[key]
	if !ok {
		return nil, errors.NewNotFoundError("object", key)
	}
	return slices.Clone(v), nil
}

// Put stores a copy of body.
func (s *Store) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failPut[key]; err != nil {
		return err
	}
	s.objects[key] = slices.Clone(body)
	s.puts = append(s.puts, key)
	return nil
}

// List returns the objects under prefix in lexicographic order.
func (s *Store) List(_ context.Context, prefix string) ([]blob.Object, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	slices.Sort(keys)
	out := make([]blob.Object, len(keys))
	for i, k := range keys {
		out[i] = blob.Object{Name: k}
	}
	return out, nil
}

// GetAsset implements blob.AssetGateway.
func (s *Store) GetAsset(ctx context.Context, key string) ([]byte, error) {
	return s.Get(ctx, key)
}

// PutAsset implements blob.AssetGateway.
func (s *Store) PutAsset(ctx context.Context, key string, body []byte) error {
	return s.Put(ctx, key, body)
}

// FailGet makes Get of key return err. A nil err clears the failure.
func (s *Store) FailGet(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failGet, key)
		return
	}
	s.failGet[key] = err
}

// FailPut makes Put of key return err. A nil err clears the failure.
func (s *Store) FailPut(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failPut, key)
		return
	}
	s.failPut[key] = err
}

// Puts returns the keys written so far, in order.
func (s *Store) Puts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.puts)
}

// Snapshot returns a copy of every object.
func (s *Store) Snapshot() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.objects))
	for k, v := range s.objects {
		out[k] = slices.Clone(v)
	}
	return out
}
