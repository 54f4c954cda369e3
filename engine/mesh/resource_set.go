package mesh

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// ResourceSet owns GPU mirrors keyed by their logical owner. Every frame the owners still in use
// acquire their mirror; Sweep then destroys the mirrors whose owner was not seen since the last sweep.
type ResourceSet[K comparable, V any] struct {
	mu      *sync.Mutex
	items   map[K]V
	seen    map[K]struct{}
	destroy func(V)
}

// NewResourceSet creates an empty set.
//
// Parameters:
//   - destroy: releases the backend resources of one mirror
//
// Returns:
//   - *ResourceSet[K, V]: the set
func NewResourceSet[K comparable, V any](destroy func(V)) *ResourceSet[K, V] {
	return &ResourceSet[K, V]{
		mu:      &sync.Mutex{},
		items:   map[K]V{},
		seen:    map[K]struct{}{},
		destroy: destroy,
	}
}

// Acquire returns the mirror of k, creating it on first use, and marks k as live for this frame.
//
// Parameters:
//   - k: the logical owner
//   - create: builds the mirror when none exists
//
// Returns:
//   - V: the mirror
//   - error: the error of create, in which case nothing is stored
func (r *ResourceSet[K, V]) Acquire(k K, create func() (V, error)) (V, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.items[k]; ok {
		r.seen[k] = struct{}{}
		return v, nil
	}
	v, err := create()
	if err != nil {
		return v, err
	}
	r.items[k] = v
	r.seen[k] = struct{}{}
	return v, nil
}

// Get returns the mirror of k without marking it.
func (r *ResourceSet[K, V]) Get(k K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[k]
	return v, ok
}

// Sweep destroys the mirrors not acquired since the previous sweep.
//
// Returns:
//   - int: the number of mirrors destroyed
func (r *ResourceSet[K, V]) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, v := range r.items {
		if _, ok := r.seen[k]; ok {
			continue
		}
		r.destroy(v)
		delete(r.items, k)
		n++
	}
	clear(r.seen)
	return n
}

// Clear destroys every mirror. Used when the backend is torn down.
func (r *ResourceSet[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.items {
		r.destroy(v)
	}
	clear(r.items)
	clear(r.seen)
}

// Len returns the number of live mirrors.
func (r *ResourceSet[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// NewGPUMeshSet returns a set of static mesh mirrors destroyed on the given backend.
func NewGPUMeshSet(b renderer.Backend) *ResourceSet[*Data, *GPUMesh] {
	return NewResourceSet[*Data, *GPUMesh](func(g *GPUMesh) { g.Destroy(b) })
}

// AcquireGPUMesh returns the mirror of d, uploading it on first use.
func AcquireGPUMesh(set *ResourceSet[*Data, *GPUMesh], b renderer.Backend, d *Data) (*GPUMesh, error) {
	return set.Acquire(d, func() (*GPUMesh, error) { return CreateStatic(b, d) })
}
