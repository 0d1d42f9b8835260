package reconcile

import (
	"sort"
	"sync"
)

// Instances maps integer instance indices to per-instance state. Reading a
// missing index constructs its default value, which is stored so later
// updates see it.
type Instances[T any] struct {
	mu      sync.Mutex
	items   map[int]T
	newItem func(index int) T
}

// NewInstances returns an empty map. newItem builds the default state for an
// index; nil selects the zero value of T.
func NewInstances[T any](newItem func(index int) T) *Instances[T] {
	if newItem == nil {
		newItem = func(int) T { var zero T; return zero }
	}
	return &Instances[T]{items: map[int]T{}, newItem: newItem}
}

// Get returns the state at index, constructing it on first access.
func (m *Instances[T]) Get(index int) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(index)
}

func (m *Instances[T]) getLocked(index int) T {
	v, ok := m.items[index]
	if !ok {
		v = m.newItem(index)
		m.items[index] = v
	}
	return v
}

// Set replaces the state at index.
func (m *Instances[T]) Set(index int, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[index] = v
}

// Update applies fn to the state at index (constructing it if missing) and
// stores the result.
func (m *Instances[T]) Update(index int, fn func(T) T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := fn(m.getLocked(index))
	m.items[index] = v
	return v
}

// Has reports whether index has been materialized.
func (m *Instances[T]) Has(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[index]
	return ok
}

// Delete removes the state at index.
func (m *Instances[T]) Delete(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, index)
}

// Indices returns the materialized indices in ascending order.
func (m *Instances[T]) Indices() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, 0, len(m.items))
	for i := range m.items {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of materialized instances.
func (m *Instances[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
