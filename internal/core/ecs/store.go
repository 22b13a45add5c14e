package ecs

import "slices"

// EntityID identifies an entity. Entities are owned by the caller of the
// render subsystem; the store only keys component data by them.
type EntityID uint64

// Store is a generic typed map store for components.
type Store[T any] struct {
	data map[EntityID]*T
	ids  []EntityID // scratch for ordered iteration
}

func NewStore[T any](capacity int) *Store[T] {
	return &Store[T]{data: make(map[EntityID]*T, capacity)}
}

// Set attaches c to id, replacing any previous component.
func (s *Store[T]) Set(id EntityID, c *T) {
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

// Remove reports whether id had a component.
func (s *Store[T]) Remove(id EntityID) bool {
	_, ok := s.data[id]
	delete(s.data, id)
	return ok
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

func (s *Store[T]) Clear() {
	clear(s.data)
	s.ids = s.ids[:0]
}

// Each visits components in ascending entity order. fn must not add or
// remove components.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	s.ids = s.ids[:0]
	for id := range s.data {
		s.ids = append(s.ids, id)
	}
	slices.Sort(s.ids)
	for _, id := range s.ids {
		fn(id, s.data[id])
	}
}
