package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tag struct{ name string }

func TestStoreSetGetRemove(t *testing.T) {
	s := NewStore[tag](4)
	s.Set(7, &tag{"a"})
	s.Set(7, &tag{"b"})
	require.Equal(t, 1, s.Len())

	c, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, "b", c.name)

	assert.True(t, s.Remove(7))
	assert.False(t, s.Remove(7))
	assert.False(t, s.Has(7))
}

func TestStoreEachIsOrdered(t *testing.T) {
	s := NewStore[tag](8)
	for _, id := range []EntityID{42, 3, 19, 1, 8} {
		s.Set(id, &tag{})
	}
	var seen []EntityID
	s.Each(func(id EntityID, _ *tag) { seen = append(seen, id) })
	assert.Equal(t, []EntityID{1, 3, 8, 19, 42}, seen)

	s.Clear()
	assert.Equal(t, 0, s.Len())
}
