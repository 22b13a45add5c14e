package handle

// Arena is a generational store of records of one kind. The record slice is
// indexed by slot; freed slots are zeroed so nothing stale stays reachable.
type Arena[K any, R any] struct {
	alloc   *Allocator
	records []R
}

func NewArena[K any, R any]() *Arena[K, R] {
	return &Arena[K, R]{
		alloc:   NewAllocator(),
		records: make([]R, 0, 64),
	}
}

// Insert stores r and returns the handle that now refers to it.
func (a *Arena[K, R]) Insert(r R) Typed[K] {
	h := a.alloc.Allocate()
	idx := int(h.Index())
	if idx >= len(a.records) {
		a.records = append(a.records, make([]R, idx+1-len(a.records))...)
	}
	a.records[idx] = r
	return Typed[K]{raw: h}
}

func (a *Arena[K, R]) Valid(h Typed[K]) bool {
	return a.alloc.IsValid(h.raw)
}

// Get returns a pointer to the record behind h. The pointer must not be kept
// across a Remove of the same handle.
func (a *Arena[K, R]) Get(h Typed[K]) (*R, bool) {
	if !a.alloc.IsValid(h.raw) {
		return nil, false
	}
	return &a.records[h.raw.Index()], true
}

// Remove frees the slot and returns the record it held.
func (a *Arena[K, R]) Remove(h Typed[K]) (R, bool) {
	var zero R
	if !a.alloc.Free(h.raw) {
		return zero, false
	}
	idx := h.raw.Index()
	r := a.records[idx]
	a.records[idx] = zero
	return r, true
}

func (a *Arena[K, R]) Len() int { return a.alloc.Live() }

// Each visits every live record in slot order.
func (a *Arena[K, R]) Each(fn func(Typed[K], *R)) {
	for i := range a.records {
		h := New(uint32(i), a.alloc.generations[i])
		if a.alloc.IsValid(h) {
			fn(Typed[K]{raw: h}, &a.records[i])
		}
	}
}

// Clear calls fn for every live record and then invalidates all handles.
func (a *Arena[K, R]) Clear(fn func(Typed[K], R)) {
	var zero R
	a.Each(func(h Typed[K], r *R) {
		if fn != nil {
			fn(h, *r)
		}
	})
	for i := range a.records {
		a.records[i] = zero
	}
	a.alloc.Reset()
}
