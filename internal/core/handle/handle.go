package handle

// Handle encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generations start at 1, so the zero Handle never refers
// to a live slot.
type Handle uint64

func New(index uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == 0 }

// Allocator manages slot allocation with generational indices and a free list.
// Not safe for concurrent use; the owning system mutates it from its update phase.
type Allocator struct {
	generations []uint32
	live        []bool
	freeList    []uint32
	liveCount   int
}

func NewAllocator() *Allocator {
	return &Allocator{
		generations: make([]uint32, 0, 256),
		live:        make([]bool, 0, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

// Allocate returns a handle to an unused slot, reusing freed slots first.
func (a *Allocator) Allocate() Handle {
	var idx uint32
	if n := len(a.freeList); n > 0 {
		idx = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		idx = uint32(len(a.generations))
		a.generations = append(a.generations, 1)
		a.live = append(a.live, false)
	}
	a.live[idx] = true
	a.liveCount++
	return New(idx, a.generations[idx])
}

// IsValid reports whether h refers to a live slot at its current generation.
func (a *Allocator) IsValid(h Handle) bool {
	idx := h.Index()
	if int(idx) >= len(a.generations) {
		return false
	}
	return a.live[idx] && a.generations[idx] == h.Generation()
}

// Free releases the slot behind h. Stale or out-of-range handles are ignored.
func (a *Allocator) Free(h Handle) bool {
	if !a.IsValid(h) {
		return false
	}
	idx := h.Index()
	a.retire(idx)
	a.freeList = append(a.freeList, idx)
	return true
}

// Live returns the number of slots currently allocated.
func (a *Allocator) Live() int { return a.liveCount }

// Reset frees every live slot. Generation history is kept, so handles issued
// before the reset stay stale afterwards.
func (a *Allocator) Reset() {
	a.freeList = a.freeList[:0]
	for i := len(a.generations) - 1; i >= 0; i-- {
		if a.live[i] {
			a.retire(uint32(i))
		}
		a.freeList = append(a.freeList, uint32(i))
	}
}

func (a *Allocator) retire(idx uint32) {
	a.live[idx] = false
	a.liveCount--
	a.generations[idx]++
	if a.generations[idx] == 0 {
		// wrapped; 0 is reserved for the zero Handle
		a.generations[idx] = 1
	}
}
