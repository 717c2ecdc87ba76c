// Package arena provides a stable-address slab allocator.
//
// Ported from the teacher's wazevoapi.Pool[T]: a page-of-128 generic pool
// whose pointers remain valid for the life of the arena, which is what
// internal/ssa needs for its Block/Instruction handles (spec.md §5:
// "a container discipline guaranteeing stable addresses through appends
// and through the deletions performed" by mem2reg).
package arena

const pageSize = 128

// Pool allocates values of T with addresses stable for the pool's
// lifetime; nothing is ever moved or resized in place.
type Pool[T any] struct {
	pages            []*[pageSize]T
	allocated, index int
}

// NewPool returns a ready-to-use Pool.
func NewPool[T any]() *Pool[T] {
	p := &Pool[T]{}
	p.index = pageSize
	return p
}

// Allocated returns the number of values allocated so far.
func (p *Pool[T]) Allocated() int {
	return p.allocated
}

// Allocate returns a pointer to a fresh, zero-valued T.
func (p *Pool[T]) Allocate() *T {
	if p.index == pageSize {
		p.pages = append(p.pages, new([pageSize]T))
		p.index = 0
	}
	ret := &p.pages[len(p.pages)-1][p.index]
	p.index++
	p.allocated++
	return ret
}
