package dashboard

import "sync"

// Target names the region of the screen a pointer event landed on.
type Target string

const (
	TargetSidebar    Target = "sidebar"
	TargetMenuButton Target = "menu-button"
	TargetDropdown   Target = "dropdown"
	TargetMain       Target = "main"
)

func (t Target) Valid() bool {
	switch t {
	case TargetSidebar, TargetMenuButton, TargetDropdown, TargetMain:
		return true
	}
	return false
}

// Bus fans a value out to its subscribers in subscription order.
type Bus[T any] struct {
	mu    sync.Mutex
	next  int
	order []int
	subs  map[int]func(T)
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every subscriber outside the bus lock.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	fns := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
