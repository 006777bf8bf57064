package buffer

// Ring is a ring buffer keeping the last x elements.
// It is not safe for concurrent use.
type Ring[T any] struct {
	index  int
	count  int
	values []T
}

// NewRing creates a new ring with the given buffer size.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{
		values: make([]T, size),
	}
}

// Size returns the number of elements within the ring.
func (r *Ring[T]) Size() int {
	if r.count < len(r.values) {
		return r.count
	}
	return len(r.values)
}

// Push adds an element to the ring.
// It returns the element that got overwritten, if the ring was full.
func (r *Ring[T]) Push(v T) (T, bool) {
	old := r.values[r.index]
	full := r.count >= len(r.values)
	r.values[r.index] = v
	r.index = r.next(r.index)
	r.count++
	return old, full
}

func (r *Ring[T]) next(index int) int {
	return (index + 1) % len(r.values)
}

// Get returns the ring elements ordered from the oldest to the latest.
func (r *Ring[T]) Get() []T {
	l := r.Size()
	v := make([]T, l)
	start := 0
	if r.count >= len(r.values) {
		start = r.index
	}
	for i := 0; i < l; i++ {
		v[i] = r.values[(start+i)%len(r.values)]
	}
	return v
}

// Find looks for the latest element matching the predicate.
func (r *Ring[T]) Find(match func(v T) bool) (T, bool) {
	l := r.Size()
	for i := 1; i <= l; i++ {
		idx := (r.index - i + len(r.values)) % len(r.values)
		if match(r.values[idx]) {
			return r.values[idx], true
		}
	}
	var zero T
	return zero, false
}
