// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

// Queue is a bounded lock-free MPMC queue for any element type.
//
// Elements live in a fixed array; two LFRings move array indices between
// producers and consumers. free holds the indices of unused cells and used
// holds the indices of filled cells in FIFO order. The release on used's
// enqueue CAS publishes the cell contents to the consumer that claims the
// index.
//
// Memory: n cells plus 2n ring slots (8 bytes each) for capacity n
type Queue[T any] struct {
	data []T
	free LFRing
	used LFRing
}

// NewQueue creates a typed queue.
// Capacity rounds up to the next power of 2. Panics if capacity < 1 or
// exceeds Size(MaxOrder).
func NewQueue[T any](capacity int) *Queue[T] {
	order, err := OrderFor(capacity)
	if err != nil {
		panic(err)
	}

	q := &Queue[T]{data: make([]T, Size(order))}
	// Orders from OrderFor are always valid.
	_ = q.free.InitEmpty(order)
	_ = q.used.InitEmpty(order)
	for i := range q.data {
		q.free.Enqueue(uint64(i))
	}
	return q
}

// Enqueue adds an element to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *Queue[T]) Enqueue(elem *T) error {
	idx := q.free.Dequeue()
	if idx == Empty {
		return ErrWouldBlock
	}
	q.data[idx] = *elem
	// used has as many slots as there are indices, so it never fills.
	q.used.Enqueue(idx)
	return nil
}

// Dequeue removes and returns an element from the queue.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	idx := q.used.Dequeue()
	if idx == Empty {
		return zero, ErrWouldBlock
	}
	elem := q.data[idx]
	q.data[idx] = zero
	q.free.Enqueue(idx)
	return elem, nil
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.data)
}
