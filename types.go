// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

// Ring is the binding surface shared by both engines.
//
// Ring provides non-blocking Enqueue and Dequeue operations on integer
// payloads. Both operations return ErrWouldBlock when they cannot proceed
// (ring full or empty).
//
// Implementations:
//   - [LFRing.Ring]: lock-free, payloads in [0, MaxValue]
//   - [*State]: wait-free, any payload except Empty
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
//
// Example:
//
//	r, _ := lfring.NewLFRing(10)
//	q := r.Ring()
//
//	if err := q.Enqueue(42); lfring.IsWouldBlock(err) {
//	    // Ring is full - handle backpressure
//	}
//
//	v, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(v)
//	}
type Ring interface {
	// Enqueue adds v to the ring.
	// Returns nil on success, ErrWouldBlock if the ring is full.
	Enqueue(v uint64) error

	// Dequeue removes and returns the oldest payload.
	// Returns (0, ErrWouldBlock) if the ring is empty.
	Dequeue() (uint64, error)

	// Cap returns the ring capacity.
	Cap() int
}

// Producer is the interface for enqueueing typed elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value, so the original can be
// modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// Returns nil on success, ErrWouldBlock if the queue is full.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing typed elements.
//
// The element is returned by value. The original slot is cleared to allow
// garbage collection of referenced objects.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	Dequeue() (T, error)
}

var (
	_ Ring = lfBinding{}
	_ Ring = (*State)(nil)

	_ Producer[int] = (*Queue[int])(nil)
	_ Consumer[int] = (*Queue[int])(nil)
)
