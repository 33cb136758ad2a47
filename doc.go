// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfring provides bounded multi-producer multi-consumer ring queues
// in two progress flavors:
//
//   - LFRing: lock-free, single-word (64-bit) CAS per slot
//   - WFRing: wait-free, double-word (128-bit) CAS plus descriptor helping
//
// Both rings hold 1<<order integer slots. Capacity is fixed at creation and
// never resized.
//
// # Quick Start
//
//	r, err := lfring.NewLFRing(10) // 1024 slots
//	if err != nil {
//	    return err
//	}
//	if !r.Enqueue(42) {
//	    // Ring is full
//	}
//	if v := r.Dequeue(); v != lfring.Empty {
//	    use(v)
//	}
//
// Wait-free rings are used through a per-goroutine [State]:
//
//	w, _ := lfring.NewWFRing(10, 8) // 1024 slots, up to 8 goroutines
//	s, err := w.Attach()
//	if err != nil {
//	    return err // all 8 participant slots taken
//	}
//	defer s.Detach()
//
//	w.Enqueue(s, 42, false)
//	v := w.Dequeue(s, false)
//	fmt.Println(v, s.Outcome()) // 42 committed
//
// # Slots and Generations
//
// A cursor is an unbounded position; its slot is cursor & (cap-1) and its
// generation is cursor >> order. Every slot remembers the generation of
// the cursor that last wrote it. A dequeue at cursor c only accepts a slot
// filled for generation(c), and leaves it empty for generation(c)+1, so a
// goroutine that stalls across a wraparound cannot mistake the slot for
// the one it saw earlier.
//
// # Progress
//
// LFRing operations are lock-free: a failed CAS means another goroutine
// succeeded. An individual goroutine may retry indefinitely.
//
// WFRing operations are wait-free. Each operation is published in the
// caller's descriptor, and every caller first completes the oldest pending
// descriptor of another participant before its own. A stalled participant
// is therefore finished by the others within a number of their operations
// bounded by the participant count.
//
// # Full and Empty
//
// Full and empty are ordinary outcomes, not errors:
//
//	LFRing.Enqueue → false         WFRing.Enqueue → false, s.Outcome() == Rejected
//	LFRing.Dequeue → Empty         WFRing.Dequeue → Empty, s.Outcome() == Rejected
//
// The [Ring] interface maps both to [ErrWouldBlock] for callers that prefer
// the iox error style:
//
//	q := r.Ring()
//	backoff := iox.Backoff{}
//	for q.Enqueue(v) != nil {
//	    backoff.Wait()
//	}
//
// # The nonempty Hint
//
// WFRing.Enqueue and WFRing.Dequeue take a nonempty flag. With false, the
// ring is first checked and a definitely full (or empty) ring is reported
// without announcing a descriptor. With true the caller asserts it has
// already observed room (or an element) and the check is skipped. Both
// paths return the same outcomes; the flag only trades a check for latency.
//
// # Typed Queues
//
// [Queue] carries arbitrary element types by moving array indices through
// two LFRings:
//
//	q := lfring.NewQueue[Event](1024)
//	q.Enqueue(&ev)
//	ev, err := q.Dequeue()
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomix acquire-release operations on separate
// variables, and [Queue] additionally publishes plain element cells through
// its index ring. Concurrent use is therefore reported as racy; concurrent
// tests are excluded via [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering (including 128-bit CAS),
// [code.hybscloud.com/iox] for semantic errors, and
// [code.hybscloud.com/spin] for CPU pause instructions.
package lfring
