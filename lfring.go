// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Slot word layout for LFRing:
//
//	bit 63      empty flag
//	bits 40-62  generation tag (23 bits, compared modulo 2^23)
//	bits 0-39   payload
const (
	lfValueBits = 40
	lfTagBits   = 23
	lfTagMask   = 1<<lfTagBits - 1
	lfEmptyFlag = 1 << 63

	// MaxValue is the largest payload an LFRing can hold.
	MaxValue = 1<<lfValueBits - 1
)

func lfEmptyWord(gen uint64) uint64 {
	return lfEmptyFlag | (gen&lfTagMask)<<lfValueBits
}

func lfFullWord(gen, v uint64) uint64 {
	return (gen&lfTagMask)<<lfValueBits | v
}

func lfIsEmpty(w uint64) bool { return w&lfEmptyFlag != 0 }

func lfTag(w uint64) uint64 { return (w >> lfValueBits) & lfTagMask }

func lfValue(w uint64) uint64 { return w & MaxValue }

// LFRing is a bounded lock-free MPMC ring of integer payloads.
//
// Each slot is a single 64-bit word holding either an empty marker or a
// payload, tagged with the generation (cursor >> order) of the cursor that
// last wrote it. Enqueue moves a slot from (empty, g) to (value, g);
// Dequeue moves it from (value, g) to (empty, g+1). Tags make a slot reused
// on a later wraparound distinguishable from the one a stalled thread
// observed, so a single-word CAS is ABA-safe up to 2^23 wraparounds.
//
// Enqueue and Dequeue are lock-free: some caller always makes progress,
// but a single caller may retry indefinitely under contention.
//
// Payloads are limited to [0, MaxValue]. Full and empty are reported as
// plain results; use [LFRing.Ring] for the ErrWouldBlock flavor.
//
// Memory: 8 bytes per slot
type LFRing struct {
	_     pad
	tail  atomix.Uint64 // Producer cursor
	_     pad
	head  atomix.Uint64 // Consumer cursor
	_     pad
	slots []atomix.Uint64
	cur   cursor
}

// NewLFRing creates an empty lock-free ring with 1<<order slots.
func NewLFRing(order uint) (*LFRing, error) {
	r := &LFRing{}
	if err := r.InitEmpty(order); err != nil {
		return nil, err
	}
	return r, nil
}

// InitEmpty (re)initializes r with 1<<order empty slots.
//
// InitEmpty is not safe to call concurrently with any other method of r.
func (r *LFRing) InitEmpty(order uint) error {
	if err := checkOrder(order); err != nil {
		return err
	}
	n := Size(order)
	r.cur = newCursor(order)
	r.slots = make([]atomix.Uint64, n)
	for i := range r.slots {
		r.slots[i].StoreRelaxed(lfEmptyWord(0))
	}
	r.head.StoreRelaxed(0)
	r.tail.StoreRelease(0)
	return nil
}

// Enqueue appends v to the ring.
// Returns false if the ring is full. Panics if v exceeds MaxValue.
func (r *LFRing) Enqueue(v uint64) bool {
	if v > MaxValue {
		panic("lfring: value exceeds MaxValue")
	}

	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		slot := &r.slots[r.cur.index(tail)]
		w := slot.LoadAcquire()
		if tail != r.tail.LoadAcquire() {
			continue
		}

		gen := r.cur.generation(tail)
		tag := lfTag(w)
		switch {
		case lfIsEmpty(w) && sameTag(tag, gen, lfTagBits):
			if slot.CompareAndSwapAcqRel(w, lfFullWord(gen, v)) {
				r.tail.CompareAndSwapAcqRel(tail, tail+1)
				return true
			}
		case !lfIsEmpty(w) && sameTag(tag+1, gen, lfTagBits):
			// Previous cycle's element is still there.
			return false
		case !lfIsEmpty(w) && sameTag(tag, gen, lfTagBits),
			lfIsEmpty(w) && sameTag(tag, gen+1, lfTagBits):
			// Filled at this cursor already; the tail lags behind.
			r.tail.CompareAndSwapAcqRel(tail, tail+1)
		}
		sw.Once()
	}
}

// Dequeue removes and returns the oldest payload.
// Returns Empty if the ring holds no element.
func (r *LFRing) Dequeue() uint64 {
	sw := spin.Wait{}
	for {
		head := r.head.LoadAcquire()
		slot := &r.slots[r.cur.index(head)]
		w := slot.LoadAcquire()
		if head != r.head.LoadAcquire() {
			continue
		}

		gen := r.cur.generation(head)
		tag := lfTag(w)
		switch {
		case !lfIsEmpty(w) && sameTag(tag, gen, lfTagBits):
			// Keep head <= tail: the producer may not have moved tail yet.
			if r.tail.LoadAcquire() == head {
				r.tail.CompareAndSwapAcqRel(head, head+1)
			}
			if slot.CompareAndSwapAcqRel(w, lfEmptyWord(gen+1)) {
				r.head.CompareAndSwapAcqRel(head, head+1)
				return lfValue(w)
			}
		case lfIsEmpty(w) && sameTag(tag, gen, lfTagBits):
			return Empty
		case lfIsEmpty(w) && sameTag(tag, gen+1, lfTagBits):
			r.head.CompareAndSwapAcqRel(head, head+1)
		}
		sw.Once()
	}
}

// Cap returns the ring capacity.
func (r *LFRing) Cap() int {
	return len(r.slots)
}

// Order returns log2 of the ring capacity.
func (r *LFRing) Order() uint {
	return r.cur.order
}

// Ring returns r behind the [Ring] interface, reporting full and empty as
// ErrWouldBlock.
func (r *LFRing) Ring() Ring {
	return lfBinding{r: r}
}

type lfBinding struct {
	r *LFRing
}

func (b lfBinding) Enqueue(v uint64) error {
	if !b.r.Enqueue(v) {
		return ErrWouldBlock
	}
	return nil
}

func (b lfBinding) Dequeue() (uint64, error) {
	v := b.r.Dequeue()
	if v == Empty {
		return 0, ErrWouldBlock
	}
	return v, nil
}

func (b lfBinding) Cap() int {
	return b.r.Cap()
}
