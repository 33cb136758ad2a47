// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// MaxParticipants is the largest number of goroutines that may be attached
// to one WFRing at the same time.
const MaxParticipants = 256

// Slot entry layout for WFRing: [lo=control | hi=payload]
//
//	lo bits 32-63  generation (compared modulo 2^32)
//	lo bits 10-31  operation tag of the claiming descriptor
//	lo bits 2-9    participant id of the claiming descriptor
//	lo bits 0-1    slot state
//
// A slot is Reserved by an enqueue or Taken by a dequeue before the owning
// descriptor commits; the claim fields are zero otherwise.
const (
	wfGenBits   = 32
	wfTagBits   = 22
	wfTagMask   = 1<<wfTagBits - 1
	wfPidMask   = MaxParticipants - 1
	wfTagShift  = 10
	wfPidShift  = 2
	wfStateMask = 3
)

const (
	slotEmpty uint64 = iota
	slotFull
	slotReserved
	slotTaken
)

func wfWord(gen, state uint64) uint64 {
	return gen<<wfGenBits | state
}

func wfClaim(gen, state, pid uint64, seq uint32) uint64 {
	return gen<<wfGenBits | (uint64(seq)&wfTagMask)<<wfTagShift | (pid&wfPidMask)<<wfPidShift | state
}

func wfGen(lo uint64) uint64   { return lo >> wfGenBits }
func wfState(lo uint64) uint64 { return lo & wfStateMask }
func wfPid(lo uint64) uint64   { return (lo >> wfPidShift) & wfPidMask }
func wfTag(lo uint64) uint64   { return (lo >> wfTagShift) & wfTagMask }

// Descriptor layout: [lo=control | hi=value]
//
//	lo bits 32-63  operation sequence
//	lo bits 3-31   low bits of the committed cursor
//	lo bit  2      kind
//	lo bits 0-1    status
//
// hi carries the enqueue input, or the dequeued value once committed.
const (
	descPosBits  = 29
	descPosMask  = 1<<descPosBits - 1
	descPosShift = 3
	descKindBit  = 1 << 2
	descStatMask = 3
)

const (
	descIdle uint64 = iota
	descPending
	descCommitted
	descRejected
)

const (
	opEnqueue uint64 = 0
	opDequeue uint64 = descKindBit
)

func descWord(seq uint32, kind, status uint64) uint64 {
	return uint64(seq)<<32 | kind | status
}

func descSeq(lo uint64) uint32    { return uint32(lo >> 32) }
func descKind(lo uint64) uint64   { return lo & descKindBit }
func descStatus(lo uint64) uint64 { return lo & descStatMask }
func descPos(lo uint64) uint64    { return (lo >> descPosShift) & descPosMask }

func descCommit(lo, pos uint64) uint64 {
	lo &^= descPosMask<<descPosShift | descStatMask
	return lo | (pos&descPosMask)<<descPosShift | descCommitted
}

func descReject(lo uint64) uint64 {
	return lo&^descStatMask | descRejected
}

// WFRing is a bounded wait-free MPMC ring of 64-bit payloads.
//
// Every operation is announced in a per-participant descriptor before it
// touches the ring. A caller first helps the oldest pending descriptor of
// another participant to completion, then drives its own. Slots and
// descriptors are updated with 128-bit CAS: the slot word carries the
// generation together with a claim naming the descriptor, and the
// descriptor word carries the sequence together with the result, so a
// helper never acts on a torn view of either.
//
// Applying a descriptor is a two-step claim: a helper marks the slot at the
// cursor Reserved (enqueue) or Taken (dequeue) with the descriptor's tag,
// then commits the descriptor with that cursor. Anyone meeting a claimed
// slot resolves it: commit if still pending, finalize if committed at this
// cursor, roll back otherwise. Cursors never move past a claimed slot, so a
// descriptor is applied at most once no matter how many goroutines help it.
//
// Callers interact through a [State] obtained from [WFRing.Attach]; at most
// the configured number of participants may be attached at once.
//
// Memory: 16 bytes per slot, one cache line per participant
type WFRing struct {
	_     pad
	tail  atomix.Uint64 // Producer cursor
	_     pad
	head  atomix.Uint64 // Consumer cursor
	_     pad
	seq   atomix.Uint64 // Operation sequence
	_     pad
	slots []wfSlot
	descs []wfDesc
	cur   cursor
}

type wfSlot struct {
	entry atomix.Uint128 // lo=control, hi=value
}

// wfDesc fills one cache line. Its size must stay a multiple of 16 so that
// op is 16-byte aligned in every element of the descriptor table.
type wfDesc struct {
	op    atomix.Uint128 // lo=control, hi=value
	owned atomix.Uint64  // 1 while attached
	_     [64 - 24]byte  // Pad to cache line
}

// NewWFRing creates an empty wait-free ring with 1<<order slots shared by
// up to participants attached goroutines.
func NewWFRing(order uint, participants int) (*WFRing, error) {
	r := &WFRing{}
	if err := r.InitEmpty(order, participants); err != nil {
		return nil, err
	}
	return r, nil
}

// InitEmpty (re)initializes r with 1<<order empty slots and participants
// idle descriptors. Previously attached States become invalid.
//
// InitEmpty is not safe to call concurrently with any other method of r.
func (r *WFRing) InitEmpty(order uint, participants int) error {
	if err := checkOrder(order); err != nil {
		return err
	}
	if participants < 1 || participants > MaxParticipants {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidParticipants, participants, MaxParticipants)
	}

	r.cur = newCursor(order)
	r.slots = make([]wfSlot, Size(order))
	for i := range r.slots {
		r.slots[i].entry.StoreRelaxed(wfWord(0, slotEmpty), 0)
	}
	r.descs = make([]wfDesc, participants)
	for i := range r.descs {
		r.descs[i].op.StoreRelaxed(descWord(0, opEnqueue, descIdle), 0)
		r.descs[i].owned.StoreRelaxed(0)
	}
	r.seq.StoreRelaxed(0)
	r.head.StoreRelaxed(0)
	r.tail.StoreRelease(0)
	return nil
}

// Attach claims a participant slot for the calling goroutine.
// Returns ErrNoParticipant if all slots are in use.
func (r *WFRing) Attach() (*State, error) {
	for i := range r.descs {
		if r.descs[i].owned.CompareAndSwapAcqRel(0, 1) {
			return &State{ring: r, id: uint64(i), outcome: Pending, value: Empty}, nil
		}
	}
	return nil, ErrNoParticipant
}

// Enqueue appends v to the ring on behalf of s.
//
// With nonempty false the ring is first checked for fullness and the call
// is rejected without announcing anything if it is. With nonempty true the
// caller asserts it has seen free space and the check is skipped.
//
// The outcome is also recorded in s. Returns true on commit, false if the
// ring was full. Panics if v is Empty.
func (r *WFRing) Enqueue(s *State, v uint64, nonempty bool) bool {
	s.check(r)
	if v == Empty {
		panic("lfring: cannot enqueue the Empty sentinel")
	}
	if !nonempty && r.observeFull() {
		s.set(Rejected, Empty)
		return false
	}

	seq := r.publish(s.id, opEnqueue, v)
	r.helpOldest(s.id)
	r.help(s.id, seq)
	return r.collect(s) == Committed
}

// Dequeue removes and returns the oldest payload on behalf of s.
//
// With nonempty false the ring is first checked for emptiness and the call
// is rejected without announcing anything if it is. With nonempty true the
// caller asserts it has seen an element and the check is skipped.
//
// The outcome is also recorded in s. Returns Empty if the ring was empty.
func (r *WFRing) Dequeue(s *State, nonempty bool) uint64 {
	s.check(r)
	if !nonempty && r.observeEmpty() {
		s.set(Rejected, Empty)
		return Empty
	}

	seq := r.publish(s.id, opDequeue, 0)
	r.helpOldest(s.id)
	r.help(s.id, seq)
	r.collect(s)
	return s.value
}

// Cap returns the ring capacity.
func (r *WFRing) Cap() int {
	return len(r.slots)
}

// Order returns log2 of the ring capacity.
func (r *WFRing) Order() uint {
	return r.cur.order
}

// Participants returns the number of participant slots.
func (r *WFRing) Participants() int {
	return len(r.descs)
}

// observeFull reports whether the slot at tail still holds the previous
// cycle's element. Anything less definite is left to the full protocol.
func (r *WFRing) observeFull() bool {
	tail := r.tail.LoadAcquire()
	lo, _ := r.slots[r.cur.index(tail)].entry.LoadAcquire()
	if tail != r.tail.LoadAcquire() {
		return false
	}
	return wfState(lo) == slotFull && sameTag(wfGen(lo)+1, r.cur.generation(tail), wfGenBits)
}

// observeEmpty reports whether the slot at head was never filled for the
// current cycle.
func (r *WFRing) observeEmpty() bool {
	head := r.head.LoadAcquire()
	lo, _ := r.slots[r.cur.index(head)].entry.LoadAcquire()
	if head != r.head.LoadAcquire() {
		return false
	}
	return wfState(lo) == slotEmpty && sameTag(wfGen(lo), r.cur.generation(head), wfGenBits)
}

// publish announces a new pending operation for participant pid.
func (r *WFRing) publish(pid, kind, v uint64) uint32 {
	seq := uint32(r.seq.AddAcqRel(1))
	r.descs[pid].op.StoreRelease(descWord(seq, kind, descPending), v)
	return seq
}

// helpOldest drives the pending descriptor with the smallest sequence,
// other than self's, to completion.
func (r *WFRing) helpOldest(self uint64) {
	var (
		oldest uint64
		best   uint32
		found  bool
	)
	for i := range r.descs {
		pid := uint64(i)
		if pid == self {
			continue
		}
		lo, _ := r.descs[i].op.LoadAcquire()
		if descStatus(lo) != descPending {
			continue
		}
		seq := descSeq(lo)
		if !found || int32(seq-best) < 0 {
			oldest, best, found = pid, seq, true
		}
	}
	if found {
		r.help(oldest, best)
	}
}

// help steps the operation seq of participant pid until it leaves Pending.
// It returns early if pid has already moved on to another operation.
func (r *WFRing) help(pid uint64, seq uint32) {
	d := &r.descs[pid].op
	for {
		lo, hi := d.LoadAcquire()
		if descSeq(lo) != seq || descStatus(lo) != descPending {
			return
		}
		if descKind(lo) == opEnqueue {
			r.stepEnqueue(pid, lo, hi)
		} else {
			r.stepDequeue(pid, lo, hi)
		}
	}
}

// stepEnqueue makes one attempt at the pending enqueue (lo, hi) of pid.
func (r *WFRing) stepEnqueue(pid, lo, hi uint64) {
	tail := r.tail.LoadAcquire()
	idx := r.cur.index(tail)
	slot := &r.slots[idx].entry
	slo, shi := slot.LoadAcquire()
	if tail != r.tail.LoadAcquire() {
		return
	}

	gen := r.cur.generation(tail)
	sgen := wfGen(slo)
	switch wfState(slo) {
	case slotReserved, slotTaken:
		r.resolve(idx, slo, shi)
	case slotEmpty:
		switch {
		case sameTag(sgen, gen, wfGenBits):
			claim := wfClaim(gen, slotReserved, pid, descSeq(lo))
			if slot.CompareAndSwapAcqRel(slo, shi, claim, hi) {
				r.resolve(idx, claim, hi)
			}
		case sameTag(sgen, gen+1, wfGenBits):
			r.tail.CompareAndSwapAcqRel(tail, tail+1)
		}
	case slotFull:
		switch {
		case sameTag(sgen, gen, wfGenBits):
			r.tail.CompareAndSwapAcqRel(tail, tail+1)
		case sameTag(sgen+1, gen, wfGenBits):
			// Previous cycle's element is still there: full.
			r.descs[pid].op.CompareAndSwapAcqRel(lo, hi, descReject(lo), hi)
		}
	}
}

// stepDequeue makes one attempt at the pending dequeue (lo, hi) of pid.
func (r *WFRing) stepDequeue(pid, lo, hi uint64) {
	head := r.head.LoadAcquire()
	idx := r.cur.index(head)
	slot := &r.slots[idx].entry
	slo, shi := slot.LoadAcquire()
	if head != r.head.LoadAcquire() {
		return
	}

	gen := r.cur.generation(head)
	sgen := wfGen(slo)
	switch wfState(slo) {
	case slotReserved, slotTaken:
		r.resolve(idx, slo, shi)
	case slotFull:
		if !sameTag(sgen, gen, wfGenBits) {
			return
		}
		// Keep head <= tail: the finalizer may not have moved tail yet.
		if r.tail.LoadAcquire() == head {
			r.tail.CompareAndSwapAcqRel(head, head+1)
		}
		claim := wfClaim(gen, slotTaken, pid, descSeq(lo))
		if slot.CompareAndSwapAcqRel(slo, shi, claim, shi) {
			r.resolve(idx, claim, shi)
		}
	case slotEmpty:
		switch {
		case sameTag(sgen, gen, wfGenBits):
			r.descs[pid].op.CompareAndSwapAcqRel(lo, hi, descReject(lo), hi)
		case sameTag(sgen, gen+1, wfGenBits):
			r.head.CompareAndSwapAcqRel(head, head+1)
		}
	}
}

// resolve settles the claimed slot idx whose entry was observed as
// (slo, shi). The claiming descriptor is committed at this cursor if it is
// still pending; the slot is then finalized if the descriptor committed
// here and rolled back otherwise.
func (r *WFRing) resolve(idx, slo, shi uint64) {
	taken := wfState(slo) == slotTaken
	kind := opEnqueue
	if taken {
		kind = opDequeue
	}
	sgen := wfGen(slo)
	pos := r.cur.position(idx, sgen) & descPosMask
	d := &r.descs[wfPid(slo)].op

	here := false
	for {
		lo, hi := d.LoadAcquire()
		if uint64(descSeq(lo))&wfTagMask != wfTag(slo) || descKind(lo) != kind {
			break
		}
		if descStatus(lo) != descPending {
			here = descStatus(lo) == descCommitted && descPos(lo) == pos
			break
		}
		if !taken && hi != shi {
			break
		}
		val := hi
		if taken {
			val = shi
		}
		if d.CompareAndSwapAcqRel(lo, hi, descCommit(lo, pos), val) {
			here = true
			break
		}
	}

	slot := &r.slots[idx].entry
	switch {
	case here && taken:
		slot.CompareAndSwapAcqRel(slo, shi, wfWord(sgen+1, slotEmpty), 0)
		r.advance(&r.head, idx, sgen)
	case here:
		slot.CompareAndSwapAcqRel(slo, shi, wfWord(sgen, slotFull), shi)
		r.advance(&r.tail, idx, sgen)
	case taken:
		slot.CompareAndSwapAcqRel(slo, shi, wfWord(sgen, slotFull), shi)
	default:
		slot.CompareAndSwapAcqRel(slo, shi, wfWord(sgen, slotEmpty), 0)
	}
}

// advance moves c past slot idx of generation gen if c still points there.
// gen is the truncated slot generation, so only its low bits are compared.
func (r *WFRing) advance(c *atomix.Uint64, idx, gen uint64) {
	cur := c.LoadAcquire()
	if r.cur.index(cur) == idx && sameTag(r.cur.generation(cur), gen, wfGenBits) {
		c.CompareAndSwapAcqRel(cur, cur+1)
	}
}

// collect copies the final outcome of s's descriptor into s. A committed
// claim is finalized first so the descriptor can be reused.
func (r *WFRing) collect(s *State) Outcome {
	lo, hi := r.descs[s.id].op.LoadAcquire()
	switch descStatus(lo) {
	case descCommitted:
		r.settle(s.id, lo)
		if descKind(lo) == opDequeue {
			s.set(Committed, hi)
		} else {
			s.set(Committed, Empty)
		}
	case descRejected:
		s.set(Rejected, Empty)
	default:
		s.set(Pending, Empty)
	}
	return s.outcome
}

// settle finalizes the slot claimed by the committed descriptor lo of pid
// if no helper has done so yet.
func (r *WFRing) settle(pid, lo uint64) {
	idx := r.cur.index(descPos(lo))
	slo, shi := r.slots[idx].entry.LoadAcquire()
	st := wfState(slo)
	if (st == slotReserved || st == slotTaken) && wfPid(slo) == pid &&
		wfTag(slo) == uint64(descSeq(lo))&wfTagMask {
		r.resolve(idx, slo, shi)
	}
}
