// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring_test

import (
	"testing"

	"code.hybscloud.com/lfring"
)

// attachAll attaches n states to r.
func attachAll(t *testing.T, r *lfring.WFRing, n int) []*lfring.State {
	t.Helper()
	states := make([]*lfring.State, n)
	for i := range states {
		s, err := r.Attach()
		if err != nil {
			t.Fatalf("Attach(%d): %v", i, err)
		}
		states[i] = s
	}
	return states
}

// checkOutcomes asserts that stalled[0..done) are finished with want and
// the rest are still pending.
func checkOutcomes(t *testing.T, r *lfring.WFRing, stalled []*lfring.State, done int, want lfring.Outcome) {
	t.Helper()
	for j, s := range stalled {
		exp := lfring.Pending
		if j < done {
			exp = want
		}
		if got := r.Poll(s); got != exp {
			t.Fatalf("after %d runner ops: stalled[%d]: got %v, want %v", done, j, got, exp)
		}
	}
}

// TestWFRingHelpingCompletesStalledEnqueues preempts every participant but
// one right after it announces an enqueue. Each operation of the remaining
// participant finishes exactly one stalled descriptor, oldest first, so all
// of them complete after as many runner operations as there are stalled
// participants.
func TestWFRingHelpingCompletesStalledEnqueues(t *testing.T) {
	const stalledN = 7
	r, err := lfring.NewWFRing(4, stalledN+1)
	if err != nil {
		t.Fatalf("NewWFRing: %v", err)
	}
	runner, _ := r.Attach()
	stalled := attachAll(t, r, stalledN)

	for i, s := range stalled {
		r.Announce(s, true, uint64(100+i))
	}
	checkOutcomes(t, r, stalled, 0, lfring.Committed)

	for i := range stalledN {
		if !r.Enqueue(runner, uint64(i), true) {
			t.Fatalf("runner Enqueue(%d): rejected", i)
		}
		checkOutcomes(t, r, stalled, i+1, lfring.Committed)
	}

	// Every helped enqueue landed just before the runner's own.
	for i := range stalledN {
		if got := r.Dequeue(runner, false); got != uint64(100+i) {
			t.Fatalf("Dequeue: got %d, want %d", got, 100+i)
		}
		if got := r.Dequeue(runner, false); got != uint64(i) {
			t.Fatalf("Dequeue: got %d, want %d", got, i)
		}
	}
	if got := r.Dequeue(runner, false); got != lfring.Empty {
		t.Fatalf("Dequeue on drained ring: got %d, want Empty", got)
	}
}

// TestWFRingHelpingCompletesStalledDequeues is the dequeue counterpart:
// stalled dequeuers receive elements in FIFO order through helpers.
func TestWFRingHelpingCompletesStalledDequeues(t *testing.T) {
	const stalledN = 5
	r, _ := lfring.NewWFRing(4, stalledN+1)
	runner, _ := r.Attach()
	stalled := attachAll(t, r, stalledN)

	for i := range 2 * stalledN {
		if !r.Enqueue(runner, uint64(i), false) {
			t.Fatalf("Enqueue(%d): rejected", i)
		}
	}
	for _, s := range stalled {
		r.Announce(s, false, 0)
	}

	for i := range stalledN {
		got := r.Dequeue(runner, false)
		if want := uint64(2*i + 1); got != want {
			t.Fatalf("runner Dequeue(%d): got %d, want %d", i, got, want)
		}
		checkOutcomes(t, r, stalled, i+1, lfring.Committed)
	}
	for i, s := range stalled {
		if want := uint64(2 * i); s.Value() != want {
			t.Fatalf("stalled[%d] value: got %d, want %d", i, s.Value(), want)
		}
	}
}

// TestWFRingHelpingRejects checks that helpers reject stalled operations
// that cannot succeed instead of leaving them pending.
func TestWFRingHelpingRejects(t *testing.T) {
	r, _ := lfring.NewWFRing(1, 3)
	runner, _ := r.Attach()
	stalled := attachAll(t, r, 2)

	// Empty ring: a stalled dequeue is rejected by the runner's help.
	r.Announce(stalled[0], false, 0)
	if !r.Enqueue(runner, 1, false) {
		t.Fatal("runner Enqueue: rejected")
	}
	if got := r.Poll(stalled[0]); got != lfring.Rejected {
		t.Fatalf("stalled dequeue on empty ring: got %v, want rejected", got)
	}
	if stalled[0].Value() != lfring.Empty {
		t.Fatalf("rejected dequeue value: got %d, want Empty", stalled[0].Value())
	}

	// Fill the ring, then a stalled enqueue is rejected by a helper.
	if !r.Enqueue(runner, 2, false) {
		t.Fatal("runner Enqueue: rejected")
	}
	r.Announce(stalled[1], true, 3)
	if r.Enqueue(runner, 4, true) {
		t.Fatal("runner Enqueue on full ring: committed")
	}
	if got := r.Poll(stalled[1]); got != lfring.Rejected {
		t.Fatalf("stalled enqueue on full ring: got %v, want rejected", got)
	}

	for _, want := range []uint64{1, 2} {
		if got := r.Dequeue(runner, false); got != want {
			t.Fatalf("Dequeue: got %d, want %d", got, want)
		}
	}
}

// TestWFRingHelpingBoundIndependentOfDelay keeps stalled participants
// preempted across many runner operations: once helped they stay finished,
// and the runner's own operations are never delayed by them.
func TestWFRingHelpingBoundIndependentOfDelay(t *testing.T) {
	const stalledN = 16
	r, _ := lfring.NewWFRing(6, stalledN+1)
	runner, _ := r.Attach()
	stalled := attachAll(t, r, stalledN)
	for i, s := range stalled {
		r.Announce(s, true, uint64(1000+i))
	}

	for i := range 10 * stalledN {
		if !r.Enqueue(runner, uint64(i), false) {
			t.Fatalf("runner Enqueue(%d): rejected", i)
		}
		if got := r.Dequeue(runner, false); got == lfring.Empty {
			t.Fatalf("runner Dequeue(%d): empty", i)
		}
		if i+1 >= stalledN/2 {
			// Each runner iteration runs two operations, each helping one.
			checkOutcomes(t, r, stalled, stalledN, lfring.Committed)
		}
	}
}
