// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

// Announce publishes an operation for s without running it, leaving s as
// a participant preempted right after announcing.
func (r *WFRing) Announce(s *State, enqueue bool, v uint64) {
	s.check(r)
	kind := opDequeue
	if enqueue {
		kind = opEnqueue
	}
	r.publish(s.id, kind, v)
}

// Poll copies the current outcome of s's descriptor into s without
// helping it.
func (r *WFRing) Poll(s *State) Outcome {
	s.check(r)
	return r.collect(s)
}
