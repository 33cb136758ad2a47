// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

// Outcome is the state of a wait-free operation.
//
//	Pending → Committed  the slot claim succeeded and the cursor advanced
//	Pending → Rejected   the ring was observed full (enqueue) or empty (dequeue)
type Outcome uint8

const (
	Pending Outcome = iota
	Committed
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	}
	return "unknown"
}

// State is a participant handle of a [WFRing]. It owns one descriptor of
// the ring and receives the outcome of each operation issued through it.
//
// A State must be used by one goroutine at a time. State also implements
// [Ring], always passing nonempty=false.
type State struct {
	ring    *WFRing
	id      uint64
	outcome Outcome
	value   uint64
}

// ID returns the participant index of s.
func (s *State) ID() int {
	return int(s.id)
}

// Outcome returns the outcome of the last operation issued through s.
func (s *State) Outcome() Outcome {
	return s.outcome
}

// Value returns the payload removed by the last committed Dequeue, or
// Empty otherwise.
func (s *State) Value() uint64 {
	return s.value
}

// Detach releases the participant slot. s must not be used afterwards.
func (s *State) Detach() {
	if s.ring == nil {
		return
	}
	s.ring.descs[s.id].owned.StoreRelease(0)
	s.ring = nil
}

// Enqueue adds v to the ring. Returns ErrWouldBlock if the ring is full.
func (s *State) Enqueue(v uint64) error {
	if !s.ring.Enqueue(s, v, false) {
		return ErrWouldBlock
	}
	return nil
}

// Dequeue removes the oldest payload. Returns (0, ErrWouldBlock) if the
// ring is empty.
func (s *State) Dequeue() (uint64, error) {
	v := s.ring.Dequeue(s, false)
	if v == Empty {
		return 0, ErrWouldBlock
	}
	return v, nil
}

// Cap returns the capacity of the attached ring.
func (s *State) Cap() int {
	s.check(s.ring)
	return s.ring.Cap()
}

func (s *State) check(r *WFRing) {
	if s == nil || s.ring == nil || s.ring != r {
		panic("lfring: state is not attached to this ring")
	}
}

func (s *State) set(o Outcome, v uint64) {
	s.outcome = o
	s.value = v
}
