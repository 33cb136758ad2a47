// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

import "golang.org/x/sys/cpu"

// Options configures ring creation.
type Options struct {
	// Capacity (rounds up to next power of 2 unless exact)
	capacity int
	exact    bool

	// Wait-free participant slots
	participants int
}

// Builder creates rings with fluent configuration.
//
// Example:
//
//	// Lock-free ring, capacity rounded up to 1024
//	r, err := lfring.New(1000).BuildLockFree()
//
//	// Wait-free ring for up to 8 goroutines
//	w, err := lfring.New(4096).Participants(8).BuildWaitFree()
//
//	// Reject capacities that are not a power of 2
//	r, err := lfring.New(1000).Exact().BuildLockFree() // ErrInvalidCapacity
type Builder struct {
	opts Options
}

// DefaultParticipants is the participant count used by BuildWaitFree when
// Participants is not set.
const DefaultParticipants = 64

// New creates a ring builder with the given capacity.
//
// Capacity rounds up to the next power of 2.
// For example, capacity=4 results in actual capacity=4, capacity=1000
// results in actual capacity=1024.
func New(capacity int) *Builder {
	return &Builder{opts: Options{capacity: capacity, participants: DefaultParticipants}}
}

// Exact requires the capacity to already be a power of 2. Build fails with
// ErrInvalidCapacity otherwise.
func (b *Builder) Exact() *Builder {
	b.opts.exact = true
	return b
}

// Participants sets how many goroutines may be attached to a wait-free
// ring at once. Ignored by BuildLockFree.
func (b *Builder) Participants(n int) *Builder {
	b.opts.participants = n
	return b
}

// Order returns the ring order the builder resolves its capacity to.
func (b *Builder) Order() (uint, error) {
	if b.opts.exact {
		return OrderOf(b.opts.capacity)
	}
	return OrderFor(b.opts.capacity)
}

// BuildLockFree creates an LFRing.
func (b *Builder) BuildLockFree() (*LFRing, error) {
	order, err := b.Order()
	if err != nil {
		return nil, err
	}
	return NewLFRing(order)
}

// BuildWaitFree creates a WFRing.
func (b *Builder) BuildWaitFree() (*WFRing, error) {
	order, err := b.Order()
	if err != nil {
		return nil, err
	}
	return NewWFRing(order, b.opts.participants)
}

// pad is cache line padding to prevent false sharing.
type pad cpu.CacheLinePad
