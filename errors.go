// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Enqueue: the ring is full (backpressure)
// For Dequeue: the ring is empty (no data available)
//
// ErrWouldBlock is a control flow signal, not a failure. It is only
// returned by the [Ring] binding surface; the engines themselves report
// full and empty as plain results (false and [Empty]).
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

var (
	// ErrInvalidOrder is returned when a ring order is outside
	// [MinOrder, MaxOrder].
	ErrInvalidOrder = errors.New("lfring: invalid order")

	// ErrInvalidCapacity is returned when a capacity cannot be
	// represented as a ring size.
	ErrInvalidCapacity = errors.New("lfring: invalid capacity")

	// ErrInvalidParticipants is returned when a wait-free ring is
	// configured with fewer than 1 or more than MaxParticipants
	// participants.
	ErrInvalidParticipants = errors.New("lfring: invalid participant count")

	// ErrNoParticipant is returned by Attach when every participant slot
	// of a wait-free ring is in use.
	ErrNoParticipant = errors.New("lfring: no free participant slot")
)

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
