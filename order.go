// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring

import (
	"fmt"
	"math/bits"
)

const (
	// MinOrder is the smallest supported ring order (capacity 1).
	MinOrder = 0
	// MaxOrder is the largest supported ring order (capacity 1<<28).
	MaxOrder = 28
)

// Empty is returned by Dequeue when the ring holds no element.
// It is never a legal payload.
const Empty = ^uint64(0)

// Size returns the capacity of a ring of the given order: 1 << order.
func Size(order uint) int {
	return 1 << order
}

// OrderOf returns the order of capacity, which must be a power of two
// within [Size(MinOrder), Size(MaxOrder)].
func OrderOf(capacity int) (uint, error) {
	if capacity < 1 || capacity&(capacity-1) != 0 {
		return 0, fmt.Errorf("%w: %d is not a power of two", ErrInvalidCapacity, capacity)
	}
	order := uint(bits.TrailingZeros(uint(capacity)))
	if err := checkOrder(order); err != nil {
		return 0, err
	}
	return order, nil
}

// OrderFor returns the smallest order whose capacity is at least capacity.
func OrderFor(capacity int) (uint, error) {
	if capacity < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	order := uint(bits.Len(uint(capacity - 1)))
	if err := checkOrder(order); err != nil {
		return 0, err
	}
	return order, nil
}

func checkOrder(order uint) error {
	if order > MaxOrder {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidOrder, order, MaxOrder)
	}
	return nil
}

// cursor splits an unbounded ring position into slot index and generation.
// Both engines share it; it holds no state beyond the ring geometry.
type cursor struct {
	order uint
	mask  uint64
}

func newCursor(order uint) cursor {
	return cursor{order: order, mask: 1<<order - 1}
}

func (c cursor) index(pos uint64) uint64 {
	return pos & c.mask
}

func (c cursor) generation(pos uint64) uint64 {
	return pos >> c.order
}

// position rebuilds the cursor of slot idx at generation gen.
func (c cursor) position(idx, gen uint64) uint64 {
	return gen<<c.order | idx
}

// sameTag reports whether two generations agree on their low width bits.
func sameTag(a, b uint64, width uint) bool {
	m := uint64(1)<<width - 1
	return a&m == b&m
}
