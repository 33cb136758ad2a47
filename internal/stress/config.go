// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress drives lfring rings with concurrent producers and
// consumers and verifies what comes out against what went in.
package stress

import (
	"errors"
	"fmt"
	"io"
	"time"

	"code.hybscloud.com/lfring"
)

// Engine selects the ring implementation under test.
type Engine string

const (
	LockFree Engine = "lf"
	WaitFree Engine = "wf"
)

// Engines lists every engine in a stable order.
var Engines = []Engine{LockFree, WaitFree}

// ParseEngine maps a command-line name to an Engine.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case LockFree, WaitFree:
		return Engine(s), nil
	}
	return "", fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, s)
}

func (e Engine) String() string {
	switch e {
	case LockFree:
		return "lock-free"
	case WaitFree:
		return "wait-free"
	}
	return string(e)
}

// Values are encoded as producer<<seqBits | seq, which fits MaxValue.
const (
	seqBits      = 32
	seqMask      = 1<<seqBits - 1
	MaxProducers = 256
	MaxItems     = 1 << 30
)

// ErrInvalidConfig reports a Config that cannot be run.
var ErrInvalidConfig = errors.New("stress: invalid config")

// Config describes one stress run.
type Config struct {
	Engine    Engine
	Order     uint
	Producers int
	Consumers int

	// Items is the number of values each producer enqueues. Zero means
	// produce until Duration elapses.
	Items int

	// Duration bounds the production phase. Zero means no time limit.
	Duration time.Duration

	// Mixed makes producers also dequeue, picking at random.
	Mixed bool

	// Pin locks each worker to an OS thread bound to one CPU.
	Pin bool

	// Progress receives a progress bar when non-nil.
	Progress io.Writer
}

// DefaultConfig returns a small lock-free run.
func DefaultConfig() Config {
	return Config{
		Engine:    LockFree,
		Order:     10,
		Producers: 4,
		Consumers: 4,
		Items:     100_000,
	}
}

// Validate reports whether c can be run.
func (c Config) Validate() error {
	if _, err := ParseEngine(string(c.Engine)); err != nil {
		return err
	}
	if c.Order > lfring.MaxOrder {
		return fmt.Errorf("%w: order %d > %d", ErrInvalidConfig, c.Order, lfring.MaxOrder)
	}
	if c.Producers < 1 || c.Producers > MaxProducers {
		return fmt.Errorf("%w: producers %d not in [1, %d]", ErrInvalidConfig, c.Producers, MaxProducers)
	}
	if c.Consumers < 1 {
		return fmt.Errorf("%w: consumers %d < 1", ErrInvalidConfig, c.Consumers)
	}
	if c.Engine == WaitFree && c.Producers+c.Consumers > lfring.MaxParticipants {
		return fmt.Errorf("%w: %d workers exceed %d participants", ErrInvalidConfig,
			c.Producers+c.Consumers, lfring.MaxParticipants)
	}
	if c.Items < 0 || c.Items > MaxItems {
		return fmt.Errorf("%w: items %d not in [0, %d]", ErrInvalidConfig, c.Items, MaxItems)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	if c.Items == 0 && c.Duration == 0 {
		return fmt.Errorf("%w: items or duration required", ErrInvalidConfig)
	}
	return nil
}

func encode(producer int, seq uint64) uint64 {
	return uint64(producer)<<seqBits | seq
}

func decode(v uint64) (producer int, seq uint64) {
	return int(v >> seqBits), v & seqMask
}
