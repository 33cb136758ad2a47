// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfring"
	"github.com/schollz/progressbar/v3"
	"github.com/valyala/fastrand"
	"golang.org/x/sys/cpu"
)

// progressBatch is how many consumed values a worker accumulates before
// reporting them to the progress bar.
const progressBatch = 1024

// Run executes one stress run described by cfg.
//
// Producers enqueue (producer, sequence) values and retry with backoff
// while the ring is full. Consumers dequeue until production has stopped
// and the ring is drained, checking that each producer's values arrive in
// increasing order. Afterwards per-producer counts and checksums of
// everything consumed are compared with what was produced.
//
// Production stops after cfg.Items values per producer, when cfg.Duration
// elapses, or when ctx is canceled, whichever comes first. Correctness
// violations are recorded in the Report, not returned as errors.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rings, capacity, release, err := newRings(cfg)
	if err != nil {
		return nil, err
	}
	defer release()
	return run(ctx, cfg, capacity, rings)
}

// newRings builds one ring of cfg.Engine and returns a handle to it for
// every worker: the shared binding of a lock-free ring, or one attached
// State per worker of a wait-free ring.
func newRings(cfg Config) (rings []lfring.Ring, capacity int, release func(), err error) {
	workers := cfg.Producers + cfg.Consumers
	rings = make([]lfring.Ring, workers)

	if cfg.Engine == WaitFree {
		r, err := lfring.NewWFRing(cfg.Order, workers)
		if err != nil {
			return nil, 0, nil, err
		}
		states := make([]*lfring.State, 0, workers)
		release = func() {
			for _, s := range states {
				s.Detach()
			}
		}
		for i := range rings {
			s, err := r.Attach()
			if err != nil {
				release()
				return nil, 0, nil, err
			}
			states = append(states, s)
			rings[i] = s
		}
		return rings, r.Cap(), release, nil
	}

	r, err := lfring.NewLFRing(cfg.Order)
	if err != nil {
		return nil, 0, nil, err
	}
	q := r.Ring()
	for i := range rings {
		rings[i] = q
	}
	return rings, r.Cap(), func() {}, nil
}

// producerTally accumulates what one worker consumed from one producer.
// Sums wrap modulo 2^64 on both sides of the comparison.
type producerTally struct {
	count uint64
	sum   uint64
	sumsq uint64
}

// worker holds the state owned by one goroutine. It is read by Run only
// after the goroutine has finished.
type worker struct {
	produced uint64
	consumed int64
	full     int64
	empty    int64
	pending  int64

	last    []int64
	tallies []producerTally
	bad     []string
	badN    int
	pinErr  error
	_       cpu.CacheLinePad
}

func newWorker(producers int) *worker {
	w := &worker{
		last:    make([]int64, producers),
		tallies: make([]producerTally, producers),
	}
	for i := range w.last {
		w.last[i] = -1
	}
	return w
}

// observe checks one dequeued value against the per-producer order this
// worker has seen so far.
func (w *worker) observe(v uint64) {
	w.consumed++
	w.pending++
	p, seq := decode(v)
	if p >= len(w.last) {
		w.violate("value %#x from unknown producer %d", v, p)
		return
	}
	if int64(seq) <= w.last[p] {
		w.violate("producer %d: sequence %d dequeued after %d", p, seq, w.last[p])
	}
	w.last[p] = int64(seq)
	t := &w.tallies[p]
	t.count++
	t.sum += seq
	t.sumsq += seq * seq
}

func (w *worker) violate(format string, args ...any) {
	w.badN++
	if len(w.bad) < maxViolations {
		w.bad = append(w.bad, fmt.Sprintf(format, args...))
	}
}

type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(cfg Config) progress {
	if cfg.Progress == nil {
		return progress{}
	}
	total := int64(-1)
	if cfg.Items > 0 {
		total = int64(cfg.Producers) * int64(cfg.Items)
	}
	return progress{bar: progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(cfg.Progress),
		progressbar.OptionSetDescription(cfg.Engine.String()),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)}
}

func (p progress) flush(w *worker) {
	if p.bar != nil && w.pending > 0 {
		_ = p.bar.Add64(w.pending)
	}
	w.pending = 0
}

func (p progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func run(ctx context.Context, cfg Config, capacity int, rings []lfring.Ring) (*Report, error) {
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var stop, producersDone atomix.Bool
	unwatch := context.AfterFunc(ctx, func() { stop.Store(true) })
	defer unwatch()

	limit := uint64(MaxItems)
	if cfg.Items > 0 {
		limit = uint64(cfg.Items)
	}
	bar := newProgress(cfg)
	workers := make([]*worker, len(rings))
	for i := range workers {
		workers[i] = newWorker(cfg.Producers)
	}

	start := time.Now()
	var prodWg, consWg sync.WaitGroup

	// Consumers (start first)
	for i := cfg.Producers; i < len(rings); i++ {
		q, w := rings[i], workers[i]
		consWg.Add(1)
		go func() {
			defer consWg.Done()
			if cfg.Pin {
				w.pinErr = pin(i)
			}
			backoff := iox.Backoff{}
			for {
				done := producersDone.Load()
				v, err := q.Dequeue()
				if err == nil {
					backoff.Reset()
					w.observe(v)
					if w.pending >= progressBatch {
						bar.flush(w)
					}
					continue
				}
				if done {
					bar.flush(w)
					return
				}
				w.empty++
				backoff.Wait()
			}
		}()
	}

	// Producers
	for p := range cfg.Producers {
		q, w := rings[p], workers[p]
		prodWg.Add(1)
		go func() {
			defer prodWg.Done()
			if cfg.Pin {
				w.pinErr = pin(p)
			}
			backoff := iox.Backoff{}
			var seq uint64
			for seq < limit && !stop.Load() {
				if cfg.Mixed && fastrand.Uint32n(4) == 0 {
					if v, err := q.Dequeue(); err == nil {
						w.observe(v)
					} else {
						w.empty++
					}
					continue
				}
				if err := q.Enqueue(encode(p, seq)); err != nil {
					w.full++
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seq++
			}
			w.produced = seq
			bar.flush(w)
		}()
	}

	prodWg.Wait()
	producersDone.Store(true)
	consWg.Wait()
	elapsed := time.Since(start)
	bar.finish()

	rep := &Report{
		Engine:    cfg.Engine,
		Order:     cfg.Order,
		Capacity:  capacity,
		Producers: cfg.Producers,
		Consumers: cfg.Consumers,
		Mixed:     cfg.Mixed,
		Pinned:    cfg.Pin,
		Elapsed:   elapsed,
		Host:      GatherHost(),
	}
	var pinErrs []error
	for _, w := range workers {
		rep.Produced += int64(w.produced)
		rep.Consumed += w.consumed
		rep.Full += w.full
		rep.Empty += w.empty
		rep.ViolationCount += w.badN - len(w.bad)
		for _, v := range w.bad {
			rep.violate("%s", v)
		}
		if w.pinErr != nil {
			pinErrs = append(pinErrs, w.pinErr)
		}
	}
	if elapsed > 0 {
		rep.Throughput = float64(rep.Consumed) / elapsed.Seconds()
	}
	verify(rep, workers[:cfg.Producers], workers)

	if err := errors.Join(pinErrs...); err != nil {
		return rep, fmt.Errorf("stress: pin workers: %w", err)
	}
	return rep, nil
}

// verify compares, per producer, the count and checksums of everything
// consumed with the sequences 0..n-1 that producer enqueued.
func verify(rep *Report, producers, workers []*worker) {
	for p, pw := range producers {
		var got producerTally
		for _, w := range workers {
			t := w.tallies[p]
			got.count += t.count
			got.sum += t.sum
			got.sumsq += t.sumsq
		}
		want := expectedTally(pw.produced)
		switch {
		case got.count < want.count:
			rep.violate("producer %d: lost %d of %d values", p, want.count-got.count, want.count)
		case got.count > want.count:
			rep.violate("producer %d: %d values consumed, %d produced", p, got.count, want.count)
		case got != want:
			rep.violate("producer %d: checksum mismatch", p)
		}
	}
}

// expectedTally returns the tally of the sequence 0..n-1.
func expectedTally(n uint64) producerTally {
	if n == 0 {
		return producerTally{}
	}
	a := n * (n - 1) / 2
	b := 2*n - 1
	// a*b is divisible by 3, so one factor is.
	var sumsq uint64
	if a%3 == 0 {
		sumsq = a / 3 * b
	} else {
		sumsq = b / 3 * a
	}
	return producerTally{count: n, sum: a, sumsq: sumsq}
}
