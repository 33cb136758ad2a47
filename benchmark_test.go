// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfring_test

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfring"
	"code.hybscloud.com/spin"
	ring "github.com/randomizedcoder/go-lock-free-ring"
)

// =============================================================================
// Single-Goroutine Baselines
// =============================================================================

func BenchmarkLFRing_SingleOp(b *testing.B) {
	r, _ := lfring.NewLFRing(10)

	b.ResetTimer()
	for i := range b.N {
		r.Enqueue(uint64(i))
		r.Dequeue()
	}
}

func BenchmarkWFRing_SingleOp(b *testing.B) {
	for _, nonempty := range []bool{false, true} {
		b.Run(fmt.Sprintf("nonempty=%t", nonempty), func(b *testing.B) {
			r, _ := lfring.NewWFRing(10, 1)
			s, _ := r.Attach()

			b.ResetTimer()
			for i := range b.N {
				r.Enqueue(s, uint64(i), nonempty)
				r.Dequeue(s, nonempty)
			}
		})
	}
}

// BenchmarkWFRing_Participants measures the helping scan, which grows with
// the number of participant slots even when only one is active.
func BenchmarkWFRing_Participants(b *testing.B) {
	for _, n := range []int{1, 8, 64, 256} {
		b.Run(fmt.Sprintf("P%d", n), func(b *testing.B) {
			r, _ := lfring.NewWFRing(10, n)
			s, _ := r.Attach()

			b.ResetTimer()
			for i := range b.N {
				r.Enqueue(s, uint64(i), true)
				r.Dequeue(s, true)
			}
		})
	}
}

func BenchmarkRing_SingleOp(b *testing.B) {
	r, _ := lfring.NewLFRing(10)
	q := r.Ring()

	b.ResetTimer()
	for i := range b.N {
		q.Enqueue(uint64(i))
		q.Dequeue()
	}
}

func BenchmarkQueue_SingleOp(b *testing.B) {
	q := lfring.NewQueue[int](1024)

	b.ResetTimer()
	for i := range b.N {
		v := i
		q.Enqueue(&v)
		q.Dequeue()
	}
}

// =============================================================================
// Contention
// =============================================================================

// runContention moves b.N values from producers to consumers through rings
// handed out by next, one per goroutine.
func runContention(b *testing.B, next func() lfring.Ring, numProducers, numConsumers int) {
	opsPerProducer := b.N / numProducers
	if opsPerProducer < 1 {
		opsPerProducer = 1
	}

	producers := make([]lfring.Ring, numProducers)
	for i := range producers {
		producers[i] = next()
	}
	consumers := make([]lfring.Ring, numConsumers)
	for i := range consumers {
		consumers[i] = next()
	}

	b.ResetTimer()

	var producerWg sync.WaitGroup
	var consumerWg sync.WaitGroup

	// Consumers (start first)
	done := make(chan struct{})
	for _, q := range consumers {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			sw := spin.Wait{}
			for {
				select {
				case <-done:
					for {
						if _, err := q.Dequeue(); err != nil {
							return
						}
					}
				default:
					if _, err := q.Dequeue(); err == nil {
						sw.Reset()
					} else {
						sw.Once()
					}
				}
			}
		}()
	}

	// Producers
	for id, q := range producers {
		producerWg.Add(1)
		go func() {
			defer producerWg.Done()
			sw := spin.Wait{}
			base := uint64(id * opsPerProducer)
			for i := range opsPerProducer {
				for q.Enqueue(base+uint64(i)) != nil {
					sw.Once()
				}
				sw.Reset()
			}
		}()
	}

	producerWg.Wait()
	close(done)
	consumerWg.Wait()
}

func BenchmarkContentionLevels(b *testing.B) {
	workerCounts := []int{2, 4, 8, 16}

	for _, f := range factories {
		for _, workers := range workerCounts {
			b.Run(fmt.Sprintf("%s/Workers%d", f.name, workers), func(b *testing.B) {
				numProducers := max(workers/2, 1)
				numConsumers := max(workers-numProducers, 1)
				next := f.make(b, 10, numProducers+numConsumers)
				runContention(b, next, numProducers, numConsumers)
			})
		}
	}
}

func BenchmarkContention_GOMAXPROCS(b *testing.B) {
	n := max(runtime.GOMAXPROCS(0)/2, 1)
	for _, f := range factories {
		b.Run(f.name, func(b *testing.B) {
			next := f.make(b, 12, 2*n)
			runContention(b, next, n, n)
		})
	}
}

// =============================================================================
// go-lock-free-ring Comparison
// =============================================================================

// The sharded ring is multi-producer single-consumer, so these compare
// against the same shape: N producers, one consumer.

const shards = 4

func BenchmarkMPSC_ShardedRing(b *testing.B) {
	for _, producers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("%dP", producers), func(b *testing.B) {
			r, _ := ring.NewShardedRing(1024, shards)
			done := make(chan struct{})
			consumerDone := make(chan struct{})

			go func() {
				defer close(consumerDone)
				for {
					select {
					case <-done:
						return
					default:
						r.TryRead()
					}
				}
			}()

			var producerID atomix.Uint64
			b.SetParallelism(producers)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				pid := (producerID.Add(1) - 1) % shards
				i := 0
				for pb.Next() {
					for !r.Write(pid, i) {
					}
					i++
				}
			})

			b.StopTimer()
			close(done)
			<-consumerDone
		})
	}
}

func BenchmarkMPSC_LFRing(b *testing.B) {
	for _, producers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("%dP", producers), func(b *testing.B) {
			r, _ := lfring.NewLFRing(10)
			done := make(chan struct{})
			consumerDone := make(chan struct{})

			go func() {
				defer close(consumerDone)
				for {
					select {
					case <-done:
						return
					default:
						r.Dequeue()
					}
				}
			}()

			b.SetParallelism(producers)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				var i uint64
				for pb.Next() {
					for !r.Enqueue(i) {
					}
					i++
				}
			})

			b.StopTimer()
			close(done)
			<-consumerDone
		})
	}
}

func BenchmarkMPSC_WFRing(b *testing.B) {
	for _, producers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("%dP", producers), func(b *testing.B) {
			// SetParallelism multiplies by GOMAXPROCS.
			participants := producers*runtime.GOMAXPROCS(0) + 1
			if participants > lfring.MaxParticipants {
				b.Skipf("%d participants exceed MaxParticipants", participants)
			}
			r, _ := lfring.NewWFRing(10, participants)
			done := make(chan struct{})
			consumerDone := make(chan struct{})

			go func() {
				defer close(consumerDone)
				s, _ := r.Attach()
				defer s.Detach()
				for {
					select {
					case <-done:
						return
					default:
						r.Dequeue(s, false)
					}
				}
			}()

			b.SetParallelism(producers)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				s, err := r.Attach()
				if err != nil {
					b.Error(err)
					return
				}
				defer s.Detach()
				var i uint64
				for pb.Next() {
					for !r.Enqueue(s, i, false) {
					}
					i++
				}
			})

			b.StopTimer()
			close(done)
			<-consumerDone
		})
	}
}
