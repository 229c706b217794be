// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrKernelPanic is reported by events whose kernel panicked.
var ErrKernelPanic = errors.New("device: kernel panic")

// Config controls how kernels split elementwise work.
type Config struct {
	Enabled      bool // Whether kernels may fan out to several goroutines.
	NumWorkers   int  // Number of goroutines used by For.
	MinChunkSize int  // Minimum items per goroutine.
}

// DefaultConfig returns defaults based on the CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Queue executes kernels asynchronously once their dependencies complete.
// Ordering between kernels is expressed only through dependency lists:
// two kernels without a dependency path may run concurrently.
type Queue struct {
	cfg      Config
	features Features
	pending  sync.WaitGroup
}

// NewQueue creates a queue. A zero Config selects DefaultConfig.
func NewQueue(cfg Config) *Queue {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	cfg.NumWorkers = max(cfg.NumWorkers, 1)
	cfg.MinChunkSize = max(cfg.MinChunkSize, 1)
	return &Queue{cfg: cfg, features: DetectFeatures()}
}

// Default returns a queue using DefaultConfig.
func Default() *Queue {
	return NewQueue(DefaultConfig())
}

// Features returns the features of the host backing the queue.
func (q *Queue) Features() Features {
	return q.features
}

// Config returns the queue configuration.
func (q *Queue) Config() Config {
	return q.cfg
}

// Submit schedules kernel after every event in deps. If a dependency fails the
// kernel is skipped and the returned event carries the dependency error.
func (q *Queue) Submit(deps Events, kernel func() error) *Event {
	ev := newEvent()
	q.pending.Add(1)
	go func() {
		defer q.pending.Done()
		if err := deps.Wait(); err != nil {
			ev.complete(err)
			return
		}
		ev.complete(run(kernel))
	}()
	return ev
}

func run(kernel func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrKernelPanic, r)
		}
	}()
	return kernel()
}

// Drain blocks until every submitted kernel finished.
func (q *Queue) Drain() {
	q.pending.Wait()
}

// For executes f over [0, n) split into contiguous chunks, in parallel when
// the configuration allows it. It is meant to be called from inside kernels.
func (q *Queue) For(n int, f func(lo, hi int)) {
	cfg := q.cfg
	if !cfg.Enabled || cfg.NumWorkers == 1 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}
