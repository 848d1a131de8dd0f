/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package worker

import "sync"

// Pool is a fixed-size set of Single workers, one per partition, used by
// classes that need N worker goroutines for fan-out work (aescipher's
// parallel block dispatch is the resident user).
type Pool struct {
	workers []*Single
}

// Dispatch posts msg to worker i (i must be in [0, Size())).
func (p *Pool) Dispatch(i int, msg Message) {
	p.workers[i].Post(msg)
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

func newPool(classIndex, n int) *Pool {
	p := &Pool{workers: make([]*Single, n)}
	for i := 0; i < n; i++ {
		p.workers[i] = NewSingle(classIndex*1000+i, 4)
	}
	return p
}

func (p *Pool) stop() {
	for _, w := range p.workers {
		w.Stop()
	}
}

// SharedPool is the class-shared pool registry: classes acquire a
// refcounted Pool by class index, getting N worker goroutines; the pool
// is constructed on first acquire and torn down when the last user
// releases it.
type SharedPool struct {
	mu    sync.Mutex
	pools map[int]*sharedEntry
}

type sharedEntry struct {
	pool *Pool
	refs int
}

// NewSharedPool constructs an empty registry.
func NewSharedPool() *SharedPool {
	return &SharedPool{pools: make(map[int]*sharedEntry)}
}

// defaultShared is the package-level registry used by callers that don't
// need an isolated registry (most callers share the single process-wide
// registry keyed by class index).
var defaultShared = NewSharedPool()

// DefaultSharedPool returns the package-level SharedPool registry.
func DefaultSharedPool() *SharedPool {
	return defaultShared
}

// Acquire returns the Pool registered under classIndex, creating it with n
// workers if this is the first acquire, and incrementing its refcount.
// Subsequent acquires with a different n are ignored (size is fixed at
// first acquire) — constructed on first user,
// contract.
func (s *SharedPool) Acquire(classIndex int, n int) *Pool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pools[classIndex]
	if !ok {
		if n < 1 {
			n = 1
		}
		e = &sharedEntry{pool: newPool(classIndex, n)}
		s.pools[classIndex] = e
	}
	e.refs++
	return e.pool
}

// Release decrements the refcount for classIndex, stopping and removing the
// pool once the last user releases it.
func (s *SharedPool) Release(classIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pools[classIndex]
	if !ok {
		return
	}

	e.refs--
	if e.refs <= 0 {
		delete(s.pools, classIndex)
		e.pool.stop()
	}
}
