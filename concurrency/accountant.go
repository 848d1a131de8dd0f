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

package concurrency

import (
	"sync/atomic"

	libsiz "github.com/nabbar/netcore/size"
)

// MemoryLimitExceeded is returned by Accountant.Increase when the requested
// increase would push the accountant's total past its configured cap.
type MemoryLimitExceeded struct {
	Limit   libsiz.Size
	Current libsiz.Size
	Request libsiz.Size
}

func (e *MemoryLimitExceeded) Error() string {
	return "memory limit exceeded: current=" + e.Current.String() +
		" request=" + e.Request.String() + " limit=" + e.Limit.String()
}

// Accountant is a bounded-memory usage tracker. Increase fails with
// MemoryLimitExceeded if
// current+n would exceed the configured limit. A zero-value limit means
// unbounded, the default.
type Accountant struct {
	current int64
	limit   int64 // 0 == unbounded
}

// NewAccountant constructs an Accountant capped at limit bytes. A limit of
// zero means unbounded.
func NewAccountant(limit libsiz.Size) *Accountant {
	return &Accountant{limit: limit.Int64()}
}

// Increase charges n bytes against the accountant. It fails with
// MemoryLimitExceeded (without mutating the running total) if the limit
// would be exceeded.
func (a *Accountant) Increase(n libsiz.Size) error {
	if a == nil {
		return nil
	}

	add := n.Int64()
	limit := atomic.LoadInt64(&a.limit)

	for {
		cur := atomic.LoadInt64(&a.current)
		next := cur + add

		if limit > 0 && next > limit {
			return &MemoryLimitExceeded{
				Limit:   libsiz.ParseInt64(limit),
				Current: libsiz.ParseInt64(cur),
				Request: n,
			}
		}

		if atomic.CompareAndSwapInt64(&a.current, cur, next) {
			return nil
		}
	}
}

// Decrease releases n bytes from the accountant, clamping at zero.
func (a *Accountant) Decrease(n libsiz.Size) {
	if a == nil {
		return
	}

	sub := n.Int64()

	for {
		cur := atomic.LoadInt64(&a.current)
		next := cur - sub
		if next < 0 {
			next = 0
		}
		if atomic.CompareAndSwapInt64(&a.current, cur, next) {
			return
		}
	}
}

// Current returns the currently-charged byte count.
func (a *Accountant) Current() libsiz.Size {
	if a == nil {
		return 0
	}
	return libsiz.ParseInt64(atomic.LoadInt64(&a.current))
}

// Limit returns the configured cap, or zero for unbounded.
func (a *Accountant) Limit() libsiz.Size {
	if a == nil {
		return 0
	}
	return libsiz.ParseInt64(atomic.LoadInt64(&a.limit))
}

// SetLimit reconfigures the cap at runtime.
func (a *Accountant) SetLimit(limit libsiz.Size) {
	if a == nil {
		return
	}
	atomic.StoreInt64(&a.limit, limit.Int64())
}
