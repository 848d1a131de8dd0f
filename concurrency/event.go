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
	"sync"
	"time"
)

// Event is a binary signaled event with manual-reset and auto-reset
// flavors. It is implemented on a buffered channel of capacity
// one: Set sends a value (non-blocking if already signaled), Reset drains
// it, and Wait receives with an optional timeout.
type Event struct {
	mu   sync.Mutex
	ch   chan struct{}
	auto bool
}

// NewEvent constructs an Event. When autoReset is true, a successful Wait
// implicitly resets the event (auto-reset semantics); otherwise the event
// stays signaled until Reset is called explicitly (manual-reset).
func NewEvent(autoReset bool) *Event {
	return &Event{
		ch:   make(chan struct{}, 1),
		auto: autoReset,
	}
}

// Set signals the event. Idempotent: signaling an already-signaled event
// is a no-op.
func (e *Event) Set() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Reset clears the signaled state.
func (e *Event) Reset() {
	select {
	case <-e.ch:
	default:
	}
}

// Wait blocks until the event is signaled or timeout elapses (timeout <= 0
// means wait forever). It returns signaled=true if the event fired,
// timedOut=true if the deadline passed first.
func (e *Event) Wait(timeout time.Duration) (signaled bool, timedOut bool) {
	if timeout <= 0 {
		<-e.ch
		if e.auto {
			return true, false
		}
		// manual reset: put the signal back so other waiters also observe it.
		e.Set()
		return true, false
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-e.ch:
		if !e.auto {
			e.Set()
		}
		return true, false
	case <-t.C:
		return false, true
	}
}

// IsSignaled reports whether the event is currently signaled, without
// consuming or resetting it (best-effort, racy by nature of the primitive
// it models).
func (e *Event) IsSignaled() bool {
	select {
	case v := <-e.ch:
		e.ch <- v
		return true
	default:
		return false
	}
}
