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

import (
	"sync/atomic"
	"time"
)

// Handle is a future/promise pair standing in for a manual
// free-on-whoever-finishes-last protocol: Go's
// garbage collector already makes "who frees the message" moot, so Handle
// only needs to make "is the latest posted message done yet" observable.
type Handle struct {
	msg  Message
	done chan struct{}
}

func newHandle(msg Message) *Handle {
	return &Handle{msg: msg, done: make(chan struct{})}
}

// Finished reports whether the worker has finished running this message.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the message finishes or timeout elapses (<=0 waits
// forever).
func (h *Handle) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-h.done
		return true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-h.done:
		return true
	case <-t.C:
		return false
	}
}

type keepLastMsg struct {
	inner Message
	done  chan struct{}
}

func (m *keepLastMsg) TakeAction() {
	m.inner.TakeAction()
	close(m.done)
}

// KeepLast coalesces posts so only the latest Handle stays observable
// to the poster. There is no explicit free step — Go's GC reclaims a
// finished message once its Handle is dropped — but the "latest handle
// always reflects the most recently posted message" contract holds.
type KeepLast struct {
	single *Single
	last   atomic.Pointer[Handle]
}

// NewKeepLast starts a worker goroutine with keep-last coalescing.
func NewKeepLast(threadID int, capacity int) *KeepLast {
	return &KeepLast{single: NewSingle(threadID, capacity)}
}

// Post enqueues msg and returns a Handle tracking its completion. The
// Handle also becomes the KeepLast's "last posted" handle, superseding
// whatever handle Post last returned.
func (k *KeepLast) Post(msg Message) *Handle {
	h := newHandle(msg)
	k.last.Store(h)
	k.single.Post(&keepLastMsg{inner: msg, done: h.done})
	return h
}

// Last returns the handle for the most recently posted message, or nil if
// nothing has been posted yet.
func (k *KeepLast) Last() *Handle {
	return k.last.Load()
}

// IsLastOperationFinished reports whether the most recently posted message
// has finished running. It returns true (vacuously) if nothing was ever
// posted.
func (k *KeepLast) IsLastOperationFinished() bool {
	h := k.Last()
	if h == nil {
		return true
	}
	return h.Finished()
}

// Stop shuts down the backing worker.
func (k *KeepLast) Stop() {
	k.single.Stop()
}
