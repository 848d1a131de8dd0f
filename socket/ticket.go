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

package socket

import (
	"sync"
	"sync/atomic"
	"time"

	libccy "github.com/nabbar/netcore/concurrency"
	libsiz "github.com/nabbar/netcore/size"
)

// Flavor names a SendTicket's scatter-gather shape: raw is a
// single slice, prefix is [header, payload] (TCP length-prefix mode),
// postfix is [payload, trailer] (TCP postfix mode or a UDP header +
// payload pair). A ticket's flavor is inferred from its slice count
// alone: one slice is FlavorRaw, two slices are FlavorPostfix (so a
// two-slice prefix send also reports FlavorPostfix), and any other count
// is FlavorPrefix.
type Flavor uint8

const (
	FlavorRaw Flavor = iota
	FlavorPrefix
	FlavorPostfix
)

var ticketSeq uint64

// SendTicket represents one outstanding send: a
// scatter-gather list of borrowed byte slices, a completion event, and
// the byte count charged against the owning socket's tracker.
type SendTicket struct {
	id      uint64
	flavor  Flavor
	slices  [][]byte
	bytes   int
	async   bool
	done    *libccy.Event
	err     error
	errOnce sync.Once
}

func flavorOf(slices [][]byte) Flavor {
	switch len(slices) {
	case 1:
		return FlavorRaw
	case 2:
		return FlavorPostfix
	default:
		return FlavorPrefix
	}
}

func newTicket(slices [][]byte, async bool) *SendTicket {
	n := 0
	for _, b := range slices {
		n += len(b)
	}
	return &SendTicket{
		id:     atomic.AddUint64(&ticketSeq, 1),
		flavor: flavorOf(slices),
		slices: slices,
		bytes:  n,
		async:  async,
		done:   libccy.NewEvent(false),
	}
}

// ID uniquely identifies this ticket for the lifetime of its tracker
// (standing in for an overlapped-I/O pointer identity).
func (t *SendTicket) ID() uint64 { return t.id }

// Flavor reports the ticket's scatter-gather shape.
func (t *SendTicket) Flavor() Flavor { return t.flavor }

// Bytes returns the ticket's total payload size.
func (t *SendTicket) Bytes() int { return t.bytes }

func (t *SendTicket) finish(err error) {
	t.errOnce.Do(func() {
		t.err = err
		t.done.Set()
	})
}

// Wait blocks (up to timeout, <=0 forever) for the ticket to complete,
// returning its terminal error.
func (t *SendTicket) Wait(timeout time.Duration) (error, bool) {
	_, timedOut := t.done.Wait(timeout)
	if timedOut {
		return nil, false
	}
	return t.err, true
}

// SendTracker is the per-socket outstanding-send tracker:
// asynchronous sends are charged against a memory accountant and tracked
// by ticket id; blocking sends borrow the caller's buffers and are never
// added. Removing an id not present is silently ignored (resilience
// against spurious completions).
type SendTracker struct {
	mu      sync.Mutex
	pending map[uint64]*SendTicket
	account *libccy.Accountant
}

// NewSendTracker constructs a tracker capped at limit bytes of in-flight
// asynchronous send data (libsiz.SizeNul for unbounded).
func NewSendTracker(limit libsiz.Size) *SendTracker {
	return &SendTracker{
		pending: make(map[uint64]*SendTicket),
		account: libccy.NewAccountant(limit),
	}
}

// Add charges t's bytes against the accountant and registers it as
// outstanding. Only async tickets are charged; a blocking-send ticket
// borrows the caller's stack frame and is a no-op here.
func (s *SendTracker) Add(t *SendTicket) error {
	if !t.async {
		return nil
	}
	if err := s.account.Increase(libsiz.ParseInt(t.bytes)); err != nil {
		return err
	}
	s.mu.Lock()
	s.pending[t.id] = t
	s.mu.Unlock()
	return nil
}

// Remove releases the charge for ticket id, if it was tracked. Unknown
// ids are ignored.
func (s *SendTracker) Remove(id uint64) {
	s.mu.Lock()
	t, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if ok && t.async {
		s.account.Decrease(libsiz.ParseInt(t.bytes))
	}
}

// InFlight returns the number of currently outstanding asynchronous sends.
func (s *SendTracker) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Resident returns the bytes currently charged against the accountant.
func (s *SendTracker) Resident() libsiz.Size {
	return s.account.Current()
}

// Drain waits (up to timeout) for every currently-outstanding ticket to
// complete, used by Socket.Close's "wait for outstanding sends to drain"
// step.
func (s *SendTracker) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		var any *SendTicket
		for _, t := range s.pending {
			any = t
			break
		}
		s.mu.Unlock()

		remain := time.Until(deadline)
		if remain <= 0 {
			return
		}
		any.Wait(remain)
	}
}
