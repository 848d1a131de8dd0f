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
	"sync"
	"sync/atomic"

	libccy "github.com/nabbar/netcore/concurrency"
)

// Single is one goroutine servicing one inbound mailbox, in posting
// order, until a Shutdown message is both received and the mailbox is
// empty; pending work always runs before the worker exits.
type Single struct {
	mailbox   chan Message
	terminate int32
	done      chan struct{}
	once      sync.Once
	threadID  int
}

// NewSingle starts a worker goroutine bound to threadID via
// concurrency.BindCallingThread (readable with concurrency.CallingThread;
// MRSW locks take their thread id explicitly) with a mailbox of the given
// capacity.
func NewSingle(threadID int, capacity int) *Single {
	if capacity < 1 {
		capacity = 1
	}

	s := &Single{
		mailbox:  make(chan Message, capacity),
		done:     make(chan struct{}),
		threadID: threadID,
	}

	go s.loop()

	return s
}

func (s *Single) loop() {
	libccy.BindCallingThread(s.threadID)
	defer libccy.UnbindCallingThread()
	defer close(s.done)

	for {
		msg := <-s.mailbox

		if _, ok := msg.(shutdown); ok {
			atomic.StoreInt32(&s.terminate, 1)
		} else {
			msg.TakeAction()
		}

		if atomic.LoadInt32(&s.terminate) == 1 && len(s.mailbox) == 0 {
			return
		}
	}
}

// Post enqueues msg on the mailbox. It blocks if the mailbox is full.
func (s *Single) Post(msg Message) {
	s.mailbox <- msg
}

// TryPost enqueues msg without blocking; it returns false if the mailbox is
// full.
func (s *Single) TryPost(msg Message) bool {
	select {
	case s.mailbox <- msg:
		return true
	default:
		return false
	}
}

// Stop posts a Shutdown message and waits for the worker goroutine to
// drain its mailbox and exit. Safe to call multiple times.
func (s *Single) Stop() {
	s.once.Do(func() {
		s.mailbox <- shutdown{}
	})
	<-s.done
}

// TerminateRequested reports whether Stop has been called. It does not by
// itself mean the mailbox is empty — see the termination contract above.
func (s *Single) TerminateRequested() bool {
	return atomic.LoadInt32(&s.terminate) == 1
}
