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

// Package ioengine implements the I/O completion core: a
// bounded worker pool draining a process-wide completion queue, routing
// each completion to its owning socket's handler and marking the socket
// for close-request if the handler errors, without taking the rest of the
// pool down with it.
//
// Go's net package already runs a runtime-integrated netpoller under
// every blocking Read/Write, so Engine does not re-implement a literal
// OS completion port (IOCP/epoll) underneath it — doing so would fight
// the scheduler rather than cooperate with it (the choice is recorded in
// this repo's DESIGN.md). Instead Engine models the contract: a configurable
// worker count, an explicit shutdown-sentinel handshake (N sentinels
// posted, one guaranteed per worker), and per-completion error routing.
package ioengine

import (
	"sync"

	libccy "github.com/nabbar/netcore/concurrency"
	libsck "github.com/nabbar/netcore/socket"
)

// Engine is the process-wide completion-queue worker pool.
type Engine struct {
	queue   chan libsck.Completion
	workers int
	wg      sync.WaitGroup
	metrics *Metrics
}

// New constructs an Engine with the given worker count (clamped to at
// least 1) and an optional Metrics collector (nil disables metrics).
func New(workers int, m *Metrics) *Engine {
	if workers < 1 {
		workers = 1
	}

	e := &Engine{
		queue:   make(chan libsck.Completion, 256),
		workers: workers,
		metrics: m,
	}

	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.loop(i)
	}

	return e
}

// loop is one completion worker. It binds its goroutine to workerID via
// concurrency.BindCallingThread, so a handler can read its worker id
// (0..N-1) back with concurrency.CallingThread; a goroutine that isn't a
// worker has no binding. MRSW locks do not read this binding: their
// callers pass the thread id explicitly.
func (e *Engine) loop(workerID int) {
	defer e.wg.Done()

	libccy.BindCallingThread(workerID)
	defer libccy.UnbindCallingThread()

	for {
		c := <-e.queue

		if c.Handle == nil {
			// Shutdown sentinel: at least one reaches each worker,
			// since Close posts exactly N.
			return
		}

		e.metrics.incInFlight()
		err := c.Handle()
		e.metrics.decInFlight()

		if err != nil {
			e.metrics.incErrors()
			if c.OnError != nil {
				c.OnError(err)
			}
			continue
		}

		e.metrics.incCompleted()
	}
}

// Submit hands c to the pool for asynchronous execution. Satisfies
// socket.Submitter.
func (e *Engine) Submit(c libsck.Completion) {
	e.metrics.incQueued()
	e.queue <- c
}

// Close posts one shutdown sentinel per worker and waits for every
// worker goroutine to drain its in-flight work and exit. It must not be
// called from a completion worker
// goroutine itself (self-deadlock with a single worker), mirroring the
// same constraint Socket.Close carries.
func (e *Engine) Close() {
	for i := 0; i < e.workers; i++ {
		e.queue <- libsck.Completion{}
	}
	e.wg.Wait()
}

// Workers returns the configured worker count.
func (e *Engine) Workers() int {
	return e.workers
}
