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

// Package concurrency provides the MRSW lock, signaled events, a
// goroutine-local calling-thread binding and a bounded-memory accountant
// that the rest of the module builds on.
package concurrency

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the runtime-assigned id of the calling goroutine by
// parsing the first line of its own stack trace. Go has no public API for
// this; every third-party "goroutine id" library (e.g. petermattis/goid)
// uses the same technique. It exists only to back BindCallingThread's
// convenience lookup — the MRSW lock's primary API always accepts an
// explicit thread id for correctness and speed.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}

	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// callingThread is the registry backing BindCallingThread/CallingThread: a
// goroutine-id -> assigned small-integer-id map, analogous to an OS
// OS thread-local storage slot holding a pointer to the owning runtime
// thread object.
var callingThread sync.Map // map[int64]int

// BindCallingThread records that the calling goroutine is worker id.
// Worker loops call this once, at startup, before touching any MRSW lock.
func BindCallingThread(id int) {
	callingThread.Store(goroutineID(), id)
}

// UnbindCallingThread removes the calling goroutine's binding. Worker loops
// call this on exit.
func UnbindCallingThread() {
	callingThread.Delete(goroutineID())
}

// CallingThread returns the id bound to the calling goroutine by
// BindCallingThread, and false if unbound (for example the main/process
// goroutine). MRSW does not consult this binding: its methods take the
// thread id as an explicit argument.
func CallingThread() (id int, bound bool) {
	v, ok := callingThread.Load(goroutineID())
	if !ok {
		return 0, false
	}
	return v.(int), true
}
