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

import "sync"

// MRSW is a multi-reader/single-writer lock with per-thread reentrance,
// with per-thread reentrance. Threads are identified by a small integer assigned
// externally (by the caller, not by the OS) — workers get 0..N-1 and the
// main/process goroutine is conventionally assigned N, one past the last
// worker id, so the main thread always has a valid identity too.
//
// A thread that already holds the write lock may call EnterRead freely
// (writer-can-read). A thread that holds only the read lock may upgrade to
// the write lock iff no other thread currently holds a read lock.
type MRSW struct {
	mu    sync.Mutex
	cond  *sync.Cond
	depth map[int]*mrswDepth // per-thread read/write depth counters
	wDepth int               // total outstanding write depth (0 or >0), held by writerID
	writerID int
	writerSet bool
}

type mrswDepth struct {
	read  int
	write int
}

// NewMRSW constructs an empty MRSW lock.
func NewMRSW() *MRSW {
	l := &MRSW{depth: make(map[int]*mrswDepth)}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *MRSW) entry(id int) *mrswDepth {
	d, ok := l.depth[id]
	if !ok {
		d = &mrswDepth{}
		l.depth[id] = d
	}
	return d
}

// totalReaders sums read depth across all threads except excludeID (used to
// let a thread's own reentrant read/write not block itself).
func (l *MRSW) totalReaders(excludeID int) int {
	n := 0
	for id, d := range l.depth {
		if id == excludeID {
			continue
		}
		n += d.read
	}
	return n
}

func (l *MRSW) anyWriterOtherThan(id int) bool {
	return l.writerSet && l.writerID != id
}

// EnterRead acquires a read lock for threadID. Reentrant: a thread already
// holding the write lock, or already holding a read lock, may call this
// again without blocking on itself.
func (l *MRSW) EnterRead(threadID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.entry(threadID)

	// already holds write: read is implicitly granted, just bump depth.
	if d.write > 0 {
		d.read++
		return
	}

	for l.anyWriterOtherThan(threadID) {
		l.cond.Wait()
	}

	d.read++
}

// LeaveRead releases one level of read lock held by threadID.
func (l *MRSW) LeaveRead(threadID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.entry(threadID)
	if d.read > 0 {
		d.read--
	}
	l.cond.Broadcast()
}

// EnterWrite acquires the write lock for threadID, blocking until all other
// threads' read (and write) depths reach zero. A thread already holding a
// read lock may upgrade to write iff no other thread currently reads.
func (l *MRSW) EnterWrite(threadID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.entry(threadID)

	// already the writer: reentrant write.
	if l.writerSet && l.writerID == threadID {
		d.write++
		return
	}

	for l.anyWriterOtherThan(threadID) || l.totalReaders(threadID) > 0 {
		l.cond.Wait()
	}

	l.writerSet = true
	l.writerID = threadID
	d.write++
}

// LeaveWrite releases one level of write lock held by threadID.
func (l *MRSW) LeaveWrite(threadID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.entry(threadID)
	if d.write > 0 {
		d.write--
	}
	if d.write == 0 && l.writerSet && l.writerID == threadID {
		l.writerSet = false
	}
	l.cond.Broadcast()
}
