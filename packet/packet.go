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

// Package packet implements the framed packet engine: a
// mutable byte buffer with cursor semantics, width-normalized integer
// encoding, in-place insertion/erasure, and a memory-recycling pool.
package packet

import (
	"errors"
)

var (
	// ErrBorrowed is returned by operations that would reallocate or free
	// externally-borrowed storage.
	ErrBorrowed = errors.New("packet: buffer is borrowed, cannot reallocate")
	// ErrEndOfPacket is returned by Get* when reading past used.
	ErrEndOfPacket = errors.New("packet: end of packet")
	// ErrOutOfBounds is returned by Insert/Erase with invalid offsets.
	ErrOutOfBounds = errors.New("packet: out of bounds")
)

// Packet is a mutable byte buffer with cursor semantics.
//
// Invariant, maintained by every exported method: cursor <= used <= capacity.
type Packet struct {
	data     []byte
	used     int
	cursor   int
	borrowed bool

	// Metadata
	ClientFrom uint64
	Operation  uint64
	Instance   uint64
	Age        uint64
}

// New constructs a Packet with an allocated capacity of n bytes.
func New(n int) *Packet {
	p := &Packet{}
	_ = p.SetMemorySize(n)
	return p
}

// Capacity returns the allocated byte count.
func (p *Packet) Capacity() int {
	return cap(p.data)
}

// Used returns the number of logically-written bytes.
func (p *Packet) Used() int {
	return p.used
}

// Cursor returns the current read/write position.
func (p *Packet) Cursor() int {
	return p.cursor
}

// SetCursor moves the cursor, clamped to [0, used].
func (p *Packet) SetCursor(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > p.used {
		pos = p.used
	}
	p.cursor = pos
}

// IsBorrowed reports whether the underlying storage is externally owned.
func (p *Packet) IsBorrowed() bool {
	return p.borrowed
}

// Remaining returns the number of unread bytes between cursor and used.
func (p *Packet) Remaining() int {
	return p.used - p.cursor
}

// SetMemorySize allocates exactly n bytes, discarding contents and
// resetting cursor and used to zero. Fails with ErrBorrowed if the buffer
// is currently borrowed and n > 0.
func (p *Packet) SetMemorySize(n int) error {
	if n < 0 {
		n = 0
	}

	if p.borrowed && n > 0 {
		return ErrBorrowed
	}

	p.data = make([]byte, n)
	p.used = 0
	p.cursor = 0
	p.borrowed = false

	return nil
}

// ChangeMemorySize reallocates the buffer preserving up to min(used, n)
// bytes. used clamps to n; cursor clamps to used. Shrinking never
// discards in-use bytes below the new size.
func (p *Packet) ChangeMemorySize(n int) error {
	if n < 0 {
		n = 0
	}

	if p.borrowed {
		return ErrBorrowed
	}

	keep := p.used
	if keep > n {
		keep = n
	}

	nd := make([]byte, n)
	copy(nd, p.data[:keep])

	p.data = nd
	if p.used > n {
		p.used = n
	}
	if p.cursor > p.used {
		p.cursor = p.used
	}

	return nil
}

// growTo ensures capacity is at least n, growing geometrically like
// append() would, preserving existing bytes. It is the auto-grow substrate
// used by Add* and by the TCP framer.
func (p *Packet) growTo(n int) error {
	if n <= cap(p.data) {
		return nil
	}

	if p.borrowed {
		return ErrBorrowed
	}

	nc := cap(p.data)
	if nc == 0 {
		nc = 16
	}
	for nc < n {
		nc *= 2
	}

	nd := make([]byte, nc)
	copy(nd, p.data[:p.used])
	p.data = nd

	return nil
}

// SetDataPtr installs borrowed storage: the packet will read/write b
// directly, report capacity cap(b) and used usedHint (clamped to len(b)), and refuse to reallocate or free it until UnsetDataPtr.
func (p *Packet) SetDataPtr(b []byte, usedHint int) {
	p.data = b
	if usedHint < 0 {
		usedHint = 0
	}
	if usedHint > len(b) {
		usedHint = len(b)
	}
	p.used = usedHint
	p.cursor = 0
	p.borrowed = true
}

// UnsetDataPtr restores ownership semantics: subsequent SetMemorySize /
// ChangeMemorySize / auto-grow may reallocate freely. The previously
// borrowed bytes are copied into freshly owned storage so the packet
// remains valid after the lender frees or reuses b.
func (p *Packet) UnsetDataPtr() {
	if !p.borrowed {
		return
	}

	nd := make([]byte, p.used)
	copy(nd, p.data[:p.used])
	p.data = nd
	p.borrowed = false
}

// Reset clears used/cursor without reallocating, for reuse via a recycle
// pool.
func (p *Packet) Reset() {
	p.used = 0
	p.cursor = 0
	p.ClientFrom = 0
	p.Operation = 0
	p.Instance = 0
	p.Age = 0
}

// Bytes returns the logically-written slice data[0:used]. Callers must not
// retain it past the next mutating call.
func (p *Packet) Bytes() []byte {
	return p.data[:p.used]
}

// RawCap returns the full backing slice up to capacity, for callers (the
// recv path, the parallel cipher) that need to write past used directly.
func (p *Packet) RawCap() []byte {
	return p.data[:cap(p.data)]
}

// SetUsed directly sets the used byte count (clamped to capacity), for
// callers that wrote into RawCap() out of band (e.g. a socket Read).
func (p *Packet) SetUsed(n int) {
	if n < 0 {
		n = 0
	}
	if n > cap(p.data) {
		n = cap(p.data)
	}
	p.used = n
	if p.cursor > p.used {
		p.cursor = p.used
	}
}
