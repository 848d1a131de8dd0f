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

// Package tcp implements the three TCP framing state machines:
// length-prefix, postfix-delimited and raw. Each consumes bytes
// just received, appended to a partial-packet buffer, and carves
// complete frames out to a dispatcher as soon as they're available.
package tcp

import (
	"encoding/binary"
	"errors"

	libccy "github.com/nabbar/netcore/concurrency"
	libpkt "github.com/nabbar/netcore/packet"
	libsiz "github.com/nabbar/netcore/size"
)

// Mode selects one of the three framing state machines.
type Mode uint8

const (
	ModeLengthPrefix Mode = iota
	ModePostfix
	ModeRaw
)

// PrefixSize is the width of the length-prefix mode's size field
// (the "8-byte wire-format size").
const PrefixSize = 8

var (
	// ErrFrameTooLarge is returned when a frame would exceed the
	// framer's capacity and auto-grow is disabled (or exceeds the
	// configured hard maximum even with auto-grow enabled).
	ErrFrameTooLarge = errors.New("tcp framer: frame exceeds capacity")
)

// Dispatch is invoked synchronously with each completed frame, in place
// of the received-packet queue, when a callback is registered.
type Dispatch func(pk *libpkt.Packet)

// Framer implements one TCP framing mode over a single connection's
// byte stream. It is not safe for concurrent use; the owning socket
// serializes calls to Append.
type Framer struct {
	mode Mode

	partial *libpkt.Packet
	cursor  int // bytes at the front of partial already carved into frames
	search  int // postfix mode: resume point for the next postfix scan

	pool    *libpkt.Pool
	postfix []byte

	autoGrow    bool
	maxCapacity int // 0 == unbounded

	expected int // length-prefix mode: payload length of the in-flight frame, 0 if unknown

	dispatch  Dispatch
	queue     chan *libpkt.Packet
	account   *libccy.Accountant
	delivered int64 // count of frames ever handed to deliver, including zero-length ones the accountant never sees
}

// New constructs a Framer. dispatch may be nil, in which case completed
// frames are pushed onto an internal received-packet queue (drained via
// Next) and charged against queueLimit; maxCapacity of 0 means
// unbounded (subject only to autoGrow).
func New(mode Mode, pool *libpkt.Pool, postfix []byte, autoGrow bool, maxCapacity int, queueLimit libsiz.Size, dispatch Dispatch) *Framer {
	f := &Framer{
		mode:        mode,
		partial:     libpkt.New(256),
		pool:        pool,
		postfix:     postfix,
		autoGrow:    autoGrow,
		maxCapacity: maxCapacity,
		dispatch:    dispatch,
		account:     libccy.NewAccountant(queueLimit),
	}
	if dispatch == nil {
		f.queue = make(chan *libpkt.Packet, 256)
	}
	return f
}

// SetBufferSize resizes the partial-packet buffer to n bytes, the
// profile's recv_size_tcp contract: with auto-grow off this is the hard
// capacity an inbound frame must fit into; with auto-grow on it is only
// the starting allocation.
func (f *Framer) SetBufferSize(n int) error {
	if n <= 0 {
		return nil
	}
	return f.partial.ChangeMemorySize(n)
}

// Next drains one packet from the internal received-packet queue (used
// when no Dispatch callback is registered). It returns false if the
// queue is empty.
func (f *Framer) Next() (*libpkt.Packet, bool) {
	select {
	case pk := <-f.queue:
		f.account.Decrease(pkSize(pk))
		return pk, true
	default:
		return nil, false
	}
}

func (f *Framer) deliver(pk *libpkt.Packet) error {
	f.delivered++
	if f.dispatch != nil {
		f.dispatch(pk)
		return nil
	}
	if err := f.account.Increase(pkSize(pk)); err != nil {
		return err
	}
	f.queue <- pk
	return nil
}

// Delivered returns the total number of frames ever handed to the
// dispatcher or queue, including zero-length ones (the handshake
// completion frame carries no payload, so HasPending's
// accountant never sees it; a caller waiting on that specific frame's
// arrival polls Delivered instead).
func (f *Framer) Delivered() int64 {
	return f.delivered
}

// HasPending reports whether any complete frames are still queued and
// unread (used when no Dispatch is registered, to drive a socket's
// drained-state bookkeeping).
func (f *Framer) HasPending() bool {
	return f.account.Current() > 0
}

func pkSize(pk *libpkt.Packet) libsiz.Size {
	return libsiz.ParseInt64(int64(pk.Used()))
}

// Append feeds newly received bytes into the framer, carving out and
// delivering every complete frame they complete.
func (f *Framer) Append(data []byte) error {
	switch f.mode {
	case ModeRaw:
		return f.appendRaw(data)
	case ModePostfix:
		return f.appendFramed(data, f.extractPostfix)
	default:
		return f.appendFramed(data, f.extractLengthPrefix)
	}
}

func (f *Framer) appendRaw(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	pk, err := f.pool.Acquire(len(data))
	if err != nil {
		return err
	}
	copy(pk.RawCap(), data)
	pk.SetUsed(len(data))
	return f.deliver(pk)
}

func (f *Framer) appendFramed(data []byte, extract func() error) error {
	if !f.autoGrow {
		if f.partial.Used()+len(data) > f.partial.Capacity() {
			return ErrFrameTooLarge
		}
	}

	if err := f.partial.AddBytes(data); err != nil {
		return err
	}

	if err := extract(); err != nil {
		return err
	}

	if f.cursor > 0 {
		if err := f.partial.Erase(0, f.cursor); err != nil {
			return err
		}
		f.cursor = 0
		f.search = 0
	}

	return nil
}

func (f *Framer) ensureCapacity(need int) error {
	if need <= f.partial.Capacity() {
		return nil
	}
	if !f.autoGrow {
		return ErrFrameTooLarge
	}
	if f.maxCapacity > 0 && need > f.maxCapacity {
		return ErrFrameTooLarge
	}
	return f.partial.ChangeMemorySize(need)
}

func (f *Framer) extractLengthPrefix() error {
	for {
		avail := f.partial.Used() - f.cursor
		if avail < PrefixSize {
			return nil
		}

		l := binary.LittleEndian.Uint64(f.partial.Bytes()[f.cursor : f.cursor+PrefixSize])
		need := PrefixSize + int(l)

		if err := f.ensureCapacity(f.cursor + need); err != nil {
			return err
		}

		if avail < need {
			f.expected = int(l)
			return nil
		}

		payload, err := f.pool.Acquire(int(l))
		if err != nil {
			return err
		}
		copy(payload.RawCap(), f.partial.Bytes()[f.cursor+PrefixSize:f.cursor+need])
		payload.SetUsed(int(l))

		if err := f.deliver(payload); err != nil {
			return err
		}

		f.cursor += need
		f.expected = 0
	}
}

func (f *Framer) extractPostfix() error {
	for {
		idx, ok := f.partial.Find(f.search, -1, f.postfix)
		if !ok {
			f.search = f.partial.Used()
			if len(f.postfix) > 0 && f.search >= len(f.postfix) {
				f.search -= len(f.postfix) - 1
			}
			return nil
		}

		n := idx - f.cursor
		payload, err := f.pool.Acquire(n)
		if err != nil {
			return err
		}
		copy(payload.RawCap(), f.partial.Bytes()[f.cursor:idx])
		payload.SetUsed(n)

		if err := f.deliver(payload); err != nil {
			return err
		}

		f.cursor = idx + len(f.postfix)
		f.search = f.cursor
	}
}

// PercentComplete reports the in-flight frame's completion percentage
// for length-prefix mode. It is always 0 for postfix and
// raw modes (postfix's progress is undefined; raw has no
// partial frames to report on).
func (f *Framer) PercentComplete() int {
	if f.mode != ModeLengthPrefix || f.expected == 0 {
		return 0
	}

	have := f.partial.Used() - f.cursor - PrefixSize
	if have < 0 {
		have = 0
	}

	pct := have * 100 / f.expected
	if pct > 100 {
		pct = 100
	}
	return pct
}

// EncodeSend builds the outgoing wire representation of payload for this
// Framer's mode: an 8-byte little-endian length prefix ahead of the
// payload for length-prefix mode, the configured postfix appended after
// it for postfix mode, or the payload unmodified for raw mode. It
// returns a net.Buffers-friendly slice of slices so a caller can hand it
// straight to a scatter-gather Socket.Send without an extra copy.
func (f *Framer) EncodeSend(payload []byte) [][]byte {
	switch f.mode {
	case ModeLengthPrefix:
		hdr := make([]byte, PrefixSize)
		binary.LittleEndian.PutUint64(hdr, uint64(len(payload)))
		return [][]byte{hdr, payload}
	case ModePostfix:
		return [][]byte{payload, f.postfix}
	default:
		return [][]byte{payload}
	}
}
