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

// Package udp implements the four UDP framing modes: each
// maintains, per logical target, a single-slot most-recent-wins store
// (or, for catch-all, a plain arrival-order queue), with an age field
// that lets a reordered older datagram be dropped instead of overwriting
// a newer one already received.
package udp

import (
	"encoding/binary"
	"errors"
	"sync"

	libpkt "github.com/nabbar/netcore/packet"
)

// Mode selects one of the four UDP framing variants.
type Mode uint8

const (
	ModePerClient Mode = iota
	ModePerClientPerOp
	ModeCatchAll
	ModeCatchAllNoReorder
)

// HandshakeAge is the reserved age value identifying a handshake
// packet; Ingest recognizes it and returns isHandshake=true
// without touching any slot or queue, leaving handshake processing to
// the instance layer.
const HandshakeAge uint64 = 0

// ErrTruncated is returned when a datagram is shorter than its mode's
// fixed header.
var ErrTruncated = errors.New("udp framer: datagram shorter than header")

type clientOp struct {
	client uint64
	op     uint64
}

type slot struct {
	pk  *libpkt.Packet
	age uint64
	has bool
}

// offer installs pk at age into the slot, replacing any existing content
// only if age is strictly newer (accounting for wraparound). It reports
// whether the replacement happened.
func (s *slot) offer(age uint64, pk *libpkt.Packet) bool {
	if s.has && !isNewer(s.age, age) {
		return false
	}
	s.pk = pk
	s.age = age
	s.has = true
	return true
}

func (s *slot) take() (*libpkt.Packet, bool) {
	if !s.has {
		return nil, false
	}
	pk := s.pk
	s.pk = nil
	s.has = false
	return pk, true
}

// isNewer reports whether incoming should supersede stored, applying
// the wraparound heuristic: incoming is newer outright if
// incoming > stored; otherwise, since stored >= incoming, a gap larger
// than half of stored's value is assumed to be a wrapped-around counter
// (incoming actually lapped stored) rather than genuine reordering.
func isNewer(stored, incoming uint64) bool {
	if incoming > stored {
		return true
	}
	if stored == 0 {
		return false
	}
	diff := stored - incoming
	return diff > stored/2
}

// Framer implements one UDP framing mode. It is safe for concurrent use:
// Ingest is expected to be called from completion-port worker goroutines
// and Recv*/RecvAny from arbitrary application goroutines.
type Framer struct {
	mode Mode
	pool *libpkt.Pool

	mu          sync.Mutex
	perClient   map[uint64]*slot
	perClientOp map[clientOp]*slot
	single      slot
	queue       []*libpkt.Packet
}

// New constructs a Framer for mode, carving payload sub-packets from
// pool.
func New(mode Mode, pool *libpkt.Pool) *Framer {
	f := &Framer{mode: mode, pool: pool}
	switch mode {
	case ModePerClient:
		f.perClient = make(map[uint64]*slot)
	case ModePerClientPerOp:
		f.perClientOp = make(map[clientOp]*slot)
	}
	return f
}

// headerLen returns the number of header bytes Ingest must strip for
// this mode: 8 bytes of age, plus 8 bytes of client id for the
// per-client modes, plus 8 bytes of operation id for per-client-per-op.
func (f *Framer) headerLen() int {
	switch f.mode {
	case ModePerClient:
		return 16
	case ModePerClientPerOp:
		return 24
	default:
		return 8
	}
}

// Ingest parses raw's header and, unless it is a handshake packet (age
// == HandshakeAge, reported via isHandshake), installs its payload into
// the appropriate slot or queue. clientID and opID are populated from
// the header when the mode carries them. For a handshake packet they are
// the raw header fields: in the per-client modes clientID is the claimed
// client id (the handshake carries it at the same offset), in
// ModePerClientPerOp opID holds authentication-code bytes, and the
// catch-all modes report 0 for both.
func (f *Framer) Ingest(raw *libpkt.Packet) (clientID uint64, opID uint64, isHandshake bool, err error) {
	b := raw.Bytes()
	if len(b) < 8 {
		return 0, 0, false, ErrTruncated
	}

	age := binary.LittleEndian.Uint64(b[0:8])
	pos := 8

	if f.mode == ModePerClient || f.mode == ModePerClientPerOp {
		if len(b) < pos+8 {
			return 0, 0, false, ErrTruncated
		}
		clientID = binary.LittleEndian.Uint64(b[pos : pos+8])
		pos += 8
	}
	if f.mode == ModePerClientPerOp {
		if len(b) < pos+8 {
			return 0, 0, false, ErrTruncated
		}
		opID = binary.LittleEndian.Uint64(b[pos : pos+8])
		pos += 8
	}

	if age == HandshakeAge {
		return clientID, opID, true, nil
	}

	payload, err := f.pool.Acquire(len(b) - pos)
	if err != nil {
		return clientID, opID, false, err
	}
	copy(payload.RawCap(), b[pos:])
	payload.SetUsed(len(b) - pos)
	payload.ClientFrom = clientID
	payload.Operation = opID
	payload.Age = age

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.mode {
	case ModePerClient:
		s, ok := f.perClient[clientID]
		if !ok {
			s = &slot{}
			f.perClient[clientID] = s
		}
		s.offer(age, payload)
	case ModePerClientPerOp:
		k := clientOp{clientID, opID}
		s, ok := f.perClientOp[k]
		if !ok {
			s = &slot{}
			f.perClientOp[k] = s
		}
		s.offer(age, payload)
	case ModeCatchAllNoReorder:
		f.single.offer(age, payload)
	default: // ModeCatchAll
		f.queue = append(f.queue, payload)
	}

	return clientID, opID, false, nil
}

// Recv atomically takes the current packet for clientID out of a
// per-client store (valid for ModePerClient only).
func (f *Framer) Recv(clientID uint64) (*libpkt.Packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.perClient[clientID]
	if !ok {
		return nil, false
	}
	return s.take()
}

// RecvOp atomically takes the current packet for (clientID, opID) out
// of a per-client-per-op store (valid for ModePerClientPerOp only).
func (f *Framer) RecvOp(clientID, opID uint64) (*libpkt.Packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.perClientOp[clientOp{clientID, opID}]
	if !ok {
		return nil, false
	}
	return s.take()
}

// RecvAny pops the oldest queued packet (ModeCatchAll) or takes the
// single stored packet (ModeCatchAllNoReorder).
func (f *Framer) RecvAny() (*libpkt.Packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == ModeCatchAllNoReorder {
		return f.single.take()
	}

	if len(f.queue) == 0 {
		return nil, false
	}
	pk := f.queue[0]
	f.queue = f.queue[1:]
	return pk, true
}

// Reset discards any stored slots belonging to clientID (ModePerClient
// and ModePerClientPerOp only), freeing them back to pool. Called when a
// client disconnects, so a later client id reusing the same table slot
// never observes a stale packet left behind by its predecessor.
func (f *Framer) Reset(clientID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.perClient != nil {
		if s, ok := f.perClient[clientID]; ok && s.has {
			f.pool.Release(s.pk)
		}
		delete(f.perClient, clientID)
	}
	if f.perClientOp != nil {
		for k, s := range f.perClientOp {
			if k.client == clientID {
				if s.has {
					f.pool.Release(s.pk)
				}
				delete(f.perClientOp, k)
			}
		}
	}
}

// EncodeHeader builds the egress wire header: an 8-byte
// monotonic age, optionally followed by the client id and/or operation
// id this Framer's mode carries.
func (f *Framer) EncodeHeader(age, clientID, opID uint64) []byte {
	b := make([]byte, f.headerLen())
	binary.LittleEndian.PutUint64(b[0:8], age)

	pos := 8
	if f.mode == ModePerClient || f.mode == ModePerClientPerOp {
		binary.LittleEndian.PutUint64(b[pos:pos+8], clientID)
		pos += 8
	}
	if f.mode == ModePerClientPerOp {
		binary.LittleEndian.PutUint64(b[pos:pos+8], opID)
	}

	return b
}
