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

package server

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	libatm "github.com/nabbar/netcore/atomic"
	libfrt "github.com/nabbar/netcore/framer/tcp"
	libins "github.com/nabbar/netcore/instance"
	libsck "github.com/nabbar/netcore/socket"
)

// ServerClient is the server's per-slot record: one connecting
// or connected client's TCP socket, its partial-packet framer, the UDP
// peer address learned during the handshake, the four authentication
// codes minted for it, and its place in the connection-state machine.
//
// Lock order: a caller holding the owning Table's lock may take this
// client's lock; never the reverse.
type ServerClient struct {
	id uint64

	state libatm.Value[libins.State]

	mu      sync.Mutex
	udpPeer net.Addr
	since   time.Time

	codes [4]uint32

	sck *libsck.Socket
	frm *libfrt.Framer

	kill atomic.Bool
}

// NewServerClient builds a slot record in the CONNECTING state, stamping
// the handshake start time the timeout sweeper measures against.
func NewServerClient(id uint64, sck *libsck.Socket, frm *libfrt.Framer, codes [4]uint32) *ServerClient {
	c := &ServerClient{
		id:    id,
		state: libatm.NewValue[libins.State](),
		since: time.Now(),
		codes: codes,
		sck:   sck,
		frm:   frm,
	}
	c.state.Store(libins.Connecting)
	return c
}

// newAuthCodes mints the four random 32-bit authentication codes the
// server sends on the TCP handshake leg and later checks against the
// client's UDP leg to authenticate its peer address.
func newAuthCodes() [4]uint32 {
	var b [16]byte
	_, _ = rand.Read(b[:])

	var codes [4]uint32
	for i := range codes {
		codes[i] = binary.LittleEndian.Uint32(b[4*i : 4*i+4])
	}
	return codes
}

// ID returns the 1-based client id.
func (c *ServerClient) ID() uint64 {
	return c.id
}

// State returns the client's current connection state.
func (c *ServerClient) State() libins.State {
	return c.state.Load()
}

// SetState moves the client's connection-state machine.
func (c *ServerClient) SetState(s libins.State) {
	c.state.Store(s)
}

// Since returns the handshake start time (set at accept).
func (c *ServerClient) Since() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.since
}

// UDPPeer returns the UDP peer address learned from a validated
// handshake packet, or nil if none yet.
func (c *ServerClient) UDPPeer() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.udpPeer
}

// SetUDPPeer records (or, with nil, clears) the client's UDP peer
// address. The caller marks the owning Table dirty afterwards.
func (c *ServerClient) SetUDPPeer(addr net.Addr) {
	c.mu.Lock()
	c.udpPeer = addr
	c.mu.Unlock()
}

// AuthCodes returns the four authentication codes minted for this slot.
func (c *ServerClient) AuthCodes() [4]uint32 {
	return c.codes
}

// Socket returns the client's TCP socket.
func (c *ServerClient) Socket() *libsck.Socket {
	return c.sck
}

// Framer returns the client's TCP framer (partial-packet store plus
// received-packet queue).
func (c *ServerClient) Framer() *libfrt.Framer {
	return c.frm
}

// RequestKill marks the client for disconnection by the next
// ClientJoined sweep; used by the receive path when a handler fails so a
// completion worker never tears a connection down itself; the decision
// stays with the owning instance.
func (c *ServerClient) RequestKill() {
	c.kill.Store(true)
}

// KillRequested reports whether a receive-path handler asked for this
// client to be torn down.
func (c *ServerClient) KillRequested() bool {
	return c.kill.Load()
}
