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

// Package socket implements the protocol-agnostic socket façade: a thin
// wrapper around a kernel TCP or UDP handle that tracks
// graceful-shutdown state, owns a fixed-size receive buffer and a set of
// in-flight SendTickets, and exposes the handful of lifecycle verbs every
// Instance needs regardless of protocol.
package socket

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	libsiz "github.com/nabbar/netcore/size"
)

// Protocol distinguishes the two transports a Socket may wrap.
type Protocol uint8

const (
	TCP Protocol = iota
	UDP
)

// State is a bitmask of the flags the Socket data model tracks.
type State uint32

const (
	StateBound State = 1 << iota
	StateListening
	StateConnected
	StateShutdownSend // local shutdown_send has run (graceful half-close)
	StateRecvClosed   // peer shut down sending (the FD_CLOSE-equivalent event fired)
	StateNagleOff
	StateHardClose
	StateReusable
	StateBroadcast
)

// ConnState is the five-value connection status derived from the
// send/recv flags plus "framer has drained."
type ConnState uint8

const (
	ConnConnected ConnState = iota
	ConnNoRecv
	ConnNoSend
	ConnNotConnected
	ConnNoSendRecv
)

func (c ConnState) String() string {
	switch c {
	case ConnConnected:
		return "CONNECTED"
	case ConnNoRecv:
		return "NO_RECV"
	case ConnNoSend:
		return "NO_SEND"
	case ConnNotConnected:
		return "NOT_CONNECTED"
	case ConnNoSendRecv:
		return "NO_SEND_RECV"
	default:
		return "UNKNOWN"
	}
}

// Completion is one unit of work the owning Socket hands to a shared
// ioengine.Engine: Handle runs on a worker goroutine; if it returns an
// error, OnError is invoked with it (typically marking the socket for
// close-request, per the "surface per-handler errors" rule). A
// zero-value Completion (nil Handle) is the engine's shutdown sentinel.
type Completion struct {
	Handle  func() error
	OnError func(error)
}

// Submitter hands a Completion to a worker pool for asynchronous
// execution. *ioengine.Engine satisfies this via its Submit method,
// injected at construction so this package never imports ioengine (the
// completion core sits above the socket façade in the receive path, per
// the data-flow diagram, not below it).
type Submitter func(Completion)

// Socket wraps a single TCP or UDP kernel handle.
type Socket struct {
	proto Protocol

	conn  net.Conn
	pconn net.PacketConn

	local net.Addr
	peer  net.Addr

	state atomic.Uint32

	recvSize int
	tracker  *SendTracker

	submit Submitter

	closeOnce sync.Once
	closed    chan struct{}

	drained atomic.Bool // set by the owning framer/instance when no complete packets remain buffered
}

// newSocket builds the common scaffolding shared by every constructor.
func newSocket(proto Protocol, recvSize int, sendLimit libsiz.Size, submit Submitter) *Socket {
	if recvSize <= 0 {
		recvSize = 4096
	}
	return &Socket{
		proto:    proto,
		recvSize: recvSize,
		tracker:  NewSendTracker(sendLimit),
		submit:   submit,
		closed:   make(chan struct{}),
	}
}

// NewTCP constructs an unconnected TCP Socket.
func NewTCP(recvSize int, sendLimit libsiz.Size, submit Submitter) *Socket {
	return newSocket(TCP, recvSize, sendLimit, submit)
}

// NewUDP constructs an unbound UDP Socket.
func NewUDP(recvSize int, sendLimit libsiz.Size, submit Submitter) *Socket {
	return newSocket(UDP, recvSize, sendLimit, submit)
}

// FromConn wraps an already-connected TCP conn (typically returned by a
// Listener's Accept), marking the socket bound and connected.
func FromConn(conn net.Conn, recvSize int, sendLimit libsiz.Size, submit Submitter) *Socket {
	s := newSocket(TCP, recvSize, sendLimit, submit)
	s.conn = conn
	s.local = conn.LocalAddr()
	s.peer = conn.RemoteAddr()
	s.setState(StateBound | StateConnected)
	return s
}

func (s *Socket) setState(bits State) {
	for {
		cur := s.state.Load()
		next := cur | uint32(bits)
		if s.state.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (s *Socket) clearState(bits State) {
	for {
		cur := s.state.Load()
		next := cur &^ uint32(bits)
		if s.state.CompareAndSwap(cur, next) {
			return
		}
	}
}

// State returns the current flag bitmask.
func (s *Socket) State() State {
	return State(s.state.Load())
}

// Has reports whether every bit in bits is currently set.
func (s *Socket) Has(bits State) bool {
	return State(s.state.Load())&bits == bits
}

// Protocol reports whether this Socket wraps a TCP or UDP handle.
func (s *Socket) Protocol() Protocol {
	return s.proto
}

// LocalAddr returns the bound local address, or nil if unbound.
func (s *Socket) LocalAddr() net.Addr {
	return s.local
}

// PeerAddr returns the connected peer address (TCP) or last-known UDP
// peer, or nil.
func (s *Socket) PeerAddr() net.Addr {
	return s.peer
}

// Tracker returns the socket's outstanding-send tracker.
func (s *Socket) Tracker() *SendTracker {
	return s.tracker
}

// SetDrained records whether the owning framer currently has no more
// complete packets buffered, the third input to ConnectionStatus.
func (s *Socket) SetDrained(v bool) {
	s.drained.Store(v)
}

// Bind opens a local UDP handle at addr (""/":0"-style strings let the OS
// choose). TCP sockets do not bind independently of Connect/Listen; Bind
// on a TCP socket is a no-op that only records the requested local
// address for a subsequent Connect.
func (s *Socket) Bind(addr string) error {
	if s.proto == UDP {
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return err
		}
		s.pconn = pc
		s.local = pc.LocalAddr()
		s.setState(StateBound)
		return nil
	}

	s.local = tcpAddrPlaceholder(addr)
	return nil
}

type tcpAddrPlaceholder string

func (a tcpAddrPlaceholder) Network() string { return "tcp" }
func (a tcpAddrPlaceholder) String() string  { return string(a) }

// Connect dials a TCP peer, optionally from the address previously
// recorded by Bind. UDP sockets are connectionless and do not implement
// Connect; use Bind and Send-with-address instead.
func (s *Socket) Connect(addr string, timeout time.Duration) error {
	d := net.Dialer{Timeout: timeout}
	if la, ok := s.local.(tcpAddrPlaceholder); ok && la != "" {
		if tcpAddr, err := net.ResolveTCPAddr("tcp", string(la)); err == nil {
			d.LocalAddr = tcpAddr
		}
	}

	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}

	s.conn = conn
	s.local = conn.LocalAddr()
	s.peer = conn.RemoteAddr()
	s.setState(StateBound | StateConnected)
	return nil
}

// SetReusable enables SO_REUSEADDR on the underlying handle (explicit,
// not silently inherited through accept()).
func (s *Socket) SetReusable() error {
	s.setState(StateReusable)
	return applyReusable(s)
}

// DisableNagle sets TCP_NODELAY. A no-op (but not an error) on UDP.
func (s *Socket) DisableNagle() error {
	s.setState(StateNagleOff)
	if s.proto != TCP {
		return nil
	}
	return applyNoDelay(s)
}

// SetBroadcasting enables SO_BROADCAST. Valid for UDP sockets only.
func (s *Socket) SetBroadcasting() error {
	s.setState(StateBroadcast)
	if s.proto != UDP {
		return ErrNotUDP
	}
	return applyBroadcast(s)
}

// SetHardShutdown disables graceful half-close: Close tears the handle
// down immediately instead of draining outstanding sends.
func (s *Socket) SetHardShutdown() {
	s.setState(StateHardClose)
}

// ShutdownSend half-closes the sending direction (graceful disconnect).
// It does not check StateHardClose itself: the instance layer skips the
// call when profile's graceful_disconnect_enabled is false.
func (s *Socket) ShutdownSend() error {
	s.setState(StateShutdownSend)
	if tc, ok := s.conn.(interface{ CloseWrite() error }); ok {
		return tc.CloseWrite()
	}
	return nil
}

// MarkRecvClosed records that the peer has shut down sending (the
// FD_CLOSE-equivalent event), the second input to ConnectionStatus.
func (s *Socket) MarkRecvClosed() {
	s.setState(StateRecvClosed)
}

// ConnectionStatus derives one of the five TCP graceful-disconnect states
// from the local shutdown-send bit, the peer recv-closed bit, and whether
// the framer has fully drained (the table).
func (s *Socket) ConnectionStatus() ConnState {
	sendOK := !s.Has(StateShutdownSend)
	recvOK := !s.Has(StateRecvClosed)
	drained := s.drained.Load()

	switch {
	case sendOK && recvOK:
		return ConnConnected
	case sendOK && !recvOK:
		return ConnNoRecv
	case !sendOK && recvOK:
		return ConnNoSend
	case !sendOK && !recvOK && drained:
		return ConnNotConnected
	default:
		return ConnNoSendRecv
	}
}

// Recv blocks for one inbound read: for TCP, up to recvSize bytes off the
// stream; for UDP, one datagram and its sender address. The bytes are
// written into buf and n reports how many were read.
func (s *Socket) Recv(buf []byte) (n int, from net.Addr, err error) {
	if s.proto == UDP {
		if s.pconn == nil {
			return 0, nil, ErrNotInitialized
		}
		n, from, err = s.pconn.ReadFrom(buf)
		return n, from, err
	}

	if s.conn == nil {
		return 0, nil, ErrNotInitialized
	}
	n, err = s.conn.Read(buf)
	return n, s.peer, err
}

// SetRecvDeadline bounds the next Recv call(s); d <= 0 clears the
// deadline. The handshake phase uses this to poll the TCP stream for the
// server's confirmation frame between UDP handshake retries.
func (s *Socket) SetRecvDeadline(d time.Duration) error {
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if s.conn != nil {
		return s.conn.SetReadDeadline(deadline)
	}
	if s.pconn != nil {
		return s.pconn.SetReadDeadline(deadline)
	}
	return ErrNotInitialized
}

// RecvSize returns the configured fixed receive-buffer size.
func (s *Socket) RecvSize() int {
	return s.recvSize
}

// Close implements the close contract: close the kernel handle
// (canceling pending operations), then — unless hard-close is set — wait
// for the send tracker to drain before returning.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.conn != nil {
			err = s.conn.Close()
		} else if s.pconn != nil {
			err = s.pconn.Close()
		}

		if !s.Has(StateHardClose) {
			s.tracker.Drain(2 * time.Second)
		}

		s.clearState(StateConnected | StateBound | StateListening)
		close(s.closed)
	})
	return err
}

// Done returns a channel closed once Close has run.
func (s *Socket) Done() <-chan struct{} {
	return s.closed
}

// Send issues one scatter-gather write built from slices (the
// raw/prefix/postfix SendTicket flavors are just slices of different
// length). block selects the send-operation lifecycle: a
// blocking send waits (up to timeout) for completion and does not charge
// the tracker; a non-blocking send is charged against the tracker and
// dispatched to the Submitter, returning StatusInProgress immediately.
func (s *Socket) Send(slices [][]byte, block bool, to net.Addr, timeout time.Duration) (Status, error) {
	t := newTicket(slices, !block)

	if !block {
		if err := s.tracker.Add(t); err != nil {
			return StatusFailed, err
		}
	}

	do := func() error {
		var err error
		if s.proto == UDP {
			err = s.sendUDP(slices, to)
		} else {
			err = s.sendTCP(slices)
		}
		t.finish(err)
		if !block {
			s.tracker.Remove(t.id)
		}
		return err
	}

	if block {
		if timeout > 0 {
			_ = s.setWriteDeadline(timeout)
			defer s.setWriteDeadline(0)
		}
		if err := do(); err != nil {
			return StatusFailed, err
		}
		return StatusCompleted, nil
	}

	s.submit(Completion{
		Handle: do,
		OnError: func(error) {
			s.setState(StateHardClose) // any async send failure requests close
		},
	})
	return StatusInProgress, nil
}

func (s *Socket) setWriteDeadline(d time.Duration) error {
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	if s.conn != nil {
		return s.conn.SetWriteDeadline(deadline)
	}
	if s.pconn != nil {
		return s.pconn.SetWriteDeadline(deadline)
	}
	return nil
}

func (s *Socket) sendTCP(slices [][]byte) error {
	buffers := net.Buffers(slices)
	_, err := buffers.WriteTo(s.conn)
	return err
}

func (s *Socket) sendUDP(slices [][]byte, to net.Addr) error {
	if s.pconn == nil {
		return ErrNotInitialized
	}
	total := 0
	for _, b := range slices {
		total += len(b)
	}
	buf := make([]byte, 0, total)
	for _, b := range slices {
		buf = append(buf, b...)
	}
	_, err := s.pconn.WriteTo(buf, to)
	return err
}
