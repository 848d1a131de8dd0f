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

// Package server implements the server instance and the
// address-indexed client lookup: a listening TCP socket and
// client template, 1..MaxClients ServerClient slots, an optional single
// shared UDP socket routed through a framer/udp mode chosen at
// construction, the authentication-code handshake, the graceful
// disconnect state machine and the disconnect-notification queue.
package server

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	libccy "github.com/nabbar/netcore/concurrency"
	libfrt "github.com/nabbar/netcore/framer/tcp"
	libfru "github.com/nabbar/netcore/framer/udp"
	libins "github.com/nabbar/netcore/instance"
	libeng "github.com/nabbar/netcore/ioengine"
	libmod "github.com/nabbar/netcore/netmode"
	libpkt "github.com/nabbar/netcore/packet"
	libprf "github.com/nabbar/netcore/profile"
	libsiz "github.com/nabbar/netcore/size"
	libsck "github.com/nabbar/netcore/socket"
	"github.com/sirupsen/logrus"
)

// ErrNoSuchClient is returned by Send/SendUDP/Recv* for an id whose slot
// is free or whose state does not allow the operation.
var ErrNoSuchClient = errors.New("server: no connected client with that id")

// Server is the server instance. The embedding application
// drives it by calling ClientJoined in a loop; everything else happens on
// per-socket receive goroutines and the shared completion engine.
type Server struct {
	cfg profile
	eng *libeng.Engine
	ctx *libmod.Context
	id  libins.ID
	clk *libins.Clock
	log *logrus.Logger

	tcpPool *libpkt.Pool
	udpPool *libpkt.Pool

	ln     *libsck.Listener
	udp    *libsck.Socket
	udpFrm *libfru.Framer

	tbl *Table

	acceptCh chan *libsck.Socket

	dmu  sync.Mutex
	disc []uint64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// profile is the subset of profile.Config the server consults after
// construction, plus the TCP framing mode derived from it.
type profile struct {
	libprf.Config
	tcpMode libfrt.Mode
}

// New validates cfg, opens the listening socket (and, if UDP is enabled,
// binds the single shared UDP socket), and starts the accept and UDP
// receive loops. eng is the shared completion engine; per the safe
// shutdown order it outlives the server and is closed by the caller, not
// by Server.Close. ctx may be nil to use netmode's default context.
func New(cfg libprf.Config, eng *libeng.Engine, ctx *libmod.Context) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = libmod.DefaultContext()
	}

	s := &Server{
		cfg:      profile{Config: cfg, tcpMode: cfg.TCPMode()},
		eng:      eng,
		ctx:      ctx,
		id:       libins.NewID(),
		clk:      libins.NewClock(),
		log:      cfg.Logger,
		tcpPool:  libpkt.NewPool(libsiz.SizeNul),
		udpPool:  libpkt.NewPool(cfg.RecvMemLimitUDP),
		tbl:      NewTable(cfg.MaxClients),
		acceptCh: make(chan *libsck.Socket, 16),
		closed:   make(chan struct{}),
	}

	ln, err := libsck.Listen(cfg.LocalAddrTCP, libsck.ClientTemplate{
		RecvSize:      cfg.RecvSizeTCP.Int(),
		SendMemLimit:  cfg.SendMemLimitTCP,
		Nagle:         cfg.NagleEnabled,
		Reusable:      true,
		GracefulClose: cfg.GracefulDisconnectEnabled,
	}, eng.Submit)
	if err != nil {
		return nil, err
	}
	s.ln = ln

	if cfg.UDPEnabled {
		u := libsck.NewUDP(cfg.RecvSizeUDP.Int(), cfg.SendMemLimitUDP, eng.Submit)
		if err = u.Bind(cfg.LocalAddrUDP); err != nil {
			_ = ln.Close()
			return nil, err
		}
		s.udp = u
		s.udpFrm = libfru.New(cfg.UDPMode, s.udpPool)

		s.wg.Add(1)
		go s.udpRecvLoop()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// InstanceID returns this server's identity token.
func (s *Server) InstanceID() libins.ID {
	return s.id
}

// TCPAddr returns the listening socket's bound address.
func (s *Server) TCPAddr() net.Addr {
	return s.ln.Addr()
}

// UDPAddr returns the shared UDP socket's bound address, or nil when UDP
// is disabled.
func (s *Server) UDPAddr() net.Addr {
	if s.udp == nil {
		return nil
	}
	return s.udp.LocalAddr()
}

func (s *Server) sendTimeout() time.Duration {
	return time.Duration(s.cfg.SendTimeout)
}

func (s *Server) warn(err error, msg string) {
	if err == nil {
		return
	}
	if s.log != nil {
		s.log.WithError(err).Warn(msg)
	}
	_ = s.ctx.Raise(libmod.KindIO, err)
}

// acceptLoop accepts inbound connections as they arrive, parking each
// accepted socket on acceptCh for ClientJoined to claim (at most one per
// call, pulled synchronously by the application's own loop). The accept
// decision itself rejects when no slot is free.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		sck, err := s.ln.AcceptOne(func(_ net.Addr) libsck.AcceptDecision {
			if s.tbl.FirstFree() == 0 {
				return libsck.Reject
			}
			return libsck.Accept
		})
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.warn(err, "server: accept failed")
			}
			return
		}
		if sck == nil {
			continue // rejected: no free slot
		}

		select {
		case s.acceptCh <- sck:
		case <-s.closed:
			_ = sck.Close()
			return
		}
	}
}

// startRecv drives one client's TCP receive path: bytes come off the
// kernel in order on this goroutine and feed the client's framer
// directly, preserving the per-connection ordering guarantee
// (completion workers stay on the send path, where per-ticket completion
// may reorder freely).
func (s *Server) startRecv(c *ServerClient) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		buf := make([]byte, c.Socket().RecvSize())
		for {
			n, _, err := c.Socket().Recv(buf)
			if n > 0 {
				if ferr := c.Framer().Append(buf[:n]); ferr != nil {
					s.warn(ferr, "server: framing failed, disconnecting client")
					c.RequestKill()
					c.Socket().MarkRecvClosed()
					return
				}
				c.Socket().SetDrained(!c.Framer().HasPending())
			}
			if err != nil {
				c.Socket().MarkRecvClosed()
				c.Socket().SetDrained(!c.Framer().HasPending())
				return
			}
		}
	}()
}

// udpRecvLoop reads datagrams off the single shared UDP socket and hands
// each to the completion engine for routing: address-view lookup first,
// then (on a miss) handshake validation. The lookup honors the lock
// order: the table lock is taken before any per-client lock, including
// while the address view is resorted.
func (s *Server) udpRecvLoop() {
	defer s.wg.Done()

	buf := make([]byte, s.udp.RecvSize())
	for {
		n, from, err := s.udp.Recv(buf)
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.warn(err, "server: udp receive failed")
			}
			return
		}
		if n == 0 {
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		s.eng.Submit(libsck.Completion{
			Handle:  func() error { return s.handleDatagram(data, from) },
			OnError: func(e error) { s.warn(e, "server: udp dispatch failed") },
		})
	}
}

// handleDatagram implements the server UDP receive path: a
// binary-search hit dispatches to the UDP framer; a miss is treated as a
// handshake attempt and validated against {id in range, state is
// CONNECTING, auth codes match exactly}, failing silently on any
// mismatch so the server never reveals which check failed.
func (s *Server) handleDatagram(data []byte, from net.Addr) error {
	raw := libpkt.New(0)
	raw.SetDataPtr(data, len(data))

	if c := s.tbl.Lookup(from); c != nil {
		// On modes whose header names a client id, the claim must match
		// the slot the sender address resolves to; a mismatched datagram
		// is dropped before it can overwrite another client's slot.
		switch s.cfg.UDPMode {
		case libfru.ModePerClient, libfru.ModePerClientPerOp:
			if len(data) >= 16 && binary.LittleEndian.Uint64(data[8:16]) != c.ID() &&
				binary.LittleEndian.Uint64(data[0:8]) != libfru.HandshakeAge {
				return nil
			}
		}

		_, _, hs, err := s.udpFrm.Ingest(raw)
		if hs {
			// A known peer re-sending its handshake lost our TCP
			// confirmation; the ClientJoined sweep re-sends it while the
			// slot is still CONNECTED_AC, so nothing to do here.
			return nil
		}
		return err
	}

	id, codes, err := libins.DecodeUDPHandshake(data)
	if err != nil {
		return nil // malformed: drop silently
	}
	if id == 0 || id > s.tbl.MaxID() {
		return nil
	}

	c := s.tbl.Get(id)
	if c == nil || c.State() != libins.Connecting || codes != c.AuthCodes() {
		return nil
	}

	c.SetUDPPeer(from)
	c.SetState(libins.ConnectedAwaitingConfirm)
	s.tbl.MarkDirty()
	return nil
}

// frame8 wraps payload in the 8-byte little-endian length prefix the
// handshake always uses on TCP, whatever framing mode the data
// connection was configured with (the completion frame is "a
// TCP length-prefix frame with payload length zero").
func frame8(payload []byte) [][]byte {
	hdr := make([]byte, 8)
	binary.LittleEndian.PutUint64(hdr, uint64(len(payload)))
	if len(payload) == 0 {
		return [][]byte{hdr}
	}
	return [][]byte{hdr, payload}
}

// ClientJoined advances every slot's connection state machine, claims at
// most one pending accepted connection into the first free slot, sends
// that connection its handshake frame, and returns the id of any client
// that newly reached CONNECTED during this call, else 0. The application
// calls it in a loop.
func (s *Server) ClientJoined() uint64 {
	var newly uint64

	s.tbl.Range(func(id uint64, c *ServerClient) bool {
		switch c.State() {
		case libins.Connected:
			if c.KillRequested() || c.Socket().ConnectionStatus() == libsck.ConnNotConnected {
				s.disconnect(c)
			}
		case libins.Disconnecting:
			s.disconnect(c)
		case libins.ConnectedAwaitingConfirm:
			// At most one confirmation per call, so the caller observes
			// every newly connected id.
			if newly != 0 {
				break
			}
			if _, err := c.Socket().Send(frame8(nil), true, nil, s.sendTimeout()); err != nil {
				s.warn(err, "server: handshake confirmation failed")
				s.disconnect(c)
				break
			}
			c.SetState(libins.Connected)
			newly = id
		case libins.Connecting:
			if c.KillRequested() || time.Since(c.Since()) > time.Duration(s.cfg.ConnectionTimeout) {
				s.disconnect(c)
			}
		}
		return true
	})

	select {
	case sck := <-s.acceptCh:
		if id := s.admit(sck); id != 0 {
			newly = id
		}
	default:
	}

	return newly
}

// admit claims the first free slot for a freshly-accepted socket, starts
// its receive loop and sends the handshake frame.
// It returns a nonzero id only when the client reaches CONNECTED
// immediately (handshake disabled, or handshake without a UDP leg).
func (s *Server) admit(sck *libsck.Socket) uint64 {
	c, ok := s.tbl.Claim(func(id uint64) *ServerClient {
		frm := libfrt.New(s.cfg.tcpMode, s.tcpPool, s.cfg.Postfix, s.cfg.AutoResizeTCP, 0, s.cfg.RecvMemLimitTCP, s.tcpDispatch())
		_ = frm.SetBufferSize(s.cfg.RecvSizeTCP.Int())
		return NewServerClient(id, sck, frm, newAuthCodes())
	})
	if !ok {
		_ = sck.Close()
		return 0
	}

	s.startRecv(c)

	if !s.cfg.HandshakeEnabled {
		c.SetState(libins.Connected)
		return c.ID()
	}

	payload := libins.EncodeServerInfo(
		uint64(s.cfg.MaxClients),
		s.cfg.UDPEnabled,
		s.cfg.NumOperations,
		uint8(s.cfg.UDPMode),
		c.ID(),
		c.AuthCodes(),
		&libins.HandshakeExtension{ServerBuild: libins.ProtocolBuild},
	)
	if _, err := c.Socket().Send(frame8(payload), true, nil, s.sendTimeout()); err != nil {
		s.warn(err, "server: handshake send failed")
		s.disconnect(c)
		return 0
	}

	if !s.cfg.UDPEnabled {
		// No UDP leg to validate: connected as soon as the frame is out.
		c.SetState(libins.Connected)
		return c.ID()
	}

	return 0
}

func (s *Server) tcpDispatch() libfrt.Dispatch {
	if s.cfg.RecvFuncTCP == nil {
		return nil
	}
	return func(pk *libpkt.Packet) {
		s.cfg.RecvFuncTCP(pk.Bytes())
		s.tcpPool.Release(pk)
	}
}

// disconnect tears one client down: clear the UDP peer,
// close TCP, reset the slot's UDP store, free the table slot (which also
// marks the address view dirty), and append the id to the disconnect
// queue.
func (s *Server) disconnect(c *ServerClient) {
	c.SetUDPPeer(nil)
	_ = c.Socket().Close()
	c.SetState(libins.NotConnected)

	if s.udpFrm != nil {
		s.udpFrm.Reset(c.ID())
	}

	s.tbl.Release(c.ID())

	s.dmu.Lock()
	s.disc = append(s.disc, c.ID())
	s.dmu.Unlock()

	if s.log != nil {
		s.log.WithField("client", c.ID()).Info("server: client disconnected")
	}
}

// Disconnect forcibly tears down client id, if it occupies a slot.
func (s *Server) Disconnect(id uint64) {
	if c := s.tbl.Get(id); c != nil {
		s.disconnect(c)
	}
}

// GetDisconnect pops the oldest queued disconnect notification, or 0 if
// none is pending.
func (s *Server) GetDisconnect() uint64 {
	s.dmu.Lock()
	defer s.dmu.Unlock()

	if len(s.disc) == 0 {
		return 0
	}
	id := s.disc[0]
	s.disc = s.disc[1:]
	return id
}

// Send frames payload for client id's TCP connection and sends it. A
// blocking send waits up to the configured send timeout; a non-blocking
// send is charged against the client's send accountant, and on
// MemoryLimitExceeded the offending client is marked DISCONNECTING for
// the next ClientJoined sweep (the memory-restriction contract).
func (s *Server) Send(id uint64, payload []byte, block bool) error {
	c := s.tbl.Get(id)
	if c == nil || c.State() != libins.Connected {
		return ErrNoSuchClient
	}

	_, err := c.Socket().Send(c.Framer().EncodeSend(payload), block, nil, s.sendTimeout())
	if err != nil {
		var lim *libccy.MemoryLimitExceeded
		if errors.As(err, &lim) {
			c.SetState(libins.Disconnecting)
		}
		return s.ctx.Raise(libmod.KindIO, err)
	}
	return nil
}

// Recv drains one completed TCP frame received from client id, or
// (nil, false) when none is queued.
func (s *Server) Recv(id uint64) (*libpkt.Packet, bool) {
	c := s.tbl.Get(id)
	if c == nil {
		return nil, false
	}
	pk, ok := c.Framer().Next()
	if ok {
		c.Socket().SetDrained(!c.Framer().HasPending())
	}
	return pk, ok
}

// ReleasePacket returns a drained packet to the TCP recycle pool.
func (s *Server) ReleasePacket(pk *libpkt.Packet) {
	s.tcpPool.Release(pk)
}

// SendUDP sends payload to client id over the shared UDP socket,
// prefixed with the age/client/op header the configured UDP mode
// carries. The shared socket's send accountant is global across all
// clients; when it throws, the offending caller's client id is the one
// torn down.
func (s *Server) SendUDP(id, opID uint64, payload []byte, block bool) error {
	if s.udp == nil {
		return libsck.ErrNotUDP
	}

	c := s.tbl.Get(id)
	if c == nil || c.State() != libins.Connected {
		return ErrNoSuchClient
	}
	to := c.UDPPeer()
	if to == nil {
		return ErrNoSuchClient
	}

	hdr := s.udpFrm.EncodeHeader(s.clk.Age(), id, opID)
	_, err := s.udp.Send([][]byte{hdr, payload}, block, to, s.sendTimeout())
	if err != nil {
		var lim *libccy.MemoryLimitExceeded
		if errors.As(err, &lim) {
			c.SetState(libins.Disconnecting)
		}
		return s.ctx.Raise(libmod.KindIO, err)
	}
	return nil
}

// SendAll sends payload over TCP to every connected client except
// excludeClient (0 to exclude none). Per-client failures disconnect that
// client without stopping the sweep.
func (s *Server) SendAll(payload []byte, block bool, excludeClient uint64) {
	s.tbl.Range(func(id uint64, c *ServerClient) bool {
		if id == excludeClient || c.State() != libins.Connected {
			return true
		}
		if err := s.Send(id, payload, block); err != nil {
			s.warn(err, "server: send-all failed for a client")
		}
		return true
	})
}

// SendAllUDP sends payload over UDP to every connected client with a
// learned peer address, except excludeClient (0 to exclude none).
func (s *Server) SendAllUDP(opID uint64, payload []byte, block bool, excludeClient uint64) {
	if s.udp == nil {
		return
	}
	s.tbl.Range(func(id uint64, c *ServerClient) bool {
		if id == excludeClient || c.State() != libins.Connected || c.UDPPeer() == nil {
			return true
		}
		if err := s.SendUDP(id, opID, payload, block); err != nil {
			s.warn(err, "server: send-all-udp failed for a client")
		}
		return true
	})
}

// SendToUDP sends one raw datagram to an arbitrary address through the
// shared UDP socket, bypassing the per-client header; useful for
// replying to unconnected peers.
func (s *Server) SendToUDP(addr net.Addr, payload []byte, block bool) error {
	if s.udp == nil {
		return libsck.ErrNotUDP
	}
	if _, err := s.udp.Send([][]byte{payload}, block, addr, s.sendTimeout()); err != nil {
		return s.ctx.Raise(libmod.KindIO, err)
	}
	return nil
}

// RecvUDP takes the most recent datagram stored for client id
// (per-client mode).
func (s *Server) RecvUDP(id uint64) (*libpkt.Packet, bool) {
	if s.udpFrm == nil {
		return nil, false
	}
	return s.udpFrm.Recv(id)
}

// RecvUDPOp takes the most recent datagram stored for (client id,
// operation id) (per-client-per-op mode).
func (s *Server) RecvUDPOp(id, opID uint64) (*libpkt.Packet, bool) {
	if s.udpFrm == nil {
		return nil, false
	}
	return s.udpFrm.RecvOp(id, opID)
}

// RecvUDPAny pops the next datagram in arrival order (catch-all modes).
func (s *Server) RecvUDPAny() (*libpkt.Packet, bool) {
	if s.udpFrm == nil {
		return nil, false
	}
	return s.udpFrm.RecvAny()
}

// LookupClient resolves a UDP peer address to its client id, or 0
// (exposed for diagnostics and tests; the receive path uses it
// internally on every datagram).
func (s *Server) LookupClient(addr net.Addr) uint64 {
	if c := s.tbl.Lookup(addr); c != nil {
		return c.ID()
	}
	return 0
}

// ClientState reports the connection state of slot id (NOT_CONNECTED for
// a free or out-of-range slot).
func (s *Server) ClientState(id uint64) libins.State {
	c := s.tbl.Get(id)
	if c == nil {
		return libins.NotConnected
	}
	return c.State()
}

// Shutdown half-closes the sending direction of client id's TCP
// connection (graceful disconnect). A no-op when graceful disconnect is
// disabled by profile.
func (s *Server) Shutdown(id uint64) error {
	if !s.cfg.GracefulDisconnectEnabled {
		return nil
	}
	c := s.tbl.Get(id)
	if c == nil {
		return ErrNoSuchClient
	}
	return c.Socket().ShutdownSend()
}

// Close tears the server down in the safe order: stop accepting
// and close the shared UDP socket first, then close every per-client
// socket (waiting for their send trackers to drain inside Socket.Close),
// then free the slots. The shared completion engine is the caller's to
// stop last.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)

		_ = s.ln.Close()
		if s.udp != nil {
			_ = s.udp.Close()
		}

		s.tbl.Range(func(id uint64, c *ServerClient) bool {
			_ = c.Socket().Close()
			s.tbl.Release(id)
			return true
		})

		s.wg.Wait()

		// Drain any accepted-but-unclaimed sockets.
		for {
			select {
			case sck := <-s.acceptCh:
				_ = sck.Close()
			default:
				return
			}
		}
	})
	return nil
}
