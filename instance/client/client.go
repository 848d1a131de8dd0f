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

// Package client implements the client instance: the
// TCP+UDP handshake from the client's perspective, the graceful
// disconnect state machine, and the framed send/receive paths over both
// transports.
package client

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	libatm "github.com/nabbar/netcore/atomic"
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

var (
	// ErrHandshakeTimeout is returned by Connect when the whole handshake
	// does not complete within the configured connection timeout.
	ErrHandshakeTimeout = errors.New("client: handshake timed out")
	// ErrNotConnected is returned by Send/SendUDP before Connect
	// succeeds or after Close.
	ErrNotConnected = errors.New("client: not connected")
	// ErrRejected is returned by Connect when the server closes the
	// connection before completing the handshake (no free slot).
	ErrRejected = errors.New("client: connection rejected by server")
)

// confirmPoll is how long each TCP poll for the server's handshake
// confirmation frame waits before the UDP handshake packet is re-sent.
const confirmPoll = 50 * time.Millisecond

// Client is the client instance.
type Client struct {
	cfg libprf.Config
	eng *libeng.Engine
	ctx *libmod.Context
	id  libins.ID
	clk *libins.Clock
	log *logrus.Logger

	tcpPool *libpkt.Pool
	udpPool *libpkt.Pool

	state libatm.Value[libins.State]

	mu       sync.Mutex
	clientID uint64
	info     libins.ServerInfo

	tcp    *libsck.Socket
	frm    *libfrt.Framer
	udp    *libsck.Socket
	udpFrm *libfru.Framer

	serverUDP net.Addr

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New validates cfg and builds an unconnected Client. eng is the shared
// completion engine, closed by the caller after the client; ctx may be
// nil to use netmode's default context.
func New(cfg libprf.Config, eng *libeng.Engine, ctx *libmod.Context) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = libmod.DefaultContext()
	}

	return &Client{
		cfg:     cfg,
		eng:     eng,
		ctx:     ctx,
		id:      libins.NewID(),
		clk:     libins.NewClock(),
		log:     cfg.Logger,
		tcpPool: libpkt.NewPool(libsiz.SizeNul),
		udpPool: libpkt.NewPool(cfg.RecvMemLimitUDP),
		state:   libatm.NewValue[libins.State](),
		closed:  make(chan struct{}),
	}, nil
}

// InstanceID returns this client's identity token.
func (c *Client) InstanceID() libins.ID {
	return c.id
}

// State returns the client's connection state.
func (c *Client) State() libins.State {
	return c.state.Load()
}

func (c *Client) setState(s libins.State) {
	c.state.Store(s)
}

// ClientID returns the 1-based id the server assigned during the
// handshake, or 0 before Connect (or with the handshake disabled).
func (c *Client) ClientID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// ServerInfo returns the decoded server-info frame from the handshake.
func (c *Client) ServerInfo() libins.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *Client) sendTimeout() time.Duration {
	return time.Duration(c.cfg.SendTimeout)
}

func (c *Client) warn(err error, msg string) {
	if err == nil {
		return
	}
	if c.log != nil {
		c.log.WithError(err).Warn(msg)
	}
	_ = c.ctx.Raise(libmod.KindIO, err)
}

// Connect runs the handshake against serverTCP (and, when
// UDP is enabled, serverUDP): open TCP, read the server-info frame,
// repeat the UDP handshake packet until the server's zero-length
// confirmation frame arrives, then start the receive loops. The whole
// sequence is bounded by the configured connection timeout; on any
// failure the client disconnects itself and returns to NOT_CONNECTED.
func (c *Client) Connect(serverTCP, serverUDP string) error {
	if c.State() != libins.NotConnected {
		return c.ctx.Raise(libmod.KindInvalidState, errors.New("client: already connected"))
	}
	c.setState(libins.Connecting)

	deadline := time.Now().Add(time.Duration(c.cfg.ConnectionTimeout))

	if err := c.connect(serverTCP, serverUDP, deadline); err != nil {
		c.teardown()
		c.setState(libins.NotConnected)
		return c.ctx.Raise(libmod.KindIO, err)
	}

	c.setState(libins.Connected)
	c.startRecvLoops()
	return nil
}

func (c *Client) connect(serverTCP, serverUDP string, deadline time.Time) error {
	tcp := libsck.NewTCP(c.cfg.RecvSizeTCP.Int(), c.cfg.SendMemLimitTCP, c.eng.Submit)
	if c.cfg.LocalAddrTCP != "" {
		_ = tcp.Bind(c.cfg.LocalAddrTCP)
	}
	if !c.cfg.NagleEnabled {
		_ = tcp.DisableNagle()
	}
	if !c.cfg.GracefulDisconnectEnabled {
		tcp.SetHardShutdown()
	}

	if err := tcp.Connect(serverTCP, time.Until(deadline)); err != nil {
		return err
	}
	c.tcp = tcp
	c.frm = libfrt.New(c.cfg.TCPMode(), c.tcpPool, c.cfg.Postfix, c.cfg.AutoResizeTCP, 0, c.cfg.RecvMemLimitTCP, c.tcpDispatch())
	_ = c.frm.SetBufferSize(c.cfg.RecvSizeTCP.Int())

	if !c.cfg.HandshakeEnabled {
		return nil
	}

	info, err := c.readServerInfo(deadline)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.info = info
	c.clientID = info.ClientID
	c.mu.Unlock()

	if info.ClientID == 0 || info.ClientID > info.MaxClients {
		return errors.New("client: server assigned an out-of-range id")
	}

	if !c.cfg.UDPEnabled {
		return nil
	}

	return c.udpHandshake(serverUDP, info, deadline)
}

// readServerInfo reads the length-prefixed server-info frame directly
// off the socket: the handshake always uses the 8-byte length envelope
// whatever framing mode the data connection will use, so the client can
// read it before its generic framer takes over.
func (c *Client) readServerInfo(deadline time.Time) (libins.ServerInfo, error) {
	var hdr [8]byte
	if err := c.readExact(hdr[:], deadline); err != nil {
		if errors.Is(err, io.EOF) {
			return libins.ServerInfo{}, ErrRejected
		}
		return libins.ServerInfo{}, err
	}

	l := binary.LittleEndian.Uint64(hdr[:])
	if l == 0 || l > uint64(c.cfg.RecvSizeTCP.Int()) {
		return libins.ServerInfo{}, errors.New("client: malformed server-info frame")
	}

	payload := make([]byte, l)
	if err := c.readExact(payload, deadline); err != nil {
		return libins.ServerInfo{}, err
	}

	return libins.DecodeServerInfo(payload, c.cfg.UDPEnabled)
}

// readExact fills buf completely or fails, bounded by deadline.
func (c *Client) readExact(buf []byte, deadline time.Time) error {
	_ = c.tcp.SetRecvDeadline(time.Until(deadline))
	defer c.tcp.SetRecvDeadline(0)

	pos := 0
	for pos < len(buf) {
		n, _, err := c.tcp.Recv(buf[pos:])
		pos += n
		if err != nil {
			return err
		}
	}
	return nil
}

// udpHandshake runs the handshake's UDP leg: bind the UDP socket, then
// repeatedly send the {prefix=0, client_id, 4 auth codes} datagram until
// the server's zero-payload TCP frame confirms the association, or the
// deadline passes.
func (c *Client) udpHandshake(serverUDP string, info libins.ServerInfo, deadline time.Time) error {
	to, err := net.ResolveUDPAddr("udp", serverUDP)
	if err != nil {
		return err
	}

	udp := libsck.NewUDP(c.cfg.RecvSizeUDP.Int(), c.cfg.SendMemLimitUDP, c.eng.Submit)
	if err = udp.Bind(c.cfg.LocalAddrUDP); err != nil {
		return err
	}
	c.udp = udp
	c.udpFrm = libfru.New(libfru.Mode(info.UDPMode), c.udpPool)
	c.serverUDP = to

	hs := libins.EncodeUDPHandshake(info.ClientID, info.AuthCodes)

	for {
		if time.Now().After(deadline) {
			return ErrHandshakeTimeout
		}

		if _, err = udp.Send([][]byte{hs}, true, to, c.sendTimeout()); err != nil {
			return err
		}

		ok, err := c.pollConfirm(deadline)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

// pollConfirm waits briefly for the zero-length confirmation frame on
// TCP. A poll timeout is not an error; it just means the UDP handshake
// packet should be re-sent (it may have been lost).
func (c *Client) pollConfirm(deadline time.Time) (bool, error) {
	wait := confirmPoll
	if remain := time.Until(deadline); remain < wait {
		wait = remain
	}
	if wait <= 0 {
		return false, ErrHandshakeTimeout
	}

	_ = c.tcp.SetRecvDeadline(wait)
	defer c.tcp.SetRecvDeadline(0)

	var hdr [8]byte
	pos := 0
	for pos < len(hdr) {
		n, _, err := c.tcp.Recv(hdr[pos:])
		pos += n
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() && pos == 0 {
				return false, nil
			}
			return false, err
		}
	}

	if binary.LittleEndian.Uint64(hdr[:]) != 0 {
		return false, errors.New("client: unexpected frame during handshake")
	}
	return true, nil
}

func (c *Client) tcpDispatch() libfrt.Dispatch {
	if c.cfg.RecvFuncTCP == nil {
		return nil
	}
	return func(pk *libpkt.Packet) {
		c.cfg.RecvFuncTCP(pk.Bytes())
		c.tcpPool.Release(pk)
	}
}

// startRecvLoops spawns the TCP and (when enabled) UDP receive loops.
// Stream bytes feed the TCP framer on a single goroutine so frames are
// dispatched in kernel order.
func (c *Client) startRecvLoops() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		buf := make([]byte, c.tcp.RecvSize())
		for {
			n, _, err := c.tcp.Recv(buf)
			if n > 0 {
				if ferr := c.frm.Append(buf[:n]); ferr != nil {
					c.warn(ferr, "client: framing failed")
					c.tcp.MarkRecvClosed()
					return
				}
				c.tcp.SetDrained(!c.frm.HasPending())
			}
			if err != nil {
				c.tcp.MarkRecvClosed()
				c.tcp.SetDrained(!c.frm.HasPending())
				return
			}
		}
	}()

	if c.udp == nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		buf := make([]byte, c.udp.RecvSize())
		for {
			n, _, err := c.udp.Recv(buf)
			if err != nil {
				select {
				case <-c.closed:
				default:
					c.warn(err, "client: udp receive failed")
				}
				return
			}
			if n == 0 {
				continue
			}

			raw := libpkt.New(0)
			raw.SetDataPtr(buf[:n], n)

			id, op, hs, ierr := c.udpFrm.Ingest(raw)
			if ierr != nil {
				c.warn(ierr, "client: udp ingest failed")
				continue
			}
			if hs {
				continue // control traffic, not data
			}
			if c.cfg.RecvFuncUDP != nil {
				if pk, ok := c.takeUDP(id, op); ok {
					c.cfg.RecvFuncUDP(pk.Bytes())
					c.udpPool.Release(pk)
				}
			}
		}
	}()
}

func (c *Client) takeUDP(id, op uint64) (*libpkt.Packet, bool) {
	switch libfru.Mode(c.ServerInfo().UDPMode) {
	case libfru.ModePerClient:
		return c.udpFrm.Recv(id)
	case libfru.ModePerClientPerOp:
		return c.udpFrm.RecvOp(id, op)
	default:
		return c.udpFrm.RecvAny()
	}
}

// Send frames payload for the TCP connection and sends it (blocking or
// tracker-charged asynchronous).
func (c *Client) Send(payload []byte, block bool) error {
	if c.State() != libins.Connected {
		return ErrNotConnected
	}

	if _, err := c.tcp.Send(c.frm.EncodeSend(payload), block, nil, c.sendTimeout()); err != nil {
		return c.ctx.Raise(libmod.KindIO, err)
	}
	return nil
}

// SendUDP sends payload to the server over UDP under operation opID,
// prefixed with the mode's age/client/op header.
func (c *Client) SendUDP(opID uint64, payload []byte, block bool) error {
	if c.State() != libins.Connected || c.udp == nil {
		return ErrNotConnected
	}

	hdr := c.udpFrm.EncodeHeader(c.clk.Age(), c.ClientID(), opID)
	if _, err := c.udp.Send([][]byte{hdr, payload}, block, c.serverUDP, c.sendTimeout()); err != nil {
		return c.ctx.Raise(libmod.KindIO, err)
	}
	return nil
}

// Recv drains one completed TCP frame, or (nil, false) when none is
// queued.
func (c *Client) Recv() (*libpkt.Packet, bool) {
	if c.frm == nil {
		return nil, false
	}
	pk, ok := c.frm.Next()
	if ok {
		c.tcp.SetDrained(!c.frm.HasPending())
	}
	return pk, ok
}

// ReleasePacket returns a drained packet to the TCP recycle pool.
func (c *Client) ReleasePacket(pk *libpkt.Packet) {
	c.tcpPool.Release(pk)
}

// RecvUDP takes the most recent datagram stored for this client
// (per-client mode).
func (c *Client) RecvUDP() (*libpkt.Packet, bool) {
	if c.udpFrm == nil {
		return nil, false
	}
	return c.udpFrm.Recv(c.ClientID())
}

// RecvUDPOp takes the most recent datagram stored for (this client,
// opID) (per-client-per-op mode).
func (c *Client) RecvUDPOp(opID uint64) (*libpkt.Packet, bool) {
	if c.udpFrm == nil {
		return nil, false
	}
	return c.udpFrm.RecvOp(c.ClientID(), opID)
}

// RecvUDPAny pops the next datagram in arrival order (catch-all modes).
func (c *Client) RecvUDPAny() (*libpkt.Packet, bool) {
	if c.udpFrm == nil {
		return nil, false
	}
	return c.udpFrm.RecvAny()
}

// ConnectionStatus derives the five-value graceful-disconnect state of
// the TCP connection.
func (c *Client) ConnectionStatus() libsck.ConnState {
	if c.tcp == nil {
		return libsck.ConnNotConnected
	}
	c.tcp.SetDrained(!c.frm.HasPending())
	return c.tcp.ConnectionStatus()
}

// Shutdown half-closes the sending direction (graceful disconnect). A
// no-op when graceful disconnect is disabled by profile.
func (c *Client) Shutdown() error {
	if !c.cfg.GracefulDisconnectEnabled || c.tcp == nil {
		return nil
	}
	return c.tcp.ShutdownSend()
}

func (c *Client) teardown() {
	if c.tcp != nil {
		_ = c.tcp.Close()
	}
	if c.udp != nil {
		_ = c.udp.Close()
	}
}

// Close disconnects and releases both sockets, waiting for the receive
// loops to exit. The shared completion engine is the caller's to stop
// last.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.teardown()
		c.wg.Wait()
		c.setState(libins.NotConnected)
	})
	return nil
}
