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

// Package broadcast implements the broadcast instance: a
// single UDP socket with SO_BROADCAST enabled, no per-client structure
// and no handshake. Sent datagrams go out raw; received datagrams are
// queued unclassified in arrival order.
package broadcast

import (
	"net"
	"sync"
	"time"

	libccy "github.com/nabbar/netcore/concurrency"
	libins "github.com/nabbar/netcore/instance"
	libeng "github.com/nabbar/netcore/ioengine"
	libmod "github.com/nabbar/netcore/netmode"
	libpkt "github.com/nabbar/netcore/packet"
	libprf "github.com/nabbar/netcore/profile"
	libsiz "github.com/nabbar/netcore/size"
	libsck "github.com/nabbar/netcore/socket"
	"github.com/sirupsen/logrus"
)

// Broadcast is the broadcast instance.
type Broadcast struct {
	cfg libprf.Config
	eng *libeng.Engine
	ctx *libmod.Context
	id  libins.ID
	log *logrus.Logger

	udp  *libsck.Socket
	pool *libpkt.Pool

	mu      sync.Mutex
	queue   []*libpkt.Packet
	account *libccy.Accountant

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New binds a broadcast-enabled UDP socket at cfg.LocalAddrUDP and
// starts its receive loop. eng is the shared completion engine, closed
// by the caller after the instance; ctx may be nil to use netmode's
// default context.
func New(cfg libprf.Config, eng *libeng.Engine, ctx *libmod.Context) (*Broadcast, error) {
	if ctx == nil {
		ctx = libmod.DefaultContext()
	}

	b := &Broadcast{
		cfg:     cfg,
		eng:     eng,
		ctx:     ctx,
		id:      libins.NewID(),
		log:     cfg.Logger,
		pool:    libpkt.NewPool(libsiz.SizeNul),
		account: libccy.NewAccountant(cfg.RecvMemLimitUDP),
		closed:  make(chan struct{}),
	}

	udp := libsck.NewUDP(cfg.RecvSizeUDP.Int(), cfg.SendMemLimitUDP, eng.Submit)
	if err := udp.Bind(cfg.LocalAddrUDP); err != nil {
		return nil, err
	}
	if err := udp.SetReusable(); err != nil {
		_ = udp.Close()
		return nil, err
	}
	if err := udp.SetBroadcasting(); err != nil {
		_ = udp.Close()
		return nil, err
	}
	b.udp = udp

	b.wg.Add(1)
	go b.recvLoop()

	return b, nil
}

// InstanceID returns this instance's identity token.
func (b *Broadcast) InstanceID() libins.ID {
	return b.id
}

// LocalAddr returns the bound UDP address.
func (b *Broadcast) LocalAddr() net.Addr {
	return b.udp.LocalAddr()
}

func (b *Broadcast) recvLoop() {
	defer b.wg.Done()

	buf := make([]byte, b.udp.RecvSize())
	for {
		n, _, err := b.udp.Recv(buf)
		if err != nil {
			select {
			case <-b.closed:
			default:
				if b.log != nil {
					b.log.WithError(err).Warn("broadcast: receive failed")
				}
				_ = b.ctx.Raise(libmod.KindIO, err)
			}
			return
		}
		if n == 0 {
			continue
		}

		b.enqueue(buf[:n])
	}
}

// enqueue copies one received datagram into a pooled packet and appends
// it to the unclassified arrival-order queue. A datagram that would push
// the receive accountant past its cap is dropped and recorded; there is
// no per-client entity to tear down here (the restriction contract
// binds the accountant's owner, which for broadcast is the whole queue).
func (b *Broadcast) enqueue(data []byte) {
	if err := b.account.Increase(libsiz.ParseInt(len(data))); err != nil {
		_ = b.ctx.Raise(libmod.KindMemoryLimitExceeded, err)
		return
	}

	pk, err := b.pool.Acquire(len(data))
	if err != nil {
		b.account.Decrease(libsiz.ParseInt(len(data)))
		_ = b.ctx.Raise(libmod.KindAllocationFailed, err)
		return
	}
	copy(pk.RawCap(), data)
	pk.SetUsed(len(data))
	pk.Instance = b.id.Uint64()

	if b.cfg.RecvFuncUDP != nil {
		b.cfg.RecvFuncUDP(pk.Bytes())
		b.account.Decrease(libsiz.ParseInt(len(data)))
		b.pool.Release(pk)
		return
	}

	b.mu.Lock()
	b.queue = append(b.queue, pk)
	b.mu.Unlock()
}

// Send writes payload as one raw datagram to addr ("ip:port"; typically
// a broadcast or multicast address).
func (b *Broadcast) Send(payload []byte, addr string, block bool) error {
	to, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return b.ctx.Raise(libmod.KindInvalidArgument, err)
	}

	if _, err = b.udp.Send([][]byte{payload}, block, to, time.Duration(b.cfg.SendTimeout)); err != nil {
		return b.ctx.Raise(libmod.KindIO, err)
	}
	return nil
}

// Recv pops the oldest queued datagram, or (nil, false) when the queue
// is empty.
func (b *Broadcast) Recv() (*libpkt.Packet, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) == 0 {
		return nil, false
	}
	pk := b.queue[0]
	b.queue = b.queue[1:]
	b.account.Decrease(libsiz.ParseInt(pk.Used()))
	return pk, true
}

// ReleasePacket returns a drained packet to the recycle pool.
func (b *Broadcast) ReleasePacket(pk *libpkt.Packet) {
	b.pool.Release(pk)
}

// Close shuts the socket down and waits for the receive loop to exit.
func (b *Broadcast) Close() error {
	b.closeOnce.Do(func() {
		close(b.closed)
		_ = b.udp.Close()
		b.wg.Wait()
	})
	return nil
}
