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

package server_test

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	libdur "github.com/nabbar/netcore/duration"
	libins "github.com/nabbar/netcore/instance"
	libcli "github.com/nabbar/netcore/instance/client"
	libsrv "github.com/nabbar/netcore/instance/server"
	libeng "github.com/nabbar/netcore/ioengine"
	libpkt "github.com/nabbar/netcore/packet"
	libprf "github.com/nabbar/netcore/profile"
	libsck "github.com/nabbar/netcore/socket"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testConfig is a localhost-bound profile both sides of a pair share.
func testConfig() libprf.Config {
	cfg := libprf.Default()
	cfg.LocalAddrTCP = "127.0.0.1:0"
	cfg.LocalAddrUDP = "127.0.0.1:0"
	cfg.MaxClients = 8
	cfg.ConnectionTimeout = libdur.Seconds(5)
	cfg.SendTimeout = libdur.Seconds(2)
	return cfg
}

// pump drives ClientJoined the way an embedding application would,
// reporting every id that newly reaches CONNECTED.
func pump(srv *libsrv.Server, stop <-chan struct{}, joined chan<- uint64) {
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			if id := srv.ClientJoined(); id != 0 {
				select {
				case joined <- id:
				default:
				}
			}
		}
	}
}

var _ = Describe("Server instance", func() {
	var (
		eng    *libeng.Engine
		srv    *libsrv.Server
		cli    *libcli.Client
		stop   chan struct{}
		joined chan uint64
	)

	BeforeEach(func() {
		eng = libeng.New(2, nil)
		stop = make(chan struct{})
		joined = make(chan uint64, 8)
	})

	AfterEach(func() {
		close(stop)
		if cli != nil {
			_ = cli.Close()
			cli = nil
		}
		if srv != nil {
			_ = srv.Close()
			srv = nil
		}
		eng.Close()
	})

	Context("handshake", func() {
		It("connects a client and agrees on its id", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			cli, err = libcli.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cli.Connect(srv.TCPAddr().String(), srv.UDPAddr().String())).To(Succeed())

			var id uint64
			Eventually(joined, 5*time.Second).Should(Receive(&id))
			Expect(id).To(Equal(cli.ClientID()))
			Expect(id).To(BeNumerically(">=", uint64(1)))
			Expect(id).To(BeNumerically("<=", uint64(8)))

			Expect(cli.State()).To(Equal(libins.Connected))
			Expect(srv.ClientState(id)).To(Equal(libins.Connected))

			info := cli.ServerInfo()
			Expect(info.MaxClients).To(Equal(uint64(8)))
		})

		It("disconnects a client that never completes the UDP leg", func() {
			cfg := testConfig()
			cfg.ConnectionTimeout = libdur.ParseDuration(300 * time.Millisecond)

			var err error
			srv, err = libsrv.New(cfg, eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			conn, err := net.Dial("tcp", srv.TCPAddr().String())
			Expect(err).ToNot(HaveOccurred())
			defer conn.Close()

			// Read the server-info frame but never answer on UDP.
			hdr := make([]byte, 8)
			_, err = io.ReadFull(conn, hdr)
			Expect(err).ToNot(HaveOccurred())

			Eventually(srv.GetDisconnect, 3*time.Second, 20*time.Millisecond).
				Should(BeNumerically(">=", uint64(1)))
			Consistently(joined, 200*time.Millisecond).ShouldNot(Receive())
		})

		It("silently ignores a UDP handshake with forged auth codes", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			conn, err := net.Dial("tcp", srv.TCPAddr().String())
			Expect(err).ToNot(HaveOccurred())
			defer conn.Close()

			hdr := make([]byte, 8)
			_, err = io.ReadFull(conn, hdr)
			Expect(err).ToNot(HaveOccurred())
			payload := make([]byte, binary.LittleEndian.Uint64(hdr))
			_, err = io.ReadFull(conn, payload)
			Expect(err).ToNot(HaveOccurred())

			info, err := libins.DecodeServerInfo(payload, true)
			Expect(err).ToNot(HaveOccurred())

			pc, err := net.ListenPacket("udp", "127.0.0.1:0")
			Expect(err).ToNot(HaveOccurred())
			defer pc.Close()

			forged := info.AuthCodes
			forged[0]++
			_, err = pc.WriteTo(libins.EncodeUDPHandshake(info.ClientID, forged), srv.UDPAddr())
			Expect(err).ToNot(HaveOccurred())

			Consistently(func() libins.State {
				return srv.ClientState(info.ClientID)
			}, 300*time.Millisecond).Should(Equal(libins.Connecting))

			// The genuine codes still validate afterwards.
			_, err = pc.WriteTo(libins.EncodeUDPHandshake(info.ClientID, info.AuthCodes), srv.UDPAddr())
			Expect(err).ToNot(HaveOccurred())

			var id uint64
			Eventually(joined, 3*time.Second).Should(Receive(&id))
			Expect(id).To(Equal(info.ClientID))
		})
	})

	Context("framed TCP data", func() {
		It("round-trips a length-prefix payload each way", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			cli, err = libcli.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cli.Connect(srv.TCPAddr().String(), srv.UDPAddr().String())).To(Succeed())

			var id uint64
			Eventually(joined, 5*time.Second).Should(Receive(&id))

			Expect(cli.Send([]byte("Hello"), true)).To(Succeed())

			var got *libpkt.Packet
			Eventually(func() bool {
				pk, ok := srv.Recv(id)
				if ok {
					got = pk
				}
				return ok
			}, 3*time.Second, 10*time.Millisecond).Should(BeTrue())
			Expect(got.Bytes()).To(Equal([]byte("Hello")))
			srv.ReleasePacket(got)

			Expect(srv.Send(id, []byte("world"), true)).To(Succeed())

			Eventually(func() bool {
				pk, ok := cli.Recv()
				if ok {
					got = pk
				}
				return ok
			}, 3*time.Second, 10*time.Millisecond).Should(BeTrue())
			Expect(got.Bytes()).To(Equal([]byte("world")))
			cli.ReleasePacket(got)

			// Exactly one packet each way.
			_, more := cli.Recv()
			Expect(more).To(BeFalse())
		})

		It("reaches every connected client through SendAll", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			cli, err = libcli.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cli.Connect(srv.TCPAddr().String(), srv.UDPAddr().String())).To(Succeed())

			var id uint64
			Eventually(joined, 5*time.Second).Should(Receive(&id))

			srv.SendAll([]byte("fanout"), true, 0)

			var got *libpkt.Packet
			Eventually(func() bool {
				pk, ok := cli.Recv()
				if ok {
					got = pk
				}
				return ok
			}, 3*time.Second, 10*time.Millisecond).Should(BeTrue())
			Expect(got.Bytes()).To(Equal([]byte("fanout")))
			cli.ReleasePacket(got)

			// Excluding the only client reaches nobody.
			srv.SendAll([]byte("skipped"), true, id)
			Consistently(func() bool {
				_, ok := cli.Recv()
				return ok
			}, 300*time.Millisecond).Should(BeFalse())
		})
	})

	Context("UDP data", func() {
		It("delivers the most recent datagram per client", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			cli, err = libcli.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cli.Connect(srv.TCPAddr().String(), srv.UDPAddr().String())).To(Succeed())

			var id uint64
			Eventually(joined, 5*time.Second).Should(Receive(&id))

			// Datagrams may drop even on loopback; resend until observed.
			var got *libpkt.Packet
			Eventually(func() bool {
				_ = cli.SendUDP(0, []byte("ping"), true)
				time.Sleep(10 * time.Millisecond)
				pk, ok := srv.RecvUDP(id)
				if ok {
					got = pk
				}
				return ok
			}, 3*time.Second, 20*time.Millisecond).Should(BeTrue())
			Expect(got.Bytes()).To(Equal([]byte("ping")))
			Expect(got.ClientFrom).To(Equal(id))

			Eventually(func() bool {
				_ = srv.SendUDP(id, 0, []byte("pong"), true)
				time.Sleep(10 * time.Millisecond)
				pk, ok := cli.RecvUDP()
				if ok {
					got = pk
				}
				return ok
			}, 3*time.Second, 20*time.Millisecond).Should(BeTrue())
			Expect(got.Bytes()).To(Equal([]byte("pong")))
		})

		It("resolves the sender address back to its client id", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			cli, err = libcli.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cli.Connect(srv.TCPAddr().String(), srv.UDPAddr().String())).To(Succeed())

			var id uint64
			Eventually(joined, 5*time.Second).Should(Receive(&id))

			Eventually(func() uint64 {
				_ = cli.SendUDP(0, []byte("x"), true)
				time.Sleep(10 * time.Millisecond)
				if pk, ok := srv.RecvUDP(id); ok && pk != nil {
					return pk.ClientFrom
				}
				return 0
			}, 3*time.Second, 20*time.Millisecond).Should(Equal(id))

			other := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
			Expect(srv.LookupClient(other)).To(Equal(uint64(0)))
		})
	})

	Context("graceful disconnect", func() {
		It("drains queued data before reporting NOT_CONNECTED", func() {
			var err error
			srv, err = libsrv.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			go pump(srv, stop, joined)

			cli, err = libcli.New(testConfig(), eng, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cli.Connect(srv.TCPAddr().String(), srv.UDPAddr().String())).To(Succeed())

			var id uint64
			Eventually(joined, 5*time.Second).Should(Receive(&id))

			payloads := [][]byte{
				[]byte("one"), []byte("two"), []byte("three"),
				[]byte("four"), []byte("five"),
			}
			for _, p := range payloads {
				Expect(srv.Send(id, p, true)).To(Succeed())
			}
			Expect(srv.Shutdown(id)).To(Succeed())

			// All five frames arrive in order despite the half-close.
			var got [][]byte
			Eventually(func() int {
				for {
					pk, ok := cli.Recv()
					if !ok {
						break
					}
					got = append(got, append([]byte(nil), pk.Bytes()...))
					cli.ReleasePacket(pk)
				}
				return len(got)
			}, 3*time.Second, 10*time.Millisecond).Should(Equal(len(payloads)))
			Expect(got).To(Equal(payloads))

			Eventually(cli.ConnectionStatus, 3*time.Second, 10*time.Millisecond).
				Should(Equal(libsck.ConnNoRecv))

			Expect(cli.Shutdown()).To(Succeed())
			Eventually(cli.ConnectionStatus, 3*time.Second, 10*time.Millisecond).
				Should(Equal(libsck.ConnNotConnected))

			// The sweeper notices the drained connection and frees the slot.
			Eventually(srv.GetDisconnect, 3*time.Second, 20*time.Millisecond).
				Should(Equal(id))
		})
	})
})
