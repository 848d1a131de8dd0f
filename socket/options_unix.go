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

//go:build !windows

// applyReusable/applyNoDelay/applyBroadcast resolve the raw file
// descriptor behind a net.Conn/net.PacketConn via higebu/netfd (the
// teacher's chosen fd-extraction library) and apply the setsockopt call
// directly through golang.org/x/sys/unix, since net.Conn exposes no
// portable SO_REUSEADDR/TCP_NODELAY/SO_BROADCAST knobs of its own.
package socket

import (
	"net"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"
)

func (s *Socket) fd() (int, error) {
	if s.conn != nil {
		return netfd.GetFdFromConn(s.conn), nil
	}
	if s.pconn != nil {
		// *net.UDPConn (what Bind/ListenPacket actually hands back)
		// implements net.Conn too; netfd needs that view to reach the
		// underlying descriptor.
		if c, ok := s.pconn.(net.Conn); ok {
			return netfd.GetFdFromConn(c), nil
		}
	}
	return 0, ErrNotInitialized
}

func applyReusable(s *Socket) error {
	fd, err := s.fd()
	if err != nil {
		return err
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func applyNoDelay(s *Socket) error {
	fd, err := s.fd()
	if err != nil {
		return err
	}
	return unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

func applyBroadcast(s *Socket) error {
	fd, err := s.fd()
	if err != nil {
		return err
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
}
