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

package socket

import (
	"net"

	libsiz "github.com/nabbar/netcore/size"
)

// AcceptDecision is returned by a Listener's AcceptFunc to tell it
// whether to keep or reject a freshly-accepted connection; the server's
// callback rejects when it has no free client slot.
type AcceptDecision uint8

const (
	Accept AcceptDecision = iota
	Reject
)

// ClientTemplate carries the options a Listener clones onto every
// accepted Socket (receive-buffer size, send cap, tcp options).
type ClientTemplate struct {
	RecvSize      int
	SendMemLimit  libsiz.Size
	Nagle         bool
	Reusable      bool
	GracefulClose bool
}

// Listener wraps a net.Listener (TCP only; a UDP "server" has no accept
// step, see instance/server's single shared UDP socket) and applies an
// AcceptFunc decision plus the ClientTemplate to every accepted
// connection.
type Listener struct {
	ln       net.Listener
	template ClientTemplate
	submit   Submitter
}

// Listen opens a TCP listener at addr.
func Listen(addr string, template ClientTemplate, submit Submitter) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, template: template, submit: submit}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// AcceptFunc decides what to do with a freshly-accepted connection before
// it is wrapped into a Socket.
type AcceptFunc func(peer net.Addr) AcceptDecision

// AcceptOne blocks for a single inbound connection, applies decide, and —
// on Accept — clones the client template onto a new Socket: nagle,
// reusable and recv-buffer size all inherited explicitly, never silently
// through accept(). A Reject decision closes the raw connection and returns
// (nil, nil): not an error, just nothing to hand the instance layer.
func (l *Listener) AcceptOne(decide AcceptFunc) (*Socket, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}

	if decide != nil && decide(conn.RemoteAddr()) == Reject {
		_ = conn.Close()
		return nil, nil
	}

	s := FromConn(conn, l.template.RecvSize, l.template.SendMemLimit, l.submit)
	if l.template.Reusable {
		_ = s.SetReusable()
	}
	if !l.template.Nagle {
		_ = s.DisableNagle()
	}
	if !l.template.GracefulClose {
		s.SetHardShutdown()
	}
	return s, nil
}
