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

// Package instance holds the handful of types shared by instance/client,
// instance/server and instance/broadcast: the connection-state enum
// shared by every instance flavor, and the instance
// identity token a broadcast instance writes into the "instance"
// metadata field of the packets it receives.
package instance

import "github.com/rs/xid"

// State is the per-client/per-instance connection state machine.
type State uint8

const (
	NotConnected State = iota
	Connecting
	ConnectedAwaitingConfirm // CONNECTED_AC: awaiting the server's confirmation send
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "NOT_CONNECTED"
	case Connecting:
		return "CONNECTING"
	case ConnectedAwaitingConfirm:
		return "CONNECTED_AC"
	case Connected:
		return "CONNECTED"
	case Disconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// ID is a globally-unique, sortable identifier minted once per instance
// (client, server or broadcast). A broadcast instance stamps it into
// every Packet it receives, via Packet.Instance — a weak back-reference a
// receiver can log or correlate without holding a pointer into this
// instance's lifetime. Client and server instances do not set
// Packet.Instance.
type ID xid.ID

// NewID mints a fresh ID.
func NewID() ID {
	return ID(xid.New())
}

// Uint64 folds the id down to the 8-byte integer Packet.Instance stores;
// xid's own 12 bytes are a 4-byte timestamp, a 3-byte machine id, a
// 2-byte process id and a 3-byte counter, so the low 8 bytes taken here
// carry machine id, process id and counter and are unique enough for
// same-process correlation, which is all Packet.Instance is used for.
func (i ID) Uint64() uint64 {
	b := xid.ID(i)
	var v uint64
	for n := 0; n < 8; n++ {
		v = v<<8 | uint64(b[4+n])
	}
	return v
}

func (i ID) String() string {
	return xid.ID(i).String()
}
