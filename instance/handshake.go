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

package instance

import (
	"encoding/binary"
	"errors"

	libpkt "github.com/nabbar/netcore/packet"

	"github.com/fxamacker/cbor/v2"
)

// ProtocolBuild identifies this handshake codec's revision; carried in
// every HandshakeExtension so a client can log a mismatch instead of
// silently misreading a future wire change.
const ProtocolBuild = "netcore-handshake/1"

// ErrTruncatedHandshake is returned by the UDP handshake decoder when raw
// is shorter than the fixed wire layout.
var ErrTruncatedHandshake = errors.New("instance: udp handshake packet truncated")

// HandshakeExtension is appended, CBOR-encoded, after the fixed-layout
// fields of the server-info frame (the wire contract fixes those fields;
// this is this repo's own forward-compatible addition, sized by nothing
// more than the frame's own outer TCP length prefix, so an older client
// that doesn't know about it can simply ignore the trailing bytes).
type HandshakeExtension struct {
	ServerBuild string            `cbor:"server_build"`
	Extra       map[string]string `cbor:"extra,omitempty"`
}

// ServerInfo is the decoded form of the handshake's TCP leg (server →
// client).
type ServerInfo struct {
	MaxClients    uint64
	NumOperations uint64
	UDPMode       uint8
	ClientID      uint64
	AuthCodes     [4]uint32
	Extension     *HandshakeExtension
}

// EncodeServerInfo builds the handshake's TCP-leg payload: the fixed
// fields in wire order, optionally followed by a CBOR-encoded extension
// record. ext may be nil to omit the trailing record entirely.
func EncodeServerInfo(maxClients uint64, udpEnabled bool, numOps uint64, udpMode uint8, clientID uint64, codes [4]uint32, ext *HandshakeExtension) []byte {
	pk := libpkt.New(64)

	_ = pk.AddSize(maxClients)
	if udpEnabled {
		_ = pk.AddSize(numOps)
		_ = libpkt.Add(pk, udpMode)
	}
	_ = pk.AddSize(clientID)
	if udpEnabled {
		for _, c := range codes {
			_ = libpkt.Add(pk, c)
		}
	}

	if ext != nil {
		if b, err := cbor.Marshal(ext); err == nil {
			_ = pk.AddBytes(b)
		}
	}

	return append([]byte(nil), pk.Bytes()...)
}

// DecodeServerInfo parses a handshake TCP-leg payload previously built by
// EncodeServerInfo. Any bytes remaining after the fixed fields are
// treated as an optional CBOR extension record; a decode failure there is
// not fatal; Extension is simply left nil.
func DecodeServerInfo(payload []byte, udpEnabled bool) (ServerInfo, error) {
	var info ServerInfo

	pk := libpkt.New(0)
	pk.SetDataPtr(payload, len(payload))

	var err error
	if info.MaxClients, err = pk.GetSize(); err != nil {
		return info, err
	}

	if udpEnabled {
		if info.NumOperations, err = pk.GetSize(); err != nil {
			return info, err
		}
		mode, gerr := libpkt.Get[uint8](pk)
		if gerr != nil {
			return info, gerr
		}
		info.UDPMode = mode
	}

	if info.ClientID, err = pk.GetSize(); err != nil {
		return info, err
	}

	if udpEnabled {
		for i := range info.AuthCodes {
			c, gerr := libpkt.Get[uint32](pk)
			if gerr != nil {
				return info, gerr
			}
			info.AuthCodes[i] = c
		}
	}

	if rest := pk.Remaining(); rest > 0 {
		b, _ := pk.GetBytes(rest)
		var ext HandshakeExtension
		if cbor.Unmarshal(b, &ext) == nil {
			info.Extension = &ext
		}
	}

	return info, nil
}

// EncodeUDPHandshake builds the fixed-format UDP handshake packet: an
// 8-byte reserved zero age, the claimed client id, then the
// four authentication codes. This layout never varies with the data
// connection's configured framer/udp.Mode.
func EncodeUDPHandshake(clientID uint64, codes [4]uint32) []byte {
	pk := libpkt.New(32)

	_ = pk.AddSize(0)
	_ = pk.AddSize(clientID)
	for _, c := range codes {
		_ = libpkt.Add(pk, c)
	}

	return append([]byte(nil), pk.Bytes()...)
}

// DecodeUDPHandshake extracts the claimed client id and authentication
// codes from a raw UDP handshake datagram. It never consults the data
// connection's framer/udp.Mode: a handshake packet's layout is fixed
// regardless of which UDP mode the server was configured with, so this is
// the only correct way to parse one (framer/udp.Framer.Ingest's own
// mode-dependent header parse is only reliable for non-handshake traffic).
func DecodeUDPHandshake(raw []byte) (clientID uint64, codes [4]uint32, err error) {
	if len(raw) < 32 {
		return 0, codes, ErrTruncatedHandshake
	}
	clientID = binary.LittleEndian.Uint64(raw[8:16])
	for i := 0; i < 4; i++ {
		codes[i] = binary.LittleEndian.Uint32(raw[16+4*i : 20+4*i])
	}
	return clientID, codes, nil
}
