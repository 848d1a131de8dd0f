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

// Package profile holds the plain configuration value that a
// caller fills in — by hand, or by decoding it from viper — and hands to
// an instance/client, instance/server or instance/broadcast constructor.
//
// Config decodes like any other component config: a struct of
// mapstructure-tagged fields, validated
// with go-playground/validator after decode, with Size/Duration fields
// routed through their package's own viper decode hook.
package profile

import (
	libdur "github.com/nabbar/netcore/duration"
	libfrt "github.com/nabbar/netcore/framer/tcp"
	libfru "github.com/nabbar/netcore/framer/udp"
	libsiz "github.com/nabbar/netcore/size"
	"github.com/sirupsen/logrus"
)

// RecvFunc is the optional synchronous callback a caller may register to
// be invoked inline with every received frame, instead of (or in
// addition to) draining the framer's queue.
type RecvFunc func(payload []byte)

// Config is the full set of options an instance recognizes. Thin,
// cosmetic options are absent. Every field except MemoryRecycleTCP and
// MemoryRecycleUDP is read somewhere in socket, framer/tcp, framer/udp or
// instance/*.
type Config struct {
	// LocalAddrTCP and LocalAddrUDP are bind addresses in "host:port"
	// form; an empty host or a ":0" port lets the OS choose.
	LocalAddrTCP string `mapstructure:"local_addr_tcp" json:"local_addr_tcp" yaml:"local_addr_tcp" toml:"local_addr_tcp" validate:"omitempty,hostname_port"`
	LocalAddrUDP string `mapstructure:"local_addr_udp" json:"local_addr_udp" yaml:"local_addr_udp" toml:"local_addr_udp" validate:"omitempty,hostname_port"`

	// HandshakeEnabled, if false, skips the handshake entirely: a
	// client gets no client id and no UDP path.
	HandshakeEnabled bool `mapstructure:"handshake_enabled" json:"handshake_enabled" yaml:"handshake_enabled" toml:"handshake_enabled"`

	// GracefulDisconnectEnabled, if false, hard-closes TCP connections;
	// the graceful-shutdown half-close becomes a no-op.
	GracefulDisconnectEnabled bool `mapstructure:"graceful_disconnect_enabled" json:"graceful_disconnect_enabled" yaml:"graceful_disconnect_enabled" toml:"graceful_disconnect_enabled"`

	// NagleEnabled is passed straight through to the TCP socket option.
	NagleEnabled bool `mapstructure:"nagle_enabled" json:"nagle_enabled" yaml:"nagle_enabled" toml:"nagle_enabled"`

	// MaxClients sizes the server's client table (the ServerClient
	// slots, 1..MaxClients) and is the first field of the handshake's
	// server-info frame. Client and server are configured with
	// matching Profile values out of band; the handshake frame itself
	// always travels under an 8-byte length prefix regardless of the
	// data connection's framing mode, so the client can read it whole
	// before its generic framer takes over.
	MaxClients int `mapstructure:"max_clients" json:"max_clients" yaml:"max_clients" toml:"max_clients" validate:"required_if=HandshakeEnabled true,omitempty,gt=0"`

	// UDPEnabled gates whether the handshake negotiates a UDP association
	// at all; when false the server-info frame omits
	// num_operations/udp_mode/auth codes and the client skips the UDP
	// handshake loop entirely.
	UDPEnabled bool `mapstructure:"udp_enabled" json:"udp_enabled" yaml:"udp_enabled" toml:"udp_enabled"`

	// UDPMode selects one of the four framer/udp variants.
	UDPMode libfru.Mode `mapstructure:"udp_mode" json:"udp_mode" yaml:"udp_mode" toml:"udp_mode"`

	// NumOperations is only meaningful with ModePerClientPerOp.
	NumOperations uint64 `mapstructure:"num_operations" json:"num_operations" yaml:"num_operations" toml:"num_operations"`

	// RecvSizeTCP and RecvSizeUDP size the initial partial-packet and
	// datagram receive buffers.
	RecvSizeTCP libsiz.Size `mapstructure:"recv_size_tcp" json:"recv_size_tcp" yaml:"recv_size_tcp" toml:"recv_size_tcp"`
	RecvSizeUDP libsiz.Size `mapstructure:"recv_size_udp" json:"recv_size_udp" yaml:"recv_size_udp" toml:"recv_size_udp"`

	// AutoResizeTCP allows the TCP framer to grow its partial-packet
	// buffer past RecvSizeTCP instead of capping there.
	AutoResizeTCP bool `mapstructure:"auto_resize_tcp" json:"auto_resize_tcp" yaml:"auto_resize_tcp" toml:"auto_resize_tcp"`

	// Postfix is required exactly when UDPMode selects a variant that
	// requires a postfix-delimited TCP framing mode alongside it.
	Postfix []byte `mapstructure:"postfix" json:"postfix" yaml:"postfix" toml:"postfix"`

	// Memory accountant caps. TCP limits are per-client; UDP limits are
	// shared across the instance (or per-client on a per-client UDP mode).
	SendMemLimitTCP libsiz.Size `mapstructure:"send_mem_limit_tcp" json:"send_mem_limit_tcp" yaml:"send_mem_limit_tcp" toml:"send_mem_limit_tcp"`
	RecvMemLimitTCP libsiz.Size `mapstructure:"recv_mem_limit_tcp" json:"recv_mem_limit_tcp" yaml:"recv_mem_limit_tcp" toml:"recv_mem_limit_tcp"`
	SendMemLimitUDP libsiz.Size `mapstructure:"send_mem_limit_udp" json:"send_mem_limit_udp" yaml:"send_mem_limit_udp" toml:"send_mem_limit_udp"`
	RecvMemLimitUDP libsiz.Size `mapstructure:"recv_mem_limit_udp" json:"recv_mem_limit_udp" yaml:"recv_mem_limit_udp" toml:"recv_mem_limit_udp"`

	// MemoryRecycleTCP and MemoryRecycleUDP hold the (count, size) of a
	// packet recycle bucket. No instance constructor reads them: each
	// packet.Pool is bounded only by its memory limit and keeps every
	// released packet for reuse.
	MemoryRecycleTCP RecyclePool `mapstructure:"memory_recycle_tcp" json:"memory_recycle_tcp" yaml:"memory_recycle_tcp" toml:"memory_recycle_tcp"`
	MemoryRecycleUDP RecyclePool `mapstructure:"memory_recycle_udp" json:"memory_recycle_udp" yaml:"memory_recycle_udp" toml:"memory_recycle_udp"`

	// SendTimeout bounds a single blocking send; ConnectionTimeout
	// bounds the whole client handshake.
	SendTimeout       libdur.Duration `mapstructure:"send_timeout" json:"send_timeout" yaml:"send_timeout" toml:"send_timeout"`
	ConnectionTimeout libdur.Duration `mapstructure:"connection_timeout" json:"connection_timeout" yaml:"connection_timeout" toml:"connection_timeout"`

	// RecvFuncTCP and RecvFuncUDP are optional synchronous callbacks;
	// when nil, received frames accumulate on the framer's queue instead.
	RecvFuncTCP RecvFunc `mapstructure:"-" json:"-" yaml:"-" toml:"-"`
	RecvFuncUDP RecvFunc `mapstructure:"-" json:"-" yaml:"-" toml:"-"`

	// Logger receives structured diagnostics from ioengine, socket and
	// instance/*; when nil, those packages only record into netmode.
	Logger *logrus.Logger `mapstructure:"-" json:"-" yaml:"-" toml:"-"`
}

// RecyclePool is the (count, size) pair sizing a packet recycle bucket.
type RecyclePool struct {
	Count int         `mapstructure:"count" json:"count" yaml:"count" toml:"count"`
	Size  libsiz.Size `mapstructure:"size" json:"size" yaml:"size" toml:"size"`
}

// Default returns a Config with sane defaults:
// handshake and graceful disconnect on, Nagle on, per-client UDP mode,
// generous but finite memory caps, no recycling, no callbacks.
func Default() Config {
	return Config{
		LocalAddrTCP:              "0.0.0.0:0",
		LocalAddrUDP:              "0.0.0.0:0",
		HandshakeEnabled:          true,
		GracefulDisconnectEnabled: true,
		NagleEnabled:              true,
		MaxClients:                64,
		UDPEnabled:                true,
		UDPMode:                   libfru.ModePerClient,
		RecvSizeTCP:               4 * libsiz.SizeKilo,
		RecvSizeUDP:               64 * libsiz.SizeKilo,
		AutoResizeTCP:             true,
		SendMemLimitTCP:           16 * libsiz.SizeMega,
		RecvMemLimitTCP:           16 * libsiz.SizeMega,
		SendMemLimitUDP:           16 * libsiz.SizeMega,
		RecvMemLimitUDP:           16 * libsiz.SizeMega,
		SendTimeout:               libdur.Seconds(30),
		ConnectionTimeout:         libdur.Seconds(30),
	}
}

// tcpModeForUDP returns the TCP framing mode a given UDP mode requires
// alongside it on the same connection: the
// length-prefixed server-info/handshake frame still needs an unambiguous
// terminator, and postfix-requiring UDP modes carry that requirement
// onto the paired TCP stream.
// TCPMode returns the TCP framing mode instance/client and instance/server
// must pair with c.UDPMode on the handshake-negotiated connection.
func (c Config) TCPMode() libfrt.Mode {
	return c.tcpModeForUDP()
}

func (c Config) tcpModeForUDP() libfrt.Mode {
	if !c.UDPEnabled {
		return libfrt.ModeLengthPrefix
	}
	switch c.UDPMode {
	case libfru.ModeCatchAllNoReorder:
		return libfrt.ModePostfix
	default:
		return libfrt.ModeLengthPrefix
	}
}
