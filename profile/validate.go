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

package profile

import (
	"fmt"

	libfrt "github.com/nabbar/netcore/framer/tcp"
	libfru "github.com/nabbar/netcore/framer/udp"
	libmde "github.com/nabbar/netcore/netmode"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct-level constraints with go-playground/validator,
// then the cross-field rules that only hold between options rather than on
// a single-field constraint (the postfix/udp_mode pairing, num_operations
// only meaning something under ModePerClientPerOp).
//
// Every rejection is wrapped as a netmode.KindInvalidArgument error, so a
// caller that consults the error-mode bitfield sees a profile
// rejection the same way it sees any other public-boundary error.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return libmde.New(libmde.KindInvalidArgument, err)
	}

	if err := c.validateCrossFields(); err != nil {
		return libmde.New(libmde.KindInvalidArgument, err)
	}

	return nil
}

func (c Config) validateCrossFields() error {
	needsPostfix := c.tcpModeForUDP() == libfrt.ModePostfix
	if needsPostfix && len(c.Postfix) == 0 {
		return fmt.Errorf("udp_mode %d requires a non-empty postfix", c.UDPMode)
	}
	if !needsPostfix && len(c.Postfix) > 0 {
		return fmt.Errorf("postfix is set but udp_mode %d does not use postfix-delimited TCP framing", c.UDPMode)
	}

	if c.UDPEnabled && c.UDPMode == libfru.ModePerClientPerOp && c.NumOperations == 0 {
		return fmt.Errorf("num_operations must be > 0 for udp_mode per-client-per-op")
	}

	if c.HandshakeEnabled && c.MaxClients <= 0 {
		return fmt.Errorf("max_clients must be > 0 when handshake_enabled")
	}

	if c.RecvSizeTCP == 0 {
		return fmt.Errorf("recv_size_tcp must be > 0")
	}
	if c.RecvSizeUDP == 0 {
		return fmt.Errorf("recv_size_udp must be > 0")
	}

	return nil
}
