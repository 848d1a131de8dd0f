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

package netmode

import liberr "github.com/nabbar/netcore/errors"

// Registered CodeErrors for the Kind taxonomy, reserved under the
// network package's block so any caller that also imports the ambient
// errors package and wants a CodeError (rather than a *netmode.Error)
// for logging or wire transmission has one.
const (
	CodeIO liberr.CodeError = iota + liberr.MinPkgNetwork
	CodeProtocol
	CodeInvalidArgument
	CodeOutOfBounds
	CodeInvalidState
	CodeMemoryLimitExceeded
	CodeAllocationFailed
	CodeEndOfPacket
	CodeTimeout
	CodeAuthenticationFailed
	CodeInvalidLength
	CodeNotInitialized
)

var kindToCode = map[Kind]liberr.CodeError{
	KindIO:                   CodeIO,
	KindProtocol:             CodeProtocol,
	KindInvalidArgument:      CodeInvalidArgument,
	KindOutOfBounds:          CodeOutOfBounds,
	KindInvalidState:         CodeInvalidState,
	KindMemoryLimitExceeded:  CodeMemoryLimitExceeded,
	KindAllocationFailed:     CodeAllocationFailed,
	KindEndOfPacket:          CodeEndOfPacket,
	KindTimeout:              CodeTimeout,
	KindAuthenticationFailed: CodeAuthenticationFailed,
	KindInvalidLength:        CodeInvalidLength,
	KindNotInitialized:       CodeNotInitialized,
}

func init() {
	liberr.RegisterIdFctMessage(CodeIO, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case CodeIO:
		return "i/o failure"
	case CodeProtocol:
		return "protocol violation"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeOutOfBounds:
		return "index out of bounds"
	case CodeInvalidState:
		return "invalid state for requested operation"
	case CodeMemoryLimitExceeded:
		return "memory limit exceeded"
	case CodeAllocationFailed:
		return "allocation failed"
	case CodeEndOfPacket:
		return "end of packet"
	case CodeTimeout:
		return "operation timed out"
	case CodeAuthenticationFailed:
		return "authentication failed"
	case CodeInvalidLength:
		return "invalid length"
	case CodeNotInitialized:
		return "not initialized"
	}
	return ""
}

// Code returns the CodeError registered for kind, or the library's
// unknown-error code if kind has no mapping (KindUnknown).
func (k Kind) Code() liberr.CodeError {
	if c, ok := kindToCode[k]; ok {
		return c
	}
	return liberr.UnknownError
}
