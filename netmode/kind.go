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

// Package netmode implements the error-kind taxonomy and public-boundary
// propagation policy: internal code always propagates a
// tagged error; only the public API boundary consults a process-wide mode
// bitfield deciding whether to re-raise it, record it in a single-slot
// "last error," or surface it some other way.
package netmode

// Kind tags an error with its abstract failure category.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindIO
	KindProtocol
	KindInvalidArgument
	KindOutOfBounds
	KindInvalidState
	KindMemoryLimitExceeded
	KindAllocationFailed
	KindEndOfPacket
	KindTimeout
	KindAuthenticationFailed
	KindInvalidLength
	KindNotInitialized
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindIO:                   "io",
	KindProtocol:             "protocol",
	KindInvalidArgument:      "invalid_argument",
	KindOutOfBounds:          "out_of_bounds",
	KindInvalidState:         "invalid_state",
	KindMemoryLimitExceeded:  "memory_limit_exceeded",
	KindAllocationFailed:     "allocation_failed",
	KindEndOfPacket:          "end_of_packet",
	KindTimeout:              "timeout",
	KindAuthenticationFailed: "authentication_failed",
	KindInvalidLength:        "invalid_length",
	KindNotInitialized:       "not_initialized",
}

// String returns the kind's lower_snake_case name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error pairs a Kind with the underlying cause, implementing error and
// errors.Unwrap so callers can still use errors.Is/As against the
// wrapped cause.
type Error struct {
	Kind  Kind
	Cause error
}

// New constructs an Error tagging cause with kind. A nil cause is
// replaced with a generic error carrying the kind's name, so Error is
// never constructed with a nil underlying message.
func New(kind Kind, cause error) *Error {
	if cause == nil {
		cause = errString(kind.String())
	}
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type errString string

func (e errString) Error() string { return string(e) }
