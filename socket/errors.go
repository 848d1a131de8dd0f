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

import "errors"

var (
	// ErrNotInitialized is returned by Recv/Send when the underlying
	// handle hasn't been Bound/Connected yet.
	ErrNotInitialized = errors.New("socket: not initialized")
	// ErrNotUDP is returned by UDP-only operations invoked on a TCP socket.
	ErrNotUDP = errors.New("socket: operation requires a UDP socket")
	// ErrClosed reports a socket that is already closed. No Socket method
	// returns it: an operation after Close surfaces the underlying net
	// error instead.
	ErrClosed = errors.New("socket: already closed")
)

// Status is the outcome of one Send call (the send-operation
// lifecycle: COMPLETED / IN_PROGRESS / FAILED / FAILED_KILL).
type Status uint8

const (
	StatusCompleted Status = iota
	StatusInProgress
	StatusFailed
	StatusFailedKill
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "COMPLETED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFailed:
		return "FAILED"
	case StatusFailedKill:
		return "FAILED_KILL"
	default:
		return "UNKNOWN"
	}
}
