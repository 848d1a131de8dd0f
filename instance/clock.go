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

import "time"

// Clock produces the monotonic 8-byte age every outbound UDP data packet
// carries (milliseconds since process start).
// Age never returns zero: that value is reserved for handshake packets.
type Clock struct {
	start time.Time
}

// NewClock starts a Clock at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Age returns the milliseconds elapsed since the clock started, floored
// at 1 so a data packet sent in the first millisecond is never mistaken
// for a handshake.
func (c *Clock) Age() uint64 {
	ms := time.Since(c.start).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return uint64(ms)
}
