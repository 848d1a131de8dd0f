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

// Mode is the process-wide bitfield of actions the public API boundary
// takes when an internal *Error escapes it.
type Mode uint8

const (
	// Throw re-raises the error to the caller (the public function
	// returns it as its error value).
	Throw Mode = 1 << iota
	// Record stores the error in the context's single-slot "last error,"
	// polled and cleared separately from the call's own return value.
	Record
	// Display invokes the context's DisplayFunc hook, standing in for
	// a platform modal (reserved for interactive builds; a
	// headless service typically leaves DisplayFunc nil, making Display
	// a no-op other than the bit being set).
	Display
)

// Default is the startup mode: Display enabled, the others off.
const Default = Display

// String renders the set bits in THROW|RECORD|DISPLAY name order.
func (m Mode) String() string {
	if m == 0 {
		return "none"
	}

	s := ""
	add := func(bit Mode, name string) {
		if m&bit != 0 {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	add(Throw, "THROW")
	add(Record, "RECORD")
	add(Display, "DISPLAY")

	return s
}

// Has reports whether every bit in bits is set in m.
func (m Mode) Has(bits Mode) bool {
	return m&bits == bits
}
