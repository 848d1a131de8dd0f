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

package packet

import "bytes"

// Equal reports whether p and o carry the same used bytes and metadata.
// Cursor position and spare capacity are not part of equality.
func (p *Packet) Equal(o *Packet) bool {
	if o == nil {
		return false
	}
	if p.ClientFrom != o.ClientFrom || p.Operation != o.Operation ||
		p.Instance != o.Instance || p.Age != o.Age {
		return false
	}
	return bytes.Equal(p.Bytes(), o.Bytes())
}

// Clone returns a deep copy of p: owned storage, same used bytes, same
// metadata, cursor reset to zero.
func (p *Packet) Clone() *Packet {
	c := &Packet{
		data:       make([]byte, p.used),
		used:       p.used,
		ClientFrom: p.ClientFrom,
		Operation:  p.Operation,
		Instance:   p.Instance,
		Age:        p.Age,
	}
	copy(c.data, p.data[:p.used])
	return c
}
