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

// Insert opens a gap of n bytes at offset, shifting [offset:used) to the
// right and growing the buffer if needed. used increases by n; cursor
// shifts with it if it sat at or past offset. The gap's bytes are left
// zeroed for the caller to fill in.
func (p *Packet) Insert(offset, n int) error {
	if offset < 0 || offset > p.used || n < 0 {
		return ErrOutOfBounds
	}
	if n == 0 {
		return nil
	}

	if err := p.growTo(p.used + n); err != nil {
		return err
	}

	copy(p.data[offset+n:p.used+n], p.data[offset:p.used])
	for i := offset; i < offset+n; i++ {
		p.data[i] = 0
	}

	p.used += n
	if p.cursor >= offset {
		p.cursor += n
	}

	return nil
}

// Erase removes n bytes starting at offset, shifting [offset+n:used) left.
// used shrinks by n; cursor shifts left with it if it sat past the erased
// range, or clamps to offset if it sat inside it.
func (p *Packet) Erase(offset, n int) error {
	if offset < 0 || n < 0 || offset+n > p.used {
		return ErrOutOfBounds
	}
	if n == 0 {
		return nil
	}

	copy(p.data[offset:p.used-n], p.data[offset+n:p.used])
	p.used -= n

	switch {
	case p.cursor >= offset+n:
		p.cursor -= n
	case p.cursor > offset:
		p.cursor = offset
	}

	return nil
}

// Find searches data[start:end) for needle, returning the absolute offset
// of the first match and true, or (0, false) if not found. end of -1 means
// "to used".
func (p *Packet) Find(start, end int, needle []byte) (int, bool) {
	if start < 0 {
		start = 0
	}
	if end < 0 || end > p.used {
		end = p.used
	}
	if start >= end {
		return 0, false
	}

	idx := bytes.Index(p.data[start:end], needle)
	if idx < 0 {
		return 0, false
	}

	return start + idx, true
}
