/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package size provides a binary byte-size type with human-readable parsing
// and formatting, used throughout the module for buffer sizes, memory caps
// and recycle-pool capacities.
package size

// Size is a count of bytes, expressed with binary (1024-based) magnitude
// constants. It is a plain uint64 so it composes with normal arithmetic.
type Size uint64

const (
	SizeNul  Size = 0
	SizeUnit Size = 1
	SizeKilo Size = SizeUnit << 10
	SizeMega Size = SizeKilo << 10
	SizeGiga Size = SizeMega << 10
	SizeTera Size = SizeGiga << 10
	SizePeta Size = SizeTera << 10
	SizeExa  Size = SizePeta << 10
)

// Int returns the Size as an int, saturating at math.MaxInt on overflow.
func (s Size) Int() int {
	return intFromUint64(uint64(s))
}

// Int64 returns the Size as an int64, saturating at math.MaxInt64 on overflow.
func (s Size) Int64() int64 {
	return int64FromUint64(uint64(s))
}

// Uint64 returns the Size as a uint64.
func (s Size) Uint64() uint64 {
	return uint64(s)
}

// Float64 returns the Size as a float64.
func (s Size) Float64() float64 {
	return float64(s)
}

// Add returns s + o.
func (s Size) Add(o Size) Size {
	return s + o
}

// Sub returns s - o, clamped to zero (Size is unsigned).
func (s Size) Sub(o Size) Size {
	if o >= s {
		return 0
	}
	return s - o
}
