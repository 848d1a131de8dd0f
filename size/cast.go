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

package size

import "math"

func intFromUint64(v uint64) int {
	if v > uint64(math.MaxInt) {
		return math.MaxInt
	}
	return int(v)
}

func int64FromUint64(v uint64) int64 {
	if v > uint64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(v)
}

// ParseInt64 returns a Size representing i bytes, clamped to zero if negative.
func ParseInt64(i int64) Size {
	if i < 0 {
		return 0
	}
	return Size(i)
}

// ParseInt returns a Size representing i bytes, clamped to zero if negative.
func ParseInt(i int) Size {
	if i < 0 {
		return 0
	}
	return Size(i)
}

// ParseUint64 returns a Size representing u bytes.
func ParseUint64(u uint64) Size {
	return Size(u)
}

// ParseFloat64 returns a Size representing f bytes, rounded and clamped to
// the valid uint64 range.
func ParseFloat64(f float64) Size {
	if f <= 0 {
		return 0
	} else if f >= float64(math.MaxUint64) {
		return Size(math.MaxUint64)
	}
	return Size(math.Round(f))
}
