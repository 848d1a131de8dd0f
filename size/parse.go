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

import (
	"fmt"
	"strconv"
	"strings"
)

var units = []struct {
	suffix []string
	mult   Size
}{
	{[]string{"eib", "eb", "e"}, SizeExa},
	{[]string{"pib", "pb", "p"}, SizePeta},
	{[]string{"tib", "tb", "t"}, SizeTera},
	{[]string{"gib", "gb", "g"}, SizeGiga},
	{[]string{"mib", "mb", "m"}, SizeMega},
	{[]string{"kib", "kb", "k"}, SizeKilo},
	{[]string{"b", ""}, SizeUnit},
}

// Parse parses a human-readable byte size such as "10", "10k", "10KB",
// "1.5 GiB" and returns the corresponding Size.
//
// Parsing is case-insensitive and tolerates an optional space between the
// numeric value and the unit suffix. An empty string parses to zero.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	low := strings.ToLower(s)

	for _, u := range units {
		for _, suf := range u.suffix {
			if suf == "" {
				continue
			}
			if strings.HasSuffix(low, suf) {
				num := strings.TrimSpace(strings.TrimSuffix(low, suf))
				if num == "" {
					continue
				}
				f, err := strconv.ParseFloat(num, 64)
				if err != nil {
					continue
				}
				return ParseFloat64(f * float64(u.mult)), nil
			}
		}
	}

	// plain number, interpreted as raw bytes
	f, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return 0, fmt.Errorf("size: invalid size %q: %w", s, err)
	}

	return ParseFloat64(f), nil
}

// ParseByte is the []byte variant of Parse.
func ParseByte(p []byte) (Size, error) {
	return Parse(string(p))
}
