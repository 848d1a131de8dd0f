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
)

// String renders the Size using the largest binary unit that keeps the
// mantissa >= 1, e.g. "1.50 MiB". Values under 1 KiB render as a plain byte
// count, e.g. "512 B".
func (s Size) String() string {
	v := float64(s)

	switch {
	case s >= SizeExa:
		return fmtUnit(v/float64(SizeExa), "EiB")
	case s >= SizePeta:
		return fmtUnit(v/float64(SizePeta), "PiB")
	case s >= SizeTera:
		return fmtUnit(v/float64(SizeTera), "TiB")
	case s >= SizeGiga:
		return fmtUnit(v/float64(SizeGiga), "GiB")
	case s >= SizeMega:
		return fmtUnit(v/float64(SizeMega), "MiB")
	case s >= SizeKilo:
		return fmtUnit(v/float64(SizeKilo), "KiB")
	default:
		return strconv.FormatUint(uint64(s), 10) + " B"
	}
}

func fmtUnit(v float64, unit string) string {
	return fmt.Sprintf("%.2f %s", v, unit)
}

// MarshalText implements encoding.TextMarshaler so a Size can be embedded
// directly in JSON, YAML and TOML configuration structs.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Size) UnmarshalText(p []byte) error {
	v, err := ParseByte(p)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler, encoding the Size as its raw byte
// count rather than its human-readable text form, so round-tripping through
// JSON preserves exact values.
func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(s), 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts either a bare JSON
// number or a quoted human-readable string such as "10MiB".
func (s *Size) UnmarshalJSON(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	if p[0] == '"' {
		var str string
		str = string(p[1 : len(p)-1])
		v, err := Parse(str)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}

	u, err := strconv.ParseUint(string(p), 10, 64)
	if err != nil {
		return err
	}

	*s = Size(u)
	return nil
}
