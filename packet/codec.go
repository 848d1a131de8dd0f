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

import (
	"encoding/binary"
	"math"
)

// Fixed is the set of integer widths the codec accepts for Add/Get (the
// add<T>/get<T> contract). Every value is encoded little-endian at its native
// width - unlike AddSize/AddClock, it is NOT normalized to 8 bytes.
type Fixed interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

func widthOf[T Fixed]() int {
	var v T
	switch any(v).(type) {
	case uint8, int8:
		return 1
	case uint16, int16:
		return 2
	case uint32, int32:
		return 4
	case uint64, int64:
		return 8
	default:
		return 8
	}
}

// Add appends value at the cursor, growing the buffer if needed, and
// advances both cursor and used past the written bytes.
func Add[T Fixed](p *Packet, value T) error {
	w := widthOf[T]()

	if err := p.growTo(p.cursor + w); err != nil {
		return err
	}

	u := toUint64(value)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	copy(p.data[p.cursor:p.cursor+w], buf[:w])

	p.cursor += w
	if p.cursor > p.used {
		p.used = p.cursor
	}

	return nil
}

// Get reads a value of type T at the cursor and advances the cursor past
// it. It returns ErrEndOfPacket if fewer than width(T) bytes remain.
func Get[T Fixed](p *Packet) (T, error) {
	var zero T
	w := widthOf[T]()

	if p.cursor+w > p.used {
		return zero, ErrEndOfPacket
	}

	var buf [8]byte
	copy(buf[:], p.data[p.cursor:p.cursor+w])
	u := binary.LittleEndian.Uint64(buf[:])

	p.cursor += w

	return fromUint64[T](u, w), nil
}

func toUint64[T Fixed](v T) uint64 {
	switch x := any(v).(type) {
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case uint64:
		return x
	case int8:
		return uint64(uint8(x))
	case int16:
		return uint64(uint16(x))
	case int32:
		return uint64(uint32(x))
	case int64:
		return uint64(x)
	default:
		return 0
	}
}

func fromUint64[T Fixed](u uint64, w int) T {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return any(uint8(u)).(T)
	case uint16:
		return any(uint16(u)).(T)
	case uint32:
		return any(uint32(u)).(T)
	case uint64:
		return any(u).(T)
	case int8:
		return any(int8(uint8(u))).(T)
	case int16:
		return any(int16(uint16(u))).(T)
	case int32:
		return any(int32(uint32(u))).(T)
	case int64:
		return any(int64(u)).(T)
	default:
		return zero
	}
}

// AddSize writes v as a width-normalized 8-byte field, regardless of the
// platform's native int size (the "normalized wire width" rule, kept
// so packets built on one architecture decode identically on another).
func (p *Packet) AddSize(v uint64) error {
	if err := p.growTo(p.cursor + 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(p.data[p.cursor:p.cursor+8], v)
	p.cursor += 8
	if p.cursor > p.used {
		p.used = p.cursor
	}
	return nil
}

// GetSize reads an 8-byte width-normalized size field.
func (p *Packet) GetSize() (uint64, error) {
	if p.cursor+8 > p.used {
		return 0, ErrEndOfPacket
	}
	v := binary.LittleEndian.Uint64(p.data[p.cursor : p.cursor+8])
	p.cursor += 8
	return v, nil
}

// AddClock writes a monotonic tick value as an 8-byte width-normalized
// field (the packet age marker, consumed by the UDP framer's
// wraparound heuristic).
func (p *Packet) AddClock(v uint64) error {
	return p.AddSize(v)
}

// GetClock reads an 8-byte width-normalized clock field.
func (p *Packet) GetClock() (uint64, error) {
	return p.GetSize()
}

// AddFloat32 appends an IEEE-754 single-precision value.
func (p *Packet) AddFloat32(v float32) error {
	return Add(p, math.Float32bits(v))
}

// GetFloat32 reads an IEEE-754 single-precision value.
func (p *Packet) GetFloat32() (float32, error) {
	u, err := Get[uint32](p)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// AddFloat64 appends an IEEE-754 double-precision value.
func (p *Packet) AddFloat64(v float64) error {
	return Add(p, math.Float64bits(v))
}

// GetFloat64 reads an IEEE-754 double-precision value.
func (p *Packet) GetFloat64() (float64, error) {
	u, err := Get[uint64](p)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// AddBytes appends raw bytes verbatim, with no length prefix.
func (p *Packet) AddBytes(b []byte) error {
	if err := p.growTo(p.cursor + len(b)); err != nil {
		return err
	}
	copy(p.data[p.cursor:p.cursor+len(b)], b)
	p.cursor += len(b)
	if p.cursor > p.used {
		p.used = p.cursor
	}
	return nil
}

// GetBytes reads n raw bytes verbatim and advances the cursor.
func (p *Packet) GetBytes(n int) ([]byte, error) {
	if n < 0 || p.cursor+n > p.used {
		return nil, ErrEndOfPacket
	}
	b := make([]byte, n)
	copy(b, p.data[p.cursor:p.cursor+n])
	p.cursor += n
	return b, nil
}

// AddString appends s. When withPrefix is true it is preceded by an
// AddSize length prefix (readable back with GetString); otherwise the
// caller is responsible for framing it (e.g. a trailing delimiter).
func (p *Packet) AddString(s string, withPrefix bool) error {
	if withPrefix {
		if err := p.AddSize(uint64(len(s))); err != nil {
			return err
		}
	}
	return p.AddBytes([]byte(s))
}

// GetString reads a string previously written with AddString(s, true).
func (p *Packet) GetString() (string, error) {
	n, err := p.GetSize()
	if err != nil {
		return "", err
	}
	b, err := p.GetBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetStringN reads exactly n bytes as a string, with no length prefix
// (the postfix/raw TCP framers' use case, where length comes from
// delimiter position or socket EOF instead).
func (p *Packet) GetStringN(n int) (string, error) {
	b, err := p.GetBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
