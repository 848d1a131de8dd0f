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

// Package aescipher implements the AES round-key schedule and parallel
// block cipher: a key built from fixed-arity integer tuples,
// expanded via the standard AES key schedule, and dispatched across a
// worker pool so each worker encrypts or decrypts its own contiguous run
// of 16-byte blocks independently.
package aescipher

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
)

// BlockSize is the AES block size in bytes.
const BlockSize = aes.BlockSize

// ErrInvalidLength is returned when a buffer's used length is zero or not
// a multiple of BlockSize.
var ErrInvalidLength = errors.New("aescipher: length is zero or not a multiple of 16")

// Key holds raw key material for AES-128/192/256. The round-key expansion
// itself is deferred to crypto/aes.NewCipher, which performs the standard
// AES key schedule; Key's job is constructing the raw bytes from
// fixed-arity integer tuples, matching the tuple-of-uint32 key
// constructors below.
type Key struct {
	raw []byte
}

// NewKey128 builds a 128-bit key from four 32-bit words, big-endian.
func NewKey128(a, b, c, d uint32) Key {
	return Key{raw: packWords(a, b, c, d)}
}

// NewKey192 builds a 192-bit key from six 32-bit words, big-endian.
func NewKey192(a, b, c, d, e, f uint32) Key {
	return Key{raw: packWords(a, b, c, d, e, f)}
}

// NewKey256 builds a 256-bit key from eight 32-bit words, big-endian.
func NewKey256(a, b, c, d, e, f, g, h uint32) Key {
	return Key{raw: packWords(a, b, c, d, e, f, g, h)}
}

// NewKeyBytes wraps an existing 16/24/32-byte key, for keys loaded from
// configuration rather than constructed in code.
func NewKeyBytes(b []byte) (Key, error) {
	switch len(b) {
	case 16, 24, 32:
		raw := make([]byte, len(b))
		copy(raw, b)
		return Key{raw: raw}, nil
	default:
		return Key{}, ErrInvalidLength
	}
}

func packWords(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(b[i*4:], w)
	}
	return b
}

// Size returns the key length in bytes (16, 24 or 32).
func (k Key) Size() int {
	return len(k.raw)
}

// Block expands the key via the standard AES key schedule, returning a
// cipher.Block ready for single-block Encrypt/Decrypt calls.
func (k Key) Block() (cipher.Block, error) {
	return aes.NewCipher(k.raw)
}
