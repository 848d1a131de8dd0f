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

package aescipher

import "crypto/cipher"

// encryptRange encrypts buf[start*BlockSize : end*BlockSize) in place,
// one independent 16-byte block at a time - there is no chaining between
// blocks, matching the "each worker encrypts its blocks
// independently" contract (a parallel-safe mode by construction, since
// partitions never need each other's output).
func encryptRange(b cipher.Block, buf []byte, start, end int) {
	for i := start; i < end; i++ {
		off := i * BlockSize
		b.Encrypt(buf[off:off+BlockSize], buf[off:off+BlockSize])
	}
}

// decryptRange is encryptRange's inverse.
func decryptRange(b cipher.Block, buf []byte, start, end int) {
	for i := start; i < end; i++ {
		off := i * BlockSize
		b.Decrypt(buf[off:off+BlockSize], buf[off:off+BlockSize])
	}
}

// partition splits nBlocks blocks into at most workers contiguous,
// near-equal ranges. A worker count larger than nBlocks yields empty
// ranges for the excess workers.
func partition(nBlocks, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}

	ranges := make([][2]int, workers)
	base := nBlocks / workers
	rem := nBlocks % workers

	pos := 0
	for i := 0; i < workers; i++ {
		n := base
		if i < rem {
			n++
		}
		ranges[i] = [2]int{pos, pos + n}
		pos += n
	}

	return ranges
}
