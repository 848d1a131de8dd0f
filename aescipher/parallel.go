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

import (
	"crypto/cipher"
	"sync/atomic"
	"time"

	libpkt "github.com/nabbar/netcore/packet"
	libwrk "github.com/nabbar/netcore/worker"
)

// ClassIndex is the class-index this package registers its worker pool
// under in a worker.SharedPool, so every Key in the process shares one
// encryption pool.
const ClassIndex = 1

// Operation tracks the completion of one parallel encrypt/decrypt call
// spread across a worker.Pool's partitions; callers either Wait on it or
// poll IsLastOperationFinished.
type Operation struct {
	remaining int32
	done      chan struct{}
}

func newOperation(parts int) *Operation {
	o := &Operation{remaining: int32(parts), done: make(chan struct{})}
	if parts == 0 {
		close(o.done)
	}
	return o
}

func (o *Operation) partDone() {
	if atomic.AddInt32(&o.remaining, -1) == 0 {
		close(o.done)
	}
}

// IsLastOperationFinished reports whether every partition has completed.
func (o *Operation) IsLastOperationFinished() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Wait blocks until every partition completes, or timeout elapses (<=0
// waits forever). It returns false on timeout.
func (o *Operation) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-o.done
		return true
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-o.done:
		return true
	case <-t.C:
		return false
	}
}

type cipherJob struct {
	block   cipher.Block
	buf     []byte
	start   int
	end     int
	encrypt bool
	op      *Operation
}

func (j *cipherJob) TakeAction() {
	if j.encrypt {
		encryptRange(j.block, j.buf, j.start, j.end)
	} else {
		decryptRange(j.block, j.buf, j.start, j.end)
	}
	j.op.partDone()
}

// Encrypt pads nothing itself - pk.Used() must already be a multiple of
// BlockSize (the caller pads before calling) - and
// dispatches one job per worker in pool across contiguous block ranges of
// pk's bytes. When block is true it waits for every worker to finish
// before returning; when false it returns immediately with an Operation
// the caller can poll.
func Encrypt(pool *libwrk.Pool, key Key, pk *libpkt.Packet, block bool) (*Operation, error) {
	return dispatch(pool, key, pk, true, block)
}

// Decrypt is Encrypt's inverse. pk.Used() must be nonzero and a multiple
// of BlockSize, or ErrInvalidLength is returned.
func Decrypt(pool *libwrk.Pool, key Key, pk *libpkt.Packet, block bool) (*Operation, error) {
	if pk.Used() == 0 {
		return nil, ErrInvalidLength
	}
	return dispatch(pool, key, pk, false, block)
}

func dispatch(pool *libwrk.Pool, key Key, pk *libpkt.Packet, encrypt bool, block bool) (*Operation, error) {
	used := pk.Used()
	if used == 0 || used%BlockSize != 0 {
		return nil, ErrInvalidLength
	}

	b, err := key.Block()
	if err != nil {
		return nil, err
	}

	buf := pk.Bytes()
	nBlocks := used / BlockSize
	ranges := partition(nBlocks, pool.Size())

	parts := 0
	for _, r := range ranges {
		if r[1] > r[0] {
			parts++
		}
	}

	op := newOperation(parts)

	for i, r := range ranges {
		if r[1] <= r[0] {
			continue
		}
		pool.Dispatch(i, &cipherJob{
			block:   b,
			buf:     buf,
			start:   r[0],
			end:     r[1],
			encrypt: encrypt,
			op:      op,
		})
	}

	if block {
		op.Wait(0)
	}

	return op, nil
}
