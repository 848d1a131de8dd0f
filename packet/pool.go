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
	"sync"

	libccy "github.com/nabbar/netcore/concurrency"
	libsiz "github.com/nabbar/netcore/size"
)

// Pool is a bounded-memory recycle pool of Packets: Acquire
// returns a Packet of at least the requested size, reusing a released one
// when available; Release clears and returns a Packet for reuse. The
// pool's resident memory (all packets currently held, acquired or
// released-and-idle) is tracked against a concurrency.Accountant so a
// class configured with a bounded backlog fails fast instead of growing
// without limit.
type Pool struct {
	mu      sync.Mutex
	idle    []*Packet
	account *libccy.Accountant
}

// NewPool constructs a recycle pool bounded by limit bytes of resident
// packet memory (libsiz.SizeNul for unbounded).
func NewPool(limit libsiz.Size) *Pool {
	return &Pool{account: libccy.NewAccountant(limit)}
}

// Acquire returns a Packet with at least n bytes of capacity, preferring
// to recycle an idle one large enough to avoid a fresh allocation. It
// fails with the accountant's MemoryLimitExceeded if growing (or
// allocating) would exceed the pool's configured limit.
func (p *Pool) Acquire(n int) (*Packet, error) {
	p.mu.Lock()

	for i := len(p.idle) - 1; i >= 0; i-- {
		c := p.idle[i]
		if c.Capacity() >= n {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			p.mu.Unlock()
			c.Reset()
			return c, nil
		}
	}

	// Recycle the most recently released idle packet, if any, growing it; otherwise
	// allocate fresh. Either way the delta charged is only the additional
	// bytes actually allocated, not n itself.
	var pk *Packet
	var delta int

	if len(p.idle) > 0 {
		pk = p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		delta = n - pk.Capacity()
		if delta < 0 {
			delta = 0
		}
	} else {
		pk = &Packet{}
		delta = n
	}

	p.mu.Unlock()

	if delta > 0 {
		if err := p.account.Increase(libsiz.Size(delta)); err != nil {
			return nil, err
		}
	}

	if pk.Capacity() < n {
		if err := pk.ChangeMemorySize(n); err != nil {
			p.account.Decrease(libsiz.Size(delta))
			return nil, err
		}
	}
	pk.Reset()

	return pk, nil
}

// Release returns pk to the pool for reuse. It does not reduce the
// accountant's charge: the bytes stay resident, held by the idle packet,
// until the pool itself is discarded or the packet is reused for a
// smaller Acquire (whose unused delta is simply not re-charged).
func (p *Pool) Release(pk *Packet) {
	if pk == nil {
		return
	}
	pk.Reset()

	p.mu.Lock()
	p.idle = append(p.idle, pk)
	p.mu.Unlock()
}

// Len returns the number of packets currently idle in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Resident returns the total bytes currently charged against the pool's
// accountant.
func (p *Pool) Resident() libsiz.Size {
	return p.account.Current()
}
