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

package server

import (
	"net"
	"sort"
	"sync"
)

// addrKey is the sort/search key of the address-indexed client lookup
//: (ip, port), compared lexically on ip then numerically on
// port. It serves as both the stored view's key and the search-only
// query key, which needs its own comparator shape.
type addrKey struct {
	ip   string
	port int
}

func keyOf(addr net.Addr) (addrKey, bool) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return addrKey{ip: a.IP.String(), port: a.Port}, true
	case *net.TCPAddr:
		return addrKey{ip: a.IP.String(), port: a.Port}, true
	default:
		return addrKey{}, false
	}
}

func (k addrKey) less(o addrKey) bool {
	if k.ip != o.ip {
		return k.ip < o.ip
	}
	return k.port < o.port
}

type addrEntry struct {
	key  addrKey
	slot int
}

// Table is the server's fixed-size client slot table: an
// identity view (slots 1..MaxClients, stable for a client's lifetime) and
// a lazily-resorted address view over the same *ServerClient pointers,
// searched by binary search once sorted (the "Address-view resort
// policy": lazy, on next lookup, not on every mutation).
//
// Lock order: a caller needing both this table's lock and a ServerClient's
// own lock must take this one first (the documented order,
// avoiding the deadlock a UDP handshake's concurrent table-mutate and
// per-client-state-mutate could otherwise invite).
type Table struct {
	mu      sync.RWMutex
	slots   []*ServerClient // index 0 unused; 1..max are client ids 1..max
	entries []addrEntry
	dirty   bool
}

// NewTable allocates a table with room for maxClients simultaneous
// clients (ids 1..maxClients).
func NewTable(maxClients int) *Table {
	return &Table{slots: make([]*ServerClient, maxClients+1)}
}

// MaxID returns the highest valid client id this table can hold.
func (t *Table) MaxID() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.slots) - 1)
}

// FirstFree returns the lowest free slot id, or 0 when every slot is
// taken, without claiming it (used by the listener's accept-decision callback as a best-effort
// capacity check; the actual claim happens later, synchronously, inside
// Claim).
func (t *Table) FirstFree() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := 1; i < len(t.slots); i++ {
		if t.slots[i] == nil {
			return uint64(i)
		}
	}
	return 0
}

// Claim assigns the lowest free slot to a ServerClient built by build,
// under the table's lock, so the id handed to build and the slot it is
// installed into never race against a concurrent Claim. It reports false
// if every slot is occupied.
func (t *Table) Claim(build func(id uint64) *ServerClient) (*ServerClient, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 1; i < len(t.slots); i++ {
		if t.slots[i] == nil {
			c := build(uint64(i))
			t.slots[i] = c
			t.dirty = true
			return c, true
		}
	}
	return nil, false
}

// Release frees id's slot and marks the address view stale.
func (t *Table) Release(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < len(t.slots) {
		t.slots[id] = nil
	}
	t.dirty = true
}

// Get returns the client occupying id, or nil if the slot is free or out
// of range.
func (t *Table) Get(id uint64) *ServerClient {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id == 0 || int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

// MarkDirty flags the address view as stale, forcing a resort on the next
// Lookup.
func (t *Table) MarkDirty() {
	t.mu.Lock()
	t.dirty = true
	t.mu.Unlock()
}

// resort rebuilds the address-sorted view from the identity view. Caller
// must hold t.mu for writing; this is the one place Table reaches into a
// ServerClient's own lock while already holding its own, matching the
// documented lock order.
func (t *Table) resort() {
	t.entries = t.entries[:0]
	for i, c := range t.slots {
		if c == nil {
			continue
		}
		addr := c.UDPPeer()
		if addr == nil {
			continue
		}
		k, ok := keyOf(addr)
		if !ok {
			continue
		}
		t.entries = append(t.entries, addrEntry{key: k, slot: i})
	}
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].key.less(t.entries[j].key) })
	t.dirty = false
}

// Lookup finds the ServerClient whose learned UDP peer address equals
// addr, or nil if none matches (the abstract contract).
func (t *Table) Lookup(addr net.Addr) *ServerClient {
	k, ok := keyOf(addr)
	if !ok {
		return nil
	}

	t.mu.Lock()
	if t.dirty {
		t.resort()
	}
	entries := t.entries
	t.mu.Unlock()

	idx := sort.Search(len(entries), func(i int) bool { return !entries[i].key.less(k) })
	if idx >= len(entries) || entries[idx].key != k {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	slot := entries[idx].slot
	if slot >= len(t.slots) {
		return nil
	}
	return t.slots[slot]
}

// Range calls fn for every occupied slot in ascending client-id order,
// over a stable snapshot, stopping early if fn returns false.
func (t *Table) Range(fn func(id uint64, c *ServerClient) bool) {
	t.mu.RLock()
	snap := make([]*ServerClient, len(t.slots))
	copy(snap, t.slots)
	t.mu.RUnlock()

	for i, c := range snap {
		if c == nil {
			continue
		}
		if !fn(uint64(i), c) {
			return
		}
	}
}
