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

package netmode

import (
	"sync"
	"sync/atomic"
)

// Context carries the error-mode bitfield and last-error slot as an
// explicit, independently-instantiable value rather than hidden process
// globals, so
// a test (or an embedder running two logical instances in one process)
// does not cross-contaminate the other's last error. A package-level
// Default context is still provided for callers that want a single
// process-wide instance.
type Context struct {
	mode uint32

	mu     sync.Mutex
	last   *Error
	loaded bool

	// DisplayFunc backs the Display mode bit. Nil (the common case for a
	// headless service) makes Display a no-op beyond the bit itself
	// being consulted.
	DisplayFunc func(*Error)
}

// NewContext constructs a Context with the default mode (Display only).
func NewContext() *Context {
	return &Context{mode: uint32(Default)}
}

// defaultCtx is the package-level single process-wide context.
var defaultCtx = NewContext()

// DefaultContext returns the package-level default Context.
func DefaultContext() *Context {
	return defaultCtx
}

// SetMode installs a new mode bitfield.
func (c *Context) SetMode(m Mode) {
	atomic.StoreUint32(&c.mode, uint32(m))
}

// GetMode returns the current mode bitfield.
func (c *Context) GetMode() Mode {
	return Mode(atomic.LoadUint32(&c.mode))
}

// Raise is the public-API-boundary entry point: it consults the
// mode bits in the order DISPLAY, RECORD, THROW, performing each enabled
// action, and returns the error to propagate as the function's own
// return value (non-nil only if THROW is set).
func (c *Context) Raise(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}

	e, ok := cause.(*Error)
	if !ok {
		e = New(kind, cause)
	}

	m := c.GetMode()

	if m.Has(Display) && c.DisplayFunc != nil {
		c.DisplayFunc(e)
	}
	if m.Has(Record) {
		c.recordLast(e)
	}
	if m.Has(Throw) {
		return e
	}

	return nil
}

func (c *Context) recordLast(e *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = e
	c.loaded = true
}

// LastError returns the most recently recorded error and whether the
// slot is loaded.
func (c *Context) LastError() (*Error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.loaded
}

// ClearLastError empties the "last error" slot.
func (c *Context) ClearLastError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
	c.loaded = false
}
