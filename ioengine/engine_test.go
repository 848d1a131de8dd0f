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

package ioengine_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	libeng "github.com/nabbar/netcore/ioengine"
	libsck "github.com/nabbar/netcore/socket"
	"github.com/prometheus/client_golang/prometheus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Engine", func() {
	It("runs every submitted completion exactly once", func() {
		eng := libeng.New(4, nil)
		defer eng.Close()

		var n int32
		var wg sync.WaitGroup
		wg.Add(100)

		for i := 0; i < 100; i++ {
			eng.Submit(libsck.Completion{
				Handle: func() error {
					atomic.AddInt32(&n, 1)
					wg.Done()
					return nil
				},
			})
		}

		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()

		Eventually(done, time.Second).Should(BeClosed())
		Expect(atomic.LoadInt32(&n)).To(Equal(int32(100)))
	})

	It("routes a failing completion to OnError without stopping the pool", func() {
		eng := libeng.New(2, nil)
		defer eng.Close()

		errored := make(chan error, 1)
		eng.Submit(libsck.Completion{
			Handle:  func() error { return errors.New("boom") },
			OnError: func(err error) { errored <- err },
		})

		var got error
		Eventually(errored, time.Second).Should(Receive(&got))
		Expect(got).To(MatchError("boom"))

		ok := make(chan struct{}, 1)
		eng.Submit(libsck.Completion{Handle: func() error { ok <- struct{}{}; return nil }})
		Eventually(ok, time.Second).Should(Receive())
	})

	It("Close returns after every worker has drained", func() {
		eng := libeng.New(3, nil)

		var ran int32
		for i := 0; i < 10; i++ {
			eng.Submit(libsck.Completion{Handle: func() error {
				atomic.AddInt32(&ran, 1)
				return nil
			}})
		}

		eng.Close()
		Expect(atomic.LoadInt32(&ran)).To(Equal(int32(10)))
	})

	It("exposes a usable Metrics collector", func() {
		m := libeng.NewMetrics("netcore_test")
		reg := prometheus.NewRegistry()
		Expect(reg.Register(m)).To(Succeed())

		eng := libeng.New(1, m)
		defer eng.Close()

		done := make(chan struct{})
		eng.Submit(libsck.Completion{Handle: func() error { close(done); return nil }})
		Eventually(done, time.Second).Should(BeClosed())

		families, err := reg.Gather()
		Expect(err).ToNot(HaveOccurred())
		Expect(families).ToNot(BeEmpty())
	})
})
