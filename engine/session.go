/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package engine

import (
	"crypto/tls"
	"sync"
)

// singleSessionCache is a tls.ClientSessionCache holding exactly one entry:
// an Engine drives a single connection, so there is only ever one session
// key (the SNI hostname) worth remembering. It exists so Engine can reach
// into the last stored *tls.ClientSessionState at reset time and serialize
// it for reuse by a later handshake this same Engine drives (§4.1's session
// resumption note).
type singleSessionCache struct {
	mu  sync.Mutex
	cs  *tls.ClientSessionState
	set bool
}

func (c *singleSessionCache) Get(_ string) (*tls.ClientSessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cs, c.set
}

func (c *singleSessionCache) Put(_ string, cs *tls.ClientSessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cs == nil {
		c.set = false
		c.cs = nil
		return
	}
	c.cs = cs
	c.set = true
}

func (c *singleSessionCache) last() (*tls.ClientSessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cs, c.set
}

// applySession reinstalls a previously captured session blob onto cfg so
// the next handshake this Engine drives may resume it.
func (e *engine) applySession(cfg *tls.Config) {
	if len(e.sessionBlob) == 0 {
		return
	}

	state, err := tls.ParseSessionState(e.sessionBlob)
	if err != nil {
		debugf("session restore failed for %s: %s", e.hostname, ErrorSessionRestore.Error(err))
		return
	}

	cs, err := tls.NewResumptionState(nil, state)
	if err != nil {
		debugf("session restore failed for %s: %s", e.hostname, ErrorSessionRestore.Error(err))
		return
	}

	e.cache.Put(e.hostname, cs)
}
