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

package context

import (
	"bytes"
	"crypto/x509"

	"github.com/sabouaram/tlsuv/chain"
	"github.com/sabouaram/tlsuv/key"
)

// SetIdentity installs the own client-authentication identity. Per §3's
// invariant, c's leaf certificate public key must correspond to k; on
// mismatch or an unparsable leaf the call fails.
//
// DECIDED OPEN QUESTION (spec.md §9, item 1): on failure this clears any
// previously configured identity rather than leaving the old one in place —
// the source behaves this way and the rewrite preserves it rather than
// silently fixing it, per spec.md's explicit instruction.
func (c *cryptoContext) SetIdentity(chn chain.Chain, k key.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chn == nil || k == nil || chn.Len() == 0 {
		c.idChain, c.idKey = nil, nil
		return ErrorParamsEmpty.Error(nil)
	}

	leaf := chn.Leaf()
	if leaf == nil {
		c.idChain, c.idKey = nil, nil
		return ErrorOwnCertInvalid.Error(nil)
	}

	if !publicKeysEqual(leaf.PublicKey, k.Public()) {
		c.idChain, c.idKey = nil, nil
		return ErrorOwnKeyMismatch.Error(nil)
	}

	c.idChain, c.idKey = chn, k
	return nil
}

func (c *cryptoContext) Identity() (chain.Chain, key.Key, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.idChain == nil || c.idKey == nil {
		return nil, nil, false
	}

	return c.idChain, c.idKey, true
}

func publicKeysEqual(a, b any) bool {
	derA, errA := x509.MarshalPKIXPublicKey(a)
	derB, errB := x509.MarshalPKIXPublicKey(b)
	if errA != nil || errB != nil {
		return false
	}

	return bytes.Equal(derA, derB)
}
