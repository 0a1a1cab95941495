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

// Package key implements the Private Key Abstraction: a uniform signing
// capability whose concrete forms are an in-memory software key and a
// PKCS#11 hardware-token key.
package key

import (
	"crypto"
)

// Backend names the concrete form behind a Key.
type Backend uint8

const (
	// BackendSoftware is an in-memory private key.
	BackendSoftware Backend = iota
	// BackendHardware is a key resident on a PKCS#11-style token.
	BackendHardware
)

func (b Backend) String() string {
	switch b {
	case BackendSoftware:
		return "software"
	case BackendHardware:
		return "hardware"
	default:
		return "unknown"
	}
}

// Key is the uniform signing capability. Signing never blocks the event
// loop longer than the underlying driver permits; a Hardware key must
// tolerate concurrent distinct sessions on the same token driver.
type Key interface {
	crypto.Signer

	// Backend reports which concrete variant this Key is.
	Backend() Backend

	// PublicPEM exports the public key material as a PEM block.
	PublicPEM() ([]byte, error)

	// Verify checks sig against digest using this key's public half. hash
	// names the digest algorithm (SHA-256/384/512) used to produce digest.
	Verify(hash crypto.Hash, digest, sig []byte) error

	// Close releases any resources held by the key (sessions, handles).
	// Software keys treat Close as a no-op.
	Close() error
}
