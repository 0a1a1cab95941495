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

// Package context implements the Cryptographic Context: the long-lived
// factory for Engines, carrying trust anchors, ALPN preferences, an
// optional client identity, a pluggable peer-certificate verifier, and the
// Context's own CSPRNG source.
package context

import (
	"crypto/tls"
	"crypto/x509"
	"io"

	"github.com/sabouaram/tlsuv/chain"
	"github.com/sabouaram/tlsuv/key"
)

// Verifier is the application-delegated verifier: given the leaf
// certificate and the opaque context registered alongside it, it decides
// whether the connection should be trusted. Per §4.1 item 2, when a
// Verifier is registered, intermediates are marked trusted unconditionally
// and only the leaf is passed here.
type Verifier func(leaf *x509.Certificate, opaque any) bool

// Context is the factory for Engines: read-only after construction, safe
// to share across event loops (§5).
type Context interface {
	// TrustPool returns the configured trust anchors.
	TrustPool() *x509.CertPool

	// ALPN returns the ordered ALPN protocol list presented verbatim
	// during handshake.
	ALPN() []string

	// RegisterRand overrides the Context's CSPRNG source. Random state is
	// per Context and must never be shared across processes (§5).
	RegisterRand(r io.Reader)
	// Rand returns the Context's current CSPRNG source.
	Rand() io.Reader

	// SetIdentity sets the own client-authentication identity: the
	// chain's leaf certificate's public key must correspond to k, or the
	// call fails and — per the decided Open Question in SPEC_FULL.md —
	// clears any previously configured identity.
	SetIdentity(c chain.Chain, k key.Key) error
	// Identity returns the configured identity, or ok=false if none is set.
	Identity() (c chain.Chain, k key.Key, ok bool)

	// SetVerifier installs a custom peer-certificate verifier together
	// with its opaque context.
	SetVerifier(fn Verifier, opaque any)
	// Verifier returns the installed verifier and its opaque context, or
	// ok=false if none is set.
	Verifier() (fn Verifier, opaque any, ok bool)

	// TLSConfig builds the stdlib *tls.Config an Engine drives a
	// handshake through for the given SNI hostname. Certificate
	// verification itself is left to the caller — the Engine installs
	// VerifyPeerCertificate using TrustPool, Verifier, and its own
	// IP-literal target — so InsecureSkipVerify is set here and the
	// stdlib handshake never runs its own chain validation in parallel.
	TLSConfig(hostname string) (*tls.Config, error)

	// Close releases resources held by the Context's own identity key
	// (e.g. a hardware-token session). Destroyed after all Engines it
	// produced have been destroyed (§3).
	Close() error
}
