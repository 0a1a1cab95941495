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
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"io"
	"os"
	"sync"

	"github.com/sabouaram/tlsuv/chain"
	"github.com/sabouaram/tlsuv/key"
)

func readChainFile(c chain.Chain, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.AppendBytes(data)
}

// cryptoContext is the concrete Context: read-only after New returns except
// for the explicit Set* mutators, all of which take the write lock so a
// Context may be safely shared across event loops per §5.
type cryptoContext struct {
	mu sync.RWMutex

	trust *x509.CertPool
	alpn  []string
	rnd   io.Reader

	idChain chain.Chain
	idKey   key.Key

	verifier Verifier
	verifOp  any
}

// New builds a Context from a declarative Config: resolves the trust store
// per §4.2's order, records the ALPN preference, and — if both OwnCert and
// either OwnKey or OwnKeyHardware are set — loads and validates the own
// identity.
func New(cfg Config) (Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := resolveTrust(cfg.CABundle)
	if err != nil {
		return nil, err
	}

	c := &cryptoContext{
		trust: pool,
		alpn:  append([]string(nil), cfg.ALPN...),
		rnd:   rand.Reader,
	}

	if cfg.OwnCert == "" {
		return c, nil
	}

	chn, err := loadOwnChain(cfg.OwnCert)
	if err != nil {
		return nil, err
	}

	k, err := loadOwnKey(cfg)
	if err != nil {
		return nil, err
	}

	if err := c.SetIdentity(chn, k); err != nil {
		return nil, err
	}

	return c, nil
}

func loadOwnChain(pemOrPath string) (chain.Chain, error) {
	if looksLikePEM(pemOrPath) {
		c, err := chain.Parse(pemOrPath)
		if err != nil {
			return nil, ErrorOwnCertInvalid.Error(err)
		}
		return c, nil
	}

	c := chain.New()
	if err := readChainFile(c, pemOrPath); err != nil {
		return nil, ErrorOwnCertInvalid.Error(err)
	}
	return c, nil
}

func loadOwnKey(cfg Config) (key.Key, error) {
	if cfg.OwnKeyHardware != nil {
		return key.LoadHardware(*cfg.OwnKeyHardware)
	}

	if looksLikePEM(cfg.OwnKey) {
		return key.LoadSoftwarePEM([]byte(cfg.OwnKey))
	}

	return key.LoadSoftwareFile(cfg.OwnKey)
}

func (c *cryptoContext) TrustPool() *x509.CertPool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.trust
}

func (c *cryptoContext) ALPN() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.alpn))
	copy(out, c.alpn)
	return out
}

func (c *cryptoContext) RegisterRand(r io.Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r == nil {
		r = rand.Reader
	}
	c.rnd = r
}

func (c *cryptoContext) Rand() io.Reader {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.rnd
}

func (c *cryptoContext) SetVerifier(fn Verifier, opaque any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.verifier = fn
	c.verifOp = opaque
}

func (c *cryptoContext) Verifier() (Verifier, any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.verifier == nil {
		return nil, nil, false
	}
	return c.verifier, c.verifOp, true
}

// TLSConfig builds the stdlib *tls.Config for hostname. InsecureSkipVerify
// is always set: the Engine installs VerifyPeerCertificate so certificate
// verification runs through this module's IP-SAN/custom-verifier extension
// instead of running twice.
func (c *cryptoContext) TLSConfig(hostname string) (*tls.Config, error) {
	if hostname == "" {
		return nil, ErrorEmptyHostname.Error(nil)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg := &tls.Config{
		ServerName:         hostname,
		NextProtos:         append([]string(nil), c.alpn...),
		RootCAs:            c.trust,
		InsecureSkipVerify: true,
		Rand:               c.rnd,
		MinVersion:         tls.VersionTLS12,
	}

	if c.idChain != nil && c.idKey != nil {
		certs := c.idChain.Certificates()
		raw := make([][]byte, len(certs))
		for i, crt := range certs {
			raw[i] = crt.Raw
		}

		cfg.Certificates = []tls.Certificate{{
			Certificate: raw,
			PrivateKey:  c.idKey,
			Leaf:        certs[0],
		}}
	}

	return cfg, nil
}

func (c *cryptoContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.idKey != nil {
		return c.idKey.Close()
	}
	return nil
}
