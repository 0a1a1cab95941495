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

package chain

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

type chain struct {
	mu   sync.RWMutex
	cert []*x509.Certificate
}

func (c *chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cert)
}

func (c *chain) Leaf() *x509.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.cert) == 0 {
		return nil
	}

	return c.cert[0]
}

func (c *chain) Certificates() []*x509.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]*x509.Certificate, len(c.cert))
	copy(res, c.cert)
	return res
}

func (c *chain) AppendString(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrorParamsEmpty.Error(nil)
	}

	return c.AppendBytes([]byte(s))
}

func (c *chain) AppendBytes(p []byte) error {
	if len(p) == 0 {
		return ErrorParamsEmpty.Error(nil)
	}

	var (
		found bool
		rest  = p
		block *pem.Block
	)

	for {
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return ErrorCertParse.Error(err)
		}

		c.mu.Lock()
		c.cert = append(c.cert, cert)
		c.mu.Unlock()

		found = true
	}

	if found {
		return nil
	}

	// no PEM framing found: try a single bare DER certificate.
	cert, err := x509.ParseCertificate(p)
	if err != nil {
		return ErrorPEMInvalid.Error(err)
	}

	c.mu.Lock()
	c.cert = append(c.cert, cert)
	c.mu.Unlock()

	return nil
}

func (c *chain) AppendPool(p *x509.CertPool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, crt := range c.cert {
		p.AddCert(crt)
	}
}

func (c *chain) PEM(leafOnly bool) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.cert) == 0 {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	buf := &bytes.Buffer{}
	certs := c.cert
	if leafOnly {
		certs = c.cert[:1]
	}

	for _, crt := range certs {
		if err := pem.Encode(buf, &pem.Block{Type: "CERTIFICATE", Bytes: crt.Raw}); err != nil {
			return nil, ErrorPEMInvalid.Error(err)
		}
	}

	return buf.Bytes(), nil
}

func (c *chain) String() string {
	p, err := c.PEM(false)
	if err != nil {
		return ""
	}

	return string(p)
}

func (c *chain) MarshalText() ([]byte, error) {
	return c.PEM(false)
}

func (c *chain) UnmarshalText(p []byte) error {
	return c.AppendBytes(p)
}

func (c *chain) MarshalJSON() ([]byte, error) {
	p, err := c.PEM(false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(p))
}

func (c *chain) UnmarshalJSON(p []byte) error {
	var s string
	if err := json.Unmarshal(p, &s); err != nil {
		return ErrorPEMInvalid.Error(err)
	}
	return c.AppendString(s)
}

func (c *chain) MarshalYAML() (interface{}, error) {
	p, err := c.PEM(false)
	if err != nil {
		return nil, err
	}
	return string(p), nil
}

func (c *chain) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return ErrorPEMInvalid.Error(err)
	}
	return c.AppendString(s)
}

func (c *chain) MarshalTOML() ([]byte, error) {
	p, err := c.PEM(false)
	if err != nil {
		return nil, err
	}
	return []byte(`"` + strings.ReplaceAll(string(p), "\n", `\n`) + `"`), nil
}

func (c *chain) UnmarshalTOML(i interface{}) error {
	s, ok := i.(string)
	if !ok {
		return ErrorPEMInvalid.Error(nil)
	}
	return c.AppendString(strings.ReplaceAll(s, `\n`, "\n"))
}

func (c *chain) MarshalCBOR() ([]byte, error) {
	p, err := c.PEM(false)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(p))
}

func (c *chain) UnmarshalCBOR(p []byte) error {
	var s string
	if err := cbor.Unmarshal(p, &s); err != nil {
		return ErrorPEMInvalid.Error(err)
	}
	return c.AppendString(s)
}
