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

// Package chain implements the Certificate / Chain data model: an ordered,
// leaf-first sequence of X.509 certificates with PEM emission,
// signature verification, and PKCS#7 parsing.
package chain

import (
	"crypto"
	"crypto/x509"
	"encoding"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Chain is an ordered, leaf-first sequence of X.509 certificates.
type Chain interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
	json.Marshaler
	json.Unmarshaler
	yaml.Marshaler
	yaml.Unmarshaler
	toml.Marshaler
	toml.Unmarshaler
	cbor.Marshaler
	cbor.Unmarshaler
	fmt.Stringer

	// Len returns the number of certificates in the chain.
	Len() int
	// Leaf returns the first (end-entity) certificate, or nil if empty.
	Leaf() *x509.Certificate
	// Certificates returns the chain in leaf-first order.
	Certificates() []*x509.Certificate
	// AppendBytes parses DER or PEM bytes and appends every certificate found.
	AppendBytes(p []byte) error
	// AppendString parses a PEM string and appends every certificate found.
	AppendString(s string) error
	// AppendPool adds every certificate in the chain to the given pool.
	AppendPool(p *x509.CertPool)

	// PEM emits the chain as concatenated PEM blocks. leafOnly restricts
	// the output to the first certificate.
	PEM(leafOnly bool) ([]byte, error)

	// VerifySignature verifies sig over data, hashed with hashAlgo, against
	// the leaf's public key. For ECDSA keys, a failed verification against
	// the raw r||s signature is retried after rewrapping it as a DER
	// SEQUENCE{INTEGER r, INTEGER s} — mirroring the Engine's signature
	// verification auxiliary.
	VerifySignature(hashAlgo crypto.Hash, data, sig []byte) error
}

// Parse builds a Chain from a PEM string.
func Parse(pem string) (Chain, error) {
	c := &chain{}
	if err := c.AppendString(pem); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseBytes builds a Chain from DER or PEM bytes.
func ParseBytes(p []byte) (Chain, error) {
	c := &chain{}
	if err := c.AppendBytes(p); err != nil {
		return nil, err
	}
	return c, nil
}

// New returns an empty Chain ready for AppendBytes/AppendString.
func New() Chain {
	return &chain{}
}
