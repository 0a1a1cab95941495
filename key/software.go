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

package key

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"os"

	liberr "github.com/sabouaram/tlsuv/errors"
)

type software struct {
	signer crypto.Signer
}

// LoadSoftwarePEM parses a PEM-encoded private key, trying PKCS#1, PKCS#8,
// then SEC1/EC in turn — the same fallback order LoadSoftwareDER uses.
func LoadSoftwarePEM(data []byte) (Key, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return NewSoftware(nil)
	}

	return LoadSoftwareDER(block.Bytes)
}

// LoadSoftwareDER parses a DER-encoded private key trying PKCS1/PKCS8/EC.
func LoadSoftwareDER(der []byte) (Key, error) {
	signer, err := parsePrivateKey(der)
	if err != nil {
		return nil, ErrorKeyParse.Error(err)
	}

	return NewSoftware(signer)
}

// LoadSoftwareFile reads a PEM or DER private key from a filesystem path.
func LoadSoftwareFile(path string) (Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrorKeyLoad.Error(err)
	}

	if block, _ := pem.Decode(data); block == nil {
		return LoadSoftwareDER(data)
	}

	return LoadSoftwarePEM(data)
}

// NewSoftware wraps an already-parsed crypto.Signer as a software Key.
func NewSoftware(signer crypto.Signer) (Key, error) {
	if signer == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	switch signer.Public().(type) {
	case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		return &software{signer: signer}, nil
	default:
		return nil, ErrorKeyUnsupported.Error(nil)
	}
}

func parsePrivateKey(der []byte) (crypto.Signer, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}

	if k, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if s, ok := k.(crypto.Signer); ok {
			return s, nil
		}
	}

	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}

	return nil, ErrorKeyParse.Error(nil)
}

func (s *software) Public() crypto.PublicKey {
	return s.signer.Public()
}

func (s *software) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	sig, err := s.signer.Sign(rand, digest, opts)
	if err != nil {
		return nil, ErrorSignFailure.Error(err)
	}

	return sig, nil
}

func (s *software) Backend() Backend {
	return BackendSoftware
}

func (s *software) PublicPEM() ([]byte, error) {
	return publicPEM(s.signer.Public())
}

func (s *software) Verify(hash crypto.Hash, digest, sig []byte) error {
	return verifyPublic(s.signer.Public(), hash, digest, sig)
}

func (s *software) Close() error {
	return nil
}

func publicPEM(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, ErrorKeyParse.Error(err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func verifyPublic(pub crypto.PublicKey, hash crypto.Hash, digest, sig []byte) error {
	switch p := pub.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(p, hash, digest, sig); err != nil {
			return liberr.Make(err)
		}
		return nil
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(p, digest, sig) {
			return ErrorSignFailure.Error(nil)
		}
		return nil
	case ed25519.PublicKey:
		if !ed25519.Verify(p, digest, sig) {
			return ErrorSignFailure.Error(nil)
		}
		return nil
	default:
		return ErrorKeyUnsupported.Error(nil)
	}
}
