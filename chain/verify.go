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
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/asn1"
	"math/big"

	_ "crypto/sha256" // link SHA-256
	_ "crypto/sha512" // link SHA-384/SHA-512
)

// VerifySignature hashes data with hashAlgo and verifies sig against the
// leaf certificate's public key. ECDSA verification that fails against the
// raw r||s signature is retried once, after rewrapping the signature as a
// DER SEQUENCE{INTEGER r, INTEGER s} split from the midpoint of the raw
// buffer — the fallback §4.1 calls out for drivers that hand back raw
// signatures.
func (c *chain) VerifySignature(hashAlgo crypto.Hash, data, sig []byte) error {
	leaf := c.Leaf()
	if leaf == nil {
		return ErrorParamsEmpty.Error(nil)
	}

	if !hashAlgo.Available() {
		return ErrorHashUnavailable.Error(nil)
	}

	h := hashAlgo.New()
	h.Write(data)
	digest := h.Sum(nil)

	switch pub := leaf.PublicKey.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, hashAlgo, digest, sig); err != nil {
			return ErrorSignatureInvalid.Error(err)
		}
		return nil
	case *ecdsa.PublicKey:
		if ecdsa.VerifyASN1(pub, digest, sig) {
			return nil
		}

		der, err := rawToDER(sig)
		if err != nil {
			return ErrorSignatureInvalid.Error(err)
		}

		if ecdsa.VerifyASN1(pub, digest, der) {
			return nil
		}

		return ErrorSignatureInvalid.Error(nil)
	default:
		return ErrorSignatureInvalid.Error(nil)
	}
}

// rawToDER splits a raw r||s ECDSA signature in half and re-encodes it as
// the ASN.1 SEQUENCE{INTEGER r, INTEGER s} DER form.
func rawToDER(sig []byte) ([]byte, error) {
	if len(sig) == 0 || len(sig)%2 != 0 {
		return nil, ErrorSignatureInvalid.Error(nil)
	}

	half := len(sig) / 2
	r := new(big.Int).SetBytes(sig[:half])
	s := new(big.Int).SetBytes(sig[half:])

	return asn1.Marshal(struct {
		R, S *big.Int
	}{R: r, S: s})
}
