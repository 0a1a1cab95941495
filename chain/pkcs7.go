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
	"encoding/base64"

	"go.mozilla.org/pkcs7"
)

// ParsePKCS7 base64-decodes blob and walks the PKCS#7 SignedData structure
// (SEQUENCE → OID pkcs7-signedData → [0] EXPLICIT → SignedData → OID
// pkcs7-data → [0] EXPLICIT → certificates), building a leaf-first Chain
// from every certificate found. Any deviation fails the operation; no
// signers are required, matching §4.2's certificates-only contract.
func ParsePKCS7(blob string) (Chain, error) {
	if blob == "" {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	der, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrorPKCS7Invalid.Error(err)
	}

	p7, err := pkcs7.Parse(der)
	if err != nil {
		return nil, ErrorPKCS7Invalid.Error(err)
	}

	if len(p7.Certificates) == 0 {
		return nil, ErrorPKCS7NoCert.Error(nil)
	}

	c := &chain{}
	for _, crt := range p7.Certificates {
		c.cert = append(c.cert, crt)
	}

	return c, nil
}
