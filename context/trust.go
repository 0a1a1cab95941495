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
	"crypto/x509"
	"os"
	"runtime"
)

// defaultTrustProbe is, in order, the files probed when the caller supplies
// no CA bundle at all and the platform is not Windows (§4.2). The first
// entry that exists and is readable wins.
var defaultTrustProbe = []string{
	"/etc/ssl/certs/ca-certificates.crt",
	"/etc/pki/tls/certs/ca-bundle.crt",
	"/etc/ssl/ca-bundle.pem",
	"/etc/pki/tls/cacert.pem",
	"/etc/pki/ca-trust/extracted/pem/tls-ca-bundle.pem",
	"/etc/ssl/cert.pem",
}

// resolveTrust implements the trust store resolution order of §4.2:
//  1. pemOrPath parses as a PEM buffer directly, use it.
//  2. else, if pemOrPath names a readable file, parse that file's contents.
//  3. else, if pemOrPath is empty: on Windows, enumerate the system ROOT
//     store; otherwise probe defaultTrustProbe in order and use the first
//     file that exists and is readable.
func resolveTrust(pemOrPath string) (*x509.CertPool, error) {
	if pemOrPath != "" {
		if looksLikePEM(pemOrPath) {
			return poolFromPEM([]byte(pemOrPath))
		}

		data, err := os.ReadFile(pemOrPath)
		if err != nil {
			return nil, ErrorTrustStoreLoad.Error(err)
		}

		return poolFromPEM(data)
	}

	if runtime.GOOS == "windows" {
		return loadWindowsRootStore()
	}

	for _, path := range defaultTrustProbe {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		pool, err := poolFromPEM(data)
		if err != nil {
			continue
		}

		return pool, nil
	}

	return nil, ErrorTrustStoreNotFound.Error(nil)
}

func looksLikePEM(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '-':
			return len(s) >= i+5 && s[i:i+5] == "-----"
		default:
			return false
		}
	}
	return false
}

func poolFromPEM(data []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, ErrorTrustStoreLoad.Error(nil)
	}
	return pool, nil
}
