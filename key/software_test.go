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

package key_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/sabouaram/tlsuv/key"
)

func rsaPEM(t *testing.T) []byte {
	t.Helper()

	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	der := x509.MarshalPKCS1PrivateKey(k)
	return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
}

func ecdsaPEM(t *testing.T) []byte {
	t.Helper()

	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ecdsa key: %v", err)
	}

	der, err := x509.MarshalECPrivateKey(k)
	if err != nil {
		t.Fatalf("marshal ecdsa key: %v", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func TestLoadSoftwarePEM_RSA(t *testing.T) {
	k, err := key.LoadSoftwarePEM(rsaPEM(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if k.Backend() != key.BackendSoftware {
		t.Fatalf("expected software backend, got %v", k.Backend())
	}

	digest := sha256.Sum256([]byte("hello tlsuv"))
	sig, err := k.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := k.Verify(crypto.SHA256, digest[:], sig); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := k.PublicPEM(); err != nil {
		t.Fatalf("public pem: %v", err)
	}
}

func TestLoadSoftwarePEM_ECDSA(t *testing.T) {
	k, err := key.LoadSoftwarePEM(ecdsaPEM(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	digest := sha256.Sum256([]byte("hello tlsuv"))
	sig, err := k.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := k.Verify(crypto.SHA256, digest[:], sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestLoadSoftwarePEM_Empty(t *testing.T) {
	if _, err := key.LoadSoftwarePEM(nil); err == nil {
		t.Fatal("expected error on empty PEM")
	}
}

func TestLoadSoftwarePEM_BadVerify(t *testing.T) {
	k, err := key.LoadSoftwarePEM(ecdsaPEM(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	digest := sha256.Sum256([]byte("hello"))
	other := sha256.Sum256([]byte("tamper"))
	sig, err := k.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := k.Verify(crypto.SHA256, other[:], sig); err == nil {
		t.Fatal("expected verify failure on tampered digest")
	}
}
