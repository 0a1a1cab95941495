/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package stream_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"testing"
	"time"

	libctx "github.com/sabouaram/tlsuv/context"
	"github.com/sabouaram/tlsuv/stream"
)

func generateSelfSigned(t *testing.T, dnsName string) (certPEM, keyPEM []byte) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: dnsName},
		DNSNames:              []string{dnsName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	return certPEM, keyPEM
}

func startEchoServer(t *testing.T, srvCert tls.Certificate) (addr string, stop func()) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		for {
			conn, aerr := ln.Accept()
			if aerr != nil {
				return
			}

			go func() {
				defer conn.Close()

				tconn := tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{srvCert}})
				defer tconn.Close()

				if herr := tconn.Handshake(); herr != nil {
					return
				}

				buf := make([]byte, 4096)
				for {
					n, rerr := tconn.Read(buf)
					if n > 0 {
						if _, werr := tconn.Write(buf[:n]); werr != nil {
							return
						}
					}
					if rerr != nil {
						return
					}
				}
			}()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("localhost:%d", port), func() { _ = ln.Close() }
}

func TestAdapterConnectWriteReadClose(t *testing.T) {
	certPEM, keyPEM := generateSelfSigned(t, "localhost")

	srvCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("x509 key pair: %v", err)
	}

	addr, stop := startEchoServer(t, srvCert)
	defer stop()

	cctx, err := libctx.New(libctx.Config{CABundle: string(certPEM)})
	if err != nil {
		t.Fatalf("context.New: %v", err)
	}
	defer cctx.Close()

	adp, err := stream.New(cctx, addr)
	if err != nil {
		t.Fatalf("stream.New: %v", err)
	}

	var reportedErrs []error
	adp.RegisterFuncError(func(errs ...error) {
		reportedErrs = append(reportedErrs, errs...)
	})
	adp.SetNoDelay(true)
	adp.SetKeepAlive(0)

	cctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = adp.Connect(cctx2); err != nil {
		t.Fatalf("Connect: %v (callback errs: %v)", err, reportedErrs)
	}
	defer adp.Close()

	if !adp.IsConnected() {
		t.Fatal("expected IsConnected() == true after Connect")
	}

	msg := []byte("hello stream adapter")
	if _, err = adp.Write(msg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 256)
	var got []byte
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < len(msg) && time.Now().Before(deadline) {
		n, rerr := adp.Read(buf)
		if rerr != nil {
			t.Fatalf("Read: %v", rerr)
		}
		got = append(got, buf[:n]...)
	}

	if string(got) != string(msg) {
		t.Fatalf("roundtrip mismatch: got %q want %q", got, msg)
	}

	if err = adp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if adp.IsConnected() {
		t.Fatal("expected IsConnected() == false after Close")
	}
}

func TestAdapterRejectsEmptyAddress(t *testing.T) {
	cctx, err := libctx.New(libctx.Config{})
	if err == nil {
		defer cctx.Close()
	}
	if cctx == nil {
		return
	}

	if _, err := stream.New(cctx, ""); err == nil {
		t.Fatal("expected error for empty address")
	}
	if _, err := stream.New(cctx, "not-a-host-port"); err == nil {
		t.Fatal("expected error for malformed address")
	}
}

func TestAdapterWriteBeforeConnect(t *testing.T) {
	cctx, err := libctx.New(libctx.Config{})
	if err == nil {
		defer cctx.Close()
	}
	if cctx == nil {
		return
	}

	adp, err := stream.New(cctx, "localhost:1")
	if err != nil {
		t.Fatalf("stream.New: %v", err)
	}

	if _, err := adp.Write([]byte("x")); err == nil {
		t.Fatal("expected error writing before Connect")
	}
	if _, err := adp.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected error reading before Connect")
	}
}

// TestAdapterCancelSupersedesInFlightConnect exercises §4.4 item 6: a
// Cancel issued while Connect is in flight must keep that attempt from
// ever marking the Adapter connected. The peer holds its side of the
// handshake until after Cancel, so the attempt is still in flight then
// and would succeed if Cancel did not stop it.
func TestAdapterCancelSupersedesInFlightConnect(t *testing.T) {
	certPEM, keyPEM := generateSelfSigned(t, "localhost")

	srvCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("x509 key pair: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	release := make(chan struct{})
	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return
		}
		defer conn.Close()

		close(accepted)
		<-release

		tconn := tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{srvCert}})
		_ = tconn.Handshake()
	}()

	addr := fmt.Sprintf("localhost:%d", ln.Addr().(*net.TCPAddr).Port)

	cctx, err := libctx.New(libctx.Config{CABundle: string(certPEM)})
	if err != nil {
		t.Fatalf("context.New: %v", err)
	}
	defer cctx.Close()

	adp, err := stream.New(cctx, addr)
	if err != nil {
		t.Fatalf("stream.New: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		cctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- adp.Connect(cctx2)
	}()

	select {
	case <-accepted:
	case err := <-done:
		t.Fatalf("Connect returned before the peer accepted: %v", err)
	}

	adp.Cancel()
	close(release)

	if err := <-done; err == nil && adp.IsConnected() {
		t.Fatal("a canceled Connect must not leave the adapter connected")
	}
}
