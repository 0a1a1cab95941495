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

package engine_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/sabouaram/tlsuv/context"
	"github.com/sabouaram/tlsuv/engine"
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

// TestEngineHandshakeAndRoundtrip drives an Engine, buffer at a time, against
// a real stdlib tls.Server over a loopback TCP connection — exactly the
// shape the Stream Adapter uses it in, minus the non-blocking socket.
func TestEngineHandshakeAndRoundtrip(t *testing.T) {
	certPEM, keyPEM := generateSelfSigned(t, "engine.test")

	srvCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("x509 key pair: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	echoed := make(chan []byte, 1)
	srvErr := make(chan error, 1)

	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			srvErr <- aerr
			return
		}
		defer conn.Close()

		tconn := tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{srvCert}})
		defer tconn.Close()

		if herr := tconn.Handshake(); herr != nil {
			srvErr <- herr
			return
		}

		buf := make([]byte, 256)
		n, rerr := tconn.Read(buf)
		if rerr != nil {
			srvErr <- rerr
			return
		}

		if _, werr := tconn.Write(buf[:n]); werr != nil {
			srvErr <- werr
			return
		}

		echoed <- buf[:n]
		srvErr <- nil
	}()

	cctx, err := context.New(context.Config{CABundle: string(certPEM)})
	if err != nil {
		t.Fatalf("context.New: %v", err)
	}
	defer cctx.Close()

	eng, err := engine.New(cctx, "engine.test", nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	outBuf := make([]byte, 16384)
	inBuf := make([]byte, 16384)

	var pending []byte

	for i := 0; i < 20 && eng.HandshakeState() != engine.StateEstablished; i++ {
		n, status, herr := eng.Handshake(pending, outBuf)
		pending = nil

		if status == engine.StatusErr {
			t.Fatalf("handshake error: %v (%s)", herr, eng.Strerror())
		}

		if n > 0 {
			if _, werr := conn.Write(outBuf[:n]); werr != nil {
				t.Fatalf("write to peer: %v", werr)
			}
		}

		if eng.HandshakeState() == engine.StateEstablished {
			break
		}

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		rn, rerr := conn.Read(inBuf)
		if rerr != nil {
			t.Fatalf("read from peer: %v", rerr)
		}
		pending = append(pending, inBuf[:rn]...)
	}

	if eng.HandshakeState() != engine.StateEstablished {
		t.Fatalf("handshake did not complete: %s", eng.Strerror())
	}

	msg := []byte("hello engine")

	_, n, status, werr := eng.Write(msg, outBuf)
	if status == engine.StatusErr {
		t.Fatalf("write: %v (%s)", werr, eng.Strerror())
	}
	if n > 0 {
		if _, cerr := conn.Write(outBuf[:n]); cerr != nil {
			t.Fatalf("write to peer: %v", cerr)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	rn, rerr := conn.Read(inBuf)
	if rerr != nil {
		t.Fatalf("read reply: %v", rerr)
	}

	plainBuf := make([]byte, 256)
	pn, status, rerr2 := eng.Read(inBuf[:rn], plainBuf)
	if status == engine.StatusErr {
		t.Fatalf("decrypt: %v (%s)", rerr2, eng.Strerror())
	}

	if string(plainBuf[:pn]) != string(msg) {
		t.Fatalf("roundtrip mismatch: got %q want %q", plainBuf[:pn], msg)
	}

	if alpn := eng.GetALPN(); alpn != "" {
		t.Fatalf("expected no ALPN negotiated, got %q", alpn)
	}

	select {
	case <-echoed:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not finish echoing")
	}

	if serr := <-srvErr; serr != nil {
		t.Fatalf("server: %v", serr)
	}

	outBuf2 := make([]byte, 64)
	if _, _, err := eng.Close(outBuf2); err != nil {
		t.Fatalf("close: %v", err)
	}
	if eng.HandshakeState() != engine.StateClosed {
		t.Fatalf("expected StateClosed after Close, got %s", eng.HandshakeState())
	}
}

func TestStatusAndStateString(t *testing.T) {
	cases := map[engine.Status]string{
		engine.StatusOK:            "OK",
		engine.StatusMoreAvailable: "MORE_AVAILABLE",
		engine.StatusHasWrite:      "HAS_WRITE",
		engine.StatusEOF:           "EOF",
		engine.StatusErr:           "ERR",
		engine.StatusReadAgain:     "READ_AGAIN",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}

	states := map[engine.State]string{
		engine.StateBefore:      "BEFORE",
		engine.StateHandshake:   "HANDSHAKE",
		engine.StateEstablished: "ESTABLISHED",
		engine.StateClosed:      "CLOSED",
		engine.StateError:       "ERROR",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestEngineRejectsEmptyHostname(t *testing.T) {
	cctx, err := context.New(context.Config{})
	if err == nil {
		defer cctx.Close()
	}
	// CABundle probing may fail in a sandboxed test environment with no
	// system trust store; what matters here is New's own hostname guard.
	if cctx == nil {
		return
	}

	if _, err := engine.New(cctx, "", nil); err == nil {
		t.Fatal("expected error for empty hostname")
	}
}
