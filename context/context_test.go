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

package context_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tlsuv/chain"
	"github.com/sabouaram/tlsuv/context"
	"github.com/sabouaram/tlsuv/key"
)

func genSelfSigned() (certPEM, keyPEM []byte, priv *ecdsa.PrivateKey) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "own-identity"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyDER, err := x509.MarshalECPrivateKey(priv)
	Expect(err).ToNot(HaveOccurred())
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return certPEM, keyPEM, priv
}

var _ = Describe("context", func() {
	It("resolves a PEM trust buffer and carries the ALPN preference", func() {
		certPEM, _, _ := genSelfSigned()

		cctx, err := context.New(context.Config{
			CABundle: string(certPEM),
			ALPN:     []string{"h2", "http/1.1"},
		})
		Expect(err).ToNot(HaveOccurred())
		defer cctx.Close()

		Expect(cctx.ALPN()).To(Equal([]string{"h2", "http/1.1"}))
		Expect(cctx.TrustPool()).ToNot(BeNil())

		cfg, err := cctx.TLSConfig("example.com")
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.NextProtos).To(Equal([]string{"h2", "http/1.1"}))
		Expect(cfg.InsecureSkipVerify).To(BeTrue())
		Expect(cfg.VerifyPeerCertificate).To(BeNil())
	})

	It("rejects an empty hostname at the TLSConfig boundary", func() {
		certPEM, _, _ := genSelfSigned()

		cctx, err := context.New(context.Config{CABundle: string(certPEM)})
		Expect(err).ToNot(HaveOccurred())
		defer cctx.Close()

		_, err = cctx.TLSConfig("")
		Expect(err).To(HaveOccurred())
	})

	It("installs own identity when the certificate's public key matches the key", func() {
		certPEM, keyPEM, _ := genSelfSigned()

		cctx, err := context.New(context.Config{
			CABundle: string(certPEM),
			OwnCert:  string(certPEM),
			OwnKey:   string(keyPEM),
		})
		Expect(err).ToNot(HaveOccurred())
		defer cctx.Close()

		chn, k, ok := cctx.Identity()
		Expect(ok).To(BeTrue())
		Expect(chn.Len()).To(Equal(1))
		Expect(k).ToNot(BeNil())
	})

	It("drops the previously configured identity when SetIdentity's key does not match", func() {
		certPEM, keyPEM, _ := genSelfSigned()
		otherCertPEM, _, _ := genSelfSigned()

		cctx, err := context.New(context.Config{
			CABundle: string(certPEM),
			OwnCert:  string(certPEM),
			OwnKey:   string(keyPEM),
		})
		Expect(err).ToNot(HaveOccurred())
		defer cctx.Close()

		_, _, ok := cctx.Identity()
		Expect(ok).To(BeTrue())

		mismatchedChain, err := chain.Parse(string(otherCertPEM))
		Expect(err).ToNot(HaveOccurred())

		k, err := key.LoadSoftwarePEM(keyPEM)
		Expect(err).ToNot(HaveOccurred())

		err = cctx.SetIdentity(mismatchedChain, k)
		Expect(err).To(HaveOccurred())

		_, _, ok = cctx.Identity()
		Expect(ok).To(BeFalse())
	})

	It("decodes a generic config map via mapstructure tags", func() {
		cfg, err := context.DecodeConfig(map[string]interface{}{
			"alpn":    []string{"h2"},
			"ownCert": "",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(cfg.ALPN).To(Equal([]string{"h2"}))
	})

	It("generates a CSR whose signature verifies against the signing key's public half", func() {
		_, keyPEM, _ := genSelfSigned()

		k, err := key.LoadSoftwarePEM(keyPEM)
		Expect(err).ToNot(HaveOccurred())

		der, err := context.GenerateCSR(k, "CN", "client", "O", "test")
		Expect(err).ToNot(HaveOccurred())

		csr, err := x509.ParseCertificateRequest(der)
		Expect(err).ToNot(HaveOccurred())
		Expect(csr.Subject.CommonName).To(Equal("client"))
		Expect(csr.Subject.Organization).To(ContainElement("test"))

		Expect(csr.CheckSignature()).To(Succeed())
	})
})
