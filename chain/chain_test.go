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

package chain_test

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"net"
	"time"

	"go.mozilla.org/pkcs7"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/tlsuv/chain"
)

func genCertWithIPSAN(t string, ip net.IP) ([]byte, *x509.Certificate, *ecdsa.PrivateKey) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).ToNot(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: t},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		IsCA:         true,
	}

	if ip != nil {
		tmpl.IPAddresses = []net.IP{ip}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	Expect(err).ToNot(HaveOccurred())

	cert, err := x509.ParseCertificate(der)
	Expect(err).ToNot(HaveOccurred())

	return der, cert, priv
}

var _ = Describe("chain", func() {
	It("Parse and PEM round-trip", func() {
		der, _, _ := genCertWithIPSAN("round-trip", nil)

		buf := &bytes.Buffer{}
		Expect(pem.Encode(buf, &pem.Block{Type: "CERTIFICATE", Bytes: der})).To(Succeed())

		c, err := chain.Parse(buf.String())
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Len()).To(Equal(1))

		p1, err := c.PEM(false)
		Expect(err).ToNot(HaveOccurred())

		c2, err := chain.Parse(string(p1))
		Expect(err).ToNot(HaveOccurred())

		p2, err := c2.PEM(false)
		Expect(err).ToNot(HaveOccurred())
		Expect(p1).To(Equal(p2))
	})

	It("finds an IP-SAN entry matching the target", func() {
		target := net.ParseIP("127.0.0.1")
		_, cert, _ := genCertWithIPSAN("no-cn-match", target)

		Expect(chain.MatchesIPSAN(cert, target)).To(BeTrue())
		Expect(chain.MatchesIPSAN(cert, net.ParseIP("10.0.0.9"))).To(BeFalse())
	})

	It("verifies an ECDSA signature, falling back from raw to DER", func() {
		der, _, priv := genCertWithIPSAN("signer", nil)

		c, err := chain.ParseBytes(der)
		Expect(err).ToNot(HaveOccurred())

		data := []byte("verify me")
		h := crypto.SHA256.New()
		h.Write(data)
		digest := h.Sum(nil)

		r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
		Expect(err).ToNot(HaveOccurred())

		size := (priv.Curve.Params().BitSize + 7) / 8
		raw := make([]byte, 2*size)
		r.FillBytes(raw[:size])
		s.FillBytes(raw[size:])

		Expect(c.VerifySignature(crypto.SHA256, data, raw)).To(Succeed())
	})

	It("parses a PKCS#7 certificates-only SignedData blob", func() {
		_, leaf, _ := genCertWithIPSAN("pkcs7-leaf", nil)

		der, err := pkcs7.DegenerateCertificate(leaf.Raw)
		Expect(err).ToNot(HaveOccurred())

		blob := base64.StdEncoding.EncodeToString(der)

		c, err := chain.ParsePKCS7(blob)
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Len()).To(Equal(1))
		Expect(c.Leaf().Subject.CommonName).To(Equal("pkcs7-leaf"))
	})

	It("rejects empty input", func() {
		_, err := chain.Parse("")
		Expect(err).To(HaveOccurred())
	})
})
