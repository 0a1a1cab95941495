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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"

	libval "github.com/go-playground/validator/v10"
	libmap "github.com/go-viper/mapstructure/v2"

	"github.com/sabouaram/tlsuv/key"
)

// Config is the declarative, serializable shape of a Context: trust-store
// source, ALPN preference, and the own-identity material, following the
// teacher's certificates.Config mapstructure/json/yaml/toml tagging and
// validator.v10-backed Validate() (see certificates/config.go).
type Config struct {
	// CABundle is one of: a PEM buffer, a filesystem path, or empty (probe
	// the OS default list, or the Windows ROOT store — §4.2).
	CABundle string `mapstructure:"caBundle" json:"caBundle" yaml:"caBundle" toml:"caBundle"`

	// ALPN is the ordered protocol preference presented verbatim at
	// handshake time.
	ALPN []string `mapstructure:"alpn" json:"alpn" yaml:"alpn" toml:"alpn"`

	// OwnCert is a PEM buffer or filesystem path for the own-identity
	// certificate chain. Empty means no client certificate.
	OwnCert string `mapstructure:"ownCert" json:"ownCert" yaml:"ownCert" toml:"ownCert"`

	// OwnKey is a PEM buffer or filesystem path for a software own-identity
	// key. Ignored when OwnKeyHardware is set.
	OwnKey string `mapstructure:"ownKey" json:"ownKey" yaml:"ownKey" toml:"ownKey"`

	// OwnKeyHardware, if non-nil, loads the own-identity key from a
	// PKCS#11-style token instead of OwnKey (§4.3).
	OwnKeyHardware *key.HardwareConfig `mapstructure:"ownKeyHardware" json:"ownKeyHardware" yaml:"ownKeyHardware" toml:"ownKeyHardware" validate:"omitempty"`
}

// DecodeConfig builds a Config from a generic map, e.g. the result of a
// viper/koanf AllSettings() call or any other map-shaped configuration
// source — decoded through Config's `mapstructure` field tags the same way
// the teacher's certs/ca config types are decoded by a hosting app's viper
// instance (see certificates/certs/models.go's ViperDecoderHook). Unlike
// that hook, which patches viper's own decode pipeline for an embedded Cert
// field, this module has no embedded decode-hook consumer, so DecodeConfig
// runs mapstructure directly against the flat Config shape.
func DecodeConfig(m map[string]interface{}) (Config, error) {
	var cfg Config

	dec, err := libmap.NewDecoder(&libmap.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return cfg, ErrorConfigDecode.Error(err)
	}

	if err := dec.Decode(m); err != nil {
		return cfg, ErrorConfigDecode.Error(err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	err := ErrorValidatorError.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		} else if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				err.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
			}
		} else {
			err.Add(er)
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// netscapeCertTypeOID is the legacy Netscape Certificate Type extension,
// 2.16.840.1.113730.1.1.
var netscapeCertTypeOID = asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 1, 1}

// netscapeCertTypeSSLClient is the DER-encoded BIT STRING value for the
// SSL_CLIENT bit (bit 7, the high bit of the first content byte).
var netscapeCertTypeSSLClient = []byte{0x03, 0x02, 0x06, 0x80}

// GenerateCSR builds a PKCS#10 certificate signing request signed by k
// (SHA-256 for RSA and ECDSA keys, pure Ed25519 for Ed25519 keys), per
// §4.2: variadic RDN key/value pairs form the subject,
// key-usage is zero (no KeyUsage extension is added), and the Netscape
// cert-type extension is set to SSL_CLIENT.
func GenerateCSR(k key.Key, subjectPairs ...string) ([]byte, error) {
	if k == nil || len(subjectPairs) == 0 || len(subjectPairs)%2 != 0 {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	tmpl := &x509.CertificateRequest{
		Subject:            buildSubject(subjectPairs),
		SignatureAlgorithm: signatureAlgorithmFor(k),
		ExtraExtensions: []pkix.Extension{
			{Id: netscapeCertTypeOID, Value: netscapeCertTypeSSLClient},
		},
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, tmpl, k)
	if err != nil {
		return nil, ErrorCSRGeneration.Error(err)
	}

	return der, nil
}

func signatureAlgorithmFor(k key.Key) x509.SignatureAlgorithm {
	switch k.Public().(type) {
	case *rsa.PublicKey:
		return x509.SHA256WithRSA
	case *ecdsa.PublicKey:
		return x509.ECDSAWithSHA256
	case ed25519.PublicKey:
		return x509.PureEd25519
	default:
		return x509.SHA256WithRSA
	}
}

// buildSubject turns alternating RDN keys and values into a pkix.Name,
// recognizing the common RDN attribute keys (CN, O, OU, C, L, ST).
func buildSubject(pairs []string) pkix.Name {
	name := pkix.Name{}

	for i := 0; i+1 < len(pairs); i += 2 {
		k, v := strings.ToUpper(pairs[i]), pairs[i+1]
		switch k {
		case "CN":
			name.CommonName = v
		case "O":
			name.Organization = append(name.Organization, v)
		case "OU":
			name.OrganizationalUnit = append(name.OrganizationalUnit, v)
		case "C":
			name.Country = append(name.Country, v)
		case "L":
			name.Locality = append(name.Locality, v)
		case "ST":
			name.Province = append(name.Province, v)
		}
	}

	return name
}
