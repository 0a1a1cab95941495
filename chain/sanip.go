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
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"net"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// oidSubjectAltName is id-ce-subjectAltName, 2.5.29.17.
var oidSubjectAltName = asn1.ObjectIdentifier{2, 5, 29, 17}

// ipTag is the GeneralName CHOICE tag for iPAddress: context-specific,
// primitive, tag number 7.
var ipTag = cbasn1.Tag(7).ContextSpecific()

// IPSANs walks leaf's subjectAltName extension by hand and returns every
// iPAddress entry as raw 4- or 16-byte values, the same structure the
// Engine's certificate-verification extension matches against a literal
// connection target.
func IPSANs(leaf *x509.Certificate) ([]net.IP, error) {
	var raw []byte

	for _, ext := range leaf.Extensions {
		if ext.Id.Equal(oidSubjectAltName) {
			raw = ext.Value
			break
		}
	}

	if raw == nil {
		return nil, nil
	}

	input := cryptobyte.String(raw)

	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) {
		return nil, ErrorASN1Invalid.Error(nil)
	}

	var ips []net.IP

	for !seq.Empty() {
		var (
			elem cryptobyte.String
			tag  cbasn1.Tag
		)

		if !seq.ReadAnyASN1Element(&elem, &tag) {
			return nil, ErrorASN1Invalid.Error(nil)
		}

		if tag != ipTag {
			continue
		}

		var value cryptobyte.String
		if !elem.ReadASN1(&value, tag) {
			return nil, ErrorASN1Invalid.Error(nil)
		}

		switch len(value) {
		case net.IPv4len, net.IPv6len:
			ips = append(ips, net.IP(append([]byte(nil), value...)))
		}
	}

	return ips, nil
}

// MatchesIPSAN reports whether leaf's subjectAltName extension contains an
// iPAddress entry whose raw bytes equal target's. Used by the Engine when
// the connection has a target IP: after the library has verified the
// chain and hostname, the leaf must also carry that IP (§4.1 item 1).
func MatchesIPSAN(leaf *x509.Certificate, target net.IP) bool {
	if target == nil {
		return false
	}

	want := target.To4()
	if want == nil {
		want = target.To16()
	}

	sans, err := IPSANs(leaf)
	if err != nil {
		return false
	}

	for _, ip := range sans {
		if bytes.Equal(ip, want) {
			return true
		}
	}

	return false
}
