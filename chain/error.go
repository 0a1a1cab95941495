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
	liberr "github.com/sabouaram/tlsuv/errors"
)

const (
	ErrorParamsEmpty liberr.CodeError = iota + liberr.MinPkgChain
	ErrorPEMInvalid
	ErrorCertParse
	ErrorPKCS7Invalid
	ErrorPKCS7NoCert
	ErrorSignatureInvalid
	ErrorHashUnavailable
	ErrorASN1Invalid
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgChain, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamsEmpty:
		return "given parameters are empty"
	case ErrorPEMInvalid:
		return "invalid or malformed PEM content"
	case ErrorCertParse:
		return "cannot parse certificate"
	case ErrorPKCS7Invalid:
		return "malformed PKCS#7 signed-data structure"
	case ErrorPKCS7NoCert:
		return "PKCS#7 signed-data contains no certificates"
	case ErrorSignatureInvalid:
		return "signature verification failed"
	case ErrorHashUnavailable:
		return "requested hash algorithm is not linked into the binary"
	case ErrorASN1Invalid:
		return "malformed ASN.1 content"
	}

	return liberr.NullMessage
}
