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
	liberr "github.com/sabouaram/tlsuv/errors"
)

const (
	ErrorParamsEmpty liberr.CodeError = iota + liberr.MinPkgContext
	ErrorEmptyHostname
	ErrorTrustStoreLoad
	ErrorTrustStoreNotFound
	ErrorOwnCertInvalid
	ErrorOwnKeyMismatch
	ErrorValidatorError
	ErrorCSRGeneration
	ErrorConfigDecode
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgContext, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamsEmpty:
		return "given parameters are empty"
	case ErrorEmptyHostname:
		return "hostname must not be empty"
	case ErrorTrustStoreLoad:
		return "cannot load trust store material"
	case ErrorTrustStoreNotFound:
		return "no usable trust store found among the default probe paths"
	case ErrorOwnCertInvalid:
		return "own identity certificate is invalid or unparsable"
	case ErrorOwnKeyMismatch:
		return "own identity certificate public key does not match the configured key"
	case ErrorValidatorError:
		return "configuration did not validate"
	case ErrorCSRGeneration:
		return "certificate signing request generation failed"
	case ErrorConfigDecode:
		return "cannot decode configuration map into Config"
	}

	return liberr.NullMessage
}
