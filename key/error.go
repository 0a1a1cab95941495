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

package key

import (
	liberr "github.com/sabouaram/tlsuv/errors"
)

const (
	ErrorParamsEmpty liberr.CodeError = iota + liberr.MinPkgKey
	ErrorKeyLoad
	ErrorKeyParse
	ErrorKeyUnsupported
	ErrorDriverLoad
	ErrorSessionOpen
	ErrorObjectNotFound
	ErrorPINFailure
	ErrorSignFailure
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgKey, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamsEmpty:
		return "given parameters are empty"
	case ErrorKeyLoad:
		return "cannot load private key material"
	case ErrorKeyParse:
		return "cannot parse private key (tried PKCS1, PKCS8, EC)"
	case ErrorKeyUnsupported:
		return "key algorithm is not supported"
	case ErrorDriverLoad:
		return "cannot load PKCS#11 driver library"
	case ErrorSessionOpen:
		return "cannot open PKCS#11 session on slot"
	case ErrorObjectNotFound:
		return "private key object not found on token"
	case ErrorPINFailure:
		return "PIN authentication failed"
	case ErrorSignFailure:
		return "signing operation failed"
	}

	return liberr.NullMessage
}
