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

package stream

import (
	liberr "github.com/sabouaram/tlsuv/errors"
)

const (
	ErrorParamsEmpty liberr.CodeError = iota + liberr.MinPkgStream
	ErrorAddress
	ErrorNotConnected
	ErrorCanceled
	ErrorDial
	ErrorHandshake
	ErrorIO
)

func init() {
	liberr.RegisterIdFctMessage(liberr.MinPkgStream, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case ErrorParamsEmpty:
		return "given parameters are empty"
	case ErrorAddress:
		return "address must be a valid host:port pair"
	case ErrorNotConnected:
		return "adapter is not connected"
	case ErrorCanceled:
		return "connect attempt was superseded or canceled"
	case ErrorDial:
		return "TCP dial failed"
	case ErrorHandshake:
		return "TLS handshake failed"
	case ErrorIO:
		return "socket I/O error"
	}

	return liberr.NullMessage
}
