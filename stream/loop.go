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

import "net"

// stepFunc produces up to len(buf) bytes of ciphertext into buf, reporting
// whether more is already pending (the MORE_AVAILABLE case) and any fatal
// error.
type stepFunc func(buf []byte) (n int, more bool, err error)

// drainOutbound repeatedly calls step and writes whatever it produced to
// conn, continuing while step reports more pending output. Every Engine
// operation that can return MORE_AVAILABLE (Handshake, Write, Close) drains
// through this loop instead of handing a partial flight back to the caller,
// since the Adapter — unlike the Engine — is allowed to block on the
// socket (§4.1/§4.4).
func drainOutbound(conn net.Conn, buf []byte, step stepFunc) error {
	for {
		n, more, err := step(buf)
		if err != nil {
			return err
		}

		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return werr
			}
		}

		if !more {
			return nil
		}
	}
}
