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

// Package stream implements the Async Stream Adapter: the edge between a
// TCP socket and an Engine, per spec.md §4.4/§5. One Adapter owns one
// socket and one Engine on a single cooperative caller; it is not safe
// for concurrent Read/Write/Connect from multiple goroutines, mirroring
// the teacher's socket/client contract (sckclt.New/RegisterFuncError)
// this package is modeled on.
package stream

import (
	"context"
	"time"

	libctx "github.com/sabouaram/tlsuv/context"
)

// ErrorCallback receives out-of-band errors observed on the adapter's
// socket or handshake, mirroring the teacher's RegisterFuncError hook.
type ErrorCallback func(errs ...error)

// Adapter connects a non-blocking TCP socket to a TLS Engine.
//
// Lifecycle: New → Connect → (Read/Write)* → Close. Connect may be
// called again on an already-connected or in-flight Adapter; per §4.4
// item 1, any prior socket or in-flight attempt is canceled first.
type Adapter interface {
	// Connect dials the adapter's address, drives the TLS handshake to
	// completion, and returns once the connection is usable or an error
	// occurred. Canceling ctx (or a concurrent Cancel call) aborts the
	// attempt; per §4.4 item 6, a superseded attempt never mutates the
	// Adapter's connected state.
	Connect(ctx context.Context) error

	// Cancel aborts an in-flight Connect and/or tears down an established
	// connection. Idempotent: calling it more than once, or when nothing
	// is in flight, is a no-op.
	Cancel()

	// IsConnected reports whether the Adapter currently has an
	// established, post-handshake connection.
	IsConnected() bool

	// Write encrypts p and sends it; it returns once every resulting
	// ciphertext record has been written to the socket.
	Write(p []byte) (int, error)

	// Read decrypts and returns application data, blocking on the socket
	// as needed. Returns io.EOF after the peer's close_notify.
	Read(p []byte) (int, error)

	// RegisterFuncError installs the callback invoked on out-of-band
	// socket/handshake errors (dial failures, I/O errors surfaced outside
	// a direct Read/Write call). A nil callback disables reporting.
	RegisterFuncError(fn ErrorCallback)

	// SetKeepAlive enables TCP keepalive with the given period on
	// connections established by subsequent Connect calls; d <= 0
	// disables it.
	SetKeepAlive(d time.Duration)
	// SetNoDelay toggles TCP_NODELAY on connections established by
	// subsequent Connect calls.
	SetNoDelay(noDelay bool)

	// Close sends close_notify (per §4.4's half-close), flushes any
	// outbound ciphertext, and closes the TCP socket.
	Close() error
}

// New builds an Adapter for address ("host:port"). ctx supplies the TLS
// trust anchors, ALPN preference, and optional identity every Engine this
// Adapter mints will use.
func New(ctx libctx.Context, address string) (Adapter, error) {
	return newAdapter(ctx, address)
}
