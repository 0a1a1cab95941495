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

// Package engine implements the TLS Engine: a buffer-in/buffer-out state
// machine driving a real crypto/tls handshake and record layer over an
// in-process pipe, so a caller owning a non-blocking socket never hands this
// package a net.Conn and never blocks inside it (§4.1).
package engine

import (
	"net"

	"github.com/sabouaram/tlsuv/context"
)

// State is the Engine's coarse handshake state.
type State int

const (
	// StateBefore is the initial state, before Handshake has been called.
	StateBefore State = iota
	// StateHandshake is mid-handshake: more Handshake calls are needed.
	StateHandshake
	// StateEstablished is post-handshake: Read/Write are usable.
	StateEstablished
	// StateClosed is terminal: the Engine has been closed.
	StateClosed
	// StateError is terminal: the Engine hit an unrecoverable error.
	StateError
)

func (s State) String() string {
	switch s {
	case StateBefore:
		return "BEFORE"
	case StateHandshake:
		return "HANDSHAKE"
	case StateEstablished:
		return "ESTABLISHED"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Status is returned from every buffer-stepping operation to tell the
// caller what to do next, per §4.1's status discipline.
type Status int

const (
	// StatusOK: the call consumed/produced as much as it could; nothing
	// else to do until the caller has more inbound ciphertext or plaintext
	// to give.
	StatusOK Status = iota
	// StatusMoreAvailable: the output buffer the caller supplied was too
	// small to drain everything produced; call again with a fresh buffer
	// before feeding any more input.
	StatusMoreAvailable
	// StatusHasWrite: the step produced outbound ciphertext the caller
	// must send to the peer before the connection can make further
	// progress (e.g. mid-handshake flights, close_notify).
	StatusHasWrite
	// StatusEOF: the peer closed the connection cleanly.
	StatusEOF
	// StatusErr: an unrecoverable error occurred; see Strerror/LastError.
	StatusErr
	// StatusReadAgain: the call needs more inbound ciphertext before it
	// can produce anything; the caller should read more from the socket
	// and call again.
	StatusReadAgain
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusMoreAvailable:
		return "MORE_AVAILABLE"
	case StatusHasWrite:
		return "HAS_WRITE"
	case StatusEOF:
		return "EOF"
	case StatusErr:
		return "ERR"
	case StatusReadAgain:
		return "READ_AGAIN"
	}
	return "UNKNOWN"
}

// Engine is the buffer-in/buffer-out TLS state machine for a single
// connection. None of its methods ever perform network I/O themselves: all
// ciphertext moves through the inbound/outbound byte slices the caller
// supplies, so it composes with any transport, blocking or not (§4.1, §5).
//
// A single Engine is not safe for concurrent use; the Stream Adapter drives
// one from a single cooperative loop (§5).
type Engine interface {
	// HandshakeState reports the current coarse state.
	HandshakeState() State

	// Handshake advances the handshake. inbound is ciphertext newly
	// received from the peer (may be empty); outboundBuf receives any
	// ciphertext that must be sent to the peer, bounded by len(outboundBuf).
	// n is how many bytes of outboundBuf were filled.
	Handshake(inbound []byte, outboundBuf []byte) (n int, status Status, err error)

	// GetALPN returns the negotiated ALPN protocol, or "" if none was
	// negotiated (including before the handshake completes).
	GetALPN() string

	// Write encrypts plaintext and appends the resulting record(s) to
	// outboundBuf, bounded by len(outboundBuf). n is how many bytes of
	// outboundBuf were filled; consumed is how many bytes of plaintext
	// were consumed (all of it on success, MORE_AVAILABLE included). On
	// MORE_AVAILABLE the remaining ciphertext is drained by further calls
	// with empty plaintext.
	Write(plaintext []byte, outboundBuf []byte) (consumed int, n int, status Status, err error)

	// Read decrypts inbound ciphertext and appends plaintext to
	// plaintextBuf, bounded by len(plaintextBuf).
	Read(inbound []byte, plaintextBuf []byte) (n int, status Status, err error)

	// Close begins (or continues) the close_notify shutdown, appending any
	// outbound ciphertext it must emit to outboundBuf.
	Close(outboundBuf []byte) (n int, status Status, err error)

	// Reset tears down the current TLS session, capturing its resumption
	// state (if any) for reuse by the next handshake this Engine drives,
	// and returns to StateBefore. Per the decided Open Question in
	// SPEC_FULL.md, a capture failure keeps whatever session state was
	// already stored rather than discarding or leaking it.
	Reset()

	// Strerror renders the last error in the teacher's diagnostic style.
	Strerror() string
}

// New builds an Engine for a single connection to hostname, drawing trust
// anchors, ALPN preference, optional client identity and custom verifier
// from ctx. target, if non-nil, is the literal IP address the caller is
// connecting to: the certificate verification extension (§4.1 item 1)
// matches it against the leaf's IP SANs when no custom Verifier is
// registered.
func New(ctx context.Context, hostname string, target net.IP) (Engine, error) {
	return newEngine(ctx, hostname, target)
}
