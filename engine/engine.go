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

package engine

import (
	stdctx "context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sabouaram/tlsuv/chain"
	cryptoctx "github.com/sabouaram/tlsuv/context"
)

// engine is the concrete Engine. Grounded on the HandshakeContext-driven
// dial pattern and peer-certificate extraction helpers in the retrieval
// pack's netcore TLS dialer reference (other_examples), adapted from a
// real-socket dialer into a buffer-stepping state machine running the
// handshake and record layer over pipeConn instead of a net.Conn the
// caller hands in.
type engine struct {
	mu sync.Mutex

	ctx      cryptoctx.Context
	hostname string
	target   net.IP
	cfgBase  *tls.Config
	cache    *singleSessionCache

	sessionBlob []byte

	started bool
	conn    *pipeConn
	tconn   *tls.Conn

	state   State
	lastErr error
	alpn    string

	hsDone chan struct{}

	rdOnce   sync.Once
	rdDone   chan struct{}
	plainOut []byte

	// generation is bumped by Reset to let a still-running read loop
	// goroutine from a prior Read cycle detect that it has been superseded
	// and stop touching shared state once it wakes from its blocked Read.
	generation int
}

func newEngine(ctx cryptoctx.Context, hostname string, target net.IP) (*engine, error) {
	if ctx == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}
	if hostname == "" {
		return nil, ErrorEmptyHostname.Error(nil)
	}

	cfg, err := ctx.TLSConfig(hostname)
	if err != nil {
		return nil, err
	}

	e := &engine{
		ctx:      ctx,
		hostname: hostname,
		target:   target,
		cache:    &singleSessionCache{},
		state:    StateBefore,
	}

	cfg.ClientSessionCache = e.cache
	cfg.VerifyPeerCertificate = e.verifyPeerCertificate
	e.cfgBase = cfg

	return e, nil
}

// verifyPeerCertificate implements §4.1 item 1/2's certificate verification
// extension. Because TLSConfig sets InsecureSkipVerify, this callback is the
// only chain validation that runs: when a custom Verifier is registered, it
// is delegated the leaf alone and intermediates are trusted unconditionally;
// otherwise the leaf is verified against the Context's trust pool and,
// if a literal IP target was supplied, additionally matched against the
// leaf's IP SANs via chain.MatchesIPSAN.
func (e *engine) verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrorNoPeerCertificate.Error(nil)
	}

	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return ErrorVerifyFailed.Error(err)
	}

	if fn, opaque, ok := e.ctx.Verifier(); ok {
		if !fn(leaf, opaque) {
			return ErrorVerifyFailed.Error(nil)
		}
		return nil
	}

	inter := x509.NewCertPool()
	for _, raw := range rawCerts[1:] {
		if c, perr := x509.ParseCertificate(raw); perr == nil {
			inter.AddCert(c)
		}
	}

	opts := x509.VerifyOptions{
		Roots:         e.ctx.TrustPool(),
		Intermediates: inter,
		DNSName:       e.hostname,
	}

	if _, err = leaf.Verify(opts); err != nil {
		return ErrorVerifyFailed.Error(err)
	}

	if e.target != nil && !chain.MatchesIPSAN(leaf, e.target) {
		return ErrorVerifyFailed.Error(nil)
	}

	return nil
}

func (e *engine) HandshakeState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *engine) GetALPN() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alpn
}

func (e *engine) Strerror() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastErr == nil {
		return ""
	}
	return fmt.Sprintf("tlsuv/engine: %s: %s", e.hostname, e.lastErr.Error())
}

func statusFor(n int, more bool) Status {
	switch {
	case more:
		return StatusMoreAvailable
	case n > 0:
		return StatusHasWrite
	default:
		return StatusOK
	}
}

func (e *engine) startHandshake() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.conn = newPipeConn()

	cfg := e.cfgBase.Clone()
	e.applySession(cfg)

	e.tconn = tls.Client(e.conn, cfg)
	e.state = StateHandshake
	e.hsDone = make(chan struct{})
	tconn := e.tconn
	hostname := e.hostname
	e.mu.Unlock()

	debugf("handshake starting for %s", hostname)

	go func() {
		err := tconn.HandshakeContext(stdctx.Background())

		e.mu.Lock()
		if err != nil {
			e.state = StateError
			e.lastErr = ErrorHandshakeFailed.Error(err)
		} else {
			e.state = StateEstablished
			e.alpn = tconn.ConnectionState().NegotiatedProtocol
		}
		done := e.hsDone
		e.mu.Unlock()

		if err != nil {
			debugf("handshake failed for %s: %v", hostname, err)
		} else {
			debugf("handshake established for %s, alpn=%q", hostname, tconn.ConnectionState().NegotiatedProtocol)
		}

		close(done)
	}()
}

// Handshake implements Engine. See interface.go for the contract.
func (e *engine) Handshake(inbound []byte, outboundBuf []byte) (int, Status, error) {
	e.mu.Lock()
	st := e.state
	lastErr := e.lastErr
	e.mu.Unlock()

	if st == StateClosed {
		return 0, StatusErr, ErrorAlreadyClosed.Error(nil)
	}
	if st == StateError {
		return 0, StatusErr, lastErr
	}

	first := !e.started
	if first {
		e.startHandshake()
	}

	e.conn.armBlocked()
	e.conn.feed(inbound)

	// If ciphertext is already sitting in the outbound queue from a
	// previous step (the MORE_AVAILABLE repeat call §8 mandates), drain it
	// directly. Otherwise wait only when the handshake goroutine has new
	// work: its first flight, or the ciphertext fed by this call. With
	// neither, it is already parked on its next Read and, since feed(nil)
	// raises no broadcast, waiting on e.conn.blocked here would hang
	// forever waiting for a signal nothing will ever send.
	if e.conn.pending() == 0 && (first || len(inbound) > 0) {
		e.mu.Lock()
		hsDone := e.hsDone
		e.mu.Unlock()

		select {
		case <-e.conn.blocked:
		case <-hsDone:
		}
	}

	n, more := e.conn.drain(outboundBuf)

	e.mu.Lock()
	state := e.state
	err := e.lastErr
	e.mu.Unlock()

	switch {
	case state == StateError:
		return n, StatusErr, err
	case more:
		return n, StatusMoreAvailable, nil
	case n > 0:
		return n, StatusHasWrite, nil
	case state == StateEstablished:
		return n, StatusOK, nil
	default:
		return n, StatusReadAgain, nil
	}
}

func (e *engine) startReadLoop() {
	e.mu.Lock()
	e.rdDone = make(chan struct{})
	tconn := e.tconn
	rdDone := e.rdDone
	gen := e.generation
	e.mu.Unlock()

	go func() {
		buf := make([]byte, 16384)
		for {
			n, err := tconn.Read(buf)

			e.mu.Lock()
			if e.generation != gen {
				// Reset ran while this goroutine was parked in tconn.Read
				// (Reset's Close woke it up). The engine has moved on to a
				// new generation; writing state here would clobber it.
				e.mu.Unlock()
				close(rdDone)
				return
			}
			if n > 0 {
				e.plainOut = append(e.plainOut, buf[:n]...)
			}
			if err != nil {
				if err == io.EOF {
					e.state = StateClosed
				} else {
					e.state = StateError
					e.lastErr = ErrorIO.Error(err)
				}
				e.mu.Unlock()
				close(rdDone)
				return
			}
			e.mu.Unlock()
		}
	}()
}

// Read implements Engine. See interface.go for the contract.
func (e *engine) Read(inbound []byte, plaintextBuf []byte) (int, Status, error) {
	e.mu.Lock()
	st := e.state
	lastErr := e.lastErr
	e.mu.Unlock()

	if st == StateClosed {
		return 0, StatusEOF, nil
	}
	if st == StateError {
		return 0, StatusErr, lastErr
	}
	if st != StateEstablished {
		return 0, StatusErr, ErrorHandshakeFailed.Error(nil)
	}

	first := false
	e.rdOnce.Do(func() {
		e.startReadLoop()
		first = true
	})

	e.conn.armBlocked()
	e.conn.feed(inbound)

	// Wait for the read loop only when it has new work: whatever the
	// handshake left queued when the loop has just started, or the
	// ciphertext fed by this call. Every call that feeds ciphertext waits
	// here until the loop parks on its next Read, so with no new input the
	// loop is already parked; feed(nil) raises no broadcast, so waiting
	// would hang forever. Such a call returns the plaintext already
	// buffered (the MORE_AVAILABLE repeat call), or READ_AGAIN.
	if first || len(inbound) > 0 {
		e.mu.Lock()
		rdDone := e.rdDone
		e.mu.Unlock()

		select {
		case <-e.conn.blocked:
		case <-rdDone:
		}
	}

	e.mu.Lock()
	n := copy(plaintextBuf, e.plainOut)
	e.plainOut = e.plainOut[n:]
	more := len(e.plainOut) > 0
	state := e.state
	err := e.lastErr
	e.mu.Unlock()

	switch {
	case state == StateError:
		return n, StatusErr, err
	case more:
		return n, StatusMoreAvailable, nil
	case n > 0:
		return n, StatusOK, nil
	case state == StateClosed:
		return n, StatusEOF, nil
	default:
		return n, StatusReadAgain, nil
	}
}

// Write implements Engine. See interface.go for the contract. Unlike
// Handshake/Read, Write never needs to wait on the peer: pipeConn's Write
// side never blocks, so crypto/tls.Conn.Write runs to completion
// synchronously in the caller's own goroutine.
func (e *engine) Write(plaintext []byte, outboundBuf []byte) (int, int, Status, error) {
	e.mu.Lock()
	st := e.state
	lastErr := e.lastErr
	tconn := e.tconn
	e.mu.Unlock()

	if st == StateClosed {
		return 0, 0, StatusErr, ErrorAlreadyClosed.Error(nil)
	}
	if st == StateError {
		return 0, 0, StatusErr, lastErr
	}
	if st != StateEstablished {
		return 0, 0, StatusErr, ErrorHandshakeFailed.Error(nil)
	}

	if len(plaintext) == 0 {
		n, more := e.conn.drain(outboundBuf)
		return 0, n, statusFor(n, more), nil
	}

	nw, err := tconn.Write(plaintext)
	if err != nil {
		e.mu.Lock()
		e.state = StateError
		e.lastErr = ErrorIO.Error(err)
		e.mu.Unlock()
		return nw, 0, StatusErr, e.lastErr
	}

	n, more := e.conn.drain(outboundBuf)
	if more {
		return nw, n, StatusMoreAvailable, nil
	}
	return nw, n, StatusHasWrite, nil
}

// Close implements Engine. See interface.go for the contract.
func (e *engine) Close(outboundBuf []byte) (int, Status, error) {
	e.mu.Lock()
	st := e.state
	tconn := e.tconn
	e.mu.Unlock()

	if st == StateClosed {
		if e.conn == nil {
			return 0, StatusOK, nil
		}
		n, more := e.conn.drain(outboundBuf)
		return n, statusFor(n, more), nil
	}

	if tconn != nil {
		_ = tconn.Close()
	}

	e.mu.Lock()
	e.state = StateClosed
	e.mu.Unlock()

	if e.conn == nil {
		return 0, StatusOK, nil
	}

	n, more := e.conn.drain(outboundBuf)
	if more {
		return n, StatusMoreAvailable, nil
	}
	if n > 0 {
		return n, StatusHasWrite, nil
	}
	return n, StatusOK, nil
}

// Reset implements Engine. See interface.go for the contract and
// captureSessionLocked below for the capture policy.
func (e *engine) Reset() {
	e.mu.Lock()

	if e.tconn != nil {
		e.captureSessionLocked()
	}

	conn := e.conn
	rdDone := e.rdDone
	e.generation++

	e.mu.Unlock()

	// Close wakes any read loop goroutine parked in tconn.Read over conn;
	// wait for it to observe the generation bump and exit before this
	// engine's state is finalized, so it cannot write state we are about
	// to reset out from under it.
	if conn != nil {
		_ = conn.Close()
	}
	if rdDone != nil {
		<-rdDone
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = false
	e.conn = nil
	e.tconn = nil
	e.state = StateBefore
	e.lastErr = nil
	e.alpn = ""
	e.plainOut = nil
	e.hsDone = nil
	e.rdDone = nil
	e.rdOnce = sync.Once{}
}

// captureSessionLocked serializes the session cache's last stored session,
// if any, into e.sessionBlob for reuse by a subsequent handshake this
// Engine drives. Called with e.mu already held by Reset.
//
// DECIDED OPEN QUESTION (spec.md §9, item 2): if serialization fails, the
// previously stored blob (from an earlier, successful capture) is kept
// rather than discarded, so one transient failure does not erase
// resumption material the Engine already owns.
func (e *engine) captureSessionLocked() {
	cs, ok := e.cache.last()
	if !ok || cs == nil {
		return
	}

	_, state, err := cs.ResumptionState()
	if err != nil {
		debugf("session capture failed for %s: %s", e.hostname, ErrorSessionCapture.Error(err))
		return
	}

	blob, err := state.Bytes()
	if err != nil {
		debugf("session capture failed for %s: %s", e.hostname, ErrorSessionCapture.Error(err))
		return
	}

	e.sessionBlob = blob
}
