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
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sabouaram/tlsuv/atomic"
	libctx "github.com/sabouaram/tlsuv/context"
	"github.com/sabouaram/tlsuv/engine"
)

const (
	ciphertextBufSize = 16384
	handshakePollTick = 200 * time.Millisecond
)

// adapter is the concrete Adapter. Grounded on the teacher's
// socket/client/tcp contract recovered from its surviving test files
// (sckclt.New validating "host:port" and rejecting empty/malformed
// addresses with ErrAddress; RegisterFuncError for out-of-band error
// reporting; SetNoDelay/SetKeepAlive applied to the dialed *net.TCPConn)
// — the implementation files themselves were stripped from the retrieval
// pack, so this is built fresh against that documented surface, replacing
// plaintext passthrough with the Engine-mediated encrypt/decrypt path
// spec.md §4.4 requires.
type adapter struct {
	mu sync.Mutex

	ctx      libctx.Context
	address  string
	hostname string
	targetIP net.IP

	keepAlive time.Duration
	noDelay   bool

	// generation guards against a superseded in-flight Connect mutating
	// state after a newer Connect or a Cancel has taken over (§4.4 item
	// 6): every Connect call captures the generation before it starts
	// dialing and checks it again before installing its result.
	generation atomic.Value[uint64]

	cancelFn context.CancelFunc
	conn     net.Conn
	eng      engine.Engine

	connected bool

	errFn ErrorCallback
}

func newAdapter(ctx libctx.Context, address string) (*adapter, error) {
	if ctx == nil || address == "" {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return nil, ErrorAddress.Error(err)
	}

	a := &adapter{
		ctx:        ctx,
		address:    address,
		hostname:   host,
		generation: atomic.NewValue[uint64](),
	}

	if ip := net.ParseIP(host); ip != nil {
		a.targetIP = ip
	}

	return a, nil
}

func (a *adapter) reportError(err error) {
	if err == nil {
		return
	}

	a.mu.Lock()
	fn := a.errFn
	a.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

func (a *adapter) RegisterFuncError(fn ErrorCallback) {
	a.mu.Lock()
	a.errFn = fn
	a.mu.Unlock()
}

func (a *adapter) SetKeepAlive(d time.Duration) {
	a.mu.Lock()
	a.keepAlive = d
	a.mu.Unlock()
}

func (a *adapter) SetNoDelay(noDelay bool) {
	a.mu.Lock()
	a.noDelay = noDelay
	a.mu.Unlock()
}

func (a *adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Cancel implements Adapter. See interface.go for the contract.
func (a *adapter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

// cancelLocked bumps the generation (so any still-running Connect
// attempt discards its result instead of installing it) and tears down
// whatever socket/engine is currently owned, established or not. Safe to
// call repeatedly: every field it touches is nil-checked.
func (a *adapter) cancelLocked() {
	a.generation.Store(a.generation.Load() + 1)

	if a.cancelFn != nil {
		a.cancelFn()
		a.cancelFn = nil
	}

	if a.eng != nil {
		_, _, _ = a.eng.Close(make([]byte, 0))
		a.eng = nil
	}

	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}

	a.connected = false
}

// Connect implements Adapter. See interface.go for the contract and
// spec.md §4.4's connect protocol.
func (a *adapter) Connect(ctx context.Context) error {
	if a.hostname == "" {
		return ErrorAddress.Error(nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a.mu.Lock()
	a.cancelLocked()
	gen := a.generation.Load() + 1
	a.generation.Store(gen)
	cctx, cancel := context.WithCancel(ctx)
	a.cancelFn = cancel
	a.mu.Unlock()

	debugf("dialing %s (generation %d)", a.address, gen)

	conn, err := (&net.Dialer{}).DialContext(cctx, "tcp", a.address)
	if err != nil {
		derr := ErrorDial.Error(err)
		a.reportError(derr)
		return derr
	}

	if a.generation.Load() != gen {
		_ = conn.Close()
		return ErrorCanceled.Error(nil)
	}

	a.applySocketOptions(conn)

	eng, err := engine.New(a.ctx, a.hostname, a.targetIP)
	if err != nil {
		_ = conn.Close()
		a.reportError(err)
		return err
	}

	if err = a.driveHandshake(cctx, conn, eng); err != nil {
		_ = conn.Close()
		a.reportError(err)
		return err
	}

	if a.generation.Load() != gen {
		_ = conn.Close()
		return ErrorCanceled.Error(nil)
	}

	a.mu.Lock()
	a.conn = conn
	a.eng = eng
	a.connected = true
	a.mu.Unlock()

	debugf("connected to %s (generation %d)", a.address, gen)

	return nil
}

func (a *adapter) applySocketOptions(conn net.Conn) {
	a.mu.Lock()
	keepAlive, noDelay := a.keepAlive, a.noDelay
	a.mu.Unlock()

	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	_ = tc.SetNoDelay(noDelay)
	if keepAlive > 0 {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(keepAlive)
	} else {
		_ = tc.SetKeepAlive(false)
	}
}

// driveHandshake pumps Engine.Handshake against conn until COMPLETE,
// polling ctx between reads since net.Conn predates context.Context:
// a short read deadline stands in for context-aware I/O, the same
// technique used throughout the ecosystem when wrapping a context-unaware
// blocking API.
func (a *adapter) driveHandshake(ctx context.Context, conn net.Conn, eng engine.Engine) error {
	out := make([]byte, ciphertextBufSize)
	in := make([]byte, ciphertextBufSize)
	var pending []byte

	for eng.HandshakeState() != engine.StateEstablished {
		if err := ctx.Err(); err != nil {
			return ErrorCanceled.Error(err)
		}

		n, status, err := eng.Handshake(pending, out)
		pending = nil

		if status == engine.StatusErr {
			return ErrorHandshake.Error(err)
		}

		if n > 0 {
			if _, werr := conn.Write(out[:n]); werr != nil {
				return ErrorIO.Error(werr)
			}
		}

		if status == engine.StatusMoreAvailable {
			if derr := drainOutbound(conn, out, func(buf []byte) (int, bool, error) {
				n2, st2, e2 := eng.Handshake(nil, buf)
				if st2 == engine.StatusErr {
					return n2, false, e2
				}
				return n2, st2 == engine.StatusMoreAvailable, nil
			}); derr != nil {
				return ErrorIO.Error(derr)
			}
		}

		if eng.HandshakeState() == engine.StateEstablished {
			break
		}

		_ = conn.SetReadDeadline(time.Now().Add(handshakePollTick))
		rn, rerr := conn.Read(in)
		if rerr != nil {
			if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				continue
			}
			return ErrorIO.Error(rerr)
		}
		pending = append(pending, in[:rn]...)
	}

	return conn.SetReadDeadline(time.Time{})
}

// Write implements Adapter. See interface.go for the contract.
func (a *adapter) Write(p []byte) (int, error) {
	a.mu.Lock()
	conn, eng, connected := a.conn, a.eng, a.connected
	a.mu.Unlock()

	if !connected {
		err := ErrorNotConnected.Error(nil)
		a.reportError(err)
		return 0, err
	}

	out := make([]byte, ciphertextBufSize)

	consumed, n, status, err := eng.Write(p, out)
	if status == engine.StatusErr {
		werr := ErrorHandshake.Error(err)
		a.reportError(werr)
		return consumed, werr
	}

	if n > 0 {
		if _, werr := conn.Write(out[:n]); werr != nil {
			ioErr := ErrorIO.Error(werr)
			a.reportError(ioErr)
			return consumed, ioErr
		}
	}

	if status == engine.StatusMoreAvailable {
		if derr := drainOutbound(conn, out, func(buf []byte) (int, bool, error) {
			_, n2, st2, e2 := eng.Write(nil, buf)
			if st2 == engine.StatusErr {
				return n2, false, e2
			}
			return n2, st2 == engine.StatusMoreAvailable, nil
		}); derr != nil {
			ioErr := ErrorIO.Error(derr)
			a.reportError(ioErr)
			return consumed, ioErr
		}
	}

	return consumed, nil
}

// Read implements Adapter. See interface.go for the contract. Each call
// loops internally across READ_AGAIN/MORE_AVAILABLE until plaintext is
// available, EOF is reached, or an error occurs — the socket-level detail
// spec.md §4.4 describes as the Stream Adapter's responsibility, so a
// single Engine.Read call per Adapter.Read never leaves the caller
// needing to re-poll for a status that simply means "read the socket
// again".
func (a *adapter) Read(p []byte) (int, error) {
	a.mu.Lock()
	conn, eng, connected := a.conn, a.eng, a.connected
	a.mu.Unlock()

	if !connected {
		err := ErrorNotConnected.Error(nil)
		a.reportError(err)
		return 0, err
	}

	buf := make([]byte, ciphertextBufSize)
	var pending []byte

	for {
		n, status, err := eng.Read(pending, p)
		pending = nil

		if n > 0 {
			return n, nil
		}

		switch status {
		case engine.StatusErr:
			ioErr := ErrorIO.Error(err)
			a.reportError(ioErr)
			return 0, ioErr
		case engine.StatusEOF:
			return 0, io.EOF
		case engine.StatusOK:
			return 0, nil
		default: // MORE_AVAILABLE with a zero-length caller buffer, or READ_AGAIN
			if status == engine.StatusMoreAvailable {
				continue
			}

			rn, rerr := conn.Read(buf)
			if rerr != nil {
				ioErr := ErrorIO.Error(rerr)
				a.reportError(ioErr)
				return 0, ioErr
			}
			pending = append(pending, buf[:rn]...)
		}
	}
}

// Close implements Adapter. See interface.go for the contract and
// spec.md §4.4's half-close: Engine.Close produces close_notify, every
// byte it emits is flushed to the socket, then the TCP side closes.
func (a *adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.eng != nil && a.conn != nil {
		out := make([]byte, 4096)
		_ = drainOutbound(a.conn, out, func(buf []byte) (int, bool, error) {
			n, status, _ := a.eng.Close(buf)
			return n, status == engine.StatusMoreAvailable, nil
		})
	}

	var err error
	if a.conn != nil {
		err = a.conn.Close()
	}

	if a.cancelFn != nil {
		a.cancelFn()
		a.cancelFn = nil
	}

	a.conn = nil
	a.eng = nil
	a.connected = false

	return err
}
