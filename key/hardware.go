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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"io"
	"math/big"
	"sync"

	"github.com/miekg/pkcs11"
)

// HardwareConfig identifies a key resident on a PKCS#11-style token: the
// driver's shared-library path, the slot id, the user PIN, and exactly one
// of a hex object id or a UTF-8 label.
type HardwareConfig struct {
	DriverPath string `mapstructure:"driverPath" json:"driverPath" yaml:"driverPath" toml:"driverPath"`
	SlotID     uint   `mapstructure:"slotId" json:"slotId" yaml:"slotId" toml:"slotId"`
	PIN        string `mapstructure:"pin" json:"pin" yaml:"pin" toml:"pin"`
	KeyID      string `mapstructure:"keyId" json:"keyId" yaml:"keyId" toml:"keyId"`
	Label      string `mapstructure:"label" json:"label" yaml:"label" toml:"label"`
}

// driver is the process-global handle for one PKCS#11 shared library,
// reference-counted so that the last Key to close it is the one that
// actually finalizes the module.
type driver struct {
	ctx  *pkcs11.Ctx
	refs int
}

var (
	driversMu sync.Mutex
	drivers   = make(map[string]*driver)
)

func openDriver(path string) (*driver, error) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if d, ok := drivers[path]; ok {
		d.refs++
		return d, nil
	}

	ctx := pkcs11.New(path)
	if ctx == nil {
		return nil, ErrorDriverLoad.Error(nil)
	}

	if err := ctx.Initialize(); err != nil {
		return nil, ErrorDriverLoad.Error(err)
	}

	d := &driver{ctx: ctx, refs: 1}
	drivers[path] = d
	return d, nil
}

func (d *driver) release(path string) {
	driversMu.Lock()
	defer driversMu.Unlock()

	d.refs--
	if d.refs <= 0 {
		_ = d.ctx.Finalize()
		delete(drivers, path)
	}
}

type hardware struct {
	path    string
	drv     *driver
	session pkcs11.SessionHandle
	priv    pkcs11.ObjectHandle
	pub     crypto.PublicKey
	mu      sync.Mutex
}

// LoadHardware opens the token driver (once per process per path), opens a
// session on the given slot, authenticates with the PIN, locates the
// private-key object by id or label, and caches the companion public key.
func LoadHardware(cfg HardwareConfig) (Key, error) {
	if cfg.DriverPath == "" || (cfg.KeyID == "") == (cfg.Label == "") {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	drv, err := openDriver(cfg.DriverPath)
	if err != nil {
		return nil, err
	}

	session, err := drv.ctx.OpenSession(cfg.SlotID, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		drv.release(cfg.DriverPath)
		return nil, ErrorSessionOpen.Error(err)
	}

	if err := drv.ctx.Login(session, pkcs11.CKU_USER, cfg.PIN); err != nil {
		_ = drv.ctx.CloseSession(session)
		drv.release(cfg.DriverPath)
		return nil, ErrorPINFailure.Error(err)
	}

	priv, err := findObject(drv.ctx, session, pkcs11.CKO_PRIVATE_KEY, cfg.KeyID, cfg.Label)
	if err != nil {
		_ = drv.ctx.Logout(session)
		_ = drv.ctx.CloseSession(session)
		drv.release(cfg.DriverPath)
		return nil, err
	}

	pubHandle, err := findObject(drv.ctx, session, pkcs11.CKO_PUBLIC_KEY, cfg.KeyID, cfg.Label)
	if err != nil {
		_ = drv.ctx.Logout(session)
		_ = drv.ctx.CloseSession(session)
		drv.release(cfg.DriverPath)
		return nil, err
	}

	pub, err := readPublicKey(drv.ctx, session, pubHandle)
	if err != nil {
		_ = drv.ctx.Logout(session)
		_ = drv.ctx.CloseSession(session)
		drv.release(cfg.DriverPath)
		return nil, err
	}

	return &hardware{
		path:    cfg.DriverPath,
		drv:     drv,
		session: session,
		priv:    priv,
		pub:     pub,
	}, nil
}

func findObject(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, class uint, keyID, label string) (pkcs11.ObjectHandle, error) {
	tmpl := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, class),
	}

	if keyID != "" {
		raw, err := hex.DecodeString(keyID)
		if err != nil {
			return 0, ErrorObjectNotFound.Error(err)
		}
		tmpl = append(tmpl, pkcs11.NewAttribute(pkcs11.CKA_ID, raw))
	} else {
		tmpl = append(tmpl, pkcs11.NewAttribute(pkcs11.CKA_LABEL, label))
	}

	if err := ctx.FindObjectsInit(session, tmpl); err != nil {
		return 0, ErrorObjectNotFound.Error(err)
	}
	defer func() { _ = ctx.FindObjectsFinal(session) }()

	objs, _, err := ctx.FindObjects(session, 1)
	if err != nil || len(objs) == 0 {
		return 0, ErrorObjectNotFound.Error(err)
	}

	return objs[0], nil
}

func readPublicKey(ctx *pkcs11.Ctx, session pkcs11.SessionHandle, obj pkcs11.ObjectHandle) (crypto.PublicKey, error) {
	attrs, err := ctx.GetAttributeValue(session, obj, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, nil),
		pkcs11.NewAttribute(pkcs11.CKA_MODULUS, nil),
		pkcs11.NewAttribute(pkcs11.CKA_PUBLIC_EXPONENT, nil),
		pkcs11.NewAttribute(pkcs11.CKA_EC_POINT, nil),
		pkcs11.NewAttribute(pkcs11.CKA_EC_PARAMS, nil),
	})
	if err != nil {
		return nil, ErrorObjectNotFound.Error(err)
	}

	keyType := attrs[0].Value

	switch {
	case len(keyType) == 8 && keyType[0] == byte(pkcs11.CKK_RSA):
		n := new(big.Int).SetBytes(attrs[1].Value)
		e := new(big.Int).SetBytes(attrs[2].Value)
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
	case len(attrs[3].Value) > 0:
		x, y := elliptic.Unmarshal(elliptic.P256(), attrs[3].Value)
		if x == nil {
			return nil, ErrorKeyUnsupported.Error(nil)
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
	default:
		return nil, ErrorKeyUnsupported.Error(nil)
	}
}

func (h *hardware) Public() crypto.PublicKey {
	return h.pub
}

// Sign issues a signing operation on the token. If the key is ECDSA, the
// token returns the raw r||s form, which is handed back unchanged — the
// ECDSA-DER fallback at verification time lives in this module's chain
// package's VerifySignature, per the Engine's signature verification
// auxiliary.
func (h *hardware) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mech, err := signMechanism(h.pub, opts)
	if err != nil {
		return nil, err
	}

	if err := h.drv.ctx.SignInit(h.session, []*pkcs11.Mechanism{mech}, h.priv); err != nil {
		return nil, ErrorSignFailure.Error(err)
	}

	sig, err := h.drv.ctx.Sign(h.session, digest)
	if err != nil {
		return nil, ErrorSignFailure.Error(err)
	}

	return sig, nil
}

func signMechanism(pub crypto.PublicKey, opts crypto.SignerOpts) (*pkcs11.Mechanism, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		if _, ok := opts.(*rsa.PSSOptions); ok {
			return pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS_PSS, nil), nil
		}
		return pkcs11.NewMechanism(pkcs11.CKM_RSA_PKCS, nil), nil
	case *ecdsa.PublicKey:
		return pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil), nil
	default:
		return nil, ErrorKeyUnsupported.Error(nil)
	}
}

func (h *hardware) Backend() Backend {
	return BackendHardware
}

func (h *hardware) PublicPEM() ([]byte, error) {
	return publicPEM(h.pub)
}

func (h *hardware) Verify(hash crypto.Hash, digest, sig []byte) error {
	return verifyPublic(h.pub, hash, digest, sig)
}

func (h *hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.drv == nil {
		return nil
	}

	_ = h.drv.ctx.Logout(h.session)
	err := h.drv.ctx.CloseSession(h.session)
	h.drv.release(h.path)
	h.drv = nil

	if err != nil {
		return errors.New("pkcs11: close session: " + err.Error())
	}

	return nil
}

// AssociatedCertificate fetches the certificate object stored alongside the
// private key on the token, when the token carries one (§4.2: "if the Key
// is a hardware-token key that carries an associated certificate, the
// certificate call is optional").
func (h *hardware) AssociatedCertificate(keyID, label string) ([]byte, error) {
	obj, err := findObject(h.drv.ctx, h.session, pkcs11.CKO_CERTIFICATE, keyID, label)
	if err != nil {
		return nil, err
	}

	attrs, err := h.drv.ctx.GetAttributeValue(h.session, obj, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_VALUE, nil),
	})
	if err != nil {
		return nil, ErrorObjectNotFound.Error(err)
	}

	if _, err := x509.ParseCertificate(attrs[0].Value); err != nil {
		return nil, ErrorKeyParse.Error(err)
	}

	return attrs[0].Value, nil
}
