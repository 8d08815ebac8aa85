// Package keys turns operator-supplied key material into a P-256 signing key.
// It accepts a raw hex scalar or SEC1/PKCS#8 PEM and does not generate,
// rotate or store keys.
package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey reports key material that cannot be turned into a P-256 private key.
var ErrInvalidKey = errors.New("invalid private key")

// PEM block types accepted by ParsePrivateKeyPEM.
const (
	pemSEC1PrivateKey  = "EC PRIVATE KEY"
	pemPKCS8PrivateKey = "PRIVATE KEY"
)

const scalarSize = 32

// ParsePrivateKeyHex parses a hex encoded 32-byte big-endian P-256 scalar.
// Surrounding whitespace and a 0x prefix are ignored.
func ParsePrivateKeyHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode hex: %w", ErrInvalidKey, err)
	}

	if len(b) != scalarSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, scalarSize, len(b))
	}

	return fromScalar(b)
}

// EncodePrivateKeyHex returns the hex form accepted by ParsePrivateKeyHex.
func EncodePrivateKeyHex(key *ecdsa.PrivateKey) string {
	b := make([]byte, scalarSize)
	key.D.FillBytes(b)

	return hex.EncodeToString(b)
}

// ParsePrivateKeyPEM scans concatenated PEM data and returns the first P-256
// private key found in an "EC PRIVATE KEY" or "PRIVATE KEY" block.
func ParsePrivateKeyPEM(data []byte) (*ecdsa.PrivateKey, error) {
	var lastErr error

	for len(data) > 0 {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}

		switch block.Type {
		case pemSEC1PrivateKey:
			k, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				lastErr = err
				break
			}
			if k.Curve != elliptic.P256() {
				lastErr = fmt.Errorf("curve %s is not supported", k.Curve.Params().Name)
				break
			}
			return k, nil
		case pemPKCS8PrivateKey:
			anyKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				lastErr = err
				break
			}
			k, ok := anyKey.(*ecdsa.PrivateKey)
			if !ok {
				lastErr = fmt.Errorf("PKCS#8 key is %T, not ECDSA", anyKey)
				break
			}
			if k.Curve != elliptic.P256() {
				lastErr = fmt.Errorf("curve %s is not supported", k.Curve.Params().Name)
				break
			}
			return k, nil
		}

		data = rest
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, lastErr)
	}

	return nil, fmt.Errorf("%w: no EC private key PEM block found", ErrInvalidKey)
}

// Load accepts either PEM or hex key material.
func Load(data []byte) (*ecdsa.PrivateKey, error) {
	if bytes.Contains(data, []byte("-----BEGIN")) {
		return ParsePrivateKeyPEM(data)
	}

	return ParsePrivateKeyHex(string(data))
}

// LoadFile reads key material from path and passes it to Load.
func LoadFile(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	k, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", path, err)
	}

	return k, nil
}

func fromScalar(b []byte) (*ecdsa.PrivateKey, error) {
	curve := elliptic.P256()

	d := new(big.Int).SetBytes(b)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: scalar out of range", ErrInvalidKey)
	}

	x, y := curve.ScalarBaseMult(b)

	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}, nil
}
