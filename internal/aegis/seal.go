package aegis

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

// Digest hashes metadata immediately followed by payload.
// There is no delimiter between the two parts: ("ab", "c") and ("a", "bc")
// produce the same digest.
func Digest(metadata string, payload []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(metadata))
	h.Write(payload)

	var sum [sha256.Size]byte
	h.Sum(sum[:0])

	return sum
}

// Seal hashes, signs and packages metadata and payload into a Container.
// The signature is computed over the raw digest with ECDSA P-256.
// The Container holds its own copy of payload.
func Seal(metadata string, payload []byte, key *ecdsa.PrivateKey) (Container, error) {
	if key == nil {
		return Container{}, &SigningError{Err: errors.New("nil private key")}
	}
	if key.Curve != elliptic.P256() {
		return Container{}, &SigningError{Err: errors.New("private key is not on P-256")}
	}

	digest := Digest(metadata, payload)

	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		return Container{}, &SigningError{Err: err}
	}

	sig := make([]byte, SignatureSize)
	r.FillBytes(sig[:SignatureSize/2])
	s.FillBytes(sig[SignatureSize/2:])

	return Container{
		PublicKey: elliptic.MarshalCompressed(key.Curve, key.X, key.Y),
		Metadata:  metadata,
		Signature: sig,
		ImageData: bytes.Clone(payload),
	}, nil
}
