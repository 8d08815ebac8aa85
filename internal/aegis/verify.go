package aegis

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"io"
	"math/big"
)

// Verify checks that c.Signature is a valid signature by c.PublicKey over
// the digest of c.Metadata and c.ImageData.
// It never modifies c.
func Verify(c Container) error {
	pub, err := ParsePublicKey(c.PublicKey)
	if err != nil {
		return err
	}

	if len(c.Signature) != SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes, want %d", ErrVerification, len(c.Signature), SignatureSize)
	}

	r := new(big.Int).SetBytes(c.Signature[:SignatureSize/2])
	s := new(big.Int).SetBytes(c.Signature[SignatureSize/2:])

	digest := Digest(c.Metadata, c.ImageData)
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return ErrVerification
	}

	return nil
}

// ParsePublicKey decodes a compressed SEC1 P-256 point.
func ParsePublicKey(b []byte) (*ecdsa.PublicKey, error) {
	curve := elliptic.P256()

	x, y := elliptic.UnmarshalCompressed(curve, b)
	if x == nil {
		return nil, fmt.Errorf("%w: not a compressed P-256 point (%d bytes)", ErrInvalidPublicKey, len(b))
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// Open reads a container from r and verifies its signature.
// The container is only returned when both steps succeed.
func Open(r io.Reader) (Container, error) {
	c, err := Read(r)
	if err != nil {
		return Container{}, err
	}

	if err := Verify(c); err != nil {
		return Container{}, err
	}

	return c, nil
}
