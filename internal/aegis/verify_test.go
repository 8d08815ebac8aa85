package aegis

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealForTest(t *testing.T, metadata string, payload []byte) (Container, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	c, err := Seal(metadata, payload, key)
	require.NoError(t, err)

	return c, key
}

func cloneContainer(c Container) Container {
	return Container{
		PublicKey: bytes.Clone(c.PublicKey),
		Metadata:  c.Metadata,
		Signature: bytes.Clone(c.Signature),
		ImageData: bytes.Clone(c.ImageData),
	}
}

func TestVerify_RejectsTamperedImageData(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("some image bytes"))

	for i := range c.ImageData {
		tampered := cloneContainer(c)
		tampered.ImageData[i] ^= 0x01

		assert.ErrorIs(t, Verify(tampered), ErrVerification, "byte %d", i)
	}
}

func TestVerify_RejectsTamperedMetadata(t *testing.T) {
	c, _ := sealForTest(t, "metadata text", []byte("image"))

	for i := range c.Metadata {
		tampered := cloneContainer(c)
		b := []byte(tampered.Metadata)
		b[i] ^= 0x01
		tampered.Metadata = string(b)

		assert.ErrorIs(t, Verify(tampered), ErrVerification, "byte %d", i)
	}
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))

	for i := range c.Signature {
		tampered := cloneContainer(c)
		tampered.Signature[i] ^= 0x01

		assert.ErrorIs(t, Verify(tampered), ErrVerification, "byte %d", i)
	}
}

func TestVerify_RejectsOtherKey(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))
	other, _ := sealForTest(t, "meta", []byte("image"))

	c.PublicKey = other.PublicKey

	assert.ErrorIs(t, Verify(c), ErrVerification)
}

func TestVerify_SignatureLength(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))

	for _, sig := range [][]byte{nil, c.Signature[:SignatureSize-1], append(bytes.Clone(c.Signature), 0x00)} {
		tampered := cloneContainer(c)
		tampered.Signature = sig

		assert.ErrorIs(t, Verify(tampered), ErrVerification)
	}
}

func TestVerify_InvalidPublicKey(t *testing.T) {
	c, key := sealForTest(t, "meta", []byte("image"))

	uncompressed := elliptic.Marshal(elliptic.P256(), key.X, key.Y) //nolint:staticcheck

	testCases := []struct {
		name string
		key  []byte
	}{
		{"empty", nil},
		{"uncompressed", uncompressed},
		{"truncated", c.PublicKey[:PublicKeySize-1]},
		{"bad prefix", append([]byte{0x05}, c.PublicKey[1:]...)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tampered := cloneContainer(c)
			tampered.PublicKey = tc.key

			err := Verify(tampered)
			assert.ErrorIs(t, err, ErrInvalidPublicKey)
		})
	}
}

func TestOpen(t *testing.T) {
	c, _ := sealForTest(t, "hello", []byte{0x01, 0x02, 0x03})

	got, err := Open(bytes.NewReader(Marshal(c)))
	require.NoError(t, err)
	assert.Equal(t, c.Metadata, got.Metadata)
	assert.Equal(t, c.ImageData, got.ImageData)

	encoded := Marshal(c)
	encoded[len(encoded)-1] ^= 0xff

	got, err = Open(bytes.NewReader(encoded))
	assert.ErrorIs(t, err, ErrVerification)
	assert.Empty(t, got.ImageData)

	_, err = Open(bytes.NewReader([]byte("NOTAEGIS")))
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.False(t, errors.Is(err, ErrVerification))
}
