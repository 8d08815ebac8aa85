// Package aegis seals an image and a short metadata string into a signed,
// self-describing container and parses such containers back.
package aegis

const (
	// Magic opens every encoded container.
	Magic = "AEGIS1"

	// MaxBlockSize bounds the declared length of a single block on read.
	MaxBlockSize = 1_000_000_000 // 1GB

	// PublicKeySize is the length of a compressed SEC1 P-256 point.
	PublicKeySize = 33

	// SignatureSize is the length of a fixed-size r||s P-256 signature.
	SignatureSize = 64

	lengthSize = 8
)

// Container is a sealed artifact. Field order matches the wire order.
type Container struct {
	PublicKey []byte
	Metadata  string
	Signature []byte
	ImageData []byte
}

// EncodedLen returns the number of bytes Write produces for c.
func (c Container) EncodedLen() int64 {
	return int64(len(Magic)) +
		4*lengthSize +
		int64(len(c.PublicKey)) +
		int64(len(c.Metadata)) +
		int64(len(c.Signature)) +
		int64(len(c.ImageData))
}
