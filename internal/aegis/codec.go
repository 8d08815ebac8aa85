package aegis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Write serializes c as the magic followed by four length-prefixed blocks.
// Errors from w are returned unchanged.
func Write(w io.Writer, c Container) error {
	_, err := c.WriteTo(w)
	return err
}

// WriteTo implements io.WriterTo.
func (c Container) WriteTo(w io.Writer) (int64, error) {
	var written int64

	n, err := io.WriteString(w, Magic)
	written += int64(n)
	if err != nil {
		return written, err
	}

	for _, block := range [][]byte{c.PublicKey, []byte(c.Metadata), c.Signature, c.ImageData} {
		var length [lengthSize]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(block)))

		n, err = w.Write(length[:])
		written += int64(n)
		if err != nil {
			return written, err
		}

		n, err = w.Write(block)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

// Marshal returns the encoded form of c.
func Marshal(c Container) []byte {
	var buf bytes.Buffer
	buf.Grow(int(c.EncodedLen()))

	// writes to a bytes.Buffer cannot fail
	_, _ = c.WriteTo(&buf)

	return buf.Bytes()
}

// Read parses a container from r, validating the framing and the metadata
// encoding. It does not verify the signature; use Verify or Open for that.
func Read(r io.Reader) (Container, error) {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Container{}, truncated("magic", err)
	}
	if string(magic[:]) != Magic {
		return Container{}, invalidFormat("bad magic %q", magic[:])
	}

	publicKey, err := readBlock(r, "public key")
	if err != nil {
		return Container{}, err
	}

	metadata, err := readBlock(r, "metadata")
	if err != nil {
		return Container{}, err
	}
	if !utf8.Valid(metadata) {
		return Container{}, invalidFormat("metadata is not valid UTF-8")
	}

	signature, err := readBlock(r, "signature")
	if err != nil {
		return Container{}, err
	}

	imageData, err := readBlock(r, "image data")
	if err != nil {
		return Container{}, err
	}

	return Container{
		PublicKey: publicKey,
		Metadata:  string(metadata),
		Signature: signature,
		ImageData: imageData,
	}, nil
}

// Unmarshal parses an encoded container held in memory.
// Bytes after the last block are ignored, as they are by Read.
func Unmarshal(b []byte) (Container, error) {
	return Read(bytes.NewReader(b))
}

// readBlock reads one length-prefixed block. The declared length is checked
// against MaxBlockSize before anything is allocated, and the buffer only
// grows with the bytes the source actually delivers.
func readBlock(r io.Reader, name string) ([]byte, error) {
	var length [lengthSize]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, truncated(name+" length", err)
	}

	n := binary.BigEndian.Uint64(length[:])
	if n > MaxBlockSize {
		return nil, invalidFormat("%s block declares %d bytes, limit is %d", name, n, MaxBlockSize)
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(n)))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != n {
		return nil, invalidFormat("%s block truncated: got %d of %d bytes", name, len(data), n)
	}

	return data, nil
}

// truncated maps an exhausted source to ErrInvalidFormat and passes any
// other source error through.
func truncated(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s: %w", ErrInvalidFormat, what, err)
	}

	return err
}
