package aegis

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// assertSameContainer compares field by field, treating nil and empty slices alike.
func assertSameContainer(t *testing.T, want, got Container) {
	t.Helper()

	assert.True(t, bytes.Equal(want.PublicKey, got.PublicKey), "public key")
	assert.Equal(t, want.Metadata, got.Metadata, "metadata")
	assert.True(t, bytes.Equal(want.Signature, got.Signature), "signature")
	assert.True(t, bytes.Equal(want.ImageData, got.ImageData), "image data")
}

func block(data []byte) []byte {
	b := make([]byte, 8, 8+len(data))
	binary.BigEndian.PutUint64(b, uint64(len(data)))
	return append(b, data...)
}

func encodeRaw(blocks ...[]byte) []byte {
	b := []byte(Magic)
	for _, blk := range blocks {
		b = append(b, block(blk)...)
	}
	return b
}

type failingWriter struct {
	after int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errBoom
	}
	w.after--
	return len(p), nil
}

type failingReader struct {
	data []byte
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, errBoom
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestWrite_ConcreteScenario(t *testing.T) {
	c, _ := sealForTest(t, "hello", []byte{0x01, 0x02, 0x03})

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, c))

	encoded := buf.Bytes()
	assert.Equal(t, "414547495331", hex.EncodeToString(encoded[:6]))
	assert.Equal(t, uint64(PublicKeySize), binary.BigEndian.Uint64(encoded[6:14]))
	assert.Equal(t, c.PublicKey, encoded[14:14+PublicKeySize])

	off := 14 + PublicKeySize
	assert.Equal(t, uint64(5), binary.BigEndian.Uint64(encoded[off:off+8]))
	assert.Equal(t, "hello", string(encoded[off+8:off+13]))

	off += 13
	assert.Equal(t, uint64(SignatureSize), binary.BigEndian.Uint64(encoded[off:off+8]))
	assert.Equal(t, c.Signature, encoded[off+8:off+8+SignatureSize])

	off += 8 + SignatureSize
	assert.Equal(t, uint64(3), binary.BigEndian.Uint64(encoded[off:off+8]))
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, encoded[off+8:])
	assert.Equal(t, int64(len(encoded)), c.EncodedLen())

	got, err := Read(bytes.NewReader(encoded))
	require.NoError(t, err)
	assertSameContainer(t, c, got)
	assert.NoError(t, Verify(got))
}

func TestRead_RoundTrip(t *testing.T) {
	sealed, _ := sealForTest(t, "sealed", []byte("payload"))

	testCases := []struct {
		name string
		c    Container
	}{
		{"sealed", sealed},
		{"all empty", Container{}},
		{"arbitrary bytes", Container{
			PublicKey: []byte{0x00},
			Metadata:  "ünïcödé",
			Signature: []byte{0xde, 0xad, 0xbe, 0xef},
			ImageData: bytes.Repeat([]byte{0xab}, 70_000),
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := Marshal(tc.c)
			assert.Equal(t, tc.c.EncodedLen(), int64(len(encoded)))

			got, err := Unmarshal(encoded)
			require.NoError(t, err)
			assertSameContainer(t, tc.c, got)

			// re-encoding is byte-exact
			assert.Equal(t, encoded, Marshal(got))
		})
	}
}

func TestWriteTo_ReportsBytesWritten(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))

	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
}

func TestWrite_PropagatesSinkError(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))

	for after := 0; after < 9; after++ {
		err := Write(&failingWriter{after: after}, c)
		assert.ErrorIs(t, err, errBoom, "after %d writes", after)
		assert.NotErrorIs(t, err, ErrInvalidFormat)
	}
}

func TestRead_BadMagic(t *testing.T) {
	good := Marshal(Container{Metadata: "m"})

	for _, magic := range []string{"AEGIS2", "aegis1", "\x00\x00\x00\x00\x00\x00", "XEGIS1"} {
		encoded := append([]byte(magic), good[len(Magic):]...)

		_, err := Unmarshal(encoded)
		assert.ErrorIs(t, err, ErrInvalidFormat, "magic %q", magic)
	}
}

func TestRead_BadMagicStopsBeforeBlocks(t *testing.T) {
	// a source that fails after the magic proves no block is read
	r := &failingReader{data: []byte("NOTAEG")}

	_, err := Read(r)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.NotErrorIs(t, err, errBoom)
}

func TestRead_Truncated(t *testing.T) {
	c, _ := sealForTest(t, "hello", []byte{0x01, 0x02, 0x03})
	encoded := Marshal(c)

	for i := 0; i < len(encoded); i++ {
		_, err := Unmarshal(encoded[:i])
		require.ErrorIs(t, err, ErrInvalidFormat, "prefix of %d bytes", i)
	}
}

func TestRead_ShortBlockIsInvalidFormat(t *testing.T) {
	encoded := []byte(Magic)
	encoded = binary.BigEndian.AppendUint64(encoded, 10)
	encoded = append(encoded, []byte("short")...)

	_, err := Unmarshal(encoded)
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "got 5 of 10 bytes")
}

func TestRead_BlockOverLimit(t *testing.T) {
	for _, n := range []uint64{MaxBlockSize + 1, 1 << 40, ^uint64(0)} {
		encoded := []byte(Magic)
		encoded = binary.BigEndian.AppendUint64(encoded, n)

		// the source fails if anything after the length is requested
		_, err := Read(&failingReader{data: encoded})
		assert.ErrorIs(t, err, ErrInvalidFormat, "length %d", n)
		assert.NotErrorIs(t, err, errBoom)
	}
}

func TestRead_BlockOverLimitInLaterBlock(t *testing.T) {
	encoded := encodeRaw([]byte{0x02}, []byte("meta"))
	encoded = binary.BigEndian.AppendUint64(encoded, MaxBlockSize+1)

	_, err := Unmarshal(encoded)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestRead_DeclaredLengthDoesNotPreallocate(t *testing.T) {
	encoded := []byte(Magic)
	encoded = binary.BigEndian.AppendUint64(encoded, MaxBlockSize)
	encoded = append(encoded, []byte("tiny")...)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	_, err := Unmarshal(encoded)

	runtime.ReadMemStats(&after)

	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
}

func TestRead_InvalidUTF8Metadata(t *testing.T) {
	testCases := []struct {
		name     string
		metadata []byte
	}{
		{"lone continuation byte", []byte{0x80}},
		{"truncated sequence", []byte{'o', 'k', 0xe2, 0x82}},
		{"overlong encoding", []byte{0xc0, 0xaf}},
		{"invalid byte", []byte{0xff}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := encodeRaw([]byte{0x02}, tc.metadata, []byte("sig"), []byte("img"))

			c, err := Unmarshal(encoded)
			assert.ErrorIs(t, err, ErrInvalidFormat)
			assert.Equal(t, Container{}, c)
		})
	}
}

func TestRead_PropagatesSourceError(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))
	encoded := Marshal(c)

	// cut inside the image data block so the failure is not end-of-stream
	r := &failingReader{data: encoded[:len(encoded)-2]}

	_, err := Read(r)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrInvalidFormat)
}

func TestRead_IgnoresTrailingBytes(t *testing.T) {
	c, _ := sealForTest(t, "meta", []byte("image"))

	r := io.MultiReader(bytes.NewReader(Marshal(c)), bytes.NewReader([]byte("trailer")))

	got, err := Read(r)
	require.NoError(t, err)
	assertSameContainer(t, c, got)
}
