package testutil

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"mime/multipart"
	"regexp"
	"testing"
)

// EnvVars lists every environment variable the service and CLI read.
var EnvVars = []string{
	"PORT",
	"AEGIS_HOST",
	"AEGIS_PRIVATE_KEY",
	"AEGIS_PRIVATE_KEY_FILE",
	"AEGIS_LOG_LEVEL",
	"AEGIS_LOG_FORMAT",
	"AEGIS_REDIRECT_URL",
	"AEGIS_BODY_LIMIT",
}

// GenerateKey returns a fresh P-256 key for signing in tests.
func GenerateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	return key
}

// SetupTestEnv isolates HOME, the XDG config directory and every AEGIS
// variable for the duration of the test. Returns the temporary home directory.
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpHome := t.TempDir()

	t.Setenv("HOME", tmpHome)
	t.Setenv("XDG_CONFIG_HOME", "")

	for _, name := range EnvVars {
		t.Setenv(name, "")
	}

	return tmpHome
}

// FormPart is one field of a multipart request body.
type FormPart struct {
	Name     string
	FileName string
	Data     []byte
}

// MultipartBody encodes parts as multipart/form-data.
// Returns the body and its Content-Type header value.
func MultipartBody(t *testing.T, parts ...FormPart) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range parts {
		var (
			w   io.Writer
			err error
		)
		if p.FileName != "" {
			w, err = mw.CreateFormFile(p.Name, p.FileName)
		} else {
			w, err = mw.CreateFormField(p.Name)
		}
		if err != nil {
			t.Fatalf("failed to create form part %q: %v", p.Name, err)
		}
		if _, err := w.Write(p.Data); err != nil {
			t.Fatalf("failed to write form part %q: %v", p.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return &buf, mw.FormDataContentType()
}

// UUIDRegex is a compiled regex for validating UUID format.
var UUIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// IsUUID validates that a string is a valid UUID.
func IsUUID(s string) bool {
	return UUIDRegex.MatchString(s)
}
