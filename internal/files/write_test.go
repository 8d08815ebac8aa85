package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealed.aegis")

	if err := WriteAtomic(path, []byte("first"), 0o600); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := WriteAtomic(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("expected no error on overwrite, got: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}

	if string(data) != "second" {
		t.Errorf("expected second write to win, got: %q", data)
	}

	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file should not remain, stat: %v", err)
	}
}

func TestWriteAtomic_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "sealed.aegis")

	if err := WriteAtomic(path, []byte("data"), 0o600); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}
