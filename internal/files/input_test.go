package files

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pipeWith returns the read end of a pipe holding data.
func pipeWith(t *testing.T, data string) *os.File {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	go func() {
		_, _ = w.WriteString(data)
		w.Close()
	}()

	t.Cleanup(func() { r.Close() })

	return r
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}

	return path
}

func TestReadInput_File(t *testing.T) {
	path := writeTemp(t, "image.bin", []byte{0x01, 0x02, 0x03})

	data, src, err := ReadInput(path, nil, 1024)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !bytes.Equal(data, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("unexpected data: %x", data)
	}

	if src != InputSourceFile || src.String() != "file" {
		t.Errorf("expected file source, got: %s", src)
	}
}

func TestReadInput_EmptyFileAllowed(t *testing.T) {
	path := writeTemp(t, "empty.bin", nil)

	data, _, err := ReadInput(path, nil, 1024)
	if err != nil {
		t.Fatalf("expected no error for empty file, got: %v", err)
	}

	if len(data) != 0 {
		t.Errorf("expected empty data, got %d bytes", len(data))
	}
}

func TestReadInput_Stdin(t *testing.T) {
	data, src, err := ReadInput("", pipeWith(t, "piped payload"), 1024)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if string(data) != "piped payload" {
		t.Errorf("unexpected data: %q", data)
	}

	if src != InputSourceStdin || src.String() != "stdin" {
		t.Errorf("expected stdin source, got: %s", src)
	}
}

func TestReadInput_TooLarge(t *testing.T) {
	testCases := []struct {
		name  string
		path  func(t *testing.T) string
		stdin func(t *testing.T) *os.File
	}{
		{
			name:  "file",
			path:  func(t *testing.T) string { return writeTemp(t, "big.bin", []byte(strings.Repeat("x", 11))) },
			stdin: func(t *testing.T) *os.File { return nil },
		},
		{
			name:  "stdin",
			path:  func(t *testing.T) string { return "" },
			stdin: func(t *testing.T) *os.File { return pipeWith(t, strings.Repeat("x", 11)) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ReadInput(tc.path(t), tc.stdin(t), 10)
			if err == nil {
				t.Fatal("expected error for oversized input, got nil")
			}

			if !strings.Contains(err.Error(), "exceeds maximum size of 10 bytes") {
				t.Errorf("unexpected error message: %v", err)
			}
		})
	}
}

func TestReadInput_BothSources(t *testing.T) {
	path := writeTemp(t, "image.bin", []byte("file"))

	_, _, err := ReadInput(path, pipeWith(t, "stdin"), 1024)
	if err == nil {
		t.Fatal("expected error when both file and stdin are given, got nil")
	}

	if err.Error() != "cannot read from both file and stdin" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestReadInput_NoSource(t *testing.T) {
	_, _, err := ReadInput("", nil, 1024)
	if err == nil {
		t.Fatal("expected error without input, got nil")
	}

	if !strings.Contains(err.Error(), "no input provided") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestReadInput_MissingFile(t *testing.T) {
	_, _, err := ReadInput(filepath.Join(t.TempDir(), "missing"), nil, 1024)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}
