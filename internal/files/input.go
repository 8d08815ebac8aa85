package files

import (
	"errors"
	"fmt"
	"io"
	"os"
)

type InputSource int

const (
	InputSourceFile InputSource = iota
	InputSourceStdin
)

func (i InputSource) String() string {
	if i == InputSourceFile {
		return "file"
	}
	return "stdin"
}

// ReadInput reads input from either a file path or stdin.
// Enforces maximum size limit. Empty input is allowed.
// Returns data, source type, and error.
func ReadInput(path string, stdin *os.File, maxSize int64) ([]byte, InputSource, error) {
	stdinHasData := false
	if stdin != nil {
		stdinStat, err := stdin.Stat()
		if err != nil {
			return nil, 0, fmt.Errorf("cannot stat stdin: %w", err)
		}
		stdinHasData = (stdinStat.Mode() & os.ModeCharDevice) == 0
	}

	// Case: both file path and stdin
	if path != "" && stdinHasData && !isEmptyPipe(stdin) {
		return nil, 0, errors.New("cannot read from both file and stdin")
	}

	// Case: neither file path nor stdin
	if path == "" && !stdinHasData {
		return nil, 0, errors.New("no input provided (use file path or pipe to stdin)")
	}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("cannot open file: %w", err)
		}
		defer file.Close()

		fileInfo, err := file.Stat()
		if err != nil {
			return nil, 0, fmt.Errorf("cannot stat file: %w", err)
		}

		if fileInfo.Size() > maxSize {
			return nil, 0, fmt.Errorf("input exceeds maximum size of %d bytes", maxSize)
		}

		data, err := readLimited(file, maxSize)
		if err != nil {
			return nil, 0, fmt.Errorf("cannot read file: %w", err)
		}

		return data, InputSourceFile, nil
	}

	data, err := readLimited(stdin, maxSize)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot read stdin: %w", err)
	}

	return data, InputSourceStdin, nil
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d bytes", maxSize)
	}

	return data, nil
}

// isEmptyPipe reports whether stdin is an empty regular file, as when a
// command runs with stdin redirected from an empty file.
func isEmptyPipe(f *os.File) bool {
	st, err := f.Stat()
	if err != nil {
		return false
	}

	return st.Mode().IsRegular() && st.Size() == 0
}
