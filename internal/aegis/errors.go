package aegis

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat reports a structural violation in an encoded container.
	ErrInvalidFormat = errors.New("invalid container format")

	// ErrInvalidPublicKey reports a public key that is not a compressed P-256 point.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrVerification reports a signature that does not match the container contents.
	ErrVerification = errors.New("signature verification failed")
)

// SigningError is returned when the signature primitive rejects a seal attempt.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

func invalidFormat(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFormat, fmt.Sprintf(format, args...))
}
