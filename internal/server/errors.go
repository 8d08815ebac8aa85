package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const msgNotConfigured = "Server is not configured correctly. Administrator must set a private key."

// appError is an error with the HTTP status and body it maps to.
type appError struct {
	status int
	msg    string
}

func (e *appError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) *appError {
	return &appError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// internalError logs err and returns a 500 carrying its message.
func internalError(log *zerolog.Logger, err error) *appError {
	log.Error().Err(err).Msg("an internal application error occurred")

	return &appError{
		status: http.StatusInternalServerError,
		msg:    fmt.Sprintf("Something went wrong: %v", err),
	}
}

// bodyError classifies a failure to read the request body.
func bodyError(log *zerolog.Logger, err error) *appError {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &appError{
			status: http.StatusRequestEntityTooLarge,
			msg:    fmt.Sprintf("Request body exceeds the limit of %d bytes.", maxErr.Limit),
		}
	}

	log.Warn().Err(err).Msg("failed to read request body")

	return badRequest("Failed to read request body: %v", err)
}

func writeError(w http.ResponseWriter, e *appError) {
	http.Error(w, e.msg, e.status)
}
