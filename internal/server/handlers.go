package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"aegis/internal/aegis"
	"aegis/internal/metrics"
)

const (
	fieldImage    = "image"
	fieldMetadata = "metadata"
	fieldFile     = "file"

	sealedFileName = "sealed.aegis"
	healthBody     = "cron-job successfull"
)

type sealForm struct {
	image    []byte
	metadata []byte
	hasImage bool
	hasMeta  bool
}

func (s *Server) handleSeal(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	log.Info().Msg("received new request for /seal")

	if s.key == nil {
		log.Error().Msg("no private key configured")
		s.metrics.SealRequests.WithLabelValues(metrics.ResultNotConfigured).Inc()
		writeError(w, &appError{status: http.StatusInternalServerError, msg: msgNotConfigured})
		return
	}

	form, aerr := readSealForm(r, log)
	if aerr != nil {
		s.metrics.SealRequests.WithLabelValues(resultFor(aerr.status)).Inc()
		writeError(w, aerr)
		return
	}

	c, err := aegis.Seal(string(form.metadata), form.image, s.key)
	if err != nil {
		s.metrics.SealRequests.WithLabelValues(metrics.ResultInternalError).Inc()
		writeError(w, internalError(log, err))
		return
	}

	sealed := aegis.Marshal(c)
	log.Info().Int("bytes_written", len(sealed)).Msg("data sealed and serialized")

	s.metrics.SealRequests.WithLabelValues(metrics.ResultOK).Inc()
	s.metrics.SealedBytes.Observe(float64(len(sealed)))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sealedFileName+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(sealed); err != nil {
		log.Warn().Err(err).Msg("failed to write sealed response")
	}
}

// readSealForm walks the multipart body, keeping the image and metadata
// fields and skipping everything else. A repeated field keeps its last value.
func readSealForm(r *http.Request, log *zerolog.Logger) (sealForm, *appError) {
	var form sealForm

	mr, err := r.MultipartReader()
	if err != nil {
		return form, badRequest("Expected a multipart/form-data request: %v", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return form, bodyError(log, err)
		}

		name := part.FormName()
		if name != fieldImage && name != fieldMetadata {
			part.Close()
			continue
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return form, bodyError(log, err)
		}

		switch name {
		case fieldImage:
			log.Info().Int("size", len(data)).Msg("found 'image' field")
			form.image, form.hasImage = data, true
		case fieldMetadata:
			log.Info().Int("size", len(data)).Msg("found 'metadata' field")
			form.metadata, form.hasMeta = data, true
		}
	}

	if !form.hasImage {
		return form, badRequest("Request is missing required 'image' field.")
	}
	if !form.hasMeta {
		return form, badRequest("Request is missing required 'metadata' field.")
	}
	if !utf8.Valid(form.metadata) {
		return form, badRequest("Field 'metadata' is not valid UTF-8.")
	}

	return form, nil
}

type verifyResponse struct {
	Valid     bool   `json:"valid"`
	Metadata  string `json:"metadata,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
	Digest    string `json:"digest,omitempty"`
	ImageSize int    `json:"image_size"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	body, aerr := containerBody(r, log)
	if aerr != nil {
		s.metrics.VerifyRequests.WithLabelValues(resultFor(aerr.status)).Inc()
		writeError(w, aerr)
		return
	}

	c, err := aegis.Read(body)
	if err != nil {
		if errors.Is(err, aegis.ErrInvalidFormat) {
			s.metrics.VerifyRequests.WithLabelValues(metrics.ResultInvalidFormat).Inc()
			writeJSON(w, log, http.StatusBadRequest, verifyResponse{Error: err.Error()})
			return
		}

		aerr := bodyError(log, err)
		s.metrics.VerifyRequests.WithLabelValues(resultFor(aerr.status)).Inc()
		writeError(w, aerr)
		return
	}

	digest := aegis.Digest(c.Metadata, c.ImageData)
	resp := verifyResponse{
		Metadata:  c.Metadata,
		PublicKey: hex.EncodeToString(c.PublicKey),
		Digest:    hex.EncodeToString(digest[:]),
		ImageSize: len(c.ImageData),
	}

	if err := aegis.Verify(c); err != nil {
		log.Info().Err(err).Msg("container failed verification")
		s.metrics.VerifyRequests.WithLabelValues(metrics.ResultInvalidSig).Inc()

		resp.Error = err.Error()
		writeJSON(w, log, http.StatusUnprocessableEntity, resp)
		return
	}

	s.metrics.VerifyRequests.WithLabelValues(metrics.ResultOK).Inc()

	resp.Valid = true
	writeJSON(w, log, http.StatusOK, resp)
}

// containerBody returns the encoded container: the raw body, or the "file"
// part of a multipart body.
func containerBody(r *http.Request, log *zerolog.Logger) (io.Reader, *appError) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("Invalid multipart request: %v", err)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, badRequest("Request is missing required 'file' field.")
		}
		if err != nil {
			return nil, bodyError(log, err)
		}

		if part.FormName() == fieldFile {
			return part, nil
		}

		part.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, healthBody)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.cfg.Server.RedirectURL, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, log *zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func resultFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return metrics.ResultBadRequest
	case http.StatusRequestEntityTooLarge:
		return metrics.ResultBodyTooLarge
	default:
		return metrics.ResultInternalError
	}
}
