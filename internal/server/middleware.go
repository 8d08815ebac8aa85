package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	headerRequestID      = "X-Request-Id"
	headerRequestHeaders = "Access-Control-Request-Headers"

	// routeUnmatched labels requests no route accepted.
	routeUnmatched = "unmatched"
)

// requestID tags every request with a UUID and puts a logger carrying it
// into the request context. A valid incoming ID is kept.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)

		l := s.log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// accessLog times and logs every request passed to next. The route label
// comes from router so that unknown paths do not create new label values.
func (s *Server) accessLog(router *mux.Router, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeUnmatched

		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil {
			if tpl, err := match.Route.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// limitBody caps how much of a request body a handler may read.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.BodyLimit)
		}
		next.ServeHTTP(w, r)
	})
}

// lowerPreflightHeaders lowercases the header names a preflight asks for.
// The CORS handler compares them against lowercase names only.
func lowerPreflightHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.Header.Values(headerRequestHeaders)
		if r.Method != http.MethodOptions || len(values) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		lowered := make([]string, len(values))
		for i, v := range values {
			lowered[i] = strings.ToLower(v)
		}

		r = r.Clone(r.Context())
		r.Header[headerRequestHeaders] = lowered

		next.ServeHTTP(w, r)
	})
}
