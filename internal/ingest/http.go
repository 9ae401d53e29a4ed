// Package ingest exposes the validator over HTTP and NATS request/reply.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"snifferconfig/internal/config"
	"snifferconfig/internal/domain"
	"snifferconfig/internal/logging"

	"github.com/gorilla/mux"
)

// Validator turns one raw document into a validation response.
type Validator interface {
	Validate(ctx context.Context, raw string) domain.Response
}

// HTTPHandler validates raw request bodies and replies with the JSON envelope.
// Params: validator and max body limit.
// Returns: HTTP handler for the validate endpoint.
type HTTPHandler struct {
	validator   Validator
	maxBodySize int64
}

// NewHTTPHandler creates validate HTTP handler.
// Params: validator and max request body size in bytes.
// Returns: configured handler.
func NewHTTPHandler(validator Validator, maxBodySize int64) *HTTPHandler {
	return &HTTPHandler{validator: validator, maxBodySize: maxBodySize}
}

// ServeHTTP handles one validation request.
// Params: HTTP request/response writer pair.
// Returns: 200 with result, 422 with errors, 405 or 400 for transport problems.
func (h *HTTPHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.Header().Set("Allow", http.MethodPost)
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	response := h.validator.Validate(request.Context(), string(body))
	payload, err := encodeResponse(response)
	if err != nil {
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusFor(response))
	_, _ = writer.Write(payload)
}

// NewRouter wires health, readiness, and validate routes.
// Params: HTTP ingest config, validator, readiness probe, and logger.
// Returns: router with request logging middleware.
func NewRouter(cfg config.HTTPIngestConfig, validator Validator, ready func() bool, logger *slog.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogging(logging.OrDiscard(logger)))

	router.HandleFunc(cfg.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.HandleFunc(cfg.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if ready != nil && ready() {
			writer.WriteHeader(http.StatusOK)
			_, _ = writer.Write([]byte("ready"))
			return
		}
		writer.WriteHeader(http.StatusServiceUnavailable)
		_, _ = writer.Write([]byte("not-ready"))
	}).Methods(http.MethodGet)
	router.Handle(cfg.ValidatePath, NewHTTPHandler(validator, cfg.MaxBodyBytes))
	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogging logs method, path, status, and duration for each request.
func requestLogging(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
			next.ServeHTTP(recorder, request)

			level := slog.LevelDebug
			switch {
			case recorder.status >= 500:
				level = slog.LevelError
			case recorder.status >= 400:
				level = slog.LevelWarn
			}
			logger.Log(request.Context(), level, "http request",
				"method", request.Method,
				"path", request.URL.Path,
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
