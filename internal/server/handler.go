// Package server exposes the emotion classifier over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"

	"github.com/RyanBlaney/speech-emotion/internal/inference"
)

// Predictor classifies uploaded clips
type Predictor interface {
	PredictBytes(ctx context.Context, data []byte, ext string) (*inference.Prediction, error)
	Classes() []string
}

type predictResponse struct {
	RequestID     string                       `json:"request_id"`
	Label         string                       `json:"label"`
	Confidence    float64                      `json:"confidence"`
	Probabilities []inference.ClassProbability `json:"probabilities"`
	Percentages   map[string]string            `json:"percentages"`
}

type errorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// Handler manages the HTTP interface of the classifier
type Handler struct {
	predictor Predictor
	config    *Config
	logger    logging.Logger
	router    *http.ServeMux
}

// NewHandler initializes the HTTP handler and registers its routes
func NewHandler(predictor Predictor, cfg *Config, logger logging.Logger) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	h := &Handler{
		predictor: predictor,
		config:    cfg,
		logger:    logger.WithFields(logging.Fields{"component": "server"}),
		router:    http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /{$}", h.Index)
	h.router.HandleFunc("GET /health", h.Health)
	h.router.HandleFunc("POST /predict", h.Predict)
}

// Index serves the upload page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := indexData{
		Extensions: strings.Join(h.config.AllowedExtensions, ", "),
		Accept:     strings.Join(h.config.AllowedExtensions, ","),
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		h.logger.Error(xerrors.New(err), "Failed to render index page")
	}
}

// Health reports liveness and the model's label space
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"classes": h.predictor.Classes(),
	})
}

// Predict handles POST /predict with a multipart "file" field
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := h.logger.WithFields(logging.Fields{"request_id": requestID})
	start := time.Now()

	if r.ContentLength > h.config.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, requestID, "uploaded file is too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, requestID, "uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, requestID, "a file must be uploaded in the \"file\" field")
		return
	}
	defer file.Close()

	ext, ok := h.config.allows(header.Filename)
	if !ok {
		writeError(w, http.StatusBadRequest, requestID, "unsupported file type; allowed: "+strings.Join(h.config.AllowedExtensions, ", "))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, requestID, "failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, requestID, "uploaded file is empty")
		return
	}

	pred, err := h.predictor.PredictBytes(r.Context(), data, ext)
	if err != nil {
		if errors.Is(err, inference.ErrInvalidFeatures) {
			logger.Warn("Rejected upload", logging.Fields{
				"filename": header.Filename,
				"error":    err.Error(),
			})
			writeError(w, http.StatusUnprocessableEntity, requestID, inference.InvalidFeaturesMessage)
			return
		}
		logger.Error(xerrors.New(err), "Prediction failed", logging.Fields{"filename": header.Filename})
		writeError(w, http.StatusInternalServerError, requestID, "An unexpected error occurred.")
		return
	}

	logger.Info("Prediction served", logging.Fields{
		"filename":    header.Filename,
		"label":       pred.Label,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, predictResponse{
		RequestID:     requestID,
		Label:         pred.Label,
		Confidence:    pred.Confidence,
		Probabilities: pred.Probabilities,
		Percentages:   pred.Percentages,
	})
}

// Serve runs the handler until ctx is cancelled, then shuts down gracefully
func Serve(ctx context.Context, h *Handler, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	cfg := h.config

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", logging.Fields{"addr": cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, requestID, msg string) {
	writeJSON(w, status, errorResponse{RequestID: requestID, Error: msg})
}
