package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/vidgrab/internal/classifier"
	"github.com/iconidentify/vidgrab/internal/domain"
	"github.com/iconidentify/vidgrab/internal/retry"
	"github.com/iconidentify/vidgrab/internal/service"
)

// MediaService is the part of the media service the HTTP layer uses.
type MediaService interface {
	Classify(input string) classifier.Classification
	ListFormats(ctx context.Context, input string, onRetry retry.NotifyFunc) (*domain.Catalog, error)
	Download(ctx context.Context, req service.DownloadRequest) (*service.Ticket, error)
	Collect(ctx context.Context, token string) (*domain.DownloadResult, error)
}

// MediaHandler handles the classify, format and download endpoints.
type MediaHandler struct {
	media  MediaService
	logger *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(media MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		media:  media,
		logger: logger,
	}
}

// URLRequest is the body of classify and formats requests.
type URLRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// RetryNotice is sent as an SSE "retry" event.
type RetryNotice struct {
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	Delay       string `json:"delay"`
	Message     string `json:"message"`
}

// Classify handles POST /api/v1/classify.
func (h *MediaHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	h.writeJSON(w, http.StatusOK, h.media.Classify(req.URL))
}

// Formats handles POST /api/v1/formats.
func (h *MediaHandler) Formats(w http.ResponseWriter, r *http.Request) {
	var req URLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}

	cat, err := h.media.ListFormats(r.Context(), req.URL, nil)
	if err != nil {
		status, kind := classifyError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("format listing failed", "url", req.URL, "error", err)
		}
		h.writeError(w, status, userMessage("Error fetching video information", err), kind)
		return
	}

	h.writeJSON(w, http.StatusOK, cat)
}

// Stream handles GET /api/v1/downloads/stream?url=&format_id=
// The download runs for the lifetime of the request and reports through
// Server-Sent Events: "retry", "progress", then "complete" or "error".
func (h *MediaHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported", "internal")
		return
	}

	q := r.URL.Query()
	url, formatID := q.Get("url"), q.Get("format_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Progress and retry callbacks fire on extractor goroutines.
	var mu sync.Mutex
	send := func(event string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			h.logger.Warn("failed to serialize stream event", "event", event, "error", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
		flusher.Flush()
	}

	ticket, err := h.media.Download(r.Context(), service.DownloadRequest{
		URL:      url,
		FormatID: formatID,
		Progress: func(p domain.Progress) { send("progress", p) },
		OnRetry: func(attempt, maxAttempts int, err error, delay time.Duration) {
			send("retry", RetryNotice{
				Attempt:     attempt,
				MaxAttempts: maxAttempts,
				Delay:       delay.String(),
				Message:     fmt.Sprintf("Attempt %d failed. Retrying in %s...", attempt, delay),
			})
		},
	})
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Info("download stream closed by client", "url", url)
			return
		}
		_, kind := classifyError(err)
		send("error", ErrorResponse{Error: userMessage("Error during download", err), Kind: kind})
		return
	}

	send("complete", ticket)
}

// File handles GET /api/v1/downloads/{token}
// Each token can be collected once.
func (h *MediaHandler) File(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	result, err := h.media.Collect(r.Context(), token)
	if err != nil {
		status, kind := classifyError(err)
		h.writeError(w, status, userMessage("Download unavailable", err), kind)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	w.Header().Set("Content-Length", fmt.Sprint(result.Size()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Content); err != nil {
		h.logger.Warn("failed to write download", "filename", result.Filename, "error", err)
	}
}

// classifyError maps a service error to an HTTP status and a short kind
// the UI can switch on.
func classifyError(err error) (int, string) {
	var exhausted *retry.ExhaustedError
	switch {
	case errors.Is(err, domain.ErrEmptyURL):
		return http.StatusBadRequest, "empty_url"
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url"
	case errors.Is(err, domain.ErrFormatRequired):
		return http.StatusBadRequest, "format_required"
	case errors.Is(err, domain.ErrSignInRequired):
		return http.StatusForbidden, "sign_in_required"
	case errors.Is(err, domain.ErrPrivateContent):
		return http.StatusForbidden, "private"
	case errors.Is(err, domain.ErrDeliveryNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.As(err, &exhausted):
		return http.StatusBadGateway, "retries_exhausted"
	default:
		return http.StatusBadGateway, "upstream"
	}
}

// userMessage renders the text shown to the user for err.
func userMessage(prefix string, err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyURL):
		return "Please enter a URL."
	case errors.Is(err, domain.ErrInvalidURL):
		return "Invalid URL. Please enter a valid YouTube or Instagram URL."
	case errors.Is(err, domain.ErrFormatRequired):
		return "Please select a format."
	case errors.Is(err, domain.ErrDeliveryNotFound):
		return "This download has expired or was already collected."
	case domain.IsRestricted(err):
		return "This content requires sign-in or is private. Please try another video."
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Sprintf("%s after %d attempts: %v", prefix, exhausted.Attempts, exhausted.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func (h *MediaHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, status int, message, kind string) {
	h.writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}
