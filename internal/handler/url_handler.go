package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"Mansoor88-6/pondok-tracker/internal/agent"
	"Mansoor88-6/pondok-tracker/internal/models"

	"go.uber.org/zap"
)

// URLUpdateRequest is sent by the browser extension when the active tab changes
type URLUpdateRequest struct {
	Application string `json:"application"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Timestamp   int64  `json:"timestamp"`
}

// URLRecorder stores URLs reported by the browser extension
type URLRecorder interface {
	Store(application, title, url string)
}

// URLHandler accepts active-tab URLs from the browser extension
type URLHandler struct {
	store  URLRecorder
	logger *zap.Logger
}

func NewURLHandler(store URLRecorder, logger *zap.Logger) *URLHandler {
	return &URLHandler{
		store:  store,
		logger: logger,
	}
}

// CORS allows the extension origin to call the agent
func (h *URLHandler) CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "3600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

func (h *URLHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req URLUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode URL update request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}

	switch {
	case req.Application == "" || req.URL == "":
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "application and url are required"})
		return
	case !agent.IsBrowser(req.Application):
		h.logger.Warn("Rejected URL update from non-browser application",
			zap.String("application", req.Application),
		)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "application is not a browser"})
		return
	case !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://"):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "url must be http or https"})
		return
	}

	h.store.Store(req.Application, req.Title, req.URL)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
