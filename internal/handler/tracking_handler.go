package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"Mansoor88-6/pondok-tracker/internal/agent"
	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"go.uber.org/zap"
)

// Agent is the tracking engine as seen by the HTTP API
type Agent interface {
	CheckActivation() *models.ActivationCheck
	Activate(ctx context.Context, token string) (*models.ActivationResult, error)
	State() models.TrackingState
	AppUsage() []usage.Record
	StartTracking(ctx context.Context, plan, token string) (*models.StartResult, error)
	PauseTracking() error
	ResumeTracking() error
	EndTracking(ctx context.Context) error
	SubmitReport(ctx context.Context, result string, obstacle *string, token string) error
	Health() agent.Health
}

type TrackingHandler struct {
	agent  Agent
	logger *zap.Logger
}

func NewTrackingHandler(a Agent, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{
		agent:  a,
		logger: logger,
	}
}

func (h *TrackingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		agent.Health
	}{Status: "ok", Health: h.agent.Health()})
}

func (h *TrackingHandler) CheckActivation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agent.CheckActivation())
}

// Activate answers a declined token with 200 and success=false so the
// message reaches the user as-is
func (h *TrackingHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req models.ActivateRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.agent.Activate(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TrackingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agent.State())
}

func (h *TrackingHandler) GetAppUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agent.AppUsage())
}

func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.agent.StartTracking(r.Context(), req.Plan, req.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TrackingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.agent.PauseTracking())
}

func (h *TrackingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.agent.ResumeTracking())
}

func (h *TrackingHandler) End(w http.ResponseWriter, r *http.Request) {
	h.ack(w, h.agent.EndTracking(r.Context()))
}

func (h *TrackingHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.ack(w, h.agent.SubmitReport(r.Context(), req.Result, req.Obstacle, req.Token))
}

func (h *TrackingHandler) ack(w http.ResponseWriter, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TrackingHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("Failed to decode request", zap.Error(err), zap.String("path", r.URL.Path))
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeError maps the error taxonomy onto HTTP status codes
func (h *TrackingHandler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		writeJSON(w, status, models.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, models.ErrorResponse{Error: apperrors.UserMessage(err)})
}

// StatusFor returns the HTTP status for an engine error
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput):
		return http.StatusBadRequest
	case apperrors.IsIllegalTransition(err):
		return http.StatusConflict
	case apperrors.IsRejected(err):
		return http.StatusUnprocessableEntity
	case apperrors.IsTransient(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
