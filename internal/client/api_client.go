package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Mansoor88-6/pondok-tracker/internal/models"

	"go.uber.org/zap"
)

const defaultActivationFailure = "invalid token"

// APIClient handles communication with the remote tracking API
type APIClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// DeviceInfo identifies this installation to the remote API on activation
type DeviceInfo struct {
	DeviceID     string
	DeviceName   string
	OS           string
	OSVersion    string
	AgentVersion string
}

// ActivateResult is the outcome of an activation request.
// Message is set when Success is false.
type ActivateResult struct {
	Success   bool
	SubjectID int64
	Name      string
	Message   string
}

// apiResponse is the envelope used by every remote endpoint
type apiResponse struct {
	Success bool            `json:"success"`
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type activateData struct {
	SantriID int64  `json:"santri_id"`
	Nama     string `json:"nama"`
}

type startData struct {
	TrackingID int64 `json:"tracking_id"`
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Activate exchanges a one-time token for the student's identity.
// A declined token is not an error: Success is false and Message carries
// the reason.
func (c *APIClient) Activate(ctx context.Context, token string, info DeviceInfo) (*ActivateResult, error) {
	reqBody := map[string]string{
		"token":         token,
		"device_id":     info.DeviceID,
		"device_name":   info.DeviceName,
		"os":            info.OS,
		"os_version":    info.OSVersion,
		"agent_version": info.AgentVersion,
	}

	resp, err := c.post(ctx, "/tracking/agent/activate", reqBody)
	if err != nil {
		if IsDeclined(err) {
			return &ActivateResult{Success: false, Message: messageOr(resp, defaultActivationFailure)}, nil
		}
		return nil, err
	}

	if resp.Success && len(resp.Data) > 0 {
		var data activateData
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse activation data: %w", err)
		}
		return &ActivateResult{
			Success:   true,
			SubjectID: data.SantriID,
			Name:      data.Nama,
		}, nil
	}

	return &ActivateResult{Success: false, Message: messageOr(resp, defaultActivationFailure)}, nil
}

// Heartbeat tells the remote API this device is still running
func (c *APIClient) Heartbeat(ctx context.Context, token string) error {
	_, err := c.post(ctx, "/tracking/agent/heartbeat", map[string]string{"token": token})
	return err
}

// StartTracking opens a remote session tagged with the study plan and
// returns its tracking id
func (c *APIClient) StartTracking(ctx context.Context, token, plan string) (int64, error) {
	resp, err := c.post(ctx, "/tracking/agent/start", map[string]string{
		"token":           token,
		"rencana_belajar": plan,
	})
	if err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, &BadRequestError{Message: messageOr(resp, "session could not be started"), StatusCode: http.StatusOK}
	}

	var data startData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("failed to parse start data: %w", err)
	}
	return data.TrackingID, nil
}

// EndTracking closes the remote session
func (c *APIClient) EndTracking(ctx context.Context, token string, trackingID int64) error {
	_, err := c.post(ctx, "/tracking/agent/end", map[string]interface{}{
		"token":       token,
		"tracking_id": trackingID,
	})
	return err
}

// SubmitReport attaches the end-of-session report to a closed session
func (c *APIClient) SubmitReport(ctx context.Context, token string, trackingID int64, result string, obstacle *string) error {
	_, err := c.post(ctx, "/tracking/agent/report", map[string]interface{}{
		"token":       token,
		"tracking_id": trackingID,
		"hasil":       result,
		"kendala":     obstacle,
	})
	return err
}

// SyncActivities sends a batch of foreground-application activities
func (c *APIClient) SyncActivities(ctx context.Context, req models.SyncRequest) error {
	if len(req.Activities) == 0 {
		return fmt.Errorf("cannot send empty batch")
	}

	startTime := time.Now()
	_, err := c.post(ctx, "/tracking/agent/sync", req)
	if err != nil {
		return err
	}

	c.logger.Info("Batch sent successfully",
		zap.String("batch_id", req.BatchID),
		zap.Int("activity_count", len(req.Activities)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// HealthCheck checks if the remote API is reachable
func (c *APIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// post sends a JSON request and decodes the response envelope. On a
// non-2xx status the parsed envelope (if any) is returned alongside the
// typed error so callers can read the message.
func (c *APIClient) post(ctx context.Context, path string, body interface{}) (*apiResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Request to remote API failed",
			zap.String("path", path),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiResponse
	parseErr := json.Unmarshal(respBody, &envelope)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if parseErr != nil && len(bytes.TrimSpace(respBody)) > 0 {
			return nil, fmt.Errorf("failed to parse response: %w", parseErr)
		}
		c.logger.Debug("Remote API request succeeded",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return &envelope, nil
	}

	var parsed *apiResponse
	if parseErr == nil {
		parsed = &envelope
	}

	errMsg := fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(respBody))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Error("Authentication failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)),
		)
		return parsed, &AuthError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusTooManyRequests:
		c.logger.Warn("Rate limited",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
		)
		return parsed, &RateLimitError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		c.logger.Warn("Invalid request",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)),
		)
		return parsed, &BadRequestError{Message: messageOr(parsed, errMsg), StatusCode: resp.StatusCode}
	default:
		c.logger.Error("Backend error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)),
		)
		return parsed, &BackendError{Message: errMsg, StatusCode: resp.StatusCode}
	}
}

func messageOr(resp *apiResponse, fallback string) string {
	if resp != nil && resp.Message != nil && strings.TrimSpace(*resp.Message) != "" {
		return *resp.Message
	}
	return fallback
}

// Error types
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return e.Message
}

type RateLimitError struct {
	Message    string
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// BadRequestError means the remote API declined the request. Message is
// the API's own message when it sent one.
type BadRequestError struct {
	Message    string
	StatusCode int
}

func (e *BadRequestError) Error() string {
	return e.Message
}

type BackendError struct {
	Message    string
	StatusCode int
}

func (e *BackendError) Error() string {
	return e.Message
}

// IsDeclined reports whether err means the remote API refused the request
// (as opposed to being unreachable or failing)
func IsDeclined(err error) bool {
	var badReq *BadRequestError
	var authErr *AuthError
	return errors.As(err, &badReq) || errors.As(err, &authErr)
}
