package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// HTTPClient talks to the agent's local JSON API
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Backend = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the agent listening at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) CheckActivation(ctx context.Context) (*models.ActivationCheck, error) {
	var out models.ActivationCheck
	if err := c.do(ctx, "check activation", http.MethodGet, "/activation", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ActivateToken(ctx context.Context, token string) (*models.ActivationResult, error) {
	var out models.ActivationResult
	err := c.do(ctx, "activate token", http.MethodPost, "/activation", models.ActivateRequest{Token: token}, &out)
	if err != nil {
		// The agent answers a declined token with success=false and a message;
		// a 4xx here is reported the same way.
		if apperrors.IsRejected(err) {
			return &models.ActivationResult{Success: false, Message: apperrors.UserMessage(err)}, nil
		}
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetTrackingState(ctx context.Context) (*models.TrackingState, error) {
	var out models.TrackingState
	if err := c.do(ctx, "get tracking state", http.MethodGet, "/tracking", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetAppUsage(ctx context.Context) ([]usage.Record, error) {
	var out []usage.Record
	if err := c.do(ctx, "get app usage", http.MethodGet, "/tracking/apps", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) StartTracking(ctx context.Context, plan, token string) (*models.StartResult, error) {
	var out models.StartResult
	err := c.do(ctx, "start tracking", http.MethodPost, "/tracking/start", models.StartRequest{Plan: plan, Token: token}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) PauseTracking(ctx context.Context) error {
	return c.do(ctx, "pause tracking", http.MethodPost, "/tracking/pause", nil, nil)
}

func (c *HTTPClient) ResumeTracking(ctx context.Context) error {
	return c.do(ctx, "resume tracking", http.MethodPost, "/tracking/resume", nil, nil)
}

func (c *HTTPClient) EndTracking(ctx context.Context) error {
	return c.do(ctx, "end tracking", http.MethodPost, "/tracking/end", nil, nil)
}

func (c *HTTPClient) SubmitReport(ctx context.Context, result string, obstacle *string, token string) error {
	body := models.ReportRequest{Result: result, Obstacle: obstacle, Token: token}
	return c.do(ctx, "submit report", http.MethodPost, "/tracking/report", body, nil)
}

// do sends one request and decodes the JSON response into out (if non-nil).
// Status codes are mapped onto the apperrors taxonomy.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Debug("Agent request failed",
			zap.String("op", op),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return apperrors.NewTransient(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTransient(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperrors.NewTransient(op, fmt.Errorf("failed to parse response: %w", err))
		}
		return nil
	}

	message := errorMessage(respBody, resp.StatusCode)
	c.logger.Debug("Agent returned error",
		zap.String("op", op),
		zap.Int("status_code", resp.StatusCode),
		zap.String("message", message),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperrors.NewTransient(op, fmt.Errorf("agent returned status %d: %s", resp.StatusCode, message))
	default:
		return apperrors.NewRejected(message)
	}
}

func errorMessage(body []byte, statusCode int) string {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return er.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(statusCode)
}
