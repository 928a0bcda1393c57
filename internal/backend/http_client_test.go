package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/models"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", 2*time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPClient_GetTrackingState(t *testing.T) {
	id := int64(42)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tracking", r.URL.Path)
		writeJSON(w, http.StatusOK, models.TrackingState{
			Status:     models.StatusActive,
			TrackingID: &id,
			Duration:   50,
			CurrentApp: "code",
			Version:    7,
		})
	})

	state, err := client.GetTrackingState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, state.Status)
	require.NotNil(t, state.TrackingID)
	assert.Equal(t, int64(42), *state.TrackingID)
	assert.Equal(t, int64(50), state.Duration)
	assert.Equal(t, uint64(7), state.Version)
}

func TestHTTPClient_GetTrackingState_PendingReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"standby","tracking_id":null,"duration":90,"awaiting_report":true,"pending_report_id":12,"version":3}`))
	})

	state, err := client.GetTrackingState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusStandby, state.Status)
	assert.True(t, state.AwaitingReport)
	require.NotNil(t, state.PendingReportID)
	assert.Equal(t, int64(12), *state.PendingReportID)
}

func TestHTTPClient_GetAppUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tracking/apps", r.URL.Path)
		_, _ = w.Write([]byte(`[{"name":"code","duration":120,"category":"productive"}]`))
	})

	records, err := client.GetAppUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []usage.Record{{Name: "code", DurationSeconds: 120, Category: usage.CategoryProductive}}, records)
}

func TestHTTPClient_StartTracking_SendsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tracking/start", r.URL.Path)
		var req models.StartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "study X", req.Plan)
		assert.Equal(t, "tok", req.Token)
		writeJSON(w, http.StatusOK, models.StartResult{Success: true, TrackingID: 9})
	})

	res, err := client.StartTracking(context.Background(), "study X", "tok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(9), res.TrackingID)
}

func TestHTTPClient_SubmitReport_NullObstacle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "done", raw["result"])
		assert.Nil(t, raw["obstacle"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.SubmitReport(context.Background(), "done", nil, "tok"))
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRejected  bool
		wantTransient bool
		wantMessage   string
	}{
		{"conflict is rejected", http.StatusConflict, `{"error":"cannot pause while standby"}`, true, false, "cannot pause while standby"},
		{"bad request plain text", http.StatusBadRequest, "plan is required", true, false, "plan is required"},
		{"server error is transient", http.StatusBadGateway, `{"error":"upstream down"}`, false, true, ""},
		{"rate limit is transient", http.StatusTooManyRequests, "", false, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := client.PauseTracking(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantRejected, apperrors.IsRejected(err))
			assert.Equal(t, tt.wantTransient, apperrors.IsTransient(err))
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, apperrors.UserMessage(err))
			}
		})
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewHTTPClient(url, time.Second, zap.NewNop())
	_, err := client.GetTrackingState(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestHTTPClient_ActivateToken(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, models.ActivationResult{Success: false, Message: "Token tidak valid"})
		})
		res, err := client.ActivateToken(context.Background(), "abc")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "Token tidak valid", res.Message)
	})

	t.Run("bad request becomes declined", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "token is required"})
		})
		res, err := client.ActivateToken(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "token is required", res.Message)
	})

	t.Run("accepted", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var req models.ActivateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "abc", req.Token)
			writeJSON(w, http.StatusOK, models.ActivationResult{Success: true, SubjectID: 5, DisplayName: "Ahmad"})
		})
		res, err := client.ActivateToken(context.Background(), "abc")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, int64(5), res.SubjectID)
	})
}
