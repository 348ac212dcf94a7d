package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  interface{}
		expectHealthy bool
		expectError   bool
		expectStatus  string
	}{
		{
			name:       "healthy server",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "healthy",
				Checks: map[string]CheckResult{"database": {Status: "pass"}},
			},
			expectHealthy: true,
			expectStatus:  "healthy",
		},
		{
			name:       "degraded server",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "degraded",
				Checks: map[string]CheckResult{
					"database":  {Status: "pass"},
					"job_queue": {Status: "warn"},
				},
			},
			expectStatus: "degraded",
		},
		{
			name:         "unhealthy server (503)",
			statusCode:   http.StatusServiceUnavailable,
			responseBody: HealthResponse{Status: "unhealthy"},
			expectStatus: "unhealthy",
		},
		{
			name:         "invalid response",
			statusCode:   http.StatusOK,
			responseBody: "not json",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if str, ok := tt.responseBody.(string); ok {
					fmt.Fprint(w, str)
				} else {
					_ = json.NewEncoder(w).Encode(tt.responseBody)
				}
			}))
			defer server.Close()

			result := checkHealth(context.Background(), server.URL, 5*time.Second)

			if result.IsHealthy != tt.expectHealthy {
				t.Errorf("expected IsHealthy=%v, got %v", tt.expectHealthy, result.IsHealthy)
			}
			if tt.expectError && result.Error == "" {
				t.Error("expected error, got none")
			}
			if !tt.expectError && result.Status != tt.expectStatus {
				t.Errorf("expected status=%s, got %s", tt.expectStatus, result.Status)
			}
			if result.LatencyMs < 0 {
				t.Error("expected non-negative latency")
			}
		})
	}
}

func TestCheckHealthTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	result := checkHealth(context.Background(), server.URL, 100*time.Millisecond)

	if result.Error == "" {
		t.Error("expected timeout error, got none")
	}
	if result.IsHealthy {
		t.Error("expected unhealthy result on timeout")
	}
}

func TestCheckHealthUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	result := checkHealth(context.Background(), url, time.Second)
	if result.Error == "" {
		t.Error("expected connection error, got none")
	}
}
