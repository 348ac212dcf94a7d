package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckTimeout int
	healthcheckURL     string
)

func newHealthcheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Calls /readyz and exits non-zero unless the server reports "healthy".

Used by the container HEALTHCHECK.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := healthcheckURL
			if url == "" {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = "8000"
				}
				url = fmt.Sprintf("http://localhost:%s/readyz", port)
			}

			result := checkHealth(cmd.Context(), url, time.Duration(healthcheckTimeout)*time.Second)
			if result.Error != "" {
				return fmt.Errorf("health check failed: %s", result.Error)
			}
			if !result.IsHealthy {
				return fmt.Errorf("server status: %s", result.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%dms)\n", result.Status, result.LatencyMs)
			return nil
		},
	}
	cmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	cmd.Flags().StringVar(&healthcheckURL, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/readyz)")
	return cmd
}

// HealthResponse is the subset of the /readyz body the command reads.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResult struct {
	Status    string
	IsHealthy bool
	Error     string
	LatencyMs int64
}

func checkHealth(ctx context.Context, url string, timeout time.Duration) healthResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthResult{Error: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return healthResult{Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	result := healthResult{LatencyMs: time.Since(start).Milliseconds()}

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		result.Error = fmt.Sprintf("invalid response (status %d): %v", resp.StatusCode, err)
		return result
	}
	result.Status = body.Status
	result.IsHealthy = resp.StatusCode == http.StatusOK && body.Status == "healthy"
	return result
}
