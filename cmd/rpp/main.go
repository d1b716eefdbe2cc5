// Package main implements the rpp CLI for submitting archives to a
// repoprint server and following their conversion.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the repoprint HTTP server
	serverURL string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rpp",
	Short: "CLI for the repoprint server",
	Long: `rpp is a command-line interface for the repoprint server.
It submits ZIP archives or GitHub repositories for conversion into
PDF reports and follows job progress.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8640", "repoprint server URL")
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
}

// SubmitResponse matches internal/http/jobs.go SubmitResponse
type SubmitResponse struct {
	ID string `json:"id"`
}

// JobResponse matches internal/job Job
type JobResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthResponse matches internal/http/server.go HealthResponse
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Jobs    map[string]int `json:"jobs"`
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check repoprint server health",
	Long: `Check the health status of the repoprint server.

Examples:
  # Check health
  rpp health

  # Check health on a different server
  rpp health --server http://reports.internal:8640`,
	RunE: runHealth,
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server:  %s\n", serverURL)
	fmt.Printf("Status:  %s\n", health.Status)
	fmt.Printf("Version: %s\n", health.Version)
	if len(health.Jobs) > 0 {
		fmt.Printf("Jobs:\n")
		for _, status := range []string{"pending", "processing", "completed", "failed"} {
			if n, ok := health.Jobs[status]; ok {
				fmt.Printf("  %-10s %d\n", status, n)
			}
		}
	}
	return nil
}

// statusError turns a non-OK response into an error carrying the
// server's message.
func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
