package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd shows a job's current state
var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current state of a job",
	Long: `Show the current state of a conversion job.

Examples:
  rpp status 2f1f0c1e-9df3-4a9b-9a75-7b0d6f0f2a10`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/jobs/%s", serverURL, args[0])

	client := &http.Client{
		Timeout: 5 * time.Second,
	}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var j JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	printJob(j)
	return nil
}

func printJob(j JobResponse) {
	fmt.Printf("Job:     %s\n", j.ID)
	fmt.Printf("Status:  %s\n", j.Status)
	fmt.Printf("Percent: %d%%\n", j.Percent)
	if j.Message != "" {
		fmt.Printf("Message: %s\n", j.Message)
	}
	if j.Result != "" {
		fmt.Printf("Report:  %s/reports/%s\n", serverURL, j.Result)
	}
	if j.Error != "" {
		fmt.Printf("Error:   %s\n", j.Error)
	}
}
