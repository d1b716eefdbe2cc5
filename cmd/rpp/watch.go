package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// watchCmd follows a job's event stream until it finishes
var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Follow a job until it finishes",
	Long: `Follow a job's progress events until the job completes or fails.

Examples:
  rpp watch 2f1f0c1e-9df3-4a9b-9a75-7b0d6f0f2a10`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

// runWatch handles the watch command
func runWatch(cmd *cobra.Command, args []string) error {
	return followJob(args[0])
}

// followJob consumes the job's SSE stream, printing progress changes,
// and returns once the job is terminal. A failed job becomes an error.
func followJob(id string) error {
	url := fmt.Sprintf("%s/api/jobs/%s/events", serverURL, id)

	// No client timeout: the stream stays open for the whole job.
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var event, lastLine string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")

		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch event {
			case "progress":
				var j JobResponse
				if err := json.Unmarshal([]byte(data), &j); err != nil {
					continue
				}
				// The server re-emits unchanged snapshots as a
				// heartbeat; only print actual movement.
				if progress := fmt.Sprintf("%3d%% %s", j.Percent, j.Message); progress != lastLine {
					fmt.Println(progress)
					lastLine = progress
				}

			case "completed":
				var j JobResponse
				if err := json.Unmarshal([]byte(data), &j); err != nil {
					return fmt.Errorf("failed to decode completion event: %w", err)
				}
				fmt.Printf("Completed.\nReport: %s/reports/%s\n", serverURL, j.Result)
				return nil

			case "failed":
				var j JobResponse
				if err := json.Unmarshal([]byte(data), &j); err != nil {
					return fmt.Errorf("failed to decode failure event: %w", err)
				}
				return fmt.Errorf("job failed: %s", j.Error)

			case "error":
				var e struct {
					Error string `json:"error"`
				}
				if err := json.Unmarshal([]byte(data), &e); err != nil {
					return fmt.Errorf("failed to decode error event: %w", err)
				}
				return fmt.Errorf("%s", e.Error)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("event stream interrupted: %w", err)
	}
	return fmt.Errorf("event stream ended before the job finished")
}
