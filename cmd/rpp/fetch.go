package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	fetchRef        string
	fetchFolders    string
	fetchExtensions string
	fetchWatch      bool
)

// GitHubSubmitRequest matches internal/http/jobs.go GitHubRequest
type GitHubSubmitRequest struct {
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Ref        string `json:"ref,omitempty"`
	Folders    string `json:"folders,omitempty"`
	Extensions string `json:"extensions,omitempty"`
}

// fetchCmd converts a GitHub repository
var fetchCmd = &cobra.Command{
	Use:   "fetch <owner/repo>",
	Short: "Convert a GitHub repository",
	Long: `Ask the repoprint server to download a GitHub repository and
convert it into a PDF report.

Examples:
  # Convert the default branch
  rpp fetch golang/go

  # Convert a tag or branch
  rpp fetch golang/go --ref go1.22.0

  # Exclude folders and wait for the report
  rpp fetch acme/widgets --folders vendor,testdata --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchRef, "ref", "", "branch, tag, or commit (defaults to the default branch)")
	fetchCmd.Flags().StringVar(&fetchFolders, "folders", "", "comma-separated folder names to exclude")
	fetchCmd.Flags().StringVar(&fetchExtensions, "extensions", "", "comma-separated file extensions to exclude")
	fetchCmd.Flags().BoolVar(&fetchWatch, "watch", false, "follow the job until it finishes")
}

// runFetch handles the fetch command
func runFetch(cmd *cobra.Command, args []string) error {
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("repository must be given as owner/repo, got %q", args[0])
	}

	reqJSON, err := json.Marshal(GitHubSubmitRequest{
		Owner:      owner,
		Repo:       repo,
		Ref:        fetchRef,
		Folders:    fetchFolders,
		Extensions: fetchExtensions,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/jobs/github", serverURL)
	req, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return statusError(resp)
	}

	var submitted SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job submitted: %s\n", submitted.ID)
	if fetchWatch {
		return followJob(submitted.ID)
	}
	fmt.Printf("Follow with: rpp watch %s\n", submitted.ID)
	return nil
}
