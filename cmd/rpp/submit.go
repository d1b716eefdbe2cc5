package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	submitFolders    string
	submitExtensions string
	submitName       string
	submitWatch      bool
)

// submitCmd uploads a ZIP archive for conversion
var submitCmd = &cobra.Command{
	Use:   "submit <archive.zip>",
	Short: "Submit a ZIP archive for conversion",
	Long: `Submit a ZIP archive to the repoprint server for conversion
into a PDF report.

Examples:
  # Convert an archive
  rpp submit project.zip

  # Exclude folders and extensions
  rpp submit project.zip --folders node_modules,.git --extensions .png,.lock

  # Name the report and wait for it
  rpp submit project.zip --name sprint-review --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitFolders, "folders", "", "comma-separated folder names to exclude")
	submitCmd.Flags().StringVar(&submitExtensions, "extensions", "", "comma-separated file extensions to exclude")
	submitCmd.Flags().StringVar(&submitName, "name", "", "report name (defaults to the archive's name)")
	submitCmd.Flags().BoolVar(&submitWatch, "watch", false, "follow the job until it finishes")
}

// runSubmit handles the submit command
func runSubmit(cmd *cobra.Command, args []string) error {
	archive, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("archive", filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(fw, archive); err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	for field, value := range map[string]string{
		"folders":    submitFolders,
		"extensions": submitExtensions,
		"name":       submitName,
	} {
		if value == "" {
			continue
		}
		if err := mw.WriteField(field, value); err != nil {
			return fmt.Errorf("failed to build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	url := fmt.Sprintf("%s/api/jobs", serverURL)
	req, err := http.NewRequest("POST", url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{
		Timeout: 5 * time.Minute,
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
	if submitWatch {
		return followJob(submitted.ID)
	}
	fmt.Printf("Follow with: rpp watch %s\n", submitted.ID)
	return nil
}
