package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/inkweldlabs/repoprint/internal/filter"
)

// maxBaseNameLen keeps report file names manageable. Longer names are
// cut, not rejected.
const maxBaseNameLen = 64

// SubmitResponse is returned when a job is accepted.
type SubmitResponse struct {
	ID string `json:"id"`
}

// GitHubRequest is the request body for POST /api/jobs/github.
type GitHubRequest struct {
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Ref        string `json:"ref,omitempty"`
	Folders    string `json:"folders,omitempty"`
	Extensions string `json:"extensions,omitempty"`
}

// handleSubmitArchive accepts a multipart ZIP upload and starts a
// conversion. Form fields: archive (the file), folders and extensions
// (comma-separated exclusion lists), name (optional report name).
func (s *Server) handleSubmitArchive(c echo.Context) error {
	r := c.Request()
	r.Body = http.MaxBytesReader(c.Response(), r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("archive")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("archive exceeds the %d byte upload limit", s.config.MaxUploadBytes))
		}
		s.logger.Warn("invalid upload request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "archive file is required")
	}
	defer file.Close()

	rules := filter.NewRules(splitList(c.FormValue("folders")), splitList(c.FormValue("extensions")))
	baseName := reportBaseName(c.FormValue("name"), header.Filename)

	j := s.jobs.Create()
	dest := s.engine.UploadPath(j.ID)
	if err := spoolUpload(file, dest); err != nil {
		s.logger.Error("spooling upload failed", zap.String("job_id", j.ID), zap.Error(err))
		s.jobs.Fail(j.ID, "storing uploaded archive failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "storing uploaded archive failed")
	}

	s.logger.Info("upload accepted",
		zap.String("job_id", j.ID),
		zap.String("file", header.Filename),
		zap.Int64("bytes", header.Size),
		zap.String("name", baseName))

	go s.engine.Convert(s.baseCtx, j.ID, dest, baseName, rules)

	return c.JSON(http.StatusAccepted, SubmitResponse{ID: j.ID})
}

// handleSubmitGitHub starts a conversion of a GitHub repository.
func (s *Server) handleSubmitGitHub(c echo.Context) error {
	var req GitHubRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid github request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Owner == "" || req.Repo == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "owner and repo fields are required")
	}

	rules := filter.NewRules(splitList(req.Folders), splitList(req.Extensions))

	j := s.jobs.Create()
	s.logger.Info("github conversion accepted",
		zap.String("job_id", j.ID),
		zap.String("owner", req.Owner),
		zap.String("repo", req.Repo),
		zap.String("ref", req.Ref))

	go s.engine.ConvertGitHub(s.baseCtx, j.ID, req.Owner, req.Repo, req.Ref, rules)

	return c.JSON(http.StatusAccepted, SubmitResponse{ID: j.ID})
}

// handleJobStatus returns the job's current snapshot.
func (s *Server) handleJobStatus(c echo.Context) error {
	j, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return c.JSON(http.StatusOK, j)
}

// splitList parses a comma-separated form value into its non-empty
// elements.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// reportBaseName picks the report's base name: the explicit name
// field when given, otherwise the upload's file name without its
// extension. The result is reduced to a safe single path element.
func reportBaseName(name, uploadName string) string {
	if name == "" {
		base := filepath.Base(uploadName)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '-'
	}, name)
	name = strings.Trim(name, "-.")

	if len(name) > maxBaseNameLen {
		name = name[:maxBaseNameLen]
	}
	if name == "" {
		name = "report"
	}
	return name
}

// spoolUpload streams the uploaded archive to the scratch area.
func spoolUpload(src multipart.File, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating spool file: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("writing spool file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("writing spool file: %w", err)
	}
	return nil
}
