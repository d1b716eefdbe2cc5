package http

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkweldlabs/repoprint/internal/job"
)

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename string, archive []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("archive", filename)
	require.NoError(t, err)
	_, err = fw.Write(archive)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func waitTerminal(t *testing.T, server *Server, id string) job.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		j, ok := server.jobs.Get(id)
		return ok && j.Status.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	j, ok := server.jobs.Get(id)
	require.True(t, ok)
	return j
}

func TestSubmitArchive(t *testing.T) {
	server := setupTestServer(t, nil)

	archive := zipBytes(t, map[string][]byte{
		"src/a.js":            []byte("console.log('hi');\n"),
		"node_modules/x/y.js": []byte("skip\n"),
	})
	body, contentType := multipartUpload(t, "myproject.zip", archive, map[string]string{
		"folders": "node_modules, .git",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)

	finished := waitTerminal(t, server, resp.ID)
	require.Equal(t, job.StatusCompleted, finished.Status, "error: %s", finished.Error)
	assert.True(t, strings.HasPrefix(finished.Result, "myproject-"))

	// The published report is downloadable through the static route.
	dl := httptest.NewRequest(http.MethodGet, "/reports/"+finished.Result, nil)
	dlRec := httptest.NewRecorder()
	server.echo.ServeHTTP(dlRec, dl)
	assert.Equal(t, http.StatusOK, dlRec.Code)
	assert.True(t, strings.HasPrefix(dlRec.Body.String(), "%PDF-"))
}

func TestSubmitArchiveMissingFile(t *testing.T) {
	server := setupTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("folders", "vendor"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitArchiveTooLarge(t *testing.T) {
	server := setupTestServer(t, &Config{
		Host:           "localhost",
		Port:           8640,
		MaxUploadBytes: 256,
		RatePerSecond:  100,
		RateBurst:      100,
	})

	body, contentType := multipartUpload(t, "big.zip", bytes.Repeat([]byte{0x5a}, 4096), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSubmitGitHubValidation(t *testing.T) {
	server := setupTestServer(t, nil)

	t.Run("missing owner", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs/github",
			strings.NewReader(`{"repo":"widgets"}`))
		req.Header.Set(echo.HeaderContentType, "application/json")
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs/github",
			strings.NewReader(`{not json`))
		req.Header.Set(echo.HeaderContentType, "application/json")
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitGitHubWithoutFetcher(t *testing.T) {
	server := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/github",
		strings.NewReader(`{"owner":"acme","repo":"widgets"}`))
	req.Header.Set(echo.HeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	finished := waitTerminal(t, server, resp.ID)
	assert.Equal(t, job.StatusFailed, finished.Status)
	assert.Equal(t, "GitHub fetching is not configured", finished.Error)
}

func TestJobStatus(t *testing.T) {
	server := setupTestServer(t, nil)

	t.Run("known job", func(t *testing.T) {
		created := server.jobs.Create()
		server.jobs.SetProgress(created.ID, 42, "Rendering file 3 of 7")

		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID, nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got job.Job
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, job.StatusProcessing, got.Status)
		assert.Equal(t, 42, got.Percent)
	})

	t.Run("unknown job", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"node_modules", []string{"node_modules"}},
		{"node_modules,.git", []string{"node_modules", ".git"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.in))
		})
	}
}

func TestReportBaseName(t *testing.T) {
	tests := []struct {
		name       string
		nameField  string
		uploadName string
		want       string
	}{
		{"from upload", "", "myproject.zip", "myproject"},
		{"explicit name wins", "custom", "myproject.zip", "custom"},
		{"path stripped", "", "../../evil.zip", "evil"},
		{"spaces become dashes", "my cool repo", "", "my-cool-repo"},
		{"hidden prefix trimmed", "", ".hidden.zip", "hidden"},
		{"empty falls back", "", "....zip", "report"},
		{"long name cut", strings.Repeat("a", 100), "", strings.Repeat("a", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reportBaseName(tt.nameField, tt.uploadName))
		})
	}
}
