package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobEventsUnknownJob(t *testing.T) {
	server := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope/events", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "job not found")
}

func TestJobEventsCompletedJob(t *testing.T) {
	server := setupTestServer(t, nil)
	created := server.jobs.Create()
	server.jobs.Complete(created.ID, "demo-1a2b3c4d.pdf")

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID+"/events", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: completed\n")
	assert.Contains(t, body, "demo-1a2b3c4d.pdf")
	// Terminal event ends the stream immediately.
	assert.NotContains(t, body, "event: progress\n")
}

func TestJobEventsFailedJob(t *testing.T) {
	server := setupTestServer(t, nil)
	created := server.jobs.Create()
	server.jobs.Fail(created.ID, "archive is not a valid ZIP file")

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID+"/events", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: failed\n")
	assert.Contains(t, body, "archive is not a valid ZIP file")
}

func TestJobEventsStreamsUntilDisconnect(t *testing.T) {
	server := setupTestServer(t, nil)
	created := server.jobs.Create()
	server.jobs.SetProgress(created.ID, 30, "Rendering file 2 of 6")

	// The client going away is the only thing that ends a stream for
	// a job that never finishes.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID+"/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: progress\n")
	assert.Contains(t, body, `"percent":30`)
	assert.NotContains(t, body, "event: completed\n")
}
