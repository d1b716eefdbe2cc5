package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/inkweldlabs/repoprint/internal/job"
)

// handleJobEvents streams job progress via Server-Sent Events.
//
// The stream emits a snapshot immediately and then every second until
// the job reaches a terminal state or the client disconnects.
//
// SSE event types:
//   - progress: current job snapshot
//   - completed: job finished, data carries the report name
//   - failed: job failed, data carries the cause
//   - error: the job id is unknown
//
// Example:
//
//	GET /api/jobs/{id}/events
//
//	event: progress
//	data: {"id":"j-1","status":"processing","percent":42,...}
//
//	event: completed
//	data: {"id":"j-1","status":"completed","percent":100,"result":"demo-1a2b3c4d.pdf",...}
func (s *Server) handleJobEvents(c echo.Context) error {
	id := c.Param("id")

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Response().WriteHeader(http.StatusOK)

	j, ok := s.jobs.Get(id)
	if !ok {
		writeEvent(c, "error", map[string]string{"error": "job not found"})
		return nil
	}
	if done := emitSnapshot(c, j); done {
		return nil
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-ticker.C:
			j, ok := s.jobs.Get(id)
			if !ok {
				// Swept by retention mid-stream.
				writeEvent(c, "error", map[string]string{"error": "job not found"})
				return nil
			}
			if done := emitSnapshot(c, j); done {
				return nil
			}
		}
	}
}

// emitSnapshot sends the job as a progress event, or as the terminal
// event that ends the stream. Reports whether the stream is done.
func emitSnapshot(c echo.Context, j job.Job) bool {
	if j.Status.Terminal() {
		writeEvent(c, string(j.Status), j)
		return true
	}
	writeEvent(c, "progress", j)
	return false
}

func writeEvent(c echo.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, data)
	c.Response().Flush()
}
