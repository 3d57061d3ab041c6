package controllers

import (
	"fmt"

	"github.com/shashiranjanraj/faultline/app/models"
	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/sse"
)

var exportContentTypes = map[string]string{
	services.FormatJSON: "application/json",
	services.FormatCSV:  "text/csv",
}

type ExportController struct {
	exports *services.ExportService
}

func NewExportController(exports *services.ExportService) *ExportController {
	return &ExportController{exports: exports}
}

// Store schedules an export and answers 202 with the pending job.
func (ec *ExportController) Store(c *ctx.Context) {
	var in services.ExportInput
	if !c.BindJSON(&in) {
		return
	}

	job, err := ec.exports.Start(c.Context(), in)
	if err != nil {
		fail(c, err, "Export not found")
		return
	}
	c.Accepted(job)
}

// Show returns one job, its file with ?download=true, or every job when no
// id is given.
func (ec *ExportController) Show(c *ctx.Context) {
	id := c.Query("id")
	if id == "" {
		jobs, err := ec.exports.List(c.Context())
		if err != nil {
			fail(c, err, "Export not found")
			return
		}
		c.SuccessWithMeta(jobs, count{Count: len(jobs)})
		return
	}

	if !c.QueryBool("download") {
		job, err := ec.exports.Get(c.Context(), id)
		if err != nil {
			fail(c, err, "Export not found")
			return
		}
		c.Success(job)
		return
	}

	rc, job, err := ec.exports.Open(c.Context(), id)
	if err != nil {
		fail(c, err, "Export not found")
		return
	}
	defer rc.Close()

	name := fmt.Sprintf("%s-%s.%s", job.Type, job.ID, job.Format)
	if err := c.Attachment(name, exportContentTypes[job.Format], rc); err != nil {
		logger.WithCtx(c.Context()).Warn("export download interrupted", "export_id", id, "error", err)
	}
}

// Destroy cancels a job if it is still running and removes it.
func (ec *ExportController) Destroy(c *ctx.Context) {
	id, ok := required(c, "id")
	if !ok {
		return
	}

	cancelled, err := ec.exports.Cancel(c.Context(), id)
	if err != nil {
		fail(c, err, "Export not found")
		return
	}
	c.Success(map[string]any{"id": id, "cancelled": cancelled})
}

// Events streams "progress" events while the job runs and one "job" event
// with the final record, then closes.
func (ec *ExportController) Events(c *ctx.Context) {
	id := c.Param("id")
	if _, err := ec.exports.Get(c.Context(), id); err != nil {
		fail(c, err, "Export not found")
		return
	}

	updates, settled, stop, watching := ec.exports.Watch(id)
	if watching {
		defer stop()
	}

	stream, err := sse.New(c.W, c.R)
	if err != nil {
		c.ServerError(err)
		return
	}

	if watching {
	watch:
		for {
			select {
			case p, more := <-updates:
				if !more {
					break watch
				}
				if stream.Send("progress", p) != nil {
					return
				}
			case <-stream.Done():
				return
			}
		}
		select {
		case <-settled:
		case <-stream.Done():
			return
		}
	}

	job, err := ec.exports.Get(c.Context(), id)
	if err != nil {
		// Cancelled and removed while we watched.
		job = models.ExportJob{ID: id, Status: models.ExportCancelled}
	}
	if err := stream.Send("job", job); err != nil {
		logger.WithCtx(c.Context()).Debug("export stream closed early", "export_id", id, "error", err)
	}
}
