package models

import "time"

type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
	ExportCancelled ExportStatus = "cancelled"
)

// Terminal reports whether the job can no longer change.
func (s ExportStatus) Terminal() bool {
	return s == ExportCompleted || s == ExportFailed || s == ExportCancelled
}

type ExportJob struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Format      string       `json:"format"`
	Status      ExportStatus `json:"status"`
	Progress    int          `json:"progress"`
	RecordCount int          `json:"recordCount"`
	SizeBytes   int64        `json:"sizeBytes"`
	Error       string       `json:"error,omitempty"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt"`
}

func (j ExportJob) Clone() ExportJob {
	j.StartedAt = cloneTime(j.StartedAt)
	j.CompletedAt = cloneTime(j.CompletedAt)
	return j
}
