package models

import "time"

type Upload struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	UserID      string    `json:"userId,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Path        string    `json:"-"`
}
