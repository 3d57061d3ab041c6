package models

import (
	"maps"
	"time"
)

// PageView counts views of one page; PageID is unique.
type PageView struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId"`
	Views        int       `json:"views"`
	LastReferrer string    `json:"lastReferrer,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastViewedAt time.Time `json:"lastViewedAt"`
}

type AnalyticsEvent struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	UserID     string         `json:"userId,omitempty"`
	PageID     string         `json:"pageId,omitempty"`
	Properties map[string]any `json:"properties"`
	ReceivedAt time.Time      `json:"receivedAt"`
}

func (e AnalyticsEvent) Clone() AnalyticsEvent {
	e.Properties = maps.Clone(e.Properties)
	if e.Properties == nil {
		e.Properties = map[string]any{}
	}
	return e
}
