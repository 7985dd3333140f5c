package handler

import (
	"time"

	"oact/internal/alert"
)

// LogResponse is the body of GET /v1/alerts.
type LogResponse struct {
	Alerts []alert.LogEntry `json:"alerts"`
}

// DigestResponse is the body of POST /v1/alerts/digest.
type DigestResponse struct {
	AlertID   string    `json:"alert_id"`
	CreatedAt time.Time `json:"created_at"`
	Priority  string    `json:"priority"`
	Subject   string    `json:"subject"`
	BundleIDs []string  `json:"bundle_ids"`
	Body      string    `json:"body"`
}

func FromAlert(a alert.Alert) *DigestResponse {
	return &DigestResponse{
		AlertID:   a.ID,
		CreatedAt: a.CreatedAt,
		Priority:  a.Priority,
		Subject:   a.Subject,
		BundleIDs: a.BundleIDs,
		Body:      a.Body,
	}
}
