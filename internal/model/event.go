// Package model defines domain entities for the application.
package model

import "time"

// PageView is a single captured page view.
// Rows are immutable once written except for the engagement columns,
// which are filled in once when the visitor leaves the page.
type PageView struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID or ID)

	VisitorID string `json:"visitor_id"`
	SessionID string `json:"session_id"`
	PagePath  string `json:"page_path"`

	Referrer   *string `json:"referrer,omitempty"`
	Country    *string `json:"country,omitempty"` // ISO 3166-1 alpha-2
	DeviceType *string `json:"device_type,omitempty"`
	Browser    *string `json:"browser,omitempty"`
	OS         *string `json:"os,omitempty"`

	// Engagement, null until reported
	IsBounce        *bool    `json:"is_bounce,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`

	ViewedAt time.Time `json:"viewed_at"`
}

// ProjectView records a visitor opening a project detail page.
type ProjectView struct {
	ID           string    `json:"id"`
	ProjectSlug  string    `json:"project_slug"`
	ProjectTitle string    `json:"project_title"`
	ViewedAt     time.Time `json:"viewed_at"`
}

// Engagement is the bounce/duration update for an existing page view.
type Engagement struct {
	SessionID       string
	PagePath        string
	IsBounce        *bool
	DurationSeconds *float64
}

// DeviceInfo is the device/browser/os triple of one page view.
type DeviceInfo struct {
	DeviceType string
	Browser    string
	OS         string
}

// Visit is a (timestamp, visitor) pair used for the daily series.
type Visit struct {
	ViewedAt  time.Time
	VisitorID string
}

// ProjectRef is a (slug, title) pair of one project view.
type ProjectRef struct {
	Slug  string
	Title string
}

// EngagementRow carries the nullable engagement columns of one page view.
type EngagementRow struct {
	IsBounce        *bool
	DurationSeconds *float64
}
