// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/folio/folio/internal/model"

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// TrackRequest is the body of POST /api/analytics/track.
type TrackRequest struct {
	PagePath  string `json:"page_path"`
	Referrer  string `json:"referrer,omitempty"`
	VisitorID string `json:"visitor_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ProjectViewRequest is the body of POST /api/analytics/project-view.
type ProjectViewRequest struct {
	ProjectSlug  string `json:"project_slug"`
	ProjectTitle string `json:"project_title"`
}

// EngagementRequest is the body of POST /api/analytics/engagement.
type EngagementRequest struct {
	SessionID       string   `json:"session_id"`
	PagePath        string   `json:"page_path"`
	DurationSeconds *float64 `json:"duration_seconds"`
	IsBounce        *bool    `json:"is_bounce"`
}

// ProjectRequest is the body of admin project create and update.
type ProjectRequest struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	ImageURL  string   `json:"image_url"`
	RepoURL   string   `json:"repo_url"`
	LiveURL   string   `json:"live_url"`
	Featured  bool     `json:"featured"`
	Published bool     `json:"published"`
	SortOrder int      `json:"sort_order"`
}

// ProjectListResponse wraps a list of projects.
type ProjectListResponse struct {
	Data  []*model.Project `json:"data"`
	Total int              `json:"total"`
}

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SuccessResponse acknowledges a write.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// AdminIndexResponse is returned by the admin index.
type AdminIndexResponse struct {
	Site     string              `json:"site"`
	Projects model.ProjectCounts `json:"projects"`
	Links    map[string]string   `json:"links"`
}

// NewProjectListResponse converts projects to a list response.
func NewProjectListResponse(projects []*model.Project) *ProjectListResponse {
	if projects == nil {
		projects = []*model.Project{}
	}
	return &ProjectListResponse{Data: projects, Total: len(projects)}
}
