package model

import "time"

// Project is a portfolio entry managed from the admin panel.
type Project struct {
	ID        string    `json:"id"` // ULID
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"` // Markdown body
	Tags      []string  `json:"tags"`
	ImageURL  string    `json:"image_url,omitempty"`
	RepoURL   string    `json:"repo_url,omitempty"`
	LiveURL   string    `json:"live_url,omitempty"`
	Featured  bool      `json:"featured"`
	Published bool      `json:"published"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectCounts summarizes projects for the admin index.
type ProjectCounts struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Featured  int64 `json:"featured"`
}
