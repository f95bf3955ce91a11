package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/folio/folio/internal/model"
)

// Common errors for project repository operations.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSlugExists      = errors.New("slug already exists")
)

const projectColumns = `id, slug, title, summary, content, tags,
	COALESCE(image_url, ''), COALESCE(repo_url, ''), COALESCE(live_url, ''),
	featured, published, sort_order, created_at, updated_at`

// ProjectRepository provides database access for portfolio projects.
type ProjectRepository struct {
	repo *Repository
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(repo *Repository) *ProjectRepository {
	return &ProjectRepository{repo: repo}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *model.Project) error {
	_, err := r.repo.pool.Exec(ctx, `
		INSERT INTO projects (id, slug, title, summary, content, tags, image_url, repo_url, live_url,
			featured, published, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		p.ID,
		p.Slug,
		p.Title,
		p.Summary,
		p.Content,
		pq.Array(tagsOrEmpty(p.Tags)),
		nullableString(p.ImageURL),
		nullableString(p.RepoURL),
		nullableString(p.LiveURL),
		p.Featured,
		p.Published,
		p.SortOrder,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID regardless of publication state.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	p, err := scanProject(r.repo.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return p, nil
}

// GetPublishedBySlug retrieves a published project by slug.
func (r *ProjectRepository) GetPublishedBySlug(ctx context.Context, slug string) (*model.Project, error) {
	p, err := scanProject(r.repo.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE slug = $1 AND published`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by slug: %w", err)
	}
	return p, nil
}

// List returns projects ordered featured first, then sort order, newest first.
func (r *ProjectRepository) List(ctx context.Context, publishedOnly bool) ([]*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if publishedOnly {
		query += ` WHERE published`
	}
	query += ` ORDER BY featured DESC, sort_order ASC, created_at DESC`

	rows, err := r.repo.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// Update overwrites a project's mutable fields.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	tag, err := r.repo.pool.Exec(ctx, `
		UPDATE projects SET slug = $2, title = $3, summary = $4, content = $5, tags = $6,
			image_url = $7, repo_url = $8, live_url = $9, featured = $10, published = $11,
			sort_order = $12, updated_at = $13
		WHERE id = $1
	`,
		p.ID,
		p.Slug,
		p.Title,
		p.Summary,
		p.Content,
		pq.Array(tagsOrEmpty(p.Tags)),
		nullableString(p.ImageURL),
		nullableString(p.RepoURL),
		nullableString(p.LiveURL),
		p.Featured,
		p.Published,
		p.SortOrder,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.repo.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Counts summarizes the project table for the admin index.
func (r *ProjectRepository) Counts(ctx context.Context) (model.ProjectCounts, error) {
	var c model.ProjectCounts
	err := r.repo.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE published),
			COUNT(*) FILTER (WHERE featured)
		FROM projects
	`).Scan(&c.Total, &c.Published, &c.Featured)
	if err != nil {
		return c, fmt.Errorf("failed to count projects: %w", err)
	}
	return c, nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	var tags pq.StringArray
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&p.Summary,
		&p.Content,
		&tags,
		&p.ImageURL,
		&p.RepoURL,
		&p.LiveURL,
		&p.Featured,
		&p.Published,
		&p.SortOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Tags = tagsOrEmpty(tags)
	return &p, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
