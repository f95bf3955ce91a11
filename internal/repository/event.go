package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"

	"github.com/folio/folio/internal/model"
)

// EventRepository stores and reads page views and project views.
// It satisfies analytics.EventSource and analytics.PageViewWriter.
type EventRepository struct {
	repo *Repository
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(repo *Repository) *EventRepository {
	return &EventRepository{repo: repo}
}

// Ping checks that the event store is reachable.
func (r *EventRepository) Ping(ctx context.Context) error {
	return r.repo.Ping(ctx)
}

// BulkInsertPageViews inserts page views with idempotency via ON CONFLICT DO NOTHING.
func (r *EventRepository) BulkInsertPageViews(ctx context.Context, views []*model.PageView) error {
	if len(views) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO page_views (
			id, event_id, visitor_id, session_id, page_path, referrer,
			country, device_type, browser, os, viewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, view := range views {
		batch.Queue(query,
			view.ID,
			view.EventID,
			view.VisitorID,
			view.SessionID,
			view.PagePath,
			view.Referrer,
			view.Country,
			view.DeviceType,
			view.Browser,
			view.OS,
			view.ViewedAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(views); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert page view %d: %w", i, err)
		}
	}

	return nil
}

// InsertProjectView records a project detail view.
func (r *EventRepository) InsertProjectView(ctx context.Context, view *model.ProjectView) error {
	if view.ID == "" {
		view.ID = ulid.Make().String()
	}
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now().UTC()
	}

	_, err := r.repo.pool.Exec(ctx, `
		INSERT INTO project_views (id, project_slug, project_title, viewed_at)
		VALUES ($1, $2, $3, $4)
	`, view.ID, view.ProjectSlug, view.ProjectTitle, view.ViewedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project view: %w", err)
	}
	return nil
}

// UpdateEngagement fills the engagement columns of the most recent page view
// of the session and path that has none yet. It reports whether a row matched.
func (r *EventRepository) UpdateEngagement(ctx context.Context, e model.Engagement) (bool, error) {
	tag, err := r.repo.pool.Exec(ctx, `
		UPDATE page_views SET is_bounce = $3, duration_seconds = $4
		WHERE id = (
			SELECT id FROM page_views
			WHERE session_id = $1 AND page_path = $2
			  AND is_bounce IS NULL AND duration_seconds IS NULL
			ORDER BY viewed_at DESC
			LIMIT 1
		)
	`, e.SessionID, e.PagePath, e.IsBounce, e.DurationSeconds)
	if err != nil {
		return false, fmt.Errorf("failed to update engagement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountPageViews returns the number of page views in the window.
func (r *EventRepository) CountPageViews(ctx context.Context, start, end time.Time) (int64, error) {
	var total int64
	err := r.repo.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM page_views WHERE viewed_at BETWEEN $1 AND $2
	`, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count page views: %w", err)
	}
	return total, nil
}

// VisitorIDs returns the visitor ID of every page view in the window.
func (r *EventRepository) VisitorIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	return r.strings(ctx, `
		SELECT visitor_id FROM page_views WHERE viewed_at BETWEEN $1 AND $2
	`, start, end)
}

// PagePaths returns the path of every page view in the window.
func (r *EventRepository) PagePaths(ctx context.Context, start, end time.Time) ([]string, error) {
	return r.strings(ctx, `
		SELECT page_path FROM page_views WHERE viewed_at BETWEEN $1 AND $2
	`, start, end)
}

// Countries returns the non-null countries in the window.
func (r *EventRepository) Countries(ctx context.Context, start, end time.Time) ([]string, error) {
	return r.strings(ctx, `
		SELECT country FROM page_views
		WHERE viewed_at BETWEEN $1 AND $2 AND country IS NOT NULL
	`, start, end)
}

// Referrers returns the non-null referrers in the window.
func (r *EventRepository) Referrers(ctx context.Context, start, end time.Time) ([]string, error) {
	return r.strings(ctx, `
		SELECT referrer FROM page_views
		WHERE viewed_at BETWEEN $1 AND $2 AND referrer IS NOT NULL
	`, start, end)
}

// Devices returns the device triple of every page view in the window.
// Null components come back as empty strings.
func (r *EventRepository) Devices(ctx context.Context, start, end time.Time) ([]model.DeviceInfo, error) {
	rows, err := r.repo.pool.Query(ctx, `
		SELECT COALESCE(device_type, ''), COALESCE(browser, ''), COALESCE(os, '')
		FROM page_views WHERE viewed_at BETWEEN $1 AND $2
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}

	devices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.DeviceInfo, error) {
		var d model.DeviceInfo
		err := row.Scan(&d.DeviceType, &d.Browser, &d.OS)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan devices: %w", err)
	}
	return devices, nil
}

// Visits returns (timestamp, visitor) pairs ordered by timestamp.
func (r *EventRepository) Visits(ctx context.Context, start, end time.Time) ([]model.Visit, error) {
	rows, err := r.repo.pool.Query(ctx, `
		SELECT viewed_at, visitor_id FROM page_views
		WHERE viewed_at BETWEEN $1 AND $2
		ORDER BY viewed_at
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}

	visits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Visit, error) {
		var v model.Visit
		err := row.Scan(&v.ViewedAt, &v.VisitorID)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan visits: %w", err)
	}
	return visits, nil
}

// ProjectViews returns the (slug, title) pair of every project view in the window.
func (r *EventRepository) ProjectViews(ctx context.Context, start, end time.Time) ([]model.ProjectRef, error) {
	rows, err := r.repo.pool.Query(ctx, `
		SELECT project_slug, project_title FROM project_views
		WHERE viewed_at BETWEEN $1 AND $2
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query project views: %w", err)
	}

	refs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProjectRef, error) {
		var p model.ProjectRef
		err := row.Scan(&p.Slug, &p.Title)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project views: %w", err)
	}
	return refs, nil
}

// Engagement returns the engagement columns of every page view in the window.
func (r *EventRepository) Engagement(ctx context.Context, start, end time.Time) ([]model.EngagementRow, error) {
	rows, err := r.repo.pool.Query(ctx, `
		SELECT is_bounce, duration_seconds FROM page_views
		WHERE viewed_at BETWEEN $1 AND $2
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query engagement: %w", err)
	}

	engagement, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.EngagementRow, error) {
		var e model.EngagementRow
		err := row.Scan(&e.IsBounce, &e.DurationSeconds)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan engagement: %w", err)
	}
	return engagement, nil
}

func (r *EventRepository) strings(ctx context.Context, query string, start, end time.Time) ([]string, error) {
	rows, err := r.repo.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query page views: %w", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan page views: %w", err)
	}
	return values, nil
}
