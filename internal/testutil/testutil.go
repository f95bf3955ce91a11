// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/folio/folio/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 727401

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrations in apply order.
var migrations = []string{
	"000001_projects",
	"000002_analytics",
}

// ResetSchema drops and recreates every table for tests.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		if err := applyFile(ctx, pool, filepath.Join(root, "migrations", migrations[i]+".down.sql")); err != nil {
			return err
		}
	}
	for _, name := range migrations {
		if err := applyFile(ctx, pool, filepath.Join(root, "migrations", name+".up.sql")); err != nil {
			return err
		}
	}
	return nil
}

func applyFile(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", filepath.Base(path), err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", filepath.Base(path), err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProject creates a published test project with sensible defaults.
func NewTestProject(t testing.TB, slug string) *model.Project {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Project{
		ID:        ulid.Make().String(),
		Slug:      slug,
		Title:     "Project " + slug,
		Summary:   "A test project",
		Content:   "# " + slug,
		Tags:      []string{"go", "test"},
		RepoURL:   "https://github.com/folio/" + slug,
		Published: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestPageView creates a page view at the given time.
func NewTestPageView(t testing.TB, path, visitorID string, at time.Time) *model.PageView {
	t.Helper()
	id := ulid.Make().String()
	return &model.PageView{
		ID:        id,
		EventID:   id,
		VisitorID: visitorID,
		SessionID: "session-" + visitorID,
		PagePath:  path,
		ViewedAt:  at.UTC(),
	}
}

// UniqueSlug generates a unique slug for tests.
func UniqueSlug(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
