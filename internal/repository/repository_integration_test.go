//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/folio/folio/internal/model"
	"github.com/folio/folio/internal/testutil"
)

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return repo
}

func TestIntegrationProject_CRUD(t *testing.T) {
	ctx := context.Background()
	projects := NewProjectRepository(newTestRepository(t, ctx))

	p := testutil.NewTestProject(t, "folio")
	if err := projects.Create(ctx, p); err != nil {
		t.Fatalf("create project: %v", err)
	}

	got, err := projects.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Slug != p.Slug || got.Title != p.Title || len(got.Tags) != 2 || got.RepoURL != p.RepoURL {
		t.Fatalf("unexpected project: %+v", got)
	}
	if got.ImageURL != "" {
		t.Fatalf("image_url = %q, want empty", got.ImageURL)
	}

	p.Title = "Folio v2"
	p.Tags = nil
	p.UpdatedAt = time.Now().UTC()
	if err := projects.Update(ctx, p); err != nil {
		t.Fatalf("update project: %v", err)
	}
	got, err = projects.GetPublishedBySlug(ctx, "folio")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.Title != "Folio v2" || len(got.Tags) != 0 || got.Tags == nil {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := projects.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := projects.GetByID(ctx, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if err := projects.Delete(ctx, p.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound on second delete, got %v", err)
	}
}

func TestIntegrationProject_SlugConflict(t *testing.T) {
	ctx := context.Background()
	projects := NewProjectRepository(newTestRepository(t, ctx))

	if err := projects.Create(ctx, testutil.NewTestProject(t, "same")); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := projects.Create(ctx, testutil.NewTestProject(t, "same")); !errors.Is(err, ErrSlugExists) {
		t.Fatalf("expected ErrSlugExists, got %v", err)
	}
}

func TestIntegrationProject_ListOrderAndCounts(t *testing.T) {
	ctx := context.Background()
	projects := NewProjectRepository(newTestRepository(t, ctx))

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	old := testutil.NewTestProject(t, "old")
	old.CreatedAt = base
	newer := testutil.NewTestProject(t, "newer")
	newer.CreatedAt = base.Add(time.Minute)
	featured := testutil.NewTestProject(t, "featured")
	featured.Featured = true
	featured.SortOrder = 5
	draft := testutil.NewTestProject(t, "draft")
	draft.Published = false

	for _, p := range []*model.Project{old, newer, featured, draft} {
		if err := projects.Create(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Slug, err)
		}
	}

	published, err := projects.List(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"featured", "newer", "old"}
	if len(published) != len(want) {
		t.Fatalf("published count = %d, want %d", len(published), len(want))
	}
	for i, slug := range want {
		if published[i].Slug != slug {
			t.Errorf("published[%d] = %s, want %s", i, published[i].Slug, slug)
		}
	}

	all, err := projects.List(ctx, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all count = %d, want 4", len(all))
	}

	if _, err := projects.GetPublishedBySlug(ctx, "draft"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("draft should not be visible by slug, got %v", err)
	}

	counts, err := projects.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts != (model.ProjectCounts{Total: 4, Published: 3, Featured: 1}) {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestIntegrationEvents_InsertIdempotentAndRead(t *testing.T) {
	ctx := context.Background()
	events := NewEventRepository(newTestRepository(t, ctx))

	now := time.Now().UTC()
	ref := "https://news.ycombinator.com/"
	country := "DE"
	first := testutil.NewTestPageView(t, "/", "v1", now.Add(-2*time.Hour))
	first.Referrer = &ref
	first.Country = &country
	second := testutil.NewTestPageView(t, "/about", "v2", now.Add(-time.Hour))
	outside := testutil.NewTestPageView(t, "/", "v3", now.Add(-10*24*time.Hour))

	views := []*model.PageView{first, second, outside}
	if err := events.BulkInsertPageViews(ctx, views); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	// Redelivery is a no-op.
	if err := events.BulkInsertPageViews(ctx, views); err != nil {
		t.Fatalf("bulk insert again: %v", err)
	}

	start, end := now.Add(-7*24*time.Hour), now
	total, err := events.CountPageViews(ctx, start, end)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}

	countries, err := events.Countries(ctx, start, end)
	if err != nil || len(countries) != 1 || countries[0] != "DE" {
		t.Fatalf("countries = %v, %v", countries, err)
	}
	referrers, err := events.Referrers(ctx, start, end)
	if err != nil || len(referrers) != 1 {
		t.Fatalf("referrers = %v, %v", referrers, err)
	}

	visits, err := events.Visits(ctx, start, end)
	if err != nil {
		t.Fatalf("visits: %v", err)
	}
	if len(visits) != 2 || visits[0].VisitorID != "v1" || visits[1].VisitorID != "v2" {
		t.Fatalf("visits not ordered by time: %+v", visits)
	}

	devices, err := events.Devices(ctx, start, end)
	if err != nil || len(devices) != 2 || devices[0].Browser != "" {
		t.Fatalf("devices = %+v, %v", devices, err)
	}
}

func TestIntegrationEvents_UpdateEngagement(t *testing.T) {
	ctx := context.Background()
	events := NewEventRepository(newTestRepository(t, ctx))

	now := time.Now().UTC()
	older := testutil.NewTestPageView(t, "/", "v1", now.Add(-10*time.Minute))
	latest := testutil.NewTestPageView(t, "/", "v1", now.Add(-time.Minute))
	if err := events.BulkInsertPageViews(ctx, []*model.PageView{older, latest}); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}

	bounce := false
	duration := 42.0
	engagement := model.Engagement{
		SessionID:       latest.SessionID,
		PagePath:        "/",
		IsBounce:        &bounce,
		DurationSeconds: &duration,
	}

	for i := 0; i < 2; i++ {
		matched, err := events.UpdateEngagement(ctx, engagement)
		if err != nil || !matched {
			t.Fatalf("update %d: matched=%v err=%v", i, matched, err)
		}
	}
	matched, err := events.UpdateEngagement(ctx, engagement)
	if err != nil || matched {
		t.Fatalf("third update should not match: matched=%v err=%v", matched, err)
	}

	rows, err := events.Engagement(ctx, now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("engagement: %v", err)
	}
	filled := 0
	for _, row := range rows {
		if row.DurationSeconds != nil && *row.DurationSeconds == 42 {
			filled++
		}
	}
	if filled != 2 {
		t.Fatalf("filled rows = %d, want 2", filled)
	}
}

func TestIntegrationEvents_ProjectViews(t *testing.T) {
	ctx := context.Background()
	events := NewEventRepository(newTestRepository(t, ctx))

	view := &model.ProjectView{ProjectSlug: "folio", ProjectTitle: "Folio"}
	if err := events.InsertProjectView(ctx, view); err != nil {
		t.Fatalf("insert project view: %v", err)
	}
	if view.ID == "" || view.ViewedAt.IsZero() {
		t.Fatalf("defaults not applied: %+v", view)
	}

	now := time.Now().UTC()
	refs, err := events.ProjectViews(ctx, now.Add(-time.Hour), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("project views: %v", err)
	}
	if len(refs) != 1 || refs[0] != (model.ProjectRef{Slug: "folio", Title: "Folio"}) {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}
