package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/cache"
	"github.com/folio/folio/internal/model"
	"github.com/folio/folio/internal/repository"
)

type fakeStore struct {
	mu        sync.Mutex
	projects  map[string]*model.Project
	listCalls int
	slugCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{projects: make(map[string]*model.Project)}
}

func (f *fakeStore) Create(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.projects {
		if existing.Slug == p.Slug {
			return repository.ErrSlugExists
		}
	}
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetPublishedBySlug(_ context.Context, slug string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slugCalls++
	for _, p := range f.projects {
		if p.Slug == slug && p.Published {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrProjectNotFound
}

func (f *fakeStore) List(_ context.Context, publishedOnly bool) ([]*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]*model.Project, 0, len(f.projects))
	for _, p := range f.projects {
		if publishedOnly && !p.Published {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[p.ID]; !ok {
		return repository.ErrProjectNotFound
	}
	for id, existing := range f.projects {
		if id != p.ID && existing.Slug == p.Slug {
			return repository.ErrSlugExists
		}
	}
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		return repository.ErrProjectNotFound
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeStore) Counts(_ context.Context) (model.ProjectCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c model.ProjectCounts
	for _, p := range f.projects {
		c.Total++
		if p.Published {
			c.Published++
		}
		if p.Featured {
			c.Featured++
		}
	}
	return c, nil
}

func newTestProjectService(t *testing.T) (*ProjectService, *fakeStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	return NewProjectService(store, cache.NewFromClient(client), testLogger()), store
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!", "hello-world"},
		{"  Folio -- Portfolio  API ", "folio-portfolio-api"},
		{"Café Déjà Vu", "cafe-deja-vu"},
		{"Go 1.22 release", "go-1-22-release"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := Slugify(strings.Repeat("word ", 50))
	if len(long) > maxSlugLength || strings.HasSuffix(long, "-") {
		t.Errorf("long slug not capped cleanly: %q", long)
	}
}

func TestNormalizeProjectInput(t *testing.T) {
	tests := []struct {
		name    string
		input   ProjectInput
		wantErr error
	}{
		{"valid", ProjectInput{Title: "Folio", RepoURL: "https://github.com/folio/folio"}, nil},
		{"empty_title", ProjectInput{Title: "  "}, ErrInvalidTitle},
		{"long_title", ProjectInput{Title: strings.Repeat("t", 201)}, ErrInvalidTitle},
		{"bad_slug", ProjectInput{Title: "Folio", Slug: "Not A Slug"}, ErrInvalidSlug},
		{"double_hyphen", ProjectInput{Title: "Folio", Slug: "a--b"}, ErrInvalidSlug},
		{"underivable_slug", ProjectInput{Title: "???"}, ErrInvalidSlug},
		{"ftp_url", ProjectInput{Title: "Folio", LiveURL: "ftp://example.com"}, ErrInvalidURL},
		{"relative_url", ProjectInput{Title: "Folio", ImageURL: "/img.png"}, ErrInvalidURL},
		{"too_many_tags", ProjectInput{Title: "Folio", Tags: make([]string, 21)}, ErrTooManyTags},
		{"empty_tag", ProjectInput{Title: "Folio", Tags: []string{"go", " "}}, ErrInvalidTag},
		{"long_tag", ProjectInput{Title: "Folio", Tags: []string{strings.Repeat("x", 41)}}, ErrInvalidTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizeProjectInput(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProjectService_CreateDerivesSlug(t *testing.T) {
	svc, _ := newTestProjectService(t)

	p, err := svc.Create(context.Background(), ProjectInput{Title: "My Great Project", Tags: []string{" go "}, Published: true})
	require.NoError(t, err)
	assert.Equal(t, "my-great-project", p.Slug)
	assert.Equal(t, []string{"go"}, p.Tags)
	assert.Len(t, p.ID, 26)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = svc.Create(context.Background(), ProjectInput{Title: "My great project!"})
	assert.ErrorIs(t, err, ErrSlugExists)
}

func TestProjectService_PublicReadsAreCached(t *testing.T) {
	svc, store := newTestProjectService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProjectInput{Title: "Alpha", Published: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProjectInput{Title: "Draft"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		list, err := svc.ListPublished(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "alpha", list[0].Slug)
	}
	assert.Equal(t, 1, store.listCalls)

	for i := 0; i < 2; i++ {
		p, err := svc.GetPublished(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "Alpha", p.Title)
	}
	assert.Equal(t, 1, store.slugCalls)
}

func TestProjectService_NegativeCache(t *testing.T) {
	svc, store := newTestProjectService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.GetPublished(ctx, "missing")
		assert.ErrorIs(t, err, ErrProjectNotFound)
	}
	assert.Equal(t, 1, store.slugCalls)

	// Creating the slug clears the negative entry.
	_, err := svc.Create(ctx, ProjectInput{Title: "Missing", Published: true})
	require.NoError(t, err)
	p, err := svc.GetPublished(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "Missing", p.Title)
}

func TestProjectService_InvalidSlugNotLookedUp(t *testing.T) {
	svc, store := newTestProjectService(t)

	_, err := svc.GetPublished(context.Background(), "../etc")
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Equal(t, 0, store.slugCalls)
}

func TestProjectService_UpdateInvalidatesOldSlug(t *testing.T) {
	svc, _ := newTestProjectService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, ProjectInput{Title: "Alpha", Published: true})
	require.NoError(t, err)
	_, err = svc.GetPublished(ctx, "alpha")
	require.NoError(t, err)
	_, err = svc.ListPublished(ctx)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, ProjectInput{Title: "Alpha", Slug: "alpha-v2", Published: true})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.GetPublished(ctx, "alpha")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	list, err := svc.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alpha-v2", list[0].Slug)
}

func TestProjectService_UpdateAndDeleteMissing(t *testing.T) {
	svc, _ := newTestProjectService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, "nope", ProjectInput{Title: "X"})
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "nope"), ErrProjectNotFound)
}

func TestProjectService_DeleteAndCounts(t *testing.T) {
	svc, _ := newTestProjectService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, ProjectInput{Title: "A", Published: true, Featured: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProjectInput{Title: "B"})
	require.NoError(t, err)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectCounts{Total: 2, Published: 1, Featured: 1}, counts)

	require.NoError(t, svc.Delete(ctx, a.ID))
	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].Slug)
}

func TestProjectService_WorksWithoutCache(t *testing.T) {
	store := newFakeStore()
	svc := NewProjectService(store, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, ProjectInput{Title: "Solo", Published: true})
	require.NoError(t, err)
	_, err = svc.GetPublished(ctx, "solo")
	require.NoError(t, err)
	_, err = svc.GetPublished(ctx, "solo")
	require.NoError(t, err)
	assert.Equal(t, 2, store.slugCalls)
}
