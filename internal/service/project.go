// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/folio/folio/internal/cache"
	"github.com/folio/folio/internal/model"
	"github.com/folio/folio/internal/repository"
)

// Service errors.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrSlugExists      = errors.New("slug already exists")
	ErrInvalidTitle    = errors.New("title must be 1-200 characters")
	ErrInvalidSlug     = errors.New("slug must be lowercase letters, digits and single hyphens")
	ErrInvalidURL      = errors.New("urls must be absolute http(s) URLs")
	ErrTooManyTags     = errors.New("at most 20 tags")
	ErrInvalidTag      = errors.New("tags must be 1-40 characters")
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

const (
	maxTitleLength = 200
	maxSlugLength  = 100
	maxTags        = 20
	maxTagLength   = 40
)

// ProjectStore is the persistence used by ProjectService.
type ProjectStore interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*model.Project, error)
	List(ctx context.Context, publishedOnly bool) ([]*model.Project, error)
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (model.ProjectCounts, error)
}

// ProjectCache caches public project reads.
type ProjectCache interface {
	GetPublished(ctx context.Context) ([]*model.Project, error)
	SetPublished(ctx context.Context, projects []*model.Project) error
	GetProject(ctx context.Context, slug string) (*model.Project, error)
	SetProject(ctx context.Context, project *model.Project) error
	SetNegative(ctx context.Context, slug string) error
	IsNegative(ctx context.Context, slug string) (bool, error)
	InvalidateProjects(ctx context.Context, slugs ...string) error
}

// ProjectService handles project business logic.
type ProjectService struct {
	store  ProjectStore
	cache  ProjectCache
	logger *slog.Logger
	now    func() time.Time
}

// NewProjectService creates a new ProjectService. cache may be nil.
func NewProjectService(store ProjectStore, projectCache ProjectCache, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		store:  store,
		cache:  projectCache,
		logger: logger.With("component", "service.project"),
		now:    time.Now,
	}
}

// ProjectInput defines the writable fields of a project.
type ProjectInput struct {
	Slug      string
	Title     string
	Summary   string
	Content   string
	Tags      []string
	ImageURL  string
	RepoURL   string
	LiveURL   string
	Featured  bool
	Published bool
	SortOrder int
}

// ListPublished returns published projects, cache first.
func (s *ProjectService) ListPublished(ctx context.Context) ([]*model.Project, error) {
	if s.cache != nil {
		projects, err := s.cache.GetPublished(ctx)
		if err == nil {
			return projects, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("project cache read failed", "error", err)
		}
	}

	projects, err := s.store.List(ctx, true)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetPublished(ctx, projects); err != nil {
			s.logger.Warn("project cache write failed", "error", err)
		}
	}
	return projects, nil
}

// GetPublished returns a published project by slug, cache first.
func (s *ProjectService) GetPublished(ctx context.Context, slug string) (*model.Project, error) {
	if !slugRegex.MatchString(slug) {
		return nil, ErrProjectNotFound
	}

	if s.cache != nil {
		project, err := s.cache.GetProject(ctx, slug)
		if err == nil {
			return project, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("project cache read failed", "slug", slug, "error", err)
		} else if negative, _ := s.cache.IsNegative(ctx, slug); negative {
			return nil, ErrProjectNotFound
		}
	}

	project, err := s.store.GetPublishedBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNegative(ctx, slug)
			}
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProject(ctx, project); err != nil {
			s.logger.Warn("project cache write failed", "slug", slug, "error", err)
		}
	}
	return project, nil
}

// ListAll returns every project, drafts included.
func (s *ProjectService) ListAll(ctx context.Context) ([]*model.Project, error) {
	return s.store.List(ctx, false)
}

// Get returns a project by ID regardless of publication state.
func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	project, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// Counts summarizes projects for the admin index.
func (s *ProjectService) Counts(ctx context.Context) (model.ProjectCounts, error) {
	return s.store.Counts(ctx)
}

// Create validates input and stores a new project.
func (s *ProjectService) Create(ctx context.Context, input ProjectInput) (*model.Project, error) {
	input, err := normalizeProjectInput(input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	project := &model.Project{
		ID:        ulid.Make().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(project, input)

	if err := s.store.Create(ctx, project); err != nil {
		if errors.Is(err, repository.ErrSlugExists) {
			return nil, ErrSlugExists
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.invalidate(ctx, project.Slug)
	s.logger.Info("project created", "id", project.ID, "slug", project.Slug)
	return project, nil
}

// Update replaces the writable fields of an existing project.
func (s *ProjectService) Update(ctx context.Context, id string, input ProjectInput) (*model.Project, error) {
	input, err := normalizeProjectInput(input)
	if err != nil {
		return nil, err
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := project.Slug

	applyInput(project, input)
	project.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, project); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlugExists):
			return nil, ErrSlugExists
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.invalidate(ctx, oldSlug, project.Slug)
	s.logger.Info("project updated", "id", project.ID, "slug", project.Slug)
	return project, nil
}

// Delete removes a project.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	project, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return err
	}

	s.invalidate(ctx, project.Slug)
	s.logger.Info("project deleted", "id", id, "slug", project.Slug)
	return nil
}

func (s *ProjectService) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProjects(ctx, slugs...); err != nil {
		s.logger.Warn("project cache invalidation failed", "error", err)
	}
}

func applyInput(p *model.Project, in ProjectInput) {
	p.Slug = in.Slug
	p.Title = in.Title
	p.Summary = in.Summary
	p.Content = in.Content
	p.Tags = in.Tags
	p.ImageURL = in.ImageURL
	p.RepoURL = in.RepoURL
	p.LiveURL = in.LiveURL
	p.Featured = in.Featured
	p.Published = in.Published
	p.SortOrder = in.SortOrder
}

// normalizeProjectInput trims fields, derives a missing slug and validates.
func normalizeProjectInput(in ProjectInput) (ProjectInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || len([]rune(in.Title)) > maxTitleLength {
		return in, ErrInvalidTitle
	}

	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Title)
	}
	if len(in.Slug) > maxSlugLength || !slugRegex.MatchString(in.Slug) {
		return in, ErrInvalidSlug
	}

	for _, u := range []*string{&in.ImageURL, &in.RepoURL, &in.LiveURL} {
		*u = strings.TrimSpace(*u)
		if *u != "" && !validHTTPURL(*u) {
			return in, ErrInvalidURL
		}
	}

	if len(in.Tags) > maxTags {
		return in, ErrTooManyTags
	}
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || len([]rune(tag)) > maxTagLength {
			return in, ErrInvalidTag
		}
		tags = append(tags, tag)
	}
	in.Tags = tags

	return in, nil
}

// Slugify derives a URL slug from a title: accents are folded, runs of
// anything other than ASCII letters and digits become single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range norm.NFKD.String(strings.ToLower(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from NFKD
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
		if b.Len() >= maxSlugLength {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func validHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
