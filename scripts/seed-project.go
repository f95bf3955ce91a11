package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/folio/folio/internal/cache"
	"github.com/folio/folio/internal/repository"
	"github.com/folio/folio/internal/service"
)

type output struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		redisURL    = flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection string; when set the public project cache is invalidated")
		title       = flag.String("title", "", "Project title (required)")
		slug        = flag.String("slug", "", "URL slug; derived from the title when empty")
		summary     = flag.String("summary", "", "One-line summary")
		tagsInput   = flag.String("tags", "", "Comma-separated tags")
		repoURL     = flag.String("repo-url", "", "Source repository URL")
		liveURL     = flag.String("live-url", "", "Live demo URL")
		featured    = flag.Bool("featured", false, "Pin the project to the top of the list")
		published   = flag.Bool("published", true, "Publish immediately")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*title) == "" {
		fmt.Fprintln(os.Stderr, "-title is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	var projectCache service.ProjectCache
	if *redisURL != "" {
		c, err := cache.New(ctx, *redisURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "connect redis:", err)
			os.Exit(1)
		}
		defer c.Close()
		projectCache = c
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewProjectService(repository.NewProjectRepository(repo), projectCache, logger)

	project, err := svc.Create(ctx, service.ProjectInput{
		Slug:      *slug,
		Title:     *title,
		Summary:   *summary,
		Tags:      parseTags(*tagsInput),
		RepoURL:   *repoURL,
		LiveURL:   *liveURL,
		Featured:  *featured,
		Published: *published,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "create project:", err)
		os.Exit(1)
	}

	out := output{
		ID:        project.ID,
		Slug:      project.Slug,
		Title:     project.Title,
		Tags:      project.Tags,
		Published: project.Published,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.ID)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func parseTags(input string) []string {
	parts := strings.Split(input, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
