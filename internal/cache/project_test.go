package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), mr
}

func TestPublished_MissThenHit(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.GetPublished(ctx)
	require.ErrorIs(t, err, ErrCacheMiss)

	projects := []*model.Project{
		{ID: "01A", Slug: "alpha", Title: "Alpha", Tags: []string{"go"}, Published: true},
		{ID: "01B", Slug: "beta", Title: "Beta", Published: true},
	}
	require.NoError(t, c.SetPublished(ctx, projects))

	got, err := c.GetPublished(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Slug)
	assert.Equal(t, []string{"go"}, got[0].Tags)
	assert.Equal(t, DefaultProjectTTL, mr.TTL(publishedKey))
}

func TestPublished_EmptyListIsHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetPublished(ctx, nil))

	got, err := c.GetPublished(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProject_SetClearsNegative(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetNegative(ctx, "alpha"))
	neg, err := c.IsNegative(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, neg)

	require.NoError(t, c.SetProject(ctx, &model.Project{ID: "01A", Slug: "alpha", Title: "Alpha"}))

	neg, err = c.IsNegative(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, neg)

	got, err := c.GetProject(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Title)
}

func TestNegative_Expires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetNegative(ctx, "ghost"))
	mr.FastForward(NegativeCacheTTL + time.Second)

	neg, err := c.IsNegative(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, neg)
}

func TestInvalidateProjects(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetPublished(ctx, []*model.Project{{Slug: "alpha"}}))
	require.NoError(t, c.SetProject(ctx, &model.Project{Slug: "alpha"}))
	require.NoError(t, c.SetProject(ctx, &model.Project{Slug: "beta"}))
	require.NoError(t, c.SetNegative(ctx, "gamma"))

	require.NoError(t, c.InvalidateProjects(ctx, "alpha", "", "gamma"))

	_, err := c.GetPublished(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.GetProject(ctx, "alpha")
	assert.ErrorIs(t, err, ErrCacheMiss)
	neg, err := c.IsNegative(ctx, "gamma")
	require.NoError(t, err)
	assert.False(t, neg)

	_, err = c.GetProject(ctx, "beta")
	assert.NoError(t, err)
}

func TestCache_Unavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.GetPublished(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, c.Ping(context.Background()))
}
