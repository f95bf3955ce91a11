package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/metrics"
)

func TestPublisher_RecordPageView(t *testing.T) {
	client, _ := newTestRedis(t)
	recorder := metrics.NewInMemory()
	pub := NewPublisher(client, testLogger(), recorder)
	ctx := context.Background()

	payload := validPayload("/about")
	payload.Country = "DE"
	require.NoError(t, pub.RecordPageView(ctx, payload))

	msgs, err := client.XRange(ctx, StreamKey, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var decoded PageViewPayload
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["payload"].(string)), &decoded))
	assert.Equal(t, payload, decoded)
	assert.Equal(t, uint64(1), recorder.Snapshot().PageViews["queued"])
}

func TestPublisher_RedisDown(t *testing.T) {
	client, mr := newTestRedis(t)
	recorder := metrics.NewInMemory()
	pub := NewPublisher(client, testLogger(), recorder)
	mr.Close()

	require.Error(t, pub.RecordPageView(context.Background(), validPayload("/")))
	assert.Equal(t, uint64(1), recorder.Snapshot().PageViews["dropped"])
}

func TestPublisher_DetachedFromRequestContext(t *testing.T) {
	client, _ := newTestRedis(t)
	pub := NewPublisher(client, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, pub.RecordPageView(ctx, validPayload("/")))
	n, err := client.XLen(context.Background(), StreamKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDirectSink(t *testing.T) {
	repo := &fakeWriter{}
	recorder := metrics.NewInMemory()
	sink := NewDirectSink(repo, recorder)

	require.NoError(t, sink.RecordPageView(context.Background(), validPayload("/")))
	require.Len(t, repo.stored(), 1)
	assert.Equal(t, uint64(1), recorder.Snapshot().PageViews["stored"])

	repo.failures = 1
	require.Error(t, sink.RecordPageView(context.Background(), validPayload("/")))
	assert.Equal(t, uint64(1), recorder.Snapshot().PageViews["failed"])
}

func TestToPageView(t *testing.T) {
	payload := PageViewPayload{
		VisitorID:  "v1",
		SessionID:  "s1",
		PagePath:   "/",
		DeviceType: DeviceMobile,
		ViewedAt:   time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC).UnixMilli(),
	}

	minted := payload.ToPageView("")
	assert.NotEmpty(t, minted.ID)
	assert.Equal(t, minted.ID, minted.EventID)
	assert.Nil(t, minted.Referrer)
	assert.Nil(t, minted.Country)
	require.NotNil(t, minted.DeviceType)
	assert.Equal(t, DeviceMobile, *minted.DeviceType)
	assert.Equal(t, time.UTC, minted.ViewedAt.Location())
	assert.Equal(t, 9, minted.ViewedAt.Hour())

	keyed := payload.ToPageView("1700000000000-0")
	assert.Equal(t, "1700000000000-0", keyed.EventID)
	assert.NotEqual(t, keyed.ID, keyed.EventID)
}
