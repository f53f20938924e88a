package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheServiceWithClient(client), mr
}

func TestCacheSetGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	var got map[string]int
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, got["a"])

	found, err = cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheDeleteChartKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	for _, key := range ChartCacheKeys {
		require.NoError(t, mr.Set(key, "[]"))
	}
	require.NoError(t, mr.Set("unrelated", "1"))

	require.NoError(t, cache.Delete(context.Background(), ChartCacheKeys...))

	for _, key := range ChartCacheKeys {
		assert.False(t, mr.Exists(key), key)
	}
	assert.True(t, mr.Exists("unrelated"))
	assert.NoError(t, cache.Delete(context.Background()))
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	q := NewJobQueue(cache)
	ctx := context.Background()

	first, err := q.EnqueueCredentialValidation(ctx, 3)
	require.NoError(t, err)
	second, err := q.EnqueueCredentialValidation(ctx, 8)
	require.NoError(t, err)

	items, err := mr.List(CredentialValidationQueue)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, got.JobID)
	assert.Equal(t, int64(3), got.DriverID)

	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.JobID, got.JobID)
	assert.Equal(t, int64(8), got.DriverID)
}

func TestDequeueRejectsMalformedJob(t *testing.T) {
	cache, mr := newTestCache(t)
	q := NewJobQueue(cache)
	_, err := mr.Lpush(CredentialValidationQueue, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	assert.Error(t, err)
	assert.Nil(t, job)
}

func TestRunProcessesJobsInOrder(t *testing.T) {
	cache, _ := newTestCache(t)
	q := NewJobQueue(cache)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, id := range []int64{1, 2, 3} {
		_, err := q.EnqueueCredentialValidation(ctx, id)
		require.NoError(t, err)
	}

	var seen []int64
	err := q.Run(ctx, func(ctx context.Context, job *CredentialValidationJob) error {
		seen = append(seen, job.DriverID)
		if job.DriverID == 1 {
			return errors.New("driver lookup failed")
		}
		if len(seen) == 3 {
			cancel()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestPublishReachesSubscriber(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	sub := cache.Subscribe(ctx, PredictionsChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Publish(ctx, PredictionsChannel, PredictionEvent{RequestID: "r-1", ETAMinutes: 20.09}))

	select {
	case msg := <-sub.Channel():
		assert.Contains(t, msg.Payload, `"request_id":"r-1"`)
		assert.Contains(t, msg.Payload, `"eta_minutes":20.09`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
