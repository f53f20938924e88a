package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	logrus "github.com/sirupsen/logrus"
)

const CredentialValidationQueue = "fleetops:queue:credential-validation"

type CredentialValidationJob struct {
	JobID      string    `json:"job_id"`
	DriverID   int64     `json:"driver_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// JobQueue is a Redis list used as a FIFO work queue: producers LPUSH,
// the worker BRPOPs.
type JobQueue struct {
	client *redis.Client
	key    string
}

func NewJobQueue(cache *CacheService) *JobQueue {
	return &JobQueue{client: cache.Client(), key: CredentialValidationQueue}
}

func (q *JobQueue) Available() bool {
	return q.client != nil
}

func (q *JobQueue) EnqueueCredentialValidation(ctx context.Context, driverID int64) (*CredentialValidationJob, error) {
	if q.client == nil {
		return nil, ErrQueueUnavailable
	}
	job := &CredentialValidationJob{
		JobID:      uuid.NewString(),
		DriverID:   driverID,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	jobsEnqueued.Inc()
	return job, nil
}

// Dequeue blocks up to timeout for the next job. It returns nil, nil when
// the wait times out.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*CredentialValidationJob, error) {
	if q.client == nil {
		return nil, ErrQueueUnavailable
	}
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	return decodeJob([]byte(res[1]))
}

func decodeJob(data []byte) (*CredentialValidationJob, error) {
	var job CredentialValidationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if job.DriverID <= 0 {
		return nil, fmt.Errorf("decode job: invalid driver_id %d", job.DriverID)
	}
	return &job, nil
}

// Run consumes jobs until ctx is done. Handler errors are logged and the
// job is dropped.
func (q *JobQueue) Run(ctx context.Context, handle func(context.Context, *CredentialValidationJob) error) error {
	if q.client == nil {
		return ErrQueueUnavailable
	}
	logrus.WithField("queue", q.key).Info("worker consuming jobs")
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := q.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			jobsProcessed.WithLabelValues("dequeue_error").Inc()
			logrus.WithError(err).Warn("dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		entry := logrus.WithFields(logrus.Fields{"job_id": job.JobID, "driver_id": job.DriverID})
		if err := handle(ctx, job); err != nil {
			jobsProcessed.WithLabelValues("failed").Inc()
			entry.WithError(err).Error("credential validation job failed")
			continue
		}
		jobsProcessed.WithLabelValues("ok").Inc()
		entry.Info("credential validation job done")
	}
}
