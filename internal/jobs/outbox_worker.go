package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type OutboxJob struct {
	ID          int64
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int32
	LastError   string
	AvailableAt time.Time
}

type OutboxRepository interface {
	ClaimPending(ctx context.Context, limit int32) ([]OutboxJob, error)
	MarkDone(ctx context.Context, jobID int64) error
	MarkRetry(ctx context.Context, jobID int64, nextAvailableAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID int64, lastError string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Worker relays journaled ledger events. Claimed jobs are published with
// their event name as topic; failures back off linearly until maxAttempts.
type Worker struct {
	outboxRepo   OutboxRepository
	publisher    Publisher
	maxAttempts  int32
	now          func() time.Time
	retryBackoff func(attempt int32) time.Duration
}

func NewWorker(outboxRepo OutboxRepository, publisher Publisher) *Worker {
	return &Worker{
		outboxRepo:  outboxRepo,
		publisher:   publisher,
		maxAttempts: 5,
		now:         func() time.Time { return time.Now().UTC() },
		retryBackoff: func(attempt int32) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return time.Duration(attempt*15) * time.Second
		},
	}
}

// RunOnce processes one claimed batch and reports how many jobs it published.
func (w *Worker) RunOnce(ctx context.Context, batchSize int32) (int, error) {
	jobs, err := w.outboxRepo.ClaimPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, job := range jobs {
		ok, err := w.processJob(ctx, job)
		if err != nil {
			return published, err
		}
		if ok {
			published++
		}
	}
	return published, nil
}

type eventEnvelope struct {
	TxID        string `json:"tx_id"`
	Event       string `json:"event"`
	Fingerprint string `json:"fingerprint"`
}

func (w *Worker) processJob(ctx context.Context, job OutboxJob) (bool, error) {
	if job.Topic == "" {
		return false, w.outboxRepo.MarkFailed(ctx, job.ID, "missing_topic")
	}
	var env eventEnvelope
	if err := json.Unmarshal(job.Payload, &env); err != nil {
		return false, w.outboxRepo.MarkFailed(ctx, job.ID, "invalid_payload")
	}
	if env.Event != job.Topic || env.Fingerprint == "" {
		return false, w.outboxRepo.MarkFailed(ctx, job.ID, "event_mismatch")
	}

	if err := w.publisher.Publish(ctx, job.Topic, job.Payload); err != nil {
		return false, w.handleJobError(ctx, job, err)
	}
	return true, w.outboxRepo.MarkDone(ctx, job.ID)
}

func (w *Worker) handleJobError(ctx context.Context, job OutboxJob, err error) error {
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "canceled"
	}
	if job.Attempts >= w.maxAttempts {
		return w.outboxRepo.MarkFailed(ctx, job.ID, fmt.Sprintf("max_attempts: %s", msg))
	}
	next := w.now().Add(w.retryBackoff(job.Attempts))
	return w.outboxRepo.MarkRetry(ctx, job.ID, next, msg)
}
