package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueStockAlert = "jobs:stock_alert"

	jobStockAlert = "stock_alert"
	maxAttempts   = 3
)

// retryBackoff is the base delay between attempts; it doubles each time.
var retryBackoff = time.Second

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueStockAlert asks the pool to check the given materials against the
// low-stock threshold.
func (d *Dispatcher) EnqueueStockAlert(ctx context.Context, materialIDs []uuid.UUID, referenceID *uuid.UUID) error {
	p := StockAlertPayload{MaterialIDs: make([]string, len(materialIDs))}
	for i, id := range materialIDs {
		p.MaterialIDs[i] = id.String()
	}
	if referenceID != nil {
		ref := referenceID.String()
		p.ReferenceID = &ref
	}
	return d.enqueue(ctx, QueueStockAlert, jobStockAlert, p)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// JobHandler processes one job payload. A returned error triggers a retry.
type JobHandler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// WorkerHandlers is wired at the composition root.
type WorkerHandlers struct {
	StockAlert JobHandler
}

func (h *WorkerHandlers) lookup(jobType string) JobHandler {
	switch jobType {
	case jobStockAlert:
		return h.StockAlert
	}
	return nil
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueStockAlert}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

// processJob runs the handler up to maxAttempts times with exponential
// backoff, then moves the job to the dead letter queue.
func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, rdb, queue, "unknown", quoted, "malformed job: "+err.Error(), 0)
		return
	}
	h := handlers.lookup(job.Type)
	if h == nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler for job type", 0)
		return
	}

	var err error
	delay := retryBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = h.Process(ctx, job.Payload); err == nil {
			return
		}
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", attempt).Msg("job failed")
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			SendToDLQ(context.Background(), rdb, queue, job.Type, job.Payload, "shutdown during retry: "+err.Error(), attempt)
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
	SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), maxAttempts)
}
