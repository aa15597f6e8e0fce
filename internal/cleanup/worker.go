package cleanup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"virtualboard/internal/blob"
	"virtualboard/internal/metrics"
	"virtualboard/internal/queue"
)

var errNoQueue = errors.New("cleanup: no queue configured")

const defaultPublishTimeout = 2 * time.Second

// Worker consumes cleanup jobs.
type Worker struct {
	blobs       blob.Store
	q           queue.Queue
	parked      ParkingLot
	maxAttempts    int
	retryDelay     time.Duration
	publishTimeout time.Duration
	log            zerolog.Logger

	wg sync.WaitGroup
}

// ParkingLot holds jobs that exhausted their attempts until the next requeue.
type ParkingLot interface {
	queue.Queue
	queue.Drainer
}

// WorkerOptions tune retry behaviour.
type WorkerOptions struct {
	MaxAttempts int
	// RetryDelay is multiplied by the attempt number before a failed job is republished.
	RetryDelay time.Duration
	// PublishTimeout bounds a republish. A job that cannot be handed back in time is dropped
	// and counted as orphaned, so a full queue never stalls the consumer.
	PublishTimeout time.Duration
}

// NewWorker builds a worker reading q and parking into parked.
func NewWorker(blobs blob.Store, q queue.Queue, parked ParkingLot, opts WorkerOptions, log zerolog.Logger) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	return &Worker{
		blobs:          blobs,
		q:              q,
		parked:         parked,
		maxAttempts:    opts.MaxAttempts,
		retryDelay:     opts.RetryDelay,
		publishTimeout: opts.PublishTimeout,
		log:            log,
	}
}

// Run consumes until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.q.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info().Int("maxAttempts", w.maxAttempts).Msg("cleanup worker started")
	for msg := range messages {
		if msg.Type != MessageType {
			w.log.Warn().Str("type", msg.Type).Msg("skipping unknown message")
			continue
		}
		if err := w.Handle(ctx, msg); err != nil {
			w.log.Error().Err(err).Msg("cleanup job failed")
		}
	}
	w.wg.Wait()
	w.log.Info().Msg("cleanup worker stopped")
	return nil
}

// Handle processes one message. Failed urls are retried with a linear backoff, or parked once
// MaxAttempts is reached.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	var job Job
	if err := msg.Decode(&job); err != nil {
		return err
	}

	var failed []string
	var lastErr error
	for _, u := range job.URLs {
		err := w.blobs.Delete(ctx, u)
		switch {
		case err == nil:
			metrics.CleanupJobs.WithLabelValues("deleted").Inc()
		case errors.Is(err, blob.ErrForeign):
			// not ours to delete; retrying never helps
			w.log.Warn().Str("url", u).Msg("dropping foreign url")
		default:
			failed = append(failed, u)
			lastErr = err
		}
	}
	if len(failed) == 0 {
		return nil
	}

	next := Job{URLs: failed, Reason: job.Reason, Attempts: job.Attempts + 1, LastErr: lastErr.Error()}
	if next.Attempts >= w.maxAttempts {
		metrics.CleanupJobs.WithLabelValues("parked").Inc()
		w.log.Error().Err(lastErr).Strs("urls", failed).Int("attempts", next.Attempts).Msg("parking cleanup job")
		return w.handOver(ctx, w.parked, next)
	}

	metrics.CleanupJobs.WithLabelValues("retried").Inc()
	delay := w.retryDelay * time.Duration(next.Attempts)
	if delay <= 0 {
		return w.handOver(ctx, w.q, next)
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-time.After(delay):
			_ = w.handOver(ctx, w.q, next)
		case <-ctx.Done():
			// worker stopping: park so the job survives
			_ = w.handOver(context.WithoutCancel(ctx), w.parked, next)
		}
	}()
	return nil
}

// handOver publishes job within the publish timeout. When the target queue stays full the job is
// dropped and its urls counted as orphaned.
func (w *Worker) handOver(ctx context.Context, q queue.Queue, job Job) error {
	pctx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()
	err := w.publish(pctx, q, job)
	if err != nil {
		metrics.CleanupJobs.WithLabelValues("dropped").Inc()
		metrics.OrphanedBlobs.WithLabelValues(job.Reason).Add(float64(len(job.URLs)))
		w.log.Error().Err(err).Strs("urls", job.URLs).Int("attempts", job.Attempts).Msg("cleanup job dropped, blobs orphaned")
	}
	return err
}

// Requeue moves parked jobs back onto the main queue with a fresh attempt budget.
func (w *Worker) Requeue(ctx context.Context) (int, error) {
	jobs, err := w.parked.Drain(ctx, 100)
	moved := 0
	for _, msg := range jobs {
		var job Job
		if derr := msg.Decode(&job); derr != nil {
			continue
		}
		job.Attempts = 0
		if perr := w.handOver(ctx, w.q, job); perr != nil {
			return moved, perr
		}
		moved++
	}
	if moved > 0 {
		metrics.CleanupJobs.WithLabelValues("requeued").Add(float64(moved))
		w.log.Info().Int("jobs", moved).Msg("requeued parked cleanup jobs")
	}
	return moved, err
}

// StartRequeue runs Requeue on spec (cron syntax, e.g. "@every 10m") until ctx is done.
func (w *Worker) StartRequeue(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := w.Requeue(ctx); err != nil {
			w.log.Error().Err(err).Msg("requeue parked jobs")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}

func (w *Worker) publish(ctx context.Context, q queue.Queue, job Job) error {
	if q == nil {
		return errNoQueue
	}
	msg, err := queue.NewMessage(MessageType, job)
	if err != nil {
		return err
	}
	return q.Publish(ctx, msg)
}
