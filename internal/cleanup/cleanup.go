// Package cleanup deletes stored blobs whose owning record is gone. Deletes are attempted
// inline first; anything that fails is queued and retried by the Worker, which parks jobs
// that keep failing and periodically requeues the parked ones.
package cleanup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"virtualboard/internal/blob"
	"virtualboard/internal/metrics"
	"virtualboard/internal/queue"
)

// MessageType tags cleanup messages on the queue.
const MessageType = "blob.delete"

// Job is the queued unit of work.
type Job struct {
	URLs     []string `json:"urls"`
	Reason   string   `json:"reason"`
	Attempts int      `json:"attempts"`
	LastErr  string   `json:"lastError,omitempty"`
}

// Scheduler implements blob.Reclaimer.
type Scheduler struct {
	blobs   blob.Store
	q       queue.Queue
	timeout time.Duration
	log     zerolog.Logger
}

// NewScheduler wires a scheduler. q may be nil, in which case failed deletes are only logged.
func NewScheduler(blobs blob.Store, q queue.Queue, log zerolog.Logger) *Scheduler {
	return &Scheduler{blobs: blobs, q: q, timeout: defaultPublishTimeout, log: log}
}

// Reclaim deletes urls now and queues the ones that fail.
func (s *Scheduler) Reclaim(ctx context.Context, reason string, urls ...string) {
	var failed []string
	var lastErr error
	for _, u := range urls {
		if !Managed(u) {
			continue
		}
		err := s.blobs.Delete(ctx, u)
		if errors.Is(err, blob.ErrForeign) {
			s.log.Warn().Str("url", u).Str("reason", reason).Msg("not deleting foreign url")
			continue
		}
		if err != nil {
			failed = append(failed, u)
			lastErr = err
			continue
		}
		metrics.CleanupJobs.WithLabelValues("deleted").Inc()
	}
	if len(failed) == 0 {
		return
	}
	s.log.Warn().Err(lastErr).Strs("urls", failed).Str("reason", reason).Msg("blob delete failed, queueing")
	if err := s.Enqueue(ctx, Job{URLs: failed, Reason: reason, Attempts: 1, LastErr: lastErr.Error()}); err != nil {
		metrics.OrphanedBlobs.WithLabelValues(reason).Add(float64(len(failed)))
		s.log.Error().Err(err).Strs("urls", failed).Str("reason", reason).Msg("cleanup enqueue failed, blobs orphaned")
	}
}

// Enqueue publishes job for the worker. The publish is detached from ctx cancellation so a
// request that has already answered still hands its job over, but it never waits longer than
// the scheduler timeout for room on the queue.
func (s *Scheduler) Enqueue(ctx context.Context, job Job) error {
	if s.q == nil {
		return errNoQueue
	}
	msg, err := queue.NewMessage(MessageType, job)
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	return s.q.Publish(pctx, msg)
}

// Managed reports whether url points at something we stored, as opposed to the default avatar
// or an empty field.
func Managed(url string) bool {
	url = strings.TrimSpace(url)
	return url != "" && strings.Contains(url, "/")
}
