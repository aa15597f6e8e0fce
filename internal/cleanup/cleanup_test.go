package cleanup

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/blob"
	"virtualboard/internal/queue"
)

func put(t *testing.T, m *blob.Memory, name string) string {
	t.Helper()
	obj, err := m.Put(context.Background(), "materials", blob.Upload{Filename: name, Body: strings.NewReader(name)})
	require.NoError(t, err)
	return obj.URL
}

func drainJobs(t *testing.T, q *queue.InMemory) []Job {
	t.Helper()
	msgs, err := q.Drain(context.Background(), 100)
	require.NoError(t, err)
	jobs := make([]Job, 0, len(msgs))
	for _, m := range msgs {
		var j Job
		require.NoError(t, m.Decode(&j))
		jobs = append(jobs, j)
	}
	return jobs
}

func TestReclaimDeletesInline(t *testing.T) {
	m := blob.NewMemory()
	q := queue.NewInMemory(8)
	s := NewScheduler(m, q, zerolog.Nop())

	u := put(t, m, "a.pdf")
	s.Reclaim(context.Background(), "material", u, "default-avatar.png", "")

	assert.False(t, m.Has(u))
	assert.Zero(t, q.Len())
}

func TestReclaimQueuesFailures(t *testing.T) {
	m := blob.NewMemory()
	q := queue.NewInMemory(8)
	s := NewScheduler(m, q, zerolog.Nop())

	u := put(t, m, "a.pdf")
	m.FailDeletes = true
	s.Reclaim(context.Background(), "material", u, "https://elsewhere.example/x.png")

	jobs := drainJobs(t, q)
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{u}, jobs[0].URLs)
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.Equal(t, "material", jobs[0].Reason)
}

func TestWorkerRetriesThenParks(t *testing.T) {
	ctx := context.Background()
	m := blob.NewMemory()
	q := queue.NewInMemory(8)
	parked := queue.NewInMemory(8)
	w := NewWorker(m, q, parked, WorkerOptions{MaxAttempts: 3}, zerolog.Nop())

	u := put(t, m, "a.pdf")
	m.FailDeletes = true

	msg, err := queue.NewMessage(MessageType, Job{URLs: []string{u}, Attempts: 1})
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, msg))

	retried := drainJobs(t, q)
	require.Len(t, retried, 1)
	assert.Equal(t, 2, retried[0].Attempts)

	msg, err = queue.NewMessage(MessageType, retried[0])
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, msg))
	assert.Zero(t, q.Len())
	assert.Equal(t, 1, parked.Len())

	// the store recovers; the cron requeue puts the job back with a fresh budget
	m.FailDeletes = false
	moved, err := w.Requeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	requeued := drainJobs(t, q)
	require.Len(t, requeued, 1)
	assert.Zero(t, requeued[0].Attempts)

	msg, err = queue.NewMessage(MessageType, requeued[0])
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, msg))
	assert.False(t, m.Has(u))
}

func TestWorkerDropsForeignURLs(t *testing.T) {
	m := blob.NewMemory()
	q := queue.NewInMemory(8)
	parked := queue.NewInMemory(8)
	w := NewWorker(m, q, parked, WorkerOptions{}, zerolog.Nop())

	msg, err := queue.NewMessage(MessageType, Job{URLs: []string{"/uploads/x.png"}})
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), msg))
	assert.Zero(t, q.Len())
	assert.Zero(t, parked.Len())
}

func TestWorkerRunConsumesQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := blob.NewMemory()
	q := queue.NewInMemory(8)
	w := NewWorker(m, q, queue.NewInMemory(8), WorkerOptions{}, zerolog.Nop())
	s := NewScheduler(m, q, zerolog.Nop())

	u := put(t, m, "b.mp4")
	require.NoError(t, s.Enqueue(ctx, Job{URLs: []string{u}, Reason: "recording"}))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return !m.Has(u) }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartRequeueRejectsBadSpec(t *testing.T) {
	w := NewWorker(blob.NewMemory(), queue.NewInMemory(1), queue.NewInMemory(1), WorkerOptions{}, zerolog.Nop())
	_, err := w.StartRequeue(context.Background(), "not a schedule")
	assert.Error(t, err)
}

func TestFullQueueNeverBlocksReclaim(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := blob.NewMemory()
	q := queue.NewInMemory(4)
	parked := queue.NewInMemory(4)
	w := NewWorker(m, q, parked, WorkerOptions{MaxAttempts: 3, PublishTimeout: 20 * time.Millisecond}, zerolog.Nop())
	s := NewScheduler(m, q, zerolog.Nop())
	s.timeout = 20 * time.Millisecond

	var urls []string
	for i := 0; i < 20; i++ {
		urls = append(urls, put(t, m, "outage.pdf"))
	}
	m.FailDeletes = true

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	reclaimed := make(chan struct{})
	go func() {
		defer close(reclaimed)
		for _, u := range urls {
			s.Reclaim(ctx, "material", u)
		}
	}()
	select {
	case <-reclaimed:
	case <-time.After(3 * time.Second):
		t.Fatalf("Reclaim blocked with %d buffered jobs", q.Len())
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestEnqueueTimesOutOnFullQueue(t *testing.T) {
	q := queue.NewInMemory(1)
	s := NewScheduler(blob.NewMemory(), q, zerolog.Nop())
	s.timeout = 10 * time.Millisecond

	require.NoError(t, s.Enqueue(context.Background(), Job{URLs: []string{"mem://a"}}))
	err := s.Enqueue(context.Background(), Job{URLs: []string{"mem://b"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.Len())
}

func TestRetryDelayDefersRepublish(t *testing.T) {
	ctx := context.Background()
	m := blob.NewMemory()
	q := queue.NewInMemory(4)
	w := NewWorker(m, q, queue.NewInMemory(4), WorkerOptions{MaxAttempts: 5, RetryDelay: 30 * time.Millisecond}, zerolog.Nop())

	u := put(t, m, "slow.pdf")
	m.FailDeletes = true
	msg, err := queue.NewMessage(MessageType, Job{URLs: []string{u}, Attempts: 1})
	require.NoError(t, err)

	require.NoError(t, w.Handle(ctx, msg))
	assert.Zero(t, q.Len())
	assert.Eventually(t, func() bool { return q.Len() == 1 }, time.Second, 5*time.Millisecond)
}
