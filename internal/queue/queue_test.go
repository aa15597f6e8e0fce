package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	URLs []string `json:"urls"`
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewMessage("blob.delete", payload{URLs: []string{"mem://a"}})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, "blob.delete", got.Type)
		var p payload
		require.NoError(t, got.Decode(&p))
		assert.Equal(t, []string{"mem://a"}, p.URLs)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestInMemoryDrain(t *testing.T) {
	ctx := context.Background()
	q := NewInMemory(8)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Publish(ctx, Message{Type: "x"}))
	}

	got, err := q.Drain(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, q.Len())

	got, err = q.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Zero(t, q.Len())
}

func TestPublishRespectsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: "x"}), context.DeadlineExceeded)
}
