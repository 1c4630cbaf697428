package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrdering(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q.Push(ctx, OperationalMessage{Kind: NewLocalFile, RelativePath: RelativePath(string(rune('a' + i)))})
	}

	for i := 0; i < 5; i++ {
		msg, ok := q.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, RelativePath(string(rune('a'+i))), msg.RelativePath)
	}
}

func TestQueue_NextUnblocksOnContextCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Next(ctx)
	assert.False(t, ok)
}

func TestQueue_PushUnblocksOnContextCancelWhenFull(t *testing.T) {
	q := &Queue{ch: make(chan OperationalMessage)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Push(ctx, OperationalMessage{Kind: NewLocalFile, RelativePath: "a.txt"})
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push did not unblock on context cancellation")
	}
}
