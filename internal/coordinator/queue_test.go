package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaneQueue_SerializesPerKey(t *testing.T) {
	q := newLaneQueue()
	defer q.close()

	var (
		mu      sync.Mutex
		running int
		maxSeen int
	)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.do(context.Background(), "g1", func(ctx context.Context) {
				mu.Lock()
				running++
				if running > maxSeen {
					maxSeen = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestLaneQueue_KeysRunIndependently(t *testing.T) {
	q := newLaneQueue()
	defer q.close()

	release := make(chan struct{})
	blocked := make(chan struct{})
	go func() {
		_ = q.do(context.Background(), "slow", func(ctx context.Context) {
			close(blocked)
			<-release
		})
	}()
	<-blocked

	done := make(chan struct{})
	go func() {
		_ = q.do(context.Background(), "fast", func(ctx context.Context) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a busy guild blocked another guild")
	}
	close(release)
}

func TestLaneQueue_ContextCancelled(t *testing.T) {
	q := newLaneQueue()
	defer q.close()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.do(context.Background(), "g1", func(ctx context.Context) {
			close(started)
			<-release
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.do(ctx, "g1", func(ctx context.Context) {})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestLaneQueue_Closed(t *testing.T) {
	q := newLaneQueue()
	require.NoError(t, q.do(context.Background(), "g1", func(ctx context.Context) {}))

	q.close()
	q.close()

	assert.ErrorIs(t, q.do(context.Background(), "g1", func(ctx context.Context) {}), ErrQueueClosed)
}
