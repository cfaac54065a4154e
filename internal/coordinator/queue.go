package coordinator

import (
	"context"
	"sync"
)

type job struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	done chan struct{}
}

// laneQueue runs jobs one at a time per key. Different keys run in parallel.
// Lanes are created lazily and live until close.
type laneQueue struct {
	mu     sync.Mutex
	lanes  map[string]chan job
	quit   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func newLaneQueue() *laneQueue {
	return &laneQueue{
		lanes: make(map[string]chan job),
		quit:  make(chan struct{}),
	}
}

// do runs fn on the lane for key and waits for it to finish.
func (q *laneQueue) do(ctx context.Context, key string, fn func(ctx context.Context)) error {
	lane, err := q.lane(key)
	if err != nil {
		return err
	}

	j := job{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case lane <- j:
	case <-q.quit:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *laneQueue) lane(key string) (chan job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	lane, ok := q.lanes[key]
	if !ok {
		lane = make(chan job)
		q.lanes[key] = lane
		q.wg.Add(1)
		go q.run(lane)
	}
	return lane, nil
}

func (q *laneQueue) run(lane chan job) {
	defer q.wg.Done()
	for {
		select {
		case j := <-lane:
			// Runs to completion even if the caller stopped waiting.
			j.fn(j.ctx)
			close(j.done)
		case <-q.quit:
			return
		}
	}
}

// close stops accepting jobs and waits for running ones to finish.
func (q *laneQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()
	q.wg.Wait()
}
