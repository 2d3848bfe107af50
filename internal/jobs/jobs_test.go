// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJob(t *testing.T) {
	q := New(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan struct{})
	id, err := q.Submit("ingest", func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestSubmitFailsWhenFull(t *testing.T) {
	q := New(1, nil)
	// Worker not started, so the single slot fills and stays full.
	_, err := q.Submit("first", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	_, err = q.Submit("second", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestJobsRunSequentially(t *testing.T) {
	q := New(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var running atomic.Int32
	var overlapped atomic.Bool
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		_, err := q.Submit("work", func(ctx context.Context) error {
			if running.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			done <- struct{}{}
			return nil
		})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("jobs did not complete")
		}
	}
	assert.False(t, overlapped.Load(), "worker must run one job at a time")
}

func TestFailedJobDoesNotStopWorker(t *testing.T) {
	q := New(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	_, err := q.Submit("broken", func(ctx context.Context) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	done := make(chan struct{})
	_, err = q.Submit("next", func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker stopped after a failed job")
	}
}

func TestStopDrainsQueuedJobs(t *testing.T) {
	q := New(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := q.Submit("queued", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	q.Start(ctx)
	q.Stop()
	q.Wait()

	assert.Equal(t, int32(3), ran.Load())

	_, err := q.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCancelStopsWorker(t *testing.T) {
	q := New(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	started := make(chan struct{})
	_, err := q.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	<-started
	cancel()
	q.Wait()
}
