// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jobs runs background work submitted by the API without blocking
// request handlers. A single worker drains a bounded queue, so at most one
// ingestion runs at a time and bursts of trigger requests are absorbed up
// to the queue capacity.
package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/hagnberger/researchlens/pkg/logger"
)

// ErrQueueFull is returned by Submit when the queue has no free slot.
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Submit after the queue has shut down.
var ErrStopped = errors.New("job queue is stopped")

const defaultQueueSize = 16

// Job is a unit of background work. Name appears in logs only.
type Job struct {
	ID   string
	Name string
	Run  func(ctx context.Context) error
}

// Queue accepts jobs and executes them one at a time on a worker
// goroutine. Submit never blocks.
type Queue struct {
	ch  chan Job
	log *logger.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New builds a queue with the given capacity. A non-positive size falls
// back to the default (16).
func New(size int, log *logger.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Queue{ch: make(chan Job, size), log: log}
}

// Start launches the worker. The worker exits once ctx is cancelled and
// any queued but unstarted jobs are dropped. Call Wait to block until the
// in-flight job has finished.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				q.drain()
				return
			case job, ok := <-q.ch:
				if !ok {
					return
				}
				q.run(ctx, job)
			}
		}
	}()
}

func (q *Queue) run(ctx context.Context, job Job) {
	q.log.Info("job started", "job_id", job.ID, "job", job.Name)
	if err := job.Run(ctx); err != nil {
		q.log.Error("job failed", "job_id", job.ID, "job", job.Name, "error", err)
		return
	}
	q.log.Info("job finished", "job_id", job.ID, "job", job.Name)
}

// Submit enqueues a job and returns its generated id. It fails fast with
// ErrQueueFull when the queue is at capacity and ErrStopped after Stop.
func (q *Queue) Submit(name string, run func(ctx context.Context) error) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return "", ErrStopped
	}
	job := Job{ID: uuid.NewString(), Name: name, Run: run}
	select {
	case q.ch <- job:
		q.log.Info("job queued", "job_id", job.ID, "job", job.Name)
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Stop refuses further submissions and lets the worker finish what is
// already queued. Wait blocks until the worker exits.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	close(q.ch)
}

// Wait blocks until the worker goroutine has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) drain() {
	for {
		select {
		case job, ok := <-q.ch:
			if !ok {
				return
			}
			q.log.Warn("job dropped on shutdown", "job_id", job.ID, "job", job.Name)
		default:
			return
		}
	}
}
