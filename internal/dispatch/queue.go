// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueClosed is returned by queue operations after Close.
var ErrQueueClosed = errors.New("queue is closed")

// Queue is a FIFO job queue shared between the dispatcher and the worker.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (Job, error)

	// Len reports the number of jobs waiting.
	Len(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// RedisQueueOptions configures the Redis-backed queue.
type RedisQueueOptions struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string

	// Key is the Redis list holding pending jobs.
	Key string

	// ConnectTimeout is the timeout for establishing a connection.
	ConnectTimeout time.Duration
}

// DefaultRedisQueueOptions returns sensible defaults.
func DefaultRedisQueueOptions() RedisQueueOptions {
	return RedisQueueOptions{
		Key:            "transync:jobs",
		ConnectTimeout: 5 * time.Second,
	}
}

// RedisQueue is a Redis list used as a FIFO queue: LPUSH to enqueue, BRPOP to
// dequeue. It survives process restarts and lets serve and worker run as
// separate processes.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(opts RedisQueueOptions) (*RedisQueue, error) {
	if opts.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	if opts.Key == "" {
		opts.Key = "transync:jobs"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisQueue{client: client, key: opts.Key}, nil
}

// Enqueue implements Queue.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Dequeue implements Queue. BRPOP is issued with a short block timeout so ctx
// cancellation is noticed between polls.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}
		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Job{}, err
		}
		// BRPOP returns [key, value].
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return Job{}, fmt.Errorf("decoding job: %w", err)
		}
		return job, nil
	}
}

// Len implements Queue.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Ping implements Queue.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close implements Queue.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// MemoryQueue is an in-process channel-backed queue. It backs tests and the
// single-process queued mode where the worker runs inside the serve process.
type MemoryQueue struct {
	jobs      chan Job
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue creates a memory queue with the given capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryQueue{
		jobs: make(chan Job, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue implements Queue.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-q.done:
		return Job{}, ErrQueueClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Len implements Queue.
func (q *MemoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

// Ping implements Queue.
func (q *MemoryQueue) Ping(context.Context) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
		return nil
	}
}

// Close implements Queue.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

var (
	_ Queue = (*RedisQueue)(nil)
	_ Queue = (*MemoryQueue)(nil)
)
