// Package redis provides a Redis-list-backed task queue for deployments
// where the API and workers run in separate processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/excelltechsh/siteaudit/internal/audit"
)

// Queue pushes JSON-encoded tasks onto a Redis list and pops them with a
// blocking read.
type Queue struct {
	client *redis.Client
	key    string
}

// NewQueue constructs a Queue over an existing client.
func NewQueue(client *redis.Client, key string) *Queue {
	if key == "" {
		key = "siteaudit:tasks"
	}
	return &Queue{
		client: client,
		key:    key,
	}
}

// Enqueue pushes a task onto the left side of the list.
func (q *Queue) Enqueue(ctx context.Context, task audit.Task) error {
	payload, err := EncodeTask(task)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush task: %w", err)
	}
	return nil
}

// Dequeue blocks until a task is available on the right side of the list or
// the context ends.
func (q *Queue) Dequeue(ctx context.Context) (audit.Task, error) {
	res, err := q.client.BRPop(ctx, 0, q.key).Result()
	if err != nil {
		return audit.Task{}, fmt.Errorf("brpop task: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return audit.Task{}, fmt.Errorf("unexpected brpop reply length %d", len(res))
	}
	return DecodeTask([]byte(res[1]))
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// EncodeTask marshals a task for the wire.
func EncodeTask(task audit.Task) ([]byte, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return payload, nil
}

// DecodeTask unmarshals a task off the wire.
func DecodeTask(payload []byte) (audit.Task, error) {
	var task audit.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return audit.Task{}, fmt.Errorf("unmarshal task: %w", err)
	}
	return task, nil
}
