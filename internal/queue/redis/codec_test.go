// Package redis_test contains unit tests for the Redis task queue codec.
package redis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelltechsh/siteaudit/internal/audit"
	redisqueue "github.com/excelltechsh/siteaudit/internal/queue/redis"
)

func TestTaskCodec(t *testing.T) {
	t.Parallel()

	task := audit.Task{
		Kind:         audit.TaskCrawl,
		ScanID:       "scan-1",
		URL:          "https://example.com",
		SelectedURLs: []string{"https://example.com/about"},
		IsSelective:  true,
		Submitted:    1748779200,
	}

	payload, err := redisqueue.EncodeTask(task)
	require.NoError(t, err)

	got, err := redisqueue.DecodeTask(payload)
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestDecodeTaskRejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := redisqueue.DecodeTask([]byte("not json"))
	require.Error(t, err)
}
