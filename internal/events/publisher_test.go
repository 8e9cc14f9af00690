package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/models"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func values(args *redis.XAddArgs) map[string]interface{} {
	v, _ := args.Values.(map[string]interface{})
	return v
}

func fixedPublisher(client RedisClient, cfg Config) *Publisher {
	p := NewPublisher(client, cfg)
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPublisher_PublishRow(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes row envelope", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		publisher := fixedPublisher(mockRedis, Config{})

		row := models.NewResultRow("run-1", models.ModePLP, "https://site.example/cat/")
		row.Title = "Widget"
		row.Status = models.StatusOK

		var captured *redis.XAddArgs
		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return args.Stream == "scrape:results" &&
				values(args)["type"] == EventRowScraped &&
				values(args)["aggregate_id"] == "run-1" &&
				values(args)["aggregate_type"] == "plp"
		})).Run(func(a mock.Arguments) {
			captured = a.Get(1).(*redis.XAddArgs)
		}).Return(nil)

		require.NoError(t, publisher.PublishRow(ctx, row))
		mockRedis.AssertExpectations(t)

		require.NotNil(t, captured)
		assert.Equal(t, int64(0), captured.MaxLen)

		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(values(captured)["data"].(string)), &envelope))
		assert.Equal(t, "2026-03-01T12:00:00Z", envelope["timestamp"])
		payload := envelope["payload"].(map[string]interface{})
		assert.Equal(t, "Widget", payload["title"])
		assert.Equal(t, "OK", payload["status"])
		assert.Equal(t, values(captured)["event_id"], envelope["id"])
	})

	t.Run("trims stream when configured", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		publisher := fixedPublisher(mockRedis, Config{Stream: "custom", MaxLen: 1000})

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			return args.Stream == "custom" && args.MaxLen == 1000 && args.Approx
		})).Return(nil)

		require.NoError(t, publisher.HandleRow(ctx, models.NewResultRow("run-1", models.ModePDP, "u")))
		mockRedis.AssertExpectations(t)
	})

	t.Run("wraps redis failure", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		publisher := fixedPublisher(mockRedis, Config{})

		mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("redis connection failed"))

		err := publisher.PublishRow(ctx, models.NewResultRow("run-1", models.ModePDP, "u"))
		require.Error(t, err)
		assert.Equal(t, "failed to publish to redis: redis connection failed", err.Error())
	})
}

func TestPublisher_PublishSummary(t *testing.T) {
	ctx := context.Background()
	mockRedis := new(MockRedisClient)
	publisher := fixedPublisher(mockRedis, Config{})

	summary := models.Summary{"pdp": {"OK": 3}, "plp": {}, "total": {"OK": 3}}

	var captured *redis.XAddArgs
	mockRedis.On("XAdd", ctx, mock.Anything).Run(func(a mock.Arguments) {
		captured = a.Get(1).(*redis.XAddArgs)
	}).Return(nil)

	require.NoError(t, publisher.PublishSummary(ctx, "run-9", summary))
	require.NotNil(t, captured)
	assert.Equal(t, EventRunFinished, values(captured)["type"])

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(values(captured)["data"].(string)), &envelope))
	payload := envelope["payload"].(map[string]interface{})
	assert.Equal(t, "run-9", payload["run_id"])
	assert.Equal(t, float64(3), payload["total_rows"])
}

func TestPublisher_Close(t *testing.T) {
	mockRedis := new(MockRedisClient)
	mockRedis.On("Close").Return(nil)

	require.NoError(t, NewPublisher(mockRedis, Config{}).Close())
	mockRedis.AssertExpectations(t)
}
