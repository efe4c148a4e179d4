package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chadd28/hackrice-15-sub000/pkg/logger"
	"github.com/chadd28/hackrice-15-sub000/pkg/utils"
)

// Client is an optional hot cache for evaluation responses, keyed by the
// question and a hash of the candidate answer. Identical answers to the same
// question are common during practice runs; re-scoring them costs an
// embedding call each time.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis response cache initialized",
		zap.String("addr", fmt.Sprintf("%s:%d", host, port)),
		zap.Duration("ttl", ttl),
	)

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ResponseKey derives the cache key for one (question, answer, weights)
// combination. Weights are part of the key so overridden scoring never
// collides with defaults.
func ResponseKey(questionID, answer string, semanticWeight, keywordWeight float64) string {
	payload := fmt.Sprintf("%s|%s|%.3f|%.3f",
		questionID, utils.NormalizeText(answer), semanticWeight, keywordWeight)
	return "eval:" + utils.HashString(payload)
}

func (c *Client) SetResponse(ctx context.Context, key string, response interface{}) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set response cache: %w", err)
	}

	logger.Debug("Evaluation response cached", zap.String("key", key))
	return nil
}

func (c *Client) GetResponse(ctx context.Context, key string, response interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get response cache: %w", err)
	}

	if err := json.Unmarshal(data, response); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Evaluation response cache hit", zap.String("key", key))
	return true, nil
}

// Invalidate drops all cached evaluation responses, for when the question
// bank or scoring config changes.
func (c *Client) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "eval:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Evaluation response cache invalidated")
	return nil
}
