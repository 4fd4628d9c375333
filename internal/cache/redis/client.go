// Package redis caches formatted answers so repeated questions skip
// the completion call.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lawbot/backend/internal/chat"
	"github.com/lawbot/backend/pkg/logger"
)

type Client struct {
	client    *redis.Client
	answerTTL time.Duration
}

func NewClient(host string, port int, password string, db int, answerTTL time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, answerTTL: answerTTL}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetAnswer caches one formatted answer under the question digest.
func (c *Client) SetAnswer(ctx context.Context, questionHash string, answer chat.CachedAnswer) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}

	err = c.client.Set(ctx, answerKey(questionHash), data, c.answerTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set answer cache: %w", err)
	}

	logger.Debug("Answer cached", zap.String("question_hash", questionHash), zap.Duration("ttl", c.answerTTL))
	return nil
}

// GetAnswer returns the cached answer or nil on a miss.
func (c *Client) GetAnswer(ctx context.Context, questionHash string) (*chat.CachedAnswer, error) {
	data, err := c.client.Get(ctx, answerKey(questionHash)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get answer cache: %w", err)
	}

	var answer chat.CachedAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answer: %w", err)
	}

	logger.Debug("Answer cache hit", zap.String("question_hash", questionHash))
	return &answer, nil
}

// InvalidateAnswers drops every cached answer. Called after a content
// refresh so answers never cite stale documents.
func (c *Client) InvalidateAnswers(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "answer:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Answer cache invalidated")
	return nil
}

func answerKey(questionHash string) string {
	return "answer:" + questionHash
}
