// Package cache holds the Redis fast path for in-progress attempts: the
// latest answers hash, the attempt start-time cache, and the queue feeding
// the autosave worker.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/quizhall/quizhall-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// AnswerPayload is the persist-queue message consumed by the autosave worker.
type AnswerPayload struct {
	UserID     int             `json:"user_id"`
	QuizID     string          `json:"quiz_id"`
	QuestionID string          `json:"question_id"`
	Value      json.RawMessage `json:"value"`
}

// AnswerCache stores the authoritative latest answers per attempt in a Redis
// hash and queues each write for PostgreSQL persistence.
type AnswerCache struct {
	rdb *redis.Client
}

// NewAnswerCache creates a new AnswerCache.
func NewAnswerCache(rdb *redis.Client) *AnswerCache {
	return &AnswerCache{rdb: rdb}
}

// SaveAnswer records one answer (last write wins per question) and enqueues it
// for the autosave worker.
func (c *AnswerCache) SaveAnswer(ctx context.Context, userID int, quizID, questionID string, value json.RawMessage) error {
	key := config.CacheKey.AttemptAnswersKey(userID, quizID)
	if err := c.rdb.HSet(ctx, key, questionID, string(value)).Err(); err != nil {
		return fmt.Errorf("cache answer: %w", err)
	}

	payload, err := json.Marshal(AnswerPayload{
		UserID:     userID,
		QuizID:     quizID,
		QuestionID: questionID,
		Value:      value,
	})
	if err != nil {
		return err
	}
	if err := c.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue answer: %w", err)
	}
	return nil
}

// GetAll returns every cached answer for the attempt.
func (c *AnswerCache) GetAll(ctx context.Context, userID int, quizID string) (map[string]json.RawMessage, error) {
	key := config.CacheKey.AttemptAnswersKey(userID, quizID)
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get cached answers: %w", err)
	}
	answers := make(map[string]json.RawMessage, len(raw))
	for qid, val := range raw {
		answers[qid] = json.RawMessage(val)
	}
	return answers, nil
}

// Clear removes the attempt's cached answers and start time. Called after an
// attempt is finalized.
func (c *AnswerCache) Clear(ctx context.Context, userID int, quizID string) error {
	return c.rdb.Del(ctx,
		config.CacheKey.AttemptAnswersKey(userID, quizID),
		config.CacheKey.AttemptStartKey(userID, quizID),
	).Err()
}

// SetStart caches the attempt's start time so time checks skip PostgreSQL.
func (c *AnswerCache) SetStart(ctx context.Context, userID int, quizID string, start time.Time) error {
	key := config.CacheKey.AttemptStartKey(userID, quizID)
	return c.rdb.Set(ctx, key, strconv.FormatInt(start.UnixMilli(), 10), 0).Err()
}

// GetStart returns the cached start time, or ok=false on a cache miss so the
// caller can fall back to PostgreSQL and self-heal.
func (c *AnswerCache) GetStart(ctx context.Context, userID int, quizID string) (time.Time, bool, error) {
	key := config.CacheKey.AttemptStartKey(userID, quizID)
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get cached start: %w", err)
	}
	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Unreadable cache entry; treat as a miss so it gets rewritten.
		return time.Time{}, false, nil
	}
	return time.UnixMilli(millis), true, nil
}
