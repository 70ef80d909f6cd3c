package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/quizhall/quizhall-backend/internal/config"
	"github.com/quizhall/quizhall-backend/internal/model"
	"github.com/quizhall/quizhall-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// quizCacheTTL bounds staleness after a re-import of quiz files.
const quizCacheTTL = 60 * time.Second

// QuizService serves quiz definitions through a Redis read-through cache.
// Quizzes are immutable at runtime, so a short TTL is the only invalidation.
type QuizService struct {
	quizzes *repository.QuizRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizzes *repository.QuizRepository, rdb *redis.Client, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizzes: quizzes,
		rdb:     rdb,
		log:     log.With().Str("component", "quiz_service").Logger(),
	}
}

// GetByID returns a fully parsed quiz, from cache when possible.
// Returns repository.ErrNotFound for unknown ids.
func (s *QuizService) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	key := config.CacheKey.QuizPayloadKey(id)

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var quiz model.Quiz
		if jsonErr := json.Unmarshal([]byte(cached), &quiz); jsonErr == nil {
			return &quiz, nil
		}
		// Unreadable cache entry; fall through and rewrite it.
		s.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("quiz_id", id).Msg("Quiz cache read failed")
	}

	quiz, err := s.quizzes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, marshalErr := json.Marshal(quiz); marshalErr == nil {
		if cacheErr := s.rdb.Set(ctx, key, raw, quizCacheTTL).Err(); cacheErr != nil {
			s.log.Warn().Err(cacheErr).Str("quiz_id", id).Msg("Quiz cache write failed")
		}
	}
	return quiz, nil
}

// List returns summaries of every quiz in the catalog.
func (s *QuizService) List(ctx context.Context) ([]model.QuizSummary, error) {
	summaries, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []model.QuizSummary{}
	}
	return summaries, nil
}

// GetInfo returns the list-view projection of one quiz.
func (s *QuizService) GetInfo(ctx context.Context, id string) (*model.QuizSummary, error) {
	quiz, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := quiz.Summary()
	return &summary, nil
}
