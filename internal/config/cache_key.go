package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserLoginKey returns the cache key for a user's login session
func (r *CacheKeyStruct) UserLoginKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptStartKey returns the cache key for an attempt's start time
func (r *CacheKeyStruct) AttemptStartKey(userID int, quizID string) string {
	return fmt.Sprintf("user:%d:quiz:%s:attempt_start", userID, quizID)
}

// AttemptAnswersKey returns the cache key for an attempt's in-progress answers
func (r *CacheKeyStruct) AttemptAnswersKey(userID int, quizID string) string {
	return fmt.Sprintf("user:%d:quiz:%s:answers", userID, quizID)
}

// QuizPayloadKey returns the cache key for a quiz's parsed definition
func (r *CacheKeyStruct) QuizPayloadKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:payload", quizID)
}

var CacheKey = NewCacheKeyStruct()
