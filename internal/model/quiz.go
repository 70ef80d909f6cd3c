package model

import (
	"time"
)

// QuizSettings controls how a quiz is administered.
type QuizSettings struct {
	// TimeLimitMinutes is nil for untimed quizzes. An untimed session never expires.
	TimeLimitMinutes *int `json:"timeLimit"`
	// MaxAttempts is the number of attempts allowed per student, at least 1.
	MaxAttempts int `json:"maxAttempts"`
	// RandomQuestionsCount is the size of the random subset drawn for each
	// attempt. Zero or anything above the question count means "all questions".
	RandomQuestionsCount int `json:"randomQuestionsCount"`
}

// TimeLimit returns the quiz duration and whether a limit is set.
func (s QuizSettings) TimeLimit() (time.Duration, bool) {
	if s.TimeLimitMinutes == nil || *s.TimeLimitMinutes <= 0 {
		return 0, false
	}
	return time.Duration(*s.TimeLimitMinutes) * time.Minute, true
}

// SubsetSize returns the number of questions to draw for an attempt.
func (s QuizSettings) SubsetSize(total int) int {
	if s.RandomQuestionsCount <= 0 || s.RandomQuestionsCount > total {
		return total
	}
	return s.RandomQuestionsCount
}

// Quiz is a fully parsed quiz definition. Immutable once loaded for the
// lifetime of a request; in-progress attempts work from their own snapshot.
type Quiz struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Settings  QuizSettings `json:"settings"`
	Questions []Question   `json:"questions"`
	CreatedAt time.Time    `json:"created_at"`
}

// QuizSummary is the list-view shape with the question payload omitted.
type QuizSummary struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	TotalQuestions       int    `json:"total_questions"`
	TimeLimitMinutes     *int   `json:"time_limit_minutes"`
	MaxAttempts          int    `json:"max_attempts"`
	RandomQuestionsCount int    `json:"random_questions_count"`
}

// Summary returns the list-view projection of the quiz.
func (q *Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:                   q.ID,
		Title:                q.Title,
		TotalQuestions:       len(q.Questions),
		TimeLimitMinutes:     q.Settings.TimeLimitMinutes,
		MaxAttempts:          q.Settings.MaxAttempts,
		RandomQuestionsCount: q.Settings.RandomQuestionsCount,
	}
}
