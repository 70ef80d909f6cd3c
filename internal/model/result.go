package model

import (
	"encoding/json"
	"time"
)

// QuizResult is the finalized record of a completed attempt. One per
// (user, quiz) pair; retries update the row in place and increment Attempts.
type QuizResult struct {
	ID            int             `json:"id"`
	UserID        int             `json:"user_id"`
	QuizID        string          `json:"quiz_id"`
	Results       json.RawMessage `json:"results"` // per-question correctness breakdown
	Attempts      int             `json:"attempts"`
	CompletedAt   time.Time       `json:"completed_at"`
	AverageScore  float64         `json:"average_score"`
	TotalScore    float64         `json:"total_score"`
	CorrectCount  int             `json:"correct_count"`
	AutoSaved     bool            `json:"auto_saved"`
	TimeExpired   bool            `json:"time_expired"`
	ConfettiShown bool            `json:"confetti_shown"`
}

// ResultRow joins a result with student and quiz display fields for listings.
type ResultRow struct {
	QuizResult
	StudentName string `json:"name"`
	QuizTitle   string `json:"quiz_title"`
}

// QuizStats aggregates results per quiz for the admin dashboard.
type QuizStats struct {
	QuizID         string   `json:"quiz_id"`
	QuizTitle      string   `json:"quiz_title"`
	TotalAttempts  int      `json:"total_attempts"`
	UniqueStudents int      `json:"unique_students"`
	AverageScore   *float64 `json:"average_score"`
}
