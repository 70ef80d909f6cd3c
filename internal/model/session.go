package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuizSession is a student's in-progress attempt at a quiz. There is at most
// one per (user, quiz) pair, enforced by a unique constraint.
//
// Questions holds a value snapshot of the assigned question subset taken at
// creation time, so quiz edits never affect a running attempt. Answers maps
// question id to the submitted value (last write wins per question).
type QuizSession struct {
	ID        uuid.UUID       `json:"id"`
	UserID    int             `json:"user_id"`
	QuizID    string          `json:"quiz_id"`
	StartedAt time.Time       `json:"started_at"`
	Questions json.RawMessage `json:"questions"`
	Answers   json.RawMessage `json:"answers"`
}

// SaveAnswerRequest is the payload for saving one in-progress answer.
type SaveAnswerRequest struct {
	QuestionID string          `json:"questionId" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
}

// SubmitRequest is the payload for finishing an attempt. Answers maps
// question id to the submitted value.
type SubmitRequest struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

// QuestionSnapshot decodes the question subset assigned to this session.
func (s *QuizSession) QuestionSnapshot() ([]Question, error) {
	var questions []Question
	if err := json.Unmarshal(s.Questions, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// AnswerMap decodes the stored answers. An empty or null column yields an
// empty map rather than an error.
func (s *QuizSession) AnswerMap() (map[string]json.RawMessage, error) {
	if len(s.Answers) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var answers map[string]json.RawMessage
	if err := json.Unmarshal(s.Answers, &answers); err != nil {
		return nil, err
	}
	if answers == nil {
		answers = map[string]json.RawMessage{}
	}
	return answers, nil
}
