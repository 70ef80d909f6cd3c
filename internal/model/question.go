package model

import "encoding/json"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeMatching       QuestionType = "matching"
	QuestionTypeText           QuestionType = "text"
)

// Question is a fully parsed quiz question, including its answer key.
// The answer key never leaves the server; use ForStudent for client payloads.
//
// Answer is a JSON string for multiple_choice and text questions, and a JSON
// object mapping left-column index to right-column index for matching questions.
type Question struct {
	ID          string          `json:"id"`
	Prompt      string          `json:"question"`
	Type        QuestionType    `json:"type"`
	Options     []string        `json:"options,omitempty"`     // multiple_choice only
	LeftColumn  []string        `json:"leftColumn,omitempty"`  // matching only
	RightColumn []string        `json:"rightColumn,omitempty"` // matching only
	Image       string          `json:"image,omitempty"`
	Answer      json.RawMessage `json:"answer"`
}

// StudentQuestion is a question with the answer key stripped.
type StudentQuestion struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"question"`
	Type        QuestionType `json:"type"`
	Options     []string     `json:"options,omitempty"`
	LeftColumn  []string     `json:"leftColumn,omitempty"`
	RightColumn []string     `json:"rightColumn,omitempty"`
	Image       string       `json:"image,omitempty"`
}

// ForStudent returns a copy of the question safe to send to a student.
func (q *Question) ForStudent() StudentQuestion {
	return StudentQuestion{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Type:        q.Type,
		Options:     q.Options,
		LeftColumn:  q.LeftColumn,
		RightColumn: q.RightColumn,
		Image:       q.Image,
	}
}

// MaskQuestions strips the answer key from a question list.
func MaskQuestions(questions []Question) []StudentQuestion {
	masked := make([]StudentQuestion, len(questions))
	for i := range questions {
		masked[i] = questions[i].ForStudent()
	}
	return masked
}
