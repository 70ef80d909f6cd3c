// Package scoring grades a question set against submitted answers. It is a
// pure function of its inputs: no storage, no clock, no randomness, so a
// finalized attempt can be re-scored at any time with identical output.
package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/quizhall/quizhall-backend/internal/model"
)

// Policy selects how matching questions are graded.
type Policy string

const (
	// PolicyAllOrNothing counts a matching question as correct only when every
	// left-column index maps to the answer key's right-column index.
	PolicyAllOrNothing Policy = "all_or_nothing"
	// PolicyPartialCredit awards 100 * correctPairs / totalPairs points per
	// matching question instead of a binary 0 or 100.
	PolicyPartialCredit Policy = "partial_credit"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAllOrNothing, PolicyPartialCredit:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown scoring policy %q", s)
}

// PointsPerQuestion is the value of one fully correct answer.
const PointsPerQuestion = 100

// QuestionResult is the graded outcome of a single question.
type QuestionResult struct {
	QuestionID    string          `json:"id"`
	Prompt        string          `json:"question"`
	Submitted     json.RawMessage `json:"userAnswer,omitempty"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	Correct       bool            `json:"correct"`
}

// Summary aggregates the graded outcome of a whole attempt.
type Summary struct {
	Results      []QuestionResult `json:"results"`
	CorrectCount int              `json:"correctCount"`
	TotalScore   float64          `json:"totalScore"`
	AverageScore float64          `json:"averageScore"`
}

// Score grades questions against answers. Questions missing from the answers
// map are incorrect, never an error. Submitted values that fail to decode into
// the shape the question type expects are treated as incorrect as well.
func Score(questions []model.Question, answers map[string]json.RawMessage, policy Policy) Summary {
	summary := Summary{Results: make([]QuestionResult, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		submitted, answered := answers[q.ID]

		var correct bool
		var points float64

		if answered {
			switch q.Type {
			case model.QuestionTypeMultipleChoice:
				correct = gradeExact(q.Answer, submitted)
				if correct {
					points = PointsPerQuestion
				}
			case model.QuestionTypeMatching:
				correct, points = gradeMatching(q.Answer, submitted, policy)
			case model.QuestionTypeText:
				correct = gradeText(q.Answer, submitted)
				if correct {
					points = PointsPerQuestion
				}
			}
		}

		if correct {
			summary.CorrectCount++
		}
		summary.TotalScore += points

		summary.Results = append(summary.Results, QuestionResult{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			Submitted:     submitted,
			CorrectAnswer: q.Answer,
			Correct:       correct,
		})
	}

	if len(questions) > 0 {
		summary.AverageScore = summary.TotalScore / float64(len(questions))
	}
	return summary
}

// gradeExact compares two JSON strings byte-for-byte after decoding.
// Case matters for multiple choice: the submitted value must equal the
// option string exactly.
func gradeExact(key, submitted json.RawMessage) bool {
	want, ok := decodeString(key)
	if !ok {
		return false
	}
	got, ok := decodeString(submitted)
	return ok && got == want
}

// gradeText compares trimmed, lowercased strings.
func gradeText(key, submitted json.RawMessage) bool {
	want, ok := decodeString(key)
	if !ok {
		return false
	}
	got, ok := decodeString(submitted)
	if !ok {
		return false
	}
	return normalizeText(got) == normalizeText(want)
}

// gradeMatching counts correct pairs over the answer key's key set and applies
// the policy. The Correct flag is all-or-nothing under both policies; the
// policy only changes the points awarded.
func gradeMatching(key, submitted json.RawMessage, policy Policy) (bool, float64) {
	want, ok := decodeMapping(key)
	if !ok {
		return false, 0
	}
	got, _ := decodeMapping(submitted)

	total := len(want)
	correctPairs := 0
	for left, right := range want {
		if got[left] == right {
			correctPairs++
		}
	}

	correct := correctPairs == total
	switch {
	case policy == PolicyPartialCredit && total > 0:
		return correct, PointsPerQuestion * float64(correctPairs) / float64(total)
	case correct:
		return true, PointsPerQuestion
	default:
		return false, 0
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeMapping accepts both {"0":"1"} and {"0":1} shapes, since stored quiz
// files are not consistent about index types.
func decodeMapping(raw json.RawMessage) (map[string]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatInt(int64(val), 10)
		default:
			return nil, false
		}
	}
	return out, true
}
