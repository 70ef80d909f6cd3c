package scoring

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/quizhall/quizhall-backend/internal/model"
)

func raw(s string) json.RawMessage {
	return json.RawMessage(s)
}

func mcQuestion(id, answer string, options ...string) model.Question {
	return model.Question{
		ID:      id,
		Prompt:  "pick one",
		Type:    model.QuestionTypeMultipleChoice,
		Options: options,
		Answer:  raw(`"` + answer + `"`),
	}
}

func TestScoreMultipleChoice(t *testing.T) {
	questions := []model.Question{mcQuestion("q1", "B", "A", "B", "C")}

	tests := []struct {
		name      string
		submitted json.RawMessage
		correct   bool
	}{
		{"exact match", raw(`"B"`), true},
		{"case sensitive", raw(`"b"`), false},
		{"wrong option", raw(`"A"`), false},
		{"not a string", raw(`{"x":1}`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := map[string]json.RawMessage{"q1": tt.submitted}
			got := Score(questions, answers, PolicyAllOrNothing)
			if got.Results[0].Correct != tt.correct {
				t.Errorf("correct = %v, want %v", got.Results[0].Correct, tt.correct)
			}
		})
	}
}

func TestScoreMatchingAllOrNothing(t *testing.T) {
	questions := []model.Question{{
		ID:          "m1",
		Prompt:      "match",
		Type:        model.QuestionTypeMatching,
		LeftColumn:  []string{"a", "b"},
		RightColumn: []string{"x", "y"},
		Answer:      raw(`{"0":"1","1":"0"}`),
	}}

	tests := []struct {
		name      string
		submitted json.RawMessage
		correct   bool
	}{
		{"all pairs correct", raw(`{"0":"1","1":"0"}`), true},
		{"partial submission", raw(`{"0":"1"}`), false},
		{"one pair wrong", raw(`{"0":"1","1":"1"}`), false},
		{"numeric indexes accepted", raw(`{"0":1,"1":0}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := map[string]json.RawMessage{"m1": tt.submitted}
			got := Score(questions, answers, PolicyAllOrNothing)
			if got.Results[0].Correct != tt.correct {
				t.Errorf("correct = %v, want %v", got.Results[0].Correct, tt.correct)
			}
			wantScore := 0.0
			if tt.correct {
				wantScore = 100
			}
			if got.TotalScore != wantScore {
				t.Errorf("totalScore = %v, want %v", got.TotalScore, wantScore)
			}
		})
	}
}

func TestScoreMatchingPartialCredit(t *testing.T) {
	questions := []model.Question{{
		ID:     "m1",
		Prompt: "match",
		Type:   model.QuestionTypeMatching,
		Answer: raw(`{"0":"1","1":"0","2":"2","3":"3"}`),
	}}
	answers := map[string]json.RawMessage{"m1": raw(`{"0":"1","1":"0","2":"0","3":"0"}`)}

	got := Score(questions, answers, PolicyPartialCredit)
	if got.TotalScore != 50 {
		t.Errorf("totalScore = %v, want 50", got.TotalScore)
	}
	if got.Results[0].Correct {
		t.Error("partially correct matching must not count as correct")
	}
	if got.CorrectCount != 0 {
		t.Errorf("correctCount = %d, want 0", got.CorrectCount)
	}
}

func TestScoreText(t *testing.T) {
	questions := []model.Question{{
		ID:     "t1",
		Prompt: "capital of France",
		Type:   model.QuestionTypeText,
		Answer: raw(`"Paris"`),
	}}

	tests := []struct {
		name      string
		submitted json.RawMessage
		correct   bool
	}{
		{"exact", raw(`"Paris"`), true},
		{"case insensitive", raw(`"pArIs"`), true},
		{"surrounding whitespace", raw(`"  paris  "`), true},
		{"wrong answer", raw(`"Lyon"`), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := map[string]json.RawMessage{"t1": tt.submitted}
			got := Score(questions, answers, PolicyAllOrNothing)
			if got.Results[0].Correct != tt.correct {
				t.Errorf("correct = %v, want %v", got.Results[0].Correct, tt.correct)
			}
		})
	}
}

func TestScoreUnanswered(t *testing.T) {
	questions := []model.Question{
		mcQuestion("q1", "A", "A", "B"),
		{ID: "t1", Type: model.QuestionTypeText, Answer: raw(`"x"`)},
		{ID: "m1", Type: model.QuestionTypeMatching, Answer: raw(`{"0":"0"}`)},
	}

	got := Score(questions, map[string]json.RawMessage{}, PolicyAllOrNothing)
	if got.CorrectCount != 0 {
		t.Errorf("correctCount = %d, want 0", got.CorrectCount)
	}
	if got.TotalScore != 0 {
		t.Errorf("totalScore = %v, want 0", got.TotalScore)
	}
	if len(got.Results) != 3 {
		t.Fatalf("results length = %d, want 3", len(got.Results))
	}
	for _, r := range got.Results {
		if r.Correct {
			t.Errorf("unanswered question %s marked correct", r.QuestionID)
		}
	}
}

func TestScoreAggregates(t *testing.T) {
	questions := []model.Question{
		mcQuestion("q1", "A", "A", "B"),
		mcQuestion("q2", "B", "A", "B"),
		mcQuestion("q3", "A", "A", "B"),
		mcQuestion("q4", "B", "A", "B"),
	}
	answers := map[string]json.RawMessage{
		"q1": raw(`"A"`),
		"q2": raw(`"B"`),
		"q3": raw(`"B"`),
		"q4": raw(`"A"`),
	}

	got := Score(questions, answers, PolicyAllOrNothing)
	if got.CorrectCount != 2 {
		t.Errorf("correctCount = %d, want 2", got.CorrectCount)
	}
	if got.TotalScore != 200 {
		t.Errorf("totalScore = %v, want 200", got.TotalScore)
	}
	if got.AverageScore != 50 {
		t.Errorf("averageScore = %v, want 50", got.AverageScore)
	}
}

func TestScoreEmptyQuestionSet(t *testing.T) {
	got := Score(nil, map[string]json.RawMessage{"q1": raw(`"A"`)}, PolicyAllOrNothing)
	if got.AverageScore != 0 || got.TotalScore != 0 || got.CorrectCount != 0 {
		t.Errorf("empty question set must score zero, got %+v", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	questions := []model.Question{
		mcQuestion("q1", "A", "A", "B"),
		{ID: "m1", Prompt: "match", Type: model.QuestionTypeMatching, Answer: raw(`{"0":"1","1":"0"}`)},
		{ID: "t1", Prompt: "text", Type: model.QuestionTypeText, Answer: raw(`"ok"`)},
	}
	answers := map[string]json.RawMessage{
		"q1": raw(`"A"`),
		"m1": raw(`{"0":"1"}`),
	}

	first, err := json.Marshal(Score(questions, answers, PolicyAllOrNothing))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Score(questions, answers, PolicyAllOrNothing))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("score output differs between identical calls:\n%s\n%s", first, second)
	}
}

func TestParsePolicy(t *testing.T) {
	if _, err := ParsePolicy("all_or_nothing"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParsePolicy("partial_credit"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParsePolicy("half_points"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
