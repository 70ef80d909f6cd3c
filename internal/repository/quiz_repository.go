package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizhall/quizhall-backend/internal/model"
)

// QuizRepository is the read-only accessor for quiz definitions. Quizzes are
// authored offline and imported with cmd/load-quizzes; the runtime never
// mutates them.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// GetByID retrieves and deep-parses a quiz. Returns ErrNotFound when the id
// is unknown.
func (r *QuizRepository) GetByID(ctx context.Context, id string) (*model.Quiz, error) {
	var (
		quiz         model.Quiz
		settingsRaw  []byte
		questionsRaw []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, settings, questions, created_at
		 FROM quizzes
		 WHERE id = $1`, id,
	).Scan(&quiz.ID, &quiz.Title, &settingsRaw, &questionsRaw, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if err := parseQuiz(&quiz, settingsRaw, questionsRaw); err != nil {
		return nil, fmt.Errorf("parse quiz %s: %w", id, err)
	}
	return &quiz, nil
}

// List retrieves summaries of all quizzes, newest first.
func (r *QuizRepository) List(ctx context.Context) ([]model.QuizSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, settings, questions, created_at
		 FROM quizzes
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.QuizSummary
	for rows.Next() {
		var (
			quiz         model.Quiz
			settingsRaw  []byte
			questionsRaw []byte
		)
		if err := rows.Scan(&quiz.ID, &quiz.Title, &settingsRaw, &questionsRaw, &quiz.CreatedAt); err != nil {
			return nil, err
		}
		if err := parseQuiz(&quiz, settingsRaw, questionsRaw); err != nil {
			// A malformed quiz must not hide the rest of the catalog.
			continue
		}
		summaries = append(summaries, quiz.Summary())
	}
	return summaries, rows.Err()
}

// Upsert inserts or replaces a quiz definition. Used only by the import tool.
func (r *QuizRepository) Upsert(ctx context.Context, quiz *model.Quiz) error {
	settingsRaw, err := json.Marshal(quiz.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	questionsRaw, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO quizzes (id, title, settings, questions)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, settings = EXCLUDED.settings, questions = EXCLUDED.questions`,
		quiz.ID, quiz.Title, settingsRaw, questionsRaw)
	return err
}

// parseQuiz decodes the JSONB columns into typed settings and questions and
// normalizes settings so downstream code never sees maxAttempts < 1.
func parseQuiz(quiz *model.Quiz, settingsRaw, questionsRaw []byte) error {
	if err := json.Unmarshal(settingsRaw, &quiz.Settings); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := json.Unmarshal(questionsRaw, &quiz.Questions); err != nil {
		return fmt.Errorf("questions: %w", err)
	}
	if quiz.Settings.MaxAttempts < 1 {
		quiz.Settings.MaxAttempts = 1
	}
	return nil
}
