package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizhall/quizhall-backend/internal/model"
)

// ResultRepository persists finalized attempts, one row per (user, quiz).
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Get retrieves the result for a user and quiz.
func (r *ResultRepository) Get(ctx context.Context, userID int, quizID string) (*model.QuizResult, error) {
	res := &model.QuizResult{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, quiz_id, results, attempts, completed_at,
		        average_score, total_score, correct_count,
		        auto_saved, time_expired, confetti_shown
		 FROM quiz_results
		 WHERE user_id = $1 AND quiz_id = $2`, userID, quizID,
	).Scan(&res.ID, &res.UserID, &res.QuizID, &res.Results, &res.Attempts, &res.CompletedAt,
		&res.AverageScore, &res.TotalScore, &res.CorrectCount,
		&res.AutoSaved, &res.TimeExpired, &res.ConfettiShown)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

// Upsert writes a finalized attempt. The first attempt inserts with
// attempts = 1; retries update the row in place and increment the attempts
// counter atomically, so concurrent finalizers cannot double-count. The
// confetti flag resets on every new attempt. Returns the stored attempts
// value and completion time.
func (r *ResultRepository) Upsert(ctx context.Context, res *model.QuizResult) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_results
		   (user_id, quiz_id, results, attempts, average_score, total_score,
		    correct_count, auto_saved, time_expired, confetti_shown)
		 VALUES ($1, $2, $3, 1, $4, $5, $6, $7, $8, FALSE)
		 ON CONFLICT (user_id, quiz_id) DO UPDATE
		 SET results = EXCLUDED.results,
		     attempts = quiz_results.attempts + 1,
		     completed_at = NOW(),
		     average_score = EXCLUDED.average_score,
		     total_score = EXCLUDED.total_score,
		     correct_count = EXCLUDED.correct_count,
		     auto_saved = EXCLUDED.auto_saved,
		     time_expired = EXCLUDED.time_expired,
		     confetti_shown = FALSE
		 RETURNING id, attempts, completed_at`,
		res.UserID, res.QuizID, res.Results, res.AverageScore, res.TotalScore,
		res.CorrectCount, res.AutoSaved, res.TimeExpired,
	).Scan(&res.ID, &res.Attempts, &res.CompletedAt)
}

// MarkConfettiShown flips the confetti flag once the celebration has played.
func (r *ResultRepository) MarkConfettiShown(ctx context.Context, userID int, quizID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_results SET confetti_shown = TRUE
		 WHERE user_id = $1 AND quiz_id = $2`, userID, quizID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByQuiz retrieves all results for one quiz, newest first.
func (r *ResultRepository) ListByQuiz(ctx context.Context, quizID string) ([]model.ResultRow, error) {
	return r.list(ctx,
		`SELECT r.id, r.user_id, r.quiz_id, r.results, r.attempts, r.completed_at,
		        r.average_score, r.total_score, r.correct_count,
		        r.auto_saved, r.time_expired, r.confetti_shown,
		        u.username, q.title
		 FROM quiz_results r
		 JOIN users u ON r.user_id = u.id
		 JOIN quizzes q ON r.quiz_id = q.id
		 WHERE r.quiz_id = $1
		 ORDER BY r.completed_at DESC`, quizID)
}

// ListAll retrieves every result across all quizzes, newest first.
func (r *ResultRepository) ListAll(ctx context.Context) ([]model.ResultRow, error) {
	return r.list(ctx,
		`SELECT r.id, r.user_id, r.quiz_id, r.results, r.attempts, r.completed_at,
		        r.average_score, r.total_score, r.correct_count,
		        r.auto_saved, r.time_expired, r.confetti_shown,
		        u.username, q.title
		 FROM quiz_results r
		 JOIN users u ON r.user_id = u.id
		 JOIN quizzes q ON r.quiz_id = q.id
		 ORDER BY r.completed_at DESC`)
}

// GetByID retrieves one result with display fields for the admin detail view.
func (r *ResultRepository) GetByID(ctx context.Context, id int) (*model.ResultRow, error) {
	row := &model.ResultRow{}
	err := r.pool.QueryRow(ctx,
		`SELECT r.id, r.user_id, r.quiz_id, r.results, r.attempts, r.completed_at,
		        r.average_score, r.total_score, r.correct_count,
		        r.auto_saved, r.time_expired, r.confetti_shown,
		        u.username, q.title
		 FROM quiz_results r
		 JOIN users u ON r.user_id = u.id
		 JOIN quizzes q ON r.quiz_id = q.id
		 WHERE r.id = $1`, id,
	).Scan(&row.ID, &row.UserID, &row.QuizID, &row.Results, &row.Attempts, &row.CompletedAt,
		&row.AverageScore, &row.TotalScore, &row.CorrectCount,
		&row.AutoSaved, &row.TimeExpired, &row.ConfettiShown,
		&row.StudentName, &row.QuizTitle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result by id: %w", err)
	}
	return row, nil
}

// Stats aggregates attempt counts and average scores per quiz.
func (r *ResultRepository) Stats(ctx context.Context) ([]model.QuizStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.title,
		        COALESCE(SUM(r.attempts), 0) AS total_attempts,
		        COUNT(r.id) AS unique_students,
		        AVG(r.average_score) AS average_score
		 FROM quizzes q
		 LEFT JOIN quiz_results r ON r.quiz_id = q.id
		 GROUP BY q.id, q.title
		 ORDER BY q.title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.QuizStats
	for rows.Next() {
		var s model.QuizStats
		if err := rows.Scan(&s.QuizID, &s.QuizTitle, &s.TotalAttempts, &s.UniqueStudents, &s.AverageScore); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *ResultRepository) list(ctx context.Context, query string, args ...any) ([]model.ResultRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ResultRow
	for rows.Next() {
		var row model.ResultRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.QuizID, &row.Results, &row.Attempts, &row.CompletedAt,
			&row.AverageScore, &row.TotalScore, &row.CorrectCount,
			&row.AutoSaved, &row.TimeExpired, &row.ConfettiShown,
			&row.StudentName, &row.QuizTitle); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
