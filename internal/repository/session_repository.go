package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizhall/quizhall-backend/internal/model"
)

// SessionRepository persists in-progress attempts. The (user_id, quiz_id)
// unique constraint guarantees at most one active attempt per pair.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Get retrieves the active session for a user and quiz.
func (r *SessionRepository) Get(ctx context.Context, userID int, quizID string) (*model.QuizSession, error) {
	s := &model.QuizSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, quiz_id, started_at, questions, answers
		 FROM quiz_sessions
		 WHERE user_id = $1 AND quiz_id = $2`, userID, quizID,
	).Scan(&s.ID, &s.UserID, &s.QuizID, &s.StartedAt, &s.Questions, &s.Answers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Create inserts a new session. started_at is assigned by the database so
// every replica agrees on the attempt's start time. A concurrent create for
// the same (user, quiz) pair loses the ON CONFLICT race and gets
// ErrAlreadyExists; callers should re-fetch the winner's row.
func (r *SessionRepository) Create(ctx context.Context, s *model.QuizSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO quiz_sessions (user_id, quiz_id, questions, answers)
		 VALUES ($1, $2, $3, '{}')
		 ON CONFLICT (user_id, quiz_id) DO NOTHING
		 RETURNING id, started_at`,
		s.UserID, s.QuizID, s.Questions,
	).Scan(&s.ID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyExists
	}
	return err
}

// DeleteReturning atomically removes the session and hands its final state to
// the caller. Exactly one of any number of concurrent finalizers gets the row;
// the rest get ErrNotFound and must treat the attempt as already finalized.
func (r *SessionRepository) DeleteReturning(ctx context.Context, userID int, quizID string) (*model.QuizSession, error) {
	s := &model.QuizSession{}
	err := r.pool.QueryRow(ctx,
		`DELETE FROM quiz_sessions
		 WHERE user_id = $1 AND quiz_id = $2
		 RETURNING id, user_id, quiz_id, started_at, questions, answers`,
		userID, quizID,
	).Scan(&s.ID, &s.UserID, &s.QuizID, &s.StartedAt, &s.Questions, &s.Answers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}
	return s, nil
}

// DeleteByID removes a session regardless of its owner. Used to discard
// corrupt records found during the sweep.
func (r *SessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM quiz_sessions WHERE id = $1`, id)
	return err
}

// ListAll retrieves every active session for the expiry sweep.
func (r *SessionRepository) ListAll(ctx context.Context) ([]model.QuizSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, quiz_id, started_at, questions, answers
		 FROM quiz_sessions
		 ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.QuizSession
	for rows.Next() {
		var s model.QuizSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.QuizID, &s.StartedAt, &s.Questions, &s.Answers); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// MergeAnswer upserts one answer into the session's answers map, last write
// wins per question id. Returns ErrNotFound when the session is gone (already
// finalized), so queued writes for dead sessions can be dropped.
func (r *SessionRepository) MergeAnswer(ctx context.Context, userID int, quizID, questionID string, value json.RawMessage) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions
		 SET answers = answers || jsonb_build_object($3::text, $4::jsonb)
		 WHERE user_id = $1 AND quiz_id = $2`,
		userID, quizID, questionID, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
