package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/quizhall/quizhall-backend/internal/model"
	"github.com/quizhall/quizhall-backend/internal/repository"
	"github.com/quizhall/quizhall-backend/internal/scoring"
	"github.com/rs/zerolog"
)

// Domain errors surfaced to the handler layer.
var (
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrSessionNotFound   = errors.New("no active session")
	ErrResultNotFound    = errors.New("no result for this quiz")
	ErrAttemptsExhausted = errors.New("maximum attempts reached")
)

// QuizProvider supplies parsed quiz definitions.
type QuizProvider interface {
	GetByID(ctx context.Context, id string) (*model.Quiz, error)
}

// SessionStore persists in-progress attempts. DeleteReturning must be atomic:
// of any number of concurrent callers for the same key, exactly one receives
// the row.
type SessionStore interface {
	Get(ctx context.Context, userID int, quizID string) (*model.QuizSession, error)
	Create(ctx context.Context, s *model.QuizSession) error
	DeleteReturning(ctx context.Context, userID int, quizID string) (*model.QuizSession, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]model.QuizSession, error)
}

// ResultStore persists finalized attempts. Upsert increments the attempts
// counter on conflict and writes the stored counter back into the value.
type ResultStore interface {
	Get(ctx context.Context, userID int, quizID string) (*model.QuizResult, error)
	Upsert(ctx context.Context, res *model.QuizResult) error
	MarkConfettiShown(ctx context.Context, userID int, quizID string) error
}

// AnswerStore is the fast path for in-progress answers and start times.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, userID int, quizID, questionID string, value json.RawMessage) error
	GetAll(ctx context.Context, userID int, quizID string) (map[string]json.RawMessage, error)
	Clear(ctx context.Context, userID int, quizID string) error
	SetStart(ctx context.Context, userID int, quizID string, start time.Time) error
	GetStart(ctx context.Context, userID int, quizID string) (time.Time, bool, error)
}

// AttemptStatus tags the outcome of a question-fetch or submit.
type AttemptStatus string

const (
	AttemptStatusActive    AttemptStatus = "active"
	AttemptStatusCompleted AttemptStatus = "completed"
	AttemptStatusExpired   AttemptStatus = "expired"
)

// TimeCheck reports the remaining time of an attempt. RemainingSeconds and
// TimeLimitSeconds are nil for untimed quizzes and when no session exists.
type TimeCheck struct {
	Expired          bool   `json:"expired"`
	RemainingSeconds *int64 `json:"remaining_seconds,omitempty"`
	TimeLimitSeconds *int64 `json:"time_limit_seconds,omitempty"`
}

// AttemptState is the lifecycle manager's answer to a question-fetch or
// submit: exactly one of the three statuses, with the fields that status needs.
type AttemptState struct {
	Status             AttemptStatus              `json:"status"`
	QuizTitle          string                     `json:"quiz_title"`
	Questions          []model.StudentQuestion    `json:"questions,omitempty"`
	TotalQuestions     int                        `json:"total_questions,omitempty"`
	SavedAnswers       map[string]json.RawMessage `json:"saved_answers,omitempty"`
	StartTimeMillis    int64                      `json:"start_time,omitempty"`
	RemainingSeconds   *int64                     `json:"time_remaining_seconds,omitempty"`
	TimeLimitSeconds   *int64                     `json:"time_limit_seconds,omitempty"`
	Result             *model.QuizResult          `json:"result,omitempty"`
	AttemptsLeft       *int                       `json:"attempts_left,omitempty"`
	MaxAttemptsReached bool                       `json:"max_attempts_reached"`
}

// AttemptService is the session lifecycle manager: it creates and resumes
// attempts, applies the expiry state machine, and finalizes through the
// scoring engine. All state lives in the injected stores; the service itself
// holds no per-attempt state.
type AttemptService struct {
	quizzes  QuizProvider
	sessions SessionStore
	results  ResultStore
	answers  AnswerStore
	policy   scoring.Policy
	log      zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	quizzes QuizProvider,
	sessions SessionStore,
	results ResultStore,
	answers AnswerStore,
	policy scoring.Policy,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		quizzes:  quizzes,
		sessions: sessions,
		results:  results,
		answers:  answers,
		policy:   policy,
		log:      log.With().Str("component", "attempt_service").Logger(),
		now:      time.Now,
	}
}

// computeTimeCheck derives the attempt's time state from the quiz settings and
// the immutable start time. Remaining is floored to whole seconds and reaches
// exactly zero at the deadline; expiry fires at elapsed >= limit. Untimed
// quizzes never expire.
func computeTimeCheck(settings model.QuizSettings, startedAt, now time.Time) TimeCheck {
	limit, ok := settings.TimeLimit()
	if !ok {
		return TimeCheck{}
	}

	elapsed := now.Sub(startedAt)
	remaining := limit - elapsed
	if remaining < 0 {
		remaining = 0
	}
	remainingSec := int64(remaining / time.Second)
	limitSec := int64(limit / time.Second)

	return TimeCheck{
		Expired:          elapsed >= limit,
		RemainingSeconds: &remainingSec,
		TimeLimitSeconds: &limitSec,
	}
}

// GetOrCreateAttempt resumes an active session, reports a finished result, or
// starts a fresh attempt, in that order of precedence. forceNew skips resuming
// and starts over when attempts remain.
func (s *AttemptService) GetOrCreateAttempt(ctx context.Context, userID int, quizID string, forceNew bool) (*AttemptState, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	if !forceNew {
		sess, err := s.sessions.Get(ctx, userID, quizID)
		switch {
		case err == nil:
			state, ok, resumeErr := s.resumeSession(ctx, quiz, sess)
			if resumeErr != nil {
				return nil, resumeErr
			}
			if ok {
				return state, nil
			}
			// Corrupt snapshot was discarded; fall through to a fresh start.
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	prior, err := s.results.Get(ctx, userID, quizID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if prior != nil {
		if prior.Attempts >= quiz.Settings.MaxAttempts {
			return &AttemptState{
				Status:             AttemptStatusCompleted,
				QuizTitle:          quiz.Title,
				Result:             prior,
				MaxAttemptsReached: true,
			}, nil
		}
		if !forceNew {
			left := quiz.Settings.MaxAttempts - prior.Attempts
			return &AttemptState{
				Status:       AttemptStatusCompleted,
				QuizTitle:    quiz.Title,
				Result:       prior,
				AttemptsLeft: &left,
			}, nil
		}
	}

	return s.startAttempt(ctx, quiz, userID)
}

// resumeSession turns an existing session row into an active or expired
// response. ok=false means the row was corrupt and has been removed.
func (s *AttemptService) resumeSession(ctx context.Context, quiz *model.Quiz, sess *model.QuizSession) (*AttemptState, bool, error) {
	snapshot, err := sess.QuestionSnapshot()
	if err != nil {
		s.discardCorrupt(ctx, sess, err)
		return nil, false, nil
	}

	check := computeTimeCheck(quiz.Settings, sess.StartedAt, s.now())
	if check.Expired {
		if _, err := s.FinalizeExpired(ctx, quiz, sess.UserID); err != nil {
			return nil, false, err
		}
		return &AttemptState{Status: AttemptStatusExpired, QuizTitle: quiz.Title}, true, nil
	}

	saved, err := s.mergedAnswers(ctx, sess)
	if err != nil {
		return nil, false, err
	}

	return &AttemptState{
		Status:           AttemptStatusActive,
		QuizTitle:        quiz.Title,
		Questions:        model.MaskQuestions(snapshot),
		TotalQuestions:   len(snapshot),
		SavedAnswers:     saved,
		StartTimeMillis:  sess.StartedAt.UnixMilli(),
		RemainingSeconds: check.RemainingSeconds,
		TimeLimitSeconds: check.TimeLimitSeconds,
	}, true, nil
}

// startAttempt draws the random question subset, snapshots it, and opens the
// session. A concurrent create for the same key resolves by resuming the
// winner's session.
func (s *AttemptService) startAttempt(ctx context.Context, quiz *model.Quiz, userID int) (*AttemptState, error) {
	subset := drawQuestions(quiz.Questions, quiz.Settings.SubsetSize(len(quiz.Questions)))
	snapshotRaw, err := json.Marshal(subset)
	if err != nil {
		return nil, fmt.Errorf("snapshot questions: %w", err)
	}

	sess := &model.QuizSession{
		UserID:    userID,
		QuizID:    quiz.ID,
		Questions: snapshotRaw,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			existing, fetchErr := s.sessions.Get(ctx, userID, quiz.ID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent attempt start, refetch failed: %w", fetchErr)
			}
			state, ok, resumeErr := s.resumeSession(ctx, quiz, existing)
			if resumeErr != nil || !ok {
				return nil, fmt.Errorf("concurrent attempt start, resume failed: %w", resumeErr)
			}
			return state, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.answers.SetStart(ctx, userID, quiz.ID, sess.StartedAt); err != nil {
		// The time-check fast path self-heals from PostgreSQL.
		s.log.Warn().Err(err).Int("user_id", userID).Str("quiz_id", quiz.ID).Msg("Start time cache write failed")
	}

	check := computeTimeCheck(quiz.Settings, sess.StartedAt, s.now())
	return &AttemptState{
		Status:           AttemptStatusActive,
		QuizTitle:        quiz.Title,
		Questions:        model.MaskQuestions(subset),
		TotalQuestions:   len(subset),
		SavedAnswers:     map[string]json.RawMessage{},
		StartTimeMillis:  sess.StartedAt.UnixMilli(),
		RemainingSeconds: check.RemainingSeconds,
		TimeLimitSeconds: check.TimeLimitSeconds,
	}, nil
}

// SaveAnswer records one answer for the active session, last write wins per
// question. The start time and question snapshot are never touched.
func (s *AttemptService) SaveAnswer(ctx context.Context, userID int, quizID, questionID string, value json.RawMessage) error {
	if _, err := s.sessions.Get(ctx, userID, quizID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return s.answers.SaveAnswer(ctx, userID, quizID, questionID, value)
}

// Submit finalizes the active session with the submitted answers. If the time
// limit has passed, the attempt is auto-finalized from the saved answers
// instead and an expired state is returned. Submitting without a session
// scores against the quiz's full question list.
func (s *AttemptService) Submit(ctx context.Context, userID int, quizID string, submitted map[string]json.RawMessage) (*AttemptState, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	prior, err := s.results.Get(ctx, userID, quizID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if prior != nil && prior.Attempts >= quiz.Settings.MaxAttempts {
		return nil, ErrAttemptsExhausted
	}

	questions := quiz.Questions
	sess, err := s.sessions.DeleteReturning(ctx, userID, quizID)
	switch {
	case err == nil:
		check := computeTimeCheck(quiz.Settings, sess.StartedAt, s.now())
		if check.Expired {
			if _, err := s.finalizeSession(ctx, quiz, sess); err != nil {
				return nil, err
			}
			return &AttemptState{Status: AttemptStatusExpired, QuizTitle: quiz.Title}, nil
		}
		if snapshot, snapErr := sess.QuestionSnapshot(); snapErr == nil {
			questions = snapshot
		} else {
			// Row is already gone; grade against the full list like a
			// session-less submit.
			s.log.Error().Err(snapErr).Str("session_id", sess.ID.String()).Msg("Corrupt question snapshot on submit")
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	summary := scoring.Score(questions, submitted, s.policy)
	result, err := s.writeResult(ctx, userID, quiz.ID, summary, false, false)
	if err != nil {
		return nil, err
	}

	state := &AttemptState{
		Status:             AttemptStatusCompleted,
		QuizTitle:          quiz.Title,
		Result:             result,
		MaxAttemptsReached: result.Attempts >= quiz.Settings.MaxAttempts,
	}
	if !state.MaxAttemptsReached {
		left := quiz.Settings.MaxAttempts - result.Attempts
		state.AttemptsLeft = &left
	}
	return state, nil
}

// CheckTime reports the remaining time for the user's attempt, finalizing it
// when the limit has passed. The start time comes from the Redis fast path
// with a PostgreSQL fallback that self-heals the cache.
func (s *AttemptService) CheckTime(ctx context.Context, userID int, quizID string) (*TimeCheck, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	start, ok, err := s.answers.GetStart(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if !ok {
		sess, err := s.sessions.Get(ctx, userID, quizID)
		if errors.Is(err, repository.ErrNotFound) {
			// No active attempt: nothing to time.
			return &TimeCheck{}, nil
		}
		if err != nil {
			return nil, err
		}
		start = sess.StartedAt
		if healErr := s.answers.SetStart(ctx, userID, quizID, start); healErr != nil {
			s.log.Warn().Err(healErr).Int("user_id", userID).Str("quiz_id", quizID).Msg("Start time cache heal failed")
		}
	}

	check := computeTimeCheck(quiz.Settings, start, s.now())
	if check.Expired {
		if _, err := s.FinalizeExpired(ctx, quiz, userID); err != nil {
			return nil, err
		}
	}
	return &check, nil
}

// FinalizeExpired applies the expiry transition: atomically claim the session
// row, score whatever answers were saved, upsert the result with the auto-save
// flags, and clear the fast path. Losing the claim means another finalizer
// (client request or sweep) already did the work; exactly one result write
// happens per expiry.
func (s *AttemptService) FinalizeExpired(ctx context.Context, quiz *model.Quiz, userID int) (bool, error) {
	sess, err := s.sessions.DeleteReturning(ctx, userID, quiz.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.finalizeSession(ctx, quiz, sess)
}

// finalizeSession scores a claimed (already deleted) session row with its
// saved answers and writes the auto-saved result. Returns false when the
// snapshot was unreadable and no result could be produced.
func (s *AttemptService) finalizeSession(ctx context.Context, quiz *model.Quiz, sess *model.QuizSession) (bool, error) {
	snapshot, err := sess.QuestionSnapshot()
	if err != nil {
		// The broken row is already deleted; log and drop its fast-path keys.
		s.discardCorrupt(ctx, sess, err)
		return false, nil
	}

	saved, err := s.mergedAnswers(ctx, sess)
	if err != nil {
		return false, err
	}

	summary := scoring.Score(snapshot, saved, s.policy)
	if _, err := s.writeResult(ctx, sess.UserID, sess.QuizID, summary, true, true); err != nil {
		return false, err
	}

	s.log.Info().
		Int("user_id", sess.UserID).
		Str("quiz_id", sess.QuizID).
		Int("correct", summary.CorrectCount).
		Msg("Expired attempt auto-finalized")
	return true, nil
}

// RunSweep scans every active session and finalizes the expired ones. One
// unreadable record never stops the sweep: it is logged, deleted, and skipped.
// Returns the number of attempts finalized.
func (s *AttemptService) RunSweep(ctx context.Context) (int, error) {
	sessions, err := s.sessions.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	finalized := 0
	for i := range sessions {
		sess := &sessions[i]

		quiz, err := s.quizzes.GetByID(ctx, sess.QuizID)
		if err != nil {
			// Quiz may reappear on the next import; leave the session alone.
			s.log.Warn().Err(err).Str("quiz_id", sess.QuizID).Str("session_id", sess.ID.String()).Msg("Sweep: quiz not loadable")
			continue
		}

		if _, timed := quiz.Settings.TimeLimit(); !timed {
			continue
		}

		check := computeTimeCheck(quiz.Settings, sess.StartedAt, s.now())
		if !check.Expired {
			continue
		}

		done, err := s.FinalizeExpired(ctx, quiz, sess.UserID)
		if err != nil {
			s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Sweep: finalize failed")
			continue
		}
		if done {
			finalized++
		}
	}

	if finalized > 0 {
		s.log.Info().Int("count", finalized).Msg("Sweep finalized expired attempts")
	}
	return finalized, nil
}

// MarkConfettiShown records that the result celebration has been displayed.
func (s *AttemptService) MarkConfettiShown(ctx context.Context, userID int, quizID string) error {
	err := s.results.MarkConfettiShown(ctx, userID, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResultNotFound
	}
	return err
}

// mergedAnswers overlays the Redis fast path onto the persisted answers map.
// The cache holds the latest write per question; the row may lag behind it.
func (s *AttemptService) mergedAnswers(ctx context.Context, sess *model.QuizSession) (map[string]json.RawMessage, error) {
	persisted, err := sess.AnswerMap()
	if err != nil {
		// Unreadable answers lose against an intact snapshot: grade what the
		// cache still has rather than failing the attempt.
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Corrupt answers column")
		persisted = map[string]json.RawMessage{}
	}

	cached, err := s.answers.GetAll(ctx, sess.UserID, sess.QuizID)
	if err != nil {
		return nil, err
	}
	for qid, val := range cached {
		persisted[qid] = val
	}
	return persisted, nil
}

// writeResult marshals a scoring summary into a result row and upserts it.
func (s *AttemptService) writeResult(ctx context.Context, userID int, quizID string, summary scoring.Summary, autoSaved, timeExpired bool) (*model.QuizResult, error) {
	resultsRaw, err := json.Marshal(summary.Results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}

	result := &model.QuizResult{
		UserID:       userID,
		QuizID:       quizID,
		Results:      resultsRaw,
		AverageScore: summary.AverageScore,
		TotalScore:   summary.TotalScore,
		CorrectCount: summary.CorrectCount,
		AutoSaved:    autoSaved,
		TimeExpired:  timeExpired,
	}
	if err := s.results.Upsert(ctx, result); err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}

	if err := s.answers.Clear(ctx, userID, quizID); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Str("quiz_id", quizID).Msg("Answer cache clear failed")
	}
	return result, nil
}

// discardCorrupt logs and removes a session row that cannot be parsed.
func (s *AttemptService) discardCorrupt(ctx context.Context, sess *model.QuizSession, cause error) {
	s.log.Error().Err(cause).
		Str("session_id", sess.ID.String()).
		Int("user_id", sess.UserID).
		Str("quiz_id", sess.QuizID).
		Msg("Removing corrupt session record")
	if err := s.sessions.DeleteByID(ctx, sess.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Corrupt session delete failed")
	}
	if err := s.answers.Clear(ctx, sess.UserID, sess.QuizID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID.String()).Msg("Corrupt session cache clear failed")
	}
}

// drawQuestions returns a uniformly random subset of size count, preserving
// no particular order. count must not exceed len(all).
func drawQuestions(all []model.Question, count int) []model.Question {
	shuffled := make([]model.Question, len(all))
	copy(shuffled, all)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}
