package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizhall/quizhall-backend/internal/model"
	"github.com/quizhall/quizhall-backend/internal/repository"
	"github.com/quizhall/quizhall-backend/internal/scoring"
	"github.com/rs/zerolog"
)

type memQuizzes struct {
	quizzes map[string]*model.Quiz
}

func (m *memQuizzes) GetByID(_ context.Context, id string) (*model.Quiz, error) {
	q, ok := m.quizzes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return q, nil
}

type sessionKey struct {
	userID int
	quizID string
}

type memSessions struct {
	mu       sync.Mutex
	rows     map[sessionKey]*model.QuizSession
	clock    func() time.Time
	failList bool
}

func newMemSessions(clock func() time.Time) *memSessions {
	return &memSessions{rows: map[sessionKey]*model.QuizSession{}, clock: clock}
}

func (m *memSessions) Get(_ context.Context, userID int, quizID string) (*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[sessionKey{userID, quizID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Create(_ context.Context, s *model.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{s.UserID, s.QuizID}
	if _, exists := m.rows[key]; exists {
		return repository.ErrAlreadyExists
	}
	s.ID = uuid.New()
	s.StartedAt = m.clock()
	cp := *s
	m.rows[key] = &cp
	return nil
}

func (m *memSessions) DeleteReturning(_ context.Context, userID int, quizID string) (*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{userID, quizID}
	s, ok := m.rows[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(m.rows, key)
	return s, nil
}

func (m *memSessions) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.rows {
		if s.ID == id {
			delete(m.rows, key)
			return nil
		}
	}
	return nil
}

func (m *memSessions) ListAll(_ context.Context) ([]model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errors.New("list failed")
	}
	out := make([]model.QuizSession, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, *s)
	}
	return out, nil
}

type memResults struct {
	mu      sync.Mutex
	rows    map[sessionKey]*model.QuizResult
	upserts int
}

func newMemResults() *memResults {
	return &memResults{rows: map[sessionKey]*model.QuizResult{}}
}

func (m *memResults) Get(_ context.Context, userID int, quizID string) (*model.QuizResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[sessionKey{userID, quizID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memResults) Upsert(_ context.Context, res *model.QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	key := sessionKey{res.UserID, res.QuizID}
	if prev, ok := m.rows[key]; ok {
		res.ID = prev.ID
		res.Attempts = prev.Attempts + 1
	} else {
		res.ID = len(m.rows) + 1
		res.Attempts = 1
	}
	res.CompletedAt = time.Now()
	cp := *res
	m.rows[key] = &cp
	return nil
}

func (m *memResults) MarkConfettiShown(_ context.Context, userID int, quizID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[sessionKey{userID, quizID}]
	if !ok {
		return repository.ErrNotFound
	}
	r.ConfettiShown = true
	return nil
}

func (m *memResults) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type memAnswers struct {
	mu      sync.Mutex
	answers map[sessionKey]map[string]json.RawMessage
	starts  map[sessionKey]time.Time
}

func newMemAnswers() *memAnswers {
	return &memAnswers{
		answers: map[sessionKey]map[string]json.RawMessage{},
		starts:  map[sessionKey]time.Time{},
	}
}

func (m *memAnswers) SaveAnswer(_ context.Context, userID int, quizID, questionID string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{userID, quizID}
	if m.answers[key] == nil {
		m.answers[key] = map[string]json.RawMessage{}
	}
	m.answers[key][questionID] = value
	return nil
}

func (m *memAnswers) GetAll(_ context.Context, userID int, quizID string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]json.RawMessage{}
	for qid, v := range m.answers[sessionKey{userID, quizID}] {
		out[qid] = v
	}
	return out, nil
}

func (m *memAnswers) Clear(_ context.Context, userID int, quizID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{userID, quizID}
	delete(m.answers, key)
	delete(m.starts, key)
	return nil
}

func (m *memAnswers) SetStart(_ context.Context, userID int, quizID string, start time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts[sessionKey{userID, quizID}] = start
	return nil
}

func (m *memAnswers) GetStart(_ context.Context, userID int, quizID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.starts[sessionKey{userID, quizID}]
	return t, ok, nil
}

type fixture struct {
	svc      *AttemptService
	quizzes  *memQuizzes
	sessions *memSessions
	results  *memResults
	answers  *memAnswers
	clock    time.Time
	clockMu  sync.Mutex
}

func (f *fixture) advance(d time.Duration) {
	f.clockMu.Lock()
	f.clock = f.clock.Add(d)
	f.clockMu.Unlock()
}

func newFixture(quizzes ...*model.Quiz) *fixture {
	f := &fixture{
		quizzes: &memQuizzes{quizzes: map[string]*model.Quiz{}},
		results: newMemResults(),
		answers: newMemAnswers(),
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time {
		f.clockMu.Lock()
		defer f.clockMu.Unlock()
		return f.clock
	}
	f.sessions = newMemSessions(now)
	for _, q := range quizzes {
		f.quizzes.quizzes[q.ID] = q
	}
	f.svc = NewAttemptService(f.quizzes, f.sessions, f.results, f.answers, scoring.PolicyAllOrNothing, zerolog.Nop())
	f.svc.now = now
	return f
}

func intPtr(n int) *int { return &n }

func timedQuiz(id string, minutes int, maxAttempts int, questions ...model.Question) *model.Quiz {
	return &model.Quiz{
		ID:    id,
		Title: "Quiz " + id,
		Settings: model.QuizSettings{
			TimeLimitMinutes: intPtr(minutes),
			MaxAttempts:      maxAttempts,
		},
		Questions: questions,
	}
}

func mcQuestion(id, prompt, answer string) model.Question {
	return model.Question{
		ID:      id,
		Prompt:  prompt,
		Type:    model.QuestionTypeMultipleChoice,
		Options: []string{"A", "B", "C", "D"},
		Answer:  json.RawMessage(`"` + answer + `"`),
	}
}

func TestAttemptLifecycle(t *testing.T) {
	quiz := timedQuiz("geo", 1, 1,
		mcQuestion("q1", "Capital of France?", "Paris"),
		mcQuestion("q2", "Capital of Spain?", "Madrid"),
	)
	f := newFixture(quiz)
	ctx := context.Background()

	state, err := f.svc.GetOrCreateAttempt(ctx, 7, "geo", false)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if state.Status != AttemptStatusActive {
		t.Fatalf("status = %q, want active", state.Status)
	}
	if len(state.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(state.Questions))
	}
	if state.RemainingSeconds == nil || *state.RemainingSeconds != 60 {
		t.Fatalf("remaining = %v, want 60", state.RemainingSeconds)
	}

	if err := f.svc.SaveAnswer(ctx, 7, "geo", "q1", json.RawMessage(`"Paris"`)); err != nil {
		t.Fatalf("save answer: %v", err)
	}
	if err := f.svc.SaveAnswer(ctx, 7, "geo", "q2", json.RawMessage(`"Lisbon"`)); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	f.advance(10 * time.Second)
	check, err := f.svc.CheckTime(ctx, 7, "geo")
	if err != nil {
		t.Fatalf("check time: %v", err)
	}
	if check.Expired {
		t.Fatal("expired at 10s of a 60s limit")
	}
	if *check.RemainingSeconds != 50 {
		t.Fatalf("remaining = %d, want 50", *check.RemainingSeconds)
	}

	done, err := f.svc.Submit(ctx, 7, "geo", map[string]json.RawMessage{
		"q1": json.RawMessage(`"Paris"`),
		"q2": json.RawMessage(`"Lisbon"`),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if done.Status != AttemptStatusCompleted {
		t.Fatalf("status = %q, want completed", done.Status)
	}
	if done.Result.CorrectCount != 1 {
		t.Fatalf("correct = %d, want 1", done.Result.CorrectCount)
	}
	if done.Result.TotalScore != 100 {
		t.Fatalf("total = %v, want 100", done.Result.TotalScore)
	}
	if done.Result.AverageScore != 50 {
		t.Fatalf("average = %v, want 50", done.Result.AverageScore)
	}
	if done.Result.AutoSaved || done.Result.TimeExpired {
		t.Fatal("manual submit must not carry auto-save flags")
	}
	if !done.MaxAttemptsReached {
		t.Fatal("single-attempt quiz should be capped after submit")
	}

	if _, err := f.sessions.Get(ctx, 7, "geo"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("session row should be gone after submit")
	}
}

func TestTimeRemainingMonotonic(t *testing.T) {
	quiz := timedQuiz("mono", 2, 1, mcQuestion("q1", "x", "A"))
	f := newFixture(quiz)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 1, "mono", false); err != nil {
		t.Fatalf("start: %v", err)
	}

	prev := int64(1 << 30)
	for i := 0; i < 6; i++ {
		check, err := f.svc.CheckTime(ctx, 1, "mono")
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if *check.RemainingSeconds > prev {
			t.Fatalf("remaining increased: %d -> %d", prev, *check.RemainingSeconds)
		}
		prev = *check.RemainingSeconds
		f.advance(13 * time.Second)
	}
}

func TestExpiryOnCheckTime(t *testing.T) {
	quiz := timedQuiz("hist", 1, 3,
		mcQuestion("q1", "a", "A"),
		mcQuestion("q2", "b", "B"),
	)
	f := newFixture(quiz)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 3, "hist", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.svc.SaveAnswer(ctx, 3, "hist", "q1", json.RawMessage(`"A"`)); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.advance(65 * time.Second)
	check, err := f.svc.CheckTime(ctx, 3, "hist")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !check.Expired {
		t.Fatal("65s into a 60s limit should be expired")
	}
	if *check.RemainingSeconds != 0 {
		t.Fatalf("remaining = %d, want 0", *check.RemainingSeconds)
	}

	res, err := f.results.Get(ctx, 3, "hist")
	if err != nil {
		t.Fatalf("result after expiry: %v", err)
	}
	if !res.AutoSaved || !res.TimeExpired {
		t.Fatal("expired finalize must set auto-save flags")
	}
	if res.CorrectCount != 1 {
		t.Fatalf("correct = %d, want 1 (only the saved answer)", res.CorrectCount)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", res.Attempts)
	}

	// The next fetch starts a fresh attempt since attempts remain.
	state, err := f.svc.GetOrCreateAttempt(ctx, 3, "hist", true)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if state.Status != AttemptStatusActive {
		t.Fatalf("status = %q, want active", state.Status)
	}
	if len(state.SavedAnswers) != 0 {
		t.Fatal("fresh attempt must not inherit old answers")
	}
}

func TestExpiredSubmitFallsBackToSavedAnswers(t *testing.T) {
	quiz := timedQuiz("late", 1, 2, mcQuestion("q1", "a", "A"))
	f := newFixture(quiz)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 9, "late", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.svc.SaveAnswer(ctx, 9, "late", "q1", json.RawMessage(`"A"`)); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.advance(90 * time.Second)
	state, err := f.svc.Submit(ctx, 9, "late", map[string]json.RawMessage{
		"q1": json.RawMessage(`"B"`),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if state.Status != AttemptStatusExpired {
		t.Fatalf("status = %q, want expired", state.Status)
	}

	// The late payload is ignored; the auto-saved answer scores.
	res, err := f.results.Get(ctx, 9, "late")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.CorrectCount != 1 {
		t.Fatalf("correct = %d, want 1", res.CorrectCount)
	}
	if !res.TimeExpired {
		t.Fatal("result must be flagged time-expired")
	}
}

func TestFinalizeRaceWritesOneResult(t *testing.T) {
	quiz := timedQuiz("race", 1, 1, mcQuestion("q1", "a", "A"))
	f := newFixture(quiz)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 5, "race", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.advance(2 * time.Minute)

	var wg sync.WaitGroup
	winners := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := f.svc.FinalizeExpired(ctx, quiz, 5)
			if err != nil {
				t.Errorf("finalize: %v", err)
				return
			}
			winners <- done
		}()
	}
	wg.Wait()
	close(winners)

	wonCount := 0
	for won := range winners {
		if won {
			wonCount++
		}
	}
	if wonCount != 1 {
		t.Fatalf("winners = %d, want exactly 1", wonCount)
	}
	if n := f.results.upsertCount(); n != 1 {
		t.Fatalf("result writes = %d, want exactly 1", n)
	}
	res, err := f.results.Get(ctx, 5, "race")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", res.Attempts)
	}
}

func TestAttemptCap(t *testing.T) {
	quiz := timedQuiz("cap", 5, 2, mcQuestion("q1", "a", "A"))
	f := newFixture(quiz)
	ctx := context.Background()

	answers := map[string]json.RawMessage{"q1": json.RawMessage(`"A"`)}

	for attempt := 1; attempt <= 2; attempt++ {
		if _, err := f.svc.GetOrCreateAttempt(ctx, 2, "cap", true); err != nil {
			t.Fatalf("attempt %d start: %v", attempt, err)
		}
		state, err := f.svc.Submit(ctx, 2, "cap", answers)
		if err != nil {
			t.Fatalf("attempt %d submit: %v", attempt, err)
		}
		if state.Result.Attempts != attempt {
			t.Fatalf("attempts = %d, want %d", state.Result.Attempts, attempt)
		}
	}

	state, err := f.svc.GetOrCreateAttempt(ctx, 2, "cap", true)
	if err != nil {
		t.Fatalf("capped fetch: %v", err)
	}
	if !state.MaxAttemptsReached {
		t.Fatal("cap must block a third attempt")
	}
	if state.Status != AttemptStatusCompleted {
		t.Fatalf("status = %q, want completed", state.Status)
	}

	if _, err := f.svc.Submit(ctx, 2, "cap", answers); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("capped submit err = %v, want ErrAttemptsExhausted", err)
	}
}

func TestUntimedQuizNeverExpires(t *testing.T) {
	quiz := &model.Quiz{
		ID:        "open",
		Title:     "Open",
		Settings:  model.QuizSettings{MaxAttempts: 1},
		Questions: []model.Question{mcQuestion("q1", "a", "A")},
	}
	f := newFixture(quiz)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 4, "open", false); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.advance(365 * 24 * time.Hour)
	check, err := f.svc.CheckTime(ctx, 4, "open")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if check.Expired {
		t.Fatal("untimed quiz expired")
	}
	if check.RemainingSeconds != nil || check.TimeLimitSeconds != nil {
		t.Fatal("untimed quiz must not report remaining time")
	}

	state, err := f.svc.GetOrCreateAttempt(ctx, 4, "open", false)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if state.Status != AttemptStatusActive {
		t.Fatalf("status = %q, want active after a year", state.Status)
	}
}

func TestSweepFinalizesOnlyExpired(t *testing.T) {
	timed := timedQuiz("sweep-timed", 1, 1, mcQuestion("q1", "a", "A"))
	fresh := timedQuiz("sweep-fresh", 30, 1, mcQuestion("q1", "a", "A"))
	open := &model.Quiz{
		ID:        "sweep-open",
		Title:     "Open",
		Settings:  model.QuizSettings{MaxAttempts: 1},
		Questions: []model.Question{mcQuestion("q1", "a", "A")},
	}
	f := newFixture(timed, fresh, open)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 1, "sweep-timed", false); err != nil {
		t.Fatalf("start timed: %v", err)
	}
	if _, err := f.svc.GetOrCreateAttempt(ctx, 1, "sweep-open", false); err != nil {
		t.Fatalf("start open: %v", err)
	}
	f.advance(5 * time.Minute)
	if _, err := f.svc.GetOrCreateAttempt(ctx, 1, "sweep-fresh", false); err != nil {
		t.Fatalf("start fresh: %v", err)
	}

	n, err := f.svc.RunSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("finalized = %d, want 1", n)
	}

	if _, err := f.results.Get(ctx, 1, "sweep-timed"); err != nil {
		t.Fatalf("expired session not finalized: %v", err)
	}
	if _, err := f.results.Get(ctx, 1, "sweep-fresh"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("fresh session must survive the sweep")
	}
	if _, err := f.sessions.Get(ctx, 1, "sweep-open"); err != nil {
		t.Fatalf("untimed session must survive the sweep: %v", err)
	}
}

func TestSweepSkipsCorruptRecord(t *testing.T) {
	quiz := timedQuiz("mix", 1, 1, mcQuestion("q1", "a", "A"))
	f := newFixture(quiz)
	ctx := context.Background()

	if _, err := f.svc.GetOrCreateAttempt(ctx, 1, "mix", false); err != nil {
		t.Fatalf("start good: %v", err)
	}
	// A second row whose snapshot is not valid JSON.
	f.sessions.rows[sessionKey{2, "mix"}] = &model.QuizSession{
		ID:        uuid.New(),
		UserID:    2,
		QuizID:    "mix",
		StartedAt: f.clock,
		Questions: json.RawMessage(`{not json`),
	}

	f.advance(2 * time.Minute)
	if _, err := f.svc.RunSweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := f.results.Get(ctx, 1, "mix"); err != nil {
		t.Fatalf("healthy session not finalized: %v", err)
	}
	if _, err := f.sessions.Get(ctx, 2, "mix"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("corrupt session row must be removed")
	}
	if _, err := f.results.Get(ctx, 2, "mix"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("corrupt session must not produce a result")
	}
}

func TestSubmitWithoutSession(t *testing.T) {
	quiz := timedQuiz("loose", 5, 3,
		mcQuestion("q1", "a", "A"),
		mcQuestion("q2", "b", "B"),
	)
	f := newFixture(quiz)
	ctx := context.Background()

	state, err := f.svc.Submit(ctx, 8, "loose", map[string]json.RawMessage{
		"q1": json.RawMessage(`"A"`),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if state.Status != AttemptStatusCompleted {
		t.Fatalf("status = %q, want completed", state.Status)
	}
	if state.Result.CorrectCount != 1 {
		t.Fatalf("correct = %d, want 1", state.Result.CorrectCount)
	}
	// Both quiz questions were graded, so the unanswered one counted against.
	if state.Result.AverageScore != 50 {
		t.Fatalf("average = %v, want 50", state.Result.AverageScore)
	}
}

func TestRandomSubsetSnapshot(t *testing.T) {
	questions := make([]model.Question, 10)
	for i := range questions {
		questions[i] = mcQuestion(string(rune('a'+i)), "q", "A")
	}
	quiz := timedQuiz("subset", 5, 1, questions...)
	quiz.Settings.RandomQuestionsCount = 3
	f := newFixture(quiz)
	ctx := context.Background()

	state, err := f.svc.GetOrCreateAttempt(ctx, 1, "subset", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(state.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(state.Questions))
	}
	payload, err := json.Marshal(state.Questions)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if bytes.Contains(payload, []byte(`"answer"`)) {
		t.Fatal("answer key leaked to the student payload")
	}

	// The resumed attempt shows the same snapshot regardless of quiz edits.
	resumed, err := f.svc.GetOrCreateAttempt(ctx, 1, "subset", false)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(resumed.Questions) != 3 {
		t.Fatalf("resumed questions = %d, want 3", len(resumed.Questions))
	}
	for i := range resumed.Questions {
		if resumed.Questions[i].ID != state.Questions[i].ID {
			t.Fatal("resumed snapshot differs from the original draw")
		}
	}
}

func TestComputeTimeCheck(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	settings := model.QuizSettings{TimeLimitMinutes: intPtr(1), MaxAttempts: 1}

	cases := []struct {
		name      string
		elapsed   time.Duration
		expired   bool
		remaining int64
	}{
		{"at start", 0, false, 60},
		{"mid attempt", 10 * time.Second, false, 50},
		{"sub-second floors", 10500 * time.Millisecond, false, 49},
		{"one second left", 59 * time.Second, false, 1},
		{"exactly at limit", 60 * time.Second, true, 0},
		{"past limit", 65 * time.Second, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check := computeTimeCheck(settings, start, start.Add(tc.elapsed))
			if check.Expired != tc.expired {
				t.Fatalf("expired = %v, want %v", check.Expired, tc.expired)
			}
			if *check.RemainingSeconds != tc.remaining {
				t.Fatalf("remaining = %d, want %d", *check.RemainingSeconds, tc.remaining)
			}
			if *check.TimeLimitSeconds != 60 {
				t.Fatalf("limit = %d, want 60", *check.TimeLimitSeconds)
			}
		})
	}

	if check := computeTimeCheck(model.QuizSettings{MaxAttempts: 1}, start, start.Add(time.Hour)); check.Expired {
		t.Fatal("no limit means no expiry")
	}
}

func TestConfettiShown(t *testing.T) {
	quiz := timedQuiz("party", 5, 1, mcQuestion("q1", "a", "A"))
	f := newFixture(quiz)
	ctx := context.Background()

	if err := f.svc.MarkConfettiShown(ctx, 1, "party"); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("err = %v, want ErrResultNotFound", err)
	}

	if _, err := f.svc.GetOrCreateAttempt(ctx, 1, "party", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.Submit(ctx, 1, "party", map[string]json.RawMessage{"q1": json.RawMessage(`"A"`)}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.svc.MarkConfettiShown(ctx, 1, "party"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	res, err := f.results.Get(ctx, 1, "party")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !res.ConfettiShown {
		t.Fatal("confetti flag not persisted")
	}
}
