package service

import (
	"encoding/json"
	"equizz_backend/internal/model"
	"equizz_backend/internal/util"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

// stubBindings 以互斥锁模拟 (user, evaluation) 唯一索引下的
// insert-if-absent 语义。
type stubBindings struct {
	mu   sync.Mutex
	rows map[[2]uint]string
}

func newStubBindings() *stubBindings {
	return &stubBindings{rows: make(map[[2]uint]string)}
}

func (s *stubBindings) BindOrGet(userID, evaluationID uint, freshToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint{userID, evaluationID}
	if tok, ok := s.rows[key]; ok {
		return tok, nil
	}
	s.rows[key] = freshToken
	return freshToken, nil
}

func (s *stubBindings) HasBinding(userID, evaluationID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[[2]uint{userID, evaluationID}]
	return ok, nil
}

func (s *stubBindings) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// stubSessions 模拟 (token, evaluation) 唯一索引与条件更新提交
type stubSessions struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]*model.ResponseSession
	byKey    map[string]string
	answers  map[string]map[uint]string
}

func newStubSessions() *stubSessions {
	return &stubSessions{
		sessions: make(map[string]*model.ResponseSession),
		byKey:    make(map[string]string),
		answers:  make(map[string]map[uint]string),
	}
}

func sessionKey(token string, evaluationID uint) string {
	return fmt.Sprintf("%s|%d", token, evaluationID)
}

func (s *stubSessions) StartSession(token string, evaluationID, quizID uint) (*model.ResponseSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[sessionKey(token, evaluationID)]; ok {
		cp := *s.sessions[id]
		return &cp, nil
	}
	s.nextID++
	session := &model.ResponseSession{
		Token:        token,
		EvaluationID: evaluationID,
		QuizID:       quizID,
		Status:       model.SessionInProgress,
	}
	session.ID = fmt.Sprintf("sess-%d", s.nextID)
	s.sessions[session.ID] = session
	s.byKey[sessionKey(token, evaluationID)] = session.ID
	s.answers[session.ID] = make(map[uint]string)
	cp := *session
	return &cp, nil
}

func (s *stubSessions) FindByID(sessionID string) (*model.ResponseSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *stubSessions) UpsertAnswer(sessionID string, questionID uint, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return util.ErrSessionNotFound
	}
	if session.Status == model.SessionSubmitted {
		return util.ErrSessionAlreadySubmitted
	}
	s.answers[sessionID][questionID] = content
	return nil
}

func (s *stubSessions) Submit(sessionID string, now time.Time) (*model.ResponseSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	if session.Status == model.SessionSubmitted {
		cp := *session
		return &cp, util.ErrAlreadySubmitted
	}
	session.Status = model.SessionSubmitted
	ts := now
	session.SubmittedAt = &ts
	cp := *session
	return &cp, nil
}

func (s *stubSessions) ListAnswers(sessionID string) ([]model.ResponseAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ResponseAnswer, 0, len(s.answers[sessionID]))
	for q, content := range s.answers[sessionID] {
		out = append(out, model.ResponseAnswer{SessionID: sessionID, QuestionID: q, Content: content})
	}
	return out, nil
}

func (s *stubSessions) CountAnswers(sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.answers[sessionID])), nil
}

type stubEvaluations struct {
	rows map[uint]*model.Evaluation
}

func (s *stubEvaluations) FindByID(id uint) (*model.Evaluation, error) {
	if e, ok := s.rows[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubCatalog struct {
	questionQuiz map[uint]uint
}

func (s *stubCatalog) QuestionBelongsToQuiz(questionID, quizID uint) (bool, error) {
	return s.questionQuiz[questionID] == quizID, nil
}

type fixture struct {
	svc      *SubmissionService
	bindings *stubBindings
	sessions *stubSessions
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	opens := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	evals := &stubEvaluations{rows: map[uint]*model.Evaluation{
		1: {BaseModel: model.BaseModel{ID: 1}, QuizID: 10, OpensAt: opens, ClosesAt: opens.Add(time.Hour)},
		2: {BaseModel: model.BaseModel{ID: 2}, QuizID: 20, OpensAt: opens, ClosesAt: opens.Add(time.Hour)},
	}}
	catalog := &stubCatalog{questionQuiz: map[uint]uint{
		101: 10, 102: 10, 201: 20,
	}}

	f := &fixture{
		bindings: newStubBindings(),
		sessions: newStubSessions(),
		now:      opens.Add(10 * time.Second),
	}
	f.svc = NewSubmissionService(f.bindings, f.sessions, evals, catalog)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestBeginCreatesSessionWithoutToken(t *testing.T) {
	f := newFixture(t)

	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if handle.SessionID == "" {
		t.Fatal("handle has empty session id")
	}
	if handle.Status != model.SessionInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", handle.Status)
	}

	// 句柄序列化后不得出现令牌或身份
	raw, err := json.Marshal(handle)
	if err != nil {
		t.Fatalf("marshal handle: %v", err)
	}
	for _, forbidden := range []string{"token", "userId", "user_id", "identity"} {
		if strings.Contains(strings.ToLower(string(raw)), strings.ToLower(forbidden)) {
			t.Fatalf("session handle leaks %q: %s", forbidden, raw)
		}
	}
}

func TestBeginIsIdempotentForSameIdentity(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	second, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("second Begin: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("resume returned different session: %s vs %s", first.SessionID, second.SessionID)
	}
	if f.bindings.count() != 1 {
		t.Fatalf("bindings = %d, want 1", f.bindings.count())
	}
}

func TestBeginConcurrentSameIdentityConverges(t *testing.T) {
	f := newFixture(t)

	const callers = 16
	var wg sync.WaitGroup
	handles := make([]*SessionHandle, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = f.svc.Begin(7, 1)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if handles[i].SessionID != handles[0].SessionID {
			t.Fatalf("caller %d got session %s, caller 0 got %s", i, handles[i].SessionID, handles[0].SessionID)
		}
	}
	if f.bindings.count() != 1 {
		t.Fatalf("bindings = %d, want exactly 1", f.bindings.count())
	}
	if len(f.sessions.sessions) != 1 {
		t.Fatalf("sessions = %d, want exactly 1", len(f.sessions.sessions))
	}
}

func TestTokensDifferAcrossEvaluations(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Begin(7, 1); err != nil {
		t.Fatalf("Begin eval 1: %v", err)
	}
	if _, err := f.svc.Begin(7, 2); err != nil {
		t.Fatalf("Begin eval 2: %v", err)
	}

	tok1 := f.bindings.rows[[2]uint{7, 1}]
	tok2 := f.bindings.rows[[2]uint{7, 2}]
	if tok1 == "" || tok2 == "" {
		t.Fatal("missing binding token")
	}
	if tok1 == tok2 {
		t.Fatalf("same token reused across evaluations: %s", tok1)
	}
}

func TestBeginRejectsScheduledWindowWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) // before opensAt

	_, err := f.svc.Begin(7, 1)
	if !errors.Is(err, util.ErrWindowNotOpen) {
		t.Fatalf("err = %v, want ErrWindowNotOpen", err)
	}
	if f.bindings.count() != 0 {
		t.Fatalf("bindings created on rejected begin: %d", f.bindings.count())
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatalf("sessions created on rejected begin: %d", len(f.sessions.sessions))
	}
}

func TestBeginRejectsClosedWindowWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) // past closesAt

	_, err := f.svc.Begin(7, 1)
	if !errors.Is(err, util.ErrWindowClosed) {
		t.Fatalf("err = %v, want ErrWindowClosed", err)
	}
	if f.bindings.count() != 0 || len(f.sessions.sessions) != 0 {
		t.Fatal("rejected begin left persisted state behind")
	}
}

func TestBeginAbortsOnEntropyFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.newToken = func() (string, error) {
		return "", util.ErrEntropyUnavailable
	}

	_, err := f.svc.Begin(7, 1)
	if !errors.Is(err, util.ErrEntropyUnavailable) {
		t.Fatalf("err = %v, want ErrEntropyUnavailable", err)
	}
	if f.bindings.count() != 0 || len(f.sessions.sessions) != 0 {
		t.Fatal("entropy failure must not leave persisted state")
	}
}

func TestAnswerRejectsForeignQuestion(t *testing.T) {
	f := newFixture(t)

	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// 201 属于另一张试卷
	err = f.svc.Answer(handle.SessionID, 201, `"A"`)
	if !errors.Is(err, util.ErrInvalidQuestion) {
		t.Fatalf("err = %v, want ErrInvalidQuestion", err)
	}
	if n, _ := f.sessions.CountAnswers(handle.SessionID); n != 0 {
		t.Fatalf("rejected answer was stored, count = %d", n)
	}
}

func TestFinalizeFreezesAnswers(t *testing.T) {
	f := newFixture(t)

	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.svc.Answer(handle.SessionID, 101, `"A"`); err != nil {
		t.Fatalf("Answer 101: %v", err)
	}
	if err := f.svc.Answer(handle.SessionID, 102, `"B"`); err != nil {
		t.Fatalf("Answer 102: %v", err)
	}

	receipt, err := f.svc.Finalize(handle.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if receipt.AnswerCount != 2 {
		t.Fatalf("receipt answer count = %d, want 2", receipt.AnswerCount)
	}
	if !receipt.SubmittedAt.Equal(f.now) {
		t.Fatalf("receipt submittedAt = %v, want %v", receipt.SubmittedAt, f.now)
	}

	// 已冻结：后续作答被拒，且已存作答不变
	err = f.svc.Answer(handle.SessionID, 101, `"C"`)
	if !errors.Is(err, util.ErrSessionAlreadySubmitted) {
		t.Fatalf("post-submit answer err = %v, want ErrSessionAlreadySubmitted", err)
	}
	answers, _ := f.sessions.ListAnswers(handle.SessionID)
	for _, a := range answers {
		if a.QuestionID == 101 && a.Content != `"A"` {
			t.Fatalf("frozen answer mutated: %s", a.Content)
		}
	}
}

func TestFinalizeConcurrentSingleTransition(t *testing.T) {
	f := newFixture(t)

	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.svc.Answer(handle.SessionID, 101, `"A"`); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	const callers = 8
	var wg sync.WaitGroup
	receipts := make([]*model.SubmissionReceipt, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			receipts[i], errs[i] = f.svc.Finalize(handle.SessionID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil:
			succeeded++
			if receipts[i] == nil {
				t.Fatalf("caller %d: nil receipt without error", i)
			}
		case errors.Is(errs[i], util.ErrAlreadySubmitted):
			if receipts[i] != nil {
				t.Fatalf("caller %d: got a second receipt on AlreadySubmitted", i)
			}
		default:
			t.Fatalf("caller %d: unexpected error %v", i, errs[i])
		}
	}
	if succeeded != 1 {
		t.Fatalf("submitted transitions = %d, want exactly 1", succeeded)
	}
}

func TestFinalizeRejectsAfterWindowClose(t *testing.T) {
	f := newFixture(t)

	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.svc.Answer(handle.SessionID, 101, `"A"`); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	// 窗口在提交前关闭：迟到提交被拒绝而非默收
	f.now = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	_, err = f.svc.Finalize(handle.SessionID)
	if !errors.Is(err, util.ErrWindowClosed) {
		t.Fatalf("err = %v, want ErrWindowClosed", err)
	}

	session, _ := f.sessions.FindByID(handle.SessionID)
	if session.Status != model.SessionInProgress {
		t.Fatalf("late finalize changed status to %s", session.Status)
	}
}

func TestReceiptCarriesNoIdentity(t *testing.T) {
	f := newFixture(t)

	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := f.svc.Answer(handle.SessionID, 101, `"A"`); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	receipt, err := f.svc.Finalize(handle.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	raw, err := json.Marshal(receipt)
	if err != nil {
		t.Fatalf("marshal receipt: %v", err)
	}
	lower := strings.ToLower(string(raw))
	for _, forbidden := range []string{"userid", "user_id", "identity", "email", "name"} {
		if strings.Contains(lower, forbidden) {
			t.Fatalf("receipt leaks %q: %s", forbidden, raw)
		}
	}
}

func TestEligibilityReportsStateAndStart(t *testing.T) {
	f := newFixture(t)

	info, err := f.svc.CheckEligibility(7, 1)
	if err != nil {
		t.Fatalf("CheckEligibility: %v", err)
	}
	if info.State != model.EvaluationOpen || info.HasStarted {
		t.Fatalf("eligibility = %+v, want OPEN and not started", info)
	}

	if _, err := f.svc.Begin(7, 1); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	info, err = f.svc.CheckEligibility(7, 1)
	if err != nil {
		t.Fatalf("CheckEligibility after begin: %v", err)
	}
	if !info.HasStarted {
		t.Fatal("eligibility should report started after begin")
	}
}

// 完整走一遍提交流程：开始 → 两题作答 → 提交 → 冻结 → 窗口关闭后
// 新身份被拒。
func TestSubmissionFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	f.now = t0.Add(10 * time.Second)
	handle, err := f.svc.Begin(7, 1)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if handle.Status != model.SessionInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", handle.Status)
	}

	if err := f.svc.Answer(handle.SessionID, 101, `"A"`); err != nil {
		t.Fatalf("Answer 101: %v", err)
	}
	if err := f.svc.Answer(handle.SessionID, 102, `"B"`); err != nil {
		t.Fatalf("Answer 102: %v", err)
	}

	f.now = t0.Add(20 * time.Second)
	receipt, err := f.svc.Finalize(handle.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if receipt.Token != f.bindings.rows[[2]uint{7, 1}] {
		t.Fatal("receipt token does not match binding token")
	}

	f.now = t0.Add(25 * time.Second)
	if err := f.svc.Answer(handle.SessionID, 101, `"C"`); !errors.Is(err, util.ErrSessionAlreadySubmitted) {
		t.Fatalf("post-submit answer err = %v, want ErrSessionAlreadySubmitted", err)
	}

	// 窗口期后另一身份尝试开始
	f.now = t0.Add(3700 * time.Second)
	if _, err := f.svc.Begin(8, 1); !errors.Is(err, util.ErrWindowClosed) {
		t.Fatalf("late begin err = %v, want ErrWindowClosed", err)
	}
}
