package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/internal/util"
	"bimbel_asn_backend/pkg/logger"
	"bimbel_asn_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionService drives the session lifecycle: sourcing questions, freezing
// the set, collecting answers and reconciling the final score.
type SessionService struct {
	DB           *gorm.DB
	SessionRepo  *repository.SessionRepository
	UsageRepo    *repository.UsageRepository
	QuestionRepo *repository.QuestionRepository
	Selector     *SelectorService
	Progress     *ProgressService
	Quota        *QuotaService

	// One lock per user serializes select-then-mark so two concurrent
	// creations cannot hand the same user the same fresh question twice.
	locksMu sync.Mutex
	locks   map[uint]*sync.Mutex
}

func NewSessionService(db *gorm.DB, sessionRepo *repository.SessionRepository, usageRepo *repository.UsageRepository, questionRepo *repository.QuestionRepository, selector *SelectorService, progress *ProgressService, quota *QuotaService) *SessionService {
	return &SessionService{
		DB:           db,
		SessionRepo:  sessionRepo,
		UsageRepo:    usageRepo,
		QuestionRepo: questionRepo,
		Selector:     selector,
		Progress:     progress,
		Quota:        quota,
		locks:        make(map[uint]*sync.Mutex),
	}
}

func (s *SessionService) userLock(userID uint) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	return mu
}

// CreateSessionInput carries everything session creation needs. Count and
// TimeLimit of 0 fall back to the subject's configured defaults. Difficulty
// pins the whole session to one tier; Distribution spreads it across tiers
// (e.g. DefaultDistribution). With neither set, sourcing asks for hard
// material first and lets the backfill pass fill the rest.
type CreateSessionInput struct {
	UserID       uint
	Tier         model.Tier
	TestCategory model.TestCategory
	Subject      string
	Subtype      string
	Mode         model.SessionMode
	Difficulty   *model.Difficulty
	Distribution map[model.Difficulty]int
	Count        int
	TimeLimit    int
}

// CreateSession builds a new practice or exam session. Sourcing runs in three
// tiers: fresh hard questions for the full count, then fresh questions of any
// difficulty to backfill, then recycled already-seen questions. Exam mode
// stops after tier 2: simulations only run on fresh material.
func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*model.QuestionSession, error) {
	if in.Mode == model.ModeReview {
		return nil, util.ErrInvalidSessionState
	}
	if _, ok := config.SubjectFor(in.TestCategory, in.Subject); !ok {
		return nil, util.ErrUnknownSubject
	}
	if in.Mode == model.ModeExam && !util.LimitForTier(in.Tier).Simulation {
		return nil, util.ErrPermissionDenied
	}

	count := in.Count
	if count <= 0 {
		count = config.DefaultQuestionCount(in.TestCategory, in.Subject)
	}
	if max := util.LimitForTier(in.Tier).MaxQuestionsPerSession; count > max {
		count = max
	}
	timeLimit := in.TimeLimit
	if timeLimit <= 0 {
		timeLimit = config.DefaultTimeLimit(in.TestCategory, in.Subject)
	}

	if s.Quota != nil {
		if err := s.Quota.CheckDailyLimit(ctx, in.UserID, in.Tier); err != nil {
			return nil, err
		}
	}

	mu := s.userLock(in.UserID)
	mu.Lock()
	defer mu.Unlock()

	selected, recycled, err := s.sourceQuestions(in, count)
	if err != nil {
		return nil, err
	}

	rand.Shuffle(len(selected), func(i, j int) { selected[i], selected[j] = selected[j], selected[i] })

	ids := make(model.StringList, len(selected))
	for i, q := range selected {
		ids[i] = q.ID
	}

	difficulty := "mixed"
	if in.Difficulty != nil {
		difficulty = string(*in.Difficulty)
	}

	session := &model.QuestionSession{
		UserID:         in.UserID,
		TestCategory:   in.TestCategory,
		Subject:        in.Subject,
		Subtype:        in.Subtype,
		Difficulty:     difficulty,
		Mode:           in.Mode,
		StorageType:    model.StorageTypeForMode(in.Mode),
		Status:         model.StatusCreated,
		QuestionIDs:    ids,
		TotalQuestions: len(selected),
		RecycledCount:  recycled,
		TimeLimit:      timeLimit,
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.SessionRepo.CreateTx(tx, session); err != nil {
			return err
		}
		return s.Selector.MarkUsed(tx, in.UserID, session.ID, selected, 1, now)
	})
	if err != nil {
		return nil, err
	}

	if s.Quota != nil {
		s.Quota.RecordSession(ctx, in.UserID)
	}

	monitoring.SessionsCreated.WithLabelValues(string(in.TestCategory), string(in.Mode)).Inc()
	logger.Log.Info("session created",
		zap.String("session_id", session.ID),
		zap.Uint("user_id", in.UserID),
		zap.String("subject", in.Subject),
		zap.Int("questions", len(selected)),
		zap.Int("recycled", recycled))
	return session, nil
}

func (s *SessionService) sourceQuestions(in CreateSessionInput, count int) ([]model.Question, int, error) {
	var selected []model.Question
	var selectedIDs []string

	take := func(qs []model.Question) {
		for _, q := range qs {
			selected = append(selected, q)
			selectedIDs = append(selectedIDs, q.ID)
		}
	}

	// Tier 1: fresh questions. Default is the full count from the hard
	// bucket so steady-state sessions lean on the hardest material the bank
	// holds; tier 2 picks up whatever hard cannot cover.
	switch {
	case in.Difficulty != nil:
		qs, err := s.Selector.SelectFresh(in.UserID, in.TestCategory, in.Subject, in.Subtype, in.Difficulty, count, nil)
		if err != nil {
			return nil, 0, err
		}
		take(qs)
	case len(in.Distribution) > 0:
		for i := len(model.Difficulties) - 1; i >= 0; i-- {
			d := model.Difficulties[i]
			qs, err := s.Selector.SelectFresh(in.UserID, in.TestCategory, in.Subject, in.Subtype, &d, in.Distribution[d], selectedIDs)
			if err != nil {
				return nil, 0, err
			}
			take(qs)
		}
	default:
		hard := model.DifficultyHard
		qs, err := s.Selector.SelectFresh(in.UserID, in.TestCategory, in.Subject, in.Subtype, &hard, count, nil)
		if err != nil {
			return nil, 0, err
		}
		take(qs)
	}

	// Tier 2: backfill with any fresh question left in the bucket.
	if len(selected) < count {
		qs, err := s.Selector.SelectFresh(in.UserID, in.TestCategory, in.Subject, in.Subtype, nil, count-len(selected), selectedIDs)
		if err != nil {
			return nil, 0, err
		}
		take(qs)
	}

	fresh := len(selected)
	if in.Mode == model.ModeExam {
		if fresh < count {
			return nil, 0, &util.InsufficientQuestionsError{Available: fresh, Needed: count}
		}
		return selected, 0, nil
	}

	// Tier 3: recycle already-seen questions so an exhausted bank still
	// yields a session.
	recycled := 0
	if len(selected) < count {
		qs, err := s.Selector.SelectRecycled(in.UserID, in.TestCategory, in.Subject, in.Subtype, count-len(selected), selectedIDs)
		if err != nil {
			return nil, 0, err
		}
		recycled = len(qs)
		take(qs)
	}

	if len(selected) == 0 {
		return nil, 0, &util.InsufficientQuestionsError{Available: fresh, Needed: count}
	}
	return selected, recycled, nil
}

// ReviewQuestion is a replayed question carrying the user's answer from the
// source session.
type ReviewQuestion struct {
	SessionQuestion
	PriorAnswer  string `json:"priorAnswer,omitempty"`
	PriorCorrect *bool  `json:"priorCorrect,omitempty"`
}

// ReviewCreation bundles the new review session with the replayed question
// set, each annotated with the prior answer.
type ReviewCreation struct {
	Session   *model.QuestionSession `json:"session"`
	Questions []ReviewQuestion       `json:"questions"`
}

// CreateReviewSession replays a completed session's exact question set in the
// same order, annotated with the answers the user gave back then. The replay
// gets its own ledger entries and outcome counters so the original stays
// frozen.
func (s *SessionService) CreateReviewSession(userID uint, sourceID string) (*ReviewCreation, error) {
	source, err := s.findOwned(sourceID, userID)
	if err != nil {
		return nil, err
	}
	if source.Status != model.StatusCompleted || !source.CanReview {
		return nil, util.ErrSessionNotReviewable
	}

	replays, err := s.Selector.SelectReplay(source.ID)
	if err != nil {
		return nil, err
	}
	questions := make([]model.Question, len(replays))
	for i, r := range replays {
		questions[i] = r.Question
	}

	sourceRef := source.ID
	session := &model.QuestionSession{
		UserID:         userID,
		TestCategory:   source.TestCategory,
		Subject:        source.Subject,
		Subtype:        source.Subtype,
		Difficulty:     source.Difficulty,
		Mode:           model.ModeReview,
		StorageType:    model.StorageTypeForMode(model.ModeReview),
		Status:         model.StatusCreated,
		QuestionIDs:    source.QuestionIDs,
		TotalQuestions: source.TotalQuestions,
		ReviewOfID:     &sourceRef,
		TimeLimit:      source.TimeLimit,
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.SessionRepo.CreateTx(tx, session); err != nil {
			return err
		}
		return s.Selector.RecordReplay(tx, userID, session.ID, questions, now)
	})
	if err != nil {
		return nil, err
	}

	out := &ReviewCreation{
		Session:   session,
		Questions: make([]ReviewQuestion, len(replays)),
	}
	for i, r := range replays {
		out.Questions[i] = ReviewQuestion{
			SessionQuestion: toSessionQuestion(&r.Question, i+1),
			PriorAnswer:     r.Usage.UserAnswer,
			PriorCorrect:    r.Usage.WasCorrect,
		}
	}
	return out, nil
}

// StartSession moves a created session to in_progress. Starting an already
// running session is a no-op so a reconnecting client can call it again.
func (s *SessionService) StartSession(userID uint, sessionID string) (*model.QuestionSession, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case model.StatusInProgress:
		return session, nil
	case model.StatusCreated:
		now := time.Now()
		session.Status = model.StatusInProgress
		session.StartedAt = &now
		if err := s.SessionRepo.Save(session); err != nil {
			return nil, err
		}
		return session, nil
	default:
		return nil, util.ErrInvalidSessionState
	}
}

// AnswerResult is the immediate feedback for one submitted answer. Correct
// and Explanation stay empty in exam mode; results wait for completion.
type AnswerResult struct {
	Accepted    bool    `json:"accepted"`
	Correct     *bool   `json:"correct,omitempty"`
	Awarded     float64 `json:"awarded"`
	Explanation string  `json:"explanation,omitempty"`
}

// SubmitAnswer records an answer against a session question. The last answer
// for a question wins; answers against questions outside the frozen set are
// rejected rather than recorded.
func (s *SessionService) SubmitAnswer(userID uint, sessionID, questionID, answer string, timeSpent *int, tier model.Tier) (*AnswerResult, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusInProgress {
		return nil, util.ErrInvalidSessionState
	}

	record, err := s.UsageRepo.FindBySessionAndQuestion(sessionID, questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUsageRecordMissing
	}
	if err != nil {
		return nil, err
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		return nil, err
	}
	if _, ok := question.Options[answer]; !ok {
		return nil, util.ErrInvalidAnswerOption
	}

	awarded, correct := question.ScoreAnswer(answer)
	record.Answered = true
	record.UserAnswer = answer
	record.WasCorrect = &correct
	record.Awarded = awarded
	record.TimeSpent = timeSpent
	if err := s.UsageRepo.Save(record); err != nil {
		return nil, err
	}

	result := &AnswerResult{Accepted: true}
	if session.Mode != model.ModeExam {
		c := correct
		result.Correct = &c
		result.Awarded = awarded
		if util.LimitForTier(tier).Explanation {
			result.Explanation = question.Explanation
		}
	}
	return result, nil
}

// CompleteSession reconciles the final result from the ledger entries: every
// assigned question counts exactly once as correct, incorrect or unanswered,
// and the score is awarded points over attainable points as a percentage.
func (s *SessionService) CompleteSession(userID uint, sessionID string) (*model.QuestionSession, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusInProgress {
		return nil, util.ErrInvalidSessionState
	}

	usages, err := s.UsageRepo.FindBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if len(usages) != session.TotalQuestions {
		logger.Log.Error("session ledger out of sync",
			zap.String("session_id", sessionID),
			zap.Int("expected", session.TotalQuestions),
			zap.Int("found", len(usages)))
		return nil, util.ErrSessionInconsistent
	}

	questions, err := s.questionMapByIDs(session.QuestionIDs)
	if err != nil {
		return nil, err
	}

	var correct, incorrect, unanswered int
	var awardedSum, maxSum float64
	for _, u := range usages {
		q, ok := questions[u.QuestionID]
		if !ok {
			return nil, util.ErrQuestionNotFound
		}
		maxSum += q.MaxScore()

		switch {
		case !u.Answered:
			unanswered++
		case u.WasCorrect != nil && *u.WasCorrect:
			correct++
			awardedSum += u.Awarded
		default:
			incorrect++
			awardedSum += u.Awarded
		}
	}

	score := 0.0
	if maxSum > 0 {
		score = awardedSum / maxSum * 100
	}

	now := time.Now()
	session.Status = model.StatusCompleted
	session.CompletedAt = &now
	session.CorrectCount = correct
	session.IncorrectCount = incorrect
	session.UnansweredCount = unanswered
	session.Score = &score

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.SessionRepo.SaveTx(tx, session); err != nil {
			return err
		}
		if err := s.refreshCorrectRates(tx, session.QuestionIDs); err != nil {
			return err
		}
		if session.Mode != model.ModeReview && s.Progress != nil {
			return s.Progress.ApplyCompletedSession(tx, session, usages, questions)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("session completed",
		zap.String("session_id", sessionID),
		zap.Float64("score", score),
		zap.Int("correct", correct),
		zap.Int("incorrect", incorrect),
		zap.Int("unanswered", unanswered))
	return session, nil
}

// AbandonSession closes out a session the user walked away from. Abandoned
// sessions keep their ledger entries; the never-repeat exclusion still
// covers their questions.
func (s *SessionService) AbandonSession(userID uint, sessionID string) (*model.QuestionSession, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusCreated && session.Status != model.StatusInProgress {
		return nil, util.ErrInvalidSessionState
	}

	session.Status = model.StatusAbandoned
	if err := s.SessionRepo.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

// SessionQuestion is a question as served to the client: no correct answer,
// no scores, no explanation.
type SessionQuestion struct {
	ID             string           `json:"id"`
	Seq            int              `json:"seq"`
	Subject        string           `json:"subject"`
	Subtype        string           `json:"subtype,omitempty"`
	Difficulty     model.Difficulty `json:"difficulty"`
	ReadingPassage string           `json:"readingPassage,omitempty"`
	QuestionText   string           `json:"questionText"`
	Options        model.OptionMap  `json:"options"`
}

// GetSessionQuestions returns the frozen question set in served order.
func (s *SessionService) GetSessionQuestions(userID uint, sessionID string) ([]SessionQuestion, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionsInOrder(session.QuestionIDs)
	if err != nil {
		return nil, err
	}

	out := make([]SessionQuestion, len(questions))
	for i := range questions {
		out[i] = toSessionQuestion(&questions[i], i+1)
	}
	return out, nil
}

func toSessionQuestion(q *model.Question, seq int) SessionQuestion {
	return SessionQuestion{
		ID:             q.ID,
		Seq:            seq,
		Subject:        q.Subject,
		Subtype:        q.Subtype,
		Difficulty:     q.Difficulty,
		ReadingPassage: q.ReadingPassage,
		QuestionText:   q.QuestionText,
		Options:        q.Options,
	}
}

// QuestionResult is the per-question breakdown shown after completion.
type QuestionResult struct {
	QuestionID    string  `json:"questionId"`
	Seq           int     `json:"seq"`
	QuestionText  string  `json:"questionText"`
	UserAnswer    string  `json:"userAnswer,omitempty"`
	CorrectAnswer string  `json:"correctAnswer,omitempty"`
	Correct       *bool   `json:"correct,omitempty"`
	Awarded       float64 `json:"awarded"`
	MaxScore      float64 `json:"maxScore"`
	Explanation   string  `json:"explanation,omitempty"`
	TimeSpent     *int    `json:"timeSpent,omitempty"`
}

// SessionResults bundles the completed session with its breakdown.
type SessionResults struct {
	Session   *model.QuestionSession `json:"session"`
	Questions []QuestionResult       `json:"questions"`
}

// GetSessionResults returns the frozen outcome of a completed session.
func (s *SessionService) GetSessionResults(userID uint, sessionID string, tier model.Tier) (*SessionResults, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.StatusCompleted {
		return nil, util.ErrInvalidSessionState
	}

	usages, err := s.UsageRepo.FindBySession(sessionID)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionMapByIDs(session.QuestionIDs)
	if err != nil {
		return nil, err
	}

	showExplanation := util.LimitForTier(tier).Explanation
	results := make([]QuestionResult, 0, len(usages))
	for _, u := range usages {
		q, ok := questions[u.QuestionID]
		if !ok {
			continue
		}
		r := QuestionResult{
			QuestionID:   u.QuestionID,
			Seq:          u.Seq,
			QuestionText: q.QuestionText,
			UserAnswer:   u.UserAnswer,
			Correct:      u.WasCorrect,
			Awarded:      u.Awarded,
			MaxScore:     q.MaxScore(),
			TimeSpent:    u.TimeSpent,
		}
		if q.AnswerKind == model.AnswerSingleCorrect {
			r.CorrectAnswer = q.CorrectAnswer
		}
		if showExplanation {
			r.Explanation = q.Explanation
		}
		results = append(results, r)
	}

	return &SessionResults{Session: session, Questions: results}, nil
}

// GetSession returns a session owned by the user.
func (s *SessionService) GetSession(userID uint, sessionID string) (*model.QuestionSession, error) {
	return s.findOwned(sessionID, userID)
}

// ListHistory pages through the user's sessions, newest first.
func (s *SessionService) ListHistory(userID uint, status model.SessionStatus, page, limit int) ([]model.QuestionSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.SessionRepo.ListByUser(userID, status, page, limit)
}

func (s *SessionService) findOwned(sessionID string, userID uint) (*model.QuestionSession, error) {
	session, err := s.SessionRepo.FindByIDAndUser(sessionID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) questionsInOrder(ids []string) ([]model.Question, error) {
	byID, err := s.questionMapByIDs(ids)
	if err != nil {
		return nil, err
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, util.ErrQuestionNotFound
		}
		ordered = append(ordered, *q)
	}
	return ordered, nil
}

func (s *SessionService) questionMapByIDs(ids []string) (map[string]*model.Question, error) {
	qs, err := s.QuestionRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.Question, len(qs))
	for i := range qs {
		m[qs[i].ID] = &qs[i]
	}
	return m, nil
}

func (s *SessionService) refreshCorrectRates(tx *gorm.DB, ids []string) error {
	for _, id := range ids {
		stats, err := s.UsageRepo.AnswerStatsByQuestionTx(tx, id)
		if err != nil {
			return err
		}
		if stats.Answered == 0 {
			continue
		}
		rate := float64(stats.Correct) / float64(stats.Answered)
		if err := s.QuestionRepo.UpdateCorrectRate(tx, id, rate); err != nil {
			return err
		}
	}
	return nil
}
