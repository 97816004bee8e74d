package service

import (
	"time"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"

	"gorm.io/gorm"
)

// ProgressService maintains per-user rollups (lifetime totals plus subject
// and difficulty breakdowns). Rollups are a cache over the usage ledger; the
// ledger stays the source of truth and Rebuild can regenerate them.
type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	UsageRepo    *repository.UsageRepository
	SessionRepo  *repository.SessionRepository
	QuestionRepo *repository.QuestionRepository
}

func NewProgressService(progressRepo *repository.ProgressRepository, usageRepo *repository.UsageRepository, sessionRepo *repository.SessionRepository, questionRepo *repository.QuestionRepository) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		UsageRepo:    usageRepo,
		SessionRepo:  sessionRepo,
		QuestionRepo: questionRepo,
	}
}

// ApplyCompletedSession folds one completed session into the user's rollups,
// inside the completion transaction.
func (s *ProgressService) ApplyCompletedSession(tx *gorm.DB, session *model.QuestionSession, usages []model.QuestionUsage, questions map[string]*model.Question) error {
	p, err := s.ProgressRepo.GetOrCreateTx(tx, session.UserID)
	if err != nil {
		return err
	}

	p.TotalSessions++
	p.TotalQuestions += session.TotalQuestions
	p.TotalCorrect += session.CorrectCount
	if p.TotalQuestions > 0 {
		p.OverallAccuracy = float64(p.TotalCorrect) / float64(p.TotalQuestions)
	}

	if p.SubjectStats == nil {
		p.SubjectStats = model.StatMap{}
	}
	if p.DifficultyStats == nil {
		p.DifficultyStats = model.StatMap{}
	}

	subj := p.SubjectStats[session.Subject]
	subj.Questions += session.TotalQuestions
	subj.Correct += session.CorrectCount
	subj.Recalc()
	p.SubjectStats[session.Subject] = subj

	for _, u := range usages {
		q, ok := questions[u.QuestionID]
		if !ok {
			continue
		}
		stat := p.DifficultyStats[string(q.Difficulty)]
		stat.Questions++
		if u.WasCorrect != nil && *u.WasCorrect {
			stat.Correct++
		}
		stat.Recalc()
		p.DifficultyStats[string(q.Difficulty)] = stat
	}

	p.UpdatedAt = time.Now()
	return s.ProgressRepo.SaveTx(tx, p)
}

// Get returns the user's current rollups, creating an empty row on first
// read.
func (s *ProgressService) Get(userID uint) (*model.UserProgress, error) {
	return s.ProgressRepo.GetOrCreate(userID)
}

// LifetimeStats is the user's exposure summary computed straight from the
// usage ledger. Seen counts distinct questions ever assigned, which includes
// unanswered and abandoned ones, so it can exceed the rollup totals.
type LifetimeStats struct {
	QuestionsSeen     int64   `json:"questionsSeen"`
	QuestionsAnswered int64   `json:"questionsAnswered"`
	QuestionsCorrect  int64   `json:"questionsCorrect"`
	Accuracy          float64 `json:"accuracy"`
}

func (s *ProgressService) Lifetime(userID uint) (*LifetimeStats, error) {
	totals, err := s.UsageRepo.TotalsByUser(userID)
	if err != nil {
		return nil, err
	}
	stats := &LifetimeStats{
		QuestionsSeen:     totals.Seen,
		QuestionsAnswered: totals.Answered,
		QuestionsCorrect:  totals.Correct,
	}
	if stats.QuestionsAnswered > 0 {
		stats.Accuracy = float64(stats.QuestionsCorrect) / float64(stats.QuestionsAnswered)
	}
	return stats, nil
}

// Rebuild recomputes the rollups from scratch by replaying every completed
// session. Used after data repairs.
func (s *ProgressService) Rebuild(userID uint) (*model.UserProgress, error) {
	sessions, _, err := s.SessionRepo.ListByUser(userID, model.StatusCompleted, 1, 10000)
	if err != nil {
		return nil, err
	}

	p, err := s.ProgressRepo.GetOrCreate(userID)
	if err != nil {
		return nil, err
	}
	*p = model.UserProgress{
		UserID:          userID,
		SubjectStats:    model.StatMap{},
		DifficultyStats: model.StatMap{},
	}

	for i := range sessions {
		sess := &sessions[i]
		if sess.Mode == model.ModeReview {
			continue
		}

		usages, err := s.UsageRepo.FindBySession(sess.ID)
		if err != nil {
			return nil, err
		}
		questions, err := s.questionMap(sess.QuestionIDs)
		if err != nil {
			return nil, err
		}

		p.TotalSessions++
		p.TotalQuestions += sess.TotalQuestions
		p.TotalCorrect += sess.CorrectCount

		subj := p.SubjectStats[sess.Subject]
		subj.Questions += sess.TotalQuestions
		subj.Correct += sess.CorrectCount
		subj.Recalc()
		p.SubjectStats[sess.Subject] = subj

		for _, u := range usages {
			q, ok := questions[u.QuestionID]
			if !ok {
				continue
			}
			stat := p.DifficultyStats[string(q.Difficulty)]
			stat.Questions++
			if u.WasCorrect != nil && *u.WasCorrect {
				stat.Correct++
			}
			stat.Recalc()
			p.DifficultyStats[string(q.Difficulty)] = stat
		}
	}

	if p.TotalQuestions > 0 {
		p.OverallAccuracy = float64(p.TotalCorrect) / float64(p.TotalQuestions)
	}
	p.UpdatedAt = time.Now()

	if err := s.ProgressRepo.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProgressService) questionMap(ids []string) (map[string]*model.Question, error) {
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
