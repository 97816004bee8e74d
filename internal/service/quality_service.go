package service

import (
	"strings"
	"time"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/pkg/logger"
	"bimbel_asn_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// Default quality thresholds, used when the config leaves them zero.
const (
	defaultMinSample       = 10
	defaultMinCorrectRate  = 0.30
	defaultMaxCorrectRate  = 0.95
	defaultMinQualityScore = 0.60
)

// Retirement reasons, stored on the question row.
const (
	ReasonTooDifficult = "too_difficult"
	ReasonTooEasy      = "too_easy"
	ReasonLowQuality   = "low_quality"
)

// QualityService watches answer statistics and retires questions that turn
// out to be broken: nearly nobody answers them right, nearly everybody does,
// or their quality score dropped below the floor.
type QualityService struct {
	QuestionRepo *repository.QuestionRepository
	UsageRepo    *repository.UsageRepository

	minSample       int
	minCorrectRate  float64
	maxCorrectRate  float64
	minQualityScore float64
}

func NewQualityService(questionRepo *repository.QuestionRepository, usageRepo *repository.UsageRepository, cfg config.QualityConfig) *QualityService {
	s := &QualityService{
		QuestionRepo:    questionRepo,
		UsageRepo:       usageRepo,
		minSample:       cfg.MinSample,
		minCorrectRate:  cfg.MinCorrectRate,
		maxCorrectRate:  cfg.MaxCorrectRate,
		minQualityScore: cfg.MinQualityScore,
	}
	if s.minSample <= 0 {
		s.minSample = defaultMinSample
	}
	if s.minCorrectRate <= 0 {
		s.minCorrectRate = defaultMinCorrectRate
	}
	if s.maxCorrectRate <= 0 {
		s.maxCorrectRate = defaultMaxCorrectRate
	}
	if s.minQualityScore <= 0 {
		s.minQualityScore = defaultMinQualityScore
	}
	return s
}

// SetThresholds applies new limits, keeping defaults for zero values. Called
// on config hot-reload.
func (s *QualityService) SetThresholds(cfg config.QualityConfig) {
	if cfg.MinSample > 0 {
		s.minSample = cfg.MinSample
	}
	if cfg.MinCorrectRate > 0 {
		s.minCorrectRate = cfg.MinCorrectRate
	}
	if cfg.MaxCorrectRate > 0 {
		s.maxCorrectRate = cfg.MaxCorrectRate
	}
	if cfg.MinQualityScore > 0 {
		s.minQualityScore = cfg.MinQualityScore
	}
}

// Evaluation is the quality verdict for one question.
type Evaluation struct {
	QuestionID  string   `json:"questionId"`
	Answered    int64    `json:"answered"`
	CorrectRate float64  `json:"correctRate"`
	Sufficient  bool     `json:"sufficient"`
	Reasons     []string `json:"reasons,omitempty"`
}

// Evaluate checks one question against every threshold independently and
// collects all reasons that apply. Scored questions have no single correct
// answer, so the correct-rate checks skip them.
func (s *QualityService) Evaluate(q *model.Question) (*Evaluation, error) {
	stats, err := s.UsageRepo.AnswerStatsByQuestion(q.ID)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{QuestionID: q.ID, Answered: stats.Answered}
	if stats.Answered < int64(s.minSample) {
		return ev, nil
	}
	ev.Sufficient = true
	ev.CorrectRate = float64(stats.Correct) / float64(stats.Answered)

	if q.AnswerKind == model.AnswerSingleCorrect {
		if ev.CorrectRate < s.minCorrectRate {
			ev.Reasons = append(ev.Reasons, ReasonTooDifficult)
		}
		if ev.CorrectRate > s.maxCorrectRate {
			ev.Reasons = append(ev.Reasons, ReasonTooEasy)
		}
	}
	if q.QualityScore < s.minQualityScore {
		ev.Reasons = append(ev.Reasons, ReasonLowQuality)
	}
	return ev, nil
}

// ScanReport summarizes one retirement sweep.
type ScanReport struct {
	Scanned int      `json:"scanned"`
	Retired int      `json:"retired"`
	Skipped int      `json:"skipped"`
	Errors  int      `json:"errors"`
	Items   []string `json:"items,omitempty"`
}

// ApplyRetirementSweep sweeps every sufficiently-used active question and
// retires the ones that fail evaluation; Report is the advisory counterpart.
// One bad question never aborts the sweep; errors are logged and counted.
func (s *QualityService) ApplyRetirementSweep() (*ScanReport, error) {
	questions, err := s.QuestionRepo.FindActiveWithMinUsage(s.minSample)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{}
	now := time.Now()
	for i := range questions {
		q := &questions[i]
		report.Scanned++

		ev, err := s.Evaluate(q)
		if err != nil {
			report.Errors++
			logger.Log.Error("quality evaluation failed",
				zap.String("question_id", q.ID), zap.Error(err))
			continue
		}
		if !ev.Sufficient || len(ev.Reasons) == 0 {
			report.Skipped++
			continue
		}

		reason := strings.Join(ev.Reasons, ",")
		if err := s.QuestionRepo.Retire(q.ID, reason, now); err != nil {
			report.Errors++
			logger.Log.Error("failed to retire question",
				zap.String("question_id", q.ID), zap.Error(err))
			continue
		}
		report.Retired++
		report.Items = append(report.Items, q.ID)
		monitoring.QuestionsRetired.Inc()
		logger.Log.Info("question retired",
			zap.String("question_id", q.ID),
			zap.String("reason", reason),
			zap.Float64("correct_rate", ev.CorrectRate))
	}
	return report, nil
}

// PerformanceReport is the advisory view of the bank: evaluations for every
// question with enough data, plus the subset that would be retired.
type PerformanceReport struct {
	Evaluated   int          `json:"evaluated"`
	FlaggedIDs  []string     `json:"flaggedIds,omitempty"`
	Evaluations []Evaluation `json:"evaluations"`
}

// Report evaluates the active bank without retiring anything.
func (s *QualityService) Report() (*PerformanceReport, error) {
	questions, err := s.QuestionRepo.FindActiveWithMinUsage(s.minSample)
	if err != nil {
		return nil, err
	}

	report := &PerformanceReport{}
	for i := range questions {
		ev, err := s.Evaluate(&questions[i])
		if err != nil {
			logger.Log.Error("quality evaluation failed",
				zap.String("question_id", questions[i].ID), zap.Error(err))
			continue
		}
		report.Evaluated++
		report.Evaluations = append(report.Evaluations, *ev)
		if ev.Sufficient && len(ev.Reasons) > 0 {
			report.FlaggedIDs = append(report.FlaggedIDs, ev.QuestionID)
		}
	}
	return report, nil
}

// Retire takes a question out of circulation by hand.
func (s *QualityService) Retire(id, reason string) error {
	if _, err := s.QuestionRepo.FindByID(id); err != nil {
		return err
	}
	return s.QuestionRepo.Retire(id, reason, time.Now())
}

// Restore puts a retired question back into circulation.
func (s *QualityService) Restore(id string) error {
	if _, err := s.QuestionRepo.FindByID(id); err != nil {
		return err
	}
	return s.QuestionRepo.Restore(id)
}
