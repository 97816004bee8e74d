package repository

import (
	"bimbel_asn_backend/internal/model"

	"gorm.io/gorm"
)

type UsageRepository struct {
	DB *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{DB: db}
}

func (r *UsageRepository) CreateBatch(tx *gorm.DB, records []model.QuestionUsage) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Create(&records).Error
}

func (r *UsageRepository) FindBySession(sessionID string) ([]model.QuestionUsage, error) {
	var records []model.QuestionUsage
	err := r.DB.Where("session_id = ?", sessionID).Order("seq ASC").Find(&records).Error
	return records, err
}

func (r *UsageRepository) FindBySessionAndQuestion(sessionID, questionID string) (*model.QuestionUsage, error) {
	var record model.QuestionUsage
	err := r.DB.First(&record, "session_id = ? AND question_id = ?", sessionID, questionID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *UsageRepository) Save(record *model.QuestionUsage) error {
	return r.DB.Save(record).Error
}

// SeenQuestionIDs returns every question id the user has ever been assigned,
// across all sessions and modes.
func (r *UsageRepository) SeenQuestionIDs(userID uint) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.QuestionUsage{}).
		Distinct("question_id").
		Where("user_id = ?", userID).
		Pluck("question_id", &ids).Error
	return ids, err
}

// AnswerStats aggregates answered attempts for a question across all users.
type AnswerStats struct {
	Answered int64
	Correct  int64
}

func (r *UsageRepository) AnswerStatsByQuestion(questionID string) (AnswerStats, error) {
	return r.AnswerStatsByQuestionTx(r.DB, questionID)
}

// AnswerStatsByQuestionTx runs the aggregation on the caller's connection so
// transactional callers never mix in the root connection.
func (r *UsageRepository) AnswerStatsByQuestionTx(tx *gorm.DB, questionID string) (AnswerStats, error) {
	var stats AnswerStats
	err := tx.Model(&model.QuestionUsage{}).
		Where("question_id = ? AND answered = ?", questionID, true).
		Count(&stats.Answered).Error
	if err != nil {
		return stats, err
	}
	err = tx.Model(&model.QuestionUsage{}).
		Where("question_id = ? AND answered = ? AND was_correct = ?", questionID, true, true).
		Count(&stats.Correct).Error
	return stats, err
}

// UserTotals summarizes a user's lifetime exposure and accuracy.
type UserTotals struct {
	Seen     int64
	Answered int64
	Correct  int64
}

func (r *UsageRepository) TotalsByUser(userID uint) (UserTotals, error) {
	var totals UserTotals
	err := r.DB.Model(&model.QuestionUsage{}).
		Where("user_id = ?", userID).
		Distinct("question_id").
		Count(&totals.Seen).Error
	if err != nil {
		return totals, err
	}
	err = r.DB.Model(&model.QuestionUsage{}).
		Where("user_id = ? AND answered = ?", userID, true).
		Count(&totals.Answered).Error
	if err != nil {
		return totals, err
	}
	err = r.DB.Model(&model.QuestionUsage{}).
		Where("user_id = ? AND answered = ? AND was_correct = ?", userID, true, true).
		Count(&totals.Correct).Error
	return totals, err
}
