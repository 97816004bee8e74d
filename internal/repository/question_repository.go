package repository

import (
	"bimbel_asn_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id string) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindByIDs(ids []string) ([]model.Question, error) {
	var qs []model.Question
	if len(ids) == 0 {
		return qs, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) FindByContentHash(hash string) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, "content_hash = ?", hash).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// seenSubquery is the user's lifetime exposure set: every question id that
// appears in any of their usage records, with no time window.
func (r *QuestionRepository) seenSubquery(userID uint) *gorm.DB {
	return r.DB.Model(&model.QuestionUsage{}).
		Select("question_id").
		Where("user_id = ?", userID)
}

func (r *QuestionRepository) bucketQuery(category model.TestCategory, subject, subtype string) *gorm.DB {
	query := r.DB.Model(&model.Question{}).
		Where("test_category = ? AND subject = ? AND is_active = ?", category, subject, true)
	if subtype != "" {
		query = query.Where("subtype = ?", subtype)
	}
	return query
}

// FindFresh returns the active questions in a bucket the user has never been
// shown, ordered by global usage_count ascending. The random tie-break among
// equal counts happens in the selector, not in SQL.
func (r *QuestionRepository) FindFresh(userID uint, category model.TestCategory, subject, subtype string, difficulty *model.Difficulty) ([]model.Question, error) {
	query := r.bucketQuery(category, subject, subtype).
		Where("id NOT IN (?)", r.seenSubquery(userID))
	if difficulty != nil {
		query = query.Where("difficulty = ?", *difficulty)
	}

	var qs []model.Question
	err := query.Order("usage_count ASC").Find(&qs).Error
	return qs, err
}

// CountFresh counts never-seen active questions in a bucket.
func (r *QuestionRepository) CountFresh(userID uint, category model.TestCategory, subject, subtype string, difficulty *model.Difficulty) (int64, error) {
	query := r.bucketQuery(category, subject, subtype).
		Where("id NOT IN (?)", r.seenSubquery(userID))
	if difficulty != nil {
		query = query.Where("difficulty = ?", *difficulty)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// FindActiveInBucket returns all active bucket questions excluding the given
// ids, regardless of usage. Feeds the tier-3 recycle pool.
func (r *QuestionRepository) FindActiveInBucket(category model.TestCategory, subject, subtype string, excludeIDs []string) ([]model.Question, error) {
	query := r.bucketQuery(category, subject, subtype)
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}

	var qs []model.Question
	err := query.Find(&qs).Error
	return qs, err
}

// IncrementUsage bumps usage counters atomically at the storage layer; never
// a read-modify-write in application memory.
func (r *QuestionRepository) IncrementUsage(tx *gorm.DB, ids []string, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&model.Question{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": now,
		}).Error
}

func (r *QuestionRepository) UpdateCorrectRate(tx *gorm.DB, id string, rate float64) error {
	return tx.Model(&model.Question{}).
		Where("id = ?", id).
		Update("correct_rate", rate).Error
}

// Retire soft-flags a question out of circulation. Questions are never
// physically deleted.
func (r *QuestionRepository) Retire(id string, reason string, now time.Time) error {
	return r.DB.Model(&model.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":      false,
			"retired_at":     now,
			"retired_reason": reason,
		}).Error
}

func (r *QuestionRepository) Restore(id string) error {
	return r.DB.Model(&model.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":      true,
			"retired_at":     nil,
			"retired_reason": "",
		}).Error
}

// FindActiveWithMinUsage lists active questions that have been served at
// least min times, for the retirement scan.
func (r *QuestionRepository) FindActiveWithMinUsage(min int) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("is_active = ? AND usage_count >= ?", true, min).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) ListBySubject(category model.TestCategory, subject string, page, limit int) ([]model.Question, int64, error) {
	var qs []model.Question
	var total int64

	query := r.DB.Model(&model.Question{}).Where("test_category = ? AND subject = ?", category, subject)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}
