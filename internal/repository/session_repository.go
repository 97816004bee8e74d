package repository

import (
	"time"

	"bimbel_asn_backend/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) CreateTx(tx *gorm.DB, s *model.QuestionSession) error {
	return tx.Create(s).Error
}

func (r *SessionRepository) FindByID(id string) (*model.QuestionSession, error) {
	var s model.QuestionSession
	err := r.DB.First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) FindByIDAndUser(id string, userID uint) (*model.QuestionSession, error) {
	var s model.QuestionSession
	err := r.DB.First(&s, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Save(s *model.QuestionSession) error {
	return r.DB.Save(s).Error
}

func (r *SessionRepository) SaveTx(tx *gorm.DB, s *model.QuestionSession) error {
	return tx.Save(s).Error
}

// ListByUser returns the user's sessions newest first, optionally filtered by
// status.
func (r *SessionRepository) ListByUser(userID uint, status model.SessionStatus, page, limit int) ([]model.QuestionSession, int64, error) {
	var sessions []model.QuestionSession
	var total int64

	query := r.DB.Model(&model.QuestionSession{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, total, err
}

// CountCreatedSince counts sessions the user created at or after the given
// time, for daily quota enforcement when Redis is unavailable.
func (r *SessionRepository) CountCreatedSince(userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuestionSession{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}
