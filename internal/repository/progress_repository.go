package repository

import (
	"errors"

	"bimbel_asn_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetOrCreate returns the user's progress row, creating an empty one on first
// access.
func (r *ProgressRepository) GetOrCreate(userID uint) (*model.UserProgress, error) {
	return r.GetOrCreateTx(r.DB, userID)
}

// GetOrCreateTx is GetOrCreate on the caller's connection. The first-access
// create must ride the surrounding transaction or it commits on its own.
func (r *ProgressRepository) GetOrCreateTx(tx *gorm.DB, userID uint) (*model.UserProgress, error) {
	var p model.UserProgress
	err := tx.First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = model.UserProgress{
			UserID:          userID,
			SubjectStats:    model.StatMap{},
			DifficultyStats: model.StatMap{},
		}
		if err := tx.Create(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) Save(p *model.UserProgress) error {
	return r.DB.Save(p).Error
}

func (r *ProgressRepository) SaveTx(tx *gorm.DB, p *model.UserProgress) error {
	return tx.Save(p).Error
}
