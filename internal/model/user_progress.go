package model

import "time"

// UserProgress is the derived lifetime rollup per user. It is updated
// incrementally on session completion and can always be rebuilt from the
// usage ledger and session history; it is not authoritative.
type UserProgress struct {
	UserID uint `gorm:"primaryKey" json:"userId"`

	TotalSessions   int     `gorm:"default:0;not null" json:"totalSessions"`
	TotalQuestions  int     `gorm:"default:0;not null" json:"totalQuestions"`
	TotalCorrect    int     `gorm:"default:0;not null" json:"totalCorrect"`
	OverallAccuracy float64 `gorm:"default:0;not null" json:"overallAccuracy"`

	SubjectStats    StatMap `gorm:"type:json" json:"subjectStats"`
	DifficultyStats StatMap `gorm:"type:json" json:"difficultyStats"`

	UpdatedAt time.Time `json:"updatedAt"`
}
