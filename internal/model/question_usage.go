package model

import "time"

// QuestionUsage is one append-only ledger entry: user U was shown question Q
// in session S. The distinct question ids across a user's entries are their
// lifetime "seen" set; entries are never deleted.
type QuestionUsage struct {
	UUIDBase

	QuestionID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_usage_triple" json:"questionId"`
	UserID     uint   `gorm:"not null;index;uniqueIndex:idx_usage_triple" json:"userId"`
	SessionID  string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_usage_triple" json:"sessionId"`

	// Seq preserves the question order within the session.
	Seq    int       `gorm:"not null" json:"seq"`
	UsedAt time.Time `gorm:"not null;index" json:"usedAt"`

	Answered   bool    `gorm:"default:false;not null" json:"answered"`
	UserAnswer string  `gorm:"type:varchar(10)" json:"userAnswer,omitempty"`
	WasCorrect *bool   `json:"wasCorrect,omitempty"`
	TimeSpent  *int    `json:"timeSpent,omitempty"`
	Awarded    float64 `gorm:"default:0" json:"awarded"`
}
