package model

import "time"

// QuestionSession is one bounded exam/practice attempt. Once completed, its
// question set and outcome counts are frozen.
type QuestionSession struct {
	UUIDBase

	UserID       uint         `gorm:"not null;index" json:"userId"`
	TestCategory TestCategory `gorm:"type:varchar(20);not null" json:"testCategory"`
	Subject      string       `gorm:"type:varchar(50)" json:"subject"`
	Subtype      string       `gorm:"type:varchar(50)" json:"subtype,omitempty"`
	Difficulty   string       `gorm:"type:varchar(20);not null" json:"difficulty"`

	Mode        SessionMode        `gorm:"type:varchar(20);not null;index:ix_sessions_user_mode,priority:2" json:"mode"`
	StorageType SessionStorageType `gorm:"type:varchar(20);default:standard" json:"sessionType"`
	Status      SessionStatus      `gorm:"type:varchar(20);not null;default:created" json:"status"`

	// Frozen question set, in served order.
	QuestionIDs    StringList `gorm:"type:json;not null" json:"questionIds"`
	TotalQuestions int        `gorm:"not null" json:"totalQuestions"`
	// Number of tier-3 recycled questions in the set (0 in the steady state).
	RecycledCount int `gorm:"default:0" json:"recycledCount"`

	// Back-reference for review sessions.
	ReviewOfID *string `gorm:"type:varchar(36);index" json:"reviewOfId,omitempty"`

	TimeLimit   int        `gorm:"default:60" json:"timeLimit"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CorrectCount    int      `gorm:"default:0" json:"correctCount"`
	IncorrectCount  int      `gorm:"default:0" json:"incorrectCount"`
	UnansweredCount int      `gorm:"default:0" json:"unansweredCount"`
	Score           *float64 `json:"score,omitempty"`

	CanReview bool `gorm:"default:true;not null" json:"canReview"`
}
