package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Question is one master exam item. Questions are never physically deleted;
// retirement flips IsActive off so the selector stops serving them.
type Question struct {
	UUIDBase

	TestCategory TestCategory `gorm:"type:varchar(20);index:idx_questions_bucket" json:"testCategory"`
	Subject      string       `gorm:"type:varchar(50);index:idx_questions_bucket" json:"subject"`
	Subtype      string       `gorm:"type:varchar(50)" json:"subtype,omitempty"`
	Difficulty   Difficulty   `gorm:"type:varchar(20);index:idx_questions_bucket" json:"difficulty"`

	ReadingPassage string    `gorm:"type:text" json:"readingPassage,omitempty"`
	QuestionText   string    `gorm:"type:text;not null" json:"questionText"`
	Options        OptionMap `gorm:"type:json" json:"options"`

	AnswerKind    AnswerKind `gorm:"type:varchar(20);default:single_correct" json:"answerKind"`
	CorrectAnswer string     `gorm:"type:varchar(10)" json:"-"`
	AnswerScores  ScoreMap   `gorm:"type:json" json:"-"`
	Explanation   string     `gorm:"type:text" json:"-"`

	// SHA-256 over prompt+answer, enforced unique for duplicate detection.
	ContentHash string `gorm:"type:varchar(64);uniqueIndex" json:"-"`

	QualityScore float64    `gorm:"default:1.0" json:"qualityScore"`
	UsageCount   int        `gorm:"default:0;index" json:"usageCount"`
	CorrectRate  float64    `gorm:"default:0" json:"correctRate"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`

	IsActive      bool       `gorm:"default:true;index" json:"isActive"`
	RetiredAt     *time.Time `json:"retiredAt,omitempty"`
	RetiredReason string     `gorm:"type:varchar(255)" json:"retiredReason,omitempty"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) (err error) {
	if err = q.UUIDBase.BeforeCreate(tx); err != nil {
		return err
	}
	if q.ContentHash == "" {
		q.ContentHash = q.GenerateHash()
	}
	return nil
}

// GenerateHash fingerprints the question content for dedupe.
func (q *Question) GenerateHash() string {
	h := sha256.Sum256([]byte(q.QuestionText + "|" + q.CorrectAnswer))
	return hex.EncodeToString(h[:])
}

// MaxScore is the highest attainable score for this item: the score-map
// maximum for scored questions, 1 for single-correct ones.
func (q *Question) MaxScore() float64 {
	if q.AnswerKind == AnswerScoredOptions {
		return q.AnswerScores.Max()
	}
	return 1
}

// ScoreAnswer returns the points awarded for an answer and whether it counts
// as correct (maximum attainable score for scored items, exact match
// otherwise).
func (q *Question) ScoreAnswer(answer string) (awarded float64, correct bool) {
	if q.AnswerKind == AnswerScoredOptions {
		awarded = q.AnswerScores[answer]
		return awarded, awarded >= q.AnswerScores.Max() && len(q.AnswerScores) > 0
	}
	if answer == q.CorrectAnswer {
		return 1, true
	}
	return 0, false
}
