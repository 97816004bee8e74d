package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

var testDBSeq int64

// newTestDB opens a uniquely named shared-cache in-memory database so every
// pooled connection sees the same data but tests stay isolated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.QuestionUsage{},
		&model.QuestionSession{},
		&model.UserProgress{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	db       *gorm.DB
	selector *SelectorService
	sessions *SessionService
	quality  *QualityService
	bank     *QuestionService
	progress *ProgressService

	questionRepo *repository.QuestionRepository
	usageRepo    *repository.UsageRepository
	sessionRepo  *repository.SessionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	questionRepo := repository.NewQuestionRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	selector := NewSelectorService(questionRepo, usageRepo)
	progress := NewProgressService(progressRepo, usageRepo, sessionRepo, questionRepo)
	sessions := NewSessionService(db, sessionRepo, usageRepo, questionRepo, selector, progress, nil)
	quality := NewQualityService(questionRepo, usageRepo, config.QualityConfig{})
	bank := NewQuestionService(questionRepo)

	return &testEnv{
		db:           db,
		selector:     selector,
		sessions:     sessions,
		quality:      quality,
		bank:         bank,
		progress:     progress,
		questionRepo: questionRepo,
		usageRepo:    usageRepo,
		sessionRepo:  sessionRepo,
	}
}

// seedSeq keeps seeded question texts globally unique; repeated seeds into
// the same bucket would otherwise collide on the content hash index.
var seedSeq int64

// seedQuestions inserts n single-correct questions into one bucket. The
// correct answer is always A.
func (e *testEnv) seedQuestions(t *testing.T, n int, category model.TestCategory, subject string, difficulty model.Difficulty) []model.Question {
	t.Helper()

	out := make([]model.Question, 0, n)
	for j := 0; j < n; j++ {
		i := atomic.AddInt64(&seedSeq, 1)
		q := model.Question{
			TestCategory: category,
			Subject:      subject,
			Difficulty:   difficulty,
			QuestionText: fmt.Sprintf("%s %s question #%d", subject, difficulty, i),
			Options: model.OptionMap{
				"A": fmt.Sprintf("right %d", i),
				"B": fmt.Sprintf("wrong b %d", i),
				"C": fmt.Sprintf("wrong c %d", i),
				"D": fmt.Sprintf("wrong d %d", i),
				"E": fmt.Sprintf("wrong e %d", i),
			},
			AnswerKind:    model.AnswerSingleCorrect,
			CorrectAnswer: "A",
			QualityScore:  1.0,
			IsActive:      true,
		}
		require.NoError(t, e.db.Create(&q).Error)
		out = append(out, q)
	}
	return out
}

// seedScoredQuestion inserts one TKP-style scored question.
func (e *testEnv) seedScoredQuestion(t *testing.T, category model.TestCategory, subject string, text string) model.Question {
	t.Helper()

	q := model.Question{
		TestCategory: category,
		Subject:      subject,
		Difficulty:   model.DifficultyMedium,
		QuestionText: text,
		Options: model.OptionMap{
			"A": "best " + text, "B": "good " + text, "C": "fair " + text,
			"D": "poor " + text, "E": "worst " + text,
		},
		AnswerKind:   model.AnswerScoredOptions,
		AnswerScores: model.ScoreMap{"A": 5, "B": 4, "C": 3, "D": 2, "E": 1},
		QualityScore: 1.0,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(&q).Error)
	return q
}
