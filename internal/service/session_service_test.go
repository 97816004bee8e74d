package service

import (
	"context"
	"testing"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createStartedSession(t *testing.T, env *testEnv, userID uint, count int) *model.QuestionSession {
	t.Helper()

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       userID,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        count,
	})
	require.NoError(t, err)

	session, err = env.sessions.StartSession(userID, session.ID)
	require.NoError(t, err)
	return session
}

func TestCreateSessionFreezesQuestionSet(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 20, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        10,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCreated, session.Status)
	assert.Equal(t, model.StorageStandard, session.StorageType)
	assert.Equal(t, 10, session.TotalQuestions)
	assert.Len(t, session.QuestionIDs, 10)
	assert.Equal(t, 0, session.RecycledCount)

	// Ledger entries exist, in served order.
	usages, err := env.usageRepo.FindBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, usages, 10)
	for i, u := range usages {
		assert.Equal(t, i+1, u.Seq)
		assert.Equal(t, session.QuestionIDs[i], u.QuestionID)
	}

	// The serving endpoint returns the same frozen order.
	served, err := env.sessions.GetSessionQuestions(1, session.ID)
	require.NoError(t, err)
	require.Len(t, served, 10)
	for i, sq := range served {
		assert.Equal(t, session.QuestionIDs[i], sq.ID)
	}
}

func TestCreateSessionNeverRepeatsAcrossSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 20, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
			UserID:       1,
			Tier:         model.TierFree,
			TestCategory: model.CategoryCPNS,
			Subject:      "tiu",
			Mode:         model.ModePractice,
			Count:        10,
		})
		require.NoError(t, err)
		for _, id := range session.QuestionIDs {
			assert.False(t, seen[id], "question repeated across sessions")
			seen[id] = true
		}
	}
	assert.Len(t, seen, 20)
}

func TestCreateSessionPrefersHardQuestions(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 15, model.CategoryCPNS, "tiu", model.DifficultyEasy)
	env.seedQuestions(t, 15, model.CategoryCPNS, "tiu", model.DifficultyMedium)
	hard := env.seedQuestions(t, 15, model.CategoryCPNS, "tiu", model.DifficultyHard)

	hardIDs := make(map[string]bool, len(hard))
	for _, q := range hard {
		hardIDs[q.ID] = true
	}

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        10,
	})
	require.NoError(t, err)
	require.Len(t, session.QuestionIDs, 10)
	for _, id := range session.QuestionIDs {
		assert.True(t, hardIDs[id], "expected only hard questions while the hard bucket has stock")
	}
}

func TestCreateSessionExplicitDistribution(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 15, model.CategoryCPNS, "tiu", model.DifficultyEasy)
	env.seedQuestions(t, 15, model.CategoryCPNS, "tiu", model.DifficultyMedium)
	env.seedQuestions(t, 15, model.CategoryCPNS, "tiu", model.DifficultyHard)

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Distribution: DefaultDistribution(10),
		Count:        10,
	})
	require.NoError(t, err)

	mix := map[model.Difficulty]int{}
	for _, id := range session.QuestionIDs {
		q, err := env.questionRepo.FindByID(id)
		require.NoError(t, err)
		mix[q.Difficulty]++
	}
	assert.Equal(t, 4, mix[model.DifficultyEasy])
	assert.Equal(t, 4, mix[model.DifficultyMedium])
	assert.Equal(t, 2, mix[model.DifficultyHard])
}

func TestCreateSessionBackfillsAcrossDifficulties(t *testing.T) {
	env := newTestEnv(t)
	// No hard questions at all; the shortfall backfills from what exists.
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyEasy)
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, session.TotalQuestions)
	assert.Equal(t, 0, session.RecycledCount)
}

func TestCreateSessionRecyclesWhenBankExhausted(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 6, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	first := createStartedSession(t, env, 1, 6)
	require.Equal(t, 6, first.TotalQuestions)

	// Fresh stock is gone; practice mode falls back to recycled questions.
	second, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, second.TotalQuestions)
	assert.Equal(t, 4, second.RecycledCount)
}

func TestCreateSessionMixesFreshAndRecycled(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	first := createStartedSession(t, env, 1, 5)
	seen := make(map[string]bool, len(first.QuestionIDs))
	for _, id := range first.QuestionIDs {
		seen[id] = true
	}

	// 5 fresh questions remain; the other 5 come back recycled.
	second, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        10,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, second.TotalQuestions)
	assert.Equal(t, 5, second.RecycledCount)

	fresh, recycled := 0, 0
	unique := make(map[string]bool)
	for _, id := range second.QuestionIDs {
		unique[id] = true
		if seen[id] {
			recycled++
		} else {
			fresh++
		}
	}
	assert.Equal(t, 5, fresh)
	assert.Equal(t, 5, recycled)
	assert.Len(t, unique, 10, "no duplicates inside one session")
}

func TestCreateExamSessionRequiresFreshQuestions(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	_, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierPremium,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModeExam,
		Count:        10,
	})
	iq, ok := util.IsInsufficientQuestions(err)
	require.True(t, ok, "expected insufficient questions error, got %v", err)
	assert.Equal(t, 5, iq.Available)
	assert.Equal(t, 10, iq.Needed)
}

func TestCreateExamSessionNeedsSimulationTier(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 30, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	_, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModeExam,
		Count:        10,
	})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestCreateSessionUnknownSubject(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "bahasa_inggris", // POLRI subject, not CPNS
		Mode:         model.ModePractice,
	})
	assert.ErrorIs(t, err, util.ErrUnknownSubject)
}

func TestStartSessionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 5)
	startedAt := session.StartedAt
	require.NotNil(t, startedAt)

	again, err := env.sessions.StartSession(1, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, again.Status)
	assert.Equal(t, startedAt.Unix(), again.StartedAt.Unix())
}

func TestSubmitAnswerBeforeStartRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModePractice,
		Count:        5,
	})
	require.NoError(t, err)

	_, err = env.sessions.SubmitAnswer(1, session.ID, session.QuestionIDs[0], "A", nil, model.TierFree)
	assert.ErrorIs(t, err, util.ErrInvalidSessionState)
}

func TestSubmitAnswerOutsideFrozenSetRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)
	stray := env.seedQuestions(t, 1, model.CategoryCPNS, "wawasan_kebangsaan", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 5)

	_, err := env.sessions.SubmitAnswer(1, session.ID, stray[0].ID, "A", nil, model.TierFree)
	assert.ErrorIs(t, err, util.ErrUsageRecordMissing)

	// Nothing was recorded for the stray question.
	usages, err := env.usageRepo.FindBySession(session.ID)
	require.NoError(t, err)
	assert.Len(t, usages, 5)
}

func TestCompleteSessionReconcilesScore(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 10)

	// 7 correct, 2 incorrect, 1 left blank.
	for i, id := range session.QuestionIDs {
		answer := "A"
		if i >= 7 && i < 9 {
			answer = "B"
		}
		if i == 9 {
			continue
		}
		_, err := env.sessions.SubmitAnswer(1, session.ID, id, answer, nil, model.TierFree)
		require.NoError(t, err)
	}

	completed, err := env.sessions.CompleteSession(1, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)
	assert.Equal(t, 7, completed.CorrectCount)
	assert.Equal(t, 2, completed.IncorrectCount)
	assert.Equal(t, 1, completed.UnansweredCount)
	require.NotNil(t, completed.Score)
	assert.InDelta(t, 70.0, *completed.Score, 0.001)

	// Completing twice is an invalid transition.
	_, err = env.sessions.CompleteSession(1, session.ID)
	assert.ErrorIs(t, err, util.ErrInvalidSessionState)
}

func TestCompleteSessionScoredQuestions(t *testing.T) {
	env := newTestEnv(t)
	q1 := env.seedScoredQuestion(t, model.CategoryCPNS, "tkp", "conflict handling")
	q2 := env.seedScoredQuestion(t, model.CategoryCPNS, "tkp", "deadline pressure")
	_ = q1
	_ = q2

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierFree,
		TestCategory: model.CategoryCPNS,
		Subject:      "tkp",
		Mode:         model.ModePractice,
		Count:        2,
	})
	require.NoError(t, err)
	_, err = env.sessions.StartSession(1, session.ID)
	require.NoError(t, err)

	// Best option on one, middling on the other: (5+3)/10 = 80%.
	_, err = env.sessions.SubmitAnswer(1, session.ID, session.QuestionIDs[0], "A", nil, model.TierFree)
	require.NoError(t, err)
	_, err = env.sessions.SubmitAnswer(1, session.ID, session.QuestionIDs[1], "C", nil, model.TierFree)
	require.NoError(t, err)

	completed, err := env.sessions.CompleteSession(1, session.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.Score)
	assert.InDelta(t, 80.0, *completed.Score, 0.001)
	assert.Equal(t, 1, completed.CorrectCount)
	assert.Equal(t, 1, completed.IncorrectCount)
}

func TestCompleteSessionDetectsLedgerMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 5)

	// Simulate a corrupted ledger.
	require.NoError(t, env.db.
		Where("session_id = ? AND question_id = ?", session.ID, session.QuestionIDs[0]).
		Delete(&model.QuestionUsage{}).Error)

	_, err := env.sessions.CompleteSession(1, session.ID)
	assert.ErrorIs(t, err, util.ErrSessionInconsistent)

	// The session must not have been marked completed.
	got, err := env.sessions.GetSession(1, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestReviewSessionReplaysExactOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 5)
	for _, id := range session.QuestionIDs {
		_, err := env.sessions.SubmitAnswer(1, session.ID, id, "B", nil, model.TierFree)
		require.NoError(t, err)
	}
	original, err := env.sessions.CompleteSession(1, session.ID)
	require.NoError(t, err)

	creation, err := env.sessions.CreateReviewSession(1, session.ID)
	require.NoError(t, err)
	review := creation.Session
	assert.Equal(t, model.ModeReview, review.Mode)
	assert.Equal(t, model.StorageStandard, review.StorageType)
	assert.Equal(t, session.QuestionIDs, review.QuestionIDs)
	require.NotNil(t, review.ReviewOfID)
	assert.Equal(t, session.ID, *review.ReviewOfID)

	// The replay carries what the user answered the first time around.
	require.Len(t, creation.Questions, 5)
	for i, rq := range creation.Questions {
		assert.Equal(t, session.QuestionIDs[i], rq.ID)
		assert.Equal(t, i+1, rq.Seq)
		assert.Equal(t, "B", rq.PriorAnswer)
		require.NotNil(t, rq.PriorCorrect)
		assert.False(t, *rq.PriorCorrect)
	}

	// Answering the review differently never touches the original outcome.
	_, err = env.sessions.StartSession(1, review.ID)
	require.NoError(t, err)
	for _, id := range review.QuestionIDs {
		_, err := env.sessions.SubmitAnswer(1, review.ID, id, "A", nil, model.TierFree)
		require.NoError(t, err)
	}
	reviewed, err := env.sessions.CompleteSession(1, review.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reviewed.CorrectCount)

	unchanged, err := env.sessions.GetSession(1, session.ID)
	require.NoError(t, err)
	assert.Equal(t, original.CorrectCount, unchanged.CorrectCount)
	assert.Equal(t, *original.Score, *unchanged.Score)
}

func TestReviewRequiresCompletedSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 5)
	_, err := env.sessions.CreateReviewSession(1, session.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotReviewable)
}

func TestSessionOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 5, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 5)

	_, err := env.sessions.StartSession(2, session.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	_, err = env.sessions.GetSession(2, session.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestExamModeHidesImmediateFeedback(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session, err := env.sessions.CreateSession(context.Background(), CreateSessionInput{
		UserID:       1,
		Tier:         model.TierPremium,
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Mode:         model.ModeExam,
		Count:        5,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StorageExam, session.StorageType)

	_, err = env.sessions.StartSession(1, session.ID)
	require.NoError(t, err)

	result, err := env.sessions.SubmitAnswer(1, session.ID, session.QuestionIDs[0], "A", nil, model.TierPremium)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Nil(t, result.Correct)
	assert.Empty(t, result.Explanation)
}

func TestCompletedSessionUpdatesProgress(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	session := createStartedSession(t, env, 1, 4)
	for _, id := range session.QuestionIDs {
		_, err := env.sessions.SubmitAnswer(1, session.ID, id, "A", nil, model.TierFree)
		require.NoError(t, err)
	}
	_, err := env.sessions.CompleteSession(1, session.ID)
	require.NoError(t, err)

	p, err := env.progress.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalSessions)
	assert.Equal(t, 4, p.TotalQuestions)
	assert.Equal(t, 4, p.TotalCorrect)
	assert.InDelta(t, 1.0, p.OverallAccuracy, 0.001)
	assert.Equal(t, 4, p.SubjectStats["tiu"].Questions)
	assert.Equal(t, 4, p.DifficultyStats[string(model.DifficultyMedium)].Questions)
}

func TestLifetimeStatsCountSeenAndAnswered(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	// Answer only 3 of 5 served questions, 2 of them right.
	session := createStartedSession(t, env, 1, 5)
	answers := []string{"A", "A", "B"}
	for i, ans := range answers {
		_, err := env.sessions.SubmitAnswer(1, session.ID, session.QuestionIDs[i], ans, nil, model.TierFree)
		require.NoError(t, err)
	}

	stats, err := env.progress.Lifetime(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.QuestionsSeen)
	assert.Equal(t, int64(3), stats.QuestionsAnswered)
	assert.Equal(t, int64(2), stats.QuestionsCorrect)
	assert.InDelta(t, 2.0/3.0, stats.Accuracy, 0.001)
}
