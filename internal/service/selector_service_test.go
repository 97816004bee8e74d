package service

import (
	"testing"
	"time"

	"bimbel_asn_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDefaultDistribution(t *testing.T) {
	split := DefaultDistribution(30)
	assert.Equal(t, 12, split[model.DifficultyEasy])
	assert.Equal(t, 12, split[model.DifficultyMedium])
	assert.Equal(t, 6, split[model.DifficultyHard])

	// Rounding leftovers land on medium and the total is preserved.
	split = DefaultDistribution(7)
	total := split[model.DifficultyEasy] + split[model.DifficultyMedium] + split[model.DifficultyHard]
	assert.Equal(t, 7, total)
}

func TestSelectFreshExcludesSeenQuestions(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seedQuestions(t, 10, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	first, err := env.selector.SelectFresh(1, model.CategoryCPNS, "tiu", "", nil, 4, nil)
	require.NoError(t, err)
	require.Len(t, first, 4)

	err = env.db.Transaction(func(tx *gorm.DB) error {
		return env.selector.MarkUsed(tx, 1, model.GenerateUUID(), first, 1, time.Now())
	})
	require.NoError(t, err)

	second, err := env.selector.SelectFresh(1, model.CategoryCPNS, "tiu", "", nil, 10, nil)
	require.NoError(t, err)
	assert.Len(t, second, 6)

	seen := make(map[string]bool)
	for _, q := range first {
		seen[q.ID] = true
	}
	for _, q := range second {
		assert.False(t, seen[q.ID], "question served twice to the same user")
	}

	// A different user still sees the full bank.
	other, err := env.selector.SelectFresh(2, model.CategoryCPNS, "tiu", "", nil, len(seeded), nil)
	require.NoError(t, err)
	assert.Len(t, other, len(seeded))
}

func TestSelectFreshPrefersLeastServed(t *testing.T) {
	env := newTestEnv(t)
	questions := env.seedQuestions(t, 6, model.CategoryCPNS, "tiu", model.DifficultyMedium)

	// Three questions already served heavily to other users.
	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Model(&model.Question{}).
			Where("id = ?", questions[i].ID).
			Update("usage_count", 50).Error)
	}

	picked, err := env.selector.SelectFresh(1, model.CategoryCPNS, "tiu", "", nil, 3, nil)
	require.NoError(t, err)
	require.Len(t, picked, 3)
	for _, q := range picked {
		assert.Equal(t, 0, q.UsageCount, "least-served questions should be selected first")
	}
}

func TestSelectFreshSkipsRetiredQuestions(t *testing.T) {
	env := newTestEnv(t)
	questions := env.seedQuestions(t, 3, model.CategoryCPNS, "tiu", model.DifficultyEasy)

	require.NoError(t, env.questionRepo.Retire(questions[0].ID, "too_easy", time.Now()))

	picked, err := env.selector.SelectFresh(1, model.CategoryCPNS, "tiu", "", nil, 10, nil)
	require.NoError(t, err)
	assert.Len(t, picked, 2)
	for _, q := range picked {
		assert.NotEqual(t, questions[0].ID, q.ID)
	}
}

func TestMarkUsedIncrementsGlobalCounter(t *testing.T) {
	env := newTestEnv(t)
	questions := env.seedQuestions(t, 2, model.CategoryPOLRI, "numerik", model.DifficultyHard)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.selector.MarkUsed(tx, 1, model.GenerateUUID(), questions, 1, time.Now())
	})
	require.NoError(t, err)

	for _, q := range questions {
		got, err := env.questionRepo.FindByID(q.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsageCount)
		assert.NotNil(t, got.LastUsedAt)
	}
}

func TestRecordReplayLeavesCountersAlone(t *testing.T) {
	env := newTestEnv(t)
	questions := env.seedQuestions(t, 2, model.CategoryPOLRI, "numerik", model.DifficultyHard)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.selector.RecordReplay(tx, 1, model.GenerateUUID(), questions, time.Now())
	})
	require.NoError(t, err)

	for _, q := range questions {
		got, err := env.questionRepo.FindByID(q.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.UsageCount)
	}
}

func TestAvailableCount(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(t, 4, model.CategoryCPNS, "tiu", model.DifficultyEasy)
	env.seedQuestions(t, 3, model.CategoryCPNS, "tiu", model.DifficultyHard)

	easy := env.seedQuestions(t, 2, model.CategoryCPNS, "tiu", model.DifficultyEasy)
	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.selector.MarkUsed(tx, 7, model.GenerateUUID(), easy, 1, time.Now())
	})
	require.NoError(t, err)

	av, err := env.selector.AvailableCount(7, model.CategoryCPNS, "tiu", "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), av.Total)
	assert.Equal(t, int64(4), av.ByDifficulty[model.DifficultyEasy])
	assert.Equal(t, int64(0), av.ByDifficulty[model.DifficultyMedium])
	assert.Equal(t, int64(3), av.ByDifficulty[model.DifficultyHard])
	assert.Equal(t, int64(9), av.ActivePool)
}
