package service

import (
	"testing"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestionInput() CreateQuestionInput {
	return CreateQuestionInput{
		TestCategory: model.CategoryCPNS,
		Subject:      "tiu",
		Difficulty:   model.DifficultyMedium,
		QuestionText: "What is 17 * 3?",
		Options: model.OptionMap{
			"A": "51", "B": "49", "C": "53", "D": "57", "E": "47",
		},
		CorrectAnswer: "A",
		Explanation:   "17 * 3 = 51.",
	}
}

func TestCreateQuestion(t *testing.T) {
	env := newTestEnv(t)

	q, err := env.bank.Create(validQuestionInput())
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.NotEmpty(t, q.ContentHash)
	assert.Equal(t, model.AnswerSingleCorrect, q.AnswerKind)
	assert.True(t, q.IsActive)
	assert.Equal(t, 1.0, q.QualityScore)
}

func TestCreateQuestionRejectsContentDuplicate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.bank.Create(validQuestionInput())
	require.NoError(t, err)

	// Same prompt and answer with cosmetic differences elsewhere.
	dup := validQuestionInput()
	dup.Difficulty = model.DifficultyHard
	dup.Explanation = "different explanation"
	_, err = env.bank.Create(dup)
	assert.ErrorIs(t, err, util.ErrDuplicateQuestion)
}

func TestCreateQuestionValidatesOptions(t *testing.T) {
	env := newTestEnv(t)

	missing := validQuestionInput()
	delete(missing.Options, "E")
	_, err := env.bank.Create(missing)
	assert.Error(t, err)

	empty := validQuestionInput()
	empty.Options["C"] = ""
	_, err = env.bank.Create(empty)
	assert.Error(t, err)

	duplicated := validQuestionInput()
	duplicated.Options["B"] = duplicated.Options["A"]
	_, err = env.bank.Create(duplicated)
	assert.Error(t, err)

	badKey := validQuestionInput()
	badKey.CorrectAnswer = "F"
	_, err = env.bank.Create(badKey)
	assert.Error(t, err)
}

func TestCreateQuestionUnknownSubject(t *testing.T) {
	env := newTestEnv(t)

	in := validQuestionInput()
	in.Subject = "matematika"
	_, err := env.bank.Create(in)
	assert.Error(t, err)
}

func TestCreateScoredQuestion(t *testing.T) {
	env := newTestEnv(t)

	in := CreateQuestionInput{
		TestCategory: model.CategoryCPNS,
		Subject:      "tkp",
		Difficulty:   model.DifficultyMedium,
		QuestionText: "A colleague keeps missing deadlines. What do you do?",
		Options: model.OptionMap{
			"A": "Offer to help them plan their work",
			"B": "Raise it privately with them",
			"C": "Wait and see if it improves",
			"D": "Report them to the supervisor",
			"E": "Ignore it",
		},
		AnswerScores: model.ScoreMap{"A": 5, "B": 4, "C": 3, "D": 2, "E": 1},
	}

	q, err := env.bank.Create(in)
	require.NoError(t, err)
	assert.Equal(t, model.AnswerScoredOptions, q.AnswerKind)
	assert.Equal(t, 5.0, q.MaxScore())

	awarded, correct := q.ScoreAnswer("B")
	assert.Equal(t, 4.0, awarded)
	assert.False(t, correct)

	awarded, correct = q.ScoreAnswer("A")
	assert.Equal(t, 5.0, awarded)
	assert.True(t, correct)
}

func TestCreateScoredQuestionRejectsUnknownScoreKey(t *testing.T) {
	env := newTestEnv(t)

	in := validQuestionInput()
	in.CorrectAnswer = ""
	in.AnswerScores = model.ScoreMap{"A": 5, "F": 1}
	_, err := env.bank.Create(in)
	assert.Error(t, err)
}
