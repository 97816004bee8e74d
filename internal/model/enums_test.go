package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageTypeForMode(t *testing.T) {
	assert.Equal(t, StorageStandard, StorageTypeForMode(ModePractice))
	assert.Equal(t, StorageStandard, StorageTypeForMode(ModeReview))
	assert.Equal(t, StorageExam, StorageTypeForMode(ModeExam))
}

func TestScoreAnswerSingleCorrect(t *testing.T) {
	q := Question{
		AnswerKind:    AnswerSingleCorrect,
		CorrectAnswer: "C",
	}

	awarded, correct := q.ScoreAnswer("C")
	assert.Equal(t, 1.0, awarded)
	assert.True(t, correct)

	awarded, correct = q.ScoreAnswer("A")
	assert.Equal(t, 0.0, awarded)
	assert.False(t, correct)

	assert.Equal(t, 1.0, q.MaxScore())
}

func TestGenerateHashStableAndDistinct(t *testing.T) {
	a := Question{QuestionText: "prompt", CorrectAnswer: "A"}
	b := Question{QuestionText: "prompt", CorrectAnswer: "A"}
	c := Question{QuestionText: "prompt", CorrectAnswer: "B"}

	assert.Equal(t, a.GenerateHash(), b.GenerateHash())
	assert.NotEqual(t, a.GenerateHash(), c.GenerateHash())
}
