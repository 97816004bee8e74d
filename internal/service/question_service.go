package service

import (
	"errors"
	"fmt"

	"bimbel_asn_backend/internal/config"
	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"
	"bimbel_asn_backend/internal/util"

	"gorm.io/gorm"
)

var optionKeys = []string{"A", "B", "C", "D", "E"}

// QuestionService manages the master question bank: validation, duplicate
// detection and listing. Serving questions to users is the selector's job.
type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{QuestionRepo: questionRepo}
}

// CreateQuestionInput is one new master question. AnswerScores present means
// a scored item; CorrectAnswer is required otherwise.
type CreateQuestionInput struct {
	TestCategory   model.TestCategory `json:"testCategory" binding:"required"`
	Subject        string             `json:"subject" binding:"required"`
	Subtype        string             `json:"subtype"`
	Difficulty     model.Difficulty   `json:"difficulty" binding:"required"`
	ReadingPassage string             `json:"readingPassage"`
	QuestionText   string             `json:"questionText" binding:"required"`
	Options        model.OptionMap    `json:"options" binding:"required"`
	CorrectAnswer  string             `json:"correctAnswer"`
	AnswerScores   model.ScoreMap     `json:"answerScores"`
	Explanation    string             `json:"explanation"`
}

// Create validates and stores a new question, rejecting content duplicates
// via the fingerprint.
func (s *QuestionService) Create(in CreateQuestionInput) (*model.Question, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	kind := model.AnswerSingleCorrect
	if len(in.AnswerScores) > 0 {
		kind = model.AnswerScoredOptions
	}

	q := &model.Question{
		TestCategory:   in.TestCategory,
		Subject:        in.Subject,
		Subtype:        in.Subtype,
		Difficulty:     in.Difficulty,
		ReadingPassage: in.ReadingPassage,
		QuestionText:   in.QuestionText,
		Options:        in.Options,
		AnswerKind:     kind,
		CorrectAnswer:  in.CorrectAnswer,
		AnswerScores:   in.AnswerScores,
		Explanation:    in.Explanation,
		QualityScore:   1.0,
		IsActive:       true,
	}
	q.ContentHash = q.GenerateHash()

	if _, err := s.QuestionRepo.FindByContentHash(q.ContentHash); err == nil {
		return nil, util.ErrDuplicateQuestion
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.QuestionRepo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) validate(in *CreateQuestionInput) error {
	if _, ok := config.SubjectFor(in.TestCategory, in.Subject); !ok {
		return fmt.Errorf("unknown subject %q for category %q", in.Subject, in.TestCategory)
	}
	switch in.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return fmt.Errorf("invalid difficulty %q", in.Difficulty)
	}

	if len(in.Options) != len(optionKeys) {
		return fmt.Errorf("question must have exactly %d options", len(optionKeys))
	}
	seen := make(map[string]string, len(optionKeys))
	for _, key := range optionKeys {
		text, ok := in.Options[key]
		if !ok || text == "" {
			return fmt.Errorf("option %s is missing or empty", key)
		}
		if dup, exists := seen[text]; exists {
			return fmt.Errorf("options %s and %s have identical text", dup, key)
		}
		seen[text] = key
	}

	if len(in.AnswerScores) > 0 {
		for key := range in.AnswerScores {
			if _, ok := in.Options[key]; !ok {
				return fmt.Errorf("answer score key %s is not an option", key)
			}
		}
		return nil
	}

	if _, ok := in.Options[in.CorrectAnswer]; !ok {
		return fmt.Errorf("correct answer %q is not an option key", in.CorrectAnswer)
	}
	return nil
}

// Get returns a question by id, including retired ones.
func (s *QuestionService) Get(id string) (*model.Question, error) {
	q, err := s.QuestionRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotFound
	}
	return q, err
}

// List pages through a subject's questions, active and retired alike.
func (s *QuestionService) List(category model.TestCategory, subject string, page, limit int) ([]model.Question, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.QuestionRepo.ListBySubject(category, subject, page, limit)
}
