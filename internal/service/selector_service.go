package service

import (
	"math/rand"
	"time"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/repository"

	"gorm.io/gorm"
)

// SelectorService picks questions for sessions. The core guarantee: a user is
// never served a question that appears anywhere in their usage ledger, so the
// same item cannot show up twice across their lifetime regardless of mode.
type SelectorService struct {
	QuestionRepo *repository.QuestionRepository
	UsageRepo    *repository.UsageRepository
}

func NewSelectorService(questionRepo *repository.QuestionRepository, usageRepo *repository.UsageRepository) *SelectorService {
	return &SelectorService{QuestionRepo: questionRepo, UsageRepo: usageRepo}
}

// DefaultDistribution splits a question count 40/40/20 across
// easy/medium/hard, giving rounding leftovers to medium.
func DefaultDistribution(count int) map[model.Difficulty]int {
	easy := count * 40 / 100
	hard := count * 20 / 100
	return map[model.Difficulty]int{
		model.DifficultyEasy:   easy,
		model.DifficultyMedium: count - easy - hard,
		model.DifficultyHard:   hard,
	}
}

// SelectFresh returns up to count never-seen questions from the bucket,
// least-served first. Candidates sharing a usage count are shuffled so
// equally-served questions get equal exposure instead of a fixed insertion
// order. excludeIDs drops questions already picked earlier in the same
// selection round.
func (s *SelectorService) SelectFresh(userID uint, category model.TestCategory, subject, subtype string, difficulty *model.Difficulty, count int, excludeIDs []string) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	candidates, err := s.QuestionRepo.FindFresh(userID, category, subject, subtype, difficulty)
	if err != nil {
		return nil, err
	}
	candidates = dropIDs(candidates, excludeIDs)
	shuffleWithinUsageGroups(candidates)

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// SelectRecycled returns up to count already-seen questions from the bucket,
// in random order. Only the session creator's tier-3 fallback uses this; the
// never-repeat rule is deliberately relaxed there so a user who exhausted the
// bank can keep practicing.
func (s *SelectorService) SelectRecycled(userID uint, category model.TestCategory, subject, subtype string, count int, excludeIDs []string) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	pool, err := s.QuestionRepo.FindActiveInBucket(category, subject, subtype, excludeIDs)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

// Replay is one source-session question joined to its ledger entry.
type Replay struct {
	Question model.Question
	Usage    model.QuestionUsage
}

// SelectReplay returns a session's question set in served order, each paired
// with the recorded answer, so a review can show what the user chose before.
func (s *SelectorService) SelectReplay(sessionID string) ([]Replay, error) {
	usages, err := s.UsageRepo.FindBySession(sessionID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(usages))
	for i, u := range usages {
		ids[i] = u.QuestionID
	}
	questions, err := s.QuestionRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	out := make([]Replay, 0, len(usages))
	for _, u := range usages {
		q, ok := byID[u.QuestionID]
		if !ok {
			continue
		}
		out = append(out, Replay{Question: *q, Usage: u})
	}
	return out, nil
}

// MarkUsed appends one ledger entry per question and bumps each question's
// global usage counter, inside the caller's transaction. Seq numbering starts
// at startSeq.
func (s *SelectorService) MarkUsed(tx *gorm.DB, userID uint, sessionID string, questions []model.Question, startSeq int, now time.Time) error {
	records := buildUsageRecords(userID, sessionID, questions, startSeq, now)
	if err := s.UsageRepo.CreateBatch(tx, records); err != nil {
		return err
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return s.QuestionRepo.IncrementUsage(tx, ids, now)
}

// RecordReplay appends ledger entries without touching the global counters.
// Review sessions replay questions the user already owns exposure for, so
// they must not skew bank-wide fairness.
func (s *SelectorService) RecordReplay(tx *gorm.DB, userID uint, sessionID string, questions []model.Question, now time.Time) error {
	records := buildUsageRecords(userID, sessionID, questions, 1, now)
	return s.UsageRepo.CreateBatch(tx, records)
}

// Availability reports how many fresh questions a user has left in a bucket,
// total and per difficulty, plus the size of the active pool.
type Availability struct {
	Total        int64                      `json:"total"`
	ByDifficulty map[model.Difficulty]int64 `json:"byDifficulty"`
	ActivePool   int64                      `json:"activePool"`
}

func (s *SelectorService) AvailableCount(userID uint, category model.TestCategory, subject, subtype string) (*Availability, error) {
	av := &Availability{ByDifficulty: make(map[model.Difficulty]int64)}

	total, err := s.QuestionRepo.CountFresh(userID, category, subject, subtype, nil)
	if err != nil {
		return nil, err
	}
	av.Total = total

	for _, d := range model.Difficulties {
		d := d
		n, err := s.QuestionRepo.CountFresh(userID, category, subject, subtype, &d)
		if err != nil {
			return nil, err
		}
		av.ByDifficulty[d] = n
	}

	pool, err := s.QuestionRepo.FindActiveInBucket(category, subject, subtype, nil)
	if err != nil {
		return nil, err
	}
	av.ActivePool = int64(len(pool))
	return av, nil
}

func buildUsageRecords(userID uint, sessionID string, questions []model.Question, startSeq int, now time.Time) []model.QuestionUsage {
	records := make([]model.QuestionUsage, len(questions))
	for i, q := range questions {
		records[i] = model.QuestionUsage{
			QuestionID: q.ID,
			UserID:     userID,
			SessionID:  sessionID,
			Seq:        startSeq + i,
			UsedAt:     now,
		}
	}
	return records
}

func dropIDs(qs []model.Question, excludeIDs []string) []model.Question {
	if len(excludeIDs) == 0 {
		return qs
	}
	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}
	kept := qs[:0]
	for _, q := range qs {
		if _, skip := exclude[q.ID]; !skip {
			kept = append(kept, q)
		}
	}
	return kept
}

// shuffleWithinUsageGroups randomizes order inside each run of equal usage
// counts while keeping the least-served-first ordering between runs.
func shuffleWithinUsageGroups(qs []model.Question) {
	start := 0
	for i := 1; i <= len(qs); i++ {
		if i == len(qs) || qs[i].UsageCount != qs[start].UsageCount {
			group := qs[start:i]
			rand.Shuffle(len(group), func(a, b int) { group[a], group[b] = group[b], group[a] })
			start = i
		}
	}
}
