package model

type TestCategory string

const (
	CategoryCPNS  TestCategory = "cpns"
	CategoryPOLRI TestCategory = "polri"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties in ascending order of hardness.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// AnswerKind tags how a question is scored: a single designated correct
// option, or a per-option score map (TKP-style personality items).
type AnswerKind string

const (
	AnswerSingleCorrect AnswerKind = "single_correct"
	AnswerScoredOptions AnswerKind = "scored_options"
)

// SessionMode is the application-level session kind.
type SessionMode string

const (
	ModePractice SessionMode = "practice"
	ModeReview   SessionMode = "review"
	ModeExam     SessionMode = "exam"
)

// SessionStorageType is the persisted session category. The database
// constraint only accepts these two values; the mode→type mapping lives in
// StorageTypeForMode and nowhere else.
type SessionStorageType string

const (
	StorageStandard SessionStorageType = "standard"
	StorageExam     SessionStorageType = "exam"
)

// StorageTypeForMode maps a session mode to its storage category. Practice
// and review sessions are both "standard"; only exam mode maps to "exam".
func StorageTypeForMode(mode SessionMode) SessionStorageType {
	if mode == ModeExam {
		return StorageExam
	}
	return StorageStandard
}

type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

type UserRole string

const (
	RoleUserCPNS  UserRole = "user_cpns"
	RoleUserPOLRI UserRole = "user_polri"
	RoleAdmin     UserRole = "admin"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)
