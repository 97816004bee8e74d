package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrSessionNotFound  = errors.New("session not found")
	ErrQuestionNotFound = errors.New("question not found")

	// ErrInvalidSessionState: the operation does not apply to the session's
	// current lifecycle state (e.g. answering a completed session).
	ErrInvalidSessionState = errors.New("session is not in a valid state for this operation")

	// ErrUsageRecordMissing: an answer referenced a question that was never
	// assigned to the session. Caller bug; never upgraded into a new record.
	ErrUsageRecordMissing = errors.New("question is not part of this session")

	// ErrSessionInconsistent: the ledger no longer matches the frozen
	// question set. Completion refuses to reconcile a partial record.
	ErrSessionInconsistent = errors.New("session records are inconsistent with the frozen question set")

	ErrUnknownSubject       = errors.New("unknown subject for this test category")
	ErrInvalidAnswerOption  = errors.New("answer must be one of the question's option keys")
	ErrDuplicateQuestion    = errors.New("question with identical content already exists")
	ErrSessionNotReviewable = errors.New("session cannot be reviewed")
	ErrDailyLimitReached    = errors.New("daily session limit reached for this tier")
)

// InsufficientQuestionsError is returned when all sourcing tiers are
// exhausted with zero results. Available distinguishes "no fresh stock, use
// review mode" (available > 0) from "subject is empty, contact an admin".
type InsufficientQuestionsError struct {
	Available int
	Needed    int
}

func (e *InsufficientQuestionsError) Error() string {
	if e.Available > 0 {
		return fmt.Sprintf("only %d fresh questions available, %d needed; use review mode to practice past questions", e.Available, e.Needed)
	}
	return fmt.Sprintf("no questions available for this subject (%d needed); master questions must be added first", e.Needed)
}

// IsInsufficientQuestions reports whether err is an
// InsufficientQuestionsError and returns it when so.
func IsInsufficientQuestions(err error) (*InsufficientQuestionsError, bool) {
	var iq *InsufficientQuestionsError
	if errors.As(err, &iq) {
		return iq, true
	}
	return nil, false
}
