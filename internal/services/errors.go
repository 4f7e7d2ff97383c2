package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	ErrQuizNotFound      = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound  = fmt.Errorf("question %w", ErrNotFound)
	ErrCriterionNotFound = fmt.Errorf("criterion %w", ErrNotFound)
	ErrFeedbackNotFound  = fmt.Errorf("feedback %w", ErrNotFound)
	ErrAttemptNotFound   = fmt.Errorf("attempt %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
)

// ErrPolicyDenied matches every *PolicyError via errors.Is
var ErrPolicyDenied = errors.New("denied by quiz policy")

// PolicyError is returned by the attempt eligibility checks. The boolean check
// variants (CanStart, CanContinue) report the same decisions as false.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

func (e *PolicyError) Is(target error) bool {
	return target == ErrPolicyDenied
}

var (
	ErrQuizNotOpen          = &PolicyError{Code: "quiz_not_open", Message: "quiz is not open yet"}
	ErrQuizClosed           = &PolicyError{Code: "quiz_closed", Message: "quiz is closed"}
	ErrAttemptsLimitReached = &PolicyError{Code: "attempts_limit_reached", Message: "maximum number of attempts reached"}
	ErrAttemptTimedOut      = &PolicyError{Code: "attempt_timed_out", Message: "attempt duration exceeded"}
	ErrAttemptFinished      = &PolicyError{Code: "attempt_finished", Message: "attempt is already finished"}
	ErrAttemptOverridden    = &PolicyError{Code: "attempt_overridden", Message: "attempt was superseded by a later attempt"}
	ErrAttemptNotOwned      = &PolicyError{Code: "attempt_not_owned", Message: "attempt belongs to another user"}
)

// PermissionError reports a missing capability on a resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func IsPermissionError(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}

// ValidationError reports a request that is well-formed but not acceptable
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// isDenial reports whether err is a policy or permission decision rather than a failure
func isDenial(err error) bool {
	return errors.Is(err, ErrPolicyDenied) || IsPermissionError(err)
}
