package engine

import (
	"errors"
	"fmt"
)

// Error is returned by registry and engine operations.
//
// Error carries structured fields so callers (the CLI, the scenario harness)
// can report the affected group or participant without parsing messages.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Group names the affected group, when known.
	Group string

	// Participant names the affected participant, when known.
	Participant string

	// Err is the underlying cause (store failures, parse errors).
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeCorrupted indicates a structural violation in the stored document.
	ErrCodeCorrupted ErrorCode = "CORRUPTED_STORE"

	// ErrCodeNameTaken indicates a group with the requested name already exists.
	ErrCodeNameTaken ErrorCode = "NAME_TAKEN"

	// ErrCodeNotFound indicates no group has the requested name.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeAlreadyMember indicates the participant already belongs to a group.
	ErrCodeAlreadyMember ErrorCode = "ALREADY_MEMBER"

	// ErrCodeNotAMember indicates the participant belongs to no group.
	ErrCodeNotAMember ErrorCode = "NOT_A_MEMBER"

	// ErrCodeNotOnline indicates no online participant has the requested name.
	ErrCodeNotOnline ErrorCode = "NOT_ONLINE"

	// ErrCodeInvalidName indicates an empty group or participant name.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeInvalidAmount indicates a NaN or infinite vitality change.
	ErrCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"

	// ErrCodeDisabled indicates the engine failed its startup load.
	ErrCodeDisabled ErrorCode = "DISABLED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Group != "" {
		msg += fmt.Sprintf(" (group=%s)", e.Group)
	}
	if e.Participant != "" {
		msg += fmt.Sprintf(" (participant=%s)", e.Participant)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCorrupted returns true if err reports a corrupted store.
// Uses errors.As to handle wrapped errors.
func IsCorrupted(err error) bool {
	return CodeOf(err) == ErrCodeCorrupted
}

// IsNameTaken returns true if err reports a group name collision.
func IsNameTaken(err error) bool {
	return CodeOf(err) == ErrCodeNameTaken
}

// IsNotFound returns true if err reports an unknown group.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsAlreadyMember returns true if err reports an existing membership.
func IsAlreadyMember(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyMember
}

// IsNotAMember returns true if err reports a missing membership.
func IsNotAMember(err error) bool {
	return CodeOf(err) == ErrCodeNotAMember
}

// IsNotOnline returns true if err reports an offline participant.
func IsNotOnline(err error) bool {
	return CodeOf(err) == ErrCodeNotOnline
}

// IsInvalidAmount returns true if err reports a non-finite amount.
func IsInvalidAmount(err error) bool {
	return CodeOf(err) == ErrCodeInvalidAmount
}

// IsDisabled returns true if err reports a disabled engine.
func IsDisabled(err error) bool {
	return CodeOf(err) == ErrCodeDisabled
}

func corrupted(path, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeCorrupted,
		Message: fmt.Sprintf("%q: %s", path, fmt.Sprintf(format, args...)),
	}
}

func corruptedCause(path string, err error) *Error {
	return &Error{
		Code:    ErrCodeCorrupted,
		Message: fmt.Sprintf("%q: unreadable", path),
		Err:     err,
	}
}

func nameTaken(group string) *Error {
	return &Error{Code: ErrCodeNameTaken, Message: "group already exists", Group: group}
}

func notFound(group string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: "group does not exist", Group: group}
}

func alreadyMember(participant, group string) *Error {
	return &Error{Code: ErrCodeAlreadyMember, Message: "participant already belongs to a group", Group: group, Participant: participant}
}

func notAMember(participant string) *Error {
	return &Error{Code: ErrCodeNotAMember, Message: "participant belongs to no group", Participant: participant}
}

func notOnline(participant string) *Error {
	return &Error{Code: ErrCodeNotOnline, Message: "no online participant has this name", Participant: participant}
}

func invalidName(kind string) *Error {
	return &Error{Code: ErrCodeInvalidName, Message: kind + " name must not be empty"}
}

func invalidAmount(v float64) *Error {
	return &Error{Code: ErrCodeInvalidAmount, Message: fmt.Sprintf("amount %v is not a finite number", v)}
}

func disabled(cause error) *Error {
	return &Error{Code: ErrCodeDisabled, Message: "engine disabled after failed startup load", Err: cause}
}
