package domain

import (
	"errors"
	"strings"
)

var (
	ErrIdentityMissing         = errors.New("identity missing")
	ErrIdentityTooLong         = errors.New("identity too long")
	ErrIdentityInvalid         = errors.New("identity contains whitespace")
	ErrCredentialRequestFailed = errors.New("credential request failed")
	ErrConnectionFailed        = errors.New("connection failed")
	ErrToggle                  = errors.New("mute toggle failed")
	ErrTogglePending           = errors.New("mute toggle already pending")
	ErrPollTimedOut            = errors.New("analysis poll timed out")
	ErrPollRequest             = errors.New("analysis request failed")
	ErrAnalysisNotReady        = errors.New("analysis not ready")
	ErrMalformedResult         = errors.New("malformed analysis result")
	ErrCallInProgress          = errors.New("call already in progress")
	ErrNotConnected            = errors.New("call is not connected")
)

// IncompleteResultError marks a success response whose body is not yet a usable result.
type IncompleteResultError struct {
	Missing []string
}

func (e *IncompleteResultError) Error() string {
	if len(e.Missing) == 0 {
		return ErrMalformedResult.Error()
	}
	return ErrMalformedResult.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteResultError) Is(target error) bool { return target == ErrMalformedResult }

// ErrorCode identifies errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeIdentityMissing   ErrorCode = "identity_missing"
	ErrorCodeCredentialRequest ErrorCode = "credential_request_failed"
	ErrorCodeConnection        ErrorCode = "connection_failed"
	ErrorCodeToggle            ErrorCode = "toggle_failed"
	ErrorCodePollTimedOut      ErrorCode = "poll_timed_out"
	ErrorCodePollRequest       ErrorCode = "poll_request_failed"
)

// CodeOf maps an error onto the code the UI understands.
func CodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrIdentityMissing), errors.Is(err, ErrIdentityTooLong), errors.Is(err, ErrIdentityInvalid):
		return ErrorCodeIdentityMissing
	case errors.Is(err, ErrCredentialRequestFailed):
		return ErrorCodeCredentialRequest
	case errors.Is(err, ErrToggle), errors.Is(err, ErrTogglePending):
		return ErrorCodeToggle
	case errors.Is(err, ErrPollTimedOut):
		return ErrorCodePollTimedOut
	case errors.Is(err, ErrPollRequest):
		return ErrorCodePollRequest
	default:
		return ErrorCodeConnection
	}
}
